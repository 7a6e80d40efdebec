package flintoexport

import (
	"fmt"
	"math"
	"strings"
)

// Device is a target screen preset.
type Device struct {
	Name         string
	Width        int // portrait pixels
	Height       int
	PixelDensity float64
	DefaultScale float64 // scale suggested when the document is drawn at a fraction of the device size
}

// Devices lists the built-in presets.
var Devices = []Device{
	{Name: "iPhone 6", Width: 750, Height: 1334, PixelDensity: 2, DefaultScale: 2},
	{Name: "iPhone 6 Plus", Width: 1242, Height: 2208, PixelDensity: 3, DefaultScale: 3},
	{Name: "iPhone (4 inch)", Width: 640, Height: 1136, PixelDensity: 2, DefaultScale: 2},
	{Name: "iPad", Width: 2048, Height: 1536, PixelDensity: 2, DefaultScale: 2},
	{Name: "Apple Watch (42mm)", Width: 312, Height: 390, PixelDensity: 2, DefaultScale: 2},
	{Name: "Apple Watch (38mm)", Width: 272, Height: 460, PixelDensity: 2, DefaultScale: 2},
}

// Custom is the preset used when no device matches: the output keeps the
// document size at the chosen scale and a pixel density of 1.
var Custom = Device{Name: "Custom", PixelDensity: 1, DefaultScale: 1}

// LookupDevice finds a preset by case-insensitive name, Custom included.
func LookupDevice(name string) (Device, bool) {
	if strings.EqualFold(name, Custom.Name) {
		return Custom, true
	}
	for _, d := range Devices {
		if strings.EqualFold(d.Name, name) {
			return d, true
		}
	}
	return Device{}, false
}

// Suggestion is a device guessed from the document width.
type Suggestion struct {
	Device    Device
	Landscape bool
	Factor    float64 // device pixels per document pixel
	Scale     float64 // output scale to preselect
}

// SuggestDevice returns the first preset whose width, or height for a
// landscape document, equals the document width at 1x, 2x or 3x.
func SuggestDevice(docWidth int) (Suggestion, bool) {
	if docWidth <= 0 {
		return Suggestion{}, false
	}
	for _, d := range Devices {
		s, ok := matchDevice(d, docWidth)
		if !ok {
			continue
		}
		s.Scale = 1
		if s.Factor != 1 {
			s.Scale = d.DefaultScale
		}
		return s, true
	}
	return Suggestion{}, false
}

func matchDevice(d Device, docWidth int) (Suggestion, bool) {
	for _, m := range []int{1, 2, 3} {
		if docWidth*m == d.Width {
			return Suggestion{Device: d, Factor: float64(d.Width) / float64(docWidth)}, true
		}
	}
	for _, m := range []int{1, 2, 3} {
		if docWidth*m == d.Height {
			return Suggestion{Device: d, Landscape: true, Factor: float64(d.Height) / float64(docWidth)}, true
		}
	}
	return Suggestion{}, false
}

// Settings are the resolved export parameters.
type Settings struct {
	Device       Device
	Landscape    bool
	Scale        float64
	Width        int
	Height       int
	PixelDensity float64
}

// Configure resolves the device, scale and output size for a document. An
// empty deviceName picks a preset from the document width, falling back to
// Custom. A zero scale takes the suggested one.
func Configure(docWidth, docHeight int, deviceName string, scale float64) (Settings, error) {
	suggestion, suggested := SuggestDevice(docWidth)

	device := Custom
	if deviceName != "" {
		d, ok := LookupDevice(deviceName)
		if !ok {
			return Settings{}, fmt.Errorf("unknown device %q", deviceName)
		}
		device = d
	} else if suggested {
		device = suggestion.Device
	}
	matches := suggested && suggestion.Device.Name == device.Name

	if scale == 0 {
		scale = 1
		if matches {
			scale = suggestion.Scale
		}
	}

	st := Settings{Device: device, Scale: scale, PixelDensity: device.PixelDensity}
	switch {
	case device.Name == Custom.Name:
		st.Width, st.Height = ScaledSize(docWidth, docHeight, scale)
	case matches:
		// The document is the device at 1/Factor; the output follows the scale.
		w := float64(device.Width) / suggestion.Factor * scale
		h := float64(device.Height) / suggestion.Factor * scale
		st.Landscape = suggestion.Landscape
		if st.Landscape {
			w, h = h, w
		}
		st.Width, st.Height = int(math.Round(w)), int(math.Round(h))
	default:
		st.Width, st.Height = device.Width, device.Height
		if docWidth > docHeight && device.Width < device.Height {
			st.Landscape = true
			st.Width, st.Height = device.Height, device.Width
		}
	}
	return st, nil
}
