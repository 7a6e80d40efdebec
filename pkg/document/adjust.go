package document

import (
	"image"
	"image/color"
	"math"
)

// adjust applies the color transform of an adjustment layer to every painted
// pixel of img, mixed with the original by opacity.
func adjust(img *image.RGBA, kind Kind, p Adjustment, opacity int) {
	f := float64(clampOpacity(opacity)) / 100
	if f == 0 {
		return
	}
	transform := adjustments[kind]
	if transform == nil {
		return
	}

	b := img.Rect
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			px := img.RGBAAt(x, y)
			if px.A == 0 {
				continue
			}
			c := color.NRGBAModel.Convert(px).(color.NRGBA)
			r, g, bl := transform(float64(c.R), float64(c.G), float64(c.B), p)
			c.R = mix(c.R, r, f)
			c.G = mix(c.G, g, f)
			c.B = mix(c.B, bl, f)
			img.SetRGBA(x, y, color.RGBAModel.Convert(c).(color.RGBA))
		}
	}
}

type transformFunc func(r, g, b float64, p Adjustment) (float64, float64, float64)

var adjustments = map[Kind]transformFunc{
	KindBrightnessContrast: func(r, g, b float64, p Adjustment) (float64, float64, float64) {
		d := p.Amount * 255 / 100
		return r + d, g + d, b + d
	},
	KindChannelMixer: func(r, g, b float64, p Adjustment) (float64, float64, float64) {
		// Amount is the share of the monochrome mix.
		l := luma(r, g, b)
		k := p.Amount / 100
		return r + (l-r)*k, g + (l-g)*k, b + (l-b)*k
	},
	KindColorBalance: func(r, g, b float64, p Adjustment) (float64, float64, float64) {
		// Positive shifts toward red, negative toward cyan.
		d := p.Amount * 255 / 100
		return r + d, g - d/2, b - d/2
	},
	KindCurves: func(r, g, b float64, p Adjustment) (float64, float64, float64) {
		gamma := math.Exp(-p.Amount / 100)
		curve := func(v float64) float64 { return 255 * math.Pow(v/255, gamma) }
		return curve(r), curve(g), curve(b)
	},
	KindGradientMap: func(r, g, b float64, _ Adjustment) (float64, float64, float64) {
		l := luma(r, g, b)
		return l, l, l
	},
	KindHueSaturation: func(r, g, b float64, p Adjustment) (float64, float64, float64) {
		l := luma(r, g, b)
		k := 1 + p.Amount/100
		return l + (r-l)*k, l + (g-l)*k, l + (b-l)*k
	},
	KindInvert: func(r, g, b float64, _ Adjustment) (float64, float64, float64) {
		return 255 - r, 255 - g, 255 - b
	},
	KindLevels: func(r, g, b float64, p Adjustment) (float64, float64, float64) {
		black := float64(p.Level)
		if black >= 255 {
			return 0, 0, 0
		}
		level := func(v float64) float64 { return (v - black) * 255 / (255 - black) }
		return level(r), level(g), level(b)
	},
	KindPosterize: func(r, g, b float64, p Adjustment) (float64, float64, float64) {
		n := p.Levels
		if n < 2 {
			n = 4
		}
		steps := float64(n - 1)
		band := func(v float64) float64 { return math.Round(math.Round(v/255*steps) * 255 / steps) }
		return band(r), band(g), band(b)
	},
	KindSelectiveColor: func(r, g, b float64, p Adjustment) (float64, float64, float64) {
		// Amount adds black to every channel.
		k := 1 - p.Amount/100
		return r * k, g * k, b * k
	},
	KindThreshold: func(r, g, b float64, p Adjustment) (float64, float64, float64) {
		level := float64(p.Level)
		if p.Level == 0 {
			level = 128
		}
		if luma(r, g, b) >= level {
			return 255, 255, 255
		}
		return 0, 0, 0
	},
}

func luma(r, g, b float64) float64 {
	return 0.299*r + 0.587*g + 0.114*b
}

func mix(orig uint8, v, f float64) uint8 {
	out := float64(orig) + (v-float64(orig))*f
	return uint8(math.Round(math.Min(math.Max(out, 0), 255)))
}
