package document

import (
	"image"
	"image/color"
)

// Type is the variant tag of a Node.
type Type int

const (
	// TypeRaster is a plain pixel layer (art layer).
	TypeRaster Type = iota
	// TypeText is a live text layer.
	TypeText
	// TypeGroup is a layer set holding ordered children.
	TypeGroup
)

func (t Type) String() string {
	switch t {
	case TypeGroup:
		return "group"
	case TypeText:
		return "text"
	default:
		return "raster"
	}
}

// Kind refines a non-group node: normal pixels, a smart object, or one of the
// adjustment kinds that carry no pixels of their own.
type Kind int

const (
	KindNormal Kind = iota
	KindSmartObject
	KindBrightnessContrast
	KindChannelMixer
	KindColorBalance
	KindCurves
	KindGradientMap
	KindHueSaturation
	KindInvert
	KindLevels
	KindPosterize
	KindSelectiveColor
	KindThreshold
)

var kindNames = map[Kind]string{
	KindNormal:             "normal",
	KindSmartObject:        "smart_object",
	KindBrightnessContrast: "brightness_contrast",
	KindChannelMixer:       "channel_mixer",
	KindColorBalance:       "color_balance",
	KindCurves:             "curves",
	KindGradientMap:        "gradient_map",
	KindHueSaturation:      "hue_saturation",
	KindInvert:             "invert",
	KindLevels:             "levels",
	KindPosterize:          "posterize",
	KindSelectiveColor:     "selective_color",
	KindThreshold:          "threshold",
}

func (k Kind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}
	return "unknown"
}

// ParseKind maps a manifest kind name to a Kind. The empty string is KindNormal.
func ParseKind(s string) (Kind, bool) {
	if s == "" {
		return KindNormal, true
	}
	for k, name := range kindNames {
		if name == s {
			return k, true
		}
	}
	return KindNormal, false
}

// IsAdjustment reports whether k is a non-pixel adjustment kind.
func (k Kind) IsAdjustment() bool {
	return k >= KindBrightnessContrast && k <= KindThreshold
}

// Locks mirrors the per-layer lock flags of the editing host.
type Locks struct {
	Background        bool `yaml:"background"`
	Position          bool `yaml:"position"`
	Pixels            bool `yaml:"pixels"`
	TransparentPixels bool `yaml:"transparent_pixels"`
	All               bool `yaml:"all"`
}

// Point is a vector path vertex in document coordinates.
type Point struct {
	X, Y float64
}

// Path is a vector mask made of closed polygons. Pixels inside any polygon
// stay visible.
type Path struct {
	Polygons [][]Point
}

// RasterMask is a user (pixel) mask. Alpha is positioned in document
// coordinates; pixels outside its rectangle are revealed.
type RasterMask struct {
	Alpha    *image.Alpha
	Disabled bool
}

// Text is the live content of a text layer. Origin is the baseline start of
// the first line and Size the pixel height of a line.
type Text struct {
	Content string
	Color   color.NRGBA
	Origin  Point
	Size    float64
}

// Adjustment holds the parameters of an adjustment layer. Amount is a signed
// percentage for brightness and saturation kinds, Level a 0..255 threshold and
// Levels the posterize band count.
type Adjustment struct {
	Amount float64
	Level  uint8
	Levels int
}

// Node is a single layer of the document tree.
type Node struct {
	ID      string
	Name    string
	Type    Type
	Kind    Kind
	Opacity int // 0..100
	Visible bool
	Locks   Locks
	Clipped bool // clips to the layer directly below

	Children []*Node // top to bottom, TypeGroup only

	Pixels     *image.RGBA // document coordinates, nil when empty
	Mask       *RasterMask
	VectorMask *Path
	Text       *Text
	Adjustment Adjustment

	smart bool
}

// RasterMask returns the node's raster mask if one is present and enabled.
func (n *Node) RasterMask() (*RasterMask, bool) {
	if n.Mask == nil || n.Mask.Disabled || n.Mask.Alpha == nil {
		return nil, false
	}
	return n.Mask, true
}

// VectorPath returns the node's vector mask if it has at least one polygon
// that encloses an area.
func (n *Node) VectorPath() (*Path, bool) {
	if n.VectorMask == nil {
		return nil, false
	}
	for _, poly := range n.VectorMask.Polygons {
		if len(poly) >= 3 {
			return n.VectorMask, true
		}
	}
	return nil, false
}

// Smart reports whether the node has been promoted to a smart object and is
// waiting to be rasterized.
func (n *Node) Smart() bool {
	return n.smart || n.Kind == KindSmartObject
}

// Document is a layered image. Layers are ordered top to bottom.
type Document struct {
	Name       string
	Width      int
	Height     int
	Resolution float64
	Layers     []*Node
}

// Rect returns the canvas rectangle.
func (d *Document) Rect() image.Rectangle {
	return image.Rect(0, 0, d.Width, d.Height)
}

// Walk calls fn for every node in top-to-bottom, depth-first order. Returning
// false from fn skips the node's children.
func (d *Document) Walk(fn func(n *Node) bool) {
	walk(d.Layers, fn)
}

func walk(nodes []*Node, fn func(n *Node) bool) {
	for _, n := range nodes {
		if fn(n) && n.Type == TypeGroup {
			walk(n.Children, fn)
		}
	}
}
