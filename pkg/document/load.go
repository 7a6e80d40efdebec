package document

import (
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"image/png"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/google/uuid"
	"gopkg.in/yaml.v3"
)

// defaultTextSize is the line height of the built-in text face.
const defaultTextSize = 13

// Manifest is the YAML description of a layered document. Layers are listed
// top to bottom and image paths are relative to the manifest file.
type Manifest struct {
	Name       string      `yaml:"name"`
	Width      int         `yaml:"width"`
	Height     int         `yaml:"height"`
	Resolution float64     `yaml:"resolution"`
	Layers     []LayerSpec `yaml:"layers"`
}

// LayerSpec describes one layer of a Manifest.
type LayerSpec struct {
	Name       string          `yaml:"name"`
	Type       string          `yaml:"type"` // group, raster (default), text
	Kind       string          `yaml:"kind"`
	Opacity    *int            `yaml:"opacity"`
	Visible    *bool           `yaml:"visible"`
	Clipped    bool            `yaml:"clipped"`
	Locks      Locks           `yaml:"locks"`
	Image      string          `yaml:"image"`
	X          int             `yaml:"x"`
	Y          int             `yaml:"y"`
	Fill       *FillSpec       `yaml:"fill"`
	Text       *TextSpec       `yaml:"text"`
	Mask       *MaskSpec       `yaml:"mask"`
	VectorMask [][][2]float64  `yaml:"vector_mask"`
	Adjustment *AdjustmentSpec `yaml:"adjustment"`
	Layers     []LayerSpec     `yaml:"layers"`
}

// FillSpec paints a solid rectangle [x0, y0, x1, y1].
type FillSpec struct {
	Color string `yaml:"color"`
	Rect  [4]int `yaml:"rect"`
}

// TextSpec is the live content of a text layer.
type TextSpec struct {
	Content string  `yaml:"content"`
	Color   string  `yaml:"color"`
	X       float64 `yaml:"x"`
	Y       float64 `yaml:"y"`
	Size    float64 `yaml:"size"`
}

// MaskSpec references a grayscale PNG used as a raster mask.
type MaskSpec struct {
	Image    string `yaml:"image"`
	X        int    `yaml:"x"`
	Y        int    `yaml:"y"`
	Disabled bool   `yaml:"disabled"`
}

// AdjustmentSpec carries adjustment layer parameters.
type AdjustmentSpec struct {
	Amount float64 `yaml:"amount"`
	Level  uint8   `yaml:"level"`
	Levels int     `yaml:"levels"`
}

// Load reads a manifest file and the images it references.
func Load(path string) (*Document, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open manifest: %w", err)
	}
	defer f.Close()

	return Decode(f, filepath.Dir(path))
}

// Decode parses a manifest from r. Relative image paths resolve against dir.
func Decode(r io.Reader, dir string) (*Document, error) {
	var m Manifest
	if err := yaml.NewDecoder(r).Decode(&m); err != nil {
		return nil, fmt.Errorf("failed to parse manifest: %w", err)
	}
	return m.Build(dir)
}

// Build turns the manifest into a Document, decoding referenced images.
func (m *Manifest) Build(dir string) (*Document, error) {
	if m.Width <= 0 || m.Height <= 0 {
		return nil, fmt.Errorf("invalid document size %dx%d", m.Width, m.Height)
	}

	doc := &Document{
		Name:       m.Name,
		Width:      m.Width,
		Height:     m.Height,
		Resolution: m.Resolution,
	}
	if doc.Resolution == 0 {
		doc.Resolution = 72
	}

	layers, err := buildNodes(m.Layers, dir, "")
	if err != nil {
		return nil, err
	}
	doc.Layers = layers
	return doc, nil
}

func buildNodes(specs []LayerSpec, dir, parent string) ([]*Node, error) {
	nodes := make([]*Node, 0, len(specs))
	for i := range specs {
		n, err := buildNode(&specs[i], dir)
		if err != nil {
			name := specs[i].Name
			if name == "" {
				name = "#" + strconv.Itoa(i)
			}
			return nil, fmt.Errorf("layer %s%s: %w", parent, name, err)
		}
		nodes = append(nodes, n)
	}
	return nodes, nil
}

func buildNode(s *LayerSpec, dir string) (*Node, error) {
	n := &Node{
		ID:      uuid.NewString(),
		Name:    s.Name,
		Opacity: 100,
		Visible: true,
		Clipped: s.Clipped,
		Locks:   s.Locks,
	}
	if s.Opacity != nil {
		if *s.Opacity < 0 || *s.Opacity > 100 {
			return nil, fmt.Errorf("opacity %d out of range [0,100]", *s.Opacity)
		}
		n.Opacity = *s.Opacity
	}
	if s.Visible != nil {
		n.Visible = *s.Visible
	}

	kind, ok := ParseKind(s.Kind)
	if !ok {
		return nil, fmt.Errorf("unknown kind %q", s.Kind)
	}
	n.Kind = kind
	if s.Adjustment != nil {
		n.Adjustment = Adjustment{Amount: s.Adjustment.Amount, Level: s.Adjustment.Level, Levels: s.Adjustment.Levels}
	}

	switch s.Type {
	case "group":
		n.Type = TypeGroup
		if s.Image != "" || s.Fill != nil || s.Text != nil || kind != KindNormal {
			return nil, fmt.Errorf("group cannot carry pixels, text or a kind")
		}
		children, err := buildNodes(s.Layers, dir, s.Name+"/")
		if err != nil {
			return nil, err
		}
		n.Children = children
	case "text":
		n.Type = TypeText
		if s.Text == nil {
			return nil, fmt.Errorf("text layer without text")
		}
		c, err := ParseColor(s.Text.Color)
		if err != nil {
			return nil, err
		}
		size := s.Text.Size
		if size == 0 {
			size = defaultTextSize
		}
		n.Text = &Text{Content: s.Text.Content, Color: c, Origin: Point{X: s.Text.X, Y: s.Text.Y}, Size: size}
	case "", "raster":
		n.Type = TypeRaster
		if len(s.Layers) > 0 {
			return nil, fmt.Errorf("only groups can have layers")
		}
		if err := loadPixels(n, s, dir); err != nil {
			return nil, err
		}
	default:
		return nil, fmt.Errorf("unknown type %q", s.Type)
	}

	if s.Mask != nil {
		alpha, err := loadMask(resolve(dir, s.Mask.Image), image.Pt(s.Mask.X, s.Mask.Y))
		if err != nil {
			return nil, err
		}
		n.Mask = &RasterMask{Alpha: alpha, Disabled: s.Mask.Disabled}
	}
	if len(s.VectorMask) > 0 {
		p := &Path{}
		for _, poly := range s.VectorMask {
			pts := make([]Point, len(poly))
			for i, xy := range poly {
				pts[i] = Point{X: xy[0], Y: xy[1]}
			}
			p.Polygons = append(p.Polygons, pts)
		}
		n.VectorMask = p
	}
	return n, nil
}

func loadPixels(n *Node, s *LayerSpec, dir string) error {
	if s.Image != "" && s.Fill != nil {
		return fmt.Errorf("layer has both image and fill")
	}

	if s.Fill != nil {
		c, err := ParseColor(s.Fill.Color)
		if err != nil {
			return err
		}
		r := image.Rect(s.Fill.Rect[0], s.Fill.Rect[1], s.Fill.Rect[2], s.Fill.Rect[3])
		if r.Empty() {
			return fmt.Errorf("empty fill rect %v", s.Fill.Rect)
		}
		img := image.NewRGBA(r)
		draw.Draw(img, r, image.NewUniform(c), image.Point{}, draw.Src)
		n.Pixels = img
		return nil
	}

	if s.Image != "" {
		src, err := decodePNG(resolve(dir, s.Image))
		if err != nil {
			return err
		}
		b := src.Bounds()
		img := image.NewRGBA(b.Sub(b.Min).Add(image.Pt(s.X, s.Y)))
		draw.Draw(img, img.Rect, src, b.Min, draw.Src)
		n.Pixels = img
	}
	return nil
}

// loadMask reads a grayscale PNG; white reveals and black hides.
func loadMask(path string, at image.Point) (*image.Alpha, error) {
	src, err := decodePNG(path)
	if err != nil {
		return nil, err
	}
	b := src.Bounds()
	alpha := image.NewAlpha(b.Sub(b.Min).Add(at))
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			g := color.GrayModel.Convert(src.At(x, y)).(color.Gray)
			alpha.SetAlpha(x-b.Min.X+at.X, y-b.Min.Y+at.Y, color.Alpha{A: g.Y})
		}
	}
	return alpha, nil
}

func decodePNG(path string) (image.Image, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open image: %w", err)
	}
	defer f.Close()

	img, err := png.Decode(f)
	if err != nil {
		return nil, fmt.Errorf("failed to decode %q: %w", path, err)
	}
	return img, nil
}

func resolve(dir, path string) string {
	if filepath.IsAbs(path) {
		return path
	}
	return filepath.Join(dir, path)
}

// ParseColor parses "#rrggbb" or "#rrggbbaa". The empty string is opaque black.
func ParseColor(s string) (color.NRGBA, error) {
	if s == "" {
		return color.NRGBA{A: 255}, nil
	}
	hex := strings.TrimPrefix(s, "#")
	if len(hex) != 6 && len(hex) != 8 {
		return color.NRGBA{}, fmt.Errorf("invalid color %q", s)
	}
	v, err := strconv.ParseUint(hex, 16, 32)
	if err != nil {
		return color.NRGBA{}, fmt.Errorf("invalid color %q: %w", s, err)
	}
	if len(hex) == 6 {
		v = v<<8 | 0xff
	}
	return color.NRGBA{R: uint8(v >> 24), G: uint8(v >> 16), B: uint8(v >> 8), A: uint8(v)}, nil
}
