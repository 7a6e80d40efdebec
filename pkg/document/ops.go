package document

import (
	"errors"
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"math"
	"strings"

	xdraw "golang.org/x/image/draw"
	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"
	"golang.org/x/image/vector"
)

var (
	// ErrLocked is returned when a lock flag forbids the requested edit.
	ErrLocked = errors.New("layer is locked")
	// ErrNotMergeable is returned when the target of a merge is not a plain raster layer.
	ErrNotMergeable = errors.New("layer cannot be merged")
	// ErrNotRasterizable is returned when a group or adjustment layer is
	// rasterized without being promoted to a smart object first.
	ErrNotRasterizable = errors.New("layer cannot be rasterized")
	// ErrNotFound is returned when a node is not part of the document.
	ErrNotFound = errors.New("layer not found in document")
)

// Duplicate returns a deep copy of the document. Node IDs are preserved.
func (d *Document) Duplicate() *Document {
	dup := *d
	dup.Layers = duplicateNodes(d.Layers)
	return &dup
}

func duplicateNodes(nodes []*Node) []*Node {
	if nodes == nil {
		return nil
	}
	out := make([]*Node, len(nodes))
	for i, n := range nodes {
		out[i] = n.duplicate()
	}
	return out
}

func (n *Node) duplicate() *Node {
	dup := *n
	dup.Children = duplicateNodes(n.Children)
	if n.Pixels != nil {
		dup.Pixels = cloneRGBA(n.Pixels)
	}
	if n.Mask != nil {
		m := *n.Mask
		if m.Alpha != nil {
			a := *m.Alpha
			a.Pix = append([]uint8(nil), m.Alpha.Pix...)
			m.Alpha = &a
		}
		dup.Mask = &m
	}
	if n.VectorMask != nil {
		p := Path{Polygons: make([][]Point, len(n.VectorMask.Polygons))}
		for i, poly := range n.VectorMask.Polygons {
			p.Polygons[i] = append([]Point(nil), poly...)
		}
		dup.VectorMask = &p
	}
	if n.Text != nil {
		t := *n.Text
		dup.Text = &t
	}
	return &dup
}

func cloneRGBA(img *image.RGBA) *image.RGBA {
	c := *img
	c.Pix = append([]uint8(nil), img.Pix...)
	return &c
}

// Find returns the container holding n and n's index in it.
func (d *Document) Find(n *Node) (siblings []*Node, index int, parent *Node, err error) {
	if i := indexOf(d.Layers, n); i >= 0 {
		return d.Layers, i, nil, nil
	}
	var found *Node
	d.Walk(func(c *Node) bool {
		if found != nil {
			return false
		}
		if c.Type == TypeGroup && indexOf(c.Children, n) >= 0 {
			found = c
			return false
		}
		return true
	})
	if found == nil {
		return nil, -1, nil, fmt.Errorf("%q: %w", n.Name, ErrNotFound)
	}
	return found.Children, indexOf(found.Children, n), found, nil
}

func indexOf(nodes []*Node, n *Node) int {
	for i, c := range nodes {
		if c == n {
			return i
		}
	}
	return -1
}

func (d *Document) remove(n *Node) error {
	siblings, i, parent, err := d.Find(n)
	if err != nil {
		return err
	}
	siblings = append(siblings[:i:i], siblings[i+1:]...)
	if parent == nil {
		d.Layers = siblings
	} else {
		parent.Children = siblings
	}
	return nil
}

// PromoteToSmart converts n into a smart object so it can be rasterized
// whatever its kind.
func (d *Document) PromoteToSmart(n *Node) error {
	if n.Locks.All {
		return fmt.Errorf("promote %q: %w", n.Name, ErrLocked)
	}
	n.smart = true
	return nil
}

// Rasterize bakes masks, text and group content of n into plain pixels. Groups,
// adjustment layers and smart objects must be promoted first.
func (d *Document) Rasterize(n *Node) error {
	if n.Locks.All {
		return fmt.Errorf("rasterize %q: %w", n.Name, ErrLocked)
	}
	if (n.Type == TypeGroup || n.Kind.IsAdjustment()) && !n.Smart() {
		return fmt.Errorf("rasterize %q: %w", n.Name, ErrNotRasterizable)
	}

	pixels := d.Content(n)
	if OpaqueBounds(pixels).Empty() {
		pixels = nil
	}

	n.Pixels = pixels
	n.Type = TypeRaster
	n.Kind = KindNormal
	n.Children = nil
	n.Mask = nil
	n.VectorMask = nil
	n.Text = nil
	n.Adjustment = Adjustment{}
	n.smart = false
	return nil
}

// Merge composites upper into lower and removes upper from the document.
// Both must share a container with upper stacked above lower. A clipped upper
// only paints where lower has pixels. The result keeps lower's identity.
func (d *Document) Merge(upper, lower *Node) error {
	if lower.Locks.All || lower.Locks.Pixels {
		return fmt.Errorf("merge %q into %q: %w", upper.Name, lower.Name, ErrLocked)
	}
	if lower.Type != TypeRaster || lower.Kind != KindNormal || lower.Smart() {
		return fmt.Errorf("merge %q into %q: %w", upper.Name, lower.Name, ErrNotMergeable)
	}
	if _, ok := lower.RasterMask(); ok {
		return fmt.Errorf("merge %q into %q: live mask: %w", upper.Name, lower.Name, ErrNotMergeable)
	}
	if _, ok := lower.VectorPath(); ok {
		return fmt.Errorf("merge %q into %q: live vector mask: %w", upper.Name, lower.Name, ErrNotMergeable)
	}
	if upper.Type == TypeGroup {
		return fmt.Errorf("merge group %q: %w", upper.Name, ErrNotMergeable)
	}

	us, ui, _, err := d.Find(upper)
	if err != nil {
		return fmt.Errorf("merge: %w", err)
	}
	if li := indexOf(us, lower); li < 0 || li < ui {
		return fmt.Errorf("merge %q: %q is not below it: %w", upper.Name, lower.Name, ErrNotMergeable)
	}

	base := lower.Pixels
	if base == nil {
		base = image.NewRGBA(image.Rectangle{})
	}
	base = d.blend(base, upper, upper.Clipped)
	if OpaqueBounds(base).Empty() {
		base = nil
	}
	lower.Pixels = base

	return d.remove(upper)
}

// Bounds returns the bounding box of the visible content of n in document
// coordinates. Text is measured as rendered and masks are applied.
func (d *Document) Bounds(n *Node) image.Rectangle {
	return OpaqueBounds(d.Content(n))
}

// Content returns the effective pixels of n, positioned in document
// coordinates: group children composited bottom to top, text rendered, masks
// applied. The node's own opacity is not applied. The result is a fresh image.
func (d *Document) Content(n *Node) *image.RGBA {
	var img *image.RGBA

	switch n.Type {
	case TypeGroup:
		img = d.composite(n.Children)
	case TypeText:
		if n.Text != nil {
			img = renderText(n.Text)
		}
	case TypeRaster:
		if n.Pixels != nil && !n.Kind.IsAdjustment() {
			img = cloneRGBA(n.Pixels)
		}
	}
	if img == nil {
		return image.NewRGBA(image.Rectangle{})
	}

	if path, ok := n.VectorPath(); ok {
		applyMask(img, rasterizePath(path, img.Rect))
	}
	if mask, ok := n.RasterMask(); ok {
		applyMask(img, mask.Alpha)
	}
	return img
}

// composite flattens visible siblings bottom to top. Clipped layers are merged
// into the base below them before the base is painted with its opacity.
func (d *Document) composite(nodes []*Node) *image.RGBA {
	canvas := image.NewRGBA(image.Rectangle{})

	var (
		base    *Node
		baseImg *image.RGBA
	)
	flush := func() {
		if base != nil {
			canvas = paint(canvas, baseImg, base.Opacity, nil)
		}
		base, baseImg = nil, nil
	}

	for i := len(nodes) - 1; i >= 0; i-- {
		n := nodes[i]
		if !n.Visible {
			continue
		}
		if n.Clipped && base != nil {
			baseImg = d.blend(baseImg, n, true)
			continue
		}
		flush()
		if n.Kind.IsAdjustment() {
			adjust(canvas, n.Kind, n.Adjustment, n.Opacity)
			continue
		}
		base, baseImg = n, d.Content(n)
	}
	flush()
	return canvas
}

// blend paints upper onto dst and returns the possibly grown destination.
func (d *Document) blend(dst *image.RGBA, upper *Node, clipped bool) *image.RGBA {
	if upper.Kind.IsAdjustment() {
		adjust(dst, upper.Kind, upper.Adjustment, upper.Opacity)
		return dst
	}
	src := d.Content(upper)
	if clipped {
		return paint(dst, src, upper.Opacity, dst)
	}
	return paint(dst, src, upper.Opacity, nil)
}

// paint draws src over dst at the given opacity. When clip is set, src only
// shows where clip has alpha. dst grows to hold src when not clipped.
func paint(dst, src *image.RGBA, opacity int, clip *image.RGBA) *image.RGBA {
	r := src.Rect
	if clip != nil {
		r = r.Intersect(clip.Rect)
	} else if !r.In(dst.Rect) {
		grown := image.NewRGBA(dst.Rect.Union(r))
		draw.Draw(grown, dst.Rect, dst, dst.Rect.Min, draw.Src)
		dst = grown
	}
	if r.Empty() {
		return dst
	}

	op := uint32(clampOpacity(opacity)) * 255 / 100
	mask := image.NewAlpha(r)
	for y := r.Min.Y; y < r.Max.Y; y++ {
		for x := r.Min.X; x < r.Max.X; x++ {
			a := op
			if clip != nil {
				a = a * uint32(clip.RGBAAt(x, y).A) / 255
			}
			mask.SetAlpha(x, y, color.Alpha{A: uint8(a)})
		}
	}
	draw.DrawMask(dst, r, src, r.Min, mask, r.Min, draw.Over)
	return dst
}

// Draw paints src over dst at the given opacity, clipped to dst's bounds.
func Draw(dst, src *image.RGBA, opacity int) {
	r := src.Rect.Intersect(dst.Rect)
	if r.Empty() {
		return
	}
	a := color.Alpha{A: uint8(clampOpacity(opacity) * 255 / 100)}
	draw.DrawMask(dst, r, src, r.Min, image.NewUniform(a), image.Point{}, draw.Over)
}

func clampOpacity(o int) int {
	return min(max(o, 0), 100)
}

// OpaqueBounds returns the smallest rectangle holding every pixel of img with
// non-zero alpha. It is empty for a fully transparent image.
func OpaqueBounds(img *image.RGBA) image.Rectangle {
	b := img.Rect
	minX, minY, maxX, maxY := b.Max.X, b.Max.Y, b.Min.X, b.Min.Y
	for y := b.Min.Y; y < b.Max.Y; y++ {
		row := img.Pix[img.PixOffset(b.Min.X, y):]
		for x := b.Min.X; x < b.Max.X; x++ {
			if row[(x-b.Min.X)*4+3] == 0 {
				continue
			}
			minX, maxX = min(minX, x), max(maxX, x+1)
			minY, maxY = min(minY, y), max(maxY, y+1)
		}
	}
	if minX >= maxX || minY >= maxY {
		return image.Rectangle{}
	}
	return image.Rect(minX, minY, maxX, maxY)
}

// Trim crops img to its opaque bounds. The returned image shares pixels with
// img and is empty when img is fully transparent.
func Trim(img *image.RGBA) *image.RGBA {
	return img.SubImage(OpaqueBounds(img)).(*image.RGBA)
}

// applyMask multiplies every pixel of img by the mask alpha at the same
// document position. Pixels outside the mask rectangle are kept.
func applyMask(img *image.RGBA, mask *image.Alpha) {
	b := img.Rect
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			if !(image.Point{X: x, Y: y}).In(mask.Rect) {
				continue
			}
			m := uint32(mask.AlphaAt(x, y).A)
			if m == 255 {
				continue
			}
			i := img.PixOffset(x, y)
			for c := 0; c < 4; c++ {
				img.Pix[i+c] = uint8(uint32(img.Pix[i+c]) * m / 255)
			}
		}
	}
}

// rasterizePath renders the polygons of p into an alpha mask covering r.
// Everything outside the polygons is hidden.
func rasterizePath(p *Path, r image.Rectangle) *image.Alpha {
	mask := image.NewAlpha(r)
	if r.Empty() {
		return mask
	}
	z := vector.NewRasterizer(r.Dx(), r.Dy())
	z.DrawOp = draw.Src
	for _, poly := range p.Polygons {
		if len(poly) < 3 {
			continue
		}
		ox, oy := float64(r.Min.X), float64(r.Min.Y)
		z.MoveTo(float32(poly[0].X-ox), float32(poly[0].Y-oy))
		for _, pt := range poly[1:] {
			z.LineTo(float32(pt.X-ox), float32(pt.Y-oy))
		}
		z.ClosePath()
	}
	z.Draw(mask, r, image.Opaque, image.Point{})
	return mask
}

// renderText draws t with the built-in bitmap face and scales the result to
// t.Size. The baseline of the first line sits at t.Origin.
func renderText(t *Text) *image.RGBA {
	face := basicfont.Face7x13
	metrics := face.Metrics()
	ascent := metrics.Ascent.Ceil()
	lineHeight := metrics.Height.Ceil()

	lines := strings.Split(t.Content, "\n")
	width := 0
	for _, line := range lines {
		width = max(width, font.MeasureString(face, line).Ceil())
	}
	if width == 0 {
		return nil
	}

	native := image.NewRGBA(image.Rect(0, 0, width, lineHeight*len(lines)))
	drawer := font.Drawer{Dst: native, Src: image.NewUniform(t.Color), Face: face}
	for i, line := range lines {
		drawer.Dot = fixed.P(0, ascent+i*lineHeight)
		drawer.DrawString(line)
	}

	scale := 1.0
	if t.Size > 0 {
		scale = t.Size / float64(lineHeight)
	}
	x0 := t.Origin.X
	y0 := t.Origin.Y - float64(ascent)*scale
	r := image.Rect(
		int(math.Round(x0)),
		int(math.Round(y0)),
		int(math.Round(x0+float64(native.Rect.Dx())*scale)),
		int(math.Round(y0+float64(native.Rect.Dy())*scale)),
	)
	if r.Empty() {
		return nil
	}

	out := image.NewRGBA(r)
	if r.Dx() == native.Rect.Dx() && r.Dy() == native.Rect.Dy() {
		draw.Draw(out, r, native, image.Point{}, draw.Src)
		return out
	}
	xdraw.CatmullRom.Scale(out, r, native, native.Rect, xdraw.Src, nil)
	return out
}
