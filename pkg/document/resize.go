package document

import (
	"fmt"
	"image"
	"math"

	xdraw "golang.org/x/image/draw"
)

// Resize scales the whole document to width x height with Catmull-Rom
// (bicubic) resampling. Pixels, masks, vector paths and text geometry follow.
func (d *Document) Resize(width, height int) error {
	if width <= 0 || height <= 0 {
		return fmt.Errorf("resize to %dx%d: size must be positive", width, height)
	}
	if d.Width <= 0 || d.Height <= 0 {
		return fmt.Errorf("resize: document has no size (%dx%d)", d.Width, d.Height)
	}
	if width == d.Width && height == d.Height {
		return nil
	}

	sx := float64(width) / float64(d.Width)
	sy := float64(height) / float64(d.Height)

	d.Walk(func(n *Node) bool {
		if n.Pixels != nil {
			n.Pixels = scaleRGBA(n.Pixels, sx, sy)
		}
		if n.Mask != nil && n.Mask.Alpha != nil {
			n.Mask.Alpha = scaleAlpha(n.Mask.Alpha, sx, sy)
		}
		if n.VectorMask != nil {
			for _, poly := range n.VectorMask.Polygons {
				for i := range poly {
					poly[i].X *= sx
					poly[i].Y *= sy
				}
			}
		}
		if n.Text != nil {
			n.Text.Origin.X *= sx
			n.Text.Origin.Y *= sy
			if n.Text.Size == 0 {
				n.Text.Size = defaultTextSize
			}
			n.Text.Size *= sy
		}
		return true
	})

	d.Width, d.Height = width, height
	return nil
}

func scaleRect(r image.Rectangle, sx, sy float64) image.Rectangle {
	return image.Rect(
		int(math.Round(float64(r.Min.X)*sx)),
		int(math.Round(float64(r.Min.Y)*sy)),
		int(math.Round(float64(r.Max.X)*sx)),
		int(math.Round(float64(r.Max.Y)*sy)),
	)
}

func scaleRGBA(src *image.RGBA, sx, sy float64) *image.RGBA {
	r := scaleRect(src.Rect, sx, sy)
	if r.Empty() {
		return nil
	}
	dst := image.NewRGBA(r)
	xdraw.CatmullRom.Scale(dst, r, src, src.Rect, xdraw.Src, nil)
	return dst
}

func scaleAlpha(src *image.Alpha, sx, sy float64) *image.Alpha {
	r := scaleRect(src.Rect, sx, sy)
	dst := image.NewAlpha(r)
	if r.Empty() {
		return dst
	}
	xdraw.CatmullRom.Scale(dst, r, src, src.Rect, xdraw.Src, nil)
	return dst
}
