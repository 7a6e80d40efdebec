package imager

import (
	"errors"
	"fmt"
	"image"
	"image/draw"
	"image/png"
	"os"
	"path/filepath"

	"github.com/kataras/flinto-export/pkg/document"
)

var (
	// ErrEmpty is returned when a node has no visible pixels on the canvas.
	ErrEmpty = errors.New("layer has no visible pixels")
	// ErrUnbaked is returned when a node still carries live text or masks.
	ErrUnbaked = errors.New("layer has unbaked text or masks")
)

// ExportedAsset represents a single exported image asset.
type ExportedAsset struct {
	ID       string // asset id, also the file name without extension
	NodeID   string
	NodeName string
	Path     string
	Bounds   image.Rectangle // trimmed box in document coordinates
}

// Width returns the pixel width of the written image.
func (a ExportedAsset) Width() int { return a.Bounds.Dx() }

// Height returns the pixel height of the written image.
func (a ExportedAsset) Height() int { return a.Bounds.Dy() }

// Export writes the content of n to dir/id.png. The content is copied onto a
// scratch canvas the size of doc at its document position, trimmed to its
// non-transparent pixels and encoded as a 32-bit PNG. The node's opacity is
// applied to the pixels. Neither doc nor n is modified.
func Export(doc *document.Document, n *document.Node, dir, id string) (*ExportedAsset, error) {
	if n.Type != document.TypeRaster || n.Text != nil {
		return nil, fmt.Errorf("export %q: %w", n.Name, ErrUnbaked)
	}
	if _, ok := n.RasterMask(); ok {
		return nil, fmt.Errorf("export %q: %w", n.Name, ErrUnbaked)
	}
	if _, ok := n.VectorPath(); ok {
		return nil, fmt.Errorf("export %q: %w", n.Name, ErrUnbaked)
	}

	canvas := image.NewRGBA(doc.Rect())
	document.Draw(canvas, doc.Content(n), n.Opacity)

	trimmed := document.Trim(canvas)
	if trimmed.Rect.Empty() {
		return nil, fmt.Errorf("export %q: %w", n.Name, ErrEmpty)
	}

	destPath := filepath.Join(dir, id+".png")
	if err := writePNG(destPath, trimmed); err != nil {
		return nil, fmt.Errorf("export %q: %w", n.Name, err)
	}

	return &ExportedAsset{
		ID:       id,
		NodeID:   n.ID,
		NodeName: n.Name,
		Path:     destPath,
		Bounds:   trimmed.Rect,
	}, nil
}

// writePNG encodes img with its origin moved to (0,0). A partially written
// file is removed.
func writePNG(destPath string, img *image.RGBA) error {
	out := image.NewRGBA(img.Rect.Sub(img.Rect.Min))
	draw.Draw(out, out.Rect, img, img.Rect.Min, draw.Src)

	f, err := os.Create(destPath)
	if err != nil {
		return fmt.Errorf("failed to create file %q: %w", destPath, err)
	}

	enc := png.Encoder{CompressionLevel: png.BestCompression}
	if err := enc.Encode(f, out); err != nil {
		f.Close()
		os.Remove(destPath)
		return fmt.Errorf("failed to encode %q: %w", destPath, err)
	}
	if err := f.Close(); err != nil {
		os.Remove(destPath)
		return fmt.Errorf("failed to write file %q: %w", destPath, err)
	}
	return nil
}
