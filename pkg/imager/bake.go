package imager

import (
	"fmt"

	"github.com/kataras/flinto-export/pkg/document"
)

// Flatten promotes n to a smart object and rasterizes it, leaving plain
// pixels behind. Groups become a single raster layer.
func Flatten(doc *document.Document, n *document.Node) error {
	if err := doc.PromoteToSmart(n); err != nil {
		return fmt.Errorf("flatten: %w", err)
	}
	if err := doc.Rasterize(n); err != nil {
		return fmt.Errorf("flatten: %w", err)
	}
	return nil
}

// Bake flattens n when it carries a live vector mask, raster mask or text and
// reports whether it did. A baked node has nothing left to bake, so calling it
// twice is harmless.
func Bake(doc *document.Document, n *document.Node) (bool, error) {
	if !NeedsBake(n) {
		return false, nil
	}
	if err := Flatten(doc, n); err != nil {
		return false, err
	}
	return true, nil
}

// NeedsBake reports whether n has a live mask or text content.
func NeedsBake(n *document.Node) bool {
	if _, ok := n.VectorPath(); ok {
		return true
	}
	if _, ok := n.RasterMask(); ok {
		return true
	}
	return n.Type == document.TypeText
}
