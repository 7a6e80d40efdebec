package extractor

import (
	"errors"
	"fmt"

	"github.com/kataras/flinto-export/pkg/document"
	"github.com/kataras/flinto-export/pkg/imager"
)

// ErrEmptyLayer is reported through Walker.OnSkip for visible nodes without
// any pixel on the canvas.
var ErrEmptyLayer = errors.New("layer is empty")

// Walker turns a preprocessed document tree into records, exporting one image
// per leaf into Dir.
type Walker struct {
	Doc   *document.Document
	Dir   string
	NewID IDGenerator // nil = NewID

	// ContinueOnError excludes a leaf that fails to bake or export instead of
	// aborting the walk. The failure goes to OnSkip.
	ContinueOnError bool
	// OnSkip is called for every visible node left out of the output.
	OnSkip func(n *document.Node, reason error)

	// Assets collects every image written so far, in export order.
	Assets []imager.ExportedAsset
}

// Walk visits nodes from the last to the first, so the returned records run
// from the bottom-most layer up. Invisible nodes are skipped.
func (w *Walker) Walk(nodes []*document.Node) ([]*Record, error) {
	records := []*Record{}
	for i := len(nodes) - 1; i >= 0; i-- {
		n := nodes[i]
		if !n.Visible {
			continue
		}

		var (
			rec *Record
			err error
		)
		switch n.Type {
		case document.TypeGroup:
			rec, err = w.group(n)
		default:
			unlock(n)
			rec, err = w.leaf(n)
		}
		if err != nil {
			return nil, err
		}
		if rec != nil {
			records = append(records, rec)
		}
	}
	return records, nil
}

// group exports a masked group as one image; any other group is recorded and
// recursed into.
func (w *Walker) group(n *document.Node) (*Record, error) {
	unlock(n)

	if imager.NeedsBake(n) {
		return w.leaf(n)
	}

	// Children are exported trimmed to the canvas, so the group box is too.
	bounds := w.Doc.Bounds(n).Intersect(w.Doc.Rect())
	if bounds.Empty() {
		w.skip(n, ErrEmptyLayer)
		return nil, nil
	}

	rec := NewRecord(n, bounds, w.newID(), TypeGroup)
	children, err := w.Walk(n.Children)
	if err != nil {
		return nil, fmt.Errorf("group %q: %w", n.Name, err)
	}
	if len(children) == 0 {
		w.skip(n, ErrEmptyLayer)
		return nil, nil
	}
	rec.Layers = children
	return rec, nil
}

// leaf bakes masks and text into pixels and exports the result.
func (w *Walker) leaf(n *document.Node) (*Record, error) {
	if _, err := imager.Bake(w.Doc, n); err != nil {
		return w.fail(n, err)
	}

	id := w.newID()
	asset, err := imager.Export(w.Doc, n, w.Dir, id)
	if errors.Is(err, imager.ErrEmpty) {
		w.skip(n, ErrEmptyLayer)
		return nil, nil
	}
	if err != nil {
		return w.fail(n, err)
	}
	w.Assets = append(w.Assets, *asset)

	return NewRecord(n, asset.Bounds, id, TypeImage), nil
}

func (w *Walker) fail(n *document.Node, err error) (*Record, error) {
	if w.ContinueOnError {
		w.skip(n, err)
		return nil, nil
	}
	return nil, fmt.Errorf("layer %q: %w", n.Name, err)
}

func (w *Walker) skip(n *document.Node, reason error) {
	if w.OnSkip != nil {
		w.OnSkip(n, reason)
	}
}

func (w *Walker) newID() string {
	if w.NewID == nil {
		return NewID()
	}
	return w.NewID()
}
