package extractor

import (
	"errors"
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"os"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"

	"github.com/kataras/flinto-export/pkg/document"
)

var (
	red  = color.RGBA{R: 255, A: 255}
	blue = color.RGBA{B: 255, A: 255}
)

func fill(name string, r image.Rectangle, c color.RGBA) *document.Node {
	img := image.NewRGBA(r)
	draw.Draw(img, r, image.NewUniform(c), image.Point{}, draw.Src)
	return &document.Node{ID: name, Name: name, Type: document.TypeRaster, Opacity: 100, Visible: true, Pixels: img}
}

func group(name string, children ...*document.Node) *document.Node {
	return &document.Node{ID: name, Name: name, Type: document.TypeGroup, Opacity: 100, Visible: true, Children: children}
}

func adjustment(name string, kind document.Kind) *document.Node {
	return &document.Node{ID: name, Name: name, Type: document.TypeRaster, Kind: kind, Opacity: 100, Visible: true}
}

func newDoc(layers ...*document.Node) *document.Document {
	return &document.Document{Name: "Test", Width: 100, Height: 100, Layers: layers}
}

// sequence returns an IDGenerator producing id-1, id-2, ...
func sequence() IDGenerator {
	i := 0
	return func() string {
		i++
		return fmt.Sprintf("id-%d", i)
	}
}

func names(nodes []*document.Node) []string {
	out := make([]string, len(nodes))
	for i, n := range nodes {
		out[i] = n.Name
	}
	return out
}

func TestPreprocessMergesClippingChain(t *testing.T) {
	curves := adjustment("Curves", document.KindCurves)
	curves.Clipped = true
	layer2 := fill("Layer2", image.Rect(0, 0, 50, 50), red)
	layer2.Clipped = true
	base := fill("BaseRaster", image.Rect(10, 10, 20, 20), blue)
	base.Opacity = 60
	base.Locks.All = true

	doc := newDoc(curves, layer2, base)
	if err := Preprocess(doc); err != nil {
		t.Fatalf("Preprocess() error = %v", err)
	}

	if diff := cmp.Diff([]string{"BaseRaster"}, names(doc.Layers)); diff != "" {
		t.Fatalf("layers mismatch (-want +got):\n%s", diff)
	}
	if doc.Layers[0] != base {
		t.Error("chain did not collapse into its base node")
	}
	if base.Opacity != 60 {
		t.Errorf("base opacity = %d, want 60", base.Opacity)
	}
	if got, want := doc.Bounds(base), image.Rect(10, 10, 20, 20); got != want {
		t.Errorf("merged bounds = %v, want %v", got, want)
	}
	if base.Locks.All {
		t.Error("base is still locked")
	}
}

func TestPreprocessHidesUnchainedAdjustments(t *testing.T) {
	invert := adjustment("Invert", document.KindInvert)
	nested := adjustment("Levels", document.KindLevels)
	bg := fill("Background", image.Rect(0, 0, 100, 100), red)
	doc := newDoc(invert, group("Group", nested, fill("Inner", image.Rect(0, 0, 5, 5), blue)), bg)

	if err := Preprocess(doc); err != nil {
		t.Fatalf("Preprocess() error = %v", err)
	}
	if invert.Visible || nested.Visible {
		t.Errorf("adjustments visible: Invert=%v Levels=%v", invert.Visible, nested.Visible)
	}
	if len(doc.Layers) != 3 {
		t.Errorf("Preprocess() removed layers: %v", names(doc.Layers))
	}
}

func TestPreprocessChains(t *testing.T) {
	tests := []struct {
		name   string
		layers func() []*document.Node
		want   []string
	}{
		{
			name: "invisible member is not part of the chain",
			layers: func() []*document.Node {
				a := fill("A", image.Rect(0, 0, 10, 10), red)
				a.Clipped, a.Visible = true, false
				b := fill("B", image.Rect(0, 0, 10, 10), red)
				b.Clipped = true
				return []*document.Node{a, b, fill("Base", image.Rect(0, 0, 5, 5), blue)}
			},
			want: []string{"A", "Base"},
		},
		{
			name: "chain without a base is left alone",
			layers: func() []*document.Node {
				c := fill("Clipped", image.Rect(0, 0, 10, 10), red)
				c.Clipped = true
				return []*document.Node{fill("Top", image.Rect(0, 0, 5, 5), blue), c}
			},
			want: []string{"Top", "Clipped"},
		},
		{
			name: "two chains in one container",
			layers: func() []*document.Node {
				a := fill("A", image.Rect(0, 0, 10, 10), red)
				a.Clipped = true
				b := fill("B", image.Rect(0, 0, 10, 10), red)
				b.Clipped = true
				return []*document.Node{
					a, fill("Base1", image.Rect(0, 0, 5, 5), blue),
					b, fill("Base2", image.Rect(0, 0, 5, 5), blue),
				}
			},
			want: []string{"Base1", "Base2"},
		},
		{
			name: "clipped group is flattened into the base",
			layers: func() []*document.Node {
				g := group("G", fill("Inner", image.Rect(0, 0, 10, 10), red))
				g.Clipped = true
				return []*document.Node{g, fill("Base", image.Rect(0, 0, 5, 5), blue)}
			},
			want: []string{"Base"},
		},
		{
			name: "group base is flattened",
			layers: func() []*document.Node {
				c := fill("Clip", image.Rect(0, 0, 10, 10), red)
				c.Clipped = true
				return []*document.Node{c, group("GroupBase", fill("Inner", image.Rect(0, 0, 5, 5), blue))}
			},
			want: []string{"GroupBase"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			doc := newDoc(tt.layers()...)
			if err := Preprocess(doc); err != nil {
				t.Fatalf("Preprocess() error = %v", err)
			}
			if diff := cmp.Diff(tt.want, names(doc.Layers)); diff != "" {
				t.Errorf("layers mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestPreprocessTextBase(t *testing.T) {
	clip := fill("Clip", image.Rect(0, 0, 100, 100), red)
	clip.Clipped = true
	text := &document.Node{Name: "Title", Type: document.TypeText, Opacity: 100, Visible: true,
		Locks: document.Locks{Pixels: true, All: true},
		Text:  &document.Text{Content: "Hi", Color: color.NRGBA{A: 255}, Origin: document.Point{X: 10, Y: 20}, Size: 13}}
	doc := newDoc(clip, text)

	if err := Preprocess(doc); err != nil {
		t.Fatalf("Preprocess() error = %v", err)
	}
	if len(doc.Layers) != 1 || text.Type != document.TypeRaster {
		t.Fatalf("text base not merged: %v, type %v", names(doc.Layers), text.Type)
	}
	if b := doc.Bounds(text); b.Empty() || !b.In(image.Rect(10, 9, 24, 22)) {
		t.Errorf("merged bounds = %v, want inside the text box", b)
	}
}

func TestPreprocessNested(t *testing.T) {
	clip := fill("Clip", image.Rect(0, 0, 10, 10), red)
	clip.Clipped = true
	inner := group("Inner", clip, fill("Base", image.Rect(0, 0, 5, 5), blue))
	doc := newDoc(group("Outer", inner))

	if err := Preprocess(doc); err != nil {
		t.Fatalf("Preprocess() error = %v", err)
	}
	if diff := cmp.Diff([]string{"Base"}, names(inner.Children)); diff != "" {
		t.Errorf("nested chain not merged (-want +got):\n%s", diff)
	}
}

func TestWalkOrder(t *testing.T) {
	doc := newDoc(
		fill("A", image.Rect(0, 0, 10, 10), red),
		fill("B", image.Rect(10, 10, 20, 20), red),
		fill("C", image.Rect(20, 20, 30, 30), red),
	)
	w := &Walker{Doc: doc, Dir: t.TempDir(), NewID: sequence()}

	records, err := w.Walk(doc.Layers)
	if err != nil {
		t.Fatalf("Walk() error = %v", err)
	}

	want := []*Record{
		{X: 25, Y: 25, W: 10, H: 10, Opacity: 1, ID: "id-1", Name: "C", Type: TypeImage},
		{X: 15, Y: 15, W: 10, H: 10, Opacity: 1, ID: "id-2", Name: "B", Type: TypeImage},
		{X: 5, Y: 5, W: 10, H: 10, Opacity: 1, ID: "id-3", Name: "A", Type: TypeImage},
	}
	if diff := cmp.Diff(want, records); diff != "" {
		t.Errorf("records mismatch (-want +got):\n%s", diff)
	}
	if len(w.Assets) != 3 {
		t.Fatalf("assets = %d, want 3", len(w.Assets))
	}
	for _, a := range w.Assets {
		if _, err := os.Stat(filepath.Join(w.Dir, a.ID+".png")); err != nil {
			t.Errorf("asset %s not written: %v", a.ID, err)
		}
	}
}

func TestWalkGroups(t *testing.T) {
	hidden := fill("Hidden", image.Rect(0, 0, 100, 100), red)
	hidden.Visible = false

	masked := group("Masked", fill("Photo", image.Rect(0, 0, 40, 40), red))
	masked.VectorMask = &document.Path{Polygons: [][]document.Point{{{X: 0, Y: 0}, {X: 20, Y: 0}, {X: 20, Y: 20}, {X: 0, Y: 20}}}}

	card := group("Card",
		fill("Icon", image.Rect(30, 30, 40, 40), blue),
		fill("Panel", image.Rect(20, 20, 60, 50), red),
	)
	card.Opacity = 50

	doc := newDoc(card, hidden, masked)
	w := &Walker{Doc: doc, Dir: t.TempDir(), NewID: sequence()}

	records, err := w.Walk(doc.Layers)
	if err != nil {
		t.Fatalf("Walk() error = %v", err)
	}

	want := []*Record{
		{X: 10, Y: 10, W: 20, H: 20, Opacity: 1, ID: "id-1", Name: "Masked", Type: TypeImage},
		{X: 40, Y: 35, W: 40, H: 30, Opacity: 0.5, ID: "id-2", Name: "Card", Type: TypeGroup, Layers: []*Record{
			{X: 40, Y: 35, W: 40, H: 30, Opacity: 1, ID: "id-3", Name: "Panel", Type: TypeImage},
			{X: 35, Y: 35, W: 10, H: 10, Opacity: 1, ID: "id-4", Name: "Icon", Type: TypeImage},
		}},
	}
	if diff := cmp.Diff(want, records); diff != "" {
		t.Errorf("records mismatch (-want +got):\n%s", diff)
	}

	groups, images := Count(records)
	if groups != 1 || images != 3 || images != len(w.Assets) {
		t.Errorf("Count() = %d groups, %d images; %d assets", groups, images, len(w.Assets))
	}
}

func TestWalkSkipsEmpty(t *testing.T) {
	empty := &document.Node{Name: "Empty", Type: document.TypeRaster, Opacity: 100, Visible: true}
	emptyGroup := group("EmptyGroup", &document.Node{Name: "Nothing", Type: document.TypeRaster, Opacity: 100, Visible: true})
	doc := newDoc(empty, emptyGroup, fill("Shown", image.Rect(0, 0, 10, 10), red))

	var skipped []string
	w := &Walker{
		Doc:   doc,
		Dir:   t.TempDir(),
		NewID: sequence(),
		OnSkip: func(n *document.Node, reason error) {
			if !errors.Is(reason, ErrEmptyLayer) {
				t.Errorf("OnSkip(%q) reason = %v, want ErrEmptyLayer", n.Name, reason)
			}
			skipped = append(skipped, n.Name)
		},
	}

	records, err := w.Walk(doc.Layers)
	if err != nil {
		t.Fatalf("Walk() error = %v", err)
	}
	if len(records) != 1 || records[0].Name != "Shown" {
		t.Errorf("Walk() records = %d, want only Shown", len(records))
	}
	if diff := cmp.Diff([]string{"EmptyGroup", "Empty"}, skipped); diff != "" {
		t.Errorf("skipped mismatch (-want +got):\n%s", diff)
	}
}

func TestWalkContinueOnError(t *testing.T) {
	doc := newDoc(
		fill("A", image.Rect(0, 0, 10, 10), red),
		fill("B", image.Rect(0, 0, 10, 10), red),
	)
	dir := filepath.Join(t.TempDir(), "missing")

	w := &Walker{Doc: doc, Dir: dir, NewID: sequence()}
	if _, err := w.Walk(doc.Layers); err == nil {
		t.Fatal("Walk() expected error writing into a missing folder")
	}

	skipped := 0
	w = &Walker{Doc: doc, Dir: dir, NewID: sequence(), ContinueOnError: true,
		OnSkip: func(*document.Node, error) { skipped++ }}
	records, err := w.Walk(doc.Layers)
	if err != nil {
		t.Fatalf("Walk() error = %v", err)
	}
	if len(records) != 0 || skipped != 2 {
		t.Errorf("Walk() = %d records, %d skipped, want 0 and 2", len(records), skipped)
	}
}

func TestWalkUniqueIDs(t *testing.T) {
	doc := newDoc(
		group("G", fill("A", image.Rect(0, 0, 10, 10), red), fill("B", image.Rect(5, 5, 10, 10), red)),
		fill("C", image.Rect(0, 0, 10, 10), red),
	)
	w := &Walker{Doc: doc, Dir: t.TempDir()}

	records, err := w.Walk(doc.Layers)
	if err != nil {
		t.Fatal(err)
	}

	seen := map[string]bool{}
	var visit func([]*Record)
	visit = func(rs []*Record) {
		for _, r := range rs {
			if seen[r.ID] {
				t.Errorf("duplicate id %q", r.ID)
			}
			seen[r.ID] = true
			visit(r.Layers)
		}
	}
	visit(records)
	if len(seen) != 4 {
		t.Errorf("ids = %d, want 4", len(seen))
	}
}

func TestNewRecord(t *testing.T) {
	n := &document.Node{Name: "n", Opacity: 50}
	got := NewRecord(n, image.Rect(10, 10, 21, 30), "x", TypeImage)
	want := &Record{X: 15, Y: 20, W: 11, H: 20, Opacity: 0.5, ID: "x", Name: "n", Type: TypeImage}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("NewRecord() mismatch (-want +got):\n%s", diff)
	}

	screen := NewScreen("s", "Home", nil)
	if screen.Layers == nil || screen.X != 0 || screen.Y != 0 {
		t.Errorf("NewScreen() = %+v", screen)
	}
	if diff := cmp.Diff(&Screen{ID: "s", Name: "Home", Layers: []*Record{}}, screen, cmpopts.EquateEmpty()); diff != "" {
		t.Errorf("NewScreen() mismatch (-want +got):\n%s", diff)
	}
}

func TestWalkGroupClippedToCanvas(t *testing.T) {
	doc := newDoc(group("Wide", fill("Off", image.Rect(-10, 0, 15, 10), red)))
	w := &Walker{Doc: doc, Dir: t.TempDir(), NewID: sequence()}

	records, err := w.Walk(doc.Layers)
	if err != nil {
		t.Fatalf("Walk() error = %v", err)
	}

	want := []*Record{
		{X: 7, Y: 5, W: 15, H: 10, Opacity: 1, ID: "id-1", Name: "Wide", Type: TypeGroup, Layers: []*Record{
			{X: 7, Y: 5, W: 15, H: 10, Opacity: 1, ID: "id-2", Name: "Off", Type: TypeImage},
		}},
	}
	if diff := cmp.Diff(want, records); diff != "" {
		t.Errorf("records mismatch (-want +got):\n%s", diff)
	}
}

func TestWalkSkipsOffCanvasGroup(t *testing.T) {
	doc := newDoc(group("Away", fill("Far", image.Rect(200, 200, 220, 220), red)))

	var skipped []string
	w := &Walker{Doc: doc, Dir: t.TempDir(), NewID: sequence(),
		OnSkip: func(n *document.Node, _ error) { skipped = append(skipped, n.Name) }}

	records, err := w.Walk(doc.Layers)
	if err != nil {
		t.Fatalf("Walk() error = %v", err)
	}
	if len(records) != 0 {
		t.Errorf("Walk() = %d records, want 0", len(records))
	}
	if diff := cmp.Diff([]string{"Away"}, skipped); diff != "" {
		t.Errorf("skipped mismatch (-want +got):\n%s", diff)
	}
}
