package extractor

import (
	"image"

	"github.com/google/uuid"

	"github.com/kataras/flinto-export/pkg/document"
)

// Record types.
const (
	TypeGroup = "group"
	TypeImage = "image"
)

// IDGenerator produces unique record identifiers.
type IDGenerator func() string

// NewID is the default IDGenerator: a random UUID.
func NewID() string {
	return uuid.NewString()
}

// Metadata is the root of metadata.json.
type Metadata struct {
	Width   int       `json:"width"`
	Height  int       `json:"height"`
	Scale   float64   `json:"scale"`
	Screens []*Screen `json:"screens"`
}

// Screen describes one exported document.
type Screen struct {
	X      int       `json:"x"`
	Y      int       `json:"y"`
	ID     string    `json:"id"`
	Name   string    `json:"name"`
	Layers []*Record `json:"layers"`
}

// Record describes one node of the scene graph. X and Y are the center of the
// node's box; Layers is set for groups only, bottom-most first.
type Record struct {
	X        int       `json:"x"`
	Y        int       `json:"y"`
	W        int       `json:"w"`
	H        int       `json:"h"`
	Rotation int       `json:"rotation"`
	Opacity  float64   `json:"opacity"`
	ID       string    `json:"id"`
	Name     string    `json:"name"`
	Locked   bool      `json:"locked"`
	Type     string    `json:"type"`
	Layers   []*Record `json:"layers,omitempty"`
}

// NewRecord builds the record of n occupying bounds in document coordinates.
func NewRecord(n *document.Node, bounds image.Rectangle, id, typ string) *Record {
	w, h := bounds.Dx(), bounds.Dy()
	return &Record{
		X:       bounds.Min.X + w/2,
		Y:       bounds.Min.Y + h/2,
		W:       w,
		H:       h,
		Opacity: float64(n.Opacity) / 100,
		ID:      id,
		Name:    n.Name,
		Type:    typ,
	}
}

// NewScreen builds the root entry of an exported document.
func NewScreen(id, name string, layers []*Record) *Screen {
	if layers == nil {
		layers = []*Record{}
	}
	return &Screen{ID: id, Name: name, Layers: layers}
}

// Count returns the number of records in the tree rooted at records, by type.
func Count(records []*Record) (groups, images int) {
	for _, r := range records {
		switch r.Type {
		case TypeGroup:
			groups++
			g, i := Count(r.Layers)
			groups += g
			images += i
		case TypeImage:
			images++
		}
	}
	return groups, images
}
