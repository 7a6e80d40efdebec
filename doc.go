// Package flintoexport converts a layered design document (groups, raster
// layers, text layers, masks, clipping chains and adjustment layers) into a
// bundle for the Flinto prototyping tool: one trimmed PNG per visual layer and
// a metadata.json scene graph describing hierarchy, geometry and opacity.
//
// The CLI lives in cmd/flinto-export; this root package exposes the same
// pipeline as a Go API so that callers can embed the export in their own
// tools without shelling out.
//
// # Import
//
// The module path contains a hyphen but Go package names cannot, so the
// package is named flintoexport:
//
//	import "github.com/kataras/flinto-export" // package flintoexport
//
// # Quick start
//
//	doc, err := document.Load("home.yaml")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	result, err := flintoexport.Run(flintoexport.Options{
//	    Document:     doc,
//	    OutputPath:   "out/Home",
//	    Scale:        2,
//	    Width:        750,
//	    Height:       1334,
//	    PixelDensity: 2,
//	    Overwrite:    true,
//	})
//	if err != nil {
//	    log.Fatal(err)
//	}
//	fmt.Println(result.MetadataPath)
//
// # Bundle layout
//
//	{OutputPath}.flinto/metadata.json
//	{OutputPath}.flinto/{screenID}/{layerID}.png
//
// Layers of metadata.json list the bottom-most layer first. Every group
// record carries its children in "layers"; every image record has exactly one
// PNG named after its id.
//
// # Pipeline
//
// The source document is duplicated and resized to the requested scale.
// Adjustment layers outside clipping chains are hidden, every clipping chain
// is merged into its base, and the tree is walked bottom-up: groups recurse,
// masked groups and leaves are baked into plain pixels and exported. The
// source document is never modified.
//
// # Logging
//
// Pass a [Logger] implementation in [Options.Logger] to receive progress
// messages. A nil Logger silences all output. A *zap.SugaredLogger satisfies
// the interface as is.
//
// # Devices
//
// [Configure] reproduces the device presets of the Flinto export dialog: it picks
// a device from the document width and computes the output size and pixel
// density for a scale.
package flintoexport
