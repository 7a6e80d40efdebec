package formatter

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/kataras/flinto-export/pkg/extractor"
	"github.com/kataras/flinto-export/pkg/imager"
)

// ToMarkdown renders a human readable report of an export: the device
// settings, the layer tree in stacking order (top-most first, as an editor
// shows it) and the list of written assets.
func ToMarkdown(meta *extractor.Metadata, assets []imager.ExportedAsset) string {
	var sb strings.Builder

	for _, screen := range meta.Screens {
		sb.WriteString(fmt.Sprintf("# Flinto Export - %s\n\n", screen.Name))
		sb.WriteString("This document lists the layers exported from the source document.\n\n")

		sb.WriteString("## Device\n\n")
		sb.WriteString(fmt.Sprintf("- **Size**: %dx%d\n", meta.Width, meta.Height))
		sb.WriteString(fmt.Sprintf("- **Pixel Density**: %gx\n", meta.Scale))
		sb.WriteString(fmt.Sprintf("- **Screen ID**: `%s`\n", screen.ID))

		groups, images := extractor.Count(screen.Layers)
		sb.WriteString(fmt.Sprintf("- **Groups**: %d\n", groups))
		sb.WriteString(fmt.Sprintf("- **Images**: %d\n\n", images))

		sb.WriteString("## Layers\n\n")
		if len(screen.Layers) == 0 {
			sb.WriteString("_No visible layers._\n")
		}
		writeLayers(&sb, screen.Layers, 0)
		sb.WriteString("\n")
	}

	if len(assets) > 0 {
		sb.WriteString("## Exported Assets\n\n")
		sb.WriteString("| Layer | File | Size |\n")
		sb.WriteString("|-------|------|------|\n")
		for _, asset := range assets {
			name := asset.NodeName
			if name == "" {
				name = asset.ID
			}
			sb.WriteString(fmt.Sprintf("| %s | `%s` | %dx%d |\n",
				escapeCell(name), filepath.Base(asset.Path), asset.Width(), asset.Height()))
		}
		sb.WriteString("\n")
	}

	return sb.String()
}

// writeLayers lists records top-most first. Records are stored bottom-most
// first, so they are walked in reverse.
func writeLayers(sb *strings.Builder, records []*extractor.Record, depth int) {
	indent := strings.Repeat("  ", depth)
	for i := len(records) - 1; i >= 0; i-- {
		r := records[i]
		sb.WriteString(fmt.Sprintf("%s- **%s** (%s) %dx%d at (%d, %d), opacity %g\n",
			indent, r.Name, r.Type, r.W, r.H, r.X, r.Y, r.Opacity))
		if r.Type == extractor.TypeGroup {
			writeLayers(sb, r.Layers, depth+1)
		}
	}
}

func escapeCell(s string) string {
	return strings.ReplaceAll(s, "|", "\\|")
}
