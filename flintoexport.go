package flintoexport

import (
	"errors"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"slices"
	"strconv"
	"strings"

	"github.com/kataras/flinto-export/pkg/document"
	"github.com/kataras/flinto-export/pkg/extractor"
	"github.com/kataras/flinto-export/pkg/formatter"
	"github.com/kataras/flinto-export/pkg/imager"
)

// Version is the release of the exporter.
const Version = "0.3.0"

// MetadataFile is the name of the scene graph file inside a bundle.
const MetadataFile = "metadata.json"

// Scales lists the supported output scales.
var Scales = []float64{0.5, 1, 1.5, 2, 3}

var (
	// ErrCanceled is returned when the operator declines to overwrite an
	// existing bundle.
	ErrCanceled = errors.New("export canceled")
	// ErrInvalidScale is returned for a scale outside Scales.
	ErrInvalidScale = errors.New("invalid scale")
)

// Options configures the export.
type Options struct {
	Document     *document.Document // source document, never modified
	OutputPath   string             // bundle folder; ".flinto" is appended when missing
	Scale        float64            // one of Scales, 0 = 1
	Width        int                // device width written to metadata, 0 = scaled document width
	Height       int                // device height written to metadata, 0 = scaled document height
	PixelDensity float64            // 0 = 1

	// Overwrite clears an existing bundle without asking.
	Overwrite bool
	// Confirm is asked before an existing bundle is cleared. A nil Confirm
	// declines.
	Confirm func(path string) bool

	ContinueOnError bool
	NewID           extractor.IDGenerator // nil = random UUIDs
	Logger          Logger                // nil = no logging
}

// Logger receives progress messages. A nil Logger means silent operation.
type Logger interface {
	Infof(format string, args ...any)
	Warnf(format string, args ...any)
	Errorf(format string, args ...any)
}

// Result contains the export output.
type Result struct {
	Metadata     *extractor.Metadata
	BundleDir    string // {exportFolder}
	ScreenDir    string // {exportFolder}/{documentId}
	MetadataPath string
	Assets       []imager.ExportedAsset
	Skipped      int    // visible layers left out of the output
	Markdown     string // formatted report
}

func (o *Options) logInfo(f string, a ...any) {
	if o.Logger != nil {
		o.Logger.Infof(f, a...)
	}
}

func (o *Options) logWarn(f string, a ...any) {
	if o.Logger != nil {
		o.Logger.Warnf(f, a...)
	}
}

func (o *Options) logError(f string, a ...any) {
	if o.Logger != nil {
		o.Logger.Errorf(f, a...)
	}
}

// Run executes the export pipeline and returns the result. The source
// document is duplicated and every edit happens on the copy.
func Run(opts Options) (*Result, error) {
	if opts.Document == nil {
		return nil, errors.New("no document to export")
	}
	src := opts.Document

	// Apply defaults.
	if opts.Scale == 0 {
		opts.Scale = 1
	}
	if !slices.Contains(Scales, opts.Scale) {
		return nil, fmt.Errorf("%w: %g (must be one of %s)", ErrInvalidScale, opts.Scale, FormatScales())
	}
	width, height := ScaledSize(src.Width, src.Height, opts.Scale)
	if opts.Width == 0 {
		opts.Width = width
	}
	if opts.Height == 0 {
		opts.Height = height
	}
	if opts.Width < 0 || opts.Height < 0 {
		return nil, fmt.Errorf("invalid device size %dx%d", opts.Width, opts.Height)
	}
	if opts.PixelDensity == 0 {
		opts.PixelDensity = 1
	}
	if opts.PixelDensity < 0 {
		return nil, fmt.Errorf("pixel density must be positive, got %g", opts.PixelDensity)
	}
	if opts.NewID == nil {
		opts.NewID = extractor.NewID
	}
	if opts.OutputPath == "" {
		opts.OutputPath = src.Name
		if opts.OutputPath == "" {
			opts.OutputPath = "Untitled"
		}
	}

	bundleDir := BundlePath(opts.OutputPath)
	opts.logInfo("Preparing bundle %s...", bundleDir)
	if err := prepareFolder(bundleDir, opts.Overwrite, opts.Confirm); err != nil {
		if errors.Is(err, ErrCanceled) {
			opts.logWarn("Canceled.")
		}
		return nil, err
	}

	screenID := opts.NewID()
	screenDir := filepath.Join(bundleDir, screenID)
	if err := os.MkdirAll(screenDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create screen directory %q: %w", screenDir, err)
	}

	opts.logInfo("Duplicating document %q (%dx%d)...", src.Name, src.Width, src.Height)
	work := src.Duplicate()
	if width != work.Width || height != work.Height {
		opts.logInfo("Resizing to %dx%d (%g%%)...", width, height, opts.Scale*100)
		if err := work.Resize(width, height); err != nil {
			return nil, fmt.Errorf("resize working copy: %w", err)
		}
	}

	opts.logInfo("Merging clipping masks and hiding adjustment layers...")
	if err := extractor.Preprocess(work); err != nil {
		return nil, fmt.Errorf("preprocess: %w", err)
	}

	result := &Result{BundleDir: bundleDir, ScreenDir: screenDir}
	walker := &extractor.Walker{
		Doc:             work,
		Dir:             screenDir,
		NewID:           opts.NewID,
		ContinueOnError: opts.ContinueOnError,
		OnSkip: func(n *document.Node, reason error) {
			result.Skipped++
			if errors.Is(reason, extractor.ErrEmptyLayer) {
				opts.logInfo("Skipping empty layer %q", n.Name)
				return
			}
			opts.logError("Skipping layer %q: %v", n.Name, reason)
		},
	}

	opts.logInfo("Exporting layers to %s...", screenDir)
	layers, err := walker.Walk(work.Layers)
	if err != nil {
		return nil, fmt.Errorf("export layers: %w", err)
	}
	result.Assets = walker.Assets
	opts.logInfo("Exported %d image(s)", len(walker.Assets))

	result.Metadata = &extractor.Metadata{
		Width:   opts.Width,
		Height:  opts.Height,
		Scale:   opts.PixelDensity,
		Screens: []*extractor.Screen{extractor.NewScreen(screenID, documentName(bundleDir), layers)},
	}

	data, err := formatter.ToJSON(result.Metadata)
	if err != nil {
		return nil, err
	}
	result.MetadataPath = filepath.Join(bundleDir, MetadataFile)
	opts.logInfo("Writing %s...", result.MetadataPath)
	if err := os.WriteFile(result.MetadataPath, data, 0644); err != nil {
		return nil, fmt.Errorf("failed to write metadata: %w", err)
	}

	result.Markdown = formatter.ToMarkdown(result.Metadata, result.Assets)
	return result, nil
}

// ScaledSize returns the document size at scale s, rounded to whole pixels.
func ScaledSize(width, height int, s float64) (int, int) {
	return int(math.Round(float64(width) * s)), int(math.Round(float64(height) * s))
}

// ParseScale parses a scale given as a factor ("1.5") or a percentage
// ("150%") and checks it against Scales.
func ParseScale(s string) (float64, error) {
	trimmed := strings.TrimSpace(s)
	percent := strings.HasSuffix(trimmed, "%")
	trimmed = strings.TrimSuffix(trimmed, "%")

	v, err := strconv.ParseFloat(trimmed, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid scale value %q: %w", s, err)
	}
	if percent {
		v /= 100
	}
	if !slices.Contains(Scales, v) {
		return 0, fmt.Errorf("%w: %q (must be one of %s)", ErrInvalidScale, s, FormatScales())
	}
	return v, nil
}

// FormatScales returns Scales as percentages, e.g. "50%, 100%, 150%".
func FormatScales() string {
	parts := make([]string, len(Scales))
	for i, s := range Scales {
		parts[i] = strconv.FormatFloat(s*100, 'f', -1, 64) + "%"
	}
	return strings.Join(parts, ", ")
}
