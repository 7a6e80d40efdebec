package main

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	flintoexport "github.com/kataras/flinto-export"
	"github.com/kataras/flinto-export/pkg/document"
	"github.com/kataras/flinto-export/pkg/extractor"

	"github.com/fatih/color"
	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

const version = flintoexport.Version

type cliFlags struct {
	input           string
	output          string
	scale           string
	device          string
	width           int
	height          int
	density         float64
	force           bool
	continueOnError bool
	report          string
	logJSON         bool
	verbose         bool
}

func main() {
	os.Exit(exitCode(newRootCmd(os.Stdin, os.Stdout).Execute(), os.Stdout))
}

// exitCode prints err and returns the process status. A declined overwrite
// has already been reported by the pipeline and is not a failure.
func exitCode(err error, out io.Writer) int {
	if err == nil || errors.Is(err, flintoexport.ErrCanceled) {
		return 0
	}
	color.New(color.FgRed).Fprintf(out, "Error: %v\n", err)
	return 1
}

func newRootCmd(in io.Reader, out io.Writer) *cobra.Command {
	var f cliFlags

	rootCmd := &cobra.Command{
		Use:           "flinto-export",
		Short:         "Export a layered design document as a Flinto bundle",
		Long:          "A tool to convert a layered design document into trimmed PNG assets and a Flinto metadata.json scene graph",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd, &f, in, out)
		},
	}
	rootCmd.SetOut(out)

	rootCmd.Flags().StringVarP(&f.input, "input", "i", "", "Document manifest (YAML) to export (required)")
	rootCmd.Flags().StringVarP(&f.output, "output", "o", "", "Bundle path; .flinto is appended when missing (default: next to the input)")
	rootCmd.Flags().StringVarP(&f.scale, "scale", "s", "", "Output scale: "+flintoexport.FormatScales()+" (default: suggested by the device)")
	rootCmd.Flags().StringVarP(&f.device, "device", "d", "", "Device preset (default: detected from the document width, see 'devices')")
	rootCmd.Flags().IntVar(&f.width, "width", 0, "Override the device width written to metadata")
	rootCmd.Flags().IntVar(&f.height, "height", 0, "Override the device height written to metadata")
	rootCmd.Flags().Float64Var(&f.density, "density", 0, "Override the pixel density written to metadata")
	rootCmd.Flags().BoolVarP(&f.force, "force", "f", false, "Overwrite an existing bundle without asking")
	rootCmd.Flags().BoolVar(&f.continueOnError, "continue-on-error", false, "Skip layers that fail to bake or export instead of aborting")
	rootCmd.Flags().StringVar(&f.report, "report", "", "Write a markdown report of the export to this file")
	rootCmd.Flags().BoolVar(&f.logJSON, "log-json", false, "Log JSON lines instead of colored text")
	rootCmd.Flags().BoolVarP(&f.verbose, "verbose", "v", false, "Enable debug logging (with --log-json)")

	rootCmd.MarkFlagRequired("input")

	versionCmd := &cobra.Command{
		Use:   "version",
		Short: "Print the version number",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "flinto-export version %s\n", version)
		},
	}

	devicesCmd := &cobra.Command{
		Use:   "devices",
		Short: "List the device presets",
		Run: func(cmd *cobra.Command, args []string) {
			w := cmd.OutOrStdout()
			for _, d := range flintoexport.Devices {
				fmt.Fprintf(w, "%-20s %4dx%-4d @%gx\n", d.Name, d.Width, d.Height, d.PixelDensity)
			}
			fmt.Fprintf(w, "%-20s document size @%gx\n", flintoexport.Custom.Name, flintoexport.Custom.PixelDensity)
		},
	}

	rootCmd.AddCommand(versionCmd, devicesCmd)
	return rootCmd
}

func run(cmd *cobra.Command, f *cliFlags, in io.Reader, out io.Writer) error {
	green := color.New(color.FgGreen)
	cyan := color.New(color.FgCyan)

	cyan.Fprintln(out, "\nFlinto Exporter")
	cyan.Fprintln(out, "===============")
	cyan.Fprintln(out)

	var scale float64
	if f.scale != "" {
		s, err := flintoexport.ParseScale(f.scale)
		if err != nil {
			return err
		}
		scale = s
	}

	logger, flush, err := newLogger(f, out)
	if err != nil {
		return err
	}
	defer flush()

	logger.Infof("Loading %s...", f.input)
	doc, err := document.Load(f.input)
	if err != nil {
		return fmt.Errorf("load document: %w", err)
	}

	settings, err := flintoexport.Configure(doc.Width, doc.Height, f.device, scale)
	if err != nil {
		return err
	}
	if cmd.Flags().Changed("width") {
		settings.Width = f.width
	}
	if cmd.Flags().Changed("height") {
		settings.Height = f.height
	}
	if cmd.Flags().Changed("density") {
		settings.PixelDensity = f.density
	}
	logger.Infof("Device: %s, scale %g%%, %dx%d @%gx",
		settings.Device.Name, settings.Scale*100, settings.Width, settings.Height, settings.PixelDensity)

	output := f.output
	if output == "" {
		base := strings.TrimSuffix(filepath.Base(f.input), filepath.Ext(f.input))
		output = filepath.Join(filepath.Dir(f.input), base)
	}

	result, err := flintoexport.Run(flintoexport.Options{
		Document:        doc,
		OutputPath:      output,
		Scale:           settings.Scale,
		Width:           settings.Width,
		Height:          settings.Height,
		PixelDensity:    settings.PixelDensity,
		Overwrite:       f.force,
		Confirm:         promptOverwrite(in, out),
		ContinueOnError: f.continueOnError,
		Logger:          logger,
	})
	if err != nil {
		return err
	}

	groups, images := extractor.Count(result.Metadata.Screens[0].Layers)
	cyan.Fprintln(out, "\nExport Summary:")
	fmt.Fprintf(out, "  • Groups: %d\n", groups)
	fmt.Fprintf(out, "  • Images: %d\n", images)
	if result.Skipped > 0 {
		fmt.Fprintf(out, "  • Skipped Layers: %d\n", result.Skipped)
	}

	if f.report != "" {
		green.Fprintf(out, "\nWriting report to %s... ", f.report)
		if err := os.WriteFile(f.report, []byte(result.Markdown), 0644); err != nil {
			color.New(color.FgRed).Fprintln(out, "✗")
			return fmt.Errorf("write report: %w", err)
		}
		green.Fprintln(out, "✓")
	}

	green.Fprintf(out, "\n✨ Successfully exported %s\n\n", result.BundleDir)
	return nil
}

// promptOverwrite asks on the terminal before an existing bundle is cleared.
// Without a terminal the overwrite is declined.
func promptOverwrite(in io.Reader, out io.Writer) func(string) bool {
	return func(path string) bool {
		if file, ok := in.(*os.File); !ok || (!isatty.IsTerminal(file.Fd()) && !isatty.IsCygwinTerminal(file.Fd())) {
			return false
		}
		color.New(color.FgYellow).Fprintf(out, "%s already exists.\nDo you want to overwrite the document? [y/N] ", path)
		answer, _ := bufio.NewReader(in).ReadString('\n')
		answer = strings.ToLower(strings.TrimSpace(answer))
		return answer == "y" || answer == "yes"
	}
}

// newLogger returns the colored terminal logger, or a zap production logger
// with --log-json. The returned func flushes buffered entries.
func newLogger(f *cliFlags, out io.Writer) (flintoexport.Logger, func(), error) {
	if !f.logJSON {
		return &cliLogger{out: out}, func() {}, nil
	}

	config := zap.NewProductionConfig()
	if f.verbose {
		config.Level = zap.NewAtomicLevelAt(zapcore.DebugLevel)
	}
	logger, err := config.Build()
	if err != nil {
		return nil, nil, fmt.Errorf("create logger: %w", err)
	}
	return logger.Sugar(), func() { _ = logger.Sync() }, nil
}

// cliLogger implements flintoexport.Logger with colored terminal output.
type cliLogger struct {
	out io.Writer
}

func (l *cliLogger) Infof(format string, args ...any) {
	color.New(color.FgYellow).Fprintf(l.out, format+"\n", args...)
}

func (l *cliLogger) Warnf(format string, args ...any) {
	color.New(color.FgYellow).Fprintf(l.out, "⚠ "+format+"\n", args...)
}

func (l *cliLogger) Errorf(format string, args ...any) {
	color.New(color.FgRed).Fprintf(l.out, "✗ "+format+"\n", args...)
}
