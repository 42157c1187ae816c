// gltf-display imports one or more glTF assets and prints what was found:
// the asset metadata, document counts, buffers and decoded images, or the
// error that stopped the import.
//
// Locations may be local paths, http(s) URLs, s3://bucket/key or
// gs://bucket/key (the latter only in builds with -tags gcp).
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"time"

	"github.com/spf13/pflag"

	gltfimporter "github.com/Skryldev/gltf-importer"
	"github.com/Skryldev/gltf-importer/adapters/encoder"
	"github.com/Skryldev/gltf-importer/config"
	"github.com/Skryldev/gltf-importer/core"
	"github.com/Skryldev/gltf-importer/hooks"
	"github.com/Skryldev/gltf-importer/report"
)

// exitError carries the process exit code for run failures.
type exitError struct {
	code int
	err  error
}

func (e *exitError) Error() string { return e.err.Error() }
func (e *exitError) ExitCode() int { return e.code }

func main() {
	if err := run(os.Args[1:], os.Stdout, os.Stderr); err != nil {
		var coder interface{ ExitCode() int }
		if errors.As(err, &coder) {
			if msg := err.Error(); msg != "" {
				fmt.Fprintf(os.Stderr, "error: %s\n", msg)
			}
			os.Exit(coder.ExitCode())
		}
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run(args []string, stdout, stderr io.Writer) error {
	var (
		configPath string
		format     string
		extractDir string
		lenient    bool
		verbose    bool
		noColor    bool
		timeout    time.Duration
		extensions []string
		strategy   = config.Minimal
	)

	flagSet := pflag.NewFlagSet("gltf-display", pflag.ContinueOnError)
	flagSet.SetOutput(stderr)
	flagSet.StringVarP(&configPath, "config", "c", "", "YAML config file (flags override its values)")
	flagSet.Var(&strategy, "validation", "validation strategy: skip, minimal or complete")
	flagSet.StringVarP(&format, "format", "f", "text", "output format: text, json, yaml or cbor")
	flagSet.StringVar(&extractDir, "extract", "", "write decoded images into this directory")
	flagSet.BoolVar(&lenient, "lenient", false, "accept JSON with comments and trailing commas")
	flagSet.StringSliceVar(&extensions, "enable-extension", nil, "enable a required extension (repeatable)")
	flagSet.DurationVar(&timeout, "timeout", 0, "abort an import after this long (0 = config job_timeout)")
	flagSet.BoolVarP(&verbose, "verbose", "v", false, "log pipeline stages to stderr")
	flagSet.BoolVar(&noColor, "no-color", false, "disable terminal styling in text output")
	flagSet.BoolP("help", "h", false, "show help")

	if err := flagSet.Parse(args); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			printHelp(stderr, flagSet)
			return nil
		}
		return &exitError{code: 2, err: err}
	}
	if help, _ := flagSet.GetBool("help"); help {
		printHelp(stderr, flagSet)
		return nil
	}
	locations := flagSet.Args()
	if len(locations) == 0 {
		printHelp(stderr, flagSet)
		return &exitError{code: 2, err: errors.New("at least one location is required")}
	}

	cfg := config.Default()
	if configPath != "" {
		loaded, err := config.Load(configPath)
		if err != nil {
			return &exitError{code: 2, err: err}
		}
		cfg = loaded
	}
	if flagSet.Changed("validation") {
		cfg.Validation = strategy
	}
	if flagSet.Changed("lenient") {
		cfg.Lenient = lenient
	}
	cfg.EnabledExtensions = append(cfg.EnabledExtensions, extensions...)
	if timeout > 0 {
		cfg.JobTimeout = timeout
	}
	if verbose {
		cfg.LogLevel = "debug"
	}

	outFormat, err := report.ParseFormat(format)
	if err != nil {
		return &exitError{code: 2, err: err}
	}

	imp := gltfimporter.New(cfg)
	logger := hooks.NewTextLogger(stderr, cfg.LogLevel)
	imp.SetLogger(logger)
	if verbose {
		imp.AddHook(hooks.NewLoggingHook(logger))
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	if cfg.JobTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, cfg.JobTimeout*time.Duration(len(locations)))
		defer cancel()
	}

	sources := make([]core.Source, len(locations))
	openErrs := make([]error, len(locations))
	for i, loc := range locations {
		sources[i], openErrs[i] = gltfimporter.FromURL(ctx, loc, cfg)
	}
	results, errs := importAll(ctx, imp, sources, openErrs)

	styles := report.Colored()
	if noColor {
		styles = report.Plain
	}
	failed := 0
	for i, loc := range locations {
		r := report.New(loc, results[i], errs[i])
		if errs[i] != nil {
			failed++
		}
		if outFormat == report.FormatText {
			fmt.Fprint(stdout, report.Render(r, styles))
		} else if err := report.Write(stdout, r, outFormat); err != nil {
			return err
		}
		if extractDir != "" && results[i] != nil {
			dir := extractDir
			if len(locations) > 1 {
				dir = fmt.Sprintf("%s/%d", extractDir, i)
			}
			paths, err := encoder.Extract(ctx, dir, results[i])
			if err != nil {
				return err
			}
			logger.Info("extracted images", "location", loc, "count", len(paths), "dir", dir)
		}
	}
	if failed > 0 {
		return &exitError{code: 1, err: fmt.Errorf("%d of %d imports failed", failed, len(locations))}
	}
	return nil
}

// importAll imports every source that opened, concurrently.
func importAll(ctx context.Context, imp *gltfimporter.Importer, sources []core.Source, openErrs []error) ([]*core.Result, []error) {
	var (
		batch []core.Source
		index []int
	)
	for i, src := range sources {
		if openErrs[i] == nil {
			batch = append(batch, src)
			index = append(index, i)
		}
	}
	results := make([]*core.Result, len(sources))
	errs := append([]error(nil), openErrs...)
	res, berrs := imp.Batch(ctx, batch)
	for k, i := range index {
		results[i], errs[i] = res[k], berrs[k]
	}
	return results, errs
}

func printHelp(w io.Writer, flagSet *pflag.FlagSet) {
	fmt.Fprintf(w, `gltf-display imports glTF 2.0 assets and prints a summary of each.

Usage:
  gltf-display [flags] LOCATION...

LOCATION is a local .gltf/.glb path, an http(s) URL, s3://bucket/key or
gs://bucket/key. Compressed files (.gz, .zst, .lz4) are inflated on the fly.

Examples:
  gltf-display models/Box.gltf
  gltf-display --validation complete --format json https://example.com/Duck.glb
  gltf-display --extract ./textures s3://assets/car/car.gltf

Flags:
`)
	flagSet.PrintDefaults()
}
