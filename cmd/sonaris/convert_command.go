package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"sonaris/internal/aris"
	"sonaris/internal/batch"
	"sonaris/internal/catalog"
	"sonaris/internal/config"
	"sonaris/internal/preflight"
	"sonaris/internal/render"
)

func newConvertCommand(ctx *commandContext) *cobra.Command {
	var (
		outputDir string
		workers   int
		format    string
		quality   int
		annotate  bool
		video     bool
		record    bool
	)

	cmd := &cobra.Command{
		Use:   "convert <recording>...",
		Short: "Convert recordings to per-frame images",
		Long: "Convert decodes every frame of the given ARIS recordings into fan-projected\n" +
			"images. Arguments may be files or directories; directories are expanded with\n" +
			"the configured watch pattern.",
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			applyConvertDefaults(cmd, cfg, &outputDir, &workers, &format, &quality, &annotate, &video, &record)

			inputs, err := collectInputs(args, cfg.Watch.Pattern)
			if err != nil {
				return err
			}

			if err := os.MkdirAll(outputDir, 0o755); err != nil {
				return fmt.Errorf("create output directory: %w", err)
			}
			checkCfg := *cfg
			checkCfg.Paths.OutputDir = outputDir
			checks := preflight.RunAll(&checkCfg, inputs)
			if !preflight.AllPassed(checks) {
				renderPreflight(cmd.ErrOrStderr(), checks)
				return errors.New("preflight checks failed")
			}

			logger, err := ctx.ensureLogger()
			if err != nil {
				return err
			}
			imageFormat, err := render.ParseFormat(format)
			if err != nil {
				return err
			}

			driver, err := batch.New(batch.Options{
				OutputDir:   outputDir,
				Workers:     workers,
				Format:      imageFormat,
				JPEGQuality: quality,
				Annotate:    annotate,
				Video:       video,
				Logger:      logger,
			})
			if err != nil {
				return err
			}

			summary, err := driver.Run(cmd.Context(), inputs)
			if err != nil {
				return err
			}

			renderSummary(cmd, summary)

			if record {
				if err := recordRun(cmd.Context(), cfg, inputs, summary); err != nil {
					fmt.Fprintf(cmd.ErrOrStderr(), "warning: catalog update failed: %v\n", err)
				}
			}

			if summary.Failed() {
				return fmt.Errorf("completed with %d file and %d frame failures",
					summary.FilesFailed, summary.FramesFailed)
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&outputDir, "output", "o", "", "Output directory (default from config)")
	cmd.Flags().IntVarP(&workers, "workers", "w", 0, "Concurrent frame workers, 0 = one per CPU")
	cmd.Flags().StringVarP(&format, "format", "f", "", "Image format: png or jpeg")
	cmd.Flags().IntVar(&quality, "quality", 0, "JPEG quality 1-100")
	cmd.Flags().BoolVar(&annotate, "annotate", false, "Stamp frame index and capture time into each image")
	cmd.Flags().BoolVar(&video, "video", false, "Also assemble an MJPEG AVI per recording")
	cmd.Flags().BoolVar(&record, "record", false, "Record recordings and this run in the catalog")
	return cmd
}

// applyConvertDefaults fills unset flags from the loaded configuration.
func applyConvertDefaults(cmd *cobra.Command, cfg *config.Config,
	outputDir *string, workers *int, format *string, quality *int,
	annotate, video, record *bool) {
	flags := cmd.Flags()
	if !flags.Changed("output") {
		*outputDir = cfg.Paths.OutputDir
	}
	if !flags.Changed("workers") {
		*workers = cfg.Convert.Workers
	}
	if !flags.Changed("format") {
		*format = cfg.Convert.Format
	}
	if !flags.Changed("quality") {
		*quality = cfg.Convert.JPEGQuality
	}
	if !flags.Changed("annotate") {
		*annotate = cfg.Convert.Annotate
	}
	if !flags.Changed("video") {
		*video = cfg.Convert.Video
	}
	if !flags.Changed("record") {
		*record = cfg.Convert.Record
	}
}

// collectInputs expands file and directory arguments into a sorted list of
// recording paths. Directories are matched against pattern, non-recursively.
func collectInputs(args []string, pattern string) ([]string, error) {
	var inputs []string
	for _, arg := range args {
		path, err := config.ExpandPath(arg)
		if err != nil {
			return nil, err
		}
		info, err := os.Stat(path)
		if err != nil {
			// leave missing paths in; preflight reports them with context
			inputs = append(inputs, path)
			continue
		}
		if !info.IsDir() {
			inputs = append(inputs, path)
			continue
		}
		matches, err := filepath.Glob(filepath.Join(path, pattern))
		if err != nil {
			return nil, fmt.Errorf("expand directory %q: %w", path, err)
		}
		sort.Strings(matches)
		inputs = append(inputs, matches...)
	}
	if len(inputs) == 0 {
		return nil, errors.New("no recordings matched the given arguments")
	}
	return inputs, nil
}

// renderSummary prints the run outcome on stdout and any failure detail on
// stderr, so piped output stays clean.
func renderSummary(cmd *cobra.Command, summary *batch.Summary) {
	out := cmd.OutOrStdout()
	errOut := cmd.ErrOrStderr()
	p := message.NewPrinter(language.English)

	p.Fprintf(out, "Converted %d of %d frames across %d files in %v\n",
		summary.FramesDecoded, summary.Frames, summary.Files,
		summary.Duration.Round(summaryDurationUnit(summary)))
	p.Fprintf(out, "Output: %s\n", summary.OutputDir)

	if len(summary.FileFailures) > 0 {
		rows := make([][]string, 0, len(summary.FileFailures))
		for _, f := range summary.FileFailures {
			rows = append(rows, []string{f.Path, f.Kind, f.Err.Error()})
		}
		fmt.Fprintln(errOut, "\nFailed files:")
		fmt.Fprintln(errOut, renderTable([]string{"Path", "Kind", "Error"}, rows, nil))
	}
	if len(summary.FrameFailures) > 0 {
		rows := make([][]string, 0, len(summary.FrameFailures))
		for _, f := range summary.FrameFailures {
			rows = append(rows, []string{f.Path, fmt.Sprintf("%d", f.Frame), f.Kind})
		}
		fmt.Fprintln(errOut, "\nFailed frames:")
		fmt.Fprintln(errOut, renderTable([]string{"Path", "Frame", "Kind"}, rows, []columnAlignment{alignLeft, alignRight, alignLeft}))
	}
}

func summaryDurationUnit(summary *batch.Summary) time.Duration {
	if summary.Duration > time.Minute {
		return time.Second
	}
	return time.Millisecond
}

// recordRun catalogs the converted recordings and the run outcome.
func recordRun(ctx context.Context, cfg *config.Config, inputs []string, summary *batch.Summary) error {
	store, err := catalog.Open(cfg.Paths.CatalogPath)
	if err != nil {
		return err
	}
	defer store.Close()

	for _, input := range inputs {
		reader, err := aris.Open(input)
		if err != nil {
			continue
		}
		header := reader.Header()
		_, addErr := store.AddRecording(ctx, catalog.Recording{
			Path:              reader.Path(),
			SerialNumber:      header.SerialNumber,
			BeamCount:         header.BeamCount,
			SamplesPerChannel: header.SamplesPerChannel,
			FrameCount:        header.FrameCount,
			FrameRate:         float64(header.FrameRate),
			WindowStart:       float64(header.WindowStart),
			WindowLength:      float64(header.WindowLength),
			RecordedAt:        header.RecordedAt,
		})
		_ = reader.Close()
		if addErr != nil {
			return addErr
		}
	}

	return store.RecordRun(ctx, catalog.Run{
		ID:            summary.RunID,
		StartedAt:     summary.StartedAt,
		Duration:      summary.Duration,
		OutputDir:     summary.OutputDir,
		Files:         summary.Files,
		FilesFailed:   summary.FilesFailed,
		Frames:        summary.Frames,
		FramesDecoded: summary.FramesDecoded,
		FramesFailed:  summary.FramesFailed,
	})
}
