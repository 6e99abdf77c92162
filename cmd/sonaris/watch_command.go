package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"sonaris/internal/batch"
	"sonaris/internal/config"
	"sonaris/internal/preflight"
	"sonaris/internal/render"
	"sonaris/internal/watch"
)

func newWatchCommand(ctx *commandContext) *cobra.Command {
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
		Use:   "watch <directory>",
		Short: "Convert recordings as they arrive in a directory",
		Long: "Watch monitors a directory and converts each matching recording once its\n" +
			"size stops changing. Run it next to the sonar topside software's output\n" +
			"directory for hands-off conversion. Stop with Ctrl-C.",
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			applyConvertDefaults(cmd, cfg, &outputDir, &workers, &format, &quality, &annotate, &video, &record)

			dir, err := config.ExpandPath(args[0])
			if err != nil {
				return err
			}
			if info, err := os.Stat(dir); err != nil || !info.IsDir() {
				return fmt.Errorf("watch target %q is not a directory", dir)
			}

			if err := os.MkdirAll(outputDir, 0o755); err != nil {
				return fmt.Errorf("create output directory: %w", err)
			}
			checkCfg := *cfg
			checkCfg.Paths.OutputDir = outputDir
			checks := preflight.RunAll(&checkCfg, nil)
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

			watcher, err := watch.New(watch.Options{
				Dir:     dir,
				Pattern: cfg.Watch.Pattern,
				Settle:  time.Duration(cfg.Watch.SettleSeconds) * time.Second,
				Logger:  logger,
				Handler: func(handlerCtx context.Context, path string) {
					summary, err := driver.Run(handlerCtx, []string{path})
					if err != nil {
						return
					}
					renderSummary(cmd, summary)
					if record {
						if err := recordRun(handlerCtx, cfg, []string{path}, summary); err != nil {
							fmt.Fprintf(cmd.ErrOrStderr(), "warning: catalog update failed: %v\n", err)
						}
					}
				},
			})
			if err != nil {
				return err
			}

			fmt.Fprintf(cmd.OutOrStdout(), "Watching %s for %s files\n", dir, cfg.Watch.Pattern)
			err = watcher.Run(cmd.Context())
			if errors.Is(err, context.Canceled) {
				return nil
			}
			return err
		},
	}

	cmd.Flags().StringVarP(&outputDir, "output", "o", "", "Output directory (default from config)")
	cmd.Flags().IntVarP(&workers, "workers", "w", 0, "Concurrent frame workers, 0 = one per CPU")
	cmd.Flags().StringVarP(&format, "format", "f", "", "Image format: png or jpeg")
	cmd.Flags().IntVar(&quality, "quality", 0, "JPEG quality 1-100")
	cmd.Flags().BoolVar(&annotate, "annotate", false, "Stamp frame index and capture time into each image")
	cmd.Flags().BoolVar(&video, "video", false, "Also assemble an MJPEG AVI per recording")
	cmd.Flags().BoolVar(&record, "record", false, "Record recordings and runs in the catalog")
	return cmd
}
