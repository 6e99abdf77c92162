package batch

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"runtime"
	"strings"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"sonaris/internal/aris"
	"sonaris/internal/fan"
	"sonaris/internal/faults"
	"sonaris/internal/logging"
	"sonaris/internal/render"
)

// Options configures a batch conversion run.
type Options struct {
	// OutputDir is the root under which per-recording output directories are
	// created.
	OutputDir string
	// Workers bounds concurrent frame jobs. Zero means one worker per CPU.
	Workers int
	// Format selects the still-image codec.
	Format render.Format
	// JPEGQuality applies when Format is jpeg. Out-of-range values fall back
	// to the encoder default.
	JPEGQuality int
	// Annotate stamps frame index and capture time into each still.
	Annotate bool
	// Video additionally assembles the decoded frames into an MJPEG AVI per
	// recording.
	Video bool
	// Logger receives run progress. Nil means no logging unless the run
	// context carries a logger.
	Logger *slog.Logger
	// RunID identifies this run in logs and summaries. Empty generates one.
	RunID string
}

// Driver converts recordings to images. All frames of all recordings in a run
// share one bounded worker pool, so a short recording never leaves workers
// idle while a longer sibling still has frames queued. Frame failures are
// recorded in the summary and never abort the rest of the run.
type Driver struct {
	opts   Options
	logger *slog.Logger

	// frameGate, when set, runs at the start of every frame job.
	frameGate func()
}

// New validates the options and builds a driver.
func New(opts Options) (*Driver, error) {
	if opts.OutputDir == "" {
		return nil, fmt.Errorf("batch: output directory is required")
	}
	if opts.Workers < 0 {
		return nil, fmt.Errorf("batch: workers must be non-negative, got %d", opts.Workers)
	}
	if opts.Workers == 0 {
		opts.Workers = runtime.NumCPU()
	}
	if opts.Format == "" {
		opts.Format = render.FormatPNG
	}
	if opts.RunID == "" {
		opts.RunID = uuid.NewString()
	}
	logger := opts.Logger
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Driver{opts: opts, logger: logger}, nil
}

// fileJob tracks one recording whose frame jobs are in flight on the shared
// pool. Its reader stays open until every job has drained.
type fileJob struct {
	path      string
	stem      string
	reader    *aris.Reader
	projector *fan.Projector
	log       *slog.Logger
	// frames collects encoded video frames by index so worker scheduling
	// never affects playback order. Nil when video output is off.
	frames [][]byte
	// aborted flips once a file-fatal error surfaces; remaining frame jobs
	// of this recording become no-ops.
	aborted atomic.Bool
}

// Run converts every recording in paths. One worker pool spans all frame jobs
// of all recordings. The returned error is non-nil only for run-level failures
// such as context cancellation, never for per-file or per-frame conversion
// failures. A logger stored in ctx with logging.WithLogger takes precedence
// over the configured one.
func (d *Driver) Run(ctx context.Context, paths []string) (*Summary, error) {
	summary := &Summary{
		RunID:     d.opts.RunID,
		OutputDir: d.opts.OutputDir,
		StartedAt: time.Now(),
		Files:     len(paths),
	}
	logger := logging.WithComponent(logging.ContextLogger(ctx, d.logger), "batch").
		With(logging.FieldRunID, summary.RunID)
	logger.Info("starting run", "files", len(paths), "workers", d.opts.Workers)

	group, groupCtx := errgroup.WithContext(ctx)
	group.SetLimit(d.opts.Workers)

	var jobs []*fileJob
	for _, path := range paths {
		if groupCtx.Err() != nil {
			break
		}
		if job := d.scheduleFile(groupCtx, logger, summary, group, path); job != nil {
			jobs = append(jobs, job)
		}
	}
	poolErr := group.Wait()

	for _, job := range jobs {
		if poolErr == nil && job.frames != nil && !job.aborted.Load() {
			d.writeVideo(job.log, summary, job.path, job.stem, job.projector,
				d.measuredFrameRate(job.reader), job.frames)
		}
		_ = job.reader.Close()
	}

	summary.Duration = time.Since(summary.StartedAt)
	logger.Info("run complete",
		"frames_decoded", summary.FramesDecoded,
		"frames_failed", summary.FramesFailed,
		"files_failed", summary.FilesFailed,
		logging.Duration("duration", summary.Duration))
	if poolErr != nil {
		return summary, poolErr
	}
	return summary, ctx.Err()
}

// scheduleFile opens path and queues one job per declared frame on the shared
// pool. A nil return means the file was fully disposed of here; otherwise the
// caller owns the reader once the pool drains.
func (d *Driver) scheduleFile(ctx context.Context, logger *slog.Logger, summary *Summary, group *errgroup.Group, path string) *fileJob {
	log := logger.With(logging.FieldFile, path)

	reader, err := aris.Open(path)
	if err != nil {
		log.Error("skipping recording", logging.FieldErrorKind, faults.Kind(err), logging.Error(err))
		summary.recordFileFailure(path, faults.Kind(err), err)
		return nil
	}

	header := reader.Header()
	frameCount := reader.FrameCount()
	summary.addFrames(frameCount)
	if frameCount == 0 {
		log.Warn("recording declares no frames")
		_ = reader.Close()
		return nil
	}

	projector, err := d.buildProjector(reader)
	if err != nil {
		log.Error("skipping recording", logging.FieldErrorKind, faults.Kind(err), logging.Error(err))
		summary.recordFileFailure(path, faults.Kind(err), err)
		_ = reader.Close()
		return nil
	}

	job := &fileJob{
		path:      path,
		stem:      recordingStem(path),
		reader:    reader,
		projector: projector,
		log:       log,
	}
	if d.opts.Video {
		job.frames = make([][]byte, frameCount)
	}

	outDir := filepath.Join(d.opts.OutputDir, job.stem)
	exporter := &render.Exporter{
		Format:      d.opts.Format,
		JPEGQuality: d.opts.JPEGQuality,
		Annotate:    d.opts.Annotate,
	}
	videoExporter := &render.Exporter{
		Format:      render.FormatJPEG,
		JPEGQuality: d.opts.JPEGQuality,
		Annotate:    d.opts.Annotate,
	}

	log.Info("converting recording",
		"frames", frameCount,
		"beams", header.BeamCount,
		"samples_per_beam", header.SamplesPerChannel)

	for index := 0; index < frameCount; index++ {
		index := index
		group.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			if d.frameGate != nil {
				d.frameGate()
			}
			if job.aborted.Load() {
				return nil
			}
			d.convertFrame(summary, job, exporter, videoExporter, outDir, index)
			// only context cancellation may propagate out of the pool
			return nil
		})
	}
	return job
}

func (d *Driver) convertFrame(summary *Summary, job *fileJob, exporter, videoExporter *render.Exporter, outDir string, index int) {
	record, err := job.reader.FrameAt(index)
	if err != nil {
		d.failFrame(summary, job, index, "frame unreadable", err)
		return
	}

	img, err := job.projector.Decode(record.Samples)
	if err != nil {
		d.failFrame(summary, job, index, "frame decode failed", err)
		return
	}

	label := frameLabel(record)
	outPath := filepath.Join(outDir, fmt.Sprintf("frame_%06d.%s", index, d.opts.Format.Ext()))
	if err := exporter.Export(outPath, img, label); err != nil {
		d.failFrame(summary, job, index, "frame export failed", err)
		return
	}

	if job.frames != nil {
		data, err := videoExporter.Encode(img, label)
		if err != nil {
			d.failFrame(summary, job, index, "frame video encode failed", err)
			return
		}
		job.frames[index] = data
	}

	summary.recordFrameDecoded()
}

// failFrame books an error against one frame. File-fatal errors instead count
// as a file failure and abandon the recording's remaining frames.
func (d *Driver) failFrame(summary *Summary, job *fileJob, index int, msg string, err error) {
	if faults.FileFatal(err) {
		if job.aborted.CompareAndSwap(false, true) {
			job.log.Error("abandoning recording",
				logging.Int(logging.FieldFrame, index),
				logging.FieldErrorKind, faults.Kind(err),
				logging.Error(err))
			summary.recordFileFailure(job.path, faults.Kind(err), err)
		}
		return
	}
	job.log.Warn(msg,
		logging.Int(logging.FieldFrame, index),
		logging.FieldErrorKind, faults.Kind(err),
		logging.Error(err))
	summary.recordFrameFailure(job.path, index, faults.Kind(err), err)
}

// buildProjector derives the fan geometry from the first frame's window
// parameters, falling back to the file header when the first frame is
// unreadable. In-recording window changes are rare and intentionally ignored.
func (d *Driver) buildProjector(reader *aris.Reader) (*fan.Projector, error) {
	header := reader.Header()
	geom := fan.Geometry{
		Beams:       int(header.BeamCount),
		Bins:        int(header.SamplesPerChannel),
		WindowStart: float64(header.WindowStart),
		WindowEnd:   float64(header.WindowEnd()),
	}
	if first, err := reader.FrameAt(0); err == nil {
		if first.Header.WindowLength > 0 {
			geom.WindowStart = float64(first.Header.WindowStart)
			geom.WindowEnd = float64(first.Header.WindowEnd())
		}
	}
	return fan.NewProjector(geom)
}

func (d *Driver) writeVideo(log *slog.Logger, summary *Summary, path, stem string, projector *fan.Projector, fps float64, frames [][]byte) {
	width, height := projector.Size()
	avi := render.NewAVI(width, height, fps)
	for _, frame := range frames {
		if frame != nil {
			avi.AddJPEG(frame)
		}
	}
	if avi.FrameCount() == 0 {
		log.Warn("no decodable frames, skipping video")
		return
	}

	outPath := filepath.Join(d.opts.OutputDir, stem+".avi")
	if err := avi.Export(outPath); err != nil {
		log.Error("video export failed",
			logging.FieldOutput, outPath,
			logging.FieldErrorKind, faults.Kind(err),
			logging.Error(err))
		summary.recordFileFailure(path, faults.Kind(err), err)
		return
	}
	log.Info("video written", logging.FieldOutput, outPath, "frames", avi.FrameCount())
}

// measuredFrameRate prefers the first frame's measured rate over the integer
// rate in the file header.
func (d *Driver) measuredFrameRate(reader *aris.Reader) float64 {
	if first, err := reader.FrameAt(0); err == nil && first.Header.FrameRate > 0 {
		return float64(first.Header.FrameRate)
	}
	return float64(reader.Header().FrameRate)
}

func recordingStem(path string) string {
	base := filepath.Base(path)
	return strings.TrimSuffix(base, filepath.Ext(base))
}

func frameLabel(record *aris.FrameRecord) string {
	return fmt.Sprintf("%06d  %s", record.Index,
		record.Header.CapturedAt.Format("2006-01-02 15:04:05.000"))
}
