package batch

import (
	"bytes"
	"context"
	"encoding/binary"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"sonaris/internal/logging"
	"sonaris/internal/render"
	"sonaris/internal/testsupport"
)

func writeTestRecording(t *testing.T, dir, name string, frames int) string {
	t.Helper()
	path := filepath.Join(dir, name)
	testsupport.WriteRecording(t, path, testsupport.RecordingSpec{
		BeamCount:         48,
		SamplesPerChannel: 64,
		FrameCount:        frames,
		Fill: func(frame, bin, beam int) uint8 {
			return uint8((frame*31 + bin*3 + beam) % 256)
		},
	})
	return path
}

func TestRunConvertsRecordings(t *testing.T) {
	dir := t.TempDir()
	outDir := filepath.Join(dir, "out")
	a := writeTestRecording(t, dir, "dive_a.aris", 3)
	b := writeTestRecording(t, dir, "dive_b.aris", 2)

	driver, err := New(Options{OutputDir: outDir, Workers: 2})
	if err != nil {
		t.Fatalf("new driver: %v", err)
	}
	summary, err := driver.Run(context.Background(), []string{a, b})
	if err != nil {
		t.Fatalf("run: %v", err)
	}

	if summary.Failed() {
		t.Fatalf("unexpected failures: %+v %+v", summary.FileFailures, summary.FrameFailures)
	}
	if summary.Files != 2 || summary.Frames != 5 || summary.FramesDecoded != 5 {
		t.Fatalf("summary counts = files %d frames %d decoded %d",
			summary.Files, summary.Frames, summary.FramesDecoded)
	}

	for i := 0; i < 3; i++ {
		p := filepath.Join(outDir, "dive_a", frameName(i, "png"))
		if _, err := os.Stat(p); err != nil {
			t.Errorf("missing output %s: %v", p, err)
		}
	}
	if _, err := os.Stat(filepath.Join(outDir, "dive_b", frameName(1, "png"))); err != nil {
		t.Errorf("missing dive_b output: %v", err)
	}
}

func frameName(index int, ext string) string {
	return fmt.Sprintf("frame_%06d.%s", index, ext)
}

func TestRunWorkerCountIndependence(t *testing.T) {
	dir := t.TempDir()
	rec := writeTestRecording(t, dir, "dive.aris", 4)

	outputs := make([]string, 2)
	for i, workers := range []int{1, 4} {
		outDir := filepath.Join(dir, "out", string(rune('a'+i)))
		driver, err := New(Options{OutputDir: outDir, Workers: workers})
		if err != nil {
			t.Fatalf("new driver: %v", err)
		}
		summary, err := driver.Run(context.Background(), []string{rec})
		if err != nil || summary.Failed() {
			t.Fatalf("run workers=%d: err=%v failed=%v", workers, err, summary.Failed())
		}
		outputs[i] = outDir
	}

	for i := 0; i < 4; i++ {
		name := filepath.Join("dive", frameName(i, "png"))
		one, err := os.ReadFile(filepath.Join(outputs[0], name))
		if err != nil {
			t.Fatalf("read serial output: %v", err)
		}
		many, err := os.ReadFile(filepath.Join(outputs[1], name))
		if err != nil {
			t.Fatalf("read parallel output: %v", err)
		}
		if !bytes.Equal(one, many) {
			t.Errorf("frame %d differs between worker counts", i)
		}
	}
}

func TestRunTruncatedRecording(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "cut.aris")
	testsupport.WriteRecording(t, path, testsupport.RecordingSpec{
		BeamCount:         48,
		SamplesPerChannel: 64,
		FrameCount:        3,
		TruncateBytes:     100, // cuts into the last frame record
	})

	driver, err := New(Options{OutputDir: filepath.Join(dir, "out"), Workers: 2})
	if err != nil {
		t.Fatalf("new driver: %v", err)
	}
	summary, err := driver.Run(context.Background(), []string{path})
	if err != nil {
		t.Fatalf("run: %v", err)
	}

	if summary.FramesDecoded != 2 {
		t.Errorf("decoded = %d, want 2", summary.FramesDecoded)
	}
	if summary.FramesFailed != 1 {
		t.Fatalf("frame failures = %d, want 1", summary.FramesFailed)
	}
	failure := summary.FrameFailures[0]
	if failure.Frame != 2 || failure.Kind != "malformed_frame" {
		t.Errorf("failure = frame %d kind %q", failure.Frame, failure.Kind)
	}
	if summary.FilesFailed != 0 {
		t.Errorf("truncation must not fail the whole file: %+v", summary.FileFailures)
	}
}

func TestRunSkipsUnreadableFile(t *testing.T) {
	dir := t.TempDir()
	bad := filepath.Join(dir, "noise.aris")
	if err := os.WriteFile(bad, []byte("XYZ not a recording, long enough header padding follows"), 0o644); err != nil {
		t.Fatalf("write bad file: %v", err)
	}
	good := writeTestRecording(t, dir, "good.aris", 1)

	driver, err := New(Options{OutputDir: filepath.Join(dir, "out")})
	if err != nil {
		t.Fatalf("new driver: %v", err)
	}
	summary, err := driver.Run(context.Background(), []string{bad, good, filepath.Join(dir, "missing.aris")})
	if err != nil {
		t.Fatalf("run: %v", err)
	}

	if summary.FilesFailed != 2 {
		t.Fatalf("files failed = %d, want 2: %+v", summary.FilesFailed, summary.FileFailures)
	}
	if summary.FramesDecoded != 1 {
		t.Errorf("decoded = %d, want 1", summary.FramesDecoded)
	}
	kinds := map[string]bool{}
	for _, f := range summary.FileFailures {
		kinds[f.Kind] = true
	}
	if !kinds["unsupported_format"] || !kinds["io_failure"] {
		t.Errorf("failure kinds = %v", kinds)
	}
}

func TestRunSharesPoolAcrossFiles(t *testing.T) {
	dir := t.TempDir()
	a := writeTestRecording(t, dir, "dive_a.aris", 1)
	b := writeTestRecording(t, dir, "dive_b.aris", 1)

	driver, err := New(Options{OutputDir: filepath.Join(dir, "out"), Workers: 2})
	if err != nil {
		t.Fatalf("new driver: %v", err)
	}

	// Each recording holds a single frame, so with two workers both frames
	// must be in flight at once. Every job waits at the gate until the other
	// has arrived.
	started := make(chan struct{}, 2)
	release := make(chan struct{})
	var overlapped atomic.Bool
	driver.frameGate = func() {
		started <- struct{}{}
		<-release
	}
	go func() {
		for i := 0; i < 2; i++ {
			select {
			case <-started:
			case <-time.After(5 * time.Second):
				close(release)
				return
			}
		}
		overlapped.Store(true)
		close(release)
	}()

	summary, err := driver.Run(context.Background(), []string{a, b})
	if err != nil || summary.Failed() {
		t.Fatalf("run: err=%v failed=%v", err, summary.Failed())
	}
	if !overlapped.Load() {
		t.Fatal("frames of different recordings never ran concurrently")
	}
}

func TestRunAbandonsFileOnGeometryChange(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "mixed.aris")
	testsupport.WriteRecording(t, path, testsupport.RecordingSpec{
		BeamCount:         48,
		SamplesPerChannel: 64,
		FrameCount:        3,
		FrameSamplesPerBeam: func(frame int) uint32 {
			if frame >= 1 {
				return 128
			}
			return 64
		},
	})

	driver, err := New(Options{OutputDir: filepath.Join(dir, "out"), Workers: 1})
	if err != nil {
		t.Fatalf("new driver: %v", err)
	}
	summary, err := driver.Run(context.Background(), []string{path})
	if err != nil {
		t.Fatalf("run: %v", err)
	}

	if summary.FilesFailed != 1 {
		t.Fatalf("files failed = %d, want 1: %+v", summary.FilesFailed, summary.FileFailures)
	}
	if summary.FileFailures[0].Kind != "unsupported_format" {
		t.Errorf("failure kind = %q", summary.FileFailures[0].Kind)
	}
	// frames after the divergent one are abandoned, not booked individually
	if summary.FramesFailed != 0 {
		t.Errorf("frame failures = %d, want 0: %+v", summary.FramesFailed, summary.FrameFailures)
	}
	if summary.FramesDecoded != 1 {
		t.Errorf("decoded = %d, want 1", summary.FramesDecoded)
	}
}

func TestRunUsesContextLogger(t *testing.T) {
	dir := t.TempDir()
	rec := writeTestRecording(t, dir, "dive.aris", 1)

	driver, err := New(Options{OutputDir: filepath.Join(dir, "out")})
	if err != nil {
		t.Fatalf("new driver: %v", err)
	}

	var buf bytes.Buffer
	ctx := logging.WithLogger(context.Background(), slog.New(slog.NewTextHandler(&buf, nil)))
	summary, err := driver.Run(ctx, []string{rec})
	if err != nil || summary.Failed() {
		t.Fatalf("run: err=%v failed=%v", err, summary.Failed())
	}

	logged := buf.String()
	if !strings.Contains(logged, "run complete") {
		t.Fatalf("context logger saw no run output: %q", logged)
	}
	if !strings.Contains(logged, summary.RunID) {
		t.Fatal("run id missing from context logger output")
	}
}

func TestRunVideoOutput(t *testing.T) {
	dir := t.TempDir()
	outDir := filepath.Join(dir, "out")
	rec := writeTestRecording(t, dir, "dive.aris", 3)

	driver, err := New(Options{
		OutputDir:   outDir,
		Workers:     2,
		Format:      render.FormatJPEG,
		JPEGQuality: 85,
		Video:       true,
	})
	if err != nil {
		t.Fatalf("new driver: %v", err)
	}
	summary, err := driver.Run(context.Background(), []string{rec})
	if err != nil || summary.Failed() {
		t.Fatalf("run: err=%v failed=%v", err, summary.Failed())
	}

	data, err := os.ReadFile(filepath.Join(outDir, "dive.avi"))
	if err != nil {
		t.Fatalf("read video: %v", err)
	}
	if string(data[0:4]) != "RIFF" || string(data[8:12]) != "AVI " {
		t.Fatal("video is not an AVI container")
	}
	// avih frame count sits 16 bytes into the avih body
	if got := binary.LittleEndian.Uint32(data[48:52]); got != 3 {
		t.Errorf("video frame count = %d, want 3", got)
	}
}

func TestRunCanceledContext(t *testing.T) {
	dir := t.TempDir()
	rec := writeTestRecording(t, dir, "dive.aris", 2)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	driver, err := New(Options{OutputDir: filepath.Join(dir, "out")})
	if err != nil {
		t.Fatalf("new driver: %v", err)
	}
	if _, err := driver.Run(ctx, []string{rec}); err == nil {
		t.Fatal("expected context error")
	}
}

func TestNewValidation(t *testing.T) {
	if _, err := New(Options{}); err == nil {
		t.Error("empty output dir accepted")
	}
	if _, err := New(Options{OutputDir: "out", Workers: -1}); err == nil {
		t.Error("negative workers accepted")
	}
	driver, err := New(Options{OutputDir: "out"})
	if err != nil {
		t.Fatalf("defaults rejected: %v", err)
	}
	if driver.opts.Workers < 1 {
		t.Errorf("workers default = %d", driver.opts.Workers)
	}
	if driver.opts.RunID == "" {
		t.Error("run id not generated")
	}
}
