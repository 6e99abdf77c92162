package aris_test

import (
	"errors"
	"path/filepath"
	"testing"

	"sonaris/internal/aris"
	"sonaris/internal/faults"
	"sonaris/internal/testsupport"
)

func TestOpenParsesHeader(t *testing.T) {
	path := filepath.Join(t.TempDir(), "rec.aris")
	testsupport.WriteRecording(t, path, testsupport.RecordingSpec{
		BeamCount:         48,
		SamplesPerChannel: 200,
		FrameCount:        3,
		FrameRate:         7,
		WindowStart:       1.0,
		WindowLength:      4.0,
		SerialNumber:      4021,
	})

	r, err := aris.Open(path)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer r.Close()

	h := r.Header()
	if h.Version != aris.SupportedVersion {
		t.Fatalf("version = %d", h.Version)
	}
	if h.BeamCount != 48 || h.SamplesPerChannel != 200 {
		t.Fatalf("geometry = %dx%d", h.BeamCount, h.SamplesPerChannel)
	}
	if h.FrameRate != 7 {
		t.Fatalf("frame rate = %d", h.FrameRate)
	}
	if h.WindowStart != 1.0 || h.WindowLength != 4.0 {
		t.Fatalf("window = %f + %f", h.WindowStart, h.WindowLength)
	}
	if h.WindowEnd() != 5.0 {
		t.Fatalf("window end = %f", h.WindowEnd())
	}
	if h.SerialNumber != 4021 {
		t.Fatalf("serial = %d", h.SerialNumber)
	}
	if r.FrameCount() != 3 {
		t.Fatalf("frame count = %d", r.FrameCount())
	}
	if r.StoredFrameCount() != 3 {
		t.Fatalf("stored frame count = %d", r.StoredFrameCount())
	}
}

func TestOpenRejectsWrongMagic(t *testing.T) {
	path := filepath.Join(t.TempDir(), "not-aris.bin")
	testsupport.WriteRecording(t, path, testsupport.RecordingSpec{
		Magic:             "XYZ",
		BeamCount:         48,
		SamplesPerChannel: 10,
		FrameCount:        1,
	})

	_, err := aris.Open(path)
	if !errors.Is(err, faults.ErrUnsupportedFormat) {
		t.Fatalf("expected ErrUnsupportedFormat, got %v", err)
	}
}

func TestOpenRejectsWrongVersion(t *testing.T) {
	path := filepath.Join(t.TempDir(), "v4.aris")
	testsupport.WriteRecording(t, path, testsupport.RecordingSpec{
		Version:           4,
		BeamCount:         48,
		SamplesPerChannel: 10,
		FrameCount:        1,
	})

	_, err := aris.Open(path)
	if !errors.Is(err, faults.ErrUnsupportedFormat) {
		t.Fatalf("expected ErrUnsupportedFormat, got %v", err)
	}
}

func TestOpenMissingFile(t *testing.T) {
	_, err := aris.Open(filepath.Join(t.TempDir(), "nope.aris"))
	if !errors.Is(err, faults.ErrIO) {
		t.Fatalf("expected ErrIO, got %v", err)
	}
}

func TestFrameAtReadsSamplesAndHeader(t *testing.T) {
	path := filepath.Join(t.TempDir(), "rec.aris")
	testsupport.WriteRecording(t, path, testsupport.RecordingSpec{
		BeamCount:         4,
		SamplesPerChannel: 3,
		FrameCount:        2,
		Fill: func(frame, bin, beam int) uint8 {
			return uint8(100*frame + 10*bin + beam)
		},
	})

	r, err := aris.Open(path)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer r.Close()

	rec, err := r.FrameAt(1)
	if err != nil {
		t.Fatalf("FrameAt: %v", err)
	}
	if rec.Index != 1 {
		t.Fatalf("record index = %d", rec.Index)
	}
	if rec.Header.Index != 1 {
		t.Fatalf("header index = %d", rec.Header.Index)
	}
	if rec.Header.SamplesPerBeam != 3 {
		t.Fatalf("samples per beam = %d", rec.Header.SamplesPerBeam)
	}
	if got := rec.Samples[1*4+2]; got != 112 {
		t.Fatalf("sample (bin 1, beam 2) = %d want 112", got)
	}
	if len(rec.Samples) != 12 {
		t.Fatalf("sample count = %d", len(rec.Samples))
	}
}

func TestFrameAtDeterministic(t *testing.T) {
	path := filepath.Join(t.TempDir(), "rec.aris")
	testsupport.WriteRecording(t, path, testsupport.RecordingSpec{
		BeamCount:         8,
		SamplesPerChannel: 16,
		FrameCount:        1,
		Fill: func(frame, bin, beam int) uint8 {
			return uint8((bin*31 + beam*7) % 251)
		},
	})

	r, err := aris.Open(path)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer r.Close()

	first, err := r.FrameAt(0)
	if err != nil {
		t.Fatalf("first read: %v", err)
	}
	second, err := r.FrameAt(0)
	if err != nil {
		t.Fatalf("second read: %v", err)
	}
	for i := range first.Samples {
		if first.Samples[i] != second.Samples[i] {
			t.Fatalf("sample %d differs: %d vs %d", i, first.Samples[i], second.Samples[i])
		}
	}
}

func TestTruncatedFrameIsMalformedButOthersSurvive(t *testing.T) {
	path := filepath.Join(t.TempDir(), "rec.aris")
	testsupport.WriteRecording(t, path, testsupport.RecordingSpec{
		BeamCount:         4,
		SamplesPerChannel: 4,
		FrameCount:        3,
		TruncateBytes:     8,
	})

	r, err := aris.Open(path)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer r.Close()

	if r.StoredFrameCount() != 2 {
		t.Fatalf("stored frame count = %d want 2", r.StoredFrameCount())
	}

	if _, err := r.FrameAt(0); err != nil {
		t.Fatalf("frame 0 should decode: %v", err)
	}
	if _, err := r.FrameAt(1); err != nil {
		t.Fatalf("frame 1 should decode: %v", err)
	}
	_, err = r.FrameAt(2)
	if !errors.Is(err, faults.ErrMalformedFrame) {
		t.Fatalf("expected ErrMalformedFrame for frame 2, got %v", err)
	}
}

func TestFrameAtRejectsGeometryChange(t *testing.T) {
	path := filepath.Join(t.TempDir(), "rec.aris")
	testsupport.WriteRecording(t, path, testsupport.RecordingSpec{
		BeamCount:         4,
		SamplesPerChannel: 4,
		FrameCount:        2,
		FrameSamplesPerBeam: func(frame int) uint32 {
			if frame == 1 {
				return 8
			}
			return 4
		},
	})

	r, err := aris.Open(path)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer r.Close()

	if _, err := r.FrameAt(0); err != nil {
		t.Fatalf("frame 0 should read: %v", err)
	}
	_, err = r.FrameAt(1)
	if !errors.Is(err, faults.ErrUnsupportedFormat) {
		t.Fatalf("expected ErrUnsupportedFormat for the divergent frame, got %v", err)
	}
}

func TestFrameIterator(t *testing.T) {
	path := filepath.Join(t.TempDir(), "rec.aris")
	testsupport.WriteRecording(t, path, testsupport.RecordingSpec{
		BeamCount:         4,
		SamplesPerChannel: 4,
		FrameCount:        3,
	})

	r, err := aris.Open(path)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer r.Close()

	it := r.Frames()
	var seen []int
	for {
		rec, err := it.Next()
		if err != nil {
			t.Fatalf("Next: %v", err)
		}
		if rec == nil {
			break
		}
		seen = append(seen, rec.Index)
	}
	if len(seen) != 3 || seen[0] != 0 || seen[2] != 2 {
		t.Fatalf("iterator order = %v", seen)
	}

	it.Reset()
	rec, err := it.Next()
	if err != nil || rec == nil || rec.Index != 0 {
		t.Fatalf("after reset: rec=%v err=%v", rec, err)
	}
}
