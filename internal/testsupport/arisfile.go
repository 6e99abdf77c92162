// Package testsupport provides shared helpers for building synthetic ARIS
// recordings and test configurations.
package testsupport

import (
	"encoding/binary"
	"math"
	"os"
	"path/filepath"
	"testing"
	"time"
)

// RecordingSpec describes a synthetic ARIS v5 recording.
type RecordingSpec struct {
	Version           uint8 // zero means v5
	Magic             string
	BeamCount         int
	SamplesPerChannel int
	FrameCount        int
	FrameRate         uint32
	WindowStart       float32
	WindowLength      float32
	SerialNumber      uint32
	CapturedAt        time.Time
	// Fill produces the sample at (frame, range bin, beam). Nil fills zeros.
	Fill func(frame, bin, beam int) uint8
	// FrameSamplesPerBeam overrides the samples-per-beam field written into
	// the given frame's header. Nil writes SamplesPerChannel everywhere.
	FrameSamplesPerBeam func(frame int) uint32
	// TruncateBytes cuts the given number of bytes off the end of the file
	// to simulate an interrupted recording.
	TruncateBytes int
}

func (s *RecordingSpec) defaults() {
	if s.Magic == "" {
		s.Magic = "DDF"
	}
	if s.Version == 0 {
		s.Version = 5
	}
	if s.FrameRate == 0 {
		s.FrameRate = 8
	}
	if s.WindowLength == 0 {
		s.WindowStart = 0.7
		s.WindowLength = 5.0
	}
	if s.CapturedAt.IsZero() {
		s.CapturedAt = time.Date(2021, 6, 14, 10, 30, 0, 0, time.UTC)
	}
}

// WriteRecording builds a recording at path and fails the test on any error.
func WriteRecording(t testing.TB, path string, spec RecordingSpec) {
	t.Helper()
	spec.defaults()

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("mkdir recording dir: %v", err)
	}

	data := buildRecording(spec)
	if spec.TruncateBytes > 0 && spec.TruncateBytes < len(data) {
		data = data[:len(data)-spec.TruncateBytes]
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatalf("write recording: %v", err)
	}
}

const (
	fileHeaderSize  = 1024
	frameHeaderSize = 1024
)

func buildRecording(spec RecordingSpec) []byte {
	frameDim := spec.BeamCount * spec.SamplesPerChannel
	out := make([]byte, 0, fileHeaderSize+spec.FrameCount*(frameHeaderSize+frameDim))
	out = append(out, buildFileHeader(spec)...)
	for frame := 0; frame < spec.FrameCount; frame++ {
		out = append(out, buildFrameHeader(spec, frame)...)
		samples := make([]byte, frameDim)
		if spec.Fill != nil {
			for bin := 0; bin < spec.SamplesPerChannel; bin++ {
				for beam := 0; beam < spec.BeamCount; beam++ {
					samples[bin*spec.BeamCount+beam] = spec.Fill(frame, bin, beam)
				}
			}
		}
		out = append(out, samples...)
	}
	return out
}

func buildFileHeader(spec RecordingSpec) []byte {
	buf := make([]byte, fileHeaderSize)
	copy(buf[0:3], spec.Magic)
	buf[3] = spec.Version
	le := binary.LittleEndian
	le.PutUint32(buf[4:], uint32(spec.FrameCount))
	le.PutUint32(buf[8:], spec.FrameRate)
	le.PutUint32(buf[12:], 1) // high frequency
	le.PutUint32(buf[16:], uint32(spec.BeamCount))
	le.PutUint32(buf[20:], math.Float32bits(12000))
	le.PutUint32(buf[24:], uint32(spec.SamplesPerChannel))
	le.PutUint32(buf[28:], 18) // receiver gain
	le.PutUint32(buf[32:], math.Float32bits(spec.WindowStart))
	le.PutUint32(buf[36:], math.Float32bits(spec.WindowLength))
	le.PutUint32(buf[44:], spec.SerialNumber)
	copy(buf[48:80], spec.CapturedAt.Format("2006-01-02 15:04:05"))
	copy(buf[80:336], "synthetic recording")
	frameDim := spec.BeamCount * spec.SamplesPerChannel
	total := uint64(fileHeaderSize + spec.FrameCount*(frameHeaderSize+frameDim))
	le.PutUint64(buf[424:], total)
	return buf
}

func buildFrameHeader(spec RecordingSpec, frame int) []byte {
	buf := make([]byte, frameHeaderSize)
	le := binary.LittleEndian
	le.PutUint32(buf[0:], uint32(frame))
	captured := spec.CapturedAt.Add(time.Duration(frame) * time.Second / time.Duration(spec.FrameRate))
	le.PutUint64(buf[4:], uint64(captured.UnixMicro()))
	le.PutUint32(buf[52:], math.Float32bits(spec.WindowStart))
	le.PutUint32(buf[56:], math.Float32bits(spec.WindowLength))
	le.PutUint32(buf[460:], math.Float32bits(float32(spec.FrameRate)))
	le.PutUint32(buf[464:], math.Float32bits(1450)) // sound speed
	samplesPerBeam := uint32(spec.SamplesPerChannel)
	if spec.FrameSamplesPerBeam != nil {
		samplesPerBeam = spec.FrameSamplesPerBeam(frame)
	}
	le.PutUint32(buf[468:], samplesPerBeam)
	le.PutUint32(buf[488:], spec.SerialNumber)
	return buf
}
