package aris

import (
	"fmt"

	"sonaris/internal/faults"
)

const (
	// FileHeaderSize is the fixed length of the container header in bytes.
	FileHeaderSize = 1024
	// FrameHeaderSize is the fixed length of each per-frame header in bytes.
	FrameHeaderSize = 1024

	// SupportedVersion is the only container version this reader accepts.
	SupportedVersion = 5

	magic = "DDF"
)

// FileHeader is the parsed 1024-byte container header. It is read once on
// Open and immutable for the reader's lifetime.
type FileHeader struct {
	Version           uint8
	FrameCount        uint32
	FrameRate         uint32
	HighFrequency     bool
	BeamCount         uint32
	SampleRate        float32
	SamplesPerChannel uint32
	ReceiverGain      uint32
	WindowStart       float32 // meters
	WindowLength      float32 // meters
	Reverse           bool
	SerialNumber      uint32
	RecordedAt        string
	Description       string
	UserID            [4]int32
	StartFrame        uint32
	EndFrame          uint32
	TimeLapse         bool
	RecordInterval    uint32
	FrameInterval     uint32
	Flags             uint32
	SoundSpeed        uint32
	SoftwareVersion   uint32
	WaterTempCode     uint32
	SalinityCode      uint32
	ThumbnailFrame    uint32
	FileSize          uint64
	VersionMinor      uint32
	LargeLens         bool
}

// SamplesPerFrame returns the raw sample payload length of one frame record.
func (h FileHeader) SamplesPerFrame() int {
	return int(h.BeamCount) * int(h.SamplesPerChannel)
}

// FrameRecordSize returns the on-disk size of one frame record including its
// header.
func (h FileHeader) FrameRecordSize() int64 {
	return FrameHeaderSize + int64(h.SamplesPerFrame())
}

// WindowEnd returns the far edge of the imaging window in meters.
func (h FileHeader) WindowEnd() float32 {
	return h.WindowStart + h.WindowLength
}

// parseFileHeader decodes a full 1024-byte header block. It fails with
// ErrUnsupportedFormat on a wrong magic or version marker and with
// ErrMalformedFrame-style diagnostics when the declared geometry is unusable.
func parseFileHeader(buf []byte) (FileHeader, error) {
	var h FileHeader
	if len(buf) < FileHeaderSize {
		return h, faults.Wrap(faults.ErrUnsupportedFormat, "reader", "header",
			fmt.Sprintf("short header: %d bytes", len(buf)), nil)
	}

	c := newCursor(buf)
	if got := c.str(3); got != magic {
		return h, faults.Wrap(faults.ErrUnsupportedFormat, "reader", "header",
			fmt.Sprintf("bad magic %q", got), nil)
	}
	h.Version = c.u8()
	if h.Version != SupportedVersion {
		return h, faults.Wrap(faults.ErrUnsupportedFormat, "reader", "header",
			fmt.Sprintf("version %d (only v%d supported)", h.Version, SupportedVersion), nil)
	}

	h.FrameCount = c.u32()
	h.FrameRate = c.u32()
	h.HighFrequency = c.u32() != 0
	h.BeamCount = c.u32()
	h.SampleRate = c.f32()
	h.SamplesPerChannel = c.u32()
	h.ReceiverGain = c.u32()
	h.WindowStart = c.f32()
	h.WindowLength = c.f32()
	h.Reverse = c.u32() != 0
	h.SerialNumber = c.u32()
	h.RecordedAt = c.str(32)
	h.Description = c.str(256)
	for i := range h.UserID {
		h.UserID[i] = c.i32()
	}
	h.StartFrame = c.u32()
	h.EndFrame = c.u32()
	h.TimeLapse = c.u32() != 0
	h.RecordInterval = c.u32()
	c.skip(4) // frames-or-seconds selector
	h.FrameInterval = c.u32()
	h.Flags = c.u32()
	c.skip(4) // aux flags
	h.SoundSpeed = c.u32()
	c.skip(4) // 3D flags
	h.SoftwareVersion = c.u32()
	h.WaterTempCode = c.u32()
	h.SalinityCode = c.u32()
	c.skip(4) // pulse length, unused for ARIS
	c.skip(4) // tx mode, unused for ARIS
	c.skip(8) // FPGA and PSuC versions
	h.ThumbnailFrame = c.u32()
	h.FileSize = c.u64()
	c.skip(16) // optional header/tail sizes
	h.VersionMinor = c.u32()
	h.LargeLens = c.u32() != 0
	// remaining 568 bytes are user-assigned

	if h.BeamCount == 0 || h.SamplesPerChannel == 0 {
		return h, faults.Wrap(faults.ErrUnsupportedFormat, "reader", "header",
			fmt.Sprintf("empty geometry: %d beams x %d samples", h.BeamCount, h.SamplesPerChannel), nil)
	}
	if h.BeamCount > 1024 || h.SamplesPerChannel > 65536 {
		return h, faults.Wrap(faults.ErrUnsupportedFormat, "reader", "header",
			fmt.Sprintf("implausible geometry: %d beams x %d samples", h.BeamCount, h.SamplesPerChannel), nil)
	}
	return h, nil
}
