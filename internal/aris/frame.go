package aris

import (
	"time"
)

// FrameHeader is the parsed per-frame 1024-byte header. Fields that only
// matter to topside hardware diagnostics are skipped during parsing.
type FrameHeader struct {
	Index        uint32
	CapturedAt   time.Time
	Version      uint32
	Status       uint32
	TransmitMode uint32
	WindowStart  float32 // meters
	WindowLength float32 // meters
	Threshold    uint32
	Intensity    int32
	ReceiverGain uint32
	Latitude     float64
	Longitude    float64
	WaterTemp    float32

	SampleRate     float32
	PingMode       uint32
	FrequencyHiLow uint32
	PulseWidth     uint32
	CyclePeriod    uint32
	SamplePeriod   uint32
	FrameRate      float32
	SoundSpeed     float32
	SamplesPerBeam uint32
	SystemType     uint32
	SerialNumber   uint32
}

// WindowEnd returns the far edge of the imaging window in meters.
func (h FrameHeader) WindowEnd() float32 {
	return h.WindowStart + h.WindowLength
}

// FrameRecord is one frame's header plus its raw intensity samples, laid out
// range-bin major: Samples[bin*beamCount+beam]. Immutable once read.
type FrameRecord struct {
	Index   int
	Header  FrameHeader
	Samples []uint8
}

// parseFrameHeader decodes a full 1024-byte frame header block. The caller
// guarantees the slice length.
func parseFrameHeader(buf []byte) FrameHeader {
	var h FrameHeader
	c := newCursor(buf)

	h.Index = c.u32()
	h.CapturedAt = time.UnixMicro(int64(c.u64())).UTC()
	h.Version = c.u32()
	h.Status = c.u32()
	c.skip(8)  // sonar timestamp
	c.skip(20) // split timestamp (day..hundredths)
	h.TransmitMode = c.u32()
	h.WindowStart = c.f32()
	h.WindowLength = c.f32()
	h.Threshold = c.u32()
	h.Intensity = c.i32()
	h.ReceiverGain = c.u32()
	c.skip(20) // enclosure temperatures, humidity, focus, battery
	c.skip(32) // user values 1..8
	c.skip(48) // velocity, depth, altitude, attitude and rates, compass
	h.Latitude = c.f64()
	h.Longitude = c.f64()
	c.skip(4) // sonar position
	c.skip(4) // config flags
	c.skip(4) // beam tilt
	c.skip(8) // target range/bearing
	c.skip(4) // target present
	c.skip(4) // firmware version
	c.skip(4) // flags
	c.skip(4) // source frame
	h.WaterTemp = c.f32()
	c.skip(4)  // timer period
	c.skip(36) // sonar xyz/pan/tilt/roll and PNNL pan/tilt/roll
	c.skip(8)  // vehicle time
	c.skip(24) // GGK time/date/quality/satellites/DOP/EHT
	c.skip(4)  // TSS heave
	c.skip(28) // GPS calendar fields
	c.skip(24) // pan/tilt/roll and xyz offsets
	c.skip(64) // 4x4 transform matrix
	h.SampleRate = c.f32()
	c.skip(12) // accelerometer xyz
	h.PingMode = c.u32()
	h.FrequencyHiLow = c.u32()
	h.PulseWidth = c.u32()
	h.CyclePeriod = c.u32()
	h.SamplePeriod = c.u32()
	c.skip(4) // transmit enable
	h.FrameRate = c.f32()
	h.SoundSpeed = c.f32()
	h.SamplesPerBeam = c.u32()
	c.skip(4) // 150V enable
	c.skip(4) // sample start delay
	c.skip(4) // large lens
	h.SystemType = c.u32()
	h.SerialNumber = c.u32()
	// trailing fields: encryption, error/fault cluster, motor state,
	// applied settings, uptime, app version, go time, axis velocities,
	// sentinel, user-assigned tail
	return h
}
