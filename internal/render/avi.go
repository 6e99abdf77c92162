package render

import (
	"encoding/binary"
	"fmt"
	"io"

	"sonaris/internal/faults"
	"sonaris/internal/fileutil"
)

// aviFlagHasIndex and aviFlagKeyframe come from the RIFF AVI specification.
const (
	aviFlagHasIndex = 0x00000010
	aviFlagKeyframe = 0x00000010
)

// AVI assembles MJPEG frames into an AVI container. Frames must be added in
// presentation order; WriteTo emits the complete file.
type AVI struct {
	width  int
	height int
	fps    float64
	frames [][]byte
}

// NewAVI creates a container for frames of the given pixel size. A
// non-positive fps falls back to 10 frames per second.
func NewAVI(width, height int, fps float64) *AVI {
	if fps <= 0 {
		fps = 10
	}
	return &AVI{width: width, height: height, fps: fps}
}

// AddJPEG appends one encoded JPEG frame.
func (a *AVI) AddJPEG(frame []byte) {
	a.frames = append(a.frames, frame)
}

// FrameCount returns the number of frames added so far.
func (a *AVI) FrameCount() int {
	return len(a.frames)
}

// WriteTo serializes the container. It fails with ErrCodec when no frames
// were added, since a zero-frame movie is always a bug upstream.
func (a *AVI) WriteTo(w io.Writer) error {
	if len(a.frames) == 0 {
		return faults.Wrap(faults.ErrCodec, "exporter", "avi", "no frames to write", nil)
	}

	var maxFrame int
	for _, f := range a.frames {
		if len(f) > maxFrame {
			maxFrame = len(f)
		}
	}

	hdrl := buildList("hdrl",
		buildChunk("avih", a.mainHeader(maxFrame)),
		buildList("strl",
			buildChunk("strh", a.streamHeader(maxFrame)),
			buildChunk("strf", a.streamFormat()),
		),
	)

	var moviBody []byte
	offsets := make([]uint32, len(a.frames))
	sizes := make([]uint32, len(a.frames))
	for i, f := range a.frames {
		// offsets are relative to the 'movi' fourcc
		offsets[i] = uint32(4 + len(moviBody))
		sizes[i] = uint32(len(f))
		moviBody = append(moviBody, buildChunk("00dc", f)...)
	}
	movi := append([]byte("LIST"), u32(uint32(4+len(moviBody)))...)
	movi = append(movi, []byte("movi")...)
	movi = append(movi, moviBody...)

	idx := make([]byte, 0, 16*len(a.frames))
	for i := range a.frames {
		idx = append(idx, []byte("00dc")...)
		idx = append(idx, u32(aviFlagKeyframe)...)
		idx = append(idx, u32(offsets[i])...)
		idx = append(idx, u32(sizes[i])...)
	}
	idx1 := buildChunk("idx1", idx)

	body := append([]byte("AVI "), hdrl...)
	body = append(body, movi...)
	body = append(body, idx1...)

	header := append([]byte("RIFF"), u32(uint32(len(body)))...)
	if _, err := w.Write(header); err != nil {
		return fmt.Errorf("write riff header: %w", err)
	}
	if _, err := w.Write(body); err != nil {
		return fmt.Errorf("write riff body: %w", err)
	}
	return nil
}

// Export publishes the container at path via an atomic rename.
func (a *AVI) Export(path string) error {
	err := fileutil.WriteStreamAtomic(path, 0o644, func(w io.Writer) error {
		return a.WriteTo(w)
	})
	if err != nil {
		if faults.Kind(err) != "unknown" {
			return err
		}
		return faults.Wrap(faults.ErrIO, "exporter", "write", path, err)
	}
	return nil
}

func (a *AVI) mainHeader(maxFrame int) []byte {
	buf := make([]byte, 0, 56)
	buf = append(buf, u32(uint32(1e6/a.fps))...) // microseconds per frame
	buf = append(buf, u32(0)...)                 // max bytes per second
	buf = append(buf, u32(0)...)                 // padding granularity
	buf = append(buf, u32(aviFlagHasIndex)...)
	buf = append(buf, u32(uint32(len(a.frames)))...)
	buf = append(buf, u32(0)...) // initial frames
	buf = append(buf, u32(1)...) // stream count
	buf = append(buf, u32(uint32(maxFrame))...)
	buf = append(buf, u32(uint32(a.width))...)
	buf = append(buf, u32(uint32(a.height))...)
	buf = append(buf, make([]byte, 16)...) // reserved
	return buf
}

func (a *AVI) streamHeader(maxFrame int) []byte {
	// rate/scale as a 1000-denominator fraction keeps fractional frame rates
	rate := uint32(a.fps*1000 + 0.5)
	buf := make([]byte, 0, 56)
	buf = append(buf, []byte("vids")...)
	buf = append(buf, []byte("MJPG")...)
	buf = append(buf, u32(0)...) // flags
	buf = append(buf, u32(0)...) // priority + language
	buf = append(buf, u32(0)...) // initial frames
	buf = append(buf, u32(1000)...)
	buf = append(buf, u32(rate)...)
	buf = append(buf, u32(0)...) // start
	buf = append(buf, u32(uint32(len(a.frames)))...)
	buf = append(buf, u32(uint32(maxFrame))...)
	buf = append(buf, u32(0xFFFFFFFF)...) // quality: default
	buf = append(buf, u32(0)...) // sample size
	buf = append(buf, u16(0)...) // frame left
	buf = append(buf, u16(0)...) // frame top
	buf = append(buf, u16(uint16(a.width))...)
	buf = append(buf, u16(uint16(a.height))...)
	return buf
}

func (a *AVI) streamFormat() []byte {
	buf := make([]byte, 0, 40)
	buf = append(buf, u32(40)...) // BITMAPINFOHEADER size
	buf = append(buf, u32(uint32(a.width))...)
	buf = append(buf, u32(uint32(a.height))...)
	buf = append(buf, u16(1)...)  // planes
	buf = append(buf, u16(24)...) // bits per pixel
	buf = append(buf, []byte("MJPG")...)
	buf = append(buf, u32(uint32(a.width*a.height*3))...)
	buf = append(buf, make([]byte, 16)...) // resolution and palette fields
	return buf
}

func buildChunk(id string, data []byte) []byte {
	out := append([]byte(id), u32(uint32(len(data)))...)
	out = append(out, data...)
	if len(data)%2 == 1 {
		out = append(out, 0)
	}
	return out
}

func buildList(kind string, chunks ...[]byte) []byte {
	var body []byte
	for _, c := range chunks {
		body = append(body, c...)
	}
	out := append([]byte("LIST"), u32(uint32(4+len(body)))...)
	out = append(out, []byte(kind)...)
	out = append(out, body...)
	return out
}

func u32(v uint32) []byte {
	var b [4]byte
	binary.LittleEndian.PutUint32(b[:], v)
	return b[:]
}

func u16(v uint16) []byte {
	var b [2]byte
	binary.LittleEndian.PutUint16(b[:], v)
	return b[:]
}
