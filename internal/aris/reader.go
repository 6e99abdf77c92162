package aris

import (
	"errors"
	"fmt"
	"io"
	"os"

	"sonaris/internal/faults"
)

// Reader provides access to a single ARIS v5 recording. Frame reads go
// through ReadAt so one Reader can serve concurrent workers.
type Reader struct {
	f      *os.File
	path   string
	size   int64
	header FileHeader
}

// Open validates the container marker and parses the file header. Files with
// a wrong magic or version fail with ErrUnsupportedFormat; short or unreadable
// headers fail with ErrIO.
func Open(path string) (*Reader, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, faults.Wrap(faults.ErrIO, "reader", "open", path, err)
	}

	info, err := f.Stat()
	if err != nil {
		_ = f.Close()
		return nil, faults.Wrap(faults.ErrIO, "reader", "stat", path, err)
	}

	buf := make([]byte, FileHeaderSize)
	if _, err := io.ReadFull(f, buf); err != nil {
		_ = f.Close()
		if errors.Is(err, io.ErrUnexpectedEOF) || errors.Is(err, io.EOF) {
			return nil, faults.Wrap(faults.ErrUnsupportedFormat, "reader", "header",
				fmt.Sprintf("%s: file shorter than header", path), nil)
		}
		return nil, faults.Wrap(faults.ErrIO, "reader", "header", path, err)
	}

	header, err := parseFileHeader(buf)
	if err != nil {
		_ = f.Close()
		return nil, err
	}

	return &Reader{f: f, path: path, size: info.Size(), header: header}, nil
}

// Close releases the underlying file handle.
func (r *Reader) Close() error {
	if r == nil || r.f == nil {
		return nil
	}
	return r.f.Close()
}

// Path returns the file path the reader was opened with.
func (r *Reader) Path() string { return r.path }

// Header returns the parsed file header.
func (r *Reader) Header() FileHeader { return r.header }

// FrameCount returns the header-declared number of frames.
func (r *Reader) FrameCount() int { return int(r.header.FrameCount) }

// StoredFrameCount returns the number of complete frame records actually
// present, derived from the file size. A value below FrameCount means the
// recording was truncated.
func (r *Reader) StoredFrameCount() int {
	payload := r.size - FileHeaderSize
	if payload <= 0 {
		return 0
	}
	return int(payload / r.header.FrameRecordSize())
}

// FrameAt reads the frame record at the given zero-based index. A record that
// extends past the end of the file yields ErrMalformedFrame; other frames in
// the same file remain readable. A frame header that disagrees with the file
// header on samples per beam yields ErrUnsupportedFormat, because the fixed
// record layout cannot be trusted past that point.
func (r *Reader) FrameAt(index int) (*FrameRecord, error) {
	if index < 0 || index >= r.FrameCount() {
		return nil, faults.Wrap(faults.ErrMalformedFrame, "reader", "frame",
			fmt.Sprintf("index %d out of range [0,%d)", index, r.FrameCount()), nil)
	}

	offset := FileHeaderSize + int64(index)*r.header.FrameRecordSize()
	if offset+r.header.FrameRecordSize() > r.size {
		return nil, faults.Wrap(faults.ErrMalformedFrame, "reader", "frame",
			fmt.Sprintf("frame %d truncated: record ends past file size %d", index, r.size), nil)
	}

	buf := make([]byte, r.header.FrameRecordSize())
	if _, err := r.f.ReadAt(buf, offset); err != nil {
		return nil, faults.Wrap(faults.ErrIO, "reader", "frame",
			fmt.Sprintf("frame %d", index), err)
	}

	record := &FrameRecord{
		Index:   index,
		Header:  parseFrameHeader(buf[:FrameHeaderSize]),
		Samples: buf[FrameHeaderSize:],
	}
	if spb := record.Header.SamplesPerBeam; spb != 0 && spb != r.header.SamplesPerChannel {
		return nil, faults.Wrap(faults.ErrUnsupportedFormat, "reader", "frame",
			fmt.Sprintf("frame %d declares %d samples per beam, file header says %d",
				index, spb, r.header.SamplesPerChannel), nil)
	}
	return record, nil
}

// Frames returns a restartable sequential iterator over all declared frames.
func (r *Reader) Frames() *FrameIterator {
	return &FrameIterator{reader: r}
}

// FrameIterator walks frame records in storage order. Errors are per frame;
// Next keeps advancing so a truncated record does not hide later reads.
type FrameIterator struct {
	reader *Reader
	next   int
}

// Next returns the next frame record, or (nil, nil) once all declared frames
// have been visited. Frame-scoped read failures are returned with the record
// index still advancing.
func (it *FrameIterator) Next() (*FrameRecord, error) {
	if it.next >= it.reader.FrameCount() {
		return nil, nil
	}
	index := it.next
	it.next++
	return it.reader.FrameAt(index)
}

// Reset rewinds the iterator to the first frame.
func (it *FrameIterator) Reset() {
	it.next = 0
}
