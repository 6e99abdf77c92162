package faults

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrUnsupportedFormat marks files that are not ARIS v5 recordings.
	// Fatal for the whole file; the batch continues with other inputs.
	ErrUnsupportedFormat = errors.New("unsupported format")
	// ErrMalformedFrame marks frame records whose length or geometry
	// disagrees with the file header. Fatal for that frame only.
	ErrMalformedFrame = errors.New("malformed frame")
	// ErrIO marks read or write failures.
	ErrIO = errors.New("io failure")
	// ErrCodec marks image or video encoding failures. Fatal per frame.
	ErrCodec = errors.New("codec failure")
)

// Wrap tags err with the provided sentinel marker and a component/operation
// prefix so batch summaries and logs carry uniform diagnostics. A nil marker
// falls back to ErrIO.
func Wrap(marker error, component, operation, message string, err error) error {
	detail := buildDetail(component, operation, message)
	if marker == nil {
		marker = ErrIO
	}
	if err != nil {
		return fmt.Errorf("%w: %s: %w", marker, detail, err)
	}
	return fmt.Errorf("%w: %s", marker, detail)
}

// Kind returns a short machine-readable label for the sentinel carried by err,
// used as a structured logging field and in summary lines.
func Kind(err error) string {
	switch {
	case errors.Is(err, ErrUnsupportedFormat):
		return "unsupported_format"
	case errors.Is(err, ErrMalformedFrame):
		return "malformed_frame"
	case errors.Is(err, ErrCodec):
		return "codec_failure"
	case errors.Is(err, ErrIO):
		return "io_failure"
	default:
		return "unknown"
	}
}

// FileFatal reports whether err should abort the remaining frames of the file
// it occurred in. Frame-scoped failures return false so siblings still decode.
func FileFatal(err error) bool {
	return errors.Is(err, ErrUnsupportedFormat)
}

func buildDetail(component, operation, message string) string {
	parts := make([]string, 0, 3)
	if component = strings.TrimSpace(component); component != "" {
		parts = append(parts, component)
	}
	if operation = strings.TrimSpace(operation); operation != "" {
		parts = append(parts, operation)
	}
	if message = strings.TrimSpace(message); message != "" {
		parts = append(parts, message)
	}
	if len(parts) == 0 {
		return "failure"
	}
	return strings.Join(parts, ": ")
}
