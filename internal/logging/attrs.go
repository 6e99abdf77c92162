package logging

import (
	"log/slog"
	"time"
)

const (
	// FieldComponent is the standardized structured logging key for component names.
	FieldComponent = "component"
	// FieldFile is the standardized structured logging key for input file paths.
	FieldFile = "file"
	// FieldFrame is the standardized structured logging key for zero-based frame indexes.
	FieldFrame = "frame"
	// FieldRunID is the standardized structured logging key for batch run identifiers.
	FieldRunID = "run_id"
	// FieldErrorKind is the standardized structured logging key for failure classification.
	FieldErrorKind = "error_kind"
	// FieldOutput is the standardized structured logging key for output artifact paths.
	FieldOutput = "output"
)

type Attr = slog.Attr

func Duration(key string, value time.Duration) Attr { return slog.Duration(key, value) }

func Int(key string, value int) Attr { return slog.Int(key, value) }

func String(key string, value string) Attr { return slog.String(key, value) }

func Error(err error) Attr {
	if err == nil {
		return slog.String("error", "<nil>")
	}
	return slog.Any("error", err)
}
