// Package faults defines the error taxonomy shared by the reader, decoder,
// exporter, and batch driver.
//
// Every failure that crosses a package boundary is tagged with one of the
// exported sentinel errors so callers can classify it without inspecting
// message text: unsupported container formats, malformed frame records,
// read/write failures, and image-codec failures. Wrap builds consistently
// shaped messages while preserving both the sentinel and the underlying cause
// for errors.Is/errors.As checks.
package faults
