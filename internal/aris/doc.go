// Package aris reads ARIS v5 sonar recording containers.
//
// A recording is a fixed 1024-byte file header followed by frame records,
// each a fixed 1024-byte frame header plus beamCount*samplesPerChannel raw
// uint8 intensity samples. All integers and floats are little-endian. The
// Reader validates the DDF magic and version marker on open, exposes the
// parsed file header, and supports both random access by frame index and
// sequential iteration. Frame reads use pread-style offsets so a single
// Reader is safe for concurrent frame access.
//
// The byte layout follows the DDF_04 / ARIS v5 format as implemented by the
// ARISreader toolbox; offsets are fixed and must not be rearranged.
package aris
