package batch

import (
	"sync"
	"time"
)

// FileFailure records a recording that could not be processed at all.
type FileFailure struct {
	Path string
	Kind string
	Err  error
}

// FrameFailure records a single frame that failed to decode or export while
// the rest of its recording kept converting.
type FrameFailure struct {
	Path  string
	Frame int
	Kind  string
	Err   error
}

// Summary aggregates the outcome of one batch run. Workers report into it
// concurrently; read it only after the run completes.
type Summary struct {
	RunID     string
	OutputDir string
	StartedAt time.Time
	Duration  time.Duration

	Files       int
	FilesFailed int

	Frames        int
	FramesDecoded int
	FramesFailed  int

	FileFailures  []FileFailure
	FrameFailures []FrameFailure

	mu sync.Mutex
}

// Failed reports whether anything in the run went wrong.
func (s *Summary) Failed() bool {
	return s.FilesFailed > 0 || s.FramesFailed > 0
}

func (s *Summary) recordFileFailure(path, kind string, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.FilesFailed++
	s.FileFailures = append(s.FileFailures, FileFailure{Path: path, Kind: kind, Err: err})
}

func (s *Summary) recordFrameFailure(path string, frame int, kind string, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.FramesFailed++
	s.FrameFailures = append(s.FrameFailures, FrameFailure{Path: path, Frame: frame, Kind: kind, Err: err})
}

func (s *Summary) recordFrameDecoded() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.FramesDecoded++
}

func (s *Summary) addFrames(n int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Frames += n
}
