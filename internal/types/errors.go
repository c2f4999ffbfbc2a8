package types

import (
	"errors"
	"fmt"
)

// ErrDetectionUnavailable means the face detector could not be loaded. It is
// never a clip failure: planners fall back to a centered window.
var ErrDetectionUnavailable = errors.New("face detection unavailable")

// ErrEmptyTranscriptWindow marks a clip with no words to subtitle. The clip is
// passed through unchanged.
var ErrEmptyTranscriptWindow = errors.New("empty transcript window")

// ProbeError reports that a file's video geometry could not be read.
type ProbeError struct {
	Path string
	Err  error
}

func (e *ProbeError) Error() string {
	return fmt.Sprintf("probe %s: %v", e.Path, e.Err)
}

func (e *ProbeError) Unwrap() error { return e.Err }

// RenderError reports a failed transcoder invocation. Tail holds the end of
// the tool's diagnostic output.
type RenderError struct {
	Op   string
	Err  error
	Tail string
}

func (e *RenderError) Error() string {
	if e.Tail == "" {
		return fmt.Sprintf("ffmpeg %s: %v", e.Op, e.Err)
	}
	return fmt.Sprintf("ffmpeg %s: %v\n%s", e.Op, e.Err, e.Tail)
}

func (e *RenderError) Unwrap() error { return e.Err }
