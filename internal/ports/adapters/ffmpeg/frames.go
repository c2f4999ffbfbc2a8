package ffmpeg

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os/exec"
	"sync"

	ffmpeggo "github.com/u2takey/ffmpeg-go"

	"github.com/forPelevin/hlfinish/internal/ports"
)

// OpenFrames decodes inMP4 into grayscale frames scaled to width x height,
// streamed over a pipe.
func (a *Adapter) OpenFrames(ctx context.Context, inMP4 string, width, height int) (ports.FrameSource, error) {
	if width <= 0 || height <= 0 {
		return nil, fmt.Errorf("frames: invalid size %dx%d", width, height)
	}
	cmd := exec.CommandContext(ctx, a.ffmpeg, append([]string{"-hide_banner", "-loglevel", "error"}, frameArgs(inMP4, width, height)...)...)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, err
	}
	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("start frame decoder: %w", err)
	}
	return &frameSource{
		cmd:    cmd,
		r:      bufio.NewReaderSize(stdout, width*height),
		stderr: &stderr,
		width:  width,
		height: height,
	}, nil
}

func frameArgs(inMP4 string, width, height int) []string {
	return ffmpeggo.Input(inMP4).
		Output("pipe:1", ffmpeggo.KwArgs{
			"map":     "0:v:0",
			"vf":      fmt.Sprintf("scale=%d:%d", width, height),
			"f":       "rawvideo",
			"pix_fmt": "gray",
		}).
		GetArgs()
}

type frameSource struct {
	cmd    *exec.Cmd
	r      *bufio.Reader
	stderr *bytes.Buffer
	width  int
	height int
	index  int

	closeOnce sync.Once
	closeErr  error
}

func (s *frameSource) Next() (ports.Frame, error) {
	buf := make([]uint8, s.width*s.height)
	_, err := io.ReadFull(s.r, buf)
	if errors.Is(err, io.EOF) {
		return ports.Frame{}, io.EOF
	}
	if errors.Is(err, io.ErrUnexpectedEOF) {
		// A truncated trailing frame is not worth failing the track for.
		return ports.Frame{}, io.EOF
	}
	if err != nil {
		return ports.Frame{}, fmt.Errorf("read frame %d: %w", s.index, err)
	}
	f := ports.Frame{Index: s.index, Width: s.width, Height: s.height, Pixels: buf}
	s.index++
	return f, nil
}

// Close stops the decoder process. It is safe to call concurrently with Next
// and more than once.
func (s *frameSource) Close() error {
	s.closeOnce.Do(func() {
		if s.cmd.Process != nil {
			_ = s.cmd.Process.Kill()
		}
		err := s.cmd.Wait()
		// A signaled exit is our own kill.
		if err == nil || (s.cmd.ProcessState != nil && !s.cmd.ProcessState.Exited()) {
			return
		}
		s.closeErr = fmt.Errorf("frame decoder: %w: %s", err, tail(s.stderr.String(), stderrTail))
	})
	return s.closeErr
}
