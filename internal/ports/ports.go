package ports

import (
	"context"

	"github.com/forPelevin/hlfinish/internal/types"
)

type Prober interface {
	ProbeGeometry(ctx context.Context, inMP4 string) (types.VideoGeometry, error)
}

// Transcoder runs the external video tool. Each call is one blocking
// invocation that writes outMP4 or returns a *types.RenderError.
type Transcoder interface {
	RenderFiltered(ctx context.Context, inMP4, filter, outMP4 string) error
	BurnSubtitles(ctx context.Context, inMP4, assPath, outMP4 string) error
	ExtractAudioMono16k(ctx context.Context, inMP4, outWav string) error
}

// Frame is one decoded grayscale picture, row-major, one byte per pixel.
type Frame struct {
	Index  int
	Width  int
	Height int
	Pixels []uint8
}

// FrameSource yields frames in decode order. Next returns io.EOF after the
// last frame. Close may be called at any time to abort decoding.
type FrameSource interface {
	Next() (Frame, error)
	Close() error
}

type FrameDecoder interface {
	OpenFrames(ctx context.Context, inMP4 string, width, height int) (FrameSource, error)
}

// FaceDetector finds faces on a frame. Samples are returned in frame pixel
// space. Load errors surface as types.ErrDetectionUnavailable.
type FaceDetector interface {
	Ready() error
	Detect(f Frame, minConfidence float64) ([]types.FaceSample, error)
}

type ASR interface {
	Transcribe(ctx context.Context, wavPath, cacheDir string) (types.Transcript, error)
}
