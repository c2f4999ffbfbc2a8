package ffmpeg

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os/exec"
	"strconv"
	"strings"
	"time"

	ffmpeggo "github.com/u2takey/ffmpeg-go"

	"github.com/forPelevin/hlfinish/internal/types"
)

// stderrTail bounds how much of ffmpeg's diagnostic output is kept on errors.
const stderrTail = 400

// Observer receives the wall time of every ffmpeg invocation.
type Observer func(op string, took time.Duration, err error)

type Options struct {
	FFmpeg  string
	FFprobe string
	Preset  string
	CRF     int
	Observe Observer
}

type Adapter struct {
	ffmpeg  string
	ffprobe string
	preset  string
	crf     int
	observe Observer
}

func New(opts Options) *Adapter {
	a := &Adapter{
		ffmpeg:  opts.FFmpeg,
		ffprobe: opts.FFprobe,
		preset:  opts.Preset,
		crf:     opts.CRF,
		observe: opts.Observe,
	}
	if a.ffmpeg == "" {
		a.ffmpeg = "ffmpeg"
	}
	if a.ffprobe == "" {
		a.ffprobe = "ffprobe"
	}
	if a.preset == "" {
		a.preset = "fast"
	}
	if a.crf <= 0 {
		a.crf = 18
	}
	return a
}

// RenderFiltered re-encodes inMP4 through a video filter, copying audio.
func (a *Adapter) RenderFiltered(ctx context.Context, inMP4, filter, outMP4 string) error {
	return a.run(ctx, "render", a.encodeArgs(inMP4, filter, outMP4))
}

// BurnSubtitles renders an ASS file onto the picture.
func (a *Adapter) BurnSubtitles(ctx context.Context, inMP4, assPath, outMP4 string) error {
	return a.run(ctx, "burn subtitles", a.encodeArgs(inMP4, "ass="+escapeFilterPath(assPath), outMP4))
}

func (a *Adapter) ExtractAudioMono16k(ctx context.Context, inMP4, outWav string) error {
	args := ffmpeggo.Input(inMP4).
		Output(outWav, ffmpeggo.KwArgs{
			"map": "0:a:0",
			"ac":  1,
			"ar":  16000,
			"f":   "wav",
		}).
		OverWriteOutput().
		GetArgs()
	return a.run(ctx, "extract audio", args)
}

func (a *Adapter) encodeArgs(inMP4, filter, outMP4 string) []string {
	return ffmpeggo.Input(inMP4).
		Output(outMP4, ffmpeggo.KwArgs{
			"vf":       filter,
			"c:v":      "libx264",
			"crf":      a.crf,
			"preset":   a.preset,
			"pix_fmt":  "yuv420p",
			"c:a":      "copy",
			"movflags": "+faststart",
		}).
		OverWriteOutput().
		GetArgs()
}

func (a *Adapter) run(ctx context.Context, op string, args []string) error {
	started := time.Now()
	cmd := exec.CommandContext(ctx, a.ffmpeg, append([]string{"-hide_banner", "-loglevel", "error"}, args...)...)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	err := cmd.Run()
	if err != nil {
		err = &types.RenderError{Op: op, Err: err, Tail: tail(stderr.String(), stderrTail)}
	}
	if a.observe != nil {
		a.observe(op, time.Since(started), err)
	}
	return err
}

type probeOutput struct {
	Streams []struct {
		Width        int    `json:"width"`
		Height       int    `json:"height"`
		RFrameRate   string `json:"r_frame_rate"`
		AvgFrameRate string `json:"avg_frame_rate"`
	} `json:"streams"`
}

// ProbeGeometry reads the first video stream's size and frame rate.
func (a *Adapter) ProbeGeometry(ctx context.Context, inMP4 string) (types.VideoGeometry, error) {
	cmd := exec.CommandContext(ctx, a.ffprobe,
		"-v", "error",
		"-select_streams", "v:0",
		"-show_entries", "stream=width,height,r_frame_rate,avg_frame_rate",
		"-of", "json",
		inMP4,
	)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	b, err := cmd.Output()
	if err != nil {
		return types.VideoGeometry{}, &types.ProbeError{Path: inMP4, Err: fmt.Errorf("%w: %s", err, tail(stderr.String(), stderrTail))}
	}
	g, err := parseProbe(b)
	if err != nil {
		return types.VideoGeometry{}, &types.ProbeError{Path: inMP4, Err: err}
	}
	return g, nil
}

func parseProbe(b []byte) (types.VideoGeometry, error) {
	var out probeOutput
	if err := json.Unmarshal(b, &out); err != nil {
		return types.VideoGeometry{}, fmt.Errorf("decode ffprobe json: %w", err)
	}
	if len(out.Streams) == 0 {
		return types.VideoGeometry{}, errors.New("no video stream")
	}
	s := out.Streams[0]
	if s.Width <= 0 || s.Height <= 0 {
		return types.VideoGeometry{}, fmt.Errorf("invalid video size %dx%d", s.Width, s.Height)
	}
	fps := parseRate(s.RFrameRate)
	if fps <= 0 {
		fps = parseRate(s.AvgFrameRate)
	}
	return types.VideoGeometry{Width: s.Width, Height: s.Height, FPS: fps}, nil
}

// parseRate accepts "30000/1001" or "25". Unparseable rates yield 0.
func parseRate(s string) float64 {
	num, den, ok := strings.Cut(strings.TrimSpace(s), "/")
	n, err := strconv.ParseFloat(num, 64)
	if err != nil {
		return 0
	}
	if !ok {
		return n
	}
	d, err := strconv.ParseFloat(den, 64)
	if err != nil || d == 0 {
		return 0
	}
	return n / d
}

// escapeFilterPath makes a path safe as a filter option value inside -vf.
// The value is unescaped twice: once by the filtergraph parser, which honours
// the quotes, then by the filter's own option parser, which honours the
// backslashes.
func escapeFilterPath(p string) string {
	v := optionEscaper.Replace(p)
	return "'" + strings.ReplaceAll(v, "'", `'\''`) + "'"
}

var optionEscaper = strings.NewReplacer(`\`, `\\`, `'`, `\'`, `:`, `\:`)

func tail(s string, n int) string {
	s = strings.TrimSpace(s)
	if len(s) <= n {
		return s
	}
	return s[len(s)-n:]
}
