package ffmpeg

import (
	"context"
	"errors"
	"math"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/forPelevin/hlfinish/internal/types"
)

func hasPair(args []string, flag, value string) bool {
	for i := 0; i+1 < len(args); i++ {
		if args[i] == flag && args[i+1] == value {
			return true
		}
	}
	return false
}

func TestEncodeArgs(t *testing.T) {
	a := New(Options{CRF: 20, Preset: "veryfast"})
	args := a.encodeArgs("in.mp4", "crop=1080:1920:420:0,scale=1080:1920", "out.mp4")

	for _, p := range [][2]string{
		{"-i", "in.mp4"},
		{"-vf", "crop=1080:1920:420:0,scale=1080:1920"},
		{"-c:v", "libx264"},
		{"-crf", "20"},
		{"-preset", "veryfast"},
		{"-c:a", "copy"},
		{"-movflags", "+faststart"},
	} {
		if !hasPair(args, p[0], p[1]) {
			t.Fatalf("missing %s %s in %v", p[0], p[1], args)
		}
	}
	if !strings.Contains(strings.Join(args, " "), "out.mp4") {
		t.Fatalf("missing output in %v", args)
	}
	found := false
	for _, s := range args {
		if s == "-y" {
			found = true
		}
	}
	if !found {
		t.Fatalf("expected overwrite flag in %v", args)
	}
}

func TestNew_Defaults(t *testing.T) {
	a := New(Options{})
	if a.ffmpeg != "ffmpeg" || a.ffprobe != "ffprobe" || a.preset != "fast" || a.crf != 18 {
		t.Fatalf("unexpected defaults: %+v", a)
	}
}

func TestFrameArgs(t *testing.T) {
	args := frameArgs("clip.mp4", 480, 270)
	for _, p := range [][2]string{
		{"-i", "clip.mp4"},
		{"-vf", "scale=480:270"},
		{"-f", "rawvideo"},
		{"-pix_fmt", "gray"},
	} {
		if !hasPair(args, p[0], p[1]) {
			t.Fatalf("missing %s %s in %v", p[0], p[1], args)
		}
	}
	if args[len(args)-1] != "pipe:1" {
		t.Fatalf("expected pipe output last, got %v", args)
	}
}

func TestParseRate(t *testing.T) {
	tests := map[string]float64{
		"30000/1001": 29.97,
		"25/1":       25,
		"24":         24,
		"0/0":        0,
		"":           0,
		"abc":        0,
	}
	for in, want := range tests {
		if got := parseRate(in); math.Abs(got-want) > 0.01 {
			t.Fatalf("parseRate(%q) = %v, want %v", in, got, want)
		}
	}
}

func TestParseProbe(t *testing.T) {
	g, err := parseProbe([]byte(`{"streams":[{"width":1920,"height":1080,"r_frame_rate":"0/0","avg_frame_rate":"30/1"}]}`))
	if err != nil {
		t.Fatal(err)
	}
	if g.Width != 1920 || g.Height != 1080 || g.FPS != 30 {
		t.Fatalf("unexpected geometry %+v", g)
	}

	if _, err := parseProbe([]byte(`{"streams":[]}`)); err == nil {
		t.Fatal("expected error for missing stream")
	}
	if _, err := parseProbe([]byte(`{"streams":[{"width":0,"height":0}]}`)); err == nil {
		t.Fatal("expected error for zero size")
	}
	if _, err := parseProbe([]byte(`not json`)); err == nil {
		t.Fatal("expected error for bad json")
	}
}

func TestEscapeFilterPath(t *testing.T) {
	got := escapeFilterPath(`C:\runs\it's.ass`)
	want := `'C\:\\runs\\it\'\''s.ass'`
	if got != want {
		t.Fatalf("escapeFilterPath = %q, want %q", got, want)
	}
}

// unescapeToken reads one token the way ffmpeg splits filter strings: a
// backslash escapes the next byte, quoted text is literal, and any byte of
// term ends the token.
func unescapeToken(s, term string) (string, string) {
	var b strings.Builder
	for i := 0; i < len(s); i++ {
		c := s[i]
		switch {
		case strings.IndexByte(term, c) >= 0:
			return b.String(), s[i:]
		case c == '\\' && i+1 < len(s):
			i++
			b.WriteByte(s[i])
		case c == '\'':
			j := strings.IndexByte(s[i+1:], '\'')
			if j < 0 {
				b.WriteString(s[i+1:])
				return b.String(), ""
			}
			b.WriteString(s[i+1 : i+1+j])
			i += j + 1
		default:
			b.WriteByte(c)
		}
	}
	return b.String(), ""
}

func TestEscapeFilterPath_SurvivesBothParsers(t *testing.T) {
	for _, path := range []string{
		"/tmp/out/run-1/subtitles/001.ass",
		`C:\runs\001.ass`,
		"/srv/10:30 take/sub:titles/a.ass",
		"/tmp/it's/a.ass",
		"/tmp/[odd],dir;/a.ass",
		`/tmp/back\slash'quote:colon.ass`,
	} {
		filter := "ass=" + escapeFilterPath(path)

		graphArgs, rest := unescapeToken(strings.TrimPrefix(filter, "ass="), "[],;")
		if rest != "" {
			t.Fatalf("%q: filtergraph split the value, left %q", path, rest)
		}
		value, rest := unescapeToken(graphArgs, ":")
		if rest != "" {
			t.Fatalf("%q: option parser split the value, left %q", path, rest)
		}
		if value != path {
			t.Fatalf("round trip of %q gave %q", path, value)
		}
	}
}

func TestTail(t *testing.T) {
	if got := tail("  short \n", 10); got != "short" {
		t.Fatalf("tail = %q", got)
	}
	if got := tail(strings.Repeat("a", 10)+"end", 3); got != "end" {
		t.Fatalf("tail = %q", got)
	}
}

func TestRun_MissingBinaryIsRenderError(t *testing.T) {
	var observed string
	a := New(Options{
		FFmpeg: filepath.Join(t.TempDir(), "no-such-ffmpeg"),
		Observe: func(op string, _ time.Duration, err error) {
			if err != nil {
				observed = op
			}
		},
	})
	err := a.RenderFiltered(context.Background(), "in.mp4", "scale=2:2", filepath.Join(t.TempDir(), "out.mp4"))
	var re *types.RenderError
	if !errors.As(err, &re) {
		t.Fatalf("expected *types.RenderError, got %T %v", err, err)
	}
	if re.Op != "render" || observed != "render" {
		t.Fatalf("unexpected op %q / observed %q", re.Op, observed)
	}
}

func TestProbeGeometry_MissingBinaryIsProbeError(t *testing.T) {
	a := New(Options{FFprobe: filepath.Join(t.TempDir(), "no-such-ffprobe")})
	_, err := a.ProbeGeometry(context.Background(), "in.mp4")
	var pe *types.ProbeError
	if !errors.As(err, &pe) || pe.Path != "in.mp4" {
		t.Fatalf("expected *types.ProbeError, got %T %v", err, err)
	}
}

func TestOpenFrames_InvalidSize(t *testing.T) {
	if _, err := New(Options{}).OpenFrames(context.Background(), "in.mp4", 0, 10); err == nil {
		t.Fatal("expected error")
	}
}
