package whispercpp

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/forPelevin/hlfinish/internal/types"
)

// ErrNotConfigured is returned when no binary or model was given.
var ErrNotConfigured = errors.New("whisper.cpp not configured")

type Adapter struct {
	bin   string
	model string
}

func New(binPath, modelPath string) *Adapter {
	return &Adapter{bin: binPath, model: modelPath}
}

func (a *Adapter) Configured() bool {
	return a.bin != "" && a.model != ""
}

// Transcribe runs whisper.cpp on a 16 kHz mono wav and returns the segments.
// The JSON output is cached in cacheDir and reused on the next call.
func (a *Adapter) Transcribe(ctx context.Context, wavPath, cacheDir string) (types.Transcript, error) {
	outPrefix := filepath.Join(cacheDir, "whisper")
	if jb, err := os.ReadFile(outPrefix + ".json"); err == nil {
		if tr, err := parseOutput(jb); err == nil && len(tr.Segments) > 0 {
			return tr, nil
		}
	}
	if !a.Configured() {
		return types.Transcript{}, ErrNotConfigured
	}

	cmd := exec.CommandContext(ctx, a.bin,
		"-m", a.model,
		"-f", wavPath,
		"-oj",
		"-of", outPrefix,
	)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		return types.Transcript{}, fmt.Errorf("whisper.cpp failed: %w\n%s", err, strings.TrimSpace(stderr.String()))
	}

	jb, err := os.ReadFile(outPrefix + ".json")
	if err != nil {
		return types.Transcript{}, err
	}
	return parseOutput(jb)
}

type output struct {
	Transcription []struct {
		Offsets struct {
			From int64 `json:"from"`
			To   int64 `json:"to"`
		} `json:"offsets"`
		Text string `json:"text"`
	} `json:"transcription"`
	Segments []types.Segment `json:"segments"`
}

// parseOutput accepts whisper.cpp's native JSON (millisecond offsets) and the
// plain segments shape used by job files.
func parseOutput(b []byte) (types.Transcript, error) {
	var out output
	if err := json.Unmarshal(b, &out); err != nil {
		return types.Transcript{}, fmt.Errorf("decode whisper json: %w", err)
	}

	var tr types.Transcript
	if len(out.Transcription) > 0 {
		tr.Segments = make([]types.Segment, 0, len(out.Transcription))
		for _, t := range out.Transcription {
			text := strings.TrimSpace(t.Text)
			if text == "" {
				continue
			}
			tr.Segments = append(tr.Segments, types.Segment{
				Start: float64(t.Offsets.From) / 1000,
				End:   float64(t.Offsets.To) / 1000,
				Text:  text,
			})
		}
		return tr, nil
	}

	tr.Segments = out.Segments
	for i := range tr.Segments {
		tr.Segments[i].Text = strings.TrimSpace(tr.Segments[i].Text)
		for j := range tr.Segments[i].Words {
			tr.Segments[i].Words[j].Word = strings.TrimSpace(tr.Segments[i].Words[j].Word)
		}
	}
	return tr, nil
}
