package pipeline

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/pelletier/go-toml/v2"
	"github.com/rs/zerolog"

	"github.com/forPelevin/hlfinish/internal/domain/subtitles"
	"github.com/forPelevin/hlfinish/internal/fileutil"
	"github.com/forPelevin/hlfinish/internal/ports"
	"github.com/forPelevin/hlfinish/internal/types"
)

// LoadJob reads a job file. Relative paths inside it resolve against the
// job file's directory and missing clip ids become 001, 002, ...
func LoadJob(path string) (types.Job, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return types.Job{}, fmt.Errorf("read job: %w", err)
	}
	var job types.Job
	if err := json.Unmarshal(b, &job); err != nil {
		return types.Job{}, fmt.Errorf("parse job %s: %w", path, err)
	}
	if len(job.Clips) == 0 {
		return types.Job{}, errors.New("job has no clips")
	}

	base := filepath.Dir(path)
	job.Source = resolvePath(base, job.Source)
	job.TranscriptFile = resolvePath(base, job.TranscriptFile)

	seen := make(map[string]bool, len(job.Clips))
	for i := range job.Clips {
		c := &job.Clips[i]
		if c.ID == "" {
			c.ID = fmt.Sprintf("%03d", i+1)
		}
		if normalizePathSegment(c.ID) != c.ID {
			return types.Job{}, fmt.Errorf("clip %d: id %q must be lowercase letters, digits and dashes", i+1, c.ID)
		}
		if seen[c.ID] {
			return types.Job{}, fmt.Errorf("clip %d: duplicate id %q", i+1, c.ID)
		}
		seen[c.ID] = true
		if c.StartSec < 0 || c.EndSec <= c.StartSec {
			return types.Job{}, fmt.Errorf("clip %s: invalid window %.2f-%.2f", c.ID, c.StartSec, c.EndSec)
		}
		c.File = resolvePath(base, c.File)
	}
	return job, nil
}

func resolvePath(base, p string) string {
	if p == "" || filepath.IsAbs(p) {
		return p
	}
	return filepath.Join(base, p)
}

// LoadTranscript accepts {"segments": [...]} or a bare segment array.
func LoadTranscript(path string) (types.Transcript, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return types.Transcript{}, fmt.Errorf("read transcript: %w", err)
	}
	b = bytes.TrimSpace(b)
	var tr types.Transcript
	if len(b) > 0 && b[0] == '[' {
		err = json.Unmarshal(b, &tr.Segments)
	} else {
		err = json.Unmarshal(b, &tr)
	}
	if err != nil {
		return types.Transcript{}, fmt.Errorf("parse transcript %s: %w", path, err)
	}
	return tr, nil
}

// LoadPresets reads the style preset table, one TOML table per key. An empty
// path yields no presets and the built-in style is used.
func LoadPresets(path string) (subtitles.Presets, error) {
	if path == "" {
		return nil, nil
	}
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read presets: %w", err)
	}
	var p subtitles.Presets
	if err := toml.Unmarshal(b, &p); err != nil {
		return nil, fmt.Errorf("parse presets %s: %w", path, err)
	}
	return p, nil
}

// transcriber produces a transcript for the job's source when it has none.
type transcriber struct {
	audio ports.Transcoder
	asr   ports.ASR
	log   zerolog.Logger
}

// resolveTranscript picks the inline transcript, then the transcript file,
// then ASR on the source. With none of them every clip skips subtitles.
func (t transcriber) resolveTranscript(ctx context.Context, job types.Job, cacheDir string) (*types.Transcript, error) {
	if job.Transcript != nil {
		return job.Transcript, nil
	}
	if job.TranscriptFile != "" {
		tr, err := LoadTranscript(job.TranscriptFile)
		if err != nil {
			return nil, err
		}
		return &tr, nil
	}
	if job.Source == "" || t.asr == nil {
		t.log.Warn().Msg("job has no transcript, clips will not be subtitled")
		return &types.Transcript{}, nil
	}

	if err := os.MkdirAll(cacheDir, 0o755); err != nil {
		return nil, err
	}
	wav := filepath.Join(cacheDir, "audio.wav")
	if !fileutil.SizeAtLeast(wav, 1024) {
		t.log.Info().Str("source", job.Source).Msg("extracting audio")
		if err := t.audio.ExtractAudioMono16k(ctx, job.Source, wav); err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			t.log.Warn().Err(err).Msg("audio extraction failed, clips will not be subtitled")
			return &types.Transcript{}, nil
		}
	}
	t.log.Info().Msg("transcribing")
	tr, err := t.asr.Transcribe(ctx, wav, cacheDir)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		t.log.Warn().Err(err).Msg("transcription failed, clips will not be subtitled")
		return &types.Transcript{}, nil
	}
	t.log.Info().Int("segments", len(tr.Segments)).Msg("transcript ready")
	return &tr, nil
}
