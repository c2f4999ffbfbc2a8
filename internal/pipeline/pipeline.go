package pipeline

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"
	"unicode"

	"github.com/gofrs/flock"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/forPelevin/hlfinish/internal/config"
	"github.com/forPelevin/hlfinish/internal/domain/reframe"
	"github.com/forPelevin/hlfinish/internal/domain/subtitles"
	"github.com/forPelevin/hlfinish/internal/metrics"
	"github.com/forPelevin/hlfinish/internal/ports"
	"github.com/forPelevin/hlfinish/internal/ports/adapters/ffmpeg"
	"github.com/forPelevin/hlfinish/internal/ports/adapters/pigo"
	"github.com/forPelevin/hlfinish/internal/ports/adapters/whispercpp"
	"github.com/forPelevin/hlfinish/internal/types"
	"github.com/forPelevin/hlfinish/internal/usecase"
)

const lockFile = ".hlfinish.lock"

// ErrRunLocked is returned when another process holds the run directory.
var ErrRunLocked = errors.New("run directory is locked by another process")

type Config struct {
	JobFile string
	// ResumeDir reuses an earlier run directory instead of creating one.
	ResumeDir string
	App       *config.Config
	Log       zerolog.Logger
	Progress  usecase.Progress
}

func (c Config) Validate() error {
	if c.JobFile == "" {
		return errors.New("job file is empty")
	}
	if _, err := os.Stat(c.JobFile); err != nil {
		return fmt.Errorf("stat job: %w", err)
	}
	if c.ResumeDir != "" {
		st, err := os.Stat(c.ResumeDir)
		if err != nil {
			return fmt.Errorf("stat resume dir: %w", err)
		}
		if !st.IsDir() {
			return fmt.Errorf("resume dir %s is not a directory", c.ResumeDir)
		}
	}
	if c.App == nil {
		return errors.New("config is nil")
	}
	return c.App.Validate()
}

type Result struct {
	RunDir   string
	Manifest types.Manifest
	Clips    []usecase.ClipResult
}

// Run finishes every clip of the job. The manifest is written even when some
// clips fail; the returned error then joins their failures.
func Run(ctx context.Context, cfg Config) (Result, error) {
	if err := cfg.Validate(); err != nil {
		return Result{}, err
	}
	app := cfg.App
	runID := uuid.NewString()
	log := cfg.Log.With().Str("run", runID).Logger()

	job, err := LoadJob(cfg.JobFile)
	if err != nil {
		return Result{}, err
	}
	presets, err := LoadPresets(app.Paths.PresetsFile)
	if err != nil {
		return Result{}, err
	}

	runDir := cfg.ResumeDir
	if runDir == "" {
		runDir = buildRunOutDir(app.Paths.OutDir, cfg.JobFile, time.Now().UTC())
	}
	for _, d := range []string{"cropped", "subtitles", "final"} {
		if err := os.MkdirAll(filepath.Join(runDir, d), 0o755); err != nil {
			return Result{}, err
		}
	}
	lock := flock.New(filepath.Join(runDir, lockFile))
	locked, err := lock.TryLock()
	if err != nil {
		return Result{}, fmt.Errorf("lock run dir: %w", err)
	}
	if !locked {
		return Result{}, fmt.Errorf("%w: %s", ErrRunLocked, runDir)
	}
	defer lock.Unlock()
	log.Info().Str("dir", runDir).Int("clips", len(job.Clips)).Msg("output run dir")

	m := metrics.New()
	video := ffmpeg.New(ffmpeg.Options{
		FFmpeg:  app.Tools.FFmpeg,
		FFprobe: app.Tools.FFprobe,
		Preset:  app.Encoding.Preset,
		CRF:     app.Encoding.CRF,
		Observe: m.ObserveTranscoder,
	})

	var asr ports.ASR
	if w := whispercpp.New(app.Tools.WhisperBin, app.Tools.WhisperModel); w.Configured() {
		asr = w
	}
	cacheDir := filepath.Join(app.Paths.CacheDir, "runs", hash(job.Source))
	tr, err := transcriber{audio: video, asr: asr, log: log}.resolveTranscript(ctx, job, cacheDir)
	if err != nil {
		return Result{}, err
	}

	var detector ports.FaceDetector
	if app.Reframe.Enabled && app.Reframe.Mode != string(reframe.ModeCenter) && app.Paths.CascadeFile != "" {
		d := pigo.New(app.Paths.CascadeFile)
		defer d.Close()
		detector = d
	}

	uc := usecase.New(usecase.Deps{
		Probe:   video,
		Video:   video,
		Planner: reframe.NewPlanner(video, detector, log),
		Metrics: m,
		Log:     log,
	}, settings(app, presets))

	previous := map[string]*types.ManifestClip{}
	if cfg.ResumeDir != "" {
		previous = readPreviousManifest(filepath.Join(runDir, "manifest.json"), log)
	}

	jobs := make([]usecase.ClipJob, 0, len(job.Clips))
	for _, c := range job.Clips {
		jobs = append(jobs, usecase.ClipJob{
			Previous:    previous[c.ID],
			Clip:        c,
			Transcript:  tr,
			CroppedPath: filepath.Join(runDir, "cropped", c.ID+".mp4"),
			ASSPath:     filepath.Join(runDir, "subtitles", c.ID+".ass"),
			FinalPath:   filepath.Join(runDir, "final", c.ID+".mp4"),
		})
	}

	results, batchErr := uc.RunBatch(ctx, jobs, app.Run.Workers, cfg.Progress)

	manifest := buildManifest(cfg.JobFile, runID, runDir, results)
	if err := writeManifest(filepath.Join(runDir, "manifest.json"), manifest); err != nil {
		return Result{}, errors.Join(batchErr, err)
	}
	log.Info().Int("clips", len(manifest.Clips)).Msg("manifest written")

	if app.Run.MetricsFile != "" {
		if err := m.WriteTextfile(app.Run.MetricsFile); err != nil {
			log.Warn().Err(err).Str("path", app.Run.MetricsFile).Msg("write metrics failed")
		}
	}

	return Result{RunDir: runDir, Manifest: manifest, Clips: results}, batchErr
}

func settings(app *config.Config, presets subtitles.Presets) usecase.Settings {
	r := app.Reframe
	return usecase.Settings{
		Crop: r.Enabled,
		Reframe: reframe.Params{
			TargetWidth:         r.TargetWidth,
			TargetHeight:        r.TargetHeight,
			Mode:                reframe.Mode(r.Mode),
			Framing:             reframe.Framing(r.Framing),
			DetectInterval:      r.DetectIntervalSeconds,
			ConfidenceThreshold: r.ConfidenceThreshold,
			DeadZone:            r.DeadZone,
			AspectTolerance:     r.AspectTolerance,
			AnalysisWidth:       r.AnalysisWidth,
		},
		Subtitles:            app.Subtitles.Enabled,
		StyleKey:             app.Subtitles.StyleKey,
		FontSize:             app.Subtitles.FontSize,
		Position:             subtitles.Position(app.Subtitles.Position),
		OverlapTolerance:     app.Subtitles.OverlapTolerance,
		Presets:              presets,
		SkipExistingMinBytes: app.Run.SkipExistingMinBytes,
	}
}

func buildManifest(jobFile, runID, runDir string, results []usecase.ClipResult) types.Manifest {
	m := types.Manifest{Job: jobFile, RunID: runID, Clips: make([]types.ManifestClip, 0, len(results))}
	for _, r := range results {
		c := r.ManifestClip
		if c.Final != "" {
			if rel, err := filepath.Rel(runDir, c.Final); err == nil {
				c.Final = filepath.ToSlash(rel)
			}
		}
		m.Clips = append(m.Clips, c)
	}
	return m
}

// readPreviousManifest indexes the clips of an earlier run's manifest by id.
// Only clips that ended with a final output are kept. A missing or unreadable
// manifest yields an empty index.
func readPreviousManifest(path string, log zerolog.Logger) map[string]*types.ManifestClip {
	out := map[string]*types.ManifestClip{}
	b, err := os.ReadFile(path)
	if err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			log.Warn().Err(err).Str("path", path).Msg("read previous manifest failed")
		}
		return out
	}
	var m types.Manifest
	if err := json.Unmarshal(b, &m); err != nil {
		log.Warn().Err(err).Str("path", path).Msg("previous manifest is not valid json, ignoring it")
		return out
	}
	for i := range m.Clips {
		if c := &m.Clips[i]; c.Final != "" {
			out[c.ID] = c
		}
	}
	return out
}

func writeManifest(path string, m types.Manifest) error {
	b, err := json.MarshalIndent(m, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal manifest: %w", err)
	}
	return os.WriteFile(path, b, 0o644)
}

func buildRunOutDir(outRoot, jobFile string, now time.Time) string {
	name := strings.TrimSuffix(filepath.Base(jobFile), filepath.Ext(jobFile))
	name = normalizePathSegment(name)
	if name == "" {
		name = "job"
	}
	ts := now.UTC().Format("20060102-150405Z")
	runSeed := fmt.Sprintf("%s|%d", jobFile, now.UTC().UnixNano())
	suffix := hash(runSeed)[:6]
	return filepath.Join(outRoot, fmt.Sprintf("%s-%s-%s", name, ts, suffix))
}

func normalizePathSegment(s string) string {
	var b strings.Builder
	prevDash := false
	for _, r := range strings.ToLower(strings.TrimSpace(s)) {
		switch {
		case unicode.IsLetter(r), unicode.IsDigit(r):
			b.WriteRune(r)
			prevDash = false
		default:
			if !prevDash {
				b.WriteByte('-')
				prevDash = true
			}
		}
	}
	return strings.Trim(b.String(), "-")
}

func hash(s string) string {
	sum := sha256.Sum256([]byte(s))
	return hex.EncodeToString(sum[:])[:12]
}

// ensure adapters implement ports
var (
	_ ports.Prober       = (*ffmpeg.Adapter)(nil)
	_ ports.Transcoder   = (*ffmpeg.Adapter)(nil)
	_ ports.FrameDecoder = (*ffmpeg.Adapter)(nil)
	_ ports.FaceDetector = (*pigo.Detector)(nil)
	_ ports.ASR          = (*whispercpp.Adapter)(nil)
)
