package usecase

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/rs/zerolog"

	"github.com/forPelevin/hlfinish/internal/domain/reframe"
	"github.com/forPelevin/hlfinish/internal/domain/subtitles"
	"github.com/forPelevin/hlfinish/internal/fileutil"
	"github.com/forPelevin/hlfinish/internal/metrics"
	"github.com/forPelevin/hlfinish/internal/ports"
	"github.com/forPelevin/hlfinish/internal/types"
)

// minRenderBytes is the smallest output accepted from a successful render.
const minRenderBytes = 1024

// Planner picks the static crop window for one clip.
type Planner interface {
	Plan(ctx context.Context, inMP4 string, src types.VideoGeometry, p reframe.Params) (reframe.Plan, error)
}

type Deps struct {
	Probe   ports.Prober
	Video   ports.Transcoder
	Planner Planner
	Metrics *metrics.Metrics
	Log     zerolog.Logger
}

// Settings apply to every clip of a batch.
type Settings struct {
	Crop    bool
	Reframe reframe.Params

	Subtitles        bool
	StyleKey         string // overrides per-clip and category styles
	FontSize         int
	Position         subtitles.Position
	OverlapTolerance float64
	Presets          subtitles.Presets

	// SkipExistingMinBytes gates reuse of outputs from an earlier run.
	SkipExistingMinBytes int64
}

// landscape targets keep the source framing.
func (s Settings) landscape() bool {
	return s.Reframe.TargetWidth > s.Reframe.TargetHeight
}

type Usecase struct {
	d   Deps
	set Settings
}

func New(d Deps, set Settings) Usecase {
	if set.OverlapTolerance <= 0 {
		set.OverlapTolerance = subtitles.DefaultOverlapTolerance
	}
	return Usecase{d: d, set: set}
}

// ClipJob names the input and output files of one clip.
type ClipJob struct {
	Clip        types.ClipWindow
	Transcript  *types.Transcript
	CroppedPath string
	ASSPath     string
	FinalPath   string
	// Previous is this clip's manifest entry from an earlier run in the same
	// directory, if any. It supplies the flags of a resumed clip.
	Previous    *types.ManifestClip
}

// ClipResult is the outcome of one clip. Err is set only when no final
// output exists.
type ClipResult struct {
	types.ManifestClip
	Err error
}

// FinishClip runs stage A (reframe) then stage B (subtitle burn) for one clip.
// Every recoverable failure degrades to passing the previous stage's video
// forward, so a clip only fails when not even a copy of its input could be
// produced.
func (u Usecase) FinishClip(ctx context.Context, job ClipJob) ClipResult {
	log := u.d.Log.With().Str("clip", job.Clip.ID).Logger()
	res := ClipResult{ManifestClip: types.ManifestClip{ID: job.Clip.ID, File: job.Clip.File}}

	fail := func(stage string, err error) ClipResult {
		u.d.Metrics.StageFailed(stage)
		res.Err = fmt.Errorf("clip %s: %w", job.Clip.ID, err)
		res.Error = err.Error()
		log.Error().Err(err).Str("stage", stage).Msg("clip failed")
		return res
	}

	if err := ctx.Err(); err != nil {
		return fail("canceled", err)
	}
	if !fileutil.Exists(job.Clip.File) {
		return fail("input", fmt.Errorf("input %s: %w", job.Clip.File, os.ErrNotExist))
	}

	if u.reusable(job.FinalPath) {
		resumed(&res, job, u.reusable(job.CroppedPath))
		log.Info().Str("final", job.FinalPath).Bool("subtitled", res.Subtitled).Msg("final output exists, skipping")
		u.d.Metrics.ClipFinished(res.Cropped, res.Subtitled)
		return res
	}

	video := job.Clip.File
	if u.set.Crop && !u.set.landscape() {
		out, err := u.stageCrop(ctx, log, job, &res)
		if err != nil {
			return fail("canceled", err)
		}
		video = out
	} else {
		res.Plan = "skipped"
	}

	if u.set.Subtitles {
		if err := u.stageBurn(ctx, log, job, video, &res); err == nil {
			res.Final = job.FinalPath
			u.d.Metrics.ClipFinished(res.Cropped, res.Subtitled)
			return res
		}
	}

	if err := fileutil.CopyFile(video, job.FinalPath); err != nil {
		return fail("finalize", fmt.Errorf("copy to final: %w", err))
	}
	res.Final = job.FinalPath
	u.d.Metrics.ClipFinished(res.Cropped, res.Subtitled)
	log.Info().Bool("cropped", res.Cropped).Bool("subtitled", res.Subtitled).Msg("clip finished")
	return res
}

// stageCrop returns the video that stage B should read. It only errors when
// ctx is done; other failures fall back to the uncropped input.
func (u Usecase) stageCrop(ctx context.Context, log zerolog.Logger, job ClipJob, res *ClipResult) (string, error) {
	in := job.Clip.File
	if u.reusable(job.CroppedPath) {
		res.Cropped = true
		res.Plan = "resumed"
		log.Info().Str("cropped", job.CroppedPath).Msg("cropped output exists, skipping reframe")
		return job.CroppedPath, nil
	}

	src, err := u.d.Probe.ProbeGeometry(ctx, in)
	if err != nil {
		if ctx.Err() != nil {
			return "", ctx.Err()
		}
		u.d.Metrics.StageFailed("probe")
		log.Warn().Err(err).Msg("probe failed, skipping reframe")
		res.Plan = "skipped"
		res.Error = err.Error()
		return in, nil
	}

	plan, err := u.d.Planner.Plan(ctx, in, src, u.set.Reframe)
	if err != nil {
		if ctx.Err() != nil {
			return "", ctx.Err()
		}
		u.d.Metrics.StageFailed("plan")
		log.Warn().Err(err).Msg("planning failed, skipping reframe")
		res.Plan = "skipped"
		res.Error = err.Error()
		return in, nil
	}
	u.d.Metrics.FaceSamples(plan.Detections, plan.Samples-plan.Detections)
	res.Plan = string(plan.Kind)
	window := plan.Window
	res.Crop = &window

	ev := log.Info().
		Str("plan", string(plan.Kind)).
		Int("x", window.X).
		Int("y", window.Y).
		Int("w", window.Width).
		Int("h", window.Height)
	if plan.Reason != "" {
		ev = ev.Str("reason", plan.Reason)
	}
	ev.Msg("crop window")

	if plan.Kind == reframe.PlanPassthrough {
		if err := fileutil.CopyFile(in, job.CroppedPath); err != nil {
			u.d.Metrics.StageFailed("crop")
			log.Warn().Err(err).Msg("passthrough copy failed")
			res.Crop = nil
			return in, nil
		}
		res.Cropped = true
		return job.CroppedPath, nil
	}

	filter := plan.Filter(u.set.Reframe.TargetWidth, u.set.Reframe.TargetHeight)
	if err := u.render(ctx, job.CroppedPath, func() error {
		return u.d.Video.RenderFiltered(ctx, in, filter, job.CroppedPath)
	}); err != nil {
		if ctx.Err() != nil {
			return "", ctx.Err()
		}
		u.d.Metrics.StageFailed("crop")
		logRenderError(log, "crop render failed, using uncropped input", err)
		res.Error = err.Error()
		return in, nil
	}
	res.Cropped = true
	return job.CroppedPath, nil
}

// stageBurn writes the subtitle document and burns it into the final path.
// A nil error means the final output was produced by the burn.
func (u Usecase) stageBurn(ctx context.Context, log zerolog.Logger, job ClipJob, video string, res *ClipResult) error {
	var segs []types.Segment
	if job.Transcript != nil {
		segs = subtitles.ExtractWindow(job.Transcript.Segments, job.Clip, u.set.OverlapTolerance)
	}

	w, h := u.set.Reframe.TargetWidth, u.set.Reframe.TargetHeight
	if g, err := u.d.Probe.ProbeGeometry(ctx, video); err == nil {
		w, h = g.Width, g.Height
	} else {
		log.Warn().Err(err).Msg("probe for subtitle canvas failed, using target size")
	}

	key := job.Clip.StyleKey
	if u.set.StyleKey != "" {
		key = u.set.StyleKey
	}
	st, used := subtitles.ResolveStyle(u.set.Presets, subtitles.StyleRequest{
		Key:         key,
		Category:    job.Clip.Category,
		VideoWidth:  w,
		VideoHeight: h,
		FontSize:    u.set.FontSize,
		Position:    u.set.Position,
	})
	res.StyleUsed = used

	events := subtitles.Synthesize(subtitles.CollectWords(segs, st.RemovePunctuation), st)
	res.Events = len(events)
	if len(events) == 0 {
		log.Info().Err(types.ErrEmptyTranscriptWindow).Msg("nothing to subtitle")
		return types.ErrEmptyTranscriptWindow
	}

	if err := os.MkdirAll(filepath.Dir(job.ASSPath), 0o755); err != nil {
		return err
	}
	if err := subtitles.WriteDocument(job.ASSPath, st, events); err != nil {
		u.d.Metrics.StageFailed("subtitles")
		log.Warn().Err(err).Msg("write subtitle document failed")
		res.Error = err.Error()
		return err
	}

	if err := u.render(ctx, job.FinalPath, func() error {
		return u.d.Video.BurnSubtitles(ctx, video, job.ASSPath, job.FinalPath)
	}); err != nil {
		u.d.Metrics.StageFailed("burn")
		logRenderError(log, "burn failed, keeping unsubtitled video", err)
		res.Error = err.Error()
		return err
	}
	res.Subtitled = true
	log.Info().Str("style", used).Int("events", len(events)).Msg("subtitles burned")
	return nil
}

// render runs fn and accepts its output only if the file is non-trivial.
// Partial outputs are removed.
func (u Usecase) render(ctx context.Context, out string, fn func() error) error {
	if err := os.MkdirAll(filepath.Dir(out), 0o755); err != nil {
		return err
	}
	err := fn()
	if err == nil && !fileutil.SizeAtLeast(out, minRenderBytes) {
		err = &types.RenderError{Op: filepath.Base(out), Err: errors.New("output missing or too small")}
	}
	if err != nil {
		_ = os.Remove(out)
	}
	return err
}

// resumed reports a reused final output. Without an earlier manifest entry
// the clip is assumed to have passed both stages.
func resumed(res *ClipResult, job ClipJob, croppedExists bool) {
	res.Final = job.FinalPath
	res.Plan = "resumed"
	if prev := job.Previous; prev != nil {
		res.Cropped = prev.Cropped
		res.Subtitled = prev.Subtitled
		res.StyleUsed = prev.StyleUsed
		res.Crop = prev.Crop
		res.Events = prev.Events
		res.Error = prev.Error
		return
	}
	res.Cropped = croppedExists
	res.Subtitled = true
}

func (u Usecase) reusable(path string) bool {
	return u.set.SkipExistingMinBytes > 0 && fileutil.SizeAtLeast(path, u.set.SkipExistingMinBytes)
}

func logRenderError(log zerolog.Logger, msg string, err error) {
	var re *types.RenderError
	if errors.As(err, &re) {
		log.Error().Str("op", re.Op).AnErr("cause", re.Err).Str("stderr", re.Tail).Msg(msg)
		return
	}
	log.Error().Err(err).Msg(msg)
}
