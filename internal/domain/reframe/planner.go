package reframe

import (
	"context"
	"errors"
	"fmt"
	"io"
	"math"

	"github.com/rs/zerolog"

	"github.com/forPelevin/hlfinish/internal/ports"
	"github.com/forPelevin/hlfinish/internal/types"
)

type Mode string

const (
	ModeAuto   Mode = "auto"
	ModeCenter Mode = "center"
	ModeFace   Mode = "face"
)

type Framing string

const (
	FramingZoom      Framing = "zoom"
	FramingLetterbox Framing = "letterbox"
)

type PlanKind string

const (
	PlanPassthrough PlanKind = "passthrough"
	PlanCenter      PlanKind = "center"
	PlanLetterbox   PlanKind = "letterbox"
	PlanTracked     PlanKind = "tracked"
)

type Params struct {
	TargetWidth         int
	TargetHeight        int
	Mode                Mode
	Framing             Framing
	DetectInterval      float64 // seconds between detections
	ConfidenceThreshold float64
	DeadZone            float64 // source pixels
	AspectTolerance     float64
	AnalysisWidth       int
}

func (p Params) ratio() float64 {
	return float64(p.TargetWidth) / float64(p.TargetHeight)
}

// Plan is the single static framing decision for one clip.
type Plan struct {
	Kind       PlanKind
	Window     types.CropWindow
	Source     types.VideoGeometry
	Frames     int
	Samples    int
	Detections int
	// Reason is set when tracking was requested but a fallback was used.
	Reason string
}

// Filter returns the transform expression for the plan, or "" for a
// passthrough.
func (p Plan) Filter(targetW, targetH int) string {
	switch p.Kind {
	case PlanPassthrough:
		return ""
	case PlanLetterbox:
		return ScalePadFilter(targetW, targetH)
	default:
		return CropScaleFilter(p.Window, targetW, targetH)
	}
}

// Planner decides one crop window per clip. detector may be nil, in which
// case every plan uses the centered policy.
type Planner struct {
	decoder  ports.FrameDecoder
	detector ports.FaceDetector
	log      zerolog.Logger
}

func NewPlanner(decoder ports.FrameDecoder, detector ports.FaceDetector, log zerolog.Logger) Planner {
	return Planner{decoder: decoder, detector: detector, log: log}
}

// Plan only returns an error for unusable geometry or a cancelled ctx. Every
// other failure degrades to a centered plan.
func (pl Planner) Plan(ctx context.Context, inMP4 string, src types.VideoGeometry, p Params) (Plan, error) {
	if src.Width <= 0 || src.Height <= 0 {
		return Plan{}, fmt.Errorf("plan: invalid source geometry %dx%d", src.Width, src.Height)
	}
	if math.Abs(src.Aspect()-p.ratio()) < p.AspectTolerance {
		return Plan{Kind: PlanPassthrough, Window: fullFrame(src), Source: src}, nil
	}
	if p.Mode == ModeCenter {
		return centered(src, p, ""), nil
	}
	if pl.detector == nil || pl.decoder == nil {
		return centered(src, p, types.ErrDetectionUnavailable.Error()), nil
	}
	if err := pl.detector.Ready(); err != nil {
		pl.log.Warn().Err(err).Msg("face detector not ready, using center crop")
		return centered(src, p, err.Error()), nil
	}
	return pl.track(ctx, inMP4, src, p)
}

func centered(src types.VideoGeometry, p Params, reason string) Plan {
	if p.Framing == FramingLetterbox {
		return Plan{Kind: PlanLetterbox, Window: fullFrame(src), Source: src, Reason: reason}
	}
	return Plan{Kind: PlanCenter, Window: TargetWindow(src, p.ratio()), Source: src, Reason: reason}
}

func (pl Planner) track(ctx context.Context, inMP4 string, src types.VideoGeometry, p Params) (Plan, error) {
	window := TargetWindow(src, p.ratio())
	aw, ah := analysisSize(src, p.AnalysisWidth)
	scale := float64(src.Width) / float64(aw)
	interval := SampleInterval(src.FPS, p.DetectInterval)

	frames, err := pl.decoder.OpenFrames(ctx, inMP4, aw, ah)
	if err != nil {
		pl.log.Warn().Err(err).Msg("frame decoding failed, using center crop")
		return centered(src, p, err.Error()), nil
	}
	defer frames.Close()
	// Closing the source is the only way to interrupt a blocked read.
	stop := context.AfterFunc(ctx, func() { _ = frames.Close() })
	defer stop()

	tr := NewTracker(src.Width, window.Width, p.DeadZone)
	plan := Plan{Kind: PlanTracked, Source: src}
	for i := 0; ; i++ {
		f, err := frames.Next()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			if ctx.Err() != nil {
				return Plan{}, ctx.Err()
			}
			if tr.Frames() == 0 {
				pl.log.Warn().Err(err).Msg("no frames decoded, using center crop")
				return centered(src, p, err.Error()), nil
			}
			pl.log.Warn().Err(err).Int("frames", tr.Frames()).Msg("frame decoding stopped early")
			break
		}
		if i%interval != 0 {
			tr.Hold()
			continue
		}

		plan.Samples++
		faces, err := pl.detector.Detect(f, p.ConfidenceThreshold)
		if errors.Is(err, types.ErrDetectionUnavailable) {
			pl.log.Warn().Err(err).Msg("face detector failed to load, using center crop")
			return centered(src, p, err.Error()), nil
		}
		if err != nil {
			pl.log.Debug().Err(err).Int("frame", i).Msg("detection failed on frame")
		}
		best, ok := largest(faces)
		if !ok {
			tr.Observe(nil)
			continue
		}
		plan.Detections++
		best.CenterX *= scale
		best.Area *= scale * scale
		tr.Observe(&best)
	}
	if ctx.Err() != nil {
		return Plan{}, ctx.Err()
	}

	left, ok := tr.Median()
	if !ok {
		return centered(src, p, "no frames decoded"), nil
	}
	window.X = int(clamp(math.Round(left), 0, float64(src.Width-window.Width)))
	plan.Window = window
	plan.Frames = tr.Frames()
	pl.log.Debug().
		Int("frames", plan.Frames).
		Int("samples", plan.Samples).
		Int("detections", plan.Detections).
		Int("x", window.X).
		Msg("face track aggregated")
	return plan, nil
}
