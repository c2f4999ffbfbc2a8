package reframe

import (
	"math"
	"sort"

	"github.com/forPelevin/hlfinish/internal/types"
)

const (
	heldWeight  = 0.7
	idealWeight = 0.3
)

// Tracker holds the crop-left position across frames. It records one held
// value per decoded frame.
type Tracker struct {
	cropW    float64
	maxLeft  float64
	deadZone float64
	held     float64
	values   []float64
}

func NewTracker(srcWidth, cropWidth int, deadZone float64) *Tracker {
	maxLeft := float64(srcWidth - cropWidth)
	if maxLeft < 0 {
		maxLeft = 0
	}
	return &Tracker{
		cropW:    float64(cropWidth),
		maxLeft:  maxLeft,
		deadZone: deadZone,
		held:     math.Floor(maxLeft / 2),
	}
}

// Ideal is the crop-left that centers a face at centerX, clamped to the frame.
func (t *Tracker) Ideal(centerX float64) float64 {
	return clamp(centerX-t.cropW/2, 0, t.maxLeft)
}

// Observe records a sampled frame. A nil face holds the previous position.
func (t *Tracker) Observe(face *types.FaceSample) {
	if face != nil {
		ideal := t.Ideal(face.CenterX)
		if math.Abs(ideal-t.held) > t.deadZone {
			t.held = heldWeight*t.held + idealWeight*ideal
		}
	}
	t.values = append(t.values, t.held)
}

// Hold records a frame between samples.
func (t *Tracker) Hold() {
	t.values = append(t.values, t.held)
}

func (t *Tracker) Held() float64 { return t.held }

func (t *Tracker) Frames() int { return len(t.values) }

// Median of all per-frame held values. ok is false when no frame was seen.
func (t *Tracker) Median() (float64, bool) {
	return median(t.values)
}

func median(values []float64) (float64, bool) {
	n := len(values)
	if n == 0 {
		return 0, false
	}
	s := append([]float64(nil), values...)
	sort.Float64s(s)
	if n%2 == 1 {
		return s[n/2], true
	}
	return (s[n/2-1] + s[n/2]) / 2, true
}

// largest picks the face with the biggest area. Ties keep the first one.
func largest(faces []types.FaceSample) (types.FaceSample, bool) {
	if len(faces) == 0 {
		return types.FaceSample{}, false
	}
	best := faces[0]
	for _, f := range faces[1:] {
		if f.Area > best.Area {
			best = f
		}
	}
	return best, true
}

func clamp(x, a, b float64) float64 {
	if x < a {
		return a
	}
	if x > b {
		return b
	}
	return x
}
