// Package pigo detects faces with a pixel-intensity-comparison cascade.
package pigo

import (
	"fmt"
	"os"
	"sync"

	pigo "github.com/esimov/pigo/core"

	"github.com/forPelevin/hlfinish/internal/ports"
	"github.com/forPelevin/hlfinish/internal/types"
)

// iouThreshold merges overlapping detections of the same face.
const iouThreshold = 0.2

// Detector loads its cascade on first use. A missing or corrupt cascade file
// makes every call return types.ErrDetectionUnavailable.
type Detector struct {
	path string

	once       sync.Once
	classifier *pigo.Pigo
	loadErr    error
}

func New(cascadePath string) *Detector {
	return &Detector{path: cascadePath}
}

func (d *Detector) load() {
	d.once.Do(func() {
		if d.path == "" {
			d.loadErr = fmt.Errorf("%w: no cascade file configured", types.ErrDetectionUnavailable)
			return
		}
		b, err := os.ReadFile(d.path)
		if err != nil {
			d.loadErr = fmt.Errorf("%w: %v", types.ErrDetectionUnavailable, err)
			return
		}
		c, err := unpack(b)
		if err != nil {
			d.loadErr = fmt.Errorf("%w: unpack cascade: %v", types.ErrDetectionUnavailable, err)
			return
		}
		d.classifier = c
	})
}

// unpack converts the panics the cascade reader raises on truncated input
// into errors.
func unpack(b []byte) (c *pigo.Pigo, err error) {
	defer func() {
		if r := recover(); r != nil {
			c, err = nil, fmt.Errorf("corrupt cascade: %v", r)
		}
	}()
	return pigo.NewPigo().Unpack(b)
}

// Ready loads the cascade and reports whether detection can run.
func (d *Detector) Ready() error {
	d.load()
	return d.loadErr
}

// Detect runs the cascade on a grayscale frame. The classifier is read-only
// after loading, so concurrent calls are safe.
func (d *Detector) Detect(f ports.Frame, minConfidence float64) ([]types.FaceSample, error) {
	if err := d.Ready(); err != nil {
		return nil, err
	}
	if f.Width <= 0 || f.Height <= 0 || len(f.Pixels) < f.Width*f.Height {
		return nil, fmt.Errorf("detect: bad frame %dx%d with %d pixels", f.Width, f.Height, len(f.Pixels))
	}

	dets := d.classifier.RunCascade(pigo.CascadeParams{
		MinSize:     max(20, min(f.Width, f.Height)/12),
		MaxSize:     min(f.Width, f.Height),
		ShiftFactor: 0.1,
		ScaleFactor: 1.1,
		ImageParams: pigo.ImageParams{
			Pixels: f.Pixels,
			Rows:   f.Height,
			Cols:   f.Width,
			Dim:    f.Width,
		},
	}, 0)
	dets = d.classifier.ClusterDetections(dets, iouThreshold)

	return toSamples(dets, minConfidence), nil
}

func toSamples(dets []pigo.Detection, minConfidence float64) []types.FaceSample {
	out := make([]types.FaceSample, 0, len(dets))
	for _, det := range dets {
		q := float64(det.Q)
		if q < minConfidence {
			continue
		}
		side := float64(det.Scale)
		out = append(out, types.FaceSample{
			CenterX:    float64(det.Col),
			Area:       side * side,
			Confidence: q,
		})
	}
	return out
}

// Close releases the classifier. A detector that was never used is closed
// without reading its cascade. It must not race with Detect.
func (d *Detector) Close() error {
	closed := fmt.Errorf("%w: detector closed", types.ErrDetectionUnavailable)
	d.once.Do(func() { d.loadErr = closed })
	d.classifier = nil
	if d.loadErr == nil {
		d.loadErr = closed
	}
	return nil
}
