package config

import (
	"errors"
	"fmt"
)

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := c.validateReframe(); err != nil {
		return err
	}
	if err := c.validateSubtitles(); err != nil {
		return err
	}
	if err := c.validateRun(); err != nil {
		return err
	}
	if c.Encoding.CRF < 0 || c.Encoding.CRF > 51 {
		return fmt.Errorf("encoding.crf must be between 0 and 51, got %d", c.Encoding.CRF)
	}
	return nil
}

func (c *Config) validateReframe() error {
	r := c.Reframe
	if !oneOf(r.Mode, "auto", "center", "face") {
		return fmt.Errorf("reframe.mode must be auto, center or face, got %q", r.Mode)
	}
	if !oneOf(r.Framing, "zoom", "letterbox") {
		return fmt.Errorf("reframe.framing must be zoom or letterbox, got %q", r.Framing)
	}
	if r.TargetWidth <= 0 || r.TargetHeight <= 0 {
		return fmt.Errorf("reframe target size must be positive, got %dx%d", r.TargetWidth, r.TargetHeight)
	}
	if r.DetectIntervalSeconds <= 0 {
		return errors.New("reframe.detect_interval_seconds must be positive")
	}
	if r.ConfidenceThreshold < 0 || r.DeadZone < 0 || r.AspectTolerance < 0 {
		return errors.New("reframe thresholds must not be negative")
	}
	if r.AnalysisWidth <= 0 {
		return errors.New("reframe.analysis_width must be positive")
	}
	return nil
}

func (c *Config) validateSubtitles() error {
	s := c.Subtitles
	if !oneOf(s.Position, "bottom", "middle", "top") {
		return fmt.Errorf("subtitles.position must be bottom, middle or top, got %q", s.Position)
	}
	if s.FontSize < 0 {
		return errors.New("subtitles.font_size must not be negative")
	}
	if s.OverlapTolerance < 0 {
		return errors.New("subtitles.overlap_tolerance must not be negative")
	}
	return nil
}

func (c *Config) validateRun() error {
	r := c.Run
	if r.Workers < 1 {
		return fmt.Errorf("run.workers must be at least 1, got %d", r.Workers)
	}
	if r.SkipExistingMinBytes < 0 {
		return errors.New("run.skip_existing_min_bytes must not be negative")
	}
	if !oneOf(r.LogFormat, "console", "json") {
		return fmt.Errorf("run.log_format must be console or json, got %q", r.LogFormat)
	}
	return nil
}

func oneOf(v string, allowed ...string) bool {
	for _, a := range allowed {
		if v == a {
			return true
		}
	}
	return false
}
