package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
	"github.com/pelletier/go-toml/v2"
)

// DefaultPath is read when no --config flag is given. It may be absent.
const DefaultPath = "hlfinish.toml"

// EnvPrefix namespaces every environment override, e.g. HLFINISH_REFRAME_MODE.
const EnvPrefix = "HLFINISH_"

type Paths struct {
	OutDir      string `toml:"out_dir" env:"OUT_DIR"`
	CacheDir    string `toml:"cache_dir" env:"CACHE_DIR"`
	PresetsFile string `toml:"presets_file" env:"PRESETS_FILE"`
	CascadeFile string `toml:"cascade_file" env:"CASCADE_FILE"`
}

type Tools struct {
	FFmpeg       string `toml:"ffmpeg" env:"FFMPEG"`
	FFprobe      string `toml:"ffprobe" env:"FFPROBE"`
	WhisperBin   string `toml:"whisper_bin" env:"WHISPER_BIN"`
	WhisperModel string `toml:"whisper_model" env:"WHISPER_MODEL"`
}

// Reframe controls stage A. ConfidenceThreshold is the detector's quality
// score, not a probability.
type Reframe struct {
	Enabled               bool    `toml:"enabled" env:"ENABLED"`
	Mode                  string  `toml:"mode" env:"MODE"`
	Framing               string  `toml:"framing" env:"FRAMING"`
	TargetWidth           int     `toml:"target_width" env:"TARGET_WIDTH"`
	TargetHeight          int     `toml:"target_height" env:"TARGET_HEIGHT"`
	DetectIntervalSeconds float64 `toml:"detect_interval_seconds" env:"DETECT_INTERVAL_SECONDS"`
	ConfidenceThreshold   float64 `toml:"confidence_threshold" env:"CONFIDENCE_THRESHOLD"`
	DeadZone              float64 `toml:"dead_zone" env:"DEAD_ZONE"`
	AspectTolerance       float64 `toml:"aspect_tolerance" env:"ASPECT_TOLERANCE"`
	AnalysisWidth         int     `toml:"analysis_width" env:"ANALYSIS_WIDTH"`
}

type Subtitles struct {
	Enabled          bool    `toml:"enabled" env:"ENABLED"`
	StyleKey         string  `toml:"style_key" env:"STYLE_KEY"`
	FontSize         int     `toml:"font_size" env:"FONT_SIZE"`
	Position         string  `toml:"position" env:"POSITION"`
	OverlapTolerance float64 `toml:"overlap_tolerance" env:"OVERLAP_TOLERANCE"`
}

type Encoding struct {
	Preset string `toml:"preset" env:"PRESET"`
	CRF    int    `toml:"crf" env:"CRF"`
}

type Run struct {
	Workers              int    `toml:"workers" env:"WORKERS"`
	SkipExistingMinBytes int64  `toml:"skip_existing_min_bytes" env:"SKIP_EXISTING_MIN_BYTES"`
	MetricsFile          string `toml:"metrics_file" env:"METRICS_FILE"`
	LogLevel             string `toml:"log_level" env:"LOG_LEVEL"`
	LogFormat            string `toml:"log_format" env:"LOG_FORMAT"`
}

// Config is the full hlfinish configuration.
//
// Priority: CLI flags > HLFINISH_* environment (including .env) > TOML file >
// defaults.
type Config struct {
	Paths     Paths     `toml:"paths" envPrefix:"PATHS_"`
	Tools     Tools     `toml:"tools" envPrefix:"TOOLS_"`
	Reframe   Reframe   `toml:"reframe" envPrefix:"REFRAME_"`
	Subtitles Subtitles `toml:"subtitles" envPrefix:"SUBTITLES_"`
	Encoding  Encoding  `toml:"encoding" envPrefix:"ENCODING_"`
	Run       Run       `toml:"run" envPrefix:"RUN_"`
}

// Overrides carries CLI flag values. Zero values leave the config untouched.
type Overrides struct {
	EnvFile     string
	OutDir      string
	Mode        string
	Framing     string
	Width       int
	Height      int
	StyleKey    string
	FontSize    int
	Position    string
	Workers     int
	NoCrop      bool
	NoSubtitles bool
	MetricsFile string
	LogLevel    string
}

// Load builds the configuration from defaults, the TOML file at path, the
// environment and the overrides, then validates it. A missing file is only an
// error when explicit is true.
func Load(path string, explicit bool, o Overrides) (*Config, error) {
	envFile := o.EnvFile
	if envFile == "" {
		envFile = ".env"
	}
	if _, err := os.Stat(envFile); err == nil {
		_ = godotenv.Load(envFile)
	}

	cfg := Default()
	if path == "" {
		path = DefaultPath
	}
	b, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := toml.Unmarshal(b, cfg); err != nil {
			return nil, fmt.Errorf("parse config %s: %w", path, err)
		}
	case errors.Is(err, fs.ErrNotExist) && !explicit:
	default:
		return nil, fmt.Errorf("read config: %w", err)
	}

	if err := env.ParseWithOptions(cfg, env.Options{Prefix: EnvPrefix}); err != nil {
		return nil, fmt.Errorf("parse environment: %w", err)
	}

	cfg.apply(o)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) apply(o Overrides) {
	if o.OutDir != "" {
		c.Paths.OutDir = o.OutDir
	}
	if o.Mode != "" {
		c.Reframe.Mode = o.Mode
	}
	if o.Framing != "" {
		c.Reframe.Framing = o.Framing
	}
	if o.Width > 0 && o.Height > 0 {
		c.Reframe.TargetWidth = o.Width
		c.Reframe.TargetHeight = o.Height
	}
	if o.StyleKey != "" {
		c.Subtitles.StyleKey = o.StyleKey
	}
	if o.FontSize > 0 {
		c.Subtitles.FontSize = o.FontSize
	}
	if o.Position != "" {
		c.Subtitles.Position = o.Position
	}
	if o.Workers > 0 {
		c.Run.Workers = o.Workers
	}
	if o.NoCrop {
		c.Reframe.Enabled = false
	}
	if o.NoSubtitles {
		c.Subtitles.Enabled = false
	}
	if o.MetricsFile != "" {
		c.Run.MetricsFile = o.MetricsFile
	}
	if o.LogLevel != "" {
		c.Run.LogLevel = o.LogLevel
	}
}
