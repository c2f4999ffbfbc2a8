package config

// Default returns the configuration used when nothing else is set.
func Default() *Config {
	return &Config{
		Paths: Paths{
			OutDir:   "out",
			CacheDir: ".cache",
		},
		Tools: Tools{
			FFmpeg:  "ffmpeg",
			FFprobe: "ffprobe",
		},
		Reframe: Reframe{
			Enabled:               true,
			Mode:                  "auto",
			Framing:               "zoom",
			TargetWidth:           1080,
			TargetHeight:          1920,
			DetectIntervalSeconds: 0.17,
			ConfidenceThreshold:   5.0,
			DeadZone:              40,
			AspectTolerance:       0.05,
			AnalysisWidth:         480,
		},
		Subtitles: Subtitles{
			Enabled:          true,
			Position:         "bottom",
			OverlapTolerance: 1.0,
		},
		Encoding: Encoding{
			Preset: "fast",
			CRF:    18,
		},
		Run: Run{
			Workers:              1,
			SkipExistingMinBytes: 10000,
			LogLevel:             "info",
			LogFormat:            "console",
		},
	}
}
