package cli

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/forPelevin/hlfinish/internal/config"
	"github.com/forPelevin/hlfinish/internal/logging"
	"github.com/forPelevin/hlfinish/internal/pipeline"
	"github.com/forPelevin/hlfinish/internal/usecase"
)

func run(cmd *cobra.Command, jobFile string) error {
	o, err := overridesFromFlags(cmd)
	if err != nil {
		return err
	}
	cfgPath, _ := cmd.Flags().GetString("config")
	resume, _ := cmd.Flags().GetString("resume")

	app, err := config.Load(cfgPath, cfgPath != "", o)
	if err != nil {
		return fmt.Errorf("config: %w", err)
	}
	log, err := logging.New(app.Run.LogLevel, app.Run.LogFormat, cmd.ErrOrStderr())
	if err != nil {
		return fmt.Errorf("config: %w", err)
	}

	absJob, err := filepath.Abs(jobFile)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg := pipeline.Config{
		JobFile:   absJob,
		ResumeDir: resume,
		App:       app,
		Log:       log,
		Progress: func(done, total int, r usecase.ClipResult) {
			ev := log.Info()
			if r.Err != nil {
				ev = log.Warn().Err(r.Err)
			}
			ev.Str("clip", r.ID).Int("done", done).Int("total", total).Msg("progress")
		},
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("config: %w", err)
	}

	res, err := pipeline.Run(ctx, cfg)
	if len(res.Manifest.Clips) > 0 {
		fmt.Fprintln(cmd.OutOrStdout(), renderSummary(res))
		fmt.Fprintf(cmd.OutOrStdout(), "manifest: %s\n", filepath.Join(res.RunDir, "manifest.json"))
	}
	if errors.Is(err, context.Canceled) {
		return errors.New("interrupted")
	}
	return err
}

func overridesFromFlags(cmd *cobra.Command) (config.Overrides, error) {
	f := cmd.Flags()
	var o config.Overrides
	o.EnvFile, _ = f.GetString("env-file")
	o.OutDir, _ = f.GetString("out")
	o.Mode, _ = f.GetString("mode")
	o.Framing, _ = f.GetString("framing")
	o.StyleKey, _ = f.GetString("style")
	o.FontSize, _ = f.GetInt("font-size")
	o.Position, _ = f.GetString("position")
	o.Workers, _ = f.GetInt("workers")
	o.NoCrop, _ = f.GetBool("no-crop")
	o.NoSubtitles, _ = f.GetBool("no-subtitles")
	o.MetricsFile, _ = f.GetString("metrics-file")
	o.LogLevel, _ = f.GetString("log-level")

	if f.Changed("workers") && o.Workers < 1 {
		return o, fmt.Errorf("--workers must be >= 1, got %d", o.Workers)
	}
	if f.Changed("font-size") && o.FontSize < 1 {
		return o, fmt.Errorf("--font-size must be >= 1, got %d", o.FontSize)
	}
	if size, _ := f.GetString("size"); size != "" {
		w, h, err := parseSize(size)
		if err != nil {
			return o, err
		}
		o.Width, o.Height = w, h
	}
	return o, nil
}

// parseSize reads "WxH", e.g. 1080x1920.
func parseSize(s string) (int, int, error) {
	ws, hs, ok := strings.Cut(strings.ToLower(strings.TrimSpace(s)), "x")
	if !ok {
		return 0, 0, fmt.Errorf("invalid --size %q: want WxH", s)
	}
	w, err := strconv.Atoi(ws)
	if err != nil {
		return 0, 0, fmt.Errorf("invalid --size %q: %w", s, err)
	}
	h, err := strconv.Atoi(hs)
	if err != nil {
		return 0, 0, fmt.Errorf("invalid --size %q: %w", s, err)
	}
	if w <= 0 || h <= 0 {
		return 0, 0, fmt.Errorf("invalid --size %q: dimensions must be positive", s)
	}
	return w, h, nil
}
