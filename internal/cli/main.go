package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

func Main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:          "hlfinish <job.json>",
		Short:        "Reframe clips to vertical and burn word-synced subtitles",
		Args:         cobra.ExactArgs(1),
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd, args[0])
		},
	}

	root.SetOut(os.Stdout)
	root.SetErr(os.Stderr)
	root.SilenceErrors = true

	f := root.Flags()
	f.String("config", "", "Config file (default hlfinish.toml if present)")
	f.String("env-file", "", "Dotenv file loaded before reading HLFINISH_* variables (default .env)")
	f.String("out", "", "Output directory")
	f.String("resume", "", "Reuse an existing run directory")
	f.String("mode", "", "Reframe mode: auto, center or face")
	f.String("framing", "", "Framing: zoom or letterbox")
	f.String("size", "", "Target frame size WxH, e.g. 1080x1920")
	f.String("style", "", "Subtitle style key for every clip")
	f.Int("font-size", 0, "Subtitle font size override")
	f.String("position", "", "Subtitle position: bottom, middle or top")
	f.Int("workers", 0, "Clips finished in parallel")
	f.Bool("no-crop", false, "Skip reframing")
	f.Bool("no-subtitles", false, "Skip the subtitle burn")
	f.String("metrics-file", "", "Write prometheus metrics to this file after the run")
	f.String("log-level", "", "Log level")

	return root
}
