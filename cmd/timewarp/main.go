// Command timewarp drives the simulation headlessly: it replays recorded
// input in rewind mode, asks the planner for paths, submits committed ticks
// and verifies tick logs.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/caarlos0/env/v11"
	"github.com/spf13/cobra"
)

// Config holds the settings shared by every command. Environment variables
// set the defaults and flags override them.
type Config struct {
	ConfigDir string `env:"TIMEWARP_CONFIG_DIR" envDefault:"./configs"`
	DataDir   string `env:"TIMEWARP_DATA_DIR" envDefault:"./data"`
	LogLevel  string `env:"TIMEWARP_LOG_LEVEL" envDefault:"info"`
	SubmitURL string `env:"TIMEWARP_SUBMIT_URL"`
	Token     string `env:"TIMEWARP_TOKEN"`
	Seed      int64  `env:"TIMEWARP_SEED"`
}

func loadConfig() (Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return cfg, fmt.Errorf("parse env: %w", err)
	}
	return cfg, nil
}

func newLogger(level string) *slog.Logger {
	var lvl slog.Level
	switch strings.ToLower(level) {
	case "debug":
		lvl = slog.LevelDebug
	case "warn":
		lvl = slog.LevelWarn
	case "error":
		lvl = slog.LevelError
	default:
		lvl = slog.LevelInfo
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: lvl}))
}

func main() {
	cfg, err := loadConfig()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd(&cfg).ExecuteContext(ctx); err != nil {
		os.Exit(1)
	}
}

type app struct {
	cfg *Config
	log *slog.Logger
}

func newRootCmd(cfg *Config) *cobra.Command {
	a := &app{cfg: cfg}
	root := &cobra.Command{
		Use:          "timewarp",
		Short:        "Deterministic rewind, search and replay for the platformer simulation",
		SilenceUsage: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			a.log = newLogger(cfg.LogLevel)
			slog.SetDefault(a.log)
		},
	}
	pf := root.PersistentFlags()
	pf.StringVar(&cfg.ConfigDir, "configs", cfg.ConfigDir, "config directory holding tuning.yaml and maps/")
	pf.StringVar(&cfg.DataDir, "data", cfg.DataDir, "directory for tick logs, search logs and the index")
	pf.StringVar(&cfg.LogLevel, "log-level", cfg.LogLevel, "debug, info, warn or error")
	pf.Int64Var(&cfg.Seed, "seed", cfg.Seed, "override the start map's seed (0 keeps it)")

	root.AddCommand(
		newRunCmd(a),
		newSearchCmd(a),
		newReplayCmd(a),
		newRunsCmd(a),
		newServeCmd(a),
	)
	return root
}
