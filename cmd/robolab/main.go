package main

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/nhle/robolab-console/internal/credential"
	"github.com/nhle/robolab-console/internal/model"
)

func main() {
	cfgPath := os.Getenv("ROBOLAB_CONFIG")
	if cfgPath == "" {
		cfgPath = model.DefaultConfigPath()
	}

	cfg, err := model.LoadConfig(cfgPath)
	errAndDie(err)

	logger, logFile, err := newLogger(cfg.Log)
	errAndDie(err)
	defer logFile.Close()

	vault, err := credential.Open(model.ConfigDir())
	errAndDie(err)

	cli := commandLine{
		cfg:     cfg,
		cfgPath: cfgPath,
		logger:  logger,
		vault:   vault,
		stdout:  os.Stdout,
	}
	if err := cli.run(os.Args); err != nil {
		if !errors.Is(err, errHelp) {
			fmt.Fprintf(os.Stderr, "error: %s\n", err)
		}
		logFile.Close()
		os.Exit(1)
	}
}

// newLogger opens the log file for appending. The terminal belongs to the
// UI, so nothing is logged to stdout or stderr.
func newLogger(cfg model.LogConfig) (*slog.Logger, io.Closer, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(cfg.Level)); err != nil {
		return nil, nil, fmt.Errorf("log level %q: %w", cfg.Level, err)
	}

	if err := os.MkdirAll(filepath.Dir(cfg.Path), 0o755); err != nil {
		return nil, nil, fmt.Errorf("creating log directory: %w", err)
	}
	f, err := os.OpenFile(cfg.Path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o600)
	if err != nil {
		return nil, nil, fmt.Errorf("opening log file: %w", err)
	}

	logger := slog.New(slog.NewJSONHandler(f, &slog.HandlerOptions{Level: level}))
	slog.SetDefault(logger)
	return logger, f, nil
}

func errAndDie(err error) {
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %s\n", err)
		os.Exit(1)
	}
}
