package main

import (
	"errors"
	"fmt"
	"io/fs"

	"go.uber.org/zap"

	"github.com/team3238/testdrive/pkg/logging"
	"github.com/team3238/testdrive/pkg/robot"
)

// loadConfig reads the config file, falling back to defaults when it is
// missing and allowMissing is set, then applies the environment.
func loadConfig(allowMissing bool) (*robot.Config, error) {
	cfg, err := robot.LoadConfigFrom(opts.Config)
	if err != nil {
		if !allowMissing || !errors.Is(err, fs.ErrNotExist) {
			return nil, err
		}
		cfg = robot.DefaultConfig()
	}
	if err := cfg.ApplyEnv(); err != nil {
		return nil, err
	}
	if opts.LogFile != "" {
		cfg.LogFile = opts.LogFile
	}
	return cfg, nil
}

func newLogger(cfg *robot.Config) (*zap.SugaredLogger, error) {
	log, err := logging.New("testdrive", logging.Options{File: cfg.LogFile, Debug: opts.Verbose})
	if err != nil {
		return nil, fmt.Errorf("logger: %w", err)
	}
	return log, nil
}
