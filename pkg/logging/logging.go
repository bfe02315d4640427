// Package logging builds the process logger.
package logging

import (
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/natefinch/lumberjack.v2"
)

// Options selects where logs go.
type Options struct {
	// File, when set, receives JSON logs with size based rotation instead of
	// the console.
	File  string
	Debug bool
}

// New returns a sugared logger named name.
func New(name string, opts Options) (*zap.SugaredLogger, error) {
	level := zap.NewAtomicLevelAt(zap.InfoLevel)
	if opts.Debug {
		level.SetLevel(zap.DebugLevel)
	}

	if opts.File == "" {
		cfg := zap.NewDevelopmentConfig()
		cfg.Level = level
		cfg.DisableStacktrace = true
		l, err := cfg.Build()
		if err != nil {
			return nil, err
		}
		return l.Named(name).Sugar(), nil
	}

	w := zapcore.AddSync(&lumberjack.Logger{
		Filename:   opts.File,
		MaxSize:    10, // megabytes
		MaxBackups: 5,
		Compress:   true,
	})
	enc := zapcore.NewJSONEncoder(zap.NewProductionEncoderConfig())
	return zap.New(zapcore.NewCore(enc, w, level)).Named(name).Sugar(), nil
}
