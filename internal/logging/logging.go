// Package logging builds the component loggers used across haven.
//
// Every logger is a plain *log.Logger with a "[component] " prefix. Output
// goes to stderr and, when a log file is configured, to a size-rotated file.
package logging

import (
	"io"
	"log"
	"os"
	"sync"

	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/haven-app/haven/internal/config"
)

// Factory hands out loggers sharing one rotating file.
type Factory struct {
	mu     sync.Mutex
	out    io.Writer
	rotate *lumberjack.Logger
}

// NewFactory opens the sinks described by cfg.
func NewFactory(cfg config.LogConfig) *Factory {
	var writers []io.Writer
	if !cfg.Quiet {
		writers = append(writers, os.Stderr)
	}

	f := &Factory{}
	if cfg.File != "" {
		f.rotate = &lumberjack.Logger{
			Filename:   cfg.File,
			MaxSize:    cfg.MaxSizeMB,
			MaxBackups: cfg.MaxBackups,
		}
		writers = append(writers, f.rotate)
	}

	switch len(writers) {
	case 0:
		f.out = io.Discard
	case 1:
		f.out = writers[0]
	default:
		f.out = io.MultiWriter(writers...)
	}
	return f
}

// New returns a logger for component.
func (f *Factory) New(component string) *log.Logger {
	return log.New(f.out, "["+component+"] ", log.LstdFlags)
}

// Close closes the rotating file, if any.
func (f *Factory) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.rotate == nil {
		return nil
	}
	err := f.rotate.Close()
	f.rotate = nil
	return err
}

// New is shorthand for a one-off logger.
func New(component string, cfg config.LogConfig) *log.Logger {
	return NewFactory(cfg).New(component)
}
