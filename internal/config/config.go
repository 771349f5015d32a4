// Package config holds the indexer's entire configuration surface.
// CLI flags are the only configuration source — there is no config file —
// so Config is a small plain struct built once by cmd/logpi and passed down
// through internal/pipeline.
package config

import (
	"fmt"

	"github.com/sirupsen/logrus"

	"logpi/internal/chunk"
)

// Config is the fully-resolved set of options for one indexer run.
type Config struct {
	// Inputs is one or more input paths; "-" means stdin.
	Inputs []string
	// Debug is the 0-9 diagnostic verbosity level.
	Debug int
	// Write, if true, writes an index file per input named "<input>.lpi"
	// instead of stdout. Incompatible with stdin input.
	Write bool
	// Serial forces the degenerate single-worker pipeline even when the
	// input would otherwise qualify for parallel mode.
	Serial bool
	// Greedy disables the tokenizer's quote-aware field splitting.
	Greedy bool
	// TargetChunkSize overrides the dispatcher's read size; 0 means use
	// chunk.DefaultTargetSize.
	TargetChunkSize int
	// Workers overrides the worker pool size; 0 means auto-select per the
	// pipeline's cores/2 rule.
	Workers int
}

// Validate checks the parts of the CLI contract that are exit-1 conditions
// independent of any particular input file (per-file I/O errors are handled
// later, without aborting the whole run).
func (c Config) Validate() error {
	if c.Debug < 0 || c.Debug > 9 {
		return fmt.Errorf("config: debug level %d out of range [0,9]", c.Debug)
	}
	if c.Write {
		for _, in := range c.Inputs {
			if in == "-" {
				return fmt.Errorf("config: -w is incompatible with stdin input")
			}
		}
	}
	if c.TargetChunkSize != 0 && c.TargetChunkSize < chunk.MinTargetSize {
		return fmt.Errorf("config: target chunk size %d below minimum %d", c.TargetChunkSize, chunk.MinTargetSize)
	}
	return nil
}

// LogrusLevel maps the 0-9 debug verbosity onto a logrus level, per the
// AMBIENT STACK logging section: 0 -> Error, 1-2 -> Warn, 3-5 -> Info,
// 6-9 -> Debug.
func (c Config) LogrusLevel() logrus.Level {
	switch {
	case c.Debug <= 0:
		return logrus.ErrorLevel
	case c.Debug <= 2:
		return logrus.WarnLevel
	case c.Debug <= 5:
		return logrus.InfoLevel
	default:
		return logrus.DebugLevel
	}
}

// MetricsEnabled reports whether the HdrHistogram-backed latency tracking
// in internal/metrics should run: gated to -d 8/9 so it never runs in a
// normal invocation.
func (c Config) MetricsEnabled() bool {
	return c.Debug >= 8
}
