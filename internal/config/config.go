// Package config reads the CLI's environment overrides. Nothing in the
// root elf or reloc packages touches the environment — they take every
// parameter as a Go value from their caller — this package exists only
// so cmd/elfrelo can pick up defaults without a pile of flags.
package config

import (
	"fmt"

	env "github.com/xyproto/env/v2"
)

const (
	verboseVar   = "ELFRELO_VERBOSE"
	baseVar      = "ELFRELO_BASE"
	maxImageVar  = "ELFRELO_MAX_IMAGE_MB"
	defaultBase  = 0
	defaultMaxMB = 512
)

// Config holds the defaults cmd/elfrelo falls back to when a flag isn't
// given explicitly on the command line.
type Config struct {
	Verbose    bool
	Base       uint64
	MaxImageMB int
}

// Load reads ELFRELO_VERBOSE, ELFRELO_BASE, and ELFRELO_MAX_IMAGE_MB from
// the environment. ELFRELO_BASE is hex if prefixed with 0x, decimal
// otherwise. Unset variables take the package defaults (verbose off,
// base 0, 512 MiB image cap).
func Load() (Config, error) {
	cfg := Config{
		Verbose:    env.Bool(verboseVar),
		Base:       defaultBase,
		MaxImageMB: env.IntOr(maxImageVar, defaultMaxMB),
	}
	if raw := env.Str(baseVar); raw != "" {
		base, err := parseBase(raw)
		if err != nil {
			return Config{}, fmt.Errorf("%s: %w", baseVar, err)
		}
		cfg.Base = base
	}
	if cfg.MaxImageMB <= 0 {
		return Config{}, fmt.Errorf("%s must be positive, got %d", maxImageVar, cfg.MaxImageMB)
	}
	return cfg, nil
}

func parseBase(s string) (uint64, error) {
	var v uint64
	var err error
	if len(s) > 2 && (s[0:2] == "0x" || s[0:2] == "0X") {
		_, err = fmt.Sscanf(s[2:], "%x", &v)
	} else {
		_, err = fmt.Sscanf(s, "%d", &v)
	}
	if err != nil {
		return 0, fmt.Errorf("invalid address %q", s)
	}
	return v, nil
}
