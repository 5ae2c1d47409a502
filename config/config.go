// Package config parses the LIBTRACEIO environment string (spec.md §6) into
// a process-wide Config, initialized once on first use the way spec.md §3
// describes ("Configuration. Process-wide state initialized once on first
// use").
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"sync"

	"github.com/wandio-go/wandio/internal/wlog"
)

// EnvVar is the environment variable the library reads its options from.
const EnvVar = "LIBTRACEIO"

// Config is the tokenized process-wide option set (spec.md §3).
type Config struct {
	KeepStats  bool
	Autodetect bool
	UseThreads int
	MaxBuffers int
}

// defaults matches spec.md: autodetect is on unless disabled, threads off
// by default, no buffer cap.
func defaults() Config {
	return Config{
		KeepStats:  false,
		Autodetect: true,
		UseThreads: 0,
		MaxBuffers: 0,
	}
}

var (
	once   sync.Once
	global Config
)

// Get returns the process-wide Config, parsing LIBTRACEIO the first time
// it is called. Subsequent calls return the same value.
func Get() Config {
	once.Do(func() {
		global = FromEnv(os.Getenv(EnvVar))
	})
	return global
}

// reset is a test-only hook letting tests force a re-parse; production code
// never calls it since Config is meant to be initialized exactly once.
func reset() {
	once = sync.Once{}
}

// FromEnv tokenizes s (the raw LIBTRACEIO value) per spec.md §6. Empty
// tokens are ignored; unrecognized tokens log a single warning and are
// otherwise skipped.
func FromEnv(s string) Config {
	cfg := defaults()
	for _, tok := range strings.Split(s, ",") {
		tok = strings.TrimSpace(tok)
		if tok == "" {
			continue
		}
		if err := applyToken(&cfg, tok); err != nil {
			wlog.Log.Warnf("%s: %v", EnvVar, err)
		}
	}
	return cfg
}

func applyToken(cfg *Config, tok string) error {
	switch {
	case tok == "stats":
		cfg.KeepStats = true
	case tok == "noautodetect":
		cfg.Autodetect = false
	case tok == "nothreads":
		cfg.UseThreads = 0
	case strings.HasPrefix(tok, "threads="):
		n, err := strconv.Atoi(strings.TrimPrefix(tok, "threads="))
		if err != nil {
			return fmt.Errorf("bad threads= value %q", tok)
		}
		cfg.UseThreads = n
	case strings.HasPrefix(tok, "buffers="):
		n, err := strconv.Atoi(strings.TrimPrefix(tok, "buffers="))
		if err != nil {
			return fmt.Errorf("bad buffers= value %q", tok)
		}
		cfg.MaxBuffers = n
	default:
		return fmt.Errorf("unrecognized config token %q", tok)
	}
	return nil
}
