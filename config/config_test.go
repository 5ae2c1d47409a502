package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFromEnvDefaults(t *testing.T) {
	cfg := FromEnv("")
	assert.Equal(t, defaults(), cfg)
}

func TestFromEnvTokens(t *testing.T) {
	cfg := FromEnv("stats,noautodetect,threads=4,buffers=16")
	assert.True(t, cfg.KeepStats)
	assert.False(t, cfg.Autodetect)
	assert.Equal(t, 4, cfg.UseThreads)
	assert.Equal(t, 16, cfg.MaxBuffers)
}

func TestFromEnvEmptyTokensIgnored(t *testing.T) {
	cfg := FromEnv("stats,,  ,noautodetect")
	assert.True(t, cfg.KeepStats)
	assert.False(t, cfg.Autodetect)
}

func TestFromEnvNothreadsResets(t *testing.T) {
	cfg := FromEnv("threads=8,nothreads")
	assert.Equal(t, 0, cfg.UseThreads)
}

func TestFromEnvUnrecognizedTokenIgnoredNotFatal(t *testing.T) {
	cfg := FromEnv("bogus,stats")
	assert.True(t, cfg.KeepStats)
}

func TestGetIsMemoized(t *testing.T) {
	reset()
	t.Setenv(EnvVar, "stats")
	first := Get()
	t.Setenv(EnvVar, "noautodetect")
	second := Get()
	assert.Equal(t, first, second)
	reset()
}
