package main

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseConfigDefaults(t *testing.T) {
	cfg, err := parseConfig(nil)
	require.NoError(t, err)

	assert.Equal(t, "docker", cfg.Engine)
	assert.Equal(t, 8080, cfg.Port)
	assert.Equal(t, "", cfg.ImageTag)
	assert.Equal(t, 300*time.Millisecond, cfg.Debounce)
	assert.Equal(t, "", cfg.HealthAddr)
	assert.False(t, cfg.Verbose)
}

func TestParseConfigFromEnvironment(t *testing.T) {
	cfg, err := parseConfig([]string{
		"FLEM_ENGINE=podman",
		"FLEM_PORT=3001",
		"FLEM_IMAGE_TAG=myapp",
		"FLEM_DEBOUNCE=1s",
		"FLEM_HEALTH_ADDR=localhost:6000",
		"FLEM_VERBOSE=true",
		"UNRELATED=1",
	})
	require.NoError(t, err)

	assert.Equal(t, &config{
		Engine:     "podman",
		Port:       3001,
		ImageTag:   "myapp",
		Debounce:   time.Second,
		HealthAddr: "localhost:6000",
		Verbose:    true,
	}, cfg)
}

func TestParseConfigInvalid(t *testing.T) {
	_, err := parseConfig([]string{"FLEM_PORT=eighty"})
	require.Error(t, err)

	_, err = parseConfig([]string{"FLEM_DEBOUNCE=soon"})
	require.Error(t, err)
}

func TestFlagsOverrideEnvironment(t *testing.T) {
	cfg, err := parseConfig([]string{"FLEM_ENGINE=podman", "FLEM_PORT=3001"})
	require.NoError(t, err)

	root := NewRootCmd(cfg)
	require.NoError(t, root.ParseFlags([]string{"--engine", "nerdctl", "-p", "9000"}))

	assert.Equal(t, "nerdctl", cfg.Engine)
	assert.Equal(t, 9000, cfg.Port)
}
