package config

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewServerConfig_Defaults(t *testing.T) {
	sc, err := NewServerConfig("diagram.mmd", Default())
	require.NoError(t, err)

	assert.True(t, filepath.IsAbs(sc.FilePath))
	assert.Equal(t, "diagram.mmd", filepath.Base(sc.FilePath))
	assert.Equal(t, "127.0.0.1", sc.Host)
	assert.Equal(t, 5000, sc.Port)
	assert.False(t, sc.Debug)
	assert.Equal(t, time.Second, sc.PollInterval)
	assert.True(t, sc.Cache)
	assert.True(t, sc.Watch)
	assert.False(t, sc.Metrics)
}

func TestNewServerConfig_MissingFile(t *testing.T) {
	_, err := NewServerConfig("", Default())
	assert.ErrorIs(t, err, ErrMissingFile)

	_, err = NewServerConfig("   ", Default())
	assert.ErrorIs(t, err, ErrMissingFile)
}

func TestNewServerConfig_InvalidConfig(t *testing.T) {
	cfg := Default()
	cfg.Port = 0

	_, err := NewServerConfig("diagram.mmd", cfg)
	assert.ErrorContains(t, err, "invalid port")
}

func TestNewServerConfig_NilConfigUsesDefaults(t *testing.T) {
	sc, err := NewServerConfig("a.mmd", nil)
	require.NoError(t, err)
	assert.Equal(t, DefaultPort, sc.Port)
}

func TestNewServerConfig_Flags(t *testing.T) {
	cfg := Default()
	cfg.NoCache = true
	cfg.NoWatch = true
	cfg.Metrics = true
	cfg.Debug = true

	sc, err := NewServerConfig("a.mmd", cfg)
	require.NoError(t, err)
	assert.False(t, sc.Cache)
	assert.False(t, sc.Watch)
	assert.True(t, sc.Metrics)
	assert.True(t, sc.Debug)
}

func TestServerConfig_Addr(t *testing.T) {
	sc := ServerConfig{Host: "127.0.0.1", Port: 5000}
	assert.Equal(t, "127.0.0.1:5000", sc.Addr())
	assert.Equal(t, "http://127.0.0.1:5000/", sc.URL())

	sc = ServerConfig{Host: "::1", Port: 8080}
	assert.Equal(t, "[::1]:8080", sc.Addr())
}

func TestServerConfig_DisplayName(t *testing.T) {
	sc := ServerConfig{FilePath: filepath.Join("/tmp", "docs", "arch.mmd")}
	assert.Equal(t, "arch.mmd", sc.DisplayName())
}

func TestMermaidURL(t *testing.T) {
	assert.Equal(t,
		"https://cdn.jsdelivr.net/npm/mermaid@10/dist/mermaid.esm.min.mjs",
		ServerConfig{MermaidVersion: "10"}.MermaidURL())
}
