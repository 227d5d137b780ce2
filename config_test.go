package main

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Seednode/scrawl/client"
)

func TestConfigValidate(t *testing.T) {
	valid := func() Config {
		return Config{
			maxMessageSize: 512 * 1024,
			pongTimeout:    time.Minute,
			port:           8080,
			snapshotSize:   1000,
			rateLimit:      120,
			rateWindow:     10 * time.Second,
		}
	}

	tests := []struct {
		name    string
		mutate  func(c *Config)
		wantErr bool
	}{
		{"defaults", func(c *Config) {}, false},
		{"cert without key", func(c *Config) { c.tlsCert = "cert.pem" }, true},
		{"cert and key", func(c *Config) { c.tlsCert, c.tlsKey = "cert.pem", "key.pem" }, false},
		{"port zero", func(c *Config) { c.port = 0 }, true},
		{"port too high", func(c *Config) { c.port = 65536 }, true},
		{"short pong timeout", func(c *Config) { c.pongTimeout = time.Millisecond }, true},
		{"tiny messages", func(c *Config) { c.maxMessageSize = 10 }, true},
		{"huge snapshots", func(c *Config) { c.snapshotSize = 10000 }, true},
		{"redis without limit", func(c *Config) { c.redisAddr, c.rateLimit = "localhost:6379", 0 }, true},
		{"redis with limit", func(c *Config) { c.redisAddr = "localhost:6379" }, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := valid()
			tt.mutate(&c)

			err := c.validate()
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestConfigScheme(t *testing.T) {
	c := Config{}
	assert.Equal(t, "http", c.scheme())

	c.tlsCert, c.tlsKey = "cert.pem", "key.pem"
	assert.Equal(t, "https", c.scheme())
}

func TestFlagDefaults(t *testing.T) {
	cfg := &Config{}
	cmd := newCmd(cfg)

	require.NoError(t, cmd.ParseFlags(nil))

	assert.Equal(t, "0.0.0.0", cfg.bind)
	assert.Equal(t, 8080, cfg.port)
	assert.Equal(t, int64(512*1024), cfg.maxMessageSize)
	assert.Equal(t, 60*time.Second, cfg.pongTimeout)
	assert.Equal(t, 1000, cfg.snapshotSize)
	assert.Equal(t, client.DefaultCheckTimeout, cfg.timeout)
	assert.Equal(t, 3*time.Second, cfg.browseTimeout)
	assert.NoError(t, cfg.validate())
}

func TestEnvironmentOverrides(t *testing.T) {
	t.Setenv("SCRAWL_PORT", "9090")
	t.Setenv("SCRAWL_PONG_TIMEOUT", "30s")
	t.Setenv("SCRAWL_VERBOSE", "true")

	cfg := &Config{}
	newCmd(cfg)

	assert.Equal(t, 9090, cfg.port)
	assert.Equal(t, 30*time.Second, cfg.pongTimeout)
	assert.True(t, cfg.verbose)
}

func TestSubcommands(t *testing.T) {
	cmd := newCmd(&Config{})

	check, _, err := cmd.Find([]string{"check"})
	require.NoError(t, err)
	assert.Equal(t, "check", check.Name())
	assert.NotNil(t, check.Flags().Lookup("server"))

	browse, _, err := cmd.Find([]string{"browse"})
	require.NoError(t, err)
	assert.Equal(t, "browse", browse.Name())
	assert.NotNil(t, browse.Flags().Lookup("timeout"))
}
