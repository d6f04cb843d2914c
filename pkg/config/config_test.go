package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/suffix-labs/cashweb-relay/pkg/bitcoin"
)

func TestSaveLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "relay.yaml")
	cfg := &Config{
		Network:     "regtest",
		LogLevel:    "debug",
		Development: true,
		Workers:     4,
		KeyFile:     "/keys/relay.wif",
	}
	require.NoError(t, cfg.Save(path))

	loaded, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, cfg, loaded)
	assert.Equal(t, bitcoin.Regtest, loaded.BitcoinNetwork())
}

func TestLoadDefaultsAndEnv(t *testing.T) {
	path := filepath.Join(t.TempDir(), "relay.yaml")
	require.NoError(t, os.WriteFile(path, []byte("workers: 2\n"), 0o600))
	t.Setenv("RELAY_LOG_LEVEL", "warn")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "mainnet", cfg.Network)
	assert.Equal(t, "warn", cfg.LogLevel)
	assert.Equal(t, 2, cfg.Workers)
}

func TestLoadWithoutFile(t *testing.T) {
	t.Chdir(t.TempDir())

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)
}

func TestLoadErrors(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)

	path := filepath.Join(t.TempDir(), "relay.yaml")
	require.NoError(t, os.WriteFile(path, []byte("network: signet\n"), 0o600))
	_, err = Load(path)
	assert.ErrorIs(t, err, bitcoin.ErrUnexpectedNetwork)
}

func TestValidate(t *testing.T) {
	assert.NoError(t, Default().Validate())

	cfg := Default()
	cfg.LogLevel = "chatty"
	assert.Error(t, cfg.Validate())

	cfg = Default()
	cfg.Workers = -1
	assert.Error(t, cfg.Validate())
}
