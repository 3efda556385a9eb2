package main

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	emulator "github.com/raywall/nfse-gateway/tools/emulator/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRun(t *testing.T) {
	path := filepath.Join(t.TempDir(), "emulator.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"port": 9393, "pending_polls": 3}`), 0o600))
	t.Setenv("EMULATOR_CONFIG_PATH", path)

	called := false
	original := serverStarter
	serverStarter = func(ctx context.Context, s *emulator.Server) error {
		called = true
		assert.NotNil(t, s.Handler())
		return nil
	}
	defer func() { serverStarter = original }()

	require.NoError(t, run(context.Background()))
	assert.True(t, called, "o emulador não foi iniciado")
}
