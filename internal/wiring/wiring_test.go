package wiring_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kestrelsec/munge/internal/wiring"
)

func Test_Build_Assembles_An_Env_And_Creates_The_State_Dir(t *testing.T) {
	t.Parallel()

	workDir := t.TempDir()

	env, err := wiring.Build(context.Background(), workDir, "", true)
	require.NoError(t, err)
	t.Cleanup(env.Close)

	assert.NotNil(t, env.Registry)
	assert.NotNil(t, env.Cipher)
	assert.NotNil(t, env.Pool)
	assert.NotNil(t, env.Contenders)
	assert.NotNil(t, env.Reporter)

	info, err := os.Stat(filepath.Join(workDir, env.Config.StateDir))
	require.NoError(t, err)
	assert.True(t, info.IsDir())
}

func Test_Build_Honors_An_Explicit_Config_Path(t *testing.T) {
	t.Parallel()

	workDir := t.TempDir()
	cfgPath := filepath.Join(workDir, "custom.jsonc")
	require.NoError(t, os.WriteFile(cfgPath, []byte(`{"max_len": 7}`), 0o600))

	env, err := wiring.Build(context.Background(), workDir, cfgPath, true)
	require.NoError(t, err)
	t.Cleanup(env.Close)

	assert.Equal(t, 7, env.Config.MaxLen)
}

func Test_Build_Fails_When_Explicit_Config_Path_Is_Missing(t *testing.T) {
	t.Parallel()

	workDir := t.TempDir()

	_, err := wiring.Build(context.Background(), workDir, filepath.Join(workDir, "nope.jsonc"), true)
	require.Error(t, err)
}
