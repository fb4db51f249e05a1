package observability

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"chainflow/pkg/config"
)

func TestSetupLoggerWritesFile(t *testing.T) {
	prev := zap.L()
	defer zap.ReplaceGlobals(prev)

	out := filepath.Join(t.TempDir(), "logs", "worker.log")
	logger, err := SetupLogger(config.LogConfig{Level: "debug", Format: "json", Outputs: []string{out}})
	require.NoError(t, err)
	zap.L().Info("Executing task: double", zap.String("workflow", "wf"))
	_ = logger.Sync()

	b, err := os.ReadFile(out)
	require.NoError(t, err)
	assert.Contains(t, string(b), `"msg":"Executing task: double"`)
	assert.Contains(t, string(b), `"workflow":"wf"`)
}

func TestParseLevel(t *testing.T) {
	lvl, err := parseLevel("WARNING")
	require.NoError(t, err)
	assert.Equal(t, zap.WarnLevel, lvl.Level())
	lvl, err = parseLevel("")
	require.NoError(t, err)
	assert.Equal(t, zap.InfoLevel, lvl.Level())
	_, err = parseLevel("loud")
	assert.Error(t, err)
}
