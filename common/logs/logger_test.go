package logs

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewBadLevel(t *testing.T) {
	_, err := New(Config{Level: "loud"})
	assert.Error(t, err)
}

func TestNewNoSinks(t *testing.T) {
	l, err := New(Config{})
	require.NoError(t, err)
	l.Info("dropped")
}

func TestNewWritesJSONFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "build.log")
	cfg := DefaultConfig()
	cfg.Console = false
	cfg.File = path
	cfg.Level = "warn"

	l, err := New(cfg)
	require.NoError(t, err)
	l.Info("below level")
	l.Warn("too many layers")
	_ = l.Sync()

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	require.Len(t, lines, 1)

	var rec map[string]any
	require.NoError(t, json.Unmarshal([]byte(lines[0]), &rec))
	assert.Equal(t, "warn", rec["level"])
	assert.Equal(t, "too many layers", rec["msg"])
}
