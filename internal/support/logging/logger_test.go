package logging

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/amiwrpremium/xtls-crud/internal/config"
)

func TestNewJSONByDefault(t *testing.T) {
	var buf bytes.Buffer
	logger := New(Options{Level: slog.LevelInfo, Output: &buf})
	logger.Info("inbound created", "port", 443)

	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "inbound created", entry["msg"])
	assert.EqualValues(t, 443, entry["port"])
}

func TestNewTextRespectsLevel(t *testing.T) {
	var buf bytes.Buffer
	opts := FromConfig(config.LogConfig{Level: "warn", Format: "console"})
	opts.Output = &buf
	logger := New(opts)

	logger.Info("hidden")
	logger.Warn("shown", "tag", "t")
	assert.NotContains(t, buf.String(), "hidden")
	assert.Contains(t, buf.String(), "msg=shown")
	assert.Contains(t, buf.String(), "tag=t")
}
