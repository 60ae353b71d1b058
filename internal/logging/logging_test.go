package logging

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/ternarybob/arbor/models"
)

func TestOutputFormat(t *testing.T) {
	assert.Equal(t, models.OutputFormatJSON, outputFormat("json"))
	assert.Equal(t, models.OutputFormatJSON, outputFormat(" JSON "))
	assert.Equal(t, models.OutputFormatLogfmt, outputFormat("text"))
	assert.Equal(t, models.OutputFormatLogfmt, outputFormat(""))
}

func TestConsoleWriter(t *testing.T) {
	cfg := consoleWriter(models.OutputFormatJSON)
	assert.Equal(t, models.LogWriterTypeConsole, cfg.Type)
	assert.Equal(t, models.OutputFormatJSON, cfg.OutputType)
	assert.Equal(t, "15:04:05", cfg.TimeFormat)
}

func TestInitSetsGlobalLogger(t *testing.T) {
	l := Init(Options{Level: "debug", Format: "json", Output: []string{"file"}, Dir: t.TempDir()})
	require.NotNil(t, l)
	assert.Same(t, l, Get())
	assert.Same(t, l, OrDefault(nil))
	l.Info().Str("component", "logging").Msg("initialised")
}
