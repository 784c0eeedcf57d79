package logging_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Rrens/support-widget/internal/config"
	"github.com/Rrens/support-widget/internal/logging"
)

func TestSetup_WritesRotatedFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "server.log")

	closer, err := logging.Setup(config.LoggingConfig{Level: "debug", Format: "json", File: path}, true)
	require.NoError(t, err)
	defer closer.Close()

	log.Info().Str("component", "test").Msg("hello")

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"component":"test"`)
	assert.Equal(t, zerolog.DebugLevel, zerolog.GlobalLevel())
}

func TestSetup_InvalidLevelFallsBackToInfo(t *testing.T) {
	closer, err := logging.Setup(config.LoggingConfig{Level: "loud"}, true)
	require.NoError(t, err)
	defer closer.Close()

	assert.Equal(t, zerolog.InfoLevel, zerolog.GlobalLevel())
}
