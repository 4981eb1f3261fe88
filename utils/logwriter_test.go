package utils

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wealthops/cleanup-utils/types"
)

func TestInitLoggerFileLevel(t *testing.T) {
	dir := t.TempDir()

	cfg := &types.Config{}
	cfg.Logging.OutputLevel = "info"
	cfg.Logging.FileDir = dir
	cfg.Logging.FileLevel = "warn"
	Config = cfg

	logWriter, _ := InitLogger("20250830_170000")
	require.NotNil(t, logWriter)
	defer logWriter.Dispose()

	logrus.Infof("plain progress line")
	logrus.Warnf("something worth keeping")

	content, err := os.ReadFile(filepath.Join(dir, "missing_email_cleanup_20250830_170000.log"))
	require.NoError(t, err)
	assert.Contains(t, string(content), "something worth keeping")
	assert.NotContains(t, string(content), "plain progress line")
}
