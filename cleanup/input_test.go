package cleanup

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeCsvFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "clients.csv")
	err := os.WriteFile(path, []byte(content), 0o644)
	require.NoError(t, err)
	return path
}

func TestLoadClientIdsFromCsv(t *testing.T) {
	path := writeCsvFile(t, "Client ID\n42\n7\n1001\n")

	clientIds, err := loadClientIdsFromCsv(path)
	require.NoError(t, err)
	assert.Equal(t, []int64{42, 7, 1001}, clientIds)
}

func TestLoadClientIdsFromCsvExtraColumns(t *testing.T) {
	path := writeCsvFile(t, "Name,Client ID\nalice,42\nbob,7\n")

	clientIds, err := loadClientIdsFromCsv(path)
	require.NoError(t, err)
	assert.Equal(t, []int64{42, 7}, clientIds)
}

func TestLoadClientIdsFromCsvMissingHeader(t *testing.T) {
	path := writeCsvFile(t, "id\n42\n")

	_, err := loadClientIdsFromCsv(path)
	require.ErrorContains(t, err, `missing "Client ID" column`)
}

func TestLoadClientIdsFromCsvInvalidId(t *testing.T) {
	path := writeCsvFile(t, "Client ID\n42\nnot-a-number\n")

	_, err := loadClientIdsFromCsv(path)
	require.ErrorContains(t, err, "invalid client id")
	require.ErrorContains(t, err, "line 3")
}

func TestLoadClientIdsFromCsvDuplicateId(t *testing.T) {
	path := writeCsvFile(t, "Client ID\n42\n7\n42\n")

	_, err := loadClientIdsFromCsv(path)
	require.ErrorContains(t, err, "duplicate client id 42")
}

func TestLoadClientIdsFromCsvMissingFile(t *testing.T) {
	_, err := loadClientIdsFromCsv(filepath.Join(t.TempDir(), "nope.csv"))
	require.ErrorContains(t, err, "error opening input file")
}
