package mane

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := OpenStore("")
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func importFixture(t *testing.T, s *Store) int {
	t.Helper()
	path := filepath.Join(t.TempDir(), "MANE.summary.txt")
	require.NoError(t, os.WriteFile(path, []byte(summaryFixture), 0o644))

	n, err := s.ImportSummary(path)
	require.NoError(t, err)
	return n
}

func TestStoreImportSummary(t *testing.T) {
	s := newTestStore(t)
	assert.False(t, s.Loaded())

	n := importFixture(t, s)
	assert.Equal(t, 3, n)
	assert.True(t, s.Loaded())

	count, err := s.Count()
	require.NoError(t, err)
	assert.Equal(t, 3, count)
}

func TestStoreImportReplacesExisting(t *testing.T) {
	s := newTestStore(t)
	importFixture(t, s)
	importFixture(t, s)

	count, err := s.Count()
	require.NoError(t, err)
	assert.Equal(t, 3, count)
}

func TestStoreBestTranscripts(t *testing.T) {
	s := newTestStore(t)
	importFixture(t, s)

	got, err := s.BestTranscripts([]string{"tp53", "BRCA1", "NOPE"})
	require.NoError(t, err)
	require.Len(t, got, 2)

	assert.Equal(t, "ENST00000269305.9", got["TP53"].EnsemblNuc)
	assert.Equal(t, "NM_000546.6", got["TP53"].RefSeqNuc)

	// BRCA1 has both a Select and a Plus Clinical row; Select wins.
	assert.Equal(t, StatusSelect, got["BRCA1"].Status)
	assert.Equal(t, "ENST00000357654.9", got["BRCA1"].EnsemblNuc)
}

func TestStoreBestTranscriptsEmptyInput(t *testing.T) {
	s := newTestStore(t)
	got, err := s.BestTranscripts(nil)
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestStorePersistsOnDisk(t *testing.T) {
	path := filepath.Join(t.TempDir(), "mane.duckdb")

	s, err := OpenStore(path)
	require.NoError(t, err)
	importFixture(t, s)
	require.NoError(t, s.Close())

	reopened, err := OpenStore(path)
	require.NoError(t, err)
	defer reopened.Close()
	assert.True(t, reopened.Loaded())
}
