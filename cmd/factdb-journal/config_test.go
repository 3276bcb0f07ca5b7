package main

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResolveJournalDirPrefersExplicitArg(t *testing.T) {
	dir, err := resolveJournalDir([]string{"/explicit/path"})
	require.NoError(t, err)
	assert.Equal(t, "/explicit/path", dir)
}

func TestResolveJournalDirFallsBackToConfigFile(t *testing.T) {
	wd, err := os.Getwd()
	require.NoError(t, err)
	tmp := t.TempDir()
	require.NoError(t, os.Chdir(tmp))
	defer os.Chdir(wd)

	require.NoError(t, os.WriteFile(filepath.Join(tmp, ".factdb.yaml"), []byte("default-journal-dir: /var/lib/factdb\n"), 0o644))

	dir, err := resolveJournalDir(nil)
	require.NoError(t, err)
	assert.Equal(t, "/var/lib/factdb", dir)
}

func TestResolveJournalDirErrorsWithNoArgAndNoConfig(t *testing.T) {
	wd, err := os.Getwd()
	require.NoError(t, err)
	tmp := t.TempDir()
	require.NoError(t, os.Chdir(tmp))
	defer os.Chdir(wd)

	_, err = resolveJournalDir(nil)
	assert.Error(t, err)
}
