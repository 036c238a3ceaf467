package sample_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/signalnine/crossrun/internal/sample"
)

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

func TestNew(t *testing.T) {
	s := sample.New("examples/loop.mbt", "ans", ".ans")
	assert.Equal(t, "loop.mbt", s.Name)
	assert.Equal(t, "loop", s.Base)
	assert.Equal(t, filepath.Join("ans", "loop.ans"), s.AnswerPath)
}

func TestDiscoverSortedAndFiltered(t *testing.T) {
	dir := t.TempDir()
	for _, name := range []string{"zeta.mbt", "alpha.mbt", "mid.mbt", "notes.txt"} {
		writeFile(t, filepath.Join(dir, name), "fn main {}")
	}
	require.NoError(t, os.Mkdir(filepath.Join(dir, "dir.mbt"), 0o755))

	samples, err := sample.Discover(dir, ".mbt", "ans", ".ans")
	require.NoError(t, err)
	var names []string
	for _, s := range samples {
		names = append(names, s.Name)
	}
	assert.Equal(t, []string{"alpha.mbt", "mid.mbt", "zeta.mbt"}, names)
}

func TestDiscoverEmpty(t *testing.T) {
	samples, err := sample.Discover(t.TempDir(), ".mbt", "ans", ".ans")
	require.NoError(t, err)
	assert.Empty(t, samples)
}

func TestOpen(t *testing.T) {
	dir := t.TempDir()
	good := filepath.Join(dir, "x.mbt")
	bad := filepath.Join(dir, "x.c")
	writeFile(t, good, "")
	writeFile(t, bad, "")

	_, err := sample.Open(good, ".mbt", "ans", ".ans")
	assert.NoError(t, err)
	_, err = sample.Open(bad, ".mbt", "ans", ".ans")
	assert.ErrorIs(t, err, sample.ErrBadExtension)
	_, err = sample.Open(filepath.Join(dir, "missing.mbt"), ".mbt", "ans", ".ans")
	assert.ErrorIs(t, err, os.ErrNotExist)
	_, err = sample.Open(dir, ".mbt", "ans", ".ans")
	assert.Error(t, err, "directories are not samples")
}

func TestHasAnswer(t *testing.T) {
	dir := t.TempDir()
	ans := filepath.Join(dir, "ans")
	writeFile(t, filepath.Join(ans, "loop.ans"), "55\n")

	assert.True(t, sample.New("examples/loop.mbt", ans, ".ans").HasAnswer())
	assert.False(t, sample.New("examples/x.mbt", ans, ".ans").HasAnswer())
}
