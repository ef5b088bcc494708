package mediagrab

import (
	"os"
	"path/filepath"
	"testing"

	assert_ "github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFragments(t *testing.T, dir string, parts ...string) []string {
	t.Helper()
	paths := make([]string, 0, len(parts))
	for i, part := range parts {
		path := filepath.Join(dir, "fragment."+string(rune('0'+i)))
		require.NoError(t, os.WriteFile(path, []byte(part), 0644))
		paths = append(paths, path)
	}
	return paths
}

func TestMergeFragments(t *testing.T) {
	assert := assert_.New(t)

	dir := t.TempDir()
	paths := writeFragments(t, dir, "hello, ", "world", "!")
	destination := filepath.Join(dir, "merged.txt")

	assert.NoError(MergeFragments(paths, destination))
	data, err := os.ReadFile(destination)
	assert.NoError(err)
	assert.Equal("hello, world!", string(data))

	// No leftover temporary file
	_, err = os.Stat(destination + ".part")
	assert.True(os.IsNotExist(err))
}

func TestMergeFragmentsSingle(t *testing.T) {
	assert := assert_.New(t)

	dir := t.TempDir()
	paths := writeFragments(t, dir, "only")
	destination := filepath.Join(dir, "merged.txt")

	assert.NoError(MergeFragments(paths, destination))
	data, err := os.ReadFile(destination)
	assert.NoError(err)
	assert.Equal("only", string(data))
}

func TestMergeFragmentsIdempotent(t *testing.T) {
	assert := assert_.New(t)

	dir := t.TempDir()
	paths := writeFragments(t, dir, "aaa", "bbb")
	destination := filepath.Join(dir, "merged.txt")

	assert.NoError(MergeFragments(paths, destination))
	first, err := os.Stat(destination)
	assert.NoError(err)

	// Complete destination with fragments still present
	assert.NoError(MergeFragments(paths, destination))

	// Complete destination after fragment cleanup
	for _, path := range paths {
		assert.NoError(os.Remove(path))
	}
	assert.NoError(MergeFragments(paths, destination))

	data, err := os.ReadFile(destination)
	assert.NoError(err)
	assert.Equal("aaabbb", string(data))
	assert.Equal(first.Size(), statSize(t, destination))
}

func statSize(t *testing.T, path string) int64 {
	t.Helper()
	info, err := os.Stat(path)
	require.NoError(t, err)
	return info.Size()
}

func TestMergeFragmentsIncompleteDestination(t *testing.T) {
	assert := assert_.New(t)

	dir := t.TempDir()
	paths := writeFragments(t, dir, "aaa", "bbb")
	destination := filepath.Join(dir, "merged.txt")

	// A partial destination of the wrong size gets rewritten
	assert.NoError(os.WriteFile(destination, []byte("junk"), 0644))
	assert.NoError(MergeFragments(paths, destination))
	data, err := os.ReadFile(destination)
	assert.NoError(err)
	assert.Equal("aaabbb", string(data))
}

func TestMergeFragmentsEmpty(t *testing.T) {
	assert := assert_.New(t)

	destination := filepath.Join(t.TempDir(), "merged.txt")
	err := MergeFragments(nil, destination)
	assert.Error(err)
	var mergeErr *MergeError
	assert.ErrorAs(err, &mergeErr)
	assert.Equal(destination, mergeErr.Destination)
}

func TestMergeFragmentsMissingInput(t *testing.T) {
	assert := assert_.New(t)

	dir := t.TempDir()
	destination := filepath.Join(dir, "merged.txt")
	err := MergeFragments([]string{filepath.Join(dir, "missing")}, destination)
	assert.Error(err)

	// Failed merge leaves no destination behind
	_, statErr := os.Stat(destination)
	assert.True(os.IsNotExist(statErr))
}
