package history

import (
	"path/filepath"
	"testing"
	"time"

	assert_ "github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	store, err := Open(filepath.Join(t.TempDir(), "history.db"), zap.NewNop())
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func TestStoreAddRecent(t *testing.T) {
	assert := assert_.New(t)
	store := openTestStore(t)

	for i, uid := range []string{"a", "b", "c"} {
		record := &Record{
			UID:         uid,
			Source:      "https://example.com/" + uid,
			Destination: "/downloads/" + uid + ".mp4",
			Bytes:       int64(1000 * (i + 1)),
			Duration:    time.Second,
			CreatedAt:   time.Date(2026, 1, 1+i, 0, 0, 0, 0, time.UTC),
		}
		assert.NoError(store.Add(record))
		assert.NotZero(record.ID)
	}

	records, err := store.Recent(2)
	assert.NoError(err)
	require.Len(t, records, 2)
	assert.Equal("c", records[0].UID)
	assert.Equal("b", records[1].UID)

	records, err = store.Recent(10)
	assert.NoError(err)
	assert.Len(records, 3)
}

func TestStoreBySource(t *testing.T) {
	assert := assert_.New(t)
	store := openTestStore(t)

	source := "https://example.com/video"
	assert.NoError(store.Add(&Record{UID: "a", Source: source, CreatedAt: time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)}))
	assert.NoError(store.Add(&Record{UID: "b", Source: source, CreatedAt: time.Date(2026, 1, 2, 0, 0, 0, 0, time.UTC)}))
	assert.NoError(store.Add(&Record{UID: "c", Source: "https://example.com/other"}))

	records, err := store.BySource(source)
	assert.NoError(err)
	require.Len(t, records, 2)
	assert.Equal("b", records[0].UID)
	assert.Equal("a", records[1].UID)

	records, err = store.BySource("https://example.com/missing")
	assert.NoError(err)
	assert.Empty(records)
}

func TestStoreReopen(t *testing.T) {
	assert := assert_.New(t)

	path := filepath.Join(t.TempDir(), "history.db")
	store, err := Open(path, zap.NewNop())
	require.NoError(t, err)
	assert.NoError(store.Add(&Record{UID: "a", Source: "https://example.com/a"}))
	assert.NoError(store.Close())

	store, err = Open(path, zap.NewNop())
	require.NoError(t, err)
	defer store.Close()
	records, err := store.Recent(10)
	assert.NoError(err)
	require.Len(t, records, 1)
	assert.Equal("a", records[0].UID)
}
