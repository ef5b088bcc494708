package auth

import (
	"encoding/json"
	"path/filepath"
	"testing"

	assert_ "github.com/stretchr/testify/assert"
	require_ "github.com/stretchr/testify/require"
	"go.etcd.io/bbolt"
)

func TestStoreRoundTrip(t *testing.T) {
	assert := assert_.New(t)
	require := require_.New(t)
	path := filepath.Join(t.TempDir(), "auth.db")

	store, err := OpenStore(path)
	require.NoError(err)
	require.NoError(store.Put("example.com", OAuth, Credentials{Key: "k", Secret: "s"}))
	require.NoError(store.Put("other.example.com", Basic, Credentials{Key: "user", Secret: "pass"}))
	require.NoError(store.Close())

	// Reopen and load into a fresh registry
	store, err = OpenStore(path)
	require.NoError(err)
	defer store.Close()

	r := NewRegistry()
	require.NoError(store.Load(r))
	creds, found := r.Get("example.com", OAuth)
	assert.True(found)
	assert.Equal("k", creds.Key)
	creds, found = r.Get("other.example.com", Basic)
	assert.True(found)
	assert.Equal("pass", creds.Secret)
}

func TestStoreVersion(t *testing.T) {
	assert := assert_.New(t)
	require := require_.New(t)
	path := filepath.Join(t.TempDir(), "auth.db")

	store, err := OpenStore(path)
	require.NoError(err)
	require.NoError(store.Close())

	// Stamp the store as coming from a future schema
	db, err := bbolt.Open(path, 0600, nil)
	require.NoError(err)
	require.NoError(db.Update(func(tx *bbolt.Tx) error {
		versionBytes, err := json.Marshal(currentVersion + 1)
		if err != nil {
			return err
		}
		return tx.Bucket(Buckets.Metadata).Put(MetadataKeys.Version, versionBytes)
	}))
	require.NoError(db.Close())

	_, err = OpenStore(path)
	assert.Error(err)
}

func TestStoreDelete(t *testing.T) {
	assert := assert_.New(t)
	require := require_.New(t)
	path := filepath.Join(t.TempDir(), "auth.db")

	store, err := OpenStore(path)
	require.NoError(err)
	defer store.Close()

	require.NoError(store.Put("example.com", Basic, Credentials{Key: "u", Secret: "p"}))
	require.NoError(store.Delete("example.com", Basic))

	r := NewRegistry()
	require.NoError(store.Load(r))
	_, found := r.Get("example.com", Basic)
	assert.False(found)
}
