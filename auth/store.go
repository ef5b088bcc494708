package auth

import (
	"encoding/json"
	"fmt"

	"go.etcd.io/bbolt"
)

var Buckets = struct {
	Metadata    []byte
	Credentials []byte
}{
	Metadata:    []byte("__metadata__"),
	Credentials: []byte("credentials"),
}

var MetadataKeys = struct {
	Version []byte
}{
	Version: []byte("version"),
}

const currentVersion = 1

const storeKeySeparator = "\x00"

// Store persists Registry entries across processes.
type Store struct {
	db *bbolt.DB
}

func OpenStore(path string) (_ *Store, err error) {
	db, err := bbolt.Open(path, 0600, nil)
	if err != nil {
		return nil, err
	}
	err = db.Update(func(tx *bbolt.Tx) (err error) {
		// Ensure buckets exist
		var metadata *bbolt.Bucket
		if metadata, err = tx.CreateBucketIfNotExists(Buckets.Metadata); err != nil {
			return err
		}
		if _, err = tx.CreateBucketIfNotExists(Buckets.Credentials); err != nil {
			return err
		}

		// Get the current version of the store
		var version int
		if versionBytes := metadata.Get(MetadataKeys.Version); versionBytes == nil {
			version = 0
		} else if err = json.Unmarshal(versionBytes, &version); err != nil {
			return err
		}
		// Refuse stores written by a newer schema; older ones only gain the
		// version stamp
		if version > currentVersion {
			return fmt.Errorf("credential store version %d is newer than supported version %d", version, currentVersion)
		}

		// Set the current version of the store
		if versionBytes, err := json.Marshal(currentVersion); err != nil {
			return err
		} else if err = metadata.Put(MetadataKeys.Version, versionBytes); err != nil {
			return err
		}

		return nil
	})
	if err != nil {
		_ = db.Close()
		return nil, err
	}
	return &Store{db}, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

// Load populates a Registry with all stored entries.
func (s *Store) Load(r *Registry) error {
	return s.db.View(func(tx *bbolt.Tx) error {
		bucket := tx.Bucket(Buckets.Credentials)
		return bucket.ForEach(func(k, v []byte) error {
			var entry Entry
			if err := json.Unmarshal(v, &entry); err != nil {
				return err
			}
			r.Register(entry.Domain, entry.Type, entry.Credentials)
			return nil
		})
	})
}

// Put stores one entry, replacing any previous entry for (domain, typ).
func (s *Store) Put(domain string, typ Type, creds Credentials) error {
	entry := Entry{Domain: domain, Type: typ, Credentials: creds}
	data, err := json.Marshal(&entry)
	if err != nil {
		return err
	}
	return s.db.Update(func(tx *bbolt.Tx) error {
		bucket := tx.Bucket(Buckets.Credentials)
		return bucket.Put(storeKey(domain, typ), data)
	})
}

// Delete removes the entry for (domain, typ), if any.
func (s *Store) Delete(domain string, typ Type) error {
	return s.db.Update(func(tx *bbolt.Tx) error {
		bucket := tx.Bucket(Buckets.Credentials)
		return bucket.Delete(storeKey(domain, typ))
	})
}

func storeKey(domain string, typ Type) []byte {
	return []byte(domain + storeKeySeparator + string(typ))
}
