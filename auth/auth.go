// Package auth provides the process-wide credential registry consulted by
// extractors before making network calls.
package auth

import (
	"sort"

	"github.com/mediagrab/mediagrab/internal/sync_"
)

// Type enumerates the credential kinds an extractor may declare.
type Type string

const (
	// None means no authentication is required.
	None Type = ""
	// Basic means (username, password) authentication is required.
	Basic Type = "basic"
	// OAuth means (key, secret) authentication is required.
	OAuth Type = "oauth"
)

// Credentials is an opaque payload; the registry stores it without
// interpreting it. Callers are responsible for keeping secrets out of logs.
type Credentials struct {
	Key    string
	Secret string
}

// Entry is one registry entry, as exposed by Registry.Entries.
type Entry struct {
	Domain      string
	Type        Type
	Credentials Credentials
}

type entryKey struct {
	domain string
	typ    Type
}

// Registry is a process-scoped credential store keyed by (domain, type).
// Writes are last-write-wins; all access is serialized, so a Registry is safe
// for concurrent use by any number of extractors.
type Registry struct {
	entries *sync_.RWMutexed[map[entryKey]Credentials]
}

func NewRegistry() *Registry {
	return &Registry{
		entries: sync_.NewRWMutexed(make(map[entryKey]Credentials)),
	}
}

// Register stores credentials for (domain, typ), replacing any previous entry.
func (r *Registry) Register(domain string, typ Type, creds Credentials) {
	_ = r.entries.Locked(func(entries map[entryKey]Credentials) error {
		entries[entryKey{domain, typ}] = creds
		return nil
	})
}

// Get returns the credentials for (domain, typ), if any.
func (r *Registry) Get(domain string, typ Type) (Credentials, bool) {
	var creds Credentials
	var found bool
	_ = r.entries.RLocked(func(entries map[entryKey]Credentials) error {
		creds, found = entries[entryKey{domain, typ}]
		return nil
	})
	return creds, found
}

// Remove deletes the entry for (domain, typ), returning true if one existed.
func (r *Registry) Remove(domain string, typ Type) bool {
	var found bool
	_ = r.entries.Locked(func(entries map[entryKey]Credentials) error {
		if _, found = entries[entryKey{domain, typ}]; found {
			delete(entries, entryKey{domain, typ})
		}
		return nil
	})
	return found
}

// Entries returns a snapshot of all entries, ordered by domain then type.
func (r *Registry) Entries() []Entry {
	var snapshot []Entry
	_ = r.entries.RLocked(func(entries map[entryKey]Credentials) error {
		for k, v := range entries {
			snapshot = append(snapshot, Entry{Domain: k.domain, Type: k.typ, Credentials: v})
		}
		return nil
	})
	sort.Slice(snapshot, func(i, j int) bool {
		if snapshot[i].Domain != snapshot[j].Domain {
			return snapshot[i].Domain < snapshot[j].Domain
		}
		return snapshot[i].Type < snapshot[j].Type
	})
	return snapshot
}
