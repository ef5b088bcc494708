package auth

import (
	"fmt"
	"sync"
	"testing"

	assert_ "github.com/stretchr/testify/assert"
)

func TestRegistry(t *testing.T) {
	assert := assert_.New(t)
	r := NewRegistry()

	_, found := r.Get("example.com", OAuth)
	assert.False(found)

	r.Register("example.com", OAuth, Credentials{Key: "k", Secret: "s"})
	creds, found := r.Get("example.com", OAuth)
	assert.True(found)
	assert.Equal(Credentials{Key: "k", Secret: "s"}, creds)

	// Same domain, different type, is a distinct entry
	_, found = r.Get("example.com", Basic)
	assert.False(found)

	// Last write wins
	r.Register("example.com", OAuth, Credentials{Key: "k2", Secret: "s2"})
	creds, _ = r.Get("example.com", OAuth)
	assert.Equal("k2", creds.Key)

	assert.True(r.Remove("example.com", OAuth))
	assert.False(r.Remove("example.com", OAuth))
	_, found = r.Get("example.com", OAuth)
	assert.False(found)
}

func TestRegistryEntriesOrdered(t *testing.T) {
	assert := assert_.New(t)
	r := NewRegistry()
	r.Register("b.example.com", Basic, Credentials{Key: "u b"})
	r.Register("a.example.com", OAuth, Credentials{Key: "k a"})
	r.Register("a.example.com", Basic, Credentials{Key: "u a"})

	entries := r.Entries()
	assert.Len(entries, 3)
	assert.Equal("a.example.com", entries[0].Domain)
	assert.Equal(Basic, entries[0].Type)
	assert.Equal("a.example.com", entries[1].Domain)
	assert.Equal(OAuth, entries[1].Type)
	assert.Equal("b.example.com", entries[2].Domain)
}

func TestRegistryConcurrent(t *testing.T) {
	assert := assert_.New(t)
	r := NewRegistry()
	var wg sync.WaitGroup

	for i := 0; i < 20; i++ {
		wg.Add(2)
		go func(i int) {
			defer wg.Done()
			domain := fmt.Sprintf("site%d.example.com", i)
			for j := 0; j < 50; j++ {
				r.Register(domain, Basic, Credentials{Key: "user", Secret: "pass"})
			}
		}(i)
		go func(i int) {
			defer wg.Done()
			domain := fmt.Sprintf("site%d.example.com", i)
			for j := 0; j < 50; j++ {
				_, _ = r.Get(domain, Basic)
			}
		}(i)
	}
	wg.Wait()

	assert.Len(r.Entries(), 20)
}
