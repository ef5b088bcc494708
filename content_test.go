package mediagrab

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	assert_ "github.com/stretchr/testify/assert"
)

func TestContentValidate(t *testing.T) {
	assert := assert_.New(t)

	valid := &Content{UID: "a", Fragments: []string{"http://example.com/a.mp4"}, Quality: 0.5}
	assert.NoError(valid.Validate())

	noUID := &Content{Fragments: []string{"http://example.com/a.mp4"}}
	assert.Error(noUID.Validate())

	noFragments := &Content{UID: "a"}
	assert.Error(noFragments.Validate())

	badQuality := &Content{UID: "a", Fragments: []string{"http://example.com/a.mp4"}, Quality: 1.5}
	assert.Error(badQuality.Validate())
	badQuality.Quality = -0.1
	assert.Error(badQuality.Validate())
}

func TestContentSize(t *testing.T) {
	assert := assert_.New(t)

	var heads int64
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt64(&heads, 1)
		switch r.URL.Path {
		case "/a":
			w.Header().Set("Content-Length", "100")
		case "/b":
			w.Header().Set("Content-Length", "250")
		}
	}))
	defer server.Close()

	content := &Content{
		UID:       "a",
		Fragments: []string{server.URL + "/a", server.URL + "/b"},
	}
	size, err := content.Size(context.Background(), server.Client())
	assert.NoError(err)
	assert.Equal(int64(350), size)

	// Cached, no further probing
	size, err = content.Size(context.Background(), server.Client())
	assert.NoError(err)
	assert.Equal(int64(350), size)
	assert.Equal(int64(2), atomic.LoadInt64(&heads))
}

func TestContentSizeUnknown(t *testing.T) {
	assert := assert_.New(t)

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/nolength" {
			// Chunked response, no Content-Length on HEAD
			w.WriteHeader(http.StatusOK)
			return
		}
		w.Header().Set("Content-Length", "100")
	}))
	defer server.Close()

	content := &Content{
		UID:       "a",
		Fragments: []string{server.URL + "/a", server.URL + "/nolength"},
	}
	size, err := content.Size(context.Background(), server.Client())
	assert.NoError(err)
	assert.Equal(SizeUnknown, size)
}

func TestContentSizeHeadRejected(t *testing.T) {
	assert := assert_.New(t)

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusMethodNotAllowed)
	}))
	defer server.Close()

	content := &Content{UID: "a", Fragments: []string{server.URL + "/a"}}
	size, err := content.Size(context.Background(), server.Client())
	assert.NoError(err)
	assert.Equal(SizeUnknown, size)
}

func TestContentSizeError(t *testing.T) {
	assert := assert_.New(t)

	content := &Content{UID: "a", Fragments: []string{"http://127.0.0.1:1/unreachable"}}
	_, err := content.Size(context.Background(), nil)
	assert.Error(err)

	// Errors are not cached; a reachable fragment list would still be probed
	assert.False(content.sizeDone)
}

func TestContentString(t *testing.T) {
	assert := assert_.New(t)
	content := &Content{UID: "abc", Quality: 0.75}
	assert.Equal(fmt.Sprintf("Content{UID:%q, Quality:0.75}", "abc"), content.String())
}
