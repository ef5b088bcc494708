package mediagrab

import (
	"context"
	"fmt"
	"sort"

	"github.com/mediagrab/mediagrab/generic"
)

// A Downloader materializes all bytes referenced by a Content's fragments at a
// local destination path, dispatching the content's extractor Merge once all
// fragments are on disk.
type Downloader interface {
	Name() string
	// CanHandle reports whether this downloader can fetch every fragment of
	// the content, based on URL scheme/capability only.
	CanHandle(c *Content) bool
	// Download fetches all fragments and assembles them at destination. A
	// cancelled ctx aborts promptly, cleans up temp files and returns an error
	// wrapping ErrCancelled.
	Download(ctx context.Context, c *Content, destination string) error
}

type registeredDownloader struct {
	downloader Downloader
	priority   int16
	seq        int
}

// A DownloaderRegistry dispatches a Content to the first registered downloader
// whose CanHandle accepts it, with the same deterministic ordering semantics
// as ExtractorRegistry.
type DownloaderRegistry struct {
	downloaders []*registeredDownloader
	byName      map[string]*registeredDownloader
}

func (r *DownloaderRegistry) Add(d Downloader) error {
	return r.AddPriority(d, PriorityDefault)
}

func (r *DownloaderRegistry) AddPriority(d Downloader, priority int16) error {
	if d == nil || d.Name() == "" {
		return ErrInvalidDownloader
	}
	if r.byName == nil {
		r.byName = make(map[string]*registeredDownloader)
	}
	if _, ok := r.byName[d.Name()]; ok {
		return ErrDuplicateDownloader
	}
	reg := &registeredDownloader{downloader: d, priority: priority, seq: len(r.downloaders)}
	r.byName[d.Name()] = reg
	r.downloaders = append(r.downloaders, reg)
	r.sortByPriority()
	return nil
}

// MustAdd wraps Add but panics if there is an error.
func (r *DownloaderRegistry) MustAdd(d Downloader) {
	generic.Unwrap_(r.Add(d))
}

// List returns the names of registered downloaders in matching order.
func (r *DownloaderRegistry) List() []string {
	names := make([]string, 0, len(r.downloaders))
	for _, reg := range r.downloaders {
		names = append(names, reg.downloader.Name())
	}
	return names
}

// Get returns the first registered downloader that can handle the content, or
// an error wrapping ErrUnsupported.
func (r *DownloaderRegistry) Get(c *Content) (Downloader, error) {
	for _, reg := range r.downloaders {
		if reg.downloader.CanHandle(c) {
			return reg.downloader, nil
		}
	}
	return nil, fmt.Errorf("%w: content %q", ErrUnsupported, c.UID)
}

func (r *DownloaderRegistry) sortByPriority() {
	sort.Slice(r.downloaders, func(i, j int) bool {
		if r.downloaders[i].priority != r.downloaders[j].priority {
			return r.downloaders[i].priority < r.downloaders[j].priority
		}
		return r.downloaders[i].seq < r.downloaders[j].seq
	})
}

// DefaultDownloaders is the registry that built-in downloader packages add
// themselves to from init().
var DefaultDownloaders DownloaderRegistry
