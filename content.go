package mediagrab

import (
	"context"
	"fmt"
	"net/http"
	"sync"
	"time"
)

// SizeUnknown is the size reported when the length of one or more fragments
// cannot be determined.
const SizeUnknown int64 = -1

// Content describes one retrievable quality/format variant of a resource.
// After creation by an extractor its fields must not be modified.
type Content struct {
	// UID is a stable identifier, unique even across quality variants of the
	// same source. Two Content values with equal UIDs describe the same
	// logical content.
	UID string
	// Source is the URL the content was extracted from.
	Source string
	// Fragments is the ordered list of URLs that make up the full payload;
	// merge order is fragment order. Never empty.
	Fragments []string
	// Quality ranks this variant against its siblings, in [0, 1].
	Quality float64
	// Extractor is a back-reference to the extractor that produced this
	// content, used to dispatch Merge after download.
	Extractor Extractor

	Title       string
	Description string
	UploadedBy  string
	UploadedAt  time.Time
	Metadata    map[string]interface{}

	sizeMu   sync.Mutex
	size     int64
	sizeDone bool
}

func (c *Content) String() string {
	return fmt.Sprintf("Content{UID:%q, Quality:%v}", c.UID, c.Quality)
}

// Validate checks the Content invariants.
func (c *Content) Validate() error {
	if c.UID == "" {
		return fmt.Errorf("content has no UID")
	}
	if len(c.Fragments) == 0 {
		return fmt.Errorf("content %q has no fragments", c.UID)
	}
	if c.Quality < 0 || c.Quality > 1 {
		return fmt.Errorf("content %q quality %v outside [0, 1]", c.UID, c.Quality)
	}
	return nil
}

// Size returns the total payload size in bytes, summed across fragments via
// HEAD requests. Fragments that don't declare a length make the whole size
// SizeUnknown rather than an error. The first successful result is cached.
func (c *Content) Size(ctx context.Context, client *http.Client) (int64, error) {
	c.sizeMu.Lock()
	defer c.sizeMu.Unlock()
	if c.sizeDone {
		return c.size, nil
	}
	if client == nil {
		client = http.DefaultClient
	}
	var total int64
	for _, fragment := range c.Fragments {
		length, err := fragmentLength(ctx, client, fragment)
		if err != nil {
			return 0, fmt.Errorf("failed to probe fragment %q: %w", fragment, err)
		}
		if length < 0 {
			total = SizeUnknown
			break
		}
		total += length
	}
	c.size = total
	c.sizeDone = true
	return total, nil
}

// fragmentLength probes a fragment URL, returning a negative length if the
// remote doesn't declare one.
func fragmentLength(ctx context.Context, client *http.Client, url string) (int64, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodHead, url, nil)
	if err != nil {
		return 0, err
	}
	resp, err := client.Do(req)
	if err != nil {
		return 0, err
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		// Some hosts reject HEAD; treat as unknown rather than failing
		return -1, nil
	}
	return resp.ContentLength, nil
}
