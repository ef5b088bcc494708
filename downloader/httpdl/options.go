package httpdl

import (
	"fmt"
	"net/http"
	"time"
)

const (
	DefaultUpdateDelay = 100 * time.Millisecond
	DefaultUserAgent   = "mediagrab/0.1"
)

// ProgressFunc receives coalesced progress updates for a download. total is
// SizeUnknown when the size of any fragment could not be determined. Calls are
// made from a single goroutine, at most once per update delay, with done
// non-decreasing across the whole sequence.
type ProgressFunc func(done int64, total int64, elapsed time.Duration)

type config struct {
	client         *http.Client
	maxFragments   int
	maxConnections int
	updateDelay    time.Duration
	tempDir        string
	userAgent      string
	retry          RetryConfig
	progress       ProgressFunc
}

func defaultConfig() config {
	return config{
		client:         &http.Client{},
		maxFragments:   1,
		maxConnections: 1,
		updateDelay:    DefaultUpdateDelay,
		userAgent:      DefaultUserAgent,
		retry:          DefaultRetryConfig(),
	}
}

func (c *config) validate() error {
	if c.maxFragments < 1 {
		return fmt.Errorf("max fragments must be at least 1, got %d", c.maxFragments)
	}
	if c.maxConnections < 1 {
		return fmt.Errorf("max connections must be at least 1, got %d", c.maxConnections)
	}
	if c.updateDelay <= 0 {
		return fmt.Errorf("update delay must be positive, got %v", c.updateDelay)
	}
	if c.retry.MaxAttempts < 1 {
		return fmt.Errorf("retry attempts must be at least 1, got %d", c.retry.MaxAttempts)
	}
	return nil
}

type Option func(*config)

// WithClient sets the HTTP client used for all requests.
func WithClient(client *http.Client) Option {
	return func(c *config) {
		c.client = client
	}
}

// WithMaxFragments sets how many fragments are fetched concurrently.
func WithMaxFragments(n int) Option {
	return func(c *config) {
		c.maxFragments = n
	}
}

// WithMaxConnections sets how many connections are used per fragment for
// range-split fetching. Total concurrent sockets to a host are bounded by
// maxFragments * maxConnections; keep the product conservative (at most ~10),
// since many hosts throttle or ban heavier connection use.
func WithMaxConnections(n int) Option {
	return func(c *config) {
		c.maxConnections = n
	}
}

// WithUpdateDelay sets the minimum interval between progress callbacks.
func WithUpdateDelay(d time.Duration) Option {
	return func(c *config) {
		c.updateDelay = d
	}
}

// WithTempDir sets the directory under which per-download scratch directories
// are created; defaults to the system temp directory.
func WithTempDir(dir string) Option {
	return func(c *config) {
		c.tempDir = dir
	}
}

func WithUserAgent(ua string) Option {
	return func(c *config) {
		c.userAgent = ua
	}
}

// WithRetry sets the retry policy applied per fragment.
func WithRetry(retry RetryConfig) Option {
	return func(c *config) {
		c.retry = retry
	}
}

// WithProgress sets the progress callback.
func WithProgress(f ProgressFunc) Option {
	return func(c *config) {
		c.progress = f
	}
}
