// Package raw provides the fallback extractor for direct links to media
// files: any http(s) URL is treated as a single-fragment content at the
// lowest quality rank.
package raw

import (
	"context"
	"fmt"
	"net/url"

	"github.com/mediagrab/mediagrab"
	"github.com/mediagrab/mediagrab/auth"
	"github.com/mediagrab/mediagrab/generic"
	"github.com/mediagrab/mediagrab/util"
)

type Config struct {
	Protocols generic.Set[string]
}

func NewConfig() Config {
	return Config{
		Protocols: generic.NewSet(
			"http",
			"https",
		),
	}
}

type Extractor struct {
	cfg Config
}

func New() *Extractor {
	return NewWithConfig(NewConfig())
}

func NewWithConfig(cfg Config) *Extractor {
	return &Extractor{cfg: cfg}
}

func (e *Extractor) Name() string {
	return "raw"
}

func (e *Extractor) CanHandle(s string) bool {
	parsedURL, err := url.Parse(s)
	if err != nil {
		return false
	}
	return e.cfg.Protocols.Contains(parsedURL.Scheme) && parsedURL.Host != ""
}

func (e *Extractor) Authentication() auth.Type {
	return auth.None
}

func (e *Extractor) Authenticate(registry *auth.Registry) error {
	return nil
}

// Extract yields exactly one group with one variant: the URL itself. No
// network calls are needed; the downloader discovers the size during its own
// probing.
func (e *Extractor) Extract(ctx context.Context, s string) ([]mediagrab.ContentGroup, error) {
	if !e.CanHandle(s) {
		return nil, &mediagrab.ExtractionError{URL: s, Err: fmt.Errorf("not an http(s) URL")}
	}
	content := &mediagrab.Content{
		UID:       fmt.Sprintf("raw-%s", s),
		Source:    s,
		Fragments: []string{s},
		Quality:   0,
		Extractor: e,
	}
	if filename, err := util.FilenameFromURLString(s); err == nil {
		content.Title = filename
	}
	return []mediagrab.ContentGroup{{content}}, nil
}

func (e *Extractor) Merge(fragmentPaths []string, destination string) error {
	return mediagrab.MergeFragments(fragmentPaths, destination)
}

func init() {
	mediagrab.DefaultExtractors.MustAddPriority(New(), mediagrab.PriorityLowest)
}
