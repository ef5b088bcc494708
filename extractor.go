package mediagrab

import (
	"context"
	"fmt"
	"math"
	"sort"

	"github.com/mediagrab/mediagrab/auth"
	"github.com/mediagrab/mediagrab/generic"
)

var (
	PriorityHighest int16 = math.MinInt16
	PriorityDefault int16 = 0
	PriorityLowest  int16 = math.MaxInt16
)

// ContentGroup is a ranked list of Content variants for one logical resource,
// sorted by descending quality.
type ContentGroup []*Content

// Sort orders the group by descending Quality; equal qualities are broken by
// ascending UID, so ordering is deterministic for any fixed set of variants.
func (g ContentGroup) Sort() {
	sort.SliceStable(g, func(i, j int) bool {
		if g[i].Quality != g[j].Quality {
			return g[i].Quality > g[j].Quality
		}
		return g[i].UID < g[j].UID
	})
}

// Best returns the highest-ranked Content in the group, or nil if empty.
func (g ContentGroup) Best() *Content {
	if len(g) == 0 {
		return nil
	}
	return g[0]
}

// An Extractor translates a source URL into ranked groups of downloadable
// Content.
type Extractor interface {
	Name() string
	// CanHandle reports whether this extractor recognises the URL. It must be
	// a pure predicate: no network I/O.
	CanHandle(url string) bool
	// Authentication declares the credential kind required before Extract.
	Authentication() auth.Type
	// Authenticate applies stored credentials to the extractor's client state,
	// returning an *AuthError if required credentials are absent or rejected.
	Authenticate(registry *auth.Registry) error
	// Extract enumerates the available variants of every resource reachable
	// from the URL, fetching only enough metadata to populate Content fields.
	// Each returned group is sorted by descending quality. Re-invoking Extract
	// re-runs the network calls; nothing is cached.
	Extract(ctx context.Context, url string) ([]ContentGroup, error)
	// Merge assembles downloaded fragment files, in fragment order, into a
	// final artifact at destination. Must be idempotent: a repeat call with
	// the same inputs and a complete destination is a no-op success.
	Merge(fragmentPaths []string, destination string) error
}

type registeredExtractor struct {
	extractor Extractor
	priority  int16
	seq       int
}

// An ExtractorRegistry is an ordered collection of extractors dispatched by
// first CanHandle match. Matching order is by ascending priority, then
// registration order, so overlapping domain matches are reproducible.
type ExtractorRegistry struct {
	extractors []*registeredExtractor
	byName     map[string]*registeredExtractor
}

// Add registers an extractor at PriorityDefault. The extractor's name must be
// unique within the registry.
func (r *ExtractorRegistry) Add(e Extractor) error {
	return r.AddPriority(e, PriorityDefault)
}

// AddPriority registers an extractor with an explicit priority; lower
// (including negative) matches earlier.
func (r *ExtractorRegistry) AddPriority(e Extractor, priority int16) error {
	if e == nil || e.Name() == "" {
		return ErrInvalidExtractor
	}
	if r.byName == nil {
		r.byName = make(map[string]*registeredExtractor)
	}
	if _, ok := r.byName[e.Name()]; ok {
		return ErrDuplicateExtractor
	}
	reg := &registeredExtractor{extractor: e, priority: priority, seq: len(r.extractors)}
	r.byName[e.Name()] = reg
	r.extractors = append(r.extractors, reg)
	r.sortByPriority()
	return nil
}

// MustAdd wraps Add but panics if there is an error.
func (r *ExtractorRegistry) MustAdd(e Extractor) {
	generic.Unwrap_(r.Add(e))
}

// MustAddPriority wraps AddPriority but panics if there is an error.
func (r *ExtractorRegistry) MustAddPriority(e Extractor, priority int16) {
	generic.Unwrap_(r.AddPriority(e, priority))
}

// List returns the names of registered extractors in matching order.
func (r *ExtractorRegistry) List() []string {
	names := make([]string, 0, len(r.extractors))
	for _, reg := range r.extractors {
		names = append(names, reg.extractor.Name())
	}
	return names
}

// Get returns the first registered extractor whose CanHandle accepts the URL,
// or an error wrapping ErrUnsupported.
func (r *ExtractorRegistry) Get(url string) (Extractor, error) {
	for _, reg := range r.extractors {
		if reg.extractor.CanHandle(url) {
			return reg.extractor, nil
		}
	}
	return nil, fmt.Errorf("%w: %s", ErrUnsupported, url)
}

// GetByName returns the named extractor regardless of whether it matches
// anything.
func (r *ExtractorRegistry) GetByName(name string) (Extractor, error) {
	if reg, ok := r.byName[name]; ok {
		return reg.extractor, nil
	}
	return nil, fmt.Errorf("%w: %s", ErrUnknownExtractor, name)
}

func (r *ExtractorRegistry) sortByPriority() {
	sort.Slice(r.extractors, func(i, j int) bool {
		if r.extractors[i].priority != r.extractors[j].priority {
			return r.extractors[i].priority < r.extractors[j].priority
		}
		return r.extractors[i].seq < r.extractors[j].seq
	})
}

// DefaultExtractors is the registry that built-in extractor packages add
// themselves to from init().
var DefaultExtractors ExtractorRegistry
