// Package httpdl implements the HTTP(S) fragment downloader: all fragments of
// a Content are fetched concurrently under bounded connection limits, large
// fragments are range-split across parallel connections where the host allows
// it, and the fragment files are handed to the content's extractor for
// merging into the final artifact.
package httpdl

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/hashicorp/go-multierror"

	"github.com/mediagrab/mediagrab"
	"github.com/mediagrab/mediagrab/generic"
	"github.com/mediagrab/mediagrab/internal/pubsub"
)

var schemes = generic.NewSet("http", "https")

var errRangeUnsupported = errors.New("range requests not supported by server")

type statusError struct {
	code int
}

func (e *statusError) Error() string {
	return fmt.Sprintf("unexpected status code %d", e.code)
}

type HTTPDownloader struct {
	cfg    config
	events pubsub.Publisher[Event]
}

func New(opts ...Option) (*HTTPDownloader, error) {
	cfg := defaultConfig()
	for _, opt := range opts {
		opt(&cfg)
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &HTTPDownloader{
		cfg:    cfg,
		events: pubsub.NewPublisher[Event](),
	}, nil
}

func (d *HTTPDownloader) Name() string {
	return "http"
}

// Close shuts down the event stream. Don't call while downloads are running.
func (d *HTTPDownloader) Close() {
	d.events.Close()
}

// Events subscribes to the downloader's event stream. The subscriber must
// drain its channel until it closes.
func (d *HTTPDownloader) Events() (pubsub.ReceiverCloser[Event], error) {
	return d.events.Subscribe()
}

// CanHandle accepts content whose fragments are all http(s) URLs.
func (d *HTTPDownloader) CanHandle(c *mediagrab.Content) bool {
	if len(c.Fragments) == 0 {
		return false
	}
	for _, fragment := range c.Fragments {
		parsed, err := url.Parse(fragment)
		if err != nil || !schemes.Contains(parsed.Scheme) {
			return false
		}
	}
	return true
}

type fragmentFailure struct {
	index int
	err   error
}

// Download fetches every fragment of the content into a dedicated temp
// directory, then merges them at destination via the content's extractor.
// On any failure or cancellation the temp directory is removed and no partial
// artifact is left at destination.
func (d *HTTPDownloader) Download(ctx context.Context, content *mediagrab.Content, destination string) error {
	if err := content.Validate(); err != nil {
		return err
	}

	id := uuid.New()
	logger := mediagrab.Logger(ctx).Sugar().Named("httpdl").With("download_id", id.String())
	start := time.Now()

	tempDir, err := os.MkdirTemp(d.cfg.tempDir, "mediagrab-"+id.String()+"-")
	if err != nil {
		return fmt.Errorf("failed to create temp dir: %w", err)
	}
	defer func() {
		if err := os.RemoveAll(tempDir); err != nil {
			logger.Warnf("failed to clean up temp dir: %v", err)
		}
	}()

	fetchCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	// Probe every fragment up front: total size for progress reporting, range
	// support for connection splitting.
	probes := make([]probeResult, len(content.Fragments))
	total := int64(0)
	for i, fragment := range content.Fragments {
		probes[i] = d.probe(fetchCtx, fragment)
		if total != mediagrab.SizeUnknown {
			if probes[i].length < 0 {
				total = mediagrab.SizeUnknown
			} else {
				total += probes[i].length
			}
		}
	}
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("%w: %v", mediagrab.ErrCancelled, err)
	}

	tracker := newProgressTracker(len(content.Fragments), total, d.cfg.updateDelay, d.cfg.progress)
	d.events.Send(Started{eventBase{id}, content.UID, destination, len(content.Fragments), total})

	failures := make(chan fragmentFailure, len(content.Fragments))
	paths := make([]string, len(content.Fragments))
	sem := make(chan struct{}, d.cfg.maxFragments)
	var wg sync.WaitGroup
	for i, fragment := range content.Fragments {
		paths[i] = filepath.Join(tempDir, fmt.Sprintf("fragment-%d", i))
		wg.Add(1)
		go func(index int, fragmentURL string, path string) {
			defer wg.Done()
			sem <- struct{}{}
			defer func() { <-sem }()
			if fetchCtx.Err() != nil {
				return
			}
			err := retryWithBackoff(fetchCtx, d.cfg.retry, func() error {
				return d.fetchFragment(fetchCtx, fragmentURL, path, probes[index], tracker, index)
			}, isTransient)
			if err != nil {
				failures <- fragmentFailure{index, err}
				// Abort the remaining fragments; a partial set is useless
				cancel()
				return
			}
			d.events.Send(FragmentCompleted{eventBase{id}, index})
		}(i, fragment, paths[i])
	}
	wg.Wait()
	close(failures)

	fail := func(err error) error {
		tracker.stop(false)
		d.events.Send(Failed{eventBase{id}, err})
		return err
	}

	// Caller cancellation takes precedence over any fetch errors it induced
	if ctxErr := ctx.Err(); ctxErr != nil {
		logger.Infow("download cancelled", "uid", content.UID)
		return fail(fmt.Errorf("%w: %v", mediagrab.ErrCancelled, ctxErr))
	}

	// Collect every failure, attributing the error to the lowest failed
	// fragment index for determinism. Workers aborted by a sibling's cancel
	// report context.Canceled; those are victims, not causes, so they only
	// count when nothing else failed.
	var failed []fragmentFailure
	for f := range failures {
		failed = append(failed, f)
	}
	if len(failed) > 0 {
		causes := make([]fragmentFailure, 0, len(failed))
		for _, f := range failed {
			if !errors.Is(f.err, context.Canceled) {
				causes = append(causes, f)
			}
		}
		if len(causes) == 0 {
			causes = failed
		}
		sort.Slice(causes, func(i, j int) bool { return causes[i].index < causes[j].index })
		var errs *multierror.Error
		for _, f := range causes {
			errs = multierror.Append(errs, f.err)
		}
		logger.Warnw("download failed", "uid", content.UID, "fragment", causes[0].index, "error", errs)
		return fail(&mediagrab.DownloadError{Fragment: causes[0].index, Err: errs.ErrorOrNil()})
	}

	// Check each fragment against the size the remote declared
	for i, probe := range probes {
		if probe.length < 0 {
			continue
		}
		info, err := os.Stat(paths[i])
		if err != nil {
			return fail(&mediagrab.DownloadError{Fragment: i, Err: err})
		}
		if info.Size() != probe.length {
			return fail(&mediagrab.DownloadError{
				Fragment: i,
				Err:      fmt.Errorf("expected %d bytes, got %d", probe.length, info.Size()),
			})
		}
	}

	tracker.stop(true)

	merge := mediagrab.MergeFragments
	if content.Extractor != nil {
		merge = content.Extractor.Merge
	}
	if err := merge(paths, destination); err != nil {
		d.events.Send(Failed{eventBase{id}, err})
		var mergeErr *mediagrab.MergeError
		if errors.As(err, &mergeErr) {
			return err
		}
		return &mediagrab.MergeError{Destination: destination, Err: err}
	}

	bytes := tracker.snapshot()
	d.events.Send(Completed{eventBase{id}, destination, bytes, time.Since(start)})
	logger.Infow("download complete", "uid", content.UID, "destination", destination, "bytes", bytes)
	return nil
}

type probeResult struct {
	length    int64
	rangeable bool
}

// probe makes a HEAD request for the fragment's length and range support.
// Hosts that reject HEAD just get a single streamed connection later.
func (d *HTTPDownloader) probe(ctx context.Context, fragmentURL string) probeResult {
	unknown := probeResult{length: -1}
	req, err := http.NewRequestWithContext(ctx, http.MethodHead, fragmentURL, nil)
	if err != nil {
		return unknown
	}
	req.Header.Set("User-Agent", d.cfg.userAgent)
	resp, err := d.cfg.client.Do(req)
	if err != nil {
		return unknown
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return unknown
	}
	return probeResult{
		length:    resp.ContentLength,
		rangeable: strings.EqualFold(resp.Header.Get("Accept-Ranges"), "bytes"),
	}
}

// fetchFragment retrieves one fragment into its temp file, range-split when
// the probe says the host supports it, a single streamed connection otherwise.
func (d *HTTPDownloader) fetchFragment(ctx context.Context, fragmentURL, path string, probe probeResult, tracker *progressTracker, index int) error {
	// A retried attempt starts from scratch
	tracker.resetFragment(index)
	counter := tracker.fragmentWriter(index)

	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	if probe.rangeable && probe.length > 0 && d.cfg.maxConnections > 1 {
		// Pre-allocate so each connection can write directly at its offset
		if err := f.Truncate(probe.length); err != nil {
			return err
		}
		err := d.fetchRanged(ctx, fragmentURL, f, probe.length, counter)
		if err == nil {
			return nil
		}
		if !errors.Is(err, errRangeUnsupported) {
			return err
		}
		// The probe advertised ranges but the server refused them; start over
		// with a plain streamed fetch
		tracker.resetFragment(index)
		if err := f.Truncate(0); err != nil {
			return err
		}
	}

	if _, err := f.Seek(0, io.SeekStart); err != nil {
		return err
	}
	return d.stream(ctx, fragmentURL, f, counter)
}

type byteRange struct {
	start, end int64 // inclusive
}

func splitRanges(length int64, connections int) []byteRange {
	if int64(connections) > length {
		connections = int(length)
	}
	chunk := length / int64(connections)
	ranges := make([]byteRange, 0, connections)
	start := int64(0)
	for i := 0; i < connections; i++ {
		end := start + chunk - 1
		if i == connections-1 {
			end = length - 1
		}
		ranges = append(ranges, byteRange{start, end})
		start = end + 1
	}
	return ranges
}

// fetchRanged downloads the fragment as maxConnections contiguous byte ranges
// in parallel, each written directly to its offset in the pre-allocated file.
func (d *HTTPDownloader) fetchRanged(ctx context.Context, fragmentURL string, f *os.File, length int64, counter io.Writer) error {
	ranges := splitRanges(length, d.cfg.maxConnections)
	rangeCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	errs := make(chan error, len(ranges))
	var wg sync.WaitGroup
	for _, r := range ranges {
		wg.Add(1)
		go func(r byteRange) {
			defer wg.Done()
			if err := d.fetchRange(rangeCtx, fragmentURL, f, r, counter); err != nil {
				errs <- err
				cancel()
			}
		}(r)
	}
	wg.Wait()
	close(errs)

	var first error
	for err := range errs {
		if errors.Is(err, errRangeUnsupported) {
			// The caller falls back to a plain fetch for this
			return err
		}
		if first == nil {
			first = err
		}
	}
	return first
}

func (d *HTTPDownloader) fetchRange(ctx context.Context, fragmentURL string, f *os.File, r byteRange, counter io.Writer) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, fragmentURL, nil)
	if err != nil {
		return err
	}
	req.Header.Set("User-Agent", d.cfg.userAgent)
	req.Header.Set("Range", fmt.Sprintf("bytes=%d-%d", r.start, r.end))
	resp, err := d.cfg.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusPartialContent:
		// The only acceptable answer to a Range request
	case resp.StatusCode == http.StatusRequestedRangeNotSatisfiable:
		return errRangeUnsupported
	case resp.StatusCode >= 200 && resp.StatusCode <= 299:
		// Server ignored the Range header and is sending the whole body
		return errRangeUnsupported
	default:
		return &statusError{resp.StatusCode}
	}

	writer := io.MultiWriter(&sectionWriter{f: f, off: r.start}, counter)
	_, err = io.Copy(writer, &readerContext{ctx, resp.Body})
	return err
}

// stream downloads the whole fragment over a single connection.
func (d *HTTPDownloader) stream(ctx context.Context, fragmentURL string, f *os.File, counter io.Writer) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, fragmentURL, nil)
	if err != nil {
		return err
	}
	req.Header.Set("User-Agent", d.cfg.userAgent)
	resp, err := d.cfg.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return &statusError{resp.StatusCode}
	}
	_, err = io.Copy(io.MultiWriter(f, counter), &readerContext{ctx, resp.Body})
	return err
}

// sectionWriter writes sequentially starting at a fixed offset, so concurrent
// range workers can share one file handle.
type sectionWriter struct {
	f   *os.File
	off int64
}

func (w *sectionWriter) Write(p []byte) (int, error) {
	n, err := w.f.WriteAt(p, w.off)
	w.off += int64(n)
	return n, err
}

func init() {
	mediagrab.DefaultDownloaders.MustAdd(generic.Unwrap(New()))
}
