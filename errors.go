package mediagrab

import (
	"errors"
	"fmt"
)

var (
	// ErrUnsupported means no registered extractor or downloader matched the input.
	ErrUnsupported = errors.New("no extractor or downloader matched the input")
	// ErrCancelled means the caller aborted the operation; distinct from a fetch failure.
	ErrCancelled = errors.New("download cancelled")

	ErrDuplicateExtractor  = errors.New("duplicate extractor name")
	ErrInvalidExtractor    = errors.New("invalid extractor")
	ErrUnknownExtractor    = errors.New("unknown extractor")
	ErrDuplicateDownloader = errors.New("duplicate downloader name")
	ErrInvalidDownloader   = errors.New("invalid downloader")
)

// AuthError means required credentials were absent or rejected.
type AuthError struct {
	Extractor string
	Err       error
}

func (e *AuthError) Error() string {
	return fmt.Sprintf("authentication failed for %q: %v", e.Extractor, e.Err)
}

func (e *AuthError) Unwrap() error {
	return e.Err
}

// ExtractionError means a matched URL could not be turned into content, e.g. an
// unparseable page or an unexpected API response.
type ExtractionError struct {
	URL string
	Err error
}

func (e *ExtractionError) Error() string {
	return fmt.Sprintf("extraction failed for %q: %v", e.URL, e.Err)
}

func (e *ExtractionError) Unwrap() error {
	return e.Err
}

// NotFoundError means the URL was recognised but yielded no content.
type NotFoundError struct {
	URL string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("no content found at %q", e.URL)
}

// DownloadError means a fragment fetch exhausted its retries. Fragment is the
// index into Content.Fragments of the failing fragment.
type DownloadError struct {
	Fragment int
	Err      error
}

func (e *DownloadError) Error() string {
	return fmt.Sprintf("download of fragment %d failed: %v", e.Fragment, e.Err)
}

func (e *DownloadError) Unwrap() error {
	return e.Err
}

// MergeError means post-download assembly of fragments failed.
type MergeError struct {
	Destination string
	Err         error
}

func (e *MergeError) Error() string {
	return fmt.Sprintf("merge into %q failed: %v", e.Destination, e.Err)
}

func (e *MergeError) Unwrap() error {
	return e.Err
}
