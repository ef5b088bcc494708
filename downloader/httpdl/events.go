package httpdl

import (
	"time"

	"github.com/google/uuid"
)

// Event is emitted by the downloader over its event stream; every download
// operation is identified by a fresh UUID.
type Event interface {
	DownloadID() uuid.UUID
}

type eventBase struct {
	ID uuid.UUID
}

func (e eventBase) DownloadID() uuid.UUID {
	return e.ID
}

// Started is emitted once per download, after probing, before any fetching.
type Started struct {
	eventBase
	UID         string
	Destination string
	Fragments   int
	Total       int64
}

// FragmentCompleted is emitted as each fragment finishes; fragments may
// complete in any order.
type FragmentCompleted struct {
	eventBase
	Fragment int
}

// Completed is emitted after a successful merge.
type Completed struct {
	eventBase
	Destination string
	Bytes       int64
	Elapsed     time.Duration
}

// Failed is emitted when a download ends without a merged artifact.
type Failed struct {
	eventBase
	Err error
}
