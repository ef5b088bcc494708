package httpdl

import (
	"context"
	"io"
)

// A context-aware io.Reader wrapper, so in-flight io.Copy calls stop promptly
// on cancellation.
type readerContext struct {
	ctx context.Context
	r   io.Reader
}

func (r *readerContext) Read(p []byte) (n int, err error) {
	if err := r.ctx.Err(); err != nil {
		return 0, err
	}
	return r.r.Read(p)
}
