package async

import "github.com/mediagrab/mediagrab/generic"

// Run will run a function in a goroutine, returning its result via a channel.
func Run[T any](f func() T) <-chan T {
	c := make(chan T)
	go func() {
		c <- f()
	}()
	return c
}

// RunResult is like Run, but for functions returning (T, error), wrapping the return value as a generic.Result.
func RunResult[T any](f func() (T, error)) <-chan generic.Result[T] {
	return Run(func() generic.Result[T] {
		return generic.NewResult(f())
	})
}
