package pubsub

import (
	"errors"
	"sync"
)

const (
	DefaultPublisherBufSize  = 1
	DefaultSubscriberBufSize = 1
)

var (
	ErrPublisherClosed = errors.New("publisher closed")
)

// Publisher fans messages out to any number of subscribers. A subscriber that
// stops receiving (its channel is closed) is silently dropped.
type Publisher[T any] interface {
	SenderCloser[T]
	Subscribe() (ReceiverCloser[T], error)
}

type publisher[T any] struct {
	mu          sync.Mutex
	ch          Channel[T]
	running     sync.WaitGroup // Goroutines in progress
	pending     sync.WaitGroup // Messages not yet sent to all subscribers
	subscribers []Channel[T]
	closed      bool
}

func NewPublisher[T any]() Publisher[T] {
	p := &publisher[T]{
		ch: NewChannel[T](DefaultPublisherBufSize),
	}
	p.running.Add(1)
	go func() {
		defer p.running.Done()
		for v := range p.ch.Receive() {
			// Copy the current subscriber set, to avoid holding a lock that prevents adding new subscribers
			p.mu.Lock()
			subscribers := make([]Channel[T], len(p.subscribers))
			copy(subscribers, p.subscribers)
			p.mu.Unlock()
			for _, s := range subscribers {
				if ok := s.Send(v); !ok {
					p.unsubscribe(s)
				}
			}
			p.pending.Done()
		}
	}()
	return p
}

// Send will publish the value to all subscribers (non-blocking unless a subscriber's buffer is full).
func (p *publisher[T]) Send(msg T) bool {
	p.pending.Add(1)
	if ok := p.ch.Send(msg); !ok {
		// Message was not sent, so don't wait for it
		p.pending.Done()
		return false
	}
	return true
}

func (p *publisher[T]) Subscribe() (ReceiverCloser[T], error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return nil, ErrPublisherClosed
	}
	s := NewChannel[T](DefaultSubscriberBufSize)
	p.subscribers = append(p.subscribers, s)
	return s, nil
}

func (p *publisher[T]) unsubscribe(s Channel[T]) {
	p.mu.Lock()
	defer p.mu.Unlock()
	for i, other := range p.subscribers {
		if other == s {
			p.subscribers = append(p.subscribers[:i], p.subscribers[i+1:]...)
			return
		}
	}
}

// Close idempotently shuts down the publisher, closing all subscribers too.
func (p *publisher[T]) Close() {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return
	}
	p.closed = true
	p.mu.Unlock()
	// Close the send channel, and wait for the fan-out goroutine to flush
	p.ch.Close()
	p.pending.Wait()
	p.running.Wait()
	// Close all subscribers
	p.mu.Lock()
	subscribers := p.subscribers
	p.subscribers = nil
	p.mu.Unlock()
	for _, s := range subscribers {
		s.Close()
	}
}
