package rrclient

import (
	"context"
	"fmt"
	"sync"
)

type streamState int

const (
	streamCreated streamState = iota
	streamOpen
	streamClosed
)

type stream struct {
	c      *Client
	filter string
	opts   StreamOptions
	ctx    context.Context
	cancel context.CancelFunc

	// Guarded by c.mu.
	state       streamState
	sub         *topicSubscription
	established bool
	events      *eventQueue
}

// CreateStream registers a stream on opts.SubscriptionTopicFilter. Nothing
// is subscribed until Open.
func (c *Client) CreateStream(opts StreamOptions) (Stream, error) {
	if opts.SubscriptionTopicFilter == "" {
		return nil, fmt.Errorf("%w: subscription topic filter is required", ErrInvalidStream)
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return nil, ErrClosed
	}

	ctx, cancel := context.WithCancel(context.Background())
	s := &stream{
		c:      c,
		filter: opts.SubscriptionTopicFilter,
		opts:   opts,
		ctx:    ctx,
		cancel: cancel,
	}
	c.streams[s] = struct{}{}
	return s, nil
}

// Open starts subscribing in the background. The outcome is reported as a
// SubscriptionEstablished or SubscriptionHalted event.
func (s *stream) Open() error {
	s.c.mu.Lock()
	defer s.c.mu.Unlock()

	if s.state != streamCreated {
		return ErrStreamState
	}
	s.state = streamOpen
	s.events = newEventQueue()
	go s.events.run()
	go s.subscribe()
	return nil
}

func (s *stream) subscribe() {
	sub, err := s.c.acquireForStream(s.ctx, s.filter)

	s.c.mu.Lock()
	defer s.c.mu.Unlock()

	if s.state != streamOpen {
		if err == nil {
			s.c.releaseForStreamLocked(sub)
		}
		return
	}

	if err != nil {
		s.c.logger.Warn("stream subscription halted", "topic", s.filter, "error", err)
		s.emitStatus(SubscriptionStatusEvent{Type: SubscriptionHalted, Err: err})
		return
	}

	s.sub = sub
	s.established = true
	s.emitStatus(SubscriptionStatusEvent{Type: SubscriptionEstablished})
}

// Close stops event delivery and releases the subscription. Events still
// queued are dropped.
func (s *stream) Close() error {
	s.c.mu.Lock()
	defer s.c.mu.Unlock()

	if s.state == streamClosed {
		return nil
	}
	s.closeLocked(false)
	delete(s.c.streams, s)
	if s.sub != nil {
		s.c.releaseForStreamLocked(s.sub)
		s.sub = nil
	}
	return nil
}

// closeLocked moves the stream to its terminal state. Queued events are
// still delivered when drain is set. c.mu must be held.
func (s *stream) closeLocked(drain bool) {
	s.state = streamClosed
	s.established = false
	s.cancel()
	if s.events != nil {
		s.events.close(drain)
	}
}

// emitStatus queues a status event. c.mu must be held.
func (s *stream) emitStatus(event SubscriptionStatusEvent) {
	if s.opts.OnSubscriptionStatus == nil || s.events == nil {
		return
	}
	callback := s.opts.OnSubscriptionStatus
	s.events.push(func() { callback(event) })
}

// emitPublish queues a message event. c.mu must be held.
func (s *stream) emitPublish(event IncomingPublishEvent) {
	if s.opts.OnIncomingPublish == nil || s.events == nil {
		return
	}
	callback := s.opts.OnIncomingPublish
	s.events.push(func() { callback(event) })
}

// eventQueue runs callbacks in order on one goroutine. push never blocks.
type eventQueue struct {
	mu     sync.Mutex
	items  []func()
	closed bool
	wake   chan struct{}
}

func newEventQueue() *eventQueue {
	return &eventQueue{wake: make(chan struct{}, 1)}
}

func (q *eventQueue) push(fn func()) {
	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		return
	}
	q.items = append(q.items, fn)
	q.mu.Unlock()
	q.signal()
}

// close refuses further pushes. Pending callbacks run before the queue
// stops when drain is set and are dropped otherwise.
func (q *eventQueue) close(drain bool) {
	q.mu.Lock()
	q.closed = true
	if !drain {
		q.items = nil
	}
	q.mu.Unlock()
	q.signal()
}

func (q *eventQueue) signal() {
	select {
	case q.wake <- struct{}{}:
	default:
	}
}

func (q *eventQueue) run() {
	for {
		q.mu.Lock()
		if len(q.items) == 0 {
			closed := q.closed
			q.mu.Unlock()
			if closed {
				return
			}
			<-q.wake
			continue
		}
		fn := q.items[0]
		q.items[0] = nil
		q.items = q.items[1:]
		q.mu.Unlock()

		fn()
	}
}
