package rrclient

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"sync"

	"github.com/nerrad567/iot-device-sdk/internal/infrastructure/mqtt"
	"github.com/nerrad567/iot-device-sdk/internal/jsoncodec"
)

// Client multiplexes request/response exchanges and streams over one
// MQTT connection.
//
// Thread Safety:
//   - All methods are safe for concurrent use from multiple goroutines.
//   - MQTT handlers never block; they only hand messages to waiting
//     requests and stream queues.
type Client struct {
	pubsub PubSub
	opts   Options
	logger Logger

	mu       sync.Mutex
	closed   bool
	subs     map[string]*topicSubscription
	requests []*pendingRequest
	streams  map[*stream]struct{}
	useSeq   uint64

	// capacity is closed and replaced whenever a request/response slot may
	// have been freed.
	capacity chan struct{}

	// publishMu orders uncorrelated requests by publish time.
	publishMu sync.Mutex
}

type result struct {
	resp *Response
	err  error
}

type pendingRequest struct {
	filters map[string]bool
	paths   map[string]string
	token   string

	// armed is set under c.mu right before publishing. Unarmed requests
	// are never matched.
	armed bool

	// done receives exactly one result: the response or ErrClosed.
	done chan result
}

// New creates a Client over pubsub and registers for its connection
// callbacks.
//
// Parameters:
//   - pubsub: Connected MQTT client
//   - opts: Capacity, timeout and logging settings
//
// Returns:
//   - *Client: Ready for SubmitRequest and CreateStream
//   - error: ErrInvalidOptions if a capacity is too small
func New(pubsub PubSub, opts Options) (*Client, error) {
	if pubsub == nil {
		return nil, fmt.Errorf("%w: pubsub is required", ErrInvalidOptions)
	}
	if opts.MaxRequestResponseSubscriptions < 2 {
		return nil, fmt.Errorf("%w: max request/response subscriptions must be at least 2", ErrInvalidOptions)
	}
	if opts.MaxStreamingSubscriptions < 1 {
		return nil, fmt.Errorf("%w: max streaming subscriptions must be at least 1", ErrInvalidOptions)
	}

	logger := opts.Logger
	if logger == nil {
		logger = nopLogger{}
	}

	c := &Client{
		pubsub:  pubsub,
		opts:    opts,
		logger:  logger,
		subs:     make(map[string]*topicSubscription),
		streams:  make(map[*stream]struct{}),
		capacity: make(chan struct{}),
	}

	pubsub.SetOnConnect(c.handleConnect)
	pubsub.SetOnDisconnect(c.handleDisconnect)

	return c, nil
}

// SubmitRequest subscribes to every filter in opts, publishes the payload
// once all subscriptions are acknowledged, and returns the first correlated
// message on a response topic.
//
// The exchange is bounded by ctx and by Options.OperationTimeout. When
// every request/response slot is held by requests in flight, SubmitRequest
// waits for one to free up within that bound.
//
// Returns:
//   - *Response: Topic and payload of the answering message
//   - error: ErrInvalidRequest, ErrSubscriptionCapacity, ErrSubscribeFailed,
//     ErrPublishFailed, ErrTimeout, ErrClosed or the context's error
func (c *Client) SubmitRequest(ctx context.Context, opts RequestOptions) (*Response, error) {
	if err := validateRequest(opts); err != nil {
		return nil, err
	}

	if c.opts.OperationTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.opts.OperationTimeout)
		defer cancel()
	}

	req := &pendingRequest{
		filters: make(map[string]bool, len(opts.SubscriptionTopicFilters)),
		paths:   make(map[string]string, len(opts.ResponsePaths)),
		token:   opts.CorrelationToken,
		done:    make(chan result, 1),
	}
	for _, f := range opts.SubscriptionTopicFilters {
		req.filters[f] = true
	}
	for _, p := range opts.ResponsePaths {
		req.paths[p.Topic] = p.CorrelationTokenJSONPath
	}

	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil, ErrClosed
	}
	c.requests = append(c.requests, req)
	c.mu.Unlock()
	defer c.unregister(req)

	subs, err := c.acquireForRequest(ctx, req, opts.SubscriptionTopicFilters)
	if err != nil {
		return nil, err
	}
	defer c.releaseForRequest(subs)

	if err := c.publish(req, opts); err != nil {
		return nil, err
	}

	select {
	case res := <-req.done:
		return res.resp, res.err
	case <-ctx.Done():
		return nil, contextError(ctx)
	}
}

// publish arms req and sends its payload. Uncorrelated requests are armed
// and published under publishMu so that the order they are answered in
// matches the order they reached the broker.
func (c *Client) publish(req *pendingRequest, opts RequestOptions) error {
	if req.token == "" {
		c.publishMu.Lock()
		defer c.publishMu.Unlock()
	}

	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return ErrClosed
	}
	if i := slices.Index(c.requests, req); i >= 0 {
		c.requests = append(slices.Delete(c.requests, i, i+1), req)
	}
	req.armed = true
	c.mu.Unlock()

	c.logger.Debug("publishing request",
		"topic", opts.PublishTopic,
		"correlation_token", opts.CorrelationToken,
	)
	if err := c.pubsub.Publish(opts.PublishTopic, opts.Payload, c.opts.QoS, false); err != nil {
		return fmt.Errorf("%w: %w", ErrPublishFailed, err)
	}
	return nil
}

func validateRequest(opts RequestOptions) error {
	if opts.PublishTopic == "" {
		return fmt.Errorf("%w: publish topic is required", ErrInvalidRequest)
	}
	if len(opts.SubscriptionTopicFilters) == 0 {
		return fmt.Errorf("%w: at least one subscription topic filter is required", ErrInvalidRequest)
	}
	if len(opts.ResponsePaths) == 0 {
		return fmt.Errorf("%w: at least one response path is required", ErrInvalidRequest)
	}
	for _, f := range opts.SubscriptionTopicFilters {
		if f == "" {
			return fmt.Errorf("%w: empty subscription topic filter", ErrInvalidRequest)
		}
	}
	for _, p := range opts.ResponsePaths {
		if p.Topic == "" {
			return fmt.Errorf("%w: empty response path topic", ErrInvalidRequest)
		}
	}
	return nil
}

func (c *Client) unregister(req *pendingRequest) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if i := slices.Index(c.requests, req); i >= 0 {
		c.requests = slices.Delete(c.requests, i, i+1)
	}
}

func (c *Client) handlerFor(filter string) mqtt.MessageHandler {
	return func(topic string, payload []byte) error {
		c.route(filter, topic, payload)
		return nil
	}
}

// route hands a message received through filter to the earliest published
// request it answers and to every open stream on filter.
func (c *Client) route(filter, topic string, payload []byte) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return
	}

	for i, req := range c.requests {
		if !req.armed || !req.filters[filter] {
			continue
		}
		path, ok := req.paths[topic]
		if !ok {
			continue
		}
		if req.token != "" && path != "" {
			token, found := jsoncodec.LookupString(payload, path)
			if !found || token != req.token {
				continue
			}
		}
		c.requests = slices.Delete(c.requests, i, i+1)
		req.done <- result{resp: &Response{Topic: topic, Payload: payload}}
		break
	}

	for s := range c.streams {
		if s.filter == filter && s.state == streamOpen {
			s.emitPublish(IncomingPublishEvent{Topic: topic, Payload: payload})
		}
	}
}

func (c *Client) handleConnect() {
	c.mu.Lock()
	defer c.mu.Unlock()

	for s := range c.streams {
		if s.state == streamOpen && s.sub != nil && !s.established {
			s.established = true
			s.emitStatus(SubscriptionStatusEvent{Type: SubscriptionEstablished})
		}
	}
}

func (c *Client) handleDisconnect(err error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	for s := range c.streams {
		if s.state == streamOpen && s.established {
			s.established = false
			s.emitStatus(SubscriptionStatusEvent{Type: SubscriptionLost, Err: err})
		}
	}
}

// Stats reports current subscription and request counts.
func (c *Client) Stats() Stats {
	c.mu.Lock()
	defer c.mu.Unlock()

	requestResponse, streaming := c.countsLocked()
	open := 0
	for s := range c.streams {
		if s.state == streamOpen {
			open++
		}
	}
	return Stats{
		RequestResponseSubscriptions: requestResponse,
		StreamingSubscriptions:       streaming,
		PendingRequests:              len(c.requests),
		OpenStreams:                  open,
	}
}

// Close fails every in-flight request with ErrClosed, closes every stream,
// removes every subscription and detaches from the MQTT connection
// callbacks. It waits for the unsubscribes to finish.
//
// Each open stream receives a final SubscriptionHalted event carrying
// ErrClosed after the events already queued for it.
func (c *Client) Close() error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil
	}
	c.closed = true

	for _, req := range c.requests {
		req.done <- result{err: ErrClosed}
	}
	c.requests = nil

	for s := range c.streams {
		if s.state == streamOpen {
			s.emitStatus(SubscriptionStatusEvent{Type: SubscriptionHalted, Err: ErrClosed})
		}
		s.closeLocked(true)
	}
	c.streams = make(map[*stream]struct{})

	var remove, leaving []*topicSubscription
	for _, sub := range c.subs {
		if sub.state == stateUnsubscribing {
			leaving = append(leaving, sub)
			continue
		}
		sub.state = stateUnsubscribing
		remove = append(remove, sub)
	}
	c.subs = make(map[string]*topicSubscription)
	c.mu.Unlock()

	c.pubsub.SetOnConnect(nil)
	c.pubsub.SetOnDisconnect(nil)

	var wg sync.WaitGroup
	for _, sub := range remove {
		wg.Add(1)
		go func() {
			defer wg.Done()
			c.unsubscribe(sub)
		}()
	}
	wg.Wait()

	for _, sub := range leaving {
		<-sub.gone
	}
	return nil
}

func contextError(ctx context.Context) error {
	if errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return fmt.Errorf("%w: %w", ErrTimeout, ctx.Err())
	}
	return ctx.Err()
}

type nopLogger struct{}

func (nopLogger) Debug(string, ...any) {}
func (nopLogger) Warn(string, ...any)  {}
