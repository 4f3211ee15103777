package rrclient

import (
	"context"
	"fmt"
)

type subscriptionState int

const (
	stateSubscribing subscriptionState = iota
	stateSubscribed
	stateUnsubscribing
)

// topicSubscription is one topic filter held on the broker.
//
// A filter counts against the streaming capacity while any stream holds
// it and against the request/response capacity otherwise. A filter with
// no references is idle: kept when released by a request, unsubscribed
// when released by a stream.
type topicSubscription struct {
	filter      string
	state       subscriptionState
	requestRefs int
	streamRefs  int
	lastUsed    uint64

	// ready is closed once SUBACK (or failure) is known; err holds the result.
	ready chan struct{}
	err   error

	// gone is closed once the filter has been removed from the broker.
	gone chan struct{}
}

func (s *topicSubscription) idle() bool {
	return s.requestRefs == 0 && s.streamRefs == 0
}

// newSubscriptionLocked records filter and starts subscribing. c.mu must be held.
func (c *Client) newSubscriptionLocked(filter string) *topicSubscription {
	sub := &topicSubscription{
		filter: filter,
		state:  stateSubscribing,
		ready:  make(chan struct{}),
		gone:   make(chan struct{}),
	}
	c.subs[filter] = sub
	go c.subscribe(sub)
	return sub
}

func (c *Client) subscribe(sub *topicSubscription) {
	err := c.pubsub.Subscribe(sub.filter, c.opts.QoS, c.handlerFor(sub.filter))

	c.mu.Lock()
	defer c.mu.Unlock()

	if err != nil {
		c.logger.Warn("subscribe failed", "topic", sub.filter, "error", err)
		sub.err = fmt.Errorf("%w: %s: %w", ErrSubscribeFailed, sub.filter, err)
		if c.subs[sub.filter] == sub {
			delete(c.subs, sub.filter)
		}
		c.capacityChangedLocked()
		close(sub.ready)
		close(sub.gone)
		return
	}

	c.logger.Debug("subscribed", "topic", sub.filter)
	if sub.state == stateSubscribing {
		sub.state = stateSubscribed
	}
	close(sub.ready)
}

// unsubscribe removes sub from the broker. The caller must already have
// moved sub to stateUnsubscribing.
func (c *Client) unsubscribe(sub *topicSubscription) {
	<-sub.ready
	if sub.err != nil {
		return
	}

	if err := c.pubsub.Unsubscribe(sub.filter); err != nil {
		c.logger.Warn("unsubscribe failed", "topic", sub.filter, "error", err)
	} else {
		c.logger.Debug("unsubscribed", "topic", sub.filter)
	}

	c.mu.Lock()
	if c.subs[sub.filter] == sub {
		delete(c.subs, sub.filter)
	}
	c.capacityChangedLocked()
	c.mu.Unlock()
	close(sub.gone)
}

// capacityChangedLocked wakes requests waiting for a request/response
// slot. c.mu must be held.
func (c *Client) capacityChangedLocked() {
	close(c.capacity)
	c.capacity = make(chan struct{})
}

// countsLocked returns the filters charged to each capacity. c.mu must be held.
func (c *Client) countsLocked() (requestResponse, streaming int) {
	for _, sub := range c.subs {
		if sub.streamRefs > 0 {
			streaming++
		} else {
			requestResponse++
		}
	}
	return requestResponse, streaming
}

// acquireForRequest takes a request reference on every filter, creating
// subscriptions and evicting idle ones as needed, and waits until all of
// them are acknowledged. When no slot can be freed it waits for a request
// in flight to release one. On error no references are held.
func (c *Client) acquireForRequest(ctx context.Context, req *pendingRequest, filters []string) ([]*topicSubscription, error) {
	if n := len(uniqueFilters(filters)); n > c.opts.MaxRequestResponseSubscriptions {
		return nil, fmt.Errorf("%w: request needs %d subscriptions, limit is %d",
			ErrSubscriptionCapacity, n, c.opts.MaxRequestResponseSubscriptions)
	}

	for {
		c.mu.Lock()
		if c.closed {
			c.mu.Unlock()
			return nil, ErrClosed
		}

		wanted := make(map[string]bool, len(filters))
		var wait chan struct{}
		missing := 0
		for _, f := range filters {
			if wanted[f] {
				continue
			}
			wanted[f] = true
			sub, ok := c.subs[f]
			switch {
			case !ok:
				missing++
			case sub.state == stateUnsubscribing:
				wait = sub.gone
			}
		}

		if wait == nil && missing > 0 {
			inUse, _ := c.countsLocked()
			if over := inUse + missing - c.opts.MaxRequestResponseSubscriptions; over > 0 {
				pending, enough := c.evictLocked(over, wanted)
				if !enough && pending == nil {
					c.logger.Debug("waiting for subscription capacity", "in_use", inUse, "needed", missing)
					pending = c.capacity
				}
				wait = pending
			}
		}

		if wait != nil {
			c.mu.Unlock()
			select {
			case <-wait:
				continue
			case <-req.done:
				return nil, ErrClosed
			case <-ctx.Done():
				return nil, contextError(ctx)
			}
		}

		subs := make([]*topicSubscription, 0, len(wanted))
		for _, f := range filters {
			if !wanted[f] {
				continue
			}
			delete(wanted, f)
			sub, ok := c.subs[f]
			if !ok {
				sub = c.newSubscriptionLocked(f)
			}
			sub.requestRefs++
			subs = append(subs, sub)
		}
		c.mu.Unlock()

		if err := c.awaitReady(ctx, req.done, subs); err != nil {
			c.releaseForRequest(subs)
			return nil, err
		}
		return subs, nil
	}
}

// evictLocked makes sure n request/response filters outside keep are on
// their way out, starting unsubscribes for idle filters oldest first.
// Filters already being removed count toward n. It returns a channel to
// wait on for capacity to free up (nil when nothing is being removed) and
// whether n was reached.
func (c *Client) evictLocked(n int, keep map[string]bool) (chan struct{}, bool) {
	var pending chan struct{}
	freeing := 0
	for _, sub := range c.subs {
		if sub.state == stateUnsubscribing && sub.streamRefs == 0 && !keep[sub.filter] {
			freeing++
			pending = sub.gone
		}
	}

	for freeing < n {
		var oldest *topicSubscription
		for _, sub := range c.subs {
			if keep[sub.filter] || sub.state != stateSubscribed || !sub.idle() {
				continue
			}
			if oldest == nil || sub.lastUsed < oldest.lastUsed {
				oldest = sub
			}
		}
		if oldest == nil {
			break
		}
		c.logger.Debug("evicting idle subscription", "topic", oldest.filter)
		oldest.state = stateUnsubscribing
		pending = oldest.gone
		go c.unsubscribe(oldest)
		freeing++
	}
	return pending, freeing >= n
}

// awaitReady waits for every subscription to be acknowledged.
func (c *Client) awaitReady(ctx context.Context, closed <-chan result, subs []*topicSubscription) error {
	for _, sub := range subs {
		select {
		case <-sub.ready:
			if sub.err != nil {
				return sub.err
			}
		case <-closed:
			return ErrClosed
		case <-ctx.Done():
			return contextError(ctx)
		}
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return ErrClosed
	}
	return nil
}

// releaseForRequest drops request references. Idle filters stay subscribed.
func (c *Client) releaseForRequest(subs []*topicSubscription) {
	c.mu.Lock()
	defer c.mu.Unlock()

	freed := false
	for _, sub := range subs {
		if c.subs[sub.filter] != sub {
			continue
		}
		sub.requestRefs--
		if sub.idle() {
			c.useSeq++
			sub.lastUsed = c.useSeq
			freed = true
		}
	}
	if freed {
		c.capacityChangedLocked()
	}
}

func uniqueFilters(filters []string) map[string]bool {
	seen := make(map[string]bool, len(filters))
	for _, f := range filters {
		seen[f] = true
	}
	return seen
}

// acquireForStream takes a stream reference on filter and waits for the
// subscription to be acknowledged.
func (c *Client) acquireForStream(ctx context.Context, filter string) (*topicSubscription, error) {
	for {
		c.mu.Lock()
		if c.closed {
			c.mu.Unlock()
			return nil, ErrClosed
		}

		sub, ok := c.subs[filter]
		if ok && sub.state == stateUnsubscribing {
			c.mu.Unlock()
			select {
			case <-sub.gone:
				continue
			case <-ctx.Done():
				return nil, contextError(ctx)
			}
		}

		if !ok || sub.streamRefs == 0 {
			if _, streaming := c.countsLocked(); streaming >= c.opts.MaxStreamingSubscriptions {
				c.mu.Unlock()
				return nil, fmt.Errorf("%w: %d streaming subscriptions in use", ErrSubscriptionCapacity, streaming)
			}
		}
		if !ok {
			sub = c.newSubscriptionLocked(filter)
		}
		sub.streamRefs++
		c.mu.Unlock()

		select {
		case <-sub.ready:
			if sub.err != nil {
				return nil, sub.err
			}
			return sub, nil
		case <-ctx.Done():
			c.releaseForStream(sub)
			return nil, contextError(ctx)
		}
	}
}

func (c *Client) releaseForStream(sub *topicSubscription) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.releaseForStreamLocked(sub)
}

// releaseForStreamLocked drops a stream reference, unsubscribing once
// nothing holds the filter. c.mu must be held.
func (c *Client) releaseForStreamLocked(sub *topicSubscription) {
	if c.subs[sub.filter] != sub {
		return
	}
	sub.streamRefs--
	if sub.streamRefs == 0 {
		c.capacityChangedLocked()
	}
	if sub.idle() && sub.state != stateUnsubscribing {
		sub.state = stateUnsubscribing
		go c.unsubscribe(sub)
	}
}
