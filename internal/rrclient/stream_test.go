package rrclient

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const deltaTopic = "$aws/things/abc/shadow/update/delta"

type streamRecorder struct {
	statuses chan SubscriptionStatusEvent
	messages chan IncomingPublishEvent
}

func newStreamRecorder() *streamRecorder {
	return &streamRecorder{
		statuses: make(chan SubscriptionStatusEvent, 16),
		messages: make(chan IncomingPublishEvent, 16),
	}
}

func (r *streamRecorder) options(filter string) StreamOptions {
	return StreamOptions{
		SubscriptionTopicFilter: filter,
		OnSubscriptionStatus:    func(e SubscriptionStatusEvent) { r.statuses <- e },
		OnIncomingPublish:       func(e IncomingPublishEvent) { r.messages <- e },
	}
}

func (r *streamRecorder) nextStatus(t *testing.T) SubscriptionStatusEvent {
	t.Helper()
	select {
	case e := <-r.statuses:
		return e
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for status event")
		return SubscriptionStatusEvent{}
	}
}

func (r *streamRecorder) nextMessage(t *testing.T) IncomingPublishEvent {
	t.Helper()
	select {
	case e := <-r.messages:
		return e
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for message event")
		return IncomingPublishEvent{}
	}
}

func TestStream_Lifecycle(t *testing.T) {
	pubsub := newFakePubSub()
	c := newTestClient(t, pubsub, Options{})
	rec := newStreamRecorder()

	s, err := c.CreateStream(rec.options(deltaTopic))
	require.NoError(t, err)
	assert.Equal(t, 0, pubsub.count("subscribe "), "nothing is subscribed before Open")

	require.NoError(t, s.Open())
	assert.Equal(t, SubscriptionEstablished, rec.nextStatus(t).Type)
	assert.Equal(t, 1, c.Stats().StreamingSubscriptions)

	pubsub.deliver(deltaTopic, `{"version":1}`)
	pubsub.deliver(deltaTopic, `{"version":2}`)
	assert.JSONEq(t, `{"version":1}`, string(rec.nextMessage(t).Payload))
	assert.JSONEq(t, `{"version":2}`, string(rec.nextMessage(t).Payload))

	pubsub.disconnect(errors.New("connection reset"))
	lost := rec.nextStatus(t)
	assert.Equal(t, SubscriptionLost, lost.Type)
	assert.EqualError(t, lost.Err, "connection reset")

	pubsub.connect()
	assert.Equal(t, SubscriptionEstablished, rec.nextStatus(t).Type)

	require.NoError(t, s.Close())
	require.Eventually(t, func() bool {
		return pubsub.count("unsubscribe "+deltaTopic) == 1
	}, time.Second, 10*time.Millisecond)

	pubsub.deliver(deltaTopic, `{"version":3}`)
	select {
	case e := <-rec.messages:
		t.Fatalf("unexpected message after Close: %s", e.Payload)
	case <-time.After(50 * time.Millisecond):
	}

	assert.NoError(t, s.Close(), "Close is idempotent")
	assert.ErrorIs(t, s.Open(), ErrStreamState)
}

func TestStream_DoubleOpen(t *testing.T) {
	c := newTestClient(t, newFakePubSub(), Options{})
	rec := newStreamRecorder()

	s, err := c.CreateStream(rec.options(deltaTopic))
	require.NoError(t, err)
	require.NoError(t, s.Open())
	assert.ErrorIs(t, s.Open(), ErrStreamState)
}

func TestStream_SubscribeFailureHalts(t *testing.T) {
	pubsub := newFakePubSub()
	pubsub.subscribeErr[deltaTopic] = errors.New("not authorized")
	c := newTestClient(t, pubsub, Options{})
	rec := newStreamRecorder()

	s, err := c.CreateStream(rec.options(deltaTopic))
	require.NoError(t, err)
	require.NoError(t, s.Open())

	halted := rec.nextStatus(t)
	assert.Equal(t, SubscriptionHalted, halted.Type)
	assert.ErrorIs(t, halted.Err, ErrSubscribeFailed)
	assert.Equal(t, 0, c.Stats().StreamingSubscriptions)
}

func TestStream_CapacityHalts(t *testing.T) {
	c := newTestClient(t, newFakePubSub(), Options{MaxStreamingSubscriptions: 1})

	first := newStreamRecorder()
	s1, err := c.CreateStream(first.options(deltaTopic))
	require.NoError(t, err)
	require.NoError(t, s1.Open())
	assert.Equal(t, SubscriptionEstablished, first.nextStatus(t).Type)

	second := newStreamRecorder()
	s2, err := c.CreateStream(second.options("$aws/things/abc/jobs/notify"))
	require.NoError(t, err)
	require.NoError(t, s2.Open())

	halted := second.nextStatus(t)
	assert.Equal(t, SubscriptionHalted, halted.Type)
	assert.ErrorIs(t, halted.Err, ErrSubscriptionCapacity)
}

func TestStream_SharedFilter(t *testing.T) {
	pubsub := newFakePubSub()
	c := newTestClient(t, pubsub, Options{MaxStreamingSubscriptions: 1})

	a, b := newStreamRecorder(), newStreamRecorder()
	s1, err := c.CreateStream(a.options(deltaTopic))
	require.NoError(t, err)
	s2, err := c.CreateStream(b.options(deltaTopic))
	require.NoError(t, err)

	require.NoError(t, s1.Open())
	assert.Equal(t, SubscriptionEstablished, a.nextStatus(t).Type)
	require.NoError(t, s2.Open())
	assert.Equal(t, SubscriptionEstablished, b.nextStatus(t).Type)
	assert.Equal(t, 1, pubsub.count("subscribe "))

	pubsub.deliver(deltaTopic, `{"version":9}`)
	a.nextMessage(t)
	b.nextMessage(t)

	require.NoError(t, s1.Close())
	time.Sleep(20 * time.Millisecond)
	assert.Equal(t, 0, pubsub.count("unsubscribe "), "filter stays while another stream holds it")

	require.NoError(t, s2.Close())
	require.Eventually(t, func() bool {
		return pubsub.count("unsubscribe ") == 1
	}, time.Second, 10*time.Millisecond)
}

func TestClose_ClosesStreams(t *testing.T) {
	pubsub := newFakePubSub()
	c, err := New(pubsub, Options{MaxRequestResponseSubscriptions: 2, MaxStreamingSubscriptions: 1})
	require.NoError(t, err)
	rec := newStreamRecorder()

	s, err := c.CreateStream(rec.options(deltaTopic))
	require.NoError(t, err)
	require.NoError(t, s.Open())
	rec.nextStatus(t)

	pubsub.deliver(deltaTopic, `{"version":4}`)
	require.NoError(t, c.Close())

	assert.JSONEq(t, `{"version":4}`, string(rec.nextMessage(t).Payload), "queued events are delivered first")
	halted := rec.nextStatus(t)
	assert.Equal(t, SubscriptionHalted, halted.Type)
	assert.ErrorIs(t, halted.Err, ErrClosed)

	assert.Equal(t, 1, pubsub.count("unsubscribe "+deltaTopic))
	assert.Equal(t, 0, c.Stats().OpenStreams)
	assert.ErrorIs(t, s.Open(), ErrStreamState)
	assert.NoError(t, s.Close())
}

func TestClose_UnopenedStreamGetsNoEvents(t *testing.T) {
	c, err := New(newFakePubSub(), Options{MaxRequestResponseSubscriptions: 2, MaxStreamingSubscriptions: 1})
	require.NoError(t, err)
	rec := newStreamRecorder()

	s, err := c.CreateStream(rec.options(deltaTopic))
	require.NoError(t, err)

	require.NoError(t, c.Close())
	select {
	case e := <-rec.statuses:
		t.Fatalf("unexpected status event for a stream never opened: %v", e.Type)
	case <-time.After(50 * time.Millisecond):
	}
	assert.ErrorIs(t, s.Open(), ErrStreamState)
}

func TestStatusEventTypeString(t *testing.T) {
	assert.Equal(t, "established", SubscriptionEstablished.String())
	assert.Equal(t, "lost", SubscriptionLost.String())
	assert.Equal(t, "halted", SubscriptionHalted.String())
	assert.Equal(t, "unknown", SubscriptionStatusEventType(0).String())
}
