package main

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/nerrad567/iot-device-sdk/internal/infrastructure/logging"
	"github.com/nerrad567/iot-device-sdk/internal/rrclient"
	"github.com/nerrad567/iot-device-sdk/internal/servicemodel"
	"github.com/nerrad567/iot-device-sdk/internal/services/shadow"
)

// streamTransport hands out one fakeStream and keeps its callbacks.
type streamTransport struct {
	opened chan rrclient.StreamOptions
}

func (t *streamTransport) SubmitRequest(context.Context, rrclient.RequestOptions) (*rrclient.Response, error) {
	return nil, errors.New("not used")
}

func (t *streamTransport) CreateStream(opts rrclient.StreamOptions) (rrclient.Stream, error) {
	return &fakeStream{opts: opts, opened: t.opened}, nil
}

type fakeStream struct {
	opts   rrclient.StreamOptions
	opened chan rrclient.StreamOptions
}

func (s *fakeStream) Open() error {
	s.opened <- s.opts
	return nil
}

func (s *fakeStream) Close() error { return nil }

func TestWatchStream_PrintsEventsUntilHalted(t *testing.T) {
	transport := &streamTransport{opened: make(chan rrclient.StreamOptions, 1)}
	client := shadow.NewClient(transport)
	var out bytes.Buffer
	writer := &lockedWriter{w: &out}

	create := func(opts servicemodel.StreamOptions[shadow.ShadowDeltaUpdatedEvent]) (*servicemodel.StreamingOperation[shadow.ShadowDeltaUpdatedEvent], error) {
		return client.CreateShadowDeltaUpdatedStream(shadow.ShadowDeltaUpdatedSubscriptionRequest{ThingName: "kitchen-sensor"}, opts)
	}

	done := make(chan error, 1)
	go func() {
		done <- watchStream(context.Background(), writer, logging.Discard(), "shadow delta", create)
	}()

	var opts rrclient.StreamOptions
	select {
	case opts = <-transport.opened:
	case <-time.After(2 * time.Second):
		t.Fatal("stream was not opened")
	}
	if opts.SubscriptionTopicFilter != "$aws/things/kitchen-sensor/shadow/update/delta" {
		t.Errorf("SubscriptionTopicFilter = %q", opts.SubscriptionTopicFilter)
	}

	opts.OnIncomingPublish(rrclient.IncomingPublishEvent{
		Topic:   opts.SubscriptionTopicFilter,
		Payload: []byte(`{"version":7,"state":{"power":"on"}}`),
	})
	opts.OnSubscriptionStatus(rrclient.SubscriptionStatusEvent{Type: rrclient.SubscriptionHalted, Err: errors.New("not authorized")})

	select {
	case err := <-done:
		if !errors.Is(err, errStreamHalted) {
			t.Errorf("watchStream() error = %v, want errStreamHalted", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("watchStream did not return after the subscription halted")
	}

	if !strings.Contains(out.String(), `"power": "on"`) {
		t.Errorf("output = %q, want the delta event", out.String())
	}
}

func TestWatchStream_StopsOnContextDone(t *testing.T) {
	transport := &streamTransport{opened: make(chan rrclient.StreamOptions, 1)}
	client := shadow.NewClient(transport)

	ctx, cancel := context.WithCancel(context.Background())
	create := func(opts servicemodel.StreamOptions[shadow.ShadowUpdatedEvent]) (*servicemodel.StreamingOperation[shadow.ShadowUpdatedEvent], error) {
		return client.CreateShadowUpdatedStream(shadow.ShadowUpdatedSubscriptionRequest{ThingName: "kitchen-sensor"}, opts)
	}

	done := make(chan error, 1)
	go func() {
		done <- watchStream(ctx, &bytes.Buffer{}, logging.Discard(), "shadow documents", create)
	}()

	<-transport.opened
	cancel()

	select {
	case err := <-done:
		if err != nil {
			t.Errorf("watchStream() error = %v, want nil", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("watchStream did not return after cancel")
	}
}

func TestWatchStream_InvalidConfig(t *testing.T) {
	transport := &streamTransport{opened: make(chan rrclient.StreamOptions, 1)}
	client := shadow.NewClient(transport)

	create := func(opts servicemodel.StreamOptions[shadow.ShadowDeltaUpdatedEvent]) (*servicemodel.StreamingOperation[shadow.ShadowDeltaUpdatedEvent], error) {
		return client.CreateShadowDeltaUpdatedStream(shadow.ShadowDeltaUpdatedSubscriptionRequest{ThingName: "a+b"}, opts)
	}

	err := watchStream(context.Background(), &bytes.Buffer{}, logging.Discard(), "shadow delta", create)
	if !errors.Is(err, servicemodel.ErrValidation) {
		t.Errorf("watchStream() error = %v, want validation failure", err)
	}
}
