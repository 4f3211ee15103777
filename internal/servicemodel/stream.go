package servicemodel

import (
	"errors"
	"fmt"
	"sync"

	"github.com/nerrad567/iot-device-sdk/internal/rrclient"
)

// StreamState is the lifecycle position of a StreamingOperation.
type StreamState int

const (
	StreamCreated StreamState = iota
	StreamOpen
	StreamClosed
)

// IncomingPublishError reports a stream message that could not be decoded.
// The stream stays open.
type IncomingPublishError struct {
	Topic   string
	Payload []byte
	Err     *ServiceError
}

// StreamOptions are the callbacks of a StreamingOperation. Callbacks run
// one at a time, in order, on a goroutine owned by the stream and never
// before CreateStream or Open has returned.
type StreamOptions[E any] struct {
	OnSubscriptionStatus   func(rrclient.SubscriptionStatusEvent)
	OnIncomingPublish      func(E)
	OnIncomingPublishError func(IncomingPublishError)
}

// StreamingOperation is a long-lived subscription delivering typed events.
type StreamingOperation[E any] struct {
	operation string
	topic     string
	stream    rrclient.Stream

	mu    sync.Mutex
	state StreamState
}

// CreateStream validates config, computes the topic filter of the streaming
// operation named operationName and creates the transport stream. Nothing
// is subscribed until Open.
func CreateStream[E any](c *Client, operationName string, config any, opts StreamOptions[E]) (*StreamingOperation[E], error) {
	op, ok := c.model.StreamingOperations[operationName]
	if !ok {
		return nil, newError(kindUnknownOperation,
			fmt.Sprintf("streaming operation '%s' not found in service model", operationName), nil, nil)
	}

	validator, ok := c.model.Shapes[op.InputShapeName]
	if !ok {
		return nil, newError(kindMissingValidator,
			fmt.Sprintf("streaming operation '%s' input type '%s' has no validator", operationName, op.InputShapeName), nil, nil)
	}
	if err := validator(config); err != nil {
		return nil, asValidationError(err)
	}

	s := &StreamingOperation[E]{
		operation: operationName,
		topic:     op.SubscriptionGenerator(config),
	}

	stream, err := c.transport.CreateStream(rrclient.StreamOptions{
		SubscriptionTopicFilter: s.topic,
		OnSubscriptionStatus: func(event rrclient.SubscriptionStatusEvent) {
			s.statusChanged(opts, event)
		},
		OnIncomingPublish: func(event rrclient.IncomingPublishEvent) {
			s.deliver(c, op, opts, event)
		},
	})
	if err != nil {
		return nil, newError(kindTransport,
			fmt.Sprintf("streaming operation '%s' could not be created", operationName), err, nil)
	}
	s.stream = stream

	c.logger.Debug("stream created", "operation", operationName, "topic", s.topic)
	return s, nil
}

func (s *StreamingOperation[E]) deliver(c *Client, op *StreamingOperationModel, opts StreamOptions[E], event rrclient.IncomingPublishEvent) {
	value, err := op.Deserializer(event.Payload)

	var typed E
	if err == nil {
		var ok bool
		if typed, ok = value.(E); !ok {
			err = fmt.Errorf("decoded %T, not %T", value, typed)
		}
	}

	if err != nil {
		se := newError(kindDeserialization,
			fmt.Sprintf("streaming operation '%s' message on '%s' could not be decoded", s.operation, event.Topic), err, nil)
		c.observers.StreamMessageReceived(s.operation, se)
		if opts.OnIncomingPublishError != nil {
			opts.OnIncomingPublishError(IncomingPublishError{
				Topic:   event.Topic,
				Payload: event.Payload,
				Err:     se,
			})
		}
		return
	}

	c.observers.StreamMessageReceived(s.operation, nil)
	if opts.OnIncomingPublish != nil {
		opts.OnIncomingPublish(typed)
	}
}

// statusChanged forwards a subscription status event. A halt caused by the
// owning client closing leaves the stream closed.
func (s *StreamingOperation[E]) statusChanged(opts StreamOptions[E], event rrclient.SubscriptionStatusEvent) {
	if event.Type == rrclient.SubscriptionHalted && errors.Is(event.Err, rrclient.ErrClosed) {
		s.mu.Lock()
		s.state = StreamClosed
		s.mu.Unlock()
	}
	if opts.OnSubscriptionStatus != nil {
		opts.OnSubscriptionStatus(event)
	}
}

// Open starts the subscription. The result arrives as a subscription
// status event. Open may be called once.
func (s *StreamingOperation[E]) Open() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state != StreamCreated {
		return newError(kindTransport,
			fmt.Sprintf("streaming operation '%s' cannot be opened", s.operation), rrclient.ErrStreamState, nil)
	}
	if err := s.stream.Open(); err != nil {
		return newError(kindTransport,
			fmt.Sprintf("streaming operation '%s' could not be opened", s.operation), err, nil)
	}
	s.state = StreamOpen
	return nil
}

// Close ends the subscription. No callback runs once Close returns,
// except one already in progress. Close is idempotent.
func (s *StreamingOperation[E]) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state == StreamClosed {
		return nil
	}
	s.state = StreamClosed
	if err := s.stream.Close(); err != nil {
		return newError(kindTransport,
			fmt.Sprintf("streaming operation '%s' could not be closed", s.operation), err, nil)
	}
	return nil
}

// State reports the lifecycle position of the stream.
func (s *StreamingOperation[E]) State() StreamState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Topic returns the subscribed topic filter.
func (s *StreamingOperation[E]) Topic() string {
	return s.topic
}
