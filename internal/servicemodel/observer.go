package servicemodel

import (
	"context"
	"errors"
	"time"
)

// Outcome classifies how an operation ended.
type Outcome string

const (
	OutcomeSuccess              Outcome = "success"
	OutcomeRejected             Outcome = "rejected"
	OutcomeValidationError      Outcome = "validation_error"
	OutcomeLocalError           Outcome = "local_error"
	OutcomeTransportError       Outcome = "transport_error"
	OutcomeDeserializationError Outcome = "deserialization_error"
)

// OutcomeOf classifies err as returned by Execute.
func OutcomeOf(err error) Outcome {
	switch {
	case err == nil:
		return OutcomeSuccess
	case errors.Is(err, ErrRejected):
		return OutcomeRejected
	case errors.Is(err, ErrValidation):
		return OutcomeValidationError
	case errors.Is(err, ErrTransport):
		return OutcomeTransportError
	case errors.Is(err, ErrDeserialization):
		return OutcomeDeserializationError
	default:
		return OutcomeLocalError
	}
}

// ExecutionRecord describes one completed Execute call.
type ExecutionRecord struct {
	Operation        string
	CorrelationToken string
	PublishTopic     string
	ResponseTopic    string
	Outcome          Outcome
	Err              error
	StartedAt        time.Time
	Duration         time.Duration
}

// Observer is notified after every operation and streamed message.
// Implementations must be safe for concurrent use. OperationCompleted runs
// on the Execute caller's goroutine before Execute returns, so slow work
// such as I/O belongs on a queue of the implementation's own.
type Observer interface {
	OperationCompleted(ctx context.Context, record ExecutionRecord)

	// StreamMessageReceived reports one incoming stream message; err is
	// non-nil when it could not be decoded.
	StreamMessageReceived(operation string, err error)
}

// Observers fans notifications out to every member.
type Observers []Observer

func (o Observers) OperationCompleted(ctx context.Context, record ExecutionRecord) {
	for _, obs := range o {
		obs.OperationCompleted(ctx, record)
	}
}

func (o Observers) StreamMessageReceived(operation string, err error) {
	for _, obs := range o {
		obs.StreamMessageReceived(operation, err)
	}
}
