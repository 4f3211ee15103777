package rrclient

import "errors"

var (
	// ErrInvalidOptions is returned by New for unusable capacity settings.
	ErrInvalidOptions = errors.New("rrclient: invalid options")

	// ErrInvalidRequest is returned when request options are incomplete.
	ErrInvalidRequest = errors.New("rrclient: invalid request")

	// ErrInvalidStream is returned when stream options are incomplete.
	ErrInvalidStream = errors.New("rrclient: invalid stream options")

	// ErrSubscriptionCapacity is returned when a request needs more topic
	// filters than the request/response limit, or when every streaming
	// slot is in use.
	ErrSubscriptionCapacity = errors.New("rrclient: no subscription capacity available")

	// ErrSubscribeFailed is returned when the broker refuses a subscription.
	ErrSubscribeFailed = errors.New("rrclient: subscribe failed")

	// ErrPublishFailed is returned when the request could not be published.
	ErrPublishFailed = errors.New("rrclient: publish failed")

	// ErrTimeout is returned when no correlated response arrives in time.
	ErrTimeout = errors.New("rrclient: operation timed out")

	// ErrClosed is returned for requests in flight when the client closes
	// and for any use of a closed client.
	ErrClosed = errors.New("rrclient: client closed")

	// ErrStreamState is returned by Open on a stream that is not newly created.
	ErrStreamState = errors.New("rrclient: stream already opened or closed")
)
