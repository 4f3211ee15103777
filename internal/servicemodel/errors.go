package servicemodel

import (
	"errors"
	"fmt"
)

// Sentinels matched by errors.Is against a *ServiceError.
var (
	// ErrUnknownOperation means the operation name is not in the service model.
	ErrUnknownOperation = errors.New("servicemodel: operation not in service model")

	// ErrMissingValidator means no validator is registered for the input shape.
	ErrMissingValidator = errors.New("servicemodel: no validator for input shape")

	// ErrValidation means the request or stream configuration is malformed.
	ErrValidation = errors.New("servicemodel: validation failure")

	// ErrSerialization means the request could not be encoded.
	ErrSerialization = errors.New("servicemodel: request serialization failed")

	// ErrMissingDeserializer means a response arrived on a topic with no deserializer.
	ErrMissingDeserializer = errors.New("servicemodel: no deserializer for response topic")

	// ErrTransport means the MQTT exchange itself failed. InternalError holds the cause.
	ErrTransport = errors.New("servicemodel: transport failure")

	// ErrDeserialization means a response or event payload could not be decoded.
	ErrDeserialization = errors.New("servicemodel: deserialization failure")

	// ErrRejected means the service answered on a rejected topic.
	// ModeledError holds the decoded error body.
	ErrRejected = errors.New("servicemodel: request rejected by service")
)

type errorKind int

const (
	kindUnspecified errorKind = iota
	kindUnknownOperation
	kindMissingValidator
	kindValidation
	kindSerialization
	kindMissingDeserializer
	kindTransport
	kindDeserialization
	kindRejected
)

var kindSentinels = map[errorKind]error{
	kindUnknownOperation:    ErrUnknownOperation,
	kindMissingValidator:    ErrMissingValidator,
	kindValidation:          ErrValidation,
	kindSerialization:       ErrSerialization,
	kindMissingDeserializer: ErrMissingDeserializer,
	kindTransport:           ErrTransport,
	kindDeserialization:     ErrDeserialization,
	kindRejected:            ErrRejected,
}

// ServiceError is the only error type returned by Execute and CreateStream.
//
// Local and validation failures carry neither InternalError nor
// ModeledError. Transport failures set InternalError. Rejections set
// ModeledError to the decoded body of the rejected topic.
type ServiceError struct {
	Description   string
	InternalError error
	ModeledError  any

	kind errorKind
}

// NewServiceError builds a ServiceError. The error matches ErrRejected when
// modeled is non-nil and ErrTransport when only internal is non-nil.
func NewServiceError(description string, internal error, modeled any) *ServiceError {
	kind := kindUnspecified
	switch {
	case modeled != nil:
		kind = kindRejected
	case internal != nil:
		kind = kindTransport
	}
	return newError(kind, description, internal, modeled)
}

func newError(kind errorKind, description string, internal error, modeled any) *ServiceError {
	return &ServiceError{
		Description:   description,
		InternalError: internal,
		ModeledError:  modeled,
		kind:          kind,
	}
}

func (e *ServiceError) Error() string {
	if e.InternalError != nil {
		return fmt.Sprintf("%s: %v", e.Description, e.InternalError)
	}
	return e.Description
}

func (e *ServiceError) Unwrap() error {
	return e.InternalError
}

func (e *ServiceError) Is(target error) bool {
	sentinel, ok := kindSentinels[e.kind]
	return ok && target == sentinel
}

// Rejection returns the modeled error of a rejected request as a T.
//
// Example:
//
//	if rej, ok := servicemodel.Rejection[shadow.ErrorResponse](err); ok {
//	    fmt.Println(rej.Code, rej.Message)
//	}
func Rejection[T any](err error) (T, bool) {
	var zero T
	var se *ServiceError
	if !errors.As(err, &se) || se.ModeledError == nil {
		return zero, false
	}
	modeled, ok := se.ModeledError.(T)
	return modeled, ok
}
