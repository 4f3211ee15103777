package servicemodel

import (
	"fmt"

	"github.com/google/uuid"

	"github.com/nerrad567/iot-device-sdk/internal/jsoncodec"
)

// Deserializer decodes a response or event payload. Deserializers for
// rejected topics return a *ServiceError carrying the modeled error.
type Deserializer func(payload []byte) (any, error)

// ShapeValidator checks a request or stream configuration before any
// topic is built from it. It returns a *ServiceError on failure.
type ShapeValidator func(value any) error

// ResponsePath is one topic a response may arrive on.
type ResponsePath struct {
	Topic                    string
	CorrelationTokenJSONPath string
	Deserializer             Deserializer
}

// OperationModel describes one request/response operation.
type OperationModel struct {
	Name           string
	InputShapeName string

	PayloadTransformer    func(request any) ([]byte, error)
	SubscriptionGenerator func(request any) []string
	ResponsePathGenerator func(request any) []ResponsePath
	PublishTopicGenerator func(request any) string

	// CorrelationTokenApplicator returns a copy of the request carrying a
	// fresh token, and the token. Nil for operations without correlation.
	CorrelationTokenApplicator func(request any) (any, string)
}

// StreamingOperationModel describes one streaming operation.
type StreamingOperationModel struct {
	Name           string
	InputShapeName string

	SubscriptionGenerator func(config any) string
	Deserializer          Deserializer
}

// ServiceModel is the immutable operation table of one service.
type ServiceModel struct {
	RequestResponseOperations map[string]*OperationModel
	StreamingOperations       map[string]*StreamingOperationModel
	Shapes                    map[string]ShapeValidator
}

// OperationSpec is the typed form of an OperationModel.
type OperationSpec[Req any] struct {
	Name           string
	InputShapeName string
	PublishTopic   func(Req) string
	ResponsePaths  func(Req) []ResponsePath

	// Subscriptions defaults to the response path topics.
	Subscriptions func(Req) []string

	// Payload defaults to the JSON encoding of the request.
	Payload func(Req) ([]byte, error)

	// ApplyCorrelationToken is nil for operations without correlation.
	ApplyCorrelationToken func(Req) (Req, string)
}

// NewOperation erases the request type of spec.
func NewOperation[Req any](spec OperationSpec[Req]) *OperationModel {
	payload := spec.Payload
	if payload == nil {
		payload = func(r Req) ([]byte, error) { return jsoncodec.Marshal(r) }
	}
	subscriptions := spec.Subscriptions
	if subscriptions == nil {
		subscriptions = func(r Req) []string { return Topics(spec.ResponsePaths(r)) }
	}

	op := &OperationModel{
		Name:           spec.Name,
		InputShapeName: spec.InputShapeName,
		PayloadTransformer: func(request any) ([]byte, error) {
			return payload(cast[Req](request))
		},
		SubscriptionGenerator: func(request any) []string {
			return subscriptions(cast[Req](request))
		},
		ResponsePathGenerator: func(request any) []ResponsePath {
			return spec.ResponsePaths(cast[Req](request))
		},
		PublishTopicGenerator: func(request any) string {
			return spec.PublishTopic(cast[Req](request))
		},
	}
	if spec.ApplyCorrelationToken != nil {
		op.CorrelationTokenApplicator = func(request any) (any, string) {
			return spec.ApplyCorrelationToken(cast[Req](request))
		}
	}
	return op
}

// StreamingSpec is the typed form of a StreamingOperationModel.
type StreamingSpec[Cfg any] struct {
	Name           string
	InputShapeName string
	Topic          func(Cfg) string
}

// NewStreamingOperation erases the config type of spec; events decode into Evt.
func NewStreamingOperation[Cfg, Evt any](spec StreamingSpec[Cfg]) *StreamingOperationModel {
	return &StreamingOperationModel{
		Name:           spec.Name,
		InputShapeName: spec.InputShapeName,
		SubscriptionGenerator: func(config any) string {
			return spec.Topic(cast[Cfg](config))
		},
		Deserializer: DecodeInto[Evt],
	}
}

// AcceptedRejected returns the response paths base+"/accepted", decoded
// into Resp, and base+"/rejected", decoded into a Rej rejection.
func AcceptedRejected[Resp, Rej any](base, tokenPath, description string) []ResponsePath {
	return []ResponsePath{
		{
			Topic:                    base + "/accepted",
			CorrelationTokenJSONPath: tokenPath,
			Deserializer:             DecodeInto[Resp],
		},
		{
			Topic:                    base + "/rejected",
			CorrelationTokenJSONPath: tokenPath,
			Deserializer:             DecodeRejection[Rej](description),
		},
	}
}

// Topics lists the topics of paths in order.
func Topics(paths []ResponsePath) []string {
	topics := make([]string, len(paths))
	for i, p := range paths {
		topics[i] = p.Topic
	}
	return topics
}

// DecodeInto decodes payload into a T value.
func DecodeInto[T any](payload []byte) (any, error) {
	var v T
	if err := jsoncodec.Unmarshal(payload, &v); err != nil {
		return nil, err
	}
	return v, nil
}

// DecodeRejection returns a deserializer that always fails with a
// rejected ServiceError whose ModeledError is the decoded Rej.
func DecodeRejection[Rej any](description string) Deserializer {
	return func(payload []byte) (any, error) {
		var rej Rej
		if err := jsoncodec.Unmarshal(payload, &rej); err != nil {
			return nil, newError(kindDeserialization,
				fmt.Sprintf("%s: rejection payload could not be decoded", description), err, nil)
		}
		return nil, newError(kindRejected, description, nil, rej)
	}
}

// ClientToken builds a correlation token applicator for requests that
// carry the token in a string field. The request is copied before set is
// called; any token already present is replaced.
func ClientToken[Req any](set func(*Req, string)) func(Req) (Req, string) {
	return func(r Req) (Req, string) {
		token := uuid.NewString()
		set(&r, token)
		return r, token
	}
}

// cast accepts a Req or a non-nil *Req. Validators run first, so any
// other value here is a model bug and yields the zero Req.
func cast[Req any](v any) Req {
	switch x := v.(type) {
	case Req:
		return x
	case *Req:
		if x != nil {
			return *x
		}
	}
	var zero Req
	return zero
}
