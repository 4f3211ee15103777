package rrclient

import (
	"time"

	"github.com/nerrad567/iot-device-sdk/internal/infrastructure/mqtt"
)

// PubSub is the MQTT surface the client needs. *mqtt.Client implements it.
type PubSub interface {
	Publish(topic string, payload []byte, qos byte, retained bool) error
	Subscribe(topic string, qos byte, handler mqtt.MessageHandler) error
	Unsubscribe(topic string) error
	IsConnected() bool
	SetOnConnect(callback func())
	SetOnDisconnect(callback func(err error))
}

// Logger is satisfied by *logging.Logger and *slog.Logger.
type Logger interface {
	Debug(msg string, args ...any)
	Warn(msg string, args ...any)
}

// Options configures a Client.
type Options struct {
	// MaxRequestResponseSubscriptions caps topic filters held for requests,
	// idle ones included. Must be at least 2.
	MaxRequestResponseSubscriptions int

	// MaxStreamingSubscriptions caps filters held by open streams. Must be at least 1.
	MaxStreamingSubscriptions int

	// OperationTimeout bounds each SubmitRequest call. Zero leaves the
	// caller's context as the only bound.
	OperationTimeout time.Duration

	// QoS is used for every subscribe and publish. Defaults to 0.
	QoS byte

	// Logger receives debug and warning records. Nil discards them.
	Logger Logger
}

// ResponsePath names one topic a response may arrive on and where the
// correlation token sits in its payload.
type ResponsePath struct {
	Topic string

	// CorrelationTokenJSONPath is a dotted path such as "clientToken".
	// Empty means messages on this topic are not correlated.
	CorrelationTokenJSONPath string
}

// RequestOptions describes one request/response exchange.
type RequestOptions struct {
	SubscriptionTopicFilters []string
	ResponsePaths            []ResponsePath
	PublishTopic             string
	Payload                  []byte

	// CorrelationToken must appear at the response path's JSON path.
	// Empty means the first message on any response topic answers the
	// earliest published uncorrelated request waiting on it.
	CorrelationToken string
}

// Response is the message that answered a request.
type Response struct {
	Topic   string
	Payload []byte
}

// SubscriptionStatusEventType describes a change in a stream's subscription.
type SubscriptionStatusEventType int

const (
	// SubscriptionEstablished means messages are flowing. It is emitted
	// after Open succeeds and again after every reconnect.
	SubscriptionEstablished SubscriptionStatusEventType = iota + 1

	// SubscriptionLost means the connection dropped. The subscription is
	// restored automatically on reconnect.
	SubscriptionLost

	// SubscriptionHalted means the subscription could not be made and will
	// not be retried. The stream should be closed.
	SubscriptionHalted
)

func (t SubscriptionStatusEventType) String() string {
	switch t {
	case SubscriptionEstablished:
		return "established"
	case SubscriptionLost:
		return "lost"
	case SubscriptionHalted:
		return "halted"
	default:
		return "unknown"
	}
}

// SubscriptionStatusEvent is delivered to StreamOptions.OnSubscriptionStatus.
type SubscriptionStatusEvent struct {
	Type SubscriptionStatusEventType
	Err  error
}

// IncomingPublishEvent is delivered to StreamOptions.OnIncomingPublish.
type IncomingPublishEvent struct {
	Topic   string
	Payload []byte
}

// StreamOptions describes a streaming subscription.
type StreamOptions struct {
	SubscriptionTopicFilter string
	OnSubscriptionStatus    func(SubscriptionStatusEvent)
	OnIncomingPublish       func(IncomingPublishEvent)
}

// Stream is a streaming subscription. Open may be called once; Close is
// terminal and idempotent.
type Stream interface {
	Open() error
	Close() error
}

// Stats is a point-in-time view of client resources.
type Stats struct {
	RequestResponseSubscriptions int
	StreamingSubscriptions       int
	PendingRequests              int
	OpenStreams                  int
}
