package servicemodel

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"

	"github.com/nerrad567/iot-device-sdk/internal/rrclient"
)

const instrumentationName = "github.com/nerrad567/iot-device-sdk/internal/servicemodel"

// Transport is the request/response layer. *rrclient.Client implements it.
type Transport interface {
	SubmitRequest(ctx context.Context, opts rrclient.RequestOptions) (*rrclient.Response, error)
	CreateStream(opts rrclient.StreamOptions) (rrclient.Stream, error)
}

// Logger is satisfied by *logging.Logger and *slog.Logger.
type Logger interface {
	Debug(msg string, args ...any)
}

// Client binds a service model to a transport. It holds no per-request
// state and is safe for concurrent use.
type Client struct {
	model     *ServiceModel
	transport Transport
	observers Observers
	logger    Logger
	tracer    trace.Tracer
}

// Option configures a Client.
type Option func(*Client)

// WithObserver adds observers notified after every operation.
func WithObserver(observers ...Observer) Option {
	return func(c *Client) {
		c.observers = append(c.observers, observers...)
	}
}

// WithLogger sets the logger for per-operation debug records.
func WithLogger(logger Logger) Option {
	return func(c *Client) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// WithTracerProvider overrides the global OpenTelemetry tracer provider.
func WithTracerProvider(tp trace.TracerProvider) Option {
	return func(c *Client) {
		c.tracer = tp.Tracer(instrumentationName)
	}
}

// NewClient creates a Client executing operations of model over transport.
func NewClient(transport Transport, model *ServiceModel, opts ...Option) *Client {
	c := &Client{
		model:     model,
		transport: transport,
		logger:    nopLogger{},
		tracer:    otel.Tracer(instrumentationName),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Model returns the service model the client was built with.
func (c *Client) Model() *ServiceModel {
	return c.model
}

type nopLogger struct{}

func (nopLogger) Debug(string, ...any) {}
