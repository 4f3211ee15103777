// Package metrics exposes request/response activity as Prometheus metrics
// and forwards it to InfluxDB. Both sinks are servicemodel observers.
package metrics

import (
	"context"
	"errors"
	"sync"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/nerrad567/iot-device-sdk/internal/rrclient"
	"github.com/nerrad567/iot-device-sdk/internal/servicemodel"
)

const namespace = "iot_sdk"

// StatsSource reports the transport's current subscription usage.
type StatsSource interface {
	Stats() rrclient.Stats
}

// Collector counts operations and stream messages. Register it before use.
type Collector struct {
	operationsTotal   *prometheus.CounterVec
	operationDuration *prometheus.HistogramVec
	streamMessages    *prometheus.CounterVec
	transport         []prometheus.Collector

	mu         sync.Mutex
	registered bool
}

// NewCollector returns a Collector. When stats is non-nil the transport's
// subscription and request counts are exported as gauges.
func NewCollector(stats StatsSource) *Collector {
	c := &Collector{
		operationsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "rr",
			Name:      "operations_total",
			Help:      "Completed request/response operations by outcome.",
		}, []string{"operation", "outcome"}),
		operationDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "rr",
			Name:      "operation_duration_seconds",
			Help:      "Time from validation to decoded response.",
			Buckets:   []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
		}, []string{"operation"}),
		streamMessages: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "stream",
			Name:      "messages_total",
			Help:      "Messages received on streaming operations.",
		}, []string{"operation", "result"}),
	}

	if stats != nil {
		c.transport = []prometheus.Collector{
			transportGauge("request_response_subscriptions", "Subscriptions held for request/response operations.",
				func() int { return stats.Stats().RequestResponseSubscriptions }),
			transportGauge("streaming_subscriptions", "Subscriptions held for streaming operations.",
				func() int { return stats.Stats().StreamingSubscriptions }),
			transportGauge("pending_requests", "Requests waiting for a response.",
				func() int { return stats.Stats().PendingRequests }),
			transportGauge("open_streams", "Streaming operations currently open.",
				func() int { return stats.Stats().OpenStreams }),
		}
	}
	return c
}

func transportGauge(name, help string, value func() int) prometheus.GaugeFunc {
	return prometheus.NewGaugeFunc(prometheus.GaugeOpts{
		Namespace: namespace,
		Subsystem: "transport",
		Name:      name,
		Help:      help,
	}, func() float64 { return float64(value()) })
}

// Register adds every metric to reg (the default registerer when nil).
// Metrics already registered are not an error.
func (c *Collector) Register(reg prometheus.Registerer) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.registered {
		return nil
	}
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}

	collectors := append([]prometheus.Collector{
		c.operationsTotal,
		c.operationDuration,
		c.streamMessages,
	}, c.transport...)

	for _, col := range collectors {
		if err := reg.Register(col); err != nil {
			var already prometheus.AlreadyRegisteredError
			if !errors.As(err, &already) {
				return err
			}
		}
	}
	c.registered = true
	return nil
}

// OperationCompleted counts record.
func (c *Collector) OperationCompleted(_ context.Context, record servicemodel.ExecutionRecord) {
	c.operationsTotal.WithLabelValues(record.Operation, string(record.Outcome)).Inc()
	c.operationDuration.WithLabelValues(record.Operation).Observe(record.Duration.Seconds())
}

// StreamMessageReceived counts one stream message.
func (c *Collector) StreamMessageReceived(operation string, err error) {
	c.streamMessages.WithLabelValues(operation, streamResult(err)).Inc()
}

func streamResult(err error) string {
	if err != nil {
		return "decode_error"
	}
	return "ok"
}
