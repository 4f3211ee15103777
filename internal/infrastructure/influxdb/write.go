package influxdb

import (
	"time"

	"github.com/influxdata/influxdb-client-go/v2/api/write"
)

// Measurement names.
const (
	MeasurementOperations     = "iot_operations"
	MeasurementStreamMessages = "iot_stream_messages"
)

// WriteOperation records one completed request/response operation.
//
// Example:
//
//	client.WriteOperation("kitchen-sensor", "GetNamedShadow", "success", 84*time.Millisecond, start)
func (c *Client) WriteOperation(thingName, operation, outcome string, duration time.Duration, at time.Time) {
	c.writePoint(MeasurementOperations,
		map[string]string{
			"thing":     thingName,
			"operation": operation,
			"outcome":   outcome,
		},
		map[string]any{
			"count":       1,
			"duration_ms": float64(duration.Microseconds()) / 1000,
		},
		at)
}

// WriteStreamMessage records one message received on a streaming
// operation. decoded is false when the payload could not be parsed.
func (c *Client) WriteStreamMessage(thingName, operation string, decoded bool, at time.Time) {
	result := "ok"
	if !decoded {
		result = "decode_error"
	}
	c.writePoint(MeasurementStreamMessages,
		map[string]string{
			"thing":     thingName,
			"operation": operation,
			"result":    result,
		},
		map[string]any{"count": 1},
		at)
}

// WritePoint writes a point with arbitrary tags and fields, stamped now.
func (c *Client) WritePoint(measurement string, tags map[string]string, fields map[string]any) {
	c.writePoint(measurement, tags, fields, time.Now())
}

func (c *Client) writePoint(measurement string, tags map[string]string, fields map[string]any, at time.Time) {
	if !c.IsConnected() {
		return
	}
	c.writer.WritePoint(write.NewPoint(measurement, tags, fields, at))
}
