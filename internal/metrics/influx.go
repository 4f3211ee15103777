package metrics

import (
	"context"
	"time"

	"github.com/nerrad567/iot-device-sdk/internal/servicemodel"
)

// InfluxWriter is the part of *influxdb.Client used by InfluxObserver.
type InfluxWriter interface {
	WriteOperation(thingName, operation, outcome string, duration time.Duration, at time.Time)
	WriteStreamMessage(thingName, operation string, decoded bool, at time.Time)
}

// InfluxObserver writes every operation and stream message as an InfluxDB point.
type InfluxObserver struct {
	writer    InfluxWriter
	thingName string
	now       func() time.Time
}

// NewInfluxObserver returns an observer tagging points with thingName.
func NewInfluxObserver(writer InfluxWriter, thingName string) *InfluxObserver {
	return &InfluxObserver{writer: writer, thingName: thingName, now: time.Now}
}

func (o *InfluxObserver) OperationCompleted(_ context.Context, record servicemodel.ExecutionRecord) {
	at := record.StartedAt
	if at.IsZero() {
		at = o.now()
	}
	o.writer.WriteOperation(o.thingName, record.Operation, string(record.Outcome), record.Duration, at)
}

func (o *InfluxObserver) StreamMessageReceived(operation string, err error) {
	o.writer.WriteStreamMessage(o.thingName, operation, err == nil, o.now())
}
