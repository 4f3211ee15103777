// Package influxdb writes request/response telemetry to InfluxDB v2.
//
// Each completed operation becomes a point in iot_operations tagged with the
// thing, operation and outcome; each streamed message becomes a point in
// iot_stream_messages. Writes are batched by the client library according
// to influxdb.batch_size and influxdb.flush_interval and never block.
//
// # Usage
//
//	client, err := influxdb.Connect(ctx, cfg.InfluxDB)
//	if err != nil {
//	    return err
//	}
//	defer client.Close()
//
//	client.SetOnError(func(err error) { logger.Warn("influx write", "error", err) })
//	client.WriteOperation("kitchen-sensor", "GetShadow", "success", 84*time.Millisecond, time.Now())
//
// Batch write errors arrive asynchronously through SetOnError. Connection
// and health check errors are returned directly.
package influxdb
