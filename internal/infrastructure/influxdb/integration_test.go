//go:build integration

package influxdb

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/nerrad567/iot-device-sdk/internal/infrastructure/config"
)

// Requires a local InfluxDB; URL and token come from INFLUXDB_URL and INFLUXDB_TOKEN.
func integrationConfig(t *testing.T) config.InfluxDBConfig {
	t.Helper()
	url := os.Getenv("INFLUXDB_URL")
	if url == "" {
		url = "http://127.0.0.1:8086"
	}
	return config.InfluxDBConfig{
		Enabled:       true,
		URL:           url,
		Token:         os.Getenv("INFLUXDB_TOKEN"),
		Org:           "iot",
		Bucket:        "device",
		BatchSize:     10,
		FlushInterval: 1,
	}
}

func TestIntegration_ConnectWriteFlush(t *testing.T) {
	ctx := context.Background()
	client, err := Connect(ctx, integrationConfig(t))
	if err != nil {
		t.Fatalf("Connect() error = %v", err)
	}
	defer client.Close() //nolint:errcheck // test cleanup

	if err := client.HealthCheck(ctx); err != nil {
		t.Fatalf("HealthCheck() error = %v", err)
	}

	writeErrs := make(chan error, 1)
	client.SetOnError(func(err error) {
		select {
		case writeErrs <- err:
		default:
		}
	})

	client.WriteOperation("integration-thing", "GetShadow", "success", 20*time.Millisecond, time.Now())
	client.WriteStreamMessage("integration-thing", "CreateShadowDeltaUpdatedStream", true, time.Now())
	client.Flush()

	select {
	case err := <-writeErrs:
		t.Fatalf("write error: %v", err)
	case <-time.After(500 * time.Millisecond):
	}
}
