package metrics

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nerrad567/iot-device-sdk/internal/servicemodel"
)

func TestHandler_Metrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := NewCollector(nil)
	require.NoError(t, c.Register(reg))
	c.OperationCompleted(context.Background(), servicemodel.ExecutionRecord{
		Operation: "GetShadow", Outcome: servicemodel.OutcomeSuccess, Duration: time.Millisecond,
	})

	srv := httptest.NewServer(Handler(reg))
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/metrics")
	require.NoError(t, err)
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, string(body), `iot_sdk_rr_operations_total{operation="GetShadow",outcome="success"} 1`)
}

func TestHandler_Health(t *testing.T) {
	srv := httptest.NewServer(Handler(prometheus.NewRegistry()))
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/health")
	require.NoError(t, err)
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "OK", string(body))
}
