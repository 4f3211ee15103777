package servicemodel

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/trace/noop"

	"github.com/nerrad567/iot-device-sdk/internal/jsoncodec"
	"github.com/nerrad567/iot-device-sdk/internal/rrclient"
)

const (
	namedGetTopic      = "$aws/things/abc/shadow/name/config/get"
	namedAcceptedTopic = namedGetTopic + "/accepted"
	namedRejectedTopic = namedGetTopic + "/rejected"
)

func tokenOf(t *testing.T, payload []byte) string {
	t.Helper()
	token, ok := jsoncodec.LookupString(payload, "clientToken")
	require.True(t, ok, "payload %s carries no clientToken", payload)
	return token
}

func TestExecute_GetNamedShadow(t *testing.T) {
	transport := newFakeTransport()
	transport.respond = func(opts rrclient.RequestOptions) (*rrclient.Response, error) {
		return &rrclient.Response{
			Topic:   namedAcceptedTopic,
			Payload: []byte(fmt.Sprintf(`{"clientToken":%q,"version":3,"state":{}}`, opts.CorrelationToken)),
		}, nil
	}
	observer := &recordingObserver{}
	client := NewClient(transport, testModel(), WithObserver(observer), WithTracerProvider(noop.NewTracerProvider()))

	req := namedShadowRequest{ThingName: "abc", ShadowName: "config"}
	resp, err := Execute[shadowResponse](context.Background(), client, "GetNamedShadow", req)
	require.NoError(t, err)
	assert.Equal(t, int64(3), resp.Version)

	require.Equal(t, 1, transport.requestCount())
	sent := transport.requests[0]
	assert.Equal(t, namedGetTopic, sent.PublishTopic)
	assert.Equal(t, []string{namedAcceptedTopic, namedRejectedTopic}, sent.SubscriptionTopicFilters)
	assert.Equal(t, []rrclient.ResponsePath{
		{Topic: namedAcceptedTopic, CorrelationTokenJSONPath: "clientToken"},
		{Topic: namedRejectedTopic, CorrelationTokenJSONPath: "clientToken"},
	}, sent.ResponsePaths)
	assert.NotEmpty(t, sent.CorrelationToken)
	assert.Equal(t, sent.CorrelationToken, tokenOf(t, sent.Payload))
	assert.Empty(t, req.ClientToken, "caller's request is not mutated")

	record := observer.last()
	assert.Equal(t, OutcomeSuccess, record.Outcome)
	assert.Equal(t, "GetNamedShadow", record.Operation)
	assert.Equal(t, sent.CorrelationToken, record.CorrelationToken)
	assert.Equal(t, namedGetTopic, record.PublishTopic)
	assert.Equal(t, namedAcceptedTopic, record.ResponseTopic)
	assert.NoError(t, record.Err)
}

func TestExecute_PointerRequest(t *testing.T) {
	transport := newFakeTransport()
	transport.respond = func(opts rrclient.RequestOptions) (*rrclient.Response, error) {
		return &rrclient.Response{Topic: namedAcceptedTopic, Payload: []byte(`{"version":1}`)}, nil
	}
	client := NewClient(transport, testModel())

	req := &namedShadowRequest{ThingName: "abc", ShadowName: "config", ClientToken: "caller-token"}
	_, err := Execute[shadowResponse](context.Background(), client, "GetNamedShadow", req)
	require.NoError(t, err)

	sent := transport.requests[0]
	assert.NotEqual(t, "caller-token", sent.CorrelationToken, "a caller token is replaced")
	assert.Equal(t, "caller-token", req.ClientToken)
}

func TestExecute_ValidationFailsBeforeTransport(t *testing.T) {
	tests := []struct {
		name    string
		request any
		message string
	}{
		{
			name:    "slash in thing name",
			request: namedShadowRequest{ThingName: "a/b", ShadowName: "config"},
			message: "validation failure - property 'thingName' of 'GetNamedShadowRequest' must not contain '/', '+', or '#'",
		},
		{
			name:    "plus in shadow name",
			request: namedShadowRequest{ThingName: "abc", ShadowName: "a+b"},
			message: "validation failure - property 'shadowName' of 'GetNamedShadowRequest' must not contain '/', '+', or '#'",
		},
		{
			name:    "hash in thing name",
			request: namedShadowRequest{ThingName: "#", ShadowName: "config"},
			message: "validation failure - property 'thingName' of 'GetNamedShadowRequest' must not contain '/', '+', or '#'",
		},
		{
			name:    "missing shadow name",
			request: namedShadowRequest{ThingName: "abc"},
			message: "validation failure - missing required property 'shadowName' of 'GetNamedShadowRequest'",
		},
		{
			name:    "wrong type",
			request: "abc",
			message: "validation failure - value must be a 'GetNamedShadowRequest', got string",
		},
		{
			name:    "nil pointer",
			request: (*namedShadowRequest)(nil),
			message: "validation failure - value of 'GetNamedShadowRequest' must not be nil",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			transport := newFakeTransport()
			observer := &recordingObserver{}
			client := NewClient(transport, testModel(), WithObserver(observer))

			_, err := Execute[shadowResponse](context.Background(), client, "GetNamedShadow", tt.request)
			require.ErrorIs(t, err, ErrValidation)
			assert.EqualError(t, err, tt.message)

			var se *ServiceError
			require.ErrorAs(t, err, &se)
			assert.Nil(t, se.InternalError)
			assert.Nil(t, se.ModeledError)

			assert.Equal(t, 0, transport.requestCount())
			assert.Equal(t, OutcomeValidationError, observer.last().Outcome)
		})
	}
}

func TestExecute_LocalErrors(t *testing.T) {
	transport := newFakeTransport()
	client := NewClient(transport, testModel())
	req := namedShadowRequest{ThingName: "abc", ShadowName: "config"}

	_, err := Execute[shadowResponse](context.Background(), client, "DescribeNothing", req)
	assert.ErrorIs(t, err, ErrUnknownOperation)
	assert.EqualError(t, err, "operation 'DescribeNothing' not found in service model")

	_, err = Execute[shadowResponse](context.Background(), client, "NoValidator", req)
	assert.ErrorIs(t, err, ErrMissingValidator)

	assert.Equal(t, 0, transport.requestCount())
	assert.Equal(t, OutcomeLocalError, OutcomeOf(err))
}

func TestExecute_Rejected(t *testing.T) {
	transport := newFakeTransport()
	transport.respond = func(opts rrclient.RequestOptions) (*rrclient.Response, error) {
		return &rrclient.Response{
			Topic: namedRejectedTopic,
			Payload: []byte(fmt.Sprintf(`{"clientToken":%q,"code":404,"message":"No shadow exists with name: 'abc~config'"}`,
				opts.CorrelationToken)),
		}, nil
	}
	observer := &recordingObserver{}
	client := NewClient(transport, testModel(), WithObserver(observer))

	_, err := Execute[shadowResponse](context.Background(), client, "GetNamedShadow",
		namedShadowRequest{ThingName: "abc", ShadowName: "config"})
	require.ErrorIs(t, err, ErrRejected)

	var se *ServiceError
	require.ErrorAs(t, err, &se)
	assert.Nil(t, se.InternalError)
	assert.Equal(t, errorResponse{
		ClientToken: transport.requests[0].CorrelationToken,
		Code:        404,
		Message:     "No shadow exists with name: 'abc~config'",
	}, se.ModeledError)

	rej, ok := Rejection[errorResponse](err)
	require.True(t, ok)
	assert.Equal(t, 404, rej.Code)

	_, ok = Rejection[shadowResponse](err)
	assert.False(t, ok)

	assert.Equal(t, OutcomeRejected, observer.last().Outcome)
	assert.Equal(t, namedRejectedTopic, observer.last().ResponseTopic)
}

func TestExecute_TransportError(t *testing.T) {
	transport := newFakeTransport()
	cause := fmt.Errorf("%w: %w", rrclient.ErrTimeout, context.DeadlineExceeded)
	transport.respond = func(rrclient.RequestOptions) (*rrclient.Response, error) {
		return nil, cause
	}
	observer := &recordingObserver{}
	client := NewClient(transport, testModel(), WithObserver(observer))

	_, err := Execute[shadowResponse](context.Background(), client, "GetNamedShadow",
		namedShadowRequest{ThingName: "abc", ShadowName: "config"})
	require.ErrorIs(t, err, ErrTransport)
	assert.ErrorIs(t, err, rrclient.ErrTimeout)

	var se *ServiceError
	require.ErrorAs(t, err, &se)
	assert.Equal(t, cause, se.InternalError)
	assert.Nil(t, se.ModeledError)
	assert.Equal(t, OutcomeTransportError, observer.last().Outcome)
}

func TestExecute_ResponseDecodingErrors(t *testing.T) {
	tests := []struct {
		name    string
		topic   string
		payload string
		want    error
	}{
		{name: "unknown topic", topic: "$aws/things/abc/shadow/name/config/get/other", payload: `{}`, want: ErrMissingDeserializer},
		{name: "malformed accepted", topic: namedAcceptedTopic, payload: `{"version":"three"`, want: ErrDeserialization},
		{name: "malformed rejected", topic: namedRejectedTopic, payload: `not json`, want: ErrDeserialization},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			transport := newFakeTransport()
			transport.respond = func(rrclient.RequestOptions) (*rrclient.Response, error) {
				return &rrclient.Response{Topic: tt.topic, Payload: []byte(tt.payload)}, nil
			}
			client := NewClient(transport, testModel())

			_, err := Execute[shadowResponse](context.Background(), client, "GetNamedShadow",
				namedShadowRequest{ThingName: "abc", ShadowName: "config"})
			assert.ErrorIs(t, err, tt.want)
		})
	}
}

func TestExecute_WrongResponseType(t *testing.T) {
	transport := newFakeTransport()
	transport.respond = func(rrclient.RequestOptions) (*rrclient.Response, error) {
		return &rrclient.Response{Topic: namedAcceptedTopic, Payload: []byte(`{"version":1}`)}, nil
	}
	client := NewClient(transport, testModel())

	_, err := Execute[errorResponse](context.Background(), client, "GetNamedShadow",
		namedShadowRequest{ThingName: "abc", ShadowName: "config"})
	assert.ErrorIs(t, err, ErrDeserialization)
}

func TestExecute_ConcurrentResponsesOutOfOrder(t *testing.T) {
	transport := newFakeTransport()
	client := NewClient(transport, testModel())

	type outcome struct {
		resp shadowResponse
		err  error
	}
	run := func(shadowName string) <-chan outcome {
		ch := make(chan outcome, 1)
		go func() {
			resp, err := Execute[shadowResponse](context.Background(), client, "GetNamedShadow",
				namedShadowRequest{ThingName: "abc", ShadowName: shadowName})
			ch <- outcome{resp: resp, err: err}
		}()
		return ch
	}

	first := run("config")
	second := run("config")

	var calls []transportCall
	for len(calls) < 2 {
		select {
		case call := <-transport.calls:
			calls = append(calls, call)
		case <-time.After(2 * time.Second):
			t.Fatal("timed out waiting for requests")
		}
	}
	require.NotEqual(t, calls[0].opts.CorrelationToken, calls[1].opts.CorrelationToken)

	versions := map[string]int64{}
	for i := len(calls) - 1; i >= 0; i-- {
		token := calls[i].opts.CorrelationToken
		versions[token] = int64(100 + i)
		calls[i].reply <- transportReply{resp: &rrclient.Response{
			Topic:   namedAcceptedTopic,
			Payload: []byte(fmt.Sprintf(`{"clientToken":%q,"version":%d}`, token, 100+i)),
		}}
	}

	for _, ch := range []<-chan outcome{first, second} {
		select {
		case o := <-ch:
			require.NoError(t, o.err)
			assert.Equal(t, versions[o.resp.ClientToken], o.resp.Version, "response matches its own token")
		case <-time.After(2 * time.Second):
			t.Fatal("timed out waiting for Execute")
		}
	}
}

func TestOutcomeOf(t *testing.T) {
	tests := []struct {
		err  error
		want Outcome
	}{
		{err: nil, want: OutcomeSuccess},
		{err: newError(kindRejected, "x", nil, errorResponse{}), want: OutcomeRejected},
		{err: newError(kindValidation, "x", nil, nil), want: OutcomeValidationError},
		{err: newError(kindTransport, "x", errors.New("eof"), nil), want: OutcomeTransportError},
		{err: newError(kindDeserialization, "x", errors.New("eof"), nil), want: OutcomeDeserializationError},
		{err: newError(kindUnknownOperation, "x", nil, nil), want: OutcomeLocalError},
		{err: newError(kindSerialization, "x", errors.New("eof"), nil), want: OutcomeLocalError},
	}

	for _, tt := range tests {
		t.Run(string(tt.want), func(t *testing.T) {
			assert.Equal(t, tt.want, OutcomeOf(tt.err))
		})
	}
}
