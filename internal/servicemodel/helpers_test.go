package servicemodel

import (
	"context"
	"sync"

	"github.com/nerrad567/iot-device-sdk/internal/rrclient"
)

type namedShadowRequest struct {
	ThingName   string `json:"-" validate:"required,topicsafe"`
	ShadowName  string `json:"-" validate:"required,topicsafe"`
	ClientToken string `json:"clientToken,omitempty"`
}

type shadowResponse struct {
	ClientToken string         `json:"clientToken,omitempty"`
	Version     int64          `json:"version"`
	State       map[string]any `json:"state"`
}

type errorResponse struct {
	ClientToken string `json:"clientToken,omitempty"`
	Code        int    `json:"code"`
	Message     string `json:"message"`
}

type deltaConfig struct {
	ThingName string `json:"-" validate:"required,topicsafe"`
}

type deltaEvent struct {
	Version int64          `json:"version"`
	State   map[string]any `json:"state"`
}

func namedShadowBase(r namedShadowRequest) string {
	return "$aws/things/" + r.ThingName + "/shadow/name/" + r.ShadowName + "/get"
}

func testModel() *ServiceModel {
	return &ServiceModel{
		RequestResponseOperations: map[string]*OperationModel{
			"GetNamedShadow": NewOperation(OperationSpec[namedShadowRequest]{
				Name:           "GetNamedShadow",
				InputShapeName: "GetNamedShadowRequest",
				PublishTopic:   namedShadowBase,
				ResponsePaths: func(r namedShadowRequest) []ResponsePath {
					return AcceptedRejected[shadowResponse, errorResponse](namedShadowBase(r), "clientToken", "GetNamedShadow request rejected")
				},
				ApplyCorrelationToken: ClientToken(func(r *namedShadowRequest, token string) { r.ClientToken = token }),
			}),
			"NoValidator": NewOperation(OperationSpec[namedShadowRequest]{
				Name:           "NoValidator",
				InputShapeName: "Unregistered",
				PublishTopic:   namedShadowBase,
				ResponsePaths: func(r namedShadowRequest) []ResponsePath {
					return AcceptedRejected[shadowResponse, errorResponse](namedShadowBase(r), "clientToken", "rejected")
				},
			}),
		},
		StreamingOperations: map[string]*StreamingOperationModel{
			"ShadowDeltaUpdated": NewStreamingOperation[deltaConfig, deltaEvent](StreamingSpec[deltaConfig]{
				Name:           "ShadowDeltaUpdated",
				InputShapeName: "ShadowDeltaUpdatedSubscriptionRequest",
				Topic: func(c deltaConfig) string {
					return "$aws/things/" + c.ThingName + "/shadow/update/delta"
				},
			}),
		},
		Shapes: map[string]ShapeValidator{
			"GetNamedShadowRequest":                 StructValidator[namedShadowRequest]("GetNamedShadowRequest"),
			"ShadowDeltaUpdatedSubscriptionRequest": StructValidator[deltaConfig]("ShadowDeltaUpdatedSubscriptionRequest"),
		},
	}
}

type transportReply struct {
	resp *rrclient.Response
	err  error
}

type transportCall struct {
	opts  rrclient.RequestOptions
	reply chan transportReply
}

// fakeTransport answers requests with respond when set, otherwise hands
// each call to the test through calls.
type fakeTransport struct {
	mu       sync.Mutex
	requests []rrclient.RequestOptions
	respond  func(rrclient.RequestOptions) (*rrclient.Response, error)
	calls    chan transportCall
	streams  []*fakeStream
	streamEr error
}

func newFakeTransport() *fakeTransport {
	return &fakeTransport{calls: make(chan transportCall, 8)}
}

func (f *fakeTransport) SubmitRequest(ctx context.Context, opts rrclient.RequestOptions) (*rrclient.Response, error) {
	f.mu.Lock()
	f.requests = append(f.requests, opts)
	respond := f.respond
	f.mu.Unlock()

	if respond != nil {
		return respond(opts)
	}

	call := transportCall{opts: opts, reply: make(chan transportReply, 1)}
	f.calls <- call
	select {
	case r := <-call.reply:
		return r.resp, r.err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func (f *fakeTransport) CreateStream(opts rrclient.StreamOptions) (rrclient.Stream, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.streamEr != nil {
		return nil, f.streamEr
	}
	s := &fakeStream{opts: opts}
	f.streams = append(f.streams, s)
	return s, nil
}

func (f *fakeTransport) requestCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.requests)
}

func (f *fakeTransport) streamCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.streams)
}

type fakeStream struct {
	mu     sync.Mutex
	opts   rrclient.StreamOptions
	opened bool
	closed bool
}

func (s *fakeStream) Open() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.opened {
		return rrclient.ErrStreamState
	}
	s.opened = true
	return nil
}

func (s *fakeStream) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	return nil
}

func (s *fakeStream) publish(topic, payload string) {
	s.opts.OnIncomingPublish(rrclient.IncomingPublishEvent{Topic: topic, Payload: []byte(payload)})
}

// recordingObserver captures every notification.
type recordingObserver struct {
	mu       sync.Mutex
	records  []ExecutionRecord
	messages []error
}

func (o *recordingObserver) OperationCompleted(_ context.Context, record ExecutionRecord) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.records = append(o.records, record)
}

func (o *recordingObserver) StreamMessageReceived(_ string, err error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.messages = append(o.messages, err)
}

func (o *recordingObserver) last() ExecutionRecord {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.records[len(o.records)-1]
}
