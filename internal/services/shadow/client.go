package shadow

import (
	"context"

	"github.com/nerrad567/iot-device-sdk/internal/servicemodel"
)

// Client is the typed shadow service client.
type Client struct {
	client *servicemodel.Client
}

// NewClient returns a shadow client sending through transport.
func NewClient(transport servicemodel.Transport, opts ...servicemodel.Option) *Client {
	return &Client{client: servicemodel.NewClient(transport, NewServiceModel(), opts...)}
}

func execute[Resp any](ctx context.Context, c *Client, operation string, request any) (*Resp, error) {
	resp, err := servicemodel.Execute[Resp](ctx, c.client, operation, request)
	if err != nil {
		return nil, err
	}
	return &resp, nil
}

// GetShadow returns the classic shadow document of a thing.
func (c *Client) GetShadow(ctx context.Context, req GetShadowRequest) (*GetShadowResponse, error) {
	return execute[GetShadowResponse](ctx, c, OpGetShadow, req)
}

// GetNamedShadow returns a named shadow document.
func (c *Client) GetNamedShadow(ctx context.Context, req GetNamedShadowRequest) (*GetShadowResponse, error) {
	return execute[GetShadowResponse](ctx, c, OpGetNamedShadow, req)
}

// UpdateShadow updates the classic shadow.
func (c *Client) UpdateShadow(ctx context.Context, req UpdateShadowRequest) (*UpdateShadowResponse, error) {
	return execute[UpdateShadowResponse](ctx, c, OpUpdateShadow, req)
}

// UpdateNamedShadow updates a named shadow.
func (c *Client) UpdateNamedShadow(ctx context.Context, req UpdateNamedShadowRequest) (*UpdateShadowResponse, error) {
	return execute[UpdateShadowResponse](ctx, c, OpUpdateNamedShadow, req)
}

// DeleteShadow deletes the classic shadow.
func (c *Client) DeleteShadow(ctx context.Context, req DeleteShadowRequest) (*DeleteShadowResponse, error) {
	return execute[DeleteShadowResponse](ctx, c, OpDeleteShadow, req)
}

// DeleteNamedShadow deletes a named shadow.
func (c *Client) DeleteNamedShadow(ctx context.Context, req DeleteNamedShadowRequest) (*DeleteShadowResponse, error) {
	return execute[DeleteShadowResponse](ctx, c, OpDeleteNamedShadow, req)
}

// CreateShadowDeltaUpdatedStream streams delta documents of the classic shadow.
func (c *Client) CreateShadowDeltaUpdatedStream(config ShadowDeltaUpdatedSubscriptionRequest, opts servicemodel.StreamOptions[ShadowDeltaUpdatedEvent]) (*servicemodel.StreamingOperation[ShadowDeltaUpdatedEvent], error) {
	return servicemodel.CreateStream(c.client, OpShadowDeltaUpdated, config, opts)
}

// CreateNamedShadowDeltaUpdatedStream streams delta documents of a named shadow.
func (c *Client) CreateNamedShadowDeltaUpdatedStream(config NamedShadowDeltaUpdatedSubscriptionRequest, opts servicemodel.StreamOptions[ShadowDeltaUpdatedEvent]) (*servicemodel.StreamingOperation[ShadowDeltaUpdatedEvent], error) {
	return servicemodel.CreateStream(c.client, OpNamedShadowDeltaUpdated, config, opts)
}

// CreateShadowUpdatedStream streams before/after documents of the classic shadow.
func (c *Client) CreateShadowUpdatedStream(config ShadowUpdatedSubscriptionRequest, opts servicemodel.StreamOptions[ShadowUpdatedEvent]) (*servicemodel.StreamingOperation[ShadowUpdatedEvent], error) {
	return servicemodel.CreateStream(c.client, OpShadowUpdated, config, opts)
}

// CreateNamedShadowUpdatedStream streams before/after documents of a named shadow.
func (c *Client) CreateNamedShadowUpdatedStream(config NamedShadowUpdatedSubscriptionRequest, opts servicemodel.StreamOptions[ShadowUpdatedEvent]) (*servicemodel.StreamingOperation[ShadowUpdatedEvent], error) {
	return servicemodel.CreateStream(c.client, OpNamedShadowUpdated, config, opts)
}
