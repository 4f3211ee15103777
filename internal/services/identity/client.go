package identity

import (
	"context"

	"github.com/nerrad567/iot-device-sdk/internal/servicemodel"
)

// Client is the typed fleet provisioning client.
type Client struct {
	client *servicemodel.Client
}

// NewClient returns a provisioning client sending through transport.
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

// CreateKeysAndCertificate has the service generate a key pair and certificate.
func (c *Client) CreateKeysAndCertificate(ctx context.Context, req CreateKeysAndCertificateRequest) (*CreateKeysAndCertificateResponse, error) {
	return execute[CreateKeysAndCertificateResponse](ctx, c, OpCreateKeysAndCertificate, req)
}

// CreateCertificateFromCsr has the service sign a PEM encoded CSR.
func (c *Client) CreateCertificateFromCsr(ctx context.Context, req CreateCertificateFromCsrRequest) (*CreateCertificateFromCsrResponse, error) {
	return execute[CreateCertificateFromCsrResponse](ctx, c, OpCreateCertificateFromCsr, req)
}

// RegisterThing provisions a thing from a template.
func (c *Client) RegisterThing(ctx context.Context, req RegisterThingRequest) (*RegisterThingResponse, error) {
	return execute[RegisterThingResponse](ctx, c, OpRegisterThing, req)
}
