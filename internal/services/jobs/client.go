package jobs

import (
	"context"

	"github.com/nerrad567/iot-device-sdk/internal/servicemodel"
)

// Client is the typed jobs service client.
type Client struct {
	client *servicemodel.Client
}

// NewClient returns a jobs client sending through transport.
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

// GetPendingJobExecutions lists queued and in-progress executions.
func (c *Client) GetPendingJobExecutions(ctx context.Context, req GetPendingJobExecutionsRequest) (*GetPendingJobExecutionsResponse, error) {
	return execute[GetPendingJobExecutionsResponse](ctx, c, OpGetPendingJobExecutions, req)
}

// DescribeJobExecution reads one execution.
func (c *Client) DescribeJobExecution(ctx context.Context, req DescribeJobExecutionRequest) (*DescribeJobExecutionResponse, error) {
	return execute[DescribeJobExecutionResponse](ctx, c, OpDescribeJobExecution, req)
}

// StartNextPendingJobExecution starts the next queued execution.
func (c *Client) StartNextPendingJobExecution(ctx context.Context, req StartNextPendingJobExecutionRequest) (*StartNextJobExecutionResponse, error) {
	return execute[StartNextJobExecutionResponse](ctx, c, OpStartNextPendingJobExecution, req)
}

// UpdateJobExecution reports an execution's status.
func (c *Client) UpdateJobExecution(ctx context.Context, req UpdateJobExecutionRequest) (*UpdateJobExecutionResponse, error) {
	return execute[UpdateJobExecutionResponse](ctx, c, OpUpdateJobExecution, req)
}

// CreateJobExecutionsChangedStream streams changes to the pending execution list.
func (c *Client) CreateJobExecutionsChangedStream(config JobExecutionsChangedSubscriptionRequest, opts servicemodel.StreamOptions[JobExecutionsChangedEvent]) (*servicemodel.StreamingOperation[JobExecutionsChangedEvent], error) {
	return servicemodel.CreateStream(c.client, OpJobExecutionsChanged, config, opts)
}

// CreateNextJobExecutionChangedStream streams changes to the next pending execution.
func (c *Client) CreateNextJobExecutionChangedStream(config NextJobExecutionChangedSubscriptionRequest, opts servicemodel.StreamOptions[NextJobExecutionChangedEvent]) (*servicemodel.StreamingOperation[NextJobExecutionChangedEvent], error) {
	return servicemodel.CreateStream(c.client, OpNextJobExecutionChanged, config, opts)
}
