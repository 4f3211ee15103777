package servicemodel

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/nerrad567/iot-device-sdk/internal/rrclient"
)

// Execute runs the request/response operation named operationName with
// request and returns the decoded response as a T.
//
// The request is validated before any topic is built or anything is sent.
// A correlation token, when the operation uses one, is applied to a copy of
// request. The exchange is bounded by ctx and the transport's operation
// timeout; Execute adds no timer or retry of its own.
//
// Every error is a *ServiceError; use errors.Is with the package sentinels
// or Rejection to inspect it.
func Execute[T any](ctx context.Context, c *Client, operationName string, request any) (T, error) {
	var zero T

	result, err := c.execute(ctx, operationName, request)
	if err != nil {
		return zero, err
	}

	typed, ok := result.(T)
	if !ok {
		return zero, newError(kindDeserialization,
			fmt.Sprintf("operation '%s' produced %T, not %T", operationName, result, zero), nil, nil)
	}
	return typed, nil
}

func (c *Client) execute(ctx context.Context, operationName string, request any) (result any, err error) {
	record := ExecutionRecord{
		Operation: operationName,
		StartedAt: time.Now(),
	}

	ctx, span := c.tracer.Start(ctx, operationName,
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(attribute.String("iot.operation", operationName)),
	)

	defer func() {
		record.Duration = time.Since(record.StartedAt)
		record.Err = err
		record.Outcome = OutcomeOf(err)

		span.SetAttributes(
			attribute.String("iot.outcome", string(record.Outcome)),
			attribute.String("messaging.destination.name", record.PublishTopic),
		)
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
		span.End()

		c.logger.Debug("operation completed",
			"operation", operationName,
			"outcome", record.Outcome,
			"correlation_token", record.CorrelationToken,
			"response_topic", record.ResponseTopic,
			"duration", record.Duration,
		)
		c.observers.OperationCompleted(ctx, record)
	}()

	op, ok := c.model.RequestResponseOperations[operationName]
	if !ok {
		return nil, newError(kindUnknownOperation,
			fmt.Sprintf("operation '%s' not found in service model", operationName), nil, nil)
	}

	validator, ok := c.model.Shapes[op.InputShapeName]
	if !ok {
		return nil, newError(kindMissingValidator,
			fmt.Sprintf("operation '%s' input type '%s' has no validator", operationName, op.InputShapeName), nil, nil)
	}
	if err := validator(request); err != nil {
		return nil, asValidationError(err)
	}

	record.PublishTopic = op.PublishTopicGenerator(request)
	subscriptions := op.SubscriptionGenerator(request)
	responsePaths := op.ResponsePathGenerator(request)

	deserializers := make(map[string]Deserializer, len(responsePaths))
	transportPaths := make([]rrclient.ResponsePath, 0, len(responsePaths))
	for _, p := range responsePaths {
		deserializers[p.Topic] = p.Deserializer
		transportPaths = append(transportPaths, rrclient.ResponsePath{
			Topic:                    p.Topic,
			CorrelationTokenJSONPath: p.CorrelationTokenJSONPath,
		})
	}

	if op.CorrelationTokenApplicator != nil {
		request, record.CorrelationToken = op.CorrelationTokenApplicator(request)
	}

	payload, err := op.PayloadTransformer(request)
	if err != nil {
		return nil, newError(kindSerialization,
			fmt.Sprintf("operation '%s' request could not be serialized", operationName), err, nil)
	}

	resp, err := c.transport.SubmitRequest(ctx, rrclient.RequestOptions{
		SubscriptionTopicFilters: subscriptions,
		ResponsePaths:            transportPaths,
		PublishTopic:             record.PublishTopic,
		Payload:                  payload,
		CorrelationToken:         record.CorrelationToken,
	})
	if err != nil {
		return nil, newError(kindTransport,
			fmt.Sprintf("operation '%s' failed", operationName), err, nil)
	}
	record.ResponseTopic = resp.Topic

	deserializer, ok := deserializers[resp.Topic]
	if !ok || deserializer == nil {
		return nil, newError(kindMissingDeserializer,
			fmt.Sprintf("operation '%s' has no deserializer for response topic '%s'", operationName, resp.Topic), nil, nil)
	}

	result, err = deserializer(resp.Payload)
	if err != nil {
		var se *ServiceError
		if errors.As(err, &se) {
			return nil, se
		}
		return nil, newError(kindDeserialization,
			fmt.Sprintf("operation '%s' response on '%s' could not be decoded", operationName, resp.Topic), err, nil)
	}
	return result, nil
}

// asValidationError keeps a validator's *ServiceError and wraps anything else.
func asValidationError(err error) *ServiceError {
	var se *ServiceError
	if errors.As(err, &se) {
		return se
	}
	return newError(kindValidation, "validation failure - "+err.Error(), nil, nil)
}
