package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/nerrad567/iot-device-sdk/internal/infrastructure/logging"
	"github.com/nerrad567/iot-device-sdk/internal/jsoncodec"
	"github.com/nerrad567/iot-device-sdk/internal/rrclient"
	"github.com/nerrad567/iot-device-sdk/internal/servicemodel"
)

// lockedWriter serialises writes from concurrent stream callbacks.
type lockedWriter struct {
	mu sync.Mutex
	w  io.Writer
}

func (l *lockedWriter) Write(p []byte) (int, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.w.Write(p)
}

// printJSON writes v as indented JSON followed by a newline.
func printJSON(w io.Writer, v any) error {
	data, err := jsoncodec.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding output: %w", err)
	}
	data = append(data, '\n')
	_, err = w.Write(data)
	return err
}

// parseKeyValues turns ["k=v", ...] into a map. Empty input yields nil.
func parseKeyValues(pairs []string) (map[string]string, error) {
	if len(pairs) == 0 {
		return nil, nil
	}
	out := make(map[string]string, len(pairs))
	for _, pair := range pairs {
		key, value, ok := strings.Cut(pair, "=")
		if !ok || key == "" {
			return nil, fmt.Errorf("invalid key=value pair %q", pair)
		}
		out[key] = value
	}
	return out, nil
}

// parseDocument parses a JSON object flag. The literal null returns
// isNull so the caller can clear that section of a document.
func parseDocument(flag, raw string) (doc map[string]any, isNull bool, err error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, false, nil
	}
	if raw == "null" {
		return nil, true, nil
	}
	if err := jsoncodec.Unmarshal([]byte(raw), &doc); err != nil {
		return nil, false, fmt.Errorf("--%s must be a JSON object or null: %w", flag, err)
	}
	if doc == nil {
		return nil, false, fmt.Errorf("--%s must be a JSON object or null", flag)
	}
	return doc, false, nil
}

// errStreamHalted is returned when the broker refuses a stream's subscription.
var errStreamHalted = errors.New("stream subscription halted")

// watchStream opens the stream built by create and prints each event until
// ctx is done or the subscription halts.
func watchStream[E any](
	ctx context.Context,
	out io.Writer,
	log *logging.Logger,
	name string,
	create func(servicemodel.StreamOptions[E]) (*servicemodel.StreamingOperation[E], error),
) error {
	halted := make(chan error, 1)

	op, err := create(servicemodel.StreamOptions[E]{
		OnSubscriptionStatus: func(event rrclient.SubscriptionStatusEvent) {
			log.Info("stream status", "stream", name, "status", event.Type.String(), "error", event.Err)
			if event.Type == rrclient.SubscriptionHalted {
				select {
				case halted <- event.Err:
				default:
				}
			}
		},
		OnIncomingPublish: func(event E) {
			if err := printJSON(out, event); err != nil {
				log.Error("writing stream event", "stream", name, "error", err)
			}
		},
		OnIncomingPublishError: func(event servicemodel.IncomingPublishError) {
			log.Warn("undecodable stream event", "stream", name, "topic", event.Topic, "error", event.Err)
		},
	})
	if err != nil {
		return err
	}
	defer func() {
		if closeErr := op.Close(); closeErr != nil {
			log.Error("error closing stream", "stream", name, "error", closeErr)
		}
	}()

	if err := op.Open(); err != nil {
		return err
	}
	log.Info("watching", "stream", name, "topic", op.Topic())

	select {
	case <-ctx.Done():
		return nil
	case err := <-halted:
		if err != nil {
			return fmt.Errorf("%s: %w: %w", name, errStreamHalted, err)
		}
		return fmt.Errorf("%s: %w", name, errStreamHalted)
	}
}

// describeServiceError prints the service's error body for rejections
// and returns err unchanged.
func describeServiceError(cmd interface{ ErrOrStderr() io.Writer }, err error) error {
	var svcErr *servicemodel.ServiceError
	if errors.As(err, &svcErr) && svcErr.ModeledError != nil {
		_ = printJSON(cmd.ErrOrStderr(), svcErr.ModeledError)
	}
	return err
}
