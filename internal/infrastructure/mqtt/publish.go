package mqtt

import (
	"fmt"
)

// maxPayloadSize is the largest message the IoT endpoint accepts (128KB).
const maxPayloadSize = 128 << 10

// Publish sends a message to the specified MQTT topic and waits for the
// broker acknowledgement (QoS 1) or the write (QoS 0).
//
// Parameters:
//   - topic: The topic to publish to (e.g., "$aws/things/abc/shadow/get")
//   - payload: The message payload (JSON, max 128KB)
//   - qos: Quality of Service level (0 or 1)
//   - retained: Whether the broker should retain the message
//
// Returns:
//   - error: nil on success, or wrapped error describing the failure
func (c *Client) Publish(topic string, payload []byte, qos byte, retained bool) error {
	if topic == "" {
		return ErrInvalidTopic
	}
	if qos > maxQoS {
		return ErrInvalidQoS
	}
	if len(payload) > maxPayloadSize {
		return fmt.Errorf("%w: payload size %d exceeds maximum %d bytes", ErrPublishFailed, len(payload), maxPayloadSize)
	}

	if !c.IsConnected() {
		return ErrNotConnected
	}

	token := c.client.Publish(topic, qos, retained, payload)
	if !token.WaitTimeout(defaultPublishTimeout) {
		return fmt.Errorf("%w: timeout after %v", ErrPublishFailed, defaultPublishTimeout)
	}
	if err := token.Error(); err != nil {
		return fmt.Errorf("%w: %w", ErrPublishFailed, err)
	}

	return nil
}
