package mqtt

import (
	"fmt"
	"time"

	pahomqtt "github.com/eclipse/paho.mqtt.golang"
)

// maxPayloadSize bounds one publication. Bus payloads are a few bytes;
// anything near this is a bug upstream.
const maxPayloadSize = 1 << 20

// Publish sends payload on topic and waits until paho reports the
// publication done (for QoS 1 and 2, acknowledged by the broker).
//
// LightLink retains presence and LED status so a late subscriber sees the
// current state at once. Readings and MCU messages are never retained.
func (c *Client) Publish(topic string, payload []byte, qos byte, retained bool) error {
	if topic == "" {
		return ErrInvalidTopic
	}
	if qos > maxQoS {
		return ErrInvalidQoS
	}
	if len(payload) > maxPayloadSize {
		return fmt.Errorf("%w: payload of %d bytes exceeds %d", ErrPublishFailed, len(payload), maxPayloadSize)
	}
	if !c.IsConnected() {
		return ErrNotConnected
	}

	return waitToken(c.client.Publish(topic, qos, retained, payload), ErrPublishFailed)
}

// waitToken waits up to defaultPublishTimeout for a paho operation and
// wraps any failure in sentinel.
func waitToken(token pahomqtt.Token, sentinel error) error {
	return waitTokenFor(token, defaultPublishTimeout, sentinel)
}

func waitTokenFor(token pahomqtt.Token, timeout time.Duration, sentinel error) error {
	if !token.WaitTimeout(timeout) {
		return fmt.Errorf("%w: timeout after %v", sentinel, timeout)
	}
	if err := token.Error(); err != nil {
		return fmt.Errorf("%w: %w", sentinel, err)
	}
	return nil
}
