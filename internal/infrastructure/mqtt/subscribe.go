package mqtt

import (
	"fmt"
)

// Subscribe routes messages matching topic to handler and remembers the
// pair so it is re-established after every reconnect. Subscribing to a
// topic again replaces its handler.
//
// Delivery is ordered (see buildClientOptions): paho calls handlers one at
// a time from its router goroutine, in the order the broker sent them. A
// handler that blocks holds up every later message on the session,
// acknowledgements included, so handlers hand payloads off to their own
// queue and return. The actuator bridge does exactly that with its
// reading queue.
//
// The topic may carry wildcards, e.g. Topics.All for the bus monitor.
func (c *Client) Subscribe(topic string, qos byte, handler MessageHandler) error {
	if topic == "" {
		return ErrInvalidTopic
	}
	if qos > maxQoS {
		return ErrInvalidQoS
	}
	if handler == nil {
		return fmt.Errorf("%w: handler cannot be nil", ErrSubscribeFailed)
	}
	if !c.IsConnected() {
		return ErrNotConnected
	}

	c.track(subscription{topic: topic, qos: qos, handler: handler})

	token := c.client.Subscribe(topic, qos, c.wrapHandler(handler))
	err := waitToken(token, ErrSubscribeFailed)
	if err != nil {
		c.untrack(topic)
	}
	return err
}

// Unsubscribe drops the subscription for topic, which must match the
// string given to Subscribe. A message already handed to paho may still
// reach the old handler.
func (c *Client) Unsubscribe(topic string) error {
	if topic == "" {
		return ErrInvalidTopic
	}
	if !c.IsConnected() {
		return ErrNotConnected
	}

	c.untrack(topic)

	return waitToken(c.client.Unsubscribe(topic), ErrUnsubscribeFailed)
}

func (c *Client) track(sub subscription) {
	c.subMu.Lock()
	defer c.subMu.Unlock()
	c.subscriptions[sub.topic] = sub
}

func (c *Client) untrack(topic string) {
	c.subMu.Lock()
	defer c.subMu.Unlock()
	delete(c.subscriptions, topic)
}
