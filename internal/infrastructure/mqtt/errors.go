package mqtt

import "errors"

// Sentinel errors returned by Client. Callers match them with errors.Is;
// the broker or paho cause, when there is one, is wrapped alongside.
var (
	// ErrNotConnected means the session is down, either before the first
	// connect or while paho is reconnecting.
	ErrNotConnected = errors.New("mqtt: client not connected")

	// ErrConnectionFailed means Connect gave up on the initial connect.
	ErrConnectionFailed = errors.New("mqtt: connection failed")

	// ErrPublishFailed means a publication was rejected or not confirmed in time.
	ErrPublishFailed = errors.New("mqtt: publish failed")

	// ErrSubscribeFailed means the broker did not confirm a subscription.
	ErrSubscribeFailed = errors.New("mqtt: subscribe failed")

	// ErrUnsubscribeFailed means the broker did not confirm an unsubscribe.
	ErrUnsubscribeFailed = errors.New("mqtt: unsubscribe failed")

	// ErrInvalidQoS is returned for a QoS above 2.
	ErrInvalidQoS = errors.New("mqtt: invalid QoS level (must be 0, 1, or 2)")

	// ErrInvalidTopic is returned for an empty topic.
	ErrInvalidTopic = errors.New("mqtt: topic cannot be empty")
)
