// Package mqtt provides the message bus session used by every LightLink binary.
//
// This package manages:
//   - Connection to the broker with auto-reconnect
//   - Message publishing with QoS guarantees
//   - Topic subscriptions with wildcard support
//   - Last Will and Testament (LWT) for crash detection
//   - Subscription restoration after reconnect
//
// # Architecture
//
// The two bridges never talk to each other directly. The sensor bridge
// publishes readings, the actuator bridge subscribes to them, and the bus
// monitor observes everything:
//
//	Sensor MCU → sensor-bridge → broker → actuator-bridge → Actuator MCU
//	                                   ↘ bus-monitor
//
// # Presence
//
// Each bridge registers a retained will on its status topic. A clean
// Close suppresses the will, so bridges publish their own retained
// "disconnected" status before closing.
//
// # Usage
//
//	topics := mqtt.NewTopics(cfg.MQTT.TopicPrefix)
//	client, err := mqtt.Connect(cfg.MQTT, mqtt.ConnectOptions{
//	    Will: &mqtt.Message{
//	        Topic:    topics.SensorStatus(),
//	        Payload:  []byte("Publisher disconnected unexpectedly"),
//	        QoS:      1,
//	        Retained: true,
//	    },
//	})
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer client.Close()
//
//	client.Publish(topics.SensorData(), []byte("42"), 1, false)
package mqtt
