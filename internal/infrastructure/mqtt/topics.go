package mqtt

// DefaultTopicPrefix is the namespace shared by both bridges and the monitor.
const DefaultTopicPrefix = "iot/project"

// Topic suffixes below the prefix.
const (
	suffixSensorData     = "sensor/data"
	suffixSensorStatus   = "sensor/status"
	suffixActuatorStatus = "actuator/status"
)

// Topics provides builders for LightLink MQTT topics.
// Using these helpers keeps the three binaries agreeing on topic names.
//
//	topics := mqtt.NewTopics("iot/project")
//	topics.SensorData() // "iot/project/sensor/data"
type Topics struct {
	Prefix string
}

// NewTopics returns a builder for prefix, falling back to DefaultTopicPrefix.
func NewTopics(prefix string) Topics {
	if prefix == "" {
		prefix = DefaultTopicPrefix
	}
	return Topics{Prefix: prefix}
}

// SensorData returns the topic carrying luminosity readings.
// Published at QoS 1, never retained.
//
// Example: iot/project/sensor/data
func (t Topics) SensorData() string {
	return t.join(suffixSensorData)
}

// SensorStatus returns the sensor bridge presence and MCU message topic.
//
// Example: iot/project/sensor/status
func (t Topics) SensorStatus() string {
	return t.join(suffixSensorStatus)
}

// ActuatorStatus returns the actuator bridge presence and LED state topic.
//
// Example: iot/project/actuator/status
func (t Topics) ActuatorStatus() string {
	return t.join(suffixActuatorStatus)
}

// All returns a pattern matching every LightLink topic.
//
// Pattern: iot/project/#
func (t Topics) All() string {
	return t.join("#")
}

func (t Topics) join(suffix string) string {
	prefix := t.Prefix
	if prefix == "" {
		prefix = DefaultTopicPrefix
	}
	return prefix + "/" + suffix
}
