package influxdb

import (
	"time"

	"github.com/influxdata/influxdb-client-go/v2/api/write"
)

// Measurement names written by the bus monitor.
const (
	MeasurementLuminosity = "luminosity"
	MeasurementLEDState   = "led_state"
)

// WriteReading records one luminosity reading observed on topic.
// The write is non-blocking; points are batched and sent asynchronously.
func (c *Client) WriteReading(topic string, value int, at time.Time) {
	if !c.IsConnected() {
		return
	}
	c.writeAPI.WritePoint(readingPoint(topic, value, at))
}

// WriteLEDState records an LED state change ("ON" or "OFF").
func (c *Client) WriteLEDState(topic string, state string, at time.Time) {
	if !c.IsConnected() {
		return
	}
	c.writeAPI.WritePoint(ledStatePoint(topic, state, at))
}

func readingPoint(topic string, value int, at time.Time) *write.Point {
	return write.NewPoint(
		MeasurementLuminosity,
		map[string]string{"topic": topic},
		map[string]interface{}{"value": value},
		at,
	)
}

// ledStatePoint carries the state both as text and as a boolean so it can
// be graphed.
func ledStatePoint(topic string, state string, at time.Time) *write.Point {
	return write.NewPoint(
		MeasurementLEDState,
		map[string]string{"topic": topic},
		map[string]interface{}{
			"state": state,
			"on":    state == "ON",
		},
		at,
	)
}
