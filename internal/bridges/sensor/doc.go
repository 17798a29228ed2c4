// Package sensor implements the sensor side of LightLink.
//
// The bridge owns the serial link to the light-sensor MCU. After sending
// the stream request byte 's' it reads lines continuously and republishes
// them:
//
//	SENSOR_VALUE:<n>  →  <prefix>/sensor/data     "<n>"           QoS 1
//	anything else     →  <prefix>/sensor/status   "MCU_MSG: ..."  QoS 1
//
// Presence is published retained on the status topic: "Connected to
// Sensor MCU" at start, "Publisher connected" on every bus connect and
// "Publisher disconnected" once on Stop. The broker publishes "Publisher
// disconnected unexpectedly" as the session's will.
package sensor
