// Package monitor is a passive observer of the LightLink bus.
//
// It subscribes to <prefix>/# and logs each message's topic, payload and
// arrival time. When configured it also keeps a message log in SQLite and
// writes decoded sensor readings and LED state changes to InfluxDB. It
// never publishes.
package monitor
