// Package influxdb stores LightLink bus telemetry in InfluxDB v2.
//
// The bus monitor writes two measurements when influxdb.enabled is set:
//   - luminosity: integer field "value", one point per sensor reading
//   - led_state: fields "state" (ON/OFF) and "on", one point per LED change
//
// Both are tagged with the MQTT topic they were observed on.
//
// # Usage
//
//	client, err := influxdb.Connect(cfg.InfluxDB)
//	if err != nil {
//	    return err
//	}
//	defer client.Close()
//
//	client.WriteReading("iot/project/sensor/data", 42, time.Now())
//
// # Error Handling
//
// Writes are non-blocking and batched (batch_size, flush_interval). Write
// failures arrive asynchronously through the SetOnError callback.
// Connection and health check errors are returned directly.
package influxdb
