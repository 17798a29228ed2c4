// Package config handles loading and validating LightLink configuration.
//
// This package manages:
//   - Loading configuration from YAML files
//   - Overriding with environment variables
//   - Validation of required fields
//   - Default value handling
//
// The defaults match the MCU firmware and the public test broker, so every
// binary runs without a config file:
//
//	mqtt.broker:          broker.emqx.io:1883
//	mqtt.topic_prefix:    iot/project
//	serial.baud_rate:     9600
//	serial.read_timeout:  1s
//	actuator.threshold:   35
//
// Security Considerations:
//   - Broker credentials should be set via LIGHTLINK_MQTT_USERNAME/PASSWORD
//   - The config file should have restricted permissions (0600)
//
// Usage:
//
//	cfg, err := config.Load(os.Getenv("LIGHTLINK_CONFIG"))
//	if err != nil {
//	    log.Fatal(err)
//	}
//	fmt.Println(cfg.Actuator.Threshold)
package config
