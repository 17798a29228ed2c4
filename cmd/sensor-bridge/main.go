// Sensor bridge: drains the light-sensor MCU's serial line and publishes
// readings and MCU messages to the LightLink MQTT bus.
//
// Usage:
//
//	sensor-bridge [--config lightlink.yaml] <serial-port>
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/nerrad567/lightlink/internal/app"
	"github.com/nerrad567/lightlink/internal/bridges/sensor"
	"github.com/nerrad567/lightlink/internal/infrastructure/mqtt"
)

// Version information - set at build time via ldflags
// Example: go build -ldflags "-X main.version=1.0.0 -X main.commit=abc123"
var (
	version = "dev"
	commit  = "unknown"
	date    = "unknown"
)

const serviceName = "sensor-bridge"

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := run(ctx, os.Args[1:], os.Stderr); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// run is the bridge lifecycle, separated from main for testability.
func run(ctx context.Context, args []string, out io.Writer) error {
	flags, err := app.ParseFlags(serviceName, args, 1, "<serial-port>", out)
	if err != nil {
		return err
	}
	if flags.ShowHelp {
		return nil
	}
	if flags.ShowVersion {
		fmt.Fprintf(out, "%s %s (commit %s, built %s)\n", serviceName, version, commit, date) //nolint:errcheck // version output
		return nil
	}
	port := flags.Args[0]

	cfg, log, err := app.LoadConfig(flags.ConfigPath, app.BuildInfo{
		Service: serviceName,
		Version: version,
		Commit:  commit,
		Date:    date,
	})
	if err != nil {
		return err
	}

	topics := mqtt.NewTopics(cfg.MQTT.TopicPrefix)

	qos := byte(cfg.MQTT.QoS)

	bus, err := app.ConnectBus(cfg, sensor.Will(topics, qos), func(c *mqtt.Client) error {
		return sensor.AnnounceBus(c, topics, qos)
	}, log)
	if err != nil {
		return err
	}
	defer func() {
		log.Info("disconnecting from MQTT")
		if closeErr := bus.Close(); closeErr != nil {
			log.Error("error closing MQTT", "error", closeErr)
		}
	}()

	if err := bus.HealthCheck(ctx); err != nil {
		return fmt.Errorf("health check failed: mqtt: %w", err)
	}
	log.Info("all health checks passed")

	channel, err := app.OpenSerial(ctx, cfg.Serial, port, log)
	if err != nil {
		if errors.Is(err, context.Canceled) {
			return nil
		}
		log.Error("cannot open sensor serial port", "port", port, "error", err)
		if pubErr := sensor.AnnounceDisconnected(bus, topics, qos); pubErr != nil {
			log.Error("publishing status", "error", pubErr)
		}
		time.Sleep(cfg.Shutdown.Grace)
		return fmt.Errorf("opening serial port %s: %w", port, err)
	}

	bridge, err := sensor.NewBridge(sensor.Options{
		Channel:      channel,
		Publisher:    bus,
		Topics:       topics,
		QoS:          qos,
		PollInterval: cfg.Serial.PollInterval,
		Grace:        cfg.Shutdown.Grace,
		Logger:       log.With("port", port),
	})
	if err != nil {
		channel.Close() //nolint:errcheck // already failing
		return fmt.Errorf("creating sensor bridge: %w", err)
	}

	if err := bridge.Start(ctx); err != nil {
		bridge.Stop()
		return fmt.Errorf("starting sensor bridge: %w", err)
	}
	log.Info("sensor bridge running", "port", port, "topic", topics.SensorData())

	<-ctx.Done()
	log.Info("shutdown signal received, cleaning up")

	bridge.Stop()

	log.Info("sensor bridge stopped")
	return nil
}
