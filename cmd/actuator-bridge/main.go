// Actuator bridge: subscribes to luminosity readings on the LightLink MQTT
// bus and switches the LED actuator MCU on or off around a threshold.
//
// Usage:
//
//	actuator-bridge [--config lightlink.yaml] <serial-port>
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
	"github.com/nerrad567/lightlink/internal/bridges/actuator"
	"github.com/nerrad567/lightlink/internal/history"
	"github.com/nerrad567/lightlink/internal/infrastructure/database"
	"github.com/nerrad567/lightlink/internal/infrastructure/logging"
	"github.com/nerrad567/lightlink/internal/infrastructure/mqtt"
)

// Version information - set at build time via ldflags
// Example: go build -ldflags "-X main.version=1.0.0 -X main.commit=abc123"
var (
	version = "dev"
	commit  = "unknown"
	date    = "unknown"
)

const serviceName = "actuator-bridge"

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

	// Command history (optional)
	var commands actuator.History
	db, err := app.OpenHistory(ctx, cfg.Database, log)
	if err != nil {
		return err
	}
	if db != nil {
		defer func() {
			log.Info("closing database")
			if closeErr := db.Close(); closeErr != nil {
				log.Error("error closing database", "error", closeErr)
			}
		}()
		repo := history.NewCommandRepository(db.DB)
		app.PruneHistory(ctx, "command_history", repo, cfg.Database.Retention, log)
		logLastCommand(ctx, repo, log)
		commands = repo
	}

	topics := mqtt.NewTopics(cfg.MQTT.TopicPrefix)
	qos := byte(cfg.MQTT.QoS)

	bus, err := app.ConnectBus(cfg, actuator.Will(topics, qos), func(c *mqtt.Client) error {
		return actuator.AnnounceBus(c, topics, qos)
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

	if err := healthCheck(ctx, db, bus); err != nil {
		return fmt.Errorf("health check failed: %w", err)
	}
	log.Info("all health checks passed")

	channel, err := app.OpenSerial(ctx, cfg.Serial, port, log)
	if err != nil {
		if errors.Is(err, context.Canceled) {
			return nil
		}
		log.Error("cannot open actuator serial port", "port", port, "error", err)
		if pubErr := actuator.AnnounceDisconnected(bus, topics, qos); pubErr != nil {
			log.Error("publishing status", "error", pubErr)
		}
		time.Sleep(cfg.Shutdown.Grace)
		return fmt.Errorf("opening serial port %s: %w", port, err)
	}

	bridge, err := actuator.NewBridge(actuator.Options{
		Channel:   channel,
		Bus:       bus,
		Topics:    topics,
		Threshold: cfg.Actuator.Threshold,
		QoS:       qos,
		Grace:     cfg.Shutdown.Grace,
		History:   commands,
		Logger:    log.With("port", port),
	})
	if err != nil {
		channel.Close() //nolint:errcheck // already failing
		return fmt.Errorf("creating actuator bridge: %w", err)
	}

	if err := bridge.Start(ctx); err != nil {
		bridge.Stop()
		return fmt.Errorf("starting actuator bridge: %w", err)
	}
	log.Info("actuator bridge running",
		"port", port,
		"threshold", cfg.Actuator.Threshold,
		"topic", topics.ActuatorStatus(),
	)

	<-ctx.Done()
	log.Info("shutdown signal received, cleaning up")

	bridge.Stop()

	log.Info("actuator bridge stopped", "led_state", string(bridge.State()))
	return nil
}

// logLastCommand reports the newest recorded command. The bridge still
// starts in the UNKNOWN state; the MCU may have been reset since.
func logLastCommand(ctx context.Context, repo *history.CommandRepository, log *logging.Logger) {
	last, err := repo.Recent(ctx, 1)
	if err != nil {
		log.Warn("reading command history", "error", err)
		return
	}
	if len(last) == 0 {
		log.Info("no recorded commands")
		return
	}
	log.Info("last recorded command",
		"target", last[0].Target,
		"reading", last[0].Reading,
		"acknowledged", last[0].AckReceived,
		"at", last[0].CreatedAt,
	)
}

// healthCheck verifies the bus session and, when enabled, the history
// database.
func healthCheck(ctx context.Context, db *database.DB, bus *mqtt.Client) error {
	if db != nil {
		if err := db.HealthCheck(ctx); err != nil {
			return fmt.Errorf("database: %w", err)
		}
	}

	if err := bus.HealthCheck(ctx); err != nil {
		return fmt.Errorf("mqtt: %w", err)
	}

	return nil
}
