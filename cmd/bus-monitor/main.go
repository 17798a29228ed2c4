// Bus monitor: logs every message on the LightLink MQTT bus and optionally
// keeps a message log and luminosity telemetry.
//
// Usage:
//
//	bus-monitor [--config lightlink.yaml]
//	bus-monitor --recent 20 [--topic iot/project/sensor/data]
//
// With --recent the monitor prints the newest entries of its message log
// and exits without connecting to the bus.
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

	"github.com/spf13/pflag"

	"github.com/nerrad567/lightlink/internal/app"
	"github.com/nerrad567/lightlink/internal/history"
	"github.com/nerrad567/lightlink/internal/infrastructure/database"
	"github.com/nerrad567/lightlink/internal/infrastructure/influxdb"
	"github.com/nerrad567/lightlink/internal/infrastructure/mqtt"
	"github.com/nerrad567/lightlink/internal/monitor"
)

// Version information - set at build time via ldflags
// Example: go build -ldflags "-X main.version=1.0.0 -X main.commit=abc123"
var (
	version = "dev"
	commit  = "unknown"
	date    = "unknown"
)

const serviceName = "bus-monitor"

// errNoMessageLog is returned by --recent when the database is disabled.
var errNoMessageLog = errors.New("--recent needs database.enabled: true")

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := run(ctx, os.Args[1:], os.Stderr); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// run is the monitor lifecycle, separated from main for testability.
func run(ctx context.Context, args []string, out io.Writer) error {
	var recent int
	var recentTopic string
	flags, err := app.ParseFlags(serviceName, args, 0, "", out, func(fs *pflag.FlagSet) {
		fs.IntVar(&recent, "recent", 0, "print the newest N logged messages and exit")
		fs.StringVar(&recentTopic, "topic", "", "with --recent, only print messages on this topic")
	})
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

	cfg, log, err := app.LoadConfig(flags.ConfigPath, app.BuildInfo{
		Service: serviceName,
		Version: version,
		Commit:  commit,
		Date:    date,
	})
	if err != nil {
		return err
	}

	opts := monitor.Options{
		Topics: mqtt.NewTopics(cfg.MQTT.TopicPrefix),
		QoS:    byte(cfg.MQTT.QoS),
		Logger: log,
	}

	// Message log (optional)
	db, err := app.OpenHistory(ctx, cfg.Database, log)
	if err != nil {
		return err
	}
	var messages *history.MessageRepository
	if db != nil {
		defer func() {
			log.Info("closing database")
			if closeErr := db.Close(); closeErr != nil {
				log.Error("error closing database", "error", closeErr)
			}
		}()
		messages = history.NewMessageRepository(db.DB)
		opts.Store = messages
	}

	if recent > 0 {
		if messages == nil {
			return errNoMessageLog
		}
		return printRecent(ctx, out, messages, recentTopic, recent)
	}

	if messages != nil {
		app.PruneHistory(ctx, "message_log", messages, cfg.Database.Retention, log)
	}

	// Telemetry (optional)
	var influxClient *influxdb.Client
	if cfg.InfluxDB.Enabled {
		influxClient, err = influxdb.Connect(cfg.InfluxDB)
		if err != nil {
			return fmt.Errorf("connecting to InfluxDB: %w", err)
		}
		defer func() {
			log.Info("closing InfluxDB connection")
			if closeErr := influxClient.Close(); closeErr != nil {
				log.Error("error closing InfluxDB", "error", closeErr)
			}
		}()
		influxClient.SetOnError(func(err error) {
			log.Error("InfluxDB write error", "error", err)
		})
		log.Info("InfluxDB connected",
			"url", cfg.InfluxDB.URL,
			"org", cfg.InfluxDB.Org,
			"bucket", cfg.InfluxDB.Bucket,
		)
		opts.Telemetry = influxClient
	} else {
		log.Info("InfluxDB disabled")
	}

	bus, err := app.ConnectBus(cfg, nil, nil, log)
	if err != nil {
		return err
	}
	defer func() {
		log.Info("disconnecting from MQTT")
		if closeErr := bus.Close(); closeErr != nil {
			log.Error("error closing MQTT", "error", closeErr)
		}
	}()
	opts.Bus = bus

	if err := healthCheck(ctx, db, bus, influxClient); err != nil {
		return fmt.Errorf("health check failed: %w", err)
	}
	log.Info("all health checks passed")

	mon, err := monitor.New(opts)
	if err != nil {
		return fmt.Errorf("creating monitor: %w", err)
	}
	if err := mon.Start(ctx); err != nil {
		return fmt.Errorf("starting monitor: %w", err)
	}

	<-ctx.Done()
	log.Info("shutdown signal received, cleaning up", "messages", mon.Received())

	if err := mon.Stop(); err != nil {
		log.Warn("stopping monitor", "error", err)
	}
	return nil
}

// printRecent writes the newest logged messages, oldest first, one per line.
func printRecent(ctx context.Context, out io.Writer, messages *history.MessageRepository, topic string, limit int) error {
	entries, err := messages.Recent(ctx, topic, limit)
	if err != nil {
		return fmt.Errorf("reading message log: %w", err)
	}

	for i := len(entries) - 1; i >= 0; i-- {
		m := entries[i]
		fmt.Fprintf(out, "%s %s %s\n", m.ReceivedAt.Format(time.RFC3339Nano), m.Topic, m.Payload) //nolint:errcheck // CLI output
	}
	return nil
}

// healthCheck verifies every connection the monitor opened. db and
// influxClient are nil when disabled.
func healthCheck(ctx context.Context, db *database.DB, bus *mqtt.Client, influxClient *influxdb.Client) error {
	if db != nil {
		if err := db.HealthCheck(ctx); err != nil {
			return fmt.Errorf("database: %w", err)
		}
	}

	if err := bus.HealthCheck(ctx); err != nil {
		return fmt.Errorf("mqtt: %w", err)
	}

	if influxClient != nil {
		if err := influxClient.HealthCheck(ctx); err != nil {
			return fmt.Errorf("influxdb: %w", err)
		}
	}

	return nil
}
