package app

import (
	"context"
	"fmt"
	"time"

	"github.com/nerrad567/lightlink/internal/infrastructure/config"
	"github.com/nerrad567/lightlink/internal/infrastructure/database"
	"github.com/nerrad567/lightlink/internal/infrastructure/logging"
	"github.com/nerrad567/lightlink/internal/infrastructure/mqtt"
	"github.com/nerrad567/lightlink/internal/infrastructure/serial"
	"github.com/nerrad567/lightlink/migrations"
)

// BuildInfo is the version stamped into a binary at build time.
type BuildInfo struct {
	Service string
	Version string
	Commit  string
	Date    string
}

// LoadConfig loads configuration and returns it with a logger built from
// its logging section.
func LoadConfig(path string, info BuildInfo) (*config.Config, *logging.Logger, error) {
	log := logging.Default(info.Service)
	log.Info("starting "+info.Service,
		"version", info.Version,
		"commit", info.Commit,
		"build_date", info.Date,
	)

	cfg, err := config.Load(path)
	if err != nil {
		return nil, nil, fmt.Errorf("loading config: %w", err)
	}
	if path == "" {
		log.Info("no configuration file, using defaults")
	} else {
		log.Info("configuration loaded", "path", path)
	}

	log = logging.New(cfg.Logging, info.Service, info.Version)
	log.Debug("logger initialised",
		"level", cfg.Logging.Level,
		"format", cfg.Logging.Format,
	)

	return cfg, log, nil
}

// ConnectBus opens the MQTT session for a binary.
//
// announce runs on the initial connect and on every reconnect; bridges use
// it to publish their retained presence. will may be nil.
func ConnectBus(cfg *config.Config, will *mqtt.Message, announce func(*mqtt.Client) error, log *logging.Logger) (*mqtt.Client, error) {
	client, err := mqtt.Connect(cfg.MQTT, mqtt.ConnectOptions{
		Will: will,
		OnConnect: func(c *mqtt.Client) {
			log.Info("MQTT connected", "client_id", c.ClientID())
			if announce == nil {
				return
			}
			if err := announce(c); err != nil {
				log.Error("publishing presence", "error", err)
			}
		},
		OnDisconnect: func(err error) {
			log.Warn("MQTT disconnected", "error", err)
		},
		Logger: log,
	})
	if err != nil {
		return nil, fmt.Errorf("connecting to MQTT: %w", err)
	}

	log.Info("MQTT session established",
		"broker", cfg.BrokerAddress(),
		"client_id", client.ClientID(),
	)
	return client, nil
}

// OpenSerial opens the MCU port and waits for the board to settle. Most
// boards reset when the host opens the line.
func OpenSerial(ctx context.Context, cfg config.SerialConfig, port string, log *logging.Logger) (*serial.Channel, error) {
	ch, err := serial.Open(serial.Config{
		Name:        port,
		BaudRate:    cfg.BaudRate,
		ReadTimeout: cfg.ReadTimeout,
	})
	if err != nil {
		return nil, err
	}
	log.Info("serial port opened", "port", port, "baud_rate", cfg.BaudRate)

	if cfg.SettleDelay > 0 {
		log.Debug("waiting for MCU to settle", "delay", cfg.SettleDelay)
		if !Sleep(ctx, cfg.SettleDelay) {
			ch.Close() //nolint:errcheck // shutting down
			return nil, ctx.Err()
		}
	}

	return ch, nil
}

// OpenHistory opens and migrates the history database. It returns nil
// without error when the database is disabled.
func OpenHistory(ctx context.Context, cfg config.DatabaseConfig, log *logging.Logger) (*database.DB, error) {
	if !cfg.Enabled {
		log.Info("history database disabled")
		return nil, nil
	}

	db, err := database.Open(cfg)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	if err := db.Migrate(ctx, migrations.FS); err != nil {
		db.Close() //nolint:errcheck // already failing
		return nil, fmt.Errorf("running migrations: %w", err)
	}

	log.Info("history database ready", "path", db.Path())
	return db, nil
}

// Pruner deletes history rows older than a cutoff. Both history
// repositories satisfy it.
type Pruner interface {
	Prune(ctx context.Context, olderThan time.Duration) (int64, error)
}

// PruneHistory applies the retention setting to one history table and
// returns the number of rows removed. A zero retention keeps everything.
// Failures are logged and do not stop startup.
func PruneHistory(ctx context.Context, table string, p Pruner, retention time.Duration, log *logging.Logger) int64 {
	if retention <= 0 {
		log.Debug("history retention disabled", "table", table)
		return 0
	}

	removed, err := p.Prune(ctx, retention)
	if err != nil {
		log.Warn("pruning history", "table", table, "error", err)
		return 0
	}
	log.Info("history pruned", "table", table, "removed", removed, "retention", retention)
	return removed
}

// Sleep waits for d or until ctx is cancelled. It reports whether the full
// duration elapsed.
func Sleep(ctx context.Context, d time.Duration) bool {
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return false
	case <-timer.C:
		return true
	}
}
