package monitor

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/nerrad567/lightlink/internal/bridges/actuator"
	"github.com/nerrad567/lightlink/internal/infrastructure/mqtt"
)

// storeTimeout bounds one message log insert.
const storeTimeout = 2 * time.Second

// Subscriber is the bus surface the monitor needs.
// *mqtt.Client satisfies it.
type Subscriber interface {
	Subscribe(topic string, qos byte, handler mqtt.MessageHandler) error
	Unsubscribe(topic string) error
}

// MessageStore persists observed messages.
// *history.MessageRepository satisfies it.
type MessageStore interface {
	RecordMessage(ctx context.Context, topic string, payload []byte) error
}

// Telemetry receives decoded readings and LED changes.
// *influxdb.Client satisfies it.
type Telemetry interface {
	WriteReading(topic string, value int, at time.Time)
	WriteLEDState(topic string, state string, at time.Time)
}

// Logger interface for optional logging.
type Logger interface {
	Debug(msg string, keysAndValues ...any)
	Info(msg string, keysAndValues ...any)
	Warn(msg string, keysAndValues ...any)
	Error(msg string, keysAndValues ...any)
}

// Options holds the dependencies for creating a monitor.
type Options struct {
	// Bus is the bus session.
	Bus Subscriber

	// Topics selects the namespace to watch.
	Topics mqtt.Topics

	// QoS is the maximum QoS requested for the subscription.
	QoS byte

	// Store is optional.
	Store MessageStore

	// Telemetry is optional.
	Telemetry Telemetry

	// Logger is optional.
	Logger Logger
}

// Monitor logs every message under the topic prefix. It keeps no state
// beyond a message counter.
type Monitor struct {
	bus       Subscriber
	topics    mqtt.Topics
	qos       byte
	store     MessageStore
	telemetry Telemetry
	logger    Logger
	now       func() time.Time

	received atomic.Uint64

	ctx     context.Context
	started bool
	startMu sync.Mutex
}

// New creates a monitor. Call Start to subscribe.
func New(opts Options) (*Monitor, error) {
	if opts.Bus == nil {
		return nil, ErrBusRequired
	}
	if opts.QoS > 2 {
		return nil, fmt.Errorf("%w: %d", ErrInvalidQoS, opts.QoS)
	}

	return &Monitor{
		bus:       opts.Bus,
		topics:    opts.Topics,
		qos:       opts.QoS,
		store:     opts.Store,
		telemetry: opts.Telemetry,
		logger:    opts.Logger,
		now:       time.Now,
		ctx:       context.Background(),
	}, nil
}

// Start subscribes to every topic under the prefix. Store writes use ctx
// so they are abandoned once it is cancelled.
func (m *Monitor) Start(ctx context.Context) error {
	m.startMu.Lock()
	defer m.startMu.Unlock()

	if m.started {
		return ErrAlreadyStarted
	}

	m.ctx = ctx
	if err := m.bus.Subscribe(m.topics.All(), m.qos, m.HandleMessage); err != nil {
		return fmt.Errorf("subscribing to %s: %w", m.topics.All(), err)
	}
	m.started = true

	m.logInfo("monitoring bus", "filter", m.topics.All())
	return nil
}

// Stop drops the subscription. Messages already in flight may still be
// handled. Stop on a monitor that never started is a no-op.
func (m *Monitor) Stop() error {
	m.startMu.Lock()
	defer m.startMu.Unlock()

	if !m.started {
		return nil
	}
	m.started = false

	if err := m.bus.Unsubscribe(m.topics.All()); err != nil {
		return fmt.Errorf("unsubscribing from %s: %w", m.topics.All(), err)
	}
	m.logInfo("stopped monitoring bus", "received", m.received.Load())
	return nil
}

// Received returns how many messages have been handled.
func (m *Monitor) Received() uint64 {
	return m.received.Load()
}

// HandleMessage logs one message and forwards it to the optional store
// and telemetry sinks. It never returns an error so one bad message
// cannot disturb the subscription.
func (m *Monitor) HandleMessage(topic string, payload []byte) error {
	receivedAt := m.now()
	m.received.Add(1)

	m.logInfo("bus message",
		"topic", topic,
		"payload", string(payload),
		"received_at", receivedAt.Format(time.RFC3339Nano),
	)

	m.record(topic, payload)
	m.writeTelemetry(topic, payload, receivedAt)

	return nil
}

func (m *Monitor) record(topic string, payload []byte) {
	if m.store == nil {
		return
	}

	ctx, cancel := context.WithTimeout(m.ctx, storeTimeout)
	defer cancel()

	if err := m.store.RecordMessage(ctx, topic, payload); err != nil {
		m.logWarn("recording message", "topic", topic, "error", err)
	}
}

// writeTelemetry decodes readings and LED changes. Other traffic, such as
// presence and MCU messages, is only logged.
func (m *Monitor) writeTelemetry(topic string, payload []byte, at time.Time) {
	if m.telemetry == nil {
		return
	}

	switch topic {
	case m.topics.SensorData():
		value, err := actuator.ParseReading(payload)
		if err != nil {
			m.logDebug("skipping non-numeric reading", "payload", string(payload))
			return
		}
		m.telemetry.WriteReading(topic, value, at)
	case m.topics.ActuatorStatus():
		if state, ok := actuator.ParseStatus(payload); ok {
			m.telemetry.WriteLEDState(topic, string(state), at)
		}
	}
}

func (m *Monitor) logDebug(msg string, keysAndValues ...any) {
	if m.logger != nil {
		m.logger.Debug(msg, keysAndValues...)
	}
}

func (m *Monitor) logInfo(msg string, keysAndValues ...any) {
	if m.logger != nil {
		m.logger.Info(msg, keysAndValues...)
	}
}

func (m *Monitor) logWarn(msg string, keysAndValues ...any) {
	if m.logger != nil {
		m.logger.Warn(msg, keysAndValues...)
	}
}
