package actuator

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/nerrad567/lightlink/internal/history"
	"github.com/nerrad567/lightlink/internal/infrastructure/mqtt"
)

// Presence payloads published retained on the actuator status topic.
const (
	StatusMCUConnected   = "Connected to Actuator MCU"
	StatusBusConnected   = "Subscriber connected"
	StatusDisconnected   = "Subscriber disconnected"
	StatusUnexpectedLoss = "Subscriber disconnected unexpectedly"
)

// Bridge operation constants.
const (
	defaultQueueSize = 64

	// historyTimeout bounds one history insert.
	historyTimeout = 2 * time.Second
)

// Publisher publishes one message. *mqtt.Client satisfies it.
type Publisher interface {
	Publish(topic string, payload []byte, qos byte, retained bool) error
}

// Bus is the bus surface the bridge needs.
// *mqtt.Client satisfies it.
type Bus interface {
	Publisher
	Subscribe(topic string, qos byte, handler mqtt.MessageHandler) error
	Unsubscribe(topic string) error
}

// Channel is the serial surface the bridge needs.
// *serial.Channel satisfies it.
type Channel interface {
	ReadLine() (string, bool, error)
	WriteByte(b byte) error
	IsOpen() bool
	Close() error
}

// History records issued commands. *history.CommandRepository satisfies it.
type History interface {
	RecordCommand(ctx context.Context, cmd history.Command) error
}

// Logger interface for optional logging.
type Logger interface {
	Debug(msg string, keysAndValues ...any)
	Info(msg string, keysAndValues ...any)
	Warn(msg string, keysAndValues ...any)
	Error(msg string, keysAndValues ...any)
}

// Options holds the dependencies for creating a bridge.
type Options struct {
	// Channel is the open serial link to the actuator MCU.
	Channel Channel

	// Bus is the bus session.
	Bus Bus

	// Topics selects the topic namespace.
	Topics mqtt.Topics

	// Threshold is the luminosity below which the LED is switched on. It is
	// used as given: with zero or less no reading switches the LED on.
	Threshold int

	// QoS is used for the reading subscription and every status.
	QoS byte

	// QueueSize bounds the readings waiting for the dispatch goroutine.
	// Default: 64.
	QueueSize int

	// Grace is slept after the final status publish in Stop.
	Grace time.Duration

	// History is optional.
	History History

	// Logger is optional.
	Logger Logger
}

// Result describes what HandleReading did with one payload.
type Result int

// HandleReading outcomes.
const (
	// ResultInvalid means the payload was not an integer.
	ResultInvalid Result = iota

	// ResultSatisfied means the LED already had the target state.
	ResultSatisfied

	// ResultCommanded means a command was written and the state committed.
	ResultCommanded

	// ResultUnavailable means the serial channel was not open.
	ResultUnavailable

	// ResultWriteFailed means writing the command failed.
	ResultWriteFailed
)

// String returns the result's name.
func (r Result) String() string {
	switch r {
	case ResultInvalid:
		return "invalid"
	case ResultSatisfied:
		return "satisfied"
	case ResultCommanded:
		return "commanded"
	case ResultUnavailable:
		return "unavailable"
	case ResultWriteFailed:
		return "write_failed"
	default:
		return "unknown"
	}
}

// Bridge turns sensor readings from the bus into LED commands.
//
// Thread Safety: the bus handler only enqueues payloads. One dispatch
// goroutine drains the queue and is the sole user of the serial channel
// and the sole writer of the LED state, so the state needs no lock.
type Bridge struct {
	channel   Channel
	bus       Bus
	topics    mqtt.Topics
	threshold int
	qos       byte
	grace     time.Duration
	history   History
	logger    Logger

	// state is owned by the dispatch goroutine.
	state State

	queue chan []byte

	ctx       context.Context
	ctxCancel context.CancelFunc

	started  bool
	startMu  sync.Mutex
	done     chan struct{}
	wg       sync.WaitGroup
	stopOnce sync.Once
}

// Will returns the last will registered with the bus session.
func Will(topics mqtt.Topics, qos byte) *mqtt.Message {
	return &mqtt.Message{
		Topic:    topics.ActuatorStatus(),
		Payload:  []byte(StatusUnexpectedLoss),
		QoS:      qos,
		Retained: true,
	}
}

// AnnounceBus publishes the retained bus presence status. It is wired to
// the MQTT connect callback and runs on every (re)connect.
func AnnounceBus(pub Publisher, topics mqtt.Topics, qos byte) error {
	return pub.Publish(topics.ActuatorStatus(), []byte(StatusBusConnected), qos, true)
}

// AnnounceDisconnected publishes the retained final status. Stop calls it;
// startup failure paths that never build a Bridge call it directly.
func AnnounceDisconnected(pub Publisher, topics mqtt.Topics, qos byte) error {
	return pub.Publish(topics.ActuatorStatus(), []byte(StatusDisconnected), qos, true)
}

// NewBridge creates an actuator bridge in the UNKNOWN state. Call Start to
// subscribe to readings.
func NewBridge(opts Options) (*Bridge, error) {
	if opts.Channel == nil {
		return nil, ErrChannelRequired
	}
	if opts.Bus == nil {
		return nil, ErrBusRequired
	}
	if opts.QoS > 2 {
		return nil, fmt.Errorf("%w: %d", ErrInvalidQoS, opts.QoS)
	}

	queueSize := opts.QueueSize
	if queueSize <= 0 {
		queueSize = defaultQueueSize
	}

	return &Bridge{
		channel:   opts.Channel,
		bus:       opts.Bus,
		topics:    opts.Topics,
		threshold: opts.Threshold,
		qos:       opts.QoS,
		grace:     opts.Grace,
		history:   opts.History,
		logger:    opts.Logger,
		state:     StateUnknown,
		queue:     make(chan []byte, queueSize),
		ctx:       context.Background(),
		done:      make(chan struct{}),
	}, nil
}

// Start launches the dispatch goroutine, subscribes to the reading topic
// and announces the MCU link. The goroutine exits when ctx is cancelled or
// Stop is called.
func (b *Bridge) Start(ctx context.Context) error {
	b.startMu.Lock()
	defer b.startMu.Unlock()

	if b.started {
		return ErrAlreadyStarted
	}

	b.ctx, b.ctxCancel = context.WithCancel(ctx)

	b.wg.Add(1)
	go b.dispatch()

	if err := b.bus.Subscribe(b.topics.SensorData(), b.qos, b.enqueue); err != nil {
		b.ctxCancel()
		b.wg.Wait()
		return fmt.Errorf("subscribing to readings: %w", err)
	}
	b.logInfo("subscribed to readings", "topic", b.topics.SensorData(), "threshold", b.threshold)

	b.publishStatus(StatusMCUConnected)

	b.started = true
	return nil
}

// Stop ends dispatch, drops the reading subscription, releases the serial
// channel and publishes the final retained status exactly once. It then
// waits for the grace period so the status leaves the client before the
// caller closes the bus session.
func (b *Bridge) Stop() {
	b.stopOnce.Do(func() {
		close(b.done)

		b.startMu.Lock()
		cancel := b.ctxCancel
		started := b.started
		b.startMu.Unlock()
		if cancel != nil {
			cancel()
		}
		b.wg.Wait()

		if started {
			if err := b.bus.Unsubscribe(b.topics.SensorData()); err != nil {
				b.logWarn("unsubscribing from readings", "error", err)
			}
		}

		if err := b.channel.Close(); err != nil {
			b.logError("closing serial channel", err)
		} else {
			b.logInfo("serial channel closed")
		}

		if err := AnnounceDisconnected(b.bus, b.topics, b.qos); err != nil {
			b.logError("publishing status", err, "status", StatusDisconnected)
		} else {
			b.logInfo("published status", "status", StatusDisconnected)
		}

		if b.grace > 0 {
			time.Sleep(b.grace)
		}

		b.logInfo("actuator bridge stopped")
	})
}

// State returns the LED state last committed. Call it from the dispatch
// goroutine or once the bridge has stopped.
func (b *Bridge) State() State {
	return b.state
}

// enqueue is the bus handler. It never touches the serial channel.
//
// Delivery is ordered, so while the queue is full this handler holds up
// every other message on the session. That is logged once per stall.
func (b *Bridge) enqueue(_ string, payload []byte) error {
	select {
	case b.queue <- payload:
		return nil
	default:
	}

	b.logWarn("reading queue full, bus delivery paused", "queue_size", cap(b.queue))

	select {
	case b.queue <- payload:
		return nil
	case <-b.done:
		return nil
	case <-b.ctx.Done():
		return nil
	}
}

// dispatch drains the queue serially.
func (b *Bridge) dispatch() {
	defer b.wg.Done()

	for {
		select {
		case <-b.ctx.Done():
			return
		case <-b.done:
			return
		case payload := <-b.queue:
			b.HandleReading(payload)
		}
	}
}

// HandleReading applies the threshold decision to one reading payload and,
// when the target differs from the current state, commands the MCU.
//
// The state is committed as soon as the command byte is written. A missing
// acknowledgement is logged and does not roll the state back.
func (b *Bridge) HandleReading(payload []byte) Result {
	reading, err := ParseReading(payload)
	if err != nil {
		b.logWarn("ignoring invalid reading", "payload", string(payload), "error", err)
		return ResultInvalid
	}

	target := TargetFor(reading, b.threshold)
	if target == b.state {
		b.logDebug("already satisfied", "reading", reading, "state", string(b.state))
		return ResultSatisfied
	}

	if !b.channel.IsOpen() {
		b.logError("actuator serial channel not open", nil, "reading", reading, "target", string(target))
		return ResultUnavailable
	}

	cmd := CommandFor(target)
	if err := b.channel.WriteByte(byte(cmd)); err != nil {
		b.logError("writing command", err, "command", cmd.String(), "target", string(target))
		return ResultWriteFailed
	}

	ack, ackReceived, err := b.channel.ReadLine()
	switch {
	case err != nil:
		b.logWarn("reading acknowledgement", "command", cmd.String(), "error", err)
	case !ackReceived:
		b.logWarn("no acknowledgement from actuator MCU", "command", cmd.String())
	default:
		b.logInfo("actuator MCU acknowledged", "command", cmd.String(), "ack", ack)
	}

	previous := b.state
	b.state = target
	b.logInfo("LED state changed", "reading", reading, "from", string(previous), "to", string(target))

	if err := b.bus.Publish(b.topics.ActuatorStatus(), StatusPayload(target), b.qos, true); err != nil {
		b.logError("publishing LED status", err, "state", string(target))
	}

	b.recordCommand(history.Command{
		Reading:     reading,
		Target:      string(target),
		Opcode:      string(rune(cmd)),
		Ack:         ack,
		AckReceived: ackReceived,
	})

	return ResultCommanded
}

// recordCommand stores a command in the optional history. Failures are
// logged only.
func (b *Bridge) recordCommand(cmd history.Command) {
	if b.history == nil {
		return
	}

	ctx, cancel := context.WithTimeout(context.WithoutCancel(b.ctx), historyTimeout)
	defer cancel()

	if err := b.history.RecordCommand(ctx, cmd); err != nil {
		b.logWarn("recording command history", "error", err)
	}
}

// publishStatus publishes a retained presence message.
func (b *Bridge) publishStatus(status string) {
	if err := b.bus.Publish(b.topics.ActuatorStatus(), []byte(status), b.qos, true); err != nil {
		b.logError("publishing status", err, "status", status)
		return
	}
	b.logInfo("published status", "status", status)
}

func (b *Bridge) logDebug(msg string, keysAndValues ...any) {
	if b.logger != nil {
		b.logger.Debug(msg, keysAndValues...)
	}
}

func (b *Bridge) logInfo(msg string, keysAndValues ...any) {
	if b.logger != nil {
		b.logger.Info(msg, keysAndValues...)
	}
}

func (b *Bridge) logWarn(msg string, keysAndValues ...any) {
	if b.logger != nil {
		b.logger.Warn(msg, keysAndValues...)
	}
}

func (b *Bridge) logError(msg string, err error, keysAndValues ...any) {
	if b.logger == nil {
		return
	}
	if err != nil {
		keysAndValues = append([]any{"error", err}, keysAndValues...)
	}
	b.logger.Error(msg, keysAndValues...)
}
