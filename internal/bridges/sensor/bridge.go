package sensor

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/nerrad567/lightlink/internal/infrastructure/mqtt"
	"github.com/nerrad567/lightlink/internal/infrastructure/serial"
)

// Presence payloads published retained on the sensor status topic.
const (
	StatusMCUConnected   = "Connected to Sensor MCU"
	StatusBusConnected   = "Publisher connected"
	StatusDisconnected   = "Publisher disconnected"
	StatusUnexpectedLoss = "Publisher disconnected unexpectedly"
)

// Bridge operation constants.
const (
	// streamRequest asks the MCU to start streaming readings.
	streamRequest byte = 's'

	defaultPollInterval = 100 * time.Millisecond
)

// Publisher is the bus surface the bridge needs.
// *mqtt.Client satisfies it.
type Publisher interface {
	Publish(topic string, payload []byte, qos byte, retained bool) error
}

// Channel is the serial surface the bridge needs.
// *serial.Channel satisfies it.
type Channel interface {
	ReadLine() (string, bool, error)
	WriteByte(b byte) error
	IsOpen() bool
	Close() error
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
	// Channel is the open serial link to the sensor MCU.
	Channel Channel

	// Publisher is the bus session.
	Publisher Publisher

	// Topics selects the topic namespace.
	Topics mqtt.Topics

	// QoS is used for readings, MCU messages and presence.
	QoS byte

	// PollInterval is slept when a read returns no line. Default: 100ms.
	PollInterval time.Duration

	// Grace is slept after the final status publish in Stop.
	Grace time.Duration

	// Logger is optional.
	Logger Logger
}

// Bridge drains the sensor MCU's serial line and republishes each line
// on the bus.
//
// Thread Safety: Start and Stop may be called from different goroutines.
// The poll goroutine is the only reader of the channel.
type Bridge struct {
	channel      Channel
	publisher    Publisher
	topics       mqtt.Topics
	qos          byte
	pollInterval time.Duration
	grace        time.Duration
	logger       Logger

	// channelDown is owned by the poll goroutine.
	channelDown bool

	started  bool
	startMu  sync.Mutex
	done     chan struct{}
	wg       sync.WaitGroup
	stopOnce sync.Once
}

// Will returns the last will registered with the bus session.
func Will(topics mqtt.Topics, qos byte) *mqtt.Message {
	return &mqtt.Message{
		Topic:    topics.SensorStatus(),
		Payload:  []byte(StatusUnexpectedLoss),
		QoS:      qos,
		Retained: true,
	}
}

// AnnounceBus publishes the retained bus presence status. It is wired to
// the MQTT connect callback and runs on every (re)connect.
func AnnounceBus(pub Publisher, topics mqtt.Topics, qos byte) error {
	return pub.Publish(topics.SensorStatus(), []byte(StatusBusConnected), qos, true)
}

// AnnounceDisconnected publishes the retained final status. Stop calls it;
// startup failure paths that never build a Bridge call it directly.
func AnnounceDisconnected(pub Publisher, topics mqtt.Topics, qos byte) error {
	return pub.Publish(topics.SensorStatus(), []byte(StatusDisconnected), qos, true)
}

// NewBridge creates a sensor bridge. Call Start to begin polling.
func NewBridge(opts Options) (*Bridge, error) {
	if opts.Channel == nil {
		return nil, ErrChannelRequired
	}
	if opts.Publisher == nil {
		return nil, ErrBusRequired
	}
	if opts.QoS > 2 {
		return nil, fmt.Errorf("%w: %d", ErrInvalidQoS, opts.QoS)
	}

	pollInterval := opts.PollInterval
	if pollInterval <= 0 {
		pollInterval = defaultPollInterval
	}

	return &Bridge{
		channel:      opts.Channel,
		publisher:    opts.Publisher,
		topics:       opts.Topics,
		qos:          opts.QoS,
		pollInterval: pollInterval,
		grace:        opts.Grace,
		logger:       opts.Logger,
		done:         make(chan struct{}),
	}, nil
}

// Start announces the MCU link, requests the reading stream and launches
// the poll goroutine. The goroutine exits when ctx is cancelled or Stop
// is called.
func (b *Bridge) Start(ctx context.Context) error {
	b.startMu.Lock()
	defer b.startMu.Unlock()

	if b.started {
		return ErrAlreadyStarted
	}

	b.publishStatus(StatusMCUConnected)

	if err := b.channel.WriteByte(streamRequest); err != nil {
		return fmt.Errorf("requesting sensor stream: %w", err)
	}
	b.logInfo("requested sensor stream", "command", string(streamRequest))

	b.started = true
	b.wg.Add(1)
	go b.poll(ctx)

	return nil
}

// Stop ends polling, releases the serial channel and publishes the final
// retained status exactly once. It then waits for the grace period so the
// status leaves the client before the caller closes the bus session.
func (b *Bridge) Stop() {
	b.stopOnce.Do(func() {
		close(b.done)
		b.wg.Wait()

		if err := b.channel.Close(); err != nil {
			b.logError("closing serial channel", err)
		} else {
			b.logInfo("serial channel closed")
		}

		if err := AnnounceDisconnected(b.publisher, b.topics, b.qos); err != nil {
			b.logError("publishing status", err, "status", StatusDisconnected)
		} else {
			b.logInfo("published status", "status", StatusDisconnected)
		}

		if b.grace > 0 {
			time.Sleep(b.grace)
		}

		b.logInfo("sensor bridge stopped")
	})
}

// poll is the single reader of the serial channel.
func (b *Bridge) poll(ctx context.Context) {
	defer b.wg.Done()

	for {
		select {
		case <-ctx.Done():
			return
		case <-b.done:
			return
		default:
		}

		line, ok, err := b.channel.ReadLine()
		switch {
		case errors.Is(err, serial.ErrLineTooLong):
			b.logWarn("discarding oversized sensor line", "error", err)
			continue
		case err != nil:
			b.markChannelDown(err)
		case ok:
			b.markChannelUp()
			b.handleLine(line)
			continue
		}

		if !b.wait(ctx) {
			return
		}
	}
}

// wait sleeps for the poll interval. It returns false if the bridge is
// stopping.
func (b *Bridge) wait(ctx context.Context) bool {
	timer := time.NewTimer(b.pollInterval)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return false
	case <-b.done:
		return false
	case <-timer.C:
		return true
	}
}

// markChannelDown logs a channel outage once per transition.
func (b *Bridge) markChannelDown(err error) {
	if b.channelDown {
		return
	}
	b.channelDown = true
	b.logError("sensor serial channel unavailable", err)
}

func (b *Bridge) markChannelUp() {
	if !b.channelDown {
		return
	}
	b.channelDown = false
	b.logInfo("sensor serial channel recovered")
}

// handleLine classifies one MCU line and publishes it.
func (b *Bridge) handleLine(raw string) {
	line, err := ParseLine(raw)
	if err != nil {
		if errors.Is(err, ErrMalformedReading) {
			b.logWarn("dropping malformed sensor line", "line", line.Text, "error", err)
			return
		}
		b.logError("parsing sensor line", err)
		return
	}

	switch line.Kind {
	case LineEmpty:
		return
	case LineReading:
		if err := b.publisher.Publish(b.topics.SensorData(), line.Payload(), b.qos, false); err != nil {
			b.logError("publishing reading", err)
			return
		}
		b.logDebug("published reading", "value", line.Reading)
	case LineMessage:
		if err := b.publisher.Publish(b.topics.SensorStatus(), line.Payload(), b.qos, false); err != nil {
			b.logError("publishing MCU message", err)
			return
		}
		b.logInfo("MCU message", "line", line.Text)
	}
}

// publishStatus publishes a retained presence message.
func (b *Bridge) publishStatus(status string) {
	if err := b.publisher.Publish(b.topics.SensorStatus(), []byte(status), b.qos, true); err != nil {
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
	if b.logger != nil {
		b.logger.Error(msg, append([]any{"error", err}, keysAndValues...)...)
	}
}
