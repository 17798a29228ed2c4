package mqtt

import (
	"context"
	"fmt"
	"sync"

	pahomqtt "github.com/eclipse/paho.mqtt.golang"

	"github.com/nerrad567/lightlink/internal/infrastructure/config"
)

// Client is one LightLink bus session: a paho client plus the presence
// callbacks and the subscriptions to restore after a reconnect.
//
// Callbacks and logger are fixed at Connect. All methods are safe for
// concurrent use.
type Client struct {
	client   pahomqtt.Client
	options  *pahomqtt.ClientOptions
	clientID string

	// subscriptions are replayed by handleConnect after a reconnect.
	subscriptions map[string]subscription
	subMu         sync.RWMutex

	connected bool
	connMu    sync.RWMutex

	onConnect    func(*Client)
	onDisconnect func(err error)
	logger       Logger
}

// Logger interface for optional logging support.
// Compatible with logging.Logger and slog.Logger.
type Logger interface {
	Error(msg string, args ...any)
	Warn(msg string, args ...any)
}

// subscription holds subscription details for re-subscription on reconnect.
type subscription struct {
	topic   string
	qos     byte
	handler MessageHandler
}

// MessageHandler receives one bus message. Handlers run on paho's router
// goroutine and must not block; see Subscribe. A returned error is logged
// and does not affect the acknowledgement.
type MessageHandler func(topic string, payload []byte) error

// Message is a single publication, used for the last will.
type Message struct {
	Topic    string
	Payload  []byte
	QoS      byte
	Retained bool
}

// ConnectOptions carries the per-process session settings that do not
// belong in the shared configuration file.
type ConnectOptions struct {
	// ClientID overrides the generated client identifier. When empty a
	// random identifier is derived from cfg.Broker.ClientIDPrefix.
	ClientID string

	// Will is registered with the broker and delivered if the session
	// ends without a clean disconnect. Optional.
	Will *Message

	// OnConnect runs on the initial connect and on every reconnect. It
	// receives the client so presence can be published from the callback.
	OnConnect func(*Client)

	// OnDisconnect runs when the connection is lost.
	OnDisconnect func(err error)

	// Logger receives handler errors and recovered panics. Optional.
	Logger Logger
}

// Connect establishes a connection to the MQTT broker.
//
// It performs the following setup:
//  1. Builds connection options from config (broker URL, auth, TLS)
//  2. Registers the last will, if one is given
//  3. Sets up auto-reconnect with exponential backoff
//  4. Installs callbacks before connecting so the first connect is observed
//  5. Attempts initial connection with timeout
//
// Parameters:
//   - cfg: MQTT configuration
//   - opts: Session options (client ID, will, callbacks)
//
// Returns:
//   - *Client: Connected client ready for use
//   - error: If initial connection fails within timeout
func Connect(cfg config.MQTTConfig, opts ConnectOptions) (*Client, error) {
	clientID := opts.ClientID
	if clientID == "" {
		clientID = ClientID(cfg.Broker.ClientIDPrefix)
	}

	pahoOpts := buildClientOptions(cfg, clientID)
	if opts.Will != nil {
		if err := configureLWT(pahoOpts, opts.Will); err != nil {
			return nil, err
		}
	}

	c := &Client{
		clientID:      clientID,
		options:       pahoOpts,
		subscriptions: make(map[string]subscription),
		onConnect:     opts.OnConnect,
		onDisconnect:  opts.OnDisconnect,
		logger:        opts.Logger,
	}

	pahoOpts.SetOnConnectHandler(func(_ pahomqtt.Client) {
		c.handleConnect()
	})

	pahoOpts.SetConnectionLostHandler(func(_ pahomqtt.Client, err error) {
		c.handleDisconnect(err)
	})

	pahoOpts.SetReconnectingHandler(func(_ pahomqtt.Client, _ *pahomqtt.ClientOptions) {
		if c.logger != nil {
			c.logger.Warn("reconnecting to MQTT broker", "client_id", c.clientID)
		}
	})

	c.client = pahomqtt.NewClient(pahoOpts)
	if err := waitTokenFor(c.client.Connect(), defaultConnectTimeout, ErrConnectionFailed); err != nil {
		return nil, err
	}

	// The OnConnectHandler runs asynchronously and may not have executed
	// yet, so the state is set here as well.
	c.connMu.Lock()
	c.connected = true
	c.connMu.Unlock()

	return c, nil
}

// handleConnect is called when the connection is established.
func (c *Client) handleConnect() {
	c.connMu.Lock()
	c.connected = true
	c.connMu.Unlock()

	c.restoreSubscriptions()

	if c.onConnect != nil {
		c.onConnect(c)
	}
}

// handleDisconnect is called when the connection is lost.
func (c *Client) handleDisconnect(err error) {
	c.connMu.Lock()
	c.connected = false
	c.connMu.Unlock()

	if c.onDisconnect != nil {
		c.onDisconnect(err)
	}
}

// restoreSubscriptions re-subscribes to all tracked topics after reconnect.
func (c *Client) restoreSubscriptions() {
	c.subMu.RLock()
	defer c.subMu.RUnlock()

	for _, sub := range c.subscriptions {
		// Errors surface on the next connection loss; nothing to retry here.
		c.client.Subscribe(sub.topic, sub.qos, c.wrapHandler(sub.handler))
	}
}

// Close disconnects from the MQTT broker.
//
// A clean disconnect suppresses the last will, so callers publish their
// own final status before calling Close.
//
// Returns:
//   - error: Always nil; a connection that is already closed is not an error
func (c *Client) Close() error {
	if c.client == nil {
		return nil
	}

	// Quiesce period lets in-flight publishes drain.
	c.client.Disconnect(defaultDisconnectQuiesce)

	c.connMu.Lock()
	c.connected = false
	c.connMu.Unlock()

	return nil
}

// HealthCheck verifies the MQTT connection is alive.
//
// Returns:
//   - error: nil if healthy, error describing the issue otherwise
func (c *Client) HealthCheck(ctx context.Context) error {
	select {
	case <-ctx.Done():
		return fmt.Errorf("mqtt health check: %w", ctx.Err())
	default:
	}

	if !c.IsConnected() {
		return ErrNotConnected
	}

	return nil
}

// IsConnected returns the current connection state.
func (c *Client) IsConnected() bool {
	if c.client == nil {
		return false
	}
	c.connMu.RLock()
	defer c.connMu.RUnlock()
	return c.connected && c.client.IsConnected()
}

// ClientID returns the identifier this session presented to the broker.
func (c *Client) ClientID() string {
	return c.clientID
}

// wrapHandler wraps a MessageHandler with panic recovery and optional logging.
func (c *Client) wrapHandler(handler MessageHandler) pahomqtt.MessageHandler {
	return func(_ pahomqtt.Client, msg pahomqtt.Message) {
		defer func() {
			if r := recover(); r != nil {
				if c.logger != nil {
					c.logger.Error("MQTT handler panic recovered",
						"topic", msg.Topic(),
						"panic", r,
					)
				}
			}
		}()

		if err := handler(msg.Topic(), msg.Payload()); err != nil {
			if c.logger != nil {
				c.logger.Warn("MQTT handler returned error",
					"topic", msg.Topic(),
					"error", err,
				)
			}
		}
	}
}
