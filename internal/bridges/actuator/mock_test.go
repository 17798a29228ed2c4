package actuator

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/nerrad567/lightlink/internal/history"
	"github.com/nerrad567/lightlink/internal/infrastructure/mqtt"
)

// MockBus implements Bus for testing.
type MockBus struct {
	mu           sync.Mutex
	published    []mockPublish
	handlers     map[string]mqtt.MessageHandler
	unsubscribed []string
	publishErr   error
	subscribeErr error
}

type mockPublish struct {
	Topic    string
	Payload  []byte
	QoS      byte
	Retained bool
}

func NewMockBus() *MockBus {
	return &MockBus{handlers: make(map[string]mqtt.MessageHandler)}
}

func (m *MockBus) Publish(topic string, payload []byte, qos byte, retained bool) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.publishErr != nil {
		return m.publishErr
	}
	m.published = append(m.published, mockPublish{
		Topic:    topic,
		Payload:  payload,
		QoS:      qos,
		Retained: retained,
	})
	return nil
}

func (m *MockBus) Subscribe(topic string, _ byte, handler mqtt.MessageHandler) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.subscribeErr != nil {
		return m.subscribeErr
	}
	m.handlers[topic] = handler
	return nil
}

func (m *MockBus) Unsubscribe(topic string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.handlers, topic)
	m.unsubscribed = append(m.unsubscribed, topic)
	return nil
}

func (m *MockBus) getUnsubscribed() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]string, len(m.unsubscribed))
	copy(out, m.unsubscribed)
	return out
}

// SimulateMessage delivers a message to the handler subscribed to topic.
func (m *MockBus) SimulateMessage(topic string, payload []byte) error {
	m.mu.Lock()
	handler, ok := m.handlers[topic]
	m.mu.Unlock()
	if !ok {
		return errors.New("no handler for topic " + topic)
	}
	return handler(topic, payload)
}

func (m *MockBus) GetPublished() []mockPublish {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]mockPublish, len(m.published))
	copy(out, m.published)
	return out
}

// onTopic returns the payloads published to topic, in order.
func (m *MockBus) onTopic(topic string) []string {
	var payloads []string
	for _, p := range m.GetPublished() {
		if p.Topic == topic {
			payloads = append(payloads, string(p.Payload))
		}
	}
	return payloads
}

// MockChannel implements Channel. Every ReadLine returns the next queued
// acknowledgement, or a timeout once the queue is empty.
type MockChannel struct {
	mu       sync.Mutex
	acks     []string
	readErr  error
	written  []byte
	writeErr error
	closed   bool
	closes   int
}

func (m *MockChannel) queueAcks(acks ...string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.acks = append(m.acks, acks...)
}

func (m *MockChannel) ReadLine() (string, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.readErr != nil {
		return "", false, m.readErr
	}
	if len(m.acks) == 0 {
		return "", false, nil
	}
	ack := m.acks[0]
	m.acks = m.acks[1:]
	return ack, true, nil
}

func (m *MockChannel) WriteByte(b byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.writeErr != nil {
		return m.writeErr
	}
	m.written = append(m.written, b)
	return nil
}

func (m *MockChannel) IsOpen() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return !m.closed
}

func (m *MockChannel) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = true
	m.closes++
	return nil
}

func (m *MockChannel) getWritten() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return string(m.written)
}

// mockHistory implements History.
type mockHistory struct {
	mu       sync.Mutex
	commands []history.Command
	err      error
}

func (h *mockHistory) RecordCommand(_ context.Context, cmd history.Command) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.err != nil {
		return h.err
	}
	h.commands = append(h.commands, cmd)
	return nil
}

func (h *mockHistory) getCommands() []history.Command {
	h.mu.Lock()
	defer h.mu.Unlock()
	out := make([]history.Command, len(h.commands))
	copy(out, h.commands)
	return out
}

// mockLogger records messages by level.
type mockLogger struct {
	mu      sync.Mutex
	entries []logEntry
}

type logEntry struct {
	level string
	msg   string
}

func (l *mockLogger) record(level, msg string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.entries = append(l.entries, logEntry{level: level, msg: msg})
}

func (l *mockLogger) Debug(msg string, _ ...any) { l.record("debug", msg) }
func (l *mockLogger) Info(msg string, _ ...any)  { l.record("info", msg) }
func (l *mockLogger) Warn(msg string, _ ...any)  { l.record("warn", msg) }
func (l *mockLogger) Error(msg string, _ ...any) { l.record("error", msg) }

func (l *mockLogger) count(level, msg string) int {
	l.mu.Lock()
	defer l.mu.Unlock()
	n := 0
	for _, e := range l.entries {
		if e.level == level && e.msg == msg {
			n++
		}
	}
	return n
}

// waitFor polls cond until it holds or the deadline passes.
func waitFor(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("timed out waiting for %s", what)
}
