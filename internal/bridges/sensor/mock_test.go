package sensor

import (
	"sync"
	"testing"
	"time"
)

// MockPublisher implements Publisher for testing.
type MockPublisher struct {
	mu        sync.Mutex
	published []mockPublish
	err       error
}

type mockPublish struct {
	Topic    string
	Payload  []byte
	QoS      byte
	Retained bool
}

func (m *MockPublisher) Publish(topic string, payload []byte, qos byte, retained bool) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	m.published = append(m.published, mockPublish{
		Topic:    topic,
		Payload:  payload,
		QoS:      qos,
		Retained: retained,
	})
	return nil
}

func (m *MockPublisher) GetPublished() []mockPublish {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]mockPublish, len(m.published))
	copy(out, m.published)
	return out
}

// onTopic returns the payloads published to topic, in order.
func (m *MockPublisher) onTopic(topic string) []string {
	var payloads []string
	for _, p := range m.GetPublished() {
		if p.Topic == topic {
			payloads = append(payloads, string(p.Payload))
		}
	}
	return payloads
}

// MockChannel implements Channel with scripted reads. An exhausted script
// behaves like a read timeout.
type MockChannel struct {
	mu       sync.Mutex
	reads    []scriptedRead
	written  []byte
	writeErr error
	closed   bool
	closes   int
}

type scriptedRead struct {
	line string
	err  error
}

func (m *MockChannel) queueLines(lines ...string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, l := range lines {
		m.reads = append(m.reads, scriptedRead{line: l})
	}
}

func (m *MockChannel) queueError(err error, times int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := 0; i < times; i++ {
		m.reads = append(m.reads, scriptedRead{err: err})
	}
}

func (m *MockChannel) ReadLine() (string, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.reads) == 0 {
		return "", false, nil
	}
	r := m.reads[0]
	m.reads = m.reads[1:]
	if r.err != nil {
		return "", false, r.err
	}
	return r.line, true, nil
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

func (m *MockChannel) pending() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.reads)
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
