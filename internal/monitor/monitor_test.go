package monitor

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/nerrad567/lightlink/internal/infrastructure/mqtt"
)

var testTopics = mqtt.NewTopics("test/lightlink")

// MockBus implements Subscriber for testing.
type MockBus struct {
	mu       sync.Mutex
	handlers map[string]mqtt.MessageHandler
	qos      map[string]byte
	unsubs   []string
	err      error
}

func NewMockBus() *MockBus {
	return &MockBus{
		handlers: make(map[string]mqtt.MessageHandler),
		qos:      make(map[string]byte),
	}
}

func (m *MockBus) Subscribe(topic string, qos byte, handler mqtt.MessageHandler) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	m.handlers[topic] = handler
	m.qos[topic] = qos
	return nil
}

func (m *MockBus) Unsubscribe(topic string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	delete(m.handlers, topic)
	m.unsubs = append(m.unsubs, topic)
	return nil
}

func (m *MockBus) SimulateMessage(filter, topic string, payload []byte) error {
	m.mu.Lock()
	handler, ok := m.handlers[filter]
	m.mu.Unlock()
	if !ok {
		return errors.New("no handler for " + filter)
	}
	return handler(topic, payload)
}

type storedMessage struct {
	topic   string
	payload string
}

type mockStore struct {
	mu       sync.Mutex
	messages []storedMessage
	err      error
}

func (s *mockStore) RecordMessage(_ context.Context, topic string, payload []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return s.err
	}
	s.messages = append(s.messages, storedMessage{topic: topic, payload: string(payload)})
	return nil
}

type mockTelemetry struct {
	mu       sync.Mutex
	readings []int
	states   []string
}

func (m *mockTelemetry) WriteReading(_ string, value int, _ time.Time) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.readings = append(m.readings, value)
}

func (m *mockTelemetry) WriteLEDState(_ string, state string, _ time.Time) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.states = append(m.states, state)
}

type logEntry struct {
	level string
	msg   string
	kv    []any
}

type mockLogger struct {
	mu      sync.Mutex
	entries []logEntry
}

func (l *mockLogger) record(level, msg string, kv []any) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.entries = append(l.entries, logEntry{level: level, msg: msg, kv: kv})
}

func (l *mockLogger) Debug(msg string, kv ...any) { l.record("debug", msg, kv) }
func (l *mockLogger) Info(msg string, kv ...any)  { l.record("info", msg, kv) }
func (l *mockLogger) Warn(msg string, kv ...any)  { l.record("warn", msg, kv) }
func (l *mockLogger) Error(msg string, kv ...any) { l.record("error", msg, kv) }

func (l *mockLogger) find(msg string) []logEntry {
	l.mu.Lock()
	defer l.mu.Unlock()
	var out []logEntry
	for _, e := range l.entries {
		if e.msg == msg {
			out = append(out, e)
		}
	}
	return out
}

func kvValue(kv []any, key string) any {
	for i := 0; i+1 < len(kv); i += 2 {
		if kv[i] == key {
			return kv[i+1]
		}
	}
	return nil
}

func TestNew_RequiresBus(t *testing.T) {
	if _, err := New(Options{}); !errors.Is(err, ErrBusRequired) {
		t.Errorf("New() error = %v, want ErrBusRequired", err)
	}
}

func TestStart_SubscribesToAll(t *testing.T) {
	bus := NewMockBus()
	m, err := New(Options{Bus: bus, Topics: testTopics, QoS: 1})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	if err := m.Start(context.Background()); err != nil {
		t.Fatalf("Start() error = %v", err)
	}

	if _, ok := bus.handlers["test/lightlink/#"]; !ok {
		t.Errorf("no subscription on %q", "test/lightlink/#")
	}
	if bus.qos["test/lightlink/#"] != 1 {
		t.Errorf("subscription QoS = %d, want 1", bus.qos["test/lightlink/#"])
	}

	if err := m.Start(context.Background()); !errors.Is(err, ErrAlreadyStarted) {
		t.Errorf("second Start() error = %v, want ErrAlreadyStarted", err)
	}
}

func TestNew_InvalidQoS(t *testing.T) {
	if _, err := New(Options{Bus: NewMockBus(), QoS: 3}); !errors.Is(err, ErrInvalidQoS) {
		t.Errorf("New() with qos 3 error = %v, want ErrInvalidQoS", err)
	}
}

func TestStart_UsesConfiguredQoS(t *testing.T) {
	bus := NewMockBus()
	m, _ := New(Options{Bus: bus, Topics: testTopics, QoS: 0})

	if err := m.Start(context.Background()); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	if got := bus.qos[testTopics.All()]; got != 0 {
		t.Errorf("subscription QoS = %d, want 0", got)
	}
}

func TestStop_Unsubscribes(t *testing.T) {
	bus := NewMockBus()
	m, _ := New(Options{Bus: bus, Topics: testTopics, QoS: 1})

	if err := m.Stop(); err != nil {
		t.Fatalf("Stop() before Start error = %v", err)
	}
	if len(bus.unsubs) != 0 {
		t.Fatalf("unsubscribed %v before Start", bus.unsubs)
	}

	if err := m.Start(context.Background()); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	for i := 0; i < 2; i++ {
		if err := m.Stop(); err != nil {
			t.Fatalf("Stop() #%d error = %v", i+1, err)
		}
	}

	if len(bus.unsubs) != 1 || bus.unsubs[0] != testTopics.All() {
		t.Errorf("unsubscribed = %v, want [%s]", bus.unsubs, testTopics.All())
	}
	if err := bus.SimulateMessage(testTopics.All(), testTopics.SensorData(), []byte("1")); err == nil {
		t.Error("handler still registered after Stop")
	}
}

func TestStart_SubscribeFailure(t *testing.T) {
	bus := NewMockBus()
	bus.err = mqtt.ErrNotConnected
	m, _ := New(Options{Bus: bus, Topics: testTopics})

	err := m.Start(context.Background())
	if !errors.Is(err, mqtt.ErrNotConnected) {
		t.Errorf("Start() error = %v, want ErrNotConnected", err)
	}
}

func TestHandleMessage_Logs(t *testing.T) {
	bus := NewMockBus()
	logger := &mockLogger{}
	m, _ := New(Options{Bus: bus, Topics: testTopics, Logger: logger})
	fixed := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	m.now = func() time.Time { return fixed }

	if err := m.Start(context.Background()); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	if err := bus.SimulateMessage(testTopics.All(), testTopics.SensorData(), []byte("42")); err != nil {
		t.Fatalf("SimulateMessage() error = %v", err)
	}

	entries := logger.find("bus message")
	if len(entries) != 1 {
		t.Fatalf("logged %d bus messages, want 1", len(entries))
	}
	kv := entries[0].kv
	if kvValue(kv, "topic") != testTopics.SensorData() {
		t.Errorf("topic = %v", kvValue(kv, "topic"))
	}
	if kvValue(kv, "payload") != "42" {
		t.Errorf("payload = %v", kvValue(kv, "payload"))
	}
	if kvValue(kv, "received_at") != "2026-03-01T12:00:00Z" {
		t.Errorf("received_at = %v", kvValue(kv, "received_at"))
	}
	if m.Received() != 1 {
		t.Errorf("Received() = %d, want 1", m.Received())
	}
}

func TestHandleMessage_Telemetry(t *testing.T) {
	tel := &mockTelemetry{}
	m, _ := New(Options{Bus: NewMockBus(), Topics: testTopics, Telemetry: tel})

	messages := []struct {
		topic   string
		payload string
	}{
		{testTopics.SensorData(), "42"},
		{testTopics.SensorData(), "abc"},
		{testTopics.SensorStatus(), "MCU_MSG: hello"},
		{testTopics.SensorStatus(), "Publisher connected"},
		{testTopics.ActuatorStatus(), "Subscriber connected"},
		{testTopics.ActuatorStatus(), "LED is now OFF"},
		{testTopics.SensorData(), "17"},
		{testTopics.ActuatorStatus(), "LED is now ON"},
	}
	for _, msg := range messages {
		if err := m.HandleMessage(msg.topic, []byte(msg.payload)); err != nil {
			t.Fatalf("HandleMessage(%q) error = %v", msg.topic, err)
		}
	}

	if len(tel.readings) != 2 || tel.readings[0] != 42 || tel.readings[1] != 17 {
		t.Errorf("readings = %v, want [42 17]", tel.readings)
	}
	if len(tel.states) != 2 || tel.states[0] != "OFF" || tel.states[1] != "ON" {
		t.Errorf("states = %v, want [OFF ON]", tel.states)
	}
	if m.Received() != uint64(len(messages)) {
		t.Errorf("Received() = %d, want %d", m.Received(), len(messages))
	}
}

func TestHandleMessage_Store(t *testing.T) {
	store := &mockStore{}
	m, _ := New(Options{Bus: NewMockBus(), Topics: testTopics, Store: store})

	m.HandleMessage(testTopics.SensorStatus(), []byte("Publisher connected")) //nolint:errcheck // never fails
	m.HandleMessage(testTopics.SensorData(), []byte("42"))                    //nolint:errcheck // never fails

	if len(store.messages) != 2 {
		t.Fatalf("stored %d messages, want 2", len(store.messages))
	}
	if store.messages[1].topic != testTopics.SensorData() || store.messages[1].payload != "42" {
		t.Errorf("stored[1] = %+v", store.messages[1])
	}
}

func TestHandleMessage_StoreFailureLogged(t *testing.T) {
	store := &mockStore{err: errors.New("database is locked")}
	logger := &mockLogger{}
	m, _ := New(Options{Bus: NewMockBus(), Topics: testTopics, Store: store, Logger: logger})

	if err := m.HandleMessage(testTopics.SensorData(), []byte("42")); err != nil {
		t.Errorf("HandleMessage() error = %v, want nil", err)
	}
	if len(logger.find("recording message")) != 1 {
		t.Error("expected a store warning")
	}
}
