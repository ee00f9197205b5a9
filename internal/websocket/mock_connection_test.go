package websocket

import (
	"errors"
	"sync"
	"time"
)

var errConnClosed = errors.New("connection closed")

// mockMessage is one frame seen by or fed to a MockConnection
type mockMessage struct {
	Type int
	Data []byte
	Err  error
}

// MockConnection is an in-memory Connection. Reads block on the inbound
// channel until a frame is queued or the connection is closed.
type MockConnection struct {
	mu       sync.Mutex
	written  []mockMessage
	inbound  chan mockMessage
	closed   chan struct{}
	once     sync.Once
	readLim  int64
	onPong   func(string) error
	deadline time.Time
}

func NewMockConnection() *MockConnection {
	return &MockConnection{
		inbound: make(chan mockMessage, 16),
		closed:  make(chan struct{}),
	}
}

// Feed queues a frame for ReadMessage
func (m *MockConnection) Feed(msg mockMessage) { m.inbound <- msg }

// Written returns a copy of the frames written so far
func (m *MockConnection) Written() []mockMessage {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]mockMessage(nil), m.written...)
}

// IsClosed reports whether Close was called
func (m *MockConnection) IsClosed() bool {
	select {
	case <-m.closed:
		return true
	default:
		return false
	}
}

func (m *MockConnection) WriteMessage(messageType int, data []byte) error {
	if m.IsClosed() {
		return errConnClosed
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.written = append(m.written, mockMessage{Type: messageType, Data: data})
	return nil
}

func (m *MockConnection) ReadMessage() (int, []byte, error) {
	select {
	case msg := <-m.inbound:
		return msg.Type, msg.Data, msg.Err
	case <-m.closed:
		return 0, nil, errConnClosed
	}
}

func (m *MockConnection) Close() error {
	m.once.Do(func() { close(m.closed) })
	return nil
}

func (m *MockConnection) SetReadDeadline(t time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.deadline = t
	return nil
}

func (m *MockConnection) SetWriteDeadline(time.Time) error { return nil }

func (m *MockConnection) SetReadLimit(limit int64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.readLim = limit
}

func (m *MockConnection) SetPongHandler(h func(string) error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.onPong = h
}

func (m *MockConnection) RemoteAddr() string { return "127.0.0.1:54321" }
