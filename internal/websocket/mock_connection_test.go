package websocket

import (
	"errors"
	"sync"
	"time"
)

// mockConnection records written frames and replays queued reads.
type mockConnection struct {
	mu sync.Mutex

	written []mockMessage
	reads   chan mockMessage
	closed  bool

	readLimit   int64
	pongHandler func(string) error
}

type mockMessage struct {
	Type int
	Data []byte
	Err  error
}

func newMockConnection() *mockConnection {
	return &mockConnection{reads: make(chan mockMessage, 16)}
}

func (m *mockConnection) WriteMessage(messageType int, data []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return errors.New("connection closed")
	}
	m.written = append(m.written, mockMessage{Type: messageType, Data: append([]byte(nil), data...)})
	return nil
}

// ReadMessage blocks until a read is queued or the connection closes.
func (m *mockConnection) ReadMessage() (int, []byte, error) {
	msg, ok := <-m.reads
	if !ok {
		return 0, nil, errors.New("connection closed")
	}
	return msg.Type, msg.Data, msg.Err
}

func (m *mockConnection) queueRead(messageType int, data []byte) {
	m.reads <- mockMessage{Type: messageType, Data: data}
}

func (m *mockConnection) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.closed {
		m.closed = true
		close(m.reads)
	}
	return nil
}

func (m *mockConnection) SetReadDeadline(time.Time) error  { return nil }
func (m *mockConnection) SetWriteDeadline(time.Time) error { return nil }

func (m *mockConnection) SetReadLimit(limit int64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.readLimit = limit
}

func (m *mockConnection) SetPongHandler(h func(string) error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.pongHandler = h
}

func (m *mockConnection) RemoteAddr() string { return "127.0.0.1:54321" }

func (m *mockConnection) messages() []mockMessage {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]mockMessage(nil), m.written...)
}

func (m *mockConnection) isClosed() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.closed
}
