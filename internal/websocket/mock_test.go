package websocket

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"sync"
	"time"

	"notify-service/internal/auth"

	"github.com/gorilla/websocket"
)

var errMockSend = errors.New("broken pipe")

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestRegistry(opts ...RegistryOption) *Registry {
	return NewRegistry(append([]RegistryOption{WithLogger(discardLogger())}, opts...)...)
}

// mockChannel is an in-memory Channel that can be told to fail its sends.
type mockChannel struct {
	id     string
	userID uint

	mu         sync.Mutex
	messages   []*Message
	failSend   bool
	closeCount int
	closeCode  int
}

func newMockChannel(id string, userID uint) *mockChannel {
	return &mockChannel{id: id, userID: userID}
}

func (m *mockChannel) ID() string   { return m.id }
func (m *mockChannel) UserID() uint { return m.userID }

func (m *mockChannel) Send(msg *Message) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failSend || m.closeCount > 0 {
		return errMockSend
	}
	m.messages = append(m.messages, msg)
	return nil
}

func (m *mockChannel) Close(code int, _ string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closeCount++
	if m.closeCount == 1 {
		m.closeCode = code
	}
	return nil
}

func (m *mockChannel) setFail(fail bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.failSend = fail
}

func (m *mockChannel) received() []*Message {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]*Message, len(m.messages))
	copy(out, m.messages)
	return out
}

func (m *mockChannel) closes() (int, int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.closeCount, m.closeCode
}

// mockConn implements Conn. Inbound frames are fed through push; ReadMessage blocks
// until a frame arrives or the conn is closed.
type mockConn struct {
	inbound chan mockFrame
	once    sync.Once
	closed  chan struct{}

	mu        sync.Mutex
	written   []mockFrame
	writeErr  error
	readLimit int64
}

type mockFrame struct {
	messageType int
	data        []byte
}

func newMockConn() *mockConn {
	return &mockConn{
		inbound: make(chan mockFrame, 16),
		closed:  make(chan struct{}),
	}
}

func (m *mockConn) push(messageType int, data string) {
	m.inbound <- mockFrame{messageType: messageType, data: []byte(data)}
}

func (m *mockConn) SetReadLimit(limit int64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.readLimit = limit
}

func (m *mockConn) SetReadDeadline(time.Time) error           { return nil }
func (m *mockConn) SetWriteDeadline(time.Time) error          { return nil }
func (m *mockConn) SetPongHandler(func(appData string) error) {}

func (m *mockConn) ReadMessage() (int, []byte, error) {
	select {
	case f := <-m.inbound:
		return f.messageType, f.data, nil
	case <-m.closed:
		return 0, nil, &websocket.CloseError{Code: websocket.CloseNormalClosure}
	}
}

func (m *mockConn) WriteMessage(messageType int, data []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.writeErr != nil {
		return m.writeErr
	}
	select {
	case <-m.closed:
		return websocket.ErrCloseSent
	default:
	}
	m.written = append(m.written, mockFrame{messageType: messageType, data: data})
	return nil
}

func (m *mockConn) Close() error {
	m.once.Do(func() { close(m.closed) })
	return nil
}

func (m *mockConn) setWriteErr(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.writeErr = err
}

func (m *mockConn) isClosed() bool {
	select {
	case <-m.closed:
		return true
	default:
		return false
	}
}

// textMessages decodes every text frame written so far.
func (m *mockConn) textMessages() []wireMessage {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []wireMessage
	for _, f := range m.written {
		if f.messageType != websocket.TextMessage {
			continue
		}
		var msg wireMessage
		if err := json.Unmarshal(f.data, &msg); err == nil {
			out = append(out, msg)
		}
	}
	return out
}

func (m *mockConn) frames(messageType int) []mockFrame {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []mockFrame
	for _, f := range m.written {
		if f.messageType == messageType {
			out = append(out, f)
		}
	}
	return out
}

// wireMessage is the decoded form of an envelope as a client sees it.
type wireMessage struct {
	Type      MessageType     `json:"type"`
	Data      json.RawMessage `json:"data"`
	Timestamp string          `json:"timestamp"`
}

func (w wireMessage) dataMap() map[string]any {
	out := map[string]any{}
	_ = json.Unmarshal(w.Data, &out)
	return out
}

// fakeAuthenticator maps literal tokens to identities.
type fakeAuthenticator struct {
	identities map[string]*auth.Identity
}

func (f *fakeAuthenticator) Authenticate(_ context.Context, token string) (*auth.Identity, error) {
	if token == "" {
		return nil, auth.ErrMissingToken
	}
	identity, ok := f.identities[token]
	if !ok {
		return nil, auth.ErrInvalidToken
	}
	return identity, nil
}

// recordingPresence captures presence transitions in order.
type recordingPresence struct {
	mu      sync.Mutex
	updates []presenceUpdate
}

func (p *recordingPresence) SetUserOnline(_ context.Context, userID uint) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.updates = append(p.updates, presenceUpdate{userID: userID, online: true})
	return nil
}

func (p *recordingPresence) SetUserOffline(_ context.Context, userID uint) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.updates = append(p.updates, presenceUpdate{userID: userID, online: false})
	return nil
}

func (p *recordingPresence) snapshot() []presenceUpdate {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]presenceUpdate, len(p.updates))
	copy(out, p.updates)
	return out
}
