package websocket

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"notify-service/internal/auth"
	"notify-service/pkg/response"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestServer(t *testing.T) (*Registry, *httptest.Server) {
	t.Helper()
	r := newTestRegistry()
	authn := &fakeAuthenticator{identities: map[string]*auth.Identity{
		"alice-token": {UserID: 1, Username: "alice", DisplayName: "Alice"},
		"bob-token":   {UserID: 2, Username: "bob", DisplayName: "Bob"},
	}}
	s := NewServer(r, authn, nil, ClientOptions{}, discardLogger())
	ts := httptest.NewServer(http.HandlerFunc(s.ServeWS))
	t.Cleanup(func() {
		s.Close()
		ts.Close()
	})
	return r, ts
}

func dial(t *testing.T, ts *httptest.Server, query string, header http.Header) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(ts.URL, "http") + "/ws/notifications" + query
	conn, resp, err := websocket.DefaultDialer.Dial(url, header)
	require.NoError(t, err)
	if resp != nil && resp.Body != nil {
		_ = resp.Body.Close()
	}
	t.Cleanup(func() { _ = conn.Close() })
	return conn
}

func readMessage(t *testing.T, conn *websocket.Conn) wireMessage {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	_, data, err := conn.ReadMessage()
	require.NoError(t, err)
	var msg wireMessage
	require.NoError(t, json.Unmarshal(data, &msg))
	return msg
}

func TestServeWS_AcceptsValidToken(t *testing.T) {
	r, ts := newTestServer(t)
	conn := dial(t, ts, "?token=alice-token", nil)

	welcome := readMessage(t, conn)
	assert.Equal(t, MessageTypeConnection, welcome.Type)
	assert.Equal(t, "alice", welcome.dataMap()["username"])
	require.Eventually(t, func() bool { return r.IsOnline(1) }, time.Second, 5*time.Millisecond)

	require.NoError(t, conn.WriteMessage(websocket.TextMessage, []byte("ping")))
	assert.Equal(t, MessageTypePong, readMessage(t, conn).Type)

	r.SendToUser(1, likeMessage("bob"))
	like := readMessage(t, conn)
	assert.Equal(t, MessageTypeNewLike, like.Type)
	assert.Equal(t, float64(7), like.dataMap()["tweet_id"])

	require.NoError(t, conn.WriteMessage(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, "")))
	require.Eventually(t, func() bool { return !r.IsOnline(1) }, 2*time.Second, 10*time.Millisecond)
}

func TestServeWS_BearerHeader(t *testing.T) {
	r, ts := newTestServer(t)
	header := http.Header{}
	header.Set("Authorization", "Bearer bob-token")
	conn := dial(t, ts, "", header)

	assert.Equal(t, MessageTypeConnection, readMessage(t, conn).Type)
	require.Eventually(t, func() bool { return r.IsOnline(2) }, time.Second, 5*time.Millisecond)
}

func TestServeWS_TwoTabsSameUser(t *testing.T) {
	r, ts := newTestServer(t)
	first := dial(t, ts, "?token=alice-token", nil)
	second := dial(t, ts, "?token=alice-token", nil)
	readMessage(t, first)
	readMessage(t, second)
	require.Eventually(t, func() bool { return r.ConnectionCount() == 2 }, time.Second, 5*time.Millisecond)

	r.SendToUser(1, likeMessage("bob"))
	assert.Equal(t, MessageTypeNewLike, readMessage(t, first).Type)
	assert.Equal(t, MessageTypeNewLike, readMessage(t, second).Type)

	_ = first.Close()
	require.Eventually(t, func() bool { return r.ConnectionCount() == 1 }, 2*time.Second, 10*time.Millisecond)
	assert.True(t, r.IsOnline(1))
}

func TestServeWS_RejectsBadCredentials(t *testing.T) {
	tests := []struct {
		name  string
		query string
		code  int
	}{
		{name: "missing token", query: "", code: response.ErrCodeTokenMissing},
		{name: "unknown token", query: "?token=forged", code: response.ErrCodeTokenInvalid},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r, ts := newTestServer(t)
			conn := dial(t, ts, tt.query, nil)

			msg := readMessage(t, conn)
			assert.Equal(t, MessageTypeError, msg.Type)
			assert.Equal(t, float64(tt.code), msg.dataMap()["code"])

			_, _, err := conn.ReadMessage()
			require.Error(t, err)
			assert.True(t, websocket.IsCloseError(err, websocket.ClosePolicyViolation), "got %v", err)
			assert.Empty(t, r.OnlineUsers())
		})
	}
}

func TestRejectCode(t *testing.T) {
	assert.Equal(t, response.ErrCodeTokenMissing, rejectCode(auth.ErrMissingToken))
	assert.Equal(t, response.ErrCodeTokenInvalid, rejectCode(auth.ErrInvalidToken))
	assert.Equal(t, response.ErrCodeUserNotFound, rejectCode(auth.ErrUserNotFound))
	assert.Equal(t, response.ErrCodeUserInactive, rejectCode(auth.ErrUserInactive))
	assert.Equal(t, response.ErrCodeInternal, rejectCode(assert.AnError))
}

func TestTokenFromRequest(t *testing.T) {
	tests := []struct {
		name   string
		url    string
		header string
		want   string
	}{
		{name: "query parameter", url: "/ws?token=abc", want: "abc"},
		{name: "query wins over header", url: "/ws?token=abc", header: "Bearer xyz", want: "abc"},
		{name: "bearer header", url: "/ws", header: "Bearer xyz", want: "xyz"},
		{name: "non bearer header", url: "/ws", header: "Basic xyz", want: ""},
		{name: "nothing", url: "/ws", want: ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, tt.url, nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			assert.Equal(t, tt.want, TokenFromRequest(req))
		})
	}
}

func TestOriginChecker(t *testing.T) {
	check := originChecker([]string{"https://social.example.com"})

	tests := []struct {
		origin string
		want   bool
	}{
		{origin: "", want: true},
		{origin: "https://social.example.com", want: true},
		{origin: "http://localhost:3000", want: true},
		{origin: "http://127.0.0.1:5173", want: true},
		{origin: "https://evil.example.net", want: false},
	}
	for _, tt := range tests {
		req := httptest.NewRequest(http.MethodGet, "/ws", nil)
		if tt.origin != "" {
			req.Header.Set("Origin", tt.origin)
		}
		assert.Equal(t, tt.want, check(req), "origin %q", tt.origin)
	}

	wildcard := originChecker([]string{"*"})
	req := httptest.NewRequest(http.MethodGet, "/ws", nil)
	req.Header.Set("Origin", "https://anything.example.org")
	assert.True(t, wildcard(req))
}
