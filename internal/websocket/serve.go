package websocket

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"net/url"
	"slices"
	"strings"
	"time"

	"notify-service/internal/auth"
	"notify-service/pkg/response"

	"github.com/gorilla/websocket"
)

// Server performs the notification handshake and runs one Client per connection.
type Server struct {
	registry *Registry
	authn    auth.Authenticator
	upgrader websocket.Upgrader
	opts     ClientOptions
	logger   *slog.Logger

	ctx    context.Context
	cancel context.CancelFunc
}

func NewServer(registry *Registry, authn auth.Authenticator, allowedOrigins []string, opts ClientOptions, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Server{
		registry: registry,
		authn:    authn,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     originChecker(allowedOrigins),
		},
		opts:   opts.withDefaults(),
		logger: logger,
		ctx:    ctx,
		cancel: cancel,
	}
}

// Close cancels every running connection loop.
func (s *Server) Close() {
	s.cancel()
}

// ServeWS upgrades the request, verifies its credential and serves the connection until
// it ends. A bad credential gets an error frame and a 1008 close; nothing is registered.
func (s *Server) ServeWS(w http.ResponseWriter, r *http.Request) {
	token := TokenFromRequest(r)

	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Error("Failed to upgrade WebSocket connection", "remoteAddr", r.RemoteAddr, "error", err)
		return
	}

	identity, err := s.authn.Authenticate(r.Context(), token)
	if err != nil {
		s.reject(conn, err)
		return
	}

	client := NewClient(conn, identity.UserID, identity.Username, s.opts, s.logger)
	s.logger.Info("New WebSocket connection established", "clientID", client.ID(), "userID", identity.UserID, "username", identity.Username)
	client.Run(s.ctx, s.registry)
}

func (s *Server) reject(conn *websocket.Conn, err error) {
	code := rejectCode(err)
	s.logger.Warn("WebSocket handshake rejected", "remoteAddr", conn.RemoteAddr().String(), "code", code, "error", err)

	deadline := time.Now().Add(s.opts.WriteWait)
	_ = conn.SetWriteDeadline(deadline)
	_ = conn.WriteJSON(NewErrorMessage(code, response.Msg(code), time.Now()))
	_ = conn.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.ClosePolicyViolation, response.Msg(code)), deadline)
	_ = conn.Close()
}

func rejectCode(err error) int {
	switch {
	case errors.Is(err, auth.ErrMissingToken):
		return response.ErrCodeTokenMissing
	case errors.Is(err, auth.ErrInvalidToken):
		return response.ErrCodeTokenInvalid
	case errors.Is(err, auth.ErrUserNotFound):
		return response.ErrCodeUserNotFound
	case errors.Is(err, auth.ErrUserInactive):
		return response.ErrCodeUserInactive
	default:
		return response.ErrCodeInternal
	}
}

// TokenFromRequest reads the credential from the "token" query parameter, which browsers
// can set on a websocket URL, falling back to an Authorization bearer header.
func TokenFromRequest(r *http.Request) string {
	if token := r.URL.Query().Get("token"); token != "" {
		return token
	}
	header := r.Header.Get("Authorization")
	if strings.HasPrefix(header, "Bearer ") {
		return strings.TrimSpace(strings.TrimPrefix(header, "Bearer "))
	}
	return ""
}

// originChecker allows requests without an Origin header (non-browser clients), listed
// origins, "*" and any localhost origin.
func originChecker(allowed []string) func(*http.Request) bool {
	return func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		if origin == "" || slices.Contains(allowed, "*") || slices.Contains(allowed, origin) {
			return true
		}

		u, err := url.Parse(origin)
		if err != nil {
			return false
		}
		host := u.Hostname()
		return host == "localhost" || host == "127.0.0.1"
	}
}
