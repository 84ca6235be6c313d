package websocket

import (
	"context"
	"errors"
	"log/slog"
	"slices"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

var ErrClientDisconnected = errors.New("client disconnected")

const (
	defaultFanoutWorkers = 16
	presenceQueueSize    = 1024
	presenceTimeout      = 2 * time.Second
)

// Channel is one open push connection belonging to exactly one user.
type Channel interface {
	ID() string
	UserID() uint
	Send(msg *Message) error
	Close(code int, reason string) error
}

// PresenceTracker mirrors online/offline transitions somewhere outside the process.
type PresenceTracker interface {
	SetUserOnline(ctx context.Context, userID uint) error
	SetUserOffline(ctx context.Context, userID uint) error
}

type presenceUpdate struct {
	userID uint
	online bool
}

// Registry maps user IDs to their open channels. The mutex guards the map only; every
// Send and Close happens after it has been released.
type Registry struct {
	mu          sync.RWMutex
	channels    map[uint][]Channel
	connections int
	closed      bool

	fanoutWorkers int

	presence     PresenceTracker
	presenceQ    chan presenceUpdate
	presenceDone chan struct{}

	metrics *Metrics
	logger  *slog.Logger
}

type RegistryOption func(*Registry)

func WithPresence(p PresenceTracker) RegistryOption {
	return func(r *Registry) { r.presence = p }
}

func WithMetrics(m *Metrics) RegistryOption {
	return func(r *Registry) { r.metrics = m }
}

func WithLogger(l *slog.Logger) RegistryOption {
	return func(r *Registry) { r.logger = l }
}

// WithFanoutWorkers bounds how many recipients SendToMany serves at once.
func WithFanoutWorkers(n int) RegistryOption {
	return func(r *Registry) {
		if n > 0 {
			r.fanoutWorkers = n
		}
	}
}

// NewRegistry builds an empty registry. Call Shutdown once at process stop.
func NewRegistry(opts ...RegistryOption) *Registry {
	r := &Registry{
		channels:      make(map[uint][]Channel),
		fanoutWorkers: defaultFanoutWorkers,
		logger:        slog.Default(),
	}
	for _, opt := range opts {
		opt(r)
	}

	if r.presence != nil {
		r.presenceQ = make(chan presenceUpdate, presenceQueueSize)
		r.presenceDone = make(chan struct{})
		go r.runPresence()
	}
	return r
}

// Register adds ch under userID. A user may hold any number of channels.
// After Shutdown the channel is closed instead of registered.
func (r *Registry) Register(userID uint, ch Channel) {
	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		_ = ch.Close(websocket.CloseGoingAway, "server shutting down")
		return
	}

	first := len(r.channels[userID]) == 0
	r.channels[userID] = append(r.channels[userID], ch)
	r.connections++
	if first {
		r.enqueuePresence(userID, true)
	}
	users, conns := len(r.channels), r.connections
	r.mu.Unlock()

	r.metrics.setSize(users, conns)
	r.logger.Info("Client registered", "clientID", ch.ID(), "userID", userID, "totalConnections", conns)
}

// Deregister removes ch from userID. Absent users or channels are a no-op, so every exit
// path of a connection may call it. It reports whether ch was actually removed.
func (r *Registry) Deregister(userID uint, ch Channel) bool {
	r.mu.Lock()
	list, ok := r.channels[userID]
	if !ok {
		r.mu.Unlock()
		return false
	}

	idx := slices.Index(list, ch)
	if idx < 0 {
		r.mu.Unlock()
		return false
	}

	// Copy so snapshots handed out earlier never observe the removal.
	remaining := make([]Channel, 0, len(list)-1)
	remaining = append(remaining, list[:idx]...)
	remaining = append(remaining, list[idx+1:]...)
	if len(remaining) == 0 {
		delete(r.channels, userID)
		r.enqueuePresence(userID, false)
	} else {
		r.channels[userID] = remaining
	}
	r.connections--
	users, conns := len(r.channels), r.connections
	r.mu.Unlock()

	r.metrics.setSize(users, conns)
	r.logger.Info("Client unregistered", "clientID", ch.ID(), "userID", userID)
	return true
}

// SendToUser writes msg to every channel of userID. A channel whose send fails is
// considered dead: it is deregistered and closed, and the error goes no further.
// An offline user is a silent no-op.
func (r *Registry) SendToUser(userID uint, msg *Message) {
	for _, ch := range r.snapshot(userID) {
		if err := ch.Send(msg); err != nil {
			r.logger.Warn("Dropping dead channel", "clientID", ch.ID(), "userID", userID, "type", msg.Type, "error", err)
			r.metrics.deadChannel()
			if r.Deregister(userID, ch) {
				_ = ch.Close(websocket.CloseGoingAway, "send failed")
			}
			continue
		}
		r.metrics.messageSent(msg.Type)
	}
}

// SendToMany delivers msg to each listed user independently. Recipients are served by a
// bounded pool of goroutines; the call returns once every recipient has been attempted.
func (r *Registry) SendToMany(userIDs []uint, msg *Message) {
	if len(userIDs) == 0 {
		return
	}
	if len(userIDs) == 1 {
		r.SendToUser(userIDs[0], msg)
		return
	}

	workers := min(r.fanoutWorkers, len(userIDs))
	ids := make(chan uint)

	var wg sync.WaitGroup
	wg.Add(workers)
	for i := 0; i < workers; i++ {
		go func() {
			defer wg.Done()
			for id := range ids {
				r.SendToUser(id, msg)
			}
		}()
	}

	for _, id := range userIDs {
		ids <- id
	}
	close(ids)
	wg.Wait()
}

// Broadcast sends msg to every user online when the call starts. Users registering
// while it runs may or may not receive it.
func (r *Registry) Broadcast(msg *Message) {
	r.SendToMany(r.OnlineUsers(), msg)
}

func (r *Registry) IsOnline(userID uint) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.channels[userID]) > 0
}

// OnlineUsers returns a sorted copy of the registered user IDs.
func (r *Registry) OnlineUsers() []uint {
	r.mu.RLock()
	users := make([]uint, 0, len(r.channels))
	for userID := range r.channels {
		users = append(users, userID)
	}
	r.mu.RUnlock()

	slices.Sort(users)
	return users
}

// ConnectionCount returns the number of registered channels across all users.
func (r *Registry) ConnectionCount() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.connections
}

// Shutdown closes every registered channel and refuses later registrations. Presence
// updates queued so far, including the final offline transitions, are flushed until ctx
// expires.
func (r *Registry) Shutdown(ctx context.Context) {
	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return
	}
	r.closed = true
	all := r.channels
	r.channels = make(map[uint][]Channel)
	r.connections = 0
	for userID := range all {
		r.enqueuePresence(userID, false)
	}
	if r.presenceQ != nil {
		close(r.presenceQ)
	}
	r.mu.Unlock()

	r.metrics.setSize(0, 0)

	count := 0
	for _, list := range all {
		for _, ch := range list {
			_ = ch.Close(websocket.CloseGoingAway, "server shutting down")
			count++
		}
	}
	r.logger.Info("WebSocket registry shut down", "closedChannels", count, "users", len(all))

	if r.presenceDone != nil {
		select {
		case <-r.presenceDone:
		case <-ctx.Done():
			r.logger.Warn("Timeout flushing presence updates", "error", ctx.Err())
		}
	}
}

// Acquire registers ch under its own user and returns the handle that undoes it.
func (r *Registry) Acquire(ch Channel) *Registration {
	r.Register(ch.UserID(), ch)
	return &Registration{registry: r, channel: ch}
}

func (r *Registry) snapshot(userID uint) []Channel {
	r.mu.RLock()
	defer r.mu.RUnlock()
	// The stored slice is never mutated in place, so handing it out is a snapshot.
	return r.channels[userID]
}

// enqueuePresence must be called with r.mu held so updates are queued in map order.
func (r *Registry) enqueuePresence(userID uint, online bool) {
	if r.presenceQ == nil || r.closed && online {
		return
	}
	select {
	case r.presenceQ <- presenceUpdate{userID: userID, online: online}:
	default:
		r.logger.Warn("Presence queue full, dropping update", "userID", userID, "online", online)
	}
}

func (r *Registry) runPresence() {
	defer close(r.presenceDone)
	for u := range r.presenceQ {
		ctx, cancel := context.WithTimeout(context.Background(), presenceTimeout)
		var err error
		if u.online {
			err = r.presence.SetUserOnline(ctx, u.userID)
		} else {
			err = r.presence.SetUserOffline(ctx, u.userID)
		}
		cancel()
		if err != nil {
			r.logger.Error("Failed to update presence", "userID", u.userID, "online", u.online, "error", err)
		}
	}
}

// Registration ties a channel's registered lifetime to its connection loop. Release
// deregisters and closes the channel exactly once, whichever exit path calls it first.
type Registration struct {
	registry *Registry
	channel  Channel
	once     sync.Once
}

func (reg *Registration) Release() {
	reg.once.Do(func() {
		reg.registry.Deregister(reg.channel.UserID(), reg.channel)
		_ = reg.channel.Close(websocket.CloseNormalClosure, "")
	})
}
