package notifier

import (
	"encoding/json"
	"sync"
	"testing"
	"time"

	ws "notify-service/internal/websocket"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var fixedNow = time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

type sent struct {
	userIDs []uint
	many    bool
	msg     *ws.Message
}

type recordingSender struct {
	mu   sync.Mutex
	sent []sent
}

func (r *recordingSender) SendToUser(userID uint, msg *ws.Message) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sent = append(r.sent, sent{userIDs: []uint{userID}, msg: msg})
}

func (r *recordingSender) SendToMany(userIDs []uint, msg *ws.Message) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sent = append(r.sent, sent{userIDs: userIDs, many: true, msg: msg})
}

func newTestNotifier() (*Notifier, *recordingSender) {
	s := &recordingSender{}
	return New(s, WithClock(func() time.Time { return fixedNow })), s
}

func wire(t *testing.T, msg *ws.Message) map[string]any {
	t.Helper()
	raw, err := json.Marshal(msg)
	require.NoError(t, err)
	var out map[string]any
	require.NoError(t, json.Unmarshal(raw, &out))
	return out
}

func TestNotifyNewPost(t *testing.T) {
	n, s := newTestNotifier()
	replyTo := uint(4)

	n.NotifyNewPost([]uint{2, 3}, PostSnapshot{
		ID:             10,
		AuthorID:       1,
		AuthorUsername: "alice",
		Content:        "hello world",
		ReplyToID:      &replyTo,
		CreatedAt:      fixedNow.Add(-time.Second),
	})

	require.Len(t, s.sent, 1)
	assert.True(t, s.sent[0].many)
	assert.Equal(t, []uint{2, 3}, s.sent[0].userIDs)

	out := wire(t, s.sent[0].msg)
	assert.Equal(t, "new_tweet", out["type"])
	assert.Equal(t, "2024-05-01T12:00:00.000Z", out["timestamp"])
	data := out["data"].(map[string]any)
	assert.Equal(t, float64(10), data["id"])
	assert.Equal(t, float64(1), data["author_id"])
	assert.Equal(t, "alice", data["author_username"])
	assert.Equal(t, "hello world", data["content"])
	assert.Equal(t, float64(4), data["reply_to_id"])
	assert.Equal(t, "2024-05-01T11:59:59.000Z", data["created_at"])
}

func TestNotifyNewPost_NoFollowers(t *testing.T) {
	n, s := newTestNotifier()
	n.NotifyNewPost(nil, PostSnapshot{ID: 1})
	assert.Empty(t, s.sent)
}

func TestSingleRecipientEvents(t *testing.T) {
	tests := []struct {
		name     string
		notify   func(n *Notifier)
		userID   uint
		wantType string
		wantData map[string]any
	}{
		{
			name:     "like",
			notify:   func(n *Notifier) { n.NotifyNewLike(1, 10, "bob") },
			userID:   1,
			wantType: "new_like",
			wantData: map[string]any{"tweet_id": float64(10), "username": "bob", "message": "bob liked your tweet"},
		},
		{
			name:     "reply",
			notify:   func(n *Notifier) { n.NotifyNewReply(1, 10, "carol", "nice post") },
			userID:   1,
			wantType: "new_reply",
			wantData: map[string]any{"tweet_id": float64(10), "username": "carol", "reply_content": "nice post", "message": "carol replied to your tweet"},
		},
		{
			name:     "repost",
			notify:   func(n *Notifier) { n.NotifyNewRepost(1, 10, "dave") },
			userID:   1,
			wantType: "new_retweet",
			wantData: map[string]any{"tweet_id": float64(10), "username": "dave", "message": "dave retweeted your tweet"},
		},
		{
			name:     "follower",
			notify:   func(n *Notifier) { n.NotifyNewFollower(5, "erin") },
			userID:   5,
			wantType: "new_follower",
			wantData: map[string]any{"username": "erin", "message": "erin started following you"},
		},
		{
			name: "direct message",
			notify: func(n *Notifier) {
				n.NotifyNewMessage(6, DirectMessage{
					ID:             77,
					SenderUsername: "frank",
					SenderName:     "Frank F",
					Content:        "hi",
					CreatedAt:      fixedNow,
				})
			},
			userID:   6,
			wantType: "new_message",
			wantData: map[string]any{
				"message_id":      float64(77),
				"sender_username": "frank",
				"sender_name":     "Frank F",
				"content":         "hi",
				"created_at":      "2024-05-01T12:00:00.000Z",
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			n, s := newTestNotifier()
			tt.notify(n)

			require.Len(t, s.sent, 1)
			assert.False(t, s.sent[0].many)
			assert.Equal(t, []uint{tt.userID}, s.sent[0].userIDs)

			out := wire(t, s.sent[0].msg)
			assert.Equal(t, tt.wantType, out["type"])
			assert.Equal(t, tt.wantData, out["data"])
		})
	}
}

func TestNotifyNewMessage_DefaultsTimestamp(t *testing.T) {
	n, s := newTestNotifier()
	n.NotifyNewMessage(6, DirectMessage{ID: 1, SenderUsername: "frank", Content: "hi"})

	require.Len(t, s.sent, 1)
	data := s.sent[0].msg.Data.(ws.DirectMessageData)
	assert.Equal(t, "2024-05-01T12:00:00.000Z", data.CreatedAt)
}

// Delivery through a real registry: an offline recipient and a dead channel never reach
// the caller.
func TestNotifier_WithRegistry(t *testing.T) {
	registry := ws.NewRegistry()
	n := New(registry)

	assert.NotPanics(t, func() {
		n.NotifyNewLike(99, 1, "bob")
		n.NotifyNewPost([]uint{98, 99}, PostSnapshot{ID: 1, AuthorID: 1, AuthorUsername: "alice"})
	})
}
