// Package notifier turns domain events into push messages and hands them to the
// connection registry. It never looks up recipients itself: callers pass the ids.
package notifier

import (
	"fmt"
	"log/slog"
	"time"

	ws "notify-service/internal/websocket"
)

// Sender is the delivery side of the connection registry.
type Sender interface {
	SendToUser(userID uint, msg *ws.Message)
	SendToMany(userIDs []uint, msg *ws.Message)
}

// PostSnapshot is the post as the caller persisted it.
type PostSnapshot struct {
	ID             uint
	AuthorID       uint
	AuthorUsername string
	AuthorName     string
	Content        string
	ReplyToID      *uint
	CreatedAt      time.Time
}

type DirectMessage struct {
	ID             uint
	SenderUsername string
	SenderName     string
	Content        string
	CreatedAt      time.Time
}

type Notifier struct {
	sender Sender
	now    func() time.Time
	logger *slog.Logger
}

type Option func(*Notifier)

// WithClock replaces time.Now as the source of envelope timestamps.
func WithClock(now func() time.Time) Option {
	return func(n *Notifier) { n.now = now }
}

func WithLogger(l *slog.Logger) Option {
	return func(n *Notifier) { n.logger = l }
}

func New(sender Sender, opts ...Option) *Notifier {
	n := &Notifier{
		sender: sender,
		now:    time.Now,
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(n)
	}
	return n
}

func (n *Notifier) NotifyNewPost(followerIDs []uint, post PostSnapshot) {
	if len(followerIDs) == 0 {
		return
	}
	data := ws.PostData{
		ID:             post.ID,
		AuthorID:       post.AuthorID,
		AuthorUsername: post.AuthorUsername,
		AuthorName:     post.AuthorName,
		Content:        post.Content,
		ReplyToID:      post.ReplyToID,
	}
	if !post.CreatedAt.IsZero() {
		data.CreatedAt = ws.FormatTimestamp(post.CreatedAt)
	}
	n.dispatchMany(followerIDs, data)
}

func (n *Notifier) NotifyNewLike(authorID, postID uint, likerUsername string) {
	n.dispatch(authorID, ws.LikeData{
		PostID:   postID,
		Username: likerUsername,
		Message:  LikeText(likerUsername),
	})
}

func (n *Notifier) NotifyNewReply(authorID, postID uint, replierUsername, replyContent string) {
	n.dispatch(authorID, ws.ReplyData{
		PostID:       postID,
		Username:     replierUsername,
		ReplyContent: replyContent,
		Message:      ReplyText(replierUsername),
	})
}

func (n *Notifier) NotifyNewRepost(authorID, postID uint, reposterUsername string) {
	n.dispatch(authorID, ws.RepostData{
		PostID:   postID,
		Username: reposterUsername,
		Message:  RepostText(reposterUsername),
	})
}

func (n *Notifier) NotifyNewFollower(followedID uint, followerUsername string) {
	n.dispatch(followedID, ws.FollowerData{
		Username: followerUsername,
		Message:  FollowerText(followerUsername),
	})
}

func (n *Notifier) NotifyNewMessage(receiverID uint, dm DirectMessage) {
	sentAt := dm.CreatedAt
	if sentAt.IsZero() {
		sentAt = n.now()
	}
	n.dispatch(receiverID, ws.DirectMessageData{
		MessageID:      dm.ID,
		SenderUsername: dm.SenderUsername,
		SenderName:     dm.SenderName,
		Content:        dm.Content,
		CreatedAt:      ws.FormatTimestamp(sentAt),
	})
}

func (n *Notifier) dispatch(userID uint, data ws.EventData) {
	msg := ws.NewMessage(data, n.now())
	n.sender.SendToUser(userID, msg)
	n.logger.Debug("Notification dispatched", "type", msg.Type, "userID", userID)
}

func (n *Notifier) dispatchMany(userIDs []uint, data ws.EventData) {
	msg := ws.NewMessage(data, n.now())
	n.sender.SendToMany(userIDs, msg)
	n.logger.Debug("Notification dispatched", "type", msg.Type, "recipients", len(userIDs))
}

// Human readable texts, shared with the stored notification records.

func LikeText(username string) string     { return fmt.Sprintf("%s liked your tweet", username) }
func ReplyText(username string) string    { return fmt.Sprintf("%s replied to your tweet", username) }
func RepostText(username string) string   { return fmt.Sprintf("%s retweeted your tweet", username) }
func FollowerText(username string) string { return fmt.Sprintf("%s started following you", username) }

func MessageText(senderName string) string {
	return fmt.Sprintf("New message from %s", senderName)
}
