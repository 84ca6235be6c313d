package websocket

import (
	"time"
)

// MessageType represents the type of WebSocket message using a custom enum type for better type safety
type MessageType string

// Wire tags. The event tags are the ones the web client switches on.
const (
	// Connection events
	MessageTypeConnection MessageType = "connection"
	MessageTypePong       MessageType = "pong"

	// Domain events
	MessageTypeNewPost     MessageType = "new_tweet"
	MessageTypeNewLike     MessageType = "new_like"
	MessageTypeNewReply    MessageType = "new_reply"
	MessageTypeNewRepost   MessageType = "new_retweet"
	MessageTypeNewFollower MessageType = "new_follower"
	MessageTypeNewMessage  MessageType = "new_message"

	// Error events
	MessageTypeError MessageType = "error"
)

// TimestampLayout is ISO-8601 in UTC with millisecond precision.
const TimestampLayout = "2006-01-02T15:04:05.000Z07:00"

// String returns the string representation of the MessageType
func (mt MessageType) String() string {
	return string(mt)
}

// IsValid checks if the MessageType is a valid enum value
func (mt MessageType) IsValid() bool {
	switch mt {
	case MessageTypeConnection, MessageTypePong, MessageTypeError,
		MessageTypeNewPost, MessageTypeNewLike, MessageTypeNewReply,
		MessageTypeNewRepost, MessageTypeNewFollower, MessageTypeNewMessage:
		return true
	default:
		return false
	}
}

// GetAllMessageTypes returns all valid message types for documentation and validation
func GetAllMessageTypes() []MessageType {
	return []MessageType{
		MessageTypeConnection, MessageTypePong, MessageTypeError,
		MessageTypeNewPost, MessageTypeNewLike, MessageTypeNewReply,
		MessageTypeNewRepost, MessageTypeNewFollower, MessageTypeNewMessage,
	}
}

// EventData is one variant of the message payload. Each variant names its own wire tag,
// so a message can never carry data of one kind under the tag of another.
type EventData interface {
	MessageType() MessageType
}

// Message is the envelope written to every channel:
// {"type": ..., "data": {...}, "timestamp": "<ISO-8601 UTC>"}.
type Message struct {
	Type      MessageType `json:"type"`
	Data      EventData   `json:"data,omitempty"`
	Timestamp string      `json:"timestamp"`
}

// Message data structures for different message types

// PostData is the caller's snapshot of a freshly created post.
type PostData struct {
	ID             uint   `json:"id"`
	AuthorID       uint   `json:"author_id"`
	AuthorUsername string `json:"author_username"`
	AuthorName     string `json:"author_name,omitempty"`
	Content        string `json:"content"`
	ReplyToID      *uint  `json:"reply_to_id,omitempty"`
	CreatedAt      string `json:"created_at,omitempty"`
}

type LikeData struct {
	PostID   uint   `json:"tweet_id"`
	Username string `json:"username"`
	Message  string `json:"message"`
}

type ReplyData struct {
	PostID       uint   `json:"tweet_id"`
	Username     string `json:"username"`
	ReplyContent string `json:"reply_content"`
	Message      string `json:"message"`
}

type RepostData struct {
	PostID   uint   `json:"tweet_id"`
	Username string `json:"username"`
	Message  string `json:"message"`
}

type FollowerData struct {
	Username string `json:"username"`
	Message  string `json:"message"`
}

type DirectMessageData struct {
	MessageID      uint   `json:"message_id"`
	SenderUsername string `json:"sender_username"`
	SenderName     string `json:"sender_name"`
	Content        string `json:"content"`
	CreatedAt      string `json:"created_at"`
}

type ConnectionData struct {
	Message  string `json:"message"`
	UserID   uint   `json:"user_id"`
	Username string `json:"username"`
	ClientID string `json:"client_id"`
}

type ErrorData struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

func (PostData) MessageType() MessageType          { return MessageTypeNewPost }
func (LikeData) MessageType() MessageType          { return MessageTypeNewLike }
func (ReplyData) MessageType() MessageType         { return MessageTypeNewReply }
func (RepostData) MessageType() MessageType        { return MessageTypeNewRepost }
func (FollowerData) MessageType() MessageType      { return MessageTypeNewFollower }
func (DirectMessageData) MessageType() MessageType { return MessageTypeNewMessage }
func (ConnectionData) MessageType() MessageType    { return MessageTypeConnection }
func (ErrorData) MessageType() MessageType         { return MessageTypeError }

// Message constructors for type safety and consistency

// FormatTimestamp renders t the way every envelope carries it.
func FormatTimestamp(t time.Time) string {
	return t.UTC().Format(TimestampLayout)
}

// NewMessage wraps data in an envelope stamped at the given time.
func NewMessage(data EventData, at time.Time) *Message {
	return &Message{
		Type:      data.MessageType(),
		Data:      data,
		Timestamp: FormatTimestamp(at),
	}
}

// NewPongMessage answers a client "ping" frame.
func NewPongMessage(at time.Time) *Message {
	return &Message{
		Type:      MessageTypePong,
		Timestamp: FormatTimestamp(at),
	}
}

// NewErrorMessage creates an error message
func NewErrorMessage(code int, message string, at time.Time) *Message {
	return NewMessage(ErrorData{Code: code, Message: message}, at)
}
