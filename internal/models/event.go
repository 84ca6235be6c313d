package models

import "time"

// EventType names a domain mutation another service performed.
type EventType string

const (
	EventPostCreated  EventType = "post.created"
	EventPostLiked    EventType = "post.liked"
	EventPostReplied  EventType = "post.replied"
	EventPostReposted EventType = "post.reposted"
	EventUserFollowed EventType = "user.followed"
	EventMessageSent  EventType = "message.sent"
)

func (t EventType) IsValid() bool {
	switch t {
	case EventPostCreated, EventPostLiked, EventPostReplied,
		EventPostReposted, EventUserFollowed, EventMessageSent:
		return true
	default:
		return false
	}
}

/** -------------------- DTOs -------------------- */
// DomainEvent is the outcome of a mutation, published after it committed. The publisher
// resolves recipients: RecipientIDs for post.created (the author's followers) and
// RecipientID for every other type.
type DomainEvent struct {
	Type          EventType  `json:"type" binding:"required" example:"post.liked"`
	ActorID       uint       `json:"actor_id" example:"2"`
	ActorUsername string     `json:"actor_username" binding:"required" example:"bob"`
	ActorName     string     `json:"actor_name,omitempty" example:"Bob Builder"`
	RecipientID   uint       `json:"recipient_id,omitempty" example:"1"`
	RecipientIDs  []uint     `json:"recipient_ids,omitempty"`
	PostID        uint       `json:"post_id,omitempty" example:"10"`
	ReplyToID     *uint      `json:"reply_to_id,omitempty"`
	MessageID     uint       `json:"message_id,omitempty"`
	Content       string     `json:"content,omitempty"`
	CreatedAt     *time.Time `json:"created_at,omitempty"`
}

type EventAcceptedResponse struct {
	Status     string `json:"status" example:"accepted"`
	Recipients int    `json:"recipients" example:"1"`
	Persisted  bool   `json:"persisted"`
}
