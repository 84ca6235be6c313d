package models

import "time"

// NotificationType tags a persisted notification. Values match the live push types.
type NotificationType string

const (
	NotificationNewPost     NotificationType = "new_tweet"
	NotificationNewLike     NotificationType = "new_like"
	NotificationNewReply    NotificationType = "new_reply"
	NotificationNewRepost   NotificationType = "new_retweet"
	NotificationNewFollower NotificationType = "new_follower"
	NotificationNewMessage  NotificationType = "new_message"
)

func (t NotificationType) IsValid() bool {
	switch t {
	case NotificationNewPost, NotificationNewLike, NotificationNewReply,
		NotificationNewRepost, NotificationNewFollower, NotificationNewMessage:
		return true
	default:
		return false
	}
}

/** --------------------ENTITIES-------------------- */
// Notification is the durable record a client can poll when it missed the live push.
type Notification struct {
	ID              uint             `gorm:"primaryKey" json:"id"`
	UserID          uint             `gorm:"index:idx_notifications_user_read;not null" json:"user_id"`
	Type            NotificationType `gorm:"type:varchar(32);not null" json:"type"`
	Message         string           `gorm:"type:text;not null" json:"message"`
	RelatedID       *uint            `json:"related_id"`
	RelatedUsername *string          `json:"related_username"`
	IsRead          bool             `gorm:"index:idx_notifications_user_read;default:false" json:"is_read"`
	CreatedAt       time.Time        `gorm:"index" json:"created_at"`
}

/** -------------------- DTOs -------------------- */
type NotificationResponse struct {
	ID              uint             `json:"id"`
	Type            NotificationType `json:"type"`
	Message         string           `json:"message"`
	RelatedID       *uint            `json:"related_id"`
	RelatedUsername *string          `json:"related_username"`
	IsRead          bool             `json:"is_read"`
	CreatedAt       string           `json:"created_at"`
}

func (n *Notification) ToResponse() NotificationResponse {
	return NotificationResponse{
		ID:              n.ID,
		Type:            n.Type,
		Message:         n.Message,
		RelatedID:       n.RelatedID,
		RelatedUsername: n.RelatedUsername,
		IsRead:          n.IsRead,
		CreatedAt:       n.CreatedAt.UTC().Format(time.RFC3339),
	}
}

type UnreadCountResponse struct {
	Count int64 `json:"count"`
}

type MessageResponse struct {
	Message string `json:"message"`
}
