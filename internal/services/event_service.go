package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"

	"notify-service/internal/models"
	"notify-service/internal/notifier"
)

var ErrInvalidEvent = errors.New("invalid event")

// NotificationStore persists the durable copy of a notification.
type NotificationStore interface {
	Create(ctx context.Context, n *models.Notification) error
}

// EventNotifier is the push side of event handling.
type EventNotifier interface {
	NotifyNewPost(followerIDs []uint, post notifier.PostSnapshot)
	NotifyNewLike(authorID, postID uint, likerUsername string)
	NotifyNewReply(authorID, postID uint, replierUsername, replyContent string)
	NotifyNewRepost(authorID, postID uint, reposterUsername string)
	NotifyNewFollower(followedID uint, followerUsername string)
	NotifyNewMessage(receiverID uint, dm notifier.DirectMessage)
}

// EventResult describes what handling an event did. Delivery outcomes are not part of it.
type EventResult struct {
	Recipients int
	Persisted  bool
	Suppressed bool
}

type EventService struct {
	store    NotificationStore
	notifier EventNotifier
	logger   *slog.Logger
}

// NewEventService wires persistence and push. store may be nil, in which case events are
// pushed without a durable record.
func NewEventService(store NotificationStore, n EventNotifier, logger *slog.Logger) *EventService {
	if logger == nil {
		logger = slog.Default()
	}
	return &EventService{store: store, notifier: n, logger: logger}
}

// Validate checks that ev carries what its type needs.
func Validate(ev *models.DomainEvent) error {
	if ev == nil {
		return fmt.Errorf("%w: empty event", ErrInvalidEvent)
	}
	if !ev.Type.IsValid() {
		return fmt.Errorf("%w: unknown type %q", ErrInvalidEvent, ev.Type)
	}
	if ev.ActorUsername == "" {
		return fmt.Errorf("%w: actor_username is required", ErrInvalidEvent)
	}

	switch ev.Type {
	case models.EventPostCreated:
		if ev.PostID == 0 {
			return fmt.Errorf("%w: post_id is required for %s", ErrInvalidEvent, ev.Type)
		}
		return nil
	case models.EventPostLiked, models.EventPostReplied, models.EventPostReposted:
		if ev.PostID == 0 {
			return fmt.Errorf("%w: post_id is required for %s", ErrInvalidEvent, ev.Type)
		}
	case models.EventMessageSent:
		if ev.MessageID == 0 {
			return fmt.Errorf("%w: message_id is required for %s", ErrInvalidEvent, ev.Type)
		}
	}
	if ev.RecipientID == 0 {
		return fmt.Errorf("%w: recipient_id is required for %s", ErrInvalidEvent, ev.Type)
	}
	return nil
}

// Handle persists the notification record for ev, when it has one, then pushes it. Only
// an invalid event is an error; storage failures are logged and the push still happens.
// Users are never notified about their own actions.
func (s *EventService) Handle(ctx context.Context, ev *models.DomainEvent) (EventResult, error) {
	if err := Validate(ev); err != nil {
		return EventResult{}, err
	}

	if ev.Type == models.EventPostCreated {
		return s.handleNewPost(ev), nil
	}

	if ev.ActorID != 0 && ev.ActorID == ev.RecipientID {
		s.logger.Debug("Suppressing self notification", "type", ev.Type, "userID", ev.RecipientID)
		return EventResult{Suppressed: true}, nil
	}

	result := EventResult{Recipients: 1}
	result.Persisted = s.persist(ctx, ev)

	switch ev.Type {
	case models.EventPostLiked:
		s.notifier.NotifyNewLike(ev.RecipientID, ev.PostID, ev.ActorUsername)
	case models.EventPostReplied:
		s.notifier.NotifyNewReply(ev.RecipientID, ev.PostID, ev.ActorUsername, ev.Content)
	case models.EventPostReposted:
		s.notifier.NotifyNewRepost(ev.RecipientID, ev.PostID, ev.ActorUsername)
	case models.EventUserFollowed:
		s.notifier.NotifyNewFollower(ev.RecipientID, ev.ActorUsername)
	case models.EventMessageSent:
		dm := notifier.DirectMessage{
			ID:             ev.MessageID,
			SenderUsername: ev.ActorUsername,
			SenderName:     actorName(ev),
			Content:        ev.Content,
		}
		if ev.CreatedAt != nil {
			dm.CreatedAt = *ev.CreatedAt
		}
		s.notifier.NotifyNewMessage(ev.RecipientID, dm)
	}

	s.logger.Info("Event handled", "type", ev.Type, "recipientID", ev.RecipientID, "persisted", result.Persisted)
	return result, nil
}

func (s *EventService) handleNewPost(ev *models.DomainEvent) EventResult {
	followers := slices.DeleteFunc(slices.Clone(ev.RecipientIDs), func(id uint) bool {
		return id == 0 || (ev.ActorID != 0 && id == ev.ActorID)
	})
	if len(followers) == 0 {
		return EventResult{Suppressed: len(ev.RecipientIDs) > 0}
	}

	post := notifier.PostSnapshot{
		ID:             ev.PostID,
		AuthorID:       ev.ActorID,
		AuthorUsername: ev.ActorUsername,
		AuthorName:     ev.ActorName,
		Content:        ev.Content,
		ReplyToID:      ev.ReplyToID,
	}
	if ev.CreatedAt != nil {
		post.CreatedAt = *ev.CreatedAt
	}
	s.notifier.NotifyNewPost(followers, post)

	s.logger.Info("Event handled", "type", ev.Type, "recipients", len(followers))
	return EventResult{Recipients: len(followers)}
}

func (s *EventService) persist(ctx context.Context, ev *models.DomainEvent) bool {
	if s.store == nil {
		return false
	}

	record := notificationRecord(ev)
	if err := s.store.Create(ctx, record); err != nil {
		s.logger.Error("Failed to store notification", "type", ev.Type, "userID", ev.RecipientID, "error", err)
		return false
	}
	return true
}

func notificationRecord(ev *models.DomainEvent) *models.Notification {
	username := ev.ActorUsername
	n := &models.Notification{
		UserID:          ev.RecipientID,
		RelatedUsername: &username,
	}

	relatedID := ev.PostID
	switch ev.Type {
	case models.EventPostLiked:
		n.Type = models.NotificationNewLike
		n.Message = notifier.LikeText(username)
	case models.EventPostReplied:
		n.Type = models.NotificationNewReply
		n.Message = notifier.ReplyText(username)
	case models.EventPostReposted:
		n.Type = models.NotificationNewRepost
		n.Message = notifier.RepostText(username)
	case models.EventUserFollowed:
		n.Type = models.NotificationNewFollower
		n.Message = notifier.FollowerText(username)
		relatedID = ev.ActorID
	case models.EventMessageSent:
		n.Type = models.NotificationNewMessage
		n.Message = notifier.MessageText(actorName(ev))
		relatedID = ev.MessageID
	}
	if relatedID != 0 {
		n.RelatedID = &relatedID
	}
	return n
}

func actorName(ev *models.DomainEvent) string {
	if ev.ActorName != "" {
		return ev.ActorName
	}
	return ev.ActorUsername
}
