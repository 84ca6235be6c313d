package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"notify-service/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeNotificationRepo struct {
	notifications []models.Notification
	err           error
	lastSkip      int
	lastLimit     int
	lastUnread    bool
}

func (f *fakeNotificationRepo) ListByUser(_ context.Context, userID uint, skip, limit int, unreadOnly bool) ([]models.Notification, error) {
	f.lastSkip, f.lastLimit, f.lastUnread = skip, limit, unreadOnly
	if f.err != nil {
		return nil, f.err
	}
	var out []models.Notification
	for _, n := range f.notifications {
		if n.UserID == userID && (!unreadOnly || !n.IsRead) {
			out = append(out, n)
		}
	}
	return out, nil
}

func (f *fakeNotificationRepo) CountUnread(_ context.Context, userID uint) (int64, error) {
	if f.err != nil {
		return 0, f.err
	}
	var count int64
	for _, n := range f.notifications {
		if n.UserID == userID && !n.IsRead {
			count++
		}
	}
	return count, nil
}

func (f *fakeNotificationRepo) MarkRead(_ context.Context, id, userID uint) (bool, error) {
	if f.err != nil {
		return false, f.err
	}
	for i := range f.notifications {
		if f.notifications[i].ID == id && f.notifications[i].UserID == userID {
			f.notifications[i].IsRead = true
			return true, nil
		}
	}
	return false, nil
}

func (f *fakeNotificationRepo) MarkAllRead(_ context.Context, userID uint) (int64, error) {
	if f.err != nil {
		return 0, f.err
	}
	var changed int64
	for i := range f.notifications {
		if f.notifications[i].UserID == userID && !f.notifications[i].IsRead {
			f.notifications[i].IsRead = true
			changed++
		}
	}
	return changed, nil
}

func seededRepo() *fakeNotificationRepo {
	at := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	return &fakeNotificationRepo{notifications: []models.Notification{
		{ID: 1, UserID: 1, Type: models.NotificationNewLike, Message: "bob liked your tweet", CreatedAt: at},
		{ID: 2, UserID: 1, Type: models.NotificationNewFollower, Message: "carol started following you", IsRead: true, CreatedAt: at},
		{ID: 3, UserID: 2, Type: models.NotificationNewLike, Message: "alice liked your tweet", CreatedAt: at},
	}}
}

func TestNotificationService_List(t *testing.T) {
	repo := seededRepo()
	svc := NewNotificationService(repo)

	all, err := svc.List(context.Background(), 1, 5, 20, false)
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Equal(t, "2024-05-01T12:00:00Z", all[0].CreatedAt)
	assert.Equal(t, 5, repo.lastSkip)
	assert.Equal(t, 20, repo.lastLimit)

	unread, err := svc.List(context.Background(), 1, 0, 20, true)
	require.NoError(t, err)
	require.Len(t, unread, 1)
	assert.Equal(t, uint(1), unread[0].ID)
}

func TestNotificationService_UnreadCountAndMarkRead(t *testing.T) {
	repo := seededRepo()
	svc := NewNotificationService(repo)
	ctx := context.Background()

	count, err := svc.UnreadCount(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, int64(1), count)

	require.NoError(t, svc.MarkRead(ctx, 1, 1))
	assert.ErrorIs(t, svc.MarkRead(ctx, 3, 1), ErrNotificationNotFound)

	changed, err := svc.MarkAllRead(ctx, 2)
	require.NoError(t, err)
	assert.Equal(t, int64(1), changed)
}

func TestNotificationService_WrapsRepositoryErrors(t *testing.T) {
	dbErr := errors.New("db down")
	svc := NewNotificationService(&fakeNotificationRepo{err: dbErr})
	ctx := context.Background()

	_, err := svc.List(ctx, 1, 0, 10, false)
	assert.ErrorIs(t, err, dbErr)
	_, err = svc.UnreadCount(ctx, 1)
	assert.ErrorIs(t, err, dbErr)
	err = svc.MarkRead(ctx, 1, 1)
	assert.ErrorIs(t, err, dbErr)
	assert.NotErrorIs(t, err, ErrNotificationNotFound)
	_, err = svc.MarkAllRead(ctx, 1)
	assert.ErrorIs(t, err, dbErr)
}
