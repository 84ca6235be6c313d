package handlers

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"notify-service/internal/api/middleware"
	"notify-service/internal/models"
	"notify-service/internal/services"
	"notify-service/pkg/response"

	"github.com/gin-gonic/gin"
)

const (
	defaultPageLimit = 20
	maxPageLimit     = 100
)

// NotificationReader is satisfied by services.NotificationService.
type NotificationReader interface {
	List(ctx context.Context, userID uint, skip, limit int, unreadOnly bool) ([]models.NotificationResponse, error)
	UnreadCount(ctx context.Context, userID uint) (int64, error)
	MarkRead(ctx context.Context, id, userID uint) error
	MarkAllRead(ctx context.Context, userID uint) (int64, error)
}

type NotificationHandler struct {
	service NotificationReader
	logger  *slog.Logger
}

func NewNotificationHandler(service NotificationReader, logger *slog.Logger) *NotificationHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &NotificationHandler{service: service, logger: logger}
}

// GetNotifications godoc
// @Summary List notifications
// @Description Stored notifications of the current user, newest first
// @Tags notifications
// @Produce json
// @Security BearerAuth
// @Param skip query int false "Offset" default(0)
// @Param limit query int false "Page size, at most 100" default(20)
// @Param unread_only query bool false "Only unread notifications" default(false)
// @Success 200 {array} models.NotificationResponse
// @Failure 400 {object} models.ErrorResponse
// @Failure 401 {object} models.ErrorResponse
// @Failure 500 {object} models.ErrorResponse
// @Router /notifications [get]
func (h *NotificationHandler) GetNotifications(c *gin.Context) {
	userID := c.MustGet(middleware.ContextUserID).(uint)

	skip, err := queryInt(c, "skip", 0)
	if err != nil || skip < 0 {
		errorJSON(c, http.StatusBadRequest, response.ErrCodeParamInvalid, "skip must be a non-negative integer")
		return
	}
	limit, err := queryInt(c, "limit", defaultPageLimit)
	if err != nil || limit < 1 || limit > maxPageLimit {
		errorJSON(c, http.StatusBadRequest, response.ErrCodeParamInvalid, "limit must be between 1 and 100")
		return
	}
	unreadOnly, err := strconv.ParseBool(c.DefaultQuery("unread_only", "false"))
	if err != nil {
		errorJSON(c, http.StatusBadRequest, response.ErrCodeParamInvalid, "unread_only must be a boolean")
		return
	}

	notifications, err := h.service.List(c.Request.Context(), userID, skip, limit, unreadOnly)
	if err != nil {
		h.logger.Error("Failed to list notifications", "userID", userID, "error", err)
		errorJSON(c, http.StatusInternalServerError, response.ErrCodeInternal, "")
		return
	}
	c.JSON(http.StatusOK, notifications)
}

// GetUnreadCount godoc
// @Summary Unread notification count
// @Tags notifications
// @Produce json
// @Security BearerAuth
// @Success 200 {object} models.UnreadCountResponse
// @Failure 401 {object} models.ErrorResponse
// @Failure 500 {object} models.ErrorResponse
// @Router /notifications/unread-count [get]
func (h *NotificationHandler) GetUnreadCount(c *gin.Context) {
	userID := c.MustGet(middleware.ContextUserID).(uint)

	count, err := h.service.UnreadCount(c.Request.Context(), userID)
	if err != nil {
		h.logger.Error("Failed to count unread notifications", "userID", userID, "error", err)
		errorJSON(c, http.StatusInternalServerError, response.ErrCodeInternal, "")
		return
	}
	c.JSON(http.StatusOK, models.UnreadCountResponse{Count: count})
}

// MarkRead godoc
// @Summary Mark a notification read
// @Tags notifications
// @Produce json
// @Security BearerAuth
// @Param id path int true "Notification ID"
// @Success 200 {object} models.MessageResponse
// @Failure 400 {object} models.ErrorResponse
// @Failure 401 {object} models.ErrorResponse
// @Failure 404 {object} models.ErrorResponse
// @Failure 500 {object} models.ErrorResponse
// @Router /notifications/{id}/read [post]
func (h *NotificationHandler) MarkRead(c *gin.Context) {
	userID := c.MustGet(middleware.ContextUserID).(uint)

	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil || id == 0 {
		errorJSON(c, http.StatusBadRequest, response.ErrCodeParamInvalid, "invalid notification id")
		return
	}

	if err := h.service.MarkRead(c.Request.Context(), uint(id), userID); err != nil {
		if errors.Is(err, services.ErrNotificationNotFound) {
			errorJSON(c, http.StatusNotFound, response.ErrCodeNotFound, "")
			return
		}
		h.logger.Error("Failed to mark notification read", "userID", userID, "notificationID", id, "error", err)
		errorJSON(c, http.StatusInternalServerError, response.ErrCodeInternal, "")
		return
	}
	c.JSON(http.StatusOK, models.MessageResponse{Message: "Notification marked as read"})
}

// MarkAllRead godoc
// @Summary Mark every notification read
// @Tags notifications
// @Produce json
// @Security BearerAuth
// @Success 200 {object} models.MessageResponse
// @Failure 401 {object} models.ErrorResponse
// @Failure 500 {object} models.ErrorResponse
// @Router /notifications/read-all [post]
func (h *NotificationHandler) MarkAllRead(c *gin.Context) {
	userID := c.MustGet(middleware.ContextUserID).(uint)

	changed, err := h.service.MarkAllRead(c.Request.Context(), userID)
	if err != nil {
		h.logger.Error("Failed to mark notifications read", "userID", userID, "error", err)
		errorJSON(c, http.StatusInternalServerError, response.ErrCodeInternal, "")
		return
	}
	c.JSON(http.StatusOK, models.MessageResponse{Message: strconv.FormatInt(changed, 10) + " notifications marked as read"})
}

func queryInt(c *gin.Context, key string, fallback int) (int, error) {
	raw := c.Query(key)
	if raw == "" {
		return fallback, nil
	}
	return strconv.Atoi(raw)
}

func errorJSON(c *gin.Context, status, code int, details string) {
	c.JSON(status, models.ErrorResponse{
		Code:    code,
		Message: response.Msg(code),
		Details: details,
	})
}
