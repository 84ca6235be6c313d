package handlers

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"notify-service/internal/models"
	"notify-service/internal/services"
	"notify-service/pkg/response"

	"github.com/gin-gonic/gin"
)

// EventIngester is satisfied by services.EventService.
type EventIngester interface {
	Handle(ctx context.Context, ev *models.DomainEvent) (services.EventResult, error)
}

type EventHandler struct {
	events EventIngester
	logger *slog.Logger
}

func NewEventHandler(events EventIngester, logger *slog.Logger) *EventHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &EventHandler{events: events, logger: logger}
}

// IngestEvent godoc
// @Summary Ingest a domain event
// @Description Called by the services owning posts, follows and messages after a mutation commits.
// @Description The response never depends on whether a push reached anyone.
// @Tags internal
// @Accept json
// @Produce json
// @Param X-Internal-Key header string true "Shared service key"
// @Param request body models.DomainEvent true "Domain event"
// @Success 202 {object} models.EventAcceptedResponse
// @Failure 400 {object} models.ErrorResponse
// @Failure 403 {object} models.ErrorResponse
// @Failure 422 {object} models.ErrorResponse
// @Router /internal/events [post]
func (h *EventHandler) IngestEvent(c *gin.Context) {
	var ev models.DomainEvent
	if err := c.ShouldBindJSON(&ev); err != nil {
		errorJSON(c, http.StatusBadRequest, response.ErrCodeParamInvalid, err.Error())
		return
	}

	result, err := h.events.Handle(c.Request.Context(), &ev)
	if err != nil {
		if errors.Is(err, services.ErrInvalidEvent) {
			errorJSON(c, http.StatusUnprocessableEntity, response.ErrCodeEventRejected, err.Error())
			return
		}
		h.logger.Error("Failed to ingest event", "type", ev.Type, "error", err)
		errorJSON(c, http.StatusInternalServerError, response.ErrCodeInternal, "")
		return
	}

	status := "accepted"
	if result.Suppressed {
		status = "suppressed"
	}
	c.JSON(http.StatusAccepted, models.EventAcceptedResponse{
		Status:     status,
		Recipients: result.Recipients,
		Persisted:  result.Persisted,
	})
}
