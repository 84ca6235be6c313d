package handlers

import (
	"net/http"

	"notify-service/internal/models"
	ws "notify-service/internal/websocket"

	"github.com/gin-gonic/gin"
)

type WSHandler struct {
	server   *ws.Server
	registry *ws.Registry
}

func NewWSHandler(server *ws.Server, registry *ws.Registry) *WSHandler {
	return &WSHandler{server: server, registry: registry}
}

// HandleWebSocket godoc
// @Summary Notification stream
// @Description Upgrade to a WebSocket that receives live notifications for the token's user.
// @Description A bad token gets an error frame and a 1008 close. Send "ping" to receive a pong.
// @Tags websocket
// @Param token query string false "JWT; may also be sent as Authorization: Bearer"
// @Success 101 "Switching Protocols - WebSocket connection established"
// @Failure 429 {object} models.ErrorResponse "Too many handshakes from this IP"
// @Router /ws/notifications [get]
func (h *WSHandler) HandleWebSocket(c *gin.Context) {
	h.server.ServeWS(c.Writer, c.Request)
}

// GetConnectedUsers godoc
// @Summary Connected users
// @Description List the ids of users with at least one open notification stream on this instance
// @Tags websocket
// @Produce json
// @Success 200 {object} models.ConnectedUsersResponse
// @Router /ws/connected-users [get]
func (h *WSHandler) GetConnectedUsers(c *gin.Context) {
	users := h.registry.OnlineUsers()
	c.JSON(http.StatusOK, models.ConnectedUsersResponse{
		ConnectedUsers: users,
		Total:          len(users),
	})
}
