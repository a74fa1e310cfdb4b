package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/yungbote/studyforge-backend/internal/http/middleware"
	"github.com/yungbote/studyforge-backend/internal/platform/logger"
	"github.com/yungbote/studyforge-backend/internal/realtime"
)

// RealtimeHandler streams the caller's document events over SSE. Each
// connection subscribes only to its own user channel.
type RealtimeHandler struct {
	log *logger.Logger
	hub *realtime.Hub
}

func NewRealtimeHandler(log *logger.Logger, hub *realtime.Hub) *RealtimeHandler {
	return &RealtimeHandler{log: log.With("handler", "RealtimeHandler"), hub: hub}
}

func (h *RealtimeHandler) Stream(c *gin.Context) {
	userID := middleware.UserID(c)
	if userID == uuid.Nil {
		c.AbortWithStatus(http.StatusUnauthorized)
		return
	}
	client := h.hub.NewClient(userID)
	h.hub.AddChannel(client, realtime.UserChannel(userID))
	h.log.Debug("SSE stream open", "client_id", client.ID)
	defer h.hub.CloseClient(client)

	h.hub.Serve(c.Writer, c.Request, client)
}
