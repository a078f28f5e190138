package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/bandsite/fan-chat/internal/config"
	"github.com/bandsite/fan-chat/internal/hub"
	"github.com/bandsite/fan-chat/pkg/log"
)

type WSHandler struct {
	hub      *hub.Hub
	wsCfg    config.WebSocketConfig
	upgrader websocket.Upgrader
}

func NewWSHandler(h *hub.Hub, wsCfg config.WebSocketConfig) *WSHandler {
	origins := NewOriginPolicy(wsCfg.AllowedOrigins)
	return &WSHandler{
		hub:   h,
		wsCfg: wsCfg,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     origins.Check,
		},
	}
}

// HandleWebSocket upgrades the request and hands the connection to the hub
// under a fresh server-side id.
func (h *WSHandler) HandleWebSocket(c *gin.Context) {
	l := log.Ctx(c.Request.Context())

	select {
	case <-h.hub.Done():
		c.AbortWithStatus(http.StatusServiceUnavailable)
		return
	default:
	}

	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		// the upgrader has already written the error response
		l.Warn().Err(err).Msg("websocket upgrade failed")
		return
	}

	// The connection outlives the request; keep its logger, drop its cancel.
	ctx := context.WithoutCancel(c.Request.Context())
	client := hub.NewClient(ctx, uuid.NewString(), h.hub, conn, h.wsCfg)
	if err := client.Start(); err != nil {
		l.Warn().Err(err).Msg("hub refused connection")
		return
	}
	l.Info().Str(log.FieldConnID, client.ID()).Msg("websocket connected")
}

func (h *WSHandler) RegisterRoutes(r gin.IRoutes) {
	r.GET(h.wsCfg.Path, h.HandleWebSocket)
}
