package handler

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/bandsite/fan-chat/internal/domain"
	"github.com/bandsite/fan-chat/internal/hub"
	"github.com/bandsite/fan-chat/pkg/log"
	"github.com/bandsite/fan-chat/pkg/response"
)

// DirectorySource provides a point-in-time list of joined participants.
type DirectorySource interface {
	Directory(ctx context.Context) ([]domain.DirectoryEntry, error)
}

// HTTPHandler exposes the chat directory to the rest of the site.
type HTTPHandler struct {
	source DirectorySource
}

func NewHTTPHandler(source DirectorySource) *HTTPHandler {
	return &HTTPHandler{source: source}
}

// DirectoryResponse is the payload of GET /api/v1/chat/directory.
type DirectoryResponse struct {
	Users []domain.DirectoryEntry `json:"users"`
	Total int                     `json:"total"`
}

// OnlineResponse is the payload of GET /api/v1/chat/online.
type OnlineResponse struct {
	Online int `json:"online"`
}

func (h *HTTPHandler) RegisterRoutes(r gin.IRouter) {
	chat := r.Group("/api/v1/chat")
	{
		chat.GET("/directory", h.GetDirectory)
		chat.GET("/online", h.GetOnline)
	}
	r.GET("/health", h.HealthCheck)
}

// GetDirectory handles GET /api/v1/chat/directory
func (h *HTTPHandler) GetDirectory(c *gin.Context) {
	entries, ok := h.directory(c)
	if !ok {
		return
	}
	response.Success(c, DirectoryResponse{Users: entries, Total: len(entries)})
}

// GetOnline handles GET /api/v1/chat/online
func (h *HTTPHandler) GetOnline(c *gin.Context) {
	entries, ok := h.directory(c)
	if !ok {
		return
	}
	l := log.Ctx(c.Request.Context())
	l.Debug().Int(log.FieldOnline, len(entries)).Msg("online count served")
	response.Success(c, OnlineResponse{Online: len(entries)})
}

// HealthCheck handles GET /health
func (h *HTTPHandler) HealthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func (h *HTTPHandler) directory(c *gin.Context) ([]domain.DirectoryEntry, bool) {
	ctx := c.Request.Context()
	entries, err := h.source.Directory(ctx)
	if err != nil {
		l := log.Ctx(ctx)
		l.Error().Err(err).Msg("failed to read chat directory")
		if errors.Is(err, hub.ErrHubStopped) {
			response.ServiceUnavailable(c, "chat is shutting down")
		} else {
			response.InternalError(c, "failed to read chat directory")
		}
		return nil, false
	}
	if entries == nil {
		entries = []domain.DirectoryEntry{}
	}
	return entries, true
}
