package service

import (
	"context"

	"github.com/bandsite/fan-chat/internal/domain"
)

// ChatService is the per-connection lifecycle of the chat. Implementations
// are not safe for concurrent use; the hub serializes every call.
type ChatService interface {
	HandleOpen(ctx context.Context, conn domain.Connection) error
	HandleFrame(ctx context.Context, conn domain.Connection, data []byte) error
	HandleClose(ctx context.Context, conn domain.Connection) error
	Directory() []domain.DirectoryEntry
}
