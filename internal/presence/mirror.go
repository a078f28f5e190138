// Package presence mirrors the chat directory to an external store so that
// other processes of the site can show who is online without talking to the
// chat server.
package presence

import (
	"context"

	"github.com/bandsite/fan-chat/internal/domain"
)

// Mirror receives directory changes. Implementations must not block the
// caller for long; failures are reported but never affect the chat.
type Mirror interface {
	Upsert(ctx context.Context, entry domain.DirectoryEntry) error
	Remove(ctx context.Context, id string) error
	// Run keeps the mirrored data alive until ctx is done.
	Run(ctx context.Context) error
	Close() error
}

// NoopMirror is used when no external store is configured.
type NoopMirror struct{}

func (NoopMirror) Upsert(context.Context, domain.DirectoryEntry) error { return nil }
func (NoopMirror) Remove(context.Context, string) error                { return nil }
func (NoopMirror) Close() error                                        { return nil }

func (NoopMirror) Run(ctx context.Context) error {
	<-ctx.Done()
	return nil
}
