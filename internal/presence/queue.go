package presence

import (
	"context"
	"errors"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/bandsite/fan-chat/internal/domain"
	"github.com/bandsite/fan-chat/pkg/log"
)

// ErrQueueFull is returned when an update is dropped because the backing
// store is not keeping up.
var ErrQueueFull = errors.New("presence queue full")

const opTimeout = 2 * time.Second

type op struct {
	remove bool
	entry  domain.DirectoryEntry
}

// QueuedMirror decouples the chat loop from a slow backing mirror. Updates
// are queued without blocking and applied in order by Run.
type QueuedMirror struct {
	inner Mirror
	ops   chan op
}

func NewQueuedMirror(inner Mirror, size int) *QueuedMirror {
	return &QueuedMirror{
		inner: inner,
		ops:   make(chan op, size),
	}
}

func (q *QueuedMirror) Upsert(_ context.Context, entry domain.DirectoryEntry) error {
	return q.enqueue(op{entry: entry})
}

func (q *QueuedMirror) Remove(_ context.Context, id string) error {
	return q.enqueue(op{remove: true, entry: domain.DirectoryEntry{ID: id}})
}

func (q *QueuedMirror) enqueue(o op) error {
	select {
	case q.ops <- o:
		return nil
	default:
		return ErrQueueFull
	}
}

// Run applies queued updates and runs the inner mirror's heartbeat until ctx
// is done.
func (q *QueuedMirror) Run(ctx context.Context) error {
	g, gCtx := errgroup.WithContext(ctx)

	g.Go(func() error {
		return q.inner.Run(gCtx)
	})

	g.Go(func() error {
		l := log.L()
		for {
			select {
			case <-gCtx.Done():
				return nil
			case o := <-q.ops:
				if err := q.apply(gCtx, o); err != nil {
					l.Warn().Err(err).Str(log.FieldConnID, o.entry.ID).Msg("presence update failed")
				}
			}
		}
	})

	return g.Wait()
}

func (q *QueuedMirror) apply(ctx context.Context, o op) error {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	if o.remove {
		return q.inner.Remove(ctx, o.entry.ID)
	}
	return q.inner.Upsert(ctx, o.entry)
}

func (q *QueuedMirror) Close() error {
	return q.inner.Close()
}
