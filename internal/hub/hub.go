// Package hub serializes all chat activity onto a single goroutine.
//
// Connection callbacks (open, inbound frame, close) and directory reads are
// posted to the hub as events and handled one at a time, to completion, by
// Run. The chat service and the registry it owns are therefore never
// touched concurrently.
package hub

import (
	"context"
	"errors"
	"sync"

	"github.com/bandsite/fan-chat/internal/domain"
	"github.com/bandsite/fan-chat/internal/service"
	"github.com/bandsite/fan-chat/pkg/log"
)

var ErrHubStopped = errors.New("hub stopped")

// Conn is a connection the hub can tear down.
type Conn interface {
	domain.Connection
	// Close stops further sends. It must be idempotent.
	Close()
}

type eventKind int

const (
	eventOpen eventKind = iota
	eventFrame
	eventClose
	eventDirectory
)

type event struct {
	kind  eventKind
	ctx   context.Context
	conn  Conn
	data  []byte
	reply chan []domain.DirectoryEntry
}

type Hub struct {
	service service.ChatService
	conns   map[string]Conn // open connections, joined or not
	events  chan event
	quit    chan struct{}
	done    chan struct{}
	stop    sync.Once
}

// NewHub creates a hub driving svc. buffer is the event queue length.
func NewHub(svc service.ChatService, buffer int) *Hub {
	return &Hub{
		service: svc,
		conns:   make(map[string]Conn),
		events:  make(chan event, buffer),
		quit:    make(chan struct{}),
		done:    make(chan struct{}),
	}
}

// Run processes events until ctx is done or Stop is called. All open
// connections are closed on the way out.
func (h *Hub) Run(ctx context.Context) error {
	defer close(h.done)
	l := log.L()
	l.Info().Msg("hub started")

	for {
		select {
		case <-ctx.Done():
			h.shutdown()
			return nil
		case <-h.quit:
			h.shutdown()
			return nil
		case ev := <-h.events:
			h.handle(ev)
		}
	}
}

func (h *Hub) handle(ev event) {
	l := log.Ctx(ev.ctx)

	switch ev.kind {
	case eventOpen:
		h.conns[ev.conn.ID()] = ev.conn
		if err := h.service.HandleOpen(ev.ctx, ev.conn); err != nil {
			l.Error().Err(err).Msg("open failed")
		}
		l.Debug().Int("connections", len(h.conns)).Msg("connection registered with hub")

	case eventFrame:
		if err := h.service.HandleFrame(ev.ctx, ev.conn, ev.data); err != nil {
			l.Error().Err(err).Msg("frame handling failed")
		}

	case eventClose:
		if _, ok := h.conns[ev.conn.ID()]; !ok {
			return
		}
		delete(h.conns, ev.conn.ID())
		ev.conn.Close()
		if err := h.service.HandleClose(ev.ctx, ev.conn); err != nil {
			l.Error().Err(err).Msg("close failed")
		}
		l.Debug().Int("connections", len(h.conns)).Msg("connection removed from hub")

	case eventDirectory:
		ev.reply <- h.service.Directory()
	}
}

func (h *Hub) shutdown() {
	l := log.L()
	l.Info().Int("connections", len(h.conns)).Msg("hub stopping, closing connections")
	for id, c := range h.conns {
		c.Close()
		delete(h.conns, id)
	}
}

// Stop asks Run to return and waits for it.
func (h *Hub) Stop() {
	h.stop.Do(func() { close(h.quit) })
	<-h.done
}

// Done is closed once Run has returned.
func (h *Hub) Done() <-chan struct{} {
	return h.done
}

func (h *Hub) post(ev event) error {
	if ev.ctx == nil {
		ev.ctx = context.Background()
	}
	select {
	case <-h.done:
		return ErrHubStopped
	default:
	}
	select {
	case h.events <- ev:
		return nil
	case <-h.done:
		return ErrHubStopped
	}
}

// Open announces a new connection.
func (h *Hub) Open(ctx context.Context, conn Conn) error {
	return h.post(event{kind: eventOpen, ctx: ctx, conn: conn})
}

// Deliver hands one inbound frame to the hub.
func (h *Hub) Deliver(ctx context.Context, conn Conn, data []byte) error {
	return h.post(event{kind: eventFrame, ctx: ctx, conn: conn, data: data})
}

// Close announces that a connection's channel is gone. Closing an unknown
// or already closed connection is a no-op.
func (h *Hub) Close(ctx context.Context, conn Conn) error {
	return h.post(event{kind: eventClose, ctx: ctx, conn: conn})
}

// Directory returns a snapshot of the joined participants.
func (h *Hub) Directory(ctx context.Context) ([]domain.DirectoryEntry, error) {
	reply := make(chan []domain.DirectoryEntry, 1)
	if err := h.post(event{kind: eventDirectory, ctx: ctx, reply: reply}); err != nil {
		return nil, err
	}

	select {
	case entries := <-reply:
		return entries, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-h.done:
		return nil, ErrHubStopped
	}
}
