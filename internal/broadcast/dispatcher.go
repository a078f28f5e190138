// Package broadcast delivers outbound protocol messages to chat connections.
package broadcast

import (
	"context"

	"github.com/bandsite/fan-chat/internal/domain"
	"github.com/bandsite/fan-chat/pkg/log"
)

// Source lists the connections a broadcast goes to. The returned slice
// must be a snapshot the caller may iterate while the source changes.
type Source interface {
	Connections() []domain.Connection
}

// Result summarises one broadcast pass.
type Result struct {
	Delivered int
	Skipped   int
}

// Dispatcher stamps, encodes and sends protocol messages. Sends are
// fire-and-forget: a connection that refuses a frame is skipped.
type Dispatcher struct {
	source Source
	clock  Clock
}

func NewDispatcher(source Source, clock Clock) *Dispatcher {
	if clock == nil {
		clock = SystemClock{}
	}
	return &Dispatcher{
		source: source,
		clock:  newMonotonicClock(clock),
	}
}

// Broadcast sends msg to every connection currently in the source. The
// message is serialized once for all recipients.
func (d *Dispatcher) Broadcast(ctx context.Context, msg *domain.ProtocolMessage) (Result, error) {
	msg.Timestamp = d.clock.NowMillis()
	data, err := domain.Encode(msg)
	if err != nil {
		return Result{}, err
	}

	l := log.Ctx(ctx)
	var res Result
	for _, conn := range d.source.Connections() {
		if err := conn.Send(data); err != nil {
			res.Skipped++
			l.Debug().Str("recipient", conn.ID()).Str(log.FieldFrameType, msg.Type).Err(err).Msg("skipping unwritable recipient")
			continue
		}
		res.Delivered++
	}
	return res, nil
}

// Direct sends msg to conn only.
func (d *Dispatcher) Direct(ctx context.Context, conn domain.Connection, msg *domain.ProtocolMessage) error {
	msg.Timestamp = d.clock.NowMillis()
	data, err := domain.Encode(msg)
	if err != nil {
		return err
	}
	return conn.Send(data)
}
