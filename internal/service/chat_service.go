package service

import (
	"context"
	"errors"
	"strings"

	"github.com/google/uuid"

	"github.com/bandsite/fan-chat/internal/audit"
	"github.com/bandsite/fan-chat/internal/broadcast"
	"github.com/bandsite/fan-chat/internal/domain"
	"github.com/bandsite/fan-chat/internal/presence"
	"github.com/bandsite/fan-chat/internal/registry"
	"github.com/bandsite/fan-chat/pkg/jwt"
	"github.com/bandsite/fan-chat/pkg/log"
)

// connState is where a connection is in its lifecycle. A closed
// connection has no state at all: ids are never reused, so frames racing a
// close find nothing and are ignored.
type connState int

const (
	stateUnjoined connState = iota
	stateJoined
)

// AdminVerifier checks the token a client presents to back its isAdmin
// claim.
type AdminVerifier interface {
	ValidateAdminToken(token string) (*jwt.Claims, error)
}

// Options configures a chat service. Zero values are usable.
type Options struct {
	// Verifier, when set, makes isAdmin require a valid admin token.
	// When nil the client-asserted flag is trusted as is.
	Verifier AdminVerifier
	Mirror   presence.Mirror
	Clock    broadcast.Clock
	NewID    func() string
}

type chatService struct {
	registry   *registry.Registry
	dispatcher *broadcast.Dispatcher
	mirror     presence.Mirror
	verifier   AdminVerifier
	newID      func() string
	states     map[string]connState
}

// NewChatService builds the lifecycle handler around its own registry.
func NewChatService(opts Options) ChatService {
	reg := registry.New()

	svc := &chatService{
		registry:   reg,
		dispatcher: broadcast.NewDispatcher(reg, opts.Clock),
		mirror:     opts.Mirror,
		verifier:   opts.Verifier,
		newID:      opts.NewID,
		states:     make(map[string]connState),
	}
	if svc.mirror == nil {
		svc.mirror = presence.NoopMirror{}
	}
	if svc.newID == nil {
		svc.newID = uuid.NewString
	}
	return svc
}

func (s *chatService) HandleOpen(ctx context.Context, conn domain.Connection) error {
	if _, seen := s.states[conn.ID()]; seen {
		return nil
	}
	s.states[conn.ID()] = stateUnjoined

	audit.Log(ctx, audit.ActionConnect, conn.ID(), "", "connection opened")
	s.direct(ctx, conn, domain.NewSystemMessage(domain.TextGreeting))
	return nil
}

func (s *chatService) HandleFrame(ctx context.Context, conn domain.Connection, data []byte) error {
	state, ok := s.states[conn.ID()]
	if !ok {
		return nil
	}

	frame, err := domain.DecodeFrame(data)
	if err != nil {
		l := log.Ctx(ctx)
		l.Warn().Err(err).Int("bytes", len(data)).Msg("dropping inbound frame")
		return nil
	}

	switch f := frame.(type) {
	case domain.JoinFrame:
		return s.handleJoin(ctx, conn, f)
	case domain.ChatFrame:
		return s.handleChat(ctx, conn, state, f)
	case domain.ReactionFrame:
		return s.handleReaction(ctx, conn, f)
	default:
		return errors.New("unhandled frame type " + frame.Type())
	}
}

func (s *chatService) handleJoin(ctx context.Context, conn domain.Connection, f domain.JoinFrame) error {
	username := strings.TrimSpace(f.Username)
	if username == "" {
		username = domain.DefaultUsername(conn.ID())
	}

	id := domain.Identity{
		ID:       conn.ID(),
		Username: username,
		IsAdmin:  s.resolveAdmin(ctx, conn, username, f),
	}

	s.registry.Register(id.ID, registry.Entry{Identity: id, Conn: conn})
	s.states[id.ID] = stateJoined

	if err := s.mirror.Upsert(ctx, id.Entry()); err != nil {
		l := log.Ctx(ctx)
		l.Warn().Err(err).Msg("presence mirror upsert failed")
	}

	audit.LogWithDetail(ctx, audit.ActionJoin, id.ID, id.Username, adminDetail(id.IsAdmin), "user joined")

	if _, err := s.dispatcher.Broadcast(ctx, domain.NewJoinMessage(id)); err != nil {
		return err
	}
	s.direct(ctx, conn, domain.NewSystemMessage(domain.WelcomeText(id.Username)))
	return nil
}

func (s *chatService) handleChat(ctx context.Context, conn domain.Connection, state connState, f domain.ChatFrame) error {
	if state != stateJoined {
		audit.Log(ctx, audit.ActionRejected, conn.ID(), "", "message before join")
		s.direct(ctx, conn, domain.NewSystemMessage(domain.TextJoinFirst))
		return nil
	}

	entry, ok := s.registry.Lookup(conn.ID())
	if !ok {
		return errors.New("joined connection missing from registry")
	}

	msgID := s.newID()
	audit.LogWithDetail(ctx, audit.ActionSendMessage, conn.ID(), entry.Identity.Username, msgID, "chat message")

	_, err := s.dispatcher.Broadcast(ctx, domain.NewChatMessage(entry.Identity, msgID, f.Content))
	return err
}

// handleReaction does not require a join and does not check that the
// message id was ever sent.
func (s *chatService) handleReaction(ctx context.Context, conn domain.Connection, f domain.ReactionFrame) error {
	var username string
	if entry, ok := s.registry.Lookup(conn.ID()); ok {
		username = entry.Identity.Username
	}

	audit.LogWithDetail(ctx, audit.ActionReaction, conn.ID(), username, f.MessageID, "reaction")

	_, err := s.dispatcher.Broadcast(ctx, domain.NewReactionMessage(conn.ID(), username, f.MessageID, f.Reaction))
	return err
}

func (s *chatService) HandleClose(ctx context.Context, conn domain.Connection) error {
	if _, ok := s.states[conn.ID()]; !ok {
		return nil
	}
	delete(s.states, conn.ID())

	entry, joined := s.registry.Lookup(conn.ID())
	if !joined {
		audit.Log(ctx, audit.ActionDisconnect, conn.ID(), "", "connection closed before join")
		return nil
	}
	s.registry.Unregister(conn.ID())

	if err := s.mirror.Remove(ctx, conn.ID()); err != nil {
		l := log.Ctx(ctx)
		l.Warn().Err(err).Msg("presence mirror remove failed")
	}

	audit.Log(ctx, audit.ActionLeave, conn.ID(), entry.Identity.Username, "user left")
	_, err := s.dispatcher.Broadcast(ctx, domain.NewLeaveMessage(entry.Identity))
	return err
}

func (s *chatService) Directory() []domain.DirectoryEntry {
	return s.registry.Snapshot()
}

func (s *chatService) resolveAdmin(ctx context.Context, conn domain.Connection, username string, f domain.JoinFrame) bool {
	if !f.IsAdmin {
		return false
	}
	if s.verifier == nil {
		l := log.Ctx(ctx)
		l.Warn().Str(log.FieldUsername, username).Msg("trusting unverified admin claim")
		return true
	}
	if _, err := s.verifier.ValidateAdminToken(f.AdminToken); err != nil {
		audit.LogWithDetail(ctx, audit.ActionAdminDowngrade, conn.ID(), username, err.Error(), "admin claim rejected")
		return false
	}
	return true
}

func (s *chatService) direct(ctx context.Context, conn domain.Connection, msg *domain.ProtocolMessage) {
	if err := s.dispatcher.Direct(ctx, conn, msg); err != nil {
		l := log.Ctx(ctx)
		l.Debug().Err(err).Str(log.FieldFrameType, msg.Type).Msg("direct send skipped")
	}
}

func adminDetail(isAdmin bool) string {
	if isAdmin {
		return "admin"
	}
	return "fan"
}
