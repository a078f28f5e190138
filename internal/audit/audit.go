package audit

import (
	"context"

	"github.com/bandsite/fan-chat/pkg/log"
)

// Audit actions for the chat.
const (
	ActionConnect        = "chat.connect"
	ActionJoin           = "chat.join"
	ActionAdminDowngrade = "chat.admin_downgraded"
	ActionSendMessage    = "chat.send_message"
	ActionRejected       = "chat.rejected"
	ActionReaction       = "chat.reaction"
	ActionLeave          = "chat.leave"
	ActionDisconnect     = "chat.disconnect"
)

// Field constants for audit entries.
const (
	FieldAction = "action"
	FieldDetail = "detail"
)

// Log emits a structured audit log entry via the context logger.
func Log(ctx context.Context, action, connID, username, msg string) {
	l := log.Ctx(ctx)
	l.Info().
		Str(log.FieldLogType, log.LogTypeAudit).
		Str(FieldAction, action).
		Str(log.FieldConnID, connID).
		Str(log.FieldUsername, username).
		Msg(msg)
}

// LogWithDetail emits an audit log with extra detail field.
func LogWithDetail(ctx context.Context, action, connID, username, detail, msg string) {
	l := log.Ctx(ctx)
	l.Info().
		Str(log.FieldLogType, log.LogTypeAudit).
		Str(FieldAction, action).
		Str(log.FieldConnID, connID).
		Str(log.FieldUsername, username).
		Str(FieldDetail, detail).
		Msg(msg)
}
