package domain

// Frame types shared by both directions.
const (
	MsgTypeJoin     = "join"
	MsgTypeLeave    = "leave"
	MsgTypeMessage  = "message"
	MsgTypeSystem   = "system"
	MsgTypeReaction = "reaction"
)

// System texts sent directly to one connection.
const (
	TextGreeting     = "Conectado al chat. Por favor, establece tu nombre de usuario."
	TextJoinFirst    = "Debes unirte al chat antes de enviar mensajes."
	textWelcomeStart = "¡Bienvenido al chat, "
	textWelcomeEnd   = "!"
)

// WelcomeText is the direct confirmation sent after a successful join.
func WelcomeText(username string) string {
	return textWelcomeStart + username + textWelcomeEnd
}

// BaseMessage is the base structure for all WebSocket messages.
type BaseMessage struct {
	Type *string `json:"type"`
}

// Client -> Server frames. Frame is sealed: only the types below implement it.

type Frame interface {
	Type() string
	isFrame()
}

type JoinFrame struct {
	Username string `json:"username,omitempty"`
	IsAdmin  bool   `json:"isAdmin,omitempty"`
	// AdminToken backs IsAdmin when the server verifies admin claims.
	AdminToken string `json:"adminToken,omitempty"`
}

type ChatFrame struct {
	Content string `json:"content"`
}

type ReactionFrame struct {
	MessageID string `json:"messageId"`
	Reaction  string `json:"reaction"`
}

func (JoinFrame) Type() string     { return MsgTypeJoin }
func (ChatFrame) Type() string     { return MsgTypeMessage }
func (ReactionFrame) Type() string { return MsgTypeReaction }

func (JoinFrame) isFrame()     {}
func (ChatFrame) isFrame()     {}
func (ReactionFrame) isFrame() {}

// Server -> Client frames

// ProtocolMessage is the outbound wire shape. Timestamp is stamped by the
// dispatcher at send time.
type ProtocolMessage struct {
	Type      string  `json:"type"`
	UserID    string  `json:"userId"`
	Username  string  `json:"username"`
	Timestamp int64   `json:"timestamp"`
	Content   *string `json:"content,omitempty"`
	MessageID string  `json:"messageId,omitempty"`
	Reaction  string  `json:"reaction,omitempty"`
	IsAdmin   *bool   `json:"isAdmin,omitempty"`
}

func NewSystemMessage(content string) *ProtocolMessage {
	return &ProtocolMessage{
		Type:     MsgTypeSystem,
		UserID:   SystemUserID,
		Username: SystemUsername,
		Content:  &content,
	}
}

func NewJoinMessage(id Identity) *ProtocolMessage {
	isAdmin := id.IsAdmin
	return &ProtocolMessage{
		Type:     MsgTypeJoin,
		UserID:   id.ID,
		Username: id.Username,
		IsAdmin:  &isAdmin,
	}
}

func NewChatMessage(id Identity, messageID, content string) *ProtocolMessage {
	isAdmin := id.IsAdmin
	return &ProtocolMessage{
		Type:      MsgTypeMessage,
		UserID:    id.ID,
		Username:  id.Username,
		Content:   &content,
		MessageID: messageID,
		IsAdmin:   &isAdmin,
	}
}

func NewReactionMessage(userID, username, messageID, reaction string) *ProtocolMessage {
	return &ProtocolMessage{
		Type:      MsgTypeReaction,
		UserID:    userID,
		Username:  username,
		MessageID: messageID,
		Reaction:  reaction,
	}
}

func NewLeaveMessage(id Identity) *ProtocolMessage {
	return &ProtocolMessage{
		Type:     MsgTypeLeave,
		UserID:   id.ID,
		Username: id.Username,
	}
}
