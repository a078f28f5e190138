package domain

import (
	"encoding/json"
	"errors"
	"fmt"
)

var (
	ErrMalformedFrame = errors.New("malformed frame")
	ErrUnknownType    = errors.New("unknown frame type")
	ErrMissingField   = errors.New("missing required field")
)

// DecodeFrame parses one inbound text frame into its typed form.
func DecodeFrame(data []byte) (Frame, error) {
	var base BaseMessage
	if err := json.Unmarshal(data, &base); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedFrame, err)
	}
	if base.Type == nil {
		return nil, fmt.Errorf("%w: no type", ErrMalformedFrame)
	}

	switch *base.Type {
	case MsgTypeJoin:
		var f JoinFrame
		if err := json.Unmarshal(data, &f); err != nil {
			return nil, fmt.Errorf("%w: join: %v", ErrMalformedFrame, err)
		}
		return f, nil

	case MsgTypeMessage:
		var raw struct {
			Content *string `json:"content"`
		}
		if err := json.Unmarshal(data, &raw); err != nil {
			return nil, fmt.Errorf("%w: message: %v", ErrMalformedFrame, err)
		}
		if raw.Content == nil {
			return nil, fmt.Errorf("%w: message.content", ErrMissingField)
		}
		return ChatFrame{Content: *raw.Content}, nil

	case MsgTypeReaction:
		var f ReactionFrame
		if err := json.Unmarshal(data, &f); err != nil {
			return nil, fmt.Errorf("%w: reaction: %v", ErrMalformedFrame, err)
		}
		if f.MessageID == "" {
			return nil, fmt.Errorf("%w: reaction.messageId", ErrMissingField)
		}
		if f.Reaction == "" {
			return nil, fmt.Errorf("%w: reaction.reaction", ErrMissingField)
		}
		return f, nil

	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownType, *base.Type)
	}
}

// Encode serializes an outbound message.
func Encode(msg *ProtocolMessage) ([]byte, error) {
	data, err := json.Marshal(msg)
	if err != nil {
		return nil, fmt.Errorf("encode %s frame: %w", msg.Type, err)
	}
	return data, nil
}
