// Package conversation picks the prompt text out of a chat history.
package conversation

import (
	"errors"
	"net/http"
)

// Role identifies the author of a message.
type Role string

const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Message is a single turn in a conversation.
type Message struct {
	Role    Role   `json:"role" validate:"required,oneof=system user assistant"`
	Content string `json:"content"`
}

// noUserMessageError is a client-input error: the caller sent a history with
// no user-authored turn. It carries a 400 status for the HTTP layer.
type noUserMessageError struct{}

func (noUserMessageError) Error() string   { return "No user message found in messages[]" }
func (noUserMessageError) StatusCode() int { return http.StatusBadRequest }

// ErrNoUserMessage is returned when a conversation holds no user message.
var ErrNoUserMessage error = noUserMessageError{}

// IsNoUserMessage reports whether err is (or wraps) ErrNoUserMessage.
func IsNoUserMessage(err error) bool {
	var target noUserMessageError
	return errors.As(err, &target)
}

// LatestUserMessage scans newest to oldest and returns the content of the
// first user message. Earlier turns are ignored.
func LatestUserMessage(msgs []Message) (string, error) {
	for i := len(msgs) - 1; i >= 0; i-- {
		if msgs[i].Role == RoleUser {
			return msgs[i].Content, nil
		}
	}
	return "", ErrNoUserMessage
}
