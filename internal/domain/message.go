// Package domain contains core domain types for the portfolio chat.
package domain

import (
	"time"

	"github.com/google/uuid"
)

// Sender identifies who authored a message.
type Sender string

const (
	// SenderUser is a visitor turn.
	SenderUser Sender = "user"
	// SenderAssistant is a model (or synthetic) turn.
	SenderAssistant Sender = "assistant"
)

// Valid reports whether s is one of the known senders.
func (s Sender) Valid() bool {
	return s == SenderUser || s == SenderAssistant
}

// Label returns the role label used when rendering prompt history.
func (s Sender) Label() string {
	if s == SenderUser {
		return "User"
	}
	return "Assistant"
}

// Message is a single transcript entry. Treat it as a value: it is never
// modified after construction.
type Message struct {
	ID        string    `json:"id"`
	Text      string    `json:"text"`
	Sender    Sender    `json:"sender"`
	Timestamp time.Time `json:"timestamp"`
}

// NewMessage builds a message with a time-ordered identifier.
func NewMessage(sender Sender, text string, now time.Time) Message {
	return Message{
		ID:        newID(),
		Text:      text,
		Sender:    sender,
		Timestamp: now,
	}
}

// NewUserMessage builds a visitor message.
func NewUserMessage(text string, now time.Time) Message {
	return NewMessage(SenderUser, text, now)
}

// NewAssistantMessage builds an assistant message.
func NewAssistantMessage(text string, now time.Time) Message {
	return NewMessage(SenderAssistant, text, now)
}

// Turn converts the message into its wire history shape.
func (m Message) Turn() HistoryTurn {
	return HistoryTurn{Role: m.Sender, Content: m.Text}
}

// HistoryTurn is one entry of conversationHistory on the wire.
type HistoryTurn struct {
	Role    Sender `json:"role"`
	Content string `json:"content"`
}

// Turns converts messages into wire history, preserving order.
func Turns(msgs []Message) []HistoryTurn {
	turns := make([]HistoryTurn, 0, len(msgs))
	for _, m := range msgs {
		turns = append(turns, m.Turn())
	}
	return turns
}

func newID() string {
	id, err := uuid.NewV7()
	if err != nil {
		// V7 only fails when the random source does.
		return uuid.NewString()
	}
	return id.String()
}
