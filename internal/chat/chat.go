// Package chat defines the contract with the external chat transport:
// inbound updates, outbound replies with choice menus, and the callback
// token protocol both sides must agree on.
package chat

import "context"

// Update is one inbound event delivered by the transport. Exactly one of
// Command, Callback, or Text is meaningful per event.
type Update struct {
	UserID    int64  `json:"user_id" binding:"required"`
	ChatID    int64  `json:"chat_id" binding:"required"`
	Username  string `json:"username,omitempty"`
	FirstName string `json:"first_name,omitempty"`
	LastName  string `json:"last_name,omitempty"`
	Command   string `json:"command,omitempty"`
	Callback  string `json:"callback,omitempty"`
	Text      string `json:"text,omitempty"`
}

// Button is one choice offered to the user; Data is an encoded callback
// token that comes back verbatim when pressed.
type Button struct {
	Label string `json:"label"`
	Data  string `json:"data"`
}

// Reply is the outbound payload: text plus an optional choice menu (rows of
// buttons) and an optional image attachment.
type Reply struct {
	ChatID   int64      `json:"chat_id"`
	Text     string     `json:"text"`
	Keyboard [][]Button `json:"keyboard,omitempty"`
	ImageURL string     `json:"image_url,omitempty"`
}

// Row builds one keyboard row.
func Row(buttons ...Button) []Button { return buttons }

// Sender delivers replies through the transport.
type Sender interface {
	Send(ctx context.Context, reply Reply) error
}
