// Package mail renders and delivers clinic emails.
package mail

import (
	"context"
	"errors"
)

var ErrNotConfigured = errors.New("mail: sender not configured")

// Sender delivers one message. Implementations can be swapped without
// changing callers.
type Sender interface {
	Send(ctx context.Context, msg Message) error
}

type Message struct {
	To      string
	ToName  string
	Subject string
	Text    string
	HTML    string
}
