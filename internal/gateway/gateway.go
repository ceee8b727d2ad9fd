package gateway

import (
	"context"
	"log"
)

// Option is one tappable choice presented to a user, identified by a stable
// ID that comes back in Update.Selection.
type Option struct {
	ID    string
	Label string
}

// Conversation is the outbound side of a chat platform. The bot core only
// ever talks to this interface; wiring a concrete platform client is a
// deployment concern.
type Conversation interface {
	// SendText delivers a plain message to the user.
	SendText(ctx context.Context, userID int64, text string) error

	// PresentOptions delivers a prompt with a set of tappable options.
	PresentOptions(ctx context.Context, userID int64, prompt string, options []Option) error

	// EditPrompt replaces the user's last prompt in place, used for back
	// navigation. Implementations without edit support may send anew.
	EditPrompt(ctx context.Context, userID int64, prompt string, options []Option) error
}

// LogGateway writes every outbound message to the process log. It backs
// local development and tests.
type LogGateway struct{}

func (LogGateway) SendText(_ context.Context, userID int64, text string) error {
	log.Printf("-> user %d: %s", userID, text)
	return nil
}

func (LogGateway) PresentOptions(_ context.Context, userID int64, prompt string, options []Option) error {
	labels := make([]string, 0, len(options))
	for _, o := range options {
		labels = append(labels, o.Label)
	}
	log.Printf("-> user %d: %s %v", userID, prompt, labels)
	return nil
}

// EditPrompt has nothing to edit in a log, so it sends anew.
func (g LogGateway) EditPrompt(ctx context.Context, userID int64, prompt string, options []Option) error {
	return g.PresentOptions(ctx, userID, prompt, options)
}
