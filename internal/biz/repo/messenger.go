package repo

import (
	"context"

	"github.com/anthropics/feishu-reply-bot/internal/biz/domain"
)

// MessengerRepo is the outbound side of the transport boundary.
// Send calls return the created message id so prompts can be used as
// reply anchors.
type MessengerRepo interface {
	// SendText sends a plain text message.
	SendText(ctx context.Context, chatID, text string) (msgID string, err error)

	// SendPrompt sends a text message with a button keyboard laid out
	// in rows.
	SendPrompt(ctx context.Context, chatID, text string, keyboard [][]domain.Button) (msgID string, err error)

	// RemoveKeyboard strips the buttons from a previously sent prompt.
	RemoveKeyboard(ctx context.Context, msgID string) error

	// UserName resolves a display name for an identity id. Best effort;
	// an empty name with nil error is acceptable.
	UserName(ctx context.Context, userID string) (string, error)

	// MessageSender resolves the author of an existing message, for the
	// reply-to add-admin flow in group chats.
	MessageSender(ctx context.Context, msgID string) (domain.Identity, error)
}
