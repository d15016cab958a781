package data

import (
	"context"

	"github.com/anthropics/feishu-reply-bot/internal/biz/domain"
	"github.com/anthropics/feishu-reply-bot/internal/biz/repo"
	"github.com/anthropics/feishu-reply-bot/internal/infra/lark"
)

// larkRepo implements the outbound messenger over the Lark client
type larkRepo struct {
	client *lark.Client
}

// NewMessengerRepo creates a Lark-backed messenger repository.
func NewMessengerRepo(client *lark.Client) repo.MessengerRepo {
	return &larkRepo{client: client}
}

// SendText sends a plain text message.
func (r *larkRepo) SendText(ctx context.Context, chatID, text string) (string, error) {
	return r.client.SendText(ctx, chatID, text)
}

// SendPrompt sends a card with a button keyboard.
func (r *larkRepo) SendPrompt(ctx context.Context, chatID, text string, keyboard [][]domain.Button) (string, error) {
	rows := make([][]lark.Button, 0, len(keyboard))
	for _, row := range keyboard {
		buttons := make([]lark.Button, 0, len(row))
		for _, btn := range row {
			buttons = append(buttons, lark.Button{Label: btn.Label, Payload: btn.Payload})
		}
		rows = append(rows, buttons)
	}
	return r.client.SendCard(ctx, chatID, text, rows)
}

// RemoveKeyboard strips the buttons from a sent prompt.
func (r *larkRepo) RemoveKeyboard(ctx context.Context, msgID string) error {
	return r.client.RemoveKeyboard(ctx, msgID)
}

// UserName resolves a display name.
func (r *larkRepo) UserName(ctx context.Context, userID string) (string, error) {
	return r.client.GetUserName(ctx, userID)
}

// MessageSender resolves the author of an existing message.
func (r *larkRepo) MessageSender(ctx context.Context, msgID string) (domain.Identity, error) {
	sender, err := r.client.GetMessageSender(ctx, msgID)
	if err != nil {
		return domain.Identity{}, err
	}
	return domain.Identity{ID: sender.SenderID, Name: sender.Name}, nil
}
