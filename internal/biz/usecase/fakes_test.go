package usecase

import (
	"context"
	"errors"
	"fmt"

	"github.com/anthropics/feishu-reply-bot/internal/biz/domain"
	"github.com/anthropics/feishu-reply-bot/internal/biz/repo"
)

// Fake repositories shared by the usecase tests.

type fakePermissionRepo struct {
	rec      *domain.PermissionRecord
	saves    int
	failSave bool
}

func (f *fakePermissionRepo) Load(ctx context.Context) (*domain.PermissionRecord, error) {
	return f.rec, nil
}

func (f *fakePermissionRepo) Save(ctx context.Context, rec *domain.PermissionRecord) error {
	if f.failSave {
		return errors.New("disk full")
	}
	f.rec = rec
	f.saves++
	return nil
}

type fakeCommandRepo struct {
	table    *domain.CommandTable
	saves    int
	failSave bool
}

// Load returns a deep copy, like a fresh read from disk.
func (f *fakeCommandRepo) Load(ctx context.Context) (*domain.CommandTable, error) {
	if f.table == nil {
		return nil, nil
	}
	copied := domain.NewCommandTable()
	for name, answer := range f.table.Admin {
		copied.Admin[name] = answer
	}
	for name, answer := range f.table.User {
		copied.User[name] = answer
	}
	return copied, nil
}

func (f *fakeCommandRepo) Save(ctx context.Context, table *domain.CommandTable) error {
	if f.failSave {
		return errors.New("disk full")
	}
	f.table = table
	f.saves++
	return nil
}

type sentMessage struct {
	ChatID   string
	Text     string
	Keyboard [][]domain.Button
}

type fakeMessenger struct {
	sent    []sentMessage
	removed []string
	nextID  int
	senders map[string]domain.Identity
}

func (f *fakeMessenger) SendText(ctx context.Context, chatID, text string) (string, error) {
	return f.record(chatID, text, nil), nil
}

func (f *fakeMessenger) SendPrompt(ctx context.Context, chatID, text string, keyboard [][]domain.Button) (string, error) {
	return f.record(chatID, text, keyboard), nil
}

func (f *fakeMessenger) RemoveKeyboard(ctx context.Context, msgID string) error {
	f.removed = append(f.removed, msgID)
	return nil
}

func (f *fakeMessenger) UserName(ctx context.Context, userID string) (string, error) {
	return "", nil
}

func (f *fakeMessenger) MessageSender(ctx context.Context, msgID string) (domain.Identity, error) {
	if sender, ok := f.senders[msgID]; ok {
		return sender, nil
	}
	return domain.Identity{}, errors.New("message not found")
}

func (f *fakeMessenger) record(chatID, text string, keyboard [][]domain.Button) string {
	f.nextID++
	f.sent = append(f.sent, sentMessage{ChatID: chatID, Text: text, Keyboard: keyboard})
	return fmt.Sprintf("out-%d", f.nextID)
}

// lastSent returns the most recent outbound message.
func (f *fakeMessenger) lastSent() sentMessage {
	if len(f.sent) == 0 {
		return sentMessage{}
	}
	return f.sent[len(f.sent)-1]
}

// lastID returns the message id of the most recent outbound message.
func (f *fakeMessenger) lastID() string {
	return fmt.Sprintf("out-%d", f.nextID)
}

type fakeAudit struct {
	entries []*repo.AuditEntry
}

func (f *fakeAudit) Record(ctx context.Context, entry *repo.AuditEntry) error {
	f.entries = append(f.entries, entry)
	return nil
}

func (f *fakeAudit) Recent(ctx context.Context, limit int) ([]*repo.AuditEntry, error) {
	return f.entries, nil
}

func (f *fakeAudit) Close() error {
	return nil
}
