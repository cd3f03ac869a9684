package store

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Message roles stored by the relay.
const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// Message is a persisted chat turn.
type Message struct {
	ID        string
	ChatID    string
	Role      string
	Content   string
	CreatedAt time.Time
}

// AddMessage appends a message to a chat. It fails with ErrNotFound when the
// chat does not exist.
func (s *Store) AddMessage(ctx context.Context, chatID, role, content string) (Message, error) {
	ts := s.timestamp()
	m := Message{
		ID:        uuid.NewString(),
		ChatID:    chatID,
		Role:      role,
		Content:   content,
		CreatedAt: fromTimestamp(ts),
	}
	res, err := s.db.ExecContext(ctx, `
		INSERT INTO messages (id, chat_id, role, content, created_at)
		SELECT ?, id, ?, ?, ? FROM chats WHERE id = ?`,
		m.ID, m.Role, m.Content, ts, chatID)
	if err != nil {
		return Message{}, fmt.Errorf("insert message: %w", err)
	}
	if err := expectRow(res, "chat", chatID); err != nil {
		return Message{}, err
	}
	return m, nil
}

// ListMessages returns a chat's messages in chronological order.
func (s *Store) ListMessages(ctx context.Context, chatID string) ([]Message, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, chat_id, role, content, created_at
		FROM messages WHERE chat_id = ?
		ORDER BY created_at ASC, rowid ASC`, chatID)
	if err != nil {
		return nil, fmt.Errorf("list messages: %w", err)
	}
	defer rows.Close()
	out := []Message{}
	for rows.Next() {
		var (
			m  Message
			ts int64
		)
		if err := rows.Scan(&m.ID, &m.ChatID, &m.Role, &m.Content, &ts); err != nil {
			return nil, fmt.Errorf("scan message: %w", err)
		}
		m.CreatedAt = fromTimestamp(ts)
		out = append(out, m)
	}
	return out, rows.Err()
}

// DeleteMessage removes one message.
func (s *Store) DeleteMessage(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, "DELETE FROM messages WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("delete message: %w", err)
	}
	return expectRow(res, "message", id)
}
