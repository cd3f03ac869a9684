package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// DefaultChatTitle is used when a chat is created without a title.
const DefaultChatTitle = "New Chat"

// Chat is a persisted conversation.
type Chat struct {
	ID           string
	Title        string
	Model        string
	SystemPrompt *string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// ChatPatch lists the fields UpdateChat may change. Nil fields are untouched.
type ChatPatch struct {
	Title        *string
	Model        *string
	SystemPrompt *string
}

const chatColumns = "id, title, model, system_prompt, created_at, updated_at"

type rowScanner interface {
	Scan(dest ...any) error
}

func scanChat(r rowScanner) (Chat, error) {
	var (
		c         Chat
		sp        sql.NullString
		createdAt int64
		updatedAt int64
	)
	if err := r.Scan(&c.ID, &c.Title, &c.Model, &sp, &createdAt, &updatedAt); err != nil {
		return Chat{}, err
	}
	if sp.Valid {
		v := sp.String
		c.SystemPrompt = &v
	}
	c.CreatedAt = fromTimestamp(createdAt)
	c.UpdatedAt = fromTimestamp(updatedAt)
	return c, nil
}

// CreateChat inserts a chat with a fresh id.
func (s *Store) CreateChat(ctx context.Context, title, model string) (Chat, error) {
	if title == "" {
		title = DefaultChatTitle
	}
	ts := s.timestamp()
	c := Chat{
		ID:        uuid.NewString(),
		Title:     title,
		Model:     model,
		CreatedAt: fromTimestamp(ts),
		UpdatedAt: fromTimestamp(ts),
	}
	_, err := s.db.ExecContext(ctx,
		"INSERT INTO chats ("+chatColumns+") VALUES (?, ?, ?, NULL, ?, ?)",
		c.ID, c.Title, c.Model, ts, ts)
	if err != nil {
		return Chat{}, fmt.Errorf("insert chat: %w", err)
	}
	return c, nil
}

// ListChats returns all chats, most recently updated first.
func (s *Store) ListChats(ctx context.Context) ([]Chat, error) {
	rows, err := s.db.QueryContext(ctx,
		"SELECT "+chatColumns+" FROM chats ORDER BY updated_at DESC, rowid DESC")
	if err != nil {
		return nil, fmt.Errorf("list chats: %w", err)
	}
	defer rows.Close()
	out := []Chat{}
	for rows.Next() {
		c, err := scanChat(rows)
		if err != nil {
			return nil, fmt.Errorf("scan chat: %w", err)
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

// GetChat loads one chat.
func (s *Store) GetChat(ctx context.Context, id string) (Chat, error) {
	c, err := scanChat(s.db.QueryRowContext(ctx,
		"SELECT "+chatColumns+" FROM chats WHERE id = ?", id))
	if errors.Is(err, sql.ErrNoRows) {
		return Chat{}, fmt.Errorf("chat %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return Chat{}, fmt.Errorf("get chat: %w", err)
	}
	return c, nil
}

// UpdateChat applies p and returns the updated chat. UpdatedAt is bumped.
func (s *Store) UpdateChat(ctx context.Context, id string, p ChatPatch) (Chat, error) {
	res, err := s.db.ExecContext(ctx, `
		UPDATE chats SET
			title         = COALESCE(?, title),
			model         = COALESCE(?, model),
			system_prompt = CASE WHEN ? THEN ? ELSE system_prompt END,
			updated_at    = ?
		WHERE id = ?`,
		nullable(p.Title), nullable(p.Model),
		p.SystemPrompt != nil, nullable(p.SystemPrompt),
		s.timestamp(), id)
	if err != nil {
		return Chat{}, fmt.Errorf("update chat: %w", err)
	}
	if err := expectRow(res, "chat", id); err != nil {
		return Chat{}, err
	}
	return s.GetChat(ctx, id)
}

// TouchChat bumps UpdatedAt and, when model is non-nil, records the model.
func (s *Store) TouchChat(ctx context.Context, id string, model *string) error {
	res, err := s.db.ExecContext(ctx,
		"UPDATE chats SET updated_at = ?, model = COALESCE(?, model) WHERE id = ?",
		s.timestamp(), nullable(model), id)
	if err != nil {
		return fmt.Errorf("touch chat: %w", err)
	}
	return expectRow(res, "chat", id)
}

// DeleteChat removes a chat and, by cascade, its messages.
func (s *Store) DeleteChat(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, "DELETE FROM chats WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("delete chat: %w", err)
	}
	return expectRow(res, "chat", id)
}

func nullable(p *string) any {
	if p == nil {
		return nil
	}
	return *p
}

func expectRow(res sql.Result, kind, id string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("%s %s: %w", kind, id, ErrNotFound)
	}
	return nil
}
