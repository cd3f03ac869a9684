package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
)

// ActiveModelKey is the settings key remembering the last loaded model.
const ActiveModelKey = "activeModel"

// GetSetting returns the value stored under key.
func (s *Store) GetSetting(ctx context.Context, key string) (string, error) {
	var v string
	err := s.db.QueryRowContext(ctx, "SELECT value FROM settings WHERE key = ?", key).Scan(&v)
	if errors.Is(err, sql.ErrNoRows) {
		return "", fmt.Errorf("setting %s: %w", key, ErrNotFound)
	}
	if err != nil {
		return "", fmt.Errorf("get setting: %w", err)
	}
	return v, nil
}

// SetSetting upserts key.
func (s *Store) SetSetting(ctx context.Context, key, value string) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO settings (key, value) VALUES (?, ?)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value`, key, value)
	if err != nil {
		return fmt.Errorf("set setting: %w", err)
	}
	return nil
}

// DeleteSetting removes key. Deleting a missing key is not an error.
func (s *Store) DeleteSetting(ctx context.Context, key string) error {
	if _, err := s.db.ExecContext(ctx, "DELETE FROM settings WHERE key = ?", key); err != nil {
		return fmt.Errorf("delete setting: %w", err)
	}
	return nil
}

// ModelMemory adapts the settings table to the lifecycle manager's
// remembered-model contract.
type ModelMemory struct{ S *Store }

// Recall returns the remembered active model, or "" when none is stored.
func (m ModelMemory) Recall(ctx context.Context) (string, error) {
	v, err := m.S.GetSetting(ctx, ActiveModelKey)
	if IsNotFound(err) {
		return "", nil
	}
	return v, err
}

// Remember stores name as the active model.
func (m ModelMemory) Remember(ctx context.Context, name string) error {
	return m.S.SetSetting(ctx, ActiveModelKey, name)
}

// Forget removes the remembered active model.
func (m ModelMemory) Forget(ctx context.Context) error {
	return m.S.DeleteSetting(ctx, ActiveModelKey)
}
