package prefs

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"ai-diet-planner/internal/render"
)

// Fixed keys of the persisted client state.
const (
	KeyAPIKey = "dietPlanner_apiKey"
	KeyTheme  = "dietPlanner_theme"
)

// ErrEmptyAPIKey is returned when saving a blank credential.
var ErrEmptyAPIKey = errors.New("please enter an API key")

// Store persists the per-client credential and theme in SQLite. Nothing
// else about a client survives a restart.
type Store struct {
	db *sql.DB
}

func NewStore(db *sql.DB) *Store {
	return &Store{db: db}
}

// Get returns the stored value of key, or "" when unset.
func (s *Store) Get(ctx context.Context, clientID, key string) (string, error) {
	var value string
	err := s.db.QueryRowContext(ctx,
		`SELECT value FROM preferences WHERE client_id = ? AND key = ?`, clientID, key,
	).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("failed to read preference %s: %w", key, err)
	}
	return value, nil
}

// Set stores value under key, replacing any previous value.
func (s *Store) Set(ctx context.Context, clientID, key, value string) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO preferences (client_id, key, value, updated_at)
		VALUES (?, ?, ?, CURRENT_TIMESTAMP)
		ON CONFLICT (client_id, key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at`,
		clientID, key, value,
	)
	if err != nil {
		return fmt.Errorf("failed to write preference %s: %w", key, err)
	}
	return nil
}

// APIKey returns the stored credential of the client.
func (s *Store) APIKey(ctx context.Context, clientID string) (string, error) {
	return s.Get(ctx, clientID, KeyAPIKey)
}

// SaveAPIKey trims and stores key. A blank key is rejected and the stored
// one is left untouched.
func (s *Store) SaveAPIKey(ctx context.Context, clientID, key string) error {
	key = strings.TrimSpace(key)
	if key == "" {
		return ErrEmptyAPIKey
	}
	return s.Set(ctx, clientID, KeyAPIKey, key)
}

// Theme returns the stored theme, defaulting to dark.
func (s *Store) Theme(ctx context.Context, clientID string) (render.Theme, error) {
	v, err := s.Get(ctx, clientID, KeyTheme)
	if err != nil {
		return render.DefaultTheme, err
	}
	return render.ParseTheme(v), nil
}

func (s *Store) SaveTheme(ctx context.Context, clientID string, theme render.Theme) error {
	return s.Set(ctx, clientID, KeyTheme, string(theme))
}
