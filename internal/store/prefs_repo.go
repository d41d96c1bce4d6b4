package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"
)

const (
	keySoundEnabled         = "sound_enabled"
	keyNotificationsEnabled = "notifications_enabled"
	keyAuthToken            = "auth_token"
)

type PrefsRepo interface {
	SoundEnabled(ctx context.Context) (bool, error)
	SetSoundEnabled(ctx context.Context, enabled bool) error
	NotificationsEnabled(ctx context.Context) (bool, error)
	SetNotificationsEnabled(ctx context.Context, enabled bool) error
}

type TokenRepo interface {
	Token(ctx context.Context) (string, error)
	SaveToken(ctx context.Context, token string) error
	ClearToken(ctx context.Context) error
}

// SQLitePrefsRepo backs both preference and token storage with the
// preferences key/value table.
type SQLitePrefsRepo struct {
	db *sql.DB
}

func NewPrefsRepo(db *sql.DB) *SQLitePrefsRepo {
	return &SQLitePrefsRepo{db: db}
}

func (r *SQLitePrefsRepo) get(ctx context.Context, key string) (string, bool, error) {
	var value string
	err := r.db.QueryRowContext(ctx, `SELECT value FROM preferences WHERE key = ?`, key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("read preference %s: %w", key, err)
	}
	return value, true, nil
}

func (r *SQLitePrefsRepo) set(ctx context.Context, key, value string) error {
	const query = `
        INSERT INTO preferences (key, value) VALUES (?, ?)
        ON CONFLICT (key) DO UPDATE SET value = excluded.value`

	if _, err := r.db.ExecContext(ctx, query, key, value); err != nil {
		return fmt.Errorf("write preference %s: %w", key, err)
	}
	return nil
}

func (r *SQLitePrefsRepo) getBool(ctx context.Context, key string, fallback bool) (bool, error) {
	raw, ok, err := r.get(ctx, key)
	if err != nil || !ok {
		return fallback, err
	}
	value, err := strconv.ParseBool(raw)
	if err != nil {
		return fallback, nil
	}
	return value, nil
}

// SoundEnabled defaults to true until the user turns it off.
func (r *SQLitePrefsRepo) SoundEnabled(ctx context.Context) (bool, error) {
	return r.getBool(ctx, keySoundEnabled, true)
}

func (r *SQLitePrefsRepo) SetSoundEnabled(ctx context.Context, enabled bool) error {
	return r.set(ctx, keySoundEnabled, strconv.FormatBool(enabled))
}

// NotificationsEnabled defaults to false until permission is granted.
func (r *SQLitePrefsRepo) NotificationsEnabled(ctx context.Context) (bool, error) {
	return r.getBool(ctx, keyNotificationsEnabled, false)
}

func (r *SQLitePrefsRepo) SetNotificationsEnabled(ctx context.Context, enabled bool) error {
	return r.set(ctx, keyNotificationsEnabled, strconv.FormatBool(enabled))
}

func (r *SQLitePrefsRepo) Token(ctx context.Context) (string, error) {
	token, _, err := r.get(ctx, keyAuthToken)
	return token, err
}

func (r *SQLitePrefsRepo) SaveToken(ctx context.Context, token string) error {
	return r.set(ctx, keyAuthToken, token)
}

func (r *SQLitePrefsRepo) ClearToken(ctx context.Context) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM preferences WHERE key = ?`, keyAuthToken)
	if err != nil {
		return fmt.Errorf("clear stored token: %w", err)
	}
	return nil
}
