package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"
)

const createSettingsTable = `CREATE TABLE IF NOT EXISTS dashboard_settings (
	key TEXT PRIMARY KEY,
	value TEXT NOT NULL,
	updated_at TEXT NOT NULL
)`

func (d *DB) EnsureSettingsSchema(ctx context.Context) error {
	if _, err := d.ExecContext(ctx, createSettingsTable); err != nil {
		return fmt.Errorf("create dashboard_settings: %w", err)
	}
	return nil
}

// GetSetting returns ok=false when the key was never written.
func (d *DB) GetSetting(ctx context.Context, key string) (string, bool, error) {
	k := strings.TrimSpace(key)
	if k == "" {
		return "", false, fmt.Errorf("setting key is required")
	}

	var value string
	err := d.QueryRowContext(ctx, d.Rebind(`SELECT value FROM dashboard_settings WHERE key = ?`), k).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return value, true, nil
}

func (d *DB) PutSetting(ctx context.Context, key, value string, now time.Time) error {
	k := strings.TrimSpace(key)
	if k == "" {
		return fmt.Errorf("setting key is required")
	}

	_, err := d.ExecContext(ctx, d.Rebind(`
		INSERT INTO dashboard_settings (key, value, updated_at)
		VALUES (?, ?, ?)
		ON CONFLICT (key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at
	`), k, value, now.UTC().Format(time.RFC3339Nano))
	return err
}
