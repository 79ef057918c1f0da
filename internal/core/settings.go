package core

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/edvin/filevault/internal/model"
)

// backupSettingsKey is where the global backup settings live in
// platform_config, as a JSON blob.
const backupSettingsKey = "global.backup.settings"

// SettingsService reads and writes the global backup settings. Settings
// are loaded fresh per operation; there is no cache to invalidate.
type SettingsService struct {
	db DB
}

func NewSettingsService(db DB) *SettingsService {
	return &SettingsService{db: db}
}

// Get returns the stored settings, or the defaults when none have been
// saved yet.
func (s *SettingsService) Get(ctx context.Context) (*model.Settings, error) {
	var value string
	err := s.db.QueryRow(ctx,
		"SELECT value FROM platform_config WHERE key = $1", backupSettingsKey,
	).Scan(&value)
	if errors.Is(err, pgx.ErrNoRows) {
		return model.DefaultSettings(), nil
	}
	if err != nil {
		return nil, fmt.Errorf("get backup settings: %w", err)
	}

	var settings model.Settings
	if err := json.Unmarshal([]byte(value), &settings); err != nil {
		return nil, fmt.Errorf("decode backup settings: %w", err)
	}
	return &settings, nil
}

func (s *SettingsService) Set(ctx context.Context, settings *model.Settings) error {
	value, err := json.Marshal(settings)
	if err != nil {
		return fmt.Errorf("encode backup settings: %w", err)
	}

	_, err = s.db.Exec(ctx,
		`INSERT INTO platform_config (key, value) VALUES ($1, $2)
		 ON CONFLICT (key) DO UPDATE SET value = EXCLUDED.value`,
		backupSettingsKey, string(value),
	)
	if err != nil {
		return fmt.Errorf("set backup settings: %w", err)
	}
	return nil
}
