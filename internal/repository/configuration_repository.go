package repository

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/academic-lifecycle-api/internal/models"
)

// ConfigurationRepository reads and writes runtime settings such as the
// feedback toggle.
type ConfigurationRepository struct {
	db *sqlx.DB
}

// NewConfigurationRepository constructs the repository.
func NewConfigurationRepository(db *sqlx.DB) *ConfigurationRepository {
	return &ConfigurationRepository{db: db}
}

// Get returns the setting stored under key or sql.ErrNoRows.
func (r *ConfigurationRepository) Get(ctx context.Context, key string) (*models.Configuration, error) {
	var setting models.Configuration
	err := r.db.GetContext(ctx, &setting,
		`SELECT key, value, type, description, updated_by, updated_at FROM configurations WHERE key = $1`, key)
	if err != nil {
		return nil, err
	}
	return &setting, nil
}

// Upsert writes setting and stamps UpdatedAt with the database clock.
func (r *ConfigurationRepository) Upsert(ctx context.Context, setting *models.Configuration) error {
	const query = `INSERT INTO configurations (key, value, type, description, updated_by, updated_at)
VALUES ($1, $2, $3, $4, $5, NOW())
ON CONFLICT (key) DO UPDATE
SET value = EXCLUDED.value, type = EXCLUDED.type, description = EXCLUDED.description,
    updated_by = EXCLUDED.updated_by, updated_at = EXCLUDED.updated_at
RETURNING updated_at`
	row := r.db.QueryRowxContext(ctx, query, setting.Key, setting.Value, setting.Type, setting.Description, setting.UpdatedBy)
	if err := row.Scan(&setting.UpdatedAt); err != nil {
		return fmt.Errorf("upsert configuration %s: %w", setting.Key, err)
	}
	return nil
}
