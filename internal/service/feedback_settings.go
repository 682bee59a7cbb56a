package service

import (
	"context"
	"database/sql"
	"errors"
	"strconv"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/academic-lifecycle-api/internal/models"
	appErrors "github.com/noah-isme/academic-lifecycle-api/pkg/errors"
)

type configurationStore interface {
	Get(ctx context.Context, key string) (*models.Configuration, error)
	Upsert(ctx context.Context, cfg *models.Configuration) error
}

const feedbackToggleDescription = "Allows students to submit course feedback"

// FeedbackSettings holds the global feedback toggle. It is loaded once at
// startup and changed only through SetFeedbackEnabled.
type FeedbackSettings struct {
	repo   configurationStore
	audit  auditLogger
	logger *zap.Logger

	mu        sync.RWMutex
	enabled   bool
	updatedBy *string
	updatedAt *time.Time
}

// NewFeedbackSettings constructs the toggle with fallback as the initial
// value until Load runs.
func NewFeedbackSettings(repo configurationStore, audit auditLogger, logger *zap.Logger, fallback bool) *FeedbackSettings {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &FeedbackSettings{repo: repo, audit: audit, logger: logger, enabled: fallback}
}

// Load reads the persisted toggle. A missing or unparsable entry keeps the
// fallback value.
func (s *FeedbackSettings) Load(ctx context.Context) error {
	cfg, err := s.repo.Get(ctx, models.ConfigKeyFeedbackEnabled)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			s.logger.Info("feedback toggle not persisted, using fallback", zap.Bool("enabled", s.Enabled()))
			return nil
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load feedback toggle")
	}
	enabled, err := strconv.ParseBool(cfg.Value)
	if err != nil {
		s.logger.Warn("invalid persisted feedback toggle", zap.String("value", cfg.Value), zap.Error(err))
		return nil
	}
	updatedAt := cfg.UpdatedAt

	s.mu.Lock()
	s.enabled = enabled
	s.updatedBy = cfg.UpdatedBy
	s.updatedAt = &updatedAt
	s.mu.Unlock()
	return nil
}

// Enabled reports whether feedback submission is open.
func (s *FeedbackSettings) Enabled() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.enabled
}

// Snapshot returns the current toggle state.
func (s *FeedbackSettings) Snapshot() models.FeedbackSettings {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return models.FeedbackSettings{Enabled: s.enabled, UpdatedBy: s.updatedBy, UpdatedAt: s.updatedAt}
}

// SetFeedbackEnabled persists the toggle, audits the change and updates the
// in-memory value. The in-memory value only changes after a successful write.
func (s *FeedbackSettings) SetFeedbackEnabled(ctx context.Context, enabled bool, actor *models.JWTClaims) (models.FeedbackSettings, error) {
	previous := s.Snapshot()
	description := feedbackToggleDescription
	cfg := &models.Configuration{
		Key:         models.ConfigKeyFeedbackEnabled,
		Value:       strconv.FormatBool(enabled),
		Type:        models.ConfigurationTypeBoolean,
		Description: &description,
		UpdatedBy:   userIDPtr(actor),
	}
	if err := s.repo.Upsert(ctx, cfg); err != nil {
		return previous, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to persist feedback toggle")
	}
	updatedAt := cfg.UpdatedAt

	s.mu.Lock()
	s.enabled = enabled
	s.updatedBy = cfg.UpdatedBy
	s.updatedAt = &updatedAt
	s.mu.Unlock()

	emitAudit(ctx, s.audit, s.logger, actor, models.AuditActionConfigurationUpdate, models.AuditResourceConfiguration, models.ConfigKeyFeedbackEnabled,
		map[string]bool{"enabled": previous.Enabled},
		map[string]bool{"enabled": enabled},
	)
	s.logger.Info("feedback toggle updated", zap.Bool("enabled", enabled))
	return s.Snapshot(), nil
}
