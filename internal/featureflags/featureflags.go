// Package featureflags provides runtime gates over ingestion sources.
// An upstream incident (quota exhaustion, schema break) can take one
// source out of the scheduled "all" run without a redeploy.
package featureflags

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"
)

// ErrFlagNotFound is returned when a feature flag is not found.
var ErrFlagNotFound = errors.New("feature flag not found")

// Flag represents a feature flag.
type Flag struct {
	Key       string    `json:"key"`
	Value     any       `json:"value"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Repository defines the interface for feature flag storage.
type Repository interface {
	GetFlag(ctx context.Context, key string) (*Flag, error)
	GetAllFlags(ctx context.Context) (map[string]*Flag, error)
	SetFlag(ctx context.Context, flag *Flag) error
	DeleteFlag(ctx context.Context, key string) error
}

// sourceFlagKey builds the disable-gate key for an ingestion source,
// e.g. "source_openaq_disabled".
func sourceFlagKey(source string) string {
	return fmt.Sprintf("source_%s_disabled", source)
}

// ServiceConfig holds configuration for the feature flags service.
type ServiceConfig struct {
	Repository Repository
	Logger     zerolog.Logger
}

// Service provides feature flag functionality.
type Service struct {
	repo   Repository
	logger zerolog.Logger
}

// NewService creates a new feature flags service.
func NewService(cfg ServiceConfig) *Service {
	return &Service{repo: cfg.Repository, logger: cfg.Logger}
}

// IsSourceDisabled reports whether the disable gate for source is set.
// A nil service, missing repository, missing flag, or lookup error all
// mean "not disabled": the gate fails open so a flag-store outage cannot
// silently stop ingestion.
func (s *Service) IsSourceDisabled(ctx context.Context, source string) bool {
	if s == nil || s.repo == nil {
		return false
	}
	flag, err := s.repo.GetFlag(ctx, sourceFlagKey(source))
	if err != nil {
		if !errors.Is(err, ErrFlagNotFound) {
			s.logger.Warn().Err(err).Str("source", source).Msg("flag lookup failed, treating source as enabled")
		}
		return false
	}
	disabled, ok := flag.Value.(bool)
	return ok && disabled
}

// SetSourceDisabled sets or clears the disable gate for source.
func (s *Service) SetSourceDisabled(ctx context.Context, source string, disabled bool) error {
	if s == nil || s.repo == nil {
		return errors.New("feature flags not configured")
	}
	return s.repo.SetFlag(ctx, &Flag{
		Key:       sourceFlagKey(source),
		Value:     disabled,
		UpdatedAt: time.Now().UTC(),
	})
}
