// Package worker dispatches ingestion runs. Runs arrive from the HTTP
// trigger, the Pub/Sub subscription, or the built-in scheduler; all
// three paths converge on the Runner.
package worker

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/envlake/envlake/internal/config"
	"github.com/envlake/envlake/internal/featureflags"
	"github.com/envlake/envlake/internal/run"
	"github.com/envlake/envlake/internal/runlog"
)

// Ingestion source names. SourceAll fans out over the others in the
// order listed.
const (
	SourceOpenAQ   = "openaq"
	SourceECDC     = "ecdc"
	SourceEurostat = "eurostat"
	SourceWHO      = "who"
	SourceAll      = "all"
)

// allSources is the dispatch order for SourceAll runs.
var allSources = []string{SourceOpenAQ, SourceECDC, SourceEurostat, SourceWHO}

// Job executes one ingestion source end to end.
type Job interface {
	Run(ctx context.Context, runID string) *run.Result
}

// RunnerConfig holds configuration for the Runner.
type RunnerConfig struct {
	// Config is the validated-per-run service configuration (required).
	Config *config.Config

	// Jobs maps source names to their jobs (required).
	Jobs map[string]Job

	// Flags gates sources at runtime. Nil means every source is enabled.
	Flags *featureflags.Service

	// History records completed runs. Nil disables persistence.
	History runlog.Repository

	Logger zerolog.Logger

	// NewRunID overrides run id generation, used by tests.
	NewRunID func() string

	// Now overrides the clock, used by tests.
	Now func() time.Time
}

// Runner validates configuration, dispatches ingestion jobs, and records
// their outcomes.
type Runner struct {
	cfg      *config.Config
	jobs     map[string]Job
	flags    *featureflags.Service
	history  runlog.Repository
	logger   zerolog.Logger
	newRunID func() string
	now      func() time.Time
}

// NewRunner creates a Runner.
func NewRunner(cfg RunnerConfig) *Runner {
	newRunID := cfg.NewRunID
	if newRunID == nil {
		newRunID = uuid.NewString
	}
	now := cfg.Now
	if now == nil {
		now = time.Now
	}
	return &Runner{
		cfg:      cfg.Config,
		jobs:     cfg.Jobs,
		flags:    cfg.Flags,
		history:  cfg.History,
		logger:   cfg.Logger,
		newRunID: newRunID,
		now:      now,
	}
}

// Run executes one ingestion run for source, which is a source name or
// SourceAll. Configuration is validated before any job starts: a missing
// bucket or credential yields a 500 result without a single upstream
// call.
func (r *Runner) Run(ctx context.Context, source string) *run.Result {
	runID := r.newRunID()
	logger := r.logger.With().Str("run_id", runID).Str("source", source).Logger()

	if err := r.cfg.Validate(source); err != nil {
		logger.Error().Err(err).Msg("run rejected, configuration invalid")
		result := run.Failed(err.Error())
		result.RunID = runID
		r.record(ctx, source, result, logger)
		return result
	}

	if source == SourceAll {
		return r.runAll(ctx, runID, logger)
	}

	job, ok := r.jobs[source]
	if !ok {
		logger.Error().Msg("unknown source")
		result := run.Failed(fmt.Sprintf("unknown source: %s", source))
		result.RunID = runID
		return result
	}

	if r.flags.IsSourceDisabled(ctx, source) {
		logger.Warn().Msg("source disabled by feature flag")
		result := &run.Result{
			StatusCode: 200,
			Message:    fmt.Sprintf("source %s is disabled, nothing ingested", source),
			RunID:      runID,
		}
		r.record(ctx, source, result, logger)
		return result
	}

	logger.Info().Msg("starting ingestion run")
	result := job.Run(ctx, runID)
	r.record(ctx, source, result, logger)

	logger.Info().
		Int("status_code", result.StatusCode).
		Int("ledger_entries", len(result.StoredFiles)).
		Msg("ingestion run finished")
	return result
}

// runAll dispatches every registered source under one run id. Failures
// are isolated per source.
func (r *Runner) runAll(ctx context.Context, runID string, logger zerolog.Logger) *run.Result {
	started := r.now().UTC()
	merged := make(map[string]string)
	var summary []run.CitySummary

	for _, source := range allSources {
		job, ok := r.jobs[source]
		if !ok {
			continue
		}
		if r.flags.IsSourceDisabled(ctx, source) {
			logger.Warn().Str("job", source).Msg("source disabled by feature flag, skipping")
			merged[source] = run.Warn("source disabled").String()
			continue
		}

		result := job.Run(ctx, runID)
		r.record(ctx, source, result, logger)

		if result.StatusCode != 200 {
			logger.Error().Str("job", source).Str("message", result.Message).Msg("source run failed")
			merged[source] = run.Error("%s", result.Message).String()
			continue
		}
		for k, v := range result.StoredFiles {
			merged[k] = v
		}
		summary = append(summary, result.Summary...)
	}

	result := &run.Result{
		StatusCode:  200,
		Message:     "all sources completed",
		RunID:       runID,
		StoredFiles: merged,
		Summary:     summary,
		StartedAt:   started,
		FinishedAt:  r.now().UTC(),
	}
	r.record(ctx, SourceAll, result, logger)
	return result
}

// record persists the run outcome; persistence failures are logged, not
// propagated, because the ingested data already landed.
func (r *Runner) record(ctx context.Context, source string, result *run.Result, logger zerolog.Logger) {
	if r.history == nil {
		return
	}
	entry := &runlog.Entry{
		RunID:       result.RunID,
		Source:      source,
		StatusCode:  result.StatusCode,
		Message:     result.Message,
		StoredFiles: result.StoredFiles,
		StartedAt:   result.StartedAt,
		FinishedAt:  result.FinishedAt,
	}
	if err := r.history.Record(ctx, entry); err != nil {
		logger.Warn().Err(err).Msg("failed to record run history")
	}
}
