package worker

import (
	"context"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/envlake/envlake/internal/config"
	"github.com/envlake/envlake/internal/featureflags"
	"github.com/envlake/envlake/internal/run"
	"github.com/envlake/envlake/internal/runlog"
)

// countingJob records invocations, standing in for a real ingestion job.
type countingJob struct {
	calls  int
	result *run.Result
}

func (j *countingJob) Run(_ context.Context, runID string) *run.Result {
	j.calls++
	res := *j.result
	res.RunID = runID
	return &res
}

func okResult(files map[string]string) *run.Result {
	return &run.Result{StatusCode: 200, Message: "stored", StoredFiles: files}
}

func newTestRunner(cfg *config.Config, jobs map[string]Job, flags *featureflags.Service, history runlog.Repository) *Runner {
	return NewRunner(RunnerConfig{
		Config:   cfg,
		Jobs:     jobs,
		Flags:    flags,
		History:  history,
		Logger:   zerolog.Nop(),
		NewRunID: func() string { return "run-test" },
		Now:      func() time.Time { return time.Date(2026, 8, 28, 6, 0, 0, 0, time.UTC) },
	})
}

func TestRunInvalidConfigFailsWithoutDispatch(t *testing.T) {
	job := &countingJob{result: okResult(nil)}
	runner := newTestRunner(
		&config.Config{OpenAQAPIKey: "key"}, // no bucket
		map[string]Job{SourceOpenAQ: job},
		nil, nil,
	)

	result := runner.Run(context.Background(), SourceOpenAQ)

	assert.Equal(t, 500, result.StatusCode)
	assert.Equal(t, config.ErrMissingBucket.Error(), result.Message)
	assert.Equal(t, 0, job.calls, "no job may run on invalid config")
}

func TestRunMissingAPIKeyFailsWithoutDispatch(t *testing.T) {
	job := &countingJob{result: okResult(nil)}
	runner := newTestRunner(
		&config.Config{S3Bucket: "bronze"}, // no API key
		map[string]Job{SourceOpenAQ: job},
		nil, nil,
	)

	result := runner.Run(context.Background(), SourceOpenAQ)

	assert.Equal(t, 500, result.StatusCode)
	assert.Equal(t, config.ErrMissingAPIKey.Error(), result.Message)
	assert.Equal(t, 0, job.calls)
}

func TestRunDispatchesAndRecords(t *testing.T) {
	job := &countingJob{result: okResult(map[string]string{"DE:Berlin_pm25": "OK: sensor 1, records=5"})}
	history := runlog.NewMemoryRepository()
	runner := newTestRunner(
		&config.Config{S3Bucket: "bronze", OpenAQAPIKey: "key"},
		map[string]Job{SourceOpenAQ: job},
		nil, history,
	)

	result := runner.Run(context.Background(), SourceOpenAQ)

	assert.Equal(t, 200, result.StatusCode)
	assert.Equal(t, "run-test", result.RunID)
	assert.Equal(t, 1, job.calls)

	entry, err := history.Get(context.Background(), "run-test")
	require.NoError(t, err)
	assert.Equal(t, SourceOpenAQ, entry.Source)
	assert.Equal(t, "OK: sensor 1, records=5", entry.StoredFiles["DE:Berlin_pm25"])
}

func TestRunUnknownSource(t *testing.T) {
	runner := newTestRunner(
		&config.Config{S3Bucket: "bronze"},
		map[string]Job{},
		nil, nil,
	)

	result := runner.Run(context.Background(), "moon-phase")
	assert.Equal(t, 500, result.StatusCode)
	assert.Contains(t, result.Message, "unknown source")
}

func TestRunAllIsolatesSourceFailures(t *testing.T) {
	openaq := &countingJob{result: okResult(map[string]string{"DE:Berlin_pm25": "OK: sensor 1, records=5"})}
	ecdc := &countingJob{result: run.Failed("upstream gone")}
	eurostat := &countingJob{result: okResult(map[string]string{"hlth_cd_aro": "OK: stored"})}
	who := &countingJob{result: okResult(nil)}

	runner := newTestRunner(
		&config.Config{S3Bucket: "bronze", OpenAQAPIKey: "key"},
		map[string]Job{
			SourceOpenAQ:   openaq,
			SourceECDC:     ecdc,
			SourceEurostat: eurostat,
			SourceWHO:      who,
		},
		nil, nil,
	)

	result := runner.Run(context.Background(), SourceAll)

	assert.Equal(t, 200, result.StatusCode)
	assert.Equal(t, 1, openaq.calls)
	assert.Equal(t, 1, ecdc.calls)
	assert.Equal(t, 1, eurostat.calls)
	assert.Equal(t, 1, who.calls)

	assert.Equal(t, "OK: sensor 1, records=5", result.StoredFiles["DE:Berlin_pm25"])
	assert.Equal(t, "OK: stored", result.StoredFiles["hlth_cd_aro"])
	assert.Equal(t, "ERROR: upstream gone", result.StoredFiles[SourceECDC])
}

func TestRunSkipsDisabledSources(t *testing.T) {
	openaq := &countingJob{result: okResult(nil)}
	ecdc := &countingJob{result: okResult(map[string]string{"ecdc_covid": "OK: stored"})}

	repo := featureflags.NewMemoryRepository()
	flags := featureflags.NewService(featureflags.ServiceConfig{Repository: repo, Logger: zerolog.Nop()})
	require.NoError(t, flags.SetSourceDisabled(context.Background(), SourceOpenAQ, true))

	runner := newTestRunner(
		&config.Config{S3Bucket: "bronze", OpenAQAPIKey: "key"},
		map[string]Job{SourceOpenAQ: openaq, SourceECDC: ecdc},
		flags, nil,
	)

	result := runner.Run(context.Background(), SourceAll)

	assert.Equal(t, 0, openaq.calls)
	assert.Equal(t, 1, ecdc.calls)
	assert.Equal(t, "WARN: source disabled", result.StoredFiles[SourceOpenAQ])

	// A direct run of a disabled source reports it without dispatching.
	direct := runner.Run(context.Background(), SourceOpenAQ)
	assert.Equal(t, 200, direct.StatusCode)
	assert.Contains(t, direct.Message, "disabled")
	assert.Equal(t, 0, openaq.calls)
}
