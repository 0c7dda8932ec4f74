// Package orchestrator drives ingestion runs: it walks the registered
// source adapters, feeds their records through normalization and the
// merge engine, and assembles a RunReport covering every adapter
// attempted.
package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/Gobusters/ectologger"
	"github.com/google/uuid"

	pkgcontext "github.com/Ramsey-B/baobab/pkg/context"
	"github.com/Ramsey-B/baobab/pkg/events"
	"github.com/Ramsey-B/baobab/pkg/merging"
	"github.com/Ramsey-B/baobab/pkg/metrics"
	"github.com/Ramsey-B/baobab/pkg/models"
	"github.com/Ramsey-B/baobab/pkg/normalizers"
	"github.com/Ramsey-B/baobab/pkg/sources"
	"github.com/Ramsey-B/baobab/pkg/store"
	"github.com/Ramsey-B/baobab/pkg/tracing"
)

// ErrAdapterNotFound is returned when a run or test names an adapter
// the registry does not hold.
var ErrAdapterNotFound = errors.New("adapter not found")

const defaultTestSampleSize = 5

// testSampleEcho is how many raw records a TestReport echoes back.
const testSampleEcho = 2

// RunLocker guards against overlapping ingestion runs. A nil locker
// disables the guard.
type RunLocker interface {
	Acquire(ctx context.Context, runID string) error
	Release(ctx context.Context, runID string) error
}

// Config carries the orchestrator knobs.
type Config struct {
	// MaxConcurrentSources bounds how many adapters fetch at once.
	// Values below 1 run adapters sequentially.
	MaxConcurrentSources int

	// SourceReliabilityDefault seeds the reliability score of a
	// DataSource created on first sight of an adapter.
	SourceReliabilityDefault float64
}

// Orchestrator coordinates adapters, the merge engine, and run
// bookkeeping. Adapter fetches may overlap but merges are serialized;
// the store only ever sees one writer.
type Orchestrator struct {
	registry *sources.Registry
	store    store.Store
	merger   *merging.Engine
	emitter  events.Emitter
	lock     RunLocker
	config   Config
	logger   ectologger.Logger

	mergeMu sync.Mutex
}

func NewOrchestrator(
	registry *sources.Registry,
	s store.Store,
	merger *merging.Engine,
	emitter events.Emitter,
	lock RunLocker,
	config Config,
	logger ectologger.Logger,
) *Orchestrator {
	if config.MaxConcurrentSources < 1 {
		config.MaxConcurrentSources = 1
	}
	if emitter == nil {
		emitter = events.NoopEmitter{}
	}
	return &Orchestrator{
		registry: registry,
		store:    s,
		merger:   merger,
		emitter:  emitter,
		lock:     lock,
		config:   config,
		logger:   logger,
	}
}

// ListAdapters returns the identities of every registered adapter in
// registration order.
func (o *Orchestrator) ListAdapters() []models.AdapterIdentity {
	return o.registry.List()
}

// RunAll executes every registered adapter and returns a report
// covering all of them. One adapter failing never stops the others;
// cancellation stops dispatching and marks unstarted adapters not_run.
func (o *Orchestrator) RunAll(ctx context.Context) (*models.RunReport, error) {
	ctx, span := tracing.StartSpan(ctx, "orchestrator.Orchestrator.RunAll")
	defer span.End()

	return o.run(ctx, o.registry.All())
}

// RunOne executes a single adapter by name. Unknown names return
// ErrAdapterNotFound.
func (o *Orchestrator) RunOne(ctx context.Context, name string) (*models.RunReport, error) {
	ctx, span := tracing.StartSpan(ctx, "orchestrator.Orchestrator.RunOne")
	defer span.End()

	adapter, ok := o.registry.Get(name)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrAdapterNotFound, name)
	}
	return o.run(ctx, []sources.Adapter{adapter})
}

func (o *Orchestrator) run(ctx context.Context, adapters []sources.Adapter) (*models.RunReport, error) {
	runID := uuid.New().String()
	ctx = pkgcontext.SetRunID(ctx, runID)
	log := o.logger.WithContext(ctx).WithField("run_id", runID)

	if o.lock != nil {
		if err := o.lock.Acquire(ctx, runID); err != nil {
			return nil, err
		}
		defer func() {
			releaseCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := o.lock.Release(releaseCtx, runID); err != nil {
				log.WithError(err).Warn("Failed to release run lock")
			}
		}()
	}

	log.WithField("adapters", len(adapters)).Info("Starting ingestion run")

	report := &models.RunReport{
		RunID:     runID,
		StartedAt: time.Now().UTC(),
		Adapters:  make([]models.AdapterResult, len(adapters)),
	}

	sem := make(chan struct{}, o.config.MaxConcurrentSources)
	var wg sync.WaitGroup

dispatch:
	for i, adapter := range adapters {
		select {
		case <-ctx.Done():
			o.markNotRun(report, adapters, i)
			break dispatch
		case sem <- struct{}{}:
		}

		// The slot may have freed up after cancellation; re-check so a
		// cancelled run never dispatches another adapter.
		if ctx.Err() != nil {
			<-sem
			o.markNotRun(report, adapters, i)
			break dispatch
		}

		wg.Add(1)
		go func(i int, adapter sources.Adapter) {
			defer wg.Done()
			defer func() { <-sem }()
			report.Adapters[i] = o.runAdapter(ctx, adapter, runID)
		}(i, adapter)
	}
	wg.Wait()

	for _, result := range report.Adapters {
		report.Stats.Add(result.Stats)
		if result.Error != "" {
			report.Errors = append(report.Errors, fmt.Sprintf("%s: %s", result.Name, result.Error))
		}
	}
	report.CompletedAt = time.Now().UTC()

	log.WithFields(map[string]interface{}{
		"processed":  report.Stats.Processed,
		"added":      report.Stats.Added,
		"updated":    report.Stats.Updated,
		"duplicates": report.Stats.Duplicates,
		"skipped":    report.Stats.Skipped,
		"errors":     report.Stats.Errors,
	}).Info("Ingestion run completed")

	return report, nil
}

// markNotRun settles every adapter from index from onward.
func (o *Orchestrator) markNotRun(report *models.RunReport, adapters []sources.Adapter, from int) {
	for j := from; j < len(adapters); j++ {
		report.Adapters[j] = models.AdapterResult{
			Name:   adapters[j].Identity().Name,
			Status: models.AdapterStatusNotRun,
		}
	}
}

// runAdapter executes one adapter end to end and always returns a
// settled result. Fetch errors fail the adapter, but records collected
// before the failure are still processed.
func (o *Orchestrator) runAdapter(ctx context.Context, adapter sources.Adapter, runID string) models.AdapterResult {
	identity := adapter.Identity()
	ctx = pkgcontext.SetSource(ctx, identity.Name)
	ctx, span := tracing.StartSpan(ctx, "orchestrator.Orchestrator.runAdapter")
	defer span.End()

	log := o.logger.WithContext(ctx).WithFields(map[string]interface{}{
		"run_id":  runID,
		"adapter": identity.Name,
	})
	log.Info("Running adapter")

	start := time.Now().UTC()
	result := models.AdapterResult{
		Name:   identity.Name,
		Status: models.AdapterStatusRunning,
	}

	job := &models.ScrapeJob{
		RunID:       runID,
		AdapterName: identity.Name,
		Status:      models.AdapterStatusRunning,
		StartedAt:   &start,
	}
	if err := o.store.CreateScrapeJob(ctx, job); err != nil {
		log.WithError(err).Warn("Failed to persist scrape job")
	}

	sourceURL := identity.SourceURL
	source, err := o.store.GetOrCreateDataSource(ctx, identity.Name, identity.SourceType, &sourceURL, o.config.SourceReliabilityDefault)
	if err != nil {
		log.WithError(err).Error("Failed to resolve data source")
		return o.settleAdapter(ctx, &result, job, start, err)
	}

	fetched, fetchErr := adapter.FetchAll(ctx)
	result.RecordCount = len(fetched.Records)
	if fetchErr != nil {
		log.WithError(fetchErr).WithField("partial_records", len(fetched.Records)).Error("Adapter fetch failed")
	}

	result.Stats = o.processRecords(ctx, adapter, fetched.Records, source, runID)
	if n := len(fetched.ParseErrors); n > 0 {
		log.WithField("parse_errors", n).Warn("Adapter skipped malformed records")
		result.Stats.Errors += n
		metrics.RecordErrorsTotal.WithLabelValues(identity.Name).Add(float64(n))
	}

	if fetchErr == nil {
		if err := o.store.TouchDataSource(ctx, source.ID); err != nil {
			log.WithError(err).Warn("Failed to update data source timestamp")
		}
	}
	return o.settleAdapter(ctx, &result, job, start, fetchErr)
}

func (o *Orchestrator) settleAdapter(ctx context.Context, result *models.AdapterResult, job *models.ScrapeJob, start time.Time, err error) models.AdapterResult {
	result.Duration = time.Since(start)
	if err != nil {
		result.Status = models.AdapterStatusFailed
		result.Error = err.Error()
	} else {
		result.Status = models.AdapterStatusCompleted
	}

	metrics.AdapterRunsTotal.WithLabelValues(result.Name, result.Status).Inc()
	metrics.AdapterRunDuration.WithLabelValues(result.Name).Observe(result.Duration.Seconds())

	completed := time.Now().UTC()
	job.Status = result.Status
	job.RecordCount = result.RecordCount
	job.CompletedAt = &completed
	if result.Error != "" {
		job.Error = &result.Error
	}
	if updateErr := o.store.UpdateScrapeJob(ctx, job); updateErr != nil {
		o.logger.WithContext(ctx).WithError(updateErr).Warn("Failed to update scrape job")
	}
	return *result
}

// processRecords normalizes and merges a batch. Processed counts only
// records that made it through the merge engine; failures are counted
// separately and never abort the batch.
func (o *Orchestrator) processRecords(ctx context.Context, adapter sources.Adapter, records []models.RawRecord, source *models.DataSource, runID string) models.Stats {
	identity := adapter.Identity()
	mapping := adapter.Mapping()
	log := o.logger.WithContext(ctx).WithField("adapter", identity.Name)

	var stats models.Stats
	for _, raw := range records {
		if ctx.Err() != nil {
			break
		}

		record := normalizers.NormalizeRecord(raw, mapping, identity.Name)

		o.mergeMu.Lock()
		outcome, err := o.merger.ProcessRecord(ctx, &record, source)
		o.mergeMu.Unlock()

		if err != nil {
			stats.Errors++
			metrics.RecordErrorsTotal.WithLabelValues(identity.Name).Inc()
			log.WithError(err).Warn("Failed to process record")
			continue
		}

		stats.Processed++
		metrics.RecordsProcessedTotal.WithLabelValues(identity.Name, outcome.Action).Inc()

		switch outcome.Action {
		case merging.ActionAdded:
			stats.Added++
			o.emitPayer(ctx, outcome.PayerID, identity.Name, runID, true)
		case merging.ActionUpdated:
			stats.Updated++
			o.emitPayer(ctx, outcome.PayerID, identity.Name, runID, false)
		case merging.ActionDuplicate:
			stats.Duplicates++
		case merging.ActionSkipped:
			stats.Skipped++
		}
	}
	return stats
}

func (o *Orchestrator) emitPayer(ctx context.Context, payerID, sourceName, runID string, created bool) {
	payer, err := o.store.GetPayer(ctx, payerID)
	if err != nil {
		o.logger.WithContext(ctx).WithError(err).WithField("payer_id", payerID).Warn("Failed to load payer for event")
		return
	}

	if created {
		err = o.emitter.EmitPayerCreated(ctx, payer, sourceName, runID)
	} else {
		err = o.emitter.EmitPayerUpdated(ctx, payer, sourceName, runID)
	}
	if err != nil {
		o.logger.WithContext(ctx).WithError(err).WithField("payer_id", payerID).Warn("Failed to emit payer event")
	}
}

// TestOne runs an adapter in dry-run mode: it fetches, caps the batch
// to sampleSize, and normalizes the sample without touching the store.
func (o *Orchestrator) TestOne(ctx context.Context, name string, sampleSize int) (*models.TestReport, error) {
	ctx, span := tracing.StartSpan(ctx, "orchestrator.Orchestrator.TestOne")
	defer span.End()

	adapter, ok := o.registry.Get(name)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrAdapterNotFound, name)
	}
	if sampleSize <= 0 {
		sampleSize = defaultTestSampleSize
	}

	identity := adapter.Identity()
	log := o.logger.WithContext(ctx).WithField("adapter", identity.Name)
	log.Info("Testing adapter")

	start := time.Now().UTC()
	report := &models.TestReport{AdapterName: identity.Name}

	fetched, err := adapter.FetchAll(ctx)
	if err != nil {
		report.Status = models.AdapterStatusFailed
		report.Error = err.Error()
		report.Duration = time.Since(start)
		return report, nil
	}

	records := fetched.Records
	if len(records) > sampleSize {
		records = records[:sampleSize]
	}
	mapping := adapter.Mapping()
	for _, raw := range records {
		normalizers.NormalizeRecord(raw, mapping, identity.Name)
	}

	report.Status = models.AdapterStatusCompleted
	report.RecordsTested = len(records)
	if len(records) > testSampleEcho {
		report.SampleData = records[:testSampleEcho]
	} else {
		report.SampleData = records
	}
	report.Duration = time.Since(start)
	return report, nil
}
