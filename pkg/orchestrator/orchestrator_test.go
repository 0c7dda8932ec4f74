package orchestrator_test

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/Gobusters/ectologger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Ramsey-B/baobab/pkg/matching"
	"github.com/Ramsey-B/baobab/pkg/merging"
	"github.com/Ramsey-B/baobab/pkg/models"
	"github.com/Ramsey-B/baobab/pkg/normalizers"
	"github.com/Ramsey-B/baobab/pkg/orchestrator"
	"github.com/Ramsey-B/baobab/pkg/sources"
	"github.com/Ramsey-B/baobab/pkg/store"
)

func testLogger() ectologger.Logger {
	return ectologger.NewEctoLogger(func(_ ectologger.EctoLogMessage) {})
}

type fakeAdapter struct {
	name       string
	sourceType string
	records    []models.RawRecord
	parseErrs  []*sources.ParseError
	err        error
	mapping    normalizers.FieldMapping

	mu    sync.Mutex
	calls int
}

func (a *fakeAdapter) Identity() models.AdapterIdentity {
	sourceType := a.sourceType
	if sourceType == "" {
		sourceType = models.SourceTypeGovernment
	}
	return models.AdapterIdentity{
		Name:       a.name,
		SourceURL:  "http://example.test/" + a.name,
		SourceType: sourceType,
	}
}

func (a *fakeAdapter) FetchAll(ctx context.Context) (sources.FetchResult, error) {
	a.mu.Lock()
	a.calls++
	a.mu.Unlock()
	return sources.FetchResult{Records: a.records, ParseErrors: a.parseErrs}, a.err
}

func (a *fakeAdapter) Mapping() normalizers.FieldMapping {
	if a.mapping != nil {
		return a.mapping
	}
	return normalizers.IdentityMapping()
}

type recordingEmitter struct {
	mu      sync.Mutex
	created []string
	updated []string
}

func (e *recordingEmitter) EmitPayerCreated(_ context.Context, payer *models.Payer, _, _ string) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.created = append(e.created, payer.ID)
	return nil
}

func (e *recordingEmitter) EmitPayerUpdated(_ context.Context, payer *models.Payer, _, _ string) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.updated = append(e.updated, payer.ID)
	return nil
}

func newOrchestrator(registry *sources.Registry, s *store.InMemoryStore, emitter *recordingEmitter) *orchestrator.Orchestrator {
	logger := testLogger()
	matcher := matching.NewEngine(s, 0.8, 5, logger)
	merger := merging.NewEngine(s, matcher, merging.Config{}, logger)
	config := orchestrator.Config{MaxConcurrentSources: 1, SourceReliabilityDefault: 0.75}
	return orchestrator.NewOrchestrator(registry, s, merger, emitter, nil, config, logger)
}

func rawPayer(name, phone string) models.RawRecord {
	return models.RawRecord{
		"name":    name,
		"phone":   phone,
		"address": "Plot 4, Wuse Zone 2, Abuja",
	}
}

func TestRunAllProcessesEveryAdapter(t *testing.T) {
	registry := sources.NewRegistry()
	registry.Register(&fakeAdapter{
		name:    "government_registry",
		records: []models.RawRecord{rawPayer("Adaeze Stores", "08031234567")},
	})
	registry.Register(&fakeAdapter{
		name:       "business_directory",
		sourceType: models.SourceTypeDirectory,
		records:    []models.RawRecord{rawPayer("Bello Logistics", "08087654321")},
	})

	s := store.NewInMemoryStore()
	emitter := &recordingEmitter{}
	o := newOrchestrator(registry, s, emitter)

	report, err := o.RunAll(context.Background())
	require.NoError(t, err)
	require.Len(t, report.Adapters, 2)

	assert.NotEmpty(t, report.RunID)
	for _, result := range report.Adapters {
		assert.Equal(t, models.AdapterStatusCompleted, result.Status)
		assert.Equal(t, 1, result.RecordCount)
	}
	assert.Equal(t, 2, report.Stats.Processed)
	assert.Equal(t, 2, report.Stats.Added)
	assert.Empty(t, report.Errors)

	payers, total, err := s.ListPayers(context.Background(), 1, 10)
	require.NoError(t, err)
	assert.Equal(t, 2, total)
	assert.Len(t, payers, 2)
	assert.Len(t, emitter.created, 2)
}

func TestRunAllContinuesPastAdapterFailure(t *testing.T) {
	registry := sources.NewRegistry()
	registry.Register(&fakeAdapter{
		name: "government_registry",
		err:  errors.New("connection reset"),
	})
	registry.Register(&fakeAdapter{
		name:       "business_directory",
		sourceType: models.SourceTypeDirectory,
		records:    []models.RawRecord{rawPayer("Bello Logistics", "08087654321")},
	})

	s := store.NewInMemoryStore()
	o := newOrchestrator(registry, s, &recordingEmitter{})

	report, err := o.RunAll(context.Background())
	require.NoError(t, err)
	require.Len(t, report.Adapters, 2)

	assert.Equal(t, models.AdapterStatusFailed, report.Adapters[0].Status)
	assert.Equal(t, "connection reset", report.Adapters[0].Error)
	assert.Equal(t, models.AdapterStatusCompleted, report.Adapters[1].Status)
	assert.Equal(t, 1, report.Stats.Added)
	require.Len(t, report.Errors, 1)
	assert.Contains(t, report.Errors[0], "government_registry")
}

func TestRunAllProcessesPartialRecordsOnFetchFailure(t *testing.T) {
	registry := sources.NewRegistry()
	registry.Register(&fakeAdapter{
		name:    "government_registry",
		records: []models.RawRecord{rawPayer("Adaeze Stores", "08031234567")},
		err:     errors.New("timeout on page 3"),
	})

	s := store.NewInMemoryStore()
	o := newOrchestrator(registry, s, &recordingEmitter{})

	report, err := o.RunAll(context.Background())
	require.NoError(t, err)
	require.Len(t, report.Adapters, 1)

	assert.Equal(t, models.AdapterStatusFailed, report.Adapters[0].Status)
	assert.Equal(t, 1, report.Adapters[0].RecordCount)
	assert.Equal(t, 1, report.Stats.Added)

	_, total, err := s.ListPayers(context.Background(), 1, 10)
	require.NoError(t, err)
	assert.Equal(t, 1, total)
}

func TestRunAllCancellationMarksRemainingNotRun(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())

	first := &fakeAdapter{name: "government_registry"}
	blocking := &blockingAdapter{inner: first, cancel: cancel}

	second := &fakeAdapter{
		name:       "business_directory",
		sourceType: models.SourceTypeDirectory,
		records:    []models.RawRecord{rawPayer("Bello Logistics", "08087654321")},
	}

	registry := sources.NewRegistry()
	registry.Register(blocking)
	registry.Register(second)

	s := store.NewInMemoryStore()
	o := newOrchestrator(registry, s, &recordingEmitter{})

	report, err := o.RunAll(ctx)
	require.NoError(t, err)
	require.Len(t, report.Adapters, 2)

	assert.Equal(t, models.AdapterStatusCompleted, report.Adapters[0].Status)
	assert.Equal(t, models.AdapterStatusNotRun, report.Adapters[1].Status)

	second.mu.Lock()
	defer second.mu.Unlock()
	assert.Zero(t, second.calls)
}

// blockingAdapter cancels the run during its own fetch so the next
// adapter never dispatches.
type blockingAdapter struct {
	inner  *fakeAdapter
	cancel context.CancelFunc
}

func (a *blockingAdapter) Identity() models.AdapterIdentity { return a.inner.Identity() }

func (a *blockingAdapter) FetchAll(ctx context.Context) (sources.FetchResult, error) {
	a.cancel()
	return a.inner.FetchAll(ctx)
}

func (a *blockingAdapter) Mapping() normalizers.FieldMapping { return a.inner.Mapping() }

func TestRunAllIdempotentRerun(t *testing.T) {
	registry := sources.NewRegistry()
	registry.Register(&fakeAdapter{
		name:    "government_registry",
		records: []models.RawRecord{rawPayer("Adaeze Stores", "08031234567")},
	})

	s := store.NewInMemoryStore()
	emitter := &recordingEmitter{}
	o := newOrchestrator(registry, s, emitter)

	first, err := o.RunAll(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, first.Stats.Added)

	second, err := o.RunAll(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 0, second.Stats.Added)
	assert.Equal(t, 1, second.Stats.Duplicates)

	_, total, err := s.ListPayers(context.Background(), 1, 10)
	require.NoError(t, err)
	assert.Equal(t, 1, total)
	assert.Len(t, emitter.created, 1)
	assert.Empty(t, emitter.updated)
}

func TestRunAllCountsRecordErrors(t *testing.T) {
	registry := sources.NewRegistry()
	registry.Register(&fakeAdapter{
		name: "government_registry",
		records: []models.RawRecord{
			{"address": "No name at all"},
			rawPayer("Adaeze Stores", "08031234567"),
		},
	})

	s := store.NewInMemoryStore()
	o := newOrchestrator(registry, s, &recordingEmitter{})

	report, err := o.RunAll(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 1, report.Stats.Processed)
	assert.Equal(t, 1, report.Stats.Added)
	assert.Equal(t, 1, report.Stats.Errors)
	assert.Equal(t, models.AdapterStatusCompleted, report.Adapters[0].Status)
}

func TestRunAllCountsParseFailures(t *testing.T) {
	registry := sources.NewRegistry()
	registry.Register(&fakeAdapter{
		name:    "government_registry",
		records: []models.RawRecord{rawPayer("Adaeze Stores", "08031234567")},
		parseErrs: []*sources.ParseError{
			{Source: "government_registry", Err: errors.New("json: cannot unmarshal string")},
		},
	})

	s := store.NewInMemoryStore()
	o := newOrchestrator(registry, s, &recordingEmitter{})

	report, err := o.RunAll(context.Background())
	require.NoError(t, err)

	// the malformed entry is skipped but still counted
	assert.Equal(t, 1, report.Stats.Processed)
	assert.Equal(t, 1, report.Stats.Added)
	assert.Equal(t, 1, report.Stats.Errors)
	assert.Equal(t, models.AdapterStatusCompleted, report.Adapters[0].Status)
	assert.Equal(t, 1, report.Adapters[0].RecordCount)
}

func TestRunAllPersistsScrapeJobs(t *testing.T) {
	registry := sources.NewRegistry()
	registry.Register(&fakeAdapter{
		name:    "government_registry",
		records: []models.RawRecord{rawPayer("Adaeze Stores", "08031234567")},
	})
	registry.Register(&fakeAdapter{
		name:       "business_directory",
		sourceType: models.SourceTypeDirectory,
		err:        errors.New("boom"),
	})

	s := store.NewInMemoryStore()
	o := newOrchestrator(registry, s, &recordingEmitter{})

	report, err := o.RunAll(context.Background())
	require.NoError(t, err)

	jobs, err := s.ListScrapeJobs(context.Background(), report.RunID)
	require.NoError(t, err)
	require.Len(t, jobs, 2)

	byName := map[string]models.ScrapeJob{}
	for _, job := range jobs {
		byName[job.AdapterName] = job
	}
	assert.Equal(t, models.AdapterStatusCompleted, byName["government_registry"].Status)
	assert.Equal(t, 1, byName["government_registry"].RecordCount)
	require.NotNil(t, byName["business_directory"].Error)
	assert.Equal(t, "boom", *byName["business_directory"].Error)
}

func TestRunOne(t *testing.T) {
	registry := sources.NewRegistry()
	registry.Register(&fakeAdapter{
		name:    "government_registry",
		records: []models.RawRecord{rawPayer("Adaeze Stores", "08031234567")},
	})
	registry.Register(&fakeAdapter{
		name:       "business_directory",
		sourceType: models.SourceTypeDirectory,
		records:    []models.RawRecord{rawPayer("Bello Logistics", "08087654321")},
	})

	s := store.NewInMemoryStore()
	o := newOrchestrator(registry, s, &recordingEmitter{})

	report, err := o.RunOne(context.Background(), "business_directory")
	require.NoError(t, err)
	require.Len(t, report.Adapters, 1)
	assert.Equal(t, "business_directory", report.Adapters[0].Name)

	_, total, err := s.ListPayers(context.Background(), 1, 10)
	require.NoError(t, err)
	assert.Equal(t, 1, total)
}

func TestRunOneUnknownAdapter(t *testing.T) {
	s := store.NewInMemoryStore()
	o := newOrchestrator(sources.NewRegistry(), s, &recordingEmitter{})

	report, err := o.RunOne(context.Background(), "no_such_source")
	assert.Nil(t, report)
	assert.ErrorIs(t, err, orchestrator.ErrAdapterNotFound)
}

func TestListAdapters(t *testing.T) {
	registry := sources.NewRegistry()
	registry.Register(&fakeAdapter{name: "government_registry"})
	registry.Register(&fakeAdapter{name: "business_directory", sourceType: models.SourceTypeDirectory})

	s := store.NewInMemoryStore()
	o := newOrchestrator(registry, s, &recordingEmitter{})

	identities := o.ListAdapters()
	require.Len(t, identities, 2)
	assert.Equal(t, "government_registry", identities[0].Name)
	assert.Equal(t, "business_directory", identities[1].Name)
}

func TestTestOneDryRun(t *testing.T) {
	records := make([]models.RawRecord, 0, 8)
	for i := 0; i < 8; i++ {
		records = append(records, rawPayer("Adaeze Stores", "08031234567"))
	}

	registry := sources.NewRegistry()
	registry.Register(&fakeAdapter{name: "government_registry", records: records})

	s := store.NewInMemoryStore()
	o := newOrchestrator(registry, s, &recordingEmitter{})

	report, err := o.TestOne(context.Background(), "government_registry", 0)
	require.NoError(t, err)

	assert.Equal(t, models.AdapterStatusCompleted, report.Status)
	assert.Equal(t, 5, report.RecordsTested)
	assert.Len(t, report.SampleData, 2)

	// Dry runs never write.
	_, total, err := s.ListPayers(context.Background(), 1, 10)
	require.NoError(t, err)
	assert.Zero(t, total)
}

func TestTestOneFetchFailure(t *testing.T) {
	registry := sources.NewRegistry()
	registry.Register(&fakeAdapter{name: "government_registry", err: errors.New("unreachable")})

	s := store.NewInMemoryStore()
	o := newOrchestrator(registry, s, &recordingEmitter{})

	report, err := o.TestOne(context.Background(), "government_registry", 5)
	require.NoError(t, err)

	assert.Equal(t, models.AdapterStatusFailed, report.Status)
	assert.Equal(t, "unreachable", report.Error)
	assert.Zero(t, report.RecordsTested)
	assert.Empty(t, report.SampleData)
}

func TestTestOneUnknownAdapter(t *testing.T) {
	s := store.NewInMemoryStore()
	o := newOrchestrator(sources.NewRegistry(), s, &recordingEmitter{})

	_, err := o.TestOne(context.Background(), "nope", 5)
	assert.ErrorIs(t, err, orchestrator.ErrAdapterNotFound)
}

func TestRunAllUpdatesExistingEntity(t *testing.T) {
	registry := sources.NewRegistry()
	registry.Register(&fakeAdapter{
		name: "government_registry",
		records: []models.RawRecord{{
			"name":             "Grace Okafor",
			"phone":            "08031234567",
			"confidence_score": 0.8,
		}},
	})
	registry.Register(&fakeAdapter{
		name:       "business_directory",
		sourceType: models.SourceTypeDirectory,
		mapping: normalizers.FieldMapping{
			"business_name": normalizers.FieldName,
			"phone":         normalizers.FieldPhone,
			"email":         normalizers.FieldEmail,
		},
		records: []models.RawRecord{{
			"business_name": "Okafor Superstore",
			"phone":         "+2348031234567",
			"email":         "grace@okafor.ng",
		}},
	})

	s := store.NewInMemoryStore()
	emitter := &recordingEmitter{}
	o := newOrchestrator(registry, s, emitter)

	report, err := o.RunAll(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 2, report.Stats.Processed)
	assert.Equal(t, 1, report.Stats.Added)
	assert.Equal(t, 1, report.Stats.Updated)

	_, total, err := s.ListPayers(context.Background(), 1, 10)
	require.NoError(t, err)
	assert.Equal(t, 1, total)
	assert.Len(t, emitter.created, 1)
	assert.Len(t, emitter.updated, 1)
}
