package merging_test

import (
	"context"
	"testing"

	"github.com/Gobusters/ectologger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Ramsey-B/baobab/pkg/matching"
	"github.com/Ramsey-B/baobab/pkg/merging"
	"github.com/Ramsey-B/baobab/pkg/models"
	"github.com/Ramsey-B/baobab/pkg/store"
)

func testLogger() ectologger.Logger {
	return ectologger.NewEctoLogger(func(_ ectologger.EctoLogMessage) {})
}

func strPtr(s string) *string { return &s }

func floatPtr(f float64) *float64 { return &f }

func newEngine(s *store.InMemoryStore, config merging.Config) *merging.Engine {
	matcher := matching.NewEngine(s, 0.8, 5, testLogger())
	return merging.NewEngine(s, matcher, config, testLogger())
}

func testSource(t *testing.T, s *store.InMemoryStore, name string, reliability float64) *models.DataSource {
	t.Helper()
	source, err := s.GetOrCreateDataSource(context.Background(), name, models.SourceTypeScraped, nil, reliability)
	require.NoError(t, err)
	return source
}

func TestProcessRecordCreatesNewPayer(t *testing.T) {
	s := store.NewInMemoryStore()
	engine := newEngine(s, merging.Config{})
	source := testSource(t, s, "government_registry", 0.9)

	record := &models.CanonicalRecord{
		Name:            "Grace Okafor",
		BusinessName:    strPtr("Okafor Supermarket"),
		Phone:           strPtr("+2348012345678"),
		Email:           strPtr("grace@example.com"),
		ConfidenceScore: floatPtr(0.8),
	}

	outcome, err := engine.ProcessRecord(context.Background(), record, source)

	require.NoError(t, err)
	assert.Equal(t, merging.ActionAdded, outcome.Action)

	payer, err := s.GetPayer(context.Background(), outcome.PayerID)
	require.NoError(t, err)
	assert.Equal(t, "Grace Okafor", payer.Name)
	assert.Equal(t, 0.8, payer.ConfidenceScore)
	require.NotNil(t, payer.DataSourceID)
	assert.Equal(t, source.ID, *payer.DataSourceID)

	// contacts and business children exist
	exists, err := s.ContactExists(context.Background(), payer.ID, models.ContactTypePhone, "+2348012345678")
	require.NoError(t, err)
	assert.True(t, exists)
	exists, err = s.ContactExists(context.Background(), payer.ID, models.ContactTypeEmail, "grace@example.com")
	require.NoError(t, err)
	assert.True(t, exists)
	exists, err = s.BusinessExists(context.Background(), payer.ID, "Okafor Supermarket")
	require.NoError(t, err)
	assert.True(t, exists)
}

func TestProcessRecordDefaultsConfidence(t *testing.T) {
	s := store.NewInMemoryStore()
	engine := newEngine(s, merging.Config{})
	source := testSource(t, s, "directory", 0.75)

	outcome, err := engine.ProcessRecord(context.Background(), &models.CanonicalRecord{Name: "No Confidence Co"}, source)

	require.NoError(t, err)
	payer, err := s.GetPayer(context.Background(), outcome.PayerID)
	require.NoError(t, err)
	assert.Equal(t, 0.5, payer.ConfidenceScore)
}

func TestProcessRecordRejectsNamelessRecords(t *testing.T) {
	s := store.NewInMemoryStore()
	engine := newEngine(s, merging.Config{})
	source := testSource(t, s, "directory", 0.75)

	_, err := engine.ProcessRecord(context.Background(), &models.CanonicalRecord{Phone: strPtr("+2348000000000")}, source)
	assert.ErrorIs(t, err, merging.ErrNoUsableName)
}

func TestFillOnlyMergeNeverOverwrites(t *testing.T) {
	s := store.NewInMemoryStore()
	engine := newEngine(s, merging.Config{})
	source := testSource(t, s, "government_registry", 0.9)

	first := &models.CanonicalRecord{
		Name:            "Grace Okafor",
		BusinessName:    strPtr("Okafor Supermarket"),
		Phone:           strPtr("+2348012345678"),
		ConfidenceScore: floatPtr(0.8),
	}
	outcome, err := engine.ProcessRecord(context.Background(), first, source)
	require.NoError(t, err)
	assert.Equal(t, merging.ActionAdded, outcome.Action)

	// lower confidence record with a conflicting business name
	second := &models.CanonicalRecord{
		Name:            "Grace Okafor",
		BusinessName:    strPtr("Okafor Superstore"),
		Phone:           strPtr("+2348012345678"),
		ConfidenceScore: floatPtr(0.6),
	}
	outcome2, err := engine.ProcessRecord(context.Background(), second, source)
	require.NoError(t, err)
	assert.Equal(t, merging.ActionUpdated, outcome2.Action)
	assert.Equal(t, outcome.PayerID, outcome2.PayerID)

	payer, err := s.GetPayer(context.Background(), outcome.PayerID)
	require.NoError(t, err)
	require.NotNil(t, payer.BusinessName)
	assert.Equal(t, "Okafor Supermarket", *payer.BusinessName)
	assert.Equal(t, 0.8, payer.ConfidenceScore)
}

func TestHigherConfidenceFillsOnlyEmptyFields(t *testing.T) {
	s := store.NewInMemoryStore()
	engine := newEngine(s, merging.Config{})
	source := testSource(t, s, "directory", 0.75)

	first := &models.CanonicalRecord{
		Name:            "Abba Chukwu",
		Phone:           strPtr("+2348011110000"),
		Address:         strPtr("Area 1, Garki"),
		ConfidenceScore: floatPtr(0.5),
	}
	outcome, err := engine.ProcessRecord(context.Background(), first, source)
	require.NoError(t, err)

	second := &models.CanonicalRecord{
		Name:            "Abba Chukwu",
		Phone:           strPtr("+2348011110000"),
		Address:         strPtr("Completely Different Address"),
		Email:           strPtr("abba@example.com"),
		ConfidenceScore: floatPtr(0.9),
	}
	_, err = engine.ProcessRecord(context.Background(), second, source)
	require.NoError(t, err)

	payer, err := s.GetPayer(context.Background(), outcome.PayerID)
	require.NoError(t, err)
	// populated field kept even against higher confidence
	assert.Equal(t, "Area 1, Garki", *payer.Address)
	// empty field filled
	require.NotNil(t, payer.Email)
	assert.Equal(t, "abba@example.com", *payer.Email)
	// confidence is the max of old and new
	assert.Equal(t, 0.9, payer.ConfidenceScore)
}

func TestProvenanceUpgradeIndependentOfFieldMerge(t *testing.T) {
	s := store.NewInMemoryStore()
	engine := newEngine(s, merging.Config{})
	directory := testSource(t, s, "directory", 0.6)
	government := testSource(t, s, "government_registry", 0.95)

	first := &models.CanonicalRecord{
		Name:            "Zara Farms",
		Phone:           strPtr("+2348022220000"),
		ConfidenceScore: floatPtr(0.9),
	}
	outcome, err := engine.ProcessRecord(context.Background(), first, directory)
	require.NoError(t, err)

	// lower record confidence, but higher source reliability
	second := &models.CanonicalRecord{
		Name:            "Zara Farms",
		Phone:           strPtr("+2348022220000"),
		ConfidenceScore: floatPtr(0.4),
	}
	outcome2, err := engine.ProcessRecord(context.Background(), second, government)
	require.NoError(t, err)
	assert.Equal(t, merging.ActionUpdated, outcome2.Action)

	payer, err := s.GetPayer(context.Background(), outcome.PayerID)
	require.NoError(t, err)
	require.NotNil(t, payer.DataSourceID)
	assert.Equal(t, government.ID, *payer.DataSourceID)
	// field confidence untouched by the provenance upgrade
	assert.Equal(t, 0.9, payer.ConfidenceScore)
}

func TestIdenticalRerunIsDuplicate(t *testing.T) {
	s := store.NewInMemoryStore()
	engine := newEngine(s, merging.Config{})
	source := testSource(t, s, "directory", 0.75)

	record := &models.CanonicalRecord{
		Name:            "Wuse Bakery",
		BusinessName:    strPtr("Wuse Bakery"),
		Phone:           strPtr("+2348033330000"),
		ConfidenceScore: floatPtr(0.7),
	}

	outcome, err := engine.ProcessRecord(context.Background(), record, source)
	require.NoError(t, err)
	assert.Equal(t, merging.ActionAdded, outcome.Action)

	// identical rerun matches by phone and changes nothing
	rerun := *record
	outcome2, err := engine.ProcessRecord(context.Background(), &rerun, source)
	require.NoError(t, err)
	assert.Equal(t, merging.ActionDuplicate, outcome2.Action)
	assert.Equal(t, outcome.PayerID, outcome2.PayerID)

	_, total, err := s.ListPayers(context.Background(), 1, 10)
	require.NoError(t, err)
	assert.Equal(t, 1, total)
}

func TestSameBusinessNameDedupesWithoutPhone(t *testing.T) {
	s := store.NewInMemoryStore()
	engine := newEngine(s, merging.Config{})
	source := testSource(t, s, "directory", 0.75)

	first := &models.CanonicalRecord{
		Name:         "Okafor Supermarket",
		BusinessName: strPtr("Okafor Supermarket"),
		Address:      strPtr("Plot 4, Wuse Zone 2, Abuja"),
	}
	outcome, err := engine.ProcessRecord(context.Background(), first, source)
	require.NoError(t, err)
	assert.Equal(t, merging.ActionAdded, outcome.Action)

	// same trading name at a different address, no phone on either side
	second := &models.CanonicalRecord{
		Name:         "Okafor Supermarket",
		BusinessName: strPtr("Okafor Supermarket"),
		Address:      strPtr("Area 11, Garki, Abuja"),
	}
	outcome2, err := engine.ProcessRecord(context.Background(), second, source)
	require.NoError(t, err)
	assert.Equal(t, merging.ActionDuplicate, outcome2.Action)
	assert.Equal(t, outcome.PayerID, outcome2.PayerID)
	assert.Equal(t, matching.StrategyFuzzyName, outcome2.Strategy)

	_, total, err := s.ListPayers(context.Background(), 1, 10)
	require.NoError(t, err)
	assert.Equal(t, 1, total)
}

func TestRejectLowConfidenceGate(t *testing.T) {
	record := &models.CanonicalRecord{
		Name:            "Borderline Co",
		ConfidenceScore: floatPtr(0.4),
	}

	// gate off: record creates an entity
	s := store.NewInMemoryStore()
	engine := newEngine(s, merging.Config{ConfidenceThreshold: 0.6, RejectLowConfidence: false})
	source := testSource(t, s, "directory", 0.75)
	outcome, err := engine.ProcessRecord(context.Background(), record, source)
	require.NoError(t, err)
	assert.Equal(t, merging.ActionAdded, outcome.Action)

	// gate on: record is skipped, nothing is created
	s2 := store.NewInMemoryStore()
	engine2 := newEngine(s2, merging.Config{ConfidenceThreshold: 0.6, RejectLowConfidence: true})
	source2 := testSource(t, s2, "directory", 0.75)
	outcome2, err := engine2.ProcessRecord(context.Background(), record, source2)
	require.NoError(t, err)
	assert.Equal(t, merging.ActionSkipped, outcome2.Action)

	_, total, err := s2.ListPayers(context.Background(), 1, 10)
	require.NoError(t, err)
	assert.Equal(t, 0, total)
}

func TestMatchedEntityGainsNewChildFacts(t *testing.T) {
	s := store.NewInMemoryStore()
	engine := newEngine(s, merging.Config{})
	source := testSource(t, s, "directory", 0.75)

	first := &models.CanonicalRecord{
		Name:            "Maitama Clinic",
		Phone:           strPtr("+2348044440000"),
		ConfidenceScore: floatPtr(0.8),
	}
	outcome, err := engine.ProcessRecord(context.Background(), first, source)
	require.NoError(t, err)

	// same entity, lower confidence, but a new website contact
	second := &models.CanonicalRecord{
		Name:            "Maitama Clinic",
		Phone:           strPtr("+2348044440000"),
		Website:         strPtr("https://maitamaclinic.ng"),
		ConfidenceScore: floatPtr(0.5),
	}
	outcome2, err := engine.ProcessRecord(context.Background(), second, source)
	require.NoError(t, err)
	assert.Equal(t, merging.ActionUpdated, outcome2.Action)

	exists, err := s.ContactExists(context.Background(), outcome.PayerID, models.ContactTypeWebsite, "https://maitamaclinic.ng")
	require.NoError(t, err)
	assert.True(t, exists)
}

func TestPropertyChildDefaultsFromPayer(t *testing.T) {
	s := store.NewInMemoryStore()
	engine := newEngine(s, merging.Config{})
	source := testSource(t, s, "government_registry", 0.9)

	record := &models.CanonicalRecord{
		Name:            "Asokoro Estates Ltd",
		Address:         strPtr("Plot 7, Asokoro"),
		PropertyAddress: strPtr("Plot 7, Asokoro"),
		Zone:            strPtr("Asokoro"),
		PropertyValue:   floatPtr(50_000_000),
		ConfidenceScore: floatPtr(0.9),
	}

	outcome, err := engine.ProcessRecord(context.Background(), record, source)
	require.NoError(t, err)

	exists, err := s.PropertyExists(context.Background(), outcome.PayerID, "Plot 7, Asokoro")
	require.NoError(t, err)
	assert.True(t, exists)
}
