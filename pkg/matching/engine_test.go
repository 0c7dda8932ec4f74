package matching_test

import (
	"context"
	"testing"

	"github.com/Gobusters/ectologger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Ramsey-B/baobab/pkg/matching"
	"github.com/Ramsey-B/baobab/pkg/models"
	"github.com/Ramsey-B/baobab/pkg/store"
)

func testLogger() ectologger.Logger {
	return ectologger.NewEctoLogger(func(_ ectologger.EctoLogMessage) {})
}

func strPtr(s string) *string { return &s }

func seedPayer(t *testing.T, s *store.InMemoryStore, payer models.Payer) models.Payer {
	t.Helper()
	require.NoError(t, s.CreatePayer(context.Background(), &payer))
	return payer
}

func TestFindMatchByPhone(t *testing.T) {
	s := store.NewInMemoryStore()
	existing := seedPayer(t, s, models.Payer{
		Name:  "Grace Okafor",
		Phone: strPtr("+2348012345678"),
	})

	engine := matching.NewEngine(s, 0.8, 5, testLogger())
	result, err := engine.FindMatch(context.Background(), &models.CanonicalRecord{
		Name:  "G. Okafor",
		Phone: strPtr("+2348012345678"),
	})

	require.NoError(t, err)
	require.NotNil(t, result)
	assert.Equal(t, matching.StrategyPhone, result.Strategy)
	assert.Equal(t, existing.ID, result.Payer.ID)
}

func TestFindMatchPhonePrecedesFuzzyName(t *testing.T) {
	s := store.NewInMemoryStore()
	phoneOwner := seedPayer(t, s, models.Payer{
		Name:  "Entity A",
		Phone: strPtr("+2348012345678"),
	})
	seedPayer(t, s, models.Payer{
		Name:         "Entity B",
		BusinessName: strPtr("Okafor Supermarket"),
	})

	engine := matching.NewEngine(s, 0.8, 5, testLogger())
	result, err := engine.FindMatch(context.Background(), &models.CanonicalRecord{
		Name:         "Grace Okafor",
		BusinessName: strPtr("Okafor Supermarket"),
		Phone:        strPtr("+2348012345678"),
	})

	require.NoError(t, err)
	require.NotNil(t, result)
	assert.Equal(t, matching.StrategyPhone, result.Strategy)
	assert.Equal(t, phoneOwner.ID, result.Payer.ID)
}

func TestFindMatchByFuzzyBusinessName(t *testing.T) {
	s := store.NewInMemoryStore()
	existing := seedPayer(t, s, models.Payer{
		Name:         "Grace Okafor",
		BusinessName: strPtr("Okafor Supermarket"),
	})

	engine := matching.NewEngine(s, 0.8, 5, testLogger())
	result, err := engine.FindMatch(context.Background(), &models.CanonicalRecord{
		Name:         "G Okafor",
		BusinessName: strPtr("Okafor Supermarkets"),
	})

	require.NoError(t, err)
	require.NotNil(t, result)
	assert.Equal(t, matching.StrategyFuzzyName, result.Strategy)
	assert.Equal(t, existing.ID, result.Payer.ID)
	assert.GreaterOrEqual(t, result.Score, 0.8)
}

func TestFindMatchFuzzyRespectsThreshold(t *testing.T) {
	s := store.NewInMemoryStore()
	seedPayer(t, s, models.Payer{
		Name:         "Grace Okafor",
		BusinessName: strPtr("Okafor Supermarket"),
	})

	engine := matching.NewEngine(s, 0.8, 5, testLogger())
	result, err := engine.FindMatch(context.Background(), &models.CanonicalRecord{
		Name:         "Someone Else",
		BusinessName: strPtr("Completely Different Ventures"),
	})

	require.NoError(t, err)
	assert.Nil(t, result)
}

func TestFindMatchSkipsShortBusinessNames(t *testing.T) {
	s := store.NewInMemoryStore()
	seedPayer(t, s, models.Payer{
		Name:         "Ace Holdings",
		BusinessName: strPtr("Ace"),
	})

	engine := matching.NewEngine(s, 0.8, 5, testLogger())
	result, err := engine.FindMatch(context.Background(), &models.CanonicalRecord{
		Name:         "Other Person",
		BusinessName: strPtr("Ace"),
	})

	require.NoError(t, err)
	assert.Nil(t, result)
}

func TestFindMatchByNameAddressHash(t *testing.T) {
	s := store.NewInMemoryStore()
	existing := seedPayer(t, s, models.Payer{
		Name:    "Grace Okafor",
		Address: strPtr("12 Douala Street, Wuse 2"),
	})

	engine := matching.NewEngine(s, 0.8, 5, testLogger())
	result, err := engine.FindMatch(context.Background(), &models.CanonicalRecord{
		Name:    "grace okafor",
		Address: strPtr("12 DOUALA STREET, WUSE 2"),
	})

	require.NoError(t, err)
	require.NotNil(t, result)
	assert.Equal(t, matching.StrategyNameAddress, result.Strategy)
	assert.Equal(t, existing.ID, result.Payer.ID)
}

func TestFindMatchNoStrategies(t *testing.T) {
	s := store.NewInMemoryStore()
	seedPayer(t, s, models.Payer{Name: "Unrelated Person"})

	engine := matching.NewEngine(s, 0.8, 5, testLogger())
	result, err := engine.FindMatch(context.Background(), &models.CanonicalRecord{
		Name: "Brand New Person",
	})

	require.NoError(t, err)
	assert.Nil(t, result)
}

func TestFindMatchFuzzyTieBreaksToLowestID(t *testing.T) {
	s := store.NewInMemoryStore()
	a := seedPayer(t, s, models.Payer{ID: "aaaa", Name: "Okafor Supermarket"})
	seedPayer(t, s, models.Payer{ID: "bbbb", Name: "Okafor Supermarket"})

	engine := matching.NewEngine(s, 0.8, 5, testLogger())
	result, err := engine.FindMatch(context.Background(), &models.CanonicalRecord{
		Name:         "X",
		BusinessName: strPtr("Okafor Supermarket"),
	})

	require.NoError(t, err)
	require.NotNil(t, result)
	assert.Equal(t, a.ID, result.Payer.ID)
}
