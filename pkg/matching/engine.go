// Package matching finds at most one existing payer for an incoming
// record using an ordered set of strategies.
package matching

import (
	"context"

	"github.com/Gobusters/ectologger"

	"github.com/Ramsey-B/baobab/pkg/fingerprint"
	"github.com/Ramsey-B/baobab/pkg/models"
	"github.com/Ramsey-B/baobab/pkg/tracing"
)

// Match strategies in precedence order.
const (
	StrategyPhone       = "phone"
	StrategyFuzzyName   = "fuzzy_name"
	StrategyNameAddress = "name_address"
)

// minFuzzyNameLength gates the fuzzy strategy; very short names trigram
// too noisily to be trusted.
const minFuzzyNameLength = 3

// Match pairs a payer with its similarity score.
type Match struct {
	Payer models.Payer
	Score float64
}

// Finder is the read-only store surface the matcher consults. Find
// methods return (nil, nil) on a miss.
type Finder interface {
	FindPayerByPhone(ctx context.Context, phone string) (*models.Payer, error)
	FindPayersByNameSimilarity(ctx context.Context, name string, threshold float64, limit int) ([]Match, error)
	FindPayerByNameAddressHash(ctx context.Context, name, addressHash string) (*models.Payer, error)
}

// Result identifies the matched payer and which strategy found it.
type Result struct {
	Payer    *models.Payer
	Strategy string
	Score    float64
}

// Engine evaluates the strategies in order: exact phone, fuzzy business
// name above threshold, then name plus address hash. First hit wins.
// Matching never mutates state.
type Engine struct {
	finder         Finder
	threshold      float64
	candidateLimit int
	logger         ectologger.Logger
}

func NewEngine(finder Finder, threshold float64, candidateLimit int, logger ectologger.Logger) *Engine {
	if candidateLimit <= 0 {
		candidateLimit = 5
	}
	return &Engine{
		finder:         finder,
		threshold:      threshold,
		candidateLimit: candidateLimit,
		logger:         logger,
	}
}

// FindMatch returns the single best existing payer for the record, or
// nil when the record is a new entity.
func (e *Engine) FindMatch(ctx context.Context, record *models.CanonicalRecord) (*Result, error) {
	ctx, span := tracing.StartSpan(ctx, "matching.Engine.FindMatch")
	defer span.End()

	log := e.logger.WithContext(ctx)

	// Strategy 1: exact phone. Phone identity is authoritative.
	if record.Phone != nil && *record.Phone != "" {
		payer, err := e.finder.FindPayerByPhone(ctx, *record.Phone)
		if err != nil {
			return nil, err
		}
		if payer != nil {
			log.WithField("payer_id", payer.ID).Debug("Matched by phone")
			return &Result{Payer: payer, Strategy: StrategyPhone, Score: 1.0}, nil
		}
	}

	// Strategy 2: fuzzy business name. Candidates are scored against
	// both stored name and business name, best of the two; ties break
	// to the lowest id.
	if record.BusinessName != nil && len(*record.BusinessName) > minFuzzyNameLength {
		candidates, err := e.finder.FindPayersByNameSimilarity(ctx, *record.BusinessName, e.threshold, e.candidateLimit)
		if err != nil {
			return nil, err
		}
		if len(candidates) > 0 {
			best := candidates[0]
			log.WithFields(map[string]interface{}{
				"payer_id": best.Payer.ID,
				"score":    best.Score,
			}).Debug("Matched by business name similarity")
			return &Result{Payer: &best.Payer, Strategy: StrategyFuzzyName, Score: best.Score}, nil
		}
	}

	// Strategy 3: identical name plus identical address content hash.
	if record.Name != "" && record.Address != nil && *record.Address != "" {
		hash := fingerprint.AddressHash(*record.Address)
		payer, err := e.finder.FindPayerByNameAddressHash(ctx, record.Name, hash)
		if err != nil {
			return nil, err
		}
		if payer != nil {
			log.WithField("payer_id", payer.ID).Debug("Matched by name and address hash")
			return &Result{Payer: payer, Strategy: StrategyNameAddress, Score: 1.0}, nil
		}
	}

	return nil, nil
}
