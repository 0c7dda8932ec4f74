package store

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/Ramsey-B/baobab/pkg/fingerprint"
	"github.com/Ramsey-B/baobab/pkg/matching"
	"github.com/Ramsey-B/baobab/pkg/models"
)

// InMemoryStore is a map-backed Store. It backs tests and adapter dry
// runs; production uses the Postgres store.
type InMemoryStore struct {
	mu          sync.RWMutex
	payers      map[string]models.Payer
	contacts    map[string]models.Contact
	businesses  map[string]models.Business
	properties  map[string]models.Property
	dataSources map[string]models.DataSource
	jobs        map[string]models.ScrapeJob
	scorer      *matching.Scorer
}

func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{
		payers:      make(map[string]models.Payer),
		contacts:    make(map[string]models.Contact),
		businesses:  make(map[string]models.Business),
		properties:  make(map[string]models.Property),
		dataSources: make(map[string]models.DataSource),
		jobs:        make(map[string]models.ScrapeJob),
		scorer:      matching.NewScorer(),
	}
}

func (s *InMemoryStore) GetPayer(_ context.Context, id string) (*models.Payer, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	payer, ok := s.payers[id]
	if !ok {
		return nil, ErrNotFound
	}
	return &payer, nil
}

func (s *InMemoryStore) CreatePayer(_ context.Context, payer *models.Payer) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if payer.ID == "" {
		payer.ID = uuid.New().String()
	}
	now := time.Now().UTC()
	if payer.CreatedAt.IsZero() {
		payer.CreatedAt = now
	}
	payer.LastUpdated = now
	s.payers[payer.ID] = *payer
	return nil
}

func (s *InMemoryStore) UpdatePayer(_ context.Context, payer *models.Payer) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.payers[payer.ID]; !ok {
		return ErrNotFound
	}
	payer.LastUpdated = time.Now().UTC()
	s.payers[payer.ID] = *payer
	return nil
}

func (s *InMemoryStore) ListPayers(_ context.Context, page, pageSize int) ([]models.Payer, int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ids := make([]string, 0, len(s.payers))
	for id := range s.payers {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	total := len(ids)
	if page < 1 {
		page = 1
	}
	if pageSize < 1 {
		pageSize = 50
	}
	start := (page - 1) * pageSize
	if start >= total {
		return []models.Payer{}, total, nil
	}
	end := start + pageSize
	if end > total {
		end = total
	}

	payers := make([]models.Payer, 0, end-start)
	for _, id := range ids[start:end] {
		payers = append(payers, s.payers[id])
	}
	return payers, total, nil
}

func (s *InMemoryStore) FindPayerByPhone(_ context.Context, phone string) (*models.Payer, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, payer := range s.payers {
		if payer.Phone != nil && *payer.Phone == phone {
			p := payer
			return &p, nil
		}
	}
	return nil, nil
}

func (s *InMemoryStore) FindPayersByNameSimilarity(_ context.Context, name string, threshold float64, limit int) ([]matching.Match, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var matches []matching.Match
	for _, payer := range s.payers {
		targets := []string{payer.Name}
		if payer.BusinessName != nil {
			targets = append(targets, *payer.BusinessName)
		}
		score := s.scorer.GreatestSimilarity(name, targets...)
		if score >= threshold {
			matches = append(matches, matching.Match{Payer: payer, Score: score})
		}
	}

	sort.Slice(matches, func(i, j int) bool {
		if matches[i].Score != matches[j].Score {
			return matches[i].Score > matches[j].Score
		}
		return matches[i].Payer.ID < matches[j].Payer.ID
	})

	if limit > 0 && len(matches) > limit {
		matches = matches[:limit]
	}
	return matches, nil
}

func (s *InMemoryStore) FindPayerByNameAddressHash(_ context.Context, name, addressHash string) (*models.Payer, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	nameLower := strings.ToLower(strings.TrimSpace(name))
	for _, payer := range s.payers {
		if payer.Address == nil {
			continue
		}
		if strings.ToLower(strings.TrimSpace(payer.Name)) != nameLower {
			continue
		}
		if fingerprint.AddressHash(*payer.Address) == addressHash {
			p := payer
			return &p, nil
		}
	}
	return nil, nil
}

func contactKey(payerID, contactType, value string) string {
	return payerID + "|" + contactType + "|" + strings.ToLower(value)
}

func (s *InMemoryStore) ContactExists(_ context.Context, payerID, contactType, value string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	_, ok := s.contacts[contactKey(payerID, contactType, value)]
	return ok, nil
}

func (s *InMemoryStore) CreateContact(_ context.Context, contact *models.Contact) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if contact.ID == "" {
		contact.ID = uuid.New().String()
	}
	if contact.CreatedAt.IsZero() {
		contact.CreatedAt = time.Now().UTC()
	}
	s.contacts[contactKey(contact.PayerID, contact.ContactType, contact.Value)] = *contact
	return nil
}

func (s *InMemoryStore) BusinessExists(_ context.Context, payerID, name string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	_, ok := s.businesses[payerID+"|"+strings.ToLower(name)]
	return ok, nil
}

func (s *InMemoryStore) CreateBusiness(_ context.Context, business *models.Business) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if business.ID == "" {
		business.ID = uuid.New().String()
	}
	if business.CreatedAt.IsZero() {
		business.CreatedAt = time.Now().UTC()
	}
	s.businesses[business.PayerID+"|"+strings.ToLower(business.Name)] = *business
	return nil
}

func (s *InMemoryStore) PropertyExists(_ context.Context, payerID, address string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	_, ok := s.properties[payerID+"|"+strings.ToLower(address)]
	return ok, nil
}

func (s *InMemoryStore) CreateProperty(_ context.Context, property *models.Property) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if property.ID == "" {
		property.ID = uuid.New().String()
	}
	if property.CreatedAt.IsZero() {
		property.CreatedAt = time.Now().UTC()
	}
	s.properties[property.PayerID+"|"+strings.ToLower(property.Address)] = *property
	return nil
}

func (s *InMemoryStore) GetDataSource(_ context.Context, id string) (*models.DataSource, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, source := range s.dataSources {
		if source.ID == id {
			ds := source
			return &ds, nil
		}
	}
	return nil, ErrNotFound
}

func (s *InMemoryStore) GetOrCreateDataSource(_ context.Context, name, sourceType string, url *string, reliability float64) (*models.DataSource, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if source, ok := s.dataSources[name]; ok {
		return &source, nil
	}
	source := models.DataSource{
		ID:               uuid.New().String(),
		Name:             name,
		SourceType:       sourceType,
		URL:              url,
		ReliabilityScore: reliability,
		CreatedAt:        time.Now().UTC(),
	}
	s.dataSources[name] = source
	return &source, nil
}

func (s *InMemoryStore) TouchDataSource(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for name, source := range s.dataSources {
		if source.ID == id {
			now := time.Now().UTC()
			source.LastScraped = &now
			s.dataSources[name] = source
			return nil
		}
	}
	return ErrNotFound
}

func (s *InMemoryStore) CreateScrapeJob(_ context.Context, job *models.ScrapeJob) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if job.ID == "" {
		job.ID = uuid.New().String()
	}
	if job.CreatedAt.IsZero() {
		job.CreatedAt = time.Now().UTC()
	}
	s.jobs[job.ID] = *job
	return nil
}

func (s *InMemoryStore) UpdateScrapeJob(_ context.Context, job *models.ScrapeJob) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.jobs[job.ID]; !ok {
		return ErrNotFound
	}
	s.jobs[job.ID] = *job
	return nil
}

func (s *InMemoryStore) ListScrapeJobs(_ context.Context, runID string) ([]models.ScrapeJob, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var jobs []models.ScrapeJob
	for _, job := range s.jobs {
		if job.RunID == runID {
			jobs = append(jobs, job)
		}
	}
	sort.Slice(jobs, func(i, j int) bool { return jobs[i].CreatedAt.Before(jobs[j].CreatedAt) })
	return jobs, nil
}

// InTransaction runs fn directly. The map store has no rollback; tests
// relying on transactional behavior use the Postgres store.
func (s *InMemoryStore) InTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	return fn(ctx)
}
