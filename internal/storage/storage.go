// Package storage assembles the Postgres repositories into the single
// persistence surface the matcher, merge engine, and orchestrator use.
package storage

import (
	"context"

	"github.com/Gobusters/ectologger"

	"github.com/Ramsey-B/baobab/internal/repositories/business"
	"github.com/Ramsey-B/baobab/internal/repositories/contact"
	"github.com/Ramsey-B/baobab/internal/repositories/datasource"
	"github.com/Ramsey-B/baobab/internal/repositories/payer"
	"github.com/Ramsey-B/baobab/internal/repositories/property"
	"github.com/Ramsey-B/baobab/internal/repositories/scrapejob"
	"github.com/Ramsey-B/baobab/pkg/database"
	"github.com/Ramsey-B/baobab/pkg/matching"
	"github.com/Ramsey-B/baobab/pkg/models"
	"github.com/Ramsey-B/baobab/pkg/store"
)

// Storage implements store.Store on Postgres.
type Storage struct {
	db     database.DB
	logger ectologger.Logger

	payers      *payer.Repository
	contacts    *contact.Repository
	businesses  *business.Repository
	properties  *property.Repository
	dataSources *datasource.Repository
	scrapeJobs  *scrapejob.Repository
}

var _ store.Store = (*Storage)(nil)

func New(db database.DB, logger ectologger.Logger) *Storage {
	return &Storage{
		db:          db,
		logger:      logger,
		payers:      payer.NewRepository(db, logger),
		contacts:    contact.NewRepository(db, logger),
		businesses:  business.NewRepository(db, logger),
		properties:  property.NewRepository(db, logger),
		dataSources: datasource.NewRepository(db, logger),
		scrapeJobs:  scrapejob.NewRepository(db, logger),
	}
}

func (s *Storage) GetPayer(ctx context.Context, id string) (*models.Payer, error) {
	return s.payers.Get(ctx, id)
}

func (s *Storage) CreatePayer(ctx context.Context, p *models.Payer) error {
	return s.payers.Create(ctx, p)
}

func (s *Storage) UpdatePayer(ctx context.Context, p *models.Payer) error {
	return s.payers.Update(ctx, p)
}

func (s *Storage) ListPayers(ctx context.Context, page, pageSize int) ([]models.Payer, int, error) {
	return s.payers.List(ctx, page, pageSize)
}

func (s *Storage) FindPayerByPhone(ctx context.Context, phone string) (*models.Payer, error) {
	return s.payers.FindByPhone(ctx, phone)
}

func (s *Storage) FindPayersByNameSimilarity(ctx context.Context, name string, threshold float64, limit int) ([]matching.Match, error) {
	return s.payers.FindByNameSimilarity(ctx, name, threshold, limit)
}

func (s *Storage) FindPayerByNameAddressHash(ctx context.Context, name, addressHash string) (*models.Payer, error) {
	return s.payers.FindByNameAddressHash(ctx, name, addressHash)
}

func (s *Storage) ContactExists(ctx context.Context, payerID, contactType, value string) (bool, error) {
	return s.contacts.Exists(ctx, payerID, contactType, value)
}

func (s *Storage) CreateContact(ctx context.Context, c *models.Contact) error {
	return s.contacts.Create(ctx, c)
}

func (s *Storage) ListContacts(ctx context.Context, payerID string) ([]models.Contact, error) {
	return s.contacts.ListByPayer(ctx, payerID)
}

func (s *Storage) BusinessExists(ctx context.Context, payerID, name string) (bool, error) {
	return s.businesses.Exists(ctx, payerID, name)
}

func (s *Storage) CreateBusiness(ctx context.Context, b *models.Business) error {
	return s.businesses.Create(ctx, b)
}

func (s *Storage) ListBusinesses(ctx context.Context, payerID string) ([]models.Business, error) {
	return s.businesses.ListByPayer(ctx, payerID)
}

func (s *Storage) PropertyExists(ctx context.Context, payerID, address string) (bool, error) {
	return s.properties.Exists(ctx, payerID, address)
}

func (s *Storage) CreateProperty(ctx context.Context, p *models.Property) error {
	return s.properties.Create(ctx, p)
}

func (s *Storage) ListProperties(ctx context.Context, payerID string) ([]models.Property, error) {
	return s.properties.ListByPayer(ctx, payerID)
}

func (s *Storage) GetDataSource(ctx context.Context, id string) (*models.DataSource, error) {
	return s.dataSources.Get(ctx, id)
}

func (s *Storage) GetOrCreateDataSource(ctx context.Context, name, sourceType string, url *string, reliability float64) (*models.DataSource, error) {
	return s.dataSources.GetOrCreate(ctx, name, sourceType, url, reliability)
}

func (s *Storage) TouchDataSource(ctx context.Context, id string) error {
	return s.dataSources.Touch(ctx, id)
}

func (s *Storage) CreateScrapeJob(ctx context.Context, job *models.ScrapeJob) error {
	return s.scrapeJobs.Create(ctx, job)
}

func (s *Storage) UpdateScrapeJob(ctx context.Context, job *models.ScrapeJob) error {
	return s.scrapeJobs.Update(ctx, job)
}

func (s *Storage) ListScrapeJobs(ctx context.Context, runID string) ([]models.ScrapeJob, error) {
	return s.scrapeJobs.ListByRun(ctx, runID)
}

// InTransaction runs fn with every store call routed through one
// database transaction. Nested calls join the outer transaction; only
// the outermost caller commits.
func (s *Storage) InTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	if database.InTx(ctx) {
		return fn(ctx)
	}

	outerCtx := ctx
	ctx, tx, err := database.GetTx(ctx, s.logger, s.db, nil)
	if err != nil {
		return err
	}
	defer func() {
		_ = tx.Rollback(outerCtx)
	}()

	if err := fn(ctx); err != nil {
		return err
	}
	return tx.Commit(outerCtx)
}
