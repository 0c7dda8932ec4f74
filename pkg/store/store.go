// Package store defines the persistence contract the pipeline consumes.
// A Postgres implementation lives in internal/repositories; the
// in-memory implementation here backs tests and dry runs.
package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/Ramsey-B/baobab/pkg/matching"
	"github.com/Ramsey-B/baobab/pkg/models"
)

// ErrNotFound marks a lookup miss.
var ErrNotFound = errors.New("not found")

// StoreError wraps a persistence failure. A record whose processing
// hits one increments the run's error count; the batch continues.
type StoreError struct {
	Op  string
	Err error
}

func (e *StoreError) Error() string {
	return fmt.Sprintf("store error in %s: %v", e.Op, e.Err)
}

func (e *StoreError) Unwrap() error {
	return e.Err
}

// PayerStore is the entity surface the matcher and merge engine use.
// The Find methods return (nil, nil) on a miss; GetPayer returns
// ErrNotFound.
type PayerStore interface {
	GetPayer(ctx context.Context, id string) (*models.Payer, error)
	CreatePayer(ctx context.Context, payer *models.Payer) error
	UpdatePayer(ctx context.Context, payer *models.Payer) error
	ListPayers(ctx context.Context, page, pageSize int) ([]models.Payer, int, error)

	FindPayerByPhone(ctx context.Context, phone string) (*models.Payer, error)

	// FindPayersByNameSimilarity returns candidates whose name or
	// business name scores at or above threshold, ordered score
	// descending then id ascending.
	FindPayersByNameSimilarity(ctx context.Context, name string, threshold float64, limit int) ([]matching.Match, error)

	// FindPayerByNameAddressHash matches on case-insensitive name
	// equality plus the md5 of the lowercased trimmed address.
	FindPayerByNameAddressHash(ctx context.Context, name, addressHash string) (*models.Payer, error)
}

// ChildStore creates and checks the child records owned by a payer.
type ChildStore interface {
	ContactExists(ctx context.Context, payerID, contactType, value string) (bool, error)
	CreateContact(ctx context.Context, contact *models.Contact) error

	BusinessExists(ctx context.Context, payerID, name string) (bool, error)
	CreateBusiness(ctx context.Context, business *models.Business) error

	PropertyExists(ctx context.Context, payerID, address string) (bool, error)
	CreateProperty(ctx context.Context, property *models.Property) error
}

// DataSourceStore tracks provenance records.
type DataSourceStore interface {
	GetDataSource(ctx context.Context, id string) (*models.DataSource, error)
	GetOrCreateDataSource(ctx context.Context, name, sourceType string, url *string, reliability float64) (*models.DataSource, error)
	TouchDataSource(ctx context.Context, id string) error
}

// JobStore persists per-adapter invocation records.
type JobStore interface {
	CreateScrapeJob(ctx context.Context, job *models.ScrapeJob) error
	UpdateScrapeJob(ctx context.Context, job *models.ScrapeJob) error
	ListScrapeJobs(ctx context.Context, runID string) ([]models.ScrapeJob, error)
}

// Store is the full persistence surface. InTransaction runs fn with
// every store call inside one logical transaction; the merge engine
// wraps each record's create-or-update in one.
type Store interface {
	PayerStore
	ChildStore
	DataSourceStore
	JobStore

	InTransaction(ctx context.Context, fn func(ctx context.Context) error) error
}
