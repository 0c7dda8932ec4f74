// Package datasource persists provenance records for ingestion sources.
package datasource

import (
	"context"
	"database/sql"
	"errors"
	"net/http"
	"time"

	"github.com/Gobusters/ectoerror/httperror"
	"github.com/Gobusters/ectologger"
	"github.com/google/uuid"

	"github.com/Ramsey-B/baobab/pkg/database"
	"github.com/Ramsey-B/baobab/pkg/models"
	"github.com/Ramsey-B/baobab/pkg/store"
	"github.com/Ramsey-B/baobab/pkg/tracing"
)

// Repository handles data source persistence
type Repository struct {
	db     database.DB
	logger ectologger.Logger
}

func NewRepository(db database.DB, logger ectologger.Logger) *Repository {
	return &Repository{
		db:     db,
		logger: logger,
	}
}

// Get returns the data source by id, or store.ErrNotFound.
func (r *Repository) Get(ctx context.Context, id string) (*models.DataSource, error) {
	ctx, span := tracing.StartSpan(ctx, "datasource.Repository.Get")
	defer span.End()

	query := `
		SELECT id, name, source_type, url, reliability_score, last_scraped, created_at
		FROM data_sources
		WHERE id = $1
	`

	var source models.DataSource
	if err := r.db.GetContext(ctx, &source, query, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrNotFound
		}
		r.logger.WithContext(ctx).WithError(err).WithField("data_source_id", id).Error("Failed to get data source")
		return nil, httperror.NewHTTPError(http.StatusInternalServerError, "failed to get data source")
	}
	return &source, nil
}

// GetOrCreate returns the data source named name, creating it with the
// given defaults on first sight. Names are unique; concurrent callers
// converge on the same row.
func (r *Repository) GetOrCreate(ctx context.Context, name, sourceType string, url *string, reliability float64) (*models.DataSource, error) {
	ctx, span := tracing.StartSpan(ctx, "datasource.Repository.GetOrCreate")
	defer span.End()

	query := `
		INSERT INTO data_sources (id, name, source_type, url, reliability_score, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (name) DO UPDATE SET name = EXCLUDED.name
		RETURNING id, name, source_type, url, reliability_score, last_scraped, created_at
	`

	var source models.DataSource
	err := r.db.GetContext(ctx, &source, query, uuid.New().String(), name, sourceType, url, reliability, time.Now().UTC())
	if err != nil {
		r.logger.WithContext(ctx).WithError(err).WithField("name", name).Error("Failed to get or create data source")
		return nil, httperror.NewHTTPError(http.StatusInternalServerError, "failed to get or create data source")
	}
	return &source, nil
}

// Touch stamps last_scraped with the current time.
func (r *Repository) Touch(ctx context.Context, id string) error {
	ctx, span := tracing.StartSpan(ctx, "datasource.Repository.Touch")
	defer span.End()

	query := `UPDATE data_sources SET last_scraped = $1 WHERE id = $2`
	if _, err := r.db.ExecContext(ctx, query, time.Now().UTC(), id); err != nil {
		r.logger.WithContext(ctx).WithError(err).WithField("data_source_id", id).Error("Failed to touch data source")
		return httperror.NewHTTPError(http.StatusInternalServerError, "failed to touch data source")
	}
	return nil
}
