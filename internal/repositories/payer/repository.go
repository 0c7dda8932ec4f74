// Package payer persists the deduplicated payer entities.
package payer

import (
	"context"
	"database/sql"
	"errors"
	"net/http"
	"time"

	"github.com/Gobusters/ectoerror/httperror"
	"github.com/Gobusters/ectologger"
	"github.com/google/uuid"
	"github.com/huandu/go-sqlbuilder"

	"github.com/Ramsey-B/baobab/pkg/database"
	"github.com/Ramsey-B/baobab/pkg/matching"
	"github.com/Ramsey-B/baobab/pkg/models"
	"github.com/Ramsey-B/baobab/pkg/store"
	"github.com/Ramsey-B/baobab/pkg/tracing"
)

var payerColumns = []string{
	"id", "tax_id", "name", "business_name", "business_type", "business_category",
	"phone", "email", "address", "zone", "latitude", "longitude",
	"estimated_income", "property_value", "business_size", "confidence_score",
	"data_source_id", "created_at", "last_updated", "deleted_at",
}

// Repository handles payer persistence
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

// Get returns the payer by id, or store.ErrNotFound.
func (r *Repository) Get(ctx context.Context, id string) (*models.Payer, error) {
	ctx, span := tracing.StartSpan(ctx, "payer.Repository.Get")
	defer span.End()

	sb := sqlbuilder.PostgreSQL.NewSelectBuilder()
	sb.Select(payerColumns...)
	sb.From("payers")
	sb.Where(sb.Equal("id", id), sb.IsNull("deleted_at"))
	sb.Limit(1)

	query, args := sb.Build()
	var payer models.Payer
	if err := r.db.GetContext(ctx, &payer, query, args...); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrNotFound
		}
		r.logger.WithContext(ctx).WithError(err).WithField("payer_id", id).Error("Failed to get payer")
		return nil, httperror.NewHTTPError(http.StatusInternalServerError, "failed to get payer")
	}
	return &payer, nil
}

// Create inserts the payer, assigning an id and timestamps.
func (r *Repository) Create(ctx context.Context, payer *models.Payer) error {
	ctx, span := tracing.StartSpan(ctx, "payer.Repository.Create")
	defer span.End()

	if payer.ID == "" {
		payer.ID = uuid.New().String()
	}
	now := time.Now().UTC()
	payer.CreatedAt = now
	payer.LastUpdated = now

	sb := sqlbuilder.PostgreSQL.NewInsertBuilder()
	sb.InsertInto("payers")
	sb.Cols(
		"id", "tax_id", "name", "business_name", "business_type", "business_category",
		"phone", "email", "address", "zone", "latitude", "longitude",
		"estimated_income", "property_value", "business_size", "confidence_score",
		"data_source_id", "created_at", "last_updated",
	)
	sb.Values(
		payer.ID, payer.TaxID, payer.Name, payer.BusinessName, payer.BusinessType, payer.BusinessCategory,
		payer.Phone, payer.Email, payer.Address, payer.Zone, payer.Latitude, payer.Longitude,
		payer.EstimatedIncome, payer.PropertyValue, payer.BusinessSize, payer.ConfidenceScore,
		payer.DataSourceID, payer.CreatedAt, payer.LastUpdated,
	)

	query, args := sb.Build()
	if _, err := r.db.ExecContext(ctx, query, args...); err != nil {
		r.logger.WithContext(ctx).WithError(err).WithField("payer_id", payer.ID).Error("Failed to create payer")
		return httperror.NewHTTPError(http.StatusInternalServerError, "failed to create payer")
	}
	return nil
}

// Update rewrites the payer's mutable columns and bumps last_updated.
func (r *Repository) Update(ctx context.Context, payer *models.Payer) error {
	ctx, span := tracing.StartSpan(ctx, "payer.Repository.Update")
	defer span.End()

	payer.LastUpdated = time.Now().UTC()

	sb := sqlbuilder.PostgreSQL.NewUpdateBuilder()
	sb.Update("payers")
	sb.Set(
		sb.Assign("tax_id", payer.TaxID),
		sb.Assign("name", payer.Name),
		sb.Assign("business_name", payer.BusinessName),
		sb.Assign("business_type", payer.BusinessType),
		sb.Assign("business_category", payer.BusinessCategory),
		sb.Assign("phone", payer.Phone),
		sb.Assign("email", payer.Email),
		sb.Assign("address", payer.Address),
		sb.Assign("zone", payer.Zone),
		sb.Assign("latitude", payer.Latitude),
		sb.Assign("longitude", payer.Longitude),
		sb.Assign("estimated_income", payer.EstimatedIncome),
		sb.Assign("property_value", payer.PropertyValue),
		sb.Assign("business_size", payer.BusinessSize),
		sb.Assign("confidence_score", payer.ConfidenceScore),
		sb.Assign("data_source_id", payer.DataSourceID),
		sb.Assign("last_updated", payer.LastUpdated),
	)
	sb.Where(sb.Equal("id", payer.ID), sb.IsNull("deleted_at"))

	query, args := sb.Build()
	if _, err := r.db.ExecContext(ctx, query, args...); err != nil {
		r.logger.WithContext(ctx).WithError(err).WithField("payer_id", payer.ID).Error("Failed to update payer")
		return httperror.NewHTTPError(http.StatusInternalServerError, "failed to update payer")
	}
	return nil
}

// List returns one page of payers plus the total count.
func (r *Repository) List(ctx context.Context, page, pageSize int) ([]models.Payer, int, error) {
	ctx, span := tracing.StartSpan(ctx, "payer.Repository.List")
	defer span.End()

	if page < 1 {
		page = 1
	}
	if pageSize < 1 {
		pageSize = 50
	}

	var total int
	if err := r.db.GetContext(ctx, &total, "SELECT COUNT(*) FROM payers WHERE deleted_at IS NULL"); err != nil {
		r.logger.WithContext(ctx).WithError(err).Error("Failed to count payers")
		return nil, 0, httperror.NewHTTPError(http.StatusInternalServerError, "failed to count payers")
	}

	sb := sqlbuilder.PostgreSQL.NewSelectBuilder()
	sb.Select(payerColumns...)
	sb.From("payers")
	sb.Where(sb.IsNull("deleted_at"))
	sb.OrderBy("created_at DESC", "id ASC")
	sb.Limit(pageSize)
	sb.Offset((page - 1) * pageSize)

	query, args := sb.Build()
	var payers []models.Payer
	if err := r.db.SelectContext(ctx, &payers, query, args...); err != nil {
		r.logger.WithContext(ctx).WithError(err).Error("Failed to list payers")
		return nil, 0, httperror.NewHTTPError(http.StatusInternalServerError, "failed to list payers")
	}
	return payers, total, nil
}

// FindByPhone returns the payer with an exactly matching phone, or nil.
func (r *Repository) FindByPhone(ctx context.Context, phone string) (*models.Payer, error) {
	ctx, span := tracing.StartSpan(ctx, "payer.Repository.FindByPhone")
	defer span.End()

	sb := sqlbuilder.PostgreSQL.NewSelectBuilder()
	sb.Select(payerColumns...)
	sb.From("payers")
	sb.Where(sb.Equal("phone", phone), sb.IsNull("deleted_at"))
	sb.OrderBy("id ASC")
	sb.Limit(1)

	query, args := sb.Build()
	var payer models.Payer
	if err := r.db.GetContext(ctx, &payer, query, args...); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		r.logger.WithContext(ctx).WithError(err).Error("Failed to find payer by phone")
		return nil, httperror.NewHTTPError(http.StatusInternalServerError, "failed to find payer by phone")
	}
	return &payer, nil
}

type similarityRow struct {
	models.Payer
	Score float64 `db:"score"`
}

// FindByNameSimilarity returns candidates whose name or business name
// scores at or above threshold against the pg_trgm similarity of the
// query, ordered score descending then id ascending.
func (r *Repository) FindByNameSimilarity(ctx context.Context, name string, threshold float64, limit int) ([]matching.Match, error) {
	ctx, span := tracing.StartSpan(ctx, "payer.Repository.FindByNameSimilarity")
	defer span.End()

	query := `
		SELECT id, tax_id, name, business_name, business_type, business_category,
		       phone, email, address, zone, latitude, longitude,
		       estimated_income, property_value, business_size, confidence_score,
		       data_source_id, created_at, last_updated, deleted_at,
		       GREATEST(
		           similarity(lower(name), lower($1)),
		           similarity(lower(coalesce(business_name, '')), lower($1))
		       ) AS score
		FROM payers
		WHERE deleted_at IS NULL
		  AND GREATEST(
		          similarity(lower(name), lower($1)),
		          similarity(lower(coalesce(business_name, '')), lower($1))
		      ) >= $2
		ORDER BY score DESC, id ASC
		LIMIT $3
	`

	var rows []similarityRow
	if err := r.db.SelectContext(ctx, &rows, query, name, threshold, limit); err != nil {
		r.logger.WithContext(ctx).WithError(err).WithField("name", name).Error("Failed to find payers by name similarity")
		return nil, httperror.NewHTTPError(http.StatusInternalServerError, "failed to find payers by name similarity")
	}

	matches := make([]matching.Match, 0, len(rows))
	for _, row := range rows {
		matches = append(matches, matching.Match{Payer: row.Payer, Score: row.Score})
	}
	return matches, nil
}

// FindByNameAddressHash matches on case-insensitive name equality plus
// the md5 of the lowercased trimmed address.
func (r *Repository) FindByNameAddressHash(ctx context.Context, name, addressHash string) (*models.Payer, error) {
	ctx, span := tracing.StartSpan(ctx, "payer.Repository.FindByNameAddressHash")
	defer span.End()

	query := `
		SELECT id, tax_id, name, business_name, business_type, business_category,
		       phone, email, address, zone, latitude, longitude,
		       estimated_income, property_value, business_size, confidence_score,
		       data_source_id, created_at, last_updated, deleted_at
		FROM payers
		WHERE deleted_at IS NULL
		  AND lower(name) = lower($1)
		  AND address IS NOT NULL
		  AND md5(lower(btrim(address))) = $2
		ORDER BY id ASC
		LIMIT 1
	`

	var payer models.Payer
	if err := r.db.GetContext(ctx, &payer, query, name, addressHash); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		r.logger.WithContext(ctx).WithError(err).WithField("name", name).Error("Failed to find payer by name and address hash")
		return nil, httperror.NewHTTPError(http.StatusInternalServerError, "failed to find payer by name and address hash")
	}
	return &payer, nil
}
