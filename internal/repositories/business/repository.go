// Package business persists the businesses owned by payers.
package business

import (
	"context"
	"net/http"
	"time"

	"github.com/Gobusters/ectoerror/httperror"
	"github.com/Gobusters/ectologger"
	"github.com/google/uuid"
	"github.com/huandu/go-sqlbuilder"

	"github.com/Ramsey-B/baobab/pkg/database"
	"github.com/Ramsey-B/baobab/pkg/models"
	"github.com/Ramsey-B/baobab/pkg/tracing"
)

// Repository handles business persistence
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

// Exists reports whether the payer already owns a business with this
// name. Names compare case-insensitively.
func (r *Repository) Exists(ctx context.Context, payerID, name string) (bool, error) {
	ctx, span := tracing.StartSpan(ctx, "business.Repository.Exists")
	defer span.End()

	query := `
		SELECT EXISTS(
			SELECT 1 FROM businesses
			WHERE payer_id = $1 AND lower(name) = lower($2)
		)
	`

	var exists bool
	if err := r.db.GetContext(ctx, &exists, query, payerID, name); err != nil {
		r.logger.WithContext(ctx).WithError(err).WithField("payer_id", payerID).Error("Failed to check business existence")
		return false, httperror.NewHTTPError(http.StatusInternalServerError, "failed to check business existence")
	}
	return exists, nil
}

// Create inserts the business, assigning an id and timestamp.
func (r *Repository) Create(ctx context.Context, business *models.Business) error {
	ctx, span := tracing.StartSpan(ctx, "business.Repository.Create")
	defer span.End()

	if business.ID == "" {
		business.ID = uuid.New().String()
	}
	business.CreatedAt = time.Now().UTC()

	sb := sqlbuilder.PostgreSQL.NewInsertBuilder()
	sb.InsertInto("businesses")
	sb.Cols("id", "payer_id", "name", "business_type", "category", "status", "created_at")
	sb.Values(business.ID, business.PayerID, business.Name, business.BusinessType, business.Category, business.Status, business.CreatedAt)

	query, args := sb.Build()
	if _, err := r.db.ExecContext(ctx, query, args...); err != nil {
		r.logger.WithContext(ctx).WithError(err).WithField("payer_id", business.PayerID).Error("Failed to create business")
		return httperror.NewHTTPError(http.StatusInternalServerError, "failed to create business")
	}
	return nil
}

// ListByPayer returns every business owned by the payer.
func (r *Repository) ListByPayer(ctx context.Context, payerID string) ([]models.Business, error) {
	ctx, span := tracing.StartSpan(ctx, "business.Repository.ListByPayer")
	defer span.End()

	sb := sqlbuilder.PostgreSQL.NewSelectBuilder()
	sb.Select("id", "payer_id", "name", "business_type", "category", "status", "created_at")
	sb.From("businesses")
	sb.Where(sb.Equal("payer_id", payerID))
	sb.OrderBy("created_at ASC")

	query, args := sb.Build()
	var businesses []models.Business
	if err := r.db.SelectContext(ctx, &businesses, query, args...); err != nil {
		r.logger.WithContext(ctx).WithError(err).WithField("payer_id", payerID).Error("Failed to list businesses")
		return nil, httperror.NewHTTPError(http.StatusInternalServerError, "failed to list businesses")
	}
	return businesses, nil
}
