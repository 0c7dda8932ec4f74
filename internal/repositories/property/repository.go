// Package property persists the properties owned by payers.
package property

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

// Repository handles property persistence
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

// Exists reports whether the payer already owns a property at this
// address. Addresses compare case-insensitively.
func (r *Repository) Exists(ctx context.Context, payerID, address string) (bool, error) {
	ctx, span := tracing.StartSpan(ctx, "property.Repository.Exists")
	defer span.End()

	query := `
		SELECT EXISTS(
			SELECT 1 FROM properties
			WHERE payer_id = $1 AND lower(address) = lower($2)
		)
	`

	var exists bool
	if err := r.db.GetContext(ctx, &exists, query, payerID, address); err != nil {
		r.logger.WithContext(ctx).WithError(err).WithField("payer_id", payerID).Error("Failed to check property existence")
		return false, httperror.NewHTTPError(http.StatusInternalServerError, "failed to check property existence")
	}
	return exists, nil
}

// Create inserts the property, assigning an id and timestamp.
func (r *Repository) Create(ctx context.Context, property *models.Property) error {
	ctx, span := tracing.StartSpan(ctx, "property.Repository.Create")
	defer span.End()

	if property.ID == "" {
		property.ID = uuid.New().String()
	}
	property.CreatedAt = time.Now().UTC()

	sb := sqlbuilder.PostgreSQL.NewInsertBuilder()
	sb.InsertInto("properties")
	sb.Cols("id", "payer_id", "address", "zone", "latitude", "longitude", "estimated_value", "created_at")
	sb.Values(property.ID, property.PayerID, property.Address, property.Zone, property.Latitude, property.Longitude, property.EstimatedValue, property.CreatedAt)

	query, args := sb.Build()
	if _, err := r.db.ExecContext(ctx, query, args...); err != nil {
		r.logger.WithContext(ctx).WithError(err).WithField("payer_id", property.PayerID).Error("Failed to create property")
		return httperror.NewHTTPError(http.StatusInternalServerError, "failed to create property")
	}
	return nil
}

// ListByPayer returns every property owned by the payer.
func (r *Repository) ListByPayer(ctx context.Context, payerID string) ([]models.Property, error) {
	ctx, span := tracing.StartSpan(ctx, "property.Repository.ListByPayer")
	defer span.End()

	sb := sqlbuilder.PostgreSQL.NewSelectBuilder()
	sb.Select("id", "payer_id", "address", "zone", "latitude", "longitude", "estimated_value", "created_at")
	sb.From("properties")
	sb.Where(sb.Equal("payer_id", payerID))
	sb.OrderBy("created_at ASC")

	query, args := sb.Build()
	var properties []models.Property
	if err := r.db.SelectContext(ctx, &properties, query, args...); err != nil {
		r.logger.WithContext(ctx).WithError(err).WithField("payer_id", payerID).Error("Failed to list properties")
		return nil, httperror.NewHTTPError(http.StatusInternalServerError, "failed to list properties")
	}
	return properties, nil
}
