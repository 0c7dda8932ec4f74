// Package contact persists payer contact points.
package contact

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

// Repository handles contact persistence
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

// Exists reports whether the payer already holds this contact.
// Values compare case-insensitively.
func (r *Repository) Exists(ctx context.Context, payerID, contactType, value string) (bool, error) {
	ctx, span := tracing.StartSpan(ctx, "contact.Repository.Exists")
	defer span.End()

	query := `
		SELECT EXISTS(
			SELECT 1 FROM contacts
			WHERE payer_id = $1 AND contact_type = $2 AND lower(value) = lower($3)
		)
	`

	var exists bool
	if err := r.db.GetContext(ctx, &exists, query, payerID, contactType, value); err != nil {
		r.logger.WithContext(ctx).WithError(err).WithField("payer_id", payerID).Error("Failed to check contact existence")
		return false, httperror.NewHTTPError(http.StatusInternalServerError, "failed to check contact existence")
	}
	return exists, nil
}

// Create inserts the contact, assigning an id and timestamp.
func (r *Repository) Create(ctx context.Context, contact *models.Contact) error {
	ctx, span := tracing.StartSpan(ctx, "contact.Repository.Create")
	defer span.End()

	if contact.ID == "" {
		contact.ID = uuid.New().String()
	}
	contact.CreatedAt = time.Now().UTC()

	sb := sqlbuilder.PostgreSQL.NewInsertBuilder()
	sb.InsertInto("contacts")
	sb.Cols("id", "payer_id", "contact_type", "value", "is_primary", "created_at")
	sb.Values(contact.ID, contact.PayerID, contact.ContactType, contact.Value, contact.IsPrimary, contact.CreatedAt)

	query, args := sb.Build()
	if _, err := r.db.ExecContext(ctx, query, args...); err != nil {
		r.logger.WithContext(ctx).WithError(err).WithField("payer_id", contact.PayerID).Error("Failed to create contact")
		return httperror.NewHTTPError(http.StatusInternalServerError, "failed to create contact")
	}
	return nil
}

// ListByPayer returns every contact owned by the payer.
func (r *Repository) ListByPayer(ctx context.Context, payerID string) ([]models.Contact, error) {
	ctx, span := tracing.StartSpan(ctx, "contact.Repository.ListByPayer")
	defer span.End()

	sb := sqlbuilder.PostgreSQL.NewSelectBuilder()
	sb.Select("id", "payer_id", "contact_type", "value", "is_primary", "created_at")
	sb.From("contacts")
	sb.Where(sb.Equal("payer_id", payerID))
	sb.OrderBy("created_at ASC")

	query, args := sb.Build()
	var contacts []models.Contact
	if err := r.db.SelectContext(ctx, &contacts, query, args...); err != nil {
		r.logger.WithContext(ctx).WithError(err).WithField("payer_id", payerID).Error("Failed to list contacts")
		return nil, httperror.NewHTTPError(http.StatusInternalServerError, "failed to list contacts")
	}
	return contacts, nil
}
