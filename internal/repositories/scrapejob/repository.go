// Package scrapejob persists per-adapter invocation records.
package scrapejob

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

// Repository handles scrape job persistence
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

// Create inserts the job, assigning an id and timestamp.
func (r *Repository) Create(ctx context.Context, job *models.ScrapeJob) error {
	ctx, span := tracing.StartSpan(ctx, "scrapejob.Repository.Create")
	defer span.End()

	if job.ID == "" {
		job.ID = uuid.New().String()
	}
	job.CreatedAt = time.Now().UTC()

	sb := sqlbuilder.PostgreSQL.NewInsertBuilder()
	sb.InsertInto("scrape_jobs")
	sb.Cols("id", "run_id", "adapter_name", "status", "record_count", "error", "started_at", "completed_at", "created_at")
	sb.Values(job.ID, job.RunID, job.AdapterName, job.Status, job.RecordCount, job.Error, job.StartedAt, job.CompletedAt, job.CreatedAt)

	query, args := sb.Build()
	if _, err := r.db.ExecContext(ctx, query, args...); err != nil {
		r.logger.WithContext(ctx).WithError(err).WithField("run_id", job.RunID).Error("Failed to create scrape job")
		return httperror.NewHTTPError(http.StatusInternalServerError, "failed to create scrape job")
	}
	return nil
}

// Update rewrites the job's outcome columns.
func (r *Repository) Update(ctx context.Context, job *models.ScrapeJob) error {
	ctx, span := tracing.StartSpan(ctx, "scrapejob.Repository.Update")
	defer span.End()

	sb := sqlbuilder.PostgreSQL.NewUpdateBuilder()
	sb.Update("scrape_jobs")
	sb.Set(
		sb.Assign("status", job.Status),
		sb.Assign("record_count", job.RecordCount),
		sb.Assign("error", job.Error),
		sb.Assign("completed_at", job.CompletedAt),
	)
	sb.Where(sb.Equal("id", job.ID))

	query, args := sb.Build()
	if _, err := r.db.ExecContext(ctx, query, args...); err != nil {
		r.logger.WithContext(ctx).WithError(err).WithField("scrape_job_id", job.ID).Error("Failed to update scrape job")
		return httperror.NewHTTPError(http.StatusInternalServerError, "failed to update scrape job")
	}
	return nil
}

// ListByRun returns every job recorded for a run, oldest first.
func (r *Repository) ListByRun(ctx context.Context, runID string) ([]models.ScrapeJob, error) {
	ctx, span := tracing.StartSpan(ctx, "scrapejob.Repository.ListByRun")
	defer span.End()

	sb := sqlbuilder.PostgreSQL.NewSelectBuilder()
	sb.Select("id", "run_id", "adapter_name", "status", "record_count", "error", "started_at", "completed_at", "created_at")
	sb.From("scrape_jobs")
	sb.Where(sb.Equal("run_id", runID))
	sb.OrderBy("created_at ASC")

	query, args := sb.Build()
	var jobs []models.ScrapeJob
	if err := r.db.SelectContext(ctx, &jobs, query, args...); err != nil {
		r.logger.WithContext(ctx).WithError(err).WithField("run_id", runID).Error("Failed to list scrape jobs")
		return nil, httperror.NewHTTPError(http.StatusInternalServerError, "failed to list scrape jobs")
	}
	return jobs, nil
}
