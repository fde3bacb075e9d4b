// Package call persists ingested calls.
package call

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/Gobusters/ectologger"
	"github.com/google/uuid"

	"github.com/Ramsey-B/fern/pkg/database"
	"github.com/Ramsey-B/fern/pkg/models"
	"github.com/Ramsey-B/fern/pkg/tracing"
)

// CallRepository defines the interface for call persistence
type CallRepository interface {
	CreateIfAbsent(ctx context.Context, call *models.Call) (*models.Call, bool, error)
	GetByID(ctx context.Context, id uuid.UUID) (*models.Call, error)
	GetByExternalID(ctx context.Context, externalID string) (*models.Call, error)
	List(ctx context.Context, filter models.ListCallsFilter) ([]models.Call, int, error)
}

// Repository implements CallRepository
type Repository struct {
	db     database.DB
	logger ectologger.Logger
}

// NewRepository creates a new call repository
func NewRepository(db database.DB, logger ectologger.Logger) *Repository {
	return &Repository{
		db:     db,
		logger: logger,
	}
}

const tableName = "calls"

var columns = []string{
	"id", "external_id", "direction", "caller_number", "caller_name",
	"called_number", "called_name", "start_time", "end_time",
	"duration_seconds", "recording_url", "received_at", "created_at", "updated_at",
}

// CreateIfAbsent inserts the call keyed by its external ID. When a row with
// the same external ID already exists the insert is a no-op and the existing
// row is returned with created=false, which is how duplicate webhook
// deliveries collapse into one call.
func (r *Repository) CreateIfAbsent(ctx context.Context, call *models.Call) (*models.Call, bool, error) {
	ctx, span := tracing.StartSpan(ctx, "CallRepository.CreateIfAbsent")
	defer span.End()

	now := time.Now()
	if call.ID == uuid.Nil {
		call.ID = uuid.New()
	}

	sb := database.NewInsertBuilder()
	sb.InsertInto(tableName)
	sb.Cols(columns...)
	sb.Values(
		call.ID, call.ExternalID, call.Direction, call.CallerNumber, call.CallerName,
		call.CalledNumber, call.CalledName, call.StartTime, call.EndTime,
		call.DurationSeconds, call.RecordingURL, call.ReceivedAt, now, now,
	)
	sb.OnConflictColumnsDoNothing("external_id")

	query, args := sb.Build()

	result, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		r.logger.WithContext(ctx).WithError(err).Error("failed to create call")
		return nil, false, fmt.Errorf("failed to create call: %w", err)
	}

	rowsAffected, _ := result.RowsAffected()
	created := rowsAffected > 0

	stored, err := r.GetByExternalID(ctx, call.ExternalID)
	if err != nil {
		return nil, false, err
	}
	if stored == nil {
		return nil, false, fmt.Errorf("call %s not found after insert", call.ExternalID)
	}

	if created {
		r.logger.WithContext(ctx).WithFields(map[string]any{
			"id":          stored.ID,
			"external_id": stored.ExternalID,
		}).Info("created call")
	}

	return stored, created, nil
}

// GetByID gets a call by ID
func (r *Repository) GetByID(ctx context.Context, id uuid.UUID) (*models.Call, error) {
	ctx, span := tracing.StartSpan(ctx, "CallRepository.GetByID")
	defer span.End()

	sb := database.NewSelectBuilder()
	sb.Select(columns...)
	sb.From(tableName)
	sb.Where(sb.Equal("id", id))

	query, args := sb.Build()

	var call models.Call
	err := r.db.GetContext(ctx, &call, query, args...)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		r.logger.WithContext(ctx).WithError(err).Error("failed to get call by ID")
		return nil, fmt.Errorf("failed to get call: %w", err)
	}

	return &call, nil
}

// GetByExternalID gets a call by the telephony platform's identifier
func (r *Repository) GetByExternalID(ctx context.Context, externalID string) (*models.Call, error) {
	ctx, span := tracing.StartSpan(ctx, "CallRepository.GetByExternalID")
	defer span.End()

	sb := database.NewSelectBuilder()
	sb.Select(columns...)
	sb.From(tableName)
	sb.Where(sb.Equal("external_id", externalID))

	query, args := sb.Build()

	var call models.Call
	err := r.db.GetContext(ctx, &call, query, args...)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		r.logger.WithContext(ctx).WithError(err).Error("failed to get call by external ID")
		return nil, fmt.Errorf("failed to get call: %w", err)
	}

	return &call, nil
}

// List lists calls matching the filter with pagination, newest first
func (r *Repository) List(ctx context.Context, filter models.ListCallsFilter) ([]models.Call, int, error) {
	ctx, span := tracing.StartSpan(ctx, "CallRepository.List")
	defer span.End()

	page := filter.Page
	pageSize := filter.PageSize
	if page < 1 {
		page = 1
	}
	if pageSize < 1 {
		pageSize = 20
	}
	if pageSize > 100 {
		pageSize = 100
	}
	offset := (page - 1) * pageSize

	countSb := database.NewSelectBuilder()
	countSb.Select("COUNT(*)")
	countSb.From(tableName)
	applyFilter(countSb, filter)
	countQuery, countArgs := countSb.Build()

	var totalCount int
	err := r.db.GetContext(ctx, &totalCount, countQuery, countArgs...)
	if err != nil {
		r.logger.WithContext(ctx).WithError(err).Error("failed to count calls")
		return nil, 0, fmt.Errorf("failed to count calls: %w", err)
	}

	sb := database.NewSelectBuilder()
	sb.Select(columns...)
	sb.From(tableName)
	applyFilter(sb, filter)
	sb.OrderBy("start_time DESC")
	sb.Limit(pageSize)
	sb.Offset(offset)

	query, args := sb.Build()

	var items []models.Call
	err = r.db.SelectContext(ctx, &items, query, args...)
	if err != nil {
		r.logger.WithContext(ctx).WithError(err).Error("failed to list calls")
		return nil, 0, fmt.Errorf("failed to list calls: %w", err)
	}

	return items, totalCount, nil
}

func applyFilter(sb *database.SelectBuilder, filter models.ListCallsFilter) {
	if filter.Direction != nil {
		sb.Where(sb.Equal("direction", *filter.Direction))
	}
	if filter.From != nil {
		sb.Where(sb.GreaterEqualThan("start_time", *filter.From))
	}
	if filter.To != nil {
		sb.Where(sb.LessThan("start_time", *filter.To))
	}
}
