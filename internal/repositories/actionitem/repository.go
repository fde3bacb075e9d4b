// Package actionitem persists follow-up tasks extracted from calls.
package actionitem

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

// ActionItemRepository defines the interface for action item persistence
type ActionItemRepository interface {
	CreateBatch(ctx context.Context, callID uuid.UUID, items []models.ExtractedActionItem) ([]models.ActionItem, error)
	GetByID(ctx context.Context, id uuid.UUID) (*models.ActionItem, error)
	ListByCall(ctx context.Context, callID uuid.UUID) ([]models.ActionItem, error)
	List(ctx context.Context, filter models.ListActionItemsFilter) ([]models.ActionItem, int, error)
	Update(ctx context.Context, id uuid.UUID, req models.UpdateActionItemRequest) (*models.ActionItem, error)
	UpdateStatus(ctx context.Context, id uuid.UUID, status models.ActionItemStatus) (*models.ActionItem, error)
	Delete(ctx context.Context, id uuid.UUID) (bool, error)
	DeleteByCall(ctx context.Context, callID uuid.UUID) error
}

// Repository implements ActionItemRepository
type Repository struct {
	db     database.DB
	logger ectologger.Logger
}

// NewRepository creates a new action item repository
func NewRepository(db database.DB, logger ectologger.Logger) *Repository {
	return &Repository{
		db:     db,
		logger: logger,
	}
}

const tableName = "action_items"

var columns = []string{
	"id", "call_id", "description", "assignee", "due_date", "priority",
	"status", "completed_at", "created_at", "updated_at",
}

// CreateBatch inserts the extracted items for a call in one statement. All
// items start pending.
func (r *Repository) CreateBatch(ctx context.Context, callID uuid.UUID, items []models.ExtractedActionItem) ([]models.ActionItem, error) {
	ctx, span := tracing.StartSpan(ctx, "ActionItemRepository.CreateBatch")
	defer span.End()

	if len(items) == 0 {
		return nil, nil
	}

	now := time.Now()

	sb := database.NewInsertBuilder()
	sb.InsertInto(tableName)
	sb.Cols("id", "call_id", "description", "assignee", "due_date", "priority", "status", "created_at", "updated_at")
	for _, item := range items {
		sb.Values(uuid.New(), callID, item.Description, item.Assignee, item.DueDate, item.Priority, models.ActionItemPending, now, now)
	}

	query, args := sb.Build()

	if _, err := database.Executor(ctx, r.db).ExecContext(ctx, query, args...); err != nil {
		r.logger.WithContext(ctx).WithError(err).Error("failed to create action items")
		return nil, fmt.Errorf("failed to create action items: %w", err)
	}

	r.logger.WithContext(ctx).WithFields(map[string]any{
		"call_id": callID,
		"count":   len(items),
	}).Info("created action items")

	return r.ListByCall(ctx, callID)
}

// GetByID gets an action item by ID
func (r *Repository) GetByID(ctx context.Context, id uuid.UUID) (*models.ActionItem, error) {
	ctx, span := tracing.StartSpan(ctx, "ActionItemRepository.GetByID")
	defer span.End()

	sb := database.NewSelectBuilder()
	sb.Select(columns...)
	sb.From(tableName)
	sb.Where(sb.Equal("id", id))

	query, args := sb.Build()

	var item models.ActionItem
	err := database.Executor(ctx, r.db).GetContext(ctx, &item, query, args...)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		r.logger.WithContext(ctx).WithError(err).Error("failed to get action item")
		return nil, fmt.Errorf("failed to get action item: %w", err)
	}

	return &item, nil
}

// ListByCall lists the action items for one call, highest priority first
func (r *Repository) ListByCall(ctx context.Context, callID uuid.UUID) ([]models.ActionItem, error) {
	ctx, span := tracing.StartSpan(ctx, "ActionItemRepository.ListByCall")
	defer span.End()

	sb := database.NewSelectBuilder()
	sb.Select(columns...)
	sb.From(tableName)
	sb.Where(sb.Equal("call_id", callID))
	sb.OrderBy("priority DESC", "created_at ASC")

	query, args := sb.Build()

	var items []models.ActionItem
	if err := database.Executor(ctx, r.db).SelectContext(ctx, &items, query, args...); err != nil {
		r.logger.WithContext(ctx).WithError(err).Error("failed to list action items for call")
		return nil, fmt.Errorf("failed to list action items: %w", err)
	}

	return items, nil
}

// List lists action items matching the filter with pagination
func (r *Repository) List(ctx context.Context, filter models.ListActionItemsFilter) ([]models.ActionItem, int, error) {
	ctx, span := tracing.StartSpan(ctx, "ActionItemRepository.List")
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
	if err := database.Executor(ctx, r.db).GetContext(ctx, &totalCount, countQuery, countArgs...); err != nil {
		r.logger.WithContext(ctx).WithError(err).Error("failed to count action items")
		return nil, 0, fmt.Errorf("failed to count action items: %w", err)
	}

	sb := database.NewSelectBuilder()
	sb.Select(columns...)
	sb.From(tableName)
	applyFilter(sb, filter)
	sb.OrderBy("priority DESC", "created_at DESC")
	sb.Limit(pageSize)
	sb.Offset(offset)

	query, args := sb.Build()

	var items []models.ActionItem
	if err := database.Executor(ctx, r.db).SelectContext(ctx, &items, query, args...); err != nil {
		r.logger.WithContext(ctx).WithError(err).Error("failed to list action items")
		return nil, 0, fmt.Errorf("failed to list action items: %w", err)
	}

	return items, totalCount, nil
}

// Update updates mutable fields on an action item
func (r *Repository) Update(ctx context.Context, id uuid.UUID, req models.UpdateActionItemRequest) (*models.ActionItem, error) {
	ctx, span := tracing.StartSpan(ctx, "ActionItemRepository.Update")
	defer span.End()

	existing, err := r.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if existing == nil {
		return nil, nil
	}

	sb := database.NewUpdateBuilder()
	sb.Update(tableName)

	// Set replaces the assignment list on every call, so collect the
	// assignments first and set them once.
	assignments := []string{sb.Assign("updated_at", time.Now())}
	if req.Description != nil {
		assignments = append(assignments, sb.Assign("description", *req.Description))
	}
	if req.Assignee != nil {
		assignments = append(assignments, sb.Assign("assignee", *req.Assignee))
	}
	if req.DueDate != nil {
		assignments = append(assignments, sb.Assign("due_date", *req.DueDate))
	}
	if req.Priority != nil {
		assignments = append(assignments, sb.Assign("priority", *req.Priority))
	}
	sb.Set(assignments...)

	sb.Where(sb.Equal("id", id))

	query, args := sb.Build()

	if _, err := database.Executor(ctx, r.db).ExecContext(ctx, query, args...); err != nil {
		r.logger.WithContext(ctx).WithError(err).Error("failed to update action item")
		return nil, fmt.Errorf("failed to update action item: %w", err)
	}

	return r.GetByID(ctx, id)
}

// UpdateStatus transitions an action item's status. Completing sets
// completed_at; any other transition clears it, so the timestamp tracks the
// status exactly.
func (r *Repository) UpdateStatus(ctx context.Context, id uuid.UUID, status models.ActionItemStatus) (*models.ActionItem, error) {
	ctx, span := tracing.StartSpan(ctx, "ActionItemRepository.UpdateStatus")
	defer span.End()

	existing, err := r.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if existing == nil {
		return nil, nil
	}

	now := time.Now()

	sb := database.NewUpdateBuilder()
	sb.Update(tableName)

	assignments := []string{
		sb.Assign("status", status),
		sb.Assign("updated_at", now),
	}
	if status == models.ActionItemCompleted {
		assignments = append(assignments, sb.Assign("completed_at", now))
	} else {
		assignments = append(assignments, sb.Assign("completed_at", nil))
	}
	sb.Set(assignments...)

	sb.Where(sb.Equal("id", id))

	query, args := sb.Build()

	if _, err := database.Executor(ctx, r.db).ExecContext(ctx, query, args...); err != nil {
		r.logger.WithContext(ctx).WithError(err).Error("failed to update action item status")
		return nil, fmt.Errorf("failed to update action item status: %w", err)
	}

	r.logger.WithContext(ctx).WithFields(map[string]any{
		"id":     id,
		"status": status,
	}).Info("updated action item status")

	return r.GetByID(ctx, id)
}

// Delete removes one action item. Returns false when the item did not exist.
func (r *Repository) Delete(ctx context.Context, id uuid.UUID) (bool, error) {
	ctx, span := tracing.StartSpan(ctx, "ActionItemRepository.Delete")
	defer span.End()

	sb := database.NewDeleteBuilder()
	sb.DeleteFrom(tableName)
	sb.Where(sb.Equal("id", id))

	query, args := sb.Build()

	result, err := database.Executor(ctx, r.db).ExecContext(ctx, query, args...)
	if err != nil {
		r.logger.WithContext(ctx).WithError(err).Error("failed to delete action item")
		return false, fmt.Errorf("failed to delete action item: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to read delete result: %w", err)
	}

	return affected > 0, nil
}

// DeleteByCall removes the action items for a call. Manual reprocessing
// uses this so re-running analysis doesn't duplicate items.
func (r *Repository) DeleteByCall(ctx context.Context, callID uuid.UUID) error {
	ctx, span := tracing.StartSpan(ctx, "ActionItemRepository.DeleteByCall")
	defer span.End()

	sb := database.NewDeleteBuilder()
	sb.DeleteFrom(tableName)
	sb.Where(sb.Equal("call_id", callID))

	query, args := sb.Build()

	if _, err := database.Executor(ctx, r.db).ExecContext(ctx, query, args...); err != nil {
		r.logger.WithContext(ctx).WithError(err).Error("failed to delete action items for call")
		return fmt.Errorf("failed to delete action items: %w", err)
	}

	return nil
}

func applyFilter(sb *database.SelectBuilder, filter models.ListActionItemsFilter) {
	if filter.Status != nil {
		sb.Where(sb.Equal("status", *filter.Status))
	}
	if filter.Assignee != nil {
		sb.Where(sb.Equal("assignee", *filter.Assignee))
	}
	if filter.Priority != nil {
		sb.Where(sb.Equal("priority", *filter.Priority))
	}
	if filter.CallID != nil {
		sb.Where(sb.Equal("call_id", *filter.CallID))
	}
}
