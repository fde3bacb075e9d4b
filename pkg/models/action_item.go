package models

import (
	"time"

	"github.com/google/uuid"
)

// ActionItemStatus is the workflow status of an action item.
type ActionItemStatus string

const (
	ActionItemPending    ActionItemStatus = "pending"
	ActionItemInProgress ActionItemStatus = "in_progress"
	ActionItemCompleted  ActionItemStatus = "completed"
	ActionItemCancelled  ActionItemStatus = "cancelled"
)

// Valid reports whether s is one of the enumerated status values.
func (s ActionItemStatus) Valid() bool {
	switch s {
	case ActionItemPending, ActionItemInProgress, ActionItemCompleted, ActionItemCancelled:
		return true
	}
	return false
}

// ActionItem is a follow-up task extracted from a call. CompletedAt is
// non-null iff Status is completed; reopening clears it.
type ActionItem struct {
	ID          uuid.UUID        `db:"id" json:"id"`
	CallID      uuid.UUID        `db:"call_id" json:"call_id"`
	Description string           `db:"description" json:"description"`
	Assignee    *string          `db:"assignee" json:"assignee,omitempty"`
	DueDate     *string          `db:"due_date" json:"due_date,omitempty"`
	Priority    int              `db:"priority" json:"priority"`
	Status      ActionItemStatus `db:"status" json:"status"`
	CompletedAt *time.Time       `db:"completed_at" json:"completed_at,omitempty"`
	CreatedAt   time.Time        `db:"created_at" json:"created_at"`
	UpdatedAt   time.Time        `db:"updated_at" json:"updated_at"`
}

// ListActionItemsFilter narrows action item listings.
type ListActionItemsFilter struct {
	Status   *ActionItemStatus
	Assignee *string
	Priority *int
	CallID   *uuid.UUID
	Page     int
	PageSize int
}

// ActionItemListResponse is the paginated action items listing.
type ActionItemListResponse struct {
	Items      []ActionItem `json:"items"`
	TotalCount int          `json:"total_count"`
	Page       int          `json:"page"`
	PageSize   int          `json:"page_size"`
}

// UpdateActionItemRequest updates mutable action item fields.
type UpdateActionItemRequest struct {
	Description *string `json:"description,omitempty"`
	Assignee    *string `json:"assignee,omitempty"`
	DueDate     *string `json:"due_date,omitempty"`
	Priority    *int    `json:"priority,omitempty" validate:"omitempty,min=1,max=5"`
}

// UpdateActionItemStatusRequest transitions an action item's status.
type UpdateActionItemStatusRequest struct {
	Status ActionItemStatus `json:"status" validate:"required"`
}
