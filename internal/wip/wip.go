// Package wip decides whether tasks may enter a capacity-limited column.
package wip

import (
	"github.com/zulandar/switchyard/internal/apperr"
	"github.com/zulandar/switchyard/internal/models"
)

// CanEnter reports whether incoming tasks fit in a column holding occupancy
// tasks. A nil limit means unlimited.
func CanEnter(limit *int, occupancy, incoming int) bool {
	if limit == nil {
		return true
	}
	return occupancy+incoming <= *limit
}

// Gate returns a *apperr.WipLimitError when incoming tasks may not enter col.
// Reordering inside the task's own column never enters it and always passes.
func Gate(col *models.Column, occupancy, incoming int, sameColumn bool) error {
	if sameColumn || CanEnter(col.WipLimit, occupancy, incoming) {
		return nil
	}
	return &apperr.WipLimitError{
		ColumnID:   col.ID,
		ColumnName: col.Name,
		Limit:      *col.WipLimit,
		Attempted:  occupancy + incoming,
	}
}

// Full reports whether col has reached its limit.
func Full(col *models.Column, occupancy int) bool {
	return col.WipLimit != nil && occupancy >= *col.WipLimit
}

// ValidLimit reports whether limit is acceptable as a column setting.
func ValidLimit(limit *int) bool {
	return limit == nil || *limit >= 0
}
