package database

import (
	"strings"

	"github.com/lib/pq"
	"github.com/pharmaflow/pharmaflow-backend/pkg/errors"
)

// MapPQError converts a PostgreSQL error to an AppError with meaningful messages.
// Returns nil if the error is not a pq.Error.
func MapPQError(err error) *errors.AppError {
	pqErr, ok := err.(*pq.Error)
	if !ok {
		return nil
	}

	switch pqErr.Code {
	// Check constraint violation (23514)
	case "23514":
		return mapCheckConstraint(pqErr)

	// Unique constraint violation (23505)
	case "23505":
		return errors.Conflict(formatConstraintMessage(pqErr))

	// Foreign key violation (23503)
	case "23503":
		return errors.BadRequest("referenced record does not exist")

	// Not null violation (23502)
	case "23502":
		col := pqErr.Column
		if col == "" {
			col = "required field"
		}
		return errors.Validation(map[string]string{
			col: "must not be empty",
		})

	default:
		return nil
	}
}

// mapCheckConstraint maps specific CHECK constraint names to user-friendly messages.
func mapCheckConstraint(pqErr *pq.Error) *errors.AppError {
	constraint := pqErr.Constraint

	switch {
	case strings.Contains(constraint, "quantity_non_negative"):
		// The batches.quantity >= 0 CHECK is the database-level backstop
		// against stock going negative.
		return errors.InsufficientStock("batch quantity cannot go negative")

	case strings.Contains(constraint, "status_valid"):
		return errors.Validation(map[string]string{
			"status": "not a recognized workflow status",
		})

	case strings.Contains(constraint, "discount_percent_range"):
		return errors.Validation(map[string]string{
			"discount_percent": "must be between 1 and 99",
		})

	default:
		return errors.BadRequest("data validation failed: " + constraint)
	}
}

// formatConstraintMessage creates a user-friendly message for unique constraint violations.
func formatConstraintMessage(pqErr *pq.Error) string {
	constraint := pqErr.Constraint

	switch {
	case strings.Contains(constraint, "alert_resolutions"):
		return "a resolution record already exists for this batch and alert type"
	case strings.Contains(constraint, "batch_number"):
		return "a batch with this batch number already exists for the medicine"
	default:
		return "a record with these values already exists"
	}
}
