package handler

import (
	"time"

	"github.com/pharmaflow/pharmaflow-backend/pkg/errors"
)

// parseDate accepts plain dates and full RFC 3339 timestamps
func parseDate(value string) (time.Time, error) {
	if t, err := time.Parse("2006-01-02", value); err == nil {
		return t, nil
	}
	if t, err := time.Parse(time.RFC3339, value); err == nil {
		return t, nil
	}
	return time.Time{}, errors.BadRequest("invalid date, expected YYYY-MM-DD or RFC 3339")
}

func invalidField(field, message string) error {
	return errors.Validation(map[string]string{field: message})
}
