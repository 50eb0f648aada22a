// Package domain holds the pure expiry classification rules.
// Classification is stateless: the same inputs always produce the same
// result, so callers pass an explicit reference time instead of reading
// the clock here.
package domain

import (
	"math"
	"time"
)

// AlertType identifies the class of an expiry alert
type AlertType string

const (
	AlertNone       AlertType = ""
	AlertNearExpiry AlertType = "near_expiry"
	AlertExpired    AlertType = "expired"
)

// Valid reports whether the alert type names an actionable alert class
func (a AlertType) Valid() bool {
	return a == AlertNearExpiry || a == AlertExpired
}

// Classify determines the alert class of a batch at the given reference
// time. Hidden and empty batches never produce alerts: hidden means
// withdrawn from sale, empty means there is nothing left to act on.
func Classify(now, expiry time.Time, quantity int, hidden bool, window time.Duration) AlertType {
	if hidden || quantity <= 0 {
		return AlertNone
	}

	if expiry.Before(now) {
		return AlertExpired
	}

	if !expiry.After(now.Add(window)) {
		return AlertNearExpiry
	}

	return AlertNone
}

// DaysUntilExpiry returns the signed number of days from now until expiry,
// rounded up. Negative values mean the batch is already expired.
func DaysUntilExpiry(now, expiry time.Time) int {
	return int(math.Ceil(expiry.Sub(now).Hours() / 24))
}
