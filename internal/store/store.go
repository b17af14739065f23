// Package store provides the alert ledger persistence.
package store

import (
	"context"
	"time"

	"options-screener/internal/models"
)

// AlertLedger is the append-only, day-scoped record store of computed
// alerts. No update or delete operation exists.
type AlertLedger interface {
	// Append adds a record to the durable store and the in-process today
	// view, assigning its ID.
	Append(ctx context.Context, rec *models.AlertRecord) error

	// QueryByDate returns the records whose event time falls on the given
	// IST calendar date, in insertion order.
	QueryByDate(ctx context.Context, date time.Time) ([]models.AlertRecord, error)

	// Today returns the current trading day's working view.
	Today() []models.AlertRecord

	Close() error
}
