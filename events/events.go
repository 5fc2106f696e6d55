// Package events carries resolution outcomes to the subsystems that
// react to them. Handlers run inside the resolving transaction, so a
// failing handler aborts the resolution rather than leaving partial
// side effects.
package events

import (
	"context"
	"database/sql"
	"fmt"

	"ekokampus/models"

	"github.com/shopspring/decimal"
)

// ReportResolved is emitted exactly once per report, when it reaches a
// terminal status.
type ReportResolved struct {
	ReportID    string
	BinID       string
	SubmitterID string
	Category    models.WasteCategory
	Status      models.ReportStatus
	Resolution  models.Resolution
	// FillDelta is the fill increment applied on approval, zero
	// otherwise.
	FillDelta decimal.Decimal
	// Votes is empty for auto resolutions.
	Votes []models.VettingVote
}

// Handler reacts to a resolution inside the resolving transaction.
type Handler func(ctx context.Context, tx *sql.Tx, ev *ReportResolved) error

type Dispatcher struct {
	handlers []namedHandler
}

type namedHandler struct {
	name string
	fn   Handler
}

func NewDispatcher() *Dispatcher {
	return &Dispatcher{}
}

// Subscribe registers a handler. Registration order is invocation
// order. Not safe to call concurrently with EmitTx; wire everything up
// at startup.
func (d *Dispatcher) Subscribe(name string, fn Handler) {
	d.handlers = append(d.handlers, namedHandler{name: name, fn: fn})
}

// EmitTx runs every handler in order. The first error aborts the
// chain; the caller is expected to roll back.
func (d *Dispatcher) EmitTx(ctx context.Context, tx *sql.Tx, ev *ReportResolved) error {
	for _, h := range d.handlers {
		if err := h.fn(ctx, tx, ev); err != nil {
			return fmt.Errorf("handler %s: %w", h.name, err)
		}
	}
	return nil
}
