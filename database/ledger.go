package database

import (
	"context"
	"database/sql"
	"fmt"
	"strconv"

	"ekokampus/metrics"
	"ekokampus/models"

	"github.com/apex/log"
	"github.com/shopspring/decimal"
)

// Counter describes one bounded, audit-logged numeric field. All
// mutation of these fields goes through Ledger.Adjust; writing them
// anywhere else is a protocol violation.
type Counter struct {
	Subject string // subject_type stored in counter_adjustments
	Table   string
	Column  string
	IDCol   string
	Initial decimal.Decimal
	Lower   decimal.Decimal
	Upper   decimal.NullDecimal // invalid = unbounded above
	// UpperCol names a sibling column holding a per-row upper bound.
	// When set it takes precedence over Upper.
	UpperCol string
}

// WithUpper returns a copy of the counter with a concrete upper bound,
// used to replay per-row bounded counters.
func (c Counter) WithUpper(upper decimal.Decimal) Counter {
	c.Upper = decimal.NullDecimal{Decimal: upper, Valid: true}
	c.UpperCol = ""
	return c
}

var (
	BinFill = Counter{
		Subject: "bin_fill",
		Table:   "bins", Column: "fill_level", IDCol: "id",
		Lower: decimal.Zero,
		Upper: decimal.NullDecimal{Decimal: decimal.New(1, 0), Valid: true},
	}
	UserTrust = Counter{
		Subject: "user_trust",
		Table:   "users", Column: "trust_score", IDCol: "id",
		Initial: decimal.New(50, 0),
		Lower:   decimal.Zero,
		Upper:   decimal.NullDecimal{Decimal: decimal.New(100, 0), Valid: true},
	}
	UserPoints = Counter{
		Subject: "user_points",
		Table:   "users", Column: "total_points", IDCol: "id",
		Lower: decimal.Zero,
	}
	BountyClaimants = Counter{
		Subject: "bounty_claimants",
		Table:   "bounties", Column: "current_claimants", IDCol: "id",
		Lower:    decimal.Zero,
		UpperCol: "max_claimants",
	}
	DetectiveConfirmations = Counter{
		Subject: "detective_confirmations",
		Table:   "detective_reports", Column: "confirmation_count", IDCol: "id",
		Lower: decimal.Zero,
	}
)

// Ledger applies bounded adjustments to persisted counters. Each
// adjustment is a single conditional UPDATE, so concurrent adjusters
// of the same subject are serialized by the row lock and no
// read-modify-write window exists. The matching audit row is written
// in the same transaction: if it fails, the counter change rolls back.
type Ledger struct {
	db *sql.DB
}

func NewLedger(db *sql.DB) *Ledger {
	return &Ledger{db: db}
}

// Adjust runs AdjustTx in its own transaction.
func (l *Ledger) Adjust(ctx context.Context, c Counter, subjectID string, delta decimal.Decimal, reason models.AdjustReason, related *models.Ref) (decimal.Decimal, bool, error) {
	tx, err := l.db.BeginTx(ctx, nil)
	if err != nil {
		return decimal.Zero, false, fmt.Errorf("ledger: begin tx: %w", err)
	}
	defer tx.Rollback()

	value, applied, err := l.AdjustTx(ctx, tx, c, subjectID, delta, reason, related)
	if err != nil {
		return decimal.Zero, false, err
	}
	if err := tx.Commit(); err != nil {
		return decimal.Zero, false, fmt.Errorf("ledger: commit: %w", err)
	}
	return value, applied, nil
}

// AdjustTx applies a clamped delta to the counter inside the caller's
// transaction and appends the audit entry. It returns the value after
// the adjustment and whether the stored value actually changed
// (applied is false when the clamp absorbed the whole delta).
func (l *Ledger) AdjustTx(ctx context.Context, tx *sql.Tx, c Counter, subjectID string, delta decimal.Decimal, reason models.AdjustReason, related *models.Ref) (decimal.Decimal, bool, error) {
	var (
		result sql.Result
		err    error
	)
	switch {
	case c.UpperCol != "":
		result, err = tx.ExecContext(ctx, fmt.Sprintf(
			`UPDATE %s SET %s = LEAST(%s, GREATEST(?, %s + ?)) WHERE %s = ?`,
			c.Table, c.Column, c.UpperCol, c.Column, c.IDCol),
			c.Lower, delta, subjectID)
	case c.Upper.Valid:
		result, err = tx.ExecContext(ctx, fmt.Sprintf(
			`UPDATE %s SET %s = LEAST(?, GREATEST(?, %s + ?)) WHERE %s = ?`,
			c.Table, c.Column, c.Column, c.IDCol),
			c.Upper.Decimal, c.Lower, delta, subjectID)
	default:
		result, err = tx.ExecContext(ctx, fmt.Sprintf(
			`UPDATE %s SET %s = GREATEST(?, %s + ?) WHERE %s = ?`,
			c.Table, c.Column, c.Column, c.IDCol),
			c.Lower, delta, subjectID)
	}
	if err != nil {
		return decimal.Zero, false, fmt.Errorf("ledger: adjust %s/%s: %w", c.Subject, subjectID, err)
	}
	changed, err := result.RowsAffected()
	if err != nil {
		return decimal.Zero, false, fmt.Errorf("ledger: rows affected: %w", err)
	}

	var value decimal.Decimal
	err = tx.QueryRowContext(ctx, fmt.Sprintf(
		`SELECT %s FROM %s WHERE %s = ?`, c.Column, c.Table, c.IDCol), subjectID).
		Scan(&value)
	if err == sql.ErrNoRows {
		return decimal.Zero, false, models.ErrNotFound
	}
	if err != nil {
		return decimal.Zero, false, fmt.Errorf("ledger: read back %s/%s: %w", c.Subject, subjectID, err)
	}

	relatedType, relatedID := "", sql.NullString{}
	if related != nil {
		relatedType = related.Type
		relatedID = sql.NullString{String: related.ID, Valid: true}
	}
	if _, err := tx.ExecContext(ctx,
		`INSERT INTO counter_adjustments
		   (subject_type, subject_id, delta, value_after, reason, related_type, related_id)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		c.Subject, subjectID, delta, value, string(reason), relatedType, relatedID); err != nil {
		return decimal.Zero, false, fmt.Errorf("ledger: audit %s/%s: %w", c.Subject, subjectID, err)
	}

	log.Debugf("ledger: %s/%s %s -> %s (%s)", c.Subject, subjectID, delta, value, reason)
	metrics.LedgerAdjustTotal.WithLabelValues(c.Subject, strconv.FormatBool(changed == 1)).Inc()
	return value, changed == 1, nil
}

// Replay folds the audit entries for a subject from the counter's
// initial value, applying the same clamp as Adjust. The result must
// equal the stored counter value; a mismatch means a writer bypassed
// the ledger.
func (l *Ledger) Replay(ctx context.Context, c Counter, subjectID string) (decimal.Decimal, error) {
	rows, err := l.db.QueryContext(ctx,
		`SELECT delta FROM counter_adjustments
		 WHERE subject_type = ? AND subject_id = ?
		 ORDER BY seq`,
		c.Subject, subjectID)
	if err != nil {
		return decimal.Zero, fmt.Errorf("ledger: replay %s/%s: %w", c.Subject, subjectID, err)
	}
	defer rows.Close()

	value := c.Initial
	for rows.Next() {
		var delta decimal.Decimal
		if err := rows.Scan(&delta); err != nil {
			return decimal.Zero, err
		}
		value = clampValue(value.Add(delta), c.Lower, c.Upper)
	}
	return value, rows.Err()
}

func clampValue(v, lower decimal.Decimal, upper decimal.NullDecimal) decimal.Decimal {
	if v.LessThan(lower) {
		return lower
	}
	if upper.Valid && v.GreaterThan(upper.Decimal) {
		return upper.Decimal
	}
	return v
}
