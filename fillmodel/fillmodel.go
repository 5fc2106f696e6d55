// Package fillmodel maintains each bin's soft-sensed fill level: no
// physical sensors, just approved reports feeding a digital twin. It
// is the only writer of bins.fill_level.
package fillmodel

import (
	"context"
	"database/sql"
	"fmt"

	"ekokampus/database"
	"ekokampus/models"
	"ekokampus/settings"

	"github.com/apex/log"
	"github.com/shopspring/decimal"
)

// Built-in base volumes per category. A BASE_VOLUME_<CATEGORY> system
// setting overrides the table at runtime.
var baseVolumes = map[models.WasteCategory]decimal.Decimal{
	models.CategoryPaper:      decimal.RequireFromString("0.040"),
	models.CategoryPlastic:    decimal.RequireFromString("0.050"),
	models.CategoryGlass:      decimal.RequireFromString("0.030"),
	models.CategoryOrganic:    decimal.RequireFromString("0.060"),
	models.CategoryElectronic: decimal.RequireFromString("0.080"),
	models.CategoryGeneral:    decimal.RequireFromString("0.050"),
	models.CategorySmall:      decimal.RequireFromString("0.010"),
}

var defaultBaseVolume = decimal.RequireFromString("0.050")

// Decay thresholds: the fuller the bin, the less incremental volume a
// new deposit really adds (compaction).
var (
	decayWarnLevel      = decimal.RequireFromString("0.75")
	decayCriticalLevel  = decimal.RequireFromString("0.90")
	decayWarnFactor     = decimal.RequireFromString("0.85")
	decayCriticalFactor = decimal.RequireFromString("0.60")
)

type Model struct {
	bins     *database.BinStore
	ledger   *database.Ledger
	settings *settings.Service
}

func New(bins *database.BinStore, ledger *database.Ledger, s *settings.Service) *Model {
	return &Model{bins: bins, ledger: ledger, settings: s}
}

// BaseVolume returns the fill increment coefficient for a category,
// honoring runtime overrides.
func (m *Model) BaseVolume(ctx context.Context, category models.WasteCategory) decimal.Decimal {
	if m.settings != nil {
		key := settings.BaseVolumePrefix + string(category)
		if v := m.settings.GetString(ctx, key, ""); v != "" {
			d, err := decimal.NewFromString(v)
			if err == nil {
				return d
			}
			log.Warnf("fillmodel: bad %s override %q, using builtin", key, v)
		}
	}
	if v, ok := baseVolumes[category]; ok {
		return v
	}
	return defaultBaseVolume
}

// DecayCorrection returns the compaction factor for the current fill
// level: 1.00 below 0.75, 0.85 up to 0.90, 0.60 at or above 0.90.
func DecayCorrection(currentFill decimal.Decimal) decimal.Decimal {
	switch {
	case currentFill.GreaterThanOrEqual(decayCriticalLevel):
		return decayCriticalFactor
	case currentFill.GreaterThanOrEqual(decayWarnLevel):
		return decayWarnFactor
	default:
		return decimal.New(1, 0)
	}
}

// ComputeDelta returns the fill increment for one approved report,
// rounded to 3 decimals and capped at the bin's remaining capacity.
func (m *Model) ComputeDelta(ctx context.Context, category models.WasteCategory, currentFill decimal.Decimal) decimal.Decimal {
	raw := m.BaseVolume(ctx, category).Mul(DecayCorrection(currentFill))
	remaining := decimal.New(1, 0).Sub(currentFill)
	if remaining.IsNegative() {
		remaining = decimal.Zero
	}
	if raw.GreaterThan(remaining) {
		raw = remaining
	}
	return raw.Round(3)
}

// ApplyTx adds delta to the bin's fill level through the counter
// ledger and appends the snapshot log entry, all inside the caller's
// transaction.
func (m *Model) ApplyTx(ctx context.Context, tx *sql.Tx, binID string, delta decimal.Decimal, related *models.Ref, triggeredBy string) (decimal.Decimal, error) {
	newLevel, _, err := m.ledger.AdjustTx(ctx, tx, database.BinFill, binID, delta, models.ReasonBinReport, related)
	if err != nil {
		return decimal.Zero, err
	}
	if err := m.bins.AppendFillLogTx(ctx, tx, &models.FillLogEntry{
		BinID:       binID,
		FillLevel:   newLevel,
		Trigger:     models.TriggerReport,
		TriggeredBy: triggeredBy,
	}); err != nil {
		return decimal.Zero, err
	}
	if err := m.bins.TouchLastReportTx(ctx, tx, binID); err != nil {
		return decimal.Zero, err
	}
	return newLevel, nil
}

// Empty resets a bin to 0.000. Role checks belong to the calling
// layer; this only performs the reset, audit entry and snapshot.
func (m *Model) Empty(ctx context.Context, db *sql.DB, binID, operatorID string) error {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("empty bin: begin tx: %w", err)
	}
	defer tx.Rollback()

	previous, err := m.bins.ResetFillTx(ctx, tx, binID)
	if err != nil {
		return err
	}
	// The discarded volume is logged as a negative adjustment so the
	// audit ledger replays to the stored value.
	_, err = tx.ExecContext(ctx,
		`INSERT INTO counter_adjustments
		   (subject_type, subject_id, delta, value_after, reason, related_type, related_id)
		 VALUES (?, ?, ?, 0.000, ?, 'User', ?)`,
		database.BinFill.Subject, binID, previous.Neg(), string(models.ReasonBinEmptied), operatorID)
	if err != nil {
		return err
	}
	if err := m.bins.AppendFillLogTx(ctx, tx, &models.FillLogEntry{
		BinID:       binID,
		FillLevel:   decimal.Zero,
		Trigger:     models.TriggerEmptied,
		TriggeredBy: operatorID,
	}); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("empty bin: commit: %w", err)
	}
	log.Infof("bin %s emptied by %s (was %s)", binID, operatorID, previous)
	return nil
}

// ApplyDecayCorrection nudges a bin's level down by the hourly decay
// rate, modelling slow compaction between reports. Invoked by the
// periodic sweep.
func (m *Model) ApplyDecayCorrection(ctx context.Context, db *sql.DB, binID string, hours float64) error {
	rate := m.settings.GetFloat(ctx, settings.KeyDecayRatePerHour, 0.002)
	maxCorr := m.settings.GetFloat(ctx, settings.KeyDecayMaxCorrection, 0.15)
	correction := rate * hours
	if correction > maxCorr {
		correction = maxCorr
	}
	delta := decimal.NewFromFloat(correction).Round(3).Neg()
	if delta.IsZero() {
		return nil
	}

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	newLevel, _, err := m.ledger.AdjustTx(ctx, tx, database.BinFill, binID, delta, models.ReasonBinDecay, nil)
	if err != nil {
		return err
	}
	if err := m.bins.AppendFillLogTx(ctx, tx, &models.FillLogEntry{
		BinID:     binID,
		FillLevel: newLevel,
		Trigger:   models.TriggerDecay,
	}); err != nil {
		return err
	}
	return tx.Commit()
}
