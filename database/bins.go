package database

import (
	"context"
	"database/sql"
	"time"

	"ekokampus/models"

	"github.com/shopspring/decimal"
)

// BinStore reads bins and appends fill-level snapshots. The fill_level
// column itself is mutated only through the Ledger (BinFill counter)
// or ResetFillTx; the fillmodel package is the sole caller of both.
type BinStore struct {
	db *sql.DB
}

func NewBinStore(db *sql.DB) *BinStore {
	return &BinStore{db: db}
}

func (s *BinStore) Get(ctx context.Context, id string) (*models.Bin, error) {
	var (
		b         models.Bin
		status    string
		emptiedAt sql.NullTime
		reportAt  sql.NullTime
	)
	err := s.db.QueryRowContext(ctx,
		`SELECT id, code, latitude, longitude, bin_type, indoor, fill_level,
		        status, last_emptied_at, last_report_at
		 FROM bins WHERE id = ?`, id).
		Scan(&b.ID, &b.Code, &b.Latitude, &b.Longitude, &b.BinType, &b.Indoor,
			&b.FillLevel, &status, &emptiedAt, &reportAt)
	if err == sql.ErrNoRows {
		return nil, models.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	b.Status = models.BinStatus(status)
	if emptiedAt.Valid {
		b.LastEmptiedAt = &emptiedAt.Time
	}
	if reportAt.Valid {
		b.LastReportAt = &reportAt.Time
	}
	return &b, nil
}

// AppendFillLogTx writes one fill-level snapshot row.
func (s *BinStore) AppendFillLogTx(ctx context.Context, tx *sql.Tx, e *models.FillLogEntry) error {
	triggeredBy := sql.NullString{String: e.TriggeredBy, Valid: e.TriggeredBy != ""}
	result, err := tx.ExecContext(ctx,
		`INSERT INTO bin_fill_log (bin_id, fill_level, trigger_tag, triggered_by)
		 VALUES (?, ?, ?, ?)`,
		e.BinID, e.FillLevel, string(e.Trigger), triggeredBy)
	logResult("appendFillLog", result, err, true)
	return err
}

// TouchLastReportTx stamps the bin's last_report_at.
func (s *BinStore) TouchLastReportTx(ctx context.Context, tx *sql.Tx, binID string) error {
	_, err := tx.ExecContext(ctx,
		`UPDATE bins SET last_report_at = ? WHERE id = ?`, time.Now(), binID)
	return err
}

// FillLevelTx reads the current fill level under a row lock, so the
// caller's fill adjustment sees a stable starting point.
func (s *BinStore) FillLevelTx(ctx context.Context, tx *sql.Tx, binID string) (decimal.Decimal, error) {
	var level decimal.Decimal
	err := tx.QueryRowContext(ctx,
		`SELECT fill_level FROM bins WHERE id = ? FOR UPDATE`, binID).Scan(&level)
	if err == sql.ErrNoRows {
		return decimal.Zero, models.ErrNotFound
	}
	return level, err
}

// ResetFillTx zeroes the fill level for an emptied bin and returns the
// level that was discarded. Distinct from a ledger adjust: emptying is
// unconditional, but it is still audited by the caller.
func (s *BinStore) ResetFillTx(ctx context.Context, tx *sql.Tx, binID string) (decimal.Decimal, error) {
	var previous decimal.Decimal
	err := tx.QueryRowContext(ctx,
		`SELECT fill_level FROM bins WHERE id = ? FOR UPDATE`, binID).Scan(&previous)
	if err == sql.ErrNoRows {
		return decimal.Zero, models.ErrNotFound
	}
	if err != nil {
		return decimal.Zero, err
	}
	_, err = tx.ExecContext(ctx,
		`UPDATE bins SET fill_level = 0.000, last_emptied_at = ? WHERE id = ?`,
		time.Now(), binID)
	return previous, err
}

// ListForDecay returns active bins with content, for the periodic
// decay correction pass.
func (s *BinStore) ListForDecay(ctx context.Context) ([]models.Bin, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, fill_level, last_report_at, last_emptied_at
		 FROM bins WHERE status = 'ACTIVE' AND fill_level > 0`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var bins []models.Bin
	for rows.Next() {
		var (
			b                    models.Bin
			lastReport, lastEmpt sql.NullTime
		)
		if err := rows.Scan(&b.ID, &b.FillLevel, &lastReport, &lastEmpt); err != nil {
			return nil, err
		}
		if lastReport.Valid {
			b.LastReportAt = &lastReport.Time
		}
		if lastEmpt.Valid {
			b.LastEmptiedAt = &lastEmpt.Time
		}
		bins = append(bins, b)
	}
	return bins, rows.Err()
}

// NearbyUsers returns active users whose last known location is within
// radiusM of the given point, excluding one user (the submitter).
// Uses a coarse bounding box; exact distance is checked by the caller.
func (s *BinStore) NearbyUsers(ctx context.Context, lat, lon float64, radiusM int, excludeUserID string) ([]models.User, error) {
	// ~1 degree latitude is 111km; pad the box generously.
	degrees := float64(radiusM)/111000.0 + 0.001
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, trust_score, last_lat, last_lon FROM users
		 WHERE id != ?
		   AND last_lat BETWEEN ? AND ?
		   AND last_lon BETWEEN ? AND ?`,
		excludeUserID, lat-degrees, lat+degrees, lon-degrees, lon+degrees)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var users []models.User
	for rows.Next() {
		var (
			u        models.User
			lat, lon sql.NullFloat64
		)
		if err := rows.Scan(&u.ID, &u.TrustScore, &lat, &lon); err != nil {
			return nil, err
		}
		if lat.Valid {
			u.LastLat = &lat.Float64
		}
		if lon.Valid {
			u.LastLon = &lon.Float64
		}
		users = append(users, u)
	}
	return users, rows.Err()
}
