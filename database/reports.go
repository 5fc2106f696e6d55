package database

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"ekokampus/models"

	"github.com/apex/log"
	"github.com/shopspring/decimal"
)

// ReportStore owns waste_reports and photo_evidence rows. Status
// transitions are guarded updates so racing writers cannot move a
// report backwards or resolve it twice.
type ReportStore struct {
	db *sql.DB
}

func NewReportStore(db *sql.DB) *ReportStore {
	return &ReportStore{db: db}
}

func (s *ReportStore) Insert(ctx context.Context, r *models.WasteReport) error {
	userID := sql.NullString{String: r.UserID, Valid: r.UserID != ""}
	result, err := s.db.ExecContext(ctx,
		`INSERT INTO waste_reports
		   (id, user_id, bin_id, category, latitude, longitude, client_timestamp,
		    geo_distance_m, fill_delta, suspicion_score, status)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		r.ID, userID, r.BinID, string(r.Category), r.Latitude, r.Longitude,
		r.ClientTimestamp, r.GeoDistanceM, r.FillDelta, r.SuspicionScore, string(r.Status))
	logResult("insertReport", result, err, true)
	return err
}

func (s *ReportStore) Get(ctx context.Context, id string) (*models.WasteReport, error) {
	var (
		r      models.WasteReport
		userID sql.NullString
	)
	var resolution sql.NullString
	err := s.db.QueryRowContext(ctx,
		`SELECT id, user_id, bin_id, category, latitude, longitude, client_timestamp,
		        created_at, geo_distance_m, fill_delta, suspicion_score, status, resolution, points_awarded
		 FROM waste_reports WHERE id = ?`, id).
		Scan(&r.ID, &userID, &r.BinID, (*string)(&r.Category), &r.Latitude, &r.Longitude,
			&r.ClientTimestamp, &r.CreatedAt, &r.GeoDistanceM, &r.FillDelta,
			&r.SuspicionScore, (*string)(&r.Status), &resolution, &r.PointsAwarded)
	if err == sql.ErrNoRows {
		return nil, models.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	r.UserID = userID.String
	r.Resolution = models.Resolution(resolution.String)
	return &r, nil
}

// MarkUnderVetting moves a PENDING report into vetting. Returns false
// when the report was not PENDING anymore.
func (s *ReportStore) MarkUnderVetting(ctx context.Context, id string) (bool, error) {
	result, err := s.db.ExecContext(ctx,
		`UPDATE waste_reports SET status = 'UNDER_VETTING'
		 WHERE id = ? AND status = 'PENDING'`, id)
	if err != nil {
		return false, err
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return false, err
	}
	return rows == 1, nil
}

// ResolveTx flips a report to a terminal status inside the caller's
// transaction. The guard on the current status makes the transition
// single-fire: a losing racer affects zero rows and must no-op.
func (s *ReportStore) ResolveTx(ctx context.Context, tx *sql.Tx, id string, from, to models.ReportStatus, resolution models.Resolution, points int, fillDelta decimal.Decimal) (bool, error) {
	if !to.Terminal() {
		return false, fmt.Errorf("resolve to non-terminal status %s", to)
	}
	result, err := tx.ExecContext(ctx,
		`UPDATE waste_reports
		 SET status = ?, resolution = ?, points_awarded = ?, fill_delta = ?
		 WHERE id = ? AND status = ?`,
		string(to), string(resolution), points, fillDelta, id, string(from))
	if err != nil {
		return false, err
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return false, err
	}
	if rows != 1 {
		log.Infof("report %s already left status %s, resolution no-op", id, from)
		return false, nil
	}
	return true, nil
}

// HasRecentReport implements the rate lock: true when the user already
// reported this bin inside the lookback window.
func (s *ReportStore) HasRecentReport(ctx context.Context, userID, binID string, window time.Duration) (bool, error) {
	var n int
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM waste_reports
		 WHERE user_id = ? AND bin_id = ? AND created_at > ?`,
		userID, binID, time.Now().Add(-window)).Scan(&n)
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// ListExpiredVetting returns reports stuck in UNDER_VETTING for longer
// than the timeout window. Used by the sweep.
func (s *ReportStore) ListExpiredVetting(ctx context.Context, timeout time.Duration) ([]string, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id FROM waste_reports
		 WHERE status = 'UNDER_VETTING' AND created_at < ?`,
		time.Now().Add(-timeout))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// PhotoHashSeen reports whether the fingerprint appeared inside the
// lookback window, split by whether the same user submitted it.
func (s *ReportStore) PhotoHashSeen(ctx context.Context, hash, userID string, lookback time.Duration) (sameUser, otherUser bool, err error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT r.user_id
		 FROM photo_evidence p JOIN waste_reports r ON p.report_id = r.id
		 WHERE p.image_hash = ? AND p.created_at > ?`,
		hash, time.Now().Add(-lookback))
	if err != nil {
		return false, false, err
	}
	defer rows.Close()

	for rows.Next() {
		var prior sql.NullString
		if err := rows.Scan(&prior); err != nil {
			return false, false, err
		}
		if prior.Valid && prior.String == userID {
			sameUser = true
		} else {
			otherUser = true
		}
	}
	return sameUser, otherUser, rows.Err()
}

func (s *ReportStore) InsertPhotoEvidence(ctx context.Context, p *models.PhotoEvidence) error {
	var (
		match      sql.NullBool
		confidence sql.NullFloat64
		analyzedAt sql.NullTime
	)
	if p.AIMatch != nil {
		match = sql.NullBool{Bool: *p.AIMatch, Valid: true}
	}
	if p.AIConfidence != nil {
		confidence = sql.NullFloat64{Float64: *p.AIConfidence, Valid: true}
	}
	if p.AnalyzedAt != nil {
		analyzedAt = sql.NullTime{Time: *p.AnalyzedAt, Valid: true}
	}
	result, err := s.db.ExecContext(ctx,
		`INSERT INTO photo_evidence
		   (report_id, image_hash, ai_match, ai_confidence, ai_reason, analyzed_at)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		p.ReportID, p.ImageHash, match, confidence, p.AIReason, analyzedAt)
	logResult("insertPhotoEvidence", result, err, true)
	return err
}
