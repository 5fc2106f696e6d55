package database

import (
	"context"
	"database/sql"

	"ekokampus/models"
)

type DetectiveStore struct {
	db *sql.DB
}

func NewDetectiveStore(db *sql.DB) *DetectiveStore {
	return &DetectiveStore{db: db}
}

func (s *DetectiveStore) Get(ctx context.Context, id string) (*models.DetectiveReport, error) {
	r := &models.DetectiveReport{}
	err := s.db.QueryRowContext(ctx,
		`SELECT id, COALESCE(reporter_id, ''), problem_type, latitude, longitude,
		        confirmation_count, status, created_at
		   FROM detective_reports WHERE id = ?`, id).
		Scan(&r.ID, &r.ReporterID, &r.ProblemType, &r.Latitude, &r.Longitude,
			&r.ConfirmationCount, &r.Status, &r.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, models.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return r, nil
}

func (s *DetectiveStore) Insert(ctx context.Context, r *models.DetectiveReport) error {
	reporter := sql.NullString{String: r.ReporterID, Valid: r.ReporterID != ""}
	result, err := s.db.ExecContext(ctx,
		`INSERT INTO detective_reports (id, reporter_id, problem_type, latitude, longitude)
		 VALUES (?, ?, ?, ?, ?)`,
		r.ID, reporter, r.ProblemType, r.Latitude, r.Longitude)
	logResult("insertDetectiveReport", result, err, true)
	return err
}

// InsertVoteTx records a confirmation vote. The composite primary key
// makes a repeat confirmation a duplicate entry.
func (s *DetectiveStore) InsertVoteTx(ctx context.Context, tx *sql.Tx, reportID, voterID string) error {
	_, err := tx.ExecContext(ctx,
		`INSERT INTO detective_votes (report_id, voter_id) VALUES (?, ?)`,
		reportID, voterID)
	if isDuplicateEntry(err) {
		return models.ErrDuplicateVote
	}
	return err
}

// ConfirmTx flips a pending report to CONFIRMED. Returns false when
// another confirmer won the race.
func (s *DetectiveStore) ConfirmTx(ctx context.Context, tx *sql.Tx, id string) (bool, error) {
	result, err := tx.ExecContext(ctx,
		`UPDATE detective_reports SET status = ? WHERE id = ? AND status = ?`,
		models.DetectiveConfirmed, id, models.DetectivePending)
	if err != nil {
		return false, err
	}
	n, err := result.RowsAffected()
	if err != nil {
		return false, err
	}
	return n == 1, nil
}
