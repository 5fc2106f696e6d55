package database

import (
	"context"
	"database/sql"
	"errors"

	"ekokampus/models"

	"github.com/go-sql-driver/mysql"
)

const mysqlErrDuplicateEntry = 1062

// VoteStore owns vetting_votes and vetting_invites. The unique key on
// (report_id, voter_id) is the invariant; duplicates are rejected by
// the database, not best-effort application checks.
type VoteStore struct {
	db *sql.DB
}

func NewVoteStore(db *sql.DB) *VoteStore {
	return &VoteStore{db: db}
}

func (s *VoteStore) Insert(ctx context.Context, v *models.VettingVote) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO vetting_votes
		   (report_id, voter_id, vote, voter_trust_at_vote, voter_distance_m)
		 VALUES (?, ?, ?, ?, ?)`,
		v.ReportID, v.VoterID, string(v.Choice), v.VoterTrustAtVote, v.VoterDistanceM)
	if isDuplicateEntry(err) {
		return models.ErrDuplicateVote
	}
	return err
}

// List returns all votes for a report in voting order.
func (s *VoteStore) List(ctx context.Context, reportID string) ([]models.VettingVote, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT seq, report_id, voter_id, vote, voter_trust_at_vote, voter_distance_m, created_at
		 FROM vetting_votes WHERE report_id = ? ORDER BY seq`,
		reportID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var votes []models.VettingVote
	for rows.Next() {
		var v models.VettingVote
		if err := rows.Scan(&v.ID, &v.ReportID, &v.VoterID, (*string)(&v.Choice),
			&v.VoterTrustAtVote, &v.VoterDistanceM, &v.CreatedAt); err != nil {
			return nil, err
		}
		votes = append(votes, v)
	}
	return votes, rows.Err()
}

// Invited reports whether the user holds an invite for the report.
func (s *VoteStore) Invited(ctx context.Context, reportID, userID string) (bool, error) {
	var n int
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM vetting_invites WHERE report_id = ? AND user_id = ?`,
		reportID, userID).Scan(&n)
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// InviteOnce records an invite, ignoring re-invites of the same user.
func (s *VoteStore) InviteOnce(ctx context.Context, reportID, userID string) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT IGNORE INTO vetting_invites (report_id, user_id) VALUES (?, ?)`,
		reportID, userID)
	return err
}

func isDuplicateEntry(err error) bool {
	var mysqlErr *mysql.MySQLError
	if errors.As(err, &mysqlErr) {
		return mysqlErr.Number == mysqlErrDuplicateEntry
	}
	return false
}
