package database

import (
	"context"
	"database/sql"

	"ekokampus/models"
)

type BountyStore struct {
	db *sql.DB
}

func NewBountyStore(db *sql.DB) *BountyStore {
	return &BountyStore{db: db}
}

func (s *BountyStore) Get(ctx context.Context, id string) (*models.Bounty, error) {
	b := &models.Bounty{}
	err := s.db.QueryRowContext(ctx,
		`SELECT id, title, COALESCE(target_bin_id, ''), reward_points,
		        max_claimants, current_claimants, status, expires_at
		   FROM bounties WHERE id = ?`, id).
		Scan(&b.ID, &b.Title, &b.TargetBinID, &b.RewardPoints,
			&b.MaxClaimants, &b.CurrentClaimants, &b.Status, &b.ExpiresAt)
	if err == sql.ErrNoRows {
		return nil, models.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return b, nil
}

// InsertClaimTx records the claim row. The unique key on
// (bounty_id, user_id) makes a repeat claim a duplicate entry.
func (s *BountyStore) InsertClaimTx(ctx context.Context, tx *sql.Tx, bountyID, userID, reportID string, points int) error {
	report := sql.NullString{String: reportID, Valid: reportID != ""}
	_, err := tx.ExecContext(ctx,
		`INSERT INTO bounty_claims (bounty_id, user_id, qualifying_report_id, points_awarded)
		 VALUES (?, ?, ?, ?)`,
		bountyID, userID, report, points)
	if isDuplicateEntry(err) {
		return models.ErrDuplicateClaim
	}
	return err
}

// CloseTx marks a filled bounty CLOSED. Guarded on OPEN so concurrent
// closers are harmless.
func (s *BountyStore) CloseTx(ctx context.Context, tx *sql.Tx, id string) error {
	_, err := tx.ExecContext(ctx,
		`UPDATE bounties SET status = ? WHERE id = ? AND status = ?`,
		models.BountyClosed, id, models.BountyOpen)
	return err
}

// ListOpenForBin returns open, unexpired bounties targeting a bin.
func (s *BountyStore) ListOpenForBin(ctx context.Context, binID string) ([]models.Bounty, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, title, COALESCE(target_bin_id, ''), reward_points,
		        max_claimants, current_claimants, status, expires_at
		   FROM bounties
		  WHERE target_bin_id = ? AND status = ? AND expires_at > NOW()`,
		binID, models.BountyOpen)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []models.Bounty
	for rows.Next() {
		var b models.Bounty
		if err := rows.Scan(&b.ID, &b.Title, &b.TargetBinID, &b.RewardPoints,
			&b.MaxClaimants, &b.CurrentClaimants, &b.Status, &b.ExpiresAt); err != nil {
			return nil, err
		}
		out = append(out, b)
	}
	return out, rows.Err()
}
