// Package bounty handles claims against capped cleanup bounties. The
// claimant counter is bounded by the bounty's own max_claimants
// column, so two racing claimers for the last slot cannot both win.
package bounty

import (
	"context"
	"database/sql"
	"fmt"

	"ekokampus/database"
	"ekokampus/models"
	"ekokampus/rewards"

	"github.com/apex/log"
	"github.com/shopspring/decimal"
)

type Service struct {
	db      *sql.DB
	store   *database.BountyStore
	ledger  *database.Ledger
	rewards *rewards.Service
}

func New(db *sql.DB, store *database.BountyStore, ledger *database.Ledger, r *rewards.Service) *Service {
	return &Service{db: db, store: store, ledger: ledger, rewards: r}
}

// OpenForBin lists the open, unexpired bounties targeting a bin.
func (s *Service) OpenForBin(ctx context.Context, binID string) ([]models.Bounty, error) {
	return s.store.ListOpenForBin(ctx, binID)
}

// Claim takes one slot on an open bounty for the user. A full bounty
// returns ErrBountyFull and leaves nothing behind: the slot counter is
// only audited when a slot was actually taken.
func (s *Service) Claim(ctx context.Context, bountyID, userID, qualifyingReportID string) (*models.Bounty, error) {
	b, err := s.store.Get(ctx, bountyID)
	if err != nil {
		return nil, err
	}
	if b.Status != models.BountyOpen {
		return nil, models.ErrBountyFull
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("claim bounty: begin tx: %w", err)
	}
	defer tx.Rollback()

	ref := &models.Ref{Type: "Bounty", ID: bountyID}

	// Unique claim row first: a repeat claimer fails here before the
	// counter is touched.
	if err := s.store.InsertClaimTx(ctx, tx, bountyID, userID, qualifyingReportID, b.RewardPoints); err != nil {
		return nil, err
	}

	// The counter clamps at max_claimants. A clamped adjustment
	// changes nothing, which the driver reports as zero rows: that is
	// the full-bounty signal.
	claimants, applied, err := s.ledger.AdjustTx(ctx, tx, database.BountyClaimants, bountyID,
		decimal.New(1, 0), models.ReasonBountySlotTaken, &models.Ref{Type: "User", ID: userID})
	if err != nil {
		return nil, err
	}
	if !applied {
		return nil, models.ErrBountyFull
	}

	if err := s.rewards.AwardPointsTx(ctx, tx, userID, b.RewardPoints, models.ReasonBountyClaimed, ref); err != nil {
		return nil, err
	}

	if claimants.Equal(decimal.New(int64(b.MaxClaimants), 0)) {
		if err := s.store.CloseTx(ctx, tx, bountyID); err != nil {
			return nil, err
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("claim bounty: commit: %w", err)
	}
	log.Infof("bounty %s claimed by %s (%s/%d slots)", bountyID, userID, claimants, b.MaxClaimants)
	return s.store.Get(ctx, bountyID)
}
