// Package detective covers community confirmations of off-bin problem
// reports (illegal dumping, broken bins, hazards). Enough independent
// confirmations promote a report and pay out the original reporter.
package detective

import (
	"context"
	"database/sql"
	"fmt"

	"ekokampus/database"
	"ekokampus/models"
	"ekokampus/rewards"
	"ekokampus/settings"

	"github.com/apex/log"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type Service struct {
	db       *sql.DB
	store    *database.DetectiveStore
	ledger   *database.Ledger
	rewards  *rewards.Service
	settings *settings.Service
}

func New(db *sql.DB, store *database.DetectiveStore, ledger *database.Ledger,
	r *rewards.Service, s *settings.Service) *Service {
	return &Service{db: db, store: store, ledger: ledger, rewards: r, settings: s}
}

// Submit files a new problem report.
func (s *Service) Submit(ctx context.Context, reporterID, problemType string, lat, lon float64) (*models.DetectiveReport, error) {
	r := &models.DetectiveReport{
		ID:          uuid.New().String(),
		ReporterID:  reporterID,
		ProblemType: problemType,
		Latitude:    lat,
		Longitude:   lon,
		Status:      models.DetectivePending,
	}
	if err := s.store.Insert(ctx, r); err != nil {
		return nil, err
	}
	return r, nil
}

// Confirm adds one confirmation vote. When the count reaches the
// configured threshold the report flips to CONFIRMED once, and the
// winning confirmer's transaction credits the reporter double points.
func (s *Service) Confirm(ctx context.Context, reportID, voterID string) (*models.DetectiveReport, error) {
	r, err := s.store.Get(ctx, reportID)
	if err != nil {
		return nil, err
	}
	if r.ReporterID == voterID {
		return nil, fmt.Errorf("%w: reporter cannot confirm their own report", models.ErrValidation)
	}
	if r.Status != models.DetectivePending {
		return nil, models.ErrAlreadyResolved
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("confirm report: begin tx: %w", err)
	}
	defer tx.Rollback()

	if err := s.store.InsertVoteTx(ctx, tx, reportID, voterID); err != nil {
		return nil, err
	}

	count, _, err := s.ledger.AdjustTx(ctx, tx, database.DetectiveConfirmations, reportID,
		decimal.New(1, 0), models.ReasonDetectiveVote, &models.Ref{Type: "User", ID: voterID})
	if err != nil {
		return nil, err
	}

	threshold := s.settings.GetInt(ctx, settings.KeyDetectiveConfirmMin, 3)
	if count.GreaterThanOrEqual(decimal.New(int64(threshold), 0)) {
		won, err := s.store.ConfirmTx(ctx, tx, reportID)
		if err != nil {
			return nil, err
		}
		if won && r.ReporterID != "" {
			points := 2 * s.settings.GetInt(ctx, settings.KeyPointsReportApproved, 10)
			ref := &models.Ref{Type: "DetectiveReport", ID: reportID}
			if err := s.rewards.AwardPointsTx(ctx, tx, r.ReporterID, points, models.ReasonDetectiveConfirmed, ref); err != nil {
				return nil, err
			}
			if err := s.rewards.AdjustTrustTx(ctx, tx, r.ReporterID, decimal.New(2, 0), models.ReasonDetectiveConfirmed, ref); err != nil {
				return nil, err
			}
			log.Infof("detective report %s confirmed at %s votes", reportID, count)
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("confirm report: commit: %w", err)
	}
	return s.store.Get(ctx, reportID)
}
