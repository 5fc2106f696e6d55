// Package rewards owns trust and point mutations. Every write goes
// through the counter ledger, so each delta lands in the audit trail
// with a reason code.
package rewards

import (
	"context"
	"database/sql"

	"ekokampus/database"
	"ekokampus/events"
	"ekokampus/models"
	"ekokampus/settings"

	"github.com/apex/log"
	"github.com/shopspring/decimal"
)

// Trust deltas applied on resolution.
var (
	trustSubmitterApproved = decimal.New(2, 0)
	trustSubmitterRejected = decimal.New(-5, 0)
	trustVoterCorrect      = decimal.New(1, 0)
	trustVoterWrong        = decimal.New(-1, 0)
)

type Service struct {
	ledger   *database.Ledger
	settings *settings.Service
}

func New(ledger *database.Ledger, s *settings.Service) *Service {
	return &Service{ledger: ledger, settings: s}
}

// AdjustTrustTx moves a user's trust score inside the caller's
// transaction. Clamping to [0,100] happens in the ledger.
func (s *Service) AdjustTrustTx(ctx context.Context, tx *sql.Tx, userID string, delta decimal.Decimal, reason models.AdjustReason, related *models.Ref) error {
	_, _, err := s.ledger.AdjustTx(ctx, tx, database.UserTrust, userID, delta, reason, related)
	return err
}

// AwardPointsTx credits points inside the caller's transaction. Points
// never go below zero; negative deltas clamp there.
func (s *Service) AwardPointsTx(ctx context.Context, tx *sql.Tx, userID string, points int, reason models.AdjustReason, related *models.Ref) error {
	_, _, err := s.ledger.AdjustTx(ctx, tx, database.UserPoints, userID, decimal.New(int64(points), 0), reason, related)
	return err
}

// OnReportResolved is the dispatcher handler that settles trust and
// points when a report reaches a terminal state. Timeouts settle
// nothing: an expired vetting window is not evidence either way.
func (s *Service) OnReportResolved(ctx context.Context, tx *sql.Tx, ev *events.ReportResolved) error {
	if ev.Resolution == models.ResolutionTimeout {
		log.Infof("report %s timed out, no trust or point settlement", ev.ReportID)
		return nil
	}

	if ev.Status != models.StatusApproved && ev.Status != models.StatusRejected {
		return nil
	}

	ref := &models.Ref{Type: "Report", ID: ev.ReportID}
	// A deleted submitter leaves the report without an owner; the
	// voters still settle against the outcome.
	switch {
	case ev.SubmitterID == "":
		log.Infof("report %s has no submitter, skipping submitter settlement", ev.ReportID)
	case ev.Status == models.StatusApproved:
		if err := s.AdjustTrustTx(ctx, tx, ev.SubmitterID, trustSubmitterApproved, models.ReasonReportApproved, ref); err != nil {
			return err
		}
		points := s.settings.GetInt(ctx, settings.KeyPointsReportApproved, 10)
		if err := s.AwardPointsTx(ctx, tx, ev.SubmitterID, points, models.ReasonReportApproved, ref); err != nil {
			return err
		}
	default:
		if err := s.AdjustTrustTx(ctx, tx, ev.SubmitterID, trustSubmitterRejected, models.ReasonReportRejected, ref); err != nil {
			return err
		}
	}

	// Voters settle against the outcome: with it, +1; against it, -1.
	winning := models.VoteReject
	if ev.Status == models.StatusApproved {
		winning = models.VoteApprove
	}
	for _, v := range ev.Votes {
		delta, reason := trustVoterWrong, models.ReasonVettingWrong
		if v.Choice == winning {
			delta, reason = trustVoterCorrect, models.ReasonVettingCorrect
		}
		if err := s.AdjustTrustTx(ctx, tx, v.VoterID, delta, reason, ref); err != nil {
			return err
		}
	}
	return nil
}
