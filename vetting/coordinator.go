// Package vetting runs the peer consensus state machine for disputed
// reports: eligible voters are invited, votes accumulate with
// trust-derived weights, and the first check that reaches a decision
// fires the terminal transition exactly once.
package vetting

import (
	"context"
	"database/sql"
	"fmt"

	"ekokampus/database"
	"ekokampus/events"
	"ekokampus/fillmodel"
	"ekokampus/geo"
	"ekokampus/metrics"
	"ekokampus/models"
	"ekokampus/settings"

	"github.com/apex/log"
	"github.com/shopspring/decimal"
)

// Notifier receives resolution events after commit, best effort.
type Notifier interface {
	PublishResolved(ev *events.ReportResolved)
}

type Coordinator struct {
	db         *sql.DB
	reports    *database.ReportStore
	votes      *database.VoteStore
	users      *database.UserStore
	bins       *database.BinStore
	fill       *fillmodel.Model
	settings   *settings.Service
	dispatcher *events.Dispatcher
	notifier   Notifier
}

func NewCoordinator(db *sql.DB, reports *database.ReportStore, votes *database.VoteStore,
	users *database.UserStore, bins *database.BinStore, fill *fillmodel.Model,
	s *settings.Service, dispatcher *events.Dispatcher, notifier Notifier) *Coordinator {
	return &Coordinator{
		db:         db,
		reports:    reports,
		votes:      votes,
		users:      users,
		bins:       bins,
		fill:       fill,
		settings:   s,
		dispatcher: dispatcher,
		notifier:   notifier,
	}
}

// Open moves a pending report into vetting and invites nearby users to
// vote. Losing the PENDING guard means another path already took the
// report, which is not an error.
func (c *Coordinator) Open(ctx context.Context, report *models.WasteReport) error {
	ok, err := c.reports.MarkUnderVetting(ctx, report.ID)
	if err != nil {
		return err
	}
	if !ok {
		log.Warnf("report %s no longer pending, vetting not opened", report.ID)
		return nil
	}

	bin, err := c.bins.Get(ctx, report.BinID)
	if err != nil {
		return err
	}
	radius := c.settings.GetInt(ctx, settings.KeyVettingRadiusM, 200)
	candidates, err := c.bins.NearbyUsers(ctx, bin.Latitude, bin.Longitude, radius, report.UserID)
	if err != nil {
		return err
	}
	invited := 0
	for _, u := range candidates {
		if u.LastLat == nil || u.LastLon == nil {
			continue
		}
		if !geo.WithinRadius(*u.LastLat, *u.LastLon, bin.Latitude, bin.Longitude, radius) {
			continue
		}
		if err := c.votes.InviteOnce(ctx, report.ID, u.ID); err != nil {
			return err
		}
		invited++
	}
	log.Infof("report %s under vetting, %d voters invited", report.ID, invited)
	return nil
}

// CastVote records one peer vote and runs the resolution check. The
// voter's trust score is snapshotted at vote time; later trust changes
// never reweight a recorded vote.
func (c *Coordinator) CastVote(ctx context.Context, reportID, voterID string, choice models.VoteChoice, voterLat, voterLon float64) (*models.WasteReport, error) {
	report, err := c.reports.Get(ctx, reportID)
	if err != nil {
		return nil, err
	}
	if report.Status.Terminal() {
		return nil, models.ErrAlreadyResolved
	}
	if report.Status != models.StatusUnderVetting {
		return nil, models.ErrNotUnderVetting
	}
	// Submitters never vet their own reports, and voters must hold an
	// invite written when the window opened.
	if voterID == report.UserID {
		return nil, models.ErrNotEligible
	}
	invited, err := c.votes.Invited(ctx, reportID, voterID)
	if err != nil {
		return nil, err
	}
	if !invited {
		return nil, models.ErrNotEligible
	}

	trust, err := c.users.TrustScore(ctx, voterID)
	if err != nil {
		return nil, err
	}
	bin, err := c.bins.Get(ctx, report.BinID)
	if err != nil {
		return nil, err
	}
	vote := &models.VettingVote{
		ReportID:         reportID,
		VoterID:          voterID,
		Choice:           choice,
		VoterTrustAtVote: trust,
		VoterDistanceM:   int(geo.DistanceMeters(voterLat, voterLon, bin.Latitude, bin.Longitude)),
	}
	if err := c.votes.Insert(ctx, vote); err != nil {
		return nil, err
	}
	metrics.VotesTotal.WithLabelValues(string(choice)).Inc()

	if err := c.resolveIfDecided(ctx, reportID); err != nil {
		return nil, err
	}
	return c.reports.Get(ctx, reportID)
}

// voteWeight maps a trust snapshot to a vote weight. Below the floor a
// voter still counts, just at half strength.
func voteWeight(trust, floor int) float64 {
	if trust < floor {
		return 0.5
	}
	return 1.0
}

// decide evaluates the weighted tally. decided is false until the
// weighted total reaches the quorum and one side clears its threshold.
func decide(votes []models.VettingVote, minVotes int, approveRatio float64, trustFloor int) (decided bool, status models.ReportStatus) {
	var approve, total float64
	for _, v := range votes {
		w := voteWeight(v.VoterTrustAtVote, trustFloor)
		total += w
		if v.Choice == models.VoteApprove {
			approve += w
		}
	}
	if total < float64(minVotes) {
		return false, ""
	}
	ratio := approve / total
	switch {
	case ratio >= approveRatio:
		return true, models.StatusApproved
	case (total-approve)/total > 1-approveRatio:
		return true, models.StatusRejected
	default:
		return false, ""
	}
}

func (c *Coordinator) resolveIfDecided(ctx context.Context, reportID string) error {
	votes, err := c.votes.List(ctx, reportID)
	if err != nil {
		return err
	}
	minVotes := c.settings.GetInt(ctx, settings.KeyVettingMinVotes, 3)
	ratio := c.settings.GetFloat(ctx, settings.KeyVettingApproveRatio, 0.60)
	floor := c.settings.GetInt(ctx, settings.KeyVettingTrustFloor, 30)

	decided, status := decide(votes, minVotes, ratio, floor)
	if !decided {
		return nil
	}
	return c.resolve(ctx, reportID, models.StatusUnderVetting, status, models.ResolutionConsensus, votes)
}

// ResolveAuto finishes a report straight from intake, bypassing
// vetting. Used for clean and hopeless reports alike.
func (c *Coordinator) ResolveAuto(ctx context.Context, reportID string, status models.ReportStatus) error {
	return c.resolve(ctx, reportID, models.StatusPending, status, models.ResolutionAuto, nil)
}

// resolve performs the terminal transition and every in-transaction
// side effect. The guarded UPDATE makes the transition single-fire:
// losing the race is a silent no-op.
func (c *Coordinator) resolve(ctx context.Context, reportID string, from, status models.ReportStatus, resolution models.Resolution, votes []models.VettingVote) error {
	report, err := c.reports.Get(ctx, reportID)
	if err != nil {
		return err
	}

	tx, err := c.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("resolve report: begin tx: %w", err)
	}
	defer tx.Rollback()

	fillDelta := decimal.Zero
	points := 0
	if status == models.StatusApproved {
		current, err := c.bins.FillLevelTx(ctx, tx, report.BinID)
		if err != nil {
			return err
		}
		fillDelta = c.fill.ComputeDelta(ctx, report.Category, current)
		points = c.settings.GetInt(ctx, settings.KeyPointsReportApproved, 10)
	}

	ok, err := c.reports.ResolveTx(ctx, tx, reportID, from, status, resolution, points, fillDelta)
	if err != nil {
		return err
	}
	if !ok {
		log.Infof("report %s already resolved elsewhere", reportID)
		return nil
	}

	if status == models.StatusApproved {
		if _, err := c.fill.ApplyTx(ctx, tx, report.BinID, fillDelta, &models.Ref{Type: "Report", ID: reportID}, report.UserID); err != nil {
			return err
		}
	}

	ev := &events.ReportResolved{
		ReportID:    reportID,
		BinID:       report.BinID,
		SubmitterID: report.UserID,
		Category:    report.Category,
		Status:      status,
		Resolution:  resolution,
		FillDelta:   fillDelta,
		Votes:       votes,
	}
	if err := c.dispatcher.EmitTx(ctx, tx, ev); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("resolve report: commit: %w", err)
	}
	log.Infof("report %s resolved %s (%s)", reportID, status, resolution)
	metrics.ResolutionsTotal.WithLabelValues(string(status), string(resolution)).Inc()

	if c.notifier != nil {
		c.notifier.PublishResolved(ev)
	}
	return nil
}

// ResolveTimeout closes an expired vetting window. A tally that
// already carries a decision resolves by consensus even past the
// deadline; only windows without a decisive tally (no quorum, or a
// contested split) take the timeout path, which rejects without
// settling trust or points. Used by the sweep.
func (c *Coordinator) ResolveTimeout(ctx context.Context, reportID string) error {
	votes, err := c.votes.List(ctx, reportID)
	if err != nil {
		return err
	}
	minVotes := c.settings.GetInt(ctx, settings.KeyVettingMinVotes, 3)
	ratio := c.settings.GetFloat(ctx, settings.KeyVettingApproveRatio, 0.60)
	floor := c.settings.GetInt(ctx, settings.KeyVettingTrustFloor, 30)
	if decided, status := decide(votes, minVotes, ratio, floor); decided {
		return c.resolve(ctx, reportID, models.StatusUnderVetting, status, models.ResolutionConsensus, votes)
	}
	return c.resolve(ctx, reportID, models.StatusUnderVetting, models.StatusRejected, models.ResolutionTimeout, votes)
}
