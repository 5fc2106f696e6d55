package vetting

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"ekokampus/database"
	"ekokampus/events"
	"ekokampus/fillmodel"
	"ekokampus/models"
	"ekokampus/settings"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/jknair0/beforeeach"
	"github.com/shopspring/decimal"
)

var (
	db   *sql.DB
	mock sqlmock.Sqlmock
)

func setUp() {
	db, mock, _ = sqlmock.New()
}

func tearDown() {
	db.Close()
}

var it = beforeeach.Create(setUp, tearDown)

func newCoordinator() *Coordinator {
	bins := database.NewBinStore(db)
	ledger := database.NewLedger(db)
	s := settings.NewService(db)
	fill := fillmodel.New(bins, ledger, s)
	return NewCoordinator(db, database.NewReportStore(db), database.NewVoteStore(db),
		database.NewUserStore(db), bins, fill, s, events.NewDispatcher(), nil)
}

var reportColumns = []string{"id", "user_id", "bin_id", "category", "latitude", "longitude",
	"client_timestamp", "created_at", "geo_distance_m", "fill_delta", "suspicion_score",
	"status", "resolution", "points_awarded"}

func expectGetReport(id, userID string, status models.ReportStatus) {
	now := time.Now()
	mock.ExpectQuery(`SELECT id, user_id, bin_id, category`).
		WithArgs(id).
		WillReturnRows(sqlmock.NewRows(reportColumns).
			AddRow(id, userID, "bin1", "PLASTIC", 41.0, 29.0, now, now, 12, "0.000", 55,
				string(status), nil, 0))
}

var voteColumns = []string{"seq", "report_id", "voter_id", "vote",
	"voter_trust_at_vote", "voter_distance_m", "created_at"}

func expectSettingUnset(key string) {
	mock.ExpectQuery(`SELECT value, value_type FROM system_settings WHERE setting_key = \?`).
		WithArgs(key).
		WillReturnRows(sqlmock.NewRows([]string{"value", "value_type"}))
}

func vote(choice models.VoteChoice, trust int) models.VettingVote {
	return models.VettingVote{Choice: choice, VoterTrustAtVote: trust}
}

func TestVoteWeight(t *testing.T) {
	testCases := []struct {
		trust  int
		weight float64
	}{
		{0, 0.5},
		{29, 0.5},
		{30, 1.0},
		{100, 1.0},
	}
	for _, testCase := range testCases {
		if got := voteWeight(testCase.trust, 30); got != testCase.weight {
			t.Errorf("voteWeight(%d) = %v, want %v", testCase.trust, got, testCase.weight)
		}
	}
}

func TestDecide(t *testing.T) {
	testCases := []struct {
		name  string
		votes []models.VettingVote

		decidedExpected bool
		statusExpected  models.ReportStatus
	}{
		{
			name: "Two approvals and a reject reach approval at quorum",
			votes: []models.VettingVote{
				vote(models.VoteApprove, 80),
				vote(models.VoteApprove, 60),
				vote(models.VoteReject, 70),
			},
			decidedExpected: true,
			statusExpected:  models.StatusApproved,
		}, {
			name: "Below quorum stays open",
			votes: []models.VettingVote{
				vote(models.VoteApprove, 80),
				vote(models.VoteApprove, 60),
			},
			decidedExpected: false,
		}, {
			name: "Low-trust voters count at half weight",
			votes: []models.VettingVote{
				vote(models.VoteApprove, 10),
				vote(models.VoteApprove, 20),
				vote(models.VoteApprove, 25),
				vote(models.VoteApprove, 15),
			},
			// four half-weight approvals total 2.0, short of quorum 3
			decidedExpected: false,
		}, {
			name: "Reject side clears its threshold",
			votes: []models.VettingVote{
				vote(models.VoteReject, 80),
				vote(models.VoteReject, 60),
				vote(models.VoteApprove, 70),
			},
			decidedExpected: true,
			statusExpected:  models.StatusRejected,
		}, {
			name: "Contested tally stays open past quorum",
			votes: []models.VettingVote{
				vote(models.VoteApprove, 80),
				vote(models.VoteApprove, 60),
				vote(models.VoteReject, 70),
				vote(models.VoteReject, 90),
			},
			// ratio 0.5: neither side clears 0.60 / 0.40
			decidedExpected: false,
		}, {
			name: "One strong approval cannot outvote a low-trust crowd",
			votes: []models.VettingVote{
				vote(models.VoteApprove, 95),
				vote(models.VoteReject, 10),
				vote(models.VoteReject, 20),
				vote(models.VoteReject, 25),
				vote(models.VoteReject, 15),
			},
			// 1.0 approve vs 2.0 reject: ratio 1/3, reject wins
			decidedExpected: true,
			statusExpected:  models.StatusRejected,
		},
	}

	for _, testCase := range testCases {
		decided, status := decide(testCase.votes, 3, 0.60, 30)
		if decided != testCase.decidedExpected {
			t.Errorf("%s: decided = %v, want %v", testCase.name, decided, testCase.decidedExpected)
			continue
		}
		if decided && status != testCase.statusExpected {
			t.Errorf("%s: status = %s, want %s", testCase.name, status, testCase.statusExpected)
		}
	}
}

func TestCastVoteBySubmitter(t *testing.T) {
	it(func() {
		expectGetReport("r1", "alice", models.StatusUnderVetting)

		_, err := newCoordinator().CastVote(context.Background(), "r1", "alice",
			models.VoteApprove, 41.0, 29.0)
		if err != models.ErrNotEligible {
			t.Errorf("err = %v, want ErrNotEligible", err)
		}
		if err := mock.ExpectationsWereMet(); err != nil {
			t.Error(err)
		}
	})
}

func TestCastVoteWithoutInvite(t *testing.T) {
	it(func() {
		expectGetReport("r1", "alice", models.StatusUnderVetting)
		mock.ExpectQuery(`SELECT COUNT\(\*\) FROM vetting_invites`).
			WithArgs("r1", "mallory").
			WillReturnRows(sqlmock.NewRows([]string{"n"}).AddRow(0))

		_, err := newCoordinator().CastVote(context.Background(), "r1", "mallory",
			models.VoteApprove, 41.0, 29.0)
		if err != models.ErrNotEligible {
			t.Errorf("err = %v, want ErrNotEligible", err)
		}
		if err := mock.ExpectationsWereMet(); err != nil {
			t.Error(err)
		}
	})
}

func TestCastVoteOnResolvedReport(t *testing.T) {
	it(func() {
		expectGetReport("r1", "alice", models.StatusApproved)

		_, err := newCoordinator().CastVote(context.Background(), "r1", "bob",
			models.VoteReject, 41.0, 29.0)
		if err != models.ErrAlreadyResolved {
			t.Errorf("err = %v, want ErrAlreadyResolved", err)
		}
		if err := mock.ExpectationsWereMet(); err != nil {
			t.Error(err)
		}
	})
}

func TestResolveTimeoutHonorsDecidedTally(t *testing.T) {
	it(func() {
		// Three full-weight rejects carry the tally, so the expired
		// window resolves by consensus, not timeout.
		now := time.Now()
		mock.ExpectQuery(`SELECT seq, report_id, voter_id`).
			WithArgs("r1").
			WillReturnRows(sqlmock.NewRows(voteColumns).
				AddRow(1, "r1", "carol", "REJECT", 80, 10, now).
				AddRow(2, "r1", "dave", "REJECT", 60, 20, now).
				AddRow(3, "r1", "erin", "REJECT", 70, 30, now))
		expectSettingUnset("VETTING_MIN_VOTES")
		expectSettingUnset("VETTING_APPROVE_THRESHOLD")
		expectSettingUnset("VETTING_TRUST_WEIGHT_FLOOR")
		expectGetReport("r1", "alice", models.StatusUnderVetting)
		mock.ExpectBegin()
		mock.ExpectExec(`UPDATE waste_reports`).
			WithArgs("REJECTED", "CONSENSUS", 0, decimal.Zero, "r1", "UNDER_VETTING").
			WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectCommit()

		if err := newCoordinator().ResolveTimeout(context.Background(), "r1"); err != nil {
			t.Errorf("unexpected error %v", err)
		}
		if err := mock.ExpectationsWereMet(); err != nil {
			t.Error(err)
		}
	})
}

func TestResolveTimeoutBelowQuorum(t *testing.T) {
	it(func() {
		now := time.Now()
		mock.ExpectQuery(`SELECT seq, report_id, voter_id`).
			WithArgs("r2").
			WillReturnRows(sqlmock.NewRows(voteColumns).
				AddRow(1, "r2", "carol", "REJECT", 80, 10, now))
		expectSettingUnset("VETTING_MIN_VOTES")
		expectSettingUnset("VETTING_APPROVE_THRESHOLD")
		expectSettingUnset("VETTING_TRUST_WEIGHT_FLOOR")
		expectGetReport("r2", "alice", models.StatusUnderVetting)
		mock.ExpectBegin()
		mock.ExpectExec(`UPDATE waste_reports`).
			WithArgs("REJECTED", "TIMEOUT", 0, decimal.Zero, "r2", "UNDER_VETTING").
			WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectCommit()

		if err := newCoordinator().ResolveTimeout(context.Background(), "r2"); err != nil {
			t.Errorf("unexpected error %v", err)
		}
		if err := mock.ExpectationsWereMet(); err != nil {
			t.Error(err)
		}
	})
}
