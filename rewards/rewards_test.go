package rewards

import (
	"context"
	"database/sql"
	"testing"

	"ekokampus/database"
	"ekokampus/events"
	"ekokampus/models"
	"ekokampus/settings"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/jknair0/beforeeach"
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

func newService() *Service {
	return New(database.NewLedger(db), settings.NewService(db))
}

func expectTrustAdjust(userID, valueAfter string) {
	mock.ExpectExec(`UPDATE users SET trust_score = LEAST\(\?, GREATEST\(\?, trust_score \+ \?\)\) WHERE id = \?`).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectQuery(`SELECT trust_score FROM users WHERE id = \?`).
		WithArgs(userID).
		WillReturnRows(sqlmock.NewRows([]string{"trust_score"}).AddRow(valueAfter))
	mock.ExpectExec(`INSERT INTO counter_adjustments`).
		WillReturnResult(sqlmock.NewResult(1, 1))
}

func TestResolutionWithoutSubmitterSettlesVotersOnly(t *testing.T) {
	it(func() {
		// The submitter account is gone; only the voters settle, and
		// the transaction still commits.
		mock.ExpectBegin()
		expectTrustAdjust("carol", "61")
		expectTrustAdjust("dave", "39")
		mock.ExpectCommit()

		tx, err := db.Begin()
		if err != nil {
			t.Fatal(err)
		}
		ev := &events.ReportResolved{
			ReportID:   "r1",
			BinID:      "bin1",
			Status:     models.StatusApproved,
			Resolution: models.ResolutionConsensus,
			Votes: []models.VettingVote{
				{VoterID: "carol", Choice: models.VoteApprove},
				{VoterID: "dave", Choice: models.VoteReject},
			},
		}
		if err := newService().OnReportResolved(context.Background(), tx, ev); err != nil {
			t.Errorf("unexpected error %v", err)
		}
		if err := tx.Commit(); err != nil {
			t.Error(err)
		}
		if err := mock.ExpectationsWereMet(); err != nil {
			t.Error(err)
		}
	})
}

func TestTimeoutSettlesNothing(t *testing.T) {
	it(func() {
		mock.ExpectBegin()
		mock.ExpectCommit()

		tx, err := db.Begin()
		if err != nil {
			t.Fatal(err)
		}
		ev := &events.ReportResolved{
			ReportID:    "r2",
			SubmitterID: "alice",
			Status:      models.StatusRejected,
			Resolution:  models.ResolutionTimeout,
			Votes: []models.VettingVote{
				{VoterID: "carol", Choice: models.VoteReject},
			},
		}
		if err := newService().OnReportResolved(context.Background(), tx, ev); err != nil {
			t.Errorf("unexpected error %v", err)
		}
		if err := tx.Commit(); err != nil {
			t.Error(err)
		}
		if err := mock.ExpectationsWereMet(); err != nil {
			t.Error(err)
		}
	})
}
