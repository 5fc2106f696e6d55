package bounty

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"ekokampus/database"
	"ekokampus/models"
	"ekokampus/rewards"

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

func bountyRow(current, max int) *sqlmock.Rows {
	return sqlmock.NewRows([]string{
		"id", "title", "target_bin_id", "reward_points",
		"max_claimants", "current_claimants", "status", "expires_at",
	}).AddRow("b1", "Clean the quad", "bin1", 25, max, current, "OPEN", time.Now().Add(time.Hour))
}

func newService() *Service {
	ledger := database.NewLedger(db)
	return New(db, database.NewBountyStore(db), ledger, rewards.New(ledger, nil))
}

func TestClaimTakesSlot(t *testing.T) {
	it(func() {
		mock.ExpectQuery(`FROM bounties WHERE id = \?`).
			WithArgs("b1").WillReturnRows(bountyRow(0, 3))

		mock.ExpectBegin()
		mock.ExpectExec(`INSERT INTO bounty_claims`).
			WillReturnResult(sqlmock.NewResult(1, 1))
		mock.ExpectExec(`UPDATE bounties SET current_claimants = LEAST\(max_claimants`).
			WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectQuery(`SELECT current_claimants FROM bounties`).
			WithArgs("b1").
			WillReturnRows(sqlmock.NewRows([]string{"current_claimants"}).AddRow("1"))
		mock.ExpectExec(`INSERT INTO counter_adjustments`).
			WillReturnResult(sqlmock.NewResult(1, 1))
		mock.ExpectExec(`UPDATE users SET total_points = GREATEST`).
			WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectQuery(`SELECT total_points FROM users`).
			WithArgs("user1").
			WillReturnRows(sqlmock.NewRows([]string{"total_points"}).AddRow("25"))
		mock.ExpectExec(`INSERT INTO counter_adjustments`).
			WillReturnResult(sqlmock.NewResult(2, 1))
		mock.ExpectCommit()

		mock.ExpectQuery(`FROM bounties WHERE id = \?`).
			WithArgs("b1").WillReturnRows(bountyRow(1, 3))

		b, err := newService().Claim(context.Background(), "b1", "user1", "r1")
		if err != nil {
			t.Fatalf("unexpected error %v", err)
		}
		if b.CurrentClaimants != 1 {
			t.Errorf("claimants = %d, want 1", b.CurrentClaimants)
		}
		if err := mock.ExpectationsWereMet(); err != nil {
			t.Error(err)
		}
	})
}

func TestClaimFullBountyLeavesNothingBehind(t *testing.T) {
	it(func() {
		mock.ExpectQuery(`FROM bounties WHERE id = \?`).
			WithArgs("b1").WillReturnRows(bountyRow(3, 3))

		mock.ExpectBegin()
		mock.ExpectExec(`INSERT INTO bounty_claims`).
			WillReturnResult(sqlmock.NewResult(1, 1))
		// The clamp absorbs the +1: zero rows changed signals a full
		// bounty, and the whole transaction rolls back.
		mock.ExpectExec(`UPDATE bounties SET current_claimants = LEAST\(max_claimants`).
			WillReturnResult(sqlmock.NewResult(0, 0))
		mock.ExpectQuery(`SELECT current_claimants FROM bounties`).
			WithArgs("b1").
			WillReturnRows(sqlmock.NewRows([]string{"current_claimants"}).AddRow("3"))
		mock.ExpectExec(`INSERT INTO counter_adjustments`).
			WillReturnResult(sqlmock.NewResult(1, 1))
		mock.ExpectRollback()

		_, err := newService().Claim(context.Background(), "b1", "user2", "")
		if err != models.ErrBountyFull {
			t.Errorf("err = %v, want ErrBountyFull", err)
		}
		if err := mock.ExpectationsWereMet(); err != nil {
			t.Error(err)
		}
	})
}

func TestClaimClosedBounty(t *testing.T) {
	it(func() {
		rows := sqlmock.NewRows([]string{
			"id", "title", "target_bin_id", "reward_points",
			"max_claimants", "current_claimants", "status", "expires_at",
		}).AddRow("b1", "Clean the quad", "bin1", 25, 3, 3, "CLOSED", time.Now().Add(time.Hour))
		mock.ExpectQuery(`FROM bounties WHERE id = \?`).
			WithArgs("b1").WillReturnRows(rows)

		_, err := newService().Claim(context.Background(), "b1", "user1", "")
		if err != models.ErrBountyFull {
			t.Errorf("err = %v, want ErrBountyFull", err)
		}
	})
}
