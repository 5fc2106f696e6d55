package database

import (
	"context"
	"database/sql"
	"testing"

	"ekokampus/models"

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

func TestAdjustTrust(t *testing.T) {
	it(func() {
		testCases := []struct {
			name  string
			delta string

			rowsAffected int64
			valueAfter   string

			appliedExpected bool
		}{
			{
				name:            "Delta applied within bounds",
				delta:           "2",
				rowsAffected:    1,
				valueAfter:      "52",
				appliedExpected: true,
			}, {
				name:            "Delta fully clamped at upper bound",
				delta:           "5",
				rowsAffected:    0,
				valueAfter:      "100",
				appliedExpected: false,
			},
		}

		for _, testCase := range testCases {
			mock.ExpectBegin()
			mock.ExpectExec(
				`UPDATE users SET trust_score = LEAST\(\?, GREATEST\(\?, trust_score \+ \?\)\) WHERE id = \?`).
				WillReturnResult(sqlmock.NewResult(0, testCase.rowsAffected))
			mock.ExpectQuery(`SELECT trust_score FROM users WHERE id = \?`).
				WithArgs("user1").
				WillReturnRows(sqlmock.NewRows([]string{"trust_score"}).AddRow(testCase.valueAfter))
			mock.ExpectExec(`INSERT INTO counter_adjustments`).
				WillReturnResult(sqlmock.NewResult(1, 1))
			mock.ExpectCommit()

			ledger := NewLedger(db)
			delta := decimal.RequireFromString(testCase.delta)
			value, applied, err := ledger.Adjust(context.Background(), UserTrust, "user1",
				delta, models.ReasonReportApproved, &models.Ref{Type: "Report", ID: "r1"})
			if err != nil {
				t.Errorf("%s: unexpected error %v", testCase.name, err)
			}
			if applied != testCase.appliedExpected {
				t.Errorf("%s: applied = %v, want %v", testCase.name, applied, testCase.appliedExpected)
			}
			if value.String() != testCase.valueAfter {
				t.Errorf("%s: value = %s, want %s", testCase.name, value, testCase.valueAfter)
			}
			if err := mock.ExpectationsWereMet(); err != nil {
				t.Errorf("%s: %v", testCase.name, err)
			}
		}
	})
}

func TestAdjustRollsBackWhenAuditFails(t *testing.T) {
	it(func() {
		mock.ExpectBegin()
		mock.ExpectExec(
			`UPDATE bins SET fill_level = LEAST\(\?, GREATEST\(\?, fill_level \+ \?\)\) WHERE id = \?`).
			WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectQuery(`SELECT fill_level FROM bins WHERE id = \?`).
			WithArgs("bin1").
			WillReturnRows(sqlmock.NewRows([]string{"fill_level"}).AddRow("0.851"))
		mock.ExpectExec(`INSERT INTO counter_adjustments`).
			WillReturnError(sql.ErrConnDone)
		mock.ExpectRollback()

		ledger := NewLedger(db)
		_, _, err := ledger.Adjust(context.Background(), BinFill, "bin1",
			decimal.RequireFromString("0.051"), models.ReasonBinReport, nil)
		if err == nil {
			t.Error("expected error when the audit insert fails")
		}
		if err := mock.ExpectationsWereMet(); err != nil {
			t.Error(err)
		}
	})
}

func TestAdjustUnknownSubject(t *testing.T) {
	it(func() {
		mock.ExpectBegin()
		mock.ExpectExec(`UPDATE users SET trust_score`).
			WillReturnResult(sqlmock.NewResult(0, 0))
		mock.ExpectQuery(`SELECT trust_score FROM users WHERE id = \?`).
			WithArgs("ghost").
			WillReturnRows(sqlmock.NewRows([]string{"trust_score"}))
		mock.ExpectRollback()

		ledger := NewLedger(db)
		_, _, err := ledger.Adjust(context.Background(), UserTrust, "ghost",
			decimal.New(1, 0), models.ReasonReportApproved, nil)
		if err != models.ErrNotFound {
			t.Errorf("err = %v, want ErrNotFound", err)
		}
		if err := mock.ExpectationsWereMet(); err != nil {
			t.Error(err)
		}
	})
}

func TestAdjustPerRowUpperBound(t *testing.T) {
	it(func() {
		mock.ExpectBegin()
		mock.ExpectExec(
			`UPDATE bounties SET current_claimants = LEAST\(max_claimants, GREATEST\(\?, current_claimants \+ \?\)\) WHERE id = \?`).
			WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectQuery(`SELECT current_claimants FROM bounties WHERE id = \?`).
			WithArgs("b1").
			WillReturnRows(sqlmock.NewRows([]string{"current_claimants"}).AddRow("3"))
		mock.ExpectExec(`INSERT INTO counter_adjustments`).
			WillReturnResult(sqlmock.NewResult(1, 1))
		mock.ExpectCommit()

		ledger := NewLedger(db)
		value, applied, err := ledger.Adjust(context.Background(), BountyClaimants, "b1",
			decimal.New(1, 0), models.ReasonBountySlotTaken, nil)
		if err != nil {
			t.Errorf("unexpected error %v", err)
		}
		if !applied || value.String() != "3" {
			t.Errorf("value = %s applied = %v, want 3 true", value, applied)
		}
		if err := mock.ExpectationsWereMet(); err != nil {
			t.Error(err)
		}
	})
}

func TestReplayReconstructsClampedValue(t *testing.T) {
	it(func() {
		// Trust starts at 50; +60 clamps at 100, -5 lands on 95. A
		// naive unclamped sum would give 105.
		mock.ExpectQuery(`SELECT delta FROM counter_adjustments`).
			WithArgs("user_trust", "user1").
			WillReturnRows(sqlmock.NewRows([]string{"delta"}).
				AddRow("60").
				AddRow("-5"))

		ledger := NewLedger(db)
		value, err := ledger.Replay(context.Background(), UserTrust, "user1")
		if err != nil {
			t.Errorf("unexpected error %v", err)
		}
		if value.String() != "95" {
			t.Errorf("replayed value = %s, want 95", value)
		}
		if err := mock.ExpectationsWereMet(); err != nil {
			t.Error(err)
		}
	})
}

func TestReplayEmptyLedger(t *testing.T) {
	it(func() {
		mock.ExpectQuery(`SELECT delta FROM counter_adjustments`).
			WithArgs("bin_fill", "bin1").
			WillReturnRows(sqlmock.NewRows([]string{"delta"}))

		ledger := NewLedger(db)
		value, err := ledger.Replay(context.Background(), BinFill, "bin1")
		if err != nil {
			t.Errorf("unexpected error %v", err)
		}
		if !value.IsZero() {
			t.Errorf("replayed value = %s, want 0", value)
		}
	})
}
