package settings

import (
	"context"
	"database/sql"
	"testing"

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

func settingRow(value, vtype string) *sqlmock.Rows {
	return sqlmock.NewRows([]string{"value", "value_type"}).AddRow(value, vtype)
}

func TestGetTyped(t *testing.T) {
	it(func() {
		mock.ExpectQuery(`SELECT value, value_type FROM system_settings`).
			WithArgs(KeyVettingMinVotes).
			WillReturnRows(settingRow("5", "INT"))
		mock.ExpectQuery(`SELECT value, value_type FROM system_settings`).
			WithArgs(KeyVettingApproveRatio).
			WillReturnRows(settingRow("0.75", "FLOAT"))
		mock.ExpectQuery(`SELECT value, value_type FROM system_settings`).
			WithArgs(KeyPhotoVettingEnabled).
			WillReturnRows(settingRow("false", "BOOL"))

		s := NewService(db)
		ctx := context.Background()
		if got := s.GetInt(ctx, KeyVettingMinVotes, 3); got != 5 {
			t.Errorf("GetInt = %d, want 5", got)
		}
		if got := s.GetFloat(ctx, KeyVettingApproveRatio, 0.60); got != 0.75 {
			t.Errorf("GetFloat = %v, want 0.75", got)
		}
		if got := s.GetBool(ctx, KeyPhotoVettingEnabled, true); got {
			t.Error("GetBool = true, want false")
		}
		if err := mock.ExpectationsWereMet(); err != nil {
			t.Error(err)
		}
	})
}

func TestDefaultsWhenUnset(t *testing.T) {
	it(func() {
		mock.ExpectQuery(`SELECT value, value_type FROM system_settings`).
			WithArgs(KeyRateLockMin).
			WillReturnError(sql.ErrNoRows)

		s := NewService(db)
		if got := s.GetInt(context.Background(), KeyRateLockMin, 10); got != 10 {
			t.Errorf("GetInt = %d, want default 10", got)
		}
	})
}

func TestCacheServesRepeatReads(t *testing.T) {
	it(func() {
		// One DB round trip; the second read must come from cache.
		mock.ExpectQuery(`SELECT value, value_type FROM system_settings`).
			WithArgs(KeyVettingTimeoutMin).
			WillReturnRows(settingRow("45", "INT"))

		s := NewService(db)
		ctx := context.Background()
		s.GetInt(ctx, KeyVettingTimeoutMin, 30)
		if got := s.GetInt(ctx, KeyVettingTimeoutMin, 30); got != 45 {
			t.Errorf("GetInt = %d, want 45", got)
		}
		if err := mock.ExpectationsWereMet(); err != nil {
			t.Error(err)
		}
	})
}

func TestSetInvalidatesCache(t *testing.T) {
	it(func() {
		mock.ExpectQuery(`SELECT value, value_type FROM system_settings`).
			WithArgs(KeySuspicionVetting).
			WillReturnRows(settingRow("40", "INT"))
		mock.ExpectExec(`INSERT INTO system_settings`).
			WithArgs(KeySuspicionVetting, "50", "INT", "50", "INT").
			WillReturnResult(sqlmock.NewResult(1, 1))
		mock.ExpectQuery(`SELECT value, value_type FROM system_settings`).
			WithArgs(KeySuspicionVetting).
			WillReturnRows(settingRow("50", "INT"))

		s := NewService(db)
		ctx := context.Background()
		if got := s.GetInt(ctx, KeySuspicionVetting, 0); got != 40 {
			t.Errorf("GetInt before Set = %d, want 40", got)
		}
		if err := s.Set(ctx, KeySuspicionVetting, "50", "INT"); err != nil {
			t.Fatalf("Set: %v", err)
		}
		if got := s.GetInt(ctx, KeySuspicionVetting, 0); got != 50 {
			t.Errorf("GetInt after Set = %d, want 50", got)
		}
		if err := mock.ExpectationsWereMet(); err != nil {
			t.Error(err)
		}
	})
}
