package quota

import (
	"context"
	"errors"
	"math"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
)

func expectEnsureRow(mock sqlmock.Sqlmock, accountID string) {
	mock.ExpectExec(regexp.QuoteMeta("ON CONFLICT (account_id) DO NOTHING")).
		WithArgs(accountID, sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 0))
}

func TestPGConsumeCreatesWindowAndUpdates(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock: %v", err)
	}
	defer db.Close()

	now := time.Date(2026, time.February, 1, 0, 0, 0, 0, time.UTC)
	store := NewPGStore(db, func() time.Time { return now })

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO quota_windows")).
		WithArgs("acct", DefaultPlan, DefaultLimit, int64(0), now.AddDate(0, 1, 0)).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectQuery(regexp.QuoteMeta("SELECT plan, token_limit, used, resets_at FROM quota_windows WHERE account_id = $1 FOR UPDATE")).
		WithArgs("acct").
		WillReturnRows(sqlmock.NewRows([]string{"plan", "token_limit", "used", "resets_at"}).
			AddRow(DefaultPlan, DefaultLimit, int64(0), now.AddDate(0, 1, 0)))
	mock.ExpectExec(regexp.QuoteMeta("UPDATE quota_windows SET used = $1 WHERE account_id = $2")).
		WithArgs(int64(250), "acct").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	u, err := store.Consume(context.Background(), "acct", 250)
	if err != nil {
		t.Fatalf("Consume: %v", err)
	}
	if u.Used != 250 || u.Limit != DefaultLimit {
		t.Fatalf("unexpected usage %+v", u)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

func TestPGConsumeOverLimitRollsBack(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock: %v", err)
	}
	defer db.Close()

	now := time.Date(2026, time.February, 1, 0, 0, 0, 0, time.UTC)
	store := NewPGStore(db, func() time.Time { return now })

	rows := sqlmock.NewRows([]string{"plan", "token_limit", "used", "resets_at"}).
		AddRow("free", int64(100), int64(90), now.Add(24*time.Hour))
	mock.ExpectBegin()
	expectEnsureRow(mock, "acct")
	mock.ExpectQuery(regexp.QuoteMeta("FROM quota_windows WHERE account_id = $1 FOR UPDATE")).
		WithArgs("acct").
		WillReturnRows(rows)
	mock.ExpectRollback()

	u, err := store.Consume(context.Background(), "acct", 20)
	if !errors.Is(err, ErrLimitReached) {
		t.Fatalf("expected ErrLimitReached, got %v", err)
	}
	if u.Used != 90 {
		t.Fatalf("expected current usage in result, got %+v", u)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

func TestPGEnsurePeriodRollsExpiredWindow(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock: %v", err)
	}
	defer db.Close()

	now := time.Date(2026, time.March, 2, 0, 0, 0, 0, time.UTC)
	resetsAt := time.Date(2026, time.March, 1, 0, 0, 0, 0, time.UTC)
	store := NewPGStore(db, func() time.Time { return now })

	rows := sqlmock.NewRows([]string{"plan", "token_limit", "used", "resets_at"}).
		AddRow("pro", int64(5_000_000), int64(4_000), resetsAt)
	mock.ExpectBegin()
	expectEnsureRow(mock, "acct")
	mock.ExpectQuery(regexp.QuoteMeta("FROM quota_windows")).WithArgs("acct").WillReturnRows(rows)
	mock.ExpectExec(regexp.QuoteMeta("UPDATE quota_windows SET used = $1, resets_at = $2 WHERE account_id = $3")).
		WithArgs(int64(0), time.Date(2026, time.April, 1, 0, 0, 0, 0, time.UTC), "acct").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	u, err := store.EnsurePeriod(context.Background(), "acct")
	if err != nil {
		t.Fatalf("EnsurePeriod: %v", err)
	}
	if u.Used != 0 || u.Plan != "pro" {
		t.Fatalf("unexpected usage %+v", u)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

func TestPGConsumeAfterConcurrentInsertKeepsCommittedUsage(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock: %v", err)
	}
	defer db.Close()

	now := time.Date(2026, time.February, 1, 0, 0, 0, 0, time.UTC)
	store := NewPGStore(db, func() time.Time { return now })

	// Another transaction created the row and committed 60 tokens before this
	// one reached its insert, so the insert is a no-op and the lock sees 60.
	mock.ExpectBegin()
	expectEnsureRow(mock, "acct")
	mock.ExpectQuery(regexp.QuoteMeta("FOR UPDATE")).
		WithArgs("acct").
		WillReturnRows(sqlmock.NewRows([]string{"plan", "token_limit", "used", "resets_at"}).
			AddRow(DefaultPlan, DefaultLimit, int64(60), now.AddDate(0, 1, 0)))
	mock.ExpectExec(regexp.QuoteMeta("UPDATE quota_windows SET used = $1 WHERE account_id = $2")).
		WithArgs(int64(90), "acct").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	u, err := store.Consume(context.Background(), "acct", 30)
	if err != nil {
		t.Fatalf("Consume: %v", err)
	}
	if u.Used != 90 {
		t.Fatalf("expected 90 used, got %+v", u)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

func TestPGConsumeRejectsOverflowingAmount(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock: %v", err)
	}
	defer db.Close()

	now := time.Date(2026, time.February, 1, 0, 0, 0, 0, time.UTC)
	store := NewPGStore(db, func() time.Time { return now })

	mock.ExpectBegin()
	expectEnsureRow(mock, "acct")
	mock.ExpectQuery(regexp.QuoteMeta("FOR UPDATE")).
		WithArgs("acct").
		WillReturnRows(sqlmock.NewRows([]string{"plan", "token_limit", "used", "resets_at"}).
			AddRow("free", int64(100_000), int64(100), now.AddDate(0, 1, 0)))
	mock.ExpectRollback()

	u, err := store.Consume(context.Background(), "acct", math.MaxInt64-10)
	if !errors.Is(err, ErrLimitReached) {
		t.Fatalf("expected ErrLimitReached, got %v", err)
	}
	if u.Used != 100 {
		t.Fatalf("usage must be unchanged, got %+v", u)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}
