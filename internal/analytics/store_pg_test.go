package analytics

import (
	"context"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/require"

	"usely-backend/internal/shared/daterange"
)

func TestPGStoreTotals(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	start := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	end := start.AddDate(0, 0, 7)
	mock.ExpectQuery(regexp.QuoteMeta("SELECT COUNT(*), COALESCE(SUM(input_tokens), 0)")).
		WithArgs("acct-1", start, end, "openai").
		WillReturnRows(sqlmock.NewRows([]string{"count", "in", "out", "cost"}).AddRow(3, 300, 150, 0.42))

	store := &PGStore{DB: db}
	totals, err := store.Totals(context.Background(), Query{
		AccountID: "acct-1",
		Range:     daterange.Range{Start: start, End: end},
		Provider:  "openai",
	})
	require.NoError(t, err)
	require.Equal(t, Totals{Requests: 3, InputTokens: 300, OutputTokens: 150, Cost: 0.42}, totals)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPGStoreGroupsByUser(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	start := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	end := start.AddDate(0, 0, 1)
	mock.ExpectQuery(regexp.QuoteMeta("SELECT COALESCE(NULLIF(end_user_id, ''), 'anonymous') AS group_key")).
		WithArgs("acct-1", start, end).
		WillReturnRows(sqlmock.NewRows([]string{"group_key", "count", "in", "out", "cost"}).
			AddRow("anonymous", 2, 20, 10, 0.1).
			AddRow("u1", 1, 5, 5, 0.3))

	svc := NewService(&PGStore{DB: db})
	groups, err := svc.Breakdown(context.Background(), Query{
		AccountID: "acct-1",
		Range:     daterange.Range{Start: start, End: end},
		GroupBy:   GroupByUser,
	})
	require.NoError(t, err)
	require.Len(t, groups, 2)
	require.Equal(t, "u1", groups[0].Key)
	require.Equal(t, 75.0, groups[0].Percentage)
	require.Equal(t, int64(30), groups[1].TotalTokens)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestGroupExprRejectsUnknown(t *testing.T) {
	_, err := groupExpr(GroupBy("region"))
	require.ErrorIs(t, err, ErrInvalidGroupBy)
}
