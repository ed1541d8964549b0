package analytics

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"usely-backend/internal/shared/daterange"
	"usely-backend/internal/tracking"
)

var fixedNow = time.Date(2026, 3, 10, 15, 30, 0, 0, time.UTC)

func seed(t *testing.T, records ...tracking.Record) *Service {
	t.Helper()
	repo := tracking.NewMemoryRepo()
	for _, rec := range records {
		require.NoError(t, repo.Insert(context.Background(), rec))
	}
	svc := NewService(NewMemoryStore(repo))
	svc.Now = func() time.Time { return fixedNow }
	return svc
}

func rec(id, provider, model, user string, in, out int64, cost float64, at time.Time) tracking.Record {
	return tracking.Record{
		ID:        id,
		AccountID: "acct-1",
		Provider:  provider,
		Model:     model,
		UserID:    user,
		Tokens:    tracking.Tokens{Input: in, Output: out},
		Cost:      cost,
		Timestamp: at,
	}
}

func lastWeek() daterange.Range {
	return daterange.LastDays(fixedNow, 7)
}

func TestSummarizeTotals(t *testing.T) {
	svc := seed(t,
		rec("r1", "openai", "gpt-4o", "u1", 100, 50, 0.02, fixedNow.Add(-time.Hour)),
		rec("r2", "anthropic", "claude-3-haiku", "", 200, 100, 0.01, fixedNow.Add(-26*time.Hour)),
		rec("old", "openai", "gpt-4o", "u1", 999, 999, 9, fixedNow.AddDate(0, 0, -30)),
	)

	sum, err := svc.Summarize(context.Background(), Query{AccountID: "acct-1", Range: lastWeek()})
	require.NoError(t, err)
	require.Equal(t, int64(2), sum.TotalRequests)
	require.Equal(t, int64(300), sum.InputTokens)
	require.Equal(t, int64(150), sum.OutputTokens)
	require.Equal(t, int64(450), sum.TotalTokens)
	require.InDelta(t, 0.03, sum.TotalCost, 1e-9)
	require.InDelta(t, 0.015, sum.AverageCostPerRequest, 1e-9)
	require.Equal(t, lastWeek().Start, sum.PeriodStart)
}

func TestSummarizeEmptyHasZeroAverage(t *testing.T) {
	svc := seed(t)
	sum, err := svc.Summarize(context.Background(), Query{AccountID: "acct-1", Range: lastWeek()})
	require.NoError(t, err)
	require.Zero(t, sum.TotalRequests)
	require.Zero(t, sum.AverageCostPerRequest)
}

func TestBreakdownByProviderOrderedByCost(t *testing.T) {
	svc := seed(t,
		rec("r1", "openai", "gpt-4o", "u1", 100, 0, 0.01, fixedNow.Add(-time.Hour)),
		rec("r2", "anthropic", "claude", "u2", 100, 0, 0.03, fixedNow.Add(-2*time.Hour)),
		rec("r3", "openai", "gpt-4o-mini", "u1", 100, 0, 0.01, fixedNow.Add(-3*time.Hour)),
	)

	groups, err := svc.Breakdown(context.Background(), Query{AccountID: "acct-1", Range: lastWeek(), GroupBy: GroupByProvider})
	require.NoError(t, err)
	require.Len(t, groups, 2)
	require.Equal(t, "anthropic", groups[0].Key)
	require.Equal(t, 60.0, groups[0].Percentage)
	require.Equal(t, "openai", groups[1].Key)
	require.Equal(t, int64(2), groups[1].Requests)
	require.Equal(t, 40.0, groups[1].Percentage)
}

func TestBreakdownFallsBackToTokenShareWhenFree(t *testing.T) {
	svc := seed(t,
		rec("r1", "local", "llama", "u1", 300, 0, 0, fixedNow.Add(-time.Hour)),
		rec("r2", "local", "mistral", "u1", 100, 0, 0, fixedNow.Add(-time.Hour)),
	)

	groups, err := svc.Breakdown(context.Background(), Query{AccountID: "acct-1", Range: lastWeek(), GroupBy: GroupByModel})
	require.NoError(t, err)
	require.Len(t, groups, 2)
	require.Equal(t, "llama", groups[0].Key)
	require.Equal(t, 75.0, groups[0].Percentage)
	require.Equal(t, 25.0, groups[1].Percentage)
}

func TestBreakdownByUserLabelsAnonymous(t *testing.T) {
	svc := seed(t,
		rec("r1", "openai", "gpt-4o", "", 10, 0, 0.5, fixedNow.Add(-time.Hour)),
		rec("r2", "openai", "gpt-4o", "u1", 10, 0, 0.1, fixedNow.Add(-time.Hour)),
	)
	groups, err := svc.Breakdown(context.Background(), Query{AccountID: "acct-1", Range: lastWeek(), GroupBy: GroupByUser})
	require.NoError(t, err)
	require.Equal(t, AnonymousUser, groups[0].Key)
	require.Equal(t, "u1", groups[1].Key)
}

func TestBreakdownByDayAscending(t *testing.T) {
	svc := seed(t,
		rec("r1", "openai", "gpt-4o", "", 10, 0, 5, fixedNow.Add(-48*time.Hour)),
		rec("r2", "openai", "gpt-4o", "", 10, 0, 1, fixedNow),
	)
	groups, err := svc.Breakdown(context.Background(), Query{AccountID: "acct-1", Range: lastWeek(), GroupBy: GroupByDay})
	require.NoError(t, err)
	require.Len(t, groups, 2)
	require.Equal(t, "2026-03-08", groups[0].Key)
	require.Equal(t, "2026-03-10", groups[1].Key)
}

func TestBreakdownTotalsMatchSummary(t *testing.T) {
	svc := seed(t,
		rec("r1", "openai", "gpt-4o", "a", 10, 5, 0.1, fixedNow.Add(-time.Hour)),
		rec("r2", "anthropic", "claude", "b", 20, 5, 0.2, fixedNow.Add(-5*time.Hour)),
		rec("r3", "google", "gemini", "a", 30, 5, 0.3, fixedNow.Add(-50*time.Hour)),
	)
	q := Query{AccountID: "acct-1", Range: lastWeek()}
	sum, err := svc.Summarize(context.Background(), q)
	require.NoError(t, err)

	for _, by := range []GroupBy{GroupByProvider, GroupByModel, GroupByUser, GroupByDay, GroupByHour} {
		q.GroupBy = by
		groups, err := svc.Breakdown(context.Background(), q)
		require.NoError(t, err)
		var requests, tokens int64
		var cost float64
		for _, g := range groups {
			requests += g.Requests
			tokens += g.TotalTokens
			cost += g.Cost
		}
		require.Equal(t, sum.TotalRequests, requests, by)
		require.Equal(t, sum.TotalTokens, tokens, by)
		require.InDelta(t, sum.TotalCost, cost, 1e-9, by)
	}
}

func TestSeriesZeroFillsDays(t *testing.T) {
	svc := seed(t,
		rec("r1", "openai", "gpt-4o", "", 10, 5, 0.1, fixedNow.Add(-48*time.Hour)),
		rec("r2", "openai", "gpt-4o", "", 20, 0, 0.2, fixedNow),
	)
	points, err := svc.Series(context.Background(), Query{AccountID: "acct-1", Range: lastWeek()})
	require.NoError(t, err)
	require.Len(t, points, 7)
	require.Equal(t, "2026-03-04", points[0].Date)
	require.Zero(t, points[0].Requests)
	require.Equal(t, "2026-03-08", points[4].Date)
	require.Equal(t, int64(15), points[4].Tokens)
	require.Equal(t, "2026-03-10", points[6].Date)
	require.InDelta(t, 0.2, points[6].Cost, 1e-9)
}

func TestParseGroupBy(t *testing.T) {
	g, err := ParseGroupBy("")
	require.NoError(t, err)
	require.Equal(t, GroupByProvider, g)

	g, err = ParseGroupBy(" Hour ")
	require.NoError(t, err)
	require.Equal(t, GroupByHour, g)

	_, err = ParseGroupBy("region")
	require.ErrorIs(t, err, ErrInvalidGroupBy)
}
