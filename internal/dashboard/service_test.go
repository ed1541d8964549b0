package dashboard

import (
	"context"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"usely-backend/internal/analytics"
	"usely-backend/internal/pricing"
	"usely-backend/internal/quota"
	"usely-backend/internal/shared/daterange"
	"usely-backend/internal/shared/storage/object/local"
	"usely-backend/internal/tracking"
)

var fixedNow = time.Date(2026, 8, 20, 9, 0, 0, 0, time.UTC)

type fixture struct {
	svc      *Service
	tracking *tracking.Service
}

func newFixture(t *testing.T) fixture {
	t.Helper()
	clock := func() time.Time { return fixedNow }
	q := quota.NewService(clock)
	repo := tracking.NewMemoryRepo()
	tr := &tracking.Service{Repo: repo, Pricing: pricing.NewTable(), Quota: q, Now: clock}
	svc := &Service{
		Quota:     q,
		Analytics: &analytics.Service{Store: analytics.NewMemoryStore(repo), Now: clock},
		Records:   tr,
		Objects:   local.New(t.TempDir()),
		Now:       clock,
	}
	return fixture{svc: svc, tracking: tr}
}

func (f fixture) track(t *testing.T, accountID, provider, model string, in, out int64, at time.Time) {
	t.Helper()
	_, err := f.tracking.Track(context.Background(), accountID, tracking.Input{
		Provider:  provider,
		Model:     model,
		Tokens:    tracking.Tokens{Input: in, Output: out},
		Timestamp: &at,
	})
	require.NoError(t, err)
}

func TestUsageFreshAccountIsEmpty(t *testing.T) {
	f := newFixture(t)
	out, err := f.svc.Usage(context.Background(), "acct-new", DefaultDays)
	require.NoError(t, err)
	require.Equal(t, int64(0), out.Summary.TotalRequests)
	require.Len(t, out.Daily, DefaultDays)
	require.Empty(t, out.ByProvider)
	require.NotNil(t, out.ByProvider)
	require.Empty(t, out.Recent)
	require.NotNil(t, out.Recent)
	require.Equal(t, int64(0), out.Quota["used"])
}

func TestUsageAggregatesRecentActivity(t *testing.T) {
	f := newFixture(t)
	f.track(t, "acct-1", "openai", "gpt-4o", 1000, 500, fixedNow.Add(-time.Hour))
	f.track(t, "acct-1", "anthropic", "claude-3-haiku", 200, 100, fixedNow.Add(-49*time.Hour))
	f.track(t, "acct-1", "openai", "gpt-4o", 10, 10, fixedNow.AddDate(0, 0, -20))
	f.track(t, "acct-2", "openai", "gpt-4o", 99, 99, fixedNow)

	out, err := f.svc.Usage(context.Background(), "acct-1", 7)
	require.NoError(t, err)
	require.Equal(t, int64(2), out.Summary.TotalRequests)
	require.Len(t, out.Daily, 7)
	require.Equal(t, "2026-08-20", out.Daily[6].Date)
	require.Equal(t, int64(1500), out.Daily[6].Tokens)
	require.Equal(t, "openai", out.ByProvider[0].Key)
	require.Len(t, out.ByModel, 2)
	require.Len(t, out.Recent, 2)
	require.Equal(t, "gpt-4o", out.Recent[0].Model)
	require.Equal(t, int64(1820), out.Quota["used"])
}

func TestUsageRejectsDaysOutOfRange(t *testing.T) {
	f := newFixture(t)
	for _, d := range []int{0, -1, 91} {
		_, err := f.svc.Usage(context.Background(), "acct-1", d)
		require.ErrorIs(t, err, ErrInvalidDays)
	}
}

func TestExportRoundTrip(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.track(t, "acct-1", "openai", "gpt-4o", 100, 50, fixedNow.Add(-time.Hour))
	f.track(t, "acct-1", "mistral", "mistral-large", 10, 5, fixedNow.Add(-2*time.Hour))

	id, rows, err := f.svc.Export(ctx, "acct-1", daterange.LastDays(fixedNow, 7))
	require.NoError(t, err)
	require.Equal(t, 2, rows)

	rc, err := f.svc.OpenExport(ctx, "acct-1", id)
	require.NoError(t, err)
	defer rc.Close()
	data, err := io.ReadAll(rc)
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	require.Len(t, lines, 3)
	require.Equal(t, strings.Join(csvHeader, ","), lines[0])
	require.Contains(t, lines[1], ",openai,gpt-4o,100,50,150,")

	_, err = f.svc.OpenExport(ctx, "acct-2", id)
	require.ErrorIs(t, err, ErrExportNotFound)
	_, err = f.svc.OpenExport(ctx, "acct-1", "../../etc/passwd")
	require.ErrorIs(t, err, ErrExportNotFound)
}
