package tracking

import (
	"context"
	"errors"
	"math"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"usely-backend/internal/pricing"
	"usely-backend/internal/quota"
)

type publishedEvent struct {
	AccountID string
	Event     string
	Payload   any
}

type recordingPublisher struct {
	mu     sync.Mutex
	events []publishedEvent
}

func (p *recordingPublisher) Publish(ctx context.Context, accountID, event string, payload any) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, publishedEvent{AccountID: accountID, Event: event, Payload: payload})
}

func (p *recordingPublisher) names() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]string, 0, len(p.events))
	for _, e := range p.events {
		out = append(out, e.Event)
	}
	return out
}

type failingRepo struct{ MemoryRepo }

func (f *failingRepo) Insert(ctx context.Context, record Record) error {
	return errors.New("disk full")
}

var fixedNow = time.Date(2026, time.April, 2, 10, 0, 0, 0, time.UTC)

func newTestService(t *testing.T) (*Service, *quota.Service, *recordingPublisher) {
	t.Helper()
	q := quota.NewService(func() time.Time { return fixedNow })
	pub := &recordingPublisher{}
	return &Service{
		Repo:      NewMemoryRepo(),
		Pricing:   pricing.NewTable(),
		Quota:     q,
		Publisher: pub,
		Now:       func() time.Time { return fixedNow },
	}, q, pub
}

func ptr[T any](v T) *T { return &v }

func TestTrackComputesCostAndNormalizes(t *testing.T) {
	svc, q, pub := newTestService(t)

	rec, err := svc.Track(context.Background(), "acct", Input{
		Provider: " OpenAI ",
		Model:    "gpt-4o",
		Tokens:   Tokens{Input: 1000, Output: 1000},
		UserID:   "end-user-7",
		Metadata: map[string]any{"feature": "chat"},
	})
	require.NoError(t, err)
	require.NotEmpty(t, rec.ID)
	require.Equal(t, "openai", rec.Provider)
	require.InDelta(t, 0.0125, rec.Cost, 1e-9)
	require.Equal(t, fixedNow, rec.Timestamp)

	u, err := q.Get(context.Background(), "acct")
	require.NoError(t, err)
	require.Equal(t, int64(2000), u.Used)
	require.Equal(t, []string{EventUsageTracked}, pub.names())
}

func TestTrackKeepsExplicitCost(t *testing.T) {
	svc, _, _ := newTestService(t)
	rec, err := svc.Track(context.Background(), "acct", Input{
		Provider: "anthropic",
		Model:    "claude-3-haiku",
		Tokens:   Tokens{Input: 10},
		Cost:     ptr(1.5),
	})
	require.NoError(t, err)
	require.Equal(t, 1.5, rec.Cost)

	rec, err = svc.Track(context.Background(), "acct", Input{
		Provider: "custom",
		Model:    "m",
		Cost:     ptr(0.2),
	})
	require.NoError(t, err, "cost-only records are allowed")
	require.Equal(t, int64(0), rec.Tokens.Total())
}

func TestTrackValidation(t *testing.T) {
	svc, _, _ := newTestService(t)
	tooMany := map[string]any{}
	for i := 0; i < MaxMetadataKeys+1; i++ {
		tooMany[string(rune('a'+i%26))+string(rune('A'+i/26))] = i
	}

	tests := []struct {
		name  string
		in    Input
		field string
	}{
		{name: "missing provider", in: Input{Model: "m", Tokens: Tokens{Input: 1}}, field: "provider"},
		{name: "missing model", in: Input{Provider: "p", Tokens: Tokens{Input: 1}}, field: "model"},
		{name: "negative input", in: Input{Provider: "p", Model: "m", Tokens: Tokens{Input: -1}}, field: "tokens.input"},
		{name: "negative output", in: Input{Provider: "p", Model: "m", Tokens: Tokens{Output: -1}}, field: "tokens.output"},
		{name: "empty", in: Input{Provider: "p", Model: "m"}, field: "tokens"},
		{name: "huge input", in: Input{Provider: "p", Model: "m", Tokens: Tokens{Input: math.MaxInt64}}, field: "tokens.input"},
		{name: "huge output", in: Input{Provider: "p", Model: "m", Tokens: Tokens{Input: 1, Output: MaxTokens + 1}}, field: "tokens.output"},
		{name: "negative cost", in: Input{Provider: "p", Model: "m", Tokens: Tokens{Input: 1}, Cost: ptr(-0.1)}, field: "cost"},
		{name: "metadata keys", in: Input{Provider: "p", Model: "m", Tokens: Tokens{Input: 1}, Metadata: tooMany}, field: "metadata"},
		{name: "future timestamp", in: Input{Provider: "p", Model: "m", Tokens: Tokens{Input: 1}, Timestamp: ptr(fixedNow.Add(10 * time.Minute))}, field: "timestamp"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.Track(context.Background(), "acct", tt.in)
			var verr *ValidationError
			require.True(t, errors.As(err, &verr), "expected validation error, got %v", err)
			require.Equal(t, tt.field, verr.Field)
		})
	}

	_, err := svc.Track(context.Background(), "acct", Input{Provider: "p", Model: "m", Tokens: Tokens{Input: 1}, Timestamp: ptr(fixedNow.Add(4 * time.Minute))})
	require.NoError(t, err, "small clock skew is accepted")
}

func TestTrackOverQuotaStoresNothing(t *testing.T) {
	svc, q, pub := newTestService(t)
	_, err := q.SetPlan(context.Background(), "acct", "tiny", 100)
	require.NoError(t, err)

	_, err = svc.Track(context.Background(), "acct", Input{Provider: "openai", Model: "gpt-4o", Tokens: Tokens{Input: 101}})
	require.ErrorIs(t, err, quota.ErrLimitReached)

	records, err := svc.All(context.Background(), Query{AccountID: "acct"})
	require.NoError(t, err)
	require.Empty(t, records)
	require.Empty(t, pub.names())
}

func TestTrackHugeCountsCannotWrapQuota(t *testing.T) {
	svc, q, pub := newTestService(t)
	ctx := context.Background()

	_, err := svc.Track(ctx, "acct", Input{Provider: "openai", Model: "gpt-4o", Tokens: Tokens{Input: 100}})
	require.NoError(t, err)

	_, err = svc.Track(ctx, "acct", Input{Provider: "openai", Model: "gpt-4o", Tokens: Tokens{Input: math.MaxInt64 - 10}})
	var verr *ValidationError
	require.ErrorAs(t, err, &verr)

	_, err = svc.Track(ctx, "acct", Input{Provider: "openai", Model: "gpt-4o", Tokens: Tokens{Input: math.MaxInt64, Output: 1}})
	require.ErrorAs(t, err, &verr)

	_, err = svc.Track(ctx, "acct", Input{Provider: "openai", Model: "gpt-4o", Tokens: Tokens{Input: MaxTokens, Output: MaxTokens}})
	require.ErrorIs(t, err, quota.ErrLimitReached)

	u, err := q.Get(ctx, "acct")
	require.NoError(t, err)
	require.Equal(t, int64(100), u.Used)

	records, err := svc.All(ctx, Query{AccountID: "acct"})
	require.NoError(t, err)
	require.Len(t, records, 1)
	require.Len(t, pub.names(), 1)
}

func TestTrackPublishesThresholdEvents(t *testing.T) {
	svc, q, pub := newTestService(t)
	_, err := q.SetPlan(context.Background(), "acct", "tiny", 100)
	require.NoError(t, err)

	_, err = svc.Track(context.Background(), "acct", Input{Provider: "openai", Model: "gpt-4o", Tokens: Tokens{Input: 79}})
	require.NoError(t, err)
	_, err = svc.Track(context.Background(), "acct", Input{Provider: "openai", Model: "gpt-4o", Tokens: Tokens{Input: 21}})
	require.NoError(t, err)

	require.Equal(t, []string{
		EventUsageTracked,
		EventUsageTracked,
		EventQuotaThreshold,
		EventQuotaThreshold,
	}, pub.names())
}

func TestTrackReleasesQuotaWhenInsertFails(t *testing.T) {
	svc, q, _ := newTestService(t)
	svc.Repo = &failingRepo{}

	_, err := svc.Track(context.Background(), "acct", Input{Provider: "openai", Model: "gpt-4o", Tokens: Tokens{Input: 500}})
	require.Error(t, err)

	u, err := q.Get(context.Background(), "acct")
	require.NoError(t, err)
	require.Equal(t, int64(0), u.Used)
}

func TestListClampsLimit(t *testing.T) {
	svc, _, _ := newTestService(t)
	for i := 0; i < 3; i++ {
		_, err := svc.Track(context.Background(), "acct", Input{
			Provider:  "openai",
			Model:     "gpt-4o",
			Tokens:    Tokens{Input: 1},
			Timestamp: ptr(fixedNow.Add(-time.Duration(i) * time.Hour)),
		})
		require.NoError(t, err)
	}

	records, err := svc.List(context.Background(), Query{AccountID: "acct", Limit: 2})
	require.NoError(t, err)
	require.Len(t, records, 2)
	require.True(t, records[0].Timestamp.After(records[1].Timestamp))

	records, err = svc.List(context.Background(), Query{AccountID: "acct", Offset: 2, Limit: 10_000})
	require.NoError(t, err)
	require.Len(t, records, 1)

	records, err = svc.List(context.Background(), Query{AccountID: "other"})
	require.NoError(t, err)
	require.Empty(t, records)
}
