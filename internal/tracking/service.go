package tracking

import (
	"context"
	"errors"
	"math"
	"strings"
	"time"

	"github.com/google/uuid"

	"usely-backend/internal/quota"
	"usely-backend/internal/shared/metrics"
	"usely-backend/internal/shared/telemetry"
)

const (
	MaxMetadataKeys = 32
	DefaultLimit    = 50
	MaxLimit        = 500
	maxFutureSkew   = 5 * time.Minute
	maxFieldLength  = 128
	// MaxTokens caps each token count so totals and quota sums stay in int64.
	MaxTokens = 1_000_000_000_000
)

// Pricer computes the cost of a call when the caller did not send one.
type Pricer interface {
	CalculateCost(provider, model string, tokensIn, tokensOut int64) float64
}

// Quota is the slice of the quota service that tracking needs.
type Quota interface {
	Consume(ctx context.Context, accountID string, n int64) (quota.Usage, error)
	Release(ctx context.Context, accountID string, n int64) (quota.Usage, error)
}

// Publisher fans events out to webhook endpoints. Implementations log their
// own failures.
type Publisher interface {
	Publish(ctx context.Context, accountID, event string, payload any)
}

const (
	EventUsageTracked   = "usage.tracked"
	EventQuotaThreshold = "quota.threshold"
)

type Service struct {
	Repo      Repo
	Pricing   Pricer
	Quota     Quota
	Publisher Publisher
	Now       func() time.Time
}

func (s *Service) now() time.Time {
	if s.Now != nil {
		return s.Now().UTC()
	}
	return time.Now().UTC()
}

// Track validates, prices, charges quota and stores one usage record.
// Over quota it returns quota.ErrLimitReached and stores nothing.
func (s *Service) Track(ctx context.Context, accountID string, in Input) (Record, error) {
	if strings.TrimSpace(accountID) == "" {
		return Record{}, errors.New("account id is required")
	}
	now := s.now()
	rec, err := s.normalize(accountID, in, now)
	if err != nil {
		return Record{}, err
	}

	var before, after quota.Usage
	if s.Quota != nil {
		after, err = s.Quota.Consume(ctx, accountID, rec.Tokens.Total())
		if err != nil {
			if errors.Is(err, quota.ErrLimitReached) {
				metrics.IncQuotaRejection()
			}
			return Record{}, err
		}
		before = after
		before.Used = after.Used - rec.Tokens.Total()
	}

	if err := s.Repo.Insert(ctx, rec); err != nil {
		if s.Quota != nil {
			if _, relErr := s.Quota.Release(context.WithoutCancel(ctx), accountID, rec.Tokens.Total()); relErr != nil {
				telemetry.Error("tracking.quota_release_failed", map[string]any{
					"account_id": accountID,
					"tokens":     rec.Tokens.Total(),
					"error":      relErr,
				})
			}
		}
		return Record{}, err
	}

	metrics.ObserveUsage(rec.Provider, rec.Tokens.Input, rec.Tokens.Output, rec.Cost)
	s.publish(ctx, accountID, rec, before, after)
	return rec, nil
}

func (s *Service) normalize(accountID string, in Input, now time.Time) (Record, error) {
	provider := strings.ToLower(strings.TrimSpace(in.Provider))
	model := strings.TrimSpace(in.Model)
	switch {
	case provider == "":
		return Record{}, invalid("provider", "required")
	case model == "":
		return Record{}, invalid("model", "required")
	case len(provider) > maxFieldLength:
		return Record{}, invalid("provider", "too_long")
	case len(model) > maxFieldLength:
		return Record{}, invalid("model", "too_long")
	case in.Tokens.Input < 0:
		return Record{}, invalid("tokens.input", "negative")
	case in.Tokens.Output < 0:
		return Record{}, invalid("tokens.output", "negative")
	case in.Tokens.Input > MaxTokens:
		return Record{}, invalid("tokens.input", "too_large")
	case in.Tokens.Output > MaxTokens:
		return Record{}, invalid("tokens.output", "too_large")
	case len(in.Metadata) > MaxMetadataKeys:
		return Record{}, invalid("metadata", "too_many_keys")
	case len(strings.TrimSpace(in.UserID)) > maxFieldLength:
		return Record{}, invalid("userId", "too_long")
	}
	if in.Cost != nil && (*in.Cost < 0 || math.IsNaN(*in.Cost) || math.IsInf(*in.Cost, 0)) {
		return Record{}, invalid("cost", "negative")
	}
	if in.Tokens.Total() == 0 && (in.Cost == nil || *in.Cost == 0) {
		return Record{}, invalid("tokens", "empty")
	}

	ts := now
	if in.Timestamp != nil && !in.Timestamp.IsZero() {
		ts = in.Timestamp.UTC()
		if ts.After(now.Add(maxFutureSkew)) {
			return Record{}, invalid("timestamp", "in_future")
		}
	}

	var cost float64
	if in.Cost != nil {
		cost = *in.Cost
	} else if s.Pricing != nil {
		cost = s.Pricing.CalculateCost(provider, model, in.Tokens.Input, in.Tokens.Output)
	}

	return Record{
		ID:        uuid.NewString(),
		AccountID: accountID,
		APIKeyID:  in.APIKeyID,
		Provider:  provider,
		Model:     model,
		Tokens:    in.Tokens,
		Cost:      cost,
		UserID:    strings.TrimSpace(in.UserID),
		Metadata:  in.Metadata,
		Timestamp: ts,
		CreatedAt: now,
	}, nil
}

func (s *Service) publish(ctx context.Context, accountID string, rec Record, before, after quota.Usage) {
	if s.Publisher == nil {
		return
	}
	s.Publisher.Publish(ctx, accountID, EventUsageTracked, struct {
		ID string `json:"id"`
		View
	}{ID: rec.ID, View: rec.View()})

	for _, pct := range quota.CrossedThresholds(after.Limit, before.Used, after.Used) {
		telemetry.Info("quota.threshold_crossed", map[string]any{
			"account_id": accountID,
			"percent":    pct,
			"used":       after.Used,
			"limit":      after.Limit,
		})
		s.Publisher.Publish(ctx, accountID, EventQuotaThreshold, map[string]any{
			"percent":  pct,
			"plan":     after.Plan,
			"used":     after.Used,
			"limit":    after.Limit,
			"resetsAt": after.ResetsAt,
		})
	}
}

// List returns records newest first with limit clamped to [1, MaxLimit].
func (s *Service) List(ctx context.Context, q Query) ([]Record, error) {
	if q.Limit <= 0 {
		q.Limit = DefaultLimit
	}
	if q.Limit > MaxLimit {
		q.Limit = MaxLimit
	}
	if q.Offset < 0 {
		q.Offset = 0
	}
	q.Provider = strings.ToLower(strings.TrimSpace(q.Provider))
	return s.Repo.List(ctx, q)
}

// All returns every record matching q without paging.
func (s *Service) All(ctx context.Context, q Query) ([]Record, error) {
	q.Limit = 0
	q.Offset = 0
	q.Provider = strings.ToLower(strings.TrimSpace(q.Provider))
	return s.Repo.List(ctx, q)
}
