package billing

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"usely-backend/internal/analytics"
	"usely-backend/internal/quota"
	"usely-backend/internal/shared/daterange"
	"usely-backend/internal/shared/telemetry"
)

const (
	EventSubscriptionUpdated = "subscription.updated"
	overviewTransactions     = 20
)

type Quota interface {
	Get(ctx context.Context, accountID string) (quota.Usage, error)
	SetPlan(ctx context.Context, accountID, plan string, limit int64) (quota.Usage, error)
}

// CostSummarizer sums tracked cost over a range. analytics.Service satisfies it.
type CostSummarizer interface {
	Summarize(ctx context.Context, q analytics.Query) (analytics.Summary, error)
}

type Publisher interface {
	Publish(ctx context.Context, accountID, event string, payload any)
}

type Service struct {
	Repo      Repo
	Quota     Quota
	Costs     CostSummarizer
	Publisher Publisher
	Now       func() time.Time
}

func (s *Service) now() time.Time {
	if s.Now != nil {
		return s.Now().UTC()
	}
	return time.Now().UTC()
}

func freeSubscription(accountID string, now time.Time) Subscription {
	return Subscription{
		AccountID:          accountID,
		PlanID:             PlanFree,
		Status:             StatusActive,
		CurrentPeriodStart: now,
		CurrentPeriodEnd:   now.AddDate(0, 1, 0),
		UpdatedAt:          now,
	}
}

// Subscription returns the account's subscription, settling any period that
// has ended. Accounts without one read as free.
func (s *Service) Subscription(ctx context.Context, accountID string) (Subscription, error) {
	now := s.now()
	sub, err := s.Repo.GetSubscription(ctx, accountID)
	if errors.Is(err, ErrNotFound) {
		return freeSubscription(accountID, now), nil
	}
	if err != nil {
		return Subscription{}, err
	}
	if now.Before(sub.CurrentPeriodEnd) {
		return sub, nil
	}
	return s.settle(ctx, sub, now)
}

// settle renews an ended period, or drops to free when cancellation was requested.
func (s *Service) settle(ctx context.Context, sub Subscription, now time.Time) (Subscription, error) {
	if sub.CancelAtPeriodEnd {
		prev := sub.PlanID
		sub = freeSubscription(sub.AccountID, now)
		if err := s.Repo.SaveSubscription(ctx, sub); err != nil {
			return Subscription{}, err
		}
		if err := s.applyQuota(ctx, sub.AccountID, PlanFree); err != nil {
			return Subscription{}, err
		}
		s.publish(ctx, sub, prev)
		return sub, nil
	}

	plan, _ := LookupPlan(sub.PlanID)
	for !now.Before(sub.CurrentPeriodEnd) {
		sub.CurrentPeriodStart = sub.CurrentPeriodEnd
		sub.CurrentPeriodEnd = sub.CurrentPeriodEnd.AddDate(0, 1, 0)
		if plan.Price > 0 {
			tx := s.transaction(sub.AccountID, KindSubscription, fmt.Sprintf("%s plan renewal", plan.Name), plan.Price, sub.CurrentPeriodStart)
			if err := s.Repo.InsertTransaction(ctx, tx); err != nil {
				return Subscription{}, err
			}
		}
	}
	sub.UpdatedAt = now
	if err := s.Repo.SaveSubscription(ctx, sub); err != nil {
		return Subscription{}, err
	}
	return sub, nil
}

// ChangePlan moves the account to planID. No card is charged; the change is
// recorded as a transaction and the quota limit follows the plan.
func (s *Service) ChangePlan(ctx context.Context, accountID, planID string) (Subscription, error) {
	plan, ok := LookupPlan(planID)
	if !ok {
		return Subscription{}, ErrUnknownPlan
	}
	current, err := s.Subscription(ctx, accountID)
	if err != nil {
		return Subscription{}, err
	}
	if current.PlanID == plan.ID && !current.CancelAtPeriodEnd {
		return current, nil
	}

	now := s.now()
	prev := current.PlanID
	sub := Subscription{
		AccountID:          accountID,
		PlanID:             plan.ID,
		Status:             StatusActive,
		CurrentPeriodStart: now,
		CurrentPeriodEnd:   now.AddDate(0, 1, 0),
		UpdatedAt:          now,
	}
	if prev == plan.ID {
		// Resuming a pending cancellation keeps the running period.
		sub.CurrentPeriodStart = current.CurrentPeriodStart
		sub.CurrentPeriodEnd = current.CurrentPeriodEnd
	}
	if err := s.Repo.SaveSubscription(ctx, sub); err != nil {
		return Subscription{}, err
	}

	kind := KindPlanChange
	if prev == PlanFree {
		kind = KindSubscription
	}
	prevPlan, _ := LookupPlan(prev)
	desc := fmt.Sprintf("Changed plan from %s to %s", prevPlan.Name, plan.Name)
	if prev == plan.ID {
		desc = fmt.Sprintf("Resumed %s plan", plan.Name)
	}
	if err := s.Repo.InsertTransaction(ctx, s.transaction(accountID, kind, desc, plan.Price, now)); err != nil {
		return Subscription{}, err
	}
	if err := s.applyQuota(ctx, accountID, plan.ID); err != nil {
		return Subscription{}, err
	}

	telemetry.Info("billing.plan_changed", map[string]any{
		"account_id": accountID,
		"from":       prev,
		"to":         plan.ID,
	})
	s.publish(ctx, sub, prev)
	return sub, nil
}

// Cancel schedules a drop to free at the end of the current period.
func (s *Service) Cancel(ctx context.Context, accountID string) (Subscription, error) {
	sub, err := s.Subscription(ctx, accountID)
	if err != nil {
		return Subscription{}, err
	}
	if sub.PlanID == PlanFree {
		return Subscription{}, ErrNothingToCancel
	}
	if sub.CancelAtPeriodEnd {
		return sub, nil
	}
	sub.CancelAtPeriodEnd = true
	sub.UpdatedAt = s.now()
	if err := s.Repo.SaveSubscription(ctx, sub); err != nil {
		return Subscription{}, err
	}
	telemetry.Info("billing.cancel_scheduled", map[string]any{
		"account_id": accountID,
		"plan":       sub.PlanID,
		"period_end": sub.CurrentPeriodEnd,
	})
	s.publish(ctx, sub, sub.PlanID)
	return sub, nil
}

// CurrentPlan resolves the catalog entry for the account's subscription.
func (s *Service) CurrentPlan(ctx context.Context, accountID string) (Plan, error) {
	sub, err := s.Subscription(ctx, accountID)
	if err != nil {
		return Plan{}, err
	}
	plan, ok := LookupPlan(sub.PlanID)
	if !ok {
		plan, _ = LookupPlan(PlanFree)
	}
	return plan, nil
}

func (s *Service) Overview(ctx context.Context, accountID string) (Overview, error) {
	sub, err := s.Subscription(ctx, accountID)
	if err != nil {
		return Overview{}, err
	}
	plan, ok := LookupPlan(sub.PlanID)
	if !ok {
		plan, _ = LookupPlan(PlanFree)
	}
	usage, err := s.Quota.Get(ctx, accountID)
	if err != nil {
		return Overview{}, err
	}
	period := Period{
		Start:      usage.PeriodStart(),
		End:        usage.ResetsAt,
		TokensUsed: usage.Used,
	}
	if s.Costs != nil {
		sum, err := s.Costs.Summarize(ctx, analytics.Query{
			AccountID: accountID,
			Range:     daterange.Range{Start: period.Start, End: period.End},
		})
		if err != nil {
			return Overview{}, err
		}
		period.Cost = sum.TotalCost
	}

	txs, err := s.Repo.ListTransactions(ctx, accountID, overviewTransactions)
	if err != nil {
		return Overview{}, err
	}
	if txs == nil {
		txs = []Transaction{}
	}

	out := Overview{Plan: plan, CurrentPeriod: period, Transactions: txs}
	if plan.ID != PlanFree && !sub.CancelAtPeriodEnd {
		next := sub.CurrentPeriodEnd
		out.NextBillingDate = &next
	}
	return out, nil
}

func (s *Service) applyQuota(ctx context.Context, accountID, planID string) error {
	if s.Quota == nil {
		return nil
	}
	plan, _ := LookupPlan(planID)
	_, err := s.Quota.SetPlan(ctx, accountID, plan.ID, plan.TokenLimit)
	return err
}

func (s *Service) transaction(accountID, kind, desc string, amount float64, at time.Time) Transaction {
	return Transaction{
		ID:          uuid.NewString(),
		AccountID:   accountID,
		Kind:        kind,
		Description: desc,
		Amount:      amount,
		Currency:    Currency,
		Status:      TransactionSucceeded,
		CreatedAt:   at,
	}
}

func (s *Service) publish(ctx context.Context, sub Subscription, previousPlan string) {
	if s.Publisher == nil {
		return
	}
	s.Publisher.Publish(ctx, sub.AccountID, EventSubscriptionUpdated, map[string]any{
		"planId":            sub.PlanID,
		"previousPlanId":    previousPlan,
		"status":            sub.Status,
		"cancelAtPeriodEnd": sub.CancelAtPeriodEnd,
		"currentPeriodEnd":  sub.CurrentPeriodEnd,
	})
}
