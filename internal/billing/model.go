package billing

import (
	"errors"
	"time"
)

var (
	ErrNotFound        = errors.New("subscription not found")
	ErrUnknownPlan     = errors.New("unknown plan")
	ErrNothingToCancel = errors.New("no paid subscription to cancel")
)

const (
	StatusActive   = "active"
	StatusCanceled = "canceled"
	StatusPastDue  = "past_due"
	StatusTrialing = "trialing"
)

const (
	KindSubscription = "subscription"
	KindPlanChange   = "plan_change"

	TransactionSucceeded = "succeeded"
)

type Subscription struct {
	AccountID          string    `json:"-"`
	PlanID             string    `json:"planId"`
	Status             string    `json:"status"`
	CurrentPeriodStart time.Time `json:"currentPeriodStart"`
	CurrentPeriodEnd   time.Time `json:"currentPeriodEnd"`
	CancelAtPeriodEnd  bool      `json:"cancelAtPeriodEnd"`
	UpdatedAt          time.Time `json:"updatedAt"`
}

type Transaction struct {
	ID          string    `json:"id"`
	AccountID   string    `json:"-"`
	Kind        string    `json:"kind"`
	Description string    `json:"description"`
	Amount      float64   `json:"amount"`
	Currency    string    `json:"currency"`
	Status      string    `json:"status"`
	CreatedAt   time.Time `json:"createdAt"`
}

// Overview is the body of GET /api/dashboard/billing.
type Overview struct {
	Plan            Plan          `json:"plan"`
	CurrentPeriod   Period        `json:"currentPeriod"`
	NextBillingDate *time.Time    `json:"nextBillingDate"`
	Transactions    []Transaction `json:"transactions"`
}

type Period struct {
	Start      time.Time `json:"start"`
	End        time.Time `json:"end"`
	TokensUsed int64     `json:"tokensUsed"`
	Cost       float64   `json:"cost"`
}
