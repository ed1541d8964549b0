package team

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"usely-backend/internal/analytics"
	"usely-backend/internal/billing"
	"usely-backend/internal/quota"
	"usely-backend/internal/tracking"
)

type stubPublisher struct {
	events []string
}

func (p *stubPublisher) Publish(_ context.Context, _ string, event string, _ any) {
	p.events = append(p.events, event)
}

type fixture struct {
	svc     *Service
	billing *billing.Service
	records *tracking.MemoryRepo
	pub     *stubPublisher
	now     time.Time
}

var owner = Owner{UserID: "acct-1", Email: "Owner@Usely.dev", Name: "Olive Owner"}

func newFixture(t *testing.T) fixture {
	t.Helper()
	now := time.Date(2026, 6, 1, 8, 0, 0, 0, time.UTC)
	clock := func() time.Time { return now }
	q := quota.NewService(clock)
	records := tracking.NewMemoryRepo()
	bill := &billing.Service{Repo: billing.NewMemoryRepo(), Quota: q, Now: clock}
	pub := &stubPublisher{}
	svc := &Service{
		Repo:      NewMemoryRepo(),
		Plans:     bill,
		Quota:     q,
		Usage:     analytics.NewService(analytics.NewMemoryStore(records)),
		Publisher: pub,
		Now:       clock,
	}
	return fixture{svc: svc, billing: bill, records: records, pub: pub, now: now}
}

func TestListFreshAccountReturnsOwner(t *testing.T) {
	f := newFixture(t)
	members, err := f.svc.List(context.Background(), owner)
	require.NoError(t, err)
	require.Len(t, members, 1)
	require.Equal(t, RoleOwner, members[0].Role)
	require.Equal(t, StatusActive, members[0].Status)
	require.Equal(t, "owner@usely.dev", members[0].Email)
	require.Equal(t, quota.DefaultLimit, members[0].Limit)
}

func TestInviteRespectsFreeSeatLimit(t *testing.T) {
	f := newFixture(t)
	_, err := f.svc.Invite(context.Background(), owner, InviteInput{Email: "dev@usely.dev"})
	require.ErrorIs(t, err, ErrSeatLimit)
}

func TestInviteOnProPlan(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	_, err := f.billing.ChangePlan(ctx, owner.UserID, billing.PlanPro)
	require.NoError(t, err)

	m, err := f.svc.Invite(ctx, owner, InviteInput{Name: "Dev", Email: " Dev@Usely.dev ", TokenLimit: 1000})
	require.NoError(t, err)
	require.Equal(t, RoleMember, m.Role)
	require.Equal(t, StatusInvited, m.Status)
	require.Equal(t, "dev@usely.dev", m.Email)
	require.Equal(t, []string{EventMemberInvited}, f.pub.events)

	_, err = f.svc.Invite(ctx, owner, InviteInput{Email: "dev@usely.dev"})
	require.ErrorIs(t, err, ErrConflict)
	_, err = f.svc.Invite(ctx, owner, InviteInput{Email: "owner@usely.dev"})
	require.ErrorIs(t, err, ErrConflict)

	// Pro allows 5 seats: owner + 4.
	for _, email := range []string{"a@usely.dev", "b@usely.dev", "c@usely.dev"} {
		_, err = f.svc.Invite(ctx, owner, InviteInput{Email: email})
		require.NoError(t, err)
	}
	_, err = f.svc.Invite(ctx, owner, InviteInput{Email: "e@usely.dev"})
	require.ErrorIs(t, err, ErrSeatLimit)

	// Suspending frees a seat; reactivating needs one.
	suspended := StatusSuspended
	_, err = f.svc.Update(ctx, owner.UserID, m.ID, UpdateInput{Status: &suspended})
	require.NoError(t, err)
	_, err = f.svc.Invite(ctx, owner, InviteInput{Email: "e@usely.dev"})
	require.NoError(t, err)
	active := StatusActive
	_, err = f.svc.Update(ctx, owner.UserID, m.ID, UpdateInput{Status: &active})
	require.ErrorIs(t, err, ErrSeatLimit)
}

func TestInviteValidation(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	var verr *ValidationError

	_, err := f.svc.Invite(ctx, owner, InviteInput{Email: "not-an-email"})
	require.ErrorAs(t, err, &verr)
	require.Equal(t, "email", verr.Field)

	_, err = f.svc.Invite(ctx, owner, InviteInput{Email: "x@usely.dev", Role: "owner"})
	require.ErrorAs(t, err, &verr)
	require.Equal(t, "role", verr.Field)

	_, err = f.svc.Invite(ctx, owner, InviteInput{Email: "x@usely.dev", TokenLimit: -1})
	require.ErrorAs(t, err, &verr)
	require.Equal(t, "tokenLimit", verr.Field)
}

func TestMemberUsageFromTrackedRecords(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	_, err := f.billing.ChangePlan(ctx, owner.UserID, billing.PlanTeam)
	require.NoError(t, err)
	m, err := f.svc.Invite(ctx, owner, InviteInput{Email: "dev@usely.dev"})
	require.NoError(t, err)

	require.NoError(t, f.records.Insert(ctx, tracking.Record{
		ID: "r1", AccountID: owner.UserID, Provider: "openai", Model: "gpt-4o",
		UserID: m.ID, Tokens: tracking.Tokens{Input: 70, Output: 30}, Timestamp: f.now,
	}))
	require.NoError(t, f.records.Insert(ctx, tracking.Record{
		ID: "r2", AccountID: owner.UserID, Provider: "openai", Model: "gpt-4o",
		UserID: owner.UserID, Tokens: tracking.Tokens{Input: 5}, Timestamp: f.now,
	}))

	members, err := f.svc.List(ctx, owner)
	require.NoError(t, err)
	require.Len(t, members, 2)
	require.Equal(t, int64(5), members[0].Usage)
	require.Equal(t, int64(100), members[1].Usage)
}

func TestOwnerCannotBeModifiedOrRemoved(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	admin := RoleAdmin
	_, err := f.svc.Update(ctx, owner.UserID, owner.UserID, UpdateInput{Role: &admin})
	require.ErrorIs(t, err, ErrOwnerImmutable)
	require.ErrorIs(t, f.svc.Remove(ctx, owner.UserID, owner.UserID), ErrOwnerImmutable)
	require.ErrorIs(t, f.svc.Remove(ctx, owner.UserID, "missing"), ErrNotFound)
}
