package team

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"

	"usely-backend/internal/analytics"
	"usely-backend/internal/billing"
	"usely-backend/internal/quota"
	"usely-backend/internal/shared/daterange"
	"usely-backend/internal/shared/telemetry"
	"usely-backend/internal/shared/util"
)

const (
	EventMemberInvited = "team.member_invited"
	maxNameLength      = 128
)

type PlanSource interface {
	CurrentPlan(ctx context.Context, accountID string) (billing.Plan, error)
}

type Quota interface {
	Get(ctx context.Context, accountID string) (quota.Usage, error)
}

// UsageSource breaks tracked usage down per end user. analytics.Service satisfies it.
type UsageSource interface {
	Breakdown(ctx context.Context, q analytics.Query) ([]analytics.Group, error)
}

type Publisher interface {
	Publish(ctx context.Context, accountID, event string, payload any)
}

type Service struct {
	Repo      Repo
	Plans     PlanSource
	Quota     Quota
	Usage     UsageSource
	Publisher Publisher
	Now       func() time.Time
}

func (s *Service) now() time.Time {
	if s.Now != nil {
		return s.Now().UTC()
	}
	return time.Now().UTC()
}

// List returns the implicit owner followed by stored members.
func (s *Service) List(ctx context.Context, owner Owner) ([]View, error) {
	accountID := owner.UserID
	members, err := s.Repo.List(ctx, accountID)
	if err != nil {
		return nil, err
	}
	usage, accountUsage, err := s.periodUsage(ctx, accountID)
	if err != nil {
		return nil, err
	}

	out := make([]View, 0, len(members)+1)
	ownerView := Member{
		ID:         owner.UserID,
		AccountID:  accountID,
		Name:       owner.Name,
		Email:      util.NormalizeEmail(owner.Email),
		Role:       RoleOwner,
		Status:     StatusActive,
		TokenLimit: accountUsage.Limit,
	}.view(usage[owner.UserID])
	out = append(out, ownerView)
	for _, m := range members {
		out = append(out, m.view(usage[m.ID]))
	}
	return out, nil
}

func (s *Service) periodUsage(ctx context.Context, accountID string) (map[string]int64, quota.Usage, error) {
	var u quota.Usage
	if s.Quota != nil {
		var err error
		if u, err = s.Quota.Get(ctx, accountID); err != nil {
			return nil, quota.Usage{}, err
		}
	}
	out := map[string]int64{}
	if s.Usage == nil || u.ResetsAt.IsZero() {
		return out, u, nil
	}
	groups, err := s.Usage.Breakdown(ctx, analytics.Query{
		AccountID: accountID,
		Range:     daterange.Range{Start: u.PeriodStart(), End: u.ResetsAt},
		GroupBy:   analytics.GroupByUser,
	})
	if err != nil {
		return nil, quota.Usage{}, err
	}
	for _, g := range groups {
		out[g.Key] = g.TotalTokens
	}
	return out, u, nil
}

func (s *Service) Invite(ctx context.Context, owner Owner, in InviteInput) (View, error) {
	accountID := owner.UserID
	if !util.ValidEmail(in.Email) {
		return View{}, invalid("email", "invalid_format")
	}
	email := util.NormalizeEmail(in.Email)
	if email == util.NormalizeEmail(owner.Email) {
		return View{}, ErrConflict
	}
	role := strings.ToLower(strings.TrimSpace(in.Role))
	switch role {
	case "":
		role = RoleMember
	case RoleAdmin, RoleMember:
	case RoleOwner:
		return View{}, invalid("role", "owner_not_assignable")
	default:
		return View{}, invalid("role", "invalid_value")
	}
	if in.TokenLimit < 0 {
		return View{}, invalid("tokenLimit", "negative")
	}
	name := strings.TrimSpace(in.Name)
	if len(name) > maxNameLength {
		return View{}, invalid("name", "too_long")
	}

	if err := s.checkSeats(ctx, accountID, 1); err != nil {
		return View{}, err
	}

	m := Member{
		ID:         uuid.NewString(),
		AccountID:  accountID,
		Name:       name,
		Email:      email,
		Role:       role,
		Status:     StatusInvited,
		TokenLimit: in.TokenLimit,
		CreatedAt:  s.now(),
	}
	if err := s.Repo.Insert(ctx, m); err != nil {
		return View{}, err
	}

	telemetry.Info("team.member_invited", map[string]any{
		"account_id": accountID,
		"member_id":  m.ID,
		"role":       m.Role,
	})
	if s.Publisher != nil {
		s.Publisher.Publish(ctx, accountID, EventMemberInvited, map[string]any{
			"memberId": m.ID,
			"email":    m.Email,
			"name":     m.Name,
			"role":     m.Role,
		})
	}
	return m.view(0), nil
}

// checkSeats fails when adding extra seats would exceed the plan's user limit.
// The owner always occupies one seat.
func (s *Service) checkSeats(ctx context.Context, accountID string, extra int) error {
	if s.Plans == nil {
		return nil
	}
	plan, err := s.Plans.CurrentPlan(ctx, accountID)
	if err != nil {
		return err
	}
	members, err := s.Repo.List(ctx, accountID)
	if err != nil {
		return err
	}
	seats := 1
	for _, m := range members {
		if occupiesSeat(m.Status) {
			seats++
		}
	}
	if !plan.SeatsAllowed(seats + extra) {
		return ErrSeatLimit
	}
	return nil
}

func (s *Service) Update(ctx context.Context, accountID, id string, in UpdateInput) (View, error) {
	if id == accountID {
		return View{}, ErrOwnerImmutable
	}
	m, err := s.Repo.Get(ctx, accountID, id)
	if err != nil {
		return View{}, err
	}

	if in.Role != nil {
		role := strings.ToLower(strings.TrimSpace(*in.Role))
		switch role {
		case RoleAdmin, RoleMember:
			m.Role = role
		case RoleOwner:
			return View{}, invalid("role", "owner_not_assignable")
		default:
			return View{}, invalid("role", "invalid_value")
		}
	}
	if in.Status != nil {
		status := strings.ToLower(strings.TrimSpace(*in.Status))
		switch status {
		case StatusActive, StatusInvited, StatusSuspended:
		default:
			return View{}, invalid("status", "invalid_value")
		}
		if !occupiesSeat(m.Status) && occupiesSeat(status) {
			if err := s.checkSeats(ctx, accountID, 1); err != nil {
				return View{}, err
			}
		}
		m.Status = status
	}
	if in.TokenLimit != nil {
		if *in.TokenLimit < 0 {
			return View{}, invalid("tokenLimit", "negative")
		}
		m.TokenLimit = *in.TokenLimit
	}

	if err := s.Repo.Update(ctx, m); err != nil {
		return View{}, err
	}
	usage, _, err := s.periodUsage(ctx, accountID)
	if err != nil {
		return View{}, err
	}
	return m.view(usage[m.ID]), nil
}

func (s *Service) Remove(ctx context.Context, accountID, id string) error {
	if id == accountID {
		return ErrOwnerImmutable
	}
	if err := s.Repo.Delete(ctx, accountID, id); err != nil {
		return err
	}
	telemetry.Info("team.member_removed", map[string]any{
		"account_id": accountID,
		"member_id":  id,
	})
	return nil
}
