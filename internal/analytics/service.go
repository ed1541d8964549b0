package analytics

import (
	"context"
	"math"
	"sort"
	"time"
)

// Service turns raw aggregates into ordered, percentage-annotated results.
type Service struct {
	Store Store
	Now   func() time.Time
}

func NewService(store Store) *Service {
	return &Service{Store: store, Now: time.Now}
}

func (s *Service) now() time.Time {
	if s.Now == nil {
		return time.Now().UTC()
	}
	return s.Now().UTC()
}

func (s *Service) Summarize(ctx context.Context, q Query) (Summary, error) {
	t, err := s.Store.Totals(ctx, q)
	if err != nil {
		return Summary{}, err
	}
	return summaryOf(t, q), nil
}

func summaryOf(t Totals, q Query) Summary {
	out := Summary{
		TotalRequests: t.Requests,
		InputTokens:   t.InputTokens,
		OutputTokens:  t.OutputTokens,
		TotalTokens:   t.InputTokens + t.OutputTokens,
		TotalCost:     t.Cost,
		PeriodStart:   q.Range.Start,
		PeriodEnd:     q.Range.End,
	}
	if t.Requests > 0 {
		out.AverageCostPerRequest = t.Cost / float64(t.Requests)
	}
	return out
}

// Breakdown groups records by q.GroupBy. Dimension groups are ordered by cost
// descending, time buckets ascending.
func (s *Service) Breakdown(ctx context.Context, q Query) ([]Group, error) {
	by := q.GroupBy
	if by == "" {
		by = GroupByProvider
	}
	groups, err := s.Store.Groups(ctx, q, by)
	if err != nil {
		return nil, err
	}
	return finishGroups(groups, by), nil
}

func finishGroups(groups []Group, by GroupBy) []Group {
	var totalCost float64
	var totalTokens int64
	for i := range groups {
		groups[i].TotalTokens = groups[i].InputTokens + groups[i].OutputTokens
		totalCost += groups[i].Cost
		totalTokens += groups[i].TotalTokens
	}
	for i := range groups {
		switch {
		case totalCost > 0:
			groups[i].Percentage = round2(groups[i].Cost / totalCost * 100)
		case totalTokens > 0:
			groups[i].Percentage = round2(float64(groups[i].TotalTokens) / float64(totalTokens) * 100)
		}
	}

	if by.isTime() {
		sort.Slice(groups, func(i, j int) bool { return groups[i].Key < groups[j].Key })
	} else {
		sort.Slice(groups, func(i, j int) bool {
			if groups[i].Cost != groups[j].Cost {
				return groups[i].Cost > groups[j].Cost
			}
			if groups[i].TotalTokens != groups[j].TotalTokens {
				return groups[i].TotalTokens > groups[j].TotalTokens
			}
			return groups[i].Key < groups[j].Key
		})
	}
	if groups == nil {
		groups = []Group{}
	}
	return groups
}

// Series returns one point per UTC day of q.Range, zero-filled.
func (s *Service) Series(ctx context.Context, q Query) ([]Point, error) {
	groups, err := s.Store.Groups(ctx, q, GroupByDay)
	if err != nil {
		return nil, err
	}
	byDay := make(map[string]Group, len(groups))
	for _, g := range groups {
		byDay[g.Key] = g
	}
	days := q.Range.Days()
	out := make([]Point, 0, len(days))
	for _, day := range days {
		key := day.Format(dayKeyLayout)
		g := byDay[key]
		out = append(out, Point{
			Date:     key,
			Requests: g.Requests,
			Tokens:   g.InputTokens + g.OutputTokens,
			Cost:     g.Cost,
		})
	}
	return out, nil
}

// Analyze is the combined summary + breakdown served by GET /analytics.
func (s *Service) Analyze(ctx context.Context, q Query) (Result, error) {
	if q.GroupBy == "" {
		q.GroupBy = GroupByProvider
	}
	summary, err := s.Summarize(ctx, q)
	if err != nil {
		return Result{}, err
	}
	breakdown, err := s.Breakdown(ctx, q)
	if err != nil {
		return Result{}, err
	}
	return Result{
		Summary:   summary,
		GroupBy:   q.GroupBy,
		Breakdown: breakdown,
		Range:     q.Range,
	}, nil
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
