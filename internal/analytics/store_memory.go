package analytics

import (
	"context"
	"strings"

	"usely-backend/internal/tracking"
)

// RecordSource lists tracked records. tracking.Repo satisfies it.
type RecordSource interface {
	List(ctx context.Context, q tracking.Query) ([]tracking.Record, error)
}

// MemoryStore aggregates in Go over every matching record.
type MemoryStore struct {
	Records RecordSource
}

func NewMemoryStore(records RecordSource) *MemoryStore {
	return &MemoryStore{Records: records}
}

func (s *MemoryStore) load(ctx context.Context, q Query) ([]tracking.Record, error) {
	return s.Records.List(ctx, trackingQuery(q))
}

func (s *MemoryStore) Totals(ctx context.Context, q Query) (Totals, error) {
	records, err := s.load(ctx, q)
	if err != nil {
		return Totals{}, err
	}
	var t Totals
	for _, r := range records {
		t.Requests++
		t.InputTokens += r.Tokens.Input
		t.OutputTokens += r.Tokens.Output
		t.Cost += r.Cost
	}
	return t, nil
}

func (s *MemoryStore) Groups(ctx context.Context, q Query, by GroupBy) ([]Group, error) {
	records, err := s.load(ctx, q)
	if err != nil {
		return nil, err
	}
	index := map[string]int{}
	var out []Group
	for _, r := range records {
		key := groupKey(r, by)
		i, ok := index[key]
		if !ok {
			i = len(out)
			index[key] = i
			out = append(out, Group{Key: key})
		}
		out[i].Requests++
		out[i].InputTokens += r.Tokens.Input
		out[i].OutputTokens += r.Tokens.Output
		out[i].Cost += r.Cost
	}
	return out, nil
}

func groupKey(r tracking.Record, by GroupBy) string {
	switch by {
	case GroupByModel:
		return r.Model
	case GroupByUser:
		if r.UserID == "" {
			return AnonymousUser
		}
		return r.UserID
	case GroupByDay:
		return r.Timestamp.UTC().Format(dayKeyLayout)
	case GroupByHour:
		return r.Timestamp.UTC().Format(hourKeyLayout)
	default:
		return r.Provider
	}
}

func trackingQuery(q Query) tracking.Query {
	return tracking.Query{
		AccountID: q.AccountID,
		Start:     q.Range.Start,
		End:       q.Range.End,
		Provider:  strings.ToLower(strings.TrimSpace(q.Provider)),
		Model:     q.Model,
		UserID:    q.UserID,
	}
}
