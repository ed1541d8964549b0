package dashboard

import (
	"bytes"
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strconv"
	"time"

	"github.com/google/uuid"

	"usely-backend/internal/analytics"
	"usely-backend/internal/quota"
	"usely-backend/internal/shared/daterange"
	"usely-backend/internal/shared/storage/object"
	"usely-backend/internal/shared/telemetry"
	"usely-backend/internal/tracking"
)

const (
	DefaultDays   = 30
	MaxDays       = 90
	recentRecords = 10
	exportDir     = "exports"
	csvType       = "text/csv"
)

var (
	ErrInvalidDays    = errors.New("days must be between 1 and 90")
	ErrExportNotFound = errors.New("export not found")
)

type Quota interface {
	EnsurePeriod(ctx context.Context, accountID string) (quota.Usage, error)
}

type Analytics interface {
	Summarize(ctx context.Context, q analytics.Query) (analytics.Summary, error)
	Breakdown(ctx context.Context, q analytics.Query) ([]analytics.Group, error)
	Series(ctx context.Context, q analytics.Query) ([]analytics.Point, error)
}

type Records interface {
	List(ctx context.Context, q tracking.Query) ([]tracking.Record, error)
	All(ctx context.Context, q tracking.Query) ([]tracking.Record, error)
}

type Service struct {
	Quota     Quota
	Analytics Analytics
	Records   Records
	Objects   object.ObjectStore
	Now       func() time.Time
}

func (s *Service) now() time.Time {
	if s.Now != nil {
		return s.Now().UTC()
	}
	return time.Now().UTC()
}

type RecentRecord struct {
	ID string `json:"id"`
	tracking.View
}

type Overview struct {
	Quota      map[string]any    `json:"quota"`
	Summary    analytics.Summary `json:"summary"`
	Daily      []analytics.Point `json:"daily"`
	ByProvider []analytics.Group `json:"byProvider"`
	ByModel    []analytics.Group `json:"byModel"`
	Recent     []RecentRecord    `json:"recent"`
}

// Usage assembles the dashboard for the last days UTC days, today included.
func (s *Service) Usage(ctx context.Context, accountID string, days int) (Overview, error) {
	if days < 1 || days > MaxDays {
		return Overview{}, ErrInvalidDays
	}
	u, err := s.Quota.EnsurePeriod(ctx, accountID)
	if err != nil {
		return Overview{}, err
	}
	rng := daterange.LastDays(s.now(), days)
	q := analytics.Query{AccountID: accountID, Range: rng}

	summary, err := s.Analytics.Summarize(ctx, q)
	if err != nil {
		return Overview{}, err
	}
	daily, err := s.Analytics.Series(ctx, q)
	if err != nil {
		return Overview{}, err
	}
	q.GroupBy = analytics.GroupByProvider
	byProvider, err := s.Analytics.Breakdown(ctx, q)
	if err != nil {
		return Overview{}, err
	}
	q.GroupBy = analytics.GroupByModel
	byModel, err := s.Analytics.Breakdown(ctx, q)
	if err != nil {
		return Overview{}, err
	}
	records, err := s.Records.List(ctx, tracking.Query{
		AccountID: accountID,
		Start:     rng.Start,
		End:       rng.End,
		Limit:     recentRecords,
	})
	if err != nil {
		return Overview{}, err
	}
	recent := make([]RecentRecord, 0, len(records))
	for _, r := range records {
		recent = append(recent, RecentRecord{ID: r.ID, View: r.View()})
	}

	return Overview{
		Quota:      quota.View(u),
		Summary:    summary,
		Daily:      daily,
		ByProvider: byProvider,
		ByModel:    byModel,
		Recent:     recent,
	}, nil
}

var csvHeader = []string{"id", "timestamp", "provider", "model", "input_tokens", "output_tokens", "total_tokens", "cost", "user_id"}

// Export writes the account's records in rng as CSV to the object store.
func (s *Service) Export(ctx context.Context, accountID string, rng daterange.Range) (string, int, error) {
	if s.Objects == nil {
		return "", 0, errors.New("object store not configured")
	}
	records, err := s.Records.All(ctx, tracking.Query{AccountID: accountID, Start: rng.Start, End: rng.End})
	if err != nil {
		return "", 0, err
	}

	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	if err := w.Write(csvHeader); err != nil {
		return "", 0, fmt.Errorf("write csv: %w", err)
	}
	for _, r := range records {
		row := []string{
			r.ID,
			r.Timestamp.UTC().Format(time.RFC3339Nano),
			r.Provider,
			r.Model,
			strconv.FormatInt(r.Tokens.Input, 10),
			strconv.FormatInt(r.Tokens.Output, 10),
			strconv.FormatInt(r.Tokens.Total(), 10),
			strconv.FormatFloat(r.Cost, 'f', -1, 64),
			r.UserID,
		}
		if err := w.Write(row); err != nil {
			return "", 0, fmt.Errorf("write csv: %w", err)
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return "", 0, fmt.Errorf("flush csv: %w", err)
	}

	exportID := uuid.NewString()
	key, err := object.AccountKey(accountID, exportDir, exportID+".csv")
	if err != nil {
		return "", 0, err
	}
	size, err := s.Objects.Put(ctx, key, csvType, &buf)
	if err != nil {
		return "", 0, fmt.Errorf("store export: %w", err)
	}
	telemetry.Info("dashboard.export_created", map[string]any{
		"account_id": accountID,
		"export_id":  exportID,
		"rows":       len(records),
		"bytes":      size,
	})
	return exportID, len(records), nil
}

// OpenExport returns a previously written export. Exports live under the
// account's own prefix, so other accounts' IDs resolve to ErrExportNotFound.
func (s *Service) OpenExport(ctx context.Context, accountID, exportID string) (io.ReadCloser, error) {
	if _, err := uuid.Parse(exportID); err != nil {
		return nil, ErrExportNotFound
	}
	if s.Objects == nil {
		return nil, ErrExportNotFound
	}
	key, err := object.AccountKey(accountID, exportDir, exportID+".csv")
	if err != nil {
		return nil, err
	}
	rc, err := s.Objects.Open(ctx, key)
	if err != nil {
		if errors.Is(err, object.ErrNotFound) {
			return nil, ErrExportNotFound
		}
		return nil, err
	}
	return rc, nil
}
