package audit

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgtype"

	"github.com/alesteb/alesteb-api/internal/shared"
)

const (
	DefaultPageSize = 20
	MaxPageSize     = 50
	// MaxRange bounds the window a single query may scan.
	MaxRange = 90 * 24 * time.Hour
	// MaxExportRows caps a CSV export.
	MaxExportRows = 10000
)

// ErrExportTooLarge is returned when an export would exceed MaxExportRows.
var ErrExportTooLarge = fmt.Errorf("%w: export exceeds %d rows, narrow the filters", shared.ErrValidation, MaxExportRows)

// Query is the repository form of TimelineFilters. Invalid fields match
// everything.
type Query struct {
	FromAt   pgtype.Timestamptz
	ToAt     pgtype.Timestamptz
	ActorID  pgtype.Int8
	Entity   pgtype.Text
	EntityID pgtype.Text
	Action   pgtype.Text
}

// Repository reads audit_logs.
type Repository interface {
	Window(ctx context.Context, q Query, offset, limit int) ([]Entry, error)
	All(ctx context.Context, q Query, limit int) ([]Entry, error)
}

// Service reads the audit trail.
type Service struct {
	repo Repository
}

// NewService constructs the audit timeline service.
func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

// Timeline returns one page, newest first.
func (s *Service) Timeline(ctx context.Context, filters TimelineFilters) (Result, error) {
	q, err := buildQuery(filters)
	if err != nil {
		return Result{}, err
	}
	pageSize := filters.PageSize
	if pageSize <= 0 {
		pageSize = DefaultPageSize
	}
	if pageSize > MaxPageSize {
		pageSize = MaxPageSize
	}
	page := filters.Page
	if page <= 0 {
		page = 1
	}
	entries, err := s.repo.Window(ctx, q, shared.Offset(page, pageSize), pageSize+1)
	if err != nil {
		return Result{}, err
	}
	hasNext := len(entries) > pageSize
	if hasNext {
		entries = entries[:pageSize]
	}
	if entries == nil {
		entries = []Entry{}
	}
	paging := PagingInfo{Page: page, PageSize: pageSize, HasNext: hasNext}
	if page > 1 {
		paging.PrevPage = page - 1
	}
	if hasNext {
		paging.NextPage = page + 1
	}
	return Result{Entries: entries, Paging: paging}, nil
}

// Export returns every matching entry, newest first.
func (s *Service) Export(ctx context.Context, filters TimelineFilters) ([]Entry, error) {
	q, err := buildQuery(filters)
	if err != nil {
		return nil, err
	}
	entries, err := s.repo.All(ctx, q, MaxExportRows+1)
	if err != nil {
		return nil, err
	}
	if len(entries) > MaxExportRows {
		return nil, ErrExportTooLarge
	}
	return entries, nil
}

func buildQuery(f TimelineFilters) (Query, error) {
	if !f.From.IsZero() && !f.To.IsZero() {
		if f.From.After(f.To) {
			return Query{}, fmt.Errorf("%w: from must not be after to", shared.ErrValidation)
		}
		if f.To.Sub(f.From) > MaxRange {
			return Query{}, fmt.Errorf("%w: range exceeds %d days", shared.ErrValidation, int(MaxRange.Hours()/24))
		}
	}
	q := Query{
		FromAt:   toPgTime(f.From),
		Entity:   optionalText(f.Entity),
		EntityID: optionalText(f.EntityID),
		Action:   optionalText(f.Action),
	}
	if !f.To.IsZero() {
		q.ToAt = toPgTime(f.To.AddDate(0, 0, 1))
	}
	if f.ActorID != nil {
		q.ActorID = pgtype.Int8{Int64: *f.ActorID, Valid: true}
	}
	return q, nil
}

func toPgTime(t time.Time) pgtype.Timestamptz {
	if t.IsZero() {
		return pgtype.Timestamptz{}
	}
	return pgtype.Timestamptz{Time: t, Valid: true}
}

func optionalText(value string) pgtype.Text {
	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		return pgtype.Text{}
	}
	return pgtype.Text{String: trimmed, Valid: true}
}
