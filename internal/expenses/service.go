package expenses

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/alesteb/alesteb-api/internal/shared"
)

// ErrNotFound is returned for unknown expense ids.
var ErrNotFound = fmt.Errorf("%w: expense not found", shared.ErrNotFound)

// Service contains expense business rules.
type Service struct {
	repo  Repository
	audit shared.AuditRecorder
}

// NewService builds a Service.
func NewService(repo Repository, audit shared.AuditRecorder) *Service {
	if audit == nil {
		audit = shared.NopAudit{}
	}
	return &Service{repo: repo, audit: audit}
}

func (s *Service) List(ctx context.Context, f ListFilters) ([]Expense, int, error) {
	if err := checkRange(f); err != nil {
		return nil, 0, err
	}
	out, total, err := s.repo.List(ctx, f)
	if err != nil {
		return nil, 0, err
	}
	if out == nil {
		out = []Expense{}
	}
	return out, total, nil
}

// Totals sums expenses per category within the filter range.
func (s *Service) Totals(ctx context.Context, f ListFilters) ([]CategoryTotal, error) {
	if err := checkRange(f); err != nil {
		return nil, err
	}
	out, err := s.repo.Totals(ctx, f)
	if err != nil {
		return nil, err
	}
	if out == nil {
		out = []CategoryTotal{}
	}
	return out, nil
}

func (s *Service) Get(ctx context.Context, id int64) (Expense, error) {
	return s.repo.Get(ctx, id)
}

func (s *Service) Create(ctx context.Context, in Input) (Expense, error) {
	e, err := fromInput(in)
	if err != nil {
		return Expense{}, err
	}
	if actor := shared.ActorID(ctx); actor > 0 {
		e.CreatedBy = &actor
	}
	created, err := s.repo.Create(ctx, e)
	if err != nil {
		return Expense{}, err
	}
	s.record(ctx, "expense.create", created.ID)
	return created, nil
}

func (s *Service) Update(ctx context.Context, id int64, in Input) (Expense, error) {
	e, err := fromInput(in)
	if err != nil {
		return Expense{}, err
	}
	e.ID = id
	updated, err := s.repo.Update(ctx, e)
	if err != nil {
		return Expense{}, err
	}
	s.record(ctx, "expense.update", id)
	return updated, nil
}

func (s *Service) Delete(ctx context.Context, id int64) error {
	n, err := s.repo.Delete(ctx, id)
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	s.record(ctx, "expense.delete", id)
	return nil
}

func fromInput(in Input) (Expense, error) {
	e := Expense{
		Description: strings.TrimSpace(in.Description),
		Category:    strings.ToLower(strings.TrimSpace(in.Category)),
		Amount:      in.Amount.Round(2),
		Notes:       strings.TrimSpace(in.Notes),
	}
	if e.Description == "" || e.Category == "" {
		return Expense{}, fmt.Errorf("%w: description and category are required", shared.ErrValidation)
	}
	if !e.Amount.IsPositive() {
		return Expense{}, fmt.Errorf("%w: amount must be greater than zero", shared.ErrValidation)
	}
	day, err := time.Parse(time.DateOnly, strings.TrimSpace(in.SpentOn))
	if err != nil {
		return Expense{}, fmt.Errorf("%w: spent_on must be YYYY-MM-DD", shared.ErrValidation)
	}
	e.SpentOn = day
	return e, nil
}

func checkRange(f ListFilters) error {
	if f.From != nil && f.To != nil && !f.To.After(*f.From) {
		return fmt.Errorf("%w: to must be after from", shared.ErrValidation)
	}
	return nil
}

func (s *Service) record(ctx context.Context, action string, id int64) {
	_ = s.audit.Record(ctx, shared.AuditLog{ActorID: shared.ActorID(ctx), Action: action, Entity: "expense", EntityID: fmt.Sprint(id)})
}
