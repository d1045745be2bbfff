package expenses

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alesteb/alesteb-api/internal/shared"
)

type mockRepository struct {
	rows   map[int64]Expense
	nextID int64
}

func newMockRepository() *mockRepository {
	return &mockRepository{rows: map[int64]Expense{}}
}

func (m *mockRepository) match(e Expense, f ListFilters) bool {
	if f.From != nil && e.SpentOn.Before(*f.From) {
		return false
	}
	if f.To != nil && !e.SpentOn.Before(*f.To) {
		return false
	}
	return f.Category == "" || f.Category == e.Category
}

func (m *mockRepository) List(_ context.Context, f ListFilters) ([]Expense, int, error) {
	var out []Expense
	for _, e := range m.rows {
		if m.match(e, f) {
			out = append(out, e)
		}
	}
	return out, len(out), nil
}

func (m *mockRepository) Totals(_ context.Context, f ListFilters) ([]CategoryTotal, error) {
	byCat := map[string]*CategoryTotal{}
	var out []CategoryTotal
	for _, e := range m.rows {
		if !m.match(e, f) {
			continue
		}
		t, ok := byCat[e.Category]
		if !ok {
			t = &CategoryTotal{Category: e.Category, Total: decimal.Zero}
			byCat[e.Category] = t
		}
		t.Count++
		t.Total = t.Total.Add(e.Amount)
	}
	for _, t := range byCat {
		out = append(out, *t)
	}
	return out, nil
}

func (m *mockRepository) Get(_ context.Context, id int64) (Expense, error) {
	e, ok := m.rows[id]
	if !ok {
		return Expense{}, ErrNotFound
	}
	return e, nil
}

func (m *mockRepository) Create(_ context.Context, e Expense) (Expense, error) {
	m.nextID++
	e.ID = m.nextID
	m.rows[e.ID] = e
	return e, nil
}

func (m *mockRepository) Update(_ context.Context, e Expense) (Expense, error) {
	if _, ok := m.rows[e.ID]; !ok {
		return Expense{}, ErrNotFound
	}
	m.rows[e.ID] = e
	return e, nil
}

func (m *mockRepository) Delete(_ context.Context, id int64) (int64, error) {
	if _, ok := m.rows[id]; !ok {
		return 0, nil
	}
	delete(m.rows, id)
	return 1, nil
}

func TestCreateNormalisesInput(t *testing.T) {
	svc := NewService(newMockRepository(), nil)
	ctx := shared.ContextWithPrincipal(context.Background(), shared.Principal{UserID: 3})

	e, err := svc.Create(ctx, Input{Description: " Rent ", Category: " Local ", Amount: decimal.RequireFromString("1200.456"), SpentOn: "2026-03-01"})
	require.NoError(t, err)
	assert.Equal(t, "Rent", e.Description)
	assert.Equal(t, "local", e.Category)
	assert.Equal(t, "1200.46", e.Amount.StringFixed(2))
	assert.Equal(t, time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC), e.SpentOn)
	require.NotNil(t, e.CreatedBy)
	assert.Equal(t, int64(3), *e.CreatedBy)
}

func TestCreateValidation(t *testing.T) {
	svc := NewService(newMockRepository(), nil)
	cases := map[string]Input{
		"zero amount":   {Description: "x", Category: "y", Amount: decimal.Zero, SpentOn: "2026-01-01"},
		"bad date":      {Description: "x", Category: "y", Amount: decimal.NewFromInt(1), SpentOn: "01/01/2026"},
		"blank details": {Description: " ", Category: "y", Amount: decimal.NewFromInt(1), SpentOn: "2026-01-01"},
	}
	for name, in := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := svc.Create(context.Background(), in)
			assert.ErrorIs(t, err, shared.ErrValidation)
		})
	}
}

func TestListAndTotalsByRange(t *testing.T) {
	repo := newMockRepository()
	svc := NewService(repo, nil)
	ctx := context.Background()
	for _, in := range []Input{
		{Description: "rent", Category: "local", Amount: decimal.NewFromInt(100), SpentOn: "2026-02-01"},
		{Description: "power", Category: "services", Amount: decimal.NewFromInt(30), SpentOn: "2026-02-10"},
		{Description: "water", Category: "services", Amount: decimal.NewFromInt(20), SpentOn: "2026-02-11"},
		{Description: "old", Category: "services", Amount: decimal.NewFromInt(999), SpentOn: "2026-01-11"},
	} {
		_, err := svc.Create(ctx, in)
		require.NoError(t, err)
	}
	from := time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC)
	to := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)

	list, total, err := svc.List(ctx, ListFilters{From: &from, To: &to})
	require.NoError(t, err)
	assert.Len(t, list, 3)
	assert.Equal(t, 3, total)

	totals, err := svc.Totals(ctx, ListFilters{From: &from, To: &to, Category: "services"})
	require.NoError(t, err)
	require.Len(t, totals, 1)
	assert.Equal(t, 2, totals[0].Count)
	assert.True(t, decimal.NewFromInt(50).Equal(totals[0].Total))

	_, _, err = svc.List(ctx, ListFilters{From: &to, To: &from})
	assert.ErrorIs(t, err, shared.ErrValidation)
}

func TestEmptyListIsNotNil(t *testing.T) {
	out, _, err := NewService(newMockRepository(), nil).List(context.Background(), ListFilters{})
	require.NoError(t, err)
	assert.NotNil(t, out)
}

func TestUpdateAndDeleteMissing(t *testing.T) {
	svc := NewService(newMockRepository(), nil)
	_, err := svc.Update(context.Background(), 5, Input{Description: "x", Category: "y", Amount: decimal.NewFromInt(1), SpentOn: "2026-01-01"})
	assert.ErrorIs(t, err, shared.ErrNotFound)
	assert.ErrorIs(t, svc.Delete(context.Background(), 5), shared.ErrNotFound)
}
