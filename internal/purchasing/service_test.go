package purchasing

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alesteb/alesteb-api/internal/shared"
)

// ============================================================================
// MOCK REPOSITORY
// ============================================================================

type mockState struct {
	providers map[int64]Provider
	orders    map[int64]PurchaseOrder
	payments  []Payment
	stock     map[int64]int
	nextID    int64
}

func (s mockState) clone() mockState {
	c := mockState{
		providers: map[int64]Provider{},
		orders:    map[int64]PurchaseOrder{},
		payments:  append([]Payment(nil), s.payments...),
		stock:     map[int64]int{},
		nextID:    s.nextID,
	}
	for k, v := range s.providers {
		c.providers[k] = v
	}
	for k, v := range s.orders {
		v.Lines = append([]OrderLine(nil), v.Lines...)
		c.orders[k] = v
	}
	for k, v := range s.stock {
		c.stock[k] = v
	}
	return c
}

type mockRepository struct {
	state   mockState
	failPay bool
}

func newMockRepository() *mockRepository {
	return &mockRepository{state: mockState{
		providers: map[int64]Provider{},
		orders:    map[int64]PurchaseOrder{},
		stock:     map[int64]int{},
	}}
}

func (m *mockRepository) ListProviders(context.Context, string) ([]Provider, error) {
	var out []Provider
	for _, p := range m.state.providers {
		out = append(out, p)
	}
	return out, nil
}

func (m *mockRepository) GetProvider(_ context.Context, id int64) (Provider, error) {
	p, ok := m.state.providers[id]
	if !ok {
		return Provider{}, ErrProviderNotFound
	}
	return p, nil
}

func (m *mockRepository) CreateProvider(_ context.Context, p Provider) (Provider, error) {
	m.state.nextID++
	p.ID = m.state.nextID
	m.state.providers[p.ID] = p
	return p, nil
}

func (m *mockRepository) UpdateProvider(_ context.Context, p Provider) (Provider, error) {
	if _, ok := m.state.providers[p.ID]; !ok {
		return Provider{}, ErrProviderNotFound
	}
	m.state.providers[p.ID] = p
	return p, nil
}

func (m *mockRepository) DeleteProvider(_ context.Context, id int64) (int64, error) {
	if _, ok := m.state.providers[id]; !ok {
		return 0, nil
	}
	delete(m.state.providers, id)
	return 1, nil
}

func (m *mockRepository) ListOrders(context.Context, OrderFilters) ([]PurchaseOrder, int, error) {
	var out []PurchaseOrder
	for _, o := range m.state.orders {
		out = append(out, o)
	}
	return out, len(out), nil
}

func (m *mockRepository) GetOrder(_ context.Context, id int64) (*PurchaseOrder, error) {
	o, ok := m.state.orders[id]
	if !ok {
		return nil, ErrOrderNotFound
	}
	return &o, nil
}

func (m *mockRepository) ListPayments(_ context.Context, orderID int64) ([]Payment, error) {
	var out []Payment
	for _, p := range m.state.payments {
		if p.PurchaseOrderID == orderID {
			out = append(out, p)
		}
	}
	return out, nil
}

func (m *mockRepository) WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error {
	tx := &mockTx{repo: m, state: m.state.clone()}
	if err := fn(ctx, tx); err != nil {
		return err
	}
	m.state = tx.state
	return nil
}

type mockTx struct {
	repo  *mockRepository
	state mockState
}

func (t *mockTx) InsertOrder(_ context.Context, po PurchaseOrder) (int64, error) {
	t.state.nextID++
	po.ID = t.state.nextID
	po.ProviderName = t.state.providers[po.ProviderID].Name
	t.state.orders[po.ID] = po
	return po.ID, nil
}

func (t *mockTx) InsertOrderLine(_ context.Context, l OrderLine) error {
	po := t.state.orders[l.PurchaseOrderID]
	t.state.nextID++
	l.ID = t.state.nextID
	po.Lines = append(po.Lines, l)
	t.state.orders[l.PurchaseOrderID] = po
	return nil
}

func (t *mockTx) LockOrder(_ context.Context, id int64) (*PurchaseOrder, error) {
	o, ok := t.state.orders[id]
	if !ok {
		return nil, ErrOrderNotFound
	}
	return &o, nil
}

func (t *mockTx) MarkReceived(_ context.Context, id int64, at time.Time) error {
	o := t.state.orders[id]
	o.Status = OrderStatusReceived
	o.ReceivedAt = &at
	t.state.orders[id] = o
	return nil
}

func (t *mockTx) IncrementStock(_ context.Context, productID int64, qty int) error {
	if _, ok := t.state.stock[productID]; !ok {
		return ErrInvalidState
	}
	t.state.stock[productID] += qty
	return nil
}

func (t *mockTx) InsertPayment(_ context.Context, p Payment) (int64, error) {
	t.state.nextID++
	p.ID = t.state.nextID
	t.state.payments = append(t.state.payments, p)
	return p.ID, nil
}

func (t *mockTx) UpdatePaid(_ context.Context, id int64, paid decimal.Decimal, status PaymentStatus) error {
	if t.repo.failPay {
		return shared.ErrDatabase
	}
	o := t.state.orders[id]
	o.PaidAmount = paid
	o.PaymentStatus = status
	t.state.orders[id] = o
	return nil
}

// ============================================================================
// HELPERS
// ============================================================================

func seededService(t *testing.T) (*Service, *mockRepository, *PurchaseOrder) {
	t.Helper()
	repo := newMockRepository()
	repo.state.stock[10] = 2
	repo.state.stock[11] = 0
	svc := NewService(repo, nil)
	ctx := context.Background()

	provider, err := svc.CreateProvider(ctx, ProviderInput{Name: "  Textiles Sur  "})
	require.NoError(t, err)
	po, err := svc.CreateOrder(ctx, OrderInput{
		ProviderID: provider.ID,
		Lines: []OrderLineInput{
			{ProductID: 11, Quantity: 4, UnitCost: decimal.RequireFromString("2.50")},
			{ProductID: 10, Quantity: 3, UnitCost: decimal.RequireFromString("10")},
		},
	})
	require.NoError(t, err)
	return svc, repo, po
}

// ============================================================================
// TESTS
// ============================================================================

func TestCreateProviderTrimsAndRequiresName(t *testing.T) {
	svc := NewService(newMockRepository(), nil)

	_, err := svc.CreateProvider(context.Background(), ProviderInput{Name: "   "})
	assert.ErrorIs(t, err, shared.ErrValidation)

	email := "  Ventas@Proveedor.COM "
	p, err := svc.CreateProvider(context.Background(), ProviderInput{Name: " Hilos ", Email: &email})
	require.NoError(t, err)
	assert.Equal(t, "Hilos", p.Name)
	require.NotNil(t, p.Email)
	assert.Equal(t, "ventas@proveedor.com", *p.Email)
}

func TestDeleteProviderMissing(t *testing.T) {
	svc := NewService(newMockRepository(), nil)
	assert.ErrorIs(t, svc.DeleteProvider(context.Background(), 99), shared.ErrNotFound)
}

func TestCreateOrderComputesTotals(t *testing.T) {
	_, _, po := seededService(t)

	assert.Equal(t, OrderStatusOrdered, po.Status)
	assert.Equal(t, PaymentStatusUnpaid, po.PaymentStatus)
	assert.True(t, decimal.RequireFromString("40").Equal(po.Total), po.Total.String())
	require.Len(t, po.Lines, 2)
	assert.Equal(t, int64(10), po.Lines[0].ProductID)
	assert.Contains(t, po.Number, "PO-")
}

func TestCreateOrderUnknownProvider(t *testing.T) {
	svc := NewService(newMockRepository(), nil)
	_, err := svc.CreateOrder(context.Background(), OrderInput{
		ProviderID: 7,
		Lines:      []OrderLineInput{{ProductID: 1, Quantity: 1}},
	})
	assert.ErrorIs(t, err, shared.ErrValidation)
}

func TestCreateOrderRejectsNegativeCost(t *testing.T) {
	svc, _, po := seededService(t)
	_, err := svc.CreateOrder(context.Background(), OrderInput{
		ProviderID: po.ProviderID,
		Lines:      []OrderLineInput{{ProductID: 10, Quantity: 1, UnitCost: decimal.NewFromInt(-1)}},
	})
	assert.ErrorIs(t, err, shared.ErrValidation)
}

func TestReceiveOrderAddsStockOnce(t *testing.T) {
	svc, repo, po := seededService(t)
	ctx := context.Background()

	received, err := svc.ReceiveOrder(ctx, po.ID)
	require.NoError(t, err)
	assert.Equal(t, OrderStatusReceived, received.Status)
	assert.NotNil(t, received.ReceivedAt)
	assert.Equal(t, 5, repo.state.stock[10])
	assert.Equal(t, 4, repo.state.stock[11])

	_, err = svc.ReceiveOrder(ctx, po.ID)
	assert.ErrorIs(t, err, shared.ErrConflict)
	assert.Equal(t, 5, repo.state.stock[10])
}

func TestReceiveOrderRollsBackOnMissingProduct(t *testing.T) {
	svc, repo, po := seededService(t)
	delete(repo.state.stock, 11)

	_, err := svc.ReceiveOrder(context.Background(), po.ID)
	require.Error(t, err)
	assert.Equal(t, 2, repo.state.stock[10])
	assert.Equal(t, OrderStatusOrdered, repo.state.orders[po.ID].Status)
}

func TestPostPaymentSettlesProgressively(t *testing.T) {
	svc, repo, po := seededService(t)
	ctx := context.Background()

	_, err := svc.PostPayment(ctx, po.ID, PaymentInput{Amount: decimal.NewFromInt(15), Method: "transfer"})
	require.NoError(t, err)
	assert.Equal(t, PaymentStatusPartial, repo.state.orders[po.ID].PaymentStatus)

	_, err = svc.PostPayment(ctx, po.ID, PaymentInput{Amount: decimal.NewFromInt(26), Method: "cash"})
	assert.ErrorIs(t, err, ErrOverpayment)
	assert.True(t, decimal.NewFromInt(15).Equal(repo.state.orders[po.ID].PaidAmount))

	p, err := svc.PostPayment(ctx, po.ID, PaymentInput{Amount: decimal.NewFromInt(25), Method: "cash"})
	require.NoError(t, err)
	assert.NotZero(t, p.ID)
	assert.Equal(t, PaymentStatusPaid, repo.state.orders[po.ID].PaymentStatus)

	payments, err := svc.ListPayments(ctx, po.ID)
	require.NoError(t, err)
	assert.Len(t, payments, 2)
}

func TestPostPaymentValidation(t *testing.T) {
	svc, _, po := seededService(t)
	ctx := context.Background()

	_, err := svc.PostPayment(ctx, po.ID, PaymentInput{Amount: decimal.Zero, Method: "cash"})
	assert.ErrorIs(t, err, shared.ErrValidation)

	_, err = svc.PostPayment(ctx, 999, PaymentInput{Amount: decimal.NewFromInt(1), Method: "cash"})
	assert.ErrorIs(t, err, shared.ErrNotFound)
}

func TestPostPaymentFailureLeavesNoPayment(t *testing.T) {
	svc, repo, po := seededService(t)
	repo.failPay = true

	_, err := svc.PostPayment(context.Background(), po.ID, PaymentInput{Amount: decimal.NewFromInt(5), Method: "cash"})
	require.Error(t, err)
	assert.Empty(t, repo.state.payments)
}

func TestSettlement(t *testing.T) {
	total := decimal.NewFromInt(10)
	assert.Equal(t, PaymentStatusUnpaid, settlement(decimal.Zero, total))
	assert.Equal(t, PaymentStatusPartial, settlement(decimal.NewFromInt(3), total))
	assert.Equal(t, PaymentStatusPaid, settlement(total, total))
}
