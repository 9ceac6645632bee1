package cart

import (
	"context"
	"testing"
	"time"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/doce-emergencia/storefront/internal/domain/product"
)

type mockProducts struct {
	byID map[int64]product.Product
	err  error
}

func (m *mockProducts) GetByID(_ context.Context, id int64) (*product.Product, error) {
	if m.err != nil {
		return nil, m.err
	}
	p, ok := m.byID[id]
	if !ok {
		return nil, product.ErrNotFound
	}
	return &p, nil
}

type failingStore struct {
	*MemoryStore
	err error
}

func (f *failingStore) Update(context.Context, string, func(*Cart) error) (*Cart, error) {
	return nil, f.err
}

func newTestService() *Service {
	products := &mockProducts{byID: map[int64]product.Product{
		1: {ID: 1, Name: "A", Price: "R$3,80", Category: "Doces"},
		2: {ID: 2, Name: "B", Price: "R$11,90", Category: "Bolos"},
	}}
	return NewService(NewMemoryStore(time.Hour), products)
}

func TestService_AddCapturesProduct(t *testing.T) {
	ctx := context.Background()
	svc := newTestService()

	c, err := svc.Add(ctx, "cart-1", 1, 2)
	require.NoError(t, err)
	l, ok := c.Line(1)
	require.True(t, ok)
	assert.Equal(t, Line{ProductID: 1, Name: "A", UnitPrice: "R$3,80", Quantity: 2}, l)

	_, err = svc.Add(ctx, "cart-1", 2, 1)
	require.NoError(t, err)

	c, err = svc.Get(ctx, "cart-1")
	require.NoError(t, err)
	assert.True(t, decimal.RequireFromString("19.50").Equal(c.Total()))
}

func TestService_AddUnknownProduct(t *testing.T) {
	svc := newTestService()

	_, err := svc.Add(context.Background(), "cart-1", 404, 1)
	require.ErrorIs(t, err, product.ErrNotFound)
}

func TestService_InvalidID(t *testing.T) {
	ctx := context.Background()
	svc := newTestService()

	_, err := svc.Get(ctx, "")
	require.ErrorIs(t, err, ErrInvalidID)
	_, err = svc.Add(ctx, "bad id", 1, 1)
	require.ErrorIs(t, err, ErrInvalidID)
	_, err = svc.Increase(ctx, "", 1)
	require.ErrorIs(t, err, ErrInvalidID)
	require.ErrorIs(t, svc.Clear(ctx, ""), ErrInvalidID)
}

func TestService_QuantityOperations(t *testing.T) {
	ctx := context.Background()
	svc := newTestService()

	_, err := svc.Add(ctx, "cart-1", 1, 1)
	require.NoError(t, err)

	c, err := svc.Increase(ctx, "cart-1", 1)
	require.NoError(t, err)
	assert.Equal(t, 2, c.Count())

	c, err = svc.Decrease(ctx, "cart-1", 1)
	require.NoError(t, err)
	assert.Equal(t, 1, c.Count())

	c, err = svc.Decrease(ctx, "cart-1", 1)
	require.NoError(t, err)
	assert.Equal(t, 1, c.Count(), "decrease must stop at one")

	c, err = svc.Remove(ctx, "cart-1", 1)
	require.NoError(t, err)
	assert.True(t, c.Empty())
}

func TestService_Clear(t *testing.T) {
	ctx := context.Background()
	svc := newTestService()

	_, err := svc.Add(ctx, "cart-1", 1, 3)
	require.NoError(t, err)
	require.NoError(t, svc.Clear(ctx, "cart-1"))

	c, err := svc.Get(ctx, "cart-1")
	require.NoError(t, err)
	assert.True(t, c.Empty())
}

func TestService_TakeKeepsLaterLines(t *testing.T) {
	ctx := context.Background()
	svc := newTestService()

	snapshot, err := svc.Add(ctx, "cart-1", 1, 2)
	require.NoError(t, err)

	_, err = svc.Add(ctx, "cart-1", 1, 1)
	require.NoError(t, err)
	_, err = svc.Add(ctx, "cart-1", 2, 1)
	require.NoError(t, err)

	c, err := svc.Take(ctx, "cart-1", snapshot.Lines())
	require.NoError(t, err)
	assert.Equal(t, 2, c.Count())

	stored, err := svc.Get(ctx, "cart-1")
	require.NoError(t, err)
	l, ok := stored.Line(1)
	require.True(t, ok)
	assert.Equal(t, 1, l.Quantity)
	_, ok = stored.Line(2)
	assert.True(t, ok)
}

func TestService_StoreError(t *testing.T) {
	store := &failingStore{MemoryStore: NewMemoryStore(time.Hour), err: errors.New("redis down")}
	svc := NewService(store, &mockProducts{byID: map[int64]product.Product{1: {ID: 1}}})

	_, err := svc.Increase(context.Background(), "cart-1", 1)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "update cart")
}
