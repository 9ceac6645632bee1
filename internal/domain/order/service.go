package order

import (
	"context"
	"fmt"
	"time"

	"github.com/go-faster/sdk/zctx"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.uber.org/zap"

	"github.com/doce-emergencia/storefront/internal/domain/cart"
	"github.com/doce-emergencia/storefront/internal/domain/checkout"
	"github.com/doce-emergencia/storefront/internal/money"
)

// Listing bounds for the admin order screen.
const (
	DefaultListLimit = 50
	MaxListLimit     = 200
)

// Carts is the part of the cart service checkout needs.
type Carts interface {
	Get(ctx context.Context, id string) (*cart.Cart, error)
	Take(ctx context.Context, id string, lines []cart.Line) (*cart.Cart, error)
}

// CheckoutRequest holds the input for checking out a cart.
type CheckoutRequest struct {
	CartID   string
	UserID   uuid.UUID
	Customer checkout.Customer
}

// CheckoutResult holds the recorded order and the message to hand over.
type CheckoutResult struct {
	Order   *Order
	Message *checkout.Message
}

// Service turns carts into recorded orders.
type Service struct {
	carts     Carts
	formatter *checkout.Formatter
	orders    Repository
	notifier  Notifier
	now       func() time.Time

	checkouts metric.Int64Counter
}

// NewService creates an order Service. A nil notifier disables shop
// notifications.
func NewService(
	carts Carts,
	formatter *checkout.Formatter,
	orders Repository,
	notifier Notifier,
	meter metric.Meter,
) (*Service, error) {
	checkouts, err := meter.Int64Counter("storefront.checkouts",
		metric.WithDescription("Checkout attempts by outcome"),
	)
	if err != nil {
		return nil, fmt.Errorf("create checkouts counter: %w", err)
	}
	return &Service{
		carts:     carts,
		formatter: formatter,
		orders:    orders,
		notifier:  notifier,
		now:       time.Now,
		checkouts: checkouts,
	}, nil
}

// Checkout formats the cart, records the order and takes the ordered lines
// out of the cart. Units added to the cart while the order is being recorded
// stay in it. If the order cannot be recorded the checkout fails and the cart
// is left intact.
func (s *Service) Checkout(ctx context.Context, req CheckoutRequest) (*CheckoutResult, error) {
	res, err := s.checkout(ctx, req)
	s.checkouts.Add(ctx, 1, metric.WithAttributes(attribute.String("outcome", outcome(err))))
	return res, err
}

func (s *Service) checkout(ctx context.Context, req CheckoutRequest) (*CheckoutResult, error) {
	c, err := s.carts.Get(ctx, req.CartID)
	if err != nil {
		return nil, fmt.Errorf("load cart: %w", err)
	}
	if c.Empty() {
		return nil, checkout.ErrEmptyCart
	}

	lines := c.Lines()
	customer := req.Customer.Normalized()
	msg, err := s.formatter.Format(lines, customer)
	if err != nil {
		return nil, err
	}

	items := make([]Item, len(lines))
	for i, l := range lines {
		items[i] = Item{
			ProductID: l.ProductID,
			Name:      l.Name,
			Quantity:  l.Quantity,
			UnitPrice: money.ParseOrZero(l.UnitPrice),
		}
	}

	o := &Order{
		ID:              uuid.New().String(),
		UserID:          req.UserID,
		ClientName:      customer.Name,
		DeliveryAddress: customer.Address,
		PaymentMethod:   customer.Payment,
		Total:           msg.Total.Round(2),
		Items:           items,
		Status:          StatusPendingWhatsApp,
		CreatedAt:       s.now().UTC(),
	}
	if err := s.orders.Create(ctx, o); err != nil {
		return nil, fmt.Errorf("create order: %w", err)
	}

	lg := zctx.From(ctx).With(zap.String("order_id", o.ID))
	if _, err := s.carts.Take(ctx, req.CartID, lines); err != nil {
		lg.Warn("Take ordered lines from cart", zap.Error(err))
	}
	if s.notifier != nil {
		if err := s.notifier.NotifyOrder(ctx, o, msg); err != nil {
			lg.Warn("Notify shop", zap.Error(err))
		}
	}
	lg.Info("Order recorded",
		zap.String("total", o.Total.StringFixed(2)),
		zap.Int("items", len(o.Items)),
	)

	return &CheckoutResult{Order: o, Message: msg}, nil
}

// List returns the most recent orders, newest first.
func (s *Service) List(ctx context.Context, limit int) ([]Order, error) {
	switch {
	case limit <= 0:
		limit = DefaultListLimit
	case limit > MaxListLimit:
		limit = MaxListLimit
	}
	orders, err := s.orders.List(ctx, limit)
	if err != nil {
		return nil, fmt.Errorf("list orders: %w", err)
	}
	return orders, nil
}

func outcome(err error) string {
	if err == nil {
		return "recorded"
	}
	return "failed"
}
