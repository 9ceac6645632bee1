package order

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/doce-emergencia/storefront/internal/domain/checkout"
)

// Status of a recorded order. Orders are written once and never updated.
type Status string

// StatusPendingWhatsApp marks an order handed over to the WhatsApp
// conversation with the shop.
const StatusPendingWhatsApp Status = "pending_whatsapp"

// Order is the record written when a customer checks out.
type Order struct {
	ID              string
	UserID          uuid.UUID // uuid.Nil for guests
	ClientName      string
	DeliveryAddress string
	PaymentMethod   checkout.Payment
	Total           decimal.Decimal
	Items           []Item
	Status          Status
	CreatedAt       time.Time
}

// Item is one ordered product with its price at checkout time.
type Item struct {
	ProductID int64           `json:"product_id"`
	Name      string          `json:"name"`
	Quantity  int             `json:"quantity"`
	UnitPrice decimal.Decimal `json:"unit_price"`
}

// Repository defines persistence operations for orders.
type Repository interface {
	Create(ctx context.Context, order *Order) error
	List(ctx context.Context, limit int) ([]Order, error)
}

// Notifier tells the shop about a new order.
type Notifier interface {
	NotifyOrder(ctx context.Context, o *Order, msg *checkout.Message) error
}
