package handler

import (
	"net/http"
	"strconv"
	"time"

	"github.com/google/uuid"

	"github.com/doce-emergencia/storefront/internal/domain/checkout"
	"github.com/doce-emergencia/storefront/internal/domain/order"
	"github.com/doce-emergencia/storefront/internal/money"
)

type checkoutRequest struct {
	Name    string `json:"name" validate:"max=120"`
	Address string `json:"address" validate:"max=300"`
	Payment string `json:"payment" validate:"max=20"`
}

type checkoutResponse struct {
	OrderID        string    `json:"order_id"`
	Status         string    `json:"status"`
	Total          string    `json:"total"`
	TotalFormatted string    `json:"total_formatted"`
	Message        string    `json:"message"`
	WhatsAppURL    string    `json:"whatsapp_url"`
	CreatedAt      time.Time `json:"created_at"`
}

// checkout records the order and hands back the WhatsApp message. The
// client opens WhatsAppURL; the cart is already empty by then.
func (h *Handler) checkout(w http.ResponseWriter, r *http.Request) {
	var req checkoutRequest
	if err := h.decode(w, r, &req); err != nil {
		fail(w, r, err)
		return
	}
	ctx := r.Context()
	res, err := h.orders.Checkout(ctx, order.CheckoutRequest{
		CartID: cartIDFrom(ctx),
		UserID: callerID(ctx),
		Customer: checkout.Customer{
			Name:    req.Name,
			Address: req.Address,
			Payment: checkout.Payment(req.Payment),
		},
	})
	if err != nil {
		fail(w, r, err)
		return
	}
	respond(w, r, http.StatusCreated, checkoutResponse{
		OrderID:        res.Order.ID,
		Status:         string(res.Order.Status),
		Total:          res.Order.Total.StringFixed(2),
		TotalFormatted: money.Format(res.Order.Total),
		Message:        res.Message.Text,
		WhatsAppURL:    res.Message.URL,
		CreatedAt:      res.Order.CreatedAt,
	})
}

type orderItemView struct {
	ProductID int64  `json:"product_id"`
	Name      string `json:"name"`
	Quantity  int    `json:"quantity"`
	UnitPrice string `json:"unit_price"`
}

type orderView struct {
	ID              string          `json:"id"`
	UserID          *uuid.UUID      `json:"user_id"`
	ClientName      string          `json:"client_name"`
	DeliveryAddress string          `json:"delivery_address"`
	PaymentMethod   string          `json:"payment_method"`
	Total           string          `json:"total"`
	Status          string          `json:"status"`
	Items           []orderItemView `json:"items"`
	CreatedAt       time.Time       `json:"created_at"`
}

func newOrderView(o order.Order) orderView {
	v := orderView{
		ID:              o.ID,
		ClientName:      o.ClientName,
		DeliveryAddress: o.DeliveryAddress,
		PaymentMethod:   string(o.PaymentMethod),
		Total:           o.Total.StringFixed(2),
		Status:          string(o.Status),
		Items:           make([]orderItemView, len(o.Items)),
		CreatedAt:       o.CreatedAt,
	}
	if o.UserID != uuid.Nil {
		id := o.UserID
		v.UserID = &id
	}
	for i, it := range o.Items {
		v.Items[i] = orderItemView{
			ProductID: it.ProductID,
			Name:      it.Name,
			Quantity:  it.Quantity,
			UnitPrice: it.UnitPrice.StringFixed(2),
		}
	}
	return v
}

func (h *Handler) adminListOrders(w http.ResponseWriter, r *http.Request) {
	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil {
			fail(w, r, badRequest("invalid limit"))
			return
		}
		limit = n
	}
	orders, err := h.orders.List(r.Context(), limit)
	if err != nil {
		fail(w, r, err)
		return
	}
	out := make([]orderView, len(orders))
	for i, o := range orders {
		out[i] = newOrderView(o)
	}
	respond(w, r, http.StatusOK, out)
}
