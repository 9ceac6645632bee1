package handler

import (
	"context"
	"net/http"

	"github.com/doce-emergencia/storefront/internal/domain/cart"
	"github.com/doce-emergencia/storefront/internal/money"
)

type cartLineView struct {
	ProductID         int64  `json:"product_id"`
	Name              string `json:"name"`
	UnitPrice         string `json:"unit_price"`
	Quantity          int    `json:"quantity"`
	Subtotal          string `json:"subtotal"`
	SubtotalFormatted string `json:"subtotal_formatted"`
}

type cartView struct {
	ID             string         `json:"id"`
	Lines          []cartLineView `json:"lines"`
	Total          string         `json:"total"`
	TotalFormatted string         `json:"total_formatted"`
	Count          int            `json:"count"`
}

func newCartView(id string, c *cart.Cart) cartView {
	lines := c.Lines()
	v := cartView{
		ID:             id,
		Lines:          make([]cartLineView, len(lines)),
		Total:          c.Total().StringFixed(2),
		TotalFormatted: money.Format(c.Total()),
		Count:          c.Count(),
	}
	for i, l := range lines {
		sub := l.Subtotal()
		v.Lines[i] = cartLineView{
			ProductID:         l.ProductID,
			Name:              l.Name,
			UnitPrice:         l.UnitPrice,
			Quantity:          l.Quantity,
			Subtotal:          sub.StringFixed(2),
			SubtotalFormatted: money.Format(sub),
		}
	}
	return v
}

type addItemRequest struct {
	ProductID int64 `json:"product_id" validate:"required,gt=0"`
	// Quantity defaults to one when omitted.
	Quantity int `json:"quantity" validate:"gte=0,lte=99"`
}

func (h *Handler) getCart(w http.ResponseWriter, r *http.Request) {
	id := cartIDFrom(r.Context())
	c, err := h.carts.Get(r.Context(), id)
	if err != nil {
		fail(w, r, err)
		return
	}
	respond(w, r, http.StatusOK, newCartView(id, c))
}

func (h *Handler) clearCart(w http.ResponseWriter, r *http.Request) {
	if err := h.carts.Clear(r.Context(), cartIDFrom(r.Context())); err != nil {
		fail(w, r, err)
		return
	}
	noContent(w)
}

func (h *Handler) addItem(w http.ResponseWriter, r *http.Request) {
	var req addItemRequest
	if err := h.decode(w, r, &req); err != nil {
		fail(w, r, err)
		return
	}
	id := cartIDFrom(r.Context())
	c, err := h.carts.Add(r.Context(), id, req.ProductID, req.Quantity)
	if err != nil {
		fail(w, r, err)
		return
	}
	respond(w, r, http.StatusOK, newCartView(id, c))
}

type lineOp func(ctx context.Context, cartID string, productID int64) (*cart.Cart, error)

func (h *Handler) updateLine(w http.ResponseWriter, r *http.Request, op lineOp) {
	productID, err := productIDParam(r)
	if err != nil {
		fail(w, r, err)
		return
	}
	id := cartIDFrom(r.Context())
	c, err := op(r.Context(), id, productID)
	if err != nil {
		fail(w, r, err)
		return
	}
	respond(w, r, http.StatusOK, newCartView(id, c))
}

func (h *Handler) increaseItem(w http.ResponseWriter, r *http.Request) {
	h.updateLine(w, r, h.carts.Increase)
}

func (h *Handler) decreaseItem(w http.ResponseWriter, r *http.Request) {
	h.updateLine(w, r, h.carts.Decrease)
}

func (h *Handler) removeItem(w http.ResponseWriter, r *http.Request) {
	h.updateLine(w, r, h.carts.Remove)
}
