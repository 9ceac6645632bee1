package handler

import (
	"net/http"

	"github.com/doce-emergencia/storefront/internal/domain/product"
	"github.com/doce-emergencia/storefront/internal/money"
)

type productView struct {
	ID          int64  `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
	Price       string `json:"price"`
	// PriceValue is Price parsed, as a fixed two-decimal string.
	PriceValue string `json:"price_value"`
	Weight     string `json:"weight"`
	Category   string `json:"category"`
	Image      string `json:"image"`
}

func newProductView(p product.Product) productView {
	return productView{
		ID:          p.ID,
		Name:        p.Name,
		Description: p.Description,
		Price:       p.Price,
		PriceValue:  money.ParseOrZero(p.Price).StringFixed(2),
		Weight:      p.Weight,
		Category:    p.Category,
		Image:       p.Image,
	}
}

func (h *Handler) listProducts(w http.ResponseWriter, r *http.Request) {
	products, err := h.catalog.List(r.Context(), r.URL.Query().Get("category"))
	if err != nil {
		fail(w, r, err)
		return
	}
	out := make([]productView, len(products))
	for i, p := range products {
		out[i] = newProductView(p)
	}
	respond(w, r, http.StatusOK, out)
}

func (h *Handler) getProduct(w http.ResponseWriter, r *http.Request) {
	id, err := productIDParam(r)
	if err != nil {
		fail(w, r, err)
		return
	}
	p, err := h.catalog.Get(r.Context(), id)
	if err != nil {
		fail(w, r, err)
		return
	}
	respond(w, r, http.StatusOK, newProductView(*p))
}

// productInquiry returns the quick "I want this one" WhatsApp link.
func (h *Handler) productInquiry(w http.ResponseWriter, r *http.Request) {
	id, err := productIDParam(r)
	if err != nil {
		fail(w, r, err)
		return
	}
	p, err := h.catalog.Get(r.Context(), id)
	if err != nil {
		fail(w, r, err)
		return
	}
	respond(w, r, http.StatusOK, map[string]string{
		"whatsapp_url": h.formatter.InquiryURL(p.Name),
	})
}

// membershipLink returns the WhatsApp link for joining the member plan.
func (h *Handler) membershipLink(w http.ResponseWriter, r *http.Request) {
	respond(w, r, http.StatusOK, map[string]string{
		"whatsapp_url": h.formatter.MembershipURL(),
	})
}

func (h *Handler) listCategories(w http.ResponseWriter, r *http.Request) {
	categories, err := h.catalog.Categories(r.Context())
	if err != nil {
		fail(w, r, err)
		return
	}
	respond(w, r, http.StatusOK, categories)
}
