// Package handler serves the storefront JSON API under /api.
package handler

import (
	"context"
	"net/http"
	"reflect"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/doce-emergencia/storefront/internal/domain/auth"
	"github.com/doce-emergencia/storefront/internal/domain/cart"
	"github.com/doce-emergencia/storefront/internal/domain/checkout"
	"github.com/doce-emergencia/storefront/internal/domain/loyalty"
	"github.com/doce-emergencia/storefront/internal/domain/order"
	"github.com/doce-emergencia/storefront/internal/domain/poll"
	"github.com/doce-emergencia/storefront/internal/domain/product"
	"github.com/doce-emergencia/storefront/pkg/httpmiddleware"
)

// Catalog reads products.
type Catalog interface {
	List(ctx context.Context, category string) ([]product.Product, error)
	Get(ctx context.Context, id int64) (*product.Product, error)
	Categories(ctx context.Context) ([]string, error)
}

// Carts applies cart operations to stored carts.
type Carts interface {
	Get(ctx context.Context, id string) (*cart.Cart, error)
	Add(ctx context.Context, id string, productID int64, quantity int) (*cart.Cart, error)
	Increase(ctx context.Context, id string, productID int64) (*cart.Cart, error)
	Decrease(ctx context.Context, id string, productID int64) (*cart.Cart, error)
	Remove(ctx context.Context, id string, productID int64) (*cart.Cart, error)
	Clear(ctx context.Context, id string) error
}

// Orders checks carts out and lists recorded orders.
type Orders interface {
	Checkout(ctx context.Context, req order.CheckoutRequest) (*order.CheckoutResult, error)
	List(ctx context.Context, limit int) ([]order.Order, error)
}

// Accounts manages users, sessions and roles.
type Accounts interface {
	SignUp(ctx context.Context, req auth.SignUpRequest) (*auth.User, error)
	SignIn(ctx context.Context, email, password string) (*auth.Session, error)
	SignOut(ctx context.Context, token string) error
	Authenticate(ctx context.Context, token string) (auth.Principal, error)
	HasRole(ctx context.Context, userID uuid.UUID, role auth.Role) (bool, error)
	RequireRole(ctx context.Context, userID uuid.UUID, role auth.Role) error
}

// Loyalty covers profiles, redemptions and the coupon and reward catalogs.
type Loyalty interface {
	Profile(ctx context.Context, userID uuid.UUID) (*loyalty.ProfileView, error)
	UpdateDisplayName(ctx context.Context, userID uuid.UUID, name string) (*loyalty.ProfileView, error)
	RedeemedCoupons(ctx context.Context, userID uuid.UUID) ([]loyalty.RedeemedCoupon, error)
	UserRewards(ctx context.Context, userID uuid.UUID) ([]loyalty.UserReward, error)
	ActiveRewards(ctx context.Context) ([]loyalty.Reward, error)
	RedeemCoupon(ctx context.Context, userID uuid.UUID, code string) (loyalty.Outcome, error)
	RedeemReward(ctx context.Context, userID, rewardID uuid.UUID) (loyalty.Outcome, error)

	CreateCoupon(ctx context.Context, in loyalty.CouponInput) (*loyalty.Coupon, error)
	ListCoupons(ctx context.Context) ([]loyalty.Coupon, error)
	SetCouponActive(ctx context.Context, id uuid.UUID, active bool) error
	DeleteCoupon(ctx context.Context, id uuid.UUID) error
	CreateReward(ctx context.Context, in loyalty.RewardInput) (*loyalty.Reward, error)
	ListRewards(ctx context.Context) ([]loyalty.Reward, error)
	SetRewardActive(ctx context.Context, id uuid.UUID, active bool) error
	DeleteReward(ctx context.Context, id uuid.UUID) error
}

// Polls lists polls and records votes.
type Polls interface {
	List(ctx context.Context, userID uuid.UUID) ([]poll.Poll, error)
	Vote(ctx context.Context, userID, pollID, optionID uuid.UUID) (*poll.Poll, error)
	Create(ctx context.Context, in poll.CreateInput) (*poll.Poll, error)
	ListAll(ctx context.Context) ([]poll.Poll, error)
	SetActive(ctx context.Context, id uuid.UUID, active bool) error
	Delete(ctx context.Context, id uuid.UUID) error
}

// Services are the domain dependencies of the API.
type Services struct {
	Catalog   Catalog
	Carts     Carts
	Orders    Orders
	Accounts  Accounts
	Loyalty   Loyalty
	Polls     Polls
	Formatter *checkout.Formatter
}

// Config holds non-dependency configuration for the Handler.
type Config struct {
	// SensitiveLimit throttles sign-up, sign-in and redemptions on top of
	// the global limit. Nil disables it.
	SensitiveLimit *httpmiddleware.Limiter
}

// Handler serves the JSON API.
type Handler struct {
	catalog   Catalog
	carts     Carts
	orders    Orders
	accounts  Accounts
	loyalty   Loyalty
	polls     Polls
	formatter *checkout.Formatter

	sensitive httpmiddleware.Middleware
	validate  *validator.Validate
}

// New constructs a Handler.
func New(cfg Config, s Services) *Handler {
	sensitive := httpmiddleware.Middleware(func(next http.Handler) http.Handler { return next })
	if cfg.SensitiveLimit != nil {
		sensitive = cfg.SensitiveLimit.Middleware()
	}
	formatter := s.Formatter
	if formatter == nil {
		formatter = checkout.NewFormatter("")
	}
	return &Handler{
		catalog:   s.Catalog,
		carts:     s.Carts,
		orders:    s.Orders,
		accounts:  s.Accounts,
		loyalty:   s.Loyalty,
		polls:     s.Polls,
		formatter: formatter,
		sensitive: sensitive,
		validate:  newValidator(),
	}
}

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// Mount registers the API routes under /api.
func (h *Handler) Mount(r chi.Router) {
	r.Route("/api", func(r chi.Router) {
		r.Use(h.authenticate)

		r.Get("/products", h.listProducts)
		r.Get("/products/{id}", h.getProduct)
		r.Get("/products/{id}/inquiry", h.productInquiry)
		r.Get("/categories", h.listCategories)
		r.Get("/membership", h.membershipLink)

		r.Group(func(r chi.Router) {
			r.Use(cartSession)
			r.Get("/cart", h.getCart)
			r.Delete("/cart", h.clearCart)
			r.Post("/cart/items", h.addItem)
			r.Post("/cart/items/{id}/increase", h.increaseItem)
			r.Post("/cart/items/{id}/decrease", h.decreaseItem)
			r.Delete("/cart/items/{id}", h.removeItem)
			r.Post("/checkout", h.checkout)
		})

		r.With(h.sensitive).Post("/auth/signup", h.signUp)
		r.With(h.sensitive).Post("/auth/signin", h.signIn)
		r.Post("/auth/signout", h.signOut)
		r.With(requireUser).Get("/auth/session", h.session)

		r.Get("/rewards", h.activeRewards)
		r.Get("/polls", h.listPolls)

		r.Group(func(r chi.Router) {
			r.Use(requireUser)
			r.Get("/me", h.profile)
			r.Patch("/me", h.updateProfile)
			r.Get("/me/coupons", h.redeemedCoupons)
			r.Get("/me/rewards", h.userRewards)
			r.With(h.sensitive).Post("/coupons/redeem", h.redeemCoupon)
			r.With(h.sensitive).Post("/rewards/{id}/redeem", h.redeemReward)
			r.Post("/polls/{id}/votes", h.vote)
		})

		r.Route("/admin", func(r chi.Router) {
			r.Use(requireUser, h.requireRole(auth.RoleAdmin))

			r.Get("/orders", h.adminListOrders)

			r.Get("/coupons", h.adminListCoupons)
			r.Post("/coupons", h.adminCreateCoupon)
			r.Patch("/coupons/{id}", h.adminSetCouponActive)
			r.Delete("/coupons/{id}", h.adminDeleteCoupon)

			r.Get("/rewards", h.adminListRewards)
			r.Post("/rewards", h.adminCreateReward)
			r.Patch("/rewards/{id}", h.adminSetRewardActive)
			r.Delete("/rewards/{id}", h.adminDeleteReward)

			r.Get("/polls", h.adminListPolls)
			r.Post("/polls", h.adminCreatePoll)
			r.Patch("/polls/{id}", h.adminSetPollActive)
			r.Delete("/polls/{id}", h.adminDeletePoll)
		})
	})
}
