package handler

import (
	"context"
	"sync"

	"github.com/google/uuid"

	"github.com/doce-emergencia/storefront/internal/domain/auth"
	"github.com/doce-emergencia/storefront/internal/domain/loyalty"
	"github.com/doce-emergencia/storefront/internal/domain/order"
	"github.com/doce-emergencia/storefront/internal/domain/poll"
	"github.com/doce-emergencia/storefront/internal/domain/product"
)

type fakeCatalog struct {
	products []product.Product
}

func (f *fakeCatalog) List(_ context.Context, category string) ([]product.Product, error) {
	if category == "" || category == product.AllCategories {
		return f.products, nil
	}
	var out []product.Product
	for _, p := range f.products {
		if p.Category == category {
			out = append(out, p)
		}
	}
	return out, nil
}

func (f *fakeCatalog) Get(_ context.Context, id int64) (*product.Product, error) {
	for _, p := range f.products {
		if p.ID == id {
			return &p, nil
		}
	}
	return nil, product.ErrNotFound
}

func (f *fakeCatalog) GetByID(ctx context.Context, id int64) (*product.Product, error) {
	return f.Get(ctx, id)
}

func (f *fakeCatalog) Categories(context.Context) ([]string, error) {
	return []string{product.AllCategories, "Brigadeiros", "Bolos"}, nil
}

type fakeOrders struct {
	mu     sync.Mutex
	got    []order.CheckoutRequest
	result *order.CheckoutResult
	err    error
	orders []order.Order
	limit  int
}

func (f *fakeOrders) Checkout(_ context.Context, req order.CheckoutRequest) (*order.CheckoutResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.got = append(f.got, req)
	return f.result, f.err
}

func (f *fakeOrders) List(_ context.Context, limit int) ([]order.Order, error) {
	f.limit = limit
	return f.orders, f.err
}

// fakeAccounts accepts tokens of the form "token-<uuid>" for known users.
type fakeAccounts struct {
	mu        sync.Mutex
	sessions  map[string]auth.Principal
	admins    map[uuid.UUID]bool
	signUps   []auth.SignUpRequest
	signUpErr error
	signOuts  []string
}

func newFakeAccounts() *fakeAccounts {
	return &fakeAccounts{
		sessions: map[string]auth.Principal{},
		admins:   map[uuid.UUID]bool{},
	}
}

// login registers a session and returns its bearer token.
func (f *fakeAccounts) login(admin bool) (string, uuid.UUID) {
	f.mu.Lock()
	defer f.mu.Unlock()
	p := auth.Principal{UserID: uuid.New(), SessionID: uuid.New()}
	token := "token-" + p.SessionID.String()
	f.sessions[token] = p
	f.admins[p.UserID] = admin
	return token, p.UserID
}

func (f *fakeAccounts) SignUp(_ context.Context, req auth.SignUpRequest) (*auth.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.signUps = append(f.signUps, req)
	if f.signUpErr != nil {
		return nil, f.signUpErr
	}
	return &auth.User{ID: uuid.New(), Email: req.Email}, nil
}

func (f *fakeAccounts) SignIn(_ context.Context, email, password string) (*auth.Session, error) {
	if password != "segredo" {
		return nil, auth.ErrInvalidCredentials
	}
	token, userID := f.login(false)
	return &auth.Session{Token: token, UserID: userID, Email: email}, nil
}

func (f *fakeAccounts) SignOut(_ context.Context, token string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.signOuts = append(f.signOuts, token)
	delete(f.sessions, token)
	return nil
}

func (f *fakeAccounts) Authenticate(_ context.Context, token string) (auth.Principal, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	p, ok := f.sessions[token]
	if !ok {
		return auth.Principal{}, auth.ErrInvalidToken
	}
	return p, nil
}

func (f *fakeAccounts) HasRole(_ context.Context, userID uuid.UUID, role auth.Role) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return role == auth.RoleAdmin && f.admins[userID], nil
}

func (f *fakeAccounts) RequireRole(ctx context.Context, userID uuid.UUID, role auth.Role) error {
	ok, err := f.HasRole(ctx, userID, role)
	if err != nil {
		return err
	}
	if !ok {
		return auth.ErrForbidden
	}
	return nil
}

type fakeLoyalty struct {
	outcome loyalty.Outcome
	err     error
	codes   []string
	coupons []loyalty.CouponInput
	profile *loyalty.ProfileView
	toggled map[uuid.UUID]bool
	deleted []uuid.UUID
}

func (f *fakeLoyalty) Profile(context.Context, uuid.UUID) (*loyalty.ProfileView, error) {
	if f.profile == nil {
		return nil, loyalty.ErrProfileNotFound
	}
	return f.profile, nil
}

func (f *fakeLoyalty) UpdateDisplayName(_ context.Context, _ uuid.UUID, name string) (*loyalty.ProfileView, error) {
	if f.profile == nil {
		return nil, loyalty.ErrProfileNotFound
	}
	f.profile.DisplayName = name
	return f.profile, nil
}

func (f *fakeLoyalty) RedeemedCoupons(context.Context, uuid.UUID) ([]loyalty.RedeemedCoupon, error) {
	return []loyalty.RedeemedCoupon{{ID: uuid.New(), CouponCode: "DOCE10", PointsEarned: 10}}, nil
}

func (f *fakeLoyalty) UserRewards(context.Context, uuid.UUID) ([]loyalty.UserReward, error) {
	return nil, nil
}

func (f *fakeLoyalty) ActiveRewards(context.Context) ([]loyalty.Reward, error) {
	return []loyalty.Reward{{ID: uuid.New(), Name: "Brigadeiro grátis", PointsCost: 50, IsActive: true}}, nil
}

func (f *fakeLoyalty) RedeemCoupon(_ context.Context, _ uuid.UUID, code string) (loyalty.Outcome, error) {
	f.codes = append(f.codes, code)
	return f.outcome, f.err
}

func (f *fakeLoyalty) RedeemReward(context.Context, uuid.UUID, uuid.UUID) (loyalty.Outcome, error) {
	return f.outcome, f.err
}

func (f *fakeLoyalty) CreateCoupon(_ context.Context, in loyalty.CouponInput) (*loyalty.Coupon, error) {
	f.coupons = append(f.coupons, in)
	if f.err != nil {
		return nil, f.err
	}
	return &loyalty.Coupon{ID: uuid.New(), Code: "GERADO01", Name: in.Name, PointsValue: in.PointsValue, IsActive: true}, nil
}

func (f *fakeLoyalty) ListCoupons(context.Context) ([]loyalty.Coupon, error) { return nil, f.err }

func (f *fakeLoyalty) SetCouponActive(_ context.Context, id uuid.UUID, active bool) error {
	if f.err != nil {
		return f.err
	}
	if f.toggled == nil {
		f.toggled = map[uuid.UUID]bool{}
	}
	f.toggled[id] = active
	return nil
}

func (f *fakeLoyalty) DeleteCoupon(_ context.Context, id uuid.UUID) error {
	if f.err != nil {
		return f.err
	}
	f.deleted = append(f.deleted, id)
	return nil
}

func (f *fakeLoyalty) CreateReward(_ context.Context, in loyalty.RewardInput) (*loyalty.Reward, error) {
	return &loyalty.Reward{ID: uuid.New(), Name: in.Name, PointsCost: in.PointsCost, IsActive: true}, f.err
}

func (f *fakeLoyalty) ListRewards(ctx context.Context) ([]loyalty.Reward, error) {
	return f.ActiveRewards(ctx)
}

func (f *fakeLoyalty) SetRewardActive(context.Context, uuid.UUID, bool) error { return f.err }

func (f *fakeLoyalty) DeleteReward(context.Context, uuid.UUID) error { return f.err }

type fakePolls struct {
	poll    *poll.Poll
	voteErr error
	voters  []uuid.UUID
}

func (f *fakePolls) List(_ context.Context, userID uuid.UUID) ([]poll.Poll, error) {
	f.voters = append(f.voters, userID)
	if f.poll == nil {
		return nil, nil
	}
	return []poll.Poll{*f.poll}, nil
}

func (f *fakePolls) Vote(_ context.Context, userID, pollID, optionID uuid.UUID) (*poll.Poll, error) {
	if f.voteErr != nil {
		return nil, f.voteErr
	}
	if f.poll == nil || f.poll.ID != pollID {
		return nil, poll.ErrPollNotFound
	}
	p := *f.poll
	p.VotedOption = &optionID
	f.voters = append(f.voters, userID)
	return &p, nil
}

func (f *fakePolls) Create(_ context.Context, in poll.CreateInput) (*poll.Poll, error) {
	if len(in.Options) < 2 {
		return nil, &poll.ValidationError{Field: "options", Reason: "at least 2 options required"}
	}
	return &poll.Poll{ID: uuid.New(), Title: in.Title, IsActive: true}, nil
}

func (f *fakePolls) ListAll(ctx context.Context) ([]poll.Poll, error) {
	return f.List(ctx, uuid.Nil)
}

func (f *fakePolls) SetActive(context.Context, uuid.UUID, bool) error { return nil }

func (f *fakePolls) Delete(_ context.Context, id uuid.UUID) error {
	if f.poll == nil || f.poll.ID != id {
		return poll.ErrPollNotFound
	}
	return nil
}
