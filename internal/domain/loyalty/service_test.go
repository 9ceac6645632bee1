package loyalty

import (
	"context"
	"regexp"
	"testing"
	"time"

	"github.com/go-faster/errors"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/metric/noop"
)

// --- Mock implementations ---

type mockBackend struct {
	outcome    Outcome
	err        error
	lastCode   string
	lastReward uuid.UUID
}

func (m *mockBackend) RedeemCoupon(_ context.Context, _ uuid.UUID, code string) (Outcome, error) {
	m.lastCode = code
	return m.outcome, m.err
}

func (m *mockBackend) RedeemReward(_ context.Context, _, rewardID uuid.UUID) (Outcome, error) {
	m.lastReward = rewardID
	return m.outcome, m.err
}

type mockProfiles struct {
	profile *Profile
	err     error
}

func (m *mockProfiles) GetProfile(_ context.Context, _ uuid.UUID) (*Profile, error) {
	if m.err != nil {
		return nil, m.err
	}
	p := *m.profile
	return &p, nil
}

func (m *mockProfiles) UpdateDisplayName(_ context.Context, _ uuid.UUID, name string) (*Profile, error) {
	if m.err != nil {
		return nil, m.err
	}
	m.profile.DisplayName = name
	p := *m.profile
	return &p, nil
}

func (m *mockProfiles) RedeemedCoupons(context.Context, uuid.UUID) ([]RedeemedCoupon, error) {
	return nil, m.err
}

func (m *mockProfiles) UserRewards(context.Context, uuid.UUID) ([]UserReward, error) {
	return nil, m.err
}

type mockCoupons struct {
	created []*Coupon
	err     error
}

func (m *mockCoupons) CreateCoupon(_ context.Context, c *Coupon) error {
	if m.err != nil {
		return m.err
	}
	m.created = append(m.created, c)
	return nil
}

func (m *mockCoupons) ListCoupons(context.Context) ([]Coupon, error)          { return nil, m.err }
func (m *mockCoupons) SetCouponActive(context.Context, uuid.UUID, bool) error { return m.err }
func (m *mockCoupons) DeleteCoupon(context.Context, uuid.UUID) error          { return m.err }

type mockRewards struct {
	created    []*Reward
	activeOnly *bool
	err        error
}

func (m *mockRewards) CreateReward(_ context.Context, r *Reward) error {
	if m.err != nil {
		return m.err
	}
	m.created = append(m.created, r)
	return nil
}

func (m *mockRewards) ListRewards(_ context.Context, activeOnly bool) ([]Reward, error) {
	m.activeOnly = &activeOnly
	return nil, m.err
}

func (m *mockRewards) SetRewardActive(context.Context, uuid.UUID, bool) error { return m.err }
func (m *mockRewards) DeleteReward(context.Context, uuid.UUID) error          { return m.err }

type fixture struct {
	svc      *Service
	backend  *mockBackend
	profiles *mockProfiles
	coupons  *mockCoupons
	rewards  *mockRewards
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{
		backend:  &mockBackend{},
		profiles: &mockProfiles{profile: &Profile{UserID: uuid.New(), DisplayName: "Ana", Points: 120}},
		coupons:  &mockCoupons{},
		rewards:  &mockRewards{},
	}
	svc, err := NewService(f.backend, f.profiles, f.coupons, f.rewards, noop.NewMeterProvider().Meter("test"))
	require.NoError(t, err)
	svc.now = func() time.Time { return time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC) }
	f.svc = svc
	return f
}

func describe(o Outcome) string {
	switch o := o.(type) {
	case Redeemed:
		return "redeemed: " + o.Message
	case Rejected:
		return "rejected: " + o.Message
	default:
		return "unknown"
	}
}

// --- Tests ---

func TestRedeemCoupon(t *testing.T) {
	tests := []struct {
		name    string
		outcome Outcome
		want    string
	}{
		{name: "redeemed", outcome: Redeemed{Message: "Cupom resgatado com sucesso!", PointsDelta: 10, Balance: 130}, want: "redeemed: Cupom resgatado com sucesso!"},
		{name: "rejected", outcome: Rejected{Message: "Cupom já utilizado"}, want: "rejected: Cupom já utilizado"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)
			f.backend.outcome = tt.outcome

			out, err := f.svc.RedeemCoupon(context.Background(), uuid.New(), "  DOCE10 ")
			require.NoError(t, err)
			assert.Equal(t, tt.want, describe(out))
			assert.Equal(t, tt.outcome.Text(), out.Text())
			assert.Equal(t, "DOCE10", f.backend.lastCode)
		})
	}
}

func TestRedeemCoupon_EmptyCode(t *testing.T) {
	f := newFixture(t)

	_, err := f.svc.RedeemCoupon(context.Background(), uuid.New(), "   ")
	require.ErrorIs(t, err, ErrCodeRequired)
	assert.Empty(t, f.backend.lastCode)
}

func TestRedeemCoupon_BackendError(t *testing.T) {
	f := newFixture(t)
	f.backend.err = errors.New("connection reset")

	_, err := f.svc.RedeemCoupon(context.Background(), uuid.New(), "DOCE10")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "redeem coupon")
}

func TestRedeemReward(t *testing.T) {
	f := newFixture(t)
	f.backend.outcome = Redeemed{Message: "Recompensa resgatada!", PointsDelta: -100, Balance: 20}
	rewardID := uuid.New()

	out, err := f.svc.RedeemReward(context.Background(), uuid.New(), rewardID)
	require.NoError(t, err)

	r, ok := out.(Redeemed)
	require.True(t, ok)
	assert.Equal(t, -100, r.PointsDelta)
	assert.Equal(t, 20, r.Balance)
	assert.Equal(t, rewardID, f.backend.lastReward)
}

func TestLevels(t *testing.T) {
	tests := []struct {
		points  int
		level   string
		next    string
		toNext  int
		hasNext bool
	}{
		{points: 0, level: "Iniciante", next: "Amante de Doces", toNext: 50, hasNext: true},
		{points: 49, level: "Iniciante", next: "Amante de Doces", toNext: 1, hasNext: true},
		{points: 50, level: "Amante de Doces", next: "Doce Expert", toNext: 150, hasNext: true},
		{points: 199, level: "Amante de Doces", next: "Doce Expert", toNext: 1, hasNext: true},
		{points: 200, level: "Doce Expert", next: "Mestre Confeiteiro", toNext: 300, hasNext: true},
		{points: 500, level: "Mestre Confeiteiro"},
		{points: 12000, level: "Mestre Confeiteiro"},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.level, LevelFor(tt.points).Name, "points=%d", tt.points)

		v := newProfileView(&Profile{Points: tt.points})
		if !tt.hasNext {
			assert.Nil(t, v.Next, "points=%d", tt.points)
			assert.Zero(t, v.PointsToNext)
			continue
		}
		require.NotNil(t, v.Next, "points=%d", tt.points)
		assert.Equal(t, tt.next, v.Next.Name)
		assert.Equal(t, tt.toNext, v.PointsToNext)
	}
}

func TestProfile(t *testing.T) {
	f := newFixture(t)

	v, err := f.svc.Profile(context.Background(), f.profiles.profile.UserID)
	require.NoError(t, err)
	assert.Equal(t, "Amante de Doces", v.Level.Name)
	assert.Equal(t, 80, v.PointsToNext)
}

func TestProfile_NotFound(t *testing.T) {
	f := newFixture(t)
	f.profiles.err = ErrProfileNotFound

	_, err := f.svc.Profile(context.Background(), uuid.New())
	require.ErrorIs(t, err, ErrProfileNotFound)
}

func TestUpdateDisplayName(t *testing.T) {
	f := newFixture(t)

	v, err := f.svc.UpdateDisplayName(context.Background(), uuid.New(), "  Ana Doceira ")
	require.NoError(t, err)
	assert.Equal(t, "Ana Doceira", v.DisplayName)

	var vErr *ValidationError
	_, err = f.svc.UpdateDisplayName(context.Background(), uuid.New(), " ")
	require.ErrorAs(t, err, &vErr)
	assert.Equal(t, "display_name", vErr.Field)
}

func TestCreateCoupon_GeneratesCode(t *testing.T) {
	f := newFixture(t)

	c, err := f.svc.CreateCoupon(context.Background(), CouponInput{Name: "Boas-vindas", PointsValue: 10})
	require.NoError(t, err)
	assert.Regexp(t, regexp.MustCompile(`^[A-Z0-9]{8}$`), c.Code)
	assert.True(t, c.IsActive)
	assert.Equal(t, time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC), c.ValidFrom)
	require.Len(t, f.coupons.created, 1)
}

func TestCreateCoupon_NormalizesCode(t *testing.T) {
	f := newFixture(t)

	c, err := f.svc.CreateCoupon(context.Background(), CouponInput{Code: " natal-25 ", Name: "Natal", PointsValue: 25})
	require.NoError(t, err)
	assert.Equal(t, "NATAL-25", c.Code)
}

func TestCreateCoupon_Validation(t *testing.T) {
	zero := 0
	past := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)

	tests := []struct {
		name  string
		in    CouponInput
		field string
	}{
		{name: "missing name", in: CouponInput{PointsValue: 10}, field: "name"},
		{name: "zero points", in: CouponInput{Name: "X", PointsValue: 0}, field: "points_value"},
		{name: "zero max uses", in: CouponInput{Name: "X", PointsValue: 5, MaxUses: &zero}, field: "max_uses"},
		{name: "short code", in: CouponInput{Code: "AB", Name: "X", PointsValue: 5}, field: "code"},
		{name: "bad code", in: CouponInput{Code: "ÇUPOM!", Name: "X", PointsValue: 5}, field: "code"},
		{name: "expired window", in: CouponInput{Name: "X", PointsValue: 5, ValidUntil: &past}, field: "valid_until"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)

			_, err := f.svc.CreateCoupon(context.Background(), tt.in)
			var vErr *ValidationError
			require.ErrorAs(t, err, &vErr)
			assert.Equal(t, tt.field, vErr.Field)
			assert.Empty(t, f.coupons.created)
		})
	}
}

func TestCreateCoupon_Duplicate(t *testing.T) {
	f := newFixture(t)
	f.coupons.err = ErrCouponExists

	_, err := f.svc.CreateCoupon(context.Background(), CouponInput{Code: "DOCE10", Name: "X", PointsValue: 5})
	require.ErrorIs(t, err, ErrCouponExists)
}

func TestCreateReward(t *testing.T) {
	f := newFixture(t)
	stock := 5

	r, err := f.svc.CreateReward(context.Background(), RewardInput{
		Name:          " Brigadeiro grátis ",
		PointsCost:    100,
		Category:      "Doces",
		StockQuantity: &stock,
	})
	require.NoError(t, err)
	assert.Equal(t, "Brigadeiro grátis", r.Name)
	assert.True(t, r.IsActive)
	require.Len(t, f.rewards.created, 1)

	negative := -1
	var vErr *ValidationError
	_, err = f.svc.CreateReward(context.Background(), RewardInput{Name: "X", PointsCost: 10, StockQuantity: &negative})
	require.ErrorAs(t, err, &vErr)
	assert.Equal(t, "stock_quantity", vErr.Field)

	_, err = f.svc.CreateReward(context.Background(), RewardInput{Name: "X"})
	require.ErrorAs(t, err, &vErr)
	assert.Equal(t, "points_cost", vErr.Field)
}

func TestRewardListings(t *testing.T) {
	f := newFixture(t)

	_, err := f.svc.ActiveRewards(context.Background())
	require.NoError(t, err)
	require.NotNil(t, f.rewards.activeOnly)
	assert.True(t, *f.rewards.activeOnly)

	_, err = f.svc.ListRewards(context.Background())
	require.NoError(t, err)
	assert.False(t, *f.rewards.activeOnly)
}

func TestGenerateCode(t *testing.T) {
	seen := make(map[string]struct{})
	for range 200 {
		code := GenerateCode()
		require.Len(t, code, 8)
		require.NoError(t, validateCode(code))
		seen[code] = struct{}{}
	}
	assert.Greater(t, len(seen), 190)
}

func TestNormalizeCode(t *testing.T) {
	tests := []struct {
		in   string
		want string
		ok   bool
	}{
		{in: " docefeliz ", want: "DOCEFELIZ", ok: true},
		{in: "pascoa-2025", want: "PASCOA-2025", ok: true},
		{in: "ab", want: "AB", ok: false},
		{in: "açaí10", want: "AÇAÍ10", ok: false},
		{in: "", want: "", ok: false},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, ok := NormalizeCode(tt.in)
			assert.Equal(t, tt.want, got)
			assert.Equal(t, tt.ok, ok)
		})
	}
}
