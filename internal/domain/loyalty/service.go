package loyalty

import (
	"context"
	"crypto/rand"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/go-faster/sdk/zctx"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.uber.org/zap"
)

const (
	codeAlphabet   = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"
	codeLength     = 8
	maxCodeLength  = 32
	maxDisplayName = 80
)

// ValidationError reports a rejected input field.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

// ProfileView is a profile with its loyalty tier.
type ProfileView struct {
	Profile
	Level Level
	// Next is the following tier; nil at the top tier.
	Next         *Level
	PointsToNext int
}

// CouponInput holds the fields an admin fills in to create a coupon.
type CouponInput struct {
	Code        string
	Name        string
	Description string
	PointsValue int
	MaxUses     *int
	ValidFrom   *time.Time
	ValidUntil  *time.Time
}

// RewardInput holds the fields an admin fills in to create a reward.
type RewardInput struct {
	Name          string
	Description   string
	PointsCost    int
	Category      string
	StockQuantity *int
	ImageURL      string
}

// Service exposes customer loyalty operations and coupon/reward admin.
type Service struct {
	backend  Backend
	profiles ProfileRepository
	coupons  CouponRepository
	rewards  RewardRepository
	now      func() time.Time

	redemptions metric.Int64Counter
}

// NewService creates a loyalty Service.
func NewService(
	backend Backend,
	profiles ProfileRepository,
	coupons CouponRepository,
	rewards RewardRepository,
	meter metric.Meter,
) (*Service, error) {
	redemptions, err := meter.Int64Counter("storefront.redemptions",
		metric.WithDescription("Coupon and reward redemptions by outcome"),
	)
	if err != nil {
		return nil, fmt.Errorf("create redemptions counter: %w", err)
	}
	return &Service{
		backend:     backend,
		profiles:    profiles,
		coupons:     coupons,
		rewards:     rewards,
		now:         time.Now,
		redemptions: redemptions,
	}, nil
}

// RedeemCoupon asks the redeem_coupon procedure to credit the coupon to
// userID. A refusal is returned as Rejected, not as an error.
func (s *Service) RedeemCoupon(ctx context.Context, userID uuid.UUID, code string) (Outcome, error) {
	code = strings.TrimSpace(code)
	if code == "" {
		return nil, ErrCodeRequired
	}
	out, err := s.backend.RedeemCoupon(ctx, userID, code)
	s.record(ctx, "coupon", out, err)
	if err != nil {
		return nil, fmt.Errorf("redeem coupon: %w", err)
	}
	return out, nil
}

// RedeemReward asks the redeem_reward procedure to trade points for the
// reward.
func (s *Service) RedeemReward(ctx context.Context, userID, rewardID uuid.UUID) (Outcome, error) {
	out, err := s.backend.RedeemReward(ctx, userID, rewardID)
	s.record(ctx, "reward", out, err)
	if err != nil {
		return nil, fmt.Errorf("redeem reward: %w", err)
	}
	return out, nil
}

func (s *Service) record(ctx context.Context, kind string, out Outcome, err error) {
	result := "error"
	switch out.(type) {
	case Redeemed:
		result = "redeemed"
	case Rejected:
		result = "rejected"
	}
	if err != nil {
		result = "error"
	}
	s.redemptions.Add(ctx, 1, metric.WithAttributes(
		attribute.String("kind", kind),
		attribute.String("outcome", result),
	))
	zctx.From(ctx).Debug("Redemption",
		zap.String("kind", kind),
		zap.String("outcome", result),
	)
}

// Profile returns the user's profile with tier progress.
func (s *Service) Profile(ctx context.Context, userID uuid.UUID) (*ProfileView, error) {
	p, err := s.profiles.GetProfile(ctx, userID)
	if err != nil {
		return nil, err
	}
	return newProfileView(p), nil
}

func newProfileView(p *Profile) *ProfileView {
	v := &ProfileView{Profile: *p, Level: LevelFor(p.Points)}
	if next, ok := NextLevel(p.Points); ok {
		v.Next = &next
		v.PointsToNext = next.MinPoints - p.Points
	}
	return v
}

// UpdateDisplayName changes the name shown on the profile.
func (s *Service) UpdateDisplayName(ctx context.Context, userID uuid.UUID, name string) (*ProfileView, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, &ValidationError{Field: "display_name", Reason: "required"}
	}
	if utf8.RuneCountInString(name) > maxDisplayName {
		return nil, &ValidationError{Field: "display_name", Reason: fmt.Sprintf("at most %d characters", maxDisplayName)}
	}
	p, err := s.profiles.UpdateDisplayName(ctx, userID, name)
	if err != nil {
		return nil, err
	}
	return newProfileView(p), nil
}

// RedeemedCoupons returns the user's coupon history, newest first.
func (s *Service) RedeemedCoupons(ctx context.Context, userID uuid.UUID) ([]RedeemedCoupon, error) {
	return s.profiles.RedeemedCoupons(ctx, userID)
}

// UserRewards returns the user's reward history, newest first.
func (s *Service) UserRewards(ctx context.Context, userID uuid.UUID) ([]UserReward, error) {
	return s.profiles.UserRewards(ctx, userID)
}

// ActiveRewards returns the rewards customers can redeem.
func (s *Service) ActiveRewards(ctx context.Context) ([]Reward, error) {
	return s.rewards.ListRewards(ctx, true)
}

// CreateCoupon validates in and stores a new active coupon. Without a code
// a random 8 character one is generated.
func (s *Service) CreateCoupon(ctx context.Context, in CouponInput) (*Coupon, error) {
	name := strings.TrimSpace(in.Name)
	if name == "" {
		return nil, &ValidationError{Field: "name", Reason: "required"}
	}
	if in.PointsValue <= 0 {
		return nil, &ValidationError{Field: "points_value", Reason: "must be greater than 0"}
	}
	if in.MaxUses != nil && *in.MaxUses <= 0 {
		return nil, &ValidationError{Field: "max_uses", Reason: "must be greater than 0"}
	}

	code := strings.ToUpper(strings.TrimSpace(in.Code))
	if code == "" {
		code = GenerateCode()
	} else if err := validateCode(code); err != nil {
		return nil, err
	}

	validFrom := s.now().UTC()
	if in.ValidFrom != nil {
		validFrom = in.ValidFrom.UTC()
	}
	if in.ValidUntil != nil && !in.ValidUntil.After(validFrom) {
		return nil, &ValidationError{Field: "valid_until", Reason: "must be after valid_from"}
	}

	c := &Coupon{
		ID:          uuid.New(),
		Code:        code,
		Name:        name,
		Description: strings.TrimSpace(in.Description),
		PointsValue: in.PointsValue,
		IsActive:    true,
		MaxUses:     in.MaxUses,
		ValidFrom:   validFrom,
		ValidUntil:  in.ValidUntil,
	}
	if err := s.coupons.CreateCoupon(ctx, c); err != nil {
		return nil, err
	}
	return c, nil
}

// ListCoupons returns every coupon for the admin screen.
func (s *Service) ListCoupons(ctx context.Context) ([]Coupon, error) {
	return s.coupons.ListCoupons(ctx)
}

// SetCouponActive enables or disables a coupon.
func (s *Service) SetCouponActive(ctx context.Context, id uuid.UUID, active bool) error {
	return s.coupons.SetCouponActive(ctx, id, active)
}

// DeleteCoupon removes a coupon.
func (s *Service) DeleteCoupon(ctx context.Context, id uuid.UUID) error {
	return s.coupons.DeleteCoupon(ctx, id)
}

// CreateReward validates in and stores a new active reward.
func (s *Service) CreateReward(ctx context.Context, in RewardInput) (*Reward, error) {
	name := strings.TrimSpace(in.Name)
	if name == "" {
		return nil, &ValidationError{Field: "name", Reason: "required"}
	}
	if in.PointsCost <= 0 {
		return nil, &ValidationError{Field: "points_cost", Reason: "must be greater than 0"}
	}
	if in.StockQuantity != nil && *in.StockQuantity < 0 {
		return nil, &ValidationError{Field: "stock_quantity", Reason: "must not be negative"}
	}

	r := &Reward{
		ID:            uuid.New(),
		Name:          name,
		Description:   strings.TrimSpace(in.Description),
		PointsCost:    in.PointsCost,
		Category:      strings.TrimSpace(in.Category),
		StockQuantity: in.StockQuantity,
		IsActive:      true,
		ImageURL:      strings.TrimSpace(in.ImageURL),
	}
	if err := s.rewards.CreateReward(ctx, r); err != nil {
		return nil, err
	}
	return r, nil
}

// ListRewards returns every reward for the admin screen.
func (s *Service) ListRewards(ctx context.Context) ([]Reward, error) {
	return s.rewards.ListRewards(ctx, false)
}

// SetRewardActive enables or disables a reward.
func (s *Service) SetRewardActive(ctx context.Context, id uuid.UUID, active bool) error {
	return s.rewards.SetRewardActive(ctx, id, active)
}

// DeleteReward removes a reward.
func (s *Service) DeleteReward(ctx context.Context, id uuid.UUID) error {
	return s.rewards.DeleteReward(ctx, id)
}

// GenerateCode returns a random 8 character code drawn from A-Z and 0-9.
func GenerateCode() string {
	buf := make([]byte, codeLength)
	if _, err := rand.Read(buf); err != nil {
		panic(fmt.Sprintf("crypto/rand: %v", err))
	}
	for i, b := range buf {
		buf[i] = codeAlphabet[int(b)%len(codeAlphabet)]
	}
	return string(buf)
}

// NormalizeCode upper-cases and trims code and reports whether the result is
// an acceptable coupon code.
func NormalizeCode(code string) (string, bool) {
	code = strings.ToUpper(strings.TrimSpace(code))
	return code, validateCode(code) == nil
}

func validateCode(code string) error {
	if len(code) < 3 || len(code) > maxCodeLength {
		return &ValidationError{Field: "code", Reason: fmt.Sprintf("must be 3 to %d characters", maxCodeLength)}
	}
	for _, r := range code {
		if !strings.ContainsRune(codeAlphabet, r) && r != '-' && r != '_' {
			return &ValidationError{Field: "code", Reason: "only letters, digits, '-' and '_' are allowed"}
		}
	}
	return nil
}
