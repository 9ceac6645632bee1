// Package loyalty relays coupon and reward redemptions to the database
// procedures that own the point rules, and manages the coupon and reward
// catalogs.
package loyalty

import (
	"context"
	"time"

	"github.com/go-faster/errors"
	"github.com/google/uuid"
)

// Sentinel errors for loyalty lookups and input.
var (
	ErrProfileNotFound = errors.New("profile not found")
	ErrCouponNotFound  = errors.New("coupon not found")
	ErrCouponExists    = errors.New("coupon code already exists")
	ErrRewardNotFound  = errors.New("reward not found")
	ErrCodeRequired    = errors.New("coupon code required")
)

// Outcome is the result of a redemption procedure: either Redeemed or
// Rejected. Callers switch on the concrete type.
type Outcome interface {
	outcome()
	// Text is the human readable message returned by the procedure.
	Text() string
}

// Redeemed reports a successful redemption. PointsDelta is positive when
// points were earned and negative when they were spent.
type Redeemed struct {
	Message     string
	PointsDelta int
	Balance     int
}

func (Redeemed) outcome() {}

// Text implements Outcome.
func (r Redeemed) Text() string { return r.Message }

// Rejected reports a redemption the procedure refused.
type Rejected struct {
	Message string
}

func (Rejected) outcome() {}

// Text implements Outcome.
func (r Rejected) Text() string { return r.Message }

// Profile is a customer's loyalty account.
type Profile struct {
	UserID      uuid.UUID
	DisplayName string
	Points      int
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// Coupon grants PointsValue points when redeemed.
type Coupon struct {
	ID          uuid.UUID
	Code        string
	Name        string
	Description string
	PointsValue int
	IsActive    bool
	MaxUses     *int
	CurrentUses int
	ValidFrom   time.Time
	ValidUntil  *time.Time
	CreatedAt   time.Time
}

// Reward can be bought with PointsCost points. A nil StockQuantity means
// unlimited stock.
type Reward struct {
	ID            uuid.UUID
	Name          string
	Description   string
	PointsCost    int
	Category      string
	StockQuantity *int
	IsActive      bool
	ImageURL      string
	CreatedAt     time.Time
}

// RedeemedCoupon is an entry of a customer's coupon history.
type RedeemedCoupon struct {
	ID           uuid.UUID
	CouponCode   string
	PointsEarned int
	RedeemedAt   time.Time
}

// UserReward is an entry of a customer's reward history.
type UserReward struct {
	ID          uuid.UUID
	RewardID    uuid.UUID
	RewardName  string
	PointsSpent int
	Status      string
	RedeemedAt  time.Time
}

// Backend invokes the redemption procedures.
type Backend interface {
	RedeemCoupon(ctx context.Context, userID uuid.UUID, code string) (Outcome, error)
	RedeemReward(ctx context.Context, userID, rewardID uuid.UUID) (Outcome, error)
}

// ProfileRepository reads and edits customer profiles and history.
type ProfileRepository interface {
	GetProfile(ctx context.Context, userID uuid.UUID) (*Profile, error)
	UpdateDisplayName(ctx context.Context, userID uuid.UUID, name string) (*Profile, error)
	RedeemedCoupons(ctx context.Context, userID uuid.UUID) ([]RedeemedCoupon, error)
	UserRewards(ctx context.Context, userID uuid.UUID) ([]UserReward, error)
}

// CouponRepository manages the coupon catalog.
type CouponRepository interface {
	CreateCoupon(ctx context.Context, c *Coupon) error
	ListCoupons(ctx context.Context) ([]Coupon, error)
	SetCouponActive(ctx context.Context, id uuid.UUID, active bool) error
	DeleteCoupon(ctx context.Context, id uuid.UUID) error
}

// RewardRepository manages the reward catalog.
type RewardRepository interface {
	CreateReward(ctx context.Context, r *Reward) error
	ListRewards(ctx context.Context, activeOnly bool) ([]Reward, error)
	SetRewardActive(ctx context.Context, id uuid.UUID, active bool) error
	DeleteReward(ctx context.Context, id uuid.UUID) error
}
