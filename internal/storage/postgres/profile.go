package postgres

import (
	"context"
	"fmt"

	"github.com/go-faster/errors"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/doce-emergencia/storefront/internal/domain/loyalty"
)

const (
	getProfileSQL = `SELECT user_id, display_name, points, created_at, updated_at
		FROM profiles WHERE user_id = $1`

	updateDisplayNameSQL = `UPDATE profiles SET display_name = $2, updated_at = now()
		WHERE user_id = $1
		RETURNING user_id, display_name, points, created_at, updated_at`

	listRedeemedCouponsSQL = `SELECT id, coupon_code, points_earned, redeemed_at
		FROM redeemed_coupons WHERE user_id = $1 ORDER BY redeemed_at DESC`

	listUserRewardsSQL = `SELECT ur.id, ur.reward_id, r.name, ur.points_spent, ur.status, ur.redeemed_at
		FROM user_rewards ur JOIN rewards r ON r.id = ur.reward_id
		WHERE ur.user_id = $1 ORDER BY ur.redeemed_at DESC`
)

var _ loyalty.ProfileRepository = (*ProfileRepository)(nil)

// ProfileRepository implements loyalty.ProfileRepository backed by PostgreSQL.
type ProfileRepository struct {
	pool *pgxpool.Pool
}

// NewProfileRepository returns a ProfileRepository that uses the given pool.
func NewProfileRepository(pool *pgxpool.Pool) *ProfileRepository {
	return &ProfileRepository{pool: pool}
}

// GetProfile returns the profile of userID.
func (r *ProfileRepository) GetProfile(ctx context.Context, userID uuid.UUID) (*loyalty.Profile, error) {
	return r.profileRow(ctx, getProfileSQL, userID)
}

// UpdateDisplayName sets the display name and returns the updated profile.
func (r *ProfileRepository) UpdateDisplayName(ctx context.Context, userID uuid.UUID, name string) (*loyalty.Profile, error) {
	return r.profileRow(ctx, updateDisplayNameSQL, userID, name)
}

func (r *ProfileRepository) profileRow(ctx context.Context, sql string, userID uuid.UUID, args ...any) (*loyalty.Profile, error) {
	rows, err := r.pool.Query(ctx, sql, append([]any{userID}, args...)...)
	if err != nil {
		return nil, fmt.Errorf("querying profile %s: %w", userID, err)
	}
	p, err := pgx.CollectExactlyOneRow(rows, scanProfile)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, loyalty.ErrProfileNotFound
		}
		return nil, fmt.Errorf("querying profile %s: %w", userID, err)
	}
	return &p, nil
}

// RedeemedCoupons returns the coupon history of userID, newest first.
func (r *ProfileRepository) RedeemedCoupons(ctx context.Context, userID uuid.UUID) ([]loyalty.RedeemedCoupon, error) {
	rows, err := r.pool.Query(ctx, listRedeemedCouponsSQL, userID)
	if err != nil {
		return nil, fmt.Errorf("listing redeemed coupons: %w", err)
	}
	return pgx.CollectRows(rows, func(row pgx.CollectableRow) (loyalty.RedeemedCoupon, error) {
		var c loyalty.RedeemedCoupon
		err := row.Scan(&c.ID, &c.CouponCode, &c.PointsEarned, &c.RedeemedAt)
		return c, err
	})
}

// UserRewards returns the reward history of userID, newest first.
func (r *ProfileRepository) UserRewards(ctx context.Context, userID uuid.UUID) ([]loyalty.UserReward, error) {
	rows, err := r.pool.Query(ctx, listUserRewardsSQL, userID)
	if err != nil {
		return nil, fmt.Errorf("listing user rewards: %w", err)
	}
	return pgx.CollectRows(rows, func(row pgx.CollectableRow) (loyalty.UserReward, error) {
		var ur loyalty.UserReward
		err := row.Scan(&ur.ID, &ur.RewardID, &ur.RewardName, &ur.PointsSpent, &ur.Status, &ur.RedeemedAt)
		return ur, err
	})
}

func scanProfile(row pgx.CollectableRow) (loyalty.Profile, error) {
	var p loyalty.Profile
	err := row.Scan(&p.UserID, &p.DisplayName, &p.Points, &p.CreatedAt, &p.UpdatedAt)
	return p, err
}
