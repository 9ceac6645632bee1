package postgres

import (
	"context"
	"fmt"

	"github.com/go-faster/errors"
	"github.com/go-faster/jx"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/doce-emergencia/storefront/internal/domain/loyalty"
)

const (
	redeemCouponSQL = `SELECT redeem_coupon($1, $2)::text`
	redeemRewardSQL = `SELECT redeem_reward($1, $2)::text`
)

var _ loyalty.Backend = (*Backend)(nil)

// Backend calls the redemption procedures stored in the database.
type Backend struct {
	pool *pgxpool.Pool
}

// NewBackend returns a Backend that uses the given pool.
func NewBackend(pool *pgxpool.Pool) *Backend {
	return &Backend{pool: pool}
}

// RedeemCoupon calls redeem_coupon.
func (b *Backend) RedeemCoupon(ctx context.Context, userID uuid.UUID, code string) (loyalty.Outcome, error) {
	return b.call(ctx, "redeem_coupon", redeemCouponSQL, userID, code)
}

// RedeemReward calls redeem_reward.
func (b *Backend) RedeemReward(ctx context.Context, userID, rewardID uuid.UUID) (loyalty.Outcome, error) {
	return b.call(ctx, "redeem_reward", redeemRewardSQL, userID, rewardID)
}

func (b *Backend) call(ctx context.Context, name, sql string, args ...any) (loyalty.Outcome, error) {
	var raw []byte
	if err := b.pool.QueryRow(ctx, sql, args...).Scan(&raw); err != nil {
		return nil, fmt.Errorf("calling %s: %w", name, err)
	}
	out, err := DecodeOutcome(raw)
	if err != nil {
		return nil, fmt.Errorf("decoding %s result: %w", name, err)
	}
	return out, nil
}

// DecodeOutcome converts the JSON object returned by a redemption procedure
// into a loyalty.Outcome. Points earned count positive, points spent
// negative.
func DecodeOutcome(raw []byte) (loyalty.Outcome, error) {
	var (
		success    bool
		hasSuccess bool
		message    string
		earned     int
		spent      int
		balance    int
	)
	d := jx.DecodeBytes(raw)
	err := d.Obj(func(d *jx.Decoder, key string) error {
		if d.Next() == jx.Null {
			return d.Null()
		}
		var err error
		switch key {
		case "success":
			hasSuccess = true
			success, err = d.Bool()
		case "message":
			message, err = d.Str()
		case "points_earned":
			earned, err = d.Int()
		case "points_spent":
			spent, err = d.Int()
		case "new_balance":
			balance, err = d.Int()
		default:
			err = d.Skip()
		}
		return err
	})
	if err != nil {
		return nil, err
	}
	if !hasSuccess {
		return nil, errors.New("missing success field")
	}

	if !success {
		return loyalty.Rejected{Message: message}, nil
	}
	return loyalty.Redeemed{
		Message:     message,
		PointsDelta: earned - spent,
		Balance:     balance,
	}, nil
}
