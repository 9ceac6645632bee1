package postgres

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/doce-emergencia/storefront/internal/domain/loyalty"
)

const (
	couponColumns = `id, code, name, description, points_value, is_active,
		max_uses, current_uses, valid_from, valid_until, created_at`

	createCouponSQL = `INSERT INTO coupons
		(id, code, name, description, points_value, is_active, max_uses, valid_from, valid_until)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING created_at`

	listCouponsSQL = `SELECT ` + couponColumns + ` FROM coupons ORDER BY created_at DESC`

	setCouponActiveSQL = `UPDATE coupons SET is_active = $2 WHERE id = $1`

	deleteCouponSQL = `DELETE FROM coupons WHERE id = $1`
)

var _ loyalty.CouponRepository = (*CouponRepository)(nil)

// CouponRepository implements loyalty.CouponRepository backed by PostgreSQL.
type CouponRepository struct {
	pool *pgxpool.Pool
}

// NewCouponRepository returns a CouponRepository that uses the given pool.
func NewCouponRepository(pool *pgxpool.Pool) *CouponRepository {
	return &CouponRepository{pool: pool}
}

// CreateCoupon inserts c. A duplicate code yields loyalty.ErrCouponExists.
func (r *CouponRepository) CreateCoupon(ctx context.Context, c *loyalty.Coupon) error {
	err := r.pool.QueryRow(ctx, createCouponSQL,
		c.ID, c.Code, c.Name, c.Description, c.PointsValue, c.IsActive,
		c.MaxUses, c.ValidFrom, c.ValidUntil,
	).Scan(&c.CreatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return loyalty.ErrCouponExists
		}
		return fmt.Errorf("creating coupon %q: %w", c.Code, err)
	}
	return nil
}

// ListCoupons returns every coupon, newest first.
func (r *CouponRepository) ListCoupons(ctx context.Context) ([]loyalty.Coupon, error) {
	rows, err := r.pool.Query(ctx, listCouponsSQL)
	if err != nil {
		return nil, fmt.Errorf("listing coupons: %w", err)
	}
	return pgx.CollectRows(rows, scanCoupon)
}

// SetCouponActive toggles a coupon.
func (r *CouponRepository) SetCouponActive(ctx context.Context, id uuid.UUID, active bool) error {
	if err := execOne(ctx, r.pool, loyalty.ErrCouponNotFound, setCouponActiveSQL, id, active); err != nil {
		return fmt.Errorf("updating coupon %s: %w", id, err)
	}
	return nil
}

// DeleteCoupon removes a coupon. Redemption history keeps the code.
func (r *CouponRepository) DeleteCoupon(ctx context.Context, id uuid.UUID) error {
	if err := execOne(ctx, r.pool, loyalty.ErrCouponNotFound, deleteCouponSQL, id); err != nil {
		return fmt.Errorf("deleting coupon %s: %w", id, err)
	}
	return nil
}

// UpsertCodes stores codes as active coupons worth points each, skipping
// codes that already exist. It returns the number of coupons created.
func (r *CouponRepository) UpsertCodes(ctx context.Context, codes []string, name string, points int) (int64, error) {
	const upsertSQL = `INSERT INTO coupons (code, name, points_value)
		SELECT UPPER(code), $2, $3 FROM UNNEST($1::text[]) AS code
		ON CONFLICT (code) DO NOTHING`

	tag, err := r.pool.Exec(ctx, upsertSQL, codes, name, points)
	if err != nil {
		return 0, fmt.Errorf("upserting %d coupon codes: %w", len(codes), err)
	}
	return tag.RowsAffected(), nil
}

func scanCoupon(row pgx.CollectableRow) (loyalty.Coupon, error) {
	var c loyalty.Coupon
	err := row.Scan(
		&c.ID, &c.Code, &c.Name, &c.Description, &c.PointsValue, &c.IsActive,
		&c.MaxUses, &c.CurrentUses, &c.ValidFrom, &c.ValidUntil, &c.CreatedAt,
	)
	return c, err
}
