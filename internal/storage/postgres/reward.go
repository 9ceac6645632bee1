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
	rewardColumns = `id, name, description, points_cost, category, stock_quantity,
		is_active, image_url, created_at`

	createRewardSQL = `INSERT INTO rewards
		(id, name, description, points_cost, category, stock_quantity, is_active, image_url)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING created_at`

	listRewardsSQL = `SELECT ` + rewardColumns + ` FROM rewards
		WHERE is_active OR NOT $1
		ORDER BY points_cost, name`

	setRewardActiveSQL = `UPDATE rewards SET is_active = $2 WHERE id = $1`

	deleteRewardSQL = `DELETE FROM rewards WHERE id = $1`
)

var _ loyalty.RewardRepository = (*RewardRepository)(nil)

// RewardRepository implements loyalty.RewardRepository backed by PostgreSQL.
type RewardRepository struct {
	pool *pgxpool.Pool
}

// NewRewardRepository returns a RewardRepository that uses the given pool.
func NewRewardRepository(pool *pgxpool.Pool) *RewardRepository {
	return &RewardRepository{pool: pool}
}

// CreateReward inserts rw.
func (r *RewardRepository) CreateReward(ctx context.Context, rw *loyalty.Reward) error {
	err := r.pool.QueryRow(ctx, createRewardSQL,
		rw.ID, rw.Name, rw.Description, rw.PointsCost, rw.Category,
		rw.StockQuantity, rw.IsActive, rw.ImageURL,
	).Scan(&rw.CreatedAt)
	if err != nil {
		return fmt.Errorf("creating reward %q: %w", rw.Name, err)
	}
	return nil
}

// ListRewards returns rewards cheapest first, optionally only active ones.
func (r *RewardRepository) ListRewards(ctx context.Context, activeOnly bool) ([]loyalty.Reward, error) {
	rows, err := r.pool.Query(ctx, listRewardsSQL, activeOnly)
	if err != nil {
		return nil, fmt.Errorf("listing rewards: %w", err)
	}
	return pgx.CollectRows(rows, scanReward)
}

// SetRewardActive toggles a reward.
func (r *RewardRepository) SetRewardActive(ctx context.Context, id uuid.UUID, active bool) error {
	if err := execOne(ctx, r.pool, loyalty.ErrRewardNotFound, setRewardActiveSQL, id, active); err != nil {
		return fmt.Errorf("updating reward %s: %w", id, err)
	}
	return nil
}

// DeleteReward removes a reward together with its redemption history.
func (r *RewardRepository) DeleteReward(ctx context.Context, id uuid.UUID) error {
	if err := execOne(ctx, r.pool, loyalty.ErrRewardNotFound, deleteRewardSQL, id); err != nil {
		return fmt.Errorf("deleting reward %s: %w", id, err)
	}
	return nil
}

func scanReward(row pgx.CollectableRow) (loyalty.Reward, error) {
	var rw loyalty.Reward
	err := row.Scan(
		&rw.ID, &rw.Name, &rw.Description, &rw.PointsCost, &rw.Category,
		&rw.StockQuantity, &rw.IsActive, &rw.ImageURL, &rw.CreatedAt,
	)
	return rw, err
}
