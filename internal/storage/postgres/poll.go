package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/go-faster/errors"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/doce-emergencia/storefront/internal/domain/poll"
)

const (
	pollColumns = `id, title, description, is_active, starts_at, ends_at, created_at`

	listOpenPollsSQL = `SELECT ` + pollColumns + ` FROM polls
		WHERE is_active
			AND (starts_at IS NULL OR starts_at <= $1)
			AND (ends_at IS NULL OR ends_at > $1)
		ORDER BY created_at DESC`

	listAllPollsSQL = `SELECT ` + pollColumns + ` FROM polls ORDER BY created_at DESC`

	getPollSQL = `SELECT ` + pollColumns + ` FROM polls WHERE id = $1`

	listPollOptionsSQL = `SELECT o.id, o.poll_id, o.title, o.description, o.image_url, o.position,
			COUNT(v.id)
		FROM poll_options o
		LEFT JOIN poll_votes v ON v.option_id = o.id
		WHERE o.poll_id = ANY($1)
		GROUP BY o.id
		ORDER BY o.position, o.title`

	listUserVotesSQL = `SELECT poll_id, option_id FROM poll_votes
		WHERE user_id = $1 AND poll_id = ANY($2)`

	insertVoteSQL = `INSERT INTO poll_votes (poll_id, option_id, user_id) VALUES ($1, $2, $3)`

	insertPollSQL = `INSERT INTO polls (id, title, description, is_active, starts_at, ends_at, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`

	insertPollOptionSQL = `INSERT INTO poll_options (id, poll_id, title, description, image_url, position)
		VALUES ($1, $2, $3, $4, $5, $6)`

	setPollActiveSQL = `UPDATE polls SET is_active = $2, updated_at = now() WHERE id = $1`

	deletePollSQL = `DELETE FROM polls WHERE id = $1`
)

var _ poll.Repository = (*PollRepository)(nil)

// PollRepository implements poll.Repository backed by PostgreSQL. Vote
// counts are aggregated from poll_votes on read.
type PollRepository struct {
	pool *pgxpool.Pool
}

// NewPollRepository returns a PollRepository that uses the given pool.
func NewPollRepository(pool *pgxpool.Pool) *PollRepository {
	return &PollRepository{pool: pool}
}

// ListOpen returns the polls open at now with their options and tallies.
func (r *PollRepository) ListOpen(ctx context.Context, now time.Time, userID uuid.UUID) ([]poll.Poll, error) {
	rows, err := r.pool.Query(ctx, listOpenPollsSQL, now)
	if err != nil {
		return nil, fmt.Errorf("listing open polls: %w", err)
	}
	polls, err := pgx.CollectRows(rows, scanPoll)
	if err != nil {
		return nil, fmt.Errorf("listing open polls: %w", err)
	}
	if err := r.fill(ctx, polls, userID); err != nil {
		return nil, err
	}
	return polls, nil
}

// ListAll returns every poll with options and tallies.
func (r *PollRepository) ListAll(ctx context.Context) ([]poll.Poll, error) {
	rows, err := r.pool.Query(ctx, listAllPollsSQL)
	if err != nil {
		return nil, fmt.Errorf("listing polls: %w", err)
	}
	polls, err := pgx.CollectRows(rows, scanPoll)
	if err != nil {
		return nil, fmt.Errorf("listing polls: %w", err)
	}
	if err := r.fill(ctx, polls, uuid.Nil); err != nil {
		return nil, err
	}
	return polls, nil
}

// Get returns a single poll. userID may be uuid.Nil.
func (r *PollRepository) Get(ctx context.Context, id, userID uuid.UUID) (*poll.Poll, error) {
	rows, err := r.pool.Query(ctx, getPollSQL, id)
	if err != nil {
		return nil, fmt.Errorf("getting poll %s: %w", id, err)
	}
	p, err := pgx.CollectExactlyOneRow(rows, scanPoll)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, poll.ErrPollNotFound
		}
		return nil, fmt.Errorf("getting poll %s: %w", id, err)
	}
	polls := []poll.Poll{p}
	if err := r.fill(ctx, polls, userID); err != nil {
		return nil, err
	}
	return &polls[0], nil
}

// fill attaches options with vote counts and, for a signed-in user, the
// option they voted for.
func (r *PollRepository) fill(ctx context.Context, polls []poll.Poll, userID uuid.UUID) error {
	if len(polls) == 0 {
		return nil
	}
	ids := make([]uuid.UUID, len(polls))
	index := make(map[uuid.UUID]int, len(polls))
	for i, p := range polls {
		ids[i] = p.ID
		index[p.ID] = i
	}

	rows, err := r.pool.Query(ctx, listPollOptionsSQL, ids)
	if err != nil {
		return fmt.Errorf("listing poll options: %w", err)
	}
	var (
		opt    poll.Option
		pollID uuid.UUID
	)
	_, err = pgx.ForEachRow(rows,
		[]any{&opt.ID, &pollID, &opt.Title, &opt.Description, &opt.ImageURL, &opt.Position, &opt.Votes},
		func() error {
			i := index[pollID]
			polls[i].Options = append(polls[i].Options, opt)
			return nil
		})
	if err != nil {
		return fmt.Errorf("listing poll options: %w", err)
	}

	if userID == uuid.Nil {
		return nil
	}
	rows, err = r.pool.Query(ctx, listUserVotesSQL, userID, ids)
	if err != nil {
		return fmt.Errorf("listing user votes: %w", err)
	}
	var optionID uuid.UUID
	_, err = pgx.ForEachRow(rows, []any{&pollID, &optionID}, func() error {
		voted := optionID
		polls[index[pollID]].VotedOption = &voted
		return nil
	})
	if err != nil {
		return fmt.Errorf("listing user votes: %w", err)
	}
	return nil
}

// Vote stores v. The one-vote-per-user constraint maps to
// poll.ErrAlreadyVoted.
func (r *PollRepository) Vote(ctx context.Context, v poll.Vote) error {
	if _, err := r.pool.Exec(ctx, insertVoteSQL, v.PollID, v.OptionID, v.UserID); err != nil {
		switch {
		case isUniqueViolation(err):
			return poll.ErrAlreadyVoted
		case isForeignKeyViolation(err):
			return poll.ErrOptionNotFound
		}
		return fmt.Errorf("storing vote: %w", err)
	}
	return nil
}

// Create inserts the poll and its options in one transaction.
func (r *PollRepository) Create(ctx context.Context, p *poll.Poll) error {
	err := pgx.BeginFunc(ctx, r.pool, func(tx pgx.Tx) error {
		batch := &pgx.Batch{}
		batch.Queue(insertPollSQL, p.ID, p.Title, p.Description, p.IsActive, p.StartsAt, p.EndsAt, p.CreatedAt)
		for _, o := range p.Options {
			batch.Queue(insertPollOptionSQL, o.ID, p.ID, o.Title, o.Description, o.ImageURL, o.Position)
		}
		return tx.SendBatch(ctx, batch).Close()
	})
	if err != nil {
		return fmt.Errorf("creating poll %q: %w", p.Title, err)
	}
	return nil
}

// SetActive opens or closes a poll.
func (r *PollRepository) SetActive(ctx context.Context, id uuid.UUID, active bool) error {
	if err := execOne(ctx, r.pool, poll.ErrPollNotFound, setPollActiveSQL, id, active); err != nil {
		return fmt.Errorf("updating poll %s: %w", id, err)
	}
	return nil
}

// Delete removes a poll; options and votes cascade.
func (r *PollRepository) Delete(ctx context.Context, id uuid.UUID) error {
	if err := execOne(ctx, r.pool, poll.ErrPollNotFound, deletePollSQL, id); err != nil {
		return fmt.Errorf("deleting poll %s: %w", id, err)
	}
	return nil
}

func scanPoll(row pgx.CollectableRow) (poll.Poll, error) {
	var p poll.Poll
	err := row.Scan(&p.ID, &p.Title, &p.Description, &p.IsActive, &p.StartsAt, &p.EndsAt, &p.CreatedAt)
	return p, err
}
