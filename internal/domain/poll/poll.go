// Package poll implements the community polls customers vote on.
package poll

import (
	"context"
	"math"
	"time"

	"github.com/go-faster/errors"
	"github.com/google/uuid"
)

var (
	ErrPollNotFound   = errors.New("poll not found")
	ErrOptionNotFound = errors.New("option does not belong to poll")
	ErrPollClosed     = errors.New("poll is not open for voting")
	ErrAlreadyVoted   = errors.New("user already voted in this poll")
	ErrSignInRequired = errors.New("sign in to vote")
)

// Option is one choice in a poll, with its tally.
type Option struct {
	ID          uuid.UUID
	Title       string
	Description string
	ImageURL    string
	Position    int
	Votes       int
	// Percent is Votes over the poll total, rounded half up.
	Percent int
}

// Poll is a question with ordered options.
type Poll struct {
	ID          uuid.UUID
	Title       string
	Description string
	IsActive    bool
	StartsAt    *time.Time
	EndsAt      *time.Time
	CreatedAt   time.Time
	Options     []Option
	TotalVotes  int
	// VotedOption is the option the caller picked, nil when the caller has
	// not voted or is anonymous.
	VotedOption *uuid.UUID
}

// Open reports whether the poll accepts votes at now.
func (p *Poll) Open(now time.Time) bool {
	if !p.IsActive {
		return false
	}
	if p.StartsAt != nil && now.Before(*p.StartsAt) {
		return false
	}
	if p.EndsAt != nil && !now.Before(*p.EndsAt) {
		return false
	}
	return true
}

// Option returns the option with id.
func (p *Poll) Option(id uuid.UUID) (Option, bool) {
	for _, o := range p.Options {
		if o.ID == id {
			return o, true
		}
	}
	return Option{}, false
}

// Tally fills TotalVotes and every option's Percent from the vote counts.
func (p *Poll) Tally() {
	total := 0
	for _, o := range p.Options {
		total += o.Votes
	}
	p.TotalVotes = total
	for i := range p.Options {
		p.Options[i].Percent = percent(p.Options[i].Votes, total)
	}
}

func percent(votes, total int) int {
	if total <= 0 {
		return 0
	}
	return int(math.Floor(float64(votes)*100/float64(total) + 0.5))
}

// Vote is a single user's choice.
type Vote struct {
	PollID   uuid.UUID
	OptionID uuid.UUID
	UserID   uuid.UUID
}

// Repository persists polls and votes. Vote counts are derived from stored
// votes, never stored directly.
type Repository interface {
	// ListOpen returns active polls within their window at now. When userID
	// is not uuid.Nil, VotedOption is filled in.
	ListOpen(ctx context.Context, now time.Time, userID uuid.UUID) ([]Poll, error)
	// ListAll returns every poll for the admin screen.
	ListAll(ctx context.Context) ([]Poll, error)
	Get(ctx context.Context, id, userID uuid.UUID) (*Poll, error)
	// Vote stores v; returns ErrAlreadyVoted when the user already voted in
	// the poll.
	Vote(ctx context.Context, v Vote) error
	Create(ctx context.Context, p *Poll) error
	SetActive(ctx context.Context, id uuid.UUID, active bool) error
	Delete(ctx context.Context, id uuid.UUID) error
}
