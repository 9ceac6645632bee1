package poll

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/go-faster/errors"
	"github.com/google/uuid"
)

const minOptions = 2

// ValidationError reports a rejected poll field.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

// OptionInput describes an option of a new poll.
type OptionInput struct {
	Title       string
	Description string
	ImageURL    string
}

// CreateInput describes a new poll.
type CreateInput struct {
	Title       string
	Description string
	StartsAt    *time.Time
	EndsAt      *time.Time
	Options     []OptionInput
}

// Service lists polls and records votes.
type Service struct {
	repo Repository
	now  func() time.Time
}

// NewService creates a poll Service.
func NewService(repo Repository) *Service {
	return &Service{repo: repo, now: time.Now}
}

// List returns the polls open now. userID may be uuid.Nil for anonymous
// callers.
func (s *Service) List(ctx context.Context, userID uuid.UUID) ([]Poll, error) {
	polls, err := s.repo.ListOpen(ctx, s.now(), userID)
	if err != nil {
		return nil, fmt.Errorf("list polls: %w", err)
	}
	for i := range polls {
		polls[i].Tally()
	}
	return polls, nil
}

// Vote records userID's choice of optionID in pollID and returns the updated
// poll.
func (s *Service) Vote(ctx context.Context, userID, pollID, optionID uuid.UUID) (*Poll, error) {
	if userID == uuid.Nil {
		return nil, ErrSignInRequired
	}
	p, err := s.repo.Get(ctx, pollID, userID)
	if err != nil {
		return nil, err
	}
	if !p.Open(s.now()) {
		return nil, ErrPollClosed
	}
	if _, ok := p.Option(optionID); !ok {
		return nil, ErrOptionNotFound
	}
	if p.VotedOption != nil {
		return nil, ErrAlreadyVoted
	}

	if err := s.repo.Vote(ctx, Vote{PollID: pollID, OptionID: optionID, UserID: userID}); err != nil {
		if errors.Is(err, ErrAlreadyVoted) {
			return nil, err
		}
		return nil, fmt.Errorf("store vote: %w", err)
	}

	p, err = s.repo.Get(ctx, pollID, userID)
	if err != nil {
		return nil, err
	}
	p.Tally()
	return p, nil
}

// Create validates in and stores a new active poll.
func (s *Service) Create(ctx context.Context, in CreateInput) (*Poll, error) {
	title := strings.TrimSpace(in.Title)
	if title == "" {
		return nil, &ValidationError{Field: "title", Reason: "required"}
	}
	if len(in.Options) < minOptions {
		return nil, &ValidationError{Field: "options", Reason: fmt.Sprintf("at least %d options required", minOptions)}
	}
	if in.StartsAt != nil && in.EndsAt != nil && !in.EndsAt.After(*in.StartsAt) {
		return nil, &ValidationError{Field: "ends_at", Reason: "must be after starts_at"}
	}

	p := &Poll{
		ID:          uuid.New(),
		Title:       title,
		Description: strings.TrimSpace(in.Description),
		IsActive:    true,
		StartsAt:    in.StartsAt,
		EndsAt:      in.EndsAt,
		CreatedAt:   s.now().UTC(),
	}
	for i, o := range in.Options {
		t := strings.TrimSpace(o.Title)
		if t == "" {
			return nil, &ValidationError{Field: fmt.Sprintf("options[%d].title", i), Reason: "required"}
		}
		p.Options = append(p.Options, Option{
			ID:          uuid.New(),
			Title:       t,
			Description: strings.TrimSpace(o.Description),
			ImageURL:    strings.TrimSpace(o.ImageURL),
			Position:    i,
		})
	}

	if err := s.repo.Create(ctx, p); err != nil {
		return nil, fmt.Errorf("create poll: %w", err)
	}
	return p, nil
}

// ListAll returns every poll with its tally.
func (s *Service) ListAll(ctx context.Context) ([]Poll, error) {
	polls, err := s.repo.ListAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("list polls: %w", err)
	}
	for i := range polls {
		polls[i].Tally()
	}
	return polls, nil
}

// SetActive opens or closes a poll.
func (s *Service) SetActive(ctx context.Context, id uuid.UUID, active bool) error {
	return s.repo.SetActive(ctx, id, active)
}

// Delete removes a poll with its options and votes.
func (s *Service) Delete(ctx context.Context, id uuid.UUID) error {
	return s.repo.Delete(ctx, id)
}
