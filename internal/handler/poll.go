package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/doce-emergencia/storefront/internal/domain/poll"
)

type pollOptionView struct {
	ID          uuid.UUID `json:"id"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
	ImageURL    string    `json:"image_url"`
	Votes       int       `json:"votes"`
	Percent     int       `json:"percent"`
}

type pollView struct {
	ID          uuid.UUID        `json:"id"`
	Title       string           `json:"title"`
	Description string           `json:"description"`
	IsActive    bool             `json:"is_active"`
	StartsAt    *time.Time       `json:"starts_at"`
	EndsAt      *time.Time       `json:"ends_at"`
	TotalVotes  int              `json:"total_votes"`
	VotedOption *uuid.UUID       `json:"voted_option_id"`
	Options     []pollOptionView `json:"options"`
}

func newPollView(p poll.Poll) pollView {
	v := pollView{
		ID:          p.ID,
		Title:       p.Title,
		Description: p.Description,
		IsActive:    p.IsActive,
		StartsAt:    p.StartsAt,
		EndsAt:      p.EndsAt,
		TotalVotes:  p.TotalVotes,
		VotedOption: p.VotedOption,
		Options:     make([]pollOptionView, len(p.Options)),
	}
	for i, o := range p.Options {
		v.Options[i] = pollOptionView{
			ID:          o.ID,
			Title:       o.Title,
			Description: o.Description,
			ImageURL:    o.ImageURL,
			Votes:       o.Votes,
			Percent:     o.Percent,
		}
	}
	return v
}

func pollViews(polls []poll.Poll) []pollView {
	out := make([]pollView, len(polls))
	for i, p := range polls {
		out[i] = newPollView(p)
	}
	return out
}

type voteRequest struct {
	OptionID string `json:"option_id" validate:"required,uuid"`
}

func (h *Handler) listPolls(w http.ResponseWriter, r *http.Request) {
	polls, err := h.polls.List(r.Context(), callerID(r.Context()))
	if err != nil {
		fail(w, r, err)
		return
	}
	respond(w, r, http.StatusOK, pollViews(polls))
}

func (h *Handler) vote(w http.ResponseWriter, r *http.Request) {
	pollID, err := uuidParam(r)
	if err != nil {
		fail(w, r, err)
		return
	}
	var req voteRequest
	if err := h.decode(w, r, &req); err != nil {
		fail(w, r, err)
		return
	}
	p, err := h.polls.Vote(r.Context(), callerID(r.Context()), pollID, uuid.MustParse(req.OptionID))
	if err != nil {
		fail(w, r, err)
		return
	}
	respond(w, r, http.StatusOK, newPollView(*p))
}

type pollOptionRequest struct {
	Title       string `json:"title" validate:"max=120"`
	Description string `json:"description" validate:"max=500"`
	ImageURL    string `json:"image_url" validate:"max=2048"`
}

type createPollRequest struct {
	Title       string              `json:"title" validate:"max=200"`
	Description string              `json:"description" validate:"max=1000"`
	StartsAt    *time.Time          `json:"starts_at"`
	EndsAt      *time.Time          `json:"ends_at"`
	Options     []pollOptionRequest `json:"options" validate:"max=20,dive"`
}

func (h *Handler) adminListPolls(w http.ResponseWriter, r *http.Request) {
	polls, err := h.polls.ListAll(r.Context())
	if err != nil {
		fail(w, r, err)
		return
	}
	respond(w, r, http.StatusOK, pollViews(polls))
}

func (h *Handler) adminCreatePoll(w http.ResponseWriter, r *http.Request) {
	var req createPollRequest
	if err := h.decode(w, r, &req); err != nil {
		fail(w, r, err)
		return
	}
	in := poll.CreateInput{
		Title:       req.Title,
		Description: req.Description,
		StartsAt:    req.StartsAt,
		EndsAt:      req.EndsAt,
		Options:     make([]poll.OptionInput, len(req.Options)),
	}
	for i, o := range req.Options {
		in.Options[i] = poll.OptionInput{Title: o.Title, Description: o.Description, ImageURL: o.ImageURL}
	}
	p, err := h.polls.Create(r.Context(), in)
	if err != nil {
		fail(w, r, err)
		return
	}
	respond(w, r, http.StatusCreated, newPollView(*p))
}

func (h *Handler) adminSetPollActive(w http.ResponseWriter, r *http.Request) {
	h.setActive(w, r, h.polls.SetActive)
}

func (h *Handler) adminDeletePoll(w http.ResponseWriter, r *http.Request) {
	h.deleteByID(w, r, h.polls.Delete)
}

func (h *Handler) setActive(w http.ResponseWriter, r *http.Request, set func(ctx context.Context, id uuid.UUID, active bool) error) {
	id, err := uuidParam(r)
	if err != nil {
		fail(w, r, err)
		return
	}
	var req setActiveRequest
	if err := h.decode(w, r, &req); err != nil {
		fail(w, r, err)
		return
	}
	if err := set(r.Context(), id, *req.IsActive); err != nil {
		fail(w, r, err)
		return
	}
	noContent(w)
}

func (h *Handler) deleteByID(w http.ResponseWriter, r *http.Request, del func(ctx context.Context, id uuid.UUID) error) {
	id, err := uuidParam(r)
	if err != nil {
		fail(w, r, err)
		return
	}
	if err := del(r.Context(), id); err != nil {
		fail(w, r, err)
		return
	}
	noContent(w)
}
