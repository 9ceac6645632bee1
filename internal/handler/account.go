package handler

import (
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/doce-emergencia/storefront/internal/domain/auth"
	"github.com/doce-emergencia/storefront/internal/domain/loyalty"
)

type signUpRequest struct {
	Email           string `json:"email" validate:"max=254"`
	Password        string `json:"password" validate:"max=128"`
	ConfirmPassword string `json:"confirm_password" validate:"max=128"`
	DisplayName     string `json:"display_name" validate:"max=80"`
}

type signInRequest struct {
	Email    string `json:"email" validate:"required,email,max=254"`
	Password string `json:"password" validate:"required,max=128"`
}

type sessionResponse struct {
	Token     string    `json:"token"`
	TokenType string    `json:"token_type"`
	UserID    uuid.UUID `json:"user_id"`
	Email     string    `json:"email"`
	ExpiresAt time.Time `json:"expires_at"`
}

type principalResponse struct {
	UserID    uuid.UUID `json:"user_id"`
	SessionID uuid.UUID `json:"session_id"`
	ExpiresAt time.Time `json:"expires_at"`
	IsAdmin   bool      `json:"is_admin"`
}

func (h *Handler) signUp(w http.ResponseWriter, r *http.Request) {
	var req signUpRequest
	if err := h.decode(w, r, &req); err != nil {
		fail(w, r, err)
		return
	}
	u, err := h.accounts.SignUp(r.Context(), auth.SignUpRequest{
		Email:           req.Email,
		Password:        req.Password,
		ConfirmPassword: req.ConfirmPassword,
		DisplayName:     req.DisplayName,
	})
	if err != nil {
		fail(w, r, err)
		return
	}
	respond(w, r, http.StatusCreated, map[string]any{
		"user_id": u.ID,
		"email":   u.Email,
	})
}

func (h *Handler) signIn(w http.ResponseWriter, r *http.Request) {
	var req signInRequest
	if err := h.decode(w, r, &req); err != nil {
		fail(w, r, err)
		return
	}
	s, err := h.accounts.SignIn(r.Context(), req.Email, req.Password)
	if err != nil {
		fail(w, r, err)
		return
	}
	respond(w, r, http.StatusOK, sessionResponse{
		Token:     s.Token,
		TokenType: "Bearer",
		UserID:    s.UserID,
		Email:     s.Email,
		ExpiresAt: s.ExpiresAt,
	})
}

// signOut revokes the presented session. Revoking an already revoked
// session succeeds.
func (h *Handler) signOut(w http.ResponseWriter, r *http.Request) {
	token := bearerToken(r)
	if token == "" {
		fail(w, r, errSignInRequired)
		return
	}
	if err := h.accounts.SignOut(r.Context(), token); err != nil {
		fail(w, r, err)
		return
	}
	noContent(w)
}

func (h *Handler) session(w http.ResponseWriter, r *http.Request) {
	p, _ := auth.PrincipalFrom(r.Context())
	isAdmin, err := h.accounts.HasRole(r.Context(), p.UserID, auth.RoleAdmin)
	if err != nil {
		fail(w, r, err)
		return
	}
	respond(w, r, http.StatusOK, principalResponse{
		UserID:    p.UserID,
		SessionID: p.SessionID,
		ExpiresAt: p.ExpiresAt,
		IsAdmin:   isAdmin,
	})
}

type levelView struct {
	Name      string `json:"name"`
	MinPoints int    `json:"min_points"`
}

type profileView struct {
	UserID       uuid.UUID  `json:"user_id"`
	DisplayName  string     `json:"display_name"`
	Points       int        `json:"points"`
	Level        levelView  `json:"level"`
	NextLevel    *levelView `json:"next_level"`
	PointsToNext int        `json:"points_to_next"`
	CreatedAt    time.Time  `json:"created_at"`
}

func newProfileView(p *loyalty.ProfileView) profileView {
	v := profileView{
		UserID:       p.UserID,
		DisplayName:  p.DisplayName,
		Points:       p.Points,
		Level:        levelView{Name: p.Level.Name, MinPoints: p.Level.MinPoints},
		PointsToNext: p.PointsToNext,
		CreatedAt:    p.CreatedAt,
	}
	if p.Next != nil {
		v.NextLevel = &levelView{Name: p.Next.Name, MinPoints: p.Next.MinPoints}
	}
	return v
}

type updateProfileRequest struct {
	DisplayName string `json:"display_name" validate:"required,max=80"`
}

func (h *Handler) profile(w http.ResponseWriter, r *http.Request) {
	p, err := h.loyalty.Profile(r.Context(), callerID(r.Context()))
	if err != nil {
		fail(w, r, err)
		return
	}
	respond(w, r, http.StatusOK, newProfileView(p))
}

func (h *Handler) updateProfile(w http.ResponseWriter, r *http.Request) {
	var req updateProfileRequest
	if err := h.decode(w, r, &req); err != nil {
		fail(w, r, err)
		return
	}
	p, err := h.loyalty.UpdateDisplayName(r.Context(), callerID(r.Context()), req.DisplayName)
	if err != nil {
		fail(w, r, err)
		return
	}
	respond(w, r, http.StatusOK, newProfileView(p))
}
