package handler

import (
	"context"
	"net/http"
	"strings"

	"github.com/go-faster/sdk/zctx"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/doce-emergencia/storefront/internal/domain/auth"
	"github.com/doce-emergencia/storefront/internal/domain/cart"
)

// CartIDHeader carries the opaque cart id in both directions.
const CartIDHeader = "X-Cart-ID"

type cartIDKey struct{}

func bearerToken(r *http.Request) string {
	h := r.Header.Get("Authorization")
	scheme, token, ok := strings.Cut(h, " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") {
		return ""
	}
	return strings.TrimSpace(token)
}

// authenticate attaches the caller's principal when the request carries a
// valid bearer token. Missing or stale tokens leave the request anonymous;
// routes that need a user are wrapped with requireUser.
func (h *Handler) authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token := bearerToken(r)
		if token == "" {
			next.ServeHTTP(w, r)
			return
		}
		ctx := r.Context()
		p, err := h.accounts.Authenticate(ctx, token)
		if err != nil {
			zctx.From(ctx).Debug("Ignoring bearer token", zap.Error(err))
			next.ServeHTTP(w, r)
			return
		}
		ctx = auth.WithPrincipal(ctx, p)
		ctx = zctx.Base(ctx, zctx.From(ctx).With(zap.Stringer("user_id", p.UserID)))
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func requireUser(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if _, ok := auth.PrincipalFrom(r.Context()); !ok {
			fail(w, r, errSignInRequired)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// requireRole asks the role authority on every request; nothing about roles
// is cached client side or in the token.
func (h *Handler) requireRole(role auth.Role) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			p, ok := auth.PrincipalFrom(r.Context())
			if !ok {
				fail(w, r, errSignInRequired)
				return
			}
			if err := h.accounts.RequireRole(r.Context(), p.UserID, role); err != nil {
				fail(w, r, err)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// cartSession resolves the cart id from X-Cart-ID, issuing a new one when
// absent, and echoes it back.
func cartSession(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get(CartIDHeader)
		if id == "" {
			id = cart.NewID()
		} else if err := cart.ValidateID(id); err != nil {
			fail(w, r, err)
			return
		}
		w.Header().Set(CartIDHeader, id)
		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), cartIDKey{}, id)))
	})
}

func cartIDFrom(ctx context.Context) string {
	id, _ := ctx.Value(cartIDKey{}).(string)
	return id
}

// callerID is the signed-in user, or uuid.Nil for anonymous requests.
func callerID(ctx context.Context) uuid.UUID {
	p, _ := auth.PrincipalFrom(ctx)
	return p.UserID
}
