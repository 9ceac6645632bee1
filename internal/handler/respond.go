package handler

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"
	"github.com/go-faster/errors"
	"github.com/go-faster/sdk/zctx"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/doce-emergencia/storefront/internal/domain/auth"
	"github.com/doce-emergencia/storefront/internal/domain/cart"
	"github.com/doce-emergencia/storefront/internal/domain/checkout"
	"github.com/doce-emergencia/storefront/internal/domain/loyalty"
	"github.com/doce-emergencia/storefront/internal/domain/poll"
	"github.com/doce-emergencia/storefront/internal/domain/product"
)

const maxBodyBytes = 64 << 10

// errorResponse is the body of every non-2xx response.
type errorResponse struct {
	Code    int               `json:"code"`
	Message string            `json:"message"`
	Fields  map[string]string `json:"fields,omitempty"`
}

// badRequest reports a malformed request: unreadable body or path parameter.
type badRequest string

func (e badRequest) Error() string { return string(e) }

var errSignInRequired = errors.New("sign in required")

// statusOf pairs domain sentinels with response codes.
var statusOf = []struct {
	err    error
	status int
}{
	{cart.ErrInvalidID, http.StatusBadRequest},
	{checkout.ErrEmptyCart, http.StatusUnprocessableEntity},
	{product.ErrNotFound, http.StatusNotFound},

	{errSignInRequired, http.StatusUnauthorized},
	{auth.ErrInvalidCredentials, http.StatusUnauthorized},
	{auth.ErrInvalidToken, http.StatusUnauthorized},
	{auth.ErrForbidden, http.StatusForbidden},
	{auth.ErrEmailTaken, http.StatusConflict},

	{loyalty.ErrProfileNotFound, http.StatusNotFound},
	{loyalty.ErrCouponNotFound, http.StatusNotFound},
	{loyalty.ErrRewardNotFound, http.StatusNotFound},
	{loyalty.ErrCouponExists, http.StatusConflict},
	{loyalty.ErrCodeRequired, http.StatusUnprocessableEntity},

	{poll.ErrSignInRequired, http.StatusUnauthorized},
	{poll.ErrPollNotFound, http.StatusNotFound},
	{poll.ErrOptionNotFound, http.StatusUnprocessableEntity},
	{poll.ErrPollClosed, http.StatusConflict},
	{poll.ErrAlreadyVoted, http.StatusConflict},
}

func respond(w http.ResponseWriter, r *http.Request, status int, v any) {
	render.Status(r, status)
	render.JSON(w, r, v)
}

func noContent(w http.ResponseWriter) {
	w.WriteHeader(http.StatusNoContent)
}

// fail maps err to a status code and writes the error body. Unmapped errors
// are logged and reported as 500 without details.
func fail(w http.ResponseWriter, r *http.Request, err error) {
	resp := errorResponse{Code: http.StatusInternalServerError, Message: "internal server error"}

	var (
		bad         badRequest
		fieldErrs   validator.ValidationErrors
		checkoutErr *checkout.ValidationError
		authErr     *auth.ValidationError
		loyaltyErr  *loyalty.ValidationError
		pollErr     *poll.ValidationError
	)
	switch {
	case errors.As(err, &bad):
		resp = errorResponse{Code: http.StatusBadRequest, Message: bad.Error()}
	case errors.As(err, &fieldErrs):
		resp = errorResponse{Code: http.StatusUnprocessableEntity, Message: "invalid request", Fields: map[string]string{}}
		for _, fe := range fieldErrs {
			resp.Fields[fe.Field()] = fe.Tag()
		}
	case errors.As(err, &checkoutErr):
		resp = errorResponse{Code: http.StatusUnprocessableEntity, Message: "invalid customer details", Fields: checkoutErr.Fields}
	case errors.As(err, &authErr):
		resp = fieldError(authErr.Field, authErr.Reason)
	case errors.As(err, &loyaltyErr):
		resp = fieldError(loyaltyErr.Field, loyaltyErr.Reason)
	case errors.As(err, &pollErr):
		resp = fieldError(pollErr.Field, pollErr.Reason)
	default:
		for _, m := range statusOf {
			if errors.Is(err, m.err) {
				resp = errorResponse{Code: m.status, Message: m.err.Error()}
				break
			}
		}
	}

	if resp.Code >= http.StatusInternalServerError {
		zctx.From(r.Context()).Error("Handler failed", zap.Error(err))
	}
	respond(w, r, resp.Code, resp)
}

func fieldError(field, reason string) errorResponse {
	return errorResponse{
		Code:    http.StatusUnprocessableEntity,
		Message: "invalid " + field,
		Fields:  map[string]string{field: reason},
	}
}

// decode reads a JSON body into v and validates it.
func (h *Handler) decode(w http.ResponseWriter, r *http.Request, v any) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := render.DecodeJSON(r.Body, v); err != nil {
		return badRequest("malformed JSON body")
	}
	return h.validate.Struct(v)
}

func productIDParam(r *http.Request) (int64, error) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id <= 0 {
		return 0, badRequest("invalid product id")
	}
	return id, nil
}

func uuidParam(r *http.Request) (uuid.UUID, error) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		return uuid.Nil, badRequest("invalid id")
	}
	return id, nil
}
