package handler

import (
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/doce-emergencia/storefront/internal/domain/loyalty"
)

// outcomeResponse renders a redemption result. Rejections are ordinary
// 200 responses with Success false.
type outcomeResponse struct {
	Success     bool   `json:"success"`
	Message     string `json:"message"`
	PointsDelta int    `json:"points_delta,omitempty"`
	Balance     *int   `json:"new_balance,omitempty"`
}

func newOutcomeResponse(out loyalty.Outcome) outcomeResponse {
	switch o := out.(type) {
	case loyalty.Redeemed:
		balance := o.Balance
		return outcomeResponse{Success: true, Message: o.Message, PointsDelta: o.PointsDelta, Balance: &balance}
	case loyalty.Rejected:
		return outcomeResponse{Success: false, Message: o.Message}
	default:
		return outcomeResponse{Success: false, Message: out.Text()}
	}
}

type redeemCouponRequest struct {
	Code string `json:"code" validate:"required,max=32"`
}

func (h *Handler) redeemCoupon(w http.ResponseWriter, r *http.Request) {
	var req redeemCouponRequest
	if err := h.decode(w, r, &req); err != nil {
		fail(w, r, err)
		return
	}
	out, err := h.loyalty.RedeemCoupon(r.Context(), callerID(r.Context()), req.Code)
	if err != nil {
		fail(w, r, err)
		return
	}
	respond(w, r, http.StatusOK, newOutcomeResponse(out))
}

func (h *Handler) redeemReward(w http.ResponseWriter, r *http.Request) {
	rewardID, err := uuidParam(r)
	if err != nil {
		fail(w, r, err)
		return
	}
	out, err := h.loyalty.RedeemReward(r.Context(), callerID(r.Context()), rewardID)
	if err != nil {
		fail(w, r, err)
		return
	}
	respond(w, r, http.StatusOK, newOutcomeResponse(out))
}

type redeemedCouponView struct {
	ID           uuid.UUID `json:"id"`
	CouponCode   string    `json:"coupon_code"`
	PointsEarned int       `json:"points_earned"`
	RedeemedAt   time.Time `json:"redeemed_at"`
}

func (h *Handler) redeemedCoupons(w http.ResponseWriter, r *http.Request) {
	history, err := h.loyalty.RedeemedCoupons(r.Context(), callerID(r.Context()))
	if err != nil {
		fail(w, r, err)
		return
	}
	out := make([]redeemedCouponView, len(history))
	for i, c := range history {
		out[i] = redeemedCouponView{ID: c.ID, CouponCode: c.CouponCode, PointsEarned: c.PointsEarned, RedeemedAt: c.RedeemedAt}
	}
	respond(w, r, http.StatusOK, out)
}

type userRewardView struct {
	ID          uuid.UUID `json:"id"`
	RewardID    uuid.UUID `json:"reward_id"`
	RewardName  string    `json:"reward_name"`
	PointsSpent int       `json:"points_spent"`
	Status      string    `json:"status"`
	RedeemedAt  time.Time `json:"redeemed_at"`
}

func (h *Handler) userRewards(w http.ResponseWriter, r *http.Request) {
	history, err := h.loyalty.UserRewards(r.Context(), callerID(r.Context()))
	if err != nil {
		fail(w, r, err)
		return
	}
	out := make([]userRewardView, len(history))
	for i, ur := range history {
		out[i] = userRewardView{
			ID:          ur.ID,
			RewardID:    ur.RewardID,
			RewardName:  ur.RewardName,
			PointsSpent: ur.PointsSpent,
			Status:      ur.Status,
			RedeemedAt:  ur.RedeemedAt,
		}
	}
	respond(w, r, http.StatusOK, out)
}

type rewardView struct {
	ID            uuid.UUID `json:"id"`
	Name          string    `json:"name"`
	Description   string    `json:"description"`
	PointsCost    int       `json:"points_cost"`
	Category      string    `json:"category"`
	StockQuantity *int      `json:"stock_quantity"`
	IsActive      bool      `json:"is_active"`
	ImageURL      string    `json:"image_url"`
	CreatedAt     time.Time `json:"created_at"`
}

func newRewardView(rw loyalty.Reward) rewardView {
	return rewardView{
		ID:            rw.ID,
		Name:          rw.Name,
		Description:   rw.Description,
		PointsCost:    rw.PointsCost,
		Category:      rw.Category,
		StockQuantity: rw.StockQuantity,
		IsActive:      rw.IsActive,
		ImageURL:      rw.ImageURL,
		CreatedAt:     rw.CreatedAt,
	}
}

func rewardViews(rewards []loyalty.Reward) []rewardView {
	out := make([]rewardView, len(rewards))
	for i, rw := range rewards {
		out[i] = newRewardView(rw)
	}
	return out
}

func (h *Handler) activeRewards(w http.ResponseWriter, r *http.Request) {
	rewards, err := h.loyalty.ActiveRewards(r.Context())
	if err != nil {
		fail(w, r, err)
		return
	}
	respond(w, r, http.StatusOK, rewardViews(rewards))
}

type couponView struct {
	ID          uuid.UUID  `json:"id"`
	Code        string     `json:"code"`
	Name        string     `json:"name"`
	Description string     `json:"description"`
	PointsValue int        `json:"points_value"`
	IsActive    bool       `json:"is_active"`
	MaxUses     *int       `json:"max_uses"`
	CurrentUses int        `json:"current_uses"`
	ValidFrom   time.Time  `json:"valid_from"`
	ValidUntil  *time.Time `json:"valid_until"`
	CreatedAt   time.Time  `json:"created_at"`
}

func newCouponView(c loyalty.Coupon) couponView {
	return couponView{
		ID:          c.ID,
		Code:        c.Code,
		Name:        c.Name,
		Description: c.Description,
		PointsValue: c.PointsValue,
		IsActive:    c.IsActive,
		MaxUses:     c.MaxUses,
		CurrentUses: c.CurrentUses,
		ValidFrom:   c.ValidFrom,
		ValidUntil:  c.ValidUntil,
		CreatedAt:   c.CreatedAt,
	}
}

type createCouponRequest struct {
	Code        string     `json:"code" validate:"max=32"`
	Name        string     `json:"name" validate:"required,max=120"`
	Description string     `json:"description" validate:"max=500"`
	PointsValue int        `json:"points_value" validate:"gt=0"`
	MaxUses     *int       `json:"max_uses" validate:"omitempty,gt=0"`
	ValidFrom   *time.Time `json:"valid_from"`
	ValidUntil  *time.Time `json:"valid_until"`
}

type createRewardRequest struct {
	Name          string `json:"name" validate:"required,max=120"`
	Description   string `json:"description" validate:"max=500"`
	PointsCost    int    `json:"points_cost" validate:"gt=0"`
	Category      string `json:"category" validate:"max=60"`
	StockQuantity *int   `json:"stock_quantity" validate:"omitempty,gte=0"`
	ImageURL      string `json:"image_url" validate:"omitempty,max=2048"`
}

// setActiveRequest toggles is_active on coupons, rewards and polls.
type setActiveRequest struct {
	IsActive *bool `json:"is_active" validate:"required"`
}

func (h *Handler) adminListCoupons(w http.ResponseWriter, r *http.Request) {
	coupons, err := h.loyalty.ListCoupons(r.Context())
	if err != nil {
		fail(w, r, err)
		return
	}
	out := make([]couponView, len(coupons))
	for i, c := range coupons {
		out[i] = newCouponView(c)
	}
	respond(w, r, http.StatusOK, out)
}

func (h *Handler) adminCreateCoupon(w http.ResponseWriter, r *http.Request) {
	var req createCouponRequest
	if err := h.decode(w, r, &req); err != nil {
		fail(w, r, err)
		return
	}
	c, err := h.loyalty.CreateCoupon(r.Context(), loyalty.CouponInput{
		Code:        req.Code,
		Name:        req.Name,
		Description: req.Description,
		PointsValue: req.PointsValue,
		MaxUses:     req.MaxUses,
		ValidFrom:   req.ValidFrom,
		ValidUntil:  req.ValidUntil,
	})
	if err != nil {
		fail(w, r, err)
		return
	}
	respond(w, r, http.StatusCreated, newCouponView(*c))
}

func (h *Handler) adminSetCouponActive(w http.ResponseWriter, r *http.Request) {
	h.setActive(w, r, h.loyalty.SetCouponActive)
}

func (h *Handler) adminDeleteCoupon(w http.ResponseWriter, r *http.Request) {
	h.deleteByID(w, r, h.loyalty.DeleteCoupon)
}

func (h *Handler) adminListRewards(w http.ResponseWriter, r *http.Request) {
	rewards, err := h.loyalty.ListRewards(r.Context())
	if err != nil {
		fail(w, r, err)
		return
	}
	respond(w, r, http.StatusOK, rewardViews(rewards))
}

func (h *Handler) adminCreateReward(w http.ResponseWriter, r *http.Request) {
	var req createRewardRequest
	if err := h.decode(w, r, &req); err != nil {
		fail(w, r, err)
		return
	}
	rw, err := h.loyalty.CreateReward(r.Context(), loyalty.RewardInput{
		Name:          req.Name,
		Description:   req.Description,
		PointsCost:    req.PointsCost,
		Category:      req.Category,
		StockQuantity: req.StockQuantity,
		ImageURL:      req.ImageURL,
	})
	if err != nil {
		fail(w, r, err)
		return
	}
	respond(w, r, http.StatusCreated, newRewardView(*rw))
}

func (h *Handler) adminSetRewardActive(w http.ResponseWriter, r *http.Request) {
	h.setActive(w, r, h.loyalty.SetRewardActive)
}

func (h *Handler) adminDeleteReward(w http.ResponseWriter, r *http.Request) {
	h.deleteByID(w, r, h.loyalty.DeleteReward)
}
