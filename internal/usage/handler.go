package usage

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"

	"github.com/img2prompt/service/internal/apperr"
	"github.com/img2prompt/service/internal/middleware"
	"github.com/img2prompt/service/internal/response"
)

// QuotaService is the part of Service the handlers call.
type QuotaService interface {
	CanUserUseService(ctx context.Context, userID, email string) (*Status, error)
	UpdateUserSubscription(ctx context.Context, userID, plan string) error
	RecordUse(ctx context.Context, userID, email string) (*Status, error)
}

// Handler holds HTTP handlers for usage and subscription endpoints.
type Handler struct {
	svc      QuotaService
	validate *validator.Validate
	log      zerolog.Logger
}

// NewHandler creates a new usage Handler.
func NewHandler(svc QuotaService, log zerolog.Logger) *Handler {
	return &Handler{
		svc:      svc,
		validate: validator.New(validator.WithRequiredStructEnabled()),
		log:      log,
	}
}

type usageData struct {
	Subscription  string `json:"subscription"  example:"free"`
	RemainingUses int    `json:"remainingUses" example:"4"`
	CanUse        bool   `json:"canUse"        example:"true"`
	ResetDate     string `json:"resetDate"     example:"2026-11-16T09:30:00Z"`
}

type subscriptionRequest struct {
	Subscription string `json:"subscription" validate:"required,oneof=free basic pro premium" example:"pro"`
}

func toUsageData(st *Status) usageData {
	return usageData{
		Subscription:  string(st.Subscription),
		RemainingUses: st.RemainingUses,
		CanUse:        st.CanUse,
		ResetDate:     st.ResetDate.UTC().Format(time.RFC3339),
	}
}

// GetUsage godoc
//
//	@Summary		Get usage
//	@Description	Returns the caller's plan, remaining uses in the current window, and when the window resets.
//	@Tags			usage
//	@Produce		json
//	@Security		BearerAuth
//	@Success		200	{object}	response.Envelope{data=usageData}
//	@Failure		401	{object}	response.Envelope
//	@Failure		500	{object}	response.Envelope
//	@Router			/usage [get]
func (h *Handler) GetUsage(w http.ResponseWriter, r *http.Request) {
	id, ok := middleware.IdentityFrom(r.Context())
	if !ok {
		response.Unauthorized(w, "unauthorized")
		return
	}

	st, err := h.svc.CanUserUseService(r.Context(), id.UID, id.Email)
	if err != nil {
		h.log.Error().Err(err).Str("uid", id.UID).Msg("get usage")
		response.ErrorDetails(w, http.StatusInternalServerError, "Failed to get usage", err.Error())
		return
	}

	response.OK(w, toUsageData(st))
}

// UpdateSubscription godoc
//
//	@Summary		Update subscription
//	@Description	Sets the caller's plan. Uses already consumed in the current window are kept.
//	@Tags			usage
//	@Accept			json
//	@Produce		json
//	@Security		BearerAuth
//	@Param			request	body		subscriptionRequest	true	"New plan"
//	@Success		200		{object}	response.Envelope
//	@Failure		400		{object}	response.Envelope
//	@Failure		401		{object}	response.Envelope
//	@Failure		500		{object}	response.Envelope
//	@Router			/subscription [post]
func (h *Handler) UpdateSubscription(w http.ResponseWriter, r *http.Request) {
	id, ok := middleware.IdentityFrom(r.Context())
	if !ok {
		response.Unauthorized(w, "unauthorized")
		return
	}

	var req subscriptionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.BadRequest(w, "Invalid subscription plan")
		return
	}
	if err := h.validate.Struct(req); err != nil {
		response.BadRequest(w, "Invalid subscription plan")
		return
	}

	if err := h.svc.UpdateUserSubscription(r.Context(), id.UID, req.Subscription); err != nil {
		if apperr.IsValidation(err) {
			response.BadRequest(w, "Invalid subscription plan")
			return
		}
		h.log.Error().Err(err).Str("uid", id.UID).Msg("update subscription")
		response.ErrorDetails(w, http.StatusInternalServerError, "Failed to update subscription", err.Error())
		return
	}

	response.Message(w, "Subscription updated to "+req.Subscription)
}

// RecordUse godoc
//
//	@Summary		Record a use
//	@Description	Consumes one use of the image-to-prompt feature. Fails with 403 when the current window is exhausted.
//	@Tags			usage
//	@Produce		json
//	@Security		BearerAuth
//	@Success		200	{object}	response.Envelope{data=usageData}
//	@Failure		401	{object}	response.Envelope
//	@Failure		403	{object}	response.Envelope
//	@Failure		500	{object}	response.Envelope
//	@Router			/usage/record [post]
func (h *Handler) RecordUse(w http.ResponseWriter, r *http.Request) {
	id, ok := middleware.IdentityFrom(r.Context())
	if !ok {
		response.Unauthorized(w, "unauthorized")
		return
	}

	st, err := h.svc.RecordUse(r.Context(), id.UID, id.Email)
	if errors.Is(err, ErrQuotaExceeded) {
		response.Forbidden(w, err.Error())
		return
	}
	if err != nil {
		h.log.Error().Err(err).Str("uid", id.UID).Msg("record use")
		response.ErrorDetails(w, http.StatusInternalServerError, "Failed to record usage", err.Error())
		return
	}

	response.OK(w, toUsageData(st))
}
