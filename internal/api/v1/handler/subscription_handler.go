package handler

import (
	"errors"
	"net/http"

	"courseforge/internal/api/v1/dto"
	"courseforge/internal/middleware"
	"courseforge/internal/repository"
	"courseforge/internal/service"

	"github.com/rs/zerolog"
)

// SubscriptionHandler handles subscription-related endpoints.
type SubscriptionHandler struct {
	subSvc service.SubscriptionService
	logger zerolog.Logger
}

// NewSubscriptionHandler creates a new SubscriptionHandler.
func NewSubscriptionHandler(subSvc service.SubscriptionService, logger zerolog.Logger) *SubscriptionHandler {
	return &SubscriptionHandler{subSvc: subSvc, logger: logger.With().Str("handler", "SubscriptionHandler").Logger()}
}

// RegisterRoutes registers the subscription endpoints.
func (h *SubscriptionHandler) RegisterRoutes(mux *http.ServeMux, authMiddleware func(http.Handler) http.Handler) {
	mux.Handle("/subscriptions/usage", authMiddleware(http.HandlerFunc(h.Usage)))
}

// Usage godoc
// @Summary Get generation usage
// @Description Returns how many course generations the current plan period allows and how many were used.
// @Tags subscriptions
// @Produce json
// @Success 200 {object} dto.GenerationUsageDTO
// @Failure 401 {string} string "unauthorized"
// @Failure 404 {string} string "no active subscription"
// @Failure 500 {string} string "failed to load usage"
// @Router /subscriptions/usage [get]
func (h *SubscriptionHandler) Usage(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	userID, ok := middleware.UserID(r.Context())
	if !ok {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}

	usage, err := h.subSvc.GetGenerationUsage(r.Context(), userID)
	if errors.Is(err, repository.ErrNoActiveSubscription) {
		http.Error(w, "no active subscription", http.StatusNotFound)
		return
	}
	if err != nil {
		h.logger.Error().Err(err).Str("user_id", userID).Msg("failed to load usage")
		http.Error(w, "failed to load usage", http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusOK, dto.GenerationUsageDTO{
		PlanID:      usage.PlanID,
		PlanName:    usage.PlanName,
		Used:        usage.Used,
		Limit:       usage.Limit,
		Remaining:   usage.Remaining(),
		PeriodStart: usage.PeriodStart,
		PeriodEnd:   usage.PeriodEnd,
	})
}
