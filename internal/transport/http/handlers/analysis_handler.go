package handlers

import (
	"errors"
	"net/http"

	analysissvc "github.com/samson623/sports-buddy/internal/services/analysis"
	authsvc "github.com/samson623/sports-buddy/internal/services/auth"
	"github.com/samson623/sports-buddy/internal/services/qna"
	"github.com/samson623/sports-buddy/internal/transport/http/dto"
	httperrors "github.com/samson623/sports-buddy/internal/transport/http/errors"
)

type AnalysisHandler struct {
	service *analysissvc.Service
}

func NewAnalysisHandler(service *analysissvc.Service) *AnalysisHandler {
	return &AnalysisHandler{service: service}
}

func (h *AnalysisHandler) Generate(w http.ResponseWriter, r *http.Request) {
	if h.service == nil {
		writeInternal(w)
		return
	}

	identity, ok := authsvc.IdentityFromContext(r.Context())
	if !ok || identity.UserID == "" {
		writeUnauthorized(w, "authentication required")
		return
	}

	var req dto.AnalysisRequest
	if err := decodeJSON(r, &req); err != nil {
		writeBadRequest(w, "invalid_request", "invalid request body")
		return
	}

	res, err := h.service.Generate(r.Context(), identity.UserID, req.GameID)
	if err != nil {
		handleAnalysisError(w, err)
		return
	}

	httperrors.Write(w, http.StatusOK, dto.AnalysisResponse{
		GameID:   res.GameID,
		Matchup:  res.Matchup,
		Analysis: res.Content,
		Cached:   res.Cached,
	})
}

func handleAnalysisError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, analysissvc.ErrValidation):
		writeBadRequest(w, "invalid_request", "game_id is required")
	case errors.Is(err, analysissvc.ErrTierForbidden):
		httperrors.Write(w, http.StatusForbidden, httperrors.APIError{
			Kind:    "upgrade_required",
			Message: "pre-game analysis requires a plus or pro subscription",
		})
	case errors.Is(err, analysissvc.ErrWeeklyLimitReached):
		httperrors.Write(w, http.StatusTooManyRequests, httperrors.APIError{
			Kind:    "limit_reached",
			Message: "weekly analysis limit reached",
		})
	case errors.Is(err, analysissvc.ErrGameNotFound):
		httperrors.Write(w, http.StatusNotFound, httperrors.APIError{
			Kind:    "not_found",
			Message: "game not found",
		})
	case errors.Is(err, qna.ErrTimeout):
		httperrors.Write(w, http.StatusGatewayTimeout, httperrors.APIError{
			Kind:    "timeout",
			Message: "analysis generation timed out",
		})
	default:
		writeInternal(w)
	}
}
