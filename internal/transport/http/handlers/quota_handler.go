package handlers

import (
	"net/http"

	authsvc "github.com/samson623/sports-buddy/internal/services/auth"
	"github.com/samson623/sports-buddy/internal/services/qna"
	"github.com/samson623/sports-buddy/internal/transport/http/dto"
	httperrors "github.com/samson623/sports-buddy/internal/transport/http/errors"
)

type QuotaHandler struct {
	service *qna.Service
}

func NewQuotaHandler(service *qna.Service) *QuotaHandler {
	return &QuotaHandler{service: service}
}

func (h *QuotaHandler) Handle(w http.ResponseWriter, r *http.Request) {
	if h.service == nil {
		writeInternal(w)
		return
	}

	identity, ok := authsvc.IdentityFromContext(r.Context())
	if !ok || identity.UserID == "" {
		writeUnauthorized(w, "authentication required")
		return
	}

	tr, snap, err := h.service.Usage(r.Context(), qna.Actor{UserID: identity.UserID})
	if err != nil {
		writeInternal(w)
		return
	}
	if snap == nil {
		writeInternal(w)
		return
	}

	httperrors.Write(w, http.StatusOK, dto.QuotaResponse{
		Tier:      string(tr),
		Used:      snap.Used,
		Limit:     snap.Limit,
		Remaining: snap.Remaining(),
	})
}
