package handlers

import (
	"errors"
	"net/http"

	"github.com/samson623/sports-buddy/internal/services/qna"
	"github.com/samson623/sports-buddy/internal/services/quota"
	"github.com/samson623/sports-buddy/internal/transport/http/dto"
	httperrors "github.com/samson623/sports-buddy/internal/transport/http/errors"
)

type AskHandler struct {
	service         *qna.Service
	maxQuestionLen  int
	rateWindowMs    int64
	rateMaxRequests int
}

func NewAskHandler(service *qna.Service, maxQuestionLen int, rateWindowMs int64, rateMaxRequests int) *AskHandler {
	return &AskHandler{
		service:         service,
		maxQuestionLen:  maxQuestionLen,
		rateWindowMs:    rateWindowMs,
		rateMaxRequests: rateMaxRequests,
	}
}

// Ask answers one question for the calling actor.
func (h *AskHandler) Ask(w http.ResponseWriter, r *http.Request) {
	if h.service == nil {
		writeInternal(w)
		return
	}

	var req dto.AskRequest
	if err := decodeJSON(r, &req); err != nil {
		writeBadRequest(w, "missing_question", "question is required")
		return
	}

	res, err := h.service.Ask(r.Context(), actorFromRequest(r), req.Question, req.GameID)
	if err != nil {
		handleAskError(w, err)
		return
	}

	resp := dto.AskResponse{
		Answer:     res.Answer,
		RoutedToDB: res.RoutedToDB,
		RateLimit: &dto.RateLimitBlock{
			Remaining:    res.Rate.Remaining,
			ResetAfterMs: res.Rate.ResetAfter.Milliseconds(),
		},
	}
	if res.InputTokens != nil {
		resp.TokensUsed += *res.InputTokens
	}
	if res.OutputTokens != nil {
		resp.TokensUsed += *res.OutputTokens
	}
	if res.Quota != nil {
		resp.Tier = string(res.Tier)
		resp.Quota = &dto.QuotaBlock{
			Used:      res.Quota.Used,
			Limit:     res.Quota.Limit,
			Remaining: res.Quota.Remaining(),
		}
	}

	httperrors.Write(w, http.StatusOK, resp)
}

// Usage reports the actor's limits without answering anything.
func (h *AskHandler) Usage(w http.ResponseWriter, r *http.Request) {
	if h.service == nil {
		writeInternal(w)
		return
	}

	tr, snap, err := h.service.Usage(r.Context(), actorFromRequest(r))
	if err != nil {
		writeInternal(w)
		return
	}

	resp := dto.AskUsageResponse{
		Tier:            string(tr),
		MaxQuestionLen:  h.maxQuestionLen,
		RateWindowMs:    h.rateWindowMs,
		RateMaxRequests: h.rateMaxRequests,
	}
	if snap != nil {
		resp.Quota = &dto.QuotaBlock{Used: snap.Used, Limit: snap.Limit, Remaining: snap.Remaining()}
	}

	httperrors.Write(w, http.StatusOK, resp)
}

func handleAskError(w http.ResponseWriter, err error) {
	var rateErr qna.RateLimitedError
	var limitErr quota.LimitReachedError

	switch {
	case errors.Is(err, qna.ErrMissingQuestion):
		writeBadRequest(w, "missing_question", "question is required")
	case errors.Is(err, qna.ErrQuestionTooLong):
		writeBadRequest(w, "missing_question", "question is too long")
	case errors.As(err, &rateErr):
		httperrors.Write(w, http.StatusTooManyRequests, httperrors.RateLimitError{
			Kind:         "rate_limited",
			Message:      "too many questions, slow down",
			RetryAfterMs: rateErr.RetryAfter.Milliseconds(),
		})
	case errors.As(err, &limitErr):
		httperrors.Write(w, http.StatusTooManyRequests, httperrors.LimitReachedError{
			Kind:    "limit_reached",
			Message: "daily question limit reached",
			Tier:    string(limitErr.Tier),
			Limit:   limitErr.Limit,
			Used:    limitErr.Used,
		})
	case errors.Is(err, qna.ErrTimeout):
		httperrors.Write(w, http.StatusGatewayTimeout, httperrors.APIError{
			Kind:    "timeout",
			Message: "answer generation timed out",
		})
	default:
		writeInternal(w)
	}
}
