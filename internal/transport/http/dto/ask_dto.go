package dto

type AskRequest struct {
	Question string `json:"question"`
	GameID   string `json:"game_id,omitempty"`
}

type QuotaBlock struct {
	Used      int `json:"used"`
	Limit     int `json:"limit"`
	Remaining int `json:"remaining"`
}

type RateLimitBlock struct {
	Remaining    int   `json:"remaining"`
	ResetAfterMs int64 `json:"reset_after_ms"`
}

type AskResponse struct {
	Answer     string          `json:"answer"`
	TokensUsed int             `json:"tokens_used"`
	RoutedToDB bool            `json:"routed_to_db"`
	Tier       string          `json:"tier,omitempty"`
	Quota      *QuotaBlock     `json:"quota,omitempty"`
	RateLimit  *RateLimitBlock `json:"rate_limit,omitempty"`
}

// AskUsageResponse describes the ask endpoint's limits without consuming
// anything, for clients rendering the question form.
type AskUsageResponse struct {
	Tier            string      `json:"tier"`
	Quota           *QuotaBlock `json:"quota,omitempty"`
	MaxQuestionLen  int         `json:"max_question_len"`
	RateWindowMs    int64       `json:"rate_window_ms"`
	RateMaxRequests int         `json:"rate_max_requests"`
}
