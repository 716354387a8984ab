package errors

import (
	"encoding/json"
	"net/http"
)

// APIError is the generic error envelope. Kind is the machine-readable
// error class clients branch on.
type APIError struct {
	Kind    string `json:"error"`
	Message string `json:"message"`
}

// RateLimitError carries the retry metadata for a denied request.
type RateLimitError struct {
	Kind         string `json:"error"`
	Message      string `json:"message"`
	RetryAfterMs int64  `json:"retry_after_ms"`
}

// LimitReachedError carries the quota standing for an exhausted allowance.
type LimitReachedError struct {
	Kind    string `json:"error"`
	Message string `json:"message"`
	Tier    string `json:"tier"`
	Limit   int    `json:"limit"`
	Used    int    `json:"used"`
}

func Write(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}
