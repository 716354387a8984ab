package handlers

import (
	"encoding/json"
	"net"
	"net/http"
	"strings"

	authsvc "github.com/samson623/sports-buddy/internal/services/auth"
	"github.com/samson623/sports-buddy/internal/services/qna"
	httperrors "github.com/samson623/sports-buddy/internal/transport/http/errors"
)

func decodeJSON(r *http.Request, target any) error {
	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	return decoder.Decode(target)
}

func writeBadRequest(w http.ResponseWriter, kind, message string) {
	httperrors.Write(w, http.StatusBadRequest, httperrors.APIError{Kind: kind, Message: message})
}

func writeUnauthorized(w http.ResponseWriter, message string) {
	httperrors.Write(w, http.StatusUnauthorized, httperrors.APIError{Kind: "unauthorized", Message: message})
}

func writeInternal(w http.ResponseWriter) {
	httperrors.Write(w, http.StatusInternalServerError, httperrors.APIError{
		Kind:    "server_error",
		Message: "internal server error",
	})
}

// actorFromRequest binds the request to either the authenticated user or
// the caller's IP address.
func actorFromRequest(r *http.Request) qna.Actor {
	if identity, ok := authsvc.IdentityFromContext(r.Context()); ok && identity.UserID != "" {
		return qna.Actor{UserID: identity.UserID}
	}
	return qna.Actor{IPAddr: clientIP(r)}
}

// clientIP prefers the first forwarded-for hop. Clients sharing a proxy
// collapse into one rate-limit actor, which is accepted.
func clientIP(r *http.Request) string {
	if fwd := r.Header.Get("X-Forwarded-For"); fwd != "" {
		if first, _, found := strings.Cut(fwd, ","); found || first != "" {
			return strings.TrimSpace(first)
		}
	}
	if real := strings.TrimSpace(r.Header.Get("X-Real-IP")); real != "" {
		return real
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return strings.TrimSpace(r.RemoteAddr)
	}
	return host
}
