package handlers

import (
	"errors"
	"net/http"
	"strings"
)

var errNoBearerToken = errors.New("missing bearer token")

// bearerToken extracts the access token from the Authorization header.
func bearerToken(r *http.Request) (string, error) {
	header := strings.TrimSpace(r.Header.Get("Authorization"))
	if header == "" {
		return "", errNoBearerToken
	}

	const prefix = "Bearer "
	if len(header) <= len(prefix) || !strings.EqualFold(header[:len(prefix)], prefix) {
		return "", errNoBearerToken
	}

	token := strings.TrimSpace(header[len(prefix):])
	if token == "" {
		return "", errNoBearerToken
	}
	return token, nil
}

// requireIdentity resolves the caller's identity from the bearer token,
// writing the 401 response itself when the token is absent or invalid.
func requireIdentity(w http.ResponseWriter, r *http.Request, sessions SessionManager) (string, bool) {
	ctx := r.Context()

	token, err := bearerToken(r)
	if err != nil {
		respondJSON(ctx, w, http.StatusUnauthorized, map[string]string{"error": "authentication required"})
		return "", false
	}

	userID, err := sessions.Validate(ctx, token)
	if err != nil {
		respondJSON(ctx, w, http.StatusUnauthorized, map[string]string{"error": "invalid or expired token"})
		return "", false
	}

	return userID, true
}
