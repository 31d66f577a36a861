package middleware

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

type ctxKey string

const deviceKey ctxKey = "device"

// AdminAuth is a middleware that enforces HMAC-signed admin bearer tokens.
//
// The token is an HS256 JWT whose payload carries `exp` as an epoch-millisecond
// expiry and `type` equal to "admin". Missing, malformed, expired, and
// wrongly-typed tokens are all rejected with the same unauthorized response,
// so a caller cannot tell which check failed.
func AdminAuth(secret string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			raw := strings.TrimPrefix(r.Header.Get("Authorization"), "Bearer ")
			if raw == "" || raw == r.Header.Get("Authorization") {
				writeUnauthorized(w)
				return
			}

			// exp is epoch milliseconds, not the RFC 7519 seconds form, so
			// the library's own expiry validation is bypassed and the claim
			// is checked by hand below.
			token, err := jwt.Parse(raw, func(t *jwt.Token) (any, error) {
				return []byte(secret), nil
			}, jwt.WithValidMethods([]string{"HS256"}), jwt.WithoutClaimsValidation())
			if err != nil || !token.Valid {
				writeUnauthorized(w)
				return
			}

			claims, ok := token.Claims.(jwt.MapClaims)
			if !ok {
				writeUnauthorized(w)
				return
			}
			exp, ok := claims["exp"].(float64)
			if !ok || int64(exp) <= time.Now().UnixMilli() {
				writeUnauthorized(w)
				return
			}
			if typ, _ := claims["type"].(string); typ != "admin" {
				writeUnauthorized(w)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

// writeUnauthorized responds with the fixed JSON error envelope. The message
// never varies with the failure cause.
func writeUnauthorized(w http.ResponseWriter) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusUnauthorized)
	_ = json.NewEncoder(w).Encode(map[string]any{
		"success":   false,
		"error":     "unauthorized",
		"requestId": uuid.NewString(),
	})
}

// DeviceAuth extracts the X-Device-ID header and stores it in the request
// context as the syncing device's identity. Requests without one are rejected.
func DeviceAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		deviceID := r.Header.Get("X-Device-ID")
		if deviceID == "" {
			writeUnauthorized(w)
			return
		}
		ctx := context.WithValue(r.Context(), deviceKey, deviceID)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// GetDeviceIDFromContext extracts the device ID from the request context.
// Returns an empty string if not found.
func GetDeviceIDFromContext(ctx context.Context) string {
	val := ctx.Value(deviceKey)
	if s, ok := val.(string); ok {
		return s
	}
	return ""
}
