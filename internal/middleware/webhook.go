package middleware

import (
	"bytes"
	"crypto/hmac"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/Strob0t/agentbridge/internal/logger"
)

// SecretSource resolves named secrets at request time, so a reloaded vault
// takes effect without restarting the server.
type SecretSource interface {
	Get(key string) string
}

// VerifySignature reports whether signature is the hex HMAC-SHA256 of body
// under secret. An empty secret disables verification and always passes. A
// "sha256=" prefix on the signature is accepted. Length mismatches fail
// before any comparison.
func VerifySignature(body []byte, signature, secret string) bool {
	if secret == "" {
		return true
	}
	if signature == "" {
		return false
	}

	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(body)
	expected := hex.EncodeToString(mac.Sum(nil))

	got := strings.ToLower(strings.TrimPrefix(strings.TrimSpace(signature), "sha256="))
	if len(got) != len(expected) {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(got), []byte(expected)) == 1
}

// Sign returns the hex HMAC-SHA256 of body under secret.
func Sign(body []byte, secret string) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(body)
	return hex.EncodeToString(mac.Sum(nil))
}

// WebhookSignature returns middleware that verifies the HMAC signature in
// header against the exact raw request body, using the secret stored under
// secretKey. The body is restored for the next handler. Failures are
// answered with a 401 JSON envelope.
func WebhookSignature(secrets SecretSource, secretKey, header string, bodyLimit int64) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			secret := secrets.Get(secretKey)
			if secret == "" {
				next.ServeHTTP(w, r)
				return
			}

			body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, bodyLimit))
			if err != nil {
				var tooLarge *http.MaxBytesError
				if errors.As(err, &tooLarge) {
					writeRejection(w, r, http.StatusRequestEntityTooLarge, "request body too large")
					return
				}
				writeRejection(w, r, http.StatusBadRequest, "failed to read body")
				return
			}
			r.Body = io.NopCloser(bytes.NewReader(body))

			if !VerifySignature(body, r.Header.Get(header), secret) {
				slog.WarnContext(r.Context(), "webhook signature rejected",
					"path", r.URL.Path,
					"remote", r.RemoteAddr,
				)
				writeRejection(w, r, http.StatusUnauthorized, "invalid signature")
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

func writeRejection(w http.ResponseWriter, r *http.Request, status int, message string) {
	env := map[string]any{
		"success":   false,
		"error":     message,
		"timestamp": time.Now().UTC().Format(time.RFC3339Nano),
	}
	if id := logger.RequestID(r.Context()); id != "" {
		env["requestId"] = id
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(env)
}
