package middleware

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"io"
	"log/slog"
	"net/http"

	"frpops/internal/platform/store"
	"frpops/internal/transport/http/api"
)

// idempotencyCollection holds one replayable response per session user and
// Idempotency-Key.
const idempotencyCollection = "idempotency_keys"

func requestHash(method, path string, body []byte) string {
	sum := sha256.New()
	sum.Write([]byte(method))
	sum.Write([]byte(" "))
	sum.Write([]byte(path))
	sum.Write([]byte("\n"))
	sum.Write(body)
	return hex.EncodeToString(sum.Sum(nil))
}

type replayRecorder struct {
	http.ResponseWriter
	status int
	buf    bytes.Buffer
}

func (r *replayRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

func (r *replayRecorder) Write(p []byte) (int, error) {
	r.buf.Write(p)
	return r.ResponseWriter.Write(p)
}

// Idempotency replays the stored response when a mutation is retried with the
// same Idempotency-Key, so a retried create does not insert twice. Reusing a
// key for a different request is refused. Requests without the header pass
// through untouched.
func Idempotency(client store.Client) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			key := r.Header.Get("Idempotency-Key")
			mutation := r.Method == http.MethodPost || r.Method == http.MethodPut || r.Method == http.MethodDelete
			if key == "" || !mutation {
				next.ServeHTTP(w, r)
				return
			}

			body, err := io.ReadAll(r.Body)
			if err != nil {
				api.Fail(w, http.StatusBadRequest, "invalid_payload", "cannot read request body", GetRequestID(r.Context()))
				return
			}
			r.Body = io.NopCloser(bytes.NewReader(body))

			fingerprint := key
			if user, ok := GetUser(r.Context()); ok && user.UserID != "" {
				fingerprint = user.UserID + "|" + key
			}
			hash := requestHash(r.Method, r.URL.Path, body)

			rec, err := client.FindOne(r.Context(), idempotencyCollection, "fingerprint", fingerprint)
			if err == nil {
				if stored, _ := rec.Doc["requestHash"].(string); stored != hash {
					api.Fail(w, http.StatusConflict, "idempotency_conflict", "idempotency key was already used for a different request", GetRequestID(r.Context()))
					return
				}
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(storedStatus(rec.Doc))
				response, _ := rec.Doc["response"].(string)
				_, _ = w.Write([]byte(response))
				return
			}
			if !errors.Is(err, store.ErrNotFound) {
				// The mutation itself decides whether the store is reachable.
				slog.Warn("idempotency lookup failed", "err", err)
				next.ServeHTTP(w, r)
				return
			}

			recorder := &replayRecorder{ResponseWriter: w, status: http.StatusOK}
			next.ServeHTTP(recorder, r)

			// Server-side failures stay retryable.
			if recorder.status >= 500 {
				return
			}
			if _, err := client.Insert(r.Context(), idempotencyCollection, store.Document{
				"fingerprint": fingerprint,
				"requestHash": hash,
				"status":      recorder.status,
				"response":    recorder.buf.String(),
			}); err != nil {
				slog.Warn("idempotency save failed", "err", err)
			}
		})
	}
}

func storedStatus(doc store.Document) int {
	switch value := doc["status"].(type) {
	case int:
		return value
	case float64:
		return int(value)
	default:
		return http.StatusOK
	}
}
