package httpapi

import (
	"context"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"
	"github.com/nikolayk812/cart-service/internal/correlation"
	"github.com/nikolayk812/cart-service/internal/domain"
)

const (
	HeaderUserID    = "X-User-Id"
	HeaderSessionID = "X-Session-Id"
)

type ctxKey string

const ctxIdentity ctxKey = "identity"

// CorrelationID reads X-Correlation-Id or generates one, echoes it and stores
// it in the request context for downstream calls and events.
func CorrelationID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		cid := strings.TrimSpace(r.Header.Get(correlation.Header))
		if cid != "" {
			ctx = correlation.WithID(ctx, cid)
		} else {
			ctx, cid = correlation.Ensure(ctx)
		}

		w.Header().Set(correlation.Header, cid)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// ResolveIdentity picks the cart owner: the user id set by the gateway after
// token verification, then the anonymous session id. A new session id is
// issued when neither is present.
func ResolveIdentity(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var identity domain.Identity

		switch {
		case strings.TrimSpace(r.Header.Get(HeaderUserID)) != "":
			identity = domain.UserIdentity(r.Header.Get(HeaderUserID))
		case strings.TrimSpace(r.Header.Get(HeaderSessionID)) != "":
			identity = domain.SessionIdentity(r.Header.Get(HeaderSessionID))
		default:
			identity = domain.SessionIdentity(uuid.NewString())
			w.Header().Set(HeaderSessionID, identity.ID)
		}

		ctx := context.WithValue(r.Context(), ctxIdentity, identity)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func IdentityFromContext(ctx context.Context) (domain.Identity, bool) {
	identity, ok := ctx.Value(ctxIdentity).(domain.Identity)
	return identity, ok
}

// RequestTimeout bounds the request context. Handlers map the resulting
// deadline errors themselves.
func RequestTimeout(d time.Duration) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if d <= 0 {
				next.ServeHTTP(w, r)
				return
			}

			ctx, cancel := context.WithTimeout(r.Context(), d)
			defer cancel()

			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func RequestLogger(log *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			start := time.Now()

			defer func() {
				status := ww.Status()
				if status == 0 {
					status = http.StatusOK
				}

				level := slog.LevelInfo
				if status >= http.StatusInternalServerError {
					level = slog.LevelError
				}

				log.LogAttrs(r.Context(), level, "http request",
					slog.String("method", r.Method),
					slog.String("path", r.URL.Path),
					slog.Int("status", status),
					slog.Int("bytes", ww.BytesWritten()),
					slog.Duration("duration", time.Since(start)),
					slog.String("request_id", middleware.GetReqID(r.Context())),
					slog.String("correlation_id", correlation.FromContext(r.Context())),
				)
			}()

			next.ServeHTTP(ww, r)
		})
	}
}
