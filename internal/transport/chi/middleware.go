package chi

import (
	"encoding/json"
	"net/http"
	"strings"
	"time"

	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/kailas-cloud/appsearch/internal/domain"
	logpkg "github.com/kailas-cloud/appsearch/internal/logger"
)

// Headers set by the fronting CMS to identify the visitor a search runs for.
const (
	HeaderMemberID     = "X-Member-ID"
	HeaderMemberGroups = "X-Member-Groups"
)

// anonymousPaths never carry a member.
var anonymousPaths = map[string]struct{}{
	"/health":  {},
	"/metrics": {},
}

// MemberMiddleware places the visitor identified by the member headers in the
// request context. Requests without X-Member-ID run anonymously.
func MemberMiddleware() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if _, ok := anonymousPaths[r.URL.Path]; ok {
				next.ServeHTTP(w, r)
				return
			}

			id := strings.TrimSpace(r.Header.Get(HeaderMemberID))
			if id == "" {
				next.ServeHTTP(w, r)
				return
			}

			member := &domain.Member{ID: id}
			for _, g := range strings.Split(r.Header.Get(HeaderMemberGroups), ",") {
				if g = strings.TrimSpace(g); g != "" {
					member.Groups = append(member.Groups, g)
				}
			}
			next.ServeHTTP(w, r.WithContext(domain.ContextWithMember(r.Context(), member)))
		})
	}
}

// JSONRecoverer is a recovery middleware that returns JSON instead of a plain text stacktrace.
func JSONRecoverer(logger *zap.Logger) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				if rvr := recover(); rvr != nil {
					logger.Error("panic recovered",
						zap.Any("panic", rvr),
						zap.Stack("stacktrace"),
					)
					w.Header().Set("Content-Type", "application/json")
					w.WriteHeader(http.StatusInternalServerError)
					_ = json.NewEncoder(w).Encode(errorResponse{
						Code:    codeInternal,
						Message: "internal error",
					})
				}
			}()
			next.ServeHTTP(w, r)
		})
	}
}

// RequestLogger emits one log line per request and propagates X-Request-ID.
// It expects chi's RequestID middleware to run first.
func RequestLogger(logger *zap.Logger) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()

			requestID := chiMiddleware.GetReqID(r.Context())
			if requestID != "" {
				w.Header().Set("X-Request-ID", requestID)
			}

			reqLogger := logger.With(zap.String("request_id", requestID))
			ctx := logpkg.ContextWithLogger(r.Context(), reqLogger)

			ww := chiMiddleware.NewWrapResponseWriter(w, r.ProtoMajor)
			next.ServeHTTP(ww, r.WithContext(ctx))

			reqLogger.Info("http_request",
				zap.String("method", r.Method),
				zap.String("path", r.URL.Path),
				zap.Int("status", ww.Status()),
				zap.Duration("latency", time.Since(start)),
				zap.String("ip", r.RemoteAddr),
				zap.String("member_id", r.Header.Get(HeaderMemberID)),
				zap.Int("response_bytes", ww.BytesWritten()),
			)
		})
	}
}
