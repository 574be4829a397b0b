package chi

import (
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/kailas-cloud/bookscout/internal/logger"
	"github.com/kailas-cloud/bookscout/internal/metrics"
)

// Handler returns the root router with the full middleware chain mounted.
// Recovery runs outermost so a panic anywhere still yields the error envelope.
func (s *Server) Handler(apiKeys []string) http.Handler {
	r := chi.NewRouter()
	r.Use(
		recoverJSON(s.logger),
		chiMiddleware.RequestID,
		accessLog(s.logger),
		BearerAuthMiddleware(apiKeys),
		metrics.Middleware(),
	)
	s.Routes(r)
	return r
}

func recoverJSON(log *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				rvr := recover()
				if rvr == nil {
					return
				}
				if err, ok := rvr.(error); ok && errors.Is(err, http.ErrAbortHandler) {
					panic(rvr)
				}
				log.Error("handler panicked",
					zap.Any("panic", rvr),
					zap.String("path", r.URL.Path),
					zap.Stack("stacktrace"))
				writeError(w, http.StatusInternalServerError, "internal error")
			}()
			next.ServeHTTP(w, r)
		})
	}
}

// accessLog writes one line per request once the handler returns. The
// request-scoped logger it installs carries request_id for every layer below.
func accessLog(log *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			reqID := chiMiddleware.GetReqID(r.Context())
			if reqID != "" {
				w.Header().Set("X-Request-ID", reqID)
			}

			reqLog := log.With(zap.String("request_id", reqID))
			ww := chiMiddleware.NewWrapResponseWriter(w, r.ProtoMajor)
			next.ServeHTTP(ww, r.WithContext(logger.ContextWithLogger(r.Context(), reqLog)))

			fields := []zap.Field{
				zap.String("method", r.Method),
				zap.String("path", r.URL.Path),
				zap.Int("status", ww.Status()),
				zap.Duration("latency", time.Since(start)),
				zap.Int("bytes", ww.BytesWritten()),
				zap.String("remote", r.RemoteAddr),
			}
			for _, h := range [...]string{"X-Embedding-Tokens", "X-Generation-Tokens"} {
				if v := ww.Header().Get(h); v != "" {
					fields = append(fields, zap.String(h, v))
				}
			}

			if ww.Status() >= http.StatusInternalServerError {
				reqLog.Warn("request", fields...)
				return
			}
			reqLog.Info("request", fields...)
		})
	}
}
