package logger

import (
	"OrderFlow/internal/lib/sl"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

// Recorder counts served requests.
type Recorder interface {
	Request(route string, status int)
}

func New(log *slog.Logger, recorder Recorder) func(next http.Handler) http.Handler {
	mod := sl.Module("middleware.logger")

	return func(next http.Handler) http.Handler {

		fn := func(w http.ResponseWriter, r *http.Request) {
			id := middleware.GetReqID(r.Context())
			remote := r.RemoteAddr
			// behind a proxy
			if xRemote := r.Header.Get("X-Forwarded-For"); xRemote != "" {
				remote = xRemote
			}
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			ww.Header().Set("X-Request-ID", id)

			t1 := time.Now()
			defer func() {
				route := r.URL.Path
				if rctx := chi.RouteContext(r.Context()); rctx != nil && rctx.RoutePattern() != "" {
					route = rctx.RoutePattern()
				}
				if recorder != nil {
					recorder.Request(route, ww.Status())
				}
				log.With(
					mod,
					slog.String("method", r.Method),
					slog.String("path", r.URL.Path),
					slog.String("remote_addr", remote),
					slog.String("request_id", id),
					slog.Int("status", ww.Status()),
					slog.Int("size", ww.BytesWritten()),
					slog.Float64("duration", time.Since(t1).Seconds()),
				).Info("incoming request")
			}()

			next.ServeHTTP(ww, r)
		}

		return http.HandlerFunc(fn)
	}
}
