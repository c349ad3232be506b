package errors

import (
	"OrderFlow/internal/lib/api/response"
	"OrderFlow/internal/lib/sl"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/render"
)

func NotFound(log *slog.Logger) http.HandlerFunc {
	return routeError(log, http.StatusNotFound, "Requested resource not found")
}

func NotAllowed(log *slog.Logger) http.HandlerFunc {
	return routeError(log, http.StatusMethodNotAllowed, "Method not allowed")
}

func routeError(log *slog.Logger, status int, message string) http.HandlerFunc {
	logger := log.With(sl.Module("http.handlers.errors"))
	return func(w http.ResponseWriter, r *http.Request) {
		logger.Debug(message,
			slog.String("method", r.Method),
			slog.String("path", r.URL.Path),
			slog.String("request_id", middleware.GetReqID(r.Context())),
		)
		render.Status(r, status)
		render.JSON(w, r, response.Error(message))
	}
}
