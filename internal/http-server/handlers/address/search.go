package address

import (
	"OrderFlow/internal/http-server/handlers/errors"
	"OrderFlow/internal/lib/api/response"
	"OrderFlow/internal/lib/sl"
	"OrderFlow/internal/service/address"
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/render"
)

type Core interface {
	SearchAddress(ctx context.Context, query string) ([]address.Suggestion, error)
}

func Search(log *slog.Logger, handler Core) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		logger := log.With(
			sl.Module("http.handlers.address"),
			slog.String("request_id", middleware.GetReqID(r.Context())),
		)

		query := r.URL.Query().Get("q")
		suggestions, err := handler.SearchAddress(r.Context(), query)
		if err != nil {
			logger.Warn("address search", sl.Err(err), slog.String("query", query))
			errors.Render(w, r, err, []address.Suggestion{})
			return
		}

		render.JSON(w, r, response.Ok(suggestions))
	}
}
