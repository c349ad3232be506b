package invite

import (
	"OrderFlow/entity"
	"OrderFlow/internal/http-server/handlers/errors"
	"OrderFlow/internal/lib/api/cont"
	"OrderFlow/internal/lib/api/response"
	"OrderFlow/internal/lib/sl"
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/render"
)

type Core interface {
	InviteSummary(ctx context.Context, session *entity.Session) (*entity.InviteSummary, error)
}

// Summary returns the invite stats, the invite progress and the free drinks left.
func Summary(log *slog.Logger, handler Core) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		session := cont.GetSession(r.Context())
		if session == nil {
			render.Status(r, http.StatusUnauthorized)
			render.JSON(w, r, response.Error("Unauthorized"))
			return
		}

		logger := log.With(
			sl.Module("http.handlers.invite"),
			slog.String("request_id", middleware.GetReqID(r.Context())),
			slog.String("user_id", session.UserID),
		)

		summary, err := handler.InviteSummary(r.Context(), session)
		if err != nil {
			logger.Warn("invite summary", sl.Err(err))
			errors.Render(w, r, err, nil)
			return
		}

		render.JSON(w, r, response.Ok(summary))
	}
}
