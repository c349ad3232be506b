package flow

import (
	"OrderFlow/bot/flow"
	"OrderFlow/entity"
	"OrderFlow/internal/http-server/handlers/errors"
	"OrderFlow/internal/lib/api/cont"
	"OrderFlow/internal/lib/api/response"
	"OrderFlow/internal/lib/sl"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/render"
)

// StepRequest addresses a step. Step is a pointer so that step 0 is not mistaken for
// a missing value.
type StepRequest struct {
	Step  *int       `json:"step" validate:"required"`
	Input flow.Input `json:"input"`
}

type action func(r *http.Request, session *entity.Session) (flow.View, error)

// serve runs a flow action for the session user and replies with the resulting view.
func serve(log *slog.Logger, name string, do action) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		session := cont.GetSession(r.Context())
		if session == nil {
			render.Status(r, http.StatusUnauthorized)
			render.JSON(w, r, response.Error("Unauthorized"))
			return
		}

		logger := log.With(
			sl.Module("http.handlers.flow"),
			slog.String("request_id", middleware.GetReqID(r.Context())),
			slog.String("user_id", session.UserID),
			slog.String("action", name),
		)

		view, err := do(r, session)
		if err != nil {
			if flow.Silent(err) {
				logger.Debug("ignored", sl.Err(err))
			} else {
				logger.Warn("flow action failed", sl.Err(err))
			}
			errors.Render(w, r, err, view)
			return
		}

		render.JSON(w, r, response.Ok(view))
	}
}

func decode(w http.ResponseWriter, r *http.Request, v interface{}) bool {
	if err := render.DecodeJSON(r.Body, v); err != nil {
		render.Status(r, http.StatusBadRequest)
		render.JSON(w, r, response.Error("Invalid request body"))
		return false
	}
	return true
}
