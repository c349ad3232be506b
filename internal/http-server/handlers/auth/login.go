package auth

import (
	"OrderFlow/internal/http-server/handlers/errors"
	"OrderFlow/internal/lib/api/response"
	"OrderFlow/internal/lib/sl"
	"OrderFlow/internal/lib/validate"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/render"
)

type LoginRequest struct {
	Phone string `json:"phone_number" validate:"required"`
	Code  string `json:"verification_code" validate:"required"`
}

type InviteRequest struct {
	Phone      string `json:"phone_number" validate:"required"`
	InviteCode string `json:"invite_code" validate:"required"`
}

func Login(log *slog.Logger, handler Core) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		logger := log.With(
			sl.Module("http.handlers.auth"),
			slog.String("request_id", middleware.GetReqID(r.Context())),
		)

		var req LoginRequest
		if err := render.DecodeJSON(r.Body, &req); err != nil || validate.Struct(req) != nil {
			render.Status(r, http.StatusBadRequest)
			render.JSON(w, r, response.Error("Invalid request body"))
			return
		}

		res, err := handler.Login(r.Context(), req.Phone, req.Code)
		if err != nil {
			logger.With(sl.Secret("phone", req.Phone)).Warn("login", sl.Err(err))
			errors.Render(w, r, err, nil)
			return
		}

		render.JSON(w, r, response.Ok(res))
	}
}

func LoginWithInvite(log *slog.Logger, handler Core) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		logger := log.With(
			sl.Module("http.handlers.auth"),
			slog.String("request_id", middleware.GetReqID(r.Context())),
		)

		var req InviteRequest
		if err := render.DecodeJSON(r.Body, &req); err != nil || validate.Struct(req) != nil {
			render.Status(r, http.StatusBadRequest)
			render.JSON(w, r, response.Error("Invalid request body"))
			return
		}

		res, err := handler.LoginWithInvite(r.Context(), req.Phone, req.InviteCode)
		if err != nil {
			logger.With(sl.Secret("phone", req.Phone)).Warn("invite login", sl.Err(err))
			errors.Render(w, r, err, nil)
			return
		}

		render.JSON(w, r, response.Ok(res))
	}
}
