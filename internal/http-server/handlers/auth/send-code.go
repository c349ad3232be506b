package auth

import (
	"OrderFlow/internal/http-server/handlers/errors"
	"OrderFlow/internal/lib/api/response"
	"OrderFlow/internal/lib/sl"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/render"
)

type CodeRequest struct {
	Phone string `json:"phone_number" validate:"required"`
}

func SendCode(log *slog.Logger, handler Core) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		mod := sl.Module("http.handlers.auth")

		logger := log.With(
			mod,
			slog.String("request_id", middleware.GetReqID(r.Context())),
		)

		var req CodeRequest
		if err := render.DecodeJSON(r.Body, &req); err != nil {
			logger.Error("failed to decode request body", sl.Err(err))
			render.Status(r, http.StatusBadRequest)
			render.JSON(w, r, response.Error("Invalid request body"))
			return
		}
		logger = logger.With(sl.Secret("phone", req.Phone))

		if err := handler.SendVerificationCode(r.Context(), req.Phone); err != nil {
			logger.Warn("send verification code", sl.Err(err))
			errors.Render(w, r, err, nil)
			return
		}
		logger.Debug("verification code sent")

		render.JSON(w, r, response.Ok("验证码已发送"))
	}
}
