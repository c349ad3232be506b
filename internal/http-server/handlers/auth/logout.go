package auth

import (
	"OrderFlow/internal/http-server/handlers/errors"
	"OrderFlow/internal/lib/api/cont"
	"OrderFlow/internal/lib/api/response"
	"OrderFlow/internal/lib/sl"
	"log/slog"
	"net/http"

	"github.com/go-chi/render"
)

func Logout(log *slog.Logger, handler Core) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		session := cont.GetSession(r.Context())
		if session == nil {
			render.Status(r, http.StatusUnauthorized)
			render.JSON(w, r, response.Error("Unauthorized"))
			return
		}

		if err := handler.Logout(r.Context(), session); err != nil {
			log.With(sl.Module("http.handlers.auth")).Error("logout", sl.Err(err))
			errors.Render(w, r, err, nil)
			return
		}

		render.JSON(w, r, response.Ok("已退出登录"))
	}
}
