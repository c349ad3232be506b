package authenticate

import (
	"OrderFlow/entity"
	"OrderFlow/internal/lib/api/cont"
	"OrderFlow/internal/lib/api/response"
	"OrderFlow/internal/lib/sl"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/render"
)

type Authenticate interface {
	AuthenticateByToken(token string) (*entity.Session, error)
}

func New(log *slog.Logger, auth Authenticate) func(next http.Handler) http.Handler {
	mod := sl.Module("middleware.authenticate")
	log.With(mod).Info("authenticate middleware initialized")

	return func(next http.Handler) http.Handler {

		fn := func(w http.ResponseWriter, r *http.Request) {
			logger := log.With(
				mod,
				slog.String("path", r.URL.Path),
				slog.String("request_id", middleware.GetReqID(r.Context())),
			)

			token := ""
			header := r.Header.Get("Authorization")
			if len(header) == 0 {
				logger.Debug("rejected", sl.Err(fmt.Errorf("authorization header not found")))
				authFailed(w, r, "Authorization header not found")
				return
			}
			if parts := strings.SplitN(header, " ", 2); len(parts) == 2 && parts[0] == "Bearer" {
				token = strings.TrimSpace(parts[1])
			}
			if len(token) == 0 {
				logger.Debug("rejected", sl.Err(fmt.Errorf("token not found")))
				authFailed(w, r, "Token not found")
				return
			}

			if auth == nil {
				authFailed(w, r, "Unauthorized: authentication not enabled")
				return
			}

			session, err := auth.AuthenticateByToken(token)
			if err != nil {
				logger.With(sl.Secret("token", token)).Debug("rejected", sl.Err(err))
				authFailed(w, r, "Unauthorized: invalid token")
				return
			}
			ctx := cont.PutSession(r.Context(), session)

			w.Header().Set("X-User", session.UserID)
			next.ServeHTTP(w, r.WithContext(ctx))
		}

		return http.HandlerFunc(fn)
	}
}

func authFailed(w http.ResponseWriter, r *http.Request, message string) {
	render.Status(r, http.StatusUnauthorized)
	render.JSON(w, r, response.Error(message))
}
