package api

import (
	"OrderFlow/internal/config"
	"OrderFlow/internal/http-server/handlers/address"
	"OrderFlow/internal/http-server/handlers/auth"
	"OrderFlow/internal/http-server/handlers/errors"
	"OrderFlow/internal/http-server/handlers/flow"
	"OrderFlow/internal/http-server/handlers/invite"
	"OrderFlow/internal/http-server/middleware/authenticate"
	"OrderFlow/internal/http-server/middleware/logger"
	"OrderFlow/internal/lib/sl"
	"OrderFlow/internal/metrics"
	"OrderFlow/internal/ws"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/render"
)

const requestTimeout = 30 * time.Second

type Server struct {
	conf       *config.Config
	httpServer *http.Server
	log        *slog.Logger
}

type Handler interface {
	authenticate.Authenticate
	ws.Authenticator
	auth.Core
	flow.Core
	address.Core
	invite.Core
}

// NewRouter builds the API routes. hub and collector are optional.
func NewRouter(log *slog.Logger, handler Handler, hub *ws.Hub, collector *metrics.Collector) http.Handler {
	var recorder logger.Recorder
	if collector != nil {
		recorder = collector
	}

	router := chi.NewRouter()
	router.Use(middleware.RequestID)
	router.Use(middleware.Recoverer)
	router.Use(logger.New(log, recorder))

	router.NotFound(errors.NotFound(log))
	router.MethodNotAllowed(errors.NotAllowed(log))

	if collector != nil {
		router.Handle("/metrics", collector.Handler())
	}

	router.Route("/api/v1", func(v1 chi.Router) {
		if hub != nil {
			// token is passed as a query parameter, browsers cannot set headers on upgrade
			v1.Get("/ws", func(w http.ResponseWriter, r *http.Request) {
				ws.ServeWs(hub, handler, log, w, r)
			})
		}

		v1.Group(func(r chi.Router) {
			r.Use(middleware.Timeout(requestTimeout))
			r.Use(render.SetContentType(render.ContentTypeJSON))

			r.Route("/auth", func(r chi.Router) {
				r.Post("/code", auth.SendCode(log, handler))
				r.Post("/login", auth.Login(log, handler))
				r.Post("/invite", auth.LoginWithInvite(log, handler))
				r.With(authenticate.New(log, handler)).Post("/logout", auth.Logout(log, handler))
			})

			r.Group(func(r chi.Router) {
				r.Use(authenticate.New(log, handler))

				r.Route("/flow", func(r chi.Router) {
					r.Get("/", flow.GetView(log, handler))
					r.Post("/answer", flow.SubmitAnswer(log, handler))
					r.Post("/draft", flow.Draft(log, handler))
					r.Post("/edit", flow.RequestEdit(log, handler))
					r.Post("/edit/confirm", flow.ConfirmEdit(log, handler))
					r.Post("/edit/cancel", flow.CancelEdit(log, handler))
					r.Post("/free-order", flow.ClaimFreeOrder(log, handler))
					r.Post("/submit", flow.Submit(log, handler))
				})
				r.Get("/address/search", address.Search(log, handler))
				r.Get("/invite", invite.Summary(log, handler))
			})
		})
	})

	return router
}

func New(conf *config.Config, log *slog.Logger, handler Handler, hub *ws.Hub, collector *metrics.Collector) error {

	server := Server{
		conf: conf,
		log:  log.With(sl.Module("api.server")),
	}

	httpLog := slog.NewLogLogger(log.Handler(), slog.LevelError)
	server.httpServer = &http.Server{
		Handler:  NewRouter(log, handler, hub, collector),
		ErrorLog: httpLog,
	}

	serverAddress := fmt.Sprintf("%s:%s", conf.Listen.BindIP, conf.Listen.Port)
	listener, err := net.Listen("tcp", serverAddress)
	if err != nil {
		return err
	}

	server.log.Info("starting api server", slog.String("address", serverAddress))

	return server.httpServer.Serve(listener)
}
