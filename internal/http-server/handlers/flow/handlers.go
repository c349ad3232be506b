package flow

import (
	"OrderFlow/bot/flow"
	"OrderFlow/entity"
	"OrderFlow/internal/lib/api/response"
	"OrderFlow/internal/lib/validate"
	"log/slog"
	"net/http"

	"github.com/go-chi/render"
)

func GetView(log *slog.Logger, handler Core) http.HandlerFunc {
	return serve(log, "view", func(r *http.Request, s *entity.Session) (flow.View, error) {
		return handler.CurrentView(r.Context(), s)
	})
}

// stepHandler decodes a StepRequest before running the action.
func stepHandler(log *slog.Logger, name string, do func(r *http.Request, s *entity.Session, req StepRequest) (flow.View, error)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req StepRequest
		if !decode(w, r, &req) {
			return
		}
		if validate.Struct(req) != nil {
			render.Status(r, http.StatusBadRequest)
			render.JSON(w, r, response.Error("step is required"))
			return
		}
		serve(log, name, func(r *http.Request, s *entity.Session) (flow.View, error) {
			return do(r, s, req)
		})(w, r)
	}
}

func SubmitAnswer(log *slog.Logger, handler Core) http.HandlerFunc {
	return stepHandler(log, "answer", func(r *http.Request, s *entity.Session, req StepRequest) (flow.View, error) {
		return handler.SubmitAnswer(r.Context(), s, *req.Step, req.Input)
	})
}

func Draft(log *slog.Logger, handler Core) http.HandlerFunc {
	return stepHandler(log, "draft", func(r *http.Request, s *entity.Session, req StepRequest) (flow.View, error) {
		return handler.Draft(r.Context(), s, *req.Step, req.Input)
	})
}

func RequestEdit(log *slog.Logger, handler Core) http.HandlerFunc {
	return stepHandler(log, "edit", func(r *http.Request, s *entity.Session, req StepRequest) (flow.View, error) {
		return handler.RequestEdit(r.Context(), s, *req.Step)
	})
}

func ConfirmEdit(log *slog.Logger, handler Core) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			Input flow.Input `json:"input"`
		}
		if !decode(w, r, &req) {
			return
		}
		serve(log, "edit_confirm", func(r *http.Request, s *entity.Session) (flow.View, error) {
			return handler.ConfirmEdit(r.Context(), s, req.Input)
		})(w, r)
	}
}

func CancelEdit(log *slog.Logger, handler Core) http.HandlerFunc {
	return serve(log, "edit_cancel", func(r *http.Request, s *entity.Session) (flow.View, error) {
		return handler.CancelEdit(r.Context(), s)
	})
}

func ClaimFreeOrder(log *slog.Logger, handler Core) http.HandlerFunc {
	return serve(log, "free_order", func(r *http.Request, s *entity.Session) (flow.View, error) {
		return handler.ClaimFreeOrder(r.Context(), s)
	})
}

func Submit(log *slog.Logger, handler Core) http.HandlerFunc {
	return serve(log, "submit", func(r *http.Request, s *entity.Session) (flow.View, error) {
		return handler.SubmitOrder(r.Context(), s)
	})
}
