package errors

import (
	"OrderFlow/bot/flow"
	"OrderFlow/impl/core"
	"OrderFlow/internal/lib/api/response"
	"OrderFlow/internal/service/session"
	stderrors "errors"
	"net/http"

	"github.com/go-chi/render"
)

type userMessenger interface {
	UserMessage() string
}

// Status maps a core error to the HTTP status and the message shown to the user.
// Silent flow guards map to 200.
func Status(err error) (int, string) {
	var validation *flow.ValidationError
	var remote userMessenger

	switch {
	case flow.Silent(err):
		return http.StatusOK, ""
	case stderrors.As(err, &validation):
		return http.StatusUnprocessableEntity, validation.Reason
	case stderrors.Is(err, flow.ErrInvalidInput):
		return http.StatusUnprocessableEntity, "输入无效"
	case stderrors.Is(err, core.ErrInvalidPhone), stderrors.Is(err, core.ErrInvalidCode):
		return http.StatusBadRequest, err.Error()
	case stderrors.Is(err, session.ErrInvalidToken):
		return http.StatusUnauthorized, "身份验证失败，请重新登录"
	case stderrors.Is(err, flow.ErrOutOfOrderSubmit),
		stderrors.Is(err, flow.ErrEditInProgress),
		stderrors.Is(err, flow.ErrNotEditing),
		stderrors.Is(err, flow.ErrNotAnswering),
		stderrors.Is(err, flow.ErrNotReady),
		stderrors.Is(err, flow.ErrStepLocked),
		stderrors.Is(err, flow.ErrAlreadyAuthenticated),
		stderrors.Is(err, flow.ErrUnknownStep):
		return http.StatusConflict, err.Error()
	case stderrors.As(err, &remote):
		return http.StatusBadGateway, remote.UserMessage()
	case stderrors.Is(err, core.ErrUnavailable):
		return http.StatusServiceUnavailable, "服务暂时不可用，请稍后再试"
	}
	return http.StatusInternalServerError, "服务器内部错误"
}

// Render writes err with its mapped status. data, usually the current flow view, is
// returned along with the error.
func Render(w http.ResponseWriter, r *http.Request, err error, data interface{}) {
	status, message := Status(err)
	if status == http.StatusOK {
		render.JSON(w, r, response.Ok(data))
		return
	}
	render.Status(r, status)
	render.JSON(w, r, response.Fail(message, data))
}
