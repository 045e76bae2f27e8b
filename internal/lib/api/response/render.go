package response

import (
	"errors"
	"net/http"

	"auth_backend/internal/apperr"

	"github.com/go-chi/render"
)

// * Err приводит бизнес-ошибку к ответу со статусом и кодом;
// все прочие ошибки схлопываются во внутреннюю без деталей
func Err(w http.ResponseWriter, r *http.Request, err error) {
	var appErr *apperr.Error
	if errors.As(err, &appErr) {
		render.Status(r, appErr.Status)
		render.JSON(w, r, ErrorWithCode(appErr.Code, appErr.Message))

		return
	}

	render.Status(r, http.StatusInternalServerError)
	render.JSON(w, r, Error("Internal error"))
}
