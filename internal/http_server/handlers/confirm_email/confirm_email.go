package confirmEmail

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"auth_backend/internal/email"
	resp "auth_backend/internal/lib/api/response"
	sl "auth_backend/internal/lib/logger"

	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"
)

type Response struct {
	resp.Response
	Email string `json:"email"`
}

// New — подтверждение по JWT ссылке из письма (?token=...)
func New(
	log *slog.Logger,
	emailService *email.Service,
) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		const op = "handlers.confirmEmail.New"

		log = log.With(
			slog.String("op", op),
			slog.String("request_id", middleware.GetReqID(r.Context())),
		)

		token := r.URL.Query().Get("token")
		if token == "" {
			log.Warn("missing verification token")

			render.Status(r, http.StatusBadRequest)
			render.JSON(w, r, resp.Error("missing token"))

			return
		}

		ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
		defer cancel()

		addr, err := emailService.ConfirmByToken(ctx, token)
		if err != nil {
			log.Warn("invalid verification token", sl.Err(err))

			resp.Err(w, r, err)

			return
		}

		log.Info("email verified by link")

		render.JSON(w, r, Response{
			Response: resp.OK(),
			Email:    addr,
		})
	}
}
