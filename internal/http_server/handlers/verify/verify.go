package verify

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"auth_backend/internal/auth"
	resp "auth_backend/internal/lib/api/response"
	sl "auth_backend/internal/lib/logger"
	"auth_backend/internal/middleware/authn"

	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"
)

type Response struct {
	resp.Response
}

// New — проверка токена для доверенного прокси (auth-request).
// Разрешенный userID уходит вызывающему в заголовке X-User-Id.
func New(
	log *slog.Logger,
	authService *auth.Auth,
) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		const op = "handlers.verify.New"

		log = log.With(
			slog.String("op", op),
			slog.String("request_id", middleware.GetReqID(r.Context())),
		)

		ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
		defer cancel()

		userID, err := authService.VerifyToken(ctx, authn.BearerToken(r))
		if err != nil {
			log.Warn("token verification failed", sl.Err(err))

			resp.Err(w, r, err)

			return
		}

		w.Header().Set("X-User-Id", userID)

		log.Info("token verified", slog.String("user_id", userID))

		ResponseOK(w, r)
	}
}

func ResponseOK(w http.ResponseWriter, r *http.Request) {
	render.JSON(w, r, Response{
		Response: resp.OK(),
	})
}
