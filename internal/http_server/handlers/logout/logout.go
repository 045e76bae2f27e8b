package logout

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

// New — выход по access токену из заголовка Authorization
func New(
	log *slog.Logger,
	authService *auth.Auth,
) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		const op = "handlers.logout.New"

		log = log.With(
			slog.String("op", op),
			slog.String("request_id", middleware.GetReqID(r.Context())),
		)

		ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
		defer cancel()

		if err := authService.Logout(ctx, authn.BearerToken(r)); err != nil {
			log.Warn("failed to logout user", sl.Err(err))

			resp.Err(w, r, err)

			return
		}

		log.Info("user logged out successfully")

		ResponseOK(w, r)
	}
}

// NewByUser — выход по userID, уже установленному authn middleware
func NewByUser(
	log *slog.Logger,
	authService *auth.Auth,
) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		const op = "handlers.logout.NewByUser"

		log = log.With(
			slog.String("op", op),
			slog.String("request_id", middleware.GetReqID(r.Context())),
		)

		ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
		defer cancel()

		if err := authService.LogoutUser(ctx, authn.UserID(r)); err != nil {
			log.Error("failed to logout user", sl.Err(err))

			resp.Err(w, r, err)

			return
		}

		log.Info("user logged out successfully")

		ResponseOK(w, r)
	}
}

func ResponseOK(w http.ResponseWriter, r *http.Request) {
	render.JSON(w, r, Response{
		Response: resp.OK(),
	})
}
