package reissue

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
	"github.com/go-playground/validator/v10"
)

type Request struct {
	RefreshToken string `json:"refresh_token" validate:"required"`
}

type Response struct {
	resp.Response
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
}

// New — самоописывающая ротация: userID берется из клеймов refresh токена,
// использованный токен попадает в блэклист
func New(
	log *slog.Logger,
	validate *validator.Validate,
	authService *auth.Auth,
) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		const op = "handlers.reissue.New"

		log = log.With(
			slog.String("op", op),
			slog.String("request_id", middleware.GetReqID(r.Context())),
		)

		req, ok := decode(w, r, log, validate)
		if !ok {
			return
		}

		ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
		defer cancel()

		pair, err := authService.ReissueToken(ctx, req.RefreshToken)
		if err != nil {
			log.Warn("failed to reissue tokens", sl.Err(err))

			resp.Err(w, r, err)

			return
		}

		log.Info("Tokens reissued successfully")

		ResponseOK(w, r, pair.AccessToken, pair.RefreshToken)
	}
}

// NewByUser — вариант для аутентифицированного вызова: userID приходит
// из authn middleware, а не из самого refresh токена
func NewByUser(
	log *slog.Logger,
	validate *validator.Validate,
	authService *auth.Auth,
) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		const op = "handlers.reissue.NewByUser"

		log = log.With(
			slog.String("op", op),
			slog.String("request_id", middleware.GetReqID(r.Context())),
		)

		req, ok := decode(w, r, log, validate)
		if !ok {
			return
		}

		ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
		defer cancel()

		pair, err := authService.Reissue(ctx, req.RefreshToken, authn.UserID(r))
		if err != nil {
			log.Warn("failed to reissue tokens", sl.Err(err))

			resp.Err(w, r, err)

			return
		}

		log.Info("Tokens reissued successfully")

		ResponseOK(w, r, pair.AccessToken, pair.RefreshToken)
	}
}

func decode(w http.ResponseWriter, r *http.Request, log *slog.Logger, validate *validator.Validate) (Request, bool) {
	var req Request

	err := render.DecodeJSON(r.Body, &req)
	if err != nil {
		log.Error("Failed to decode request body", sl.Err(err))

		render.Status(r, http.StatusBadRequest)
		render.JSON(w, r, resp.Error("Failed to decode request"))

		return req, false
	}

	if err := validate.Struct(req); err != nil {
		validateErr := err.(validator.ValidationErrors)

		log.Error("Invalid request", sl.Err(err))

		render.Status(r, http.StatusBadRequest)
		render.JSON(w, r, resp.ValidationError(validateErr))

		return req, false
	}

	return req, true
}

func ResponseOK(w http.ResponseWriter, r *http.Request, accessToken, refreshToken string) {
	render.JSON(w, r, Response{
		Response:     resp.OK(),
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
	})
}
