package verifyEmail

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
	"github.com/go-playground/validator/v10"
)

type Request struct {
	Email string `json:"email" validate:"required,email"`
	Code  string `json:"verification_code" validate:"required,len=6"`
}

type Response struct {
	resp.Response
	Verified     bool  `json:"verified"`
	ExpiresInSec int64 `json:"expires_in_sec"`
}

func New(
	log *slog.Logger,
	validate *validator.Validate,
	emailService *email.Service,
) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		const op = "handlers.verifyEmail.New"

		log = log.With(
			slog.String("op", op),
			slog.String("request_id", middleware.GetReqID(r.Context())),
		)

		var req Request

		err := render.DecodeJSON(r.Body, &req)
		if err != nil {
			log.Error("Failed to decode request body", sl.Err(err))

			render.Status(r, http.StatusBadRequest)
			render.JSON(w, r, resp.Error("Failed to decode request"))

			return
		}

		if err := validate.Struct(req); err != nil {
			validateErr := err.(validator.ValidationErrors)

			log.Error("Invalid request", sl.Err(err))

			render.Status(r, http.StatusBadRequest)
			render.JSON(w, r, resp.ValidationError(validateErr))

			return
		}

		ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
		defer cancel()

		expiresIn, err := emailService.VerifyEmail(ctx, req.Email, req.Code)
		if err != nil {
			log.Warn("email verification failed", sl.Err(err))

			resp.Err(w, r, err)

			return
		}

		log.Info("email verified")

		ResponseOK(w, r, expiresIn)
	}
}

func ResponseOK(w http.ResponseWriter, r *http.Request, expiresIn int64) {
	render.JSON(w, r, Response{
		Response:     resp.OK(),
		Verified:     true,
		ExpiresInSec: expiresIn,
	})
}
