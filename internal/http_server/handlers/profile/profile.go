package profile

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"auth_backend/internal/auth"
	resp "auth_backend/internal/lib/api/response"
	sl "auth_backend/internal/lib/logger"
	"auth_backend/internal/middleware/authn"
	"auth_backend/internal/models"

	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"
	"github.com/go-playground/validator/v10"
)

type UpdateRequest struct {
	Name            string `json:"name" validate:"required"`
	Birth           string `json:"birth"`
	CurrentPassword string `json:"current_password"`
	NewPassword     string `json:"new_password"`
}

type Response struct {
	resp.Response
	Profile models.Profile `json:"profile"`
}

func NewGet(
	log *slog.Logger,
	authService *auth.Auth,
) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		const op = "handlers.profile.NewGet"

		log = log.With(
			slog.String("op", op),
			slog.String("request_id", middleware.GetReqID(r.Context())),
		)

		ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
		defer cancel()

		p, err := authService.Profile(ctx, authn.UserID(r))
		if err != nil {
			log.Warn("failed to load profile", sl.Err(err))

			resp.Err(w, r, err)

			return
		}

		ResponseOK(w, r, p)
	}
}

func NewUpdate(
	log *slog.Logger,
	validate *validator.Validate,
	authService *auth.Auth,
) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		const op = "handlers.profile.NewUpdate"

		log = log.With(
			slog.String("op", op),
			slog.String("request_id", middleware.GetReqID(r.Context())),
		)

		var req UpdateRequest

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

		p, err := authService.UpdateProfile(ctx, authn.UserID(r), req.Name, req.Birth, req.CurrentPassword, req.NewPassword)
		if err != nil {
			log.Warn("failed to update profile", sl.Err(err))

			resp.Err(w, r, err)

			return
		}

		log.Info("profile updated")

		ResponseOK(w, r, p)
	}
}

func ResponseOK(w http.ResponseWriter, r *http.Request, p models.Profile) {
	render.JSON(w, r, Response{
		Response: resp.OK(),
		Profile:  p,
	})
}
