package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"auth_backend/internal/apperr"
	sl "auth_backend/internal/lib/logger"
	"auth_backend/internal/models"
	"auth_backend/internal/storage"

	"golang.org/x/crypto/bcrypt"
)

func (a *Auth) Profile(ctx context.Context, userID string) (models.Profile, error) {
	const op = "auth.Profile"

	user, err := a.usrProvider.UserByID(ctx, userID)
	if err != nil {
		if errors.Is(err, storage.ErrUserNotFound) {
			return models.Profile{}, apperr.ErrNotFound
		}

		a.log.Error("failed to load user", slog.String("op", op), sl.Err(err))
		return models.Profile{}, fmt.Errorf("%s: %w", op, err)
	}

	return profileOf(user), nil
}

// * UpdateProfile меняет имя и дату рождения всегда; пароль — только при
// переданном новом пароле и совпадении текущего
func (a *Auth) UpdateProfile(ctx context.Context, userID, name, birth, currentPassword, newPassword string) (models.Profile, error) {
	const op = "auth.UpdateProfile"

	log := a.log.With(slog.String("op", op))

	user, err := a.usrProvider.UserByID(ctx, userID)
	if err != nil {
		if errors.Is(err, storage.ErrUserNotFound) {
			return models.Profile{}, apperr.ErrNotFound
		}

		log.Error("failed to load user", sl.Err(err))
		return models.Profile{}, fmt.Errorf("%s: %w", op, err)
	}

	if newPassword != "" {
		if err := bcrypt.CompareHashAndPassword(user.PassHash, []byte(currentPassword)); err != nil {
			log.Warn("current password mismatch")
			return models.Profile{}, apperr.ErrUnauthorized
		}

		passHash, err := bcrypt.GenerateFromPassword([]byte(newPassword), bcrypt.DefaultCost)
		if err != nil {
			log.Error("failed to generate password hash", sl.Err(err))
			return models.Profile{}, fmt.Errorf("%s: %w", op, err)
		}

		user.PassHash = passHash
	}

	user.Name = name
	user.Birth = birth

	if err := a.usrSaver.UpdateUser(ctx, user); err != nil {
		log.Error("failed to update user", sl.Err(err))
		return models.Profile{}, fmt.Errorf("%s: %w", op, err)
	}

	log.Info("profile updated", slog.String("user_id", userID))

	return profileOf(user), nil
}

func profileOf(user models.User) models.Profile {
	return models.Profile{
		UserID: user.UserID,
		Email:  user.Email,
		Name:   user.Name,
		Birth:  user.Birth,
	}
}
