package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"auth_backend/internal/apperr"
	"auth_backend/internal/lib/jwt"
	sl "auth_backend/internal/lib/logger"
	"auth_backend/internal/models"
	"auth_backend/internal/storage"

	"golang.org/x/crypto/bcrypt"
)

// Refresh токен живет с TTL из собственного клейма exp; если остаток
// вычислить не удалось, запись в хранилище получает этот фолбэк.
const refreshFallbackTTL = 14 * 24 * time.Hour

type UserSaver interface {
	SaveUser(ctx context.Context, user models.User) error
	UpdateUser(ctx context.Context, user models.User) error
}

type UserProvider interface {
	UserByID(ctx context.Context, userID string) (models.User, error)
	UserByEmail(ctx context.Context, email string) (models.User, error)
	ExistsByUserID(ctx context.Context, userID string) (bool, error)
	ExistsByEmail(ctx context.Context, email string) (bool, error)
}

// * VerificationChecker — факт «почта подтверждена», выставляемый почтовым сервисом
type VerificationChecker interface {
	IsEmailVerified(ctx context.Context, email string) bool
	RemoveEmailVerification(ctx context.Context, email string) error
}

type Auth struct {
	log          *slog.Logger
	usrSaver     UserSaver
	usrProvider  UserProvider
	verification VerificationChecker
	tokens       *jwt.Manager
	refresh      *refreshStore
	blacklist    *blacklist
	whitelist    *whitelist
}

func New(
	log *slog.Logger,
	userSaver UserSaver,
	userProvider UserProvider,
	verification VerificationChecker,
	tokens *jwt.Manager,
	ledger storage.Ledger,
) *Auth {
	return &Auth{
		log:          log,
		usrSaver:     userSaver,
		usrProvider:  userProvider,
		verification: verification,
		tokens:       tokens,
		refresh:      &refreshStore{ledger: ledger},
		blacklist:    &blacklist{ledger: ledger},
		whitelist:    &whitelist{ledger: ledger},
	}
}

// * SignUp регистрирует пользователя; требует подтвержденной почты,
// факт подтверждения потребляется однократно
func (a *Auth) SignUp(ctx context.Context, userID, email, password, name, birth string) error {
	const op = "auth.SignUp"

	log := a.log.With(slog.String("op", op))

	if !a.verification.IsEmailVerified(ctx, email) {
		log.Warn("email not verified")
		return apperr.ErrEmailNotVerified
	}

	emailTaken, err := a.usrProvider.ExistsByEmail(ctx, email)
	if err != nil {
		log.Error("failed to check email", sl.Err(err))
		return fmt.Errorf("%s: %w", op, err)
	}
	if emailTaken {
		return apperr.ErrEmailRegistered
	}

	idTaken, err := a.usrProvider.ExistsByUserID(ctx, userID)
	if err != nil {
		log.Error("failed to check user id", sl.Err(err))
		return fmt.Errorf("%s: %w", op, err)
	}
	if idTaken {
		return apperr.ErrUserIDRegistered
	}

	passHash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		log.Error("failed to generate password hash", sl.Err(err))
		return fmt.Errorf("%s: %w", op, err)
	}

	user := models.User{
		UserID:   userID,
		Email:    email,
		PassHash: passHash,
		Name:     name,
		Birth:    birth,
	}

	if err := a.usrSaver.SaveUser(ctx, user); err != nil {
		if errors.Is(err, storage.ErrUserExists) {
			return apperr.ErrEmailRegistered
		}

		log.Error("failed to save user", sl.Err(err))
		return fmt.Errorf("%s: %w", op, err)
	}

	if err := a.verification.RemoveEmailVerification(ctx, email); err != nil {
		log.Warn("failed to consume verification fact", sl.Err(err))
	}

	log.Info("user registered", slog.String("user_id", userID))

	return nil
}

// * Login проверяет учетные данные и выпускает пару access/refresh.
// Refresh токен сохраняется под ключом пользователя и вытесняет предыдущий.
func (a *Auth) Login(ctx context.Context, userID, password string) (models.TokenPair, error) {
	const op = "auth.Login"

	log := a.log.With(slog.String("op", op))

	user, err := a.usrProvider.UserByID(ctx, userID)
	if err != nil {
		if errors.Is(err, storage.ErrUserNotFound) {
			log.Warn("user not found")
			return models.TokenPair{}, apperr.ErrNotFound
		}

		log.Error("failed to get user", sl.Err(err))
		return models.TokenPair{}, fmt.Errorf("%s: %w", op, err)
	}

	if err := bcrypt.CompareHashAndPassword(user.PassHash, []byte(password)); err != nil {
		log.Info("invalid credentials", sl.Err(err))
		return models.TokenPair{}, apperr.ErrLogin
	}

	accessToken, err := a.tokens.NewAccessToken(user.UserID)
	if err != nil {
		log.Error("failed to generate access token", sl.Err(err))
		return models.TokenPair{}, fmt.Errorf("%s: %w", op, err)
	}

	refreshToken, err := a.tokens.NewRefreshToken(user.UserID)
	if err != nil {
		log.Error("failed to generate refresh token", sl.Err(err))
		return models.TokenPair{}, fmt.Errorf("%s: %w", op, err)
	}

	ttl, err := a.tokens.RemainingDuration(refreshToken)
	if err != nil {
		ttl = refreshFallbackTTL
	}

	if err := a.refresh.Save(ctx, user.UserID, refreshToken, ttl); err != nil {
		log.Error("failed to save refresh token", sl.Err(err))
		return models.TokenPair{}, fmt.Errorf("%s: %w", op, err)
	}

	if accessTTL, err := a.tokens.RemainingDuration(accessToken); err == nil {
		if err := a.whitelist.Add(ctx, accessToken, accessTTL); err != nil {
			log.Warn("failed to whitelist access token", sl.Err(err))
		}
	}

	log.Info("user logged in successfully", slog.String("user_id", user.UserID))

	return models.TokenPair{AccessToken: accessToken, RefreshToken: refreshToken}, nil
}

// * Logout гасит сессию по access токену: refresh запись удаляется,
// сам access токен уходит в блэклист на остаток своего срока
func (a *Auth) Logout(ctx context.Context, accessToken string) error {
	const op = "auth.Logout"

	log := a.log.With(slog.String("op", op))

	if accessToken == "" {
		return apperr.ErrEmptyJWT
	}

	userID, err := a.tokens.UserID(accessToken)
	if err != nil {
		log.Warn("failed to extract user id", sl.Err(err))
		return apperr.ErrInvalidAccess
	}

	remaining, err := a.tokens.RemainingDuration(accessToken)
	if err != nil {
		log.Warn("failed to compute remaining ttl", sl.Err(err))
		return apperr.ErrInvalidAccess
	}

	if err := a.refresh.Delete(ctx, userID); err != nil {
		log.Error("failed to delete refresh token", sl.Err(err))
		return fmt.Errorf("%s: %w", op, err)
	}

	if err := a.whitelist.Delete(ctx, accessToken); err != nil {
		log.Error("failed to delete whitelist entry", sl.Err(err))
		return fmt.Errorf("%s: %w", op, err)
	}

	if err := a.blacklist.Add(ctx, accessToken, remaining); err != nil {
		log.Error("failed to blacklist access token", sl.Err(err))
		return fmt.Errorf("%s: %w", op, err)
	}

	log.Info("user logged out", slog.String("user_id", userID))

	return nil
}

// * LogoutUser — выход по уже известному userID (доверенный заголовок),
// токен не разбирается, удаляется только refresh запись
func (a *Auth) LogoutUser(ctx context.Context, userID string) error {
	const op = "auth.LogoutUser"

	if err := a.refresh.Delete(ctx, userID); err != nil {
		a.log.Error("failed to delete refresh token",
			slog.String("op", op), sl.Err(err))
		return fmt.Errorf("%s: %w", op, err)
	}

	return nil
}

// * Reissue — вариант с явным userID от вызывающей стороны.
// Новый refresh наследует остаток TTL старого.
func (a *Auth) Reissue(ctx context.Context, refreshToken, userID string) (models.TokenPair, error) {
	const op = "auth.Reissue"

	log := a.log.With(slog.String("op", op))

	saved, err := a.refresh.Get(ctx, userID)
	if err != nil || saved != refreshToken {
		log.Warn("refresh token mismatch")
		return models.TokenPair{}, apperr.ErrInvalidRefresh
	}

	if err := a.refresh.Delete(ctx, userID); err != nil {
		log.Error("failed to delete refresh token", sl.Err(err))
		return models.TokenPair{}, fmt.Errorf("%s: %w", op, err)
	}

	if _, err := a.usrProvider.UserByID(ctx, userID); err != nil {
		if errors.Is(err, storage.ErrUserNotFound) {
			return models.TokenPair{}, apperr.ErrNotFound
		}

		log.Error("failed to load user", sl.Err(err))
		return models.TokenPair{}, fmt.Errorf("%s: %w", op, err)
	}

	newAccess, err := a.tokens.NewAccessToken(userID)
	if err != nil {
		log.Error("failed to generate access token", sl.Err(err))
		return models.TokenPair{}, fmt.Errorf("%s: %w", op, err)
	}

	newRefresh, err := a.tokens.NewRefreshToken(userID)
	if err != nil {
		log.Error("failed to generate refresh token", sl.Err(err))
		return models.TokenPair{}, fmt.Errorf("%s: %w", op, err)
	}

	duration, err := a.tokens.RemainingDuration(refreshToken)
	if err != nil {
		return models.TokenPair{}, apperr.ErrExpiredMemberJWT
	}

	if err := a.refresh.Save(ctx, userID, newRefresh, duration); err != nil {
		log.Error("failed to save refresh token", sl.Err(err))
		return models.TokenPair{}, fmt.Errorf("%s: %w", op, err)
	}

	log.Info("tokens reissued", slog.String("user_id", userID))

	return models.TokenPair{AccessToken: newAccess, RefreshToken: newRefresh}, nil
}

// * ReissueToken — самоописывающий вариант: userID извлекается из самого
// refresh токена, использованный токен дополнительно уходит в блэклист,
// что исключает его повторное применение в пределах исходного срока
func (a *Auth) ReissueToken(ctx context.Context, refreshToken string) (models.TokenPair, error) {
	const op = "auth.ReissueToken"

	log := a.log.With(slog.String("op", op))

	if !a.tokens.Validate(refreshToken) {
		log.Warn("refresh token failed validation")
		return models.TokenPair{}, apperr.ErrInvalidRefresh
	}

	userID, err := a.tokens.UserID(refreshToken)
	if err != nil {
		return models.TokenPair{}, apperr.ErrInvalidRefresh
	}

	saved, err := a.refresh.Get(ctx, userID)
	if err != nil || saved != refreshToken {
		log.Warn("refresh token mismatch", slog.String("user_id", userID))
		return models.TokenPair{}, apperr.ErrInvalidRefresh
	}

	remaining, err := a.tokens.RemainingDuration(refreshToken)
	if err != nil {
		return models.TokenPair{}, apperr.ErrExpiredRefresh
	}

	newAccess, err := a.tokens.NewAccessToken(userID)
	if err != nil {
		log.Error("failed to generate access token", sl.Err(err))
		return models.TokenPair{}, fmt.Errorf("%s: %w", op, err)
	}

	newRefresh, err := a.tokens.NewRefreshToken(userID)
	if err != nil {
		log.Error("failed to generate refresh token", sl.Err(err))
		return models.TokenPair{}, fmt.Errorf("%s: %w", op, err)
	}

	newTTL, err := a.tokens.RemainingDuration(newRefresh)
	if err != nil {
		newTTL = refreshFallbackTTL
	}

	if err := a.refresh.Delete(ctx, userID); err != nil {
		log.Error("failed to delete refresh token", sl.Err(err))
		return models.TokenPair{}, fmt.Errorf("%s: %w", op, err)
	}

	if err := a.refresh.Save(ctx, userID, newRefresh, newTTL); err != nil {
		log.Error("failed to save refresh token", sl.Err(err))
		return models.TokenPair{}, fmt.Errorf("%s: %w", op, err)
	}

	if err := a.blacklist.Add(ctx, refreshToken, remaining); err != nil {
		log.Error("failed to blacklist used refresh token", sl.Err(err))
		return models.TokenPair{}, fmt.Errorf("%s: %w", op, err)
	}

	log.Info("tokens reissued", slog.String("user_id", userID))

	return models.TokenPair{AccessToken: newAccess, RefreshToken: newRefresh}, nil
}

// * VerifyToken — проверка для доверенного прокси (auth-request).
// Любой сбой проверки пользователя схлопывается в InvalidAccessToken,
// чтобы не раскрывать существование аккаунта.
func (a *Auth) VerifyToken(ctx context.Context, accessToken string) (string, error) {
	const op = "auth.VerifyToken"

	log := a.log.With(slog.String("op", op))

	if accessToken == "" {
		return "", apperr.ErrEmptyJWT
	}

	if !a.tokens.Validate(accessToken) {
		return "", apperr.ErrInvalidAccess
	}

	isAccess, err := a.tokens.IsAccessToken(accessToken)
	if err != nil || !isAccess {
		return "", apperr.ErrInvalidAccess
	}

	blacklisted, err := a.blacklist.Contains(ctx, accessToken)
	if err != nil {
		log.Error("failed to check blacklist", sl.Err(err))
		return "", fmt.Errorf("%s: %w", op, err)
	}
	if blacklisted {
		return "", apperr.ErrInvalidAccess
	}

	userID, err := a.tokens.UserID(accessToken)
	if err != nil {
		return "", apperr.ErrInvalidAccess
	}

	if _, err := a.usrProvider.UserByID(ctx, userID); err != nil {
		log.Warn("token owner lookup failed", sl.Err(err))
		return "", apperr.ErrInvalidAccess
	}

	return userID, nil
}
