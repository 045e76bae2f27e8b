package email

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"log/slog"
	"math/big"
	"time"

	"auth_backend/internal/apperr"
	"auth_backend/internal/lib/jwt"
	sl "auth_backend/internal/lib/logger"
	"auth_backend/internal/models"
	"auth_backend/internal/storage"
)

const (
	verifiedPrefix = "EMAIL_VERIFIED:"
	codePrefix     = "EMAIL_VERIFICATION_CODE:"
	attemptPrefix  = "EMAIL_VERIFICATION_ATTEMPT:"
	cooldownPrefix = "EMAIL_COOLDOWN:"
	sendPrefix     = "EMAIL_ATTEMPT:"

	codeTTL     = 5 * time.Minute
	verifiedTTL = 30 * time.Minute
	attemptTTL  = 10 * time.Minute
	cooldownTTL = 60 * time.Second

	maxDailySends     = 5
	maxVerifyAttempts = 5

	// purpose-клейм JWT токена подтверждения регистрации
	PurposeSignup = "signup"
)

type Publisher interface {
	SendMessage(ctx context.Context, msg models.Message) error
}

// * Service держит машину состояний подтверждения почты:
// нет кода → код активен (5 мин) → почта подтверждена (30 мин).
// Кулдаун и дневной счетчик отправок живут на собственных ключах.
type Service struct {
	log       *slog.Logger
	ledger    storage.Ledger
	publisher Publisher
	tokens    *jwt.Manager
}

func New(log *slog.Logger, ledger storage.Ledger, publisher Publisher, tokens *jwt.Manager) *Service {
	return &Service{
		log:       log,
		ledger:    ledger,
		publisher: publisher,
		tokens:    tokens,
	}
}

// * SendVerification отправляет 6-значный код. Кулдаун проверяется раньше
// дневного лимита.
func (s *Service) SendVerification(ctx context.Context, email string) error {
	const op = "email.SendVerification"

	log := s.log.With(slog.String("op", op))

	if s.inCooldown(ctx, email) {
		log.Warn("send cooldown active")
		return apperr.ErrEmailCooldown
	}

	if s.todaySendCount(ctx, email) >= maxDailySends {
		log.Warn("daily send limit exceeded")
		return apperr.ErrEmailDailyLimit
	}

	code, err := generateCode()
	if err != nil {
		log.Error("failed to generate code", sl.Err(err))
		return fmt.Errorf("%s: %w", op, err)
	}

	if err := s.ledger.Set(ctx, codePrefix+email, code, codeTTL); err != nil {
		log.Error("failed to save verification code", sl.Err(err))
		return fmt.Errorf("%s: %w", op, err)
	}

	token, err := s.tokens.NewEmailVerificationToken(email, PurposeSignup)
	if err != nil {
		log.Error("failed to generate verification token", sl.Err(err))
		return fmt.Errorf("%s: %w", op, err)
	}

	msg := models.Message{
		Email:   email,
		Subject: "Email verification",
		Body:    verificationBody(code, token),
	}

	if err := s.publisher.SendMessage(ctx, msg); err != nil {
		log.Error("failed to publish verification email", sl.Err(err))
		return apperr.ErrEmailSendFailed
	}

	s.setCooldown(ctx, email)
	s.countSend(ctx, email)

	log.Info("verification code sent")

	return nil
}

// * VerifyEmail сверяет код; при успехе код и счетчик попыток удаляются,
// факт подтверждения сохраняется на 30 минут. Возвращает TTL факта в секундах.
func (s *Service) VerifyEmail(ctx context.Context, email, code string) (int64, error) {
	const op = "email.VerifyEmail"

	log := s.log.With(slog.String("op", op))

	if s.attemptCount(ctx, email) >= maxVerifyAttempts {
		log.Warn("verify attempts exceeded")
		return 0, apperr.ErrEmailInvalidCode
	}

	stored, err := s.ledger.Get(ctx, codePrefix+email)
	if err != nil {
		if errors.Is(err, storage.ErrKeyNotFound) {
			s.countAttempt(ctx, email)
			return 0, apperr.ErrEmailInvalidCode
		}

		log.Error("failed to load verification code", sl.Err(err))
		return 0, apperr.ErrEmailVerification
	}

	if stored != code {
		log.Warn("verification code mismatch")
		s.countAttempt(ctx, email)
		return 0, apperr.ErrEmailInvalidCode
	}

	if err := s.ledger.Delete(ctx, codePrefix+email); err != nil {
		log.Error("failed to delete verification code", sl.Err(err))
		return 0, apperr.ErrEmailVerification
	}

	if err := s.ledger.Delete(ctx, attemptPrefix+email); err != nil {
		log.Warn("failed to reset attempt counter", sl.Err(err))
	}

	if err := s.markVerified(ctx, email); err != nil {
		log.Error("failed to mark email as verified", sl.Err(err))
		return 0, apperr.ErrEmailVerification
	}

	log.Info("email verified")

	return int64(verifiedTTL.Seconds()), nil
}

// * ConfirmByToken — подтверждение по JWT ссылке из письма
func (s *Service) ConfirmByToken(ctx context.Context, token string) (string, error) {
	const op = "email.ConfirmByToken"

	log := s.log.With(slog.String("op", op))

	if !s.tokens.ValidateEmailVerificationToken(token, PurposeSignup) {
		log.Warn("invalid verification token")
		return "", apperr.ErrEmailInvalidCode
	}

	email, err := s.tokens.EmailFromVerificationToken(token)
	if err != nil {
		return "", apperr.ErrEmailInvalidCode
	}

	if err := s.markVerified(ctx, email); err != nil {
		log.Error("failed to mark email as verified", sl.Err(err))
		return "", apperr.ErrEmailVerification
	}

	log.Info("email verified by token")

	return email, nil
}

// * IsEmailVerified — консервативное чтение: ошибка хранилища
// трактуется как «не подтверждено»
func (s *Service) IsEmailVerified(ctx context.Context, email string) bool {
	verified, err := s.ledger.Get(ctx, verifiedPrefix+email)
	if err != nil {
		if !errors.Is(err, storage.ErrKeyNotFound) {
			s.log.Warn("failed to check verified flag", sl.Err(err))
		}
		return false
	}

	return verified == "true"
}

func (s *Service) RemoveEmailVerification(ctx context.Context, email string) error {
	return s.ledger.Delete(ctx, verifiedPrefix+email)
}

func (s *Service) markVerified(ctx context.Context, email string) error {
	return s.ledger.Set(ctx, verifiedPrefix+email, "true", verifiedTTL)
}

func (s *Service) inCooldown(ctx context.Context, email string) bool {
	_, err := s.ledger.Get(ctx, cooldownPrefix+email)
	if err != nil {
		if !errors.Is(err, storage.ErrKeyNotFound) {
			s.log.Warn("failed to check cooldown", sl.Err(err))
		}
		return false
	}

	return true
}

func (s *Service) setCooldown(ctx context.Context, email string) {
	if err := s.ledger.Set(ctx, cooldownPrefix+email, "true", cooldownTTL); err != nil {
		s.log.Error("failed to set cooldown", sl.Err(err))
	}
}

func (s *Service) todaySendCount(ctx context.Context, email string) int64 {
	count, err := s.ledger.Get(ctx, sendKey(email))
	if err != nil {
		if !errors.Is(err, storage.ErrKeyNotFound) {
			s.log.Warn("failed to read send counter", sl.Err(err))
		}
		return 0
	}

	var n int64
	if _, err := fmt.Sscanf(count, "%d", &n); err != nil {
		return 0
	}

	return n
}

// * countSend увеличивает дневной счетчик; TTL до полуночи ставится
// только на первом инкременте за день
func (s *Service) countSend(ctx context.Context, email string) {
	key := sendKey(email)

	count, err := s.ledger.Increment(ctx, key)
	if err != nil {
		s.log.Error("failed to increment send counter", sl.Err(err))
		return
	}

	if count == 1 {
		if err := s.ledger.Expire(ctx, key, untilMidnight()); err != nil {
			s.log.Error("failed to expire send counter", sl.Err(err))
		}
	}
}

func (s *Service) attemptCount(ctx context.Context, email string) int64 {
	count, err := s.ledger.Get(ctx, attemptPrefix+email)
	if err != nil {
		if !errors.Is(err, storage.ErrKeyNotFound) {
			s.log.Warn("failed to read attempt counter", sl.Err(err))
		}
		return 0
	}

	var n int64
	if _, err := fmt.Sscanf(count, "%d", &n); err != nil {
		return 0
	}

	return n
}

func (s *Service) countAttempt(ctx context.Context, email string) {
	count, err := s.ledger.Increment(ctx, attemptPrefix+email)
	if err != nil {
		s.log.Error("failed to increment attempt counter", sl.Err(err))
		return
	}

	if count == 1 {
		if err := s.ledger.Expire(ctx, attemptPrefix+email, attemptTTL); err != nil {
			s.log.Error("failed to expire attempt counter", sl.Err(err))
		}
	}
}

func sendKey(email string) string {
	return sendPrefix + email + ":" + time.Now().Format("2006-01-02")
}

func untilMidnight() time.Duration {
	now := time.Now()
	midnight := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location()).AddDate(0, 0, 1)

	return midnight.Sub(now)
}

func generateCode() (string, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(900000))
	if err != nil {
		return "", err
	}

	return fmt.Sprintf("%06d", n.Int64()+100000), nil
}

func verificationBody(code, token string) string {
	return fmt.Sprintf(`<div style="font-family:Arial,sans-serif;color:#333;padding:20px;max-width:600px;margin:auto;">
  <p style="font-size:16px;">Enter this code to verify your email address:</p>
  <div style="background:#f5f5f5;padding:20px;text-align:center;margin:20px 0;border-radius:8px;">
    <div style="font-size:32px;font-weight:bold;letter-spacing:4px;">%s</div>
  </div>
  <p style="font-size:14px;color:#888;">The code expires in 5 minutes.</p>
  <p style="font-size:14px;">Or follow the link: /api/email/verification/confirm?token=%s</p>
</div>`, code, token)
}
