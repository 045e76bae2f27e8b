package email

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"regexp"
	"sync"
	"testing"
	"time"

	"auth_backend/internal/apperr"
	"auth_backend/internal/lib/jwt"
	"auth_backend/internal/models"
	"auth_backend/internal/storage/memory"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakePublisher struct {
	mu       sync.Mutex
	messages []models.Message
	fail     bool
}

func (f *fakePublisher) SendMessage(_ context.Context, msg models.Message) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.fail {
		return errors.New("broker unavailable")
	}
	f.messages = append(f.messages, msg)

	return nil
}

func (f *fakePublisher) last(t *testing.T) models.Message {
	t.Helper()

	f.mu.Lock()
	defer f.mu.Unlock()

	require.NotEmpty(t, f.messages)
	return f.messages[len(f.messages)-1]
}

func newTestService(t *testing.T) (*Service, *memory.Ledger, *fakePublisher) {
	t.Helper()

	ledger := memory.New()
	t.Cleanup(ledger.Close)

	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	tokens := jwt.New("test_secret", time.Hour, 24*time.Hour, 30*time.Minute)
	publisher := &fakePublisher{}

	return New(log, ledger, publisher, tokens), ledger, publisher
}

func sentCode(t *testing.T, ledger *memory.Ledger, email string) string {
	t.Helper()

	code, err := ledger.Get(context.Background(), codePrefix+email)
	require.NoError(t, err)
	return code
}

func clearCooldown(t *testing.T, ledger *memory.Ledger, email string) {
	t.Helper()
	require.NoError(t, ledger.Delete(context.Background(), cooldownPrefix+email))
}

func TestSendAndVerify(t *testing.T) {
	s, ledger, publisher := newTestService(t)
	ctx := context.Background()

	require.NoError(t, s.SendVerification(ctx, "a@b.com"))

	code := sentCode(t, ledger, "a@b.com")
	assert.Regexp(t, regexp.MustCompile(`^\d{6}$`), code)

	msg := publisher.last(t)
	assert.Equal(t, "a@b.com", msg.Email)
	assert.Contains(t, msg.Body, code)

	ttl, err := s.VerifyEmail(ctx, "a@b.com", code)
	require.NoError(t, err)
	assert.Equal(t, int64(1800), ttl)
	assert.True(t, s.IsEmailVerified(ctx, "a@b.com"))

	// код одноразовый
	_, err = s.VerifyEmail(ctx, "a@b.com", code)
	assert.ErrorIs(t, err, apperr.ErrEmailInvalidCode)
}

func TestCooldownBeforeDailyLimit(t *testing.T) {
	s, ledger, _ := newTestService(t)
	ctx := context.Background()

	require.NoError(t, s.SendVerification(ctx, "a@b.com"))

	err := s.SendVerification(ctx, "a@b.com")
	assert.ErrorIs(t, err, apperr.ErrEmailCooldown)

	// при активном кулдауне именно он, а не дневной лимит, решает исход
	require.NoError(t, ledger.Set(ctx, sendKey("a@b.com"), fmt.Sprint(maxDailySends), time.Hour))

	err = s.SendVerification(ctx, "a@b.com")
	assert.ErrorIs(t, err, apperr.ErrEmailCooldown)
}

func TestDailyLimit(t *testing.T) {
	s, ledger, _ := newTestService(t)
	ctx := context.Background()

	for i := 0; i < maxDailySends; i++ {
		require.NoError(t, s.SendVerification(ctx, "a@b.com"))
		clearCooldown(t, ledger, "a@b.com")
	}

	err := s.SendVerification(ctx, "a@b.com")
	assert.ErrorIs(t, err, apperr.ErrEmailDailyLimit)
}

func TestDailyLimitIsPerEmail(t *testing.T) {
	s, ledger, _ := newTestService(t)
	ctx := context.Background()

	require.NoError(t, ledger.Set(ctx, sendKey("a@b.com"), fmt.Sprint(maxDailySends), time.Hour))

	err := s.SendVerification(ctx, "a@b.com")
	assert.ErrorIs(t, err, apperr.ErrEmailDailyLimit)

	require.NoError(t, s.SendVerification(ctx, "c@d.com"))
}

func TestVerifyAttemptLimit(t *testing.T) {
	s, ledger, _ := newTestService(t)
	ctx := context.Background()

	require.NoError(t, s.SendVerification(ctx, "a@b.com"))
	code := sentCode(t, ledger, "a@b.com")

	for i := 0; i < maxVerifyAttempts; i++ {
		_, err := s.VerifyEmail(ctx, "a@b.com", "000000")
		assert.ErrorIs(t, err, apperr.ErrEmailInvalidCode)
	}

	// после исчерпания попыток отвергается даже верный код
	_, err := s.VerifyEmail(ctx, "a@b.com", code)
	assert.ErrorIs(t, err, apperr.ErrEmailInvalidCode)
}

func TestVerifyWithoutCodeCountsAttempt(t *testing.T) {
	s, ledger, _ := newTestService(t)
	ctx := context.Background()

	_, err := s.VerifyEmail(ctx, "a@b.com", "123456")
	assert.ErrorIs(t, err, apperr.ErrEmailInvalidCode)

	count, err := ledger.Get(ctx, attemptPrefix+"a@b.com")
	require.NoError(t, err)
	assert.Equal(t, "1", count)
}

func TestSuccessfulVerifyResetsAttempts(t *testing.T) {
	s, ledger, _ := newTestService(t)
	ctx := context.Background()

	require.NoError(t, s.SendVerification(ctx, "a@b.com"))
	code := sentCode(t, ledger, "a@b.com")

	_, err := s.VerifyEmail(ctx, "a@b.com", "000000")
	assert.ErrorIs(t, err, apperr.ErrEmailInvalidCode)

	_, err = s.VerifyEmail(ctx, "a@b.com", code)
	require.NoError(t, err)

	assert.Zero(t, s.attemptCount(ctx, "a@b.com"))
}

func TestPublisherFailure(t *testing.T) {
	s, _, publisher := newTestService(t)
	ctx := context.Background()

	publisher.fail = true

	err := s.SendVerification(ctx, "a@b.com")
	assert.ErrorIs(t, err, apperr.ErrEmailSendFailed)

	// неудачная отправка не тратит кулдаун и дневной лимит
	publisher.fail = false
	require.NoError(t, s.SendVerification(ctx, "a@b.com"))
}

func TestConfirmByToken(t *testing.T) {
	s, _, _ := newTestService(t)
	ctx := context.Background()

	tokens := jwt.New("test_secret", time.Hour, 24*time.Hour, 30*time.Minute)

	token, err := tokens.NewEmailVerificationToken("a@b.com", PurposeSignup)
	require.NoError(t, err)

	email, err := s.ConfirmByToken(ctx, token)
	require.NoError(t, err)
	assert.Equal(t, "a@b.com", email)
	assert.True(t, s.IsEmailVerified(ctx, "a@b.com"))
}

func TestConfirmByTokenRejectsOtherTokens(t *testing.T) {
	s, _, _ := newTestService(t)
	ctx := context.Background()

	tokens := jwt.New("test_secret", time.Hour, 24*time.Hour, 30*time.Minute)

	_, err := s.ConfirmByToken(ctx, "garbage")
	assert.ErrorIs(t, err, apperr.ErrEmailInvalidCode)

	access, err := tokens.NewAccessToken("alice")
	require.NoError(t, err)

	_, err = s.ConfirmByToken(ctx, access)
	assert.ErrorIs(t, err, apperr.ErrEmailInvalidCode)

	other, err := tokens.NewEmailVerificationToken("a@b.com", "password_reset")
	require.NoError(t, err)

	_, err = s.ConfirmByToken(ctx, other)
	assert.ErrorIs(t, err, apperr.ErrEmailInvalidCode)
}

func TestRemoveEmailVerification(t *testing.T) {
	s, ledger, _ := newTestService(t)
	ctx := context.Background()

	require.NoError(t, s.SendVerification(ctx, "a@b.com"))
	code := sentCode(t, ledger, "a@b.com")

	_, err := s.VerifyEmail(ctx, "a@b.com", code)
	require.NoError(t, err)
	require.True(t, s.IsEmailVerified(ctx, "a@b.com"))

	require.NoError(t, s.RemoveEmailVerification(ctx, "a@b.com"))
	assert.False(t, s.IsEmailVerified(ctx, "a@b.com"))
}
