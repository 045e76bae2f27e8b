package login_test

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"auth_backend/internal/auth"
	"auth_backend/internal/http_server/handlers/login"
	"auth_backend/internal/lib/jwt"
	"auth_backend/internal/models"
	"auth_backend/internal/storage"
	"auth_backend/internal/storage/memory"

	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type userStore struct {
	users map[string]models.User
}

func (s *userStore) SaveUser(_ context.Context, user models.User) error {
	s.users[user.UserID] = user
	return nil
}

func (s *userStore) UpdateUser(_ context.Context, user models.User) error {
	s.users[user.UserID] = user
	return nil
}

func (s *userStore) UserByID(_ context.Context, userID string) (models.User, error) {
	u, ok := s.users[userID]
	if !ok {
		return models.User{}, storage.ErrUserNotFound
	}
	return u, nil
}

func (s *userStore) UserByEmail(_ context.Context, email string) (models.User, error) {
	for _, u := range s.users {
		if u.Email == email {
			return u, nil
		}
	}
	return models.User{}, storage.ErrUserNotFound
}

func (s *userStore) ExistsByUserID(_ context.Context, userID string) (bool, error) {
	_, ok := s.users[userID]
	return ok, nil
}

func (s *userStore) ExistsByEmail(ctx context.Context, email string) (bool, error) {
	_, err := s.UserByEmail(ctx, email)
	return err == nil, nil
}

type alwaysVerified struct{}

func (alwaysVerified) IsEmailVerified(context.Context, string) bool          { return true }
func (alwaysVerified) RemoveEmailVerification(context.Context, string) error { return nil }

func newHandler(t *testing.T) http.HandlerFunc {
	t.Helper()

	ledger := memory.New()
	t.Cleanup(ledger.Close)

	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	tokens := jwt.New("test_secret", time.Hour, 24*time.Hour, 30*time.Minute)
	store := &userStore{users: make(map[string]models.User)}

	authService := auth.New(log, store, store, alwaysVerified{}, tokens, ledger)
	require.NoError(t, authService.SignUp(context.Background(), "alice", "a@b.com", "secret", "Alice", ""))

	return login.New(log, validator.New(), authService)
}

func doLogin(t *testing.T, handler http.HandlerFunc, body string) (*httptest.ResponseRecorder, login.Response) {
	t.Helper()

	req := httptest.NewRequest(http.MethodPost, "/api/auth/login", bytes.NewBufferString(body))
	rr := httptest.NewRecorder()

	handler.ServeHTTP(rr, req)

	var resp login.Response
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))

	return rr, resp
}

func TestLoginHandler(t *testing.T) {
	handler := newHandler(t)

	rr, resp := doLogin(t, handler, `{"user_id":"alice","password":"secret"}`)

	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "ok", resp.Status)
	assert.NotEmpty(t, resp.AccessToken)
	assert.NotEmpty(t, resp.RefreshToken)
}

func TestLoginHandlerWrongPassword(t *testing.T) {
	handler := newHandler(t)

	rr, resp := doLogin(t, handler, `{"user_id":"alice","password":"wrong"}`)

	assert.Equal(t, http.StatusBadRequest, rr.Code)
	assert.Equal(t, "error", resp.Status)
	assert.Equal(t, "AUTH008", resp.Code)
	assert.Empty(t, resp.AccessToken)
}

func TestLoginHandlerUnknownUser(t *testing.T) {
	handler := newHandler(t)

	rr, resp := doLogin(t, handler, `{"user_id":"nobody","password":"secret"}`)

	assert.Equal(t, http.StatusNotFound, rr.Code)
	assert.Equal(t, "COMMON404", resp.Code)
}

func TestLoginHandlerValidation(t *testing.T) {
	handler := newHandler(t)

	rr, resp := doLogin(t, handler, `{"user_id":"alice"}`)

	assert.Equal(t, http.StatusBadRequest, rr.Code)
	assert.Contains(t, resp.Error, "Password")

	rr, _ = doLogin(t, handler, `not json`)
	assert.Equal(t, http.StatusBadRequest, rr.Code)
}
