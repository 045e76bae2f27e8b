package authn

import (
	"context"
	"log/slog"
	"net/http"
	"strings"

	"auth_backend/internal/auth"
	resp "auth_backend/internal/lib/api/response"
)

type ctxKey struct{}

const bearerPrefix = "Bearer "

// * New проверяет access токен (подпись, вид, блэклист, владелец)
// и кладет userID в контекст запроса
func New(log *slog.Logger, authService *auth.Auth) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token := BearerToken(r)

			userID, err := authService.VerifyToken(r.Context(), token)
			if err != nil {
				log.Warn("token verification failed", slog.String("path", r.URL.Path))

				resp.Err(w, r, err)

				return
			}

			ctx := context.WithValue(r.Context(), ctxKey{}, userID)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// * BearerToken достает токен из Authorization: Bearer <token>;
// пустая строка означает отсутствие токена
func BearerToken(r *http.Request) string {
	header := r.Header.Get("Authorization")
	if !strings.HasPrefix(header, bearerPrefix) {
		return ""
	}

	return strings.TrimPrefix(header, bearerPrefix)
}

func UserID(r *http.Request) string {
	id, _ := r.Context().Value(ctxKey{}).(string)
	return id
}
