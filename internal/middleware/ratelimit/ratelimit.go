package rateLimit

import (
	"net/http"
	"time"

	httprate "github.com/go-chi/httprate"
)

func Login() func(http.Handler) http.Handler {
	return limitByIP(10, 5*time.Minute)
}

func SignUp() func(http.Handler) http.Handler {
	return limitByIP(5, time.Hour)
}

func Reissue() func(http.Handler) http.Handler {
	return limitByIP(30, 10*time.Minute)
}

func Logout() func(http.Handler) http.Handler {
	return limitByIP(20, 10*time.Minute)
}

func Verify() func(http.Handler) http.Handler {
	return limitByIP(60, 10*time.Minute)
}

func EmailSend() func(http.Handler) http.Handler {
	return limitByIP(10, time.Hour)
}

func EmailVerify() func(http.Handler) http.Handler {
	return limitByIP(20, 10*time.Minute)
}

func limitByIP(limit int, window time.Duration) func(http.Handler) http.Handler {
	return httprate.Limit(limit, window, httprate.WithKeyFuncs(httprate.KeyByIP))
}
