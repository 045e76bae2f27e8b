package apperr

import "net/http"

// * Error — бизнес-ошибка с HTTP статусом и стабильным кодом для клиента
type Error struct {
	Status  int
	Code    string
	Message string
}

func (e *Error) Error() string {
	return e.Message
}

var (
	ErrEmptyJWT          = &Error{http.StatusUnauthorized, "AUTH001", "authorization token is missing"}
	ErrExpiredMemberJWT  = &Error{http.StatusUnauthorized, "AUTH002", "token has expired"}
	ErrUnsupportedJWT    = &Error{http.StatusUnauthorized, "AUTH003", "unsupported token"}
	ErrExpiredRefresh    = &Error{http.StatusBadRequest, "AUTH005", "refresh token has expired"}
	ErrInvalidAccess     = &Error{http.StatusBadRequest, "AUTH006", "invalid access token"}
	ErrInvalidRefresh    = &Error{http.StatusBadRequest, "AUTH007", "invalid refresh token"}
	ErrLogin             = &Error{http.StatusBadRequest, "AUTH008", "wrong user id or password"}
	ErrEmailRegistered   = &Error{http.StatusConflict, "AUTH009", "email is already registered"}
	ErrUserIDRegistered  = &Error{http.StatusConflict, "AUTH010", "user id is already taken"}
	ErrNotFound          = &Error{http.StatusNotFound, "COMMON404", "resource not found"}
	ErrUnauthorized      = &Error{http.StatusUnauthorized, "COMMON401", "unauthorized"}
	ErrEmailNotVerified  = &Error{http.StatusBadRequest, "EMAIL400", "email verification is required"}
	ErrEmailInvalidCode  = &Error{http.StatusBadRequest, "EMAIL400", "invalid or expired verification code"}
	ErrEmailVerification = &Error{http.StatusBadRequest, "EMAIL400", "email verification failed"}
	ErrEmailCooldown     = &Error{http.StatusTooManyRequests, "EMAIL429", "verification email was sent recently, try again later"}
	ErrEmailDailyLimit   = &Error{http.StatusTooManyRequests, "EMAIL429", "daily verification email limit exceeded"}
	ErrEmailSendFailed   = &Error{http.StatusInternalServerError, "EMAIL500", "failed to send verification email"}
)
