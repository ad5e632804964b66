package services

import "errors"

// Errors returned by the services; the API layer maps them onto status codes.
var (
	ErrNotFound           = errors.New("record not found")
	ErrInvalidInput       = errors.New("invalid input")
	ErrConflict           = errors.New("record already exists")
	ErrInvalidCredentials = errors.New("invalid username or password")
	ErrAccountDisabled    = errors.New("account is disabled")
	ErrInvalidToken       = errors.New("invalid token")
	ErrForbidden          = errors.New("operation not permitted")
	ErrNoNotifier         = errors.New("no notification channel available")
)
