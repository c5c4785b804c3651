package handlers

const (
	maxRequestBodyBytes = 1 << 20

	ErrInvalidJSON         = "Invalid JSON body"
	ErrUnauthorized        = "Unauthorized"
	ErrNotLoggedIn         = "Not logged in"
	ErrForbiddenCSRF       = "Invalid CSRF token"
	ErrNotFound            = "Not found"
	ErrStorageUnavailable  = "Storage unavailable"
	ErrTooManyRequests     = "Too many requests"
	ErrNoNinjaRun          = "No Fraction Ninja run in progress"
	ErrInternalServerError = "Internal server error"
)
