package shared

import "fmt"

var (
	ErrNotImplemented = fmt.Errorf("not implemented")

	// Configuration errors
	ErrMissingConfig      = fmt.Errorf("configuration not found")
	ErrInvalidConfig      = fmt.Errorf("invalid configuration")
	ErrMissingCredentials = fmt.Errorf("missing credentials")

	// Authentication errors
	ErrAuthFailed       = fmt.Errorf("authentication failed")
	ErrNotAuthenticated = fmt.Errorf("not authenticated")
	ErrTokenExpired     = fmt.Errorf("session token expired")
	ErrNoSession        = fmt.Errorf("no stored session")

	// API and service errors
	ErrAPIRequest         = fmt.Errorf("API request failed")
	ErrServiceUnavailable = fmt.Errorf("service unavailable")
	ErrMalformedResponse  = fmt.Errorf("malformed response")
	ErrBookNotFound       = fmt.Errorf("book not found")
	ErrEpisodeNotFound    = fmt.Errorf("episode not found")

	// Coin and purchase errors
	ErrInsufficientCoins = fmt.Errorf("insufficient coins")
	ErrNotConfirmed      = fmt.Errorf("purchase not confirmed")
	ErrAlreadyUnlocked   = fmt.Errorf("episode already unlocked")

	// Input validation errors
	ErrInvalidInput    = fmt.Errorf("invalid input")
	ErrMissingArgument = fmt.Errorf("missing required argument")
	ErrInvalidArgument = fmt.Errorf("invalid argument")
	ErrInvalidFileType = fmt.Errorf("unsupported file type")
)
