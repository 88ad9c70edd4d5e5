package utils

import "time"

const (
	AppName    = "FlashOffers"
	AppVersion = "1.0.0"

	// Response statuses
	StatusSuccess = "success"
	StatusError   = "error"

	// Common error messages
	ErrValidationFailed = "Validation failed"
	ErrInternalServer   = "Internal server error"
	ErrUnauthorized     = "Unauthorized"
	ErrForbidden        = "Forbidden"

	// Pagination
	DefaultPageSize = 20
	MaxPageSize     = 100
	MinPageSize     = 1

	// Claim tokens
	TokenLength      = 6
	TokenSpaceSize   = 1000000 // "000000".."999999"
	MaxTokenAttempts = 25
	// Past this many active claims the venue's token space is treated as
	// exhausted rather than retried forever.
	TokenSpaceExhaustionThreshold = 900000

	// Claim lifecycle
	DefaultClaimTTL = 30 * time.Minute

	// Background sweep
	DefaultSweepInterval  = 30 * time.Second
	SweepBatchSize        = 200
	DefaultSweepTimeout = 10 * time.Second

	// Daily offer-creation quotas per subscription tier. Zero means
	// unlimited.
	FreeTierDailyOfferLimit    = 1
	StarterTierDailyOfferLimit = 5
)
