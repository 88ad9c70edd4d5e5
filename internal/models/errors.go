package models

import (
	"errors"
	"fmt"
	"time"
)

// Domain error taxonomy. Every condition here is a recoverable, user-facing
// outcome: services return these as typed results and handlers map them to
// stable API error codes. None is fatal to the process.
var (
	ErrOfferNotFound  = errors.New("offer not found")
	ErrOfferNotActive = errors.New("offer is not active")
	ErrOfferFull      = errors.New("offer has no remaining claim slots")
	ErrDuplicateClaim = errors.New("user already holds an active claim on this offer")
	ErrTokenNotFound  = errors.New("no active claim matches this token")
	ErrAlreadyRedeemed = errors.New("claim has already been redeemed")
	ErrTokenExpired    = errors.New("claim has expired")
	ErrClaimNotFound   = errors.New("claim not found")
	ErrVenueNotFound   = errors.New("venue not found")
	ErrTokenSpaceExhausted = errors.New("token space exhausted for venue")
	ErrTokenCollision      = errors.New("token already held by an active claim")
	ErrOfferTerminal       = errors.New("offer is in a terminal state")
)

// RaceConditionError reports that a claim's state changed between validate
// and redeem. It carries the status observed at failure time so the caller
// can tell the operator what actually happened.
type RaceConditionError struct {
	ClaimStatus ClaimStatus
}

func (e *RaceConditionError) Error() string {
	return fmt.Sprintf("claim state changed concurrently, current status: %s", e.ClaimStatus)
}

// RateLimitExceededError reports an exhausted venue-day quota and when the
// window resets in the venue's timezone.
type RateLimitExceededError struct {
	Limit    int
	ResetsAt time.Time
}

func (e *RateLimitExceededError) Error() string {
	return fmt.Sprintf("daily offer limit of %d reached, resets at %s", e.Limit, e.ResetsAt.Format(time.RFC3339))
}

// OfferNotActiveError wraps ErrOfferNotActive with the derived status that
// blocked the claim, for caller messaging.
type OfferNotActiveError struct {
	Status OfferStatus
}

func (e *OfferNotActiveError) Error() string {
	return fmt.Sprintf("offer is not active, current status: %s", e.Status)
}

func (e *OfferNotActiveError) Unwrap() error { return ErrOfferNotActive }
