package service

import "errors"

var (
	// ErrInvalidTripID is returned when trip ID is empty.
	ErrInvalidTripID = errors.New("invalid trip id")

	// ErrInvalidUserID is returned when user ID is empty.
	ErrInvalidUserID = errors.New("invalid user id")

	// ErrInvalidCurrency is returned when the base currency code is empty
	// or not a three-letter code.
	ErrInvalidCurrency = errors.New("invalid base currency")

	// ErrRecordStoreUnavailable is returned when the record store could
	// not be reached or timed out. The request is retryable with backoff;
	// no stale result is substituted.
	ErrRecordStoreUnavailable = errors.New("record store unavailable")
)
