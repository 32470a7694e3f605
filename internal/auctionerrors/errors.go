package auctionerrors

import "errors"

// Repository-level errors
var (
	ErrItemNotFound     = errors.New("item not found")
	ErrQuestionNotFound = errors.New("question not found")
	ErrUserNotFound     = errors.New("user not found")
	ErrNoBids           = errors.New("no bids found for item")
	ErrUserNoBids       = errors.New("user has not placed any bids")
	ErrAlreadySettled   = errors.New("item already settled")
	ErrDuplicateUser    = errors.New("user already exists")
)

// Validation errors. Reported to the caller, never retried.
var (
	ErrInvalidBid    = errors.New("invalid bid")
	ErrBidTooLow     = errors.New("bid amount too low")
	ErrAuctionClosed = errors.New("auction closed")
	ErrSelfBid       = errors.New("cannot bid on own item")
	ErrInvalidItem   = errors.New("invalid item")
	ErrEmptyText     = errors.New("text is required")
	ErrItemSettled   = errors.New("item is settled")
)

// Permission errors
var (
	ErrPermissionDenied = errors.New("permission denied")
	ErrUnauthenticated  = errors.New("unknown or missing user")
)

// ErrDelivery marks notification failures. They only ever reach the settlement sweep.
var ErrDelivery = errors.New("notification delivery failed")
