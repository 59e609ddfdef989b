package domain

import "errors"

var (
	// Validation failures. Safe to surface to the caller verbatim.
	ErrInvalidAmount   = errors.New("amount must be a positive number of minor units")
	ErrUnknownProduct  = errors.New("product is not in the catalog")
	ErrInvalidQuantity = errors.New("quantity must not be negative")
	ErrNotCancellable  = errors.New("intent is not in a cancellable state")

	ErrIntentExists   = errors.New("intent already recorded")
	ErrIntentNotFound = errors.New("intent not found")
)
