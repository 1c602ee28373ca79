package domain

import "errors"

var (
	// ErrUnusableExtraction is returned when a strategy produced a nutrition
	// record missing at least one required macro
	ErrUnusableExtraction = errors.New("extraction missing required macros")

	// ErrSourceFetch is returned when an external menu source could not be reached
	ErrSourceFetch = errors.New("source fetch failed")

	// ErrNoMatch is returned when an order line matched nothing in the catalog
	ErrNoMatch = errors.New("no catalog match for order item")

	// ErrMalformedDocument is returned when a PDF or HTML document could not be parsed at all
	ErrMalformedDocument = errors.New("malformed document")

	// ErrItemNotFound is returned when a catalog row does not exist
	ErrItemNotFound = errors.New("food item not found")

	// ErrInvalidRequest is returned when request parameters are invalid
	ErrInvalidRequest = errors.New("invalid request parameters")
)
