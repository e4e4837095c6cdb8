package domain

import "errors"

// Error taxonomy shared by every layer. Adapters wrap their driver errors with
// one of these so handlers can map them with errors.Is.
var (
	ErrInvalidArgument     = errors.New("invalid argument")
	ErrNotFound            = errors.New("not found")
	ErrUpstreamUnavailable = errors.New("upstream unavailable")
	ErrStoreFailure        = errors.New("store failure")
)

// ErrEmptyProductID is returned when a product id is missing or blank.
var ErrEmptyProductID = &ArgumentError{Field: "productId", Reason: "is required"}

// ArgumentError describes which input was rejected.
type ArgumentError struct {
	Field  string
	Reason string
}

func (e *ArgumentError) Error() string {
	return e.Field + " " + e.Reason
}

// Is makes every ArgumentError match ErrInvalidArgument.
func (e *ArgumentError) Is(target error) bool {
	return target == ErrInvalidArgument
}
