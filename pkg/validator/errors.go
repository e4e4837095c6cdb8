package validator

import "errors"

var (
	ErrEmptyURL      = errors.New("URL cannot be empty")
	ErrInvalidURL    = errors.New("invalid URL format")
	ErrInvalidScheme = errors.New("URL must use http or https scheme")
	ErrInvalidHost   = errors.New("URL must have a valid host")
	ErrInvalidInput  = errors.New("invalid input")
)

// FieldError describes the first failed rule of a validated struct.
type FieldError struct {
	Field string
	Tag   string
	Param string
}

func (e *FieldError) Error() string {
	switch e.Tag {
	case "required":
		return e.Field + " is required"
	case "max":
		return e.Field + " must be at most " + e.Param + " characters"
	case "oneof":
		return e.Field + " must be one of: " + e.Param
	default:
		return e.Field + " is invalid"
	}
}

func (e *FieldError) Is(target error) bool {
	return target == ErrInvalidInput
}
