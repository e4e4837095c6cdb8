package validator

import (
	"errors"
	"net/url"
	"reflect"
	"strings"

	playground "github.com/go-playground/validator/v10"
)

var validate = newValidate()

func newValidate() *playground.Validate {
	v := playground.New()
	// Report JSON names so errors match what the client sent
	v.RegisterTagNameFunc(func(field reflect.StructField) string {
		name := strings.SplitN(field.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// Struct validates v against its `validate` tags and returns a *FieldError
// for the first rule that fails.
func Struct(v any) error {
	err := validate.Struct(v)
	if err == nil {
		return nil
	}

	var verrs playground.ValidationErrors
	if errors.As(err, &verrs) && len(verrs) > 0 {
		first := verrs[0]
		return &FieldError{Field: first.Field(), Tag: first.Tag(), Param: first.Param()}
	}

	return errors.Join(ErrInvalidInput, err)
}

// ValidateURL checks if a URL is valid
func ValidateURL(urlStr string) error {
	// Trim whitespace
	urlStr = strings.TrimSpace(urlStr)

	if urlStr == "" {
		return ErrEmptyURL
	}

	parsedURL, err := url.Parse(urlStr)
	if err != nil {
		return ErrInvalidURL
	}

	if parsedURL.Scheme != "http" && parsedURL.Scheme != "https" {
		return ErrInvalidScheme
	}

	if parsedURL.Host == "" {
		return ErrInvalidHost
	}

	return nil
}
