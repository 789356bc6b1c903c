package model

import (
	"errors"
	"fmt"
	"net/http"
)

// ErrorKind classifies failures so callers can decide whether an error aborts
// an operation or is isolated to one lead.
type ErrorKind string

const (
	KindConfiguration  ErrorKind = "CONFIGURATION_ERROR"
	KindNotFound       ErrorKind = "NOT_FOUND"
	KindClassification ErrorKind = "CLASSIFICATION_ERROR"
	KindPersistence    ErrorKind = "PERSISTENCE_ERROR"
	KindValidation     ErrorKind = "VALIDATION_ERROR"
	KindInternal       ErrorKind = "INTERNAL_ERROR"
)

// HTTPStatus maps the kind to the status code the API responds with.
func (k ErrorKind) HTTPStatus() int {
	switch k {
	case KindValidation, KindConfiguration:
		return http.StatusBadRequest
	case KindNotFound:
		return http.StatusNotFound
	case KindClassification:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

// Error is a classified domain error.
type Error struct {
	Kind    ErrorKind
	Message string
	Details []string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Err
}

// NoActiveOffer is returned when scoring is requested before any offer exists.
func NoActiveOffer() error {
	return &Error{Kind: KindConfiguration, Message: "No offer found. Please create an offer first."}
}

// NotFound builds a not-found error for the given entity and id.
func NotFound(entity, id string) error {
	return &Error{Kind: KindNotFound, Message: fmt.Sprintf("%s not found with ID: %s", entity, id)}
}

// Validation builds a boundary validation error.
func Validation(msg string, details ...string) error {
	return &Error{Kind: KindValidation, Message: msg, Details: details}
}

// Classification wraps an external scorer failure.
func Classification(err error, msg string) error {
	return &Error{Kind: KindClassification, Message: msg, Err: err}
}

// Persistence wraps a store write failure.
func Persistence(err error, msg string) error {
	return &Error{Kind: KindPersistence, Message: msg, Err: err}
}

// KindOf returns the kind of the first classified error in err's chain, or
// KindInternal if there is none.
func KindOf(err error) ErrorKind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindInternal
}

// IsKind reports whether err carries the given kind.
func IsKind(err error, kind ErrorKind) bool {
	return err != nil && KindOf(err) == kind
}

// DetailsOf returns the details attached to a classified error, if any.
func DetailsOf(err error) []string {
	var e *Error
	if errors.As(err, &e) {
		return e.Details
	}
	return nil
}
