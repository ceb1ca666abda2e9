// Package apperr defines the error taxonomy shared by the domain packages
// and translated to transport responses by the API layer.
package apperr

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	validation "github.com/go-ozzo/ozzo-validation/v4"
)

var (
	ErrNotFound   = errors.New("not found")
	ErrConflict   = errors.New("conflict")
	ErrPermission = errors.New("permission denied")

	// ErrAlreadyExists is a duplicate relation edge.
	ErrAlreadyExists = fmt.Errorf("%w: already exists", ErrConflict)
	// ErrNoRelation is a missing relation edge whose target does exist.
	ErrNoRelation = fmt.Errorf("%w: no such relation", ErrNotFound)
	// ErrUnauthenticated is a permission failure caused by a missing actor.
	ErrUnauthenticated = fmt.Errorf("%w: authentication required", ErrPermission)
	ErrSelfReference   = errors.New("actor cannot target itself")
)

// ValidationError reports input rejected before any write happened.
// Fields maps a dotted field path (e.g. "ingredients.0.amount") to a reason.
type ValidationError struct {
	Fields map[string]string
	cause  error
}

// Invalid returns a ValidationError for a single field.
func Invalid(field, reason string) *ValidationError {
	return &ValidationError{Fields: map[string]string{field: reason}}
}

// InvalidCause is like Invalid but keeps cause reachable through errors.Is.
func InvalidCause(field, reason string, cause error) *ValidationError {
	e := Invalid(field, reason)
	e.cause = cause
	return e
}

func (e *ValidationError) Error() string {
	keys := e.keys()
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, k+": "+e.Fields[k])
	}
	return "validation failed: " + strings.Join(parts, "; ")
}

func (e *ValidationError) Unwrap() error { return e.cause }

// Has reports whether field (or any of its nested paths) was rejected.
func (e *ValidationError) Has(field string) bool {
	for k := range e.Fields {
		if k == field || strings.HasPrefix(k, field+".") {
			return true
		}
	}
	return false
}

// Field returns the first offending field in lexical order.
func (e *ValidationError) Field() string {
	keys := e.keys()
	if len(keys) == 0 {
		return ""
	}
	return keys[0]
}

func (e *ValidationError) keys() []string {
	keys := make([]string, 0, len(e.Fields))
	for k := range e.Fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// FromValidation converts ozzo-validation errors into a *ValidationError.
// Any other error is returned unchanged.
func FromValidation(err error) error {
	if err == nil {
		return nil
	}
	var verrs validation.Errors
	if !errors.As(err, &verrs) {
		return err
	}
	out := &ValidationError{Fields: map[string]string{}}
	flatten(out.Fields, "", verrs)
	return out
}

func flatten(dst map[string]string, prefix string, errs validation.Errors) {
	for key, err := range errs {
		if err == nil {
			continue
		}
		path := key
		if prefix != "" {
			path = prefix + "." + key
		}
		var nested validation.Errors
		if errors.As(err, &nested) {
			flatten(dst, path, nested)
			continue
		}
		dst[path] = err.Error()
	}
}
