package model

import (
	"errors"
	"fmt"
)

// InvalidReferenceError reports a local identifier that names no attribute
// or measure of the definition. Location is a path such as
// "filters[1].measure" or "dimensions[0].itemIdentifiers[2]".
type InvalidReferenceError struct {
	Location   string
	Identifier string
}

func (e *InvalidReferenceError) Error() string {
	return fmt.Sprintf("invalid reference at %s: unknown local identifier %q", e.Location, e.Identifier)
}

// DuplicateIdentifierError reports a local identifier used by more than one
// attribute or measure.
type DuplicateIdentifierError struct {
	Identifier string
}

func (e *DuplicateIdentifierError) Error() string {
	return fmt.Sprintf("duplicate local identifier %q", e.Identifier)
}

// DefinitionError reports any other malformed part of a definition.
type DefinitionError struct {
	Field   string
	Message string
}

func (e *DefinitionError) Error() string {
	if e.Field == "" {
		return "invalid definition: " + e.Message
	}
	return fmt.Sprintf("invalid definition: %s: %s", e.Field, e.Message)
}

// IsInvalidReference reports whether err is or wraps an InvalidReferenceError.
func IsInvalidReference(err error) bool {
	var e *InvalidReferenceError
	return errors.As(err, &e)
}

// IsDuplicateIdentifier reports whether err is or wraps a DuplicateIdentifierError.
func IsDuplicateIdentifier(err error) bool {
	var e *DuplicateIdentifierError
	return errors.As(err, &e)
}

func invalidRef(location, identifier string) error {
	return &InvalidReferenceError{Location: location, Identifier: identifier}
}

func defErr(field, format string, args ...any) error {
	return &DefinitionError{Field: field, Message: fmt.Sprintf(format, args...)}
}
