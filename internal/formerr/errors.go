// Package formerr defines the error taxonomy shared by the form packages.
//
// Every error raised by address resolution, item bookkeeping, collection
// naming and the persistence coordinator is an *Error with one of the Code
// values below. None of them are recovered internally: they propagate to the
// immediate caller, which decides how to present them.
package formerr

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

// Code categorizes form errors.
type Code string

const (
	// CodeStructural indicates an illegal schema shape or a violated item
	// count constraint.
	CodeStructural Code = "STRUCTURAL"

	// CodeAddressResolution indicates a node whose container chain is broken.
	CodeAddressResolution Code = "ADDRESS_RESOLUTION"

	// CodeCollectionResolution indicates collection naming was attempted on
	// a template node.
	CodeCollectionResolution Code = "COLLECTION_RESOLUTION"

	// CodeCleanupFailure indicates a cleanup action failed while releasing a
	// removed item's resources.
	CodeCleanupFailure Code = "CLEANUP_FAILURE"

	// CodePersistenceOrder indicates a deferred action was run before the
	// owning record had an identifier.
	CodePersistenceOrder Code = "PERSISTENCE_ORDER"
)

// Error is the single error type of the taxonomy.
type Error struct {
	// Code identifies the error category.
	Code Code

	// Message is a human-readable description.
	Message string

	// Path is the address (or key) of the node involved, when known.
	Path string

	// Details contains additional context.
	Details map[string]string

	// Err is the underlying cause, if any.
	Err error
}

// Error implements the error interface.
func (e *Error) Error() string {
	var b strings.Builder
	b.WriteString(string(e.Code))
	b.WriteString(": ")
	b.WriteString(e.Message)
	if e.Path != "" {
		fmt.Fprintf(&b, " (path=%s)", e.Path)
	}
	if len(e.Details) > 0 {
		keys := make([]string, 0, len(e.Details))
		for k := range e.Details {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			fmt.Fprintf(&b, " %s=%s", k, e.Details[k])
		}
	}
	if e.Err != nil {
		b.WriteString(": ")
		b.WriteString(e.Err.Error())
	}
	return b.String()
}

// Unwrap returns the underlying cause.
func (e *Error) Unwrap() error {
	return e.Err
}

// Is matches another *Error by code, so errors.Is(err, &Error{Code: c})
// works as a category check.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Code == e.Code && t.Message == "" && t.Path == ""
}

// HasCode reports whether err (or anything it wraps) is an *Error with code.
// Uses errors.As to handle wrapped errors.
func HasCode(err error, code Code) bool {
	var fe *Error
	if errors.As(err, &fe) {
		return fe.Code == code
	}
	return false
}

// IsStructural returns true if err is a structural error.
func IsStructural(err error) bool { return HasCode(err, CodeStructural) }

// IsAddressResolution returns true if err is an address resolution error.
func IsAddressResolution(err error) bool { return HasCode(err, CodeAddressResolution) }

// IsCollectionResolution returns true if err is a collection resolution error.
func IsCollectionResolution(err error) bool { return HasCode(err, CodeCollectionResolution) }

// IsCleanupFailure returns true if err is (or joins) a cleanup failure.
func IsCleanupFailure(err error) bool { return HasCode(err, CodeCleanupFailure) }

// IsPersistenceOrder returns true if err is a persistence order error.
func IsPersistenceOrder(err error) bool { return HasCode(err, CodePersistenceOrder) }

// Structural creates a structural error for the node at path.
func Structural(path, format string, args ...any) *Error {
	return &Error{
		Code:    CodeStructural,
		Message: fmt.Sprintf(format, args...),
		Path:    path,
	}
}

// CountViolation creates a structural error for an item count constraint.
func CountViolation(path, op string, count, limit int) *Error {
	bound := "max_items"
	verb := "exceed"
	if op == "remove" {
		bound = "min_items"
		verb = "fall below"
	}
	return &Error{
		Code:    CodeStructural,
		Message: fmt.Sprintf("%s would %s %s", op, verb, bound),
		Path:    path,
		Details: map[string]string{
			"count": fmt.Sprintf("%d", count),
			bound:   fmt.Sprintf("%d", limit),
		},
	}
}

// AddressResolution creates an address resolution error for the node key.
func AddressResolution(key, message string) *Error {
	return &Error{
		Code:    CodeAddressResolution,
		Message: message,
		Path:    key,
	}
}

// CollectionResolution creates a collection resolution error.
func CollectionResolution(path, message string) *Error {
	return &Error{
		Code:    CodeCollectionResolution,
		Message: message,
		Path:    path,
	}
}

// CleanupFailure wraps the error returned by the cleanup action at index.
func CleanupFailure(index int, err error) *Error {
	return &Error{
		Code:    CodeCleanupFailure,
		Message: "cleanup action failed",
		Details: map[string]string{"action": fmt.Sprintf("%d", index)},
		Err:     err,
	}
}

// PersistenceOrder creates a persistence order error for the record.
func PersistenceOrder(record string) *Error {
	return &Error{
		Code:    CodePersistenceOrder,
		Message: "deferred actions require an identified record",
		Path:    record,
	}
}
