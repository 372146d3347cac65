// Package errors provides error handling for topicmap.
//
// This package re-exports github.com/cockroachdb/errors and adds the
// sentinels the synchronization engine classifies its failures with:
//
//	ErrInvariant        an engine invariant was broken; surfaced to the host
//	ErrElementNotFound  the render adapter has no element for an id
//	ErrNotFound         the model has no view entry for an id
//	ErrStale            an async result arrived for a target that is no longer current
//
// Usage:
//
//	if !m.HasTopic(id) {
//	    return errors.NewNotFoundError("topic %d not in topicmap %d", id, m.ID)
//	}
//
//	return errors.Invariantf("no single selection (multi-select of %d)", id)
//
// For full documentation see: https://pkg.go.dev/github.com/cockroachdb/errors
package errors

import (
	crdb "github.com/cockroachdb/errors"
)

// Core error creation and wrapping
var (
	New          = crdb.New
	Newf         = crdb.Newf
	Wrap         = crdb.Wrap
	Wrapf        = crdb.Wrapf
	WithStack    = crdb.WithStack
	WithMessage  = crdb.WithMessage
	WithMessagef = crdb.WithMessagef
	Mark         = crdb.Mark
)

// User-facing messages and details
var (
	WithHint           = crdb.WithHint
	WithHintf          = crdb.WithHintf
	WithDetail         = crdb.WithDetail
	WithDetailf        = crdb.WithDetailf
	WithSecondaryError = crdb.WithSecondaryError
	CombineErrors      = crdb.CombineErrors
)

// Error inspection
var (
	Is             = crdb.Is
	IsAny          = crdb.IsAny
	As             = crdb.As
	Unwrap         = crdb.Unwrap
	UnwrapAll      = crdb.UnwrapAll
	GetAllHints    = crdb.GetAllHints
	GetAllDetails  = crdb.GetAllDetails
	FlattenHints   = crdb.FlattenHints
	FlattenDetails = crdb.FlattenDetails
)

// GetStack returns the reportable stack trace attached to err, if any.
var GetStack = crdb.GetReportableStackTrace

// Assertions
var (
	AssertionFailedf   = crdb.AssertionFailedf
	IsAssertionFailure = crdb.IsAssertionFailure
)

// Sentinel errors. Wrap or Mark these to add context while preserving the type.
var (
	// ErrNotFound indicates the requested view entry or record does not exist
	ErrNotFound = New("not found")

	// ErrInvalidRequest indicates the request was malformed or invalid
	ErrInvalidRequest = New("invalid request")

	// ErrInvariant indicates an engine invariant was violated
	ErrInvariant = New("invariant violation")

	// ErrElementNotFound indicates the render adapter has no element for an id
	ErrElementNotFound = New("element not found")

	// ErrStale indicates an async result arrived for a superseded target
	ErrStale = New("stale result")

	// ErrClosed indicates the component has been shut down
	ErrClosed = New("closed")
)

// Invariantf creates an assertion failure marked as ErrInvariant.
func Invariantf(format string, args ...interface{}) error {
	return Mark(crdb.AssertionFailedWithDepthf(1, format, args...), ErrInvariant)
}

// IsInvariant checks if an error is or wraps ErrInvariant.
func IsInvariant(err error) bool {
	return err != nil && Is(err, ErrInvariant)
}

// IsNotFoundError checks if an error is or wraps ErrNotFound.
func IsNotFoundError(err error) bool {
	return err != nil && Is(err, ErrNotFound)
}

// IsElementNotFound checks if an error is or wraps ErrElementNotFound.
func IsElementNotFound(err error) bool {
	return err != nil && Is(err, ErrElementNotFound)
}

// IsStale checks if an error is or wraps ErrStale.
func IsStale(err error) bool {
	return err != nil && Is(err, ErrStale)
}

// IsInvalidRequestError checks if an error is or wraps ErrInvalidRequest
func IsInvalidRequestError(err error) bool {
	return err != nil && Is(err, ErrInvalidRequest)
}

// NewNotFoundError creates a not-found error with a formatted message
func NewNotFoundError(format string, args ...interface{}) error {
	return Wrap(ErrNotFound, Newf(format, args...).Error())
}

// NewInvalidRequestError creates an invalid-request error with a formatted message
func NewInvalidRequestError(format string, args ...interface{}) error {
	return Wrap(ErrInvalidRequest, Newf(format, args...).Error())
}

// NewStaleError creates a stale-result error with a formatted message
func NewStaleError(format string, args ...interface{}) error {
	return Wrap(ErrStale, Newf(format, args...).Error())
}
