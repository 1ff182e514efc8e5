// Package errors provides error handling for codebinder.
//
// This package re-exports github.com/cockroachdb/errors so that every error
// carries a stack trace and can be annotated with user-facing hints:
//
//	if err := conv.Convert(ctx, prog); err != nil {
//	    return errors.Wrap(err, "conversion failed")
//	}
//
//	return errors.WithHint(err, "rename one of the overloads")
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
	WithHint    = crdb.WithHint
	WithHintf   = crdb.WithHintf
	WithDetail  = crdb.WithDetail
	WithDetailf = crdb.WithDetailf
)

// Error inspection
var (
	Is           = crdb.Is
	IsAny        = crdb.IsAny
	As           = crdb.As
	Unwrap       = crdb.Unwrap
	UnwrapAll    = crdb.UnwrapAll
	GetAllHints  = crdb.GetAllHints
	FlattenHints = crdb.FlattenHints
)

// Assertions
var (
	AssertionFailedf    = crdb.AssertionFailedf
	IsAssertionFailure  = crdb.IsAssertionFailure
	HasAssertionFailure = crdb.HasAssertionFailure
)

// Sentinel errors shared across packages. Wrap them to add context while
// keeping errors.Is working.
var (
	// ErrUnitRejected marks a conversion unit that produced no artifacts
	// because validation collected at least one error.
	ErrUnitRejected = New("conversion unit rejected")

	// ErrUnknownTarget indicates a target name with no registered backend
	ErrUnknownTarget = New("unknown target")

	// ErrInvalidConfig indicates a configuration value failed validation
	ErrInvalidConfig = New("invalid configuration")

	// ErrInvalidInput indicates a syntax document that could not be decoded
	ErrInvalidInput = New("invalid input")
)

// IsUnitRejected reports whether err is or wraps ErrUnitRejected.
func IsUnitRejected(err error) bool {
	return err != nil && Is(err, ErrUnitRejected)
}
