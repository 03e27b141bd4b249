// Package cli implements the command-line interface.
package cli

import (
	"errors"

	"github.com/plesql/plesql/internal/config"
	"github.com/plesql/plesql/internal/errs"
	"github.com/plesql/plesql/internal/store"
)

// Error codes for structured error responses.
// These codes are stable and can be relied upon by scripts driving plesql.
const (
	// Config errors
	ErrConfigInvalid = "CONFIG_INVALID"

	// Script errors
	ErrScriptInvalid = "SCRIPT_INVALID"
	ErrScriptFailed  = "SCRIPT_FAILED"

	// Definition errors
	ErrDefinitionNotFound = "DEFINITION_NOT_FOUND"

	// Result errors
	ErrTargetNotFound = "TARGET_NOT_FOUND"

	// File errors
	ErrFileReadError  = "FILE_READ_ERROR"
	ErrFileWriteError = "FILE_WRITE_ERROR"

	// Database errors
	ErrDatabaseError   = "DATABASE_ERROR"
	ErrDatabaseVersion = "DATABASE_VERSION_MISMATCH"

	// Input errors
	ErrInvalidInput    = "INVALID_INPUT"
	ErrMissingArgument = "MISSING_ARGUMENT"

	// General errors
	ErrInternal = "INTERNAL_ERROR"
)

// codeFor picks the response code for an error returned by a lower layer.
func codeFor(err error, fallback string) string {
	switch {
	case errors.Is(err, config.ErrInvalid):
		return ErrConfigInvalid
	case errors.Is(err, store.ErrNewerSchema):
		return ErrDatabaseVersion
	case errors.Is(err, store.ErrDefinitionNotFound):
		return ErrDefinitionNotFound
	case errs.Is(err, errs.KindSyntax):
		return ErrScriptInvalid
	case errs.KindOf(err) != "":
		return ErrScriptFailed
	}
	return fallback
}
