// Package common defines shared constants and sentinel errors used across
// gophgallery layers. Callers should use errors.Is to match these values.
//
// Errors form a two-level taxonomy: each specific error wraps one of the
// root kinds (unauthenticated, forbidden, not found, validation, upstream),
// so transport layers only need to match the roots.
package common

import (
	"errors"
	"fmt"
)

// Root kinds.
var (
	ErrorUnauthenticated = errors.New("unauthenticated")
	ErrorForbidden       = errors.New("forbidden")
	ErrorNotFound        = errors.New("not found")
	ErrorValidation      = errors.New("validation error")
	ErrorUpstream        = errors.New("upstream failure")

	ErrorInternal = errors.New("internal error")
)

// Auth errors.
var (
	ErrMissingToken       = fmt.Errorf("%w: missing token", ErrorUnauthenticated)
	ErrInvalidToken       = fmt.Errorf("%w: invalid token", ErrorUnauthenticated)
	ErrTokenExpired       = fmt.Errorf("%w: token expired", ErrInvalidToken)
	ErrInvalidCredentials = fmt.Errorf("%w: invalid username or password", ErrorUnauthenticated)

	ErrDuplicateUsername = fmt.Errorf("%w: username already exists", ErrorValidation)
	ErrEmptyCredentials  = fmt.Errorf("%w: username and password are required", ErrorValidation)
	ErrPasswordTooLong   = fmt.Errorf("%w: password exceeds 72 bytes", ErrorValidation)
)

// Asset errors.
var (
	ErrNoFileProvided         = fmt.Errorf("%w: no file provided", ErrorValidation)
	ErrNoFilesProvided        = fmt.Errorf("%w: no files provided", ErrorValidation)
	ErrTooManyFiles           = fmt.Errorf("%w: too many files", ErrorValidation)
	ErrFileTooLarge           = fmt.Errorf("%w: file too large", ErrorValidation)
	ErrUnsupportedContentType = fmt.Errorf("%w: unsupported content type", ErrorValidation)
	ErrMissingOwner           = fmt.Errorf("%w: owner is required", ErrorValidation)

	ErrBlobNotFound        = fmt.Errorf("%w: blob", ErrorNotFound)
	ErrBlobWriteFailed     = fmt.Errorf("%w: blob write failed", ErrorUpstream)
	ErrBlobDeleteFailed    = fmt.Errorf("%w: blob delete failed", ErrorUpstream)
	ErrMetadataWriteFailed = fmt.Errorf("%w: metadata write failed", ErrorUpstream)

	ErrSweepUnsupported = errors.New("sweep requires the local blob backend")
)
