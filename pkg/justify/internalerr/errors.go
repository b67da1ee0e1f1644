package internalerr

import "errors"

// Sentinel errors for common cases
var (
	ErrNotFound         = errors.New("not found")
	ErrInvalidStatement = errors.New("invalid statement")
	ErrInvalidItem      = errors.New("invalid item")
	ErrInvalidQuery     = errors.New("invalid query")
	ErrSyntax           = errors.New("syntax error")
	ErrStoreUnavailable = errors.New("store unavailable")
	ErrInvalidConfig    = errors.New("invalid configuration")
)
