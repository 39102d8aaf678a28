package profile

import "codeberg.org/kessl/xptrack/internal/errors"

const (
	ErrInvalidProfileName = errors.ErrInvalidArgument
	ErrProfileNotFound    = errors.ErrResourceNotFound
	ErrProfileAccess      = errors.ErrorCode("profile_access_failed")
	ErrProfileMalformed   = errors.ErrorCode("profile_malformed")
)
