package api

import "codeberg.org/kessl/xptrack/internal/errors"

const (
	ErrInvalidID     = errors.ErrInvalidArgument
	ErrInvalidLimit  = errors.ErrInvalidArgument
	ErrInvalidWindow = errors.ErrInvalidArgument
)

var errFactory = errors.New()
