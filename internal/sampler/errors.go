package sampler

import "codeberg.org/kessl/xptrack/internal/errors"

const (
	ErrSpotNotFound    = errors.ErrResourceNotFound
	ErrInvalidInterval = errors.ErrInvalidInterval
)
