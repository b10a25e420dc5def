package model

import "errors"

var (
	// ErrNotFound means the referenced file is not in the expected store.
	ErrNotFound = errors.New("not found")
	// ErrInvalidLabel means the label record was rejected by validation.
	ErrInvalidLabel = errors.New("invalid label")
	// ErrMalformedPayload means the request could not be decoded.
	ErrMalformedPayload = errors.New("malformed payload")
	// ErrOrphanedEntry marks an image without a label or a label without an image.
	ErrOrphanedEntry = errors.New("orphaned entry")
)
