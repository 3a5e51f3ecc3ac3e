// Package common defines sentinel errors shared by the repository, service
// and transport layers of userdir. Callers should use errors.Is to match
// these values.
package common

import "errors"

var (
	// Repository-level errors.
	ErrorNotFound = errors.New("not found")

	// Validation errors. Entity validation failures wrap this value.
	ErrorValidation = errors.New("validation error")

	// Object storage is optional; export is refused when it is absent.
	ErrorStorageNotConfigured = errors.New("object storage not configured")
)
