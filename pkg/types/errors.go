package types

import "errors"

// Domain errors shared across packages
var (
	// Indexing and job errors
	ErrPathNotFound      = errors.New("project path not found")
	ErrJobNotFound       = errors.New("project not found")
	ErrJobRunning        = errors.New("indexing already in progress for project")
	ErrInvalidTransition = errors.New("invalid job status transition")

	// Query errors
	ErrEmptyQuery = errors.New("query cannot be empty")

	// Validation errors
	ErrMissingEntityID = errors.New("entity id is required")
)
