package incidents

import "errors"

// Validation errors. These fail fast, before any AI call or write.
var (
	ErrTitleRequired       = errors.New("title is required")
	ErrDescriptionRequired = errors.New("description is required")
	ErrInvalidSeverity     = errors.New("invalid severity")
	ErrInvalidStatus       = errors.New("invalid incident status")
)

// Repository errors.
var (
	ErrIncidentNotFound = errors.New("incident not found")
)
