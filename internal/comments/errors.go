package comments

import "errors"

// Validation errors.
var (
	ErrEmptyComment   = errors.New("comment text is empty")
	ErrAuthorRequired = errors.New("author name is required")
)
