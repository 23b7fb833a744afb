package domain

import "errors"

// ErrNotFound is returned by repository lookups that miss.
var ErrNotFound = errors.New("not found")

// ErrInvalidInput is returned for caller-supplied input that fails
// validation before any external call is made.
var ErrInvalidInput = errors.New("invalid input")
