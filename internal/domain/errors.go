package domain

import "errors"

// Attribution error kinds. They are always wrapped with context, match them
// with errors.Is.
var (
	// ErrSchema is returned when a required input column or field is missing or unparseable
	ErrSchema = errors.New("schema error")

	// ErrConfiguration is returned for invalid run parameters, such as a
	// removal channel that is not a start state or an empty time range
	ErrConfiguration = errors.New("configuration error")

	// ErrNumerical is returned when the absorbing chain cannot be solved
	ErrNumerical = errors.New("numerical error")
)
