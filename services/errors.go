package services

import "errors"

var (
	// ErrInvalidArgument signals a caller mistake (e.g., reserving more than
	// one code at a time).
	ErrInvalidArgument = errors.New("invalid argument")

	// ErrGeneratorExhausted signals the phrase generator could not produce
	// enough globally-unique codes within the retry budget.
	ErrGeneratorExhausted = errors.New("phrase generator exhausted")
)
