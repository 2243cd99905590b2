package domain

import "errors"

// Contract errors. "No match found" and "row invalid" are normal outcomes
// represented as data (Confidence, ValidationResult) and never appear here.
var (
	// ErrDuplicateFieldKey is returned when a new custom field's derived
	// key collides with an existing field, core or custom.
	ErrDuplicateFieldKey = errors.New("field key already exists")

	// ErrProtectedField is returned when a caller tries to modify or
	// delete a core field.
	ErrProtectedField = errors.New("core fields cannot be modified or deleted")

	// ErrNotFound is returned when a field, dataset, or mapping does not exist.
	ErrNotFound = errors.New("resource not found")

	// ErrInvalidFormula is returned when a calculated field carries a
	// formula that fails structural validation.
	ErrInvalidFormula = errors.New("invalid formula")

	// ErrInvalidInput is returned when request validation fails.
	ErrInvalidInput = errors.New("invalid input")

	// ErrUnsupportedFileType is returned by the shell when a file cannot
	// be decoded into headers and rows.
	ErrUnsupportedFileType = errors.New("unsupported file type")

	// ErrFileReadFailure is returned when reading or decoding an input
	// file fails; the mapping pipeline never starts in that case.
	ErrFileReadFailure = errors.New("failed to read file")

	// ErrSessionState is returned when an import session operation is
	// invoked from a state that does not allow it.
	ErrSessionState = errors.New("operation not allowed in current import state")
)
