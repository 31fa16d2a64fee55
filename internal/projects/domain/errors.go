package domain

import "errors"

var (
	// ErrNotFound covers missing projects, projects owned by someone else and
	// out-of-range section indices.
	ErrNotFound = errors.New("not found")
	// ErrValidation is wrapped with the offending field.
	ErrValidation = errors.New("validation failed")
	// ErrConflict means the outline was rebuilt while a section call was in
	// flight, so the index now names a different section.
	ErrConflict = errors.New("outline changed")
)

// GenerationError reports a failed or unusable response from the text
// generator. The upstream message is kept as-is.
type GenerationError struct {
	Op  string
	Err error
}

func (e *GenerationError) Error() string {
	if e.Op == "" {
		return e.Err.Error()
	}
	return e.Op + ": " + e.Err.Error()
}

func (e *GenerationError) Unwrap() error { return e.Err }

// NewGenerationError wraps err, leaving an existing GenerationError untouched.
func NewGenerationError(op string, err error) error {
	var ge *GenerationError
	if errors.As(err, &ge) {
		return err
	}
	return &GenerationError{Op: op, Err: err}
}
