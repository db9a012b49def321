package classifier

import (
	"errors"
	"fmt"
)

// AnalysisError marks a failed classification. The render loop discards it and keeps
// the previous scores.
type AnalysisError struct {
	Backend string
	Err     error
}

func (e *AnalysisError) Error() string {
	return fmt.Sprintf("emotion analysis failed (%s): %v", e.Backend, e.Err)
}

func (e *AnalysisError) Unwrap() error {
	return e.Err
}

// IsAnalysisError reports whether err is, or wraps, an *AnalysisError.
func IsAnalysisError(err error) bool {
	var ae *AnalysisError
	return errors.As(err, &ae)
}

// NewAnalysisError wraps err unless it already carries an *AnalysisError.
func NewAnalysisError(backend string, err error) error {
	if err == nil {
		return nil
	}
	var ae *AnalysisError
	if errors.As(err, &ae) {
		return err
	}
	return &AnalysisError{Backend: backend, Err: err}
}
