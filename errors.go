package assistant

import (
	stderrors "errors"
	"fmt"
	"strings"

	apperrors "github.com/goliatone/go-errors"
)

const CodeValidationFailed = "VALIDATION_FAILED"

// ErrValidation is a sentinel error used to mark validation failures.
// Compare with HasCode(err, CodeValidationFailed), cloned errors do not
// share pointer identity with the sentinel.
var ErrValidation = apperrors.New("validation error", apperrors.CategoryValidation).
	WithTextCode(CodeValidationFailed)

// MessageError is a custom error type wrapping context around a failed
// operation on one of the collaborators (store, workspace client, fulfiller).
type MessageError struct {
	Type    string
	Message string
	Err     error
}

func (e *MessageError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Type, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Type, e.Message)
}

func (e *MessageError) Unwrap() error {
	return e.Err
}

// WrapError is a helper to create wrapped errors using MessageError
func WrapError(errType, msg string, err error) *MessageError {
	return &MessageError{
		Type:    errType,
		Message: msg,
		Err:     err,
	}
}

// CloneError derives a failure from a sentinel, keeping its category and
// text code while replacing message, source and metadata.
func CloneError(base *apperrors.Error, message string, source error, metadata map[string]any) *apperrors.Error {
	if base == nil {
		base = ErrValidation
	}
	err := base.Clone()
	if text := strings.TrimSpace(message); text != "" {
		err.Message = text
	}
	if source != nil {
		err.Source = source
	}
	if len(metadata) > 0 {
		err = err.WithMetadata(metadata)
	}
	return err
}

// ErrorCode returns the text code of the first go-errors value in the chain.
func ErrorCode(err error) string {
	var ge *apperrors.Error
	if stderrors.As(err, &ge) {
		return ge.TextCode
	}
	return ""
}

// HasCode reports whether any go-errors value in the chain carries code.
func HasCode(err error, code string) bool {
	for err != nil {
		var ge *apperrors.Error
		if !stderrors.As(err, &ge) {
			return false
		}
		if ge.TextCode == code {
			return true
		}
		err = ge.Source
	}
	return false
}
