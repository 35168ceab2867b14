package domain

import (
	"errors"
	"fmt"
)

var (
	ErrSignupNotFound        = errors.New("signup not found")
	ErrNoteNotFound          = errors.New("note not found")
	ErrFormNotFound          = errors.New("qa form not found")
	ErrInvalidInput          = errors.New("invalid input")
	ErrForbidden             = errors.New("forbidden")
	ErrAlreadyProvisioned    = errors.New("provider already provisioned")
	ErrProviderNotApplicable = errors.New("provider not applicable to application type")
	ErrConcurrentUpdate      = errors.New("signup modified by another decision")
	ErrLockNotAcquired       = errors.New("signup is being processed")
)

// IncompleteAnswerError 必填问题未作答
type IncompleteAnswerError struct {
	Provider     Provider
	QuestionID   string
	QuestionText string
}

func (e *IncompleteAnswerError) Error() string {
	return fmt.Sprintf("missing answer for required %s question %q", e.Provider, e.QuestionText)
}
