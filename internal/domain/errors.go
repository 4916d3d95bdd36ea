package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrSessionNotFound is returned when a quiz session does not exist.
	ErrSessionNotFound = errors.New("quiz session not found")
	// ErrQuizNotFound indicates the quiz content could not be loaded.
	ErrQuizNotFound = errors.New("quiz not found")
	// ErrQuestionNotFound indicates an index or question ID outside the session.
	ErrQuestionNotFound = errors.New("question not found")
	// ErrNoQuestions is returned when a mode resolves to an empty question list.
	ErrNoQuestions = errors.New("no questions could be selected for this session")
	// ErrNoErrorsFound is returned by errors mode when recent history holds no mistakes.
	ErrNoErrorsFound = errors.New("no errors found in recent sessions")
	// ErrUnknownMode is returned for an unsupported session mode.
	ErrUnknownMode = errors.New("unknown quiz mode")
	// ErrSessionNotActive is returned for transitions attempted from a terminal state.
	ErrSessionNotActive = errors.New("session is not active")
	// ErrSessionPaused is returned when a submission arrives while the timer is paused.
	ErrSessionPaused = errors.New("session is paused")
	// ErrSubmissionRejected wraps every refused submission.
	ErrSubmissionRejected = errors.New("submission rejected")
	// ErrSubmissionInFlight is returned while a previous submission is being processed.
	ErrSubmissionInFlight = errors.New("a submission is already in flight")
	// ErrQuestionFinalized is returned for a question that cannot be answered again.
	ErrQuestionFinalized = errors.New("question already finalized")
	// ErrQuestionUnanswered is returned when skipping a question without back navigation.
	ErrQuestionUnanswered = errors.New("current question has not been answered")
	// ErrNavigationNotAllowed is returned when moving back without permission.
	ErrNavigationNotAllowed = errors.New("back navigation is not allowed")
	// ErrInvalidResponse indicates a submitted value of the wrong shape.
	ErrInvalidResponse = errors.New("invalid response")
)

// ConfigurationError means a session could not be started with the requested mode.
type ConfigurationError struct {
	Mode   Mode
	Reason string
	Err    error
}

func (e *ConfigurationError) Error() string {
	if e.Reason != "" {
		return fmt.Sprintf("configuration error (%s): %s", e.Mode, e.Reason)
	}
	return fmt.Sprintf("configuration error (%s): %v", e.Mode, e.Err)
}

func (e *ConfigurationError) Unwrap() error {
	return e.Err
}

// DataIntegrityWarning describes malformed stored data replaced by a safe default.
type DataIntegrityWarning struct {
	Subject string
	Detail  string
}

func (w *DataIntegrityWarning) Error() string {
	return fmt.Sprintf("data integrity warning: %s: %s", w.Subject, w.Detail)
}

// ValidationError is a single violated rule found while importing a quiz.
type ValidationError struct {
	Field   string      `json:"field"`
	Message string      `json:"message"`
	Value   interface{} `json:"value,omitempty"`
	Rule    string      `json:"rule,omitempty"`
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation error on field '%s': %s", e.Field, e.Message)
}

// ValidationErrors collects every rule violated by a quiz document.
type ValidationErrors []ValidationError

func (ve ValidationErrors) Error() string {
	if len(ve) == 0 {
		return "validation failed"
	}
	if len(ve) == 1 {
		return fmt.Sprintf("validation failed: %s %s", ve[0].Field, ve[0].Message)
	}
	return fmt.Sprintf("validation failed: %d field errors", len(ve))
}
