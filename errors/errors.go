package errors

import (
	"errors"
	"fmt"
)

// Common error types for categorization and handling

var (
	// ErrSessionNotFound indicates the session id is unknown to the store
	ErrSessionNotFound = errors.New("session not found")

	// ErrSessionClosed indicates a mutation was attempted on an ended or completed session
	ErrSessionClosed = errors.New("session closed")

	// ErrGraphNotFound indicates a drug references a question set that is not loaded
	ErrGraphNotFound = errors.New("question graph not found")

	// ErrDrugNotFound indicates a drug id is unknown to the catalog
	ErrDrugNotFound = errors.New("drug not found")

	// ErrInvalidInput indicates invalid caller input
	ErrInvalidInput = errors.New("invalid input")

	// ErrServiceUnavailable indicates a required service is unavailable
	ErrServiceUnavailable = errors.New("service unavailable")

	// ErrLLMCommunication indicates LLM communication failed
	ErrLLMCommunication = errors.New("llm communication failed")
)

// WrapError wraps an error with context message and stack
func WrapError(err error, message string) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", message, err)
}

// WrapErrorf wraps an error with formatted context message
func WrapErrorf(err error, format string, args ...interface{}) error {
	if err == nil {
		return nil
	}
	message := fmt.Sprintf(format, args...)
	return fmt.Errorf("%s: %w", message, err)
}

// IsSessionNotFound checks if error is a session not found error
func IsSessionNotFound(err error) bool {
	return errors.Is(err, ErrSessionNotFound)
}

// IsSessionClosed checks if error is a session closed error
func IsSessionClosed(err error) bool {
	return errors.Is(err, ErrSessionClosed)
}

// IsGraphNotFound checks if error is a question graph not found error
func IsGraphNotFound(err error) bool {
	return errors.Is(err, ErrGraphNotFound)
}

// IsInvalidInput checks if error is an invalid input error
func IsInvalidInput(err error) bool {
	return errors.Is(err, ErrInvalidInput)
}
