package helpers

import (
	"errors"
	"fmt"
	"time"

	"squeeze-trader/src/logger"
)

// -----------------------------------------------------------------------------
// Custom Error Types
// -----------------------------------------------------------------------------

type TraderError struct {
	Message string
	Cause   error
}

func (e *TraderError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Cause)
	}
	return e.Message
}

func (e *TraderError) Unwrap() error {
	return e.Cause
}

// Distinct error kinds for errors.As checks
type ConfigurationError struct{ TraderError }
type ValidationError struct{ TraderError }
type InvariantError struct{ TraderError }
type DatabaseError struct{ TraderError }
type DataSourceError struct{ TraderError }

// -----------------------------------------------------------------------------
// Sentinels
// -----------------------------------------------------------------------------

var (
	ErrInvalidSignalType  = errors.New("invalid signal type")
	ErrInvalidExitReason  = errors.New("invalid exit reason")
	ErrInvalidSide        = errors.New("invalid order side")
	ErrNonPositivePrice   = errors.New("price must be positive")
	ErrNonPositiveBalance = errors.New("initial balance must be positive")
	ErrEmptyCandles       = errors.New("candle list is empty")
	ErrNoActivePosition   = errors.New("no active position")
	ErrPositionExists     = errors.New("position already open")
	ErrSignalsDisabled    = errors.New("signal generation disabled")
)

// -----------------------------------------------------------------------------

// NewValidationError wraps a sentinel with call-site detail.
func NewValidationError(cause error, format string, args ...interface{}) error {
	return &ValidationError{TraderError{Message: fmt.Sprintf(format, args...), Cause: cause}}
}

// NewInvariantError wraps a sentinel whose violation would corrupt position state.
func NewInvariantError(cause error, format string, args ...interface{}) error {
	return &InvariantError{TraderError{Message: fmt.Sprintf(format, args...), Cause: cause}}
}

func NewConfigurationError(cause error, format string, args ...interface{}) error {
	return &ConfigurationError{TraderError{Message: fmt.Sprintf(format, args...), Cause: cause}}
}

func NewDatabaseError(cause error, format string, args ...interface{}) error {
	return &DatabaseError{TraderError{Message: fmt.Sprintf(format, args...), Cause: cause}}
}

func NewDataSourceError(cause error, format string, args ...interface{}) error {
	return &DataSourceError{TraderError{Message: fmt.Sprintf(format, args...), Cause: cause}}
}

// IsInputError reports whether err was caused by bad caller input.
func IsInputError(err error) bool {
	var v *ValidationError
	var i *InvariantError
	return errors.As(err, &v) || errors.As(err, &i)
}

// -----------------------------------------------------------------------------
// Error Handler
// -----------------------------------------------------------------------------

// ErrorHandler retries I/O side effects (journal writes) with exponential backoff.
// The trading core never goes through it.
type ErrorHandler struct {
	Logger                 *logger.Logger
	ErrorCount             int
	MaxErrorsBeforeRestart int
	BaseDelay              time.Duration
}

func NewErrorHandler(log *logger.Logger) *ErrorHandler {
	if log == nil {
		log = logger.NewLogger("INFO", "ErrorHandler")
	}
	return &ErrorHandler{
		Logger:                 log,
		MaxErrorsBeforeRestart: 10,
		BaseDelay:              time.Second,
	}
}

// -----------------------------------------------------------------------------

// Healthy reports whether the accumulated failure count is below the restart threshold.
func (e *ErrorHandler) Healthy() bool {
	return e.ErrorCount < e.MaxErrorsBeforeRestart
}

// -----------------------------------------------------------------------------

// ExecuteWithRetry runs fn up to maxRetries times. The final failure is wrapped as a DatabaseError.
func (e *ErrorHandler) ExecuteWithRetry(operation string, fn func() error, maxRetries int) error {
	if maxRetries < 1 {
		maxRetries = 1
	}
	var lastErr error
	for attempt := 0; attempt < maxRetries; attempt++ {
		lastErr = fn()
		if lastErr == nil {
			if e.ErrorCount > 0 {
				e.ErrorCount--
			}
			return nil
		}

		if attempt == maxRetries-1 {
			break
		}

		e.Logger.Warning("%s failed (attempt %d/%d): %v", operation, attempt+1, maxRetries, lastErr)
		time.Sleep(e.BaseDelay * (1 << attempt))
	}

	e.ErrorCount++
	e.Logger.Error("%s failed after %d attempts: %v", operation, maxRetries, lastErr)
	return NewDatabaseError(lastErr, "%s failed", operation)
}

// -----------------------------------------------------------------------------

func (e *ErrorHandler) Handle(err error, context string) {
	if err != nil {
		e.Logger.Error("Error in %s: %v", context, err)
	}
}
