package script

import (
	"errors"
	"time"
)

// FileExt is the extension of hook script files.
const FileExt = ".tengo"

// ErrorType categorizes different types of script errors
type ErrorType string

const (
	ErrorTypeCompilation ErrorType = "compilation"
	ErrorTypeExecution   ErrorType = "execution"
	ErrorTypeTimeout     ErrorType = "timeout"
	ErrorTypeNotFound    ErrorType = "not_found"
)

// ErrNotFound is returned when running a hook that has no script.
var ErrNotFound = errors.New("script not found")

// Script is a hook script loaded from disk.
type Script struct {
	Name         string
	Path         string
	Content      string
	LastModified time.Time
}

// SecurityLimits defines resource constraints for script execution
type SecurityLimits struct {
	MaxExecutionTime time.Duration
	// MaxAllocs caps the objects a single run may allocate.
	MaxAllocs       int64
	AllowedPackages []string
}

// DefaultSecurityLimits returns safe default constraints for script execution.
func DefaultSecurityLimits() SecurityLimits {
	return SecurityLimits{
		MaxExecutionTime: 500 * time.Millisecond,
		MaxAllocs:        100_000,
		AllowedPackages:  []string{"fmt", "strings", "math", "text", "times"},
	}
}

// ScriptError represents script-related errors with context
type ScriptError struct {
	Type       ErrorType
	ScriptName string
	Message    string
	Cause      error
}

func (e *ScriptError) Error() string {
	msg := e.ScriptName + ": " + e.Message
	if e.Cause != nil {
		return msg + ": " + e.Cause.Error()
	}
	return msg
}

func (e *ScriptError) Unwrap() error {
	return e.Cause
}

// NewScriptError creates a new ScriptError with the given parameters
func NewScriptError(errorType ErrorType, scriptName, message string, cause error) *ScriptError {
	return &ScriptError{
		Type:       errorType,
		ScriptName: scriptName,
		Message:    message,
		Cause:      cause,
	}
}
