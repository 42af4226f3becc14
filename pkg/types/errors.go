package types

import "fmt"

const (
	ErrClone     = 1001
	ErrDetection = 1002
	ErrNotFound  = 1003
	ErrSetup     = 1004
	ErrInstall   = 1005
	ErrStart     = 1006
	ErrSession   = 3001

	ErrTypeClone     = "CLONE_ERROR"
	ErrTypeDetection = "DETECTION_ERROR"
	ErrTypeNotFound  = "NOT_FOUND_ERROR"
	ErrTypeSetup     = "SETUP_ERROR"
	ErrTypeInstall   = "INSTALL_ERROR"
	ErrTypeStart     = "START_ERROR"
	ErrTypeSession   = "SESSION_ERROR"
)

// GradingError is the closed error taxonomy of the grading pipeline.
// Code and Type identify the failing stage; Err carries the underlying cause.
type GradingError struct {
	Code    int
	Type    string
	Message string
	Err     error
}

func (e *GradingError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Type, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Type, e.Message)
}

func (e *GradingError) Unwrap() error { return e.Err }

func newError(code int, errType, message string, err error) *GradingError {
	return &GradingError{Code: code, Type: errType, Message: message, Err: err}
}

// NewCloneError reports a failed repository clone (non-zero exit or timeout).
func NewCloneError(message string, err error) *GradingError {
	return newError(ErrClone, ErrTypeClone, message, err)
}

// NewDetectionError reports that no language profile matched the repository.
func NewDetectionError(message string) *GradingError {
	return newError(ErrDetection, ErrTypeDetection, message, nil)
}

// NewNotFoundError reports a missing entry file.
func NewNotFoundError(message string) *GradingError {
	return newError(ErrNotFound, ErrTypeNotFound, message, nil)
}

// NewSetupError reports a failed environment provisioning step.
func NewSetupError(message string, err error) *GradingError {
	return newError(ErrSetup, ErrTypeSetup, message, err)
}

// NewInstallError reports a dependency installation failure that is not
// covered by the tolerated missing-manifest policy.
func NewInstallError(message string, err error) *GradingError {
	return newError(ErrInstall, ErrTypeInstall, message, err)
}

// NewStartError reports that the graded application failed to spawn or
// never opened its port.
func NewStartError(message string, err error) *GradingError {
	return newError(ErrStart, ErrTypeStart, message, err)
}

// NewSessionError is the catch-all for unexpected failures surfaced at the
// orchestrator boundary.
func NewSessionError(message string, err error) *GradingError {
	return newError(ErrSession, ErrTypeSession, message, err)
}
