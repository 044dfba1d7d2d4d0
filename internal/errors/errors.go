package errors

import "fmt"

// ErrorCode represents a namelens error code.
type ErrorCode string

const (
	ErrInvalidRequest ErrorCode = "INVALID_REQUEST" // 400
	ErrNotFound       ErrorCode = "NOT_FOUND"       // 404
	ErrFingerprint    ErrorCode = "FINGERPRINT"     // 422
	ErrOracle         ErrorCode = "ORACLE"          // 502
	ErrCacheCorrupt   ErrorCode = "CACHE_CORRUPT"   // diagnostic only, never fatal
	ErrWrite          ErrorCode = "FS_WRITE"        // 500
	ErrCancelled      ErrorCode = "CANCELLED"       // 499
	ErrInternal       ErrorCode = "INTERNAL"        // 500
)

// NamerError represents a structured error with code, status, and details.
type NamerError struct {
	Code    ErrorCode
	Status  int
	Message string
	Details map[string]any
}

// Error implements the error interface.
func (e *NamerError) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// NewInvalidRequest creates a 400 error for invalid parameters.
func NewInvalidRequest(msg string) *NamerError {
	return &NamerError{
		Code:    ErrInvalidRequest,
		Status:  400,
		Message: msg,
	}
}

// NewNotFound creates a 404 error for a missing file or directory.
func NewNotFound(path string) *NamerError {
	return &NamerError{
		Code:    ErrNotFound,
		Status:  404,
		Message: fmt.Sprintf("path not found: %s", path),
		Details: map[string]any{"path": path},
	}
}

// NewFingerprint creates an error for an unreadable or corrupt asset.
func NewFingerprint(path string, err error) *NamerError {
	return &NamerError{
		Code:    ErrFingerprint,
		Status:  422,
		Message: fmt.Sprintf("cannot fingerprint %s: %v", path, err),
		Details: map[string]any{"path": path},
	}
}

// NewOracle creates an error for a failed assess or propose call.
func NewOracle(op string, err error) *NamerError {
	return &NamerError{
		Code:    ErrOracle,
		Status:  502,
		Message: fmt.Sprintf("oracle %s failed: %v", op, err),
		Details: map[string]any{"operation": op},
	}
}

// NewCacheCorrupt creates an error for an unreadable cache record.
// Callers treat this as a miss; it is never propagated as fatal.
func NewCacheCorrupt(key string, err error) *NamerError {
	return &NamerError{
		Code:    ErrCacheCorrupt,
		Status:  500,
		Message: fmt.Sprintf("corrupt cache record %s: %v", key, err),
		Details: map[string]any{"key": key},
	}
}

// NewWrite creates an error for a denied rename or file write.
func NewWrite(path string, err error) *NamerError {
	return &NamerError{
		Code:    ErrWrite,
		Status:  500,
		Message: fmt.Sprintf("write failed for %s: %v", path, err),
		Details: map[string]any{"path": path},
	}
}

// NewCancelled creates an error for an interrupted operation.
func NewCancelled(op string) *NamerError {
	return &NamerError{
		Code:    ErrCancelled,
		Status:  499,
		Message: fmt.Sprintf("operation cancelled: %s", op),
	}
}

// NewInternal creates a 500 error for unexpected internal errors.
func NewInternal(err error) *NamerError {
	msg := "internal error"
	if err != nil {
		msg = err.Error()
	}
	return &NamerError{
		Code:    ErrInternal,
		Status:  500,
		Message: msg,
	}
}

// Is checks if an error is a NamerError with the given code.
func Is(err error, code ErrorCode) bool {
	if nErr, ok := err.(*NamerError); ok {
		return nErr.Code == code
	}
	return false
}
