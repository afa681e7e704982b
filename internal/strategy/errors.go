package strategy

import (
	"errors"
	"fmt"
)

// Kind discriminates strategy errors. Callers are expected to branch on it
// rather than on message text.
type Kind int

const (
	KindInvalidPath Kind = iota + 1
	KindNormalizationFailed
	KindSecurityViolation
	KindPlatformDetectionFailed
	KindStrategyCreationFailed
)

func (k Kind) String() string {
	switch k {
	case KindInvalidPath:
		return "INVALID_PATH"
	case KindNormalizationFailed:
		return "NORMALIZATION_FAILED"
	case KindSecurityViolation:
		return "SECURITY_VIOLATION"
	case KindPlatformDetectionFailed:
		return "PLATFORM_DETECTION_FAILED"
	case KindStrategyCreationFailed:
		return "STRATEGY_CREATION_FAILED"
	default:
		return "UNKNOWN"
	}
}

// Error is the only error type returned by strategies. Which fields are set
// depends on Kind:
//
//	KindInvalidPath              Path, Reason
//	KindNormalizationFailed      Path, Cause
//	KindSecurityViolation        Path, Violation
//	KindPlatformDetectionFailed  Message
//	KindStrategyCreationFailed   Message, Cause (optional)
type Error struct {
	Kind      Kind
	Path      string
	Reason    string
	Violation string
	Message   string
	Cause     error
}

func (e *Error) Error() string {
	switch e.Kind {
	case KindInvalidPath:
		return fmt.Sprintf("%s: %q: %s", e.Kind, e.Path, e.Reason)
	case KindNormalizationFailed:
		return fmt.Sprintf("%s: %q: %v", e.Kind, e.Path, e.Cause)
	case KindSecurityViolation:
		return fmt.Sprintf("%s: %q: %s", e.Kind, e.Path, e.Violation)
	default:
		if e.Cause != nil {
			return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Cause)
		}
		return fmt.Sprintf("%s: %s", e.Kind, e.Message)
	}
}

func (e *Error) Unwrap() error {
	return e.Cause
}

// IsKind reports whether err is, or wraps, a strategy error of kind k.
func IsKind(err error, k Kind) bool {
	var serr *Error
	return errors.As(err, &serr) && serr.Kind == k
}

func invalidPath(path, reason string, cause error) *Error {
	return &Error{Kind: KindInvalidPath, Path: path, Reason: reason, Cause: cause}
}

func securityViolation(path, violation string, cause error) *Error {
	return &Error{Kind: KindSecurityViolation, Path: path, Violation: violation, Cause: cause}
}

func creationFailed(message string, cause error) *Error {
	return &Error{Kind: KindStrategyCreationFailed, Message: message, Cause: cause}
}

// legacyError carries a human-readable message for callers of the older
// string-returning API while keeping the structured error reachable.
type legacyError struct {
	msg string
	err error
}

func (e *legacyError) Error() string {
	return e.msg
}

func (e *legacyError) Unwrap() error {
	return e.err
}

// Legacy converts a strategy error into the descriptive error style used by
// the resolver API. Errors that are not strategy errors are returned as is.
func Legacy(err error) error {
	var serr *Error
	if !errors.As(err, &serr) {
		return err
	}

	var msg string

	switch serr.Kind {
	case KindInvalidPath:
		msg = fmt.Sprintf("invalid path format %q: %s", serr.Path, serr.Reason)
	case KindNormalizationFailed:
		msg = fmt.Sprintf("failed to normalize path %q: %v", serr.Path, serr.Cause)
	case KindSecurityViolation:
		msg = fmt.Sprintf("access denied for path %q: %s", serr.Path, serr.Violation)
	default:
		msg = serr.Message
		if serr.Cause != nil {
			msg = fmt.Sprintf("%s: %v", msg, serr.Cause)
		}
	}

	return &legacyError{msg: msg, err: err}
}
