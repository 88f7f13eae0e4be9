package collector

import (
	"errors"
	"fmt"
)

// Error codes carried by CollectError and persisted on error records.
const (
	CodeCloudflareChallenge = "CLOUDFLARE_CHALLENGE"
	CodeParseEmptyNumbered  = "PARSE_EMPTY_NUMBERED"
	CodeParseEmptyCategory  = "PARSE_EMPTY_CATEGORY"
	CodeParseEmptyThais     = "PARSE_EMPTY_THAIS"
	CodeMissingStockCounter = "MISSING_STOCK_COUNTER"
	CodeThaisAPIError       = "THAIS_API_ERROR"
	CodeThaisNoRoomTypes    = "THAIS_NO_ROOM_TYPES"
	CodeUnknownProvider     = "UNKNOWN_PROVIDER"
	CodeRunCancelled        = "RUN_CANCELLED"
	CodeUnhandled           = "UNHANDLED_ERROR"
)

// CollectError is a classified collection failure.
type CollectError struct {
	Code    string
	Message string
	Err     error
}

// NewCollectError builds a CollectError with a formatted message.
func NewCollectError(code, format string, args ...any) *CollectError {
	return &CollectError{Code: code, Message: fmt.Sprintf(format, args...)}
}

// WrapCollectError classifies an underlying error.
func WrapCollectError(code string, err error, format string, args ...any) *CollectError {
	return &CollectError{Code: code, Message: fmt.Sprintf(format, args...), Err: err}
}

func (e *CollectError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *CollectError) Unwrap() error { return e.Err }

// ErrorCode extracts the classification of err, UNHANDLED_ERROR when err
// is not a CollectError.
func ErrorCode(err error) string {
	var ce *CollectError
	if errors.As(err, &ce) {
		return ce.Code
	}
	return CodeUnhandled
}

// ErrorMessage returns the human readable part of err.
func ErrorMessage(err error) string {
	var ce *CollectError
	if errors.As(err, &ce) {
		if ce.Err != nil {
			return ce.Message + ": " + ce.Err.Error()
		}
		return ce.Message
	}
	if err == nil {
		return ""
	}
	return err.Error()
}
