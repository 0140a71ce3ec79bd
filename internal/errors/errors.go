package errors

import (
	"errors"
	"fmt"
)

// ErrorCode represents stable error codes for all failure modes
type ErrorCode string

const (
	// SymbolNotFound indicates a named class/table/symbol does not exist
	SymbolNotFound ErrorCode = "SYMBOL_NOT_FOUND"
	// ParseFailure indicates a metadata file could not be parsed
	ParseFailure ErrorCode = "PARSE_FAILURE"
	// StoreCorruption indicates the backing store file could not be opened
	StoreCorruption ErrorCode = "STORE_CORRUPTION"
	// CacheUnavailable indicates the cache backend is down or slow
	CacheUnavailable ErrorCode = "CACHE_UNAVAILABLE"
	// InvalidArgument indicates a structurally required argument is missing or malformed
	InvalidArgument ErrorCode = "INVALID_ARGUMENT"
	// IndexLocked indicates another process is re-indexing
	IndexLocked ErrorCode = "INDEX_LOCKED"
	// IndexEmpty indicates nothing has been indexed yet
	IndexEmpty ErrorCode = "INDEX_EMPTY"
	// InternalError indicates unexpected error
	InternalError ErrorCode = "INTERNAL_ERROR"
)

// FixActionType represents the type of fix action
type FixActionType string

const (
	// RunCommand suggests running a command
	RunCommand FixActionType = "run-command"
	// CallTool suggests calling another tool
	CallTool FixActionType = "call-tool"
	// TryQuery suggests an alternate query
	TryQuery FixActionType = "try-query"
)

// FixAction represents a suggested fix for an error
type FixAction struct {
	Type        FixActionType `json:"type"`
	Command     string        `json:"command,omitempty"`
	Tool        string        `json:"tool,omitempty"`
	Query       string        `json:"query,omitempty"`
	Description string        `json:"description,omitempty"`
}

// Drilldown represents a suggested follow-up query
type Drilldown struct {
	Label string `json:"label"`
	Query string `json:"query"`
}

// Error carries a stable code, a message, and next steps for the caller.
type Error struct {
	Code           ErrorCode   `json:"code"`
	Message        string      `json:"message"`
	Details        interface{} `json:"details,omitempty"`
	SuggestedFixes []FixAction `json:"suggestedFixes,omitempty"`
	Drilldowns     []Drilldown `json:"drilldowns,omitempty"`
	cause          error
}

// New creates an error with the default fixes for its code.
func New(code ErrorCode, message string, cause error) *Error {
	return &Error{
		Code:           code,
		Message:        message,
		cause:          cause,
		SuggestedFixes: GetSuggestedFixes(code),
	}
}

// Newf is New with a formatted message and no cause.
func Newf(code ErrorCode, format string, args ...interface{}) *Error {
	return New(code, fmt.Sprintf(format, args...), nil)
}

// Error implements the error interface
func (e *Error) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.cause)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// Unwrap returns the underlying error
func (e *Error) Unwrap() error {
	return e.cause
}

// WithDetails adds details to the error
func (e *Error) WithDetails(details interface{}) *Error {
	e.Details = details
	return e
}

// WithFix appends a suggested fix.
func (e *Error) WithFix(fix FixAction) *Error {
	e.SuggestedFixes = append(e.SuggestedFixes, fix)
	return e
}

// WithDrilldowns appends follow-up queries.
func (e *Error) WithDrilldowns(d ...Drilldown) *Error {
	e.Drilldowns = append(e.Drilldowns, d...)
	return e
}

// CodeOf returns the code of the first *Error in err's chain, or
// InternalError when there is none.
func CodeOf(err error) ErrorCode {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return InternalError
}

// Is reports whether err carries the given code.
func Is(err error, code ErrorCode) bool {
	var e *Error
	return errors.As(err, &e) && e.Code == code
}

// ErrorActions maps error codes to suggested fix actions
var ErrorActions = map[ErrorCode][]FixAction{
	StoreCorruption: {
		{
			Type:        RunCommand,
			Command:     "xppkb index",
			Description: "The store was recreated empty; re-index the metadata",
		},
	},
	IndexEmpty: {
		{
			Type:        RunCommand,
			Command:     "xppkb index",
			Description: "Index the metadata before searching",
		},
	},
	IndexLocked: {
		{
			Type:        RunCommand,
			Command:     "sleep 5 && xppkb index",
			Description: "Retry after the running index pass finishes",
		},
	},
	SymbolNotFound: {
		{
			Type:        CallTool,
			Tool:        "search",
			Description: "Search with a partial name to find the right spelling",
		},
	},
}

// GetSuggestedFixes returns a copy of the suggested fixes for an error code
func GetSuggestedFixes(code ErrorCode) []FixAction {
	fixes, ok := ErrorActions[code]
	if !ok {
		return nil
	}
	out := make([]FixAction, len(fixes))
	copy(out, fixes)
	return out
}
