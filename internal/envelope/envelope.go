// Package envelope provides the response wrapper every tool result is
// returned in: the payload plus cache, truncation, and freshness metadata,
// warnings, and suggested next calls.
package envelope

import "xppkb/internal/errors"

// CurrentSchemaVersion is the current envelope schema version.
const CurrentSchemaVersion = "1.0"

// CacheInfo describes cache status for this response.
type CacheInfo struct {
	Hit   bool   `json:"hit" yaml:"hit"`
	Fuzzy bool   `json:"fuzzy,omitempty" yaml:"fuzzy,omitempty"` // served from a similar query's entry
	Key   string `json:"key,omitempty" yaml:"key,omitempty"`
}

// Truncation describes result trimming.
type Truncation struct {
	IsTruncated bool   `json:"isTruncated" yaml:"isTruncated"`
	Shown       int    `json:"shown,omitempty" yaml:"shown,omitempty"`
	Total       int    `json:"total,omitempty" yaml:"total,omitempty"`
	Reason      string `json:"reason,omitempty" yaml:"reason,omitempty"` // "limit", "max-batch"
}

// Freshness describes how current the index behind the answer is.
type Freshness struct {
	IndexedAt   string `json:"indexedAt,omitempty" yaml:"indexedAt,omitempty"`
	StaleReason string `json:"staleReason,omitempty" yaml:"staleReason,omitempty"`
}

// Meta holds response metadata.
type Meta struct {
	Cache      *CacheInfo  `json:"cache,omitempty" yaml:"cache,omitempty"`
	Truncation *Truncation `json:"truncation,omitempty" yaml:"truncation,omitempty"`
	Freshness  *Freshness  `json:"freshness,omitempty" yaml:"freshness,omitempty"`
	DurationMs int64       `json:"durationMs,omitempty" yaml:"durationMs,omitempty"`
}

// SuggestedCall represents a recommended follow-up tool call.
type SuggestedCall struct {
	Tool   string         `json:"tool" yaml:"tool"`
	Params map[string]any `json:"params,omitempty" yaml:"params,omitempty"`
	Reason string         `json:"reason,omitempty" yaml:"reason,omitempty"`
}

// Warning represents a non-fatal issue.
type Warning struct {
	Code    string `json:"code,omitempty" yaml:"code,omitempty"`
	Message string `json:"message" yaml:"message"`
}

// ErrorInfo is the machine-readable form of a failed call.
type ErrorInfo struct {
	Code           errors.ErrorCode   `json:"code" yaml:"code"`
	Message        string             `json:"message" yaml:"message"`
	SuggestedFixes []errors.FixAction `json:"suggestedFixes,omitempty" yaml:"suggestedFixes,omitempty"`
}

// Response is the standard envelope for all tool responses.
type Response struct {
	SchemaVersion      string          `json:"schemaVersion" yaml:"schemaVersion"`
	Tool               string          `json:"tool" yaml:"tool"`
	Data               any             `json:"data,omitempty" yaml:"data,omitempty"`
	Meta               *Meta           `json:"meta,omitempty" yaml:"meta,omitempty"`
	Warnings           []Warning       `json:"warnings,omitempty" yaml:"warnings,omitempty"`
	Error              *ErrorInfo      `json:"error,omitempty" yaml:"error,omitempty"`
	SuggestedNextCalls []SuggestedCall `json:"suggestedNextCalls,omitempty" yaml:"suggestedNextCalls,omitempty"`
}
