package envelope

import (
	stderrors "errors"
	"time"

	"xppkb/internal/errors"
)

// Builder constructs Response envelopes using a fluent API.
type Builder struct {
	resp *Response
}

// New creates a new envelope builder for tool.
func New(tool string) *Builder {
	return &Builder{
		resp: &Response{
			SchemaVersion: CurrentSchemaVersion,
			Tool:          tool,
		},
	}
}

func (b *Builder) meta() *Meta {
	if b.resp.Meta == nil {
		b.resp.Meta = &Meta{}
	}
	return b.resp.Meta
}

// Data sets the tool-specific payload.
func (b *Builder) Data(data any) *Builder {
	b.resp.Data = data
	return b
}

// WithCache records where the payload came from. Misses add nothing.
func (b *Builder) WithCache(hit bool, fuzzy bool, key string) *Builder {
	if !hit {
		return b
	}
	b.meta().Cache = &CacheInfo{Hit: true, Fuzzy: fuzzy, Key: key}
	return b
}

// WithTruncation adds truncation metadata.
func (b *Builder) WithTruncation(truncated bool, shown, total int, reason string) *Builder {
	if !truncated {
		return b
	}
	b.meta().Truncation = &Truncation{
		IsTruncated: true,
		Shown:       shown,
		Total:       total,
		Reason:      reason,
	}
	return b
}

// WithFreshness adds index freshness info.
func (b *Builder) WithFreshness(indexedAt time.Time, staleReason string) *Builder {
	if indexedAt.IsZero() && staleReason == "" {
		return b
	}
	f := &Freshness{StaleReason: staleReason}
	if !indexedAt.IsZero() {
		f.IndexedAt = indexedAt.UTC().Format(time.RFC3339)
	}
	b.meta().Freshness = f
	return b
}

// WithDuration records how long the call took.
func (b *Builder) WithDuration(d time.Duration) *Builder {
	b.meta().DurationMs = d.Milliseconds()
	return b
}

// Suggest appends a follow-up call.
func (b *Builder) Suggest(tool string, params map[string]any, reason string) *Builder {
	b.resp.SuggestedNextCalls = append(b.resp.SuggestedNextCalls, SuggestedCall{
		Tool:   tool,
		Params: params,
		Reason: reason,
	})
	return b
}

// Warning adds a warning message.
func (b *Builder) Warning(msg string) *Builder {
	b.resp.Warnings = append(b.resp.Warnings, Warning{Message: msg})
	return b
}

// WarningWithCode adds a warning with a code.
func (b *Builder) WarningWithCode(code errors.ErrorCode, msg string) *Builder {
	b.resp.Warnings = append(b.resp.Warnings, Warning{Code: string(code), Message: msg})
	return b
}

// Error sets the error field. Coded errors keep their code and fixes;
// anything else is reported as an internal error. Fixes naming another
// tool also become suggested calls.
func (b *Builder) Error(err error) *Builder {
	if err == nil {
		return b
	}
	info := &ErrorInfo{Code: errors.InternalError, Message: err.Error()}
	var coded *errors.Error
	if stderrors.As(err, &coded) {
		info.Code = coded.Code
		info.Message = coded.Message
		info.SuggestedFixes = coded.SuggestedFixes
	}
	b.resp.Error = info

	for _, fix := range info.SuggestedFixes {
		if fix.Type == errors.CallTool && fix.Tool != "" {
			var params map[string]any
			if fix.Query != "" {
				params = map[string]any{"query": fix.Query}
			}
			b.Suggest(fix.Tool, params, fix.Description)
		}
	}
	return b
}

// Build returns the completed response envelope.
func (b *Builder) Build() *Response {
	return b.resp
}
