// Package envelope builds the uniform response wrapper returned by every
// PagerDuty tool: the records under their resource name plus metadata, or a
// structured error when the result set is too large.
package envelope

import (
	"encoding/json"
	"fmt"
	"strings"

	apierrors "github.com/pagerduty-mcp/pagerduty-mcp-server/internal/errors"
)

const (
	// DefaultLimit is the maximum number of records an envelope may carry.
	DefaultLimit = 500

	// CodeLimitExceeded marks an envelope whose query matched more than the limit.
	CodeLimitExceeded = "LIMIT_EXCEEDED"
)

// Metadata describes the records in an envelope. Extra keys are flattened
// next to count and description when encoded.
type Metadata struct {
	Count       int            `json:"count"`
	Description string         `json:"description"`
	Extra       map[string]any `json:"-"`
}

// MarshalJSON flattens Extra into the metadata object.
func (m Metadata) MarshalJSON() ([]byte, error) {
	out := make(map[string]any, len(m.Extra)+2)
	for k, v := range m.Extra {
		out[k] = v
	}
	out["count"] = m.Count
	out["description"] = m.Description
	return json.Marshal(out)
}

// Error is the in-band error reported instead of records.
type Error struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// Envelope wraps the records of one resource type.
// Exactly one of Records (rendered under Resource) or Error is encoded.
type Envelope[T any] struct {
	Resource string
	Records  []T
	Metadata Metadata
	Error    *Error
}

// Exceeded reports whether the envelope carries a LIMIT_EXCEEDED error.
func (e Envelope[T]) Exceeded() bool {
	return e.Error != nil && e.Error.Code == CodeLimitExceeded
}

// MarshalJSON writes the records under the envelope's resource name.
func (e Envelope[T]) MarshalJSON() ([]byte, error) {
	out := map[string]any{"metadata": e.Metadata}
	if e.Error != nil {
		out["error"] = e.Error
		return json.Marshal(out)
	}
	records := e.Records
	if records == nil {
		records = []T{}
	}
	out[e.Resource] = records
	return json.Marshal(out)
}

type options struct {
	limit int
	extra map[string]any
}

// Option configures envelope construction.
type Option func(*options)

// WithLimit overrides DefaultLimit. Non-positive values are ignored.
func WithLimit(limit int) Option {
	return func(o *options) {
		if limit > 0 {
			o.limit = limit
		}
	}
}

// WithMetadata adds an extra metadata key. count and description are reserved.
func WithMetadata(key string, value any) Option {
	return func(o *options) {
		if key == "count" || key == "description" {
			return
		}
		if o.extra == nil {
			o.extra = make(map[string]any)
		}
		o.extra[key] = value
	}
}

// Single wraps one record; the envelope always reports a count of 1.
func Single[T any](resourceName string, record T, opts ...Option) (Envelope[T], error) {
	return New(resourceName, []T{record}, opts...)
}

// New wraps records under resourceName. Exceeding the limit is not an error:
// the returned envelope carries a LIMIT_EXCEEDED Error and no records.
func New[T any](resourceName string, records []T, opts ...Option) (Envelope[T], error) {
	if strings.TrimSpace(resourceName) == "" {
		return Envelope[T]{}, apierrors.NewValidationError("resource_name", "resource_name cannot be empty")
	}

	o := options{limit: DefaultLimit}
	for _, opt := range opts {
		opt(&o)
	}

	count := len(records)
	if count > o.limit {
		msg := fmt.Sprintf("Query returned %d %s, which exceeds the limit of %d", count, resourceName, o.limit)
		return Envelope[T]{
			Resource: resourceName,
			Metadata: Metadata{Count: count, Description: msg},
			Error:    &Error{Code: CodeLimitExceeded, Message: msg},
		}, nil
	}

	if records == nil {
		records = []T{}
	}

	return Envelope[T]{
		Resource: resourceName,
		Records:  records,
		Metadata: Metadata{
			Count:       count,
			Description: describe(count, resourceName),
			Extra:       o.extra,
		},
	}, nil
}

func describe(count int, resourceName string) string {
	noun := "results"
	if count == 1 {
		noun = "result"
	}
	return fmt.Sprintf("Found %d %s for resource type %s", count, noun, resourceName)
}
