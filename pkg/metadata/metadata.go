// Package metadata provides structured parsing and validation for recovery
// operation metadata JSON. Admin requests attach free-form context (reason,
// tags, extra parameters) that is persisted with the operation record, so the
// shape is validated before a background run is accepted.
package metadata

import (
	"encoding/json"
	"fmt"
	"regexp"
)

const (
	// MaxReasonLength bounds the free-text reason attached to a run.
	MaxReasonLength = 500
	// MaxTags bounds the number of tags per operation.
	MaxTags = 10
	// MaxTagLength bounds each tag.
	MaxTagLength = 50
	// MaxParameters bounds the extra key/value pairs per operation.
	MaxParameters = 20
)

var paramKeyPattern = regexp.MustCompile(`^[a-zA-Z][a-zA-Z0-9_.-]*$`)

// OperationMetadata is the admin-supplied context for a recovery operation.
type OperationMetadata struct {
	InitiatedBy string            `json:"initiated_by,omitempty"` // authenticated admin identifier
	Reason      string            `json:"reason,omitempty"`       // free text, shown in operation history
	Tags        []string          `json:"tags,omitempty"`         // labels for filtering history (e.g. ["incident-42"])
	Parameters  map[string]string `json:"parameters,omitempty"`   // operation-specific inputs (date ranges, batch size)
}

// Parse parses a JSON string into OperationMetadata.
// An empty string returns empty metadata.
func Parse(jsonStr string) (*OperationMetadata, error) {
	if jsonStr == "" {
		return &OperationMetadata{}, nil
	}

	var meta OperationMetadata
	if err := json.Unmarshal([]byte(jsonStr), &meta); err != nil {
		return nil, fmt.Errorf("failed to parse metadata JSON: %w", err)
	}

	return &meta, nil
}

// String serializes OperationMetadata to a JSON string.
// Returns empty string if metadata is empty.
func (m *OperationMetadata) String() string {
	if m.IsEmpty() {
		return ""
	}

	data, err := json.Marshal(m)
	if err != nil {
		return ""
	}

	return string(data)
}

// IsEmpty checks if metadata has any non-zero values.
func (m *OperationMetadata) IsEmpty() bool {
	return m.InitiatedBy == "" &&
		m.Reason == "" &&
		len(m.Tags) == 0 &&
		len(m.Parameters) == 0
}

// Validate validates metadata fields and returns error if invalid.
// Validation rules:
// - reason: max 500 characters
// - tags: max 10 tags, each tag 1 to 50 characters
// - parameters: max 20 entries, keys must be simple identifiers
func (m *OperationMetadata) Validate() error {
	if len(m.Reason) > MaxReasonLength {
		return fmt.Errorf("reason too long: max %d characters, got %d", MaxReasonLength, len(m.Reason))
	}

	if len(m.Tags) > MaxTags {
		return fmt.Errorf("too many tags: max %d allowed, got %d", MaxTags, len(m.Tags))
	}
	for i, tag := range m.Tags {
		if tag == "" {
			return fmt.Errorf("tag[%d] is empty", i)
		}
		if len(tag) > MaxTagLength {
			return fmt.Errorf("tag[%d] too long: max %d characters, got %d", i, MaxTagLength, len(tag))
		}
	}

	if len(m.Parameters) > MaxParameters {
		return fmt.Errorf("too many parameters: max %d allowed, got %d", MaxParameters, len(m.Parameters))
	}
	for key := range m.Parameters {
		if !paramKeyPattern.MatchString(key) {
			return fmt.Errorf("invalid parameter key %q: must start with a letter and contain only letters, digits, '_', '.', '-'", key)
		}
	}

	return nil
}
