package log

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSanitizeField_SensitiveKeys(t *testing.T) {
	tests := []struct {
		name  string
		key   string
		value string
	}{
		{name: "write token", key: "write_token", value: "skWriteTokenABCDEF123456"},
		{name: "api key", key: "api_key", value: "cg-1234567890abcdef"},
		{name: "authorization header", key: "authorization", value: "Bearer abcdef123456789"},
		{name: "password", key: "password", value: "hunter2hunter2"},
		{name: "nested secret", key: "cms_secret_value", value: "topsecretvalue99"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := SanitizeField(tt.key, tt.value)
			assert.NotEqual(t, tt.value, got, "value should be masked")
			assert.Contains(t, got, "*")
		})
	}
}

func TestSanitizeField_LongValueKeepsEdges(t *testing.T) {
	got := SanitizeField("token", "abcd1234efgh5678")
	assert.True(t, strings.HasPrefix(got, "abcd"))
	assert.True(t, strings.HasSuffix(got, "5678"))
	assert.Contains(t, got, "********")
}

func TestSanitizeField_ShortValues(t *testing.T) {
	assert.Equal(t, "**", SanitizeField("token", "ab"))
	assert.Equal(t, "a***f", SanitizeField("token", "abcdf"))
}

func TestSanitizeField_Email(t *testing.T) {
	tests := []struct {
		name     string
		value    string
		expected string
	}{
		{name: "long local part", value: "instructor@aviatorstc.com", expected: "ins***@aviatorstc.com"},
		{name: "short local part", value: "ab@example.com", expected: "a*@example.com"},
		{name: "invalid email", value: "not-an-email", expected: "************"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, SanitizeField("email", tt.value))
		})
	}
}

func TestSanitizeField_NonSensitivePassthrough(t *testing.T) {
	assert.Equal(t, "fetchPosts", SanitizeField("operation", "fetchPosts"))
	assert.Equal(t, "post-abc123", SanitizeField("document_id", "post-abc123"))
	assert.Equal(t, "", SanitizeField("token", ""))
}
