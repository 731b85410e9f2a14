package envelope

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"conductor/pkg/llmerrors"
)

func TestSuccessNormalizesNilFindings(t *testing.T) {
	env := Success(nil, "notes")
	assert.True(t, env.IsSuccess())
	assert.NotNil(t, env.Findings)
	assert.Len(t, env.Findings, 0)

	data, err := json.Marshal(env)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"findings":[]`)
}

func TestFailureNeverCarriesFindings(t *testing.T) {
	env := Failure("HTTP 503: server error", 503, true)
	assert.True(t, env.IsFailure())
	assert.Empty(t, env.Findings)
	assert.Equal(t, "HTTP 503: server error", env.Reason)
	assert.Equal(t, 503, env.HTTPStatus)
	require.NotNil(t, env.Retryable)
	assert.True(t, *env.Retryable)
}

func TestFailureFromError(t *testing.T) {
	err := llmerrors.NewWithStatus(llmerrors.ErrorTypeAuth, 401, "authentication failed - check API key")
	env := FailureFromError(err)

	assert.True(t, env.IsFailure())
	assert.Equal(t, "HTTP 401: authentication failed - check API key", env.Reason)
	assert.Equal(t, 401, env.HTTPStatus)
	require.NotNil(t, env.Retryable)
	assert.False(t, *env.Retryable)
	assert.Empty(t, env.Findings)
}

func TestCancelled(t *testing.T) {
	env := Cancelled("cancelled during attempt 2")
	assert.True(t, env.IsFailure())
	assert.Equal(t, "cancelled during attempt 2", env.Reason)
	require.NotNil(t, env.Retryable)
	assert.False(t, *env.Retryable)

	empty := Cancelled("")
	assert.Equal(t, "call cancelled", empty.Reason)
}

func TestString(t *testing.T) {
	ok := Success([]Finding{{Summary: "a"}, {Summary: "b"}}, "")
	assert.Equal(t, "success (2 findings)", ok.String())

	bad := Failure("timeout", 0, true)
	assert.Equal(t, "failure (timeout)", bad.String())
}

func TestParseFindings(t *testing.T) {
	tests := []struct {
		name    string
		content string
		want    []Finding
	}{
		{
			name:    "empty output",
			content: "   \n  ",
			want:    nil,
		},
		{
			name:    "findings document",
			content: `{"findings":[{"category":"bug","summary":"nil deref","detail":"line 10"}]}`,
			want:    []Finding{{Category: "bug", Summary: "nil deref", Detail: "line 10"}},
		},
		{
			name:    "empty findings document",
			content: `{"findings":[]}`,
			want:    []Finding{},
		},
		{
			name:    "bare array of findings",
			content: `[{"summary":"one"},{"summary":"two"}]`,
			want:    []Finding{{Summary: "one"}, {Summary: "two"}},
		},
		{
			name:    "array of strings",
			content: `["first issue","second issue"]`,
			want:    []Finding{{Summary: "first issue"}, {Summary: "second issue"}},
		},
		{
			name:    "fenced json",
			content: "```json\n{\"findings\":[{\"summary\":\"fenced\"}]}\n```",
			want:    []Finding{{Summary: "fenced"}},
		},
		{
			name:    "free text becomes a note",
			content: "Everything looks structurally sound.",
			want:    []Finding{{Category: "note", Summary: "Everything looks structurally sound."}},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ParseFindings(tt.content))
		})
	}
}
