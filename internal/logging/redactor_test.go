package logging

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestRedactSensitiveKeys(t *testing.T) {
	r := newRedactor()

	pairs := []any{
		"push_token", "tok-secret-value",
		"user", "user-1",
		"api_key", "key-abc",
		"Authorization", "Bearer xyz",
	}
	out := r.redact(pairs)

	require.Equal(t, "[REDACTED]", out[1])
	require.Equal(t, "user-1", out[3])
	require.Equal(t, "[REDACTED]", out[5])
	require.Equal(t, "[REDACTED]", out[7])

	// Original slice stays untouched.
	require.Equal(t, "tok-secret-value", pairs[1])
}

func TestRedactMatchesSegmentsNotSubstrings(t *testing.T) {
	r := newRedactor()

	require.True(t, r.isSensitive("push_token"))
	require.True(t, r.isSensitive("BACKEND_AUTH_TOKEN"))
	require.True(t, r.isSensitive("provider.api.key"))
	require.False(t, r.isSensitive("monkey"))
	require.False(t, r.isSensitive("tokenize_count"))
}

func TestRedactEmptyAndOddPairs(t *testing.T) {
	r := newRedactor()
	require.Empty(t, r.redact(nil))

	// A trailing key without a value is passed through unchanged.
	out := r.redact([]any{"token"})
	require.Equal(t, []any{"token"}, out)
}
