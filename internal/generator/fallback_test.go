package generator

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClassName(t *testing.T) {
	cases := map[string]string{
		"reverse a string":                  "ReverseAStringSolution",
		"build-a_REST api with auth":        "BuildARestSolution",
		"  sort   numbers  ":                "SortNumbersSolution",
		"":                                  "GeneratedSolution",
		"!!! ???":                           "GeneratedSolution",
		"2fa login flow":                    "Generated2faLoginFlowSolution",
		"parse user's CSV (quickly) please": "ParseUsersCsvSolution",
	}
	for prompt, want := range cases {
		assert.Equal(t, want, ClassName(prompt), prompt)
	}
}

func TestRenderFallback(t *testing.T) {
	at := time.Date(2024, 5, 1, 14, 30, 5, 0, time.UTC)
	text, err := RenderFallback("reverse a string", at)
	require.NoError(t, err)

	assert.True(t, strings.HasPrefix(text, "# Fallback generated code\n# Prompt: reverse a string\n"))
	assert.Contains(t, text, "# Generated at: 2024-05-01 14:30:05 UTC")
	assert.Contains(t, text, "class ReverseAStringSolution:")
	assert.Contains(t, text, "solution = ReverseAStringSolution()")
	assert.Contains(t, text, "# Implement: reverse a string")
}
