package llm

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestExtractJSON_CodeFence(t *testing.T) {
	input := "```json\n{\"key\":\"value\"}\n```"
	assert.Equal(t, `{"key":"value"}`, ExtractJSON(input))
}

func TestExtractJSON_NoFence(t *testing.T) {
	input := `{"key":"value"}`
	assert.Equal(t, `{"key":"value"}`, ExtractJSON(input))
}

func TestExtractJSON_WithPreamble(t *testing.T) {
	input := "Here is the output:\n{\"a\":1}"
	assert.Equal(t, `{"a":1}`, ExtractJSON(input))
}

func TestExtractJSON_Array(t *testing.T) {
	input := "Result: [1,2,3] done"
	assert.Equal(t, "[1,2,3]", ExtractJSON(input))
}

func TestExtractJSON_PlainText(t *testing.T) {
	input := "no json here"
	assert.Equal(t, "no json here", ExtractJSON(input))
}

func TestTruncate(t *testing.T) {
	assert.Equal(t, "hello", Truncate("hello", 10))
	assert.Equal(t, "hel...", Truncate("hello world", 3))
	assert.Equal(t, "", Truncate("", 5))
}
