package ai

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func Test_CleanJSONResponse_Fenced(t *testing.T) {
	t.Parallel()
	in := "```json\n{\"a\": 1}\n```"
	out := CleanJSONResponse(in)
	assert.JSONEq(t, `{"a":1}`, out)
}

func Test_CleanJSONResponse_SurroundingProse(t *testing.T) {
	t.Parallel()
	in := "Here is the extracted profile:\n{\"full_name\": \"Ada\"}\nLet me know if you need anything else."
	out := CleanJSONResponse(in)
	assert.JSONEq(t, `{"full_name":"Ada"}`, out)
}

func Test_CleanJSONResponse_NestedBracesInStrings(t *testing.T) {
	t.Parallel()
	in := `{"summary": "worked on {templating} systems", "n": 2}`
	out := CleanJSONResponse(in)
	var m map[string]any
	require.NoError(t, json.Unmarshal([]byte(out), &m))
	assert.Equal(t, "worked on {templating} systems", m["summary"])
}

func Test_CleanJSONResponse_TrailingComma(t *testing.T) {
	t.Parallel()
	in := `{"skills": ["go", "sql",], "years": 3,}`
	out := CleanJSONResponse(in)
	assert.True(t, json.Valid([]byte(out)), "got: %s", out)
}

func Test_CleanJSONResponse_NoJSON(t *testing.T) {
	t.Parallel()
	out := CleanJSONResponse("I cannot process this document.")
	assert.False(t, json.Valid([]byte(out)) && out != "")
}
