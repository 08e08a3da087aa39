package trace

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecodeLog(t *testing.T) {
	raw := json.RawMessage(`[
		"Connected to chinook.db",
		{"step": "extract", "status": "success", "message": "Extracted 11 tables, 64 columns", "icon": "🔬", "errors": []},
		{"step": "validate", "status": "failed", "message": "Validation FAILED", "errors": ["Album.Title: type mismatch", null, {"table": "Track"}]},
		{"step": "enrich"},
		{},
		42,
		null
	]`)

	log := DecodeLog(raw)
	require.Len(t, log, 5)

	assert.Equal(t, LogEntry{Step: "info", Status: "success", Message: "Connected to chinook.db", Errors: []string{}}, log[0])
	assert.Equal(t, LogEntry{Step: "extract", Status: "success", Message: "Extracted 11 tables, 64 columns", Icon: "🔬", Errors: []string{}}, log[1])
	assert.Equal(t, []string{"Album.Title: type mismatch", `{"table": "Track"}`}, log[2].Errors)
	assert.Equal(t, LogEntry{Step: "enrich", Status: "success", Message: "enrich", Errors: []string{}}, log[3])
	assert.Equal(t, LogEntry{Step: "info", Status: "success", Message: "info", Errors: []string{}}, log[4])
}

func TestDecodeLogNonArray(t *testing.T) {
	for _, raw := range []string{``, `null`, `{}`, `"extract"`} {
		log := DecodeLog(json.RawMessage(raw))
		assert.NotNil(t, log, "input %q", raw)
		assert.Empty(t, log, "input %q", raw)
	}
}

func TestDecodeLogFeedsInterpreter(t *testing.T) {
	raw := json.RawMessage(`[
		{"step": "extract", "status": "success", "message": "m", "errors": []},
		{"step": "enrich", "status": "success", "message": "m", "errors": []},
		{"step": "validate", "status": "failed", "message": "m", "errors": ["e"]},
		{"step": "enrich", "status": "success", "message": "m", "errors": []},
		{"step": "validate", "status": "passed", "message": "m", "errors": []}
	]`)

	tr := Interpret(DecodeLog(raw))
	assert.Equal(t, Outcome{Passed: true, RetryCount: 1}, tr.Outcome)
	assert.True(t, tr.Entries[3].IsRetry)
}
