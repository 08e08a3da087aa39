package run

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hurou927/schemalens/internal/schema"
	"github.com/hurou927/schemalens/internal/trace"
)

const runsJSON = `[
	{
		"run_id": "7f3c9a10-0000-4000-8000-000000000001",
		"status": "completed",
		"created_at": "2025-03-02T10:15:00",
		"schema_enriched": {
			"users": {"columns": {"id": {"original_type": "INTEGER", "is_primary_key": true}}},
			"orders": {"columns": {"id": {}, "user_id": {"references": "users.id"}}}
		},
		"schema_raw": {"ignored": {}},
		"pipeline_log": [
			"Connected",
			{"step": "extract", "status": "success", "message": "Extracted 2 tables", "errors": []},
			{"step": "enrich", "status": "success", "message": "Enriched", "errors": []},
			{"step": "validate", "status": "passed", "message": "OK", "errors": []}
		],
		"errors": []
	},
	{
		"run_id": "7f3c9a10-0000-4000-8000-000000000002",
		"status": "failed",
		"schema_enriched": null,
		"result": {"b": {}, "a": {}},
		"errors": ["timeout", 3]
	},
	{
		"run_id": "9a000000-0000-4000-8000-000000000003",
		"status": "running"
	}
]`

func TestParseArray(t *testing.T) {
	records, err := Parse([]byte(runsJSON))
	require.NoError(t, err)
	require.Len(t, records, 3)

	assert.Equal(t, "7f3c9a10-0000-4000-8000-000000000001", records[0].RunID)
	assert.Equal(t, "completed", records[0].Status)
	assert.Equal(t, "2025-03-02T10:15:00", records[0].CreatedAt)
	assert.Equal(t, []string{}, records[0].Errors)
	assert.Equal(t, []string{"timeout"}, records[1].Errors)
	assert.Equal(t, "", records[2].CreatedAt)
}

func TestParseSingleObject(t *testing.T) {
	records, err := Parse([]byte(` {"run_id": "solo", "status": "completed"} `))
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, "solo", records[0].RunID)
}

func TestParseErrors(t *testing.T) {
	tests := []struct {
		name string
		data string
		want string
	}{
		{name: "empty", data: ``, want: "parsing run data"},
		{name: "scalar", data: `42`, want: "not an object or array"},
		{name: "non-object element", data: `[{"run_id": "a"}, "b"]`, want: "run 1 is string"},
		{name: "wrong run_id type", data: `{"run_id": 7}`, want: "run_id is number"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse([]byte(tt.data))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestSchemaPayloadPrecedence(t *testing.T) {
	records, err := Parse([]byte(runsJSON))
	require.NoError(t, err)

	s := schema.Decode(records[0].SchemaPayload(), schema.Discard)
	assert.Equal(t, []string{"users", "orders"}, s.Names())

	// schema_enriched is null, so result is used, key order intact.
	s = schema.Decode(records[1].SchemaPayload(), schema.Discard)
	assert.Equal(t, []string{"b", "a"}, s.Names())

	assert.Nil(t, records[2].SchemaPayload())
	assert.False(t, records[2].HasSchema())
}

func TestSchemaPayloadString(t *testing.T) {
	records, err := Parse([]byte(`{"result": "not a schema"}`))
	require.NoError(t, err)
	assert.JSONEq(t, `"not a schema"`, string(records[0].SchemaPayload()))
}

func TestLog(t *testing.T) {
	records, err := Parse([]byte(runsJSON))
	require.NoError(t, err)

	log := records[0].Log()
	require.Len(t, log, 4)
	assert.Equal(t, "info", log[0].Step)
	assert.Equal(t, "Connected", log[0].Message)

	tr := trace.Interpret(log)
	assert.Equal(t, trace.Outcome{Passed: true, RetryCount: 0}, tr.Outcome)

	assert.Equal(t, []trace.LogEntry{}, records[2].Log())
}

func TestFind(t *testing.T) {
	records, err := Parse([]byte(runsJSON))
	require.NoError(t, err)

	r, err := Find(records, "")
	require.NoError(t, err)
	assert.Equal(t, records[0].RunID, r.RunID)

	r, err = Find(records, "9a00")
	require.NoError(t, err)
	assert.Equal(t, "running", r.Status)

	r, err = Find(records, "7f3c9a10-0000-4000-8000-000000000002")
	require.NoError(t, err)
	assert.Equal(t, "failed", r.Status)

	_, err = Find(records, "7f3c")
	assert.ErrorContains(t, err, "ambiguous")

	_, err = Find(records, "nope")
	assert.ErrorContains(t, err, "not found")

	_, err = Find(nil, "")
	assert.Error(t, err)
}

func TestLabel(t *testing.T) {
	assert.Equal(t, "abc", Record{RunID: "abc"}.Label(0))
	assert.Equal(t, "#3", Record{}.Label(2))
}

func TestLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "runs.json")
	require.NoError(t, os.WriteFile(path, []byte(runsJSON), 0o644))

	records, err := Load(path, nil)
	require.NoError(t, err)
	assert.Len(t, records, 3)

	records, err = Load("-", strings.NewReader(`{"run_id": "stdin"}`))
	require.NoError(t, err)
	assert.Equal(t, "stdin", records[0].RunID)

	_, err = Load(filepath.Join(t.TempDir(), "missing.json"), nil)
	assert.ErrorContains(t, err, "opening run file")
}
