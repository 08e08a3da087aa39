// Package run reads pipeline run records as the pipeline API returns them:
// a single record object or an array of records, each carrying a schema
// payload and a flat pipeline log.
package run

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/buger/jsonparser"

	"github.com/hurou927/schemalens/internal/trace"
)

// Record is one pipeline run. Only the identifying members are decoded
// eagerly; the schema payload and log stay raw until asked for.
type Record struct {
	RunID     string
	Status    string
	CreatedAt string
	Errors    []string

	raw []byte
}

// payloadKeys are tried in order; the enriched schema wins over the plain
// result, which wins over the raw extraction.
var payloadKeys = []string{"schema_enriched", "result", "schema_raw"}

// Parse decodes run records from data. data is retained by the records.
func Parse(data []byte) ([]Record, error) {
	_, dt, _, err := jsonparser.Get(data)
	if err != nil {
		return nil, fmt.Errorf("parsing run data: %w", err)
	}

	switch dt {
	case jsonparser.Object:
		rec, err := parseRecord(data)
		if err != nil {
			return nil, err
		}
		return []Record{rec}, nil
	case jsonparser.Array:
		records := []Record{}
		var elemErr error
		i := 0
		_, err := jsonparser.ArrayEach(data, func(v []byte, dt jsonparser.ValueType, _ int, err error) {
			defer func() { i++ }()
			if elemErr != nil {
				return
			}
			if err != nil {
				elemErr = fmt.Errorf("run %d: %w", i, err)
				return
			}
			if dt != jsonparser.Object {
				elemErr = fmt.Errorf("run %d is %s, not an object", i, dt)
				return
			}
			rec, err := parseRecord(v)
			if err != nil {
				elemErr = fmt.Errorf("run %d: %w", i, err)
				return
			}
			records = append(records, rec)
		})
		if err != nil {
			return nil, fmt.Errorf("parsing run array: %w", err)
		}
		if elemErr != nil {
			return nil, elemErr
		}
		return records, nil
	default:
		return nil, fmt.Errorf("run data is %s, not an object or array", dt)
	}
}

func parseRecord(data []byte) (Record, error) {
	rec := Record{raw: data, Errors: []string{}}

	var err error
	if rec.RunID, err = optionalString(data, "run_id"); err != nil {
		return Record{}, err
	}
	if rec.Status, err = optionalString(data, "status"); err != nil {
		return Record{}, err
	}
	if rec.CreatedAt, err = optionalString(data, "created_at"); err != nil {
		return Record{}, err
	}

	_, _ = jsonparser.ArrayEach(data, func(v []byte, dt jsonparser.ValueType, _ int, err error) {
		if err != nil || dt != jsonparser.String {
			return
		}
		if s, err := jsonparser.ParseString(v); err == nil {
			rec.Errors = append(rec.Errors, s)
		}
	}, "errors")

	return rec, nil
}

// optionalString returns the string member key, "" when it is absent or
// null, and an error when it holds anything else.
func optionalString(data []byte, key string) (string, error) {
	v, dt, _, err := jsonparser.Get(data, key)
	if errors.Is(err, jsonparser.KeyPathNotFoundError) || dt == jsonparser.Null {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("reading %s: %w", key, err)
	}
	if dt != jsonparser.String {
		return "", fmt.Errorf("%s is %s, not a string", key, dt)
	}
	s, err := jsonparser.ParseString(v)
	if err != nil {
		return "", fmt.Errorf("reading %s: %w", key, err)
	}
	return s, nil
}

// SchemaPayload returns the first present, non-null schema payload of the
// run with its key order intact, or nil when the run carries none.
func (r Record) SchemaPayload() json.RawMessage {
	for _, key := range payloadKeys {
		v, dt, _, err := jsonparser.Get(r.raw, key)
		if err != nil || dt == jsonparser.Null || dt == jsonparser.NotExist {
			continue
		}
		if dt == jsonparser.String {
			// jsonparser strips the quotes; put them back so the decoder
			// sees a string and reports it.
			s, err := jsonparser.ParseString(v)
			if err != nil {
				continue
			}
			quoted, _ := json.Marshal(s)
			return quoted
		}
		return json.RawMessage(v)
	}
	return nil
}

// HasSchema reports whether the run carries any schema payload.
func (r Record) HasSchema() bool {
	return r.SchemaPayload() != nil
}

// Log decodes the run's pipeline log. A missing or non-array log is empty.
func (r Record) Log() []trace.LogEntry {
	v, dt, _, err := jsonparser.Get(r.raw, "pipeline_log")
	if err != nil || dt != jsonparser.Array {
		return []trace.LogEntry{}
	}
	return trace.DecodeLog(v)
}

// Label is the run id, or a positional name for runs without one.
func (r Record) Label(i int) string {
	if r.RunID != "" {
		return r.RunID
	}
	return fmt.Sprintf("#%d", i+1)
}

// Find selects the run whose id is id or starts with id. An empty id
// selects the first run.
func Find(records []Record, id string) (Record, error) {
	if len(records) == 0 {
		return Record{}, fmt.Errorf("no runs in input")
	}
	if id == "" {
		return records[0], nil
	}

	var matches []Record
	for _, r := range records {
		if r.RunID == id {
			return r, nil
		}
		if strings.HasPrefix(r.RunID, id) {
			matches = append(matches, r)
		}
	}
	switch len(matches) {
	case 0:
		return Record{}, fmt.Errorf("run %q not found", id)
	case 1:
		return matches[0], nil
	default:
		return Record{}, fmt.Errorf("run id prefix %q is ambiguous (%d runs match)", id, len(matches))
	}
}

// Read parses all run records from r.
func Read(r io.Reader) ([]Record, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("reading run data: %w", err)
	}
	return Parse(data)
}

// Load parses the run records in path. A path of "-" reads stdin.
func Load(path string, stdin io.Reader) ([]Record, error) {
	if path == "-" {
		return Read(stdin)
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening run file: %w", err)
	}
	defer f.Close()
	return Read(f)
}
