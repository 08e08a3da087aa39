package trace

import (
	"encoding/json"

	"github.com/buger/jsonparser"
)

// DecodeLog reads a pipeline_log array. Older runs logged bare strings;
// those become informational entries. Missing members default the way the
// dashboard shows them: step "info", status "success", message = step.
// Elements that are neither strings nor objects are skipped, and anything
// other than an array yields an empty log.
func DecodeLog(raw json.RawMessage) []LogEntry {
	entries := []LogEntry{}
	if _, dt, _, err := jsonparser.Get(raw); err != nil || dt != jsonparser.Array {
		return entries
	}
	_, err := jsonparser.ArrayEach(raw, func(v []byte, dt jsonparser.ValueType, _ int, err error) {
		if err != nil {
			return
		}
		switch dt {
		case jsonparser.String:
			msg, err := jsonparser.ParseString(v)
			if err != nil {
				return
			}
			entries = append(entries, LogEntry{
				Step:    StepInfo,
				Status:  StatusSuccess,
				Message: msg,
				Errors:  []string{},
			})
		case jsonparser.Object:
			entries = append(entries, decodeEntry(v))
		}
	})
	if err != nil {
		return []LogEntry{}
	}
	return entries
}

func decodeEntry(data []byte) LogEntry {
	e := LogEntry{Errors: []string{}}
	e.Step, _ = jsonparser.GetString(data, "step")
	e.Status, _ = jsonparser.GetString(data, "status")
	e.Message, _ = jsonparser.GetString(data, "message")
	e.Icon, _ = jsonparser.GetString(data, "icon")

	_, _ = jsonparser.ArrayEach(data, func(v []byte, dt jsonparser.ValueType, _ int, err error) {
		if err != nil || dt == jsonparser.Null {
			return
		}
		if dt == jsonparser.String {
			if s, err := jsonparser.ParseString(v); err == nil {
				e.Errors = append(e.Errors, s)
			}
			return
		}
		// Structured errors are kept as their JSON text.
		e.Errors = append(e.Errors, string(v))
	}, "errors")

	if e.Step == "" {
		e.Step = StepInfo
	}
	if e.Status == "" {
		e.Status = StatusSuccess
	}
	if e.Message == "" {
		e.Message = e.Step
	}
	return e
}
