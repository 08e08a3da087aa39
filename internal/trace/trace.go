// Package trace turns the flat pipeline log into a retry-aware trace.
//
// The log carries no attempt number or cycle id. Cycles are recovered by
// counting enrichment entries: the first enrichment is the initial pass and
// every later one is a retry, normally opened by a failed validation right
// before it.
package trace

// LogEntry is one raw step of the pipeline log.
type LogEntry struct {
	Step    string   `json:"step"`
	Status  string   `json:"status"`
	Message string   `json:"message"`
	Errors  []string `json:"errors"`
	Icon    string   `json:"icon,omitempty"`
}

// Entry is a log entry annotated with its enrichment cycle.
type Entry struct {
	LogEntry

	// CyclePass is the 1-based count of enrichment entries up to and
	// including this one, or 0 for entries of other stages.
	CyclePass int  `json:"cycle_pass"`
	IsRetry   bool `json:"is_retry"`
}

// Outcome is the overall result of a pipeline run.
type Outcome struct {
	Passed     bool `json:"passed"`
	RetryCount int  `json:"retry_count"`
}

// Trace is the annotated log plus its outcome.
type Trace struct {
	Entries []Entry `json:"trace"`
	Outcome Outcome `json:"outcome"`

	vocab Vocabulary
}

// Interpreter annotates logs using a fixed vocabulary. It holds no state
// between calls and is safe for concurrent use.
type Interpreter struct {
	vocab Vocabulary
}

// NewInterpreter returns an interpreter for the given vocabulary.
func NewInterpreter(vocab Vocabulary) *Interpreter {
	return &Interpreter{vocab: vocab}
}

var defaultInterpreter = NewInterpreter(DefaultVocabulary())

// Interpret annotates log with the default vocabulary.
func Interpret(log []LogEntry) Trace {
	return defaultInterpreter.Interpret(log)
}

// Interpret walks log once, in order. Enrichment entries get an increasing
// CyclePass; all other entries get 0. The run passed iff its last entry is a
// successful validation. Interpreting a prefix of a log yields a prefix of
// the full trace's entries.
func (in *Interpreter) Interpret(log []LogEntry) Trace {
	t := Trace{
		Entries: make([]Entry, 0, len(log)),
		vocab:   in.vocab,
	}

	enrichCount := 0
	for _, le := range log {
		e := Entry{LogEntry: le}
		if e.Errors == nil {
			e.Errors = []string{}
		}
		if in.vocab.Kind(le.Step) == KindEnrich {
			enrichCount++
			e.CyclePass = enrichCount
			e.IsRetry = enrichCount > 1
		}
		t.Entries = append(t.Entries, e)
	}

	t.Outcome.RetryCount = max(enrichCount-1, 0)
	if n := len(log); n > 0 {
		last := log[n-1]
		t.Outcome.Passed = in.vocab.Kind(last.Step) == KindValidate && in.vocab.IsSuccess(last.Status)
	}
	return t
}

// RetryBoundary marks the enrichment entry that opens a retry cycle.
type RetryBoundary struct {
	// Index of the enrichment entry in Trace.Entries.
	Index int
	// Attempt is the 1-based retry number.
	Attempt int
}

// RetryBoundaries returns every position where a failed validation is
// immediately followed by an enrichment entry.
func (t Trace) RetryBoundaries() []RetryBoundary {
	var out []RetryBoundary
	for i := 1; i < len(t.Entries); i++ {
		prev, cur := t.Entries[i-1], t.Entries[i]
		if t.vocab.Kind(prev.Step) == KindValidate && t.vocab.IsFailure(prev.Status) &&
			t.vocab.Kind(cur.Step) == KindEnrich {
			out = append(out, RetryBoundary{Index: i, Attempt: cur.CyclePass - 1})
		}
	}
	return out
}

// StageStatus summarizes one pipeline stage across the trace.
type StageStatus struct {
	Stage      StepKind
	Step       string
	Runs       int
	Failures   int
	LastStatus string // "" when the stage never ran
}

// Stages summarizes the extraction, enrichment and validation stages in
// pipeline order. A stage that never ran has zero Runs.
func (t Trace) Stages() []StageStatus {
	stages := []StageStatus{
		{Stage: KindExtract, Step: t.vocab.Extract},
		{Stage: KindEnrich, Step: t.vocab.Enrich},
		{Stage: KindValidate, Step: t.vocab.Validate},
	}
	for _, e := range t.Entries {
		kind := t.vocab.Kind(e.Step)
		if kind == KindInfo {
			continue
		}
		st := &stages[kind-KindExtract]
		st.Runs++
		st.LastStatus = e.Status
		if t.vocab.IsFailure(e.Status) {
			st.Failures++
		}
	}
	return stages
}
