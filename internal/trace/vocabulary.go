package trace

import "strings"

// Default stage identifiers and status words emitted by the pipeline.
const (
	StepExtract  = "extract"
	StepEnrich   = "enrich"
	StepValidate = "validate"
	StepInfo     = "info"

	StatusSuccess = "success"
	StatusPassed  = "passed"
	StatusFailed  = "failed"
)

// StepKind classifies a log entry by pipeline stage.
type StepKind int

const (
	KindInfo StepKind = iota
	KindExtract
	KindEnrich
	KindValidate
)

func (k StepKind) String() string {
	switch k {
	case KindExtract:
		return "extract"
	case KindEnrich:
		return "enrich"
	case KindValidate:
		return "validate"
	default:
		return "info"
	}
}

// Vocabulary names the stage identifiers and the status words that mean
// success or failure. Step identifiers match exactly; status words match
// case-insensitively.
type Vocabulary struct {
	Extract  string
	Enrich   string
	Validate string

	Success []string
	Failure []string
}

// DefaultVocabulary returns the vocabulary of the schema-analysis pipeline.
func DefaultVocabulary() Vocabulary {
	return Vocabulary{
		Extract:  StepExtract,
		Enrich:   StepEnrich,
		Validate: StepValidate,
		Success:  []string{StatusPassed, StatusSuccess},
		Failure:  []string{StatusFailed},
	}
}

// Kind classifies step. Unknown identifiers are informational.
func (v Vocabulary) Kind(step string) StepKind {
	switch step {
	case "":
		return KindInfo
	case v.Extract:
		return KindExtract
	case v.Enrich:
		return KindEnrich
	case v.Validate:
		return KindValidate
	default:
		return KindInfo
	}
}

// IsSuccess reports whether status indicates success.
func (v Vocabulary) IsSuccess(status string) bool {
	return matchAny(v.Success, status)
}

// IsFailure reports whether status indicates failure.
func (v Vocabulary) IsFailure(status string) bool {
	return matchAny(v.Failure, status)
}

func matchAny(words []string, status string) bool {
	for _, w := range words {
		if strings.EqualFold(w, status) {
			return true
		}
	}
	return false
}
