// Package normalize converts raw natural-language answers into canonical
// values for a question node, or into a clarification request. Ambiguity is
// never resolved by guessing: two or more plausible interpretations always
// surface as a clarification naming the candidates.
package normalize

import "context"

// Candidate is one plausible interpretation of an ambiguous answer.
type Candidate struct {
	Option     string  `json:"option"`
	Confidence float64 `json:"confidence"`
}

// MatchResult is the outcome of normalizing one raw answer. It is transient:
// produced and consumed within a single answer-processing call.
type MatchResult struct {
	Canonical           string      `json:"canonical,omitempty"`
	NeedsClarification  bool        `json:"needs_clarification"`
	ClarificationReason string      `json:"clarification_reason,omitempty"`
	Candidates          []Candidate `json:"candidates,omitempty"`
}

func accepted(canonical string) MatchResult {
	return MatchResult{Canonical: canonical}
}

func clarify(reason string, candidates ...Candidate) MatchResult {
	return MatchResult{
		NeedsClarification:  true,
		ClarificationReason: reason,
		Candidates:          candidates,
	}
}

// SemanticMatch is the answer of the external semantic-matching collaborator.
type SemanticMatch struct {
	Matched         bool
	Option          string
	Confidence      float64
	PossibleMatches []string
}

// SemanticMatcher is the external semantic tier. Implementations must swallow
// transport and parse failures into a zero SemanticMatch; they never error
// into the pipeline.
type SemanticMatcher interface {
	MatchOption(ctx context.Context, questionText string, options []string, rawAnswer string) SemanticMatch
}
