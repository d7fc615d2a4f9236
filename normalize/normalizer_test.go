package normalize

import (
	"context"
	"strings"
	"testing"
	"time"

	"pa-intake/config"
	"pa-intake/flow"

	"go.uber.org/zap"
)

func testNormalizer(matcher SemanticMatcher) *Normalizer {
	logger, _ := zap.NewDevelopment()
	cfg := &config.Config{
		FuzzyMatchThreshold: 0.70,
		TextAnswerMinLength: 3,
		LLMRequestTimeout:   2 * time.Second,
	}
	return New(cfg, logger, matcher)
}

func yesNoNode() *flow.QuestionNode {
	return &flow.QuestionNode{ID: "q", Text: "Has the member tried metformin?", Type: flow.NodeYesNo}
}

func diagnosisNode() *flow.QuestionNode {
	return &flow.QuestionNode{
		ID:      "diagnosis",
		Text:    "What is the member's primary diagnosis?",
		Type:    flow.NodeMultipleChoice,
		Options: []string{"Type 1 Diabetes", "Type 2 Diabetes", "Obesity", "Other"},
	}
}

func hba1cNode() *flow.QuestionNode {
	return &flow.QuestionNode{
		ID:         "hba1c",
		Text:       "What is the member's most recent HbA1c?",
		Type:       flow.NodeNumeric,
		Validation: &flow.Validation{Range: &flow.Range{Min: 6.5, Max: 15}},
	}
}

func TestTrivialityGate(t *testing.T) {
	n := testNormalizer(nil)
	for _, node := range []*flow.QuestionNode{yesNoNode(), diagnosisNode(), hba1cNode()} {
		for _, raw := range []string{"", " ", "y", "5"} {
			res := n.Normalize(context.Background(), raw, node)
			if !res.NeedsClarification {
				t.Errorf("node %s: %q passed the triviality gate", node.ID, raw)
			}
		}
	}
}

func TestNormalizeYesNo(t *testing.T) {
	n := testNormalizer(nil)

	tests := []struct {
		name        string
		raw         string
		want        string
		wantClarify bool
	}{
		{"exact_yes", "yes", "yes", false},
		{"exact_no", "no", "no", false},
		{"synonym_yep", "yep", "yes", false},
		{"synonym_nah", "nah", "no", false},
		{"uppercase", "YES", "yes", false},
		{"embedded_yes", "yeah, sure thing", "yes", false},
		{"embedded_no", "no, never tried it", "no", false},
		{"incorrect_is_no", "that is incorrect", "no", false},
		{"polarity_conflict", "yes but actually no", "", true},
		{"conflicting_synonyms", "sure, i mean nope", "", true},
		{"know_is_not_no", "i dont really understand", "", true},
		{"unrelated", "maybe later", "", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := n.Normalize(context.Background(), tt.raw, yesNoNode())
			if res.NeedsClarification != tt.wantClarify {
				t.Fatalf("Normalize(%q) clarification = %v, want %v (reason %q)",
					tt.raw, res.NeedsClarification, tt.wantClarify, res.ClarificationReason)
			}
			if !tt.wantClarify && res.Canonical != tt.want {
				t.Errorf("Normalize(%q) = %q, want %q", tt.raw, res.Canonical, tt.want)
			}
		})
	}
}

func TestNormalizeMultipleChoiceExact(t *testing.T) {
	n := testNormalizer(nil)

	tests := []struct {
		raw  string
		want string
	}{
		{"Type 2 Diabetes", "Type 2 Diabetes"},
		{"type 2 diabetes", "Type 2 Diabetes"},
		{"OBESITY", "Obesity"},
		{"  Other  ", "Other"},
	}
	for _, tt := range tests {
		res := n.Normalize(context.Background(), tt.raw, diagnosisNode())
		if res.NeedsClarification || res.Canonical != tt.want {
			t.Errorf("Normalize(%q) = %+v, want %q", tt.raw, res, tt.want)
		}
	}
}

func TestNormalizeMultipleChoiceAmbiguousContainment(t *testing.T) {
	n := testNormalizer(nil)

	res := n.Normalize(context.Background(), "diabetes", diagnosisNode())
	if !res.NeedsClarification {
		t.Fatalf("ambiguous answer was accepted as %q", res.Canonical)
	}
	if len(res.Candidates) != 2 {
		t.Fatalf("candidates = %+v, want both diabetes options", res.Candidates)
	}
	got := map[string]bool{}
	for _, c := range res.Candidates {
		got[c.Option] = true
	}
	if !got["Type 1 Diabetes"] || !got["Type 2 Diabetes"] {
		t.Errorf("candidates = %+v, want Type 1 and Type 2 Diabetes", res.Candidates)
	}
}

func TestNormalizeMultipleChoiceSingleContainment(t *testing.T) {
	n := testNormalizer(nil)

	res := n.Normalize(context.Background(), "type 2", diagnosisNode())
	if res.NeedsClarification || res.Canonical != "Type 2 Diabetes" {
		t.Errorf("Normalize(type 2) = %+v, want Type 2 Diabetes", res)
	}
}

func TestNormalizeMultipleChoiceFuzzySimilarity(t *testing.T) {
	n := testNormalizer(nil)

	// One typo away from "Obesity"; no containment match, similarity clears
	// the threshold for exactly one option.
	res := n.Normalize(context.Background(), "obesty", diagnosisNode())
	if res.NeedsClarification || res.Canonical != "Obesity" {
		t.Errorf("Normalize(obesty) = %+v, want Obesity", res)
	}
}

func TestNormalizeMultipleChoiceNoMatch(t *testing.T) {
	n := testNormalizer(nil)

	res := n.Normalize(context.Background(), "hypertension", diagnosisNode())
	if !res.NeedsClarification {
		t.Fatalf("unmatched answer accepted as %q", res.Canonical)
	}
	// Final clarification names the valid option set.
	for _, opt := range diagnosisNode().Options {
		if !strings.Contains(res.ClarificationReason, opt) {
			t.Errorf("clarification %q does not name option %q", res.ClarificationReason, opt)
		}
	}
}

func TestNormalizeNumeric(t *testing.T) {
	n := testNormalizer(nil)

	tests := []struct {
		name        string
		raw         string
		want        string
		wantClarify bool
	}{
		{"plain_value", "7.2", "7.2", false},
		{"embedded_value", "it was 8.5 last month", "8.5", false},
		{"integer", "11", "11", false},
		{"lower_bound", "6.5", "6.5", false},
		{"upper_bound", "15", "15", false},
		{"below_range", "5.0", "", true},
		{"above_range", "22", "", true},
		{"no_number", "pretty high", "", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := n.Normalize(context.Background(), tt.raw, hba1cNode())
			if res.NeedsClarification != tt.wantClarify {
				t.Fatalf("Normalize(%q) clarification = %v, want %v", tt.raw, res.NeedsClarification, tt.wantClarify)
			}
			if !tt.wantClarify && res.Canonical != tt.want {
				t.Errorf("Normalize(%q) = %q, want %q", tt.raw, res.Canonical, tt.want)
			}
		})
	}
}

func TestNumericOutOfRangeNamesTheRange(t *testing.T) {
	n := testNormalizer(nil)

	res := n.Normalize(context.Background(), "5.0", hba1cNode())
	if !res.NeedsClarification {
		t.Fatal("out-of-range value was accepted")
	}
	if !strings.Contains(res.ClarificationReason, "6.5") || !strings.Contains(res.ClarificationReason, "15") {
		t.Errorf("clarification %q does not name the range", res.ClarificationReason)
	}
}

func TestNormalizeText(t *testing.T) {
	n := testNormalizer(nil)
	node := &flow.QuestionNode{
		ID:         "notes",
		Text:       "Any additional notes?",
		Type:       flow.NodeText,
		Validation: &flow.Validation{MinLength: 5},
		Transitions: []flow.Transition{{Next: "done"}},
	}

	res := n.Normalize(context.Background(), "  member stable on current therapy  ", node)
	if res.NeedsClarification {
		t.Fatalf("valid text clarified: %q", res.ClarificationReason)
	}
	if res.Canonical != "member stable on current therapy" {
		t.Errorf("canonical = %q, want trimmed text", res.Canonical)
	}

	res = n.Normalize(context.Background(), "okay", node)
	if !res.NeedsClarification {
		t.Error("text below the node minimum length was accepted")
	}
}

// fakeMatcher is a scripted external semantic matcher.
type fakeMatcher struct {
	result SemanticMatch
	called bool
}

func (f *fakeMatcher) MatchOption(ctx context.Context, question string, options []string, raw string) SemanticMatch {
	f.called = true
	return f.result
}

func TestSemanticTierAcceptsSingleMatch(t *testing.T) {
	matcher := &fakeMatcher{result: SemanticMatch{Matched: true, Option: "Type 2 Diabetes", Confidence: 0.92}}
	n := testNormalizer(matcher)

	res := n.Normalize(context.Background(), "the sugar disease adults get", diagnosisNode())
	if !matcher.called {
		t.Fatal("semantic tier was not consulted")
	}
	if res.NeedsClarification || res.Canonical != "Type 2 Diabetes" {
		t.Errorf("result = %+v, want Type 2 Diabetes", res)
	}
}

func TestSemanticTierAmbiguityClarifies(t *testing.T) {
	matcher := &fakeMatcher{result: SemanticMatch{
		PossibleMatches: []string{"Type 1 Diabetes", "Type 2 Diabetes"},
		Confidence:      0.55,
	}}
	n := testNormalizer(matcher)

	res := n.Normalize(context.Background(), "blood sugar condition", diagnosisNode())
	if !res.NeedsClarification {
		t.Fatalf("ambiguous semantic result accepted as %q", res.Canonical)
	}
	if len(res.Candidates) != 2 {
		t.Errorf("candidates = %+v, want 2", res.Candidates)
	}
}

func TestSemanticTierUnknownOptionFallsThrough(t *testing.T) {
	matcher := &fakeMatcher{result: SemanticMatch{Matched: true, Option: "Prediabetes", Confidence: 0.9}}
	n := testNormalizer(matcher)

	res := n.Normalize(context.Background(), "elevated glucose", diagnosisNode())
	if !res.NeedsClarification {
		t.Errorf("out-of-domain semantic option accepted as %q", res.Canonical)
	}
}

func TestSemanticTierFailureClarifies(t *testing.T) {
	// A zero SemanticMatch models matcher failure; the pipeline must end in
	// a clarification rather than an error.
	matcher := &fakeMatcher{}
	n := testNormalizer(matcher)

	res := n.Normalize(context.Background(), "something unrelated entirely", diagnosisNode())
	if !res.NeedsClarification {
		t.Errorf("expected clarification, got %q", res.Canonical)
	}
}

func TestSemanticTierSkippedForNonChoiceNodes(t *testing.T) {
	matcher := &fakeMatcher{result: SemanticMatch{Matched: true, Option: "yes"}}
	n := testNormalizer(matcher)

	n.Normalize(context.Background(), "absolutely unclear", yesNoNode())
	if matcher.called {
		t.Error("semantic tier consulted for a yes/no node")
	}
}
