package classifier

import (
	"context"
	"regexp"
	"strings"

	"pa-intake/normalize"
	"pa-intake/textmatch"

	"github.com/jdkato/prose/v2"
	"go.uber.org/zap"
)

// RuleClassifier is the dependency-free fallback implementation: keyword
// overlap for option matching, regex plus NER for intake extraction.
type RuleClassifier struct {
	logger *zap.Logger
}

func NewRuleClassifier(logger *zap.Logger) *RuleClassifier {
	return &RuleClassifier{logger: logger}
}

// Words carrying no signal for option matching.
var stopwords = map[string]bool{
	"a": true, "an": true, "and": true, "for": true, "has": true, "have": true,
	"in": true, "is": true, "it": true, "of": true, "or": true, "the": true,
	"to": true, "with": true,
}

var wordPattern = regexp.MustCompile(`[a-zA-Z0-9']+`)

// MatchOption scores every option by the fraction of its significant words
// found in the answer. One option above the bar matches; several are reported
// as possible matches for the caller to clarify; none is a no-match.
func (c *RuleClassifier) MatchOption(ctx context.Context, questionText string, options []string, rawAnswer string) normalize.SemanticMatch {
	answerWords := significantWords(rawAnswer)
	if len(answerWords) == 0 {
		return normalize.SemanticMatch{}
	}

	const bar = 0.5
	var qualified []string
	best := 0.0
	bestOption := ""
	for _, opt := range options {
		score := overlapScore(answerWords, significantWords(opt))
		if score >= bar {
			qualified = append(qualified, opt)
			if score > best {
				best = score
				bestOption = opt
			}
		}
	}

	switch len(qualified) {
	case 0:
		return normalize.SemanticMatch{}
	case 1:
		return normalize.SemanticMatch{Matched: true, Option: bestOption, Confidence: best}
	default:
		return normalize.SemanticMatch{Confidence: best, PossibleMatches: qualified}
	}
}

func significantWords(s string) map[string]bool {
	words := map[string]bool{}
	for _, w := range wordPattern.FindAllString(strings.ToLower(s), -1) {
		if !stopwords[w] {
			words[w] = true
		}
	}
	return words
}

func overlapScore(answer, option map[string]bool) float64 {
	if len(option) == 0 {
		return 0
	}
	matched := 0
	for w := range option {
		if answer[w] {
			matched++
		}
	}
	return float64(matched) / float64(len(option))
}

var (
	// Numeric dates: 03/14/1958, 3-14-1958, 1958-03-14.
	dobPattern = regexp.MustCompile(`\b(\d{4}-\d{1,2}-\d{1,2}|\d{1,2}[/-]\d{1,2}[/-]\d{4})\b`)

	// "requesting Ozempic", "taking humira", "for Wegovy".
	drugPattern = regexp.MustCompile(`(?i)\b(?:requesting|taking|prescribed|about|medication is|drug is|for)\s+([a-zA-Z][a-zA-Z-]+)`)

	// "name is Jane Doe", "member Jane Doe", "patient Jane Doe".
	namePattern = regexp.MustCompile(`(?:name is|member is|member|patient)\s+([A-Z][a-z]+(?:\s[A-Z][a-z]+)+)`)
)

// Words that drugPattern may capture but that are never medication names.
var drugNoise = map[string]bool{
	"the": true, "a": true, "an": true, "her": true, "his": true, "their": true,
	"my": true, "this": true, "that": true, "member": true, "patient": true,
}

// ExtractIntake pulls identity fields from free text. Person names come from
// NER with a pattern fallback; dates and drug mentions from patterns.
// Every field is best effort.
func (c *RuleClassifier) ExtractIntake(ctx context.Context, text string) IntakeFields {
	var fields IntakeFields

	if m := dobPattern.FindString(text); m != "" {
		fields.DateOfBirth = m
	}
	if m := drugPattern.FindStringSubmatch(text); m != nil && !drugNoise[strings.ToLower(m[1])] {
		fields.DrugName = textmatch.Normalize(m[1])
	}

	if doc, err := prose.NewDocument(text); err == nil {
		for _, ent := range doc.Entities() {
			if ent.Label == "PERSON" {
				fields.MemberName = ent.Text
				break
			}
		}
	} else {
		c.logger.Debug("NER unavailable for intake text", zap.Error(err))
	}
	if fields.MemberName == "" {
		if m := namePattern.FindStringSubmatch(text); m != nil {
			fields.MemberName = m[1]
		}
	}

	return fields
}
