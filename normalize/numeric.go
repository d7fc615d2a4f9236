package normalize

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"pa-intake/flow"
)

// First decimal or integer token in the answer, optional sign.
var numberPattern = regexp.MustCompile(`[-+]?\d+(\.\d+)?`)

// normalizeNumeric extracts the first numeric token from the answer and
// enforces the node's declared range. Out-of-range values never advance
// traversal; the clarification names the valid range.
func (n *Normalizer) normalizeNumeric(trimmed string, node *flow.QuestionNode) MatchResult {
	token := numberPattern.FindString(trimmed)
	if token == "" {
		return clarify("please provide a number")
	}
	value, err := strconv.ParseFloat(token, 64)
	if err != nil {
		return clarify("please provide a number")
	}

	if node.Validation != nil && node.Validation.Range != nil {
		r := node.Validation.Range
		if !r.Contains(value) {
			return clarify(fmt.Sprintf("the value must be between %s and %s",
				formatNumber(r.Min), formatNumber(r.Max)))
		}
	}
	return accepted(formatNumber(value))
}

// normalizeText accepts free text above the minimum length. Text answers are
// recorded verbatim (trimmed) and never branch.
func (n *Normalizer) normalizeText(rawAnswer string, node *flow.QuestionNode) MatchResult {
	trimmed := strings.TrimSpace(rawAnswer)

	minLen := n.cfg.TextAnswerMinLength
	if node.Validation != nil && node.Validation.MinLength > 0 {
		minLen = node.Validation.MinLength
	}
	if minLen <= 0 {
		minLen = 3
	}
	if len(trimmed) < minLen {
		return clarify(fmt.Sprintf("please provide at least %d characters", minLen))
	}
	return accepted(trimmed)
}

func formatNumber(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
