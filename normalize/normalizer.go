package normalize

import (
	"context"
	"fmt"
	"strings"

	"pa-intake/config"
	"pa-intake/flow"
	"pa-intake/textmatch"

	"go.uber.org/zap"
)

// Normalizer runs the tiered answer-matching pipeline. Tiers run in order and
// each is consulted only when the previous one was inconclusive:
// triviality gate, type-specific canonical matching, fuzzy matching
// (multiple choice only), then the optional external semantic matcher.
type Normalizer struct {
	cfg     *config.Config
	logger  *zap.Logger
	matcher SemanticMatcher // nil disables the semantic tier
}

func New(cfg *config.Config, logger *zap.Logger, matcher SemanticMatcher) *Normalizer {
	return &Normalizer{
		cfg:     cfg,
		logger:  logger,
		matcher: matcher,
	}
}

// Normalize resolves rawAnswer against the node's answer domain.
func (n *Normalizer) Normalize(ctx context.Context, rawAnswer string, node *flow.QuestionNode) MatchResult {
	trimmed := textmatch.Normalize(rawAnswer)

	// Triviality gate, independent of node type.
	if len(trimmed) < 2 {
		return clarify("the answer is too short; please respond with a bit more detail")
	}

	switch node.Type {
	case flow.NodeYesNo:
		return n.normalizeYesNo(trimmed)
	case flow.NodeNumeric:
		return n.normalizeNumeric(trimmed, node)
	case flow.NodeText:
		return n.normalizeText(rawAnswer, node)
	case flow.NodeMultipleChoice:
		return n.normalizeChoice(ctx, rawAnswer, trimmed, node)
	}
	return clarify(fmt.Sprintf("question %s has an unsupported type", node.ID))
}

func (n *Normalizer) normalizeChoice(ctx context.Context, rawAnswer, trimmed string, node *flow.QuestionNode) MatchResult {
	// Tier 2: case-insensitive exact match against the option list.
	for _, opt := range node.Options {
		if textmatch.Normalize(opt) == trimmed {
			return accepted(opt)
		}
	}

	// Tier 3: fuzzy matching. Containment first, similarity second.
	if res, done := n.fuzzyChoice(trimmed, node); done {
		return res
	}

	// Tier 4: external semantic matcher, when configured.
	if n.matcher != nil {
		if res, done := n.semanticChoice(ctx, rawAnswer, node); done {
			return res
		}
	}

	return clarify(fmt.Sprintf("please choose one of: %s", strings.Join(node.Options, ", ")))
}

// fuzzyChoice implements the local fuzzy tier. The bool result reports
// whether the tier was conclusive.
func (n *Normalizer) fuzzyChoice(trimmed string, node *flow.QuestionNode) (MatchResult, bool) {
	// Containment: the option text contains the answer, or vice versa.
	var contained []Candidate
	for _, opt := range node.Options {
		lowered := textmatch.Normalize(opt)
		if strings.Contains(lowered, trimmed) || strings.Contains(trimmed, lowered) {
			contained = append(contained, Candidate{
				Option:     opt,
				Confidence: textmatch.Similarity(trimmed, lowered),
			})
		}
	}
	if len(contained) == 1 {
		return accepted(contained[0].Option), true
	}
	if len(contained) > 1 {
		return clarify(ambiguousReason(contained), contained...), true
	}

	// Similarity against every option.
	var scored []Candidate
	for _, opt := range node.Options {
		sim := textmatch.Similarity(trimmed, textmatch.Normalize(opt))
		if sim >= n.cfg.FuzzyMatchThreshold {
			scored = append(scored, Candidate{Option: opt, Confidence: sim})
		}
	}
	if len(scored) == 1 {
		return accepted(scored[0].Option), true
	}
	if len(scored) > 1 {
		return clarify(ambiguousReason(scored), scored...), true
	}
	return MatchResult{}, false
}

// semanticChoice consults the external matcher. Failures and non-answers are
// inconclusive, never errors.
func (n *Normalizer) semanticChoice(ctx context.Context, rawAnswer string, node *flow.QuestionNode) (MatchResult, bool) {
	timeout := n.cfg.LLMRequestTimeout
	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	match := n.matcher.MatchOption(ctx, node.Text, node.Options, rawAnswer)

	if match.Matched {
		if opt, ok := findOption(node.Options, match.Option); ok {
			n.logger.Debug("semantic tier matched answer",
				zap.String("node", node.ID),
				zap.String("option", opt),
				zap.Float64("confidence", match.Confidence))
			return accepted(opt), true
		}
		// Matcher invented an option outside the domain; treat as no match.
		n.logger.Warn("semantic matcher returned unknown option",
			zap.String("node", node.ID),
			zap.String("option", match.Option))
		return MatchResult{}, false
	}

	var candidates []Candidate
	for _, possible := range match.PossibleMatches {
		if opt, ok := findOption(node.Options, possible); ok {
			candidates = append(candidates, Candidate{Option: opt, Confidence: match.Confidence})
		}
	}
	// Same single-vs-multiple rule as the fuzzy tier.
	if len(candidates) == 1 {
		return accepted(candidates[0].Option), true
	}
	if len(candidates) > 1 {
		return clarify(ambiguousReason(candidates), candidates...), true
	}
	return MatchResult{}, false
}

func findOption(options []string, value string) (string, bool) {
	want := textmatch.Normalize(value)
	for _, opt := range options {
		if textmatch.Normalize(opt) == want {
			return opt, true
		}
	}
	return "", false
}

func ambiguousReason(candidates []Candidate) string {
	names := make([]string, len(candidates))
	for i, c := range candidates {
		names[i] = c.Option
	}
	return fmt.Sprintf("the answer could mean more than one option; did you mean %s?", strings.Join(names, " or "))
}
