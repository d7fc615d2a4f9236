// Package classifier provides the text-understanding capability the engine
// consumes: semantic matching of free-form answers against an option list,
// and best-effort extraction of intake fields from free text. Two
// interchangeable implementations exist, rule-based and LLM-backed, selected
// by configuration; the pipeline never knows which one it is talking to.
package classifier

import (
	"context"

	"pa-intake/config"
	"pa-intake/normalize"

	"go.uber.org/zap"
)

// IntakeFields is the best-effort result of extracting identity fields from
// free text. Unpopulated fields stay empty and are simply re-requested.
type IntakeFields struct {
	MemberName  string `json:"member_name,omitempty"`
	DateOfBirth string `json:"date_of_birth,omitempty"`
	DrugName    string `json:"drug_name,omitempty"`
}

// TextClassifier is the single capability interface over both collaborators.
type TextClassifier interface {
	normalize.SemanticMatcher
	ExtractIntake(ctx context.Context, text string) IntakeFields
}

// New selects an implementation from configuration. Unknown values fall back
// to the rule-based classifier so the engine always has a working tier.
func New(cfg *config.Config, logger *zap.Logger) TextClassifier {
	switch cfg.SemanticMatcher {
	case "llm":
		return NewLLMClassifier(cfg, logger)
	case "off":
		return nil
	default:
		return NewRuleClassifier(logger)
	}
}
