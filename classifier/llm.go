package classifier

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"pa-intake/config"
	"pa-intake/llmclient"
	"pa-intake/normalize"

	"go.uber.org/zap"
)

// LLMClassifier delegates matching and extraction to an OpenAI-compatible
// chat endpoint. Any transport or parse failure degrades to a no-match /
// empty-fields result; the pipeline above never sees an error from this
// collaborator.
type LLMClassifier struct {
	cfg    *config.Config
	client *llmclient.Client
	logger *zap.Logger
}

func NewLLMClassifier(cfg *config.Config, logger *zap.Logger) *LLMClassifier {
	return &LLMClassifier{
		cfg:    cfg,
		client: llmclient.New(cfg, logger),
		logger: logger,
	}
}

const matchSystemPrompt = `You map a caller's answer to a clinical questionnaire option.
Reply with strict JSON only, no prose:
{"matched": bool, "option": string, "confidence": number, "possible_matches": [string]}
Set matched=true with the single option only when the answer clearly means exactly one option.
If the answer plausibly means several options, set matched=false and list them in possible_matches.
If the answer matches nothing, set matched=false with an empty possible_matches.
Never invent options that are not in the list.`

type semanticMatchPayload struct {
	Matched         bool     `json:"matched"`
	Option          string   `json:"option"`
	Confidence      float64  `json:"confidence"`
	PossibleMatches []string `json:"possible_matches"`
}

func (c *LLMClassifier) MatchOption(ctx context.Context, questionText string, options []string, rawAnswer string) normalize.SemanticMatch {
	user := fmt.Sprintf("Question: %s\nOptions: %s\nAnswer: %s",
		questionText, strings.Join(options, " | "), rawAnswer)

	temperature := 0.0
	reply, err := c.client.Chat(ctx, c.cfg.MatcherLLMHost, []llmclient.Message{
		{Role: "system", Content: matchSystemPrompt},
		{Role: "user", Content: user},
	}, &temperature)
	if err != nil {
		c.logger.Warn("semantic match call failed, treating as no match", zap.Error(err))
		return normalize.SemanticMatch{}
	}

	var payload semanticMatchPayload
	if err := json.Unmarshal([]byte(stripCodeFence(reply)), &payload); err != nil {
		c.logger.Warn("semantic match reply was not valid JSON, treating as no match",
			zap.Error(err), zap.String("reply", reply))
		return normalize.SemanticMatch{}
	}
	return normalize.SemanticMatch{
		Matched:         payload.Matched,
		Option:          payload.Option,
		Confidence:      payload.Confidence,
		PossibleMatches: payload.PossibleMatches,
	}
}

const extractSystemPrompt = `You extract prior-authorization intake fields from free text.
Reply with strict JSON only, no prose:
{"member_name": string, "date_of_birth": string, "drug_name": string}
Leave a field empty when the text does not state it. Never guess.`

func (c *LLMClassifier) ExtractIntake(ctx context.Context, text string) IntakeFields {
	temperature := 0.0
	reply, err := c.client.Chat(ctx, c.cfg.MatcherLLMHost, []llmclient.Message{
		{Role: "system", Content: extractSystemPrompt},
		{Role: "user", Content: text},
	}, &temperature)
	if err != nil {
		c.logger.Warn("intake extraction call failed", zap.Error(err))
		return IntakeFields{}
	}

	var fields IntakeFields
	if err := json.Unmarshal([]byte(stripCodeFence(reply)), &fields); err != nil {
		c.logger.Warn("intake extraction reply was not valid JSON",
			zap.Error(err), zap.String("reply", reply))
		return IntakeFields{}
	}
	return fields
}

// stripCodeFence tolerates models that wrap JSON in markdown fences.
func stripCodeFence(s string) string {
	s = strings.TrimSpace(s)
	if strings.HasPrefix(s, "```") {
		s = strings.TrimPrefix(s, "```json")
		s = strings.TrimPrefix(s, "```")
		if idx := strings.LastIndex(s, "```"); idx >= 0 {
			s = s[:idx]
		}
	}
	return strings.TrimSpace(s)
}
