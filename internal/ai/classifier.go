// Package ai grades free-text scam reports into spam-signal severities
// using an LLM behind an OpenAI-compatible API. The control API uses it
// when a reporter supplies text but no severity.
package ai

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/sirupsen/logrus"
	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/openai"

	"github.com/hamza-farooq/solsniper/internal/sniper"
)

// ClassifierConfig holds configuration for the signal classifier.
type ClassifierConfig struct {
	// OpenRouter / LLM settings.
	OpenRouterAPIKey string
	// Model name as understood by OpenRouter, e.g. "openai/gpt-4.1-mini".
	Model string

	Logger *logrus.Logger
}

// Classifier turns a raw report into a severity and a short reason.
type Classifier struct {
	llm    llms.Model
	logger *logrus.Logger
}

func NewClassifier(cfg ClassifierConfig) (*Classifier, error) {
	if cfg.Logger == nil {
		cfg.Logger = logrus.New()
	}
	if cfg.OpenRouterAPIKey == "" {
		return nil, fmt.Errorf("OPENROUTER_API_KEY is required")
	}
	if cfg.Model == "" {
		cfg.Model = "openai/gpt-4.1-mini"
	}

	llm, err := openai.New(
		openai.WithToken(cfg.OpenRouterAPIKey),
		openai.WithBaseURL("https://openrouter.ai/api/v1"),
		openai.WithModel(cfg.Model),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create OpenRouter LLM: %w", err)
	}

	cfg.Logger.WithField("model", cfg.Model).Info("initialized signal classifier")
	return &Classifier{llm: llm, logger: cfg.Logger}, nil
}

const classifyPrompt = `
You grade scam reports about newly launched Solana tokens.

Given a report, answer with a single JSON object and nothing else:
{"severity": "low" | "medium" | "high", "reason": "<one short sentence>"}

Grading rules:
- "high": credible evidence of an imminent rug pull or active drain
  (mint authority abuse, LP removal in progress, deployer dumping).
- "medium": suspicious but unconfirmed (copied socials, anonymous team,
  concentrated holders).
- "low": vague complaints, price whining, or unverifiable claims.

Report:
%s
`

// Classify grades one report. On any LLM or parse failure the report is
// graded low: a broken classifier must never be able to fire the signal
// exit on its own.
func (c *Classifier) Classify(ctx context.Context, report string) (sniper.Severity, string) {
	resp, err := llms.GenerateFromSinglePrompt(
		ctx,
		c.llm,
		fmt.Sprintf(classifyPrompt, report),
		llms.WithMaxTokens(128),
	)
	if err != nil {
		c.logger.WithError(err).Warn("classification failed, defaulting to low")
		return sniper.SeverityLow, "unclassified report"
	}

	var out struct {
		Severity string `json:"severity"`
		Reason   string `json:"reason"`
	}
	if err := json.Unmarshal([]byte(stripFences(resp)), &out); err != nil {
		c.logger.WithError(err).WithField("response", resp).Warn("bad classifier output, defaulting to low")
		return sniper.SeverityLow, "unclassified report"
	}

	sev := sniper.Severity(strings.ToLower(strings.TrimSpace(out.Severity)))
	switch sev {
	case sniper.SeverityLow, sniper.SeverityMedium, sniper.SeverityHigh:
	default:
		sev = sniper.SeverityLow
	}
	if out.Reason == "" {
		out.Reason = "unclassified report"
	}

	c.logger.WithFields(logrus.Fields{
		"severity": string(sev),
		"reason":   out.Reason,
	}).Debug("classified report")
	return sev, out.Reason
}

// stripFences removes markdown code fences some models wrap JSON in.
func stripFences(s string) string {
	s = strings.TrimSpace(s)
	s = strings.TrimPrefix(s, "```json")
	s = strings.TrimPrefix(s, "```")
	s = strings.TrimSuffix(s, "```")
	return strings.TrimSpace(s)
}
