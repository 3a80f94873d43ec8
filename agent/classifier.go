package agent

import (
	"context"
	"fmt"
	"slices"

	"github.com/Mohamed711/customer-support-agent/core"
	"github.com/Mohamed711/customer-support-agent/gateway"
	"github.com/Mohamed711/customer-support-agent/model"
)

// Classification labels.
var (
	IssueTypes = []string{"login", "billing", "reservation", "subscription", "account", "general"}
	Urgencies  = []string{"high", "medium", "low"}
	Sentiments = []string{"frustrated", "negative", "neutral", "positive"}
)

// Urgency levels.
const (
	UrgencyHigh   = "high"
	UrgencyMedium = "medium"
	UrgencyLow    = "low"
)

// ClassifierTools are the tools bound to the classifier.
var ClassifierTools = []string{gateway.GetTicketInfo, gateway.UpdateTicketStatus}

// ClassificationResult is the label set produced for one topic segment.
type ClassificationResult struct {
	IssueType string `json:"issue_type"`
	Urgency   string `json:"urgency"`
	Sentiment string `json:"sentiment"`
	Summary   string `json:"summary"`
}

// Validate checks every label against its enum.
func (c ClassificationResult) Validate() error {
	switch {
	case !slices.Contains(IssueTypes, c.IssueType):
		return fmt.Errorf("%w: issue_type %q", model.ErrMalformedOutput, c.IssueType)
	case !slices.Contains(Urgencies, c.Urgency):
		return fmt.Errorf("%w: urgency %q", model.ErrMalformedOutput, c.Urgency)
	case !slices.Contains(Sentiments, c.Sentiment):
		return fmt.Errorf("%w: sentiment %q", model.ErrMalformedOutput, c.Sentiment)
	}
	return nil
}

// CanonicalSummary renders the one-line classification summary.
func (c ClassificationResult) CanonicalSummary() string {
	return fmt.Sprintf("CLASSIFIED: issue_type=%s, urgency=%s, sentiment=%s", c.IssueType, c.Urgency, c.Sentiment)
}

// ClassificationFormat is the structured output schema of the classifier.
func ClassificationFormat() *model.ResponseFormat {
	return &model.ResponseFormat{
		Name:        "classification",
		Description: "Support ticket classification",
		Schema: map[string]any{
			"type": "object",
			"properties": map[string]any{
				"issue_type": map[string]any{"type": "string", "enum": IssueTypes, "description": "Primary category of the issue"},
				"urgency":    map[string]any{"type": "string", "enum": Urgencies, "description": "high=blocked or payment failure, medium=degraded, low=informational"},
				"sentiment":  map[string]any{"type": "string", "enum": Sentiments, "description": "Customer sentiment"},
				"summary":    map[string]any{"type": "string", "description": "CLASSIFIED: issue_type=<type>, urgency=<urgency>, sentiment=<sentiment>"},
			},
			"required": []string{"issue_type", "urgency", "sentiment"},
		},
	}
}

// ClassifierOptions configure a Classifier.
type ClassifierOptions struct {
	Prompt        string
	ExtractPrompt string
}

// Classifier labels the current topic of a thread.
type Classifier struct {
	specialist
	extract Instruction
}

// NewClassifier binds the classifier tools from src.
func NewClassifier(rt *Runtime, src ToolSource, optFns ...func(o *ClassifierOptions)) (*Classifier, error) {
	opts := ClassifierOptions{}
	for _, fn := range optFns {
		fn(&opts)
	}
	base, err := newSpecialist("classifier", rt, src, ClassifierTools, instructionOr(opts.Prompt, DefaultClassifierPrompt))
	if err != nil {
		return nil, err
	}
	return &Classifier{specialist: base, extract: instructionOr(opts.ExtractPrompt, DefaultClassifierExtractPrompt)}, nil
}

// Classify runs the tool loop, then extracts and validates the labels. The
// summary is normalized to the canonical format.
func (c *Classifier) Classify(ctx context.Context, task Task) (*ClassificationResult, error) {
	inv, err := c.invocation(task)
	if err != nil {
		return nil, err
	}
	extract, err := c.extract.Resolve(task.state())
	if err != nil {
		return nil, fmt.Errorf("agent %s: render instructions: %w", c.name, err)
	}

	var res ClassificationResult
	inv.Policy = PolicyExtract
	inv.ExtractInstructions = extract
	inv.ResponseFormat = ClassificationFormat()
	inv.Into = &res

	if _, err := c.runtime.Run(ctx, inv); err != nil {
		return nil, err
	}
	if err := res.Validate(); err != nil {
		return nil, core.NewModelError(c.name, err)
	}
	res.Summary = res.CanonicalSummary()
	return &res, nil
}
