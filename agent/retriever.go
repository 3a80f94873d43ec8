package agent

import (
	"context"
	"fmt"
	"math"
	"regexp"
	"strconv"

	"github.com/Mohamed711/customer-support-agent/core"
	"github.com/Mohamed711/customer-support-agent/gateway"
	"github.com/Mohamed711/customer-support-agent/model"
)

// RetrieverTools are the tools bound to the retriever.
var RetrieverTools = []string{gateway.SearchKnowledgeBase}

// Band is a qualitative reading of a retrieval confidence.
type Band string

// Confidence bands.
const (
	BandFull       Band = "full"
	BandPartial    Band = "partial"
	BandTangential Band = "tangential"
	BandNone       Band = "none"
)

// BandFor maps a confidence to its band. Lower bounds are inclusive.
func BandFor(confidence float64) Band {
	switch {
	case confidence >= 0.80:
		return BandFull
	case confidence >= 0.60:
		return BandPartial
	case confidence >= 0.40:
		return BandTangential
	default:
		return BandNone
	}
}

// ClampConfidence restricts c to [0, 1]. NaN becomes 0.
func ClampConfidence(c float64) float64 {
	switch {
	case math.IsNaN(c), c < 0:
		return 0
	case c > 1:
		return 1
	}
	return c
}

// RetrievedArticle is one article judged relevant by the retriever.
type RetrievedArticle struct {
	Title     string `json:"title"`
	Summary   string `json:"summary"`
	Relevance string `json:"relevance"`
}

// RetrievalResult is the knowledge coverage assessment for one topic segment.
type RetrievalResult struct {
	Confidence    float64            `json:"confidence"`
	ArticlesFound int                `json:"articles_found"`
	Articles      []RetrievedArticle `json:"retrieved_articles"`
}

// Band returns the confidence band of r.
func (r RetrievalResult) Band() Band { return BandFor(r.Confidence) }

// Marker renders the transcript line announcing the result.
func (r RetrievalResult) Marker() string {
	return fmt.Sprintf("RETRIEVAL_RESULT: confidence=%.2f, articles_found=%d", r.Confidence, r.ArticlesFound)
}

var markerRe = regexp.MustCompile(`^RETRIEVAL_RESULT: confidence=([0-9]*\.?[0-9]+), articles_found=(\d+)$`)

// ParseRetrievalMarker reads a marker line back. Articles are not carried by
// the marker and stay empty.
func ParseRetrievalMarker(text string) (RetrievalResult, bool) {
	m := markerRe.FindStringSubmatch(text)
	if m == nil {
		return RetrievalResult{}, false
	}
	conf, err := strconv.ParseFloat(m[1], 64)
	if err != nil {
		return RetrievalResult{}, false
	}
	n, err := strconv.Atoi(m[2])
	if err != nil {
		return RetrievalResult{}, false
	}
	return RetrievalResult{Confidence: ClampConfidence(conf), ArticlesFound: n}, true
}

// LastRetrieval finds the most recent marker in a transcript.
func LastRetrieval(t *core.Transcript) (RetrievalResult, bool) {
	msgs := t.Messages()
	for i := len(msgs) - 1; i >= 0; i-- {
		if msgs[i].Role != core.RoleAssistant {
			continue
		}
		if r, ok := ParseRetrievalMarker(msgs[i].Text()); ok {
			return r, true
		}
	}
	return RetrievalResult{}, false
}

// RetrievalFormat is the structured output schema of the retriever.
func RetrievalFormat() *model.ResponseFormat {
	return &model.ResponseFormat{
		Name:        "retrieval_result",
		Description: "Knowledge base coverage assessment",
		Schema: map[string]any{
			"type": "object",
			"properties": map[string]any{
				"confidence":     map[string]any{"type": "number", "description": "0.8-1.0 full, 0.6-0.79 partial, 0.4-0.59 tangential, below 0.4 none"},
				"articles_found": map[string]any{"type": "integer", "description": "Number of relevant articles"},
				"retrieved_articles": map[string]any{
					"type": "array",
					"items": map[string]any{
						"type": "object",
						"properties": map[string]any{
							"title":     map[string]any{"type": "string"},
							"summary":   map[string]any{"type": "string"},
							"relevance": map[string]any{"type": "string"},
						},
						"required": []string{"title", "summary", "relevance"},
					},
				},
			},
			"required": []string{"confidence", "articles_found"},
		},
	}
}

// RetrieverOptions configure a Retriever.
type RetrieverOptions struct {
	Prompt        string
	ExtractPrompt string
}

// Retriever scores how well the knowledge base covers the current topic.
type Retriever struct {
	specialist
	extract Instruction
}

// NewRetriever binds the retriever tools from src.
func NewRetriever(rt *Runtime, src ToolSource, optFns ...func(o *RetrieverOptions)) (*Retriever, error) {
	opts := RetrieverOptions{}
	for _, fn := range optFns {
		fn(&opts)
	}
	base, err := newSpecialist("retriever", rt, src, RetrieverTools, instructionOr(opts.Prompt, DefaultRetrieverPrompt))
	if err != nil {
		return nil, err
	}
	return &Retriever{specialist: base, extract: instructionOr(opts.ExtractPrompt, DefaultRetrieverExtractPrompt)}, nil
}

// Retrieve runs the search loop, extracts the assessment and appends the
// retrieval marker to the transcript.
func (r *Retriever) Retrieve(ctx context.Context, task Task) (*RetrievalResult, error) {
	inv, err := r.invocation(task)
	if err != nil {
		return nil, err
	}
	extract, err := r.extract.Resolve(task.state())
	if err != nil {
		return nil, fmt.Errorf("agent %s: render instructions: %w", r.name, err)
	}

	var res RetrievalResult
	inv.Policy = PolicyExtract
	inv.ExtractInstructions = extract
	inv.ResponseFormat = RetrievalFormat()
	inv.Into = &res

	if _, err := r.runtime.Run(ctx, inv); err != nil {
		return nil, err
	}
	res.Confidence = ClampConfidence(res.Confidence)
	if res.ArticlesFound < 0 {
		res.ArticlesFound = 0
	}
	task.Transcript.Append(core.NewTextContent(core.RoleAssistant, res.Marker()))
	return &res, nil
}
