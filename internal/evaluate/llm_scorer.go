package evaluate

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"strings"
	"sync"

	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/santhosh-tekuri/jsonschema/v6"
	"golang.org/x/sync/errgroup"

	"github.com/jorge-barreto/docgen/internal/llm"
)

const maxCandidateBytes = 48 * 1024

const responseSchemaJSON = `{
  "type": "object",
  "required": ["score"],
  "properties": {
    "score": { "type": "number" },
    "reason": { "type": "string" }
  }
}`

var (
	responseSchema *jsonschema.Schema
	responseOnce   sync.Once
	responseErr    error
)

func compileResponseSchema() (*jsonschema.Schema, error) {
	responseOnce.Do(func() {
		doc, err := jsonschema.UnmarshalJSON(strings.NewReader(responseSchemaJSON))
		if err != nil {
			responseErr = fmt.Errorf("unmarshal score schema: %w", err)
			return
		}
		compiler := jsonschema.NewCompiler()
		if err := compiler.AddResource("score.schema.json", doc); err != nil {
			responseErr = fmt.Errorf("add score schema resource: %w", err)
			return
		}
		responseSchema, responseErr = compiler.Compile("score.schema.json")
	})
	return responseSchema, responseErr
}

// LLMScorer asks a model to grade each criterion, concurrently and with a
// bounded number of requests in flight. Successful grades are cached by
// criterion, context and candidate.
type LLMScorer struct {
	client      llm.Client
	criteria    []Criterion
	concurrency int
	cache       *lru.Cache[string, float64]
}

// NewLLMScorer returns a scorer for criteria backed by client.
func NewLLMScorer(client llm.Client, criteria []Criterion, concurrency, cacheSize int) (*LLMScorer, error) {
	if len(criteria) == 0 {
		criteria = All()
	}
	if concurrency <= 0 {
		concurrency = 1
	}
	if cacheSize <= 0 {
		cacheSize = 256
	}
	cache, err := lru.New[string, float64](cacheSize)
	if err != nil {
		return nil, err
	}
	if _, err := compileResponseSchema(); err != nil {
		return nil, err
	}
	return &LLMScorer{client: client, criteria: criteria, concurrency: concurrency, cache: cache}, nil
}

func (s *LLMScorer) Score(ctx context.Context, candidate, taskContext string) map[string]CriterionScore {
	results := make([]CriterionScore, len(s.criteria))

	var g errgroup.Group
	g.SetLimit(s.concurrency)
	for i, c := range s.criteria {
		g.Go(func() error {
			results[i] = s.scoreOne(ctx, c, candidate, taskContext)
			return nil
		})
	}
	_ = g.Wait()

	out := make(map[string]CriterionScore, len(s.criteria))
	for i, c := range s.criteria {
		out[c.Key] = results[i]
	}
	return out
}

func (s *LLMScorer) scoreOne(ctx context.Context, c Criterion, candidate, taskContext string) CriterionScore {
	key := cacheKey(c.Key, taskContext, candidate)
	if v, ok := s.cache.Get(key); ok {
		return CriterionScore{Value: v}
	}
	if err := ctx.Err(); err != nil {
		return CriterionScore{Err: err}
	}

	raw, err := s.client.GenerateJSON(ctx, buildScorePrompt(c, candidate, taskContext))
	if err != nil {
		return CriterionScore{Err: fmt.Errorf("%s: %w", c.Key, err)}
	}
	v, err := parseScore(raw)
	if err != nil {
		return CriterionScore{Err: fmt.Errorf("%s: %w", c.Key, err)}
	}
	s.cache.Add(key, v)
	return CriterionScore{Value: v}
}

func parseScore(raw json.RawMessage) (float64, error) {
	schema, err := compileResponseSchema()
	if err != nil {
		return 0, err
	}
	doc, err := jsonschema.UnmarshalJSON(bytes.NewReader(raw))
	if err != nil {
		return 0, fmt.Errorf("decoding score reply: %w", err)
	}
	if err := schema.Validate(doc); err != nil {
		return 0, fmt.Errorf("score reply: %w", err)
	}
	var reply struct {
		Score  float64 `json:"score"`
		Reason string  `json:"reason"`
	}
	if err := json.Unmarshal(raw, &reply); err != nil {
		return 0, fmt.Errorf("decoding score reply: %w", err)
	}
	return reply.Score, nil
}

func cacheKey(parts ...string) string {
	h := sha256.New()
	for _, p := range parts {
		h.Write([]byte(p))
		h.Write([]byte{0})
	}
	return hex.EncodeToString(h.Sum(nil))
}

func buildScorePrompt(c Criterion, candidate, taskContext string) string {
	if len(candidate) > maxCandidateBytes {
		candidate = candidate[:maxCandidateBytes] + "\n... (truncated)"
	}
	var buf strings.Builder
	buf.WriteString("You are grading generated technical documentation against a single criterion.\n\n")
	fmt.Fprintf(&buf, "## Criterion: %s\n\n%s\n\n", c.Name(), c.Criteria)
	buf.WriteString("## Evaluation steps\n\n")
	for i, step := range c.Steps {
		fmt.Fprintf(&buf, "%d. %s\n", i+1, step)
	}
	fmt.Fprintf(&buf, "\n## Context\n\n%s\n\n", taskContext)
	fmt.Fprintf(&buf, "## Actual output\n\n%s\n\n", candidate)
	buf.WriteString("Reply with JSON only, in the form {\"score\": <number from 0 to 10>, \"reason\": \"<one sentence>\"}.\n")
	return buf.String()
}
