// Package evaluate scores a documentation candidate against a fixed set of
// quality criteria and aggregates the results.
package evaluate

import (
	"fmt"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// Criterion is one quality dimension. For Inverted criteria the scorer rates
// badness (0 = clean) and the gate stores 10 minus the normalized value.
type Criterion struct {
	Key      string
	Criteria string
	Steps    []string
	Inverted bool
}

// Name is the human-readable display name, e.g. "Answer Relevancy".
func (c Criterion) Name() string {
	return DisplayName(c.Key)
}

// DisplayName converts a criterion key such as "task_completion" into
// "Task Completion".
func DisplayName(key string) string {
	// A Caser holds state and must not be shared across goroutines.
	return cases.Title(language.English).String(strings.ReplaceAll(key, "_", " "))
}

// Key converts a display name into its criterion key.
func Key(name string) string {
	return strings.ReplaceAll(strings.ToLower(strings.TrimSpace(name)), " ", "_")
}

var builtin = []Criterion{
	{
		Key: "faithfulness",
		Criteria: "Evaluate whether the actual output is faithful to the provided context. " +
			"Check if all claims in the output are supported by the context. " +
			"Penalize any information that contradicts or goes beyond the context.",
		Steps: []string{
			"Identify all factual claims in the actual output",
			"Verify each claim against the provided context",
			"Flag any contradictions or unsupported additions",
			"Score based on proportion of claims supported by context",
		},
	},
	{
		Key: "toxicity",
		Criteria: "Evaluate the safety and professionalism of the actual output. " +
			"This is technical documentation, so it should be completely safe. " +
			"Score LOW (0-2) for clean, professional content and HIGH (7-10) only for harmful content.",
		Steps: []string{
			"Is this technical documentation? If yes, start with score 0",
			"Check for any hate speech, harassment, or offensive language",
			"Check for harmful instructions or leaked credentials",
			"If completely safe and professional: score 0-1",
			"If mild issues found: score 2-4",
			"If clearly toxic or harmful: score 7-10",
		},
		Inverted: true,
	},
	{
		Key: "hallucination",
		Criteria: "Detect any fabricated, invented, or hallucinated information in the actual output " +
			"that is not supported by the provided context, including non-existent code or API references.",
		Steps: []string{
			"Compare actual output claims against the provided context",
			"Identify any information not present in context",
			"Verify technical details (APIs, versions, syntax) against context",
			"Flag invented or fabricated information",
		},
		Inverted: true,
	},
	{
		Key: "answer_relevancy",
		Criteria: "Evaluate how relevant the actual output is to the input task, using the context as reference. " +
			"The output should address the task requirements described in the context.",
		Steps: []string{
			"Read the input task and the context describing requirements",
			"Check if the actual output addresses the task",
			"Score higher if the output covers the topics mentioned in context",
		},
	},
	{
		Key: "task_completion",
		Criteria: "Evaluate how completely the actual output fulfills the task described in the input, " +
			"using the context as the list of requirements.",
		Steps: []string{
			"Read the context to identify required deliverables",
			"Check if each required section from context is present in the output",
			"Score based on how many requirements from context are fulfilled",
		},
	},
	{
		Key: "execution_efficiency",
		Criteria: "Evaluate whether the actual output is well-structured and concise relative to the requirements " +
			"in the context. Efficient outputs cover all required topics without excessive repetition or filler.",
		Steps: []string{
			"Check if the output covers the requirements listed in context",
			"Check if the output avoids unnecessary repetition",
			"Score higher if the output is well-organized and information-dense",
		},
	},
}

// All returns the built-in criteria in display order.
func All() []Criterion {
	out := make([]Criterion, len(builtin))
	copy(out, builtin)
	return out
}

// Select returns the built-in criteria named by keys, in the given order.
// An empty list selects all of them.
func Select(keys []string) ([]Criterion, error) {
	if len(keys) == 0 {
		return All(), nil
	}
	out := make([]Criterion, 0, len(keys))
	for _, k := range keys {
		c, ok := lookup(Key(k))
		if !ok {
			return nil, fmt.Errorf("unknown criterion %q", k)
		}
		out = append(out, c)
	}
	return out, nil
}

func lookup(key string) (Criterion, bool) {
	for _, c := range builtin {
		if c.Key == key {
			return c, true
		}
	}
	return Criterion{}, false
}
