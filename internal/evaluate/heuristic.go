package evaluate

import (
	"context"
	"fmt"
	"math"
	"regexp"
	"strings"

	"github.com/jorge-barreto/docgen/internal/sections"
)

// HeuristicScorer grades a candidate offline with deterministic text checks:
// required sections, placeholder content, uncertain language, unsafe words,
// leaked secrets and repetition.
type HeuristicScorer struct {
	criteria []Criterion
}

// NewHeuristicScorer returns a scorer for criteria. Nil selects all.
func NewHeuristicScorer(criteria []Criterion) *HeuristicScorer {
	if len(criteria) == 0 {
		criteria = All()
	}
	return &HeuristicScorer{criteria: criteria}
}

var required = []struct {
	section  string
	keywords []string
}{
	{sections.Readme, []string{"readme", "getting started"}},
	{sections.APIReference, []string{"api reference", "api"}},
	{sections.Architecture, []string{"architecture"}},
	{sections.Examples, []string{"example"}},
}

var (
	uncertainRe = regexp.MustCompile(`(?i)\b(probably|might|maybe|I think|seems to|appears to|possibly)\b`)
	todoRe      = regexp.MustCompile(`\bTODO\b`)
	endpointRe  = regexp.MustCompile(`(?i)\b(GET|POST|PUT|DELETE|PATCH)\s+/api/`)
	sourceRefRe = regexp.MustCompile(`(?i)\(source:`)
	unsafeRe    = regexp.MustCompile(`(?i)\b(stupid|idiot|dumb|crap|damn|shit|fuck\w*)\b`)
)

var secretPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)(api[_-]?key|apikey|secret|password|token|auth[_-]?token)\s*[:=]\s*["']?[a-zA-Z0-9_\-]{16,}`),
	regexp.MustCompile(`(?i)(sk[_-]?live|sk[_-]?test)[a-zA-Z0-9]{20,}`),
	regexp.MustCompile(`eyJ[a-zA-Z0-9]*\.eyJ[a-zA-Z0-9]*\.[a-zA-Z0-9_\-]*`),
	regexp.MustCompile(`AKIA[0-9A-Z]{16}`),
	regexp.MustCompile(`(?i)(mongodb(\+srv)?|postgres|postgresql|mysql|redis)://[^\s:@/]+:[^\s@/]+@`),
	regexp.MustCompile(`(?i)private[_-]?key\s*=\s*\S+`),
}

type facts struct {
	empty        bool
	present      int // required sections present
	complete     int // required sections present with real content
	placeholders int
	uncertain    int
	todos        int
	unsafe       int
	secrets      int
	unsourced    bool
	unbalanced   bool
	uniqueRatio  float64
}

func analyze(candidate string) facts {
	var f facts
	if strings.TrimSpace(candidate) == "" {
		f.empty = true
		return f
	}

	secs := sections.Parse(candidate)
	lower := strings.ToLower(candidate)
	for _, r := range required {
		if len(secs) > 0 {
			content, ok := secs[r.section]
			if !ok {
				continue
			}
			f.present++
			if sections.IsPlaceholder(r.section, content) {
				f.placeholders++
			} else {
				f.complete++
			}
			continue
		}
		for _, kw := range r.keywords {
			if strings.Contains(lower, kw) {
				f.present++
				f.complete++
				break
			}
		}
	}
	if len(secs) == 0 {
		f.placeholders = strings.Count(candidate, "Documentation was not generated for this section.")
		f.complete = max(0, f.complete-f.placeholders)
	}

	f.uncertain = len(uncertainRe.FindAllStringIndex(candidate, -1))
	f.todos = len(todoRe.FindAllStringIndex(candidate, -1))
	f.unsafe = len(unsafeRe.FindAllStringIndex(candidate, -1))
	for _, re := range secretPatterns {
		f.secrets += len(re.FindAllStringIndex(candidate, -1))
	}
	f.unsourced = endpointRe.MatchString(candidate) && !sourceRefRe.MatchString(candidate)
	f.unbalanced = strings.Count(candidate, "```")%2 != 0
	f.uniqueRatio = uniqueLineRatio(candidate)
	return f
}

// uniqueLineRatio is the share of distinct lines among non-trivial lines.
// Fence and separator lines are ignored since they legitimately repeat.
func uniqueLineRatio(text string) float64 {
	seen := make(map[string]bool)
	total := 0
	for _, line := range strings.Split(text, "\n") {
		l := strings.TrimSpace(line)
		if len(l) < 4 || strings.HasPrefix(l, "```") || strings.Trim(l, "-=|: ") == "" {
			continue
		}
		total++
		seen[l] = true
	}
	if total == 0 {
		return 1
	}
	return float64(len(seen)) / float64(total)
}

func clamp10(v float64) float64 {
	return math.Max(0, math.Min(10, v))
}

func (h *HeuristicScorer) Score(ctx context.Context, candidate, taskContext string) map[string]CriterionScore {
	f := analyze(candidate)
	n := float64(len(required))

	out := make(map[string]CriterionScore, len(h.criteria))
	for _, c := range h.criteria {
		if err := ctx.Err(); err != nil {
			out[c.Key] = CriterionScore{Err: err}
			continue
		}
		var v float64
		switch c.Key {
		case "faithfulness":
			if !f.empty {
				v = 10 - 0.5*float64(f.uncertain) - float64(f.placeholders) - 0.5*float64(f.todos)
			}
		case "toxicity":
			v = 2*float64(f.unsafe) + 3*float64(f.secrets)
		case "hallucination":
			v = 0.5 * float64(f.uncertain)
			if f.unsourced {
				v++
			}
		case "answer_relevancy":
			v = 10 * float64(f.present) / n
		case "task_completion":
			v = 10*float64(f.complete)/n - math.Min(2, 0.5*float64(f.todos))
		case "execution_efficiency":
			if !f.empty {
				v = 10 * f.uniqueRatio
				if f.unbalanced {
					v -= 2
				}
			}
		default:
			out[c.Key] = CriterionScore{Err: fmt.Errorf("heuristic scorer does not support %q", c.Key)}
			continue
		}
		out[c.Key] = CriterionScore{Value: clamp10(v)}
	}
	return out
}
