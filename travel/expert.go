package travel

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"github.com/tripweaver/tripweaver/ai"
	"github.com/tripweaver/tripweaver/core"
	"github.com/tripweaver/tripweaver/search"
)

// PriceRule maps keywords found in a candidate's name or description to
// a default price for that category of place.
type PriceRule struct {
	Price    int
	Keywords []string
}

// DomainConfig is everything that distinguishes one expert from
// another: prompts, query bias, and the default-price table.
type DomainConfig struct {
	// Name identifies the worker in progress events and logs.
	Name string
	// SystemPrompt sets the expert persona and output rules.
	SystemPrompt string
	// QueryTemplate and CheapQueryTemplate build the gather query from
	// the destination; the cheap variant is used on the replan round.
	QueryTemplate      string
	CheapQueryTemplate string
	// PriceRules resolve unknown prices; FallbackPrice applies when no
	// rule matches.
	PriceRules    []PriceRule
	FallbackPrice int
}

// ExpertWorker gathers candidates for one domain. All three domains
// share this implementation; only the DomainConfig differs.
type ExpertWorker struct {
	cfg    DomainConfig
	ai     ai.Client
	source search.InformationSource
	logger core.Logger
}

// NewExpertWorker creates a worker from a domain configuration.
func NewExpertWorker(cfg DomainConfig, client ai.Client, source search.InformationSource, logger core.Logger) *ExpertWorker {
	if logger == nil {
		logger = &core.NoOpLogger{}
	}
	return &ExpertWorker{cfg: cfg, ai: client, source: source, logger: logger}
}

// Name returns the worker's progress-event name.
func (w *ExpertWorker) Name() string {
	return w.cfg.Name
}

// QueryFor builds the gather query for the current pass. The replan
// round asks for cheaper alternatives instead of generic ones.
func (w *ExpertWorker) QueryFor(state *PlanState) string {
	if state.Replan {
		return fmt.Sprintf(w.cfg.CheapQueryTemplate, state.Destination)
	}
	return fmt.Sprintf(w.cfg.QueryTemplate, state.Destination)
}

const gatherPromptTemplate = `User request: %s

Ground your recommendations on the search results below. You have two
capabilities: the search summary is already included, and detail pages
for promising results have been fetched where available.

%s

Rules:
- Suggest at least 3 and at most 6 candidates.
- Fill unitPrice from the search results where possible.
- If the price cannot be confirmed from the results, set unitPrice to 0.
  Do not guess. Zero prices are resolved in post-processing.
- Every item must include name, address, description, and unitPrice.
- Return only a JSON array, e.g.
  [{"name":"...","address":"...","description":"...","unitPrice":5000}]`

const repairPrompt = `

The previous response was not a parseable JSON array.
Return only the JSON array this time. Do not include any other text.
JSON schema: [{"name":"...","address":"...","description":"...","unitPrice":12345}]`

// Gather produces a deduplicated, price-normalized candidate list for
// the query. One repair retry is attempted when the completion does not
// parse into the schema; a second format failure is returned to the
// caller, which degrades this worker's contribution to an empty list.
func (w *ExpertWorker) Gather(ctx context.Context, query string) ([]Candidate, error) {
	grounding := w.buildGrounding(ctx, query)
	prompt := fmt.Sprintf(gatherPromptTemplate, query, grounding)
	options := &core.AIOptions{SystemPrompt: w.cfg.SystemPrompt}

	var raw []Candidate
	err := ai.CompleteJSON(ctx, w.ai, prompt, options, &raw)
	if err != nil && core.IsFormatError(err) {
		w.logger.Warn("Candidate completion did not parse, retrying with repair prompt", map[string]interface{}{
			"operation": "gather",
			"worker":    w.cfg.Name,
			"error":     err.Error(),
		})
		raw = nil
		err = ai.CompleteJSON(ctx, w.ai, prompt+repairPrompt, options, &raw)
	}
	if err != nil {
		return nil, &core.PipelineError{
			Op:    "expert.Gather",
			Kind:  "ai",
			Stage: w.cfg.Name,
			Err:   fmt.Errorf("%v: %w", err, core.ErrWorkerFailed),
		}
	}

	candidates := w.normalize(raw)
	w.logger.Debug("Candidates gathered", map[string]interface{}{
		"operation": "gather",
		"worker":    w.cfg.Name,
		"raw":       len(raw),
		"kept":      len(candidates),
	})
	return candidates, nil
}

var urlPattern = regexp.MustCompile(`https?://[^\s"'<>)]+`)

// buildGrounding runs the search capability and enriches the result
// with up to two fetched detail pages. Search failures degrade to an
// empty grounding block; the completion can still answer from its own
// knowledge, and prices it cannot confirm stay zero.
func (w *ExpertWorker) buildGrounding(ctx context.Context, query string) string {
	results, err := w.source.Search(ctx, query)
	if err != nil {
		w.logger.Warn("Search failed, gathering without grounding", map[string]interface{}{
			"operation": "gather",
			"worker":    w.cfg.Name,
			"error":     err.Error(),
		})
		return "(no search results available)"
	}

	var sb strings.Builder
	sb.WriteString(results)

	urls := urlPattern.FindAllString(results, -1)
	fetched := 0
	for _, u := range urls {
		if fetched >= 2 {
			break
		}
		detail, err := w.source.FetchDetail(ctx, u)
		if err != nil || detail == "" {
			continue
		}
		fetched++
		fmt.Fprintf(&sb, "\nDetail from %s:\n%s\n", u, detail)
	}
	return sb.String()
}

// normalize deduplicates by normalized name (first occurrence wins),
// drops nameless entries, and resolves zero or negative prices to a
// domain default with a visible provenance note.
func (w *ExpertWorker) normalize(raw []Candidate) []Candidate {
	seen := make(map[string]bool, len(raw))
	out := make([]Candidate, 0, len(raw))

	for _, c := range raw {
		name := strings.TrimSpace(c.Name)
		if name == "" {
			continue
		}
		key := normalizeName(name)
		if seen[key] {
			continue
		}
		seen[key] = true
		c.Name = name

		if c.UnitPrice <= 0 {
			price := w.inferDefaultPrice(c)
			c.UnitPrice = price
			note := fmt.Sprintf("default price applied: %s", formatAmount(price))
			if !strings.Contains(c.Description, "default price applied") {
				if strings.TrimSpace(c.Description) == "" {
					c.Description = note
				} else {
					c.Description = fmt.Sprintf("%s (%s)", c.Description, note)
				}
			}
		}

		out = append(out, c)
	}
	return out
}

// inferDefaultPrice picks a default by keyword match against the
// candidate's name and description. The result is always positive:
// zero is the "unknown" sentinel and must not survive normalization.
func (w *ExpertWorker) inferDefaultPrice(c Candidate) int {
	text := strings.ToLower(c.Name + " " + c.Description)
	for _, rule := range w.cfg.PriceRules {
		if rule.Price <= 0 {
			continue
		}
		for _, kw := range rule.Keywords {
			if strings.Contains(text, strings.ToLower(kw)) {
				return rule.Price
			}
		}
	}
	return w.cfg.FallbackPrice
}

// normalizeName lowercases and removes all whitespace so "Seongsan
// Ilchulbong" and "seongsan  ilchulbong" dedupe to the same key.
func normalizeName(name string) string {
	return strings.Join(strings.Fields(strings.ToLower(name)), "")
}
