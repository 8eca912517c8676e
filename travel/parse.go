package travel

import (
	"context"
	"fmt"

	"github.com/tripweaver/tripweaver/ai"
	"github.com/tripweaver/tripweaver/core"
)

// extractionPrompt instructs the model to pull structured trip
// constraints out of a free-text request. The Korean magnitude token
// "만원" means units of 10,000 won, so "20만원" must expand to 200000;
// the multiplication is spelled out because models otherwise copy the
// literal digits.
const extractionPrompt = `Extract the travel constraints from the user request below and return them as JSON.

User request: %q

Fields to extract:
- destination: the place to travel to, e.g. "Jeju Island"
- days: total number of trip days. For "N박M일" style phrases take the
  last number (e.g. "2박3일" means 3 days).
- maxBudget: the budget as a plain number in won.

Budget conversion rules (apply exactly):
- "X만원" means X times 10000 won. "20만원" is 20 x 10000 = 200000.
- "50만원" is 500000. "100만원" is 1000000. "200만원" is 2000000.

Example conversions:
- "제주도 2박3일 20만원" -> {"destination": "제주도", "days": 3, "maxBudget": 200000}
- "제주도 3박4일 100만원" -> {"destination": "제주도", "days": 4, "maxBudget": 1000000}
- "제주도 1박2일 50만원" -> {"destination": "제주도", "days": 2, "maxBudget": 500000}

Return only the JSON object, with no explanation and no markdown fences.`

type extractedRequest struct {
	Destination string `json:"destination"`
	Days        int    `json:"days"`
	MaxBudget   int    `json:"maxBudget"`
}

// Parser turns a free-text request into a populated PlanState.
type Parser struct {
	ai     ai.Client
	logger core.Logger
}

// NewParser creates a request parser.
func NewParser(client ai.Client, logger core.Logger) *Parser {
	if logger == nil {
		logger = &core.NoOpLogger{}
	}
	return &Parser{ai: client, logger: logger}
}

// Parse extracts destination, days, and budget from the request. A
// malformed extraction never fails the run: the affected fields stay at
// their zero values and the budget placeholder is installed regardless,
// so no later stage can dereference a nil analysis.
func (p *Parser) Parse(ctx context.Context, query string) *PlanState {
	state := &PlanState{Query: query}

	var extracted extractedRequest
	prompt := fmt.Sprintf(extractionPrompt, query)
	if err := ai.CompleteJSON(ctx, p.ai, prompt, nil, &extracted); err != nil {
		p.logger.Warn("Request extraction failed, using defaults", map[string]interface{}{
			"operation": "parse_request",
			"error":     err.Error(),
		})
	} else {
		state.Destination = extracted.Destination
		state.Days = extracted.Days
		state.MaxBudget = extracted.MaxBudget
	}

	state.Budget = &BudgetAnalysis{
		MaxBudget: state.MaxBudget,
		Message:   "budget analysis pending",
	}

	p.logger.Debug("Request parsed", map[string]interface{}{
		"operation":   "parse_request",
		"destination": state.Destination,
		"days":        state.Days,
		"max_budget":  state.MaxBudget,
	})

	return state
}
