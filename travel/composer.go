package travel

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/tripweaver/tripweaver/ai"
	"github.com/tripweaver/tripweaver/core"
)

// Composer assembles the gathered candidates into a day-by-day
// itinerary. It only selects and schedules; it never invents places
// that are not in the candidate lists.
type Composer struct {
	ai     ai.Client
	logger core.Logger
}

// NewComposer creates an itinerary composer.
func NewComposer(client ai.Client, logger core.Logger) *Composer {
	if logger == nil {
		logger = &core.NoOpLogger{}
	}
	return &Composer{ai: client, logger: logger}
}

const composerSystemPrompt = `You are a travel itinerary planner. You build a realistic
day-by-day schedule strictly from the candidate places you are given.`

const composerPromptTemplate = `Build a %d-day itinerary for %s within a budget of %d won.

Candidate attractions:
%s

Candidate restaurants:
%s

Candidate lodging:
%s

Scheduling rules (follow all of them):
- Use only places from the candidate lists above. Copy name, address,
  description, and price into the schedule verbatim; do not rewrite them.
- Start each day with attractions in the morning.
- Every day must have lunch and dinner as two distinct schedule items at
  different restaurants.
- Never schedule the same place twice anywhere in the whole itinerary,
  across all days and all kinds.
- A %d-day trip has %d nights: schedule one lodging item per night, and
  none on the final day.
- Order each day's items by time, formatted as HH:MM (e.g. "09:00").
- kind must be exactly one of "attraction", "meal", or "lodging".
- cost is the price of that item in won. For lodging, cost is the
  per-night rate.
%s
Return only a JSON object with this shape, no markdown fences:
{"days":[{"day":1,"schedule":[{"time":"09:00","kind":"attraction","name":"...","address":"...","description":"...","cost":5000}]}]}`

// Compose builds the itinerary for the state's candidates. Unlike the
// expert workers there is no repair retry here: a malformed itinerary
// fails the run, because a fabricated or partial plan is worse than a
// clean error.
func (c *Composer) Compose(ctx context.Context, state *PlanState) (*Plan, error) {
	nights := state.Days - 1
	if nights < 0 {
		nights = 0
	}

	prompt := fmt.Sprintf(composerPromptTemplate,
		state.Days, state.Destination, state.MaxBudget,
		renderCandidates(state.Attractions),
		renderCandidates(state.Restaurants),
		renderCandidates(state.Lodgings),
		state.Days, nights,
		replanGuidance(state),
	)

	var plan Plan
	options := &core.AIOptions{SystemPrompt: composerSystemPrompt}
	if err := ai.CompleteJSON(ctx, c.ai, prompt, options, &plan); err != nil {
		return nil, &core.PipelineError{
			Op:    "composer.Compose",
			Kind:  "ai",
			Stage: WorkerComposer,
			Err:   fmt.Errorf("%v: %w", err, core.ErrCompositionFailed),
		}
	}
	if len(plan.Days) == 0 {
		return nil, &core.PipelineError{
			Op:      "composer.Compose",
			Kind:    "ai",
			Stage:   WorkerComposer,
			Message: "itinerary has no days",
			Err:     core.ErrCompositionFailed,
		}
	}

	c.logger.Debug("Itinerary composed", map[string]interface{}{
		"operation": "compose",
		"days":      len(plan.Days),
	})
	return &plan, nil
}

// replanGuidance adds the tightening instruction on the second pass.
func replanGuidance(state *PlanState) string {
	if !state.Replan {
		return ""
	}
	return fmt.Sprintf(`- The previous plan cost %d won and exceeded the budget. Prefer the
  cheaper candidates this time and keep the total under %d won.
`, state.PreviousTotalCost, state.MaxBudget)
}

// renderCandidates formats a candidate list for the prompt.
func renderCandidates(cs []Candidate) string {
	if len(cs) == 0 {
		return "(none available)"
	}
	var sb strings.Builder
	for _, c := range cs {
		b, err := json.Marshal(c)
		if err != nil {
			continue
		}
		sb.WriteString("- ")
		sb.Write(b)
		sb.WriteByte('\n')
	}
	return strings.TrimRight(sb.String(), "\n")
}
