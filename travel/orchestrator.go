package travel

import (
	"context"
	"fmt"
	"sync"

	"github.com/tripweaver/tripweaver/core"
)

// Result is the terminal output of one orchestration run.
type Result struct {
	Plan   *Plan          `json:"plan"`
	Budget BudgetAnalysis `json:"budget"`
}

// Orchestrator drives the planning pipeline: parse, gather in parallel,
// compose, validate, and at most one replanning round when the first
// plan exceeds the budget.
type Orchestrator struct {
	parser      *Parser
	attractions *ExpertWorker
	restaurants *ExpertWorker
	lodging     *ExpertWorker
	composer    *Composer
	logger      core.Logger
	telemetry   core.Telemetry
}

// OrchestratorOption configures an Orchestrator.
type OrchestratorOption func(*Orchestrator)

// WithLogger sets the orchestrator's logger.
func WithLogger(logger core.Logger) OrchestratorOption {
	return func(o *Orchestrator) { o.logger = logger }
}

// WithTelemetry sets the orchestrator's telemetry provider.
func WithTelemetry(t core.Telemetry) OrchestratorOption {
	return func(o *Orchestrator) { o.telemetry = t }
}

// NewOrchestrator wires the pipeline stages together.
func NewOrchestrator(parser *Parser, attractions, restaurants, lodging *ExpertWorker, composer *Composer, opts ...OrchestratorOption) *Orchestrator {
	o := &Orchestrator{
		parser:      parser,
		attractions: attractions,
		restaurants: restaurants,
		lodging:     lodging,
		composer:    composer,
		logger:      &core.NoOpLogger{},
		telemetry:   &core.NoOpTelemetry{},
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// Run executes the full pipeline for one request. Progress events flow
// to the sink as stages start and finish; the sink may be nil. Run
// returns a result or an error, never both, and a failed run stops at
// the failing stage. An over-budget first plan triggers exactly one
// cheaper-biased replanning round; if the second plan is still over
// budget it is returned as-is with the verdict attached.
func (o *Orchestrator) Run(ctx context.Context, query string, sink ProgressSink) (*Result, error) {
	if sink == nil {
		sink = NoOpSink{}
	}

	ctx, span := o.telemetry.StartSpan(ctx, "travel.run")
	defer span.End()
	o.telemetry.RecordMetric("travel.runs", 1, nil)

	sink.Notify(WorkerParser, StatusRunning, "analyzing request")
	state := o.parser.Parse(ctx, query)
	sink.Notify(WorkerParser, StatusComplete, fmt.Sprintf(
		"destination %s, %d days, budget %s won",
		state.Destination, state.Days, formatAmount(state.MaxBudget)))

	span.SetAttribute("travel.destination", state.Destination)
	span.SetAttribute("travel.days", state.Days)

	if err := o.planOnce(ctx, state, sink); err != nil {
		span.RecordError(err)
		return nil, err
	}

	if state.Budget.Exceeded && !state.Replan {
		o.telemetry.RecordMetric("travel.replans", 1, nil)
		sink.Notify(WorkerValidator, StatusWarning, fmt.Sprintf(
			"%s; replanning with cheaper options", state.Budget.Message))
		o.logger.Info("Plan over budget, starting replan round", map[string]interface{}{
			"operation":  "replan",
			"total_cost": state.Budget.TotalCost,
			"max_budget": state.Budget.MaxBudget,
		})

		state.Replan = true
		state.PreviousTotalCost = state.Budget.TotalCost

		if err := o.planOnce(ctx, state, sink); err != nil {
			span.RecordError(err)
			return nil, err
		}
		if state.Budget.Exceeded {
			sink.Notify(WorkerValidator, StatusWarning, fmt.Sprintf(
				"still over budget after replanning: %s", state.Budget.Message))
		}
	}

	o.logger.Info("Planning run finished", map[string]interface{}{
		"operation":  "run",
		"total_cost": state.Budget.TotalCost,
		"exceeded":   state.Budget.Exceeded,
		"replanned":  state.Replan,
	})
	return &Result{Plan: state.Plan, Budget: *state.Budget}, nil
}

// planOnce is one gather-compose-validate pass over the state.
func (o *Orchestrator) planOnce(ctx context.Context, state *PlanState, sink ProgressSink) error {
	o.gather(ctx, state, sink)

	sink.Notify(WorkerComposer, StatusRunning, "composing itinerary")
	plan, err := o.composer.Compose(ctx, state)
	if err != nil {
		return err
	}
	state.Plan = plan
	sink.Notify(WorkerComposer, StatusComplete, fmt.Sprintf("%d-day itinerary ready", len(plan.Days)))

	sink.Notify(WorkerValidator, StatusRunning, "validating budget")
	budget := AnalyzeBudget(state.Plan, state.MaxBudget)
	state.Budget = &budget
	sink.Notify(WorkerValidator, StatusComplete, budget.Message)
	return nil
}

// gather fans the three experts out concurrently and waits for all of
// them. Each goroutine writes exactly one state field, so the round
// needs no locking, and a failed expert never cancels its siblings: its
// contribution degrades to an empty list behind a warning event.
func (o *Orchestrator) gather(ctx context.Context, state *PlanState, sink ProgressSink) {
	tasks := []struct {
		worker *ExpertWorker
		assign func([]Candidate)
	}{
		{o.attractions, func(cs []Candidate) { state.Attractions = cs }},
		{o.restaurants, func(cs []Candidate) { state.Restaurants = cs }},
		{o.lodging, func(cs []Candidate) { state.Lodgings = cs }},
	}

	var wg sync.WaitGroup
	for _, task := range tasks {
		wg.Add(1)
		go func(worker *ExpertWorker, assign func([]Candidate)) {
			defer wg.Done()

			sink.Notify(worker.Name(), StatusRunning, "gathering candidates")
			candidates, err := worker.Gather(ctx, worker.QueryFor(state))
			if err != nil {
				o.logger.Error("Expert failed, continuing without its candidates", map[string]interface{}{
					"operation": "gather",
					"worker":    worker.Name(),
					"error":     err.Error(),
				})
				sink.Notify(worker.Name(), StatusWarning, "expert unavailable, continuing without its candidates")
				assign([]Candidate{})
				return
			}
			assign(candidates)
			sink.Notify(worker.Name(), StatusComplete, fmt.Sprintf("%d candidates found", len(candidates)))
		}(task.worker, task.assign)
	}
	wg.Wait()
}

// GatherOnly runs a single expert outside the pipeline, for direct
// queries against one domain.
func (o *Orchestrator) GatherOnly(ctx context.Context, domain, query string) ([]Candidate, error) {
	var worker *ExpertWorker
	switch domain {
	case "attractions":
		worker = o.attractions
	case "restaurants":
		worker = o.restaurants
	case "lodging":
		worker = o.lodging
	default:
		return nil, &core.PipelineError{
			Op:      "orchestrator.GatherOnly",
			Kind:    "validation",
			Message: fmt.Sprintf("domain %q", domain),
			Err:     core.ErrUnknownDomain,
		}
	}

	ctx, span := o.telemetry.StartSpan(ctx, "travel.gather_only")
	defer span.End()
	span.SetAttribute("travel.domain", domain)

	return worker.Gather(ctx, query)
}
