package travel

import (
	"context"
	"errors"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tripweaver/tripweaver/core"
)

// recordSink captures every progress event for assertions.
type recordSink struct {
	mu     sync.Mutex
	events []ProgressEvent
}

func (s *recordSink) Notify(worker string, status ProgressStatus, message string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, ProgressEvent{Worker: worker, Status: status, Message: message})
}

func (s *recordSink) byWorker(worker string) []ProgressEvent {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []ProgressEvent
	for _, ev := range s.events {
		if ev.Worker == worker {
			out = append(out, ev)
		}
	}
	return out
}

const testExtraction = `{"destination":"Jeju","days":2,"maxBudget":200000}`
const testCandidates = `[{"name":"Hallasan","address":"Jeju","description":"mountain trail","unitPrice":0}]`

func planJSONWithCost(cost int) string {
	return `{"days":[{"day":1,"schedule":[{"time":"12:00","kind":"meal","name":"Noodle House","address":"Jeju","description":"lunch","cost":` + strconv.Itoa(cost) + `}]}]}`
}

// routingAI dispatches on the pipeline stage that produced the prompt.
type routingAI struct {
	mu       sync.Mutex
	composes int
	gathers  int
	planFor  func(round int) string
	gatherFn func(ctx context.Context, options *core.AIOptions) (*core.AIResponse, error)
}

func (r *routingAI) GenerateResponse(ctx context.Context, prompt string, options *core.AIOptions) (*core.AIResponse, error) {
	switch {
	case strings.Contains(prompt, "Extract the travel constraints"):
		return textResponse(testExtraction)
	case strings.Contains(prompt, "Ground your recommendations"):
		r.mu.Lock()
		r.gathers++
		r.mu.Unlock()
		if r.gatherFn != nil {
			return r.gatherFn(ctx, options)
		}
		return textResponse(testCandidates)
	default:
		r.mu.Lock()
		r.composes++
		round := r.composes
		r.mu.Unlock()
		return textResponse(r.planFor(round))
	}
}

func (r *routingAI) counts() (gathers, composes int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.gathers, r.composes
}

func newTestOrchestrator(client core.AIClient) *Orchestrator {
	source := &stubSource{}
	return NewOrchestrator(
		NewParser(client, nil),
		NewAttractionWorker(client, source, nil),
		NewRestaurantWorker(client, source, nil),
		NewLodgingWorker(client, source, nil),
		NewComposer(client, nil),
	)
}

func TestRunWithinBudgetSinglePass(t *testing.T) {
	client := &routingAI{planFor: func(round int) string { return planJSONWithCost(150000) }}
	orchestrator := newTestOrchestrator(client)
	sink := &recordSink{}

	result, err := orchestrator.Run(context.Background(), "제주도 1박2일 20만원", sink)
	require.NoError(t, err)
	require.NotNil(t, result.Plan)

	assert.False(t, result.Budget.Exceeded)
	assert.Equal(t, 150000, result.Budget.TotalCost)
	assert.Equal(t, 200000, result.Budget.MaxBudget)

	gathers, composes := client.counts()
	assert.Equal(t, 3, gathers, "one gather per expert")
	assert.Equal(t, 1, composes, "within-budget plans are not recomposed")

	parserEvents := sink.byWorker(WorkerParser)
	require.Len(t, parserEvents, 2)
	assert.Equal(t, StatusComplete, parserEvents[1].Status)
	assert.Contains(t, parserEvents[1].Message, "Jeju")
}

func TestRunReplansExactlyOnce(t *testing.T) {
	// Every composition exceeds the budget; the pipeline must replan
	// once and then accept the over-budget plan with its verdict.
	client := &routingAI{planFor: func(round int) string { return planJSONWithCost(300000) }}
	orchestrator := newTestOrchestrator(client)
	sink := &recordSink{}

	result, err := orchestrator.Run(context.Background(), "제주도 1박2일 20만원", sink)
	require.NoError(t, err)
	require.NotNil(t, result.Plan)

	assert.True(t, result.Budget.Exceeded)
	assert.Equal(t, 300000, result.Budget.TotalCost)

	gathers, composes := client.counts()
	assert.Equal(t, 6, gathers, "each expert gathers once per round")
	assert.Equal(t, 2, composes, "exactly one replan round")

	warnings := 0
	for _, ev := range sink.byWorker(WorkerValidator) {
		if ev.Status == StatusWarning {
			warnings++
		}
	}
	assert.Equal(t, 2, warnings, "one replan announcement plus one final over-budget verdict")
}

func TestRunReplanRecoversWithinBudget(t *testing.T) {
	client := &routingAI{planFor: func(round int) string {
		if round == 1 {
			return planJSONWithCost(300000)
		}
		return planJSONWithCost(180000)
	}}
	orchestrator := newTestOrchestrator(client)

	result, err := orchestrator.Run(context.Background(), "제주도 1박2일 20만원", &recordSink{})
	require.NoError(t, err)
	assert.False(t, result.Budget.Exceeded)
	assert.Equal(t, 180000, result.Budget.TotalCost)
}

func TestRunDegradesFailedExpert(t *testing.T) {
	var composePrompt string
	client := &routingAI{
		planFor: func(round int) string { return planJSONWithCost(100000) },
		gatherFn: func(ctx context.Context, options *core.AIOptions) (*core.AIResponse, error) {
			if strings.Contains(options.SystemPrompt, "attraction") {
				return textResponse("no json, twice in a row")
			}
			return textResponse(testCandidates)
		},
	}
	base := client.GenerateResponse
	capture := &stubAI{fn: func(ctx context.Context, prompt string, options *core.AIOptions) (*core.AIResponse, error) {
		if strings.Contains(prompt, "Scheduling rules") {
			composePrompt = prompt
		}
		return base(ctx, prompt, options)
	}}
	orchestrator := newTestOrchestrator(capture)
	sink := &recordSink{}

	result, err := orchestrator.Run(context.Background(), "제주도 1박2일 20만원", sink)
	require.NoError(t, err, "a failed expert must not fail the run")
	require.NotNil(t, result.Plan)

	attractionEvents := sink.byWorker(WorkerAttractions)
	require.NotEmpty(t, attractionEvents)
	last := attractionEvents[len(attractionEvents)-1]
	assert.Equal(t, StatusWarning, last.Status)

	assert.Contains(t, composePrompt, "Candidate attractions:\n(none available)")
}

func TestRunComposerFailureFailsRun(t *testing.T) {
	client := &stubAI{fn: func(ctx context.Context, prompt string, options *core.AIOptions) (*core.AIResponse, error) {
		switch {
		case strings.Contains(prompt, "Extract the travel constraints"):
			return textResponse(testExtraction)
		case strings.Contains(prompt, "Ground your recommendations"):
			return textResponse(testCandidates)
		default:
			return textResponse("not an itinerary")
		}
	}}
	orchestrator := newTestOrchestrator(client)

	result, err := orchestrator.Run(context.Background(), "제주도 1박2일 20만원", &recordSink{})
	require.Error(t, err)
	assert.Nil(t, result)
	assert.True(t, errors.Is(err, core.ErrCompositionFailed))
}

func TestGatherRunsExpertsConcurrently(t *testing.T) {
	var mu sync.Mutex
	inFlight, peak := 0, 0

	client := &routingAI{
		planFor: func(round int) string { return planJSONWithCost(100000) },
		gatherFn: func(ctx context.Context, options *core.AIOptions) (*core.AIResponse, error) {
			mu.Lock()
			inFlight++
			if inFlight > peak {
				peak = inFlight
			}
			mu.Unlock()

			time.Sleep(100 * time.Millisecond)

			mu.Lock()
			inFlight--
			mu.Unlock()
			return textResponse(testCandidates)
		},
	}
	orchestrator := newTestOrchestrator(client)

	_, err := orchestrator.Run(context.Background(), "제주도 1박2일 20만원", nil)
	require.NoError(t, err)

	mu.Lock()
	defer mu.Unlock()
	assert.GreaterOrEqual(t, peak, 2, "experts must overlap, not run sequentially")
}

func TestGatherOnlyRoutesByDomain(t *testing.T) {
	client := &stubAI{fn: func(ctx context.Context, prompt string, options *core.AIOptions) (*core.AIResponse, error) {
		assert.Contains(t, options.SystemPrompt, "lodging")
		return textResponse(`[{"name":"Harbor Guesthouse","address":"Jeju","description":"stay","unitPrice":60000}]`)
	}}
	orchestrator := newTestOrchestrator(client)

	candidates, err := orchestrator.GatherOnly(context.Background(), "lodging", "Jeju guesthouse")
	require.NoError(t, err)
	require.Len(t, candidates, 1)
	assert.Equal(t, "Harbor Guesthouse", candidates[0].Name)
}

func TestGatherOnlyUnknownDomain(t *testing.T) {
	orchestrator := newTestOrchestrator(&stubAI{})

	_, err := orchestrator.GatherOnly(context.Background(), "souvenirs", "Jeju")
	require.Error(t, err)
	assert.True(t, errors.Is(err, core.ErrUnknownDomain))
}
