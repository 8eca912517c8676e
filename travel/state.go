// Package travel implements the trip planning pipeline: request parsing,
// parallel candidate gathering by domain experts, itinerary composition,
// budget validation, and a single bounded replanning round.
package travel

// Candidate is one proposed place: an attraction, a restaurant, or a
// lodging option. UnitPrice is the entrance fee, per-person meal price,
// or per-night rate depending on the domain.
type Candidate struct {
	Name        string `json:"name"`
	Address     string `json:"address"`
	Description string `json:"description"`
	UnitPrice   int    `json:"unitPrice"`
}

// Schedule item kinds. Unrecognized kinds are tolerated by the budget
// validator but never emitted by the composer prompt.
const (
	KindAttraction = "attraction"
	KindMeal       = "meal"
	KindLodging    = "lodging"
)

// ScheduleItem is a single itinerary entry.
type ScheduleItem struct {
	Time        string `json:"time"` // HH:MM
	Kind        string `json:"kind"`
	Name        string `json:"name"`
	Address     string `json:"address"`
	Description string `json:"description"`
	Cost        int    `json:"cost"`
}

// DaySchedule is one day of the itinerary, items ordered by time.
type DaySchedule struct {
	Day      int            `json:"day"`
	Schedule []ScheduleItem `json:"schedule"`
}

// Plan is the composed itinerary. The rolled-up totals are recomputed
// by AnalyzeBudget from the line items; values the composer emits for
// them are overwritten.
type Plan struct {
	Days        []DaySchedule `json:"days"`
	MaxBudget   int           `json:"maxBudget"`
	TotalCost   int           `json:"totalCost"`
	Attractions int           `json:"attractions"`
	Meals       int           `json:"meals"`
	Lodging     int           `json:"lodging"`
}

// BudgetAnalysis is the validation verdict for a composed plan.
type BudgetAnalysis struct {
	MaxBudget int    `json:"maxBudget"`
	TotalCost int    `json:"totalCost"`
	Exceeded  bool   `json:"exceeded"`
	Message   string `json:"message"`
}

// PlanState is the single mutable object threaded through one
// orchestration run. It is never shared across concurrent runs.
//
// Write discipline: the request fields are written once at parse time;
// during a fan-out round each candidate list is written by exactly one
// expert goroutine, so the round needs no locking; the derived fields
// are written by the sequential planning and validation stages.
type PlanState struct {
	// Request fields, set by the parser.
	Query       string
	Destination string
	Days        int
	MaxBudget   int

	// Candidate lists, one per expert. Disjoint writes per round.
	Attractions []Candidate
	Restaurants []Candidate
	Lodgings    []Candidate

	// Derived outputs.
	Plan   *Plan
	Budget *BudgetAnalysis

	// Replanning control. Replan transitions false to true at most
	// once per run; PreviousTotalCost only phrases the retry guidance.
	Replan            bool
	PreviousTotalCost int
}
