package travel

import (
	"fmt"
	"strconv"
)

// AnalyzeBudget walks every schedule item, sums costs into category
// buckets by kind, and compares the recomputed grand total to the
// budget ceiling. The composer's own arithmetic is not authoritative:
// whatever totals it emitted are overwritten here. Unrecognized kinds
// are ignored rather than treated as errors.
//
// Pure apart from updating the plan's rolled-up totals; calling it
// twice yields identical results.
func AnalyzeBudget(plan *Plan, maxBudget int) BudgetAnalysis {
	var attractions, meals, lodging int

	if plan != nil {
		for _, day := range plan.Days {
			for _, item := range day.Schedule {
				switch item.Kind {
				case KindAttraction:
					attractions += item.Cost
				case KindMeal:
					meals += item.Cost
				case KindLodging:
					lodging += item.Cost
				}
			}
		}

		total := attractions + meals + lodging
		plan.Attractions = attractions
		plan.Meals = meals
		plan.Lodging = lodging
		plan.TotalCost = total
		plan.MaxBudget = maxBudget
	}

	total := attractions + meals + lodging
	exceeded := total > maxBudget

	verdict := "within budget"
	if exceeded {
		verdict = "over budget"
	}
	message := fmt.Sprintf("total cost %s | budget %s | %s",
		formatAmount(total), formatAmount(maxBudget), verdict)

	return BudgetAnalysis{
		MaxBudget: maxBudget,
		TotalCost: total,
		Exceeded:  exceeded,
		Message:   message,
	}
}

// formatAmount renders an integer amount with thousands separators.
func formatAmount(n int) string {
	s := strconv.Itoa(n)
	neg := false
	if len(s) > 0 && s[0] == '-' {
		neg = true
		s = s[1:]
	}

	var out []byte
	for i, c := range []byte(s) {
		if i > 0 && (len(s)-i)%3 == 0 {
			out = append(out, ',')
		}
		out = append(out, c)
	}
	if neg {
		return "-" + string(out)
	}
	return string(out)
}
