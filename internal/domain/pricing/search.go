package pricing

import (
	"sort"

	"github.com/shopspring/decimal"
	"github.com/sourcegraph/conc/iter"

	"rateplans/internal/domain/rateplans"
	"rateplans/internal/domain/shared/money"
)

const ComparedToHighest = "highest rate"

// Savings compares a quote with the most expensive quote of the same search.
type Savings struct {
	Amount     money.Money
	Percentage decimal.Decimal
	ComparedTo string
}

type Quote struct {
	Plan    *rateplans.RatePlan
	Stay    StayPrice
	Savings *Savings
}

// PlanFailure records a plan dropped from results because it could not be priced.
type PlanFailure struct {
	RatePlanID rateplans.RatePlanID
	Err        error
}

type SearchResult struct {
	Quotes  []Quote
	Skipped []PlanFailure
	// Considered is the number of active plans before filtering.
	Considered int
}

// Engine runs the search pipeline over a snapshot.
type Engine struct {
	// MaxGoroutines bounds concurrent per-plan pricing; zero means GOMAXPROCS.
	MaxGoroutines int
}

// Search filters, resolves and prices every candidate of the snapshot, then ranks the quotes.
// Plans that fail to price are reported in Skipped rather than failing the search.
func (e Engine) Search(snapshot *Snapshot, req StayRequest) SearchResult {
	candidates := snapshot.Candidates()
	visible := Resolve(Filter(candidates, req))
	quotes, skipped := e.PriceAll(NewCalculator(snapshot), visible, req)
	return SearchResult{
		Quotes:     Rank(quotes),
		Skipped:    skipped,
		Considered: len(candidates),
	}
}

// PriceAll prices each plan for the stay concurrently. Order of plans is preserved.
func (e Engine) PriceAll(calc *Calculator, plans []*rateplans.RatePlan, req StayRequest) ([]Quote, []PlanFailure) {
	type outcome struct {
		quote Quote
		err   error
	}
	mapper := iter.Mapper[*rateplans.RatePlan, outcome]{MaxGoroutines: e.MaxGoroutines}
	results := mapper.Map(plans, func(plan **rateplans.RatePlan) outcome {
		stay, err := calc.PriceForStay(*plan, req.Range)
		if err != nil {
			return outcome{err: err}
		}
		return outcome{quote: Quote{Plan: *plan, Stay: stay}}
	})

	quotes := make([]Quote, 0, len(results))
	var skipped []PlanFailure
	for i, r := range results {
		if r.err != nil {
			skipped = append(skipped, PlanFailure{RatePlanID: plans[i].ID, Err: r.err})
			continue
		}
		quotes = append(quotes, r.quote)
	}
	return quotes, skipped
}

// Rank orders quotes by total ascending and annotates every quote cheaper than the
// single most expensive one with its savings against it.
func Rank(quotes []Quote) []Quote {
	out := append([]Quote(nil), quotes...)
	sort.SliceStable(out, func(i, j int) bool {
		if c := out[i].Stay.Total.Cmp(out[j].Stay.Total); c != 0 {
			return c < 0
		}
		return byPriority(out[i].Plan, out[j].Plan)
	})
	if len(out) < 2 {
		return out
	}

	highest := out[len(out)-1].Stay.Total
	if !highest.Amount.IsPositive() {
		return out
	}
	for i := 0; i < len(out)-1; i++ {
		diff, err := highest.Sub(out[i].Stay.Total)
		if err != nil || !diff.Amount.IsPositive() {
			continue
		}
		out[i].Savings = &Savings{
			Amount:     diff,
			Percentage: money.Ratio(diff, highest),
			ComparedTo: ComparedToHighest,
		}
	}
	return out
}
