package rateplans

// Lookup resolves a rate plan by id within the set being validated.
type Lookup func(id RatePlanID) (*RatePlan, bool)

// IndexPlans builds a Lookup over plans, letting overrides replace stored versions.
func IndexPlans(plans []*RatePlan, overrides ...*RatePlan) Lookup {
	index := make(map[RatePlanID]*RatePlan, len(plans)+len(overrides))
	for _, p := range plans {
		index[p.ID] = p
	}
	for _, p := range overrides {
		index[p.ID] = p
	}
	return func(id RatePlanID) (*RatePlan, bool) {
		p, ok := index[id]
		return p, ok
	}
}

// ValidateLineage checks that plan's base chain stays inside its property, is free of
// cycles, and reaches a FixedPrice plan within MaxBaseChainDepth hops.
func ValidateLineage(plan *RatePlan, lookup Lookup) error {
	if !plan.HasBase() {
		return nil
	}
	if plan.BaseRatePlanID == plan.ID {
		return invalid("base_rate_plan_id", ErrBaseSelfReference)
	}
	base, ok := lookup(plan.BaseRatePlanID)
	if !ok {
		return invalid("base_rate_plan_id", ErrBaseNotFound)
	}
	if base.PropertyID != plan.PropertyID {
		return invalid("base_rate_plan_id", ErrBaseOtherProperty)
	}
	if plan.AdjustmentType == Percentage && base.AdjustmentType != FixedPrice {
		return invalid("base_rate_plan_id", ErrPercentageBaseType)
	}

	visited := map[RatePlanID]struct{}{plan.ID: {}}
	current := base
	for hops := 1; ; hops++ {
		if _, seen := visited[current.ID]; seen {
			return invalid("base_rate_plan_id", ErrBaseCycle)
		}
		visited[current.ID] = struct{}{}
		if !current.HasBase() {
			break
		}
		if hops >= MaxBaseChainDepth {
			return invalid("base_rate_plan_id", ErrBaseChainTooDeep)
		}
		next, ok := lookup(current.BaseRatePlanID)
		if !ok {
			return invalid("base_rate_plan_id", ErrBaseNotFound)
		}
		if next.PropertyID != plan.PropertyID {
			return invalid("base_rate_plan_id", ErrBaseOtherProperty)
		}
		current = next
	}
	if current.AdjustmentType != FixedPrice {
		return invalid("base_rate_plan_id", ErrBaseChainLeaf)
	}
	return nil
}

// Dependents returns every plan whose base chain passes through root, nearest first.
func Dependents(root RatePlanID, plans []*RatePlan) []*RatePlan {
	children := make(map[RatePlanID][]*RatePlan)
	for _, p := range plans {
		if p.HasBase() {
			children[p.BaseRatePlanID] = append(children[p.BaseRatePlanID], p)
		}
	}
	var out []*RatePlan
	seen := map[RatePlanID]struct{}{root: {}}
	queue := []RatePlanID{root}
	for len(queue) > 0 {
		id := queue[0]
		queue = queue[1:]
		for _, child := range children[id] {
			if _, dup := seen[child.ID]; dup {
				continue
			}
			seen[child.ID] = struct{}{}
			out = append(out, child)
			queue = append(queue, child.ID)
		}
	}
	return out
}

// ValidateDependents re-checks the lineage of every plan deriving from updated,
// as if updated were already stored.
func ValidateDependents(updated *RatePlan, plans []*RatePlan) error {
	dependents := Dependents(updated.ID, plans)
	if len(dependents) == 0 {
		return nil
	}
	if updated.AdjustmentType != FixedPrice {
		for _, d := range dependents {
			if d.BaseRatePlanID == updated.ID && d.AdjustmentType == Percentage {
				return invalid("adjustment_type", ErrDependentsRequireFixed)
			}
		}
	}
	lookup := IndexPlans(plans, updated)
	for _, d := range dependents {
		if err := ValidateLineage(d, lookup); err != nil {
			return err
		}
	}
	return nil
}
