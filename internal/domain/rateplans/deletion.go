package rateplans

type DeletionKind string

const (
	DeletionHard    DeletionKind = "hard"
	DeletionSoft    DeletionKind = "soft"
	DeletionBlocked DeletionKind = "blocked"
)

// DeletionOutcome is one of HardDeletion, SoftDeletion or BlockedDeletion.
type DeletionOutcome interface {
	Kind() DeletionKind
	isDeletionOutcome()
}

// HardDeletion removes the plan, its restrictions, policy and overrides.
type HardDeletion struct{}

// SoftDeletion deactivates the plan because reservations still reference it.
type SoftDeletion struct {
	ReservationCount int
}

// BlockedDeletion leaves the plan untouched because other plans derive from it.
type BlockedDeletion struct {
	ReservationCount int
	DerivedPlans     []DerivedPlanRef
}

type DerivedPlanRef struct {
	ID   RatePlanID
	Name string
}

func (HardDeletion) Kind() DeletionKind    { return DeletionHard }
func (SoftDeletion) Kind() DeletionKind    { return DeletionSoft }
func (BlockedDeletion) Kind() DeletionKind { return DeletionBlocked }

func (HardDeletion) isDeletionOutcome()    {}
func (SoftDeletion) isDeletionOutcome()    {}
func (BlockedDeletion) isDeletionOutcome() {}

// DerivedNames lists the blocking plans' names in the order they were found.
func (b BlockedDeletion) DerivedNames() []string {
	out := make([]string, 0, len(b.DerivedPlans))
	for _, d := range b.DerivedPlans {
		out = append(out, d.Name)
	}
	return out
}

// DecideDeletion picks the outcome. Derived plans block deletion regardless of
// reservation history; otherwise any reservation forces a soft delete.
func DecideDeletion(reservationCount int, derived []*RatePlan) DeletionOutcome {
	if len(derived) > 0 {
		refs := make([]DerivedPlanRef, 0, len(derived))
		for _, d := range derived {
			refs = append(refs, DerivedPlanRef{ID: d.ID, Name: d.Name})
		}
		return BlockedDeletion{ReservationCount: reservationCount, DerivedPlans: refs}
	}
	if reservationCount > 0 {
		return SoftDeletion{ReservationCount: reservationCount}
	}
	return HardDeletion{}
}
