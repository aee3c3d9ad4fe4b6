package rateplans

import (
	"context"
	"log/slog"
	"sort"

	"rateplans/internal/app/dto"
	handlersupport "rateplans/internal/app/handlers/support"
	"rateplans/internal/app/queries"
	"rateplans/internal/app/uow"
	domainrateplans "rateplans/internal/domain/rateplans"
)

const (
	listRatePlansKey = "host.rateplans.list"
	getRatePlanKey   = "host.rateplans.get"
)

type ListRatePlansQuery struct {
	Scope
	OnlyActive bool
}

func (q ListRatePlansQuery) Key() string { return listRatePlansKey }

type ListRatePlansHandler struct {
	UoWFactory uow.UoWFactory
	Logger     *slog.Logger
}

func (h *ListRatePlansHandler) Handle(ctx context.Context, q ListRatePlansQuery) (dto.RatePlanList, error) {
	unit, execCtx, cleanup, err := handlersupport.BeginReadOnlyUnit(ctx, h.UoWFactory)
	if err != nil {
		return dto.RatePlanList{}, err
	}
	if cleanup != nil {
		defer cleanup()
	}

	if _, err := unit.Properties().ByID(execCtx, q.property()); err != nil {
		return dto.RatePlanList{}, err
	}
	all, err := unit.RatePlans().ListByProperty(execCtx, q.property(), domainrateplans.ListFilter{})
	if err != nil {
		return dto.RatePlanList{}, err
	}
	sort.SliceStable(all, func(i, j int) bool {
		if all[i].Priority != all[j].Priority {
			return all[i].Priority < all[j].Priority
		}
		return all[i].ID < all[j].ID
	})

	items := make([]dto.RatePlan, 0, len(all))
	for _, plan := range all {
		if q.OnlyActive && !plan.IsActive {
			continue
		}
		items = append(items, dto.MapRatePlan(plan, directChildren(plan.ID, all)))
	}
	if h.Logger != nil {
		h.Logger.Debug("rate plans listed", "property_id", q.PropertyID, "count", len(items))
	}
	return dto.RatePlanList{PropertyID: q.PropertyID, Items: items, Total: len(items)}, nil
}

type GetRatePlanQuery struct {
	Scope
	RatePlanID string `validate:"required"`
}

func (q GetRatePlanQuery) Key() string { return getRatePlanKey }

type GetRatePlanHandler struct {
	UoWFactory uow.UoWFactory
}

func (h *GetRatePlanHandler) Handle(ctx context.Context, q GetRatePlanQuery) (dto.RatePlan, error) {
	unit, execCtx, cleanup, err := handlersupport.BeginReadOnlyUnit(ctx, h.UoWFactory)
	if err != nil {
		return dto.RatePlan{}, err
	}
	if cleanup != nil {
		defer cleanup()
	}

	plan, err := loadOwned(execCtx, unit.RatePlans(), q.Scope, q.RatePlanID)
	if err != nil {
		return dto.RatePlan{}, err
	}
	derived, err := unit.RatePlans().ListDerived(execCtx, plan.ID)
	if err != nil {
		return dto.RatePlan{}, err
	}
	return dto.MapRatePlan(plan, derived), nil
}

var (
	_ queries.Handler[ListRatePlansQuery, dto.RatePlanList] = (*ListRatePlansHandler)(nil)
	_ queries.Handler[GetRatePlanQuery, dto.RatePlan]       = (*GetRatePlanHandler)(nil)
)
