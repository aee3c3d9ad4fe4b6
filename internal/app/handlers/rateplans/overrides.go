package rateplans

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/shopspring/decimal"

	"rateplans/internal/app/commands"
	"rateplans/internal/app/dto"
	handlersupport "rateplans/internal/app/handlers/support"
	"rateplans/internal/app/middleware"
	"rateplans/internal/app/outbox"
	"rateplans/internal/app/uow"
	"rateplans/internal/domain/shared/daterange"
)

const (
	setOverridesKey  = "host.rateplans.set_overrides"
	clearOverrideKey = "host.rateplans.clear_override"
)

var ErrOverrideNotFound = errors.New("rateplans: price override not found")

type OverrideInput struct {
	Date   time.Time `validate:"required"`
	Amount decimal.Decimal
}

type SetOverridesCommand struct {
	Scope
	RatePlanID string          `validate:"required"`
	Overrides  []OverrideInput `validate:"required,min=1,max=366,dive"`
}

func (c SetOverridesCommand) Key() string { return setOverridesKey }

type SetOverridesHandler struct {
	Logger     *slog.Logger
	UoWFactory uow.UoWFactory
	Outbox     outbox.Outbox
	Encoder    outbox.EventEncoder
	Clock      func() time.Time
}

func (h *SetOverridesHandler) Handle(ctx context.Context, cmd SetOverridesCommand) (*dto.RatePlan, error) {
	prices := make(map[time.Time]decimal.Decimal, len(cmd.Overrides))
	for _, o := range cmd.Overrides {
		day := daterange.Day(o.Date)
		if _, dup := prices[day]; dup {
			return nil, middleware.NewInputError("overrides", "dates must be unique, "+daterange.Key(day)+" repeats")
		}
		prices[day] = o.Amount
	}

	mu, err := handlersupport.BeginWriteUnit(ctx, h.UoWFactory)
	if err != nil {
		return nil, err
	}
	defer mu.Close()
	unit, execCtx := mu.Unit, mu.Ctx

	plan, err := loadOwned(execCtx, unit.RatePlans(), cmd.Scope, cmd.RatePlanID)
	if err != nil {
		return nil, err
	}
	if err := plan.SetOverrides(prices, handlersupport.Now(h.Clock)); err != nil {
		return nil, err
	}
	if err := unit.RatePlans().Save(execCtx, plan); err != nil {
		return nil, err
	}
	if err := outbox.RecordDomainEvents(execCtx, h.Outbox, h.Encoder, plan.DrainEvents()); err != nil {
		return nil, err
	}
	if err := mu.Commit(); err != nil {
		return nil, err
	}

	if h.Logger != nil {
		h.Logger.Info("price overrides set", "rate_plan_id", plan.ID, "count", len(prices))
	}
	result := dto.MapRatePlan(plan, nil)
	return &result, nil
}

type ClearOverrideCommand struct {
	Scope
	RatePlanID string    `validate:"required"`
	Date       time.Time `validate:"required"`
}

func (c ClearOverrideCommand) Key() string { return clearOverrideKey }

type ClearOverrideHandler struct {
	Logger     *slog.Logger
	UoWFactory uow.UoWFactory
	Outbox     outbox.Outbox
	Encoder    outbox.EventEncoder
	Clock      func() time.Time
}

func (h *ClearOverrideHandler) Handle(ctx context.Context, cmd ClearOverrideCommand) (*dto.RatePlan, error) {
	mu, err := handlersupport.BeginWriteUnit(ctx, h.UoWFactory)
	if err != nil {
		return nil, err
	}
	defer mu.Close()
	unit, execCtx := mu.Unit, mu.Ctx

	plan, err := loadOwned(execCtx, unit.RatePlans(), cmd.Scope, cmd.RatePlanID)
	if err != nil {
		return nil, err
	}
	if !plan.ClearOverride(cmd.Date, handlersupport.Now(h.Clock)) {
		return nil, ErrOverrideNotFound
	}
	if err := unit.RatePlans().Save(execCtx, plan); err != nil {
		return nil, err
	}
	if err := outbox.RecordDomainEvents(execCtx, h.Outbox, h.Encoder, plan.DrainEvents()); err != nil {
		return nil, err
	}
	if err := mu.Commit(); err != nil {
		return nil, err
	}

	if h.Logger != nil {
		h.Logger.Info("price override cleared", "rate_plan_id", plan.ID, "date", daterange.Key(cmd.Date))
	}
	result := dto.MapRatePlan(plan, nil)
	return &result, nil
}

var (
	_ commands.Handler[SetOverridesCommand, *dto.RatePlan]  = (*SetOverridesHandler)(nil)
	_ commands.Handler[ClearOverrideCommand, *dto.RatePlan] = (*ClearOverrideHandler)(nil)
)
