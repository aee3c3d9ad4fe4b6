package rateplans

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"rateplans/internal/app/commands"
	"rateplans/internal/app/dto"
	handlersupport "rateplans/internal/app/handlers/support"
	"rateplans/internal/app/outbox"
	"rateplans/internal/app/policies"
	"rateplans/internal/app/uow"
	domainrateplans "rateplans/internal/domain/rateplans"
)

const (
	createRatePlanKey = "host.rateplans.create"
	updateRatePlanKey = "host.rateplans.update"
	deleteRatePlanKey = "host.rateplans.delete"
)

var ErrDeletionBlocked = errors.New("rateplans: deletion blocked by derived rate plans")

// DeletionBlockedError carries the blocked outcome so callers can explain it.
type DeletionBlockedError struct {
	Deletion dto.RatePlanDeletion
}

func (e *DeletionBlockedError) Error() string { return ErrDeletionBlocked.Error() }

func (e *DeletionBlockedError) Unwrap() error { return ErrDeletionBlocked }

type CreateRatePlanCommand struct {
	Scope
	RequestKey string
	Input      RatePlanInput
}

func (c CreateRatePlanCommand) Key() string            { return createRatePlanKey }
func (c CreateRatePlanCommand) IdempotencyKey() string { return c.RequestKey }
func (c CreateRatePlanCommand) ResultPrototype() any   { return &dto.RatePlan{} }

type CreateRatePlanHandler struct {
	Logger     *slog.Logger
	UoWFactory uow.UoWFactory
	Outbox     outbox.Outbox
	Encoder    outbox.EventEncoder
	Clock      func() time.Time
	NewID      func() string
}

func (h *CreateRatePlanHandler) Handle(ctx context.Context, cmd CreateRatePlanCommand) (*dto.RatePlan, error) {
	mu, err := handlersupport.BeginWriteUnit(ctx, h.UoWFactory)
	if err != nil {
		return nil, err
	}
	defer mu.Close()
	unit, execCtx := mu.Unit, mu.Ctx

	property, err := unit.Properties().ByID(execCtx, cmd.property())
	if err != nil {
		return nil, err
	}

	newID := h.NewID
	if newID == nil {
		newID = uuid.NewString
	}
	plan, err := domainrateplans.NewRatePlan(domainrateplans.CreateParams{
		ID:         domainrateplans.RatePlanID(newID()),
		PropertyID: property.ID,
		Currency:   property.Currency,
		Attributes: cmd.Input.attributes(),
		Now:        handlersupport.Now(h.Clock),
	})
	if err != nil {
		return nil, err
	}
	if plan.HasBase() {
		siblings, err := unit.RatePlans().ListByProperty(execCtx, property.ID, domainrateplans.ListFilter{})
		if err != nil {
			return nil, err
		}
		if err := domainrateplans.ValidateLineage(plan, lineageLookup(execCtx, unit.RatePlans(), siblings, plan)); err != nil {
			return nil, err
		}
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
		h.Logger.Info("rate plan created", "rate_plan_id", plan.ID, "property_id", plan.PropertyID, "host_id", cmd.HostID, "adjustment_type", plan.AdjustmentType)
	}
	result := dto.MapRatePlan(plan, nil)
	return &result, nil
}

type UpdateRatePlanCommand struct {
	Scope
	RatePlanID string `validate:"required"`
	Input      RatePlanInput
}

func (c UpdateRatePlanCommand) Key() string { return updateRatePlanKey }

type UpdateRatePlanHandler struct {
	Logger     *slog.Logger
	UoWFactory uow.UoWFactory
	Outbox     outbox.Outbox
	Encoder    outbox.EventEncoder
	Clock      func() time.Time
}

func (h *UpdateRatePlanHandler) Handle(ctx context.Context, cmd UpdateRatePlanCommand) (*dto.RatePlan, error) {
	mu, err := handlersupport.BeginWriteUnit(ctx, h.UoWFactory)
	if err != nil {
		return nil, err
	}
	defer mu.Close()
	unit, execCtx := mu.Unit, mu.Ctx
	repo := unit.RatePlans()

	plan, err := loadOwned(execCtx, repo, cmd.Scope, cmd.RatePlanID)
	if err != nil {
		return nil, err
	}
	if err := plan.Update(cmd.Input.attributes(), handlersupport.Now(h.Clock)); err != nil {
		return nil, err
	}

	siblings, err := repo.ListByProperty(execCtx, plan.PropertyID, domainrateplans.ListFilter{})
	if err != nil {
		return nil, err
	}
	if err := domainrateplans.ValidateLineage(plan, lineageLookup(execCtx, repo, siblings, plan)); err != nil {
		return nil, err
	}
	if err := domainrateplans.ValidateDependents(plan, siblings); err != nil {
		return nil, err
	}

	if err := repo.Save(execCtx, plan); err != nil {
		return nil, err
	}
	if err := outbox.RecordDomainEvents(execCtx, h.Outbox, h.Encoder, plan.DrainEvents()); err != nil {
		return nil, err
	}
	if err := mu.Commit(); err != nil {
		return nil, err
	}

	if h.Logger != nil {
		h.Logger.Info("rate plan updated", "rate_plan_id", plan.ID, "property_id", plan.PropertyID, "is_active", plan.IsActive)
	}
	result := dto.MapRatePlan(plan, directChildren(plan.ID, siblings))
	return &result, nil
}

type DeleteRatePlanCommand struct {
	Scope
	RatePlanID string `validate:"required"`
}

func (c DeleteRatePlanCommand) Key() string { return deleteRatePlanKey }

// DeleteRatePlanHandler hard deletes unused plans, deactivates plans that
// reservations reference and refuses plans other plans derive from.
type DeleteRatePlanHandler struct {
	Logger     *slog.Logger
	UoWFactory uow.UoWFactory
	Outbox     outbox.Outbox
	Encoder    outbox.EventEncoder
	Observer   policies.PricingObserver
	Clock      func() time.Time
}

func (h *DeleteRatePlanHandler) Handle(ctx context.Context, cmd DeleteRatePlanCommand) (*dto.RatePlanDeletion, error) {
	mu, err := handlersupport.BeginWriteUnit(ctx, h.UoWFactory)
	if err != nil {
		return nil, err
	}
	defer mu.Close()
	unit, execCtx := mu.Unit, mu.Ctx
	repo := unit.RatePlans()

	plan, err := loadOwned(execCtx, repo, cmd.Scope, cmd.RatePlanID)
	if err != nil {
		return nil, err
	}
	derived, err := repo.ListDerived(execCtx, plan.ID)
	if err != nil {
		return nil, err
	}
	reservationCount, err := unit.Reservations().CountByRatePlan(execCtx, string(plan.ID))
	if err != nil {
		return nil, err
	}

	outcome := domainrateplans.DecideDeletion(reservationCount, derived)
	policies.ObserverOrNop(h.Observer).DeletionDecided(string(outcome.Kind()))
	result := dto.MapDeletion(plan.ID, outcome)

	now := handlersupport.Now(h.Clock)
	switch outcome.(type) {
	case domainrateplans.BlockedDeletion:
		if h.Logger != nil {
			h.Logger.Info("rate plan deletion blocked", "rate_plan_id", plan.ID, "derived", result.Details.DerivedRatePlanNames)
		}
		return nil, &DeletionBlockedError{Deletion: result}
	case domainrateplans.SoftDeletion:
		plan.Deactivate(reservationCount, now)
		if err := repo.Save(execCtx, plan); err != nil {
			return nil, err
		}
	case domainrateplans.HardDeletion:
		plan.MarkDeleted(now)
		if err := repo.Delete(execCtx, plan.ID); err != nil {
			return nil, err
		}
	}
	if err := outbox.RecordDomainEvents(execCtx, h.Outbox, h.Encoder, plan.DrainEvents()); err != nil {
		return nil, err
	}
	if err := mu.Commit(); err != nil {
		return nil, err
	}

	if h.Logger != nil {
		h.Logger.Info("rate plan deleted", "rate_plan_id", plan.ID, "outcome", result.Outcome, "reservations", reservationCount)
	}
	return &result, nil
}

var (
	_ commands.Handler[CreateRatePlanCommand, *dto.RatePlan]         = (*CreateRatePlanHandler)(nil)
	_ commands.Handler[UpdateRatePlanCommand, *dto.RatePlan]         = (*UpdateRatePlanHandler)(nil)
	_ commands.Handler[DeleteRatePlanCommand, *dto.RatePlanDeletion] = (*DeleteRatePlanHandler)(nil)
)
