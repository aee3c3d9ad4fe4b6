package refunds

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"rateplans/internal/app/dto"
	handlersupport "rateplans/internal/app/handlers/support"
	"rateplans/internal/app/middleware"
	"rateplans/internal/app/policies"
	"rateplans/internal/app/queries"
	"rateplans/internal/app/uow"
	domainpricing "rateplans/internal/domain/pricing"
	domainrateplans "rateplans/internal/domain/rateplans"
	domainreservations "rateplans/internal/domain/reservations"
)

const calculateRefundKey = "refunds.calculate"

type CalculateRefundQuery struct {
	ReservationID    string `validate:"required"`
	CancellationDate *time.Time
}

func (q CalculateRefundQuery) Key() string { return calculateRefundKey }

// CalculateRefundHandler applies the reservation's rate plan cancellation policy.
// A reservation whose plan no longer exists is treated as having no policy.
type CalculateRefundHandler struct {
	Logger     *slog.Logger
	UoWFactory uow.UoWFactory
	Observer   policies.PricingObserver
	Clock      func() time.Time
}

func (h *CalculateRefundHandler) Handle(ctx context.Context, q CalculateRefundQuery) (dto.Refund, error) {
	if strings.TrimSpace(q.ReservationID) == "" {
		return dto.Refund{}, middleware.NewInputError("reservation_id", "is required")
	}
	unit, execCtx, cleanup, err := handlersupport.BeginReadOnlyUnit(ctx, h.UoWFactory)
	if err != nil {
		return dto.Refund{}, err
	}
	if cleanup != nil {
		defer cleanup()
	}

	reservation, err := unit.Reservations().ByID(execCtx, domainreservations.ReservationID(q.ReservationID))
	if err != nil {
		return dto.Refund{}, err
	}

	var policy *domainrateplans.CancellationPolicy
	plan, err := unit.RatePlans().ByID(execCtx, domainrateplans.RatePlanID(reservation.RatePlanID))
	switch {
	case err == nil:
		policy = plan.CancellationPolicy
	case errors.Is(err, domainrateplans.ErrRatePlanNotFound):
		if h.Logger != nil {
			h.Logger.Warn("reservation rate plan missing", "reservation_id", reservation.ID, "rate_plan_id", reservation.RatePlanID)
		}
	default:
		return dto.Refund{}, err
	}

	cancelledAt := handlersupport.Now(h.Clock)
	if q.CancellationDate != nil && !q.CancellationDate.IsZero() {
		cancelledAt = q.CancellationDate.UTC()
	}
	result := domainpricing.Refund(policy, reservation.TotalPrice, reservation.Range.CheckIn, cancelledAt)
	policies.ObserverOrNop(h.Observer).RefundCalculated(result.Tier != nil)

	if h.Logger != nil {
		h.Logger.Info("refund calculated", "reservation_id", reservation.ID, "days_until_check_in", result.DaysUntilCheckIn, "percentage", result.Percentage.String())
	}
	return dto.MapRefund(string(reservation.ID), result), nil
}

var _ queries.Handler[CalculateRefundQuery, dto.Refund] = (*CalculateRefundHandler)(nil)
