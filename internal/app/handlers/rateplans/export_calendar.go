package rateplans

import (
	"bytes"
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/google/uuid"

	"rateplans/internal/app/dto"
	handlersupport "rateplans/internal/app/handlers/support"
	"rateplans/internal/app/middleware"
	"rateplans/internal/app/policies"
	"rateplans/internal/app/queries"
	"rateplans/internal/app/uow"
	domainpricing "rateplans/internal/domain/pricing"
	domainrateplans "rateplans/internal/domain/rateplans"
	"rateplans/internal/domain/shared/daterange"
	"rateplans/internal/domain/shared/money"
)

const exportCalendarKey = "host.rateplans.export_calendar"

// MaxExportNights bounds a single calendar export.
const MaxExportNights = 366

var ErrExportUnavailable = errors.New("rateplans: calendar export storage not configured")

var exportHeader = []string{"rate_plan_id", "rate_plan_name", "date", "weekday", "amount", "currency", "overridden"}

type ExportCalendarQuery struct {
	Scope
	From time.Time `validate:"required"`
	To   time.Time `validate:"required"`
}

func (q ExportCalendarQuery) Key() string { return exportCalendarKey }

// ExportCalendarHandler prices every active plan for each night of the window and
// uploads the result as CSV.
type ExportCalendarHandler struct {
	Logger     *slog.Logger
	UoWFactory uow.UoWFactory
	Store      policies.ObjectStore
	NewID      func() string
}

func (h *ExportCalendarHandler) Handle(ctx context.Context, q ExportCalendarQuery) (dto.CalendarExport, error) {
	var zero dto.CalendarExport
	if h.Store == nil {
		return zero, ErrExportUnavailable
	}
	window, err := daterange.New(q.From, q.To)
	if err != nil {
		return zero, middleware.NewInputError("to", "must be after from")
	}
	if window.Nights() > MaxExportNights {
		return zero, middleware.NewInputError("to", fmt.Sprintf("window must not exceed %d nights", MaxExportNights))
	}

	unit, execCtx, cleanup, err := handlersupport.BeginReadOnlyUnit(ctx, h.UoWFactory)
	if err != nil {
		return zero, err
	}
	if cleanup != nil {
		defer cleanup()
	}

	property, err := unit.Properties().ByID(execCtx, q.property())
	if err != nil {
		return zero, err
	}
	plans, err := unit.RatePlans().ListByProperty(execCtx, property.ID, domainrateplans.ListFilter{OverridesWithin: &window})
	if err != nil {
		return zero, err
	}
	snapshot := domainpricing.NewSnapshot(property.ID, property.Currency, plans)

	body, rows, skipped := h.render(domainpricing.NewCalculator(snapshot), snapshot, window)

	newID := h.NewID
	if newID == nil {
		newID = uuid.NewString
	}
	key := fmt.Sprintf("exports/%s/%s_%s_%s.csv", property.ID, daterange.Key(window.CheckIn), daterange.Key(window.CheckOut), newID())
	url, err := h.Store.Put(execCtx, key, "text/csv", body)
	if err != nil {
		return zero, err
	}

	if h.Logger != nil {
		h.Logger.Info("rate calendar exported", "property_id", property.ID, "rows", rows, "skipped_plans", skipped, "key", key)
	}
	return dto.CalendarExport{
		PropertyID: string(property.ID),
		From:       daterange.Key(window.CheckIn),
		To:         daterange.Key(window.CheckOut),
		Key:        key,
		URL:        url,
		Rows:       rows,
		Skipped:    skipped,
	}, nil
}

// render writes one row per plan and night. A plan failing on any night is left out entirely.
func (h *ExportCalendarHandler) render(calc *domainpricing.Calculator, snapshot *domainpricing.Snapshot, window daterange.DateRange) ([]byte, int, int) {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	_ = w.Write(exportHeader)

	rows, skipped := 0, 0
	for _, plan := range snapshot.Candidates() {
		stay, err := calc.PriceForStay(plan, window)
		if err != nil {
			skipped++
			if h.Logger != nil {
				h.Logger.Warn("rate plan skipped in export", "rate_plan_id", plan.ID, "error", err)
			}
			continue
		}
		for _, night := range stay.Nights {
			_ = w.Write([]string{
				string(plan.ID),
				plan.Name,
				daterange.Key(night.Date),
				night.Date.Weekday().String(),
				night.Amount.StringFixed(money.DisplayPlaces),
				stay.Total.Currency,
				strconv.FormatBool(night.Overridden),
			})
			rows++
		}
	}
	w.Flush()
	return buf.Bytes(), rows, skipped
}

var _ queries.Handler[ExportCalendarQuery, dto.CalendarExport] = (*ExportCalendarHandler)(nil)
