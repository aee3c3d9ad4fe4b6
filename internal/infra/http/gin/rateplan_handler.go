package ginserver

import (
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	gin "github.com/gin-gonic/gin"
	"github.com/samber/lo"
	"github.com/shopspring/decimal"

	"rateplans/internal/app/commands"
	"rateplans/internal/app/dto"
	rateplansapp "rateplans/internal/app/handlers/rateplans"
	"rateplans/internal/app/middleware"
	"rateplans/internal/app/queries"
	"rateplans/internal/domain/shared/daterange"
)

type RatePlanHandler struct {
	Commands commands.Bus
	Queries  queries.Bus
	Logger   *slog.Logger
}

type restrictionRequest struct {
	Type      string  `json:"type"`
	Value     *int    `json:"value"`
	StartDate *string `json:"start_date"`
	EndDate   *string `json:"end_date"`
}

type tierRequest struct {
	DaysBeforeCheckIn int             `json:"days_before_check_in"`
	RefundPercentage  decimal.Decimal `json:"refund_percentage"`
	Description       string          `json:"description"`
}

type cancellationPolicyRequest struct {
	Name        string        `json:"name"`
	Description string        `json:"description"`
	Tiers       []tierRequest `json:"tiers"`
}

type ratePlanRequest struct {
	Name                 string                     `json:"name"`
	Description          string                     `json:"description"`
	AdjustmentType       string                     `json:"adjustment_type"`
	AdjustmentValue      decimal.Decimal            `json:"adjustment_value"`
	BaseRatePlanID       string                     `json:"base_rate_plan_id"`
	Priority             int                        `json:"priority"`
	AllowConcurrentRates bool                       `json:"allow_concurrent_rates"`
	ActiveDays           []int                      `json:"active_days"`
	IncludesBreakfast    bool                       `json:"includes_breakfast"`
	IsActive             *bool                      `json:"is_active"`
	Restrictions         []restrictionRequest       `json:"restrictions"`
	CancellationPolicy   *cancellationPolicyRequest `json:"cancellation_policy"`
}

type overrideRequest struct {
	Date   string          `json:"date"`
	Amount decimal.Decimal `json:"amount"`
}

type overridesRequest struct {
	Overrides []overrideRequest `json:"overrides"`
}

func (h RatePlanHandler) List(c *gin.Context) {
	p, ok := requireHost(c)
	if !ok {
		return
	}
	onlyActive, _ := strconv.ParseBool(c.Query("active"))
	query := rateplansapp.ListRatePlansQuery{Scope: scopeOf(c, p), OnlyActive: onlyActive}
	result, err := queries.Ask[rateplansapp.ListRatePlansQuery, dto.RatePlanList](c.Request.Context(), h.Queries, query)
	if err != nil {
		h.handleError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

func (h RatePlanHandler) Create(c *gin.Context) {
	p, ok := requireHost(c)
	if !ok {
		return
	}
	var req ratePlanRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request payload"})
		return
	}
	input, err := req.toInput()
	if err != nil {
		h.handleError(c, err)
		return
	}
	cmd := rateplansapp.CreateRatePlanCommand{
		Scope:      scopeOf(c, p),
		RequestKey: strings.TrimSpace(c.GetHeader("Idempotency-Key")),
		Input:      input,
	}
	result, err := commands.Dispatch[rateplansapp.CreateRatePlanCommand, *dto.RatePlan](c.Request.Context(), h.Commands, cmd)
	if err != nil {
		h.handleError(c, err)
		return
	}
	c.JSON(http.StatusCreated, result)
}

func (h RatePlanHandler) Get(c *gin.Context) {
	p, ok := requireHost(c)
	if !ok {
		return
	}
	query := rateplansapp.GetRatePlanQuery{Scope: scopeOf(c, p), RatePlanID: c.Param("ratePlanId")}
	result, err := queries.Ask[rateplansapp.GetRatePlanQuery, dto.RatePlan](c.Request.Context(), h.Queries, query)
	if err != nil {
		h.handleError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

func (h RatePlanHandler) Update(c *gin.Context) {
	p, ok := requireHost(c)
	if !ok {
		return
	}
	var req ratePlanRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request payload"})
		return
	}
	input, err := req.toInput()
	if err != nil {
		h.handleError(c, err)
		return
	}
	cmd := rateplansapp.UpdateRatePlanCommand{Scope: scopeOf(c, p), RatePlanID: c.Param("ratePlanId"), Input: input}
	result, err := commands.Dispatch[rateplansapp.UpdateRatePlanCommand, *dto.RatePlan](c.Request.Context(), h.Commands, cmd)
	if err != nil {
		h.handleError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

func (h RatePlanHandler) Delete(c *gin.Context) {
	p, ok := requireHost(c)
	if !ok {
		return
	}
	cmd := rateplansapp.DeleteRatePlanCommand{Scope: scopeOf(c, p), RatePlanID: c.Param("ratePlanId")}
	result, err := commands.Dispatch[rateplansapp.DeleteRatePlanCommand, *dto.RatePlanDeletion](c.Request.Context(), h.Commands, cmd)
	if err != nil {
		h.handleError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

func (h RatePlanHandler) SetOverrides(c *gin.Context) {
	p, ok := requireHost(c)
	if !ok {
		return
	}
	var req overridesRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request payload"})
		return
	}
	overrides := make([]rateplansapp.OverrideInput, 0, len(req.Overrides))
	for i, o := range req.Overrides {
		day, err := daterange.ParseKey(o.Date)
		if err != nil {
			respondBadRequest(c, "overrides["+strconv.Itoa(i)+"].date", "must be a YYYY-MM-DD date")
			return
		}
		overrides = append(overrides, rateplansapp.OverrideInput{Date: day, Amount: o.Amount})
	}
	cmd := rateplansapp.SetOverridesCommand{Scope: scopeOf(c, p), RatePlanID: c.Param("ratePlanId"), Overrides: overrides}
	result, err := commands.Dispatch[rateplansapp.SetOverridesCommand, *dto.RatePlan](c.Request.Context(), h.Commands, cmd)
	if err != nil {
		h.handleError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

func (h RatePlanHandler) ClearOverride(c *gin.Context) {
	p, ok := requireHost(c)
	if !ok {
		return
	}
	day, err := daterange.ParseKey(c.Param("date"))
	if err != nil {
		respondBadRequest(c, "date", "must be a YYYY-MM-DD date")
		return
	}
	cmd := rateplansapp.ClearOverrideCommand{Scope: scopeOf(c, p), RatePlanID: c.Param("ratePlanId"), Date: day}
	result, err := commands.Dispatch[rateplansapp.ClearOverrideCommand, *dto.RatePlan](c.Request.Context(), h.Commands, cmd)
	if err != nil {
		h.handleError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

func (h RatePlanHandler) Export(c *gin.Context) {
	p, ok := requireHost(c)
	if !ok {
		return
	}
	from, err := daterange.ParseKey(c.Query("from"))
	if err != nil {
		respondBadRequest(c, "from", "must be a YYYY-MM-DD date")
		return
	}
	to, err := daterange.ParseKey(c.Query("to"))
	if err != nil {
		respondBadRequest(c, "to", "must be a YYYY-MM-DD date")
		return
	}
	query := rateplansapp.ExportCalendarQuery{Scope: scopeOf(c, p), From: from, To: to}
	result, err := queries.Ask[rateplansapp.ExportCalendarQuery, dto.CalendarExport](c.Request.Context(), h.Queries, query)
	if err != nil {
		h.handleError(c, err)
		return
	}
	c.JSON(http.StatusCreated, result)
}

func (h RatePlanHandler) handleError(c *gin.Context, err error) {
	handleError(c, h.Logger, err)
}

func scopeOf(c *gin.Context, p principal) rateplansapp.Scope {
	return rateplansapp.Scope{HostID: p.HostID, PropertyID: c.Param("propertyId")}
}

func (r ratePlanRequest) toInput() (rateplansapp.RatePlanInput, error) {
	fields := map[string]string{}
	restrictions := make([]rateplansapp.RestrictionInput, 0, len(r.Restrictions))
	for i, rr := range r.Restrictions {
		prefix := "restrictions[" + strconv.Itoa(i) + "]."
		start, err := optionalDay(rr.StartDate)
		if err != nil {
			fields[prefix+"start_date"] = "must be a YYYY-MM-DD date"
		}
		end, err := optionalDay(rr.EndDate)
		if err != nil {
			fields[prefix+"end_date"] = "must be a YYYY-MM-DD date"
		}
		restrictions = append(restrictions, rateplansapp.RestrictionInput{Type: rr.Type, Value: rr.Value, StartDate: start, EndDate: end})
	}
	if len(fields) > 0 {
		return rateplansapp.RatePlanInput{}, &middleware.InputError{Fields: fields}
	}

	input := rateplansapp.RatePlanInput{
		Name:                 r.Name,
		Description:          r.Description,
		AdjustmentType:       r.AdjustmentType,
		AdjustmentValue:      r.AdjustmentValue,
		BaseRatePlanID:       r.BaseRatePlanID,
		Priority:             r.Priority,
		AllowConcurrentRates: r.AllowConcurrentRates,
		ActiveDays:           r.ActiveDays,
		IncludesBreakfast:    r.IncludesBreakfast,
		IsActive:             r.IsActive,
		Restrictions:         restrictions,
	}
	if r.CancellationPolicy != nil {
		input.CancellationPolicy = &rateplansapp.CancellationPolicyInput{
			Name:        r.CancellationPolicy.Name,
			Description: r.CancellationPolicy.Description,
			Tiers: lo.Map(r.CancellationPolicy.Tiers, func(t tierRequest, _ int) rateplansapp.TierInput {
				return rateplansapp.TierInput{
					DaysBeforeCheckIn: t.DaysBeforeCheckIn,
					RefundPercentage:  t.RefundPercentage,
					Description:       t.Description,
				}
			}),
		}
	}
	return input, nil
}

// optionalDay parses an optional calendar date. Empty strings count as absent.
func optionalDay(raw *string) (*time.Time, error) {
	if raw == nil || strings.TrimSpace(*raw) == "" {
		return nil, nil
	}
	day, err := daterange.ParseKey(strings.TrimSpace(*raw))
	if err != nil {
		return nil, err
	}
	return &day, nil
}

var _ RatePlanHTTP = RatePlanHandler{}
