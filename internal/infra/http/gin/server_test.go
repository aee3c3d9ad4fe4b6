package ginserver

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	gin "github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"rateplans/internal/app/commands"
	"rateplans/internal/app/dto"
	refundsapp "rateplans/internal/app/handlers/refunds"
	rateplansapp "rateplans/internal/app/handlers/rateplans"
	searchapp "rateplans/internal/app/handlers/search"
	"rateplans/internal/app/middleware"
	"rateplans/internal/app/queries"
	domainrateplans "rateplans/internal/domain/rateplans"
	"rateplans/internal/infra/config"
	"rateplans/internal/infra/lock"
	"rateplans/internal/infra/obs"
)

type stubCommands struct {
	got    []commands.Command
	result any
	err    error
}

func (s *stubCommands) Dispatch(ctx context.Context, cmd commands.Command) (any, error) {
	s.got = append(s.got, cmd)
	return s.result, s.err
}

type stubQueries struct {
	got    []queries.Query
	result any
	err    error
}

func (s *stubQueries) Ask(ctx context.Context, q queries.Query) (any, error) {
	s.got = append(s.got, q)
	return s.result, s.err
}

const hostToken = "tok-host-1"

func newTestRouter(cmds *stubCommands, qs *stubQueries) *gin.Engine {
	gin.SetMode(gin.TestMode)
	return NewRouter(config.Config{Env: "test"}, obs.Middleware{}, obs.HealthHandlers{}, Handlers{
		RatePlans:      RatePlanHandler{Commands: cmds, Queries: qs},
		Search:         SearchHandler{Queries: qs},
		Refunds:        RefundHandler{Queries: qs},
		Availability:   AvailabilityHandler{Queries: qs},
		Metrics:        http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) { _, _ = w.Write([]byte("# metrics")) }),
		AuthMiddleware: AuthMiddleware{Tokens: map[string]string{hostToken: "host-1"}}.Handle,
	})
}

func perform(router http.Handler, method, target, body string, headers map[string]string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func bearer() map[string]string {
	return map[string]string{"Authorization": "Bearer " + hostToken}
}

func TestHostRoutesRequireKnownToken(t *testing.T) {
	cmds, qs := &stubCommands{}, &stubQueries{}
	router := newTestRouter(cmds, qs)

	rec := perform(router, http.MethodGet, "/api/v1/host/properties/villa-1/rate-plans", "", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = perform(router, http.MethodGet, "/api/v1/host/properties/villa-1/rate-plans", "", map[string]string{"Authorization": "Bearer nope"})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Empty(t, qs.got)
}

func TestCreateRatePlanMapsRequest(t *testing.T) {
	cmds := &stubCommands{result: &dto.RatePlan{ID: "rp-9", Name: "Member"}}
	router := newTestRouter(cmds, &stubQueries{})
	body := `{
		"name": "Member",
		"adjustment_type": "Percentage",
		"adjustment_value": "12.5",
		"base_rate_plan_id": "std",
		"priority": 20,
		"active_days": [5, 6],
		"restrictions": [{"type": "SeasonalDateRange", "start_date": "2026-12-01", "end_date": "2026-12-31"}],
		"cancellation_policy": {"name": "Flexible", "tiers": [{"days_before_check_in": 3, "refund_percentage": 100}]}
	}`
	headers := bearer()
	headers["Idempotency-Key"] = "req-1"

	rec := perform(router, http.MethodPost, "/api/v1/host/properties/villa-1/rate-plans", body, headers)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	require.Len(t, cmds.got, 1)
	cmd, ok := cmds.got[0].(rateplansapp.CreateRatePlanCommand)
	require.True(t, ok)
	assert.Equal(t, rateplansapp.Scope{HostID: "host-1", PropertyID: "villa-1"}, cmd.Scope)
	assert.Equal(t, "req-1", cmd.RequestKey)
	assert.Equal(t, "12.5", cmd.Input.AdjustmentValue.String())
	assert.Equal(t, []int{5, 6}, cmd.Input.ActiveDays)
	require.Len(t, cmd.Input.Restrictions, 1)
	assert.Equal(t, time.Date(2026, 12, 31, 0, 0, 0, 0, time.UTC), *cmd.Input.Restrictions[0].EndDate)
	require.NotNil(t, cmd.Input.CancellationPolicy)
	assert.Equal(t, "100", cmd.Input.CancellationPolicy.Tiers[0].RefundPercentage.String())

	var got dto.RatePlan
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	assert.Equal(t, "rp-9", got.ID)
}

func TestCreateRatePlanRejectsMalformedDates(t *testing.T) {
	cmds := &stubCommands{}
	router := newTestRouter(cmds, &stubQueries{})
	body := `{"name": "x", "restrictions": [{"type": "NoArrivals", "start_date": "12/01/2026"}]}`

	rec := perform(router, http.MethodPost, "/api/v1/host/properties/villa-1/rate-plans", body, bearer())
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "restrictions[0].start_date")
	assert.Empty(t, cmds.got)
}

func TestErrorStatusMapping(t *testing.T) {
	blocked := &rateplansapp.DeletionBlockedError{Deletion: dto.RatePlanDeletion{
		RatePlanID: "std",
		Outcome:    string(domainrateplans.DeletionBlocked),
		Details:    dto.DeletionDetails{DerivedRatePlansCount: 1, DerivedRatePlanNames: []string{"Member"}},
	}}
	cases := []struct {
		name   string
		err    error
		status int
		want   string
	}{
		{"validation", &domainrateplans.ValidationError{Problems: []domainrateplans.FieldError{{Field: "priority", Err: domainrateplans.ErrPriorityRange}}}, http.StatusBadRequest, `"priority"`},
		{"input", middleware.NewInputError("name", "is required"), http.StatusBadRequest, `"name"`},
		{"unauthenticated", middleware.ErrUnauthenticated, http.StatusUnauthorized, "principal"},
		{"forbidden", middleware.ErrForbidden, http.StatusForbidden, "not owned"},
		{"not found", fmt.Errorf("load: %w", domainrateplans.ErrRatePlanNotFound), http.StatusNotFound, "not found"},
		{"blocked", blocked, http.StatusConflict, `"derivedRatePlanNames":["Member"]`},
		{"concurrent", domainrateplans.ErrConcurrentUpdate, http.StatusConflict, "concurrent"},
		{"lock timeout", fmt.Errorf("%w: property:villa-1", lock.ErrLockTimeout), http.StatusServiceUnavailable, "timed out"},
		{"unexpected", errors.New("disk on fire"), http.StatusInternalServerError, "disk on fire"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			router := newTestRouter(&stubCommands{err: tc.err}, &stubQueries{})
			rec := perform(router, http.MethodDelete, "/api/v1/host/properties/villa-1/rate-plans/std", "", bearer())
			assert.Equal(t, tc.status, rec.Code)
			assert.Contains(t, rec.Body.String(), tc.want)
			if tc.status == http.StatusServiceUnavailable {
				assert.Equal(t, retryAfterSeconds, rec.Header().Get("Retry-After"))
			}
		})
	}
}

func TestOverrideRoutes(t *testing.T) {
	cmds := &stubCommands{result: &dto.RatePlan{ID: "std"}}
	router := newTestRouter(cmds, &stubQueries{})

	rec := perform(router, http.MethodPut, "/api/v1/host/properties/villa-1/rate-plans/std/overrides",
		`{"overrides": [{"date": "2026-12-24", "amount": "2100"}]}`, bearer())
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	set := cmds.got[0].(rateplansapp.SetOverridesCommand)
	assert.Equal(t, "std", set.RatePlanID)
	assert.Equal(t, time.Date(2026, 12, 24, 0, 0, 0, 0, time.UTC), set.Overrides[0].Date)

	rec = perform(router, http.MethodDelete, "/api/v1/host/properties/villa-1/rate-plans/std/overrides/2026-12-24", "", bearer())
	require.Equal(t, http.StatusOK, rec.Code)
	cleared := cmds.got[1].(rateplansapp.ClearOverrideCommand)
	assert.Equal(t, time.Date(2026, 12, 24, 0, 0, 0, 0, time.UTC), cleared.Date)

	rec = perform(router, http.MethodDelete, "/api/v1/host/properties/villa-1/rate-plans/std/overrides/christmas", "", bearer())
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Len(t, cmds.got, 2)
}

func TestSearchRatesParsesQuery(t *testing.T) {
	qs := &stubQueries{result: dto.RateSearch{PropertyID: "villa-1", Results: []dto.RateSearchResult{}, Message: dto.NoRatesMessage}}
	router := newTestRouter(&stubCommands{}, qs)

	rec := perform(router, http.MethodGet, "/api/v1/properties/villa-1/rates?checkIn=2026-12-20&checkOut=2026-12-23&guests=2&bookingDate=2026-11-01T08:00:00Z", "", nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	q := qs.got[0].(searchapp.SearchRatesQuery)
	assert.Equal(t, "villa-1", q.PropertyID)
	assert.Equal(t, time.Date(2026, 12, 20, 0, 0, 0, 0, time.UTC), q.CheckIn)
	assert.Equal(t, time.Date(2026, 12, 23, 0, 0, 0, 0, time.UTC), q.CheckOut)
	assert.Equal(t, 2, q.Guests)
	require.NotNil(t, q.BookingDate)
	assert.Equal(t, time.Date(2026, 11, 1, 8, 0, 0, 0, time.UTC), *q.BookingDate)
	assert.Contains(t, rec.Body.String(), dto.NoRatesMessage)
}

func TestSearchRatesRejectsBadParameters(t *testing.T) {
	qs := &stubQueries{}
	router := newTestRouter(&stubCommands{}, qs)

	rec := perform(router, http.MethodGet, "/api/v1/properties/villa-1/rates?checkIn=tomorrow&guests=two", "", nil)
	require.Equal(t, http.StatusBadRequest, rec.Code)

	var body struct {
		Fields map[string]string `json:"fields"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Contains(t, body.Fields, "check_in")
	assert.Contains(t, body.Fields, "check_out")
	assert.Contains(t, body.Fields, "guests")
	assert.Empty(t, qs.got)
}

func TestSearchRatesRequiresGuests(t *testing.T) {
	qs := &stubQueries{}
	router := newTestRouter(&stubCommands{}, qs)

	for _, target := range []string{
		"/api/v1/properties/villa-1/rates?checkIn=2030-01-10&checkOut=2030-01-13",
		"/api/v1/properties/villa-1/rates?checkIn=2030-01-10&checkOut=2030-01-13&guests=%20",
	} {
		rec := perform(router, http.MethodGet, target, "", nil)
		require.Equal(t, http.StatusBadRequest, rec.Code, target)

		var body struct {
			Fields map[string]string `json:"fields"`
		}
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
		assert.Equal(t, map[string]string{"guests": "is required"}, body.Fields)
	}
	assert.Empty(t, qs.got)
}

func TestRefundRoute(t *testing.T) {
	qs := &stubQueries{result: dto.Refund{ReservationID: "res-1", RefundAmount: "500.00", RefundPercentage: "50.00"}}
	router := newTestRouter(&stubCommands{}, qs)

	rec := perform(router, http.MethodGet, "/api/v1/reservations/res-1/refund?cancellationDate=2026-12-15", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	q := qs.got[0].(refundsapp.CalculateRefundQuery)
	assert.Equal(t, "res-1", q.ReservationID)
	assert.Equal(t, time.Date(2026, 12, 15, 0, 0, 0, 0, time.UTC), *q.CancellationDate)
	assert.Contains(t, rec.Body.String(), `"refundAmount":"500.00"`)
}

func TestOperationalRoutes(t *testing.T) {
	router := newTestRouter(&stubCommands{}, &stubQueries{})

	assert.Equal(t, http.StatusOK, perform(router, http.MethodGet, "/livez", "", nil).Code)
	assert.Equal(t, http.StatusOK, perform(router, http.MethodGet, "/readyz", "", nil).Code)
	rec := perform(router, http.MethodGet, "/metrics", "", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "# metrics")
	assert.NotEmpty(t, rec.Header().Get("X-Request-ID"))
}

func TestCORSOrigins(t *testing.T) {
	assert.True(t, corsConfig([]string{"*"}).AllowAllOrigins)
	assert.True(t, corsConfig(nil).AllowAllOrigins)
	cfg := corsConfig([]string{" https://host.example ", ""})
	assert.False(t, cfg.AllowAllOrigins)
	assert.Equal(t, []string{"https://host.example"}, cfg.AllowOrigins)
}
