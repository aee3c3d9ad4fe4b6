package ginserver

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-contrib/cors"
	gin "github.com/gin-gonic/gin"

	"rateplans/internal/infra/config"
	"rateplans/internal/infra/obs"
)

type RatePlanHTTP interface {
	List(c *gin.Context)
	Create(c *gin.Context)
	Get(c *gin.Context)
	Update(c *gin.Context)
	Delete(c *gin.Context)
	SetOverrides(c *gin.Context)
	ClearOverride(c *gin.Context)
	Export(c *gin.Context)
}

type SearchHTTP interface {
	Rates(c *gin.Context)
}

type RefundHTTP interface {
	Calculate(c *gin.Context)
}

type AvailabilityHTTP interface {
	UnavailableDates(c *gin.Context)
}

type Handlers struct {
	RatePlans      RatePlanHTTP
	Search         SearchHTTP
	Refunds        RefundHTTP
	Availability   AvailabilityHTTP
	Metrics        http.Handler
	AuthMiddleware gin.HandlerFunc
}

func NewServer(cfg config.Config, obsMW obs.Middleware, health obs.HealthHandlers, h Handlers) *http.Server {
	mode := configureGinMode(cfg.Env)
	if obsMW.Logger != nil {
		obsMW.Logger.Info("gin initialized", "mode", mode)
	}
	return &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           NewRouter(cfg, obsMW, health, h),
		ReadHeaderTimeout: 10 * time.Second,
	}
}

// NewRouter builds the routing tree without binding it to a listener.
func NewRouter(cfg config.Config, obsMW obs.Middleware, health obs.HealthHandlers, h Handlers) *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(obsMW.RequestID())
	router.Use(obsMW.LoggerMiddleware())
	router.Use(cors.New(corsConfig(cfg.CORSOrigins)))
	if h.AuthMiddleware != nil {
		router.Use(h.AuthMiddleware)
	}

	router.GET("/livez", health.Livez)
	router.GET("/readyz", health.Readyz)
	if h.Metrics != nil {
		router.GET("/metrics", gin.WrapH(h.Metrics))
	}

	api := router.Group("/api/v1")
	if h.Search != nil {
		api.GET("/properties/:propertyId/rates", h.Search.Rates)
	}
	if h.Availability != nil {
		api.GET("/properties/:propertyId/unavailable-dates", h.Availability.UnavailableDates)
	}
	if h.Refunds != nil {
		api.GET("/reservations/:reservationId/refund", h.Refunds.Calculate)
	}
	if h.RatePlans != nil {
		hostGroup := api.Group("/host/properties/:propertyId")
		hostGroup.GET("/rate-plans", h.RatePlans.List)
		hostGroup.POST("/rate-plans", h.RatePlans.Create)
		hostGroup.POST("/rate-plans/export", h.RatePlans.Export)
		hostGroup.GET("/rate-plans/:ratePlanId", h.RatePlans.Get)
		hostGroup.PUT("/rate-plans/:ratePlanId", h.RatePlans.Update)
		hostGroup.DELETE("/rate-plans/:ratePlanId", h.RatePlans.Delete)
		hostGroup.PUT("/rate-plans/:ratePlanId/overrides", h.RatePlans.SetOverrides)
		hostGroup.DELETE("/rate-plans/:ratePlanId/overrides/:date", h.RatePlans.ClearOverride)
	}
	return router
}

func corsConfig(origins []string) cors.Config {
	cfg := cors.Config{
		AllowMethods: []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowHeaders: []string{"Origin", "Content-Type", "Accept", "Authorization", "Idempotency-Key"},
		ExposeHeaders: []string{
			"Content-Length",
			"Content-Type",
			"X-Request-ID",
		},
		MaxAge: 12 * time.Hour,
	}
	cleaned := make([]string, 0, len(origins))
	for _, o := range origins {
		if o = strings.TrimSpace(o); o != "" {
			cleaned = append(cleaned, o)
		}
	}
	if len(cleaned) == 0 || (len(cleaned) == 1 && cleaned[0] == "*") {
		cfg.AllowAllOrigins = true
		return cfg
	}
	cfg.AllowOrigins = cleaned
	return cfg
}

func configureGinMode(env string) string {
	switch strings.ToLower(strings.TrimSpace(env)) {
	case "debug":
		gin.SetMode(gin.DebugMode)
		return gin.DebugMode
	case "test", "testing":
		gin.SetMode(gin.TestMode)
		return gin.TestMode
	default:
		gin.SetMode(gin.ReleaseMode)
		return gin.ReleaseMode
	}
}
