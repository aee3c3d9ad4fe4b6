package main

import (
	"context"
	"log/slog"
	"net/http"

	"rateplans/internal/app/commands"
	availabilityapp "rateplans/internal/app/handlers/availability"
	propertiesapp "rateplans/internal/app/handlers/properties"
	rateplansapp "rateplans/internal/app/handlers/rateplans"
	refundsapp "rateplans/internal/app/handlers/refunds"
	searchapp "rateplans/internal/app/handlers/search"
	"rateplans/internal/app/middleware"
	appoutbox "rateplans/internal/app/outbox"
	"rateplans/internal/app/queries"
	domainpricing "rateplans/internal/domain/pricing"
	"rateplans/internal/infra/cache"
	"rateplans/internal/infra/config"
	ginserver "rateplans/internal/infra/http/gin"
	"rateplans/internal/infra/obs"
)

type application struct {
	handlers ginserver.Handlers
	commands commands.Bus
	queries  queries.Bus
}

// buildApplication registers every handler on the buses and wraps them in the
// middleware chains. Commands: instrumentation, ownership, validation,
// per-property lock, idempotency, transaction, outbox flush.
func buildApplication(cfg config.Config, infra *infrastructure, logger *slog.Logger, metrics *obs.Metrics, metricsHandler http.Handler) application {
	factory := infra.factory
	encoder := appoutbox.JSONEventEncoder{Headers: correlationHeaders}
	availability := availabilityapp.CalendarAvailability{UoWFactory: factory}

	commandBus := commands.NewInMemoryBus()
	commands.RegisterHandler(commandBus, rateplansapp.CreateRatePlanCommand{}.Key(), &rateplansapp.CreateRatePlanHandler{
		Logger:     logger,
		UoWFactory: factory,
		Outbox:     infra.outbox,
		Encoder:    encoder,
	})
	commands.RegisterHandler(commandBus, rateplansapp.UpdateRatePlanCommand{}.Key(), &rateplansapp.UpdateRatePlanHandler{
		Logger:     logger,
		UoWFactory: factory,
		Outbox:     infra.outbox,
		Encoder:    encoder,
	})
	commands.RegisterHandler(commandBus, rateplansapp.DeleteRatePlanCommand{}.Key(), &rateplansapp.DeleteRatePlanHandler{
		Logger:     logger,
		UoWFactory: factory,
		Outbox:     infra.outbox,
		Encoder:    encoder,
		Observer:   metrics,
	})
	commands.RegisterHandler(commandBus, rateplansapp.SetOverridesCommand{}.Key(), &rateplansapp.SetOverridesHandler{
		Logger:     logger,
		UoWFactory: factory,
		Outbox:     infra.outbox,
		Encoder:    encoder,
	})
	commands.RegisterHandler(commandBus, rateplansapp.ClearOverrideCommand{}.Key(), &rateplansapp.ClearOverrideHandler{
		Logger:     logger,
		UoWFactory: factory,
		Outbox:     infra.outbox,
		Encoder:    encoder,
	})
	commands.RegisterHandler(commandBus, availabilityapp.ApplyCalendarEventCommand{}.Key(), &availabilityapp.ApplyCalendarEventHandler{
		Logger:     logger,
		UoWFactory: factory,
	})

	queryBus := queries.NewInMemoryBus()
	queries.RegisterHandler(queryBus, rateplansapp.ListRatePlansQuery{}.Key(), &rateplansapp.ListRatePlansHandler{
		UoWFactory: factory,
		Logger:     logger,
	})
	queries.RegisterHandler(queryBus, rateplansapp.GetRatePlanQuery{}.Key(), &rateplansapp.GetRatePlanHandler{
		UoWFactory: factory,
	})
	queries.RegisterHandler(queryBus, rateplansapp.ExportCalendarQuery{}.Key(), &rateplansapp.ExportCalendarHandler{
		Logger:     logger,
		UoWFactory: factory,
		Store:      infra.objects,
	})
	queries.RegisterHandler(queryBus, searchapp.SearchRatesQuery{}.Key(), &searchapp.SearchRatesHandler{
		Logger:       logger,
		UoWFactory:   factory,
		Availability: availability,
		Observer:     metrics,
		Engine:       domainpricing.Engine{MaxGoroutines: cfg.SearchConcurrency},
		MaxGuests:    cfg.MaxGuests,
	})
	queries.RegisterHandler(queryBus, refundsapp.CalculateRefundQuery{}.Key(), &refundsapp.CalculateRefundHandler{
		Logger:     logger,
		UoWFactory: factory,
		Observer:   metrics,
	})
	queries.RegisterHandler(queryBus, availabilityapp.UnavailableDatesQuery{}.Key(), &availabilityapp.UnavailableDatesHandler{
		Availability: availability,
	})

	ownership := cache.NewOwnershipCache(propertiesapp.OwnershipChecker{UoWFactory: factory}, cfg.OwnershipCacheTTL)
	authorizer := middleware.OwnershipAuthorizer{Ownership: ownership}
	validator := middleware.NewStructValidator()

	commandBusWithMiddleware := middleware.ChainCommands(
		commandBus,
		middleware.Instrumentation(metrics),
		middleware.Authorization(authorizer),
		middleware.Validation(validator),
		middleware.Serialization(infra.locker),
		middleware.Idempotency(infra.idempotency, nil),
		middleware.Transaction(factory, nil),
		middleware.OutboxFlush(infra.outbox),
	)
	queryBusWithMiddleware := middleware.ChainQueries(
		queryBus,
		middleware.QueryInstrumentation(metrics),
		middleware.QueryAuthorization(authorizer),
		middleware.QueryValidation(validator),
		middleware.ReadSnapshot(factory),
	)

	return application{
		handlers: ginserver.Handlers{
			RatePlans: ginserver.RatePlanHandler{
				Commands: commandBusWithMiddleware,
				Queries:  queryBusWithMiddleware,
				Logger:   logger,
			},
			Search:         ginserver.SearchHandler{Queries: queryBusWithMiddleware, Logger: logger},
			Refunds:        ginserver.RefundHandler{Queries: queryBusWithMiddleware, Logger: logger},
			Availability:   ginserver.AvailabilityHandler{Queries: queryBusWithMiddleware, Logger: logger},
			Metrics:        metricsHandler,
			AuthMiddleware: ginserver.AuthMiddleware{Tokens: cfg.HostAPITokens, Logger: logger}.Handle,
		},
		commands: commandBusWithMiddleware,
		queries:  queryBusWithMiddleware,
	}
}

// correlationHeaders ties outbox records to the HTTP request that caused them.
func correlationHeaders(ctx context.Context) map[string]string {
	id := obs.RequestIDFromContext(ctx)
	if id == "" {
		return nil
	}
	return map[string]string{"request_id": id}
}
