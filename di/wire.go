//go:build wireinject
// +build wireinject

package di

import (
	"github.com/google/wire"

	"unibook/config"
	"unibook/infras/jwt"
	"unibook/infras/kafka"
	"unibook/infras/otel"
	"unibook/infras/postgres"
	"unibook/infras/redis"
	"unibook/internal/notifier"
	"unibook/shared/cache"
	"unibook/transport/http"
	"unibook/transport/http/middleware"
	"unibook/transport/http/router"

	bookingRepository "unibook/internal/domains/booking/repository"
	bookingService "unibook/internal/domains/booking/service"
	requestRepository "unibook/internal/domains/request/repository"
	requestService "unibook/internal/domains/request/service"
	slotRepository "unibook/internal/domains/slot/repository"
	slotService "unibook/internal/domains/slot/service"
	templateRepository "unibook/internal/domains/template/repository"
	templateService "unibook/internal/domains/template/service"
	userRepository "unibook/internal/domains/user/repository"

	bookingHandler "unibook/internal/handlers/booking"
	healthHandler "unibook/internal/handlers/health"
	requestHandler "unibook/internal/handlers/request"
	slotHandler "unibook/internal/handlers/slot"
	templateHandler "unibook/internal/handlers/template"
)

var configurations = wire.NewSet(
	config.Get,
)

var infrastructures = wire.NewSet(
	postgres.New,
	postgres.NewTxer,
	otel.New,
	redis.New,
	jwt.New,
	kafka.New,
)

var middlewares = wire.NewSet(
	middleware.NewAppMiddleware,
	middleware.NewAuthMiddleware,
)

var sharedHelpers = wire.NewSet(
	cache.NewRedisCache,
	notifier.New,
)

var templateDomain = wire.NewSet(
	templateRepository.New,
	templateService.New,
)

var slotDomain = wire.NewSet(
	slotRepository.New,
	slotService.New,
)

var requestDomain = wire.NewSet(
	requestRepository.New,
	requestService.New,
)

var bookingDomain = wire.NewSet(
	bookingRepository.New,
	bookingService.New,
)

var userDomain = wire.NewSet(
	userRepository.New,
)

var domains = wire.NewSet(
	templateDomain,
	slotDomain,
	requestDomain,
	bookingDomain,
	userDomain,
)

var routing = wire.NewSet(
	wire.Struct(new(router.DomainHandlers), "*"),
	healthHandler.New,
	templateHandler.New,
	slotHandler.New,
	requestHandler.New,
	bookingHandler.New,
	router.New,
)

func InitializeService() *http.HTTP {
	wire.Build(
		configurations,
		infrastructures,
		middlewares,
		sharedHelpers,
		domains,
		routing,
		http.New,
	)

	return &http.HTTP{}
}
