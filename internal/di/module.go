package di

import (
	"github.com/polkiloo/eshop/internal/adapter/paypal"
	"github.com/polkiloo/eshop/internal/app"
	"github.com/polkiloo/eshop/internal/config"
	"github.com/polkiloo/eshop/internal/logger"
	"github.com/polkiloo/eshop/internal/server/http/handlers"
	"github.com/polkiloo/eshop/internal/server/http/router"
	"github.com/polkiloo/eshop/internal/storage/postgres"
	"github.com/polkiloo/eshop/internal/usecase"
	"go.uber.org/fx"
)

func Module(opts ...fx.Option) fx.Option {
	modules := []fx.Option{
		config.Module,
		logger.Module,
		postgres.Module,
		paypal.Module,
		usecase.Module,
		fx.Provide(func(g paypal.Gateway) usecase.PaymentGateway { return g }),
		fx.Provide(func(f *app.CheckoutFacade) handlers.CheckoutFacade { return f }),
		router.Module,
		app.Module,
	}
	modules = append(modules, opts...)
	return fx.Options(modules...)
}
