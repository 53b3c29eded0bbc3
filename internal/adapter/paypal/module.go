package paypal

import (
	"log/slog"

	"go.uber.org/fx"

	"github.com/polkiloo/eshop/internal/config"
)

// Module exposes the PayPal gateway implementation to the fx graph.
var Module = fx.Provide(newClient)

type clientParams struct {
	fx.In

	Config *config.Config
	Logger *slog.Logger
}

func newClient(p clientParams) (Gateway, error) {
	return NewHTTPClient(p.Config.PayPalBaseURL, p.Config.PayPalClientID, p.Config.PayPalClientSecret, p.Logger)
}
