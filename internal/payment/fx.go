package payment

import (
	"github.com/smallbiznis/garagedesk/internal/payment/adapters/stripe"
	"github.com/smallbiznis/garagedesk/internal/payment/domain"
	"github.com/smallbiznis/garagedesk/internal/payment/repository"
	paymentservice "github.com/smallbiznis/garagedesk/internal/payment/service"
	"go.uber.org/fx"
)

var Module = fx.Module("payment.service",
	fx.Provide(repository.Provide),
	fx.Provide(stripe.New),
	fx.Provide(
		func(a *stripe.Adapter) domain.Provider { return a },
		func(a *stripe.Adapter) domain.WebhookParser { return a },
	),
	fx.Provide(paymentservice.New),
)
