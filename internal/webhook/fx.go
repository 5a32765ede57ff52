package webhook

import (
	"github.com/smallbiznis/payrail/internal/webhook/adapters"
	"github.com/smallbiznis/payrail/internal/webhook/adapters/razorpay"
	"github.com/smallbiznis/payrail/internal/webhook/repository"
	"github.com/smallbiznis/payrail/internal/webhook/service"
	"go.uber.org/fx"
)

var Module = fx.Module("webhook.service",
	fx.Provide(repository.Provide),
	fx.Provide(func() *adapters.Registry {
		return adapters.NewRegistry(
			razorpay.NewFactory(),
		)
	}),
	fx.Provide(service.NewService),
)
