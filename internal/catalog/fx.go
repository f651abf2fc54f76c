package catalog

import (
	"github.com/smallbiznis/garagedesk/internal/catalog/domain"
	"github.com/smallbiznis/garagedesk/internal/catalog/repository"
	"github.com/smallbiznis/garagedesk/internal/catalog/service"
	"github.com/smallbiznis/garagedesk/internal/pricing"
	"go.uber.org/fx"
)

var Module = fx.Module("catalog.service",
	fx.Provide(repository.Provide),
	fx.Provide(service.New),
	fx.Provide(func(svc domain.Service) pricing.Catalog { return svc }),
)
