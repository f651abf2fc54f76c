package appointment

import (
	"github.com/smallbiznis/garagedesk/internal/appointment/repository"
	"github.com/smallbiznis/garagedesk/internal/appointment/service"
	"go.uber.org/fx"
)

var Module = fx.Module("appointment.service",
	fx.Provide(repository.Provide),
	fx.Provide(service.New),
)
