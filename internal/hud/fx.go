package hud

import (
	"github.com/smallbiznis/memberhud/internal/hud/domain"
	"github.com/smallbiznis/memberhud/internal/hud/repository"
	"github.com/smallbiznis/memberhud/internal/hud/service"
	"go.uber.org/fx"
)

var Module = fx.Module("hud.service",
	fx.Provide(repository.Provide),
	fx.Provide(service.New),
	fx.Provide(func(svc domain.Service) domain.Syncer { return svc }),
)
