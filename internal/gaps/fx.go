package gaps

import (
	"github.com/novahq/nova/internal/gaps/service"
	"go.uber.org/fx"
)

var Module = fx.Module("gaps.service",
	fx.Provide(service.NewService),
)
