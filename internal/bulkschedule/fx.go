package bulkschedule

import (
	"github.com/novahq/nova/internal/bulkschedule/service"
	"go.uber.org/fx"
)

var Module = fx.Module("bulkschedule.service",
	fx.Provide(service.NewService),
)
