package vendors

import (
	"github.com/novahq/nova/internal/vendors/service"
	"go.uber.org/fx"
)

var Module = fx.Module("vendor.service",
	fx.Provide(service.NewService),
)
