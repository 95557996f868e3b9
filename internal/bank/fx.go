package bank

import (
	"github.com/novahq/nova/internal/bank/service"
	"go.uber.org/fx"
)

var Module = fx.Module("bank.service",
	fx.Provide(service.NewService),
)
