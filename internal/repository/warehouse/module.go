package warehouse

import "go.uber.org/fx"

// Module provides the warehouse repository to Fx.
var Module = fx.Provide(NewRepository)
