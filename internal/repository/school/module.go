package school

import "go.uber.org/fx"

// Module provides the school repository to Fx.
var Module = fx.Provide(NewRepository)
