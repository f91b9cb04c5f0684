package school

import "go.uber.org/fx"

// Module provides the school service to Fx.
var Module = fx.Provide(NewService)
