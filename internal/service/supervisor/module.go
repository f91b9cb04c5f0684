package supervisor

import "go.uber.org/fx"

// Module provides the supervisor service to Fx.
var Module = fx.Provide(NewService)
