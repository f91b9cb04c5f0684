package supervisor

import "go.uber.org/fx"

// Module provides the supervisor repository to Fx.
var Module = fx.Provide(NewRepository)
