package assignment

import "go.uber.org/fx"

// Module provides the assignment service to Fx.
var Module = fx.Provide(NewService)
