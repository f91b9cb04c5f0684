package http

import (
	"go.uber.org/fx"

	assignmenttransport "github.com/abasto-labs/abasto/internal/transport/http/assignment"
	authtransport "github.com/abasto-labs/abasto/internal/transport/http/auth"
	dashboardtransport "github.com/abasto-labs/abasto/internal/transport/http/dashboard"
	ordertransport "github.com/abasto-labs/abasto/internal/transport/http/order"
	producttransport "github.com/abasto-labs/abasto/internal/transport/http/product"
	publictransport "github.com/abasto-labs/abasto/internal/transport/http/public"
	schooltransport "github.com/abasto-labs/abasto/internal/transport/http/school"
	supervisortransport "github.com/abasto-labs/abasto/internal/transport/http/supervisor"
	warehousetransport "github.com/abasto-labs/abasto/internal/transport/http/warehouse"
)

// Module aggregates all HTTP transport handlers.
var Module = fx.Options(
	authtransport.Module,
	publictransport.Module,
	ordertransport.Module,
	producttransport.Module,
	warehousetransport.Module,
	schooltransport.Module,
	supervisortransport.Module,
	assignmenttransport.Module,
	dashboardtransport.Module,
)
