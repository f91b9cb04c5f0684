package app

import (
	"go.uber.org/fx"

	"github.com/abasto-labs/abasto/internal/auth"
	"github.com/abasto-labs/abasto/internal/cache"
	"github.com/abasto-labs/abasto/internal/config"
	"github.com/abasto-labs/abasto/internal/database"
	"github.com/abasto-labs/abasto/internal/logger"
	"github.com/abasto-labs/abasto/internal/messaging"
	"github.com/abasto-labs/abasto/internal/notifier"
	"github.com/abasto-labs/abasto/internal/observability"
	repositoryassignment "github.com/abasto-labs/abasto/internal/repository/assignment"
	repositoryorder "github.com/abasto-labs/abasto/internal/repository/order"
	repositoryproduct "github.com/abasto-labs/abasto/internal/repository/product"
	repositoryschool "github.com/abasto-labs/abasto/internal/repository/school"
	repositorysupervisor "github.com/abasto-labs/abasto/internal/repository/supervisor"
	repositoryuser "github.com/abasto-labs/abasto/internal/repository/user"
	repositorywarehouse "github.com/abasto-labs/abasto/internal/repository/warehouse"
	httpserver "github.com/abasto-labs/abasto/internal/server/http"
	serviceassignment "github.com/abasto-labs/abasto/internal/service/assignment"
	serviceauth "github.com/abasto-labs/abasto/internal/service/auth"
	servicedashboard "github.com/abasto-labs/abasto/internal/service/dashboard"
	serviceorder "github.com/abasto-labs/abasto/internal/service/order"
	serviceproduct "github.com/abasto-labs/abasto/internal/service/product"
	serviceschool "github.com/abasto-labs/abasto/internal/service/school"
	servicesupervisor "github.com/abasto-labs/abasto/internal/service/supervisor"
	servicewarehouse "github.com/abasto-labs/abasto/internal/service/warehouse"
	transporthttp "github.com/abasto-labs/abasto/internal/transport/http"
	"github.com/abasto-labs/abasto/internal/worker"
	workerorder "github.com/abasto-labs/abasto/internal/worker/order"
	workerstock "github.com/abasto-labs/abasto/internal/worker/stock"
)

// Core provides the foundational modules shared across executables.
var Core = fx.Options(
	config.Module,
	cache.Module,
	database.Module,
	logger.Module,
	messaging.Module,
	observability.Module,
	notifier.Module,
	repositoryuser.Module,
	repositorywarehouse.Module,
	repositoryproduct.Module,
	repositoryschool.Module,
	repositorysupervisor.Module,
	repositoryassignment.Module,
	repositoryorder.Module,
	serviceauth.Module,
	servicewarehouse.Module,
	serviceproduct.Module,
	serviceschool.Module,
	servicesupervisor.Module,
	serviceassignment.Module,
	serviceorder.Module,
	servicedashboard.Module,
)

// HTTP wires the HTTP transport on top of the core modules.
var HTTP = fx.Options(
	Core,
	auth.Module,
	httpserver.Module,
	transporthttp.Module,
)

// Worker exposes background event processing.
var Worker = fx.Options(
	Core,
	worker.Module,
	workerorder.Module,
	workerstock.Module,
)

// Module is the default application wiring (HTTP only).
var Module = HTTP
