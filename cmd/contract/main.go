package main

import (
	"os"

	"go.uber.org/fx"
	"go.uber.org/fx/fxevent"
	"go.uber.org/zap"

	"contract-lifecycle/pkg/accesscontrol"
	"contract-lifecycle/pkg/config"
	"contract-lifecycle/pkg/db"
	"contract-lifecycle/pkg/featureflags"
	"contract-lifecycle/pkg/gen"
	"contract-lifecycle/pkg/hashistack/secretmanager"
	"contract-lifecycle/pkg/hashistack/servicediscover"
	"contract-lifecycle/pkg/health"
	"contract-lifecycle/pkg/logger"
	"contract-lifecycle/pkg/middleware"
	"contract-lifecycle/pkg/otelcol"
	"contract-lifecycle/pkg/profiling"
	"contract-lifecycle/pkg/redis"
	"contract-lifecycle/pkg/sequence"
	"contract-lifecycle/pkg/server"
	"contract-lifecycle/pkg/task"
	"contract-lifecycle/services/bootstrap"
	"contract-lifecycle/services/contract"
)

func main() {
	opts := []fx.Option{
		config.Select(),
		logger.Module,
		otelcol.Module,
		profiling.Module,
		db.Module,
		redis.Module,
		gen.Module,
		sequence.Module,
		task.Client,
		featureflags.Module,
		accesscontrol.Module,
		middleware.Module,
		health.Module,
		contract.Module,
		bootstrap.Module,
		server.ProvideHTTPServer,
		server.ProvideGRPCServer,
		contract.API,
		servicediscover.Module,
		fxLogger,
	}

	// Vault feeds secrets into config when the environment points at one.
	if os.Getenv("VAULT_ADDR") != "" || os.Getenv("REMOTE_CONFIG_PROVIDER") != "" {
		opts = append(opts, secretmanager.Module)
	}
	if os.Getenv("MINIO_ENDPOINT") != "" {
		opts = append(opts, contract.Documents)
	}

	app := fx.New(opts...)
	app.Run()
}

var fxLogger = fx.WithLogger(func(cfg *config.Config, logger *zap.Logger) fxevent.Logger {
	if cfg.AppEnv == "development" {
		return &fxevent.ZapLogger{Logger: logger}
	}
	return fxevent.NopLogger
})
