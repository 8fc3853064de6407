package main

import (
	"os"

	"go.uber.org/fx"
	"go.uber.org/fx/fxevent"
	"go.uber.org/zap"

	"contract-lifecycle/pkg/config"
	"contract-lifecycle/pkg/db"
	"contract-lifecycle/pkg/featureflags"
	"contract-lifecycle/pkg/gen"
	"contract-lifecycle/pkg/hashistack/secretmanager"
	"contract-lifecycle/pkg/logger"
	"contract-lifecycle/pkg/otelcol"
	"contract-lifecycle/pkg/profiling"
	"contract-lifecycle/pkg/redis"
	"contract-lifecycle/pkg/sequence"
	"contract-lifecycle/pkg/task"
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
		task.Server,
		featureflags.Module,
		contract.Module,
		contract.Worker,
		contract.Scheduling,
		fxLogger,
	}

	if os.Getenv("VAULT_ADDR") != "" || os.Getenv("REMOTE_CONFIG_PROVIDER") != "" {
		opts = append(opts, secretmanager.Module)
	}

	app := fx.New(opts...)
	app.Run()
}

var fxLogger = fx.WithLogger(func(cfg *config.Config, logger *zap.Logger) fxevent.Logger {
	return fxevent.NopLogger
})
