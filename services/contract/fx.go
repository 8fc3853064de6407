package contract

import (
	"contract-lifecycle/pkg/minio"

	"github.com/hibiken/asynq"
	"go.uber.org/fx"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health/grpc_health_v1"
)

var Module = fx.Module("contract.service",
	fx.Provide(NewService),
)

// API serves the contract routes and the gRPC health service.
var API = fx.Module("contract.api",
	fx.Provide(NewHandler, NewHealthChecker),
	fx.Invoke(RegisterRoutes, registerHealthServer),
)

// Worker consumes contract tasks from asynq.
var Worker = fx.Module("contract.worker",
	fx.Invoke(registerTaskHandlers),
)

var Scheduling = fx.Module("contract.scheduler",
	fx.Provide(NewScheduler),
	fx.Invoke(StartScheduler),
)

// Documents stores uploaded documents in minio.
var Documents = fx.Module("contract.documents",
	minio.Client,
	fx.Provide(func(s *minio.Storage) DocumentStorage { return s }),
)

func registerHealthServer(server *grpc.Server, h *HealthChecker) {
	grpc_health_v1.RegisterHealthServer(server, h)
}

func registerTaskHandlers(mux *asynq.ServeMux, svc *Service) {
	for name, h := range svc.TaskHandlers() {
		mux.Handle(name, h)
	}
}
