package middleware

import (
	"context"

	"contract-lifecycle/pkg/errutil"
	"contract-lifecycle/pkg/tenant"

	"google.golang.org/grpc"
	"google.golang.org/grpc/metadata"
)

// TenantInterceptor attaches the tenant context of a valid bearer token in
// the "authorization" metadata. Calls without a token pass through
// unauthenticated; handlers decide whether they need a tenant.
func TenantInterceptor(v *TokenVerifier) grpc.UnaryServerInterceptor {
	return func(
		ctx context.Context,
		req interface{},
		info *grpc.UnaryServerInfo,
		handler grpc.UnaryHandler,
	) (resp interface{}, err error) {
		md, ok := metadata.FromIncomingContext(ctx)
		if !ok {
			return handler(ctx, req)
		}

		values := md.Get("authorization")
		if len(values) == 0 {
			return handler(ctx, req)
		}

		raw, ok := bearerToken(values[0])
		if !ok {
			return handler(ctx, req)
		}
		if tc, err := v.Verify(raw); err == nil {
			ctx = tenant.With(ctx, tc)
		}
		return handler(ctx, req)
	}
}

// ErrorInterceptor converts domain errors returned by handlers into gRPC
// status errors.
func ErrorInterceptor() grpc.UnaryServerInterceptor {
	return func(
		ctx context.Context,
		req interface{},
		info *grpc.UnaryServerInfo,
		handler grpc.UnaryHandler,
	) (interface{}, error) {
		resp, err := handler(ctx, req)
		if err != nil {
			return nil, errutil.ToGRPCError(err)
		}
		return resp, nil
	}
}
