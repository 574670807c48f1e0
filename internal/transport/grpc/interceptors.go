package grpc

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/google.golang.org/grpc/otelgrpc"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/metadata"

	timeslotsv1 "fairway/backend/internal/api/timeslotsv1"
	"fairway/backend/internal/authz"
)

type ServerConfig struct {
	RequestTimeout time.Duration
	// Authorizer and TokenSecret enable bearer-token auth. A nil Authorizer serves every call.
	Authorizer  *authz.Authorizer
	TokenSecret []byte
}

// NewServer builds a gRPC server with the time slot service, the health service, tracing
// and the request interceptors registered.
func NewServer(svc timeSlotsService, cfg ServerConfig, log *slog.Logger) (*grpc.Server, *health.Server) {
	if log == nil {
		log = slog.Default()
	}
	interceptors := []grpc.UnaryServerInterceptor{RequestTimeout(cfg.RequestTimeout)}
	if cfg.Authorizer != nil {
		interceptors = append(interceptors, Auth(cfg.Authorizer, cfg.TokenSecret, log))
	}

	s := grpc.NewServer(
		grpc.StatsHandler(otelgrpc.NewServerHandler()),
		grpc.ChainUnaryInterceptor(interceptors...),
	)
	timeslotsv1.RegisterTimeSlotsServiceServer(s, NewTimeSlotsServer(svc, log))

	hs := health.NewServer()
	hs.SetServingStatus(timeslotsv1.ServiceName, healthpb.HealthCheckResponse_SERVING)
	healthpb.RegisterHealthServer(s, hs)
	return s, hs
}

// RequestTimeout applies timeout to calls that arrive without a deadline.
func RequestTimeout(timeout time.Duration) grpc.UnaryServerInterceptor {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	return func(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (any, error) {
		if _, ok := ctx.Deadline(); ok {
			return handler(ctx, req)
		}
		ctx, cancel := context.WithTimeout(ctx, timeout)
		defer cancel()

		return handler(ctx, req)
	}
}

// Auth authenticates the bearer token in the authorization header and checks the
// caller's roles against the action the method needs.
func Auth(az *authz.Authorizer, secret []byte, log *slog.Logger) grpc.UnaryServerInterceptor {
	log = log.With(slog.String("component", "grpc.auth"))

	return func(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (any, error) {
		if strings.HasPrefix(info.FullMethod, "/grpc.health.v1.Health/") {
			return handler(ctx, req)
		}
		rpcLog := log.With(slog.String("rpc", info.FullMethod))

		token, ok := bearerToken(ctx)
		if !ok {
			return nil, statusError(rpcLog, authz.ErrUnauthenticated)
		}
		actor, err := authz.ParseToken(secret, token)
		if err != nil {
			rpcLog.Info("token rejected", slog.Any("err", err))
			return nil, statusError(rpcLog, err)
		}
		if err := az.MustCan(actor, methodAction(info.FullMethod)); err != nil {
			return nil, statusError(rpcLog.With(slog.String("subject", actor.Subject)), err)
		}
		return handler(authz.WithActor(ctx, actor), req)
	}
}

func bearerToken(ctx context.Context) (string, bool) {
	md, ok := metadata.FromIncomingContext(ctx)
	if !ok {
		return "", false
	}
	values := md.Get("authorization")
	if len(values) == 0 {
		return "", false
	}
	raw := strings.TrimSpace(values[0])
	if len(raw) < len("bearer ") || !strings.EqualFold(raw[:len("bearer ")], "bearer ") {
		return "", false
	}
	token := strings.TrimSpace(raw[len("bearer "):])
	return token, token != ""
}

func methodAction(fullMethod string) authz.Action {
	method := fullMethod[strings.LastIndex(fullMethod, "/")+1:]
	switch method {
	case timeslotsv1.MethodGetSlot, timeslotsv1.MethodListSlots, timeslotsv1.MethodCheckAvailability:
		return authz.ActionRead
	case timeslotsv1.MethodReserve, timeslotsv1.MethodRelease:
		return authz.ActionBook
	default:
		return authz.ActionManage
	}
}
