package main

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"

	"github.com/PaulBabatuyi/marketchat/internal/auth"
	"github.com/PaulBabatuyi/marketchat/internal/logging"
	"github.com/PaulBabatuyi/marketchat/internal/metrics"
)

// context key type for storing auth claims in context
type authContextKey struct{}

// unauthenticated methods
var publicMethods = map[string]bool{
	grpc_health_v1.Health_Check_FullMethodName: true,
	grpc_health_v1.Health_Watch_FullMethodName: true,
}

// getClaimsFromContext extracts auth claims from the context, if present.
func getClaimsFromContext(ctx context.Context) (*auth.Claims, bool) {
	c, ok := ctx.Value(authContextKey{}).(*auth.Claims)
	return c, ok && c != nil
}

// claimsKey buckets rate limits by authenticated user.
func claimsKey(ctx context.Context, _ any) string {
	if c, ok := getClaimsFromContext(ctx); ok {
		return "user:" + c.UserID
	}
	return ""
}

// authenticate verifies the bearer token carried in ctx's metadata.
func authenticate(ctx context.Context, j *auth.JWTManager) (*auth.Claims, error) {
	md, ok := metadata.FromIncomingContext(ctx)
	if !ok {
		return nil, status.Errorf(codes.Unauthenticated, "missing metadata")
	}
	authHeaders := md.Get("authorization")
	if len(authHeaders) == 0 {
		return nil, status.Errorf(codes.Unauthenticated, "missing authorization header")
	}

	token := strings.TrimSpace(strings.TrimPrefix(authHeaders[0], "Bearer"))
	if token == "" {
		return nil, status.Errorf(codes.Unauthenticated, "invalid token")
	}

	claims, err := j.VerifyToken(token)
	if err != nil {
		return nil, status.Errorf(codes.Unauthenticated, "unauthenticated: %v", err)
	}
	return claims, nil
}

// authUnaryInterceptor enforces JWT authentication for every method except
// the health checks and puts the claims into the handler context.
func authUnaryInterceptor(j *auth.JWTManager) grpc.UnaryServerInterceptor {
	return func(ctx context.Context, req interface{}, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (interface{}, error) {
		if publicMethods[info.FullMethod] {
			return handler(ctx, req)
		}
		claims, err := authenticate(ctx, j)
		if err != nil {
			return nil, err
		}
		ctx = context.WithValue(ctx, authContextKey{}, claims)
		return handler(ctx, req)
	}
}

// authStreamInterceptor is the stream equivalent of authUnaryInterceptor.
func authStreamInterceptor(j *auth.JWTManager) grpc.StreamServerInterceptor {
	return func(srv interface{}, ss grpc.ServerStream, info *grpc.StreamServerInfo, handler grpc.StreamHandler) error {
		if publicMethods[info.FullMethod] {
			return handler(srv, ss)
		}
		claims, err := authenticate(ss.Context(), j)
		if err != nil {
			return err
		}
		newCtx := context.WithValue(ss.Context(), authContextKey{}, claims)
		return handler(srv, wrappedStream{ServerStream: ss, ctx: newCtx})
	}
}

// loggingUnaryInterceptor attaches a request-scoped logger, logs the outcome
// and records the duration histogram.
func loggingUnaryInterceptor() grpc.UnaryServerInterceptor {
	return func(ctx context.Context, req interface{}, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (interface{}, error) {
		start := time.Now()
		log := logging.Logger.With().
			Str("request_id", uuid.NewString()).
			Str("method", info.FullMethod).
			Logger()
		ctx = logging.WithContext(ctx, log)

		resp, err := handler(ctx, req)

		code := status.Code(err)
		elapsed := time.Since(start)
		metrics.RPCDuration.WithLabelValues(info.FullMethod, code.String()).Observe(elapsed.Seconds())

		ev := log.Debug()
		if err != nil {
			ev = log.Warn().Err(err)
		}
		ev.Str("code", code.String()).Dur("duration", elapsed).Msg("rpc finished")
		return resp, err
	}
}

// loggingStreamInterceptor logs stream start and end. Subscriptions are long
// lived, so their duration is not recorded in the RPC histogram.
func loggingStreamInterceptor() grpc.StreamServerInterceptor {
	return func(srv interface{}, ss grpc.ServerStream, info *grpc.StreamServerInfo, handler grpc.StreamHandler) error {
		start := time.Now()
		log := logging.Logger.With().
			Str("request_id", uuid.NewString()).
			Str("method", info.FullMethod).
			Logger()
		log.Debug().Msg("stream opened")

		err := handler(srv, wrappedStream{ServerStream: ss, ctx: logging.WithContext(ss.Context(), log)})

		log.Debug().
			Err(err).
			Str("code", status.Code(err).String()).
			Dur("duration", time.Since(start)).
			Msg("stream closed")
		return err
	}
}

// wrappedStream wraps grpc.ServerStream to override Context()
type wrappedStream struct {
	grpc.ServerStream
	ctx context.Context
}

// Context returns the wrapped context
func (w wrappedStream) Context() context.Context { return w.ctx }
