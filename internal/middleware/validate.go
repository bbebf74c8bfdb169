package middleware

import (
	"context"

	"github.com/go-playground/validator/v10"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// Validate checks a request struct against its validate tags and converts a
// failure into codes.InvalidArgument.
func Validate(v *validator.Validate, req any) error {
	if err := v.Struct(req); err != nil {
		return status.Errorf(codes.InvalidArgument, "invalid request: %v", err)
	}
	return nil
}

// ValidateUnaryInterceptor validates every unary request before it reaches the handler.
func ValidateUnaryInterceptor(v *validator.Validate) grpc.UnaryServerInterceptor {
	return func(ctx context.Context, req interface{}, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (interface{}, error) {
		if err := Validate(v, req); err != nil {
			return nil, err
		}
		return handler(ctx, req)
	}
}
