package interceptors

import (
	"context"
	"net/http"
	"strings"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"

	"handshake/backend/internal/security"
)

const bearerPrefix = "bearer "

// CreatorValidator validates creator bearer tokens.
type CreatorValidator interface {
	Validate(token string) (security.Creator, error)
}

// AuthUnary returns a unary server interceptor that validates the creator Bearer token from gRPC metadata
// and sets the creator in context. publicMethods is the set of full method names that do not require a
// token (receipt verification, health).
func AuthUnary(validator CreatorValidator, publicMethods map[string]bool) grpc.UnaryServerInterceptor {
	return func(ctx context.Context, req interface{}, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (interface{}, error) {
		public := publicMethods[info.FullMethod]
		token := bearerFromMetadata(ctx)
		if token == "" {
			if public {
				return handler(ctx, req)
			}
			return nil, status.Error(codes.Unauthenticated, "missing or invalid authorization")
		}
		creator, err := validator.Validate(token)
		if err != nil {
			if public {
				return handler(ctx, req)
			}
			return nil, status.Error(codes.Unauthenticated, "missing or invalid authorization")
		}
		return handler(WithCreator(ctx, creator), req)
	}
}

// RequireCreator is the HTTP counterpart of AuthUnary: requests without a valid creator Bearer token get 401.
func RequireCreator(validator CreatorValidator) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token := parseBearer(r.Header.Get("Authorization"))
			if token == "" {
				writeUnauthorized(w)
				return
			}
			creator, err := validator.Validate(token)
			if err != nil {
				writeUnauthorized(w)
				return
			}
			next.ServeHTTP(w, r.WithContext(WithCreator(r.Context(), creator)))
		})
	}
}

func writeUnauthorized(w http.ResponseWriter) {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("WWW-Authenticate", "Bearer")
	w.WriteHeader(http.StatusUnauthorized)
	_, _ = w.Write([]byte(`{"error":"Missing or invalid authorization.","code":"unauthorized"}` + "\n"))
}

// bearerFromMetadata returns the Bearer token from ctx metadata, or "" if missing or malformed.
func bearerFromMetadata(ctx context.Context) string {
	md, ok := metadata.FromIncomingContext(ctx)
	if !ok {
		return ""
	}
	vals := md.Get("authorization")
	if len(vals) == 0 {
		return ""
	}
	return parseBearer(vals[0])
}

func parseBearer(v string) string {
	v = strings.TrimSpace(v)
	if len(v) < len(bearerPrefix) {
		return ""
	}
	if !strings.EqualFold(v[:len(bearerPrefix)], bearerPrefix) {
		return ""
	}
	return strings.TrimSpace(v[len(bearerPrefix):])
}
