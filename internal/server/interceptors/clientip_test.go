package interceptors

import (
	"context"
	"net"
	"net/http"
	"net/http/httptest"
	"testing"

	"google.golang.org/grpc"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/peer"

	"handshake/backend/internal/audit"
)

func TestClientIP(t *testing.T) {
	tests := []struct {
		name string
		ctx  context.Context
		want string
	}{
		{"none", context.Background(), "unknown"},
		{"forwarded list", metadata.NewIncomingContext(context.Background(),
			metadata.Pairs("x-forwarded-for", "203.0.113.7, 10.0.0.1")), "203.0.113.7"},
		{"real ip", metadata.NewIncomingContext(context.Background(),
			metadata.Pairs("x-real-ip", "198.51.100.2")), "198.51.100.2"},
		{"peer", peer.NewContext(context.Background(),
			&peer.Peer{Addr: &net.TCPAddr{IP: net.ParseIP("192.0.2.9"), Port: 5555}}), "192.0.2.9"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ClientIP(tt.ctx); got != tt.want {
				t.Errorf("ClientIP = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestClientIPUnary_StoresIPForAudit(t *testing.T) {
	ctx := metadata.NewIncomingContext(context.Background(), metadata.Pairs("x-real-ip", "198.51.100.2"))
	resp, err := ClientIPUnary()(ctx, "req", &grpc.UnaryServerInfo{FullMethod: "/x/Y"},
		func(ctx context.Context, req interface{}) (interface{}, error) {
			return audit.ClientIPFromContext(ctx), nil
		})
	if err != nil {
		t.Fatal(err)
	}
	if resp != "198.51.100.2" {
		t.Errorf("ip = %v", resp)
	}
}

func TestClientIPMiddleware_StripsPort(t *testing.T) {
	var got string
	h := ClientIPMiddleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got = audit.ClientIPFromContext(r.Context())
	}))
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.RemoteAddr = "192.0.2.1:40000"
	h.ServeHTTP(httptest.NewRecorder(), req)
	if got != "192.0.2.1" {
		t.Errorf("ip = %q", got)
	}
}
