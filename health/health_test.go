package health

import (
	"context"
	"errors"
	"net"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	grpchealth "google.golang.org/grpc/health"
	"google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/test/bufconn"

	"github.com/zero-day-ai/tensorpath/registry"
)

func TestStatusPredicates(t *testing.T) {
	assert.True(t, Healthy("ok").IsHealthy())
	assert.True(t, Degraded("slow", nil).IsDegraded())
	assert.True(t, Unhealthy("down", map[string]any{"k": 1}).IsUnhealthy())
	assert.False(t, Healthy("ok").IsUnhealthy())
}

func TestCombine(t *testing.T) {
	tests := []struct {
		name   string
		checks []Status
		want   string
	}{
		{"none", nil, StatusHealthy},
		{"all healthy", []Status{Healthy("a"), Healthy("b")}, StatusHealthy},
		{"one degraded", []Status{Healthy("a"), Degraded("b", nil)}, StatusDegraded},
		{"unhealthy wins", []Status{Degraded("a", nil), Unhealthy("b", nil), Healthy("c")}, StatusUnhealthy},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Combine(tt.checks...).Status)
		})
	}

	got := Combine(Unhealthy("", nil), Unhealthy("redis down", nil))
	assert.Equal(t, []string{"unnamed check", "redis down"}, got.Details["failed_checks"])
	assert.Equal(t, "2 check(s) failed", got.Message)
}

func TestParseVersion(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"Python 3.11.4", "3.11.4"},
		{"Python 3.12.0rc1", "3.12.0"},
		{"v0.7.1", "0.7.1"},
		{"version 2.1", "2.1"},
		{"1.2.3.4", "1.2.3"},
		{"no version here", ""},
		{"build 42", ""},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, parseVersion(tt.in), "input %q", tt.in)
	}
}

func TestVersionMeetsMinimum(t *testing.T) {
	assert.True(t, versionMeetsMinimum("3.11.4", "3.9"))
	assert.True(t, versionMeetsMinimum("3.9", "3.9.0"))
	assert.False(t, versionMeetsMinimum("3.8.10", "3.9"))
	assert.False(t, versionMeetsMinimum("2.7", "3"))
	assert.True(t, versionMeetsMinimum("10.0", "9.99"))
}

func TestInterpreterCheck(t *testing.T) {
	assert.True(t, InterpreterCheck(context.Background(), "", "").IsUnhealthy())

	missing := InterpreterCheck(context.Background(), "tensorpath-no-such-binary", "")
	assert.True(t, missing.IsUnhealthy())
	assert.Equal(t, "tensorpath-no-such-binary", missing.Details["interpreter"])

	found := InterpreterCheck(context.Background(), "sh", "")
	assert.True(t, found.IsHealthy(), found.Message)
}

type fakeModule struct {
	err     error
	version string
}

func (f fakeModule) Init(ctx context.Context) error { return f.err }
func (f fakeModule) Version() string                { return f.version }

func TestModuleCheck(t *testing.T) {
	ok := ModuleCheck(context.Background(), "cotengra", fakeModule{version: "0.7.1"})
	assert.True(t, ok.IsHealthy())
	assert.Contains(t, ok.Message, "0.7.1")

	bad := ModuleCheck(context.Background(), "cotengra", fakeModule{err: errors.New("No module named 'cotengra'")})
	assert.True(t, bad.IsUnhealthy())
	assert.Equal(t, "No module named 'cotengra'", bad.Details["error"])
}

func TestRedisCheck(t *testing.T) {
	mr := miniredis.RunT(t)
	addr := mr.Addr()
	client := redis.NewClient(&redis.Options{Addr: addr, MaxRetries: -1})
	defer client.Close()

	assert.True(t, RedisCheck(context.Background(), client).IsHealthy())

	mr.Close()
	got := RedisCheck(context.Background(), client)
	assert.True(t, got.IsDegraded())
	assert.Equal(t, addr, got.Details["address"])
}

func TestNetworkCheck(t *testing.T) {
	lis, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	addr := lis.Addr().String()

	assert.True(t, NetworkCheck(context.Background(), addr).IsHealthy())

	require.NoError(t, lis.Close())
	assert.True(t, NetworkCheck(context.Background(), addr).IsUnhealthy())

	assert.True(t, NetworkCheck(context.Background(), "no-port").IsUnhealthy())
}

func TestServingCheck(t *testing.T) {
	lis := bufconn.Listen(1024 * 1024)
	srv := grpc.NewServer()
	hs := grpchealth.NewServer()
	grpc_health_v1.RegisterHealthServer(srv, hs)
	hs.SetServingStatus("svc", grpc_health_v1.HealthCheckResponse_SERVING)
	hs.SetServingStatus("down", grpc_health_v1.HealthCheckResponse_NOT_SERVING)

	go func() { _ = srv.Serve(lis) }()
	defer srv.Stop()

	conn, err := grpc.NewClient("passthrough:///bufnet",
		grpc.WithContextDialer(func(context.Context, string) (net.Conn, error) { return lis.Dial() }),
		grpc.WithTransportCredentials(insecure.NewCredentials()),
	)
	require.NoError(t, err)
	defer conn.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	assert.True(t, ServingCheck(ctx, conn, "svc").IsHealthy())
	assert.True(t, ServingCheck(ctx, conn, "down").IsUnhealthy())
	assert.True(t, ServingCheck(ctx, conn, "unknown").IsUnhealthy())
}

type fakeLister struct {
	instances []registry.ServiceInfo
	err       error
}

func (f fakeLister) DiscoverAll(ctx context.Context) ([]registry.ServiceInfo, error) {
	return f.instances, f.err
}

func TestInstancesCheck(t *testing.T) {
	tests := []struct {
		name      string
		lister    fakeLister
		want      string
		perName   map[string]int
		endpoints []string
	}{
		{"listing fails", fakeLister{err: errors.New("etcd down")}, StatusUnhealthy, nil, nil},
		{"empty registry", fakeLister{}, StatusDegraded, nil, nil},
		{
			"instances registered",
			fakeLister{instances: []registry.ServiceInfo{
				{Name: "cotengra", InstanceID: "b", Endpoint: "10.0.0.2:50051"},
				{Name: "cotengra", InstanceID: "a", Endpoint: "10.0.0.1:50051"},
				{Name: "gpu", InstanceID: "c", Endpoint: "10.0.0.3:50051"},
			}},
			StatusHealthy,
			map[string]int{"cotengra": 2, "gpu": 1},
			[]string{"10.0.0.1:50051", "10.0.0.2:50051", "10.0.0.3:50051"},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := InstancesCheck(context.Background(), tt.lister)
			assert.Equal(t, tt.want, got.Status)
			if tt.perName != nil {
				assert.Equal(t, tt.perName, got.Details["instances"])
				assert.Equal(t, tt.endpoints, got.Details["endpoints"])
			}
		})
	}
}
