package health

import (
	"context"
	"fmt"
	"net"
	"sort"
	"time"

	"github.com/redis/go-redis/v9"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health/grpc_health_v1"

	"github.com/zero-day-ai/tensorpath/interp"
	"github.com/zero-day-ai/tensorpath/registry"
)

const defaultTimeout = 5 * time.Second

// InterpreterCheck verifies that command resolves through PATH and, when
// minVersion is set, that `command --version` reports at least minVersion.
//
// Example:
//
//	status := health.InterpreterCheck(ctx, "python3", "3.9")
func InterpreterCheck(ctx context.Context, command, minVersion string) Status {
	if command == "" {
		return Unhealthy("interpreter name cannot be empty", nil)
	}

	in, err := interp.New(interp.Config{Command: command})
	if err != nil {
		return Unhealthy(
			fmt.Sprintf("interpreter '%s' not found in PATH", command),
			map[string]any{"interpreter": command, "error": err.Error()},
		)
	}
	if minVersion == "" {
		return Healthy(fmt.Sprintf("interpreter '%s' found at %s", command, in.Path()))
	}

	ctx, cancel := withDefaultTimeout(ctx)
	defer cancel()

	out, err := in.Version(ctx)
	if err != nil {
		return Unhealthy(
			fmt.Sprintf("failed to get version for '%s'", command),
			map[string]any{"interpreter": command, "error": err.Error()},
		)
	}

	version := parseVersion(out)
	if version == "" {
		return Degraded(
			fmt.Sprintf("could not parse version from '%s' output", command),
			map[string]any{"interpreter": command, "output": out},
		)
	}
	if !versionMeetsMinimum(version, minVersion) {
		return Unhealthy(
			fmt.Sprintf("interpreter '%s' version %s does not meet minimum requirement %s", command, version, minVersion),
			map[string]any{"interpreter": command, "version": version, "min_version": minVersion},
		)
	}
	return Healthy(fmt.Sprintf("interpreter '%s' version %s meets requirement %s", command, version, minVersion))
}

// Initer is satisfied by *cotengra.Bridge.
type Initer interface {
	Init(ctx context.Context) error
	Version() string
}

// ModuleCheck verifies that the optimizer module can be loaded.
func ModuleCheck(ctx context.Context, name string, m Initer) Status {
	ctx, cancel := withDefaultTimeout(ctx)
	defer cancel()

	if err := m.Init(ctx); err != nil {
		return Unhealthy(
			fmt.Sprintf("module '%s' cannot be loaded", name),
			map[string]any{"module": name, "error": err.Error()},
		)
	}
	return Healthy(fmt.Sprintf("module '%s' version %s loaded", name, m.Version()))
}

// RedisCheck pings the cache server. A cache outage only slows optimizers
// down, so failure is reported as degraded.
func RedisCheck(ctx context.Context, client *redis.Client) Status {
	ctx, cancel := withDefaultTimeout(ctx)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		return Degraded(
			"redis cache unreachable",
			map[string]any{"address": client.Options().Addr, "error": err.Error()},
		)
	}
	return Healthy(fmt.Sprintf("redis cache at %s reachable", client.Options().Addr))
}

// NetworkCheck verifies TCP connectivity to address ("host:port").
func NetworkCheck(ctx context.Context, address string) Status {
	if _, _, err := net.SplitHostPort(address); err != nil {
		return Unhealthy(
			fmt.Sprintf("invalid address '%s'", address),
			map[string]any{"address": address, "error": err.Error()},
		)
	}

	ctx, cancel := withDefaultTimeout(ctx)
	defer cancel()

	var dialer net.Dialer
	conn, err := dialer.DialContext(ctx, "tcp", address)
	if err != nil {
		return Unhealthy(
			fmt.Sprintf("failed to connect to %s", address),
			map[string]any{"address": address, "error": err.Error()},
		)
	}
	conn.Close()

	return Healthy(fmt.Sprintf("successfully connected to %s", address))
}

// ServingCheck asks a gRPC server's health service about service.
func ServingCheck(ctx context.Context, conn grpc.ClientConnInterface, service string) Status {
	ctx, cancel := withDefaultTimeout(ctx)
	defer cancel()

	resp, err := grpc_health_v1.NewHealthClient(conn).Check(ctx, &grpc_health_v1.HealthCheckRequest{Service: service})
	if err != nil {
		return Unhealthy(
			fmt.Sprintf("health check for '%s' failed", service),
			map[string]any{"service": service, "error": err.Error()},
		)
	}
	if resp.GetStatus() != grpc_health_v1.HealthCheckResponse_SERVING {
		return Unhealthy(
			fmt.Sprintf("service '%s' is %s", service, resp.GetStatus()),
			map[string]any{"service": service},
		)
	}
	return Healthy(fmt.Sprintf("service '%s' is serving", service))
}

// Lister is satisfied by *registry.Client.
type Lister interface {
	DiscoverAll(ctx context.Context) ([]registry.ServiceInfo, error)
}

// InstancesCheck reports the optimizer servers announced in the registry.
// An empty registry is degraded: nothing can be discovered, but local
// optimization still works.
func InstancesCheck(ctx context.Context, l Lister) Status {
	ctx, cancel := withDefaultTimeout(ctx)
	defer cancel()

	instances, err := l.DiscoverAll(ctx)
	if err != nil {
		return Unhealthy("failed to list registered optimizers", map[string]any{"error": err.Error()})
	}
	if len(instances) == 0 {
		return Degraded("no optimizer instances registered", nil)
	}

	perName := make(map[string]int)
	endpoints := make([]string, 0, len(instances))
	for _, info := range instances {
		perName[info.Name]++
		endpoints = append(endpoints, info.Endpoint)
	}
	sort.Strings(endpoints)

	return Status{
		Status:  StatusHealthy,
		Message: fmt.Sprintf("%d optimizer instance(s) registered", len(instances)),
		Details: map[string]any{"instances": perName, "endpoints": endpoints},
	}
}

// Combine folds checks into one Status: unhealthy if any is unhealthy,
// otherwise degraded if any is degraded, otherwise healthy.
func Combine(checks ...Status) Status {
	if len(checks) == 0 {
		return Healthy("no checks provided")
	}

	var unhealthy, degraded []string
	var healthy int
	for _, check := range checks {
		msg := check.Message
		if msg == "" {
			msg = "unnamed check"
		}
		switch check.Status {
		case StatusUnhealthy:
			unhealthy = append(unhealthy, msg)
		case StatusDegraded:
			degraded = append(degraded, msg)
		case StatusHealthy:
			healthy++
		}
	}

	switch {
	case len(unhealthy) > 0:
		return Unhealthy(
			fmt.Sprintf("%d check(s) failed", len(unhealthy)),
			map[string]any{
				"total":         len(checks),
				"unhealthy":     len(unhealthy),
				"degraded":      len(degraded),
				"healthy":       healthy,
				"failed_checks": unhealthy,
			},
		)
	case len(degraded) > 0:
		return Degraded(
			fmt.Sprintf("%d check(s) degraded", len(degraded)),
			map[string]any{
				"total":           len(checks),
				"degraded":        len(degraded),
				"healthy":         healthy,
				"degraded_checks": degraded,
			},
		)
	}
	return Healthy(fmt.Sprintf("all %d check(s) passed", len(checks)))
}

func withDefaultTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if ctx == nil {
		ctx = context.Background()
	}
	if _, ok := ctx.Deadline(); ok {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, defaultTimeout)
}
