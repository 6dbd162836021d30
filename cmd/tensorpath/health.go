package main

import (
	"context"
	"errors"
	"strings"

	"github.com/spf13/cobra"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"

	"github.com/zero-day-ai/tensorpath"
	"github.com/zero-day-ai/tensorpath/health"
	"github.com/zero-day-ai/tensorpath/interp"
	"github.com/zero-day-ai/tensorpath/optimizer/cache"
	"github.com/zero-day-ai/tensorpath/optimizer/cotengra"
	"github.com/zero-day-ai/tensorpath/optimizer/remote"
	"github.com/zero-day-ai/tensorpath/registry"
)

var errUnhealthy = errors.New("health check failed")

// healthReport is printed by the health command.
type healthReport struct {
	Status health.Status            `json:"status"`
	Checks map[string]health.Status `json:"checks"`
}

func newHealthCmd(a *app) *cobra.Command {
	var minPython, endpoint string

	cmd := &cobra.Command{
		Use:   "health",
		Short: "Check the interpreter, cotengra and configured services",
		Long: `Checks that the Python interpreter and cotengra load, and that the
configured Redis cache, registry endpoints and optimizer server are reachable.
With a registry it also lists the optimizer instances announced there.
Prints a JSON report and exits non-zero when any check is unhealthy.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if endpoint == "" {
				endpoint = a.cfg.Remote.Endpoint
			}
			report := a.checkHealth(cmd.Context(), minPython, endpoint)
			if err := writeJSON(cmd.OutOrStdout(), report); err != nil {
				return err
			}
			if report.Status.IsUnhealthy() {
				return errUnhealthy
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&minPython, "min-python", "3.9", "minimum interpreter version")
	cmd.Flags().StringVar(&endpoint, "remote", "", "optimizer server to probe, host:port")
	return cmd
}

func (a *app) checkHealth(ctx context.Context, minPython, endpoint string) healthReport {
	checks := make(map[string]health.Status)

	command := a.cfg.Bridge.Python
	if command == "" {
		command = interp.DefaultCommand
	}
	checks["interpreter"] = health.InterpreterCheck(ctx, command, minPython)

	if bridge, err := cotengra.New(a.cfg.Bridge.Interp(), cotengra.WithLogger(a.logger)); err != nil {
		checks["cotengra"] = health.Unhealthy("cotengra bridge unavailable", map[string]any{"error": err.Error()})
	} else {
		checks["cotengra"] = health.ModuleCheck(ctx, "cotengra", bridge)
	}

	if a.cfg.Cache.Enabled() {
		client, err := cache.Dial(ctx, a.cfg.Cache.URL)
		if err != nil {
			checks["cache"] = health.Degraded("redis cache unreachable", map[string]any{"error": err.Error()})
		} else {
			checks["cache"] = health.RedisCheck(ctx, client)
			tensorpath.CloseWithLog(client, a.logger, "redis client")
		}
	}

	if a.cfg.Registry.Enabled() {
		var statuses []health.Status
		for _, ep := range a.cfg.Registry.Endpoints {
			statuses = append(statuses, health.NetworkCheck(ctx, hostPort(ep)))
		}
		checks["registry"] = health.Combine(statuses...)

		reg, err := registry.NewClient(a.cfg.Registry.Registry())
		if err != nil {
			checks["instances"] = health.Unhealthy("registry unavailable", map[string]any{"error": err.Error()})
		} else {
			checks["instances"] = health.InstancesCheck(ctx, reg)
			tensorpath.CloseWithLog(reg, a.logger, "registry client")
		}
	}

	if endpoint != "" {
		conn, err := grpc.NewClient(endpoint, grpc.WithTransportCredentials(insecure.NewCredentials()))
		if err != nil {
			checks["remote"] = health.Unhealthy("invalid optimizer endpoint", map[string]any{"endpoint": endpoint, "error": err.Error()})
		} else {
			checks["remote"] = health.ServingCheck(ctx, conn, remote.ServiceName)
			tensorpath.CloseWithLog(conn, a.logger, "optimizer connection")
		}
	}

	all := make([]health.Status, 0, len(checks))
	for _, s := range checks {
		all = append(all, s)
	}
	return healthReport{Status: health.Combine(all...), Checks: checks}
}

// hostPort strips a URL scheme from an etcd endpoint.
func hostPort(endpoint string) string {
	for _, scheme := range []string{"http://", "https://", "unix://"} {
		endpoint = strings.TrimPrefix(endpoint, scheme)
	}
	return strings.TrimSuffix(endpoint, "/")
}
