package main

import (
	"context"
	"fmt"
	"net"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.opentelemetry.io/otel"

	"github.com/zero-day-ai/tensorpath"
	"github.com/zero-day-ai/tensorpath/optimizer"
	"github.com/zero-day-ai/tensorpath/optimizer/cotengra"
	"github.com/zero-day-ai/tensorpath/optimizer/remote"
	"github.com/zero-day-ai/tensorpath/registry"
)

func newServeCmd(a *app) *cobra.Command {
	var address, advertise, name string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the cotengra optimizer over gRPC",
		Long: `Starts an optimizer server backed by the local cotengra bridge. When
registry endpoints are configured the server announces itself under its name
and withdraws on shutdown. SIGINT and SIGTERM stop the server gracefully.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			rc := a.cfg.Remote
			if address != "" {
				rc.Address = address
			}
			if advertise != "" {
				rc.Advertise = advertise
			}
			if name != "" {
				rc.Name = name
			}
			return a.serve(ctx, rc.GetAddress(), rc.Advertise, rc.GetName())
		},
	}

	cmd.Flags().StringVar(&address, "address", "", "listen address (default from configuration, else :50051)")
	cmd.Flags().StringVar(&advertise, "advertise", "", "endpoint published to the registry (default: this host's name and the listen port)")
	cmd.Flags().StringVar(&name, "name", "", "registry service name (default from configuration, else cotengra)")
	return cmd
}

func (a *app) serve(ctx context.Context, address, advertise, name string) error {
	bridge, err := cotengra.New(a.cfg.Bridge.Interp(), cotengra.WithLogger(a.logger))
	if err != nil {
		return err
	}
	if err := bridge.Init(ctx); err != nil {
		return err
	}

	b := &backend{opt: bridge, logger: a.logger}
	defer b.Close()
	if err := a.withCache(ctx, b); err != nil {
		return err
	}

	tp := newTracerProvider(a.logger, bridge.Version())
	defer func() {
		if err := tp.Shutdown(context.Background()); err != nil {
			a.logger.Warn("failed to shut down tracer provider", "error", err)
		}
	}()

	opt, err := optimizer.Instrument(b.opt,
		optimizer.WithTracer(tp.Tracer(instrumentationName)),
		optimizer.WithMeter(otel.GetMeterProvider().Meter(instrumentationName)),
		optimizer.WithLogger(a.logger),
		optimizer.WithBackend(cotengra.Backend),
	)
	if err != nil {
		return err
	}

	srv, err := remote.NewServer(opt,
		remote.WithConfig(remote.Config{
			Address:         address,
			GracefulTimeout: a.cfg.Remote.GetGracefulTimeout(),
			TLSCertFile:     a.cfg.Remote.TLSCertFile,
			TLSKeyFile:      a.cfg.Remote.TLSKeyFile,
		}),
		remote.WithServerLogger(a.logger),
	)
	if err != nil {
		return err
	}

	lis, err := srv.Listen()
	if err != nil {
		return err
	}
	if a.cfg.Registry.Enabled() {
		advertise, err = advertiseEndpoint(advertise, lis.Addr().String(), os.Hostname)
		if err != nil {
			lis.Close()
			return err
		}

		reg, err := registry.NewClient(a.cfg.Registry.Registry())
		if err != nil {
			lis.Close()
			return err
		}
		defer tensorpath.CloseWithLog(reg, a.logger, "registry client")

		info := registry.ServiceInfo{
			Name:       name,
			Backend:    cotengra.Backend,
			InstanceID: registry.NewInstanceID(),
			Endpoint:   advertise,
			Metadata:   map[string]string{"cotengra_version": bridge.Version()},
			StartedAt:  time.Now().UTC(),
		}
		if err := reg.Register(ctx, info); err != nil {
			lis.Close()
			return fmt.Errorf("failed to register optimizer: %w", err)
		}
		defer func() {
			dctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := reg.Deregister(dctx, info); err != nil {
				a.logger.Warn("failed to deregister optimizer", "instance_id", info.InstanceID, "error", err)
			}
		}()
	}

	if advertise == "" {
		advertise = lis.Addr().String()
	}
	a.logger.Info("serving optimizer",
		"address", lis.Addr().String(),
		"advertise", advertise,
		"name", name,
		"cotengra", bridge.Version())
	return srv.Serve(ctx, lis)
}

// advertiseEndpoint returns the endpoint published to the registry. Without
// an explicit advertise address it uses the listen address, replacing an
// empty or wildcard host with the machine's hostname.
func advertiseEndpoint(advertise, listen string, hostname func() (string, error)) (string, error) {
	if advertise != "" {
		return advertise, nil
	}

	host, port, err := net.SplitHostPort(listen)
	if err != nil {
		return "", fmt.Errorf("invalid listen address %q: %w", listen, err)
	}
	if host != "" && !net.ParseIP(host).IsUnspecified() {
		return listen, nil
	}

	name, err := hostname()
	if err != nil || name == "" {
		return "", fmt.Errorf("listen address %q has no routable host; set --advertise", listen)
	}
	return net.JoinHostPort(name, port), nil
}
