package main

import (
	"context"
	"errors"
	"io"
	"log/slog"

	"github.com/zero-day-ai/tensorpath"
	"github.com/zero-day-ai/tensorpath/optimizer"
	"github.com/zero-day-ai/tensorpath/optimizer/cache"
	"github.com/zero-day-ai/tensorpath/optimizer/cotengra"
	"github.com/zero-day-ai/tensorpath/optimizer/remote"
	"github.com/zero-day-ai/tensorpath/registry"
)

// backend is an optimizer together with the connections it holds.
type backend struct {
	opt     optimizer.Optimizer
	logger  *slog.Logger
	closers []namedCloser
}

type namedCloser struct {
	name string
	c    io.Closer
}

func (b *backend) onClose(name string, c io.Closer) {
	b.closers = append(b.closers, namedCloser{name: name, c: c})
}

// Close releases connections in reverse order of opening.
func (b *backend) Close() {
	for i := len(b.closers) - 1; i >= 0; i-- {
		tensorpath.CloseWithLog(b.closers[i].c, b.logger, b.closers[i].name)
	}
	b.closers = nil
}

// openBackend picks the optimizer for a client command: a remote server
// when target or remote.endpoint is set, a registered server followed
// through the registry when discover is set, otherwise the local cotengra
// bridge. The result is wrapped with
// the Redis cache when one is configured.
func (a *app) openBackend(ctx context.Context, target string, discover bool) (*backend, error) {
	b := &backend{logger: a.logger}
	if target == "" {
		target = a.cfg.Remote.Endpoint
	}

	switch {
	case target != "":
		c, err := remote.Dial(target, remote.WithClientLogger(a.logger))
		if err != nil {
			return nil, err
		}
		b.onClose("optimizer connection", c)
		b.opt = c
		a.logger.Debug("using remote optimizer", "endpoint", target)

	case discover:
		if !a.cfg.Registry.Enabled() {
			return nil, errors.New("--discover requires registry endpoints")
		}
		reg, err := registry.NewClient(a.cfg.Registry.Registry())
		if err != nil {
			return nil, err
		}
		b.onClose("registry client", reg)
		f, err := remote.Follow(ctx, reg, a.cfg.Remote.GetName(), remote.WithClientLogger(a.logger))
		if err != nil {
			b.Close()
			return nil, err
		}
		b.onClose("optimizer connection", f)
		b.opt = f
		if info, ok := f.Current(); ok {
			a.logger.Debug("using discovered optimizer", "name", info.Name, "instance_id", info.InstanceID, "endpoint", info.Endpoint)
		}

	default:
		bridge, err := cotengra.New(a.cfg.Bridge.Interp(), cotengra.WithLogger(a.logger))
		if err != nil {
			return nil, err
		}
		b.opt = bridge
	}

	if err := a.withCache(ctx, b); err != nil {
		b.Close()
		return nil, err
	}
	return b, nil
}

// withCache wraps b.opt with the Redis cache when cache.url is set. An
// unreachable Redis is logged and the optimizer runs uncached.
func (a *app) withCache(ctx context.Context, b *backend) error {
	if !a.cfg.Cache.Enabled() {
		return nil
	}

	client, err := cache.Dial(ctx, a.cfg.Cache.URL)
	if err != nil {
		a.logger.Warn("path cache disabled", "error", err)
		return nil
	}
	b.onClose("redis client", client)

	opts := []cache.Option{cache.WithTTL(a.cfg.Cache.GetTTL()), cache.WithLogger(a.logger)}
	if a.cfg.Cache.Prefix != "" {
		opts = append(opts, cache.WithPrefix(a.cfg.Cache.Prefix))
	}
	c, err := cache.New(b.opt, client, opts...)
	if err != nil {
		return err
	}
	b.opt = c
	return nil
}
