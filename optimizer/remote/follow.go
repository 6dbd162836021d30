package remote

import (
	"context"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"sync"

	"github.com/zero-day-ai/tensorpath/optimizer"
	"github.com/zero-day-ai/tensorpath/path"
	"github.com/zero-day-ai/tensorpath/registry"
)

// Watcher streams the instances registered under a name and closes the
// channel when ctx ends. *registry.Client satisfies it.
type Watcher interface {
	Watch(ctx context.Context, name string) (<-chan []registry.ServiceInfo, error)
}

// Follower is an optimizer.Optimizer bound to one registered instance of a
// name. When that instance leaves the registry the Follower closes its
// connection and dials another one. Calls in flight on the old connection
// fail.
//
// Thread-safety: Follower is safe for concurrent use.
type Follower struct {
	name   string
	opts   []DialOption
	logger *slog.Logger
	cancel context.CancelFunc
	done   chan struct{}

	mu      sync.Mutex
	current *Client
	info    registry.ServiceInfo
	closed  bool
}

// Follow watches name and dials one of its instances. It waits for the
// first snapshot from w; an empty snapshot is not an error, calls fail with
// ErrUnavailable until an instance registers.
func Follow(ctx context.Context, w Watcher, name string, opts ...DialOption) (*Follower, error) {
	cfg := &dialConfig{}
	for _, opt := range opts {
		opt(cfg)
	}
	logger := cfg.logger
	if logger == nil {
		logger = slog.Default()
	}

	wctx, cancel := context.WithCancel(context.Background())
	updates, err := w.Watch(wctx, name)
	if err != nil {
		cancel()
		return nil, &optimizer.Error{Backend: Backend, Err: optimizer.ErrUnavailable, Detail: err.Error()}
	}

	f := &Follower{
		name:   name,
		opts:   opts,
		logger: logger,
		cancel: cancel,
		done:   make(chan struct{}),
	}

	select {
	case instances, ok := <-updates:
		if !ok {
			cancel()
			return nil, &optimizer.Error{Backend: Backend, Err: optimizer.ErrUnavailable, Detail: "registry watch closed"}
		}
		f.update(instances)
	case <-ctx.Done():
		cancel()
		return nil, ctx.Err()
	}

	go f.run(updates)
	return f, nil
}

func (f *Follower) run(updates <-chan []registry.ServiceInfo) {
	defer close(f.done)
	for instances := range updates {
		f.update(instances)
	}
}

// update keeps the current instance while it is still registered, otherwise
// moves to a random one from instances.
func (f *Follower) update(instances []registry.ServiceInfo) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.closed {
		return
	}
	if f.current != nil {
		for _, info := range instances {
			if info.InstanceID == f.info.InstanceID && info.Endpoint == f.info.Endpoint {
				return
			}
		}
		f.logger.Info("optimizer instance left the registry", "name", f.name, "instance_id", f.info.InstanceID, "endpoint", f.info.Endpoint)
		if err := f.current.Close(); err != nil {
			f.logger.Warn("failed to close optimizer connection", "endpoint", f.info.Endpoint, "error", err)
		}
		f.current, f.info = nil, registry.ServiceInfo{}
	}

	c, info, err := dialAny(instances, f.opts)
	if err != nil {
		f.logger.Warn("no optimizer instance available", "name", f.name, "error", err)
		return
	}
	f.current, f.info = c, info
	f.logger.Debug("following optimizer instance", "name", f.name, "instance_id", info.InstanceID, "endpoint", info.Endpoint)
}

// Current returns the instance calls are sent to, if any.
func (f *Follower) Current() (registry.ServiceInfo, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.info, f.current != nil
}

// Optimize forwards req to the current instance.
func (f *Follower) Optimize(ctx context.Context, req *optimizer.Request) (path.Path, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	f.mu.Lock()
	c := f.current
	f.mu.Unlock()

	if c == nil {
		return nil, &optimizer.Error{
			Op:      req.Op,
			Backend: Backend,
			Err:     optimizer.ErrUnavailable,
			Detail:  fmt.Sprintf("no instances registered under %q", f.name),
		}
	}
	return c.Optimize(ctx, req)
}

// Close stops watching and closes the current connection.
func (f *Follower) Close() error {
	f.cancel()
	<-f.done

	f.mu.Lock()
	defer f.mu.Unlock()
	if f.closed {
		return nil
	}
	f.closed = true
	if f.current == nil {
		return nil
	}
	err := f.current.Close()
	f.current, f.info = nil, registry.ServiceInfo{}
	return err
}

// dialAny dials the instances in random order and returns the first that
// yields a client.
func dialAny(instances []registry.ServiceInfo, opts []DialOption) (*Client, registry.ServiceInfo, error) {
	if len(instances) == 0 {
		return nil, registry.ServiceInfo{}, &optimizer.Error{Backend: Backend, Err: optimizer.ErrUnavailable, Detail: "no instances registered"}
	}

	var lastErr error
	for _, i := range rand.Perm(len(instances)) {
		c, err := Dial(instances[i].Endpoint, opts...)
		if err != nil {
			lastErr = err
			continue
		}
		return c, instances[i], nil
	}
	return nil, registry.ServiceInfo{}, lastErr
}
