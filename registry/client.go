package registry

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	clientv3 "go.etcd.io/etcd/client/v3"
)

// EndpointsEnv names the environment variable holding comma-separated etcd
// endpoints. See ParseEndpoints.
const EndpointsEnv = "TENSORPATH_REGISTRY_ENDPOINTS"

var errClosed = errors.New("registry client is closed")

// etcd is the subset of *clientv3.Client the registry uses.
type etcd interface {
	Get(ctx context.Context, key string, opts ...clientv3.OpOption) (*clientv3.GetResponse, error)
	Put(ctx context.Context, key, val string, opts ...clientv3.OpOption) (*clientv3.PutResponse, error)
	Grant(ctx context.Context, ttl int64) (*clientv3.LeaseGrantResponse, error)
	Revoke(ctx context.Context, id clientv3.LeaseID) (*clientv3.LeaseRevokeResponse, error)
	KeepAliveOnce(ctx context.Context, id clientv3.LeaseID) (*clientv3.LeaseKeepAliveResponse, error)
	Watch(ctx context.Context, key string, opts ...clientv3.OpOption) clientv3.WatchChan
	Close() error
}

// Client implements Registry on an etcd cluster.
//
// Thread-safety: All methods are safe for concurrent use.
type Client struct {
	client    etcd
	namespace string
	ttl       int
	logger    *slog.Logger

	mu         sync.RWMutex
	leases     map[string]clientv3.LeaseID
	cancelFns  map[string]context.CancelFunc
	wg         sync.WaitGroup
	closed     bool
	closedChan chan struct{}
}

// NewClient connects to etcd and verifies the connection with a read.
func NewClient(cfg Config) (*Client, error) {
	if len(cfg.Endpoints) == 0 {
		return nil, errors.New("registry endpoints cannot be empty")
	}

	cfg = withDefaults(cfg)

	clientCfg := clientv3.Config{
		Endpoints:   cfg.Endpoints,
		DialTimeout: cfg.DialTimeout,
	}
	tlsConf, err := ClientTLS(cfg.TLS)
	if err != nil {
		return nil, fmt.Errorf("failed to configure TLS: %w", err)
	}
	clientCfg.TLS = tlsConf

	cli, err := clientv3.New(clientCfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create etcd client: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), cfg.DialTimeout)
	defer cancel()
	if _, err := cli.Get(ctx, "health-check"); err != nil {
		cli.Close()
		return nil, fmt.Errorf("etcd health check failed: %w", err)
	}

	return newClient(cli, cfg), nil
}

func newClient(cli etcd, cfg Config) *Client {
	cfg = withDefaults(cfg)
	return &Client{
		client:     cli,
		namespace:  cfg.Namespace,
		ttl:        cfg.TTL,
		logger:     slog.Default().With("component", "registry"),
		leases:     make(map[string]clientv3.LeaseID),
		cancelFns:  make(map[string]context.CancelFunc),
		closedChan: make(chan struct{}),
	}
}

// ParseEndpoints splits a comma-separated endpoint list, dropping blanks.
func ParseEndpoints(s string) []string {
	var out []string
	for _, ep := range strings.Split(s, ",") {
		if ep = strings.TrimSpace(ep); ep != "" {
			out = append(out, ep)
		}
	}
	return out
}

func withDefaults(cfg Config) Config {
	if cfg.Namespace == "" {
		cfg.Namespace = DefaultNamespace
	}
	if cfg.TTL <= 0 {
		cfg.TTL = DefaultTTL
	}
	if cfg.DialTimeout <= 0 {
		cfg.DialTimeout = 5 * time.Second
	}
	return cfg
}

// Register stores info under a fresh lease and starts renewing it.
// Re-registering an instance replaces its entry and keepalive and revokes
// the lease it held before.
func (c *Client) Register(ctx context.Context, info ServiceInfo) error {
	if info.Name == "" || info.InstanceID == "" {
		return errors.New("service name and instance ID are required")
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return errClosed
	}

	if cancelFn, exists := c.cancelFns[info.InstanceID]; exists {
		cancelFn()
		delete(c.cancelFns, info.InstanceID)
	}

	lease, err := c.client.Grant(ctx, int64(c.ttl))
	if err != nil {
		return fmt.Errorf("failed to create lease: %w", err)
	}

	data, err := json.Marshal(info)
	if err != nil {
		return fmt.Errorf("failed to marshal service info: %w", err)
	}

	key := buildKey(c.namespace, info.Name, info.InstanceID)
	if _, err := c.client.Put(ctx, key, string(data), clientv3.WithLease(lease.ID)); err != nil {
		return fmt.Errorf("failed to register service: %w", err)
	}

	// The entry now belongs to the new lease, so revoking the old one does
	// not remove it.
	if old, exists := c.leases[info.InstanceID]; exists && old != lease.ID {
		if _, err := c.client.Revoke(ctx, old); err != nil {
			c.logger.Warn("failed to revoke previous lease", "instance_id", info.InstanceID, "error", err)
		}
	}
	c.leases[info.InstanceID] = lease.ID

	keepaliveCtx, cancel := context.WithCancel(context.Background())
	c.cancelFns[info.InstanceID] = cancel

	c.wg.Add(1)
	go c.keepalive(keepaliveCtx, lease.ID, info.InstanceID)

	c.logger.Info("registered optimizer", "name", info.Name, "instance_id", info.InstanceID, "endpoint", info.Endpoint)
	return nil
}

// Deregister revokes the instance's lease, which deletes its entry.
func (c *Client) Deregister(ctx context.Context, info ServiceInfo) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return errClosed
	}

	if cancelFn, exists := c.cancelFns[info.InstanceID]; exists {
		cancelFn()
		delete(c.cancelFns, info.InstanceID)
	}

	leaseID, exists := c.leases[info.InstanceID]
	if !exists {
		return nil
	}

	if _, err := c.client.Revoke(ctx, leaseID); err != nil {
		return fmt.Errorf("failed to revoke lease: %w", err)
	}
	delete(c.leases, info.InstanceID)

	c.logger.Info("deregistered optimizer", "name", info.Name, "instance_id", info.InstanceID)
	return nil
}

// Discover returns every live instance registered under name.
func (c *Client) Discover(ctx context.Context, name string) ([]ServiceInfo, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	if c.closed {
		return nil, errClosed
	}
	return c.list(ctx, namePrefix(c.namespace, name))
}

// DiscoverAll returns every live optimizer instance.
func (c *Client) DiscoverAll(ctx context.Context) ([]ServiceInfo, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	if c.closed {
		return nil, errClosed
	}
	return c.list(ctx, kindPrefix(c.namespace))
}

// Watch streams the instances registered under name.
func (c *Client) Watch(ctx context.Context, name string) (<-chan []ServiceInfo, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	if c.closed {
		return nil, errClosed
	}

	prefix := namePrefix(c.namespace, name)
	instances, err := c.list(ctx, prefix)
	if err != nil {
		return nil, err
	}

	ch := make(chan []ServiceInfo, 1)
	ch <- instances

	watchChan := c.client.Watch(ctx, prefix, clientv3.WithPrefix())

	c.wg.Add(1)
	go func() {
		defer c.wg.Done()
		defer close(ch)

		for {
			select {
			case <-ctx.Done():
				return
			case <-c.closedChan:
				return
			case resp, ok := <-watchChan:
				if !ok || resp.Err() != nil {
					return
				}

				instances, err := c.list(ctx, prefix)
				if err != nil {
					c.logger.Warn("registry watch refresh failed", "name", name, "error", err)
					continue
				}

				select {
				case ch <- instances:
				case <-ctx.Done():
					return
				case <-c.closedChan:
					return
				}
			}
		}
	}()

	return ch, nil
}

// Close stops keepalives and watches and closes the etcd client.
func (c *Client) Close() error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil
	}
	c.closed = true

	for _, cancel := range c.cancelFns {
		cancel()
	}
	c.cancelFns = make(map[string]context.CancelFunc)

	close(c.closedChan)
	c.mu.Unlock()

	c.wg.Wait()
	return c.client.Close()
}

func (c *Client) list(ctx context.Context, prefix string) ([]ServiceInfo, error) {
	resp, err := c.client.Get(ctx, prefix, clientv3.WithPrefix())
	if err != nil {
		return nil, fmt.Errorf("failed to discover services: %w", err)
	}

	instances := make([]ServiceInfo, 0, len(resp.Kvs))
	for _, kv := range resp.Kvs {
		info, err := decodeInfo(kv.Value)
		if err != nil {
			c.logger.Warn("skipping malformed registry entry", "key", string(kv.Key), "error", err)
			continue
		}
		instances = append(instances, info)
	}
	return instances, nil
}

// keepalive renews the lease every TTL/3 until cancelled or the lease is lost.
func (c *Client) keepalive(ctx context.Context, leaseID clientv3.LeaseID, instanceID string) {
	defer c.wg.Done()

	ticker := time.NewTicker(keepaliveInterval(c.ttl))
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-c.closedChan:
			return
		case <-ticker.C:
			if _, err := c.client.KeepAliveOnce(ctx, leaseID); err != nil {
				if ctx.Err() != nil {
					return
				}
				c.logger.Warn("registry lease lost", "instance_id", instanceID, "error", err)
				c.mu.Lock()
				if c.leases[instanceID] == leaseID {
					delete(c.leases, instanceID)
					if cancel, ok := c.cancelFns[instanceID]; ok {
						cancel()
						delete(c.cancelFns, instanceID)
					}
				}
				c.mu.Unlock()
				return
			}
		}
	}
}

func keepaliveInterval(ttl int) time.Duration {
	return time.Duration(ttl) * time.Second / 3
}

func decodeInfo(data []byte) (ServiceInfo, error) {
	var info ServiceInfo
	if err := json.Unmarshal(data, &info); err != nil {
		return ServiceInfo{}, err
	}
	if info.Name == "" || info.Endpoint == "" {
		return ServiceInfo{}, errors.New("entry has no name or endpoint")
	}
	return info, nil
}

func kindPrefix(namespace string) string {
	return fmt.Sprintf("/%s/%s/", namespace, Kind)
}

func namePrefix(namespace, name string) string {
	return fmt.Sprintf("/%s/%s/%s/", namespace, Kind, name)
}

// buildKey returns /namespace/optimizer/name/instance-id.
func buildKey(namespace, name, instanceID string) string {
	return namePrefix(namespace, name) + instanceID
}
