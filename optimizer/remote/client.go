package remote

import (
	"context"
	"crypto/tls"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/keepalive"
	"google.golang.org/grpc/metadata"
	"google.golang.org/protobuf/types/known/wrapperspb"

	"github.com/zero-day-ai/tensorpath/optimizer"
	"github.com/zero-day-ai/tensorpath/path"
	"github.com/zero-day-ai/tensorpath/registry"
)

// DialOption configures Dial.
type DialOption func(*dialConfig)

type dialConfig struct {
	tls      *tls.Config
	logger   *slog.Logger
	grpcOpts []grpc.DialOption
}

// WithTLS dials with TLS instead of plaintext.
func WithTLS(conf *tls.Config) DialOption {
	return func(c *dialConfig) {
		c.tls = conf
	}
}

// WithClientLogger sets the logger. Defaults to slog.Default().
func WithClientLogger(logger *slog.Logger) DialOption {
	return func(c *dialConfig) {
		c.logger = logger
	}
}

// WithDialOptions appends raw grpc.DialOptions.
func WithDialOptions(opts ...grpc.DialOption) DialOption {
	return func(c *dialConfig) {
		c.grpcOpts = append(c.grpcOpts, opts...)
	}
}

// Client is an optimizer.Optimizer that forwards calls to a Server.
//
// Thread-safety: Client is safe for concurrent use.
type Client struct {
	conn   grpc.ClientConnInterface
	closer func() error
	logger *slog.Logger
}

// Dial creates a client for target. The connection is established lazily on
// the first call.
func Dial(target string, opts ...DialOption) (*Client, error) {
	cfg := &dialConfig{}
	for _, opt := range opts {
		opt(cfg)
	}

	var dialOpts []grpc.DialOption
	if cfg.tls != nil {
		dialOpts = append(dialOpts, grpc.WithTransportCredentials(credentials.NewTLS(cfg.tls)))
	} else {
		dialOpts = append(dialOpts, grpc.WithTransportCredentials(insecure.NewCredentials()))
	}
	dialOpts = append(dialOpts, grpc.WithKeepaliveParams(keepalive.ClientParameters{
		Time:                30 * time.Second,
		Timeout:             5 * time.Second,
		PermitWithoutStream: false,
	}))
	dialOpts = append(dialOpts, cfg.grpcOpts...)

	conn, err := grpc.NewClient(target, dialOpts...)
	if err != nil {
		return nil, &optimizer.Error{Backend: Backend, Err: optimizer.ErrUnavailable, Detail: err.Error()}
	}

	c := NewClient(conn)
	c.closer = conn.Close
	if cfg.logger != nil {
		c.logger = cfg.logger
	}
	return c, nil
}

// NewClient wraps an existing connection. Close does not close conn.
func NewClient(conn grpc.ClientConnInterface) *Client {
	return &Client{conn: conn, logger: slog.Default()}
}

// Discoverer finds optimizer servers by name. *registry.Client satisfies it.
type Discoverer interface {
	Discover(ctx context.Context, name string) ([]registry.ServiceInfo, error)
}

// DialDiscovered looks up the instances registered under name once and
// dials one of them at random. Use Follow to track the registry instead.
func DialDiscovered(ctx context.Context, d Discoverer, name string, opts ...DialOption) (*Client, registry.ServiceInfo, error) {
	instances, err := d.Discover(ctx, name)
	if err != nil {
		return nil, registry.ServiceInfo{}, &optimizer.Error{Backend: Backend, Err: optimizer.ErrUnavailable, Detail: err.Error()}
	}
	if len(instances) == 0 {
		return nil, registry.ServiceInfo{}, &optimizer.Error{
			Backend: Backend,
			Err:     optimizer.ErrUnavailable,
			Detail:  fmt.Sprintf("no instances registered under %q", name),
		}
	}
	return dialAny(instances, opts)
}

// Optimize sends req to the server and returns its path.
func (c *Client) Optimize(ctx context.Context, req *optimizer.Request) (path.Path, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	payload, err := json.Marshal(req)
	if err != nil {
		return nil, &optimizer.Error{Op: req.Op, Backend: Backend, Err: optimizer.ErrRejected, Detail: err.Error()}
	}

	requestID := uuid.NewString()
	ctx = metadata.AppendToOutgoingContext(ctx, requestIDKey, requestID)

	out := new(wrapperspb.BytesValue)
	if err := c.conn.Invoke(ctx, optimizeMethod, wrapperspb.Bytes(payload), out); err != nil {
		c.logger.Debug("remote optimize failed", "op", req.Op, "request_id", requestID, "error", err)
		return nil, fromStatus(req.Op, err)
	}

	var resp response
	if err := json.Unmarshal(out.GetValue(), &resp); err != nil {
		return nil, &optimizer.Error{Op: req.Op, Backend: Backend, Err: optimizer.ErrFailed, Detail: "decode response: " + err.Error()}
	}
	if resp.SSAPath == nil {
		resp.SSAPath = path.Path{}
	}
	return resp.SSAPath, nil
}

// Close closes a connection opened by Dial.
func (c *Client) Close() error {
	if c.closer == nil {
		return nil
	}
	closer := c.closer
	c.closer = nil
	return closer()
}
