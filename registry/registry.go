// Package registry announces and discovers optimizer servers through etcd.
//
// A server registers one ServiceInfo per running instance under a lease; the
// lease is renewed every TTL/3 and the entry disappears when the process
// stops renewing it. Clients look up instances by name and dial one of the
// returned endpoints.
//
// Keys have the form /<namespace>/optimizer/<name>/<instance-id>.
package registry

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Kind is the key segment shared by every optimizer entry.
const Kind = "optimizer"

// DefaultNamespace is used when Config.Namespace is empty.
const DefaultNamespace = "tensorpath"

// DefaultTTL is the lease lifetime in seconds when Config.TTL is not positive.
const DefaultTTL = 30

// ServiceInfo describes one running optimizer server.
type ServiceInfo struct {
	// Name groups interchangeable instances (e.g. "cotengra").
	Name string `json:"name"`

	// Backend is the optimizer backend the server runs.
	Backend string `json:"backend"`

	// InstanceID identifies this process. See NewInstanceID.
	InstanceID string `json:"instance_id"`

	// Endpoint is the gRPC dial target, "host:port".
	Endpoint string `json:"endpoint"`

	// Metadata holds free-form attributes such as the cotengra version.
	Metadata map[string]string `json:"metadata,omitempty"`

	// StartedAt is when the instance started.
	StartedAt time.Time `json:"started_at"`
}

// NewInstanceID returns a random instance identifier.
func NewInstanceID() string {
	return uuid.NewString()
}

// Registry registers and discovers optimizer servers.
//
// Implementations must be safe for concurrent use.
type Registry interface {
	// Register adds or replaces the entry for info.InstanceID and keeps it
	// alive until Deregister or Close.
	Register(ctx context.Context, info ServiceInfo) error

	// Deregister removes the entry. Unknown instances are a no-op.
	Deregister(ctx context.Context, info ServiceInfo) error

	// Discover returns every live instance registered under name, in no
	// particular order.
	Discover(ctx context.Context, name string) ([]ServiceInfo, error)

	// DiscoverAll returns every live optimizer instance.
	DiscoverAll(ctx context.Context) ([]ServiceInfo, error)

	// Watch sends the current instances of name immediately and again after
	// every change. The channel is closed when ctx ends or the registry is
	// closed.
	Watch(ctx context.Context, name string) (<-chan []ServiceInfo, error)

	// Close stops keepalives and watches and releases the connection.
	Close() error
}

// Config holds the etcd connection settings.
type Config struct {
	// Endpoints lists the etcd members, "host:port". Required.
	Endpoints []string `json:"endpoints" yaml:"endpoints"`

	// Namespace prefixes every key. Default: DefaultNamespace.
	Namespace string `json:"namespace" yaml:"namespace"`

	// TTL is the lease lifetime in seconds. Default: DefaultTTL.
	TTL int `json:"ttl" yaml:"ttl"`

	// DialTimeout bounds the initial connection. Default: 5s.
	DialTimeout time.Duration `json:"dial_timeout" yaml:"dial_timeout"`

	// TLS enables mutual TLS when non-nil and Enabled.
	TLS *TLSConfig `json:"tls,omitempty" yaml:"tls,omitempty"`
}

// TLSConfig holds the PEM files used for mutual TLS with etcd.
type TLSConfig struct {
	Enabled  bool   `json:"enabled" yaml:"enabled"`
	CertFile string `json:"cert_file" yaml:"cert_file"`
	KeyFile  string `json:"key_file" yaml:"key_file"`
	CAFile   string `json:"ca_file" yaml:"ca_file"`
}
