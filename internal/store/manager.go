// Package store owns the connection to the backing Redis store. The
// connection is established lazily on first real use so an unreachable store
// never blocks startup; initialization is shared between concurrent callers
// and every command runs under a retry policy composed with a circuit
// breaker.
package store

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"net"
	"strings"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/abo-bahr-alqershi/BOOKn2-sub004/internal/config"
	"github.com/abo-bahr-alqershi/BOOKn2-sub004/internal/logger"
)

// ErrNotConnected is returned by accessors when the shared initialization
// did not complete in time or failed.
var ErrNotConnected = errors.New("store: not connected")

// Manager owns the lazy, resilient Redis connection and hands out keyspace,
// pub/sub and server-admin handles. All handles are safe for concurrent use.
type Manager struct {
	cfg  config.StoreConfig
	log  *logger.Logger
	exec *Executor

	mu     sync.Mutex
	done   chan struct{} // closed when the current init attempt finishes
	client *redis.Client
	err    error
}

// NewManager builds a Manager; no connection is made here.
func NewManager(cfg config.StoreConfig, exec *Executor, log *logger.Logger) *Manager {
	return &Manager{cfg: cfg, exec: exec, log: log}
}

// Executor exposes the shared retry/breaker wrapper so other components run
// their commands under the same policy.
func (m *Manager) Executor() *Executor { return m.exec }

// Keyspace returns the handle used for data commands. It synchronously
// awaits the shared initialization with the configured short timeout.
func (m *Manager) Keyspace(ctx context.Context) (*redis.Client, error) {
	return m.handle(ctx)
}

// PubSub returns the handle used for publish/subscribe operations.
func (m *Manager) PubSub(ctx context.Context) (*redis.Client, error) {
	return m.handle(ctx)
}

// ServerAdmin returns the handle used for server administration commands
// (INFO, FLUSHDB, memory maintenance).
func (m *Manager) ServerAdmin(ctx context.Context) (*redis.Client, error) {
	return m.handle(ctx)
}

// IsConnected reports whether the store currently answers a ping. It will
// trigger initialization if none has happened yet.
func (m *Manager) IsConnected(ctx context.Context) bool {
	client, err := m.handle(ctx)
	if err != nil {
		return false
	}
	return client.Ping(ctx).Err() == nil
}

// Flush empties the given logical database. Used by tests and the admin
// surface, never by the engine itself.
func (m *Manager) Flush(ctx context.Context, db int) error {
	client, err := m.ServerAdmin(ctx)
	if err != nil {
		return err
	}
	if db == m.cfg.DB {
		return client.FlushDB(ctx).Err()
	}
	conn := client.Conn()
	defer conn.Close()
	if err := conn.Select(ctx, db).Err(); err != nil {
		return err
	}
	return conn.FlushDB(ctx).Err()
}

// Close tears down the client if one was established.
func (m *Manager) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.client != nil {
		err := m.client.Close()
		m.client = nil
		m.done = nil
		return err
	}
	return nil
}

// handle waits for the shared init task (starting it if needed) and returns
// the client. The wait is bounded by the init timeout so background callers
// get a connectivity error instead of hanging.
func (m *Manager) handle(ctx context.Context) (*redis.Client, error) {
	m.mu.Lock()
	if m.client != nil {
		c := m.client
		m.mu.Unlock()
		return c, nil
	}
	if m.done == nil {
		// First caller starts a single shared initialization task; everyone
		// else awaits the same task. The lock guards task creation only, not
		// the connect itself.
		done := make(chan struct{})
		m.done = done
		go m.initialize(done)
	}
	done := m.done
	m.mu.Unlock()

	timeout := m.cfg.InitTimeout
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	select {
	case <-done:
	case <-time.After(timeout):
		return nil, fmt.Errorf("%w: initialization timed out after %s", ErrNotConnected, timeout)
	case <-ctx.Done():
		return nil, fmt.Errorf("%w: %v", ErrNotConnected, ctx.Err())
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if m.client == nil {
		if m.err != nil {
			return nil, fmt.Errorf("%w: %v", ErrNotConnected, m.err)
		}
		return nil, ErrNotConnected
	}
	return m.client, nil
}

// initialize performs the staged connection sequence: DNS pre-check, TCP
// reachability probe (both skipped for loopback hosts), bounded connect, and
// a post-connect ping of the default database plus a server endpoint. Any
// failure leaves the manager uninitialized so a later caller retries.
func (m *Manager) initialize(done chan struct{}) {
	client, err := m.connect()

	m.mu.Lock()
	if err != nil {
		m.err = err
		m.done = nil // next accessor starts a fresh attempt
		m.log.Warn("store initialization failed", "addr", m.cfg.Addr, "error", err)
	} else {
		m.client = client
		m.err = nil
		m.log.Info("store connected", "addr", m.cfg.Addr, "db", m.cfg.DB)
	}
	m.mu.Unlock()
	close(done)
}

func (m *Manager) connect() (*redis.Client, error) {
	host, _, err := net.SplitHostPort(m.cfg.Addr)
	if err != nil {
		host = m.cfg.Addr
	}

	probeTimeout := m.cfg.ProbeTimeout
	if probeTimeout <= 0 {
		probeTimeout = 2 * time.Second
	}
	if !isLoopback(host) {
		dnsCtx, cancel := context.WithTimeout(context.Background(), probeTimeout)
		_, dnsErr := net.DefaultResolver.LookupHost(dnsCtx, host)
		cancel()
		if dnsErr != nil {
			return nil, fmt.Errorf("dns pre-check for %q: %w", host, dnsErr)
		}
		conn, dialErr := net.DialTimeout("tcp", m.cfg.Addr, probeTimeout)
		if dialErr != nil {
			return nil, fmt.Errorf("tcp probe %s: %w", m.cfg.Addr, dialErr)
		}
		_ = conn.Close()
	}

	dialTimeout := m.cfg.DialTimeout
	if dialTimeout <= 0 {
		dialTimeout = 3 * time.Second
	}
	var tlsConf *tls.Config
	if m.cfg.UseTLS {
		tlsConf = &tls.Config{MinVersion: tls.VersionTLS12}
	}
	client := redis.NewClient(&redis.Options{
		Addr:        m.cfg.Addr,
		Password:    m.cfg.Password,
		DB:          m.cfg.DB,
		DialTimeout: dialTimeout,
		TLSConfig:   tlsConf,
	})

	ctx, cancel := context.WithTimeout(context.Background(), dialTimeout)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("ping db %d: %w", m.cfg.DB, err)
	}
	if err := client.Info(ctx, "server").Err(); err != nil {
		// Diagnostics only; some deployments restrict INFO.
		m.log.Warn("server info unavailable", "error", err)
	}
	return client, nil
}

func isLoopback(host string) bool {
	if strings.EqualFold(host, "localhost") {
		return true
	}
	if ip := net.ParseIP(host); ip != nil {
		return ip.IsLoopback()
	}
	return false
}
