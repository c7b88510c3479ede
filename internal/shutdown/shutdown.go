// Package shutdown coordinates graceful teardown. Hooks run sequentially in
// reverse registration order, so registering listener, scheduler, then store
// drains requests first and closes the database last.
package shutdown

import (
	"context"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/loglens/loglens/internal/logging"
)

// Hook performs one component's cleanup.
type Hook func(context.Context) error

// Config holds shutdown manager configuration.
type Config struct {
	Timeout time.Duration
	Logger  *logging.Logger
}

// Manager collects hooks and runs them once on signal or explicit request.
type Manager struct {
	logger  *logging.Logger
	timeout time.Duration

	mu    sync.Mutex
	hooks []namedHook

	once      sync.Once
	initiated chan struct{}
	doneCh    chan struct{}
}

type namedHook struct {
	name string
	fn   Hook
}

// New creates a shutdown manager; a zero timeout defaults to 30s.
func New(cfg Config) *Manager {
	if cfg.Timeout == 0 {
		cfg.Timeout = 30 * time.Second
	}
	return &Manager{
		logger:    cfg.Logger.WithComponent("shutdown"),
		timeout:   cfg.Timeout,
		initiated: make(chan struct{}),
		doneCh:    make(chan struct{}),
	}
}

// Register adds a named hook. Dependency order follows registration order:
// register a component before anything that must outlive it.
func (m *Manager) Register(name string, fn Hook) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.hooks = append(m.hooks, namedHook{name: name, fn: fn})
}

// WaitForSignal blocks until SIGINT or SIGTERM, then runs the hooks.
func (m *Manager) WaitForSignal() {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigCh)

	select {
	case sig := <-sigCh:
		m.logger.Info().Str("signal", sig.String()).Msg("shutdown signal received")
		m.Shutdown()
	case <-m.initiated:
	}
	<-m.doneCh
}

// Shutdown runs all hooks once, newest registration first, bounded by the
// configured timeout. Hook failures are logged and do not stop later hooks.
func (m *Manager) Shutdown() {
	m.once.Do(func() {
		close(m.initiated)
		defer close(m.doneCh)

		m.mu.Lock()
		hooks := make([]namedHook, len(m.hooks))
		copy(hooks, m.hooks)
		m.mu.Unlock()

		ctx, cancel := context.WithTimeout(context.Background(), m.timeout)
		defer cancel()

		m.logger.Info().Int("hooks", len(hooks)).Msg("starting graceful shutdown")
		failed := 0
		for i := len(hooks) - 1; i >= 0; i-- {
			h := hooks[i]
			if ctx.Err() != nil {
				m.logger.Warn().Str("hook", h.name).Msg("shutdown timeout reached, skipping remaining hooks")
				return
			}
			if err := h.fn(ctx); err != nil {
				failed++
				m.logger.Error().Err(err).Str("hook", h.name).Msg("shutdown hook failed")
				continue
			}
			m.logger.Debug().Str("hook", h.name).Msg("shutdown hook completed")
		}
		if failed > 0 {
			m.logger.Warn().Int("failed", failed).Msg("graceful shutdown completed with errors")
			return
		}
		m.logger.Info().Msg("graceful shutdown completed")
	})
}

// Initiated is closed as soon as shutdown begins; background loops can select
// on it next to their own contexts.
func (m *Manager) Initiated() <-chan struct{} {
	return m.initiated
}

// Done is closed after every hook has run or the timeout fired.
func (m *Manager) Done() <-chan struct{} {
	return m.doneCh
}
