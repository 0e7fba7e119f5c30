// Package server runs the agent's long-lived services and tears them down in
// order on signal, cancellation or the first service exit.
package server

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// DefaultShutdownTimeout bounds the closers run after the services exit.
const DefaultShutdownTimeout = 10 * time.Second

// Service is a long-running component. Run blocks until ctx is cancelled or
// the service finishes on its own.
type Service interface {
	Run(ctx context.Context) error
}

// ServiceFunc adapts a function into a Service.
type ServiceFunc func(ctx context.Context) error

// Run calls f.
func (f ServiceFunc) Run(ctx context.Context) error { return f(ctx) }

// Closer releases a resource at shutdown, e.g. a pool or tracer provider.
type Closer func(ctx context.Context) error

// Lifecycle runs services concurrently and runs closers in reverse
// registration order once every service has returned.
type Lifecycle struct {
	logger          *zap.Logger
	mu              sync.Mutex
	services        []named[Service]
	closers         []named[Closer]
	signals         []os.Signal
	ShutdownTimeout time.Duration
}

type named[T any] struct {
	name string
	v    T
}

// NewLifecycle creates a Lifecycle that stops on SIGINT or SIGTERM.
//
// Precondition: logger must be non-nil.
func NewLifecycle(logger *zap.Logger) *Lifecycle {
	return &Lifecycle{
		logger:          logger,
		signals:         []os.Signal{syscall.SIGINT, syscall.SIGTERM},
		ShutdownTimeout: DefaultShutdownTimeout,
	}
}

// Add registers a named service.
//
// Precondition: name must be non-empty; svc must be non-nil.
func (l *Lifecycle) Add(name string, svc Service) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.services = append(l.services, named[Service]{name, svc})
}

// OnShutdown registers a closer. Closers run last-registered first.
func (l *Lifecycle) OnShutdown(name string, c Closer) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.closers = append(l.closers, named[Closer]{name, c})
}

// Run starts every service and blocks until a signal arrives, ctx is
// cancelled or any service returns; the rest are then cancelled.
//
// Postcondition: every service has returned and every closer has run.
// Returns the first service error other than context cancellation, joined
// with any closer errors.
func (l *Lifecycle) Run(ctx context.Context) error {
	start := time.Now()
	l.mu.Lock()
	services := append([]named[Service](nil), l.services...)
	closers := append([]named[Closer](nil), l.closers...)
	l.mu.Unlock()

	sigCtx, stop := signal.NotifyContext(ctx, l.signals...)
	defer stop()
	runCtx, cancel := context.WithCancel(sigCtx)
	defer cancel()

	g, gctx := errgroup.WithContext(runCtx)
	for _, ns := range services {
		g.Go(func() error {
			l.logger.Info("starting service", zap.String("service", ns.name))
			svcStart := time.Now()
			err := ns.v.Run(gctx)
			cancel()
			if err != nil && !errors.Is(err, context.Canceled) {
				l.logger.Error("service failed",
					zap.String("service", ns.name),
					zap.Error(err),
					zap.Duration("uptime", time.Since(svcStart)),
				)
				return fmt.Errorf("service %s: %w", ns.name, err)
			}
			l.logger.Info("service stopped",
				zap.String("service", ns.name),
				zap.Duration("uptime", time.Since(svcStart)),
			)
			return nil
		})
	}
	l.logger.Info("all services started", zap.Int("count", len(services)))

	runErr := g.Wait()
	if sigCtx.Err() != nil && ctx.Err() == nil {
		l.logger.Info("received signal, shutting down")
	}

	closeErr := l.shutdown(closers)
	l.logger.Info("shutdown complete", zap.Duration("total_uptime", time.Since(start)))
	return errors.Join(runErr, closeErr)
}

func (l *Lifecycle) shutdown(closers []named[Closer]) error {
	ctx, cancel := context.WithTimeout(context.Background(), l.ShutdownTimeout)
	defer cancel()
	var errs []error
	for i := len(closers) - 1; i >= 0; i-- {
		c := closers[i]
		begin := time.Now()
		if err := c.v(ctx); err != nil {
			l.logger.Warn("closer failed", zap.String("closer", c.name), zap.Error(err))
			errs = append(errs, fmt.Errorf("closing %s: %w", c.name, err))
			continue
		}
		l.logger.Info("closed", zap.String("closer", c.name), zap.Duration("elapsed", time.Since(begin)))
	}
	return errors.Join(errs...)
}
