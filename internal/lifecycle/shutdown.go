// Package lifecycle coordinates readiness probes and ordered shutdown.
package lifecycle

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"
)

// Shutdown runs hooks phase by phase, so servers drain before the stores
// they depend on are closed. It runs at most once.
type Shutdown struct {
	mu    sync.Mutex
	hooks []Hook
	once  sync.Once
	log   *slog.Logger
}

func NewShutdown(log *slog.Logger) *Shutdown {
	if log == nil {
		log = slog.Default()
	}
	return &Shutdown{log: log}
}

// Register adds fn as a hook of phase.
func (s *Shutdown) Register(phase Phase, name string, fn func(context.Context) error) {
	s.Add(Hook{Name: name, Phase: phase, Fn: fn})
}

func (s *Shutdown) Add(hook Hook) {
	if hook.Fn == nil {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.hooks = append(s.hooks, hook)
}

// Execute runs every hook. A failing hook does not stop the others; all
// failures are joined into the returned error.
func (s *Shutdown) Execute(ctx context.Context) error {
	var err error
	s.once.Do(func() { err = s.execute(ctx) })
	return err
}

func (s *Shutdown) execute(ctx context.Context) error {
	s.mu.Lock()
	hooks := slices.Clone(s.hooks)
	s.mu.Unlock()

	slices.SortStableFunc(hooks, func(a, b Hook) int { return int(a.Phase) - int(b.Phase) })

	start := time.Now()
	errs := s.runPhases(ctx, hooks)
	s.log.Info("shutdown finished", slog.Int("hooks", len(hooks)), slog.Int("failed", len(errs)), slog.Duration("elapsed", time.Since(start)))

	return errors.Join(errs...)
}

// runPhases runs sorted hooks, one phase at a time.
func (s *Shutdown) runPhases(ctx context.Context, hooks []Hook) []error {
	var errs []error
	for len(hooks) > 0 {
		n := 1
		for n < len(hooks) && hooks[n].Phase == hooks[0].Phase {
			n++
		}
		errs = append(errs, s.runPhase(ctx, hooks[0].Phase, hooks[:n])...)
		hooks = hooks[n:]
	}
	return errs
}

func (s *Shutdown) runPhase(ctx context.Context, phase Phase, hooks []Hook) []error {
	results := make([]error, len(hooks))

	var g errgroup.Group
	for i, h := range hooks {
		g.Go(func() error {
			if err := h.Fn(ctx); err != nil {
				s.log.Error("shutdown hook failed", slog.String("phase", phase.String()), slog.String("hook", h.Name), slog.Any("error", err))
				results[i] = fmt.Errorf("%s: %w", h.Name, err)
				return nil
			}
			s.log.Debug("shutdown hook done", slog.String("phase", phase.String()), slog.String("hook", h.Name))
			return nil
		})
	}
	_ = g.Wait()

	return slices.DeleteFunc(results, func(err error) bool { return err == nil })
}
