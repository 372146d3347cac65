// Package anim sequences the two settling animations of a topicmap.
//
// Restore moves every visible topic back to its model position. Fisheye runs
// a local relayout so neighbours make room for expanded details; starting a
// fisheye stops the one still running. Both report completion as loop futures
// and never fail: animation errors are logged, since a half-played animation
// leaves the model intact.
package anim

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/teranos/topicmap/errors"
	"github.com/teranos/topicmap/logger"
	"github.com/teranos/topicmap/loop"
	"github.com/teranos/topicmap/render"
	"github.com/teranos/topicmap/topicmap"
)

// Config switches the animations and bounds how long one may take
type Config struct {
	RestoreAnimation bool
	Fisheye          bool
	Timeout          time.Duration
}

// DefaultConfig enables both animations
func DefaultConfig() Config {
	return Config{RestoreAnimation: true, Fisheye: true, Timeout: 3 * time.Second}
}

// Scheduler plays animations for one session. Its methods must be called on the loop.
type Scheduler struct {
	l      *loop.Loop
	r      render.Renderer
	cfg    Config
	logger *zap.SugaredLogger

	fisheyeCancel context.CancelFunc
	fisheyeRuns   int
}

// NewScheduler creates a scheduler issuing animations to r
func NewScheduler(l *loop.Loop, r render.Renderer, cfg Config, log *zap.SugaredLogger) *Scheduler {
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultConfig().Timeout
	}
	return &Scheduler{l: l, r: r, cfg: cfg, logger: logger.OrNop(log)}
}

// Config returns the active configuration
func (s *Scheduler) Config() Config {
	return s.cfg
}

// Restore animates every visible topic of m to its model position.
// The future settles once all animations completed.
func (s *Scheduler) Restore(m *topicmap.Topicmap) *loop.Future[struct{}] {
	if !s.cfg.RestoreAnimation {
		return loop.Resolved(s.l, struct{}{})
	}

	var moves []loop.Settler
	for _, vt := range m.Topics() {
		if !vt.Visible {
			continue
		}
		ref, pos := render.ElementRef(vt.ID), vt.Pos
		moves = append(moves, loop.Go(s.l, func(ctx context.Context) (struct{}, error) {
			ctx, cancel := context.WithTimeout(ctx, s.cfg.Timeout)
			defer cancel()
			return struct{}{}, s.r.AnimateElementPosition(ctx, ref, pos)
		}))
	}

	done := loop.NewFuture[struct{}](s.l)
	loop.All(s.l, moves...).Then(func(_ struct{}, err error) {
		if err != nil {
			s.logger.Warnw("Restore animation incomplete", logger.FieldError, err)
		}
		done.Resolve(struct{}{}, nil)
	})
	return done
}

// Fisheye runs a local relayout, stopping any relayout still in flight.
func (s *Scheduler) Fisheye() *loop.Future[struct{}] {
	if !s.cfg.Fisheye {
		return loop.Resolved(s.l, struct{}{})
	}
	if s.fisheyeCancel != nil {
		s.fisheyeCancel()
	}

	ctx, cancel := context.WithTimeout(s.l.Context(), s.cfg.Timeout)
	s.fisheyeCancel = cancel
	s.fisheyeRuns++
	run := s.fisheyeRuns

	done := loop.NewFuture[struct{}](s.l)
	loop.Go(s.l, func(context.Context) (struct{}, error) {
		return struct{}{}, s.r.RunLocalRelayout(ctx)
	}).Then(func(_ struct{}, err error) {
		cancel()
		if run == s.fisheyeRuns {
			s.fisheyeCancel = nil
		}
		switch {
		case errors.Is(err, context.Canceled):
			s.logger.Debugw("Fisheye superseded", "run", run)
		case err != nil:
			s.logger.Warnw("Fisheye animation failed", logger.FieldError, err)
		}
		done.Resolve(struct{}{}, nil)
	})
	return done
}

// FisheyeIfDetailsOnscreen plays the fisheye only when some detail is displayed
func (s *Scheduler) FisheyeIfDetailsOnscreen(onscreen int) *loop.Future[struct{}] {
	if onscreen == 0 {
		return loop.Resolved(s.l, struct{}{})
	}
	return s.Fisheye()
}

// FisheyeRuns counts fisheye animations started
func (s *Scheduler) FisheyeRuns() int {
	return s.fisheyeRuns
}
