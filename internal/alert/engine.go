package alert

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/siteeye/internal/config"
	"go.uber.org/zap"
)

// Engine owns the three periodic loops: detection, escalation, and
// cleanup. The stores are the only shared state between them.
type Engine struct {
	cfg       config.EngineConfig
	detector  *Detector
	scheduler *Scheduler
	logger    *zap.Logger

	mu      sync.Mutex
	running bool
	cancel  context.CancelFunc
	wg      sync.WaitGroup
}

func NewEngine(cfg config.EngineConfig, detector *Detector, scheduler *Scheduler, logger *zap.Logger) *Engine {
	return &Engine{
		cfg:       cfg,
		detector:  detector,
		scheduler: scheduler,
		logger:    logger,
	}
}

// Start validates the configuration and launches the loops. Calling
// Start on a running engine is a logged no-op.
func (e *Engine) Start() error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.running {
		e.logger.Warn("alert engine already running")
		return nil
	}

	if err := e.cfg.Validate(); err != nil {
		return fmt.Errorf("invalid engine config: %w", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	e.cancel = cancel
	e.running = true

	e.wg.Add(3)
	go e.loop(ctx, "detection", e.cfg.DetectionInterval, func() {
		// In-flight work is never cancelled; Stop only prevents new
		// ticks from starting.
		e.detector.RunTick(context.Background())
	})
	go e.loop(ctx, "escalation", e.cfg.EscalationInterval, func() {
		e.scheduler.RunEscalationTick()
	})
	go e.loop(ctx, "cleanup", e.cfg.CleanupInterval, func() {
		e.scheduler.RunCleanup()
	})

	e.logger.Info("alert engine started",
		zap.Duration("detection_interval", e.cfg.DetectionInterval),
		zap.Duration("escalation_interval", e.cfg.EscalationInterval),
		zap.Duration("cleanup_interval", e.cfg.CleanupInterval),
	)
	return nil
}

// Stop cancels the loops and waits for them to exit. Idempotent.
func (e *Engine) Stop() {
	e.mu.Lock()
	if !e.running {
		e.mu.Unlock()
		return
	}
	e.running = false
	cancel := e.cancel
	e.mu.Unlock()

	cancel()
	e.wg.Wait()
	e.logger.Info("alert engine stopped")
}

// Running reports whether the loops are active.
func (e *Engine) Running() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.running
}

// loop runs tick on the interval until the context is cancelled.
// Iteration failures, including panics, are terminal to that iteration
// only.
func (e *Engine) loop(ctx context.Context, name string, interval time.Duration, tick func()) {
	defer e.wg.Done()

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			e.safeTick(name, tick)
		case <-ctx.Done():
			return
		}
	}
}

func (e *Engine) safeTick(name string, tick func()) {
	defer func() {
		if r := recover(); r != nil {
			e.logger.Error("tick panicked", zap.String("loop", name), zap.Any("panic", r))
		}
	}()
	tick()
}
