package service

import (
	"context"
	"time"

	"github.com/cuemby/cstarorch/pkg/log"
	"github.com/cuemby/cstarorch/pkg/types"
)

// minHealthCheckWait floors the health-check worker's wait so a
// Configuration.HealthCheckFrequency of 0 ("probe every iteration")
// cannot degenerate into a zero-duration busy loop.
const minHealthCheckWait = 100 * time.Millisecond

// Configuration controls a Service's lifetime and pacing.
type Configuration struct {
	// AsService, when false, makes Execute perform exactly one
	// iteration and return regardless of CanShutdown.
	AsService bool

	// LoopDelay is the sleep between iterations. Zero disables it.
	LoopDelay time.Duration

	// HealthCheckFrequency is the interval between health probes on
	// the independent health-check worker. Zero means "probe every
	// iteration" (floored at minHealthCheckWait, never busy-spun).
	HealthCheckFrequency time.Duration

	// Name identifies the service in log output.
	Name string
}

// Hooks are the overridable lifecycle callbacks, Go's function-field
// analogue of the original's abstract methods.
type Hooks struct {
	OnStart             func(ctx context.Context) error
	OnIteration         func(ctx context.Context) error
	OnIterationComplete func(ctx context.Context)
	CanShutdown         func() bool
	OnShutdown          func() error
	OnHealthCheck       func()
	OnDelay             func()
}

// Service drives Hooks through the lifecycle Configuration describes.
type Service struct {
	cfg   Configuration
	hooks Hooks
}

// New constructs a Service. A nil hook is simply skipped at its call
// site; only OnIteration is expected to usually be set.
func New(cfg Configuration, hooks Hooks) *Service {
	return &Service{cfg: cfg, hooks: hooks}
}

// Execute runs the full service lifecycle: starts the health-check
// worker, invokes OnStart (any error aborts before the loop is entered),
// then repeats {OnIteration; OnIterationComplete} with cooperative
// shutdown testing and delay. On loop exit it stops the health-check
// worker and invokes OnShutdown; an OnShutdown error is logged but never
// returned.
func (s *Service) Execute(ctx context.Context) error {
	logger := log.WithComponent(s.componentName())

	quit := make(chan struct{}, 1)
	done := make(chan struct{})
	go s.healthCheckLoop(ctx, quit, done)
	defer func() {
		select {
		case quit <- struct{}{}:
		default:
		}
		<-done
	}()

	if s.hooks.OnStart != nil {
		if err := s.hooks.OnStart(ctx); err != nil {
			logger.Error().Err(err).Msg("unable to start service")
			return &types.FatalLoopError{Err: err}
		}
	}

	var loopErr error
loop:
	for {
		if err := ctx.Err(); err != nil {
			loopErr = err
			break
		}

		var iterErr error
		if s.hooks.OnIteration != nil {
			iterErr = s.hooks.OnIteration(ctx)
		}
		if iterErr != nil {
			logger.Error().Err(iterErr).Msg("failure in event loop resulted in service termination")
			loopErr = &types.FatalLoopError{Err: iterErr}
			break
		}
		if s.hooks.OnIterationComplete != nil {
			s.hooks.OnIterationComplete(ctx)
		}

		if !s.cfg.AsService {
			break
		}
		if s.hooks.CanShutdown != nil && s.hooks.CanShutdown() {
			break
		}

		if s.cfg.LoopDelay > 0 {
			if s.hooks.OnDelay != nil {
				s.hooks.OnDelay()
			}
			select {
			case <-ctx.Done():
				loopErr = ctx.Err()
				break loop
			case <-time.After(s.cfg.LoopDelay):
			}
		}
	}

	if s.hooks.OnShutdown != nil {
		if err := s.hooks.OnShutdown(); err != nil {
			logger.Error().Err(err).Msg("service shutdown may not have completed")
		}
	}
	return loopErr
}

func (s *Service) componentName() string {
	if s.cfg.Name == "" {
		return "service"
	}
	return s.cfg.Name
}

// healthCheckLoop runs on its own goroutine, calling OnHealthCheck on an
// independent cadence so a blocking OnIteration never starves it. It
// exits on ctx cancellation or a value on quit.
func (s *Service) healthCheckLoop(ctx context.Context, quit <-chan struct{}, done chan<- struct{}) {
	defer close(done)

	freq := s.cfg.HealthCheckFrequency
	if freq < minHealthCheckWait {
		freq = minHealthCheckWait
	}

	ticker := time.NewTicker(freq)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-quit:
			return
		case <-ticker.C:
			if s.hooks.OnHealthCheck != nil {
				s.hooks.OnHealthCheck()
			}
		}
	}
}
