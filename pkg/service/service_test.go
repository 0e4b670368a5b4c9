package service

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExecuteSingleShotWhenNotAsService(t *testing.T) {
	var iterations int32
	svc := New(Configuration{AsService: false}, Hooks{
		OnIteration: func(ctx context.Context) error {
			atomic.AddInt32(&iterations, 1)
			return nil
		},
	})

	require.NoError(t, svc.Execute(context.Background()))
	assert.EqualValues(t, 1, iterations)
}

func TestExecuteLoopsUntilCanShutdown(t *testing.T) {
	var iterations int32
	svc := New(Configuration{AsService: true}, Hooks{
		OnIteration: func(ctx context.Context) error {
			atomic.AddInt32(&iterations, 1)
			return nil
		},
		CanShutdown: func() bool {
			return atomic.LoadInt32(&iterations) >= 3
		},
	})

	require.NoError(t, svc.Execute(context.Background()))
	assert.EqualValues(t, 3, iterations)
}

func TestExecuteReturnsFatalLoopErrorOnIterationFailure(t *testing.T) {
	svc := New(Configuration{AsService: true}, Hooks{
		OnIteration: func(ctx context.Context) error {
			return errors.New("boom")
		},
	})

	err := svc.Execute(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "boom")
}

func TestExecuteAbortsBeforeLoopOnStartFailure(t *testing.T) {
	var iterations int32
	svc := New(Configuration{AsService: true}, Hooks{
		OnStart: func(ctx context.Context) error {
			return errors.New("cannot start")
		},
		OnIteration: func(ctx context.Context) error {
			atomic.AddInt32(&iterations, 1)
			return nil
		},
	})

	err := svc.Execute(context.Background())
	require.Error(t, err)
	assert.EqualValues(t, 0, iterations)
}

func TestExecuteRunsHealthCheckIndependentlyOfSlowIteration(t *testing.T) {
	var healthChecks int32
	svc := New(Configuration{AsService: false, HealthCheckFrequency: 0}, Hooks{
		OnIteration: func(ctx context.Context) error {
			time.Sleep(250 * time.Millisecond)
			return nil
		},
		OnHealthCheck: func() {
			atomic.AddInt32(&healthChecks, 1)
		},
	})

	require.NoError(t, svc.Execute(context.Background()))
	assert.Greater(t, atomic.LoadInt32(&healthChecks), int32(0))
}

func TestExecuteLogsButDoesNotPropagateShutdownError(t *testing.T) {
	svc := New(Configuration{AsService: false}, Hooks{
		OnIteration: func(ctx context.Context) error { return nil },
		OnShutdown: func() error {
			return errors.New("cleanup failed")
		},
	})

	assert.NoError(t, svc.Execute(context.Background()))
}
