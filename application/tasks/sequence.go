// Package tasks runs multi-step operations as explicit sequences with
// per-step retry and compensation, cancelled through the context rather
// than ad hoc timers.
package tasks

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"
)

// Step represents a single step in a sequence
type Step struct {
	Name       string
	Execute    func(ctx context.Context, data interface{}) (interface{}, error)
	Compensate func(ctx context.Context, data interface{}) error
	MaxRetries int
	RetryDelay time.Duration
}

// State represents the current state of a sequence execution
type State string

const (
	StatePending      State = "PENDING"
	StateRunning      State = "RUNNING"
	StateCompleted    State = "COMPLETED"
	StateFailed       State = "FAILED"
	StateCompensating State = "COMPENSATING"
	StateCompensated  State = "COMPENSATED"
)

// Sequence orchestrates a series of steps with compensation logic
type Sequence struct {
	id            string
	name          string
	steps         []Step
	compensations []func(ctx context.Context) error
	state         State
	currentStep   int
	logger        *zap.Logger
}

// NewSequence creates a new sequence instance
func NewSequence(name string, logger *zap.Logger) *Sequence {
	return &Sequence{
		id:     fmt.Sprintf("seq_%d", time.Now().UnixNano()),
		name:   name,
		state:  StatePending,
		logger: logger,
	}
}

// AddStep adds a step to the sequence
func (s *Sequence) AddStep(step Step) *Sequence {
	s.steps = append(s.steps, step)
	return s
}

// Execute runs the sequence. Cancelling the context aborts between
// retries and compensates the completed steps.
func (s *Sequence) Execute(ctx context.Context, initialData interface{}) (interface{}, error) {
	s.state = StateRunning
	s.logger.Debug("Starting sequence",
		zap.String("sequence_id", s.id),
		zap.String("sequence_name", s.name),
		zap.Int("total_steps", len(s.steps)),
	)

	var data interface{} = initialData
	completedSteps := 0

	for i, step := range s.steps {
		s.currentStep = i

		result, err := s.executeStepWithRetry(ctx, step, data)
		if err != nil {
			s.state = StateFailed
			s.logger.Warn("Sequence step failed",
				zap.String("sequence_id", s.id),
				zap.String("step_name", step.Name),
				zap.Error(err),
			)

			if compensateErr := s.compensate(ctx, completedSteps); compensateErr != nil {
				return nil, fmt.Errorf("sequence %s failed at step %s and compensation failed: %w", s.name, step.Name, err)
			}
			s.state = StateCompensated
			return nil, fmt.Errorf("sequence %s failed at step %s: %w", s.name, step.Name, err)
		}

		data = result
		completedSteps = i + 1

		if step.Compensate != nil {
			stepData := data
			compensate := step.Compensate
			s.compensations = append(s.compensations, func(ctx context.Context) error {
				return compensate(ctx, stepData)
			})
		}
	}

	s.state = StateCompleted
	s.logger.Debug("Sequence completed",
		zap.String("sequence_id", s.id),
		zap.String("sequence_name", s.name),
		zap.Int("completed_steps", completedSteps),
	)
	return data, nil
}

// executeStepWithRetry executes a step with retry logic
func (s *Sequence) executeStepWithRetry(ctx context.Context, step Step, data interface{}) (interface{}, error) {
	maxRetries := step.MaxRetries
	if maxRetries == 0 {
		maxRetries = 1
	}
	retryDelay := step.RetryDelay
	if retryDelay == 0 {
		retryDelay = time.Second
	}

	var lastErr error
	for attempt := 0; attempt < maxRetries; attempt++ {
		if attempt > 0 {
			select {
			case <-time.After(retryDelay):
			case <-ctx.Done():
				return nil, ctx.Err()
			}
		}

		result, err := step.Execute(ctx, data)
		if err == nil {
			return result, nil
		}

		lastErr = err
		s.logger.Debug("Sequence step attempt failed",
			zap.String("sequence_id", s.id),
			zap.String("step_name", step.Name),
			zap.Int("attempt", attempt+1),
			zap.Error(err),
		)
	}

	return nil, fmt.Errorf("step %s failed after %d attempts: %w", step.Name, maxRetries, lastErr)
}

// compensate runs compensation logic in reverse order
func (s *Sequence) compensate(ctx context.Context, steps int) error {
	s.state = StateCompensating
	for i := steps - 1; i >= 0; i-- {
		if i < len(s.compensations) && s.compensations[i] != nil {
			if err := s.compensations[i](ctx); err != nil {
				s.logger.Warn("Compensation failed",
					zap.String("sequence_id", s.id),
					zap.Int("step_number", i+1),
					zap.Error(err),
				)
				// Keep compensating the remaining steps.
			}
		}
	}
	return nil
}

// GetState returns the current state of the sequence
func (s *Sequence) GetState() State {
	return s.state
}

// GetID returns the sequence ID
func (s *Sequence) GetID() string {
	return s.id
}
