package caseform

import (
	"context"
	"time"

	"go.uber.org/zap"
)

const compensationTimeout = 30 * time.Second

// Saga collects the undo step of every write made while saving a case.
// A compensation is recorded right after its write succeeds and before the
// next write starts, so a failure at any point knows exactly what to undo.
type Saga struct {
	name  string
	steps []compensation
}

type compensation struct {
	step string
	undo func(ctx context.Context) error
}

// NewSaga starts an empty saga. name is only used in logs.
func NewSaga(name string) *Saga {
	return &Saga{name: name}
}

// Record registers the undo of a write that just succeeded
func (s *Saga) Record(step string, undo func(ctx context.Context) error) {
	s.steps = append(s.steps, compensation{step: step, undo: undo})
}

// Len returns how many compensations are recorded
func (s *Saga) Len() int {
	return len(s.steps)
}

// Rollback runs the compensations in reverse order. A failing compensation
// is logged and the rest still run. The returned slice holds every failure.
// Compensations run on a context detached from ctx's cancellation so a
// request that timed out can still be cleaned up.
func (s *Saga) Rollback(ctx context.Context) []error {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), compensationTimeout)
	defer cancel()

	var errs []error
	for i := len(s.steps) - 1; i >= 0; i-- {
		c := s.steps[i]
		if err := c.undo(ctx); err != nil {
			zap.S().Errorw("compensation failed", "saga", s.name, "step", c.step, "error", err)
			errs = append(errs, err)
		}
	}
	zap.S().Warnw("saga rolled back", "saga", s.name, "steps", len(s.steps), "failed", len(errs))
	s.steps = nil
	return errs
}
