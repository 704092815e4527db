package application

import (
	"context"
	"time"

	"github.com/bnema/engagement-accounts-cli/internal/ports"
)

// Sequence describes one run of ordered, spaced steps.
type Sequence struct {
	Steps int
	Delay time.Duration
	// Step performs step i and returns once its work has settled.
	Step func(ctx context.Context, i int)
	// Aborted is polled before every step after the first.
	Aborted func() bool
	// OnComplete runs exactly once with the number of steps that ran.
	OnComplete func(executed int, aborted bool)
}

// Sequencer runs steps one after another. Step i is due at start + i*Delay, so a slow
// step shortens the gap before the next one instead of pushing the schedule back.
type Sequencer struct {
	clock ports.Clock
}

func NewSequencer(clock ports.Clock) *Sequencer {
	if clock == nil {
		clock = ports.SystemClock{}
	}
	return &Sequencer{clock: clock}
}

func (s *Sequencer) Run(ctx context.Context, seq Sequence) {
	executed := 0
	aborted := false
	defer func() {
		if seq.OnComplete != nil {
			seq.OnComplete(executed, aborted)
		}
	}()

	start := s.clock.Now()
	for i := 0; i < seq.Steps; i++ {
		if i > 0 {
			if wait := start.Add(time.Duration(i) * seq.Delay).Sub(s.clock.Now()); wait > 0 {
				select {
				case <-s.clock.After(wait):
				case <-ctx.Done():
					aborted = true
					return
				}
			}
			if ctx.Err() != nil || (seq.Aborted != nil && seq.Aborted()) {
				aborted = true
				return
			}
		}

		seq.Step(ctx, i)
		executed++
	}
}
