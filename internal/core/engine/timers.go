package engine

import (
	"context"
	"fmt"
	"math"
	"time"

	"timerpanel/internal/core/model"
	"timerpanel/internal/core/wake"
)

// AddTimer creates a paused timer of the given length. Non-positive
// minutes fall back to the default length.
func (engine *Engine) AddTimer(ctx context.Context, minutes float64) (*model.Timer, error) {
	if minutes <= 0 {
		minutes = model.DefaultTimerMinutes
	}

	st, err := engine.load(ctx)
	if err != nil {
		return nil, err
	}

	orders := make([]int, 0, len(st.Timers))
	for _, timer := range st.Timers {
		orders = append(orders, timer.Order)
	}

	duration := int64(math.Round(minutes * float64(time.Minute/time.Millisecond)))
	timer := &model.Timer{
		ID:               model.NewTimerID(),
		Name:             fmt.Sprintf("Timer %d", len(st.Timers)+1),
		OriginalDuration: duration,
		RemainingTime:    duration,
		Order:            model.NextOrder(orders),
	}
	st.Timers[timer.ID] = timer

	if err := engine.save(ctx, st, keyTimers); err != nil {
		return nil, err
	}
	engine.broadcast(st)
	return timer, nil
}

// RenameTimer stores newName verbatim.
func (engine *Engine) RenameTimer(ctx context.Context, id, newName string) error {
	st, err := engine.load(ctx)
	if err != nil {
		return err
	}
	timer, ok := st.Timers[id]
	if !ok {
		return nil
	}
	timer.Name = newName
	if err := engine.save(ctx, st, keyTimers); err != nil {
		return err
	}
	engine.broadcast(st)
	return nil
}

// RetimeTimer changes the configured length. A running timer restarts its
// countdown from now with the new length.
func (engine *Engine) RetimeTimer(ctx context.Context, id string, totalSeconds int64) error {
	st, err := engine.load(ctx)
	if err != nil {
		return err
	}
	timer, ok := st.Timers[id]
	if !ok {
		return nil
	}

	duration := totalSeconds * 1000
	timer.OriginalDuration = duration
	if timer.IsRunning {
		end := engine.now().Add(time.Duration(duration) * time.Millisecond)
		timer.EndTime = model.MillisPtr(end)
		if err := engine.scheduler.Arm(ctx, wake.OneShot(id, end)); err != nil {
			return fmt.Errorf("arm timer %s: %w", id, err)
		}
	} else {
		timer.RemainingTime = duration
	}

	if err := engine.save(ctx, st, keyTimers); err != nil {
		return err
	}
	engine.broadcast(st)
	return nil
}

// PauseTimer freezes a running timer at its remaining time.
func (engine *Engine) PauseTimer(ctx context.Context, id string) error {
	st, err := engine.load(ctx)
	if err != nil {
		return err
	}
	timer, ok := st.Timers[id]
	if !ok || !timer.IsRunning {
		return nil
	}

	timer.RemainingTime = timer.Remaining(engine.now())
	timer.IsRunning = false
	timer.EndTime = nil
	if err := engine.scheduler.Cancel(ctx, id); err != nil {
		return fmt.Errorf("cancel timer %s: %w", id, err)
	}

	if err := engine.save(ctx, st, keyTimers); err != nil {
		return err
	}
	engine.broadcast(st)
	return nil
}

// ResumeTimer starts a paused timer counting down from its remaining time.
func (engine *Engine) ResumeTimer(ctx context.Context, id string) error {
	st, err := engine.load(ctx)
	if err != nil {
		return err
	}
	timer, ok := st.Timers[id]
	if !ok || timer.IsRunning {
		return nil
	}

	end := engine.now().Add(time.Duration(timer.RemainingTime) * time.Millisecond)
	timer.EndTime = model.MillisPtr(end)
	timer.IsRunning = true
	if err := engine.scheduler.Arm(ctx, wake.OneShot(id, end)); err != nil {
		return fmt.Errorf("arm timer %s: %w", id, err)
	}

	if err := engine.save(ctx, st, keyTimers); err != nil {
		return err
	}
	engine.broadcast(st)
	return nil
}

// ResetTimer restores the configured length, stops the countdown and
// acknowledges the timer if it had finished.
func (engine *Engine) ResetTimer(ctx context.Context, id string) error {
	st, err := engine.load(ctx)
	if err != nil {
		return err
	}
	timer, ok := st.Timers[id]
	if !ok {
		return nil
	}

	before := st.finishedCount()
	timer.RemainingTime = timer.OriginalDuration
	timer.IsRunning = false
	timer.EndTime = nil
	st.purgeFinished(id)
	if err := engine.scheduler.Cancel(ctx, id); err != nil {
		return fmt.Errorf("cancel timer %s: %w", id, err)
	}

	if err := engine.save(ctx, st, keyTimers, keyFinishedTimers, keyFinishedAlarms); err != nil {
		return err
	}
	engine.broadcast(st)
	engine.reconcileFinished(ctx, before, st.finishedCount())
	return nil
}

// DeleteTimer removes the timer together with its wake and finished entry.
func (engine *Engine) DeleteTimer(ctx context.Context, id string) error {
	st, err := engine.load(ctx)
	if err != nil {
		return err
	}

	before := st.finishedCount()
	delete(st.Timers, id)
	st.purgeFinished(id)
	if err := engine.scheduler.Cancel(ctx, id); err != nil {
		return fmt.Errorf("cancel timer %s: %w", id, err)
	}

	if err := engine.save(ctx, st, keyTimers, keyFinishedTimers, keyFinishedAlarms); err != nil {
		return err
	}
	engine.broadcast(st)
	engine.reconcileFinished(ctx, before, st.finishedCount())
	return nil
}
