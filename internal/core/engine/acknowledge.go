package engine

import (
	"context"
	"fmt"

	"timerpanel/internal/core/model"
)

// AcknowledgeOne dismisses a single finished alarm and deactivates it.
func (engine *Engine) AcknowledgeOne(ctx context.Context, id string) error {
	st, err := engine.load(ctx)
	if err != nil {
		return err
	}

	before := st.finishedCount()
	st.FinishedAlarms = model.WithoutID(st.FinishedAlarms, id)
	if alarm, ok := st.Alarms[id]; ok {
		alarm.IsActive = false
		if err := engine.scheduler.Cancel(ctx, id); err != nil {
			return fmt.Errorf("cancel alarm %s: %w", id, err)
		}
	}

	if err := engine.save(ctx, st, keyFinishedAlarms, keyAlarms); err != nil {
		return err
	}
	engine.broadcast(st)
	engine.reconcileFinished(ctx, before, st.finishedCount())
	return nil
}

// AcknowledgeAll resets every finished timer, deactivates every finished
// alarm and clears the presentation.
func (engine *Engine) AcknowledgeAll(ctx context.Context) error {
	return engine.acknowledge(ctx, true)
}

// MuteOnly resets finished timers and silences the notification but
// leaves finished alarms armed for their next occurrence.
func (engine *Engine) MuteOnly(ctx context.Context) error {
	return engine.acknowledge(ctx, false)
}

func (engine *Engine) acknowledge(ctx context.Context, deactivateAlarms bool) error {
	st, err := engine.load(ctx)
	if err != nil {
		return err
	}

	if st.finishedCount() > 0 {
		for _, item := range st.finished() {
			switch item.Type {
			case model.TypeTimer:
				if timer, ok := st.Timers[item.ID]; ok {
					timer.RemainingTime = timer.OriginalDuration
					timer.IsRunning = false
					timer.EndTime = nil
				}
			case model.TypeAlarm:
				if !deactivateAlarms {
					continue
				}
				if alarm, ok := st.Alarms[item.ID]; ok {
					alarm.IsActive = false
					if err := engine.scheduler.Cancel(ctx, item.ID); err != nil {
						return fmt.Errorf("cancel alarm %s: %w", item.ID, err)
					}
				}
			}
		}
		st.FinishedTimers = nil
		st.FinishedAlarms = nil

		if err := engine.save(ctx, st, keyTimers, keyAlarms, keyFinishedTimers, keyFinishedAlarms); err != nil {
			return err
		}
		engine.broadcast(st)
	}

	engine.clearPresentation(ctx)
	return nil
}
