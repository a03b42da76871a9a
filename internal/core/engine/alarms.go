package engine

import (
	"context"
	"fmt"

	"timerpanel/internal/core/model"
	"timerpanel/internal/core/wake"
)

// AddAlarm creates an inactive alarm set to midnight.
func (engine *Engine) AddAlarm(ctx context.Context) (*model.Alarm, error) {
	st, err := engine.load(ctx)
	if err != nil {
		return nil, err
	}

	orders := make([]int, 0, len(st.Alarms))
	for _, alarm := range st.Alarms {
		orders = append(orders, alarm.Order)
	}

	alarm := &model.Alarm{
		ID:    model.NewAlarmID(),
		Name:  fmt.Sprintf("Alarm %d", len(st.Alarms)+1),
		Time:  model.DefaultAlarmTime,
		Order: model.NextOrder(orders),
	}
	st.Alarms[alarm.ID] = alarm

	if err := engine.save(ctx, st, keyAlarms); err != nil {
		return nil, err
	}
	engine.broadcast(st)
	return alarm, nil
}

// RenameAlarm stores newName verbatim.
func (engine *Engine) RenameAlarm(ctx context.Context, id, newName string) error {
	st, err := engine.load(ctx)
	if err != nil {
		return err
	}
	alarm, ok := st.Alarms[id]
	if !ok {
		return nil
	}
	alarm.Name = newName
	if err := engine.save(ctx, st, keyAlarms); err != nil {
		return err
	}
	engine.broadcast(st)
	return nil
}

// RetimeAlarm sets the wall-clock time. An active alarm is re-armed so the
// new time applies to its next occurrence.
func (engine *Engine) RetimeAlarm(ctx context.Context, id, clock string) error {
	st, err := engine.load(ctx)
	if err != nil {
		return err
	}
	alarm, ok := st.Alarms[id]
	if !ok {
		return nil
	}
	alarm.Time = clock
	if err := engine.save(ctx, st, keyAlarms); err != nil {
		return err
	}
	if alarm.IsActive {
		return engine.ToggleAlarm(ctx, id, true)
	}
	engine.broadcast(st)
	return nil
}

// ToggleAlarm activates or deactivates the daily wake of an alarm. Any
// existing wake is cleared first, so activating twice leaves one wake. The
// wake is armed before the flag is stored, so a failed arm leaves the
// alarm as it was.
func (engine *Engine) ToggleAlarm(ctx context.Context, id string, active bool) error {
	st, err := engine.load(ctx)
	if err != nil {
		return err
	}
	alarm, ok := st.Alarms[id]
	if !ok {
		return nil
	}

	if err := engine.scheduler.Cancel(ctx, id); err != nil {
		return fmt.Errorf("cancel alarm %s: %w", id, err)
	}
	armed := false
	if active {
		next, err := model.NextOccurrence(alarm.Time, engine.now())
		if err != nil {
			engine.logger.Warnf("engine: alarm %s left disarmed: %v", id, err)
		} else {
			if err := engine.scheduler.Arm(ctx, wake.Repeating(id, next, model.AlarmPeriod)); err != nil {
				return fmt.Errorf("arm alarm %s: %w", id, err)
			}
			armed = true
		}
	}

	alarm.IsActive = active
	if err := engine.save(ctx, st, keyAlarms); err != nil {
		if armed {
			if cancelErr := engine.scheduler.Cancel(ctx, id); cancelErr != nil {
				engine.logger.Errorf("engine: cancel alarm %s: %v", id, cancelErr)
			}
		}
		return err
	}
	engine.broadcast(st)
	return nil
}

// DeleteAlarm removes the alarm together with its wake and finished entry.
func (engine *Engine) DeleteAlarm(ctx context.Context, id string) error {
	st, err := engine.load(ctx)
	if err != nil {
		return err
	}

	before := st.finishedCount()
	delete(st.Alarms, id)
	st.purgeFinished(id)
	if err := engine.save(ctx, st, keyAlarms, keyFinishedTimers, keyFinishedAlarms); err != nil {
		return err
	}
	engine.broadcast(st)

	if err := engine.scheduler.Cancel(ctx, id); err != nil {
		return fmt.Errorf("cancel alarm %s: %w", id, err)
	}
	engine.reconcileFinished(ctx, before, st.finishedCount())
	return nil
}

// ReorderItems rewrites the order key of the given kind to follow ids.
// Unknown ids are skipped but still consume their index.
func (engine *Engine) ReorderItems(ctx context.Context, kind model.ItemType, ids []string) error {
	st, err := engine.load(ctx)
	if err != nil {
		return err
	}

	var key string
	switch kind {
	case model.TypeTimer:
		key = keyTimers
		for index, id := range ids {
			if timer, ok := st.Timers[id]; ok {
				timer.Order = index
			}
		}
	case model.TypeAlarm:
		key = keyAlarms
		for index, id := range ids {
			if alarm, ok := st.Alarms[id]; ok {
				alarm.Order = index
			}
		}
	default:
		return fmt.Errorf("reorder: unknown item type %q", kind)
	}

	if err := engine.save(ctx, st, key); err != nil {
		return err
	}
	engine.broadcast(st)
	return nil
}
