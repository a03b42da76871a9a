package engine

import (
	"context"

	"timerpanel/internal/core/model"
)

// HandleWake processes a fired wake. Timers are marked finished; active
// alarms produce a finished entry and stay armed for the next day.
func (engine *Engine) HandleWake(ctx context.Context, name string) error {
	kind, ok := model.KindOf(name)
	if !ok {
		engine.logger.Debugf("engine: ignoring wake %q", name)
		return nil
	}

	st, err := engine.load(ctx)
	if err != nil {
		return err
	}

	item := model.FinishedItem{ID: name, Type: kind, FinishedAt: engine.now().UnixMilli()}
	keys := []string{keyFinishedTimers, keyFinishedAlarms}
	switch kind {
	case model.TypeTimer:
		timer, ok := st.Timers[name]
		if !ok {
			return nil
		}
		timer.IsRunning = false
		timer.RemainingTime = 0
		timer.EndTime = nil
		item.Name = timer.Name
		keys = append(keys, keyTimers)
	case model.TypeAlarm:
		alarm, ok := st.Alarms[name]
		if !ok || !alarm.IsActive {
			return nil
		}
		item.Name = alarm.Name
	}

	wasEmpty := st.finishedCount() == 0
	st.purgeFinished(item.ID)
	if kind == model.TypeTimer {
		st.FinishedTimers = append(st.FinishedTimers, item)
	} else {
		st.FinishedAlarms = append(st.FinishedAlarms, item)
	}

	if wasEmpty {
		engine.playSound(st.Volume)
	}

	if err := engine.save(ctx, st, keys...); err != nil {
		return err
	}
	engine.logger.Infof("engine: %s %q finished", kind, item.Name)
	engine.broadcast(st)
	engine.publish(Event{Type: EventUpdateFinishedList, Finished: st.finished()})

	engine.present(ctx)
	return nil
}

// Resume re-presents finished items left over from a previous run.
func (engine *Engine) Resume(ctx context.Context) error {
	st, err := engine.load(ctx)
	if err != nil {
		return err
	}
	if st.finishedCount() == 0 {
		return nil
	}
	engine.logger.Infof("engine: %d finished item(s) pending from previous run", st.finishedCount())
	engine.playSound(st.Volume)
	engine.publish(Event{Type: EventUpdateFinishedList, Finished: st.finished()})
	engine.present(ctx)
	return nil
}

func (engine *Engine) playSound(volume int) {
	engine.publish(Event{
		Type: EventPlaySound,
		Sound: &SoundRequest{
			Source: engine.options.SoundSource,
			Volume: volume,
			Loop:   true,
		},
	})
}
