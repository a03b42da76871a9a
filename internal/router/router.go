package router

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"timerpanel/internal/core/model"
	"timerpanel/internal/logging"
)

// Engine is the set of state operations commands map onto.
type Engine interface {
	AddTimer(ctx context.Context, minutes float64) (*model.Timer, error)
	DeleteTimer(ctx context.Context, id string) error
	RetimeTimer(ctx context.Context, id string, totalSeconds int64) error
	RenameTimer(ctx context.Context, id, newName string) error
	PauseTimer(ctx context.Context, id string) error
	ResumeTimer(ctx context.Context, id string) error
	ResetTimer(ctx context.Context, id string) error

	AddAlarm(ctx context.Context) (*model.Alarm, error)
	DeleteAlarm(ctx context.Context, id string) error
	RetimeAlarm(ctx context.Context, id, clock string) error
	RenameAlarm(ctx context.Context, id, newName string) error
	ToggleAlarm(ctx context.Context, id string, active bool) error
	ReorderItems(ctx context.Context, kind model.ItemType, ids []string) error

	Refresh(ctx context.Context) (*model.Snapshot, error)
	FinishedItems(ctx context.Context) ([]model.FinishedItem, error)
	AcknowledgeAll(ctx context.Context) error
	AcknowledgeOne(ctx context.Context, id string) error
	MuteOnly(ctx context.Context) error
	SetVolume(ctx context.Context, volume int) error
	SetActiveMode(ctx context.Context, mode model.Mode) error

	HandleWake(ctx context.Context, name string) error
}

// Response is the result returned to the surface that sent a command.
type Response struct {
	Success bool   `json:"success" cbor:"success"`
	Message string `json:"message,omitempty" cbor:"message,omitempty"`
	Data    any    `json:"data,omitempty" cbor:"data,omitempty"`
}

// Router turns named requests and fired wakes into engine calls. It runs
// one at a time so each turn reads the store after the previous one wrote.
type Router struct {
	mu     sync.Mutex
	engine Engine
	logger logging.Logger
}

// serialized is implemented by engines that start work on their own.
type serialized interface {
	SetSerializer(run func(func()))
}

// New creates a Router over engine. Work the engine starts by itself is
// routed through the same turn as commands and wakes.
func New(engine Engine, logger logging.Logger) *Router {
	if logger == nil {
		logger = logging.Nop()
	}
	router := &Router{engine: engine, logger: logger}
	if engine, ok := engine.(serialized); ok {
		engine.SetSerializer(router.serialize)
	}
	return router
}

func (router *Router) serialize(fn func()) {
	router.mu.Lock()
	defer router.mu.Unlock()
	fn()
}

// Handle decodes and dispatches one request. Failures are reported in the
// response, never returned.
func (router *Router) Handle(ctx context.Context, name string, decode func(target any) error) Response {
	cmd, err := Decode(name, decode)
	if err != nil {
		if errors.Is(err, ErrUnknownCommand) {
			router.logger.Warnf("router: unknown command %q", name)
			return Response{Success: false, Message: UnknownCommandMessage}
		}
		router.logger.Warnf("router: %v", err)
		return Response{Success: false, Message: err.Error()}
	}

	data, err := router.Dispatch(ctx, cmd)
	if err != nil {
		router.logger.Errorf("router: %s: %v", name, err)
		return Response{Success: false, Message: err.Error()}
	}
	return Response{Success: true, Data: data}
}

// Wake delivers a fired wake to the engine. It has the scheduler's
// handler signature.
func (router *Router) Wake(ctx context.Context, name string) {
	router.mu.Lock()
	defer router.mu.Unlock()
	if err := router.engine.HandleWake(ctx, name); err != nil {
		router.logger.Errorf("router: wake %s: %v", name, err)
	}
}

// Dispatch runs cmd against the engine and returns its result payload.
func (router *Router) Dispatch(ctx context.Context, cmd Command) (any, error) {
	router.mu.Lock()
	defer router.mu.Unlock()

	engine := router.engine
	switch cmd := cmd.(type) {
	case *AddTimer:
		return engine.AddTimer(ctx, cmd.Minutes)
	case *DeleteTimer:
		return nil, engine.DeleteTimer(ctx, cmd.ID)
	case *UpdateTimerTime:
		return nil, engine.RetimeTimer(ctx, cmd.ID, cmd.TotalSeconds)
	case *UpdateTimerName:
		return nil, engine.RenameTimer(ctx, cmd.ID, cmd.NewName)
	case *PauseTimer:
		return nil, engine.PauseTimer(ctx, cmd.ID)
	case *ResumeTimer:
		return nil, engine.ResumeTimer(ctx, cmd.ID)
	case *ResetTimer:
		return nil, engine.ResetTimer(ctx, cmd.ID)
	case *AddAlarm:
		return engine.AddAlarm(ctx)
	case *DeleteAlarm:
		return nil, engine.DeleteAlarm(ctx, cmd.ID)
	case *UpdateAlarmTime:
		return nil, engine.RetimeAlarm(ctx, cmd.ID, cmd.Time)
	case *UpdateAlarmName:
		return nil, engine.RenameAlarm(ctx, cmd.ID, cmd.NewName)
	case *ToggleAlarm:
		return nil, engine.ToggleAlarm(ctx, cmd.ID, cmd.IsActive)
	case *ReorderItems:
		return nil, engine.ReorderItems(ctx, cmd.Type, cmd.OrderIDs)
	case *GetTimers:
		return engine.Refresh(ctx)
	case *GetFinishedItems:
		return engine.FinishedItems(ctx)
	case *ResetFinishedItems:
		return nil, engine.AcknowledgeAll(ctx)
	case *ResetFinishedAlarm:
		return nil, engine.AcknowledgeOne(ctx, cmd.ID)
	case *StopSoundOnly:
		return nil, engine.MuteOnly(ctx)
	case *UpdateVolume:
		return nil, engine.SetVolume(ctx, cmd.Volume)
	case *UpdateActiveMode:
		return nil, engine.SetActiveMode(ctx, cmd.Mode)
	default:
		return nil, fmt.Errorf("%w: %T", ErrUnknownCommand, cmd)
	}
}
