package engine

import "timerpanel/internal/core/model"

// EventType names a broadcast pushed to attached surfaces.
type EventType string

const (
	EventUpdateData         EventType = "updateData"
	EventUpdateFinishedList EventType = "updateFinishedList"
	EventStopSound          EventType = "stopSound"
	EventPlaySound          EventType = "playSound"
)

// SoundRequest asks the audio sink to start playback.
type SoundRequest struct {
	Source string `json:"source" cbor:"source"`
	Volume int    `json:"volume" cbor:"volume"`
	Loop   bool   `json:"loop" cbor:"loop"`
}

// Event is one broadcast. Only the field matching Type is set.
type Event struct {
	Type     EventType
	Snapshot *model.Snapshot
	Finished []model.FinishedItem
	Sound    *SoundRequest
}

// Payload returns the body carried on the wire for the event type.
func (event Event) Payload() any {
	switch event.Type {
	case EventUpdateData:
		return event.Snapshot
	case EventUpdateFinishedList:
		return event.Finished
	case EventPlaySound:
		return event.Sound
	default:
		return nil
	}
}
