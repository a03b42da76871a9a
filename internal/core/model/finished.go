package model

import "sort"

// WithoutID returns items minus any entry with the given id.
func WithoutID(items []FinishedItem, id string) []FinishedItem {
	filtered := make([]FinishedItem, 0, len(items))
	for _, item := range items {
		if item.ID != id {
			filtered = append(filtered, item)
		}
	}
	return filtered
}

// Combine merges the finished timers and alarms into completion order.
// Items without a completion time keep their relative position, timers first.
func Combine(timers, alarms []FinishedItem) []FinishedItem {
	combined := make([]FinishedItem, 0, len(timers)+len(alarms))
	combined = append(combined, timers...)
	combined = append(combined, alarms...)
	sort.SliceStable(combined, func(i, j int) bool {
		return combined[i].FinishedAt < combined[j].FinishedAt
	})
	return combined
}
