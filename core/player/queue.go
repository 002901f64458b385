// Package player sequences playback: an ordered queue of tracks and a cursor
// that moves on user navigation or when a track finishes.
package player

import "songbox/model"

// NoSelection is the cursor value of a queue with nothing selected.
const NoSelection = -1

// Queue is an ordered list of tracks with a cursor. Out of range moves are
// ignored and leave the queue unchanged. A Queue is not safe for concurrent use.
type Queue struct {
	items  []model.QueueItem
	cursor int
}

// NewQueue returns an empty queue.
func NewQueue() *Queue {
	return &Queue{cursor: NoSelection}
}

// Restore rebuilds a queue from persisted state. An invalid cursor becomes NoSelection.
func Restore(items []model.QueueItem, cursor int) *Queue {
	q := &Queue{items: append([]model.QueueItem(nil), items...), cursor: cursor}
	if !q.inRange(cursor) {
		q.cursor = NoSelection
	}
	return q
}

func (q *Queue) inRange(i int) bool { return i >= 0 && i < len(q.items) }

// Len returns the number of queued items.
func (q *Queue) Len() int { return len(q.items) }

// Cursor returns the index of the current item, or NoSelection.
func (q *Queue) Cursor() int { return q.cursor }

// Items returns a copy of the queued items.
func (q *Queue) Items() []model.QueueItem {
	return append([]model.QueueItem{}, q.items...)
}

// Add appends items. The cursor does not move.
func (q *Queue) Add(items ...model.QueueItem) {
	q.items = append(q.items, items...)
}

// Play selects the item at index. It reports false, leaving the cursor alone,
// when index is out of range.
func (q *Queue) Play(index int) bool {
	if !q.inRange(index) {
		return false
	}
	q.cursor = index
	return true
}

// Next advances to the following item. With nothing selected it selects the
// first item. It reports false when there is nothing to advance to.
func (q *Queue) Next() bool {
	if !q.inRange(q.cursor + 1) {
		return false
	}
	q.cursor++
	return true
}

// Previous steps back one item. It reports false at the start of the queue.
func (q *Queue) Previous() bool {
	if q.cursor <= 0 {
		return false
	}
	q.cursor--
	return true
}

// Ended handles the current track finishing: playback moves on to the next
// item, or stops with the cursor left on the last one.
func (q *Queue) Ended() bool {
	if q.cursor == NoSelection {
		return false
	}
	return q.Next()
}

// Remove drops the item at index. Removing the current item selects the one
// that took its place, or the new last item when it was last.
func (q *Queue) Remove(index int) bool {
	if !q.inRange(index) {
		return false
	}
	q.items = append(q.items[:index], q.items[index+1:]...)

	switch {
	case index < q.cursor:
		q.cursor--
	case index == q.cursor && q.cursor >= len(q.items):
		q.cursor = len(q.items) - 1 // NoSelection once empty
	}
	return true
}

// Clear empties the queue.
func (q *Queue) Clear() {
	q.items = nil
	q.cursor = NoSelection
}

// Current returns the selected item, or nil.
func (q *Queue) Current() *model.QueueItem {
	if !q.inRange(q.cursor) {
		return nil
	}
	item := q.items[q.cursor]
	return &item
}

// State returns a snapshot for clients.
func (q *Queue) State() model.QueueState {
	return model.QueueState{
		Items:   q.Items(),
		Cursor:  q.cursor,
		Current: q.Current(),
	}
}
