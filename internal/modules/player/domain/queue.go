package domain

import "math/rand"

// Queue is an ordered sequence of tracks with a cursor marking the
// currently playing entry. Tracks are not popped as they play; the cursor
// advances through the slice instead, which is what makes loop modes
// possible. A Queue is owned by exactly one Session and must only be
// touched under that session's write lock.
type Queue struct {
	tracks []Track
	cursor int
}

// NewQueue creates a new empty Queue.
func NewQueue() Queue {
	return Queue{tracks: make([]Track, 0)}
}

// Len returns the number of tracks in the queue.
func (q *Queue) Len() int {
	return len(q.tracks)
}

// IsEmpty returns true if the queue holds no tracks.
func (q *Queue) IsEmpty() bool {
	return len(q.tracks) == 0
}

// Cursor returns the index of the current track. The value is meaningless
// while the queue is empty.
func (q *Queue) Cursor() int {
	return q.cursor
}

func (q *Queue) isValidIndex(index int) bool {
	return 0 <= index && index < len(q.tracks)
}

func (q *Queue) isAtLast() bool {
	return q.cursor == len(q.tracks)-1
}

// Current returns the track at the cursor, or nil if the queue is empty.
func (q *Queue) Current() *Track {
	if q.IsEmpty() {
		return nil
	}
	return &q.tracks[q.cursor]
}

// Upcoming returns a copy of the tracks after the cursor.
func (q *Queue) Upcoming() []Track {
	if q.IsEmpty() {
		return nil
	}
	upcoming := q.tracks[q.cursor+1:]
	result := make([]Track, len(upcoming))
	copy(result, upcoming)
	return result
}

// List returns a copy of all tracks in arrival order.
func (q *Queue) List() []Track {
	result := make([]Track, len(q.tracks))
	copy(result, q.tracks)
	return result
}

// Enqueue appends tracks preserving arrival order.
func (q *Queue) Enqueue(tracks ...Track) {
	q.tracks = append(q.tracks, tracks...)
}

// GetAt returns the track at the given index without removing it, or nil
// if the index is out of bounds.
func (q *Queue) GetAt(index int) *Track {
	if !q.isValidIndex(index) {
		return nil
	}
	return &q.tracks[index]
}

// Advance moves the cursor according to the loop mode and returns the new
// current track:
//   - LoopModeOff: cursor moves to the next index; running past the last
//     track empties the queue and returns nil
//   - LoopModeTrack: cursor stays put, same track is returned
//   - LoopModeQueue: cursor moves to the next index, wrapping to 0 after
//     the last
func (q *Queue) Advance(mode LoopMode) *Track {
	if q.IsEmpty() {
		return nil
	}

	switch mode {
	case LoopModeTrack:
		// Replay the same slot.

	case LoopModeQueue:
		if q.isAtLast() {
			q.cursor = 0
		} else {
			q.cursor++
		}

	default: // LoopModeOff
		if q.isAtLast() {
			q.Clear()
			return nil
		}
		q.cursor++
	}

	return &q.tracks[q.cursor]
}

// Remove removes the track at the given index and re-validates the cursor.
// Removing an entry before the cursor shifts the cursor left by one;
// removing the last entry while the cursor points at it clamps the cursor
// to the new last index. Returns the removed track, or nil if the index is
// out of bounds.
func (q *Queue) Remove(index int) *Track {
	if !q.isValidIndex(index) {
		return nil
	}

	removed := q.tracks[index]
	q.tracks = append(q.tracks[:index], q.tracks[index+1:]...)

	switch {
	case q.IsEmpty():
		q.cursor = 0
	case index < q.cursor:
		q.cursor--
	case index == q.cursor && q.cursor >= len(q.tracks):
		q.cursor = len(q.tracks) - 1
	}

	return &removed
}

// Shuffle applies a Fisher-Yates permutation to all entries except the
// current one, which stays pinned at the cursor.
func (q *Queue) Shuffle(rng *rand.Rand) {
	if q.Len() < 2 {
		return
	}

	// Indices of every slot except the pinned cursor.
	indices := make([]int, 0, len(q.tracks)-1)
	for i := range q.tracks {
		if i != q.cursor {
			indices = append(indices, i)
		}
	}

	for i := len(indices) - 1; i > 0; i-- {
		j := rng.Intn(i + 1)
		a, b := indices[i], indices[j]
		q.tracks[a], q.tracks[b] = q.tracks[b], q.tracks[a]
	}
}

// Clear empties the queue and resets the cursor.
func (q *Queue) Clear() {
	q.tracks = q.tracks[:0]
	q.cursor = 0
}
