package domain

import (
	"errors"
)

var (
	ErrTrackNotFound     = errors.New("track not found")
	ErrQueueLimitReached = errors.New("queue limit reached")
	ErrInvalidOrder      = errors.New("new order is not a permutation of the queue")
	ErrIndexOutOfRange   = errors.New("index out of range")
)

// Queue is an ordered track list with a cursor. The cursor satisfies
// 0 <= current < len(list) when the list is non-empty and is 0 otherwise.
type Queue struct {
	list    []Track
	current int
	limit   int
}

func NewQueue(limit int) *Queue {
	return &Queue{
		list:  make([]Track, 0),
		limit: limit,
	}
}

func (q Queue) AsList() []Track {
	list := make([]Track, len(q.list))
	copy(list, q.list)
	return list
}

func (q Queue) Length() int {
	return len(q.list)
}

func (q Queue) CurrentIndex() int {
	return q.current
}

func (q Queue) Current() (Track, bool) {
	if len(q.list) == 0 {
		return Track{}, false
	}

	return q.list[q.current], true
}

func (q Queue) IsLast() bool {
	return q.current == len(q.list)-1
}

func (q Queue) GetByID(id string) (Track, int, error) {
	for index, track := range q.list {
		if track.ID == id {
			return track, index, nil
		}
	}

	return Track{}, 0, ErrTrackNotFound
}

func (q *Queue) Add(track Track) error {
	if q.limit > 0 && len(q.list) >= q.limit {
		return ErrQueueLimitReached
	}

	if len(q.list) == 0 {
		q.current = 0
	}
	q.list = append(q.list, track)

	return nil
}

// RemoveByID deletes a track and keeps the cursor on the same track when
// possible, clamping it into range otherwise.
func (q *Queue) RemoveByID(id string) (Track, error) {
	track, index, err := q.GetByID(id)
	if err != nil {
		return Track{}, err
	}

	q.list = append(q.list[:index], q.list[index+1:]...)

	if index < q.current {
		q.current--
	} else if index == q.current && q.current >= len(q.list) {
		q.current = max(0, len(q.list)-1)
	}

	return track, nil
}

// Reorder arranges the queue in the order of ids, which must name every
// track exactly once. The cursor follows the current track.
func (q *Queue) Reorder(ids []string) error {
	if len(ids) != len(q.list) {
		return ErrInvalidOrder
	}

	byID := make(map[string]Track, len(q.list))
	for _, track := range q.list {
		byID[track.ID] = track
	}

	current, hasCurrent := q.Current()
	reordered := make([]Track, 0, len(ids))
	newCurrent := 0
	for i, id := range ids {
		track, ok := byID[id]
		if !ok {
			return ErrInvalidOrder
		}
		delete(byID, id)

		if hasCurrent && id == current.ID {
			newCurrent = i
		}
		reordered = append(reordered, track)
	}

	q.list = reordered
	q.current = newCurrent

	return nil
}

func (q *Queue) SetIndex(index int) error {
	if index < 0 || index >= len(q.list) {
		return ErrIndexOutOfRange
	}

	q.current = index
	return nil
}
