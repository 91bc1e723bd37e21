// Package ledger holds the simulated population: per-node active counts for
// the current tick and the time-ordered waiting queues that outlive it.
package ledger

import (
	"time"

	"github.com/Tsinling0525/journeyflow/model"
)

// Entry is a batch held on a node until ReleaseTime.
type Entry struct {
	Count       uint64
	ReleaseTime time.Time
	Outcome     model.Outcome
}

// Ledger is not safe for concurrent use; the scheduler owns it.
type Ledger struct {
	active  map[model.ID]uint64
	next    map[model.ID]uint64
	waiting map[model.ID][]Entry
}

func New() *Ledger {
	return &Ledger{
		active:  map[model.ID]uint64{},
		next:    map[model.ID]uint64{},
		waiting: map[model.ID][]Entry{},
	}
}

// Active returns the tick-start count for id.
func (l *Ledger) Active(id model.ID) uint64 { return l.active[id] }

// Next returns the count accumulated for the coming tick.
func (l *Ledger) Next(id model.ID) uint64 { return l.next[id] }

// SetActive sets the next-tick count for id. Zero removes the key.
func (l *Ledger) SetActive(id model.ID, count uint64) {
	if count == 0 {
		delete(l.next, id)
		return
	}
	l.next[id] = count
}

// Add accumulates n users into id's next-tick count.
func (l *Ledger) Add(id model.ID, n uint64) {
	if n == 0 {
		return
	}
	l.next[id] += n
}

// Commit makes the next map current and starts an empty next map.
func (l *Ledger) Commit() {
	l.active = l.next
	l.next = map[model.ID]uint64{}
}

// ActiveCounts returns a copy of the current active map.
func (l *Ledger) ActiveCounts() map[model.ID]uint64 {
	out := make(map[model.ID]uint64, len(l.active))
	for id, n := range l.active {
		out[id] = n
	}
	return out
}

func (l *Ledger) TotalActive() uint64 {
	var sum uint64
	for _, n := range l.active {
		sum += n
	}
	return sum
}

// AddWaiting appends a batch to id's queue. Batches are never merged.
func (l *Ledger) AddWaiting(id model.ID, count uint64, release time.Time, outcome model.Outcome) {
	if count == 0 {
		return
	}
	l.waiting[id] = append(l.waiting[id], Entry{Count: count, ReleaseTime: release, Outcome: outcome})
}

// Release removes and returns, in queue order, every entry of id due at or
// before now.
func (l *Ledger) Release(id model.ID, now time.Time) []Entry {
	q := l.waiting[id]
	if len(q) == 0 {
		return nil
	}
	var due []Entry
	kept := q[:0:0]
	for _, e := range q {
		if !e.ReleaseTime.After(now) {
			due = append(due, e)
		} else {
			kept = append(kept, e)
		}
	}
	if len(kept) == 0 {
		delete(l.waiting, id)
	} else {
		l.waiting[id] = kept
	}
	return due
}

// Queue returns a copy of id's pending entries.
func (l *Ledger) Queue(id model.ID) []Entry {
	return append([]Entry(nil), l.waiting[id]...)
}

// Waiting sums the counts queued on id.
func (l *Ledger) Waiting(id model.ID) uint64 {
	var sum uint64
	for _, e := range l.waiting[id] {
		sum += e.Count
	}
	return sum
}

func (l *Ledger) TotalWaiting() uint64 {
	var sum uint64
	for id := range l.waiting {
		sum += l.Waiting(id)
	}
	return sum
}

// NextRelease returns the earliest pending release time on id.
func (l *Ledger) NextRelease(id model.ID) (time.Time, bool) {
	var min time.Time
	for i, e := range l.waiting[id] {
		if i == 0 || e.ReleaseTime.Before(min) {
			min = e.ReleaseTime
		}
	}
	return min, !min.IsZero()
}

// Reset drops every active count and queued batch.
func (l *Ledger) Reset() {
	l.active = map[model.ID]uint64{}
	l.next = map[model.ID]uint64{}
	l.waiting = map[model.ID][]Entry{}
}
