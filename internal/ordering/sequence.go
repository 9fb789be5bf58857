// Package ordering maintains contiguous, zero-based orderings of ids.
//
// A Sequence is the only place positions are computed: tasks inside a column
// and field definitions inside a board are both ordered through it. Callers
// mutate a Sequence with Insert, Remove, Move and Reorder, then persist the
// result of Changed.
package ordering

import (
	"errors"
	"fmt"
)

var (
	// ErrDuplicate is returned when inserting an id that is already present.
	ErrDuplicate = errors.New("ordering: id already present")
	// ErrMissing is returned when an id is not part of the sequence.
	ErrMissing = errors.New("ordering: id not present")
	// ErrMismatch is returned by Reorder when the listing does not match the
	// current id set exactly.
	ErrMismatch = errors.New("ordering: id set mismatch")
)

// Sequence is an ordered set of ids. The zero value is an empty sequence.
type Sequence struct {
	ids   []string
	index map[string]int
}

// New builds a Sequence from ids already in position order.
func New(ids []string) (*Sequence, error) {
	s := &Sequence{
		ids:   make([]string, 0, len(ids)),
		index: make(map[string]int, len(ids)),
	}
	for _, id := range ids {
		if _, dup := s.index[id]; dup {
			return nil, fmt.Errorf("%w: %s", ErrDuplicate, id)
		}
		s.index[id] = len(s.ids)
		s.ids = append(s.ids, id)
	}
	return s, nil
}

// Len returns the number of ids.
func (s *Sequence) Len() int { return len(s.ids) }

// IDs returns a copy of the ids in position order.
func (s *Sequence) IDs() []string {
	out := make([]string, len(s.ids))
	copy(out, s.ids)
	return out
}

// Position returns the position of id.
func (s *Sequence) Position(id string) (int, bool) {
	p, ok := s.index[id]
	return p, ok
}

// Contains reports whether id is present.
func (s *Sequence) Contains(id string) bool {
	_, ok := s.index[id]
	return ok
}

// Insert places id at requested (clamped to [0, Len()]) or appends when
// requested is nil. Ids at or after the final position shift up by one.
func (s *Sequence) Insert(id string, requested *int) (int, error) {
	if s.Contains(id) {
		return 0, fmt.Errorf("%w: %s", ErrDuplicate, id)
	}
	if s.index == nil {
		s.index = make(map[string]int)
	}
	pos := len(s.ids)
	if requested != nil {
		pos = clamp(*requested, 0, len(s.ids))
	}
	s.ids = append(s.ids, "")
	copy(s.ids[pos+1:], s.ids[pos:])
	s.ids[pos] = id
	s.reindex(pos)
	return pos, nil
}

// Remove deletes id and closes the gap. It returns the position id held.
func (s *Sequence) Remove(id string) (int, error) {
	pos, ok := s.index[id]
	if !ok {
		return 0, fmt.Errorf("%w: %s", ErrMissing, id)
	}
	s.ids = append(s.ids[:pos], s.ids[pos+1:]...)
	delete(s.index, id)
	s.reindex(pos)
	return pos, nil
}

// Move relocates id to position to, clamped to the valid range once id has
// been taken out. Moving to the current position is a no-op.
func (s *Sequence) Move(id string, to int) (from, final int, err error) {
	from, err = s.Remove(id)
	if err != nil {
		return 0, 0, err
	}
	final, err = s.Insert(id, &to)
	if err != nil {
		return 0, 0, err
	}
	return from, final, nil
}

// Reorder replaces the order with ids. The listing must contain exactly the
// current ids, each once; otherwise the sequence is left untouched.
func (s *Sequence) Reorder(ids []string) error {
	if len(ids) != len(s.ids) {
		return fmt.Errorf("%w: got %d ids, have %d", ErrMismatch, len(ids), len(s.ids))
	}
	seen := make(map[string]bool, len(ids))
	for _, id := range ids {
		if !s.Contains(id) {
			return fmt.Errorf("%w: unknown id %s", ErrMismatch, id)
		}
		if seen[id] {
			return fmt.Errorf("%w: duplicate id %s", ErrMismatch, id)
		}
		seen[id] = true
	}
	s.ids = append(s.ids[:0], ids...)
	s.reindex(0)
	return nil
}

// Positions returns the full id → position assignment.
func (s *Sequence) Positions() map[string]int {
	out := make(map[string]int, len(s.index))
	for id, p := range s.index {
		out[id] = p
	}
	return out
}

// Changed returns the assignments that differ from baseline, including ids
// that baseline does not know about.
func (s *Sequence) Changed(baseline map[string]int) map[string]int {
	out := make(map[string]int)
	for id, p := range s.index {
		if old, ok := baseline[id]; !ok || old != p {
			out[id] = p
		}
	}
	return out
}

func (s *Sequence) reindex(from int) {
	for i := from; i < len(s.ids); i++ {
		s.index[s.ids[i]] = i
	}
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
