package ordering

import (
	"fmt"
	"sort"
)

// Entry is a persisted (id, position) pair as read from storage.
type Entry struct {
	ID       string
	Position int
}

// Gap describes why a persisted ordering is not contiguous.
type Gap struct {
	Duplicates []int    `json:"duplicates,omitempty"`   // positions held by more than one id
	Missing    []int    `json:"missing,omitempty"`      // positions in [0, n) held by no id
	OutOfRange []string `json:"out_of_range,omitempty"` // ids outside [0, n)
}

// Empty reports whether no problem was found.
func (g Gap) Empty() bool {
	return len(g.Duplicates) == 0 && len(g.Missing) == 0 && len(g.OutOfRange) == 0
}

func (g Gap) String() string {
	return fmt.Sprintf("duplicates=%v missing=%v out_of_range=%v", g.Duplicates, g.Missing, g.OutOfRange)
}

// Check verifies that entries hold exactly the positions {0, ..., n-1}.
func Check(entries []Entry) Gap {
	var g Gap
	n := len(entries)
	held := make(map[int]int, n)
	for _, e := range entries {
		if e.Position < 0 || e.Position >= n {
			g.OutOfRange = append(g.OutOfRange, e.ID)
			continue
		}
		held[e.Position]++
	}
	for p := 0; p < n; p++ {
		switch c := held[p]; {
		case c == 0:
			g.Missing = append(g.Missing, p)
		case c > 1:
			g.Duplicates = append(g.Duplicates, p)
		}
	}
	sort.Strings(g.OutOfRange)
	return g
}

// Normalize rebuilds a contiguous Sequence from entries, keeping their
// relative order. Ties on position are broken by id so repairs are stable.
func Normalize(entries []Entry) (*Sequence, error) {
	sorted := make([]Entry, len(entries))
	copy(sorted, entries)
	sort.SliceStable(sorted, func(i, j int) bool {
		if sorted[i].Position != sorted[j].Position {
			return sorted[i].Position < sorted[j].Position
		}
		return sorted[i].ID < sorted[j].ID
	})
	ids := make([]string, len(sorted))
	for i, e := range sorted {
		ids[i] = e.ID
	}
	return New(ids)
}

// Baseline converts entries to the map form accepted by Sequence.Changed.
func Baseline(entries []Entry) map[string]int {
	out := make(map[string]int, len(entries))
	for _, e := range entries {
		out[e.ID] = e.Position
	}
	return out
}
