package allocation

import (
	"math"
	"sort"
	"strconv"
	"strings"
)

// Tolerance below which a normalized input counts as "no change" against the
// original fact value.
const EditTolerance = 1e-4

// Change is one committable leaf edit.
type Change struct {
	Person   string  `json:"person"`
	Project  string  `json:"project"`
	Month    string  `json:"month"`
	OldValue float64 `json:"oldValue"`
	NewValue float64 `json:"newValue"`
}

func changeKey(person, project, month string) string {
	return person + "|" + project + "|" + month
}

// EditSession is the sparse overlay of pending leaf edits, keyed by
// person|project|month. At most one edit per key; recording a value within
// tolerance of the original removes the key again.
type EditSession struct {
	pending map[string]Change
}

func NewEditSession() *EditSession {
	return &EditSession{pending: make(map[string]Change)}
}

// NormalizeInput parses raw user input into an allocation fraction.
// Non-numeric or negative input coerces to 0 (data entry is never blocked);
// values above 10 are read as whole-number percentages and divided by 100.
func NormalizeInput(raw string) float64 {
	value, err := strconv.ParseFloat(strings.TrimSpace(raw), 64)
	if err != nil || math.IsNaN(value) || value < 0 {
		return 0
	}
	if value > 10 {
		value = value / 100
	}
	return value
}

// Record compares the normalized value against the leaf's original value and
// updates the overlay: within tolerance the key is removed (net no-op),
// otherwise the edit is upserted. Returns the normalized value and whether
// the cell is now dirty.
func (s *EditSession) Record(person, project, month string, normalized, original float64) (float64, bool) {
	key := changeKey(person, project, month)
	if math.Abs(normalized-original) < EditTolerance {
		delete(s.pending, key)
		return normalized, false
	}
	s.pending[key] = Change{
		Person:   person,
		Project:  project,
		Month:    month,
		OldValue: original,
		NewValue: normalized,
	}
	return normalized, true
}

func (s *EditSession) Get(person, project, month string) (Change, bool) {
	change, ok := s.pending[changeKey(person, project, month)]
	return change, ok
}

func (s *EditSession) IsDirty() bool {
	return len(s.pending) > 0
}

func (s *EditSession) PendingCount() int {
	return len(s.pending)
}

// Changes returns the pending edits as a deterministic committable list.
func (s *EditSession) Changes() []Change {
	keys := make([]string, 0, len(s.pending))
	for key := range s.pending {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	changes := make([]Change, 0, len(keys))
	for _, key := range keys {
		changes = append(changes, s.pending[key])
	}
	return changes
}

func (s *EditSession) Clear() {
	s.pending = make(map[string]Change)
}
