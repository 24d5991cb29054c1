package allocation

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

// Fact is one row of the resource-capacity feed: a person's share of one
// month assigned to one project, plus the independently reported person-month
// total. Facts are immutable; the whole set is replaced on reload.
type Fact struct {
	Person        string
	Role          string
	Month         string // YYYY-MM
	ProjectName   string
	ProjectID     string
	Allocation    float64 // project-specific fraction, >= 0, may exceed 1
	TotalFraction float64 // person-month total as reported by the feed
}

var monthPattern = regexp.MustCompile(`^\d{4}-(0[1-9]|1[0-2])$`)

// RoleUnknown is substituted when a person has no role on any fact.
const RoleUnknown = "Unknown"

// Required feed columns; missing columns are a feed error, not a default.
var requiredColumns = []string{
	"person", "month", "project_name", "project_alloc_pct", "total_pct",
}

// ParseFactRows maps a decoded row-oriented feed (header + records) into
// facts. A missing required column or malformed value aborts the whole feed:
// silently defaulting would mask upstream data problems.
func ParseFactRows(header []string, records [][]string) ([]Fact, error) {
	index := make(map[string]int, len(header))
	for i, name := range header {
		index[strings.TrimSpace(name)] = i
	}
	for _, col := range requiredColumns {
		if _, ok := index[col]; !ok {
			return nil, fmt.Errorf("fact feed missing required column %q", col)
		}
	}

	field := func(record []string, name string) string {
		i, ok := index[name]
		if !ok || i >= len(record) {
			return ""
		}
		return strings.TrimSpace(record[i])
	}

	facts := make([]Fact, 0, len(records))
	for n, record := range records {
		fact := Fact{
			Person:      field(record, "person"),
			Role:        field(record, "role"),
			Month:       field(record, "month"),
			ProjectName: field(record, "project_name"),
			ProjectID:   field(record, "project_id"),
		}
		if fact.Person == "" {
			return nil, fmt.Errorf("fact feed row %d: empty person", n+1)
		}
		if !monthPattern.MatchString(fact.Month) {
			return nil, fmt.Errorf("fact feed row %d: invalid month %q", n+1, fact.Month)
		}
		if fact.ProjectName == "" {
			return nil, fmt.Errorf("fact feed row %d: empty project_name", n+1)
		}

		alloc, err := strconv.ParseFloat(field(record, "project_alloc_pct"), 64)
		if err != nil {
			return nil, fmt.Errorf("fact feed row %d: invalid project_alloc_pct: %w", n+1, err)
		}
		if alloc < 0 {
			return nil, fmt.Errorf("fact feed row %d: negative project_alloc_pct", n+1)
		}
		total, err := strconv.ParseFloat(field(record, "total_pct"), 64)
		if err != nil {
			return nil, fmt.Errorf("fact feed row %d: invalid total_pct: %w", n+1, err)
		}
		fact.Allocation = alloc
		fact.TotalFraction = total
		facts = append(facts, fact)
	}
	return facts, nil
}

// FactStore holds the fact snapshot for one portfolio load. It is replaced
// wholesale on reload, never patched.
type FactStore struct {
	facts []Fact
}

func NewFactStore(facts []Fact) *FactStore {
	copied := make([]Fact, len(facts))
	copy(copied, facts)
	return &FactStore{facts: copied}
}

func (s *FactStore) Facts() []Fact {
	return s.facts
}

func (s *FactStore) Len() int {
	return len(s.facts)
}
