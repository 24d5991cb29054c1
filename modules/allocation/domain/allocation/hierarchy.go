package allocation

import (
	"sort"
)

// LeafKey identifies a project leaf under a person: one cell per month and
// project name.
type LeafKey struct {
	Month       string
	ProjectName string
}

// ProjectLeaf is the editable unit of the matrix. Allocation keeps the
// original fact value; pending edits live in the session overlay, never here.
type ProjectLeaf struct {
	Month       string
	ProjectName string
	ProjectID   string
	Allocation  float64
}

type PersonNode struct {
	Name     string
	Role     string
	Projects map[LeafKey]*ProjectLeaf

	// MonthlyTotal is the displayed person-month figure. It is seeded from
	// the feed's total_pct (first write wins) and superseded by
	// recomputation once edits occur.
	MonthlyTotal map[string]float64

	seedTotal map[string]float64
}

type RoleNode struct {
	Name           string
	People         map[string]*PersonNode
	MonthlyAverage map[string]float64
}

// Tree is the Role -> Person -> ProjectLeaf rollup plus lookup indices. It
// is rebuilt from a FactStore, never structurally mutated; only the cached
// aggregate values change between rebuilds.
type Tree struct {
	roles  map[string]*RoleNode
	months []string

	// personLeaves indexes every leaf of a person across role groups: a
	// person filed under several roles still has one global set of cells.
	personLeaves map[string][]*ProjectLeaf
	// personRoles lists the roles whose rollup includes the person.
	personRoles map[string][]string
}

// rolePriority fixes the display order of the standard planning roles; other
// roles follow alphabetically.
var rolePriority = []string{"BA", "Planner", "Dev"}

// BuildTree groups facts into the three-level hierarchy.
//
// Pass one records each person's primary role: the first non-empty role seen
// for them in fact order. Pass two resolves empty roles (overhead/KTLO rows)
// to that primary role, or "Unknown" when the person never carries one, and
// inserts leaves first-occurrence-wins. Person-month totals are seeded from
// the feed's total_pct, also first write wins.
func BuildTree(facts []Fact) *Tree {
	primaryRole := make(map[string]string)
	for _, fact := range facts {
		if fact.Role == "" {
			continue
		}
		if _, ok := primaryRole[fact.Person]; !ok {
			primaryRole[fact.Person] = fact.Role
		}
	}

	t := &Tree{
		roles:        make(map[string]*RoleNode),
		personLeaves: make(map[string][]*ProjectLeaf),
		personRoles:  make(map[string][]string),
	}
	monthSet := make(map[string]struct{})

	for _, fact := range facts {
		role := fact.Role
		if role == "" {
			if primary, ok := primaryRole[fact.Person]; ok {
				role = primary
			} else {
				role = RoleUnknown
			}
		}
		monthSet[fact.Month] = struct{}{}

		roleNode, ok := t.roles[role]
		if !ok {
			roleNode = &RoleNode{
				Name:           role,
				People:         make(map[string]*PersonNode),
				MonthlyAverage: make(map[string]float64),
			}
			t.roles[role] = roleNode
		}

		personNode, ok := roleNode.People[fact.Person]
		if !ok {
			personNode = &PersonNode{
				Name:         fact.Person,
				Role:         role,
				Projects:     make(map[LeafKey]*ProjectLeaf),
				MonthlyTotal: make(map[string]float64),
				seedTotal:    make(map[string]float64),
			}
			roleNode.People[fact.Person] = personNode
			t.personRoles[fact.Person] = append(t.personRoles[fact.Person], role)
		}

		if _, ok := personNode.seedTotal[fact.Month]; !ok {
			personNode.seedTotal[fact.Month] = fact.TotalFraction
			personNode.MonthlyTotal[fact.Month] = fact.TotalFraction
		}

		key := LeafKey{Month: fact.Month, ProjectName: fact.ProjectName}
		if _, ok := personNode.Projects[key]; !ok {
			leaf := &ProjectLeaf{
				Month:       fact.Month,
				ProjectName: fact.ProjectName,
				ProjectID:   fact.ProjectID,
				Allocation:  fact.Allocation,
			}
			personNode.Projects[key] = leaf
			t.personLeaves[fact.Person] = append(t.personLeaves[fact.Person], leaf)
		}
	}

	t.months = make([]string, 0, len(monthSet))
	for month := range monthSet {
		t.months = append(t.months, month)
	}
	sort.Strings(t.months)

	// Initial role averages come from the seeded person totals; zero-month
	// people count in the denominator.
	for _, roleNode := range t.roles {
		seedRoleAverages(roleNode, t.months)
	}

	return t
}

func seedRoleAverages(roleNode *RoleNode, months []string) {
	count := len(roleNode.People)
	for _, month := range months {
		if count == 0 {
			roleNode.MonthlyAverage[month] = 0
			continue
		}
		sum := 0.0
		for _, personNode := range roleNode.People {
			sum += personNode.MonthlyTotal[month]
		}
		roleNode.MonthlyAverage[month] = sum / float64(count)
	}
}

func (t *Tree) Months() []string {
	return t.months
}

func (t *Tree) Role(name string) (*RoleNode, bool) {
	roleNode, ok := t.roles[name]
	return roleNode, ok
}

// OrderedRoles returns roles in display order: the fixed priority list
// first, then the rest alphabetically.
func (t *Tree) OrderedRoles() []*RoleNode {
	names := make([]string, 0, len(t.roles))
	for name := range t.roles {
		names = append(names, name)
	}
	sort.Slice(names, func(i, j int) bool {
		return roleLess(names[i], names[j])
	})
	ordered := make([]*RoleNode, 0, len(names))
	for _, name := range names {
		ordered = append(ordered, t.roles[name])
	}
	return ordered
}

func roleLess(a, b string) bool {
	ai, bi := rolePriorityIndex(a), rolePriorityIndex(b)
	if ai != -1 && bi != -1 {
		return ai < bi
	}
	if ai != -1 {
		return true
	}
	if bi != -1 {
		return false
	}
	return a < b
}

func rolePriorityIndex(name string) int {
	for i, p := range rolePriority {
		if p == name {
			return i
		}
	}
	return -1
}

// OrderedPeople returns the role's people alphabetically.
func (r *RoleNode) OrderedPeople() []*PersonNode {
	people := make([]*PersonNode, 0, len(r.People))
	for _, p := range r.People {
		people = append(people, p)
	}
	sort.Slice(people, func(i, j int) bool { return people[i].Name < people[j].Name })
	return people
}

// OrderedLeaves returns the person's leaves sorted by project name then
// month, giving deterministic rendering.
func (p *PersonNode) OrderedLeaves() []*ProjectLeaf {
	leaves := make([]*ProjectLeaf, 0, len(p.Projects))
	for _, leaf := range p.Projects {
		leaves = append(leaves, leaf)
	}
	sort.Slice(leaves, func(i, j int) bool {
		if leaves[i].ProjectName != leaves[j].ProjectName {
			return leaves[i].ProjectName < leaves[j].ProjectName
		}
		return leaves[i].Month < leaves[j].Month
	})
	return leaves
}

// Leaf resolves a cell by person, project and month, searching across role
// groups.
func (t *Tree) Leaf(person, project, month string) (*ProjectLeaf, bool) {
	for _, leaf := range t.personLeaves[person] {
		if leaf.ProjectName == project && leaf.Month == month {
			return leaf, true
		}
	}
	return nil, false
}

// PersonLeaves returns every leaf belonging to the person, across roles.
func (t *Tree) PersonLeaves(person string) []*ProjectLeaf {
	return t.personLeaves[person]
}

// PersonRoles returns the names of the roles whose rollup contains person.
func (t *Tree) PersonRoles(person string) []string {
	return t.personRoles[person]
}

// RestoreSeeds puts every cached aggregate back to its as-loaded value.
func (t *Tree) RestoreSeeds() {
	for _, roleNode := range t.roles {
		for _, personNode := range roleNode.People {
			for month, seed := range personNode.seedTotal {
				personNode.MonthlyTotal[month] = seed
			}
			// Months never seeded display as zero; drop stale recomputed
			// entries for them.
			for month := range personNode.MonthlyTotal {
				if _, ok := personNode.seedTotal[month]; !ok {
					delete(personNode.MonthlyTotal, month)
				}
			}
		}
		seedRoleAverages(roleNode, t.months)
	}
}
