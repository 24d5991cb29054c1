package allocation

import (
	"github.com/planora/planora/pkg/serrors"
)

var ErrUnknownCell = serrors.NewError("ALLOCATION_UNKNOWN_CELL", "no allocation cell for person/project/month", "")

// MatrixSession owns one portfolio's matrix state: the fact snapshot, the
// tree built from it, and the pending-edit overlay. One session per
// portfolio selection; reload and successful commit replace it wholesale.
type MatrixSession struct {
	store *FactStore
	tree  *Tree
	edits *EditSession
}

func NewMatrixSession(store *FactStore) *MatrixSession {
	return &MatrixSession{
		store: store,
		tree:  BuildTree(store.Facts()),
		edits: NewEditSession(),
	}
}

func (s *MatrixSession) Tree() *Tree {
	return s.tree
}

func (s *MatrixSession) Edits() *EditSession {
	return s.edits
}

// EditResult reports the outcome of recording one leaf edit, including the
// refreshed aggregates for the affected person and role chain.
type EditResult struct {
	EffectiveValue float64
	CellDirty      bool
	PendingCount   int
	PersonTotal    float64
	RoleAverages   map[string]float64
}

// RecordEdit normalizes raw input for the addressed cell, updates the
// overlay, and recomputes only the affected person total and the averages of
// the roles that person belongs to.
func (s *MatrixSession) RecordEdit(person, project, month, rawInput string) (EditResult, error) {
	leaf, ok := s.tree.Leaf(person, project, month)
	if !ok {
		return EditResult{}, ErrUnknownCell.WithDetails(changeKey(person, project, month))
	}

	normalized := NormalizeInput(rawInput)
	effective, dirty := s.edits.Record(person, project, month, normalized, leaf.Allocation)

	result := EditResult{
		EffectiveValue: effective,
		CellDirty:      dirty,
		PersonTotal:    RecomputePersonTotal(s.tree, person, month, s.edits),
		RoleAverages:   make(map[string]float64),
	}
	for _, role := range s.tree.PersonRoles(person) {
		result.RoleAverages[role] = RecomputeRoleAverage(s.tree, role, month, s.edits)
	}
	result.PendingCount = s.edits.PendingCount()
	return result, nil
}

// Discard drops every pending edit and restores the displayed aggregates to
// their as-loaded values.
func (s *MatrixSession) Discard() {
	s.edits.Clear()
	s.tree.RestoreSeeds()
}

func (s *MatrixSession) IsDirty() bool {
	return s.edits.IsDirty()
}

func (s *MatrixSession) PendingCount() int {
	return s.edits.PendingCount()
}

func (s *MatrixSession) Changes() []Change {
	return s.edits.Changes()
}

// Snapshot is the serializable view of the matrix handed to the rendering
// layer: current aggregates, effective leaf values, and edit state.
type Snapshot struct {
	Months       []string       `json:"months"`
	Roles        []RoleSnapshot `json:"roles"`
	Dirty        bool           `json:"dirty"`
	PendingCount int            `json:"pendingCount"`
}

type RoleSnapshot struct {
	Name           string             `json:"name"`
	MonthlyAverage map[string]float64 `json:"monthlyAverage"`
	People         []PersonSnapshot   `json:"people"`
}

type PersonSnapshot struct {
	Name         string             `json:"name"`
	Role         string             `json:"role"`
	MonthlyTotal map[string]float64 `json:"monthlyTotal"`
	Projects     []LeafSnapshot     `json:"projects"`
}

type LeafSnapshot struct {
	ProjectName string  `json:"projectName"`
	ProjectID   string  `json:"projectId,omitempty"`
	Month       string  `json:"month"`
	Value       float64 `json:"value"`
	Dirty       bool    `json:"dirty"`
}

func (s *MatrixSession) Snapshot() Snapshot {
	snapshot := Snapshot{
		Months:       s.tree.Months(),
		Dirty:        s.edits.IsDirty(),
		PendingCount: s.edits.PendingCount(),
		Roles:        make([]RoleSnapshot, 0, len(s.tree.roles)),
	}
	for _, roleNode := range s.tree.OrderedRoles() {
		roleSnap := RoleSnapshot{
			Name:           roleNode.Name,
			MonthlyAverage: copyMonthMap(roleNode.MonthlyAverage),
			People:         make([]PersonSnapshot, 0, len(roleNode.People)),
		}
		for _, personNode := range roleNode.OrderedPeople() {
			personSnap := PersonSnapshot{
				Name:         personNode.Name,
				Role:         personNode.Role,
				MonthlyTotal: copyMonthMap(personNode.MonthlyTotal),
				Projects:     make([]LeafSnapshot, 0, len(personNode.Projects)),
			}
			for _, leaf := range personNode.OrderedLeaves() {
				_, dirty := s.edits.Get(personNode.Name, leaf.ProjectName, leaf.Month)
				personSnap.Projects = append(personSnap.Projects, LeafSnapshot{
					ProjectName: leaf.ProjectName,
					ProjectID:   leaf.ProjectID,
					Month:       leaf.Month,
					Value:       effectiveValue(leaf, personNode.Name, s.edits),
					Dirty:       dirty,
				})
			}
			roleSnap.People = append(roleSnap.People, personSnap)
		}
		snapshot.Roles = append(snapshot.Roles, roleSnap)
	}
	return snapshot
}

func copyMonthMap(in map[string]float64) map[string]float64 {
	out := make(map[string]float64, len(in))
	for k, v := range in {
		out[k] = v
	}
	return out
}
