package allocation

// Aggregation over the tree plus the edit overlay. Both functions are pure
// with respect to tree structure; they refresh only the cached aggregate
// values, and their cost is local to the affected person or role.

// effectiveValue prefers a pending edit over the leaf's original fact value.
func effectiveValue(leaf *ProjectLeaf, person string, edits *EditSession) float64 {
	if edits != nil {
		if change, ok := edits.Get(person, leaf.ProjectName, leaf.Month); ok {
			return change.NewValue
		}
	}
	return leaf.Allocation
}

// RecomputePersonTotal sums the effective allocation of every project leaf
// the person has for the month, stores it as the displayed person-month
// total in each role group containing the person, and returns it.
func RecomputePersonTotal(t *Tree, person, month string, edits *EditSession) float64 {
	total := 0.0
	for _, leaf := range t.PersonLeaves(person) {
		if leaf.Month != month {
			continue
		}
		total += effectiveValue(leaf, person, edits)
	}
	for _, roleName := range t.PersonRoles(person) {
		if roleNode, ok := t.Role(roleName); ok {
			if personNode, ok := roleNode.People[person]; ok {
				personNode.MonthlyTotal[month] = total
			}
		}
	}
	return total
}

// RecomputeRoleAverage averages the person-month totals of every person in
// the role for the month. The denominator is role membership: people with a
// zero total for the month are counted, by policy.
func RecomputeRoleAverage(t *Tree, role, month string, edits *EditSession) float64 {
	roleNode, ok := t.Role(role)
	if !ok || len(roleNode.People) == 0 {
		return 0
	}
	sum := 0.0
	for person := range roleNode.People {
		sum += RecomputePersonTotal(t, person, month, edits)
	}
	average := sum / float64(len(roleNode.People))
	roleNode.MonthlyAverage[month] = average
	return average
}
