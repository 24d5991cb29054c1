package allocation

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestBuildTree_RoleDefaulting(t *testing.T) {
	// Bob's first fact carries no role; his later one names Dev. Carol never
	// carries a role at all.
	tree := BuildTree([]Fact{
		{Person: "Bob", Role: "", Month: "2025-01", ProjectName: "KTLO", Allocation: 0.2, TotalFraction: 0.5},
		{Person: "Bob", Role: "Dev", Month: "2025-01", ProjectName: "Apollo", Allocation: 0.3, TotalFraction: 0.5},
		{Person: "Carol", Role: "", Month: "2025-01", ProjectName: "KTLO", Allocation: 0.1, TotalFraction: 0.1},
	})

	dev, ok := tree.Role("Dev")
	require.True(t, ok)
	require.Contains(t, dev.People, "Bob")
	require.Len(t, dev.People["Bob"].Projects, 2)

	unknown, ok := tree.Role(RoleUnknown)
	require.True(t, ok)
	require.Contains(t, unknown.People, "Carol")
}

func TestBuildTree_PrimaryRoleIsFirstSeen(t *testing.T) {
	tree := BuildTree([]Fact{
		{Person: "Alice", Role: "BA", Month: "2025-01", ProjectName: "Apollo", Allocation: 0.4, TotalFraction: 0.4},
		{Person: "Alice", Role: "Dev", Month: "2025-01", ProjectName: "Borealis", Allocation: 0.2, TotalFraction: 0.4},
		{Person: "Alice", Role: "", Month: "2025-02", ProjectName: "KTLO", Allocation: 0.1, TotalFraction: 0.1},
	})

	// The roleless fact resolves to her first-seen role, not the latest.
	ba, ok := tree.Role("BA")
	require.True(t, ok)
	_, ok = ba.People["Alice"].Projects[LeafKey{Month: "2025-02", ProjectName: "KTLO"}]
	require.True(t, ok)
	require.ElementsMatch(t, []string{"BA", "Dev"}, tree.PersonRoles("Alice"))
}

func TestBuildTree_DuplicateLeafFirstWins(t *testing.T) {
	tree := BuildTree([]Fact{
		{Person: "Alice", Role: "Dev", Month: "2025-01", ProjectName: "Apollo", Allocation: 0.4, TotalFraction: 0.9},
		{Person: "Alice", Role: "Dev", Month: "2025-01", ProjectName: "Apollo", Allocation: 0.7, TotalFraction: 0.3},
	})

	leaf, ok := tree.Leaf("Alice", "Apollo", "2025-01")
	require.True(t, ok)
	require.InDelta(t, 0.4, leaf.Allocation, 1e-9)

	dev, _ := tree.Role("Dev")
	require.InDelta(t, 0.9, dev.People["Alice"].MonthlyTotal["2025-01"], 1e-9)
}

func TestBuildTree_MonthsSortedAndDeduped(t *testing.T) {
	tree := BuildTree([]Fact{
		{Person: "Alice", Role: "Dev", Month: "2025-03", ProjectName: "Apollo", Allocation: 0.4, TotalFraction: 0.4},
		{Person: "Bob", Role: "Dev", Month: "2025-01", ProjectName: "Apollo", Allocation: 0.2, TotalFraction: 0.2},
		{Person: "Alice", Role: "Dev", Month: "2025-01", ProjectName: "Borealis", Allocation: 0.1, TotalFraction: 0.4},
	})
	require.Equal(t, []string{"2025-01", "2025-03"}, tree.Months())
}

func TestOrderedRoles_PriorityThenAlphabetical(t *testing.T) {
	tree := BuildTree([]Fact{
		{Person: "A", Role: "QA", Month: "2025-01", ProjectName: "P", Allocation: 0.1, TotalFraction: 0.1},
		{Person: "B", Role: "Dev", Month: "2025-01", ProjectName: "P", Allocation: 0.1, TotalFraction: 0.1},
		{Person: "C", Role: "Architect", Month: "2025-01", ProjectName: "P", Allocation: 0.1, TotalFraction: 0.1},
		{Person: "D", Role: "BA", Month: "2025-01", ProjectName: "P", Allocation: 0.1, TotalFraction: 0.1},
		{Person: "E", Role: "Planner", Month: "2025-01", ProjectName: "P", Allocation: 0.1, TotalFraction: 0.1},
	})

	names := make([]string, 0, 5)
	for _, roleNode := range tree.OrderedRoles() {
		names = append(names, roleNode.Name)
	}
	require.Equal(t, []string{"BA", "Planner", "Dev", "Architect", "QA"}, names)
}

func TestOrderedLeaves_ProjectThenMonth(t *testing.T) {
	tree := BuildTree([]Fact{
		{Person: "Alice", Role: "Dev", Month: "2025-02", ProjectName: "Borealis", Allocation: 0.1, TotalFraction: 0.1},
		{Person: "Alice", Role: "Dev", Month: "2025-02", ProjectName: "Apollo", Allocation: 0.2, TotalFraction: 0.2},
		{Person: "Alice", Role: "Dev", Month: "2025-01", ProjectName: "Apollo", Allocation: 0.3, TotalFraction: 0.3},
	})
	dev, _ := tree.Role("Dev")
	leaves := dev.People["Alice"].OrderedLeaves()
	require.Len(t, leaves, 3)
	require.Equal(t, "Apollo", leaves[0].ProjectName)
	require.Equal(t, "2025-01", leaves[0].Month)
	require.Equal(t, "Apollo", leaves[1].ProjectName)
	require.Equal(t, "2025-02", leaves[1].Month)
	require.Equal(t, "Borealis", leaves[2].ProjectName)
}

func TestBuildTree_SeededRoleAverageCountsZeroPeople(t *testing.T) {
	// Bob has no facts in 2025-02 but still counts in the Dev denominator.
	tree := BuildTree([]Fact{
		{Person: "Alice", Role: "Dev", Month: "2025-01", ProjectName: "Apollo", Allocation: 0.5, TotalFraction: 0.5},
		{Person: "Alice", Role: "Dev", Month: "2025-02", ProjectName: "Apollo", Allocation: 0.5, TotalFraction: 0.5},
		{Person: "Bob", Role: "Dev", Month: "2025-01", ProjectName: "Apollo", Allocation: 0.5, TotalFraction: 0.5},
	})

	dev, _ := tree.Role("Dev")
	require.InDelta(t, 0.5, dev.MonthlyAverage["2025-01"], 1e-9)
	require.InDelta(t, 0.25, dev.MonthlyAverage["2025-02"], 1e-9)
}

func TestRestoreSeeds(t *testing.T) {
	tree := BuildTree([]Fact{
		{Person: "Alice", Role: "Dev", Month: "2025-01", ProjectName: "Apollo", Allocation: 0.4, TotalFraction: 0.9},
	})
	dev, _ := tree.Role("Dev")
	alice := dev.People["Alice"]

	// Simulate recomputation drift plus a total for a never-seeded month.
	alice.MonthlyTotal["2025-01"] = 0.1
	alice.MonthlyTotal["2025-02"] = 0.7
	dev.MonthlyAverage["2025-01"] = 0.1

	tree.RestoreSeeds()
	require.InDelta(t, 0.9, alice.MonthlyTotal["2025-01"], 1e-9)
	require.NotContains(t, alice.MonthlyTotal, "2025-02")
	require.InDelta(t, 0.9, dev.MonthlyAverage["2025-01"], 1e-9)
}
