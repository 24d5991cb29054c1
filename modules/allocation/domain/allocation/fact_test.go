package allocation

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func feedHeader() []string {
	return []string{"person", "role", "month", "project_name", "project_id", "project_alloc_pct", "total_pct"}
}

func TestParseFactRows_Valid(t *testing.T) {
	facts, err := ParseFactRows(feedHeader(), [][]string{
		{"Alice", "Dev", "2025-03", "Apollo", "P-1", "0.4", "0.9"},
		{"Alice", "", "2025-03", "KTLO", "", "0.5", "0.9"},
	})
	require.NoError(t, err)
	require.Len(t, facts, 2)
	require.Equal(t, "Alice", facts[0].Person)
	require.Equal(t, "Dev", facts[0].Role)
	require.Equal(t, "P-1", facts[0].ProjectID)
	require.InDelta(t, 0.4, facts[0].Allocation, 1e-9)
	require.InDelta(t, 0.9, facts[0].TotalFraction, 1e-9)
	require.Equal(t, "", facts[1].Role)
}

func TestParseFactRows_MissingColumn(t *testing.T) {
	header := []string{"person", "month", "project_name", "project_alloc_pct"}
	_, err := ParseFactRows(header, nil)
	require.Error(t, err)
	require.Contains(t, err.Error(), "total_pct")
}

func TestParseFactRows_RowErrors(t *testing.T) {
	for _, tc := range []struct {
		name string
		row  []string
		want string
	}{
		{"empty person", []string{"", "Dev", "2025-03", "Apollo", "", "0.4", "0.9"}, "empty person"},
		{"bad month", []string{"Alice", "Dev", "2025-13", "Apollo", "", "0.4", "0.9"}, "invalid month"},
		{"month format", []string{"Alice", "Dev", "Mar 2025", "Apollo", "", "0.4", "0.9"}, "invalid month"},
		{"empty project", []string{"Alice", "Dev", "2025-03", "", "", "0.4", "0.9"}, "empty project_name"},
		{"bad alloc", []string{"Alice", "Dev", "2025-03", "Apollo", "", "forty", "0.9"}, "invalid project_alloc_pct"},
		{"negative alloc", []string{"Alice", "Dev", "2025-03", "Apollo", "", "-0.1", "0.9"}, "negative project_alloc_pct"},
		{"bad total", []string{"Alice", "Dev", "2025-03", "Apollo", "", "0.4", "high"}, "invalid total_pct"},
	} {
		t.Run(tc.name, func(t *testing.T) {
			_, err := ParseFactRows(feedHeader(), [][]string{tc.row})
			require.Error(t, err)
			require.Contains(t, err.Error(), tc.want)
		})
	}
}

func TestFactStore_CopiesInput(t *testing.T) {
	facts := []Fact{{Person: "Alice", Month: "2025-03", ProjectName: "Apollo", Allocation: 0.4}}
	store := NewFactStore(facts)
	facts[0].Allocation = 9

	require.Equal(t, 1, store.Len())
	require.InDelta(t, 0.4, store.Facts()[0].Allocation, 1e-9)
}
