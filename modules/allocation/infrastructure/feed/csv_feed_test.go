package feed

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func writeFeed(t *testing.T, dir, content string) {
	t.Helper()
	outputDir := filepath.Join(dir, "output")
	require.NoError(t, os.MkdirAll(outputDir, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(outputDir, FeedFileName), []byte(content), 0o644))
}

func TestLoad_ParsesFacts(t *testing.T) {
	dir := t.TempDir()
	writeFeed(t, dir, "person,role,month,project_name,project_id,project_alloc_pct,total_pct\n"+
		"Alice,Dev,2025-01,Apollo,P-1,0.4000,0.9000\n"+
		"Alice,,2025-01,KTLO,,0.5000,0.9000\n")

	facts, err := NewCapacityFeed().Load(dir)
	require.NoError(t, err)
	require.Len(t, facts, 2)
	require.Equal(t, "Alice", facts[0].Person)
	require.InDelta(t, 0.4, facts[0].Allocation, 1e-9)
	require.InDelta(t, 0.9, facts[0].TotalFraction, 1e-9)
}

func TestLoad_MissingFileIsEmptyPortfolio(t *testing.T) {
	facts, err := NewCapacityFeed().Load(t.TempDir())
	require.NoError(t, err)
	require.Empty(t, facts)
}

func TestLoad_EmptyFile(t *testing.T) {
	dir := t.TempDir()
	writeFeed(t, dir, "")

	facts, err := NewCapacityFeed().Load(dir)
	require.NoError(t, err)
	require.Empty(t, facts)
}

func TestLoad_MalformedRowFails(t *testing.T) {
	dir := t.TempDir()
	writeFeed(t, dir, "person,role,month,project_name,project_id,project_alloc_pct,total_pct\n"+
		"Alice,Dev,2025-01,Apollo,P-1,not-a-number,0.9\n")

	_, err := NewCapacityFeed().Load(dir)
	require.Error(t, err)
	require.Contains(t, err.Error(), "project_alloc_pct")
}
