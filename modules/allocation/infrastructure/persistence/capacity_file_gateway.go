package persistence

import (
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"github.com/go-faster/errors"

	"github.com/planora/planora/modules/allocation/domain/allocation"
	"github.com/planora/planora/modules/allocation/infrastructure/feed"
	"github.com/planora/planora/pkg/serrors"
)

var ErrFeedNotFound = serrors.NewError("ALLOCATION_FEED_NOT_FOUND", "resource_capacity.csv not found", "")

// CapacityFileGateway commits edits back to the portfolio's
// resource_capacity.csv. It applies each change to the first matching row,
// then recomputes every person-month total from the updated rows, so the
// stored totals can never drift from the allocations.
type CapacityFileGateway struct{}

func NewCapacityFileGateway() *CapacityFileGateway {
	return &CapacityFileGateway{}
}

// Apply rewrites the feed file with the changes applied. A change whose row
// vanished since load (stale session after an external regeneration) is
// skipped; the count of actually applied changes is returned. The rewrite is
// atomic: a partially written file never replaces the original.
func (g *CapacityFileGateway) Apply(portfolioDir string, changes []allocation.Change) (int, error) {
	path := filepath.Join(portfolioDir, "output", feed.FeedFileName)
	file, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return 0, ErrFeedNotFound.WithDetails(path)
		}
		return 0, errors.Wrap(err, "open capacity feed")
	}

	reader := csv.NewReader(file)
	reader.FieldsPerRecord = -1
	rows, err := reader.ReadAll()
	file.Close()
	if err != nil {
		return 0, errors.Wrap(err, "read capacity feed")
	}
	if len(rows) == 0 {
		return 0, ErrFeedNotFound.WithDetails(path)
	}

	header := rows[0]
	records := rows[1:]
	index := make(map[string]int, len(header))
	for i, name := range header {
		index[name] = i
	}
	for _, col := range []string{"person", "month", "project_name", "project_alloc_pct", "total_pct"} {
		if _, ok := index[col]; !ok {
			return 0, errors.Errorf("capacity feed missing column %q", col)
		}
	}
	// Ragged rows are read leniently; pad them so the rewrite below can
	// address every column.
	for n, record := range records {
		if len(record) < len(header) {
			padded := make([]string, len(header))
			copy(padded, record)
			records[n] = padded
		}
	}
	cell := func(record []string, name string) string {
		i := index[name]
		if i >= len(record) {
			return ""
		}
		return record[i]
	}

	applied := 0
	for _, change := range changes {
		for _, record := range records {
			if cell(record, "person") == change.Person &&
				cell(record, "project_name") == change.Project &&
				cell(record, "month") == change.Month {
				record[index["project_alloc_pct"]] = fmt.Sprintf("%.4f", change.NewValue)
				applied++
				break
			}
		}
	}

	totals := make(map[string]float64)
	for n, record := range records {
		value, err := strconv.ParseFloat(cell(record, "project_alloc_pct"), 64)
		if err != nil {
			return 0, errors.Wrapf(err, "capacity feed row %d: invalid project_alloc_pct", n+1)
		}
		totals[cell(record, "person")+"|"+cell(record, "month")] += value
	}
	for _, record := range records {
		key := cell(record, "person") + "|" + cell(record, "month")
		record[index["total_pct"]] = fmt.Sprintf("%.4f", totals[key])
	}

	return applied, writeAtomic(path, rows)
}

func writeAtomic(path string, rows [][]string) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), ".capacity-*.csv")
	if err != nil {
		return errors.Wrap(err, "create temp feed file")
	}
	tmpName := tmp.Name()

	writer := csv.NewWriter(tmp)
	if err := writer.WriteAll(rows); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return errors.Wrap(err, "write capacity feed")
	}
	writer.Flush()
	if err := writer.Error(); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return errors.Wrap(err, "flush capacity feed")
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return errors.Wrap(err, "close temp feed file")
	}
	if err := os.Rename(tmpName, path); err != nil {
		os.Remove(tmpName)
		return errors.Wrap(err, "replace capacity feed")
	}
	return nil
}
