package feed

import (
	"encoding/csv"
	"io"
	"os"
	"path/filepath"

	"github.com/go-faster/errors"

	"github.com/planora/planora/modules/allocation/domain/allocation"
)

// FeedFileName is the analyzer output this feed reads, relative to the
// portfolio's output directory.
const FeedFileName = "resource_capacity.csv"

// CapacityFeed reads a portfolio's resource-capacity output into facts.
type CapacityFeed struct{}

func NewCapacityFeed() *CapacityFeed {
	return &CapacityFeed{}
}

func (f *CapacityFeed) Path(portfolioDir string) string {
	return filepath.Join(portfolioDir, "output", FeedFileName)
}

// Load parses the feed file for the portfolio. An absent file is a valid
// empty portfolio, not an error; a malformed file is an error.
func (f *CapacityFeed) Load(portfolioDir string) ([]allocation.Fact, error) {
	file, err := os.Open(f.Path(portfolioDir))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, errors.Wrap(err, "open capacity feed")
	}
	defer file.Close()

	reader := csv.NewReader(file)
	reader.FieldsPerRecord = -1

	header, err := reader.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, nil
		}
		return nil, errors.Wrap(err, "read capacity feed header")
	}
	records, err := reader.ReadAll()
	if err != nil {
		return nil, errors.Wrap(err, "read capacity feed rows")
	}

	facts, err := allocation.ParseFactRows(header, records)
	if err != nil {
		return nil, errors.Wrap(err, "parse capacity feed")
	}
	return facts, nil
}
