package portfolio

import (
	"regexp"
	"time"

	"github.com/planora/planora/pkg/serrors"
)

var (
	ErrNotFound     = serrors.NewError("PORTFOLIO_NOT_FOUND", "portfolio not found", "")
	ErrInvalidName  = serrors.NewError("PORTFOLIO_INVALID_NAME", "portfolio name can only contain letters, numbers, dashes, and underscores", "")
	ErrOutsideRoot  = serrors.NewError("PORTFOLIO_OUTSIDE_ROOT", "portfolio directory must be inside the portfolios root", "")
	ErrAlreadyExist = serrors.NewError("PORTFOLIO_ALREADY_EXISTS", "portfolio already exists", "")
	ErrNoSample     = serrors.NewError("PORTFOLIO_NO_SAMPLE", "sample portfolio not found, cannot create new portfolio", "")
	ErrFileNotFound = serrors.NewError("PORTFOLIO_FILE_NOT_FOUND", "portfolio file not found", "")
)

var namePattern = regexp.MustCompile(`^[a-zA-Z0-9_-]+$`)

// ValidateName enforces the safe portfolio directory name alphabet.
func ValidateName(name string) error {
	if !namePattern.MatchString(name) {
		return ErrInvalidName.WithDetails(name)
	}
	return nil
}

// RequiredInputFiles must exist under a portfolio's input directory for the
// planner to run against it.
var RequiredInputFiles = []string{"projects.csv", "people.json", "config.json"}

// Portfolio is one directory under the portfolios root.
type Portfolio struct {
	Name     string `json:"name"`
	InputDir string `json:"input_dir"`
	IsValid  bool   `json:"is_valid"`
}

// FileInfo describes one input or output file of a portfolio.
type FileInfo struct {
	Name     string    `json:"name"`
	Path     string    `json:"path"`
	Modified time.Time `json:"modified"`
	Size     int64     `json:"size"`
}

// FileListing groups a portfolio's known files by directory.
type FileListing struct {
	Input  []FileInfo `json:"input"`
	Output []FileInfo `json:"output"`
}
