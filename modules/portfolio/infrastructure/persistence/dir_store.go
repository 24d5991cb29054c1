package persistence

import (
	"encoding/csv"
	"encoding/json"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/go-faster/errors"

	"github.com/planora/planora/modules/portfolio/domain/portfolio"
)

// DirStore manages portfolio directories under a single root. Every path it
// hands out is resolved and checked to stay inside the root, so a crafted
// portfolio name can never escape it.
type DirStore struct {
	root string
}

func NewDirStore(root string) (*DirStore, error) {
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, errors.Wrap(err, "resolve portfolios root")
	}
	return &DirStore{root: abs}, nil
}

func (s *DirStore) Root() string {
	return s.root
}

func (s *DirStore) withinRoot(path string) error {
	rel, err := filepath.Rel(s.root, path)
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return portfolio.ErrOutsideRoot.WithDetails(path)
	}
	return nil
}

// Resolve maps a portfolio name to its existing directory.
func (s *DirStore) Resolve(name string) (string, error) {
	dir, err := filepath.Abs(filepath.Join(s.root, name))
	if err != nil {
		return "", errors.Wrap(err, "resolve portfolio dir")
	}
	if err := s.withinRoot(dir); err != nil {
		return "", err
	}
	info, err := os.Stat(dir)
	if err != nil || !info.IsDir() {
		return "", portfolio.ErrNotFound.WithDetails(name)
	}
	return dir, nil
}

// ResolveProjectDir accepts an absolute path or a name relative to the root
// and requires the directory to be a runnable portfolio: inside the root
// with all required input files present.
func (s *DirStore) ResolveProjectDir(raw string) (string, error) {
	if raw == "" {
		return "", errors.New("project_dir is required")
	}
	var dir string
	if filepath.IsAbs(raw) {
		dir = filepath.Clean(raw)
	} else {
		dir = filepath.Join(s.root, raw)
	}
	dir, err := filepath.Abs(dir)
	if err != nil {
		return "", errors.Wrap(err, "resolve project dir")
	}
	info, err := os.Stat(dir)
	if err != nil || !info.IsDir() {
		return "", portfolio.ErrNotFound.WithDetails(dir)
	}
	if err := s.withinRoot(dir); err != nil {
		return "", err
	}
	inputDir, missing := s.checkInput(dir)
	if len(missing) > 0 {
		return "", errors.Errorf(
			"portfolio directory must contain input files at %s: missing %s",
			inputDir, strings.Join(missing, ", "),
		)
	}
	return dir, nil
}

func (s *DirStore) checkInput(dir string) (string, []string) {
	inputDir := filepath.Join(dir, "input")
	info, err := os.Stat(inputDir)
	if err != nil || !info.IsDir() {
		return inputDir, append([]string(nil), portfolio.RequiredInputFiles...)
	}
	var missing []string
	for _, name := range portfolio.RequiredInputFiles {
		fi, err := os.Stat(filepath.Join(inputDir, name))
		if err != nil || fi.IsDir() {
			missing = append(missing, name)
		}
	}
	return inputDir, missing
}

// List enumerates the portfolio directories under the root, sorted by name.
// A missing root is an empty listing.
func (s *DirStore) List() ([]portfolio.Portfolio, error) {
	entries, err := os.ReadDir(s.root)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, errors.Wrap(err, "read portfolios root")
	}
	out := make([]portfolio.Portfolio, 0, len(entries))
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		dir := filepath.Join(s.root, entry.Name())
		inputDir, missing := s.checkInput(dir)
		out = append(out, portfolio.Portfolio{
			Name:     entry.Name(),
			InputDir: filepath.ToSlash(inputDir),
			IsValid:  len(missing) == 0,
		})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

// SampleName is the template portfolio new portfolios are copied from.
const SampleName = "sample"

// Create copies the sample portfolio to a new directory and ensures it has
// an output directory.
func (s *DirStore) Create(name string) (portfolio.Portfolio, error) {
	if err := portfolio.ValidateName(name); err != nil {
		return portfolio.Portfolio{}, err
	}
	dir := filepath.Join(s.root, name)
	if _, err := os.Stat(dir); err == nil {
		return portfolio.Portfolio{}, portfolio.ErrAlreadyExist.WithDetails(name)
	}
	sample := filepath.Join(s.root, SampleName)
	if info, err := os.Stat(sample); err != nil || !info.IsDir() {
		return portfolio.Portfolio{}, portfolio.ErrNoSample
	}
	if err := copyTree(sample, dir); err != nil {
		return portfolio.Portfolio{}, errors.Wrap(err, "copy sample portfolio")
	}
	if err := os.MkdirAll(filepath.Join(dir, "output"), 0o755); err != nil {
		return portfolio.Portfolio{}, errors.Wrap(err, "create output dir")
	}
	inputDir, missing := s.checkInput(dir)
	return portfolio.Portfolio{
		Name:     name,
		InputDir: filepath.ToSlash(inputDir),
		IsValid:  len(missing) == 0,
	}, nil
}

func copyTree(src, dst string) error {
	return filepath.Walk(src, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		rel, err := filepath.Rel(src, path)
		if err != nil {
			return err
		}
		target := filepath.Join(dst, rel)
		if info.IsDir() {
			return os.MkdirAll(target, info.Mode().Perm())
		}
		in, err := os.Open(path)
		if err != nil {
			return err
		}
		defer in.Close()
		out, err := os.OpenFile(target, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, info.Mode().Perm())
		if err != nil {
			return err
		}
		if _, err := io.Copy(out, in); err != nil {
			out.Close()
			return err
		}
		return out.Close()
	})
}

var (
	knownInputFiles  = []string{"projects.csv", "people.json", "config.json", "programs.csv"}
	knownOutputFiles = []string{"project_timeline.csv", "resource_capacity.csv", "unallocated_projects.md"}
)

// Files lists the known input and output files of the portfolio with their
// modification times and sizes.
func (s *DirStore) Files(name string) (portfolio.FileListing, error) {
	dir, err := s.Resolve(name)
	if err != nil {
		return portfolio.FileListing{}, err
	}
	listing := portfolio.FileListing{
		Input:  statFiles(filepath.Join(dir, "input"), "input", knownInputFiles),
		Output: statFiles(filepath.Join(dir, "output"), "output", knownOutputFiles),
	}
	return listing, nil
}

func statFiles(dir, prefix string, names []string) []portfolio.FileInfo {
	out := make([]portfolio.FileInfo, 0, len(names))
	for _, name := range names {
		info, err := os.Stat(filepath.Join(dir, name))
		if err != nil || info.IsDir() {
			continue
		}
		out = append(out, portfolio.FileInfo{
			Name:     name,
			Path:     prefix + "/" + name,
			Modified: info.ModTime(),
			Size:     info.Size(),
		})
	}
	return out
}

// ReadJSON decodes an input JSON file into out. A missing file yields
// ErrFileNotFound.
func (s *DirStore) ReadJSON(name, file string, out any) error {
	dir, err := s.Resolve(name)
	if err != nil {
		return err
	}
	data, err := os.ReadFile(filepath.Join(dir, "input", file))
	if err != nil {
		if os.IsNotExist(err) {
			return portfolio.ErrFileNotFound.WithDetails(file)
		}
		return errors.Wrapf(err, "read %s", file)
	}
	if err := json.Unmarshal(data, out); err != nil {
		return errors.Wrapf(err, "parse %s", file)
	}
	return nil
}

// WriteJSON writes an input JSON file, creating the input directory when
// needed.
func (s *DirStore) WriteJSON(name, file string, payload any) error {
	dir, err := s.Resolve(name)
	if err != nil {
		return err
	}
	inputDir := filepath.Join(dir, "input")
	if err := os.MkdirAll(inputDir, 0o755); err != nil {
		return errors.Wrap(err, "create input dir")
	}
	data, err := json.MarshalIndent(payload, "", "  ")
	if err != nil {
		return errors.Wrapf(err, "encode %s", file)
	}
	if err := os.WriteFile(filepath.Join(inputDir, file), data, 0o644); err != nil {
		return errors.Wrapf(err, "write %s", file)
	}
	return nil
}

// ReadCSV reads an input CSV file into row maps keyed by header. A missing
// file yields ErrFileNotFound.
func (s *DirStore) ReadCSV(name, file string) ([]map[string]string, error) {
	dir, err := s.Resolve(name)
	if err != nil {
		return nil, err
	}
	f, err := os.Open(filepath.Join(dir, "input", file))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, portfolio.ErrFileNotFound.WithDetails(file)
		}
		return nil, errors.Wrapf(err, "open %s", file)
	}
	defer f.Close()

	reader := csv.NewReader(f)
	reader.FieldsPerRecord = -1
	rows, err := reader.ReadAll()
	if err != nil {
		return nil, errors.Wrapf(err, "read %s", file)
	}
	if len(rows) == 0 {
		return nil, nil
	}
	header := rows[0]
	out := make([]map[string]string, 0, len(rows)-1)
	for _, row := range rows[1:] {
		m := make(map[string]string, len(header))
		for i, col := range header {
			if i < len(row) {
				m[col] = row[i]
			} else {
				m[col] = ""
			}
		}
		out = append(out, m)
	}
	return out, nil
}

// WriteCSV writes row maps to an input CSV file under the given header.
// Columns absent from a row are written empty; keys outside the header are
// dropped.
func (s *DirStore) WriteCSV(name, file string, header []string, rows []map[string]string) error {
	dir, err := s.Resolve(name)
	if err != nil {
		return err
	}
	inputDir := filepath.Join(dir, "input")
	if err := os.MkdirAll(inputDir, 0o755); err != nil {
		return errors.Wrap(err, "create input dir")
	}
	f, err := os.Create(filepath.Join(inputDir, file))
	if err != nil {
		return errors.Wrapf(err, "create %s", file)
	}
	writer := csv.NewWriter(f)
	if err := writer.Write(header); err != nil {
		f.Close()
		return errors.Wrapf(err, "write %s header", file)
	}
	for _, row := range rows {
		record := make([]string, len(header))
		for i, col := range header {
			record[i] = row[col]
		}
		if err := writer.Write(record); err != nil {
			f.Close()
			return errors.Wrapf(err, "write %s row", file)
		}
	}
	writer.Flush()
	if err := writer.Error(); err != nil {
		f.Close()
		return errors.Wrapf(err, "flush %s", file)
	}
	return f.Close()
}

// CSVHeader derives the column order for a row-map CSV write: the existing
// file's header first, then any new keys alphabetically. Used for files
// without a fixed schema.
func (s *DirStore) CSVHeader(name, file string, rows []map[string]string) []string {
	seen := make(map[string]struct{})
	var header []string
	if existing, err := s.ReadCSVHeader(name, file); err == nil {
		for _, col := range existing {
			seen[col] = struct{}{}
			header = append(header, col)
		}
	}
	extra := make([]string, 0)
	for _, row := range rows {
		for col := range row {
			if _, ok := seen[col]; !ok {
				seen[col] = struct{}{}
				extra = append(extra, col)
			}
		}
	}
	sort.Strings(extra)
	return append(header, extra...)
}

// ReadCSVHeader returns the header row of an existing input CSV file.
func (s *DirStore) ReadCSVHeader(name, file string) ([]string, error) {
	dir, err := s.Resolve(name)
	if err != nil {
		return nil, err
	}
	f, err := os.Open(filepath.Join(dir, "input", file))
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return csv.NewReader(f).Read()
}
