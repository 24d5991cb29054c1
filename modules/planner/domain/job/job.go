package job

import (
	"fmt"
	"strings"
	"time"

	"github.com/planora/planora/pkg/serrors"
)

var ErrNotFound = serrors.NewError("JOB_NOT_FOUND", "job not found", "")

type State string

const (
	StateQueued  State = "queued"
	StateRunning State = "running"
	StateDone    State = "done"
	StateFailed  State = "failed"
)

// MaxMessageLength clamps stored job messages so a chatty planner run cannot
// grow the registry without bound.
const MaxMessageLength = 2000

// Job is one planner run against a portfolio directory.
type Job struct {
	ID         string     `json:"id"`
	ProjectDir string     `json:"project_dir"`
	Cmd        []string   `json:"cmd"`
	State      State      `json:"state"`
	CreatedAt  time.Time  `json:"created_at"`
	StartedAt  *time.Time `json:"started_at"`
	FinishedAt *time.Time `json:"finished_at"`
	ReturnCode *int       `json:"returncode"`
	Message    string     `json:"message"`
}

func (j *Job) Finished() bool {
	return j.State == StateDone || j.State == StateFailed
}

// TrimMessage keeps the tail of text when it exceeds the message limit; the
// end of process output is where the error usually is.
func TrimMessage(text string) string {
	if len(text) <= MaxMessageLength {
		return text
	}
	return text[len(text)-MaxMessageLength:]
}

func tailLine(text string) string {
	lines := strings.Split(text, "\n")
	for i := len(lines) - 1; i >= 0; i-- {
		if line := strings.TrimSpace(lines[i]); line != "" {
			return line
		}
	}
	return ""
}

// FinalMessage picks a short status message from process output: the last
// non-empty stdout line on success, the last stderr (or stdout) line
// annotated with the return code on failure.
func FinalMessage(stdout, stderr string, returnCode int) string {
	if returnCode == 0 {
		if line := tailLine(stdout); line != "" {
			return TrimMessage(line)
		}
		return "Return code 0"
	}
	base := tailLine(stderr)
	if base == "" {
		base = tailLine(stdout)
	}
	if base == "" {
		base = fmt.Sprintf("Return code %d", returnCode)
	}
	return TrimMessage(fmt.Sprintf("%s (rc=%d)", base, returnCode))
}
