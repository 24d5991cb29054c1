package services

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/planora/planora/modules/planner/domain/job"
	"github.com/planora/planora/modules/planner/infrastructure/runner"
	"github.com/planora/planora/pkg/eventbus"
)

// CommandRunner executes one planner command to completion.
type CommandRunner interface {
	Run(ctx context.Context, cmd []string) (runner.Result, error)
}

// ProjectDirResolver validates the target directory of a run request.
type ProjectDirResolver interface {
	ResolveProjectDir(raw string) (string, error)
}

// JobService is the in-memory job registry. Jobs run in background
// goroutines; every state transition is published on the eventbus.
type JobService struct {
	runner      CommandRunner
	resolver    ProjectDirResolver
	commandLine func(projectDir string) []string
	publisher   eventbus.EventBus
	log         *logrus.Logger

	mu   sync.Mutex
	jobs map[string]*job.Job
}

func NewJobService(
	cmdRunner CommandRunner,
	resolver ProjectDirResolver,
	commandLine func(projectDir string) []string,
	publisher eventbus.EventBus,
	log *logrus.Logger,
) *JobService {
	return &JobService{
		runner:      cmdRunner,
		resolver:    resolver,
		commandLine: commandLine,
		publisher:   publisher,
		log:         log,
		jobs:        make(map[string]*job.Job),
	}
}

func copyJob(j *job.Job) job.Job {
	out := *j
	out.Cmd = append([]string(nil), j.Cmd...)
	return out
}

// Run validates the project directory, registers a queued job and starts it
// in the background.
func (s *JobService) Run(ctx context.Context, projectDirRaw string) (job.Job, error) {
	dir, err := s.resolver.ResolveProjectDir(projectDirRaw)
	if err != nil {
		return job.Job{}, err
	}

	j := &job.Job{
		ID:         uuid.NewString(),
		ProjectDir: dir,
		Cmd:        s.commandLine(dir),
		State:      job.StateQueued,
		CreatedAt:  time.Now().UTC(),
	}
	s.mu.Lock()
	s.jobs[j.ID] = j
	s.mu.Unlock()
	s.publisher.Publish(job.NewUpdatedEvent(copyJob(j)))

	go s.execute(context.WithoutCancel(ctx), j.ID)
	return copyJob(j), nil
}

func (s *JobService) update(id string, mutate func(*job.Job)) job.Job {
	s.mu.Lock()
	j := s.jobs[id]
	mutate(j)
	j.Message = job.TrimMessage(j.Message)
	snapshot := copyJob(j)
	s.mu.Unlock()
	s.publisher.Publish(job.NewUpdatedEvent(snapshot))
	return snapshot
}

func (s *JobService) execute(ctx context.Context, id string) {
	started := s.update(id, func(j *job.Job) {
		now := time.Now().UTC()
		j.State = job.StateRunning
		j.StartedAt = &now
	})

	result, err := s.runner.Run(ctx, started.Cmd)
	if err != nil {
		s.log.WithError(err).WithField("job_id", id).Error("planner command failed to start")
		s.update(id, func(j *job.Job) {
			now := time.Now().UTC()
			j.State = job.StateFailed
			j.FinishedAt = &now
			j.Message = err.Error()
		})
		return
	}

	state := job.StateDone
	if result.ReturnCode != 0 {
		state = job.StateFailed
	}
	rc := result.ReturnCode
	s.update(id, func(j *job.Job) {
		now := time.Now().UTC()
		j.State = state
		j.FinishedAt = &now
		j.ReturnCode = &rc
		j.Message = job.FinalMessage(result.Stdout, result.Stderr, result.ReturnCode)
	})
}

// Get returns a copy of the job, or ErrNotFound.
func (s *JobService) Get(id string) (job.Job, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	j, ok := s.jobs[id]
	if !ok {
		return job.Job{}, job.ErrNotFound.WithDetails(id)
	}
	return copyJob(j), nil
}

// List returns all jobs, newest first.
func (s *JobService) List() []job.Job {
	s.mu.Lock()
	out := make([]job.Job, 0, len(s.jobs))
	for _, j := range s.jobs {
		out = append(out, copyJob(j))
	}
	s.mu.Unlock()
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out
}
