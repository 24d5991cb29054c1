package services

import (
	"context"
	"sync"

	"github.com/sirupsen/logrus"

	"github.com/planora/planora/modules/allocation/domain/allocation"
	"github.com/planora/planora/pkg/composables"
	"github.com/planora/planora/pkg/eventbus"
)

// FactFeed loads the capacity facts of one portfolio directory.
type FactFeed interface {
	Load(portfolioDir string) ([]allocation.Fact, error)
}

// CommitGateway durably applies committed changes to the portfolio's
// capacity feed and reports how many changes matched a row.
type CommitGateway interface {
	Apply(portfolioDir string, changes []allocation.Change) (int, error)
}

// AuditTrail records committed changes and serves them back, newest first.
// Optional; nil disables auditing.
type AuditTrail interface {
	RecordCommit(ctx context.Context, portfolio string, changes []allocation.Change) error
	History(ctx context.Context, portfolio string, limit int) ([]allocation.AuditEntry, error)
}

// PortfolioResolver maps a portfolio name to its validated directory.
type PortfolioResolver interface {
	Resolve(name string) (string, error)
}

// MatrixService owns one MatrixSession per portfolio. Sessions are created
// on first access and replaced wholesale on reload and successful commit, so
// a session's tree always mirrors the feed it was read from plus the pending
// overlay.
type MatrixService struct {
	feed      FactFeed
	gateway   CommitGateway
	audit     AuditTrail
	resolver  PortfolioResolver
	publisher eventbus.EventBus
	log       *logrus.Logger

	mu       sync.Mutex
	sessions map[string]*allocation.MatrixSession
}

func NewMatrixService(
	feed FactFeed,
	gateway CommitGateway,
	audit AuditTrail,
	resolver PortfolioResolver,
	publisher eventbus.EventBus,
	log *logrus.Logger,
) *MatrixService {
	return &MatrixService{
		feed:      feed,
		gateway:   gateway,
		audit:     audit,
		resolver:  resolver,
		publisher: publisher,
		log:       log,
		sessions:  make(map[string]*allocation.MatrixSession),
	}
}

func (s *MatrixService) loadSession(portfolio string) (*allocation.MatrixSession, error) {
	dir, err := s.resolver.Resolve(portfolio)
	if err != nil {
		return nil, err
	}
	facts, err := s.feed.Load(dir)
	if err != nil {
		return nil, err
	}
	session := allocation.NewMatrixSession(allocation.NewFactStore(facts))
	s.sessions[portfolio] = session
	return session, nil
}

func (s *MatrixService) session(portfolio string) (*allocation.MatrixSession, error) {
	if session, ok := s.sessions[portfolio]; ok {
		return session, nil
	}
	return s.loadSession(portfolio)
}

// Load discards any existing session for the portfolio and rebuilds it from
// the feed.
func (s *MatrixService) Load(portfolio string) (allocation.Snapshot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	session, err := s.loadSession(portfolio)
	if err != nil {
		return allocation.Snapshot{}, err
	}
	return session.Snapshot(), nil
}

// Snapshot returns the current matrix view, loading the portfolio on first
// access.
func (s *MatrixService) Snapshot(portfolio string) (allocation.Snapshot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	session, err := s.session(portfolio)
	if err != nil {
		return allocation.Snapshot{}, err
	}
	return session.Snapshot(), nil
}

// Edit records one cell edit and returns the refreshed aggregates.
func (s *MatrixService) Edit(portfolio, person, project, month, rawInput string) (allocation.EditResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	session, err := s.session(portfolio)
	if err != nil {
		return allocation.EditResult{}, err
	}
	return session.RecordEdit(person, project, month, rawInput)
}

// Discard drops the portfolio's pending edits and returns the restored view.
func (s *MatrixService) Discard(portfolio string) (allocation.Snapshot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	session, err := s.session(portfolio)
	if err != nil {
		return allocation.Snapshot{}, err
	}
	session.Discard()
	return session.Snapshot(), nil
}

// Changes lists the portfolio's pending edits.
func (s *MatrixService) Changes(portfolio string) ([]allocation.Change, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	session, err := s.session(portfolio)
	if err != nil {
		return nil, err
	}
	return session.Changes(), nil
}

// CommitResult reports a successful commit: how many changes reached the
// feed and the freshly reloaded view.
type CommitResult struct {
	Applied  int
	Snapshot allocation.Snapshot
}

// Commit writes the portfolio's pending edits through the gateway. On
// gateway failure the session and its edits are left untouched so nothing is
// lost; on success the session is rebuilt from the rewritten feed. Audit
// failures are logged, not surfaced: the feed is already durable at that
// point.
func (s *MatrixService) Commit(ctx context.Context, portfolio string) (CommitResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	session, err := s.session(portfolio)
	if err != nil {
		return CommitResult{}, err
	}
	dir, err := s.resolver.Resolve(portfolio)
	if err != nil {
		return CommitResult{}, err
	}

	changes := session.Changes()
	applied, err := s.gateway.Apply(dir, changes)
	if err != nil {
		return CommitResult{}, err
	}

	if s.audit != nil && len(changes) > 0 {
		if _, poolErr := composables.UsePool(ctx); poolErr == nil {
			if auditErr := s.audit.RecordCommit(ctx, portfolio, changes); auditErr != nil {
				s.log.WithError(auditErr).WithField("portfolio", portfolio).
					Error("failed to record allocation audit trail")
			}
		}
	}

	s.publisher.Publish(allocation.NewCommittedEvent(portfolio, changes, applied))

	reloaded, err := s.loadSession(portfolio)
	if err != nil {
		return CommitResult{}, err
	}
	return CommitResult{Applied: applied, Snapshot: reloaded.Snapshot()}, nil
}

// AuditHistory returns the most recent committed changes of the portfolio.
// With auditing disabled the history is empty, not an error.
func (s *MatrixService) AuditHistory(ctx context.Context, portfolio string, limit int) ([]allocation.AuditEntry, error) {
	if _, err := s.resolver.Resolve(portfolio); err != nil {
		return nil, err
	}
	if s.audit == nil {
		return nil, nil
	}
	return s.audit.History(ctx, portfolio, limit)
}

// IsDirty reports whether the portfolio has pending edits without forcing a
// load.
func (s *MatrixService) IsDirty(portfolio string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	session, ok := s.sessions[portfolio]
	return ok && session.IsDirty()
}
