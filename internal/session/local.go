package session

import (
	"context"
	"sync"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

// LocalProvider hands out in-process sessions. It stands in for a remote
// automation driver when none is configured and backs the worker tests.
type LocalProvider struct {
	mu       sync.Mutex
	sessions map[string]*LocalSession
}

func NewLocalProvider() *LocalProvider {
	return &LocalProvider{sessions: make(map[string]*LocalSession)}
}

func (p *LocalProvider) Acquire(ctx context.Context, accountID string, caps Capabilities) (Session, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s := &LocalSession{
		id:        uuid.NewString(),
		accountID: accountID,
		caps:      caps,
		closed:    make(chan struct{}),
		onRelease: p.forget,
	}

	p.mu.Lock()
	p.sessions[s.id] = s
	p.mu.Unlock()

	log.Debug().Str("sessionId", s.id).Str("accountId", accountID).Msg("local session acquired")
	return s, nil
}

// Open returns the number of sessions acquired and not yet closed.
func (p *LocalProvider) Open() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.sessions)
}

func (p *LocalProvider) forget(id string) {
	p.mu.Lock()
	delete(p.sessions, id)
	p.mu.Unlock()
}

type LocalSession struct {
	id        string
	accountID string
	caps      Capabilities
	closed    chan struct{}
	once      sync.Once
	releases  int
	mu        sync.Mutex
	onRelease func(id string)
}

func (s *LocalSession) ID() string {
	return s.id
}

func (s *LocalSession) Closed() <-chan struct{} {
	return s.closed
}

func (s *LocalSession) Release(ctx context.Context) error {
	s.mu.Lock()
	s.releases++
	s.mu.Unlock()
	s.close()
	return nil
}

// Terminate simulates the remote side tearing the session down.
func (s *LocalSession) Terminate() {
	s.close()
}

func (s *LocalSession) Releases() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.releases
}

func (s *LocalSession) close() {
	s.once.Do(func() {
		close(s.closed)
		if s.onRelease != nil {
			s.onRelease(s.id)
		}
	})
}

// AllowAuthenticator accepts every account. Used when the remote site needs no login step.
type AllowAuthenticator struct{}

func (AllowAuthenticator) Authenticate(ctx context.Context, s Session, accountID string) error {
	return ctx.Err()
}
