package ledger

import (
	"context"
	"sync"

	"github.com/gagliardetto/solana-go"

	"github.com/qZheng/CavityProof/pkg/reasoncodes"
)

// Store persists progress records and replay markers. CommitClaim must be
// a compare-and-create primitive: the replay record creation and the
// progress write happen in one atomic unit, or not at all.
type Store interface {
	GetProgress(ctx context.Context, user solana.PublicKey) (Progress, bool, error)
	// InitUser creates the record if absent; "already exists" is a no-op.
	InitUser(ctx context.Context, user solana.PublicKey) (Progress, error)
	// HasReplay reports whether the replay record already exists. Callers
	// consult it before the day-gap transition; CommitClaim stays the
	// authoritative check underneath.
	HasReplay(ctx context.Context, key ReplayKey) (bool, error)
	// CommitClaim creates the replay record and saves the updated progress
	// atomically. An existing replay record fails the whole commit with
	// NonceAlreadyUsed and leaves progress untouched.
	CommitClaim(ctx context.Context, key ReplayKey, updated Progress) error
	ListProgress(ctx context.Context) ([]Progress, error)
}

// InMemoryStore is fine for dev and tests; the gorm store backs real
// deployments.
type InMemoryStore struct {
	mu       sync.Mutex
	progress map[solana.PublicKey]Progress
	replays  map[ReplayKey]struct{}
}

func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{
		progress: make(map[solana.PublicKey]Progress),
		replays:  make(map[ReplayKey]struct{}),
	}
}

func (s *InMemoryStore) GetProgress(_ context.Context, user solana.PublicKey) (Progress, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	p, ok := s.progress[user]
	return p, ok, nil
}

func (s *InMemoryStore) InitUser(_ context.Context, user solana.PublicKey) (Progress, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if p, ok := s.progress[user]; ok {
		return p, nil
	}
	p := NewProgress(user)
	s.progress[user] = p
	return p, nil
}

func (s *InMemoryStore) HasReplay(_ context.Context, key ReplayKey) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, used := s.replays[key]
	return used, nil
}

func (s *InMemoryStore) CommitClaim(_ context.Context, key ReplayKey, updated Progress) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, used := s.replays[key]; used {
		return reasoncodes.New(
			reasoncodes.ErrNonceAlreadyUsed,
			"replay record already exists for this nonce",
		)
	}

	s.replays[key] = struct{}{}
	s.progress[updated.Owner] = updated
	return nil
}

func (s *InMemoryStore) ListProgress(_ context.Context) ([]Progress, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]Progress, 0, len(s.progress))
	for _, p := range s.progress {
		out = append(out, p)
	}
	return out, nil
}
