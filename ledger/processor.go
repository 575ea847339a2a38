package ledger

import (
	"context"
	"crypto/ed25519"
	"sync"
	"time"

	"github.com/gagliardetto/solana-go"

	"github.com/qZheng/CavityProof/payload"
	"github.com/qZheng/CavityProof/pkg/logger"
	"github.com/qZheng/CavityProof/pkg/rabbitmq"
	"github.com/qZheng/CavityProof/pkg/reasoncodes"
)

// ClaimInstruction carries the exact payload bytes the oracle signed plus
// the detached signature, as submitted by the claimant.
type ClaimInstruction struct {
	PayloadBytes []byte
	Signature    solana.Signature
}

// Processor executes the atomic claim transition. A single Processor owns
// its store: the internal mutex provides the total order over transitions
// that touch the same progress record, and the store's compare-and-create
// replay insert guarantees exactly-once nonce consumption underneath it.
type Processor struct {
	oraclePubkey solana.PublicKey
	store        Store
	now          func() time.Time
	events       rabbitmq.IRabbitmqPublisher

	mu sync.Mutex
}

func NewProcessor(oraclePubkey solana.PublicKey, store Store, opts ...func(*Processor)) *Processor {
	pr := &Processor{
		oraclePubkey: oraclePubkey,
		store:        store,
		now:          time.Now,
	}
	for _, o := range opts {
		o(pr)
	}
	return pr
}

// WithProcessorClock overrides the expiry clock (tests only).
func WithProcessorClock(now func() time.Time) func(*Processor) {
	return func(pr *Processor) { pr.now = now }
}

// WithEventPublisher attaches a publisher for accepted-claim events.
func WithEventPublisher(publisher rabbitmq.IRabbitmqPublisher) func(*Processor) {
	return func(pr *Processor) { pr.events = publisher }
}

// InitUser lazily creates the progress record. Calling it for an existing
// user is not an error, it is a no-op continuation.
func (pr *Processor) InitUser(ctx context.Context, user solana.PublicKey) (Progress, error) {
	pr.mu.Lock()
	defer pr.mu.Unlock()

	return pr.store.InitUser(ctx, user)
}

// Claim runs the full verification chain and the day-gap transition.
// All failures abort with no state change.
func (pr *Processor) Claim(ctx context.Context, caller solana.PublicKey, ix ClaimInstruction) (Progress, error) {
	return pr.process(ctx, caller, ix, false)
}

// ClaimDev is the test-only entry point: it still requires a valid
// signature and an unused nonce, but bypasses the day-sequencing rule.
// Keep it out of production trust decisions.
func (pr *Processor) ClaimDev(ctx context.Context, caller solana.PublicKey, ix ClaimInstruction) (Progress, error) {
	return pr.process(ctx, caller, ix, true)
}

func (pr *Processor) GetProgress(ctx context.Context, user solana.PublicKey) (Progress, bool, error) {
	return pr.store.GetProgress(ctx, user)
}

func (pr *Processor) process(ctx context.Context, caller solana.PublicKey, ix ClaimInstruction, dev bool) (Progress, error) {
	pr.mu.Lock()
	defer pr.mu.Unlock()

	// 1. signature over the exact payload bytes, against the statically
	// known oracle key
	if !ed25519.Verify(ed25519.PublicKey(pr.oraclePubkey[:]), ix.PayloadBytes, ix.Signature[:]) {
		return Progress{}, reasoncodes.New(
			reasoncodes.ErrInvalidSignature,
			"attestation signature does not verify against the oracle key",
		)
	}

	// 2. the embedded user must be the authenticated caller
	p, err := payload.Decode(ix.PayloadBytes)
	if err != nil {
		return Progress{}, err
	}
	if !p.User.Equals(caller) {
		return Progress{}, reasoncodes.New(
			reasoncodes.ErrUserMismatch,
			"payload user does not match the transaction caller",
		)
	}

	// 3. freshness against the ledger clock
	if pr.now().Unix() > p.ExpiresAt {
		return Progress{}, reasoncodes.New(
			reasoncodes.ErrAttestationExpired,
			"attestation expired before submission",
		)
	}

	// 4. a consumed nonce is terminal, whatever the day sequence says;
	// creation of the record stays inside CommitClaim
	key := ReplayAddress(caller, p.Nonce)
	used, err := pr.store.HasReplay(ctx, key)
	if err != nil {
		return Progress{}, reasoncodes.Wrap(reasoncodes.ErrLedger, "reading replay record failed", err)
	}
	if used {
		return Progress{}, reasoncodes.New(
			reasoncodes.ErrNonceAlreadyUsed,
			"replay record already exists for this nonce",
		)
	}

	current, exists, err := pr.store.GetProgress(ctx, caller)
	if err != nil {
		return Progress{}, reasoncodes.Wrap(reasoncodes.ErrLedger, "reading progress failed", err)
	}
	if !exists {
		current = NewProgress(caller)
	}

	var updated Progress
	if dev {
		updated = AdvanceDev(current, p.Day)
	} else {
		updated, err = Advance(current, p.Day)
		if err != nil {
			return Progress{}, err
		}
	}

	// 5. replay record creation and progress write in one atomic unit;
	// an already-used nonce fails the whole transition
	if err := pr.store.CommitClaim(ctx, key, updated); err != nil {
		return Progress{}, err
	}

	pr.publishAccepted(updated, p.Day)
	return updated, nil
}

func (pr *Processor) publishAccepted(p Progress, day int64) {
	if pr.events == nil {
		return
	}
	event := ClaimAcceptedEvent{
		User:        p.Owner.String(),
		Day:         day,
		Streak:      p.Streak,
		TotalClaims: p.TotalClaims,
		AcceptedAt:  pr.now().UTC().Format(time.RFC3339),
	}
	if err := pr.events.Publish(event); err != nil {
		logger.Default().Errorf(err, "Could not publish claim event for %s", event.User)
	}
}
