package ledger

import (
	"context"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/gagliardetto/solana-go"

	"github.com/qZheng/CavityProof/payload"
	"github.com/qZheng/CavityProof/pkg/logger"
	"github.com/qZheng/CavityProof/pkg/reasoncodes"
	"github.com/qZheng/CavityProof/pkg/utilities"
)

func TestMain(m *testing.M) {
	logger.InitDefaultLogger(logger.GlobalLoggerConfig{
		Args: []logger.LoggerArg{
			{Key: "service", Value: "ledger-test"},
		},
	})
	os.Exit(m.Run())
}

var processorNow = time.Unix(1753996800, 0).UTC()

// testOracle pairs a processor with the key that signs for it.
type testOracle struct {
	priv solana.PrivateKey
}

func newTestOracle(t *testing.T) *testOracle {
	t.Helper()
	priv, err := solana.NewRandomPrivateKey()
	if err != nil {
		t.Fatalf("Failed to generate oracle key: %v", err)
	}
	return &testOracle{priv: priv}
}

func (o *testOracle) processor(store Store, opts ...func(*Processor)) *Processor {
	opts = append([]func(*Processor){WithProcessorClock(func() time.Time { return processorNow })}, opts...)
	return NewProcessor(o.priv.PublicKey(), store, opts...)
}

func (o *testOracle) instruction(t *testing.T, user solana.PublicKey, day int64, nonce byte) ClaimInstruction {
	t.Helper()

	p := payload.ClaimPayload{
		User:      user,
		Day:       day,
		ExpiresAt: processorNow.Unix() + 60,
	}
	p.Nonce[0] = nonce

	sig, err := o.priv.Sign(p.Bytes())
	if err != nil {
		t.Fatalf("Failed to sign test payload: %v", err)
	}
	return ClaimInstruction{PayloadBytes: p.Bytes(), Signature: sig}
}

func newTestUser(t *testing.T) solana.PublicKey {
	t.Helper()
	priv, err := solana.NewRandomPrivateKey()
	if err != nil {
		t.Fatalf("Failed to generate user key: %v", err)
	}
	return priv.PublicKey()
}

func TestClaimHappyPath(t *testing.T) {
	oracle := newTestOracle(t)
	pr := oracle.processor(NewInMemoryStore())
	user := newTestUser(t)
	ctx := context.Background()

	if _, err := pr.InitUser(ctx, user); err != nil {
		t.Fatalf("InitUser failed: %v", err)
	}

	progress, err := pr.Claim(ctx, user, oracle.instruction(t, user, 100, 1))
	if err != nil {
		t.Fatalf("First claim failed: %v", err)
	}
	if progress.Streak != 1 || progress.TotalClaims != 1 {
		t.Errorf("Unexpected progress after first claim: %+v", progress)
	}

	progress, err = pr.Claim(ctx, user, oracle.instruction(t, user, 101, 2))
	if err != nil {
		t.Fatalf("Second claim failed: %v", err)
	}
	if progress.Streak != 2 || progress.LastDayClaimed != 101 {
		t.Errorf("Unexpected progress after consecutive claim: %+v", progress)
	}
}

func TestClaimWithoutInitCreatesProgress(t *testing.T) {
	oracle := newTestOracle(t)
	pr := oracle.processor(NewInMemoryStore())
	user := newTestUser(t)

	progress, err := pr.Claim(context.Background(), user, oracle.instruction(t, user, 100, 1))
	if err != nil {
		t.Fatalf("Claim on a fresh user failed: %v", err)
	}
	if progress.Streak != 1 {
		t.Errorf("Expected streak 1, got %d", progress.Streak)
	}
}

func TestReplayedNonceIsRejectedOnce(t *testing.T) {
	oracle := newTestOracle(t)
	pr := oracle.processor(NewInMemoryStore())
	user := newTestUser(t)
	ctx := context.Background()

	ix := oracle.instruction(t, user, 100, 1)
	if _, err := pr.Claim(ctx, user, ix); err != nil {
		t.Fatalf("First claim failed: %v", err)
	}

	_, err := pr.Claim(ctx, user, ix)
	if !reasoncodes.Is(err, reasoncodes.ErrNonceAlreadyUsed) {
		t.Fatalf("Expected NonceAlreadyUsed on replay, got %v", err)
	}

	progress, _, err := pr.GetProgress(ctx, user)
	if err != nil {
		t.Fatalf("GetProgress failed: %v", err)
	}
	if progress.TotalClaims != 1 {
		t.Errorf("Replay must not change state, got totalClaims %d", progress.TotalClaims)
	}
}

func TestReplayedNonceIsRejectedOnLaterDay(t *testing.T) {
	oracle := newTestOracle(t)
	pr := oracle.processor(NewInMemoryStore())
	user := newTestUser(t)
	ctx := context.Background()

	if _, err := pr.Claim(ctx, user, oracle.instruction(t, user, 100, 1)); err != nil {
		t.Fatalf("First claim failed: %v", err)
	}
	if _, err := pr.Claim(ctx, user, oracle.instruction(t, user, 101, 2)); err != nil {
		t.Fatalf("Second claim failed: %v", err)
	}

	// fresh day the sequencer would accept, but the nonce is spent
	_, err := pr.Claim(ctx, user, oracle.instruction(t, user, 106, 1))
	if !reasoncodes.Is(err, reasoncodes.ErrNonceAlreadyUsed) {
		t.Fatalf("Expected NonceAlreadyUsed on cross-day replay, got %v", err)
	}

	progress, _, err := pr.GetProgress(ctx, user)
	if err != nil {
		t.Fatalf("GetProgress failed: %v", err)
	}
	if progress.LastDayClaimed != 101 || progress.TotalClaims != 2 {
		t.Errorf("Cross-day replay must not change state, got %+v", progress)
	}
}

func TestConcurrentReplaySucceedsExactlyOnce(t *testing.T) {
	oracle := newTestOracle(t)
	pr := oracle.processor(NewInMemoryStore())
	user := newTestUser(t)
	ix := oracle.instruction(t, user, 100, 1)

	const attempts = 16
	var wg sync.WaitGroup
	errs := make([]error, attempts)
	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = pr.Claim(context.Background(), user, ix)
		}(i)
	}
	wg.Wait()

	accepted := 0
	for _, err := range errs {
		if err == nil {
			accepted++
		} else if !reasoncodes.Is(err, reasoncodes.ErrNonceAlreadyUsed) {
			t.Errorf("Unexpected failure mode under contention: %v", err)
		}
	}
	if accepted != 1 {
		t.Fatalf("Expected exactly one accepted claim, got %d", accepted)
	}
}

func TestForeignSignatureIsRejected(t *testing.T) {
	oracle := newTestOracle(t)
	impostor := newTestOracle(t)
	pr := oracle.processor(NewInMemoryStore())
	user := newTestUser(t)

	_, err := pr.Claim(context.Background(), user, impostor.instruction(t, user, 100, 1))
	if !reasoncodes.Is(err, reasoncodes.ErrInvalidSignature) {
		t.Fatalf("Expected InvalidSignature for a foreign oracle, got %v", err)
	}
}

func TestTamperedSignatureIsRejected(t *testing.T) {
	oracle := newTestOracle(t)
	pr := oracle.processor(NewInMemoryStore())
	user := newTestUser(t)

	ix := oracle.instruction(t, user, 100, 1)
	ix.Signature[10] ^= 0x01

	_, err := pr.Claim(context.Background(), user, ix)
	if !reasoncodes.Is(err, reasoncodes.ErrInvalidSignature) {
		t.Fatalf("Expected InvalidSignature, got %v", err)
	}
}

func TestPayloadForAnotherUserIsRejected(t *testing.T) {
	oracle := newTestOracle(t)
	pr := oracle.processor(NewInMemoryStore())
	owner := newTestUser(t)
	caller := newTestUser(t)

	_, err := pr.Claim(context.Background(), caller, oracle.instruction(t, owner, 100, 1))
	if !reasoncodes.Is(err, reasoncodes.ErrUserMismatch) {
		t.Fatalf("Expected UserMismatch, got %v", err)
	}
}

func TestExpiredAttestationIsRejected(t *testing.T) {
	oracle := newTestOracle(t)
	user := newTestUser(t)
	ix := oracle.instruction(t, user, 100, 1)

	late := processorNow.Add(2 * time.Minute)
	pr := NewProcessor(oracle.priv.PublicKey(), NewInMemoryStore(),
		WithProcessorClock(func() time.Time { return late }),
	)

	_, err := pr.Claim(context.Background(), user, ix)
	if !reasoncodes.Is(err, reasoncodes.ErrAttestationExpired) {
		t.Fatalf("Expected AttestationExpired, got %v", err)
	}
}

func TestTruncatedPayloadIsRejectedBeforeStateReads(t *testing.T) {
	oracle := newTestOracle(t)
	pr := oracle.processor(NewInMemoryStore())
	user := newTestUser(t)

	ix := oracle.instruction(t, user, 100, 1)
	truncated := ix.PayloadBytes[:payload.Size-1]
	sig, err := oracle.priv.Sign(truncated)
	if err != nil {
		t.Fatalf("Failed to sign truncated payload: %v", err)
	}

	_, err = pr.Claim(context.Background(), user, ClaimInstruction{PayloadBytes: truncated, Signature: sig})
	if !reasoncodes.Is(err, reasoncodes.ErrMalformedPayload) {
		t.Fatalf("Expected MalformedPayload, got %v", err)
	}
}

func TestRejectedDaySequenceDoesNotConsumeNonce(t *testing.T) {
	oracle := newTestOracle(t)
	pr := oracle.processor(NewInMemoryStore())
	user := newTestUser(t)
	ctx := context.Background()

	if _, err := pr.Claim(ctx, user, oracle.instruction(t, user, 100, 1)); err != nil {
		t.Fatalf("First claim failed: %v", err)
	}

	// same day with a fresh nonce: rejected by sequencing, not by replay
	_, err := pr.Claim(ctx, user, oracle.instruction(t, user, 100, 2))
	if !reasoncodes.Is(err, reasoncodes.ErrDaySequenceRejected) {
		t.Fatalf("Expected DaySequenceRejected, got %v", err)
	}

	// the rejected nonce stays unused and works the next day
	progress, err := pr.Claim(ctx, user, oracle.instruction(t, user, 101, 2))
	if err != nil {
		t.Fatalf("Nonce from a rejected claim must stay spendable: %v", err)
	}
	if progress.Streak != 2 {
		t.Errorf("Expected streak 2, got %d", progress.Streak)
	}
}

func TestClaimDevBypassesSequencingButNotReplay(t *testing.T) {
	oracle := newTestOracle(t)
	pr := oracle.processor(NewInMemoryStore())
	user := newTestUser(t)
	ctx := context.Background()

	if _, err := pr.ClaimDev(ctx, user, oracle.instruction(t, user, 100, 1)); err != nil {
		t.Fatalf("First dev claim failed: %v", err)
	}

	progress, err := pr.ClaimDev(ctx, user, oracle.instruction(t, user, 100, 2))
	if err != nil {
		t.Fatalf("Same-day dev claim failed: %v", err)
	}
	if progress.TotalClaims != 2 || progress.Streak != 1 {
		t.Errorf("Unexpected dev progress: %+v", progress)
	}

	ix := oracle.instruction(t, user, 100, 2)
	if _, err := pr.ClaimDev(ctx, user, ix); !reasoncodes.Is(err, reasoncodes.ErrNonceAlreadyUsed) {
		t.Fatalf("Dev claims must still enforce replay protection, got %v", err)
	}
}

// capturingPublisher records published events instead of talking to a broker.
type capturingPublisher struct {
	mu     sync.Mutex
	bodies [][]byte
}

func (cp *capturingPublisher) Publish(body utilities.Serializable) error {
	data, err := body.Serialize()
	if err != nil {
		return err
	}
	cp.mu.Lock()
	defer cp.mu.Unlock()
	cp.bodies = append(cp.bodies, data)
	return nil
}

func TestAcceptedClaimsPublishEvents(t *testing.T) {
	oracle := newTestOracle(t)
	events := &capturingPublisher{}
	pr := oracle.processor(NewInMemoryStore(), WithEventPublisher(events))
	user := newTestUser(t)
	ctx := context.Background()

	if _, err := pr.Claim(ctx, user, oracle.instruction(t, user, 100, 1)); err != nil {
		t.Fatalf("Claim failed: %v", err)
	}
	if _, err := pr.Claim(ctx, user, oracle.instruction(t, user, 100, 2)); err == nil {
		t.Fatal("Expected the same-day claim to fail")
	}

	if len(events.bodies) != 1 {
		t.Fatalf("Expected exactly one published event, got %d", len(events.bodies))
	}
}
