package client

import (
	"context"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gagliardetto/solana-go"
	"github.com/gin-gonic/gin"

	"github.com/qZheng/CavityProof/ledger"
	"github.com/qZheng/CavityProof/payload"
	"github.com/qZheng/CavityProof/pkg/reasoncodes"
)

// newLedgerServer exposes a full ledger-server handler surface over
// httptest, returning the HTTP client and the oracle key that signs for it.
func newLedgerServer(t *testing.T) (*LedgerClient, solana.PrivateKey) {
	t.Helper()

	oraclePriv, err := solana.NewRandomPrivateKey()
	if err != nil {
		t.Fatalf("Failed to generate oracle key: %v", err)
	}

	processor := ledger.NewProcessor(oraclePriv.PublicKey(), ledger.NewInMemoryStore(),
		ledger.WithProcessorClock(func() time.Time { return clientNow }),
	)
	handler := ledger.NewHandler(processor)

	engine := gin.New()
	engine.POST("/ledger/init", handler.InitUser)
	engine.POST("/ledger/claim", handler.Claim)
	engine.POST("/ledger/claim_dev", handler.ClaimDev)
	engine.GET("/ledger/progress/:user", handler.GetProgress)
	server := httptest.NewServer(engine)
	t.Cleanup(server.Close)

	return NewLedgerClient(server.URL), oraclePriv
}

func signedInstruction(t *testing.T, oraclePriv solana.PrivateKey, user solana.PublicKey, day int64, nonce byte) ledger.ClaimInstruction {
	t.Helper()

	p := payload.ClaimPayload{
		User:      user,
		Day:       day,
		ExpiresAt: clientNow.Unix() + 60,
	}
	p.Nonce[0] = nonce

	sig, err := oraclePriv.Sign(p.Bytes())
	if err != nil {
		t.Fatalf("Failed to sign payload: %v", err)
	}
	return ledger.ClaimInstruction{PayloadBytes: p.Bytes(), Signature: sig}
}

func TestLedgerClientRoundTrip(t *testing.T) {
	lc, oraclePriv := newLedgerServer(t)
	ctx := context.Background()

	walletPriv, err := solana.NewRandomPrivateKey()
	if err != nil {
		t.Fatalf("Failed to generate wallet key: %v", err)
	}
	user := walletPriv.PublicKey()

	if _, exists, err := lc.GetProgress(ctx, user); err != nil || exists {
		t.Fatalf("Expected no progress before init, got exists=%v err=%v", exists, err)
	}

	initial, err := lc.InitUser(ctx, user)
	if err != nil {
		t.Fatalf("InitUser failed: %v", err)
	}
	if initial.LastDayClaimed != ledger.NeverClaimed {
		t.Errorf("Fresh progress has lastDayClaimed %d", initial.LastDayClaimed)
	}

	progress, err := lc.Claim(ctx, user, signedInstruction(t, oraclePriv, user, 100, 1))
	if err != nil {
		t.Fatalf("Claim failed: %v", err)
	}
	if progress.Streak != 1 {
		t.Errorf("Expected streak 1, got %d", progress.Streak)
	}

	got, exists, err := lc.GetProgress(ctx, user)
	if err != nil || !exists {
		t.Fatalf("GetProgress after claim: exists=%v err=%v", exists, err)
	}
	if got != progress {
		t.Errorf("Progress read back differs: %+v vs %+v", got, progress)
	}
}

// Reason codes must survive the HTTP boundary so the orchestrator can
// branch on them exactly like on in-process errors.
func TestLedgerClientPreservesReasonCodes(t *testing.T) {
	lc, oraclePriv := newLedgerServer(t)
	ctx := context.Background()

	walletPriv, err := solana.NewRandomPrivateKey()
	if err != nil {
		t.Fatalf("Failed to generate wallet key: %v", err)
	}
	user := walletPriv.PublicKey()

	ix := signedInstruction(t, oraclePriv, user, 100, 1)
	if _, err := lc.Claim(ctx, user, ix); err != nil {
		t.Fatalf("First claim failed: %v", err)
	}

	if _, err := lc.Claim(ctx, user, ix); !reasoncodes.Is(err, reasoncodes.ErrNonceAlreadyUsed) {
		t.Fatalf("Expected NonceAlreadyUsed over HTTP, got %v", err)
	}

	sameDay := signedInstruction(t, oraclePriv, user, 100, 2)
	if _, err := lc.Claim(ctx, user, sameDay); !reasoncodes.Is(err, reasoncodes.ErrDaySequenceRejected) {
		t.Fatalf("Expected DaySequenceRejected over HTTP, got %v", err)
	}

	if _, err := lc.ClaimDev(ctx, user, sameDay); err != nil {
		t.Fatalf("claim_dev must accept the same day, got %v", err)
	}

	tampered := signedInstruction(t, oraclePriv, user, 101, 3)
	tampered.Signature[0] ^= 0x01
	if _, err := lc.Claim(ctx, user, tampered); !reasoncodes.Is(err, reasoncodes.ErrInvalidSignature) {
		t.Fatalf("Expected InvalidSignature over HTTP, got %v", err)
	}
}
