// Package client assembles the daily claim flow: fetch a detection proof,
// bind it to the wallet identity, obtain an oracle attestation, cross-check
// the oracle's encoding against a local one, and submit a single atomic
// claim to the ledger. The pipeline is strictly linear and cancelable; no
// step retries on its own.
package client

import (
	"bytes"
	"context"
	"time"

	"github.com/gagliardetto/solana-go"
	"github.com/google/uuid"

	"github.com/qZheng/CavityProof/ledger"
	"github.com/qZheng/CavityProof/payload"
	"github.com/qZheng/CavityProof/pkg/logger"
	"github.com/qZheng/CavityProof/pkg/reasoncodes"
	"github.com/qZheng/CavityProof/pkg/utilities/timeutil"
)

// DefaultAttestationTTL is how long a requested attestation stays valid.
// Well inside the oracle's 180s ceiling, long enough for one submission.
const DefaultAttestationTTL = 60 * time.Second

// Ledger abstracts the authoritative state store: the in-process
// ledger.Processor for dev and tests, or the Solana submitter for the
// real chain.
type Ledger interface {
	InitUser(ctx context.Context, user solana.PublicKey) (ledger.Progress, error)
	Claim(ctx context.Context, caller solana.PublicKey, ix ledger.ClaimInstruction) (ledger.Progress, error)
	ClaimDev(ctx context.Context, caller solana.PublicKey, ix ledger.ClaimInstruction) (ledger.Progress, error)
	GetProgress(ctx context.Context, user solana.PublicKey) (ledger.Progress, bool, error)
}

type Orchestrator struct {
	Detection *DetectionClient
	Oracle    *OracleClient
	Ledger    Ledger

	now func() time.Time
}

func NewOrchestrator(detection *DetectionClient, oracleClient *OracleClient, l Ledger, opts ...func(*Orchestrator)) *Orchestrator {
	o := &Orchestrator{
		Detection: detection,
		Oracle:    oracleClient,
		Ledger:    l,
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// WithOrchestratorClock overrides the wall clock (tests only).
func WithOrchestratorClock(now func() time.Time) func(*Orchestrator) {
	return func(o *Orchestrator) { o.now = now }
}

// ClaimToday runs the full pipeline for the current UTC day.
func (o *Orchestrator) ClaimToday(ctx context.Context, user solana.PublicKey) (ledger.Progress, error) {
	return o.claim(ctx, user, timeutil.DayNumberAt(o.now()), false)
}

// ClaimDevDay runs the pipeline for an arbitrary day through the dev entry
// point. It exists to exercise the signature and replay path repeatedly
// without waiting a real day.
func (o *Orchestrator) ClaimDevDay(ctx context.Context, user solana.PublicKey, day int64) (ledger.Progress, error) {
	return o.claim(ctx, user, day, true)
}

func (o *Orchestrator) claim(ctx context.Context, user solana.PublicKey, day int64, dev bool) (ledger.Progress, error) {
	proofJSON, err := o.Detection.FetchProof(ctx)
	if err != nil {
		return ledger.Progress{}, err
	}

	sessionHash, err := BindProof(proofJSON, user)
	if err != nil {
		return ledger.Progress{}, err
	}

	// uuid provides exactly the 16 random bytes the nonce needs
	nonce := [payload.NonceLen]byte(uuid.New())
	expiresAt := o.now().Add(DefaultAttestationTTL).Unix()

	att, err := o.Oracle.Sign(ctx, user, day, sessionHash, nonce, expiresAt)
	if err != nil {
		return ledger.Progress{}, err
	}

	// Re-derive the payload locally and require byte equality with what
	// the oracle echoed back. Any divergence is a tampering or
	// serialization-bug signal and aborts before submission.
	local := payload.ClaimPayload{
		User:        user,
		Day:         day,
		SessionHash: sessionHash,
		Nonce:       nonce,
		ExpiresAt:   expiresAt,
	}
	if !bytes.Equal(local.Bytes(), att.PayloadBytes) {
		return ledger.Progress{}, reasoncodes.New(
			reasoncodes.ErrMalformedPayload,
			"oracle payload does not match the locally derived encoding",
		)
	}

	if _, err := o.Ledger.InitUser(ctx, user); err != nil {
		return ledger.Progress{}, err
	}

	ix := ledger.ClaimInstruction{
		PayloadBytes: att.PayloadBytes,
		Signature:    att.Signature,
	}

	var progress ledger.Progress
	if dev {
		progress, err = o.Ledger.ClaimDev(ctx, user, ix)
	} else {
		progress, err = o.Ledger.Claim(ctx, user, ix)
	}
	if err != nil {
		return ledger.Progress{}, err
	}

	logger.Default().Infof("Claim accepted for %s: day %d, streak %d, total %d", user, day, progress.Streak, progress.TotalClaims)
	return progress, nil
}
