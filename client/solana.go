package client

import (
	"context"
	"crypto/sha256"
	"encoding/binary"
	"fmt"

	"github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/rpc"

	"github.com/qZheng/CavityProof/ledger"
	"github.com/qZheng/CavityProof/payload"
	"github.com/qZheng/CavityProof/pkg/logger"
)

// ed25519 native verification program
var ed25519ProgramID = solana.MustPublicKeyFromBase58("Ed25519SigVerify111111111111111111111111111")

// ClaimInstructionDataSize is the raw claim instruction layout:
// discriminator(8) | day(i64 LE) | sessionHash(32) | nonce(16) |
// expiresAt(i64 LE) | signature(64).
const ClaimInstructionDataSize = 136

// SolanaSubmitter implements Ledger against the deployed program. Each
// claim is one atomic transaction: [optional init_user] + ed25519
// signature verification + the claim instruction.
type SolanaSubmitter struct {
	RpcClient    *rpc.Client
	ProgramID    solana.PublicKey
	OraclePubkey solana.PublicKey
	Wallet       solana.PrivateKey
}

func NewSolanaSubmitter(rpcClient *rpc.Client, programID, oraclePubkey solana.PublicKey, wallet solana.PrivateKey) *SolanaSubmitter {
	return &SolanaSubmitter{
		RpcClient:    rpcClient,
		ProgramID:    programID,
		OraclePubkey: oraclePubkey,
		Wallet:       wallet,
	}
}

// ProgressAddress derives the per-user progress PDA.
func (ss *SolanaSubmitter) ProgressAddress(user solana.PublicKey) (solana.PublicKey, error) {
	addr, _, err := solana.FindProgramAddress(
		[][]byte{[]byte("user"), user[:]},
		ss.ProgramID,
	)
	return addr, err
}

// ReplayRecordAddress derives the (user, nonce) replay PDA.
func (ss *SolanaSubmitter) ReplayRecordAddress(user solana.PublicKey, nonce [payload.NonceLen]byte) (solana.PublicKey, error) {
	addr, _, err := solana.FindProgramAddress(
		[][]byte{[]byte("replay"), user[:], nonce[:]},
		ss.ProgramID,
	)
	return addr, err
}

func (ss *SolanaSubmitter) InitUser(ctx context.Context, user solana.PublicKey) (ledger.Progress, error) {
	existing, exists, err := ss.GetProgressState(ctx, user)
	if err != nil {
		return ledger.Progress{}, err
	}
	if exists {
		// idempotent create: an existing account is a no-op continuation
		return existing, nil
	}

	progressPDA, err := ss.ProgressAddress(user)
	if err != nil {
		return ledger.Progress{}, err
	}

	initIx := solana.NewInstruction(
		ss.ProgramID,
		[]*solana.AccountMeta{
			solana.NewAccountMeta(user, true, true),
			solana.NewAccountMeta(progressPDA, true, false),
			solana.NewAccountMeta(solana.SystemProgramID, false, false),
		},
		anchorDiscriminator("init_user"),
	)

	if err := ss.sendTransaction(ctx, []solana.Instruction{initIx}); err != nil {
		return ledger.Progress{}, err
	}
	return ledger.NewProgress(user), nil
}

func (ss *SolanaSubmitter) Claim(ctx context.Context, caller solana.PublicKey, ix ledger.ClaimInstruction) (ledger.Progress, error) {
	return ss.submitClaim(ctx, caller, ix, "claim")
}

func (ss *SolanaSubmitter) ClaimDev(ctx context.Context, caller solana.PublicKey, ix ledger.ClaimInstruction) (ledger.Progress, error) {
	return ss.submitClaim(ctx, caller, ix, "claim_dev")
}

func (ss *SolanaSubmitter) GetProgress(ctx context.Context, user solana.PublicKey) (ledger.Progress, bool, error) {
	return ss.GetProgressState(ctx, user)
}

func (ss *SolanaSubmitter) GetProgressState(ctx context.Context, user solana.PublicKey) (ledger.Progress, bool, error) {
	progressPDA, err := ss.ProgressAddress(user)
	if err != nil {
		return ledger.Progress{}, false, err
	}

	acc, err := ss.RpcClient.GetAccountInfo(ctx, progressPDA)
	if err != nil {
		// solana-go reports a missing account as an error
		return ledger.Progress{}, false, nil
	}
	if acc == nil || acc.Value == nil {
		return ledger.Progress{}, false, nil
	}

	progress, err := ledger.UnmarshalAccount(acc.Value.Data.GetBinary())
	if err != nil {
		return ledger.Progress{}, false, err
	}
	return progress, true, nil
}

func (ss *SolanaSubmitter) submitClaim(ctx context.Context, caller solana.PublicKey, ix ledger.ClaimInstruction, entryPoint string) (ledger.Progress, error) {
	p, err := payload.Decode(ix.PayloadBytes)
	if err != nil {
		return ledger.Progress{}, err
	}

	progressPDA, err := ss.ProgressAddress(caller)
	if err != nil {
		return ledger.Progress{}, err
	}
	replayPDA, err := ss.ReplayRecordAddress(caller, p.Nonce)
	if err != nil {
		return ledger.Progress{}, err
	}

	verifyIx := newEd25519VerifyInstruction(ss.OraclePubkey, ix.PayloadBytes, ix.Signature)

	claimIx := solana.NewInstruction(
		ss.ProgramID,
		[]*solana.AccountMeta{
			solana.NewAccountMeta(caller, true, true),
			solana.NewAccountMeta(progressPDA, true, false),
			solana.NewAccountMeta(replayPDA, true, false),
			solana.NewAccountMeta(solana.SysVarInstructionsPubkey, false, false),
			solana.NewAccountMeta(solana.SystemProgramID, false, false),
		},
		claimInstructionData(entryPoint, p, ix.Signature),
	)

	if err := ss.sendTransaction(ctx, []solana.Instruction{verifyIx, claimIx}); err != nil {
		return ledger.Progress{}, err
	}

	progress, _, err := ss.GetProgressState(ctx, caller)
	return progress, err
}

func (ss *SolanaSubmitter) sendTransaction(ctx context.Context, instructions []solana.Instruction) error {
	latest, err := ss.RpcClient.GetLatestBlockhash(ctx, rpc.CommitmentFinalized)
	if err != nil {
		return err
	}

	tx, err := solana.NewTransaction(
		instructions,
		latest.Value.Blockhash,
		solana.TransactionPayer(ss.Wallet.PublicKey()),
	)
	if err != nil {
		return err
	}

	_, err = tx.Sign(func(pk solana.PublicKey) *solana.PrivateKey {
		if pk.Equals(ss.Wallet.PublicKey()) {
			return &ss.Wallet
		}
		return nil
	})
	if err != nil {
		return err
	}

	sig, err := ss.RpcClient.SendTransactionWithOpts(
		ctx,
		tx,
		rpc.TransactionOpts{
			SkipPreflight:       false,
			PreflightCommitment: rpc.CommitmentFinalized,
		},
	)
	if err != nil {
		return fmt.Errorf("sending claim transaction failed: %w", err)
	}

	logger.Default().Infof("Submitted claim transaction: %s", sig)
	return nil
}

// claimInstructionData builds the 136-byte claim instruction body.
func claimInstructionData(entryPoint string, p payload.ClaimPayload, sig solana.Signature) []byte {
	data := make([]byte, 0, ClaimInstructionDataSize)
	data = append(data, anchorDiscriminator(entryPoint)...)
	data = binary.LittleEndian.AppendUint64(data, uint64(p.Day))
	data = append(data, p.SessionHash[:]...)
	data = append(data, p.Nonce[:]...)
	data = binary.LittleEndian.AppendUint64(data, uint64(p.ExpiresAt))
	data = append(data, sig[:]...)
	return data
}

func anchorDiscriminator(name string) []byte {
	sum := sha256.Sum256([]byte("global:" + name))
	return sum[:8]
}

// newEd25519VerifyInstruction builds the native ed25519 program
// instruction that proves the oracle signature inside the same
// transaction as the claim.
func newEd25519VerifyInstruction(oraclePubkey solana.PublicKey, message []byte, sig solana.Signature) solana.Instruction {
	const (
		headerSize    = 2  // count + padding
		offsetsSize   = 14 // seven u16 fields
		noInstruction = 0xFFFF
		pubkeyOffset  = headerSize + offsetsSize
		sigOffset     = pubkeyOffset + 32
		messageOffset = sigOffset + 64
	)

	data := make([]byte, 0, messageOffset+len(message))
	data = append(data, 1, 0) // one signature, padding
	data = binary.LittleEndian.AppendUint16(data, sigOffset)
	data = binary.LittleEndian.AppendUint16(data, noInstruction)
	data = binary.LittleEndian.AppendUint16(data, pubkeyOffset)
	data = binary.LittleEndian.AppendUint16(data, noInstruction)
	data = binary.LittleEndian.AppendUint16(data, messageOffset)
	data = binary.LittleEndian.AppendUint16(data, uint16(len(message)))
	data = binary.LittleEndian.AppendUint16(data, noInstruction)
	data = append(data, oraclePubkey[:]...)
	data = append(data, sig[:]...)
	data = append(data, message...)

	return solana.NewInstruction(ed25519ProgramID, []*solana.AccountMeta{}, data)
}
