package client

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/gagliardetto/solana-go"

	"github.com/qZheng/CavityProof/ledger"
	"github.com/qZheng/CavityProof/pkg/reasoncodes"
)

// LedgerClient talks to a ledger-server over HTTP. It implements Ledger so
// the orchestrator can target it interchangeably with the Solana submitter.
type LedgerClient struct {
	BaseURL    string
	HTTPClient *http.Client
}

func NewLedgerClient(baseURL string) *LedgerClient {
	return &LedgerClient{
		BaseURL:    baseURL,
		HTTPClient: http.DefaultClient,
	}
}

type ledgerInitRequest struct {
	User string `json:"user"`
}

type ledgerClaimRequest struct {
	User       string `json:"user"`
	PayloadB64 string `json:"payloadB64"`
	SigB64     string `json:"sigB64"`
}

type ledgerErrorResponse struct {
	Error string                 `json:"error"`
	Code  reasoncodes.ReasonCode `json:"code"`
}

func (lc *LedgerClient) InitUser(ctx context.Context, user solana.PublicKey) (ledger.Progress, error) {
	return lc.post(ctx, "/ledger/init", ledgerInitRequest{User: user.String()})
}

func (lc *LedgerClient) Claim(ctx context.Context, caller solana.PublicKey, ix ledger.ClaimInstruction) (ledger.Progress, error) {
	return lc.post(ctx, "/ledger/claim", claimRequest(caller, ix))
}

func (lc *LedgerClient) ClaimDev(ctx context.Context, caller solana.PublicKey, ix ledger.ClaimInstruction) (ledger.Progress, error) {
	return lc.post(ctx, "/ledger/claim_dev", claimRequest(caller, ix))
}

func (lc *LedgerClient) GetProgress(ctx context.Context, user solana.PublicKey) (ledger.Progress, bool, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, lc.BaseURL+"/ledger/progress/"+user.String(), nil)
	if err != nil {
		return ledger.Progress{}, false, err
	}

	res, err := lc.HTTPClient.Do(req)
	if err != nil {
		return ledger.Progress{}, false, err
	}
	defer res.Body.Close()

	if res.StatusCode == http.StatusNotFound {
		return ledger.Progress{}, false, nil
	}
	progress, err := decodeProgress(res)
	if err != nil {
		return ledger.Progress{}, false, err
	}
	return progress, true, nil
}

func claimRequest(caller solana.PublicKey, ix ledger.ClaimInstruction) ledgerClaimRequest {
	return ledgerClaimRequest{
		User:       caller.String(),
		PayloadB64: base64.StdEncoding.EncodeToString(ix.PayloadBytes),
		SigB64:     base64.StdEncoding.EncodeToString(ix.Signature[:]),
	}
}

func (lc *LedgerClient) post(ctx context.Context, path string, body any) (ledger.Progress, error) {
	reqBody, err := json.Marshal(body)
	if err != nil {
		return ledger.Progress{}, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, lc.BaseURL+path, bytes.NewReader(reqBody))
	if err != nil {
		return ledger.Progress{}, err
	}
	req.Header.Set("Content-Type", "application/json")

	res, err := lc.HTTPClient.Do(req)
	if err != nil {
		return ledger.Progress{}, err
	}
	defer res.Body.Close()

	return decodeProgress(res)
}

// decodeProgress reads a Progress body, reconstructing the server's reason
// code on non-2xx responses so callers can branch on it like a local error.
func decodeProgress(res *http.Response) (ledger.Progress, error) {
	raw, err := io.ReadAll(res.Body)
	if err != nil {
		return ledger.Progress{}, err
	}

	if res.StatusCode != http.StatusOK {
		var fail ledgerErrorResponse
		if json.Unmarshal(raw, &fail) == nil && fail.Code != "" {
			return ledger.Progress{}, reasoncodes.New(fail.Code, fail.Error)
		}
		return ledger.Progress{}, fmt.Errorf("ledger returned status %d: %s", res.StatusCode, raw)
	}

	var progress ledger.Progress
	if err := json.Unmarshal(raw, &progress); err != nil {
		return ledger.Progress{}, fmt.Errorf("ledger returned unparsable progress: %w", err)
	}
	return progress, nil
}
