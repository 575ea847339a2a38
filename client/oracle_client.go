package client

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/gagliardetto/solana-go"

	"github.com/qZheng/CavityProof/payload"
)

// OracleClient talks to the attestation oracle's HTTP surface.
type OracleClient struct {
	BaseURL    string
	HTTPClient *http.Client
}

func NewOracleClient(baseURL string) *OracleClient {
	return &OracleClient{
		BaseURL:    baseURL,
		HTTPClient: http.DefaultClient,
	}
}

type oracleSignRequest struct {
	User        string `json:"user"`
	Day         int64  `json:"day"`
	SessionHash string `json:"sessionHash"`
	Nonce       string `json:"nonce"`
	ExpiresAt   int64  `json:"expiresAt"`
}

type oracleSignResponse struct {
	OraclePubkey string `json:"oraclePubkey"`
	PayloadB64   string `json:"payloadB64"`
	SigB64       string `json:"sigB64"`
	Error        string `json:"error"`
}

// SignedAttestation is the oracle's response, decoded.
type SignedAttestation struct {
	OraclePubkey solana.PublicKey
	PayloadBytes []byte
	Signature    solana.Signature
}

// Sign requests a signature over the claim tuple.
func (oc *OracleClient) Sign(ctx context.Context, user solana.PublicKey, day int64, sessionHash [payload.SessionHashLen]byte, nonce [payload.NonceLen]byte, expiresAt int64) (SignedAttestation, error) {
	reqBody, err := json.Marshal(oracleSignRequest{
		User:        user.String(),
		Day:         day,
		SessionHash: hex.EncodeToString(sessionHash[:]),
		Nonce:       hex.EncodeToString(nonce[:]),
		ExpiresAt:   expiresAt,
	})
	if err != nil {
		return SignedAttestation{}, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, oc.BaseURL+"/oracle/sign", bytes.NewReader(reqBody))
	if err != nil {
		return SignedAttestation{}, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := oc.HTTPClient.Do(req)
	if err != nil {
		return SignedAttestation{}, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return SignedAttestation{}, err
	}

	var out oracleSignResponse
	if err := json.Unmarshal(body, &out); err != nil {
		return SignedAttestation{}, fmt.Errorf("oracle returned unparsable response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		if out.Error != "" {
			return SignedAttestation{}, fmt.Errorf("oracle rejected request: %s", out.Error)
		}
		return SignedAttestation{}, fmt.Errorf("oracle returned HTTP %d", resp.StatusCode)
	}

	return decodeAttestation(out)
}

func decodeAttestation(out oracleSignResponse) (SignedAttestation, error) {
	pubkey, err := solana.PublicKeyFromBase58(out.OraclePubkey)
	if err != nil {
		return SignedAttestation{}, fmt.Errorf("oracle pubkey is not base58: %w", err)
	}

	payloadBytes, err := base64.StdEncoding.DecodeString(out.PayloadB64)
	if err != nil {
		return SignedAttestation{}, fmt.Errorf("oracle payload is not base64: %w", err)
	}

	sigBytes, err := base64.StdEncoding.DecodeString(out.SigB64)
	if err != nil || len(sigBytes) != payload.SignatureLen {
		return SignedAttestation{}, fmt.Errorf("oracle signature must be 64 base64 bytes")
	}

	var sig solana.Signature
	copy(sig[:], sigBytes)

	return SignedAttestation{
		OraclePubkey: pubkey,
		PayloadBytes: payloadBytes,
		Signature:    sig,
	}, nil
}
