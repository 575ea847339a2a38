package client

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/gagliardetto/solana-go"

	"github.com/qZheng/CavityProof/payload"
)

// EventBrushComplete is the only event a proof may carry.
const EventBrushComplete = "brush_complete"

// BrushProof is the detection service's completion object. The detector is
// an untrusted oracle of physical fact; past shape validation the protocol
// only consumes the raw JSON as an opaque commitment input.
type BrushProof struct {
	Event          string   `json:"event"`
	RequiredSec    float64  `json:"required_sec"`
	AccumulatedSec float64  `json:"accumulated_sec"`
	CompletedAt    string   `json:"completed_at"`
	Model          string   `json:"model"`
	Classes        []string `json:"classes"`
	ConfThres      float64  `json:"conf_thres"`
}

type detectionStatus struct {
	Running bool            `json:"running"`
	Proof   json.RawMessage `json:"proof"`
}

var ErrSessionIncomplete = errors.New("brushing session has not completed yet")

// DetectionClient reads the vision service's status endpoint.
type DetectionClient struct {
	BaseURL    string
	HTTPClient *http.Client
}

func NewDetectionClient(baseURL string) *DetectionClient {
	return &DetectionClient{
		BaseURL:    baseURL,
		HTTPClient: http.DefaultClient,
	}
}

// FetchProof returns the raw proof JSON once the session is complete.
func (dc *DetectionClient) FetchProof(ctx context.Context) (json.RawMessage, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, dc.BaseURL+"/api/status", nil)
	if err != nil {
		return nil, err
	}

	resp, err := dc.HTTPClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("detection service returned HTTP %d", resp.StatusCode)
	}

	var status detectionStatus
	if err := json.Unmarshal(body, &status); err != nil {
		return nil, err
	}
	if len(status.Proof) == 0 || bytes.Equal(status.Proof, []byte("null")) {
		return nil, ErrSessionIncomplete
	}

	var proof BrushProof
	if err := json.Unmarshal(status.Proof, &proof); err != nil {
		return nil, fmt.Errorf("malformed proof object: %w", err)
	}
	if proof.Event != EventBrushComplete {
		return nil, fmt.Errorf("unexpected proof event %q", proof.Event)
	}
	// the raw bytes are what gets bound, not the decoded struct
	return status.Proof, nil
}

// BindProof commits to the detection proof and the claimant identity in one
// hash: sha256(canonicalJSON(proof) || user). Binding the identity before
// the oracle ever sees the hash is what stops a proof being reused for a
// different wallet.
func BindProof(proofJSON []byte, user solana.PublicKey) ([payload.SessionHashLen]byte, error) {
	var sessionHash [payload.SessionHashLen]byte

	canon, err := canonicalJSON(proofJSON)
	if err != nil {
		return sessionHash, fmt.Errorf("invalid proof json: %w", err)
	}

	h := sha256.New()
	h.Write(canon)
	h.Write(user[:])
	copy(sessionHash[:], h.Sum(nil))
	return sessionHash, nil
}

func canonicalJSON(raw []byte) ([]byte, error) {
	var v any
	if err := json.Unmarshal(raw, &v); err != nil {
		return nil, err
	}
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		return nil, err
	}
	out := buf.Bytes()
	if len(out) > 0 && out[len(out)-1] == '\n' {
		out = out[:len(out)-1]
	}
	return out, nil
}
