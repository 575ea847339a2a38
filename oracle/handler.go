package oracle

import (
	"encoding/base64"
	"encoding/hex"
	"errors"
	"fmt"
	"net/http"

	"github.com/gagliardetto/solana-go"
	"github.com/gin-gonic/gin"

	"github.com/qZheng/CavityProof/payload"
	"github.com/qZheng/CavityProof/pkg/logger"
	"github.com/qZheng/CavityProof/pkg/reasoncodes"
)

type Handler struct {
	Service *Service
}

func NewHandler(s *Service) *Handler {
	return &Handler{Service: s}
}

type SignIn struct {
	User        string `json:"user" binding:"required"`
	Day         int64  `json:"day"`
	SessionHash string `json:"sessionHash" binding:"required"`
	Nonce       string `json:"nonce" binding:"required"`
	ExpiresAt   int64  `json:"expiresAt"`
}

type SignOut struct {
	OraclePubkey string `json:"oraclePubkey"`
	PayloadB64   string `json:"payloadB64"`
	SigB64       string `json:"sigB64"`
}

type VerifyIn struct {
	OraclePubkey string `json:"oraclePubkey" binding:"required"`
	PayloadB64   string `json:"payloadB64" binding:"required"`
	SigB64       string `json:"sigB64" binding:"required"`
}

// POST /oracle/sign
func (h *Handler) SignClaim(c *gin.Context) {
	var in SignIn
	if err := c.ShouldBindJSON(&in); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "bad json: " + err.Error()})
		return
	}

	user, err := solana.PublicKeyFromBase58(in.User)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "user must be a base58 32-byte public key"})
		return
	}

	var sessionHash [payload.SessionHashLen]byte
	if err := decodeFixedBytes(in.SessionHash, sessionHash[:]); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "sessionHash: " + err.Error()})
		return
	}

	var nonce [payload.NonceLen]byte
	if err := decodeFixedBytes(in.Nonce, nonce[:]); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "nonce: " + err.Error()})
		return
	}

	att, err := h.Service.Sign(user, in.Day, sessionHash, nonce, in.ExpiresAt)
	if err != nil {
		logger.Default().Warnf("Rejected signing request for %s: %v", in.User, err)
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error(), "code": reasoncodes.CodeOf(err)})
		return
	}

	logger.Default().Infof("Signed claim attestation for %s, day %d", in.User, in.Day)
	c.JSON(http.StatusOK, SignOut{
		OraclePubkey: att.OraclePubkey.String(),
		PayloadB64:   base64.StdEncoding.EncodeToString(att.Payload.Bytes()),
		SigB64:       base64.StdEncoding.EncodeToString(att.Signature[:]),
	})
}

// POST /verify
func (h *Handler) VerifyAttestation(c *gin.Context) {
	var in VerifyIn
	if err := c.ShouldBindJSON(&in); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "bad json: " + err.Error()})
		return
	}

	pubkey, err := solana.PublicKeyFromBase58(in.OraclePubkey)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "oraclePubkey must be a base58 32-byte public key"})
		return
	}

	payloadBytes, err := base64.StdEncoding.DecodeString(in.PayloadB64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "payloadB64 is not valid base64"})
		return
	}

	sigBytes, err := base64.StdEncoding.DecodeString(in.SigB64)
	if err != nil || len(sigBytes) != payload.SignatureLen {
		c.JSON(http.StatusBadRequest, gin.H{"error": "sigB64 must decode to 64 bytes"})
		return
	}
	var sig solana.Signature
	copy(sig[:], sigBytes)

	c.JSON(http.StatusOK, gin.H{"ok": VerifySignature(pubkey, payloadBytes, sig)})
}

// GET /health
func (h *Handler) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// decodeFixedBytes accepts either hex or std base64 and requires the
// decoded value to fill dst exactly.
func decodeFixedBytes(s string, dst []byte) error {
	raw, err := hex.DecodeString(s)
	if err != nil {
		raw, err = base64.StdEncoding.DecodeString(s)
		if err != nil {
			return errors.New("value is neither hex nor base64")
		}
	}
	if len(raw) != len(dst) {
		return fmt.Errorf("expected %d bytes, got %d", len(dst), len(raw))
	}
	copy(dst, raw)
	return nil
}
