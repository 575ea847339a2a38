package ledger

import (
	"encoding/base64"
	"net/http"

	"github.com/gagliardetto/solana-go"
	"github.com/gin-gonic/gin"

	"github.com/qZheng/CavityProof/payload"
	"github.com/qZheng/CavityProof/pkg/reasoncodes"
)

// Handler exposes the ledger instruction surface over REST for local and
// dev deployments. On mainnet the same transitions run inside the on-chain
// program; this server is the ledger abstraction for everything else.
type Handler struct {
	Processor *Processor
}

func NewHandler(pr *Processor) *Handler {
	return &Handler{Processor: pr}
}

type InitUserIn struct {
	User string `json:"user" binding:"required"`
}

type ClaimIn struct {
	User       string `json:"user" binding:"required"`
	PayloadB64 string `json:"payloadB64" binding:"required"`
	SigB64     string `json:"sigB64" binding:"required"`
}

// POST /ledger/init
func (h *Handler) InitUser(c *gin.Context) {
	var in InitUserIn
	if err := c.ShouldBindJSON(&in); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "bad json: " + err.Error()})
		return
	}

	user, err := solana.PublicKeyFromBase58(in.User)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "user must be a base58 32-byte public key"})
		return
	}

	progress, err := h.Processor.InitUser(c.Request.Context(), user)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "could not initialize user"})
		return
	}
	c.JSON(http.StatusOK, progress)
}

// POST /ledger/claim
func (h *Handler) Claim(c *gin.Context) {
	h.handleClaim(c, false)
}

// POST /ledger/claim_dev — bypasses day sequencing, dev only
func (h *Handler) ClaimDev(c *gin.Context) {
	h.handleClaim(c, true)
}

// GET /ledger/progress/:user
func (h *Handler) GetProgress(c *gin.Context) {
	user, err := solana.PublicKeyFromBase58(c.Param("user"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "user must be a base58 32-byte public key"})
		return
	}

	progress, exists, err := h.Processor.GetProgress(c.Request.Context(), user)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "could not read progress"})
		return
	}
	if !exists {
		c.JSON(http.StatusNotFound, gin.H{"error": "unknown user"})
		return
	}
	c.JSON(http.StatusOK, progress)
}

// GET /health
func (h *Handler) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func (h *Handler) handleClaim(c *gin.Context, dev bool) {
	var in ClaimIn
	if err := c.ShouldBindJSON(&in); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "bad json: " + err.Error()})
		return
	}

	caller, err := solana.PublicKeyFromBase58(in.User)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "user must be a base58 32-byte public key"})
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

	ix := ClaimInstruction{PayloadBytes: payloadBytes, Signature: sig}

	var progress Progress
	if dev {
		progress, err = h.Processor.ClaimDev(c.Request.Context(), caller, ix)
	} else {
		progress, err = h.Processor.Claim(c.Request.Context(), caller, ix)
	}
	if err != nil {
		c.JSON(claimStatus(err), gin.H{"error": err.Error(), "code": reasoncodes.CodeOf(err)})
		return
	}
	c.JSON(http.StatusOK, progress)
}

func claimStatus(err error) int {
	switch reasoncodes.CodeOf(err) {
	case reasoncodes.ErrMalformedPayload:
		return http.StatusBadRequest
	case reasoncodes.ErrInvalidSignature, reasoncodes.ErrUserMismatch:
		return http.StatusUnauthorized
	case reasoncodes.ErrAttestationExpired, reasoncodes.ErrNonceAlreadyUsed, reasoncodes.ErrDaySequenceRejected:
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}
