package oracle

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/gagliardetto/solana-go"

	"github.com/qZheng/CavityProof/pkg/logger"
)

// SigningKey is the oracle's process-wide signing identity. It is loaded
// once at startup and injected into the service; nothing mutates it at
// runtime.
type SigningKey struct {
	PrivateKey solana.PrivateKey
	PublicKey  solana.PublicKey
}

// LoadSigningKey reads the oracle keypair from ORACLE_KEYPAIR_PATH, a
// standard Solana keygen JSON file. Missing file is fatal for deployments;
// set ORACLE_EPHEMERAL_KEY=1 for local runs to generate a throwaway key.
func LoadSigningKey() (*SigningKey, error) {
	if os.Getenv("ORACLE_EPHEMERAL_KEY") == "1" {
		priv, err := solana.NewRandomPrivateKey()
		if err != nil {
			return nil, fmt.Errorf("generating ephemeral oracle key failed: %w", err)
		}
		logger.Default().Warn("Using an ephemeral oracle key; attestations will not survive a restart")
		return &SigningKey{PrivateKey: priv, PublicKey: priv.PublicKey()}, nil
	}

	keypairPath := os.Getenv("ORACLE_KEYPAIR_PATH")
	if keypairPath == "" {
		homeDir, _ := os.UserHomeDir()
		keypairPath = filepath.Join(homeDir, ".cavityproof", "oracle", "id.json")
	}

	priv, err := solana.PrivateKeyFromSolanaKeygenFile(keypairPath)
	if err != nil {
		return nil, fmt.Errorf("reading oracle keypair from %s failed: %w", keypairPath, err)
	}

	key := &SigningKey{PrivateKey: priv, PublicKey: priv.PublicKey()}
	logger.Default().Debugf("Oracle signing identity: %s", key.PublicKey.String())

	return key, nil
}
