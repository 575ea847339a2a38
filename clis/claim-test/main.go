package main

import (
	"context"
	"fmt"
	"os"
	"strconv"

	"github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/rpc"
	"github.com/joho/godotenv"

	"github.com/qZheng/CavityProof/client"
	"github.com/qZheng/CavityProof/ledger"
	"github.com/qZheng/CavityProof/pkg/logger"
)

const (
	defaultDetectionBase = "http://localhost:5000"
	defaultOracleBase    = "http://localhost:8080"
	defaultLedgerBase    = "http://localhost:9000"
)

func main() {
	if len(os.Args) < 2 {
		usage()
		return
	}

	_ = godotenv.Load()
	logger.InitDefaultLogger(logger.GlobalLoggerConfig{
		Args: []logger.LoggerArg{{Key: "service", Value: "claim-test"}},
	})

	wallet := mustWallet()
	orchestrator := client.NewOrchestrator(
		client.NewDetectionClient(envOr("DETECTION_BASE", defaultDetectionBase)),
		client.NewOracleClient(envOr("ORACLE_BASE", defaultOracleBase)),
		mustLedger(wallet),
	)

	ctx := context.Background()
	user := wallet.PublicKey()

	switch cmd, args := os.Args[1], os.Args[2:]; cmd {
	case "whoami":
		fmt.Println(user)

	case "init":
		progress, err := orchestrator.Ledger.InitUser(ctx, user)
		exitOnError(err)
		printProgress(progress)

	case "claim":
		progress, err := orchestrator.ClaimToday(ctx, user)
		exitOnError(err)
		printProgress(progress)

	case "claim-dev":
		day, err := strconv.ParseInt(mustArg(args, 0), 10, 64)
		exitOnError(err)
		progress, err := orchestrator.ClaimDevDay(ctx, user, day)
		exitOnError(err)
		printProgress(progress)

	case "progress":
		progress, exists, err := orchestrator.Ledger.GetProgress(ctx, user)
		exitOnError(err)
		if !exists {
			fmt.Println("no progress account; run init first")
			os.Exit(1)
		}
		printProgress(progress)

	default:
		fmt.Fprintf(os.Stderr, "unknown command: %s\n\n", cmd)
		usage()
		os.Exit(1)
	}
}

func usage() {
	fmt.Print(`Usage: claim-test <command>

Commands:
  whoami            print the wallet public key
  init              create the progress account if missing
  claim             run the full claim pipeline for today
  claim-dev <day>   claim an arbitrary day through the dev entry point
  progress          show the current streak state

Environment:
  WALLET_KEYPAIR_PATH  solana keygen file for the claiming wallet (required)
  DETECTION_BASE       override default http://localhost:5000
  ORACLE_BASE          override default http://localhost:8080
  LEDGER_BASE          override default http://localhost:9000
  SOLANA_RPC           submit to a chain instead of a ledger-server
  CLAIM_PROGRAM_ID     on-chain program id (required with SOLANA_RPC)
  ORACLE_PUBKEY        oracle identity (required with SOLANA_RPC)
`)
}

func mustWallet() solana.PrivateKey {
	keypairPath := os.Getenv("WALLET_KEYPAIR_PATH")
	if keypairPath == "" {
		fmt.Fprintln(os.Stderr, "WALLET_KEYPAIR_PATH is required")
		os.Exit(1)
	}
	wallet, err := solana.PrivateKeyFromSolanaKeygenFile(keypairPath)
	exitOnError(err)
	return wallet
}

// mustLedger targets the chain when SOLANA_RPC is set, a ledger-server
// otherwise.
func mustLedger(wallet solana.PrivateKey) client.Ledger {
	rpcURL := os.Getenv("SOLANA_RPC")
	if rpcURL == "" {
		return client.NewLedgerClient(envOr("LEDGER_BASE", defaultLedgerBase))
	}

	programID, err := solana.PublicKeyFromBase58(os.Getenv("CLAIM_PROGRAM_ID"))
	exitOnError(err)
	oraclePubkey, err := solana.PublicKeyFromBase58(os.Getenv("ORACLE_PUBKEY"))
	exitOnError(err)

	return client.NewSolanaSubmitter(rpc.New(rpcURL), programID, oraclePubkey, wallet)
}

func mustArg(args []string, idx int) string {
	if len(args) <= idx {
		fmt.Fprintf(os.Stderr, "missing argument %d\n", idx+1)
		usage()
		os.Exit(1)
	}
	return args[idx]
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func exitOnError(err error) {
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func printProgress(p ledger.Progress) {
	fmt.Printf("owner=%s streak=%d lastDayClaimed=%d totalClaims=%d\n",
		p.Owner, p.Streak, p.LastDayClaimed, p.TotalClaims)
}
