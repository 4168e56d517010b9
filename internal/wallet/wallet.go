// Package wallet holds the signing key and submits transactions through
// Solana RPC. Swap transactions arrive pre-built from the aggregator; the
// wallet's job is sign, send, confirm.
package wallet

import (
	"context"
	"crypto/ed25519"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/gagliardetto/solana-go"
	"github.com/mr-tron/base58"

	projectrpc "github.com/hamza-farooq/solsniper/internal/rpc"
)

type WalletConfig struct {
	RPCURL       string
	Timeout      time.Duration
	MaxRetries   int
	RetryBackoff time.Duration

	PrivateKey string // base58-encoded 64-byte key OR solana-keygen JSON array

	SkipPreflight       bool
	PreflightCommitment string // e.g. "processed"
	Commitment          string // e.g. "confirmed"
}

type Wallet struct {
	cfg  WalletConfig
	rpc  *projectrpc.Client
	priv solana.PrivateKey
	pub  solana.PublicKey
}

func NewWallet(cfg WalletConfig) (*Wallet, error) {
	if cfg.RPCURL == "" {
		return nil, fmt.Errorf("wallet: RPCURL is required")
	}
	if strings.TrimSpace(cfg.PrivateKey) == "" {
		return nil, fmt.Errorf("wallet: PrivateKey is required")
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = 30 * time.Second
	}
	if cfg.MaxRetries == 0 {
		cfg.MaxRetries = 3
	}
	if cfg.RetryBackoff == 0 {
		cfg.RetryBackoff = 1 * time.Second
	}
	if cfg.PreflightCommitment == "" {
		cfg.PreflightCommitment = "processed"
	}
	if cfg.Commitment == "" {
		cfg.Commitment = "confirmed"
	}

	priv, err := parsePrivateKey(cfg.PrivateKey)
	if err != nil {
		return nil, err
	}

	rpcClient := projectrpc.NewClient(projectrpc.ClientConfig{
		BaseURL:      cfg.RPCURL,
		Timeout:      cfg.Timeout,
		MaxRetries:   cfg.MaxRetries,
		RetryBackoff: cfg.RetryBackoff,
	})

	return &Wallet{
		cfg:  cfg,
		rpc:  rpcClient,
		priv: priv,
		pub:  priv.PublicKey(),
	}, nil
}

func (w *Wallet) Address() string             { return w.pub.String() }
func (w *Wallet) PublicKey() solana.PublicKey { return w.pub }

func (w *Wallet) GetBalanceSOL(ctx context.Context) (float64, error) {
	lamports, err := w.rpc.GetBalance(ctx, w.pub.String(), w.cfg.Commitment)
	if err != nil {
		return 0, fmt.Errorf("getBalance failed: %w", err)
	}
	return float64(lamports) / 1e9, nil
}

// SignAndSendBase64 deserializes an aggregator-built transaction, signs it
// with the wallet key and submits it, waiting for confirmation.
func (w *Wallet) SignAndSendBase64(ctx context.Context, encodedTx string, confirmTimeout time.Duration) (string, error) {
	tx, err := solana.TransactionFromBase64(encodedTx)
	if err != nil {
		return "", fmt.Errorf("failed to decode transaction: %w", err)
	}

	if err := w.SignTx(tx); err != nil {
		return "", err
	}

	sig, err := w.SendTx(ctx, tx)
	if err != nil {
		return "", err
	}

	if err := w.ConfirmTransaction(ctx, sig, w.cfg.Commitment, confirmTimeout); err != nil {
		return sig, err
	}
	return sig, nil
}

// SignTx signs a transaction with the wallet's private key.
func (w *Wallet) SignTx(tx *solana.Transaction) error {
	_, err := tx.Sign(func(key solana.PublicKey) *solana.PrivateKey {
		if key.Equals(w.pub) {
			return &w.priv
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to sign transaction: %w", err)
	}
	return nil
}

// SendTx submits a signed transaction.
func (w *Wallet) SendTx(ctx context.Context, tx *solana.Transaction) (string, error) {
	txBytes, err := tx.MarshalBinary()
	if err != nil {
		return "", fmt.Errorf("failed to serialize transaction: %w", err)
	}

	sig, err := w.rpc.SendTransaction(ctx, base64.StdEncoding.EncodeToString(txBytes), projectrpc.SendOptions{
		SkipPreflight:       w.cfg.SkipPreflight,
		PreflightCommitment: w.cfg.PreflightCommitment,
		MaxRetries:          w.cfg.MaxRetries,
	})
	if err != nil {
		return "", fmt.Errorf("sendTransaction failed: %w", err)
	}
	return sig, nil
}

// ConfirmTransaction polls signature status with exponential backoff until
// the commitment level is reached or the timeout expires.
func (w *Wallet) ConfirmTransaction(ctx context.Context, signature string, commitment string, timeout time.Duration) error {
	deadline := time.Now().Add(timeout)
	backoff := 500 * time.Millisecond
	maxBackoff := 4 * time.Second

	for time.Now().Before(deadline) {
		confirmed, err := w.checkSignatureStatus(ctx, signature, commitment)
		if err != nil {
			return fmt.Errorf("failed to check signature: %w", err)
		}
		if confirmed {
			return nil
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(backoff):
			backoff *= 2
			if backoff > maxBackoff {
				backoff = maxBackoff
			}
		}
	}

	return fmt.Errorf("transaction confirmation timeout after %v", timeout)
}

func (w *Wallet) checkSignatureStatus(ctx context.Context, signature string, commitment string) (bool, error) {
	statuses, err := w.rpc.GetSignatureStatuses(ctx, []string{signature})
	if err != nil {
		return false, err
	}

	if len(statuses) == 0 || statuses[0] == nil || statuses[0].ConfirmationStatus == "" {
		return false, nil // not yet processed
	}

	status := statuses[0]
	if status.Err != nil {
		return false, fmt.Errorf("transaction failed: %v", status.Err)
	}

	switch commitment {
	case "processed":
		return status.ConfirmationStatus != "", nil
	case "confirmed":
		return status.ConfirmationStatus == "confirmed" || status.ConfirmationStatus == "finalized", nil
	case "finalized":
		return status.ConfirmationStatus == "finalized", nil
	default:
		return status.ConfirmationStatus != "", nil
	}
}

func parsePrivateKey(s string) (solana.PrivateKey, error) {
	s = strings.TrimSpace(s)
	if strings.HasPrefix(s, "[") {
		var ints []int
		if err := json.Unmarshal([]byte(s), &ints); err != nil {
			return nil, fmt.Errorf("wallet: invalid JSON private key: %w", err)
		}
		b := make([]byte, len(ints))
		for i, v := range ints {
			if v < 0 || v > 255 {
				return nil, fmt.Errorf("wallet: invalid byte at %d: %d", i, v)
			}
			b[i] = byte(v)
		}
		if len(b) != ed25519.PrivateKeySize {
			return nil, fmt.Errorf("wallet: expected %d bytes, got %d", ed25519.PrivateKeySize, len(b))
		}
		return solana.PrivateKey(b), nil
	}

	raw, err := base58.Decode(s)
	if err != nil {
		return nil, fmt.Errorf("wallet: invalid base58 private key: %w", err)
	}
	if len(raw) != ed25519.PrivateKeySize {
		return nil, fmt.Errorf("wallet: expected %d bytes, got %d", ed25519.PrivateKeySize, len(raw))
	}
	return solana.PrivateKey(raw), nil
}
