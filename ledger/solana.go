package ledger

import (
	"context"
	"fmt"
	"strconv"

	"github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/programs/token"
	"github.com/gagliardetto/solana-go/rpc"
	"go.uber.org/zap"
)

// SolanaMirror pushes issuance onto SPL token mints so supply is externally
// auditable. Per-user holdings stay book-entry in the process ledger; the
// platform fee payer is the mint authority and holds the mirrored supply in
// its own associated token account.
//
// The mirror is best-effort: engines commit their own state first and a failed
// mirror call is logged for reconciliation by the chain listener, never rolled
// back into engine state.
type SolanaMirror struct {
	RPCClient *rpc.Client
	FeePayer  solana.PrivateKey
	log       *zap.Logger
}

// NewSolanaMirror connects the RPC client and loads the fee payer key.
func NewSolanaMirror(rpcEndpoint, feePayerKeyBase58 string, log *zap.Logger) (*SolanaMirror, error) {
	feePayer, err := solana.PrivateKeyFromBase58(feePayerKeyBase58)
	if err != nil {
		return nil, fmt.Errorf("load fee payer key: %w", err)
	}
	return &SolanaMirror{
		RPCClient: rpc.New(rpcEndpoint),
		FeePayer:  feePayer,
		log:       log,
	}, nil
}

// MintIssuance mirrors newly minted supply: amount base units of the property
// mint into the custody wallet's associated token account.
func (s *SolanaMirror) MintIssuance(ctx context.Context, mintAddress string, amount uint64) error {
	mint, err := solana.PublicKeyFromBase58(mintAddress)
	if err != nil {
		return fmt.Errorf("parse mint address %q: %w", mintAddress, err)
	}
	custodyATA, _, err := solana.FindAssociatedTokenAddress(s.FeePayer.PublicKey(), mint)
	if err != nil {
		return fmt.Errorf("find custody ATA: %w", err)
	}

	inst := token.NewMintToInstruction(
		amount,
		mint,
		custodyATA,
		s.FeePayer.PublicKey(),
		nil,
	).Build()

	_, err = s.signAndSend(ctx, []solana.Instruction{inst})
	return err
}

// TokenBalance reads the on-chain balance of the owner's associated token
// account, for reconciliation against the in-process ledger.
func (s *SolanaMirror) TokenBalance(ctx context.Context, mint, owner solana.PublicKey) (uint64, error) {
	ata, _, err := solana.FindAssociatedTokenAddress(owner, mint)
	if err != nil {
		return 0, fmt.Errorf("find ATA: %w", err)
	}
	resp, err := s.RPCClient.GetTokenAccountBalance(ctx, ata, rpc.CommitmentFinalized)
	if err != nil {
		return 0, fmt.Errorf("get token account balance: %w", err)
	}
	bal, err := strconv.ParseUint(resp.Value.Amount, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("parse balance %q: %w", resp.Value.Amount, err)
	}
	return bal, nil
}

func (s *SolanaMirror) signAndSend(ctx context.Context, insts []solana.Instruction) (solana.Signature, error) {
	recent, err := s.RPCClient.GetLatestBlockhash(ctx, rpc.CommitmentFinalized)
	if err != nil {
		return solana.Signature{}, fmt.Errorf("get blockhash: %w", err)
	}

	tx, err := solana.NewTransaction(insts, recent.Value.Blockhash, solana.TransactionPayer(s.FeePayer.PublicKey()))
	if err != nil {
		return solana.Signature{}, fmt.Errorf("build transaction: %w", err)
	}

	_, err = tx.Sign(func(key solana.PublicKey) *solana.PrivateKey {
		if key.Equals(s.FeePayer.PublicKey()) {
			return &s.FeePayer
		}
		return nil
	})
	if err != nil {
		return solana.Signature{}, fmt.Errorf("sign transaction: %w", err)
	}

	sig, err := s.RPCClient.SendTransactionWithOpts(ctx, tx, rpc.TransactionOpts{
		SkipPreflight:       false,
		PreflightCommitment: rpc.CommitmentConfirmed,
	})
	if err != nil {
		return solana.Signature{}, fmt.Errorf("send transaction: %w", err)
	}
	s.log.Info("mirror transaction sent", zap.String("signature", sig.String()))
	return sig, nil
}
