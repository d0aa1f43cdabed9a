package blockchain_listener

import (
	"context"
	"time"

	"github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/rpc"
	"github.com/gagliardetto/solana-go/rpc/ws"
	"go.uber.org/zap"

	"github.com/propshare/propshare/ledger"
	"github.com/propshare/propshare/registry"
	"github.com/propshare/propshare/services"
)

// Listener is the background reconciliation loop. It periodically audits the
// ownership aggregator against the authoritative ledgers and repairs stale
// rows (write-through failures leave gaps the engines deliberately do not
// retry). When the on-chain mirror is enabled it additionally watches the fee
// payer's transactions and compares mirrored custody balances against the
// in-process ledgers, logging any divergence for the operators.
type Listener struct {
	tokens     *ledger.Set
	staking    *services.StakingService
	ownership  *registry.Ownership
	properties *services.PropertyService
	mirror     *ledger.SolanaMirror // nil when the mirror is disabled
	wsEndpoint string
	interval   time.Duration
	log        *zap.Logger
}

// New wires the listener. mirror and wsEndpoint may be zero when the platform
// runs off-chain only.
func New(tokens *ledger.Set, staking *services.StakingService, ownership *registry.Ownership,
	properties *services.PropertyService, mirror *ledger.SolanaMirror, wsEndpoint string,
	interval time.Duration, log *zap.Logger) *Listener {
	if interval <= 0 {
		interval = time.Minute
	}
	return &Listener{
		tokens:     tokens,
		staking:    staking,
		ownership:  ownership,
		properties: properties,
		mirror:     mirror,
		wsEndpoint: wsEndpoint,
		interval:   interval,
		log:        log,
	}
}

// Run blocks until ctx is cancelled. Meant to be launched as a goroutine
// from main.
func (l *Listener) Run(ctx context.Context) {
	l.log.Info("reconciliation listener started", zap.Duration("interval", l.interval))

	if l.mirror != nil && l.wsEndpoint != "" {
		go l.watchChain(ctx)
	}

	ticker := time.NewTicker(l.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			l.log.Info("reconciliation listener stopped")
			return
		case <-ticker.C:
			l.auditOwnership()
			if l.mirror != nil {
				l.auditMirror(ctx)
			}
		}
	}
}

// auditOwnership recomputes each aggregator row from the ledgers (liquid plus
// staked) and pushes a corrected notification where they disagree.
func (l *Listener) auditOwnership() {
	repaired := 0
	for _, row := range l.ownership.Rows() {
		tok, ok := l.tokens.Get(row.PropertyID)
		if !ok {
			continue
		}
		expected := tok.BalanceOf(row.User) + l.staking.StakedOf(row.PropertyID, row.User)
		if expected != row.Balance {
			l.ownership.NotifyBalanceChanged(row.User, row.PropertyID, expected)
			repaired++
		}
	}
	if repaired > 0 {
		l.log.Warn("ownership audit repaired stale rows", zap.Int("rows", repaired))
	}
}

// auditMirror compares each mirrored property's on-chain supply (held at the
// custody wallet) with the in-process ledger's total supply. Divergence is
// logged, never auto-corrected: the ledger is authoritative, chain lag is
// expected, and staking reward issuance is book-entry only.
func (l *Listener) auditMirror(ctx context.Context) {
	for _, prop := range l.properties.ListProperties() {
		if prop.MintAddress == "" {
			continue
		}
		mint, err := solana.PublicKeyFromBase58(prop.MintAddress)
		if err != nil {
			l.log.Error("invalid mint address on record",
				zap.String("property_id", prop.ID),
				zap.String("mint", prop.MintAddress),
				zap.Error(err))
			continue
		}

		tok, ok := l.tokens.Get(prop.ID)
		if !ok {
			continue
		}

		onChain, err := l.mirror.TokenBalance(ctx, mint, l.mirror.FeePayer.PublicKey())
		if err != nil {
			l.log.Warn("mirror balance read failed",
				zap.String("property_id", prop.ID),
				zap.Error(err))
			continue
		}

		supply := tok.TotalSupply()
		if onChain != uint64(supply) {
			l.log.Warn("mirror supply divergence",
				zap.String("property_id", prop.ID),
				zap.Int64("ledger", supply),
				zap.Uint64("on_chain", onChain))
		}
	}
}

// watchChain follows the fee payer's transaction logs over the websocket and
// records confirmations. Reconnects with a backoff on any stream error.
func (l *Listener) watchChain(ctx context.Context) {
	for {
		if err := l.streamLogs(ctx); err != nil {
			if ctx.Err() != nil {
				return
			}
			l.log.Warn("chain log stream ended, reconnecting", zap.Error(err))
		}
		select {
		case <-ctx.Done():
			return
		case <-time.After(5 * time.Second):
		}
	}
}

func (l *Listener) streamLogs(ctx context.Context) error {
	client, err := ws.Connect(ctx, l.wsEndpoint)
	if err != nil {
		return err
	}
	defer client.Close()

	sub, err := client.LogsSubscribeMentions(l.mirror.FeePayer.PublicKey(), rpc.CommitmentFinalized)
	if err != nil {
		return err
	}
	defer sub.Unsubscribe()

	l.log.Info("chain log stream connected", zap.String("endpoint", l.wsEndpoint))
	for {
		got, err := sub.Recv(ctx)
		if err != nil {
			return err
		}
		if got.Value.Err != nil {
			l.log.Error("mirror transaction failed on chain",
				zap.String("signature", got.Value.Signature.String()),
				zap.Any("err", got.Value.Err))
			continue
		}
		l.log.Debug("mirror transaction finalized",
			zap.String("signature", got.Value.Signature.String()))
	}
}
