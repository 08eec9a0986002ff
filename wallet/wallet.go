// Package wallet implements the client side of the federated mint protocol:
// building and broadcasting issuance requests, fetching and verifying blind
// signatures, and keeping pending issuances and owned coins crash-consistent
// in a local record store.
package wallet

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"net/http"
	"time"

	"github.com/btcsuite/btcd/btcutil/hdkeychain"
	"github.com/decred/dcrd/dcrec/secp256k1/v4"
	"golang.org/x/sync/errgroup"

	"github.com/fedi-tools/gomint/crypto"
	"github.com/fedi-tools/gomint/ecash"
	"github.com/fedi-tools/gomint/wallet/storage"
)

// DefaultRequestTimeout bounds each mint request unless configured.
const DefaultRequestTimeout = 10 * time.Second

// Wallet is the gateway to a mint federation. All networked methods take a
// context; all state lives in the record store, never in memory, so any
// number of operations can be interleaved with restarts.
type Wallet struct {
	cfg    Config
	store  coinStore
	client *http.Client
	logger *slog.Logger

	// coinPath is non-nil when coin keys are derived from the mnemonic.
	coinPath *hdkeychain.ExtendedKey

	// mint selection, swappable in tests
	perm func(n int) []int
	pick func(n int) int
}

// InitStorage opens the default record store engine at path.
func InitStorage(path string) (storage.DB, error) {
	return storage.InitBolt(path)
}

// LoadWallet opens the record store at path and connects a gateway to the
// configured federation.
func LoadWallet(config Config, path string) (*Wallet, error) {
	db, err := InitStorage(path)
	if err != nil {
		return nil, fmt.Errorf("InitStorage: %v", err)
	}
	return NewWallet(config, db)
}

// NewWallet builds a gateway on an already open record store.
func NewWallet(config Config, db storage.DB) (*Wallet, error) {
	if len(config.Mints) == 0 {
		return nil, errors.New("no mints configured")
	}
	if config.Quorum > len(config.Mints) {
		return nil, fmt.Errorf("quorum %d larger than federation of %d", config.Quorum, len(config.Mints))
	}

	timeout := config.RequestTimeout
	if timeout == 0 {
		timeout = DefaultRequestTimeout
	}

	wallet := &Wallet{
		cfg:    config,
		store:  coinStore{db: db},
		client: &http.Client{Timeout: timeout},
		logger: slog.Default(),
		perm:   rand.Perm,
		pick:   rand.IntN,
	}

	if config.Mnemonic != "" {
		master, err := crypto.MasterKey(config.Mnemonic)
		if err != nil {
			return nil, err
		}
		coinPath, err := crypto.DeriveCoinPath(master)
		if err != nil {
			return nil, err
		}
		wallet.coinPath = coinPath
	}

	return wallet, nil
}

// SetLogger replaces the wallet's logger, slog.Default unless set.
func (w *Wallet) SetLogger(logger *slog.Logger) {
	w.logger = logger
}

// Shutdown closes the wallet's record store.
func (w *Wallet) Shutdown() error {
	return w.store.db.Close()
}

// PegIn starts an issuance funded by proof: it draws coin keys for the
// amount, writes the pending record, and broadcasts the signing request to
// mints in random order until a quorum accepted it. The pending record hits
// the store before any mint sees the request, so a crash cannot lose track
// of an issuance a mint may already know. On ErrAllMintsFailed the record
// stays pending; a later fetch succeeds as soon as any mint saw the
// request, and rebroadcasting the same request is harmless.
func (w *Wallet) PegIn(ctx context.Context, proof ecash.PegInProof) (ecash.TransactionId, error) {
	request, signRequest, err := w.newIssuanceRequest(proof.Amount)
	if err != nil {
		return ecash.TransactionId{}, err
	}

	id := signRequest.TransactionId()
	w.logger.Debug("generated issuance request",
		"amount", proof.Amount, "coins", request.Coins.Count(), "tiers", request.Coins.Tiers())
	w.logger.Info("recorded pending issuance", "id", id, "amount", proof.Amount)

	pegIn := ecash.PegInRequest{BlindTokens: signRequest, Proof: proof}
	quorum := w.cfg.quorum()
	accepted := 0
	for _, i := range w.perm(len(w.cfg.Mints)) {
		mint := w.cfg.Mints[i]
		if err := putPegIn(ctx, w.client, mint, pegIn); err != nil {
			w.logger.Warn("mint rejected peg-in", "mint", mint, "error", err)
			continue
		}
		accepted++
		if accepted >= quorum {
			break
		}
	}
	if accepted == 0 {
		return ecash.TransactionId{}, ErrAllMintsFailed
	}

	w.logger.Info("peg-in accepted", "id", id, "mints", accepted)
	return id, nil
}

// newIssuanceRequest draws coin keys for amount and records the pending
// issuance. With a mnemonic, keys come from the derivation counter and the
// advanced counter commits in the same batch as the pending record.
func (w *Wallet) newIssuanceRequest(amount ecash.Amount) (*IssuanceRequest, ecash.SignRequest, error) {
	if w.coinPath == nil {
		request, signRequest, err := NewIssuanceRequest(amount, w.cfg.TierKeys)
		if err != nil {
			return nil, ecash.SignRequest{}, err
		}
		if err := w.store.recordPending(signRequest.TransactionId(), request); err != nil {
			return nil, ecash.SignRequest{}, err
		}
		return request, signRequest, nil
	}

	next, err := w.store.noteIndex()
	if err != nil {
		return nil, ecash.SignRequest{}, err
	}

	used := uint64(0)
	request, signRequest, err := newIssuanceRequest(amount, w.cfg.TierKeys,
		func(i int) (*secp256k1.PrivateKey, *secp256k1.PrivateKey, error) {
			counter := uint32(next) + uint32(i)
			spendKey, err := crypto.DeriveSpendKey(w.coinPath, counter)
			if err != nil {
				return nil, nil, err
			}
			blindingKey, err := crypto.DeriveBlindingKey(w.coinPath, counter)
			if err != nil {
				return nil, nil, err
			}
			used++
			return spendKey, blindingKey, nil
		})
	if err != nil {
		return nil, ecash.SignRequest{}, err
	}

	if err := w.store.recordPendingWithNoteIndex(signRequest.TransactionId(), request, next+used); err != nil {
		return nil, ecash.SignRequest{}, err
	}
	return request, signRequest, nil
}

// FetchAll redeems every pending issuance against one randomly chosen mint.
// Responses are fetched concurrently but redemption is all or nothing: the
// first issuance that fails to finalize aborts the fetch with nothing
// written. On success every new coin and every pending-record deletion
// commits in a single atomic batch, so a crash can never leave an issuance
// half redeemed. Returns the ids redeemed.
func (w *Wallet) FetchAll(ctx context.Context) ([]ecash.TransactionId, error) {
	pending, err := w.store.pendingIssuances()
	if err != nil {
		return nil, err
	}
	if len(pending) == 0 {
		return nil, nil
	}

	mint := w.cfg.Mints[w.pick(len(w.cfg.Mints))]
	w.logger.Debug("fetching pending issuances", "mint", mint, "count", len(pending))

	redeemed := make([]redeemedIssuance, len(pending))
	g, ctx := errgroup.WithContext(ctx)
	for i, p := range pending {
		g.Go(func() error {
			response, err := getIssuance(ctx, w.client, mint, p.Id)
			if err != nil {
				return fmt.Errorf("issuance %s: %w", p.Id, err)
			}
			coins, err := p.Request.Finalize(*response, w.cfg.TierKeys)
			if err != nil {
				return err
			}
			redeemed[i] = redeemedIssuance{Id: p.Id, Coins: coins}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	if err := w.store.redeemIssuances(redeemed); err != nil {
		return nil, err
	}

	ids := make([]ecash.TransactionId, len(redeemed))
	for i, issuance := range redeemed {
		ids[i] = issuance.Id
	}
	w.logger.Info("redeemed issuances", "count", len(ids))
	return ids, nil
}

// PendingIssuances lists the issuances recorded but not yet redeemed.
func (w *Wallet) PendingIssuances() ([]ecash.TransactionId, error) {
	pending, err := w.store.pendingIssuances()
	if err != nil {
		return nil, err
	}
	ids := make([]ecash.TransactionId, len(pending))
	for i, p := range pending {
		ids[i] = p.Id
	}
	return ids, nil
}

// Coins returns the owned coins grouped by tier, ascending.
func (w *Wallet) Coins() (ecash.Coins[SpendableCoin], error) {
	return w.store.spendableCoins()
}

// Balance returns the total amount of owned coins.
func (w *Wallet) Balance() (ecash.Amount, error) {
	coins, err := w.store.spendableCoins()
	if err != nil {
		return 0, err
	}
	return coins.TotalAmount(), nil
}

// SpendCoins removes coins from the wallet. The caller is handing them to
// another party; a coin spent here and still unspent at the mints is gone
// from this wallet's view either way.
func (w *Wallet) SpendCoins(coins ecash.Coins[SpendableCoin]) error {
	return w.store.removeCoins(coins)
}

// Send selects owned coins worth exactly amount, removes them and returns
// them serialized as a transferable token.
func (w *Wallet) Send(amount ecash.Amount, memo string) (string, error) {
	coins, err := w.store.spendableCoins()
	if err != nil {
		return "", err
	}
	selected, err := selectCoins(coins, amount)
	if err != nil {
		return "", err
	}

	serialized, err := NewToken(selected, memo).Serialize()
	if err != nil {
		return "", err
	}
	if err := w.store.removeCoins(selected); err != nil {
		return "", err
	}

	w.logger.Info("sent coins", "amount", amount)
	return serialized, nil
}

// Receive verifies every coin of a token against the federation keys and
// adds them to the wallet. Returns the amount received.
func (w *Wallet) Receive(serialized string) (ecash.Amount, error) {
	token, err := DecodeToken(serialized)
	if err != nil {
		return 0, err
	}

	for i, entry := range token.Coins.All() {
		tierKey, err := w.cfg.TierKeys.Tier(entry.Amount)
		if err != nil {
			return 0, err
		}
		if !entry.Item.Coin.Verify(tierKey) {
			return 0, InvalidSignatureError{Index: i}
		}
	}

	if err := w.store.addCoins(token.Coins); err != nil {
		return 0, err
	}

	amount := token.Coins.TotalAmount()
	w.logger.Info("received coins", "amount", amount)
	return amount, nil
}

// selectCoins picks owned coins summing to exactly amount, largest tiers
// first. With power-of-two tiers the greedy pick finds an exact subset
// whenever one exists.
func selectCoins(coins ecash.Coins[SpendableCoin], amount ecash.Amount) (ecash.Coins[SpendableCoin], error) {
	if coins.TotalAmount() < amount {
		return ecash.Coins[SpendableCoin]{}, ErrInsufficientBalance
	}

	var selected ecash.Coins[SpendableCoin]
	remaining := amount
	entries := coins.All()
	for i := len(entries) - 1; i >= 0; i-- {
		if entries[i].Amount <= remaining {
			selected.Add(entries[i].Amount, entries[i].Item)
			remaining -= entries[i].Amount
		}
	}
	if remaining != 0 {
		return ecash.Coins[SpendableCoin]{}, ErrCannotSelectAmount
	}
	return selected, nil
}
