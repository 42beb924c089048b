// Package memory keeps every repository in process memory. It backs tests
// and the zero-dependency `store.driver: memory` mode.
package memory

import (
	"sync"

	"github.com/google/uuid"
	"github.com/sungminna/options-sandbox/internal/domain/model"
	"github.com/sungminna/options-sandbox/internal/domain/repository"
)

// Store owns the in-memory tables. Ledger units are serialized by txMu and
// their writes become visible only on commit.
type Store struct {
	mu          sync.RWMutex
	txMu        sync.Mutex
	users       map[uuid.UUID]*model.User
	instruments map[uuid.UUID]*model.Instrument
	trades      map[uuid.UUID]*model.Trade
	walletTxs   []*model.WalletTransaction
}

// NewStore creates an empty store
func NewStore() *Store {
	return &Store{
		users:       make(map[uuid.UUID]*model.User),
		instruments: make(map[uuid.UUID]*model.Instrument),
		trades:      make(map[uuid.UUID]*model.Trade),
	}
}

var (
	_ repository.UserRepository       = (*UserRepository)(nil)
	_ repository.InstrumentRepository = (*InstrumentRepository)(nil)
	_ repository.TradeRepository      = (*TradeRepository)(nil)
	_ repository.WalletRepository     = (*WalletRepository)(nil)
	_ repository.LedgerStore          = (*Store)(nil)
)

// Users returns the user table view
func (s *Store) Users() *UserRepository { return &UserRepository{s} }

// Instruments returns the instrument table view
func (s *Store) Instruments() *InstrumentRepository { return &InstrumentRepository{s} }

// Trades returns the trade table view
func (s *Store) Trades() *TradeRepository { return &TradeRepository{s} }

// Wallet returns the wallet transaction table view
func (s *Store) Wallet() *WalletRepository { return &WalletRepository{s} }
