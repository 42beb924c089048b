package admin

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/sungminna/options-sandbox/internal/domain/model"
	"github.com/sungminna/options-sandbox/internal/domain/repository"
)

const (
	userTxLimit   = 20
	ledgerTxLimit = 50
	ledgerTrades  = 50
)

// Service serves the operator's read-only account views
type Service struct {
	users  repository.UserRepository
	trades repository.TradeRepository
	wallet repository.WalletRepository
}

// NewService creates a new admin service
func NewService(users repository.UserRepository, trades repository.TradeRepository, wallet repository.WalletRepository) *Service {
	return &Service{users: users, trades: trades, wallet: wallet}
}

// UserSummary is an account with its most recent wallet activity
type UserSummary struct {
	ID        uuid.UUID                  `json:"id"`
	Email     string                     `json:"email"`
	Balance   decimal.Decimal            `json:"balance"`
	Role      model.Role                 `json:"role"`
	CreatedAt time.Time                  `json:"createdAt"`
	WalletTxs []*model.WalletTransaction `json:"walletTxs,omitempty"`
}

// ListUsers returns every user, newest first, with their latest wallet transactions
func (s *Service) ListUsers(ctx context.Context) ([]*UserSummary, error) {
	users, err := s.users.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list users: %w", err)
	}

	out := make([]*UserSummary, 0, len(users))
	for _, u := range users {
		txs, err := s.wallet.ListByUser(ctx, u.ID, userTxLimit)
		if err != nil {
			return nil, fmt.Errorf("failed to list wallet transactions: %w", err)
		}
		summary := summarize(u)
		summary.WalletTxs = txs
		out = append(out, summary)
	}
	return out, nil
}

// LedgerEntry is a wallet transaction tagged with its owner's email
type LedgerEntry struct {
	*model.WalletTransaction
	Email string `json:"email"`
}

// TradeEntry is a trade tagged with its owner's email
type TradeEntry struct {
	*model.Trade
	Email string `json:"email"`
}

// Ledger is the platform-wide activity view
type Ledger struct {
	Users     []*UserSummary `json:"users"`
	WalletTxs []*LedgerEntry `json:"walletTxs"`
	Trades    []*TradeEntry  `json:"trades"`
}

// GetLedger returns all users plus the latest wallet transactions and trades
func (s *Service) GetLedger(ctx context.Context) (*Ledger, error) {
	users, err := s.users.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list users: %w", err)
	}
	txs, err := s.wallet.ListRecent(ctx, ledgerTxLimit)
	if err != nil {
		return nil, fmt.Errorf("failed to list wallet transactions: %w", err)
	}
	trades, err := s.trades.ListRecent(ctx, ledgerTrades)
	if err != nil {
		return nil, fmt.Errorf("failed to list trades: %w", err)
	}

	emails := make(map[uuid.UUID]string, len(users))
	ledger := &Ledger{
		Users:     make([]*UserSummary, 0, len(users)),
		WalletTxs: make([]*LedgerEntry, 0, len(txs)),
		Trades:    make([]*TradeEntry, 0, len(trades)),
	}
	for _, u := range users {
		emails[u.ID] = u.Email
		ledger.Users = append(ledger.Users, summarize(u))
	}
	for _, tx := range txs {
		ledger.WalletTxs = append(ledger.WalletTxs, &LedgerEntry{WalletTransaction: tx, Email: emails[tx.UserID]})
	}
	for _, t := range trades {
		ledger.Trades = append(ledger.Trades, &TradeEntry{Trade: t, Email: emails[t.UserID]})
	}
	return ledger, nil
}

func summarize(u *model.User) *UserSummary {
	return &UserSummary{
		ID:        u.ID,
		Email:     u.Email,
		Balance:   u.Balance,
		Role:      u.Role,
		CreatedAt: u.CreatedAt,
	}
}
