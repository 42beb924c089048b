package wallet

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"unicode"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/sungminna/options-sandbox/internal/domain/apperr"
	"github.com/sungminna/options-sandbox/internal/domain/model"
	"github.com/sungminna/options-sandbox/internal/domain/repository"
)

// RecordFunc writes the record that accompanies a balance change. It runs
// inside the same transaction as the balance update.
type RecordFunc func(ctx context.Context, tx repository.LedgerTx) error

// Ledger applies balance mutations together with their records
type Ledger struct {
	store  repository.LedgerStore
	logger *slog.Logger
}

// NewLedger creates a new wallet ledger
func NewLedger(store repository.LedgerStore, logger *slog.Logger) *Ledger {
	return &Ledger{
		store:  store,
		logger: logger.With("component", "wallet_ledger"),
	}
}

// Debit removes amount from the user's balance and writes record in the
// same atomic unit. Fails with InsufficientFunds when the balance is short.
func (l *Ledger) Debit(ctx context.Context, userID uuid.UUID, amount decimal.Decimal, record RecordFunc) (decimal.Decimal, error) {
	if !amount.IsPositive() {
		return decimal.Zero, apperr.InvalidInput("amount must be positive")
	}

	var balance decimal.Decimal
	err := l.store.WithinTx(ctx, func(ctx context.Context, tx repository.LedgerTx) error {
		user, err := tx.LockUser(ctx, userID)
		if err != nil {
			return err
		}
		if user.Balance.LessThan(amount) {
			return apperr.InsufficientFunds("insufficient balance")
		}

		if record != nil {
			if err := record(ctx, tx); err != nil {
				return err
			}
		}

		balance, err = tx.AddBalance(ctx, userID, amount.Neg())
		return err
	})
	if err != nil {
		return decimal.Zero, err
	}

	return balance, nil
}

// Credit adds amount to the user's balance and writes record in the same
// atomic unit. A zero amount only writes the record.
func (l *Ledger) Credit(ctx context.Context, userID uuid.UUID, amount decimal.Decimal, record RecordFunc) (decimal.Decimal, error) {
	if amount.IsNegative() {
		return decimal.Zero, apperr.InvalidInput("amount must not be negative")
	}

	var balance decimal.Decimal
	err := l.store.WithinTx(ctx, func(ctx context.Context, tx repository.LedgerTx) error {
		user, err := tx.LockUser(ctx, userID)
		if err != nil {
			return err
		}

		if record != nil {
			if err := record(ctx, tx); err != nil {
				return err
			}
		}

		if amount.IsZero() {
			balance = user.Balance
			return nil
		}

		balance, err = tx.AddBalance(ctx, userID, amount)
		return err
	})
	if err != nil {
		return decimal.Zero, err
	}

	return balance, nil
}

// FundsRequest is the body of a top-up or withdrawal
type FundsRequest struct {
	Method        model.PaymentMethod `json:"method" binding:"omitempty,oneof=BANK CARD"`
	Amount        decimal.Decimal     `json:"amount"`
	BankName      string              `json:"bankName"`
	AccountName   string              `json:"accountName"`
	AccountNumber string              `json:"accountNumber"`
	CardNumber    string              `json:"cardNumber"`
}

// BalanceResponse reports the balance after a wallet movement
type BalanceResponse struct {
	Balance     decimal.Decimal          `json:"balance"`
	Transaction *model.WalletTransaction `json:"transaction"`
}

// Deposit credits the wallet and appends a DEPOSIT record
func (l *Ledger) Deposit(ctx context.Context, userID uuid.UUID, req *FundsRequest) (*BalanceResponse, error) {
	details, err := paymentDetails(req)
	if err != nil {
		return nil, err
	}

	wtx := model.NewWalletTransaction(userID, model.WalletTxDeposit, req.Amount, "Top up", details)
	balance, err := l.Credit(ctx, userID, req.Amount, func(ctx context.Context, tx repository.LedgerTx) error {
		return tx.CreateWalletTransaction(ctx, wtx)
	})
	if err != nil {
		return nil, err
	}

	l.logger.Info("wallet deposit", "user_id", userID, "amount", req.Amount.String(), "method", details.Method)
	return &BalanceResponse{Balance: balance, Transaction: wtx}, nil
}

// Withdraw debits the wallet and appends a WITHDRAW record. Nothing is
// written when the balance is short.
func (l *Ledger) Withdraw(ctx context.Context, userID uuid.UUID, req *FundsRequest) (*BalanceResponse, error) {
	details, err := paymentDetails(req)
	if err != nil {
		return nil, err
	}

	wtx := model.NewWalletTransaction(userID, model.WalletTxWithdraw, req.Amount, "Withdraw", details)
	balance, err := l.Debit(ctx, userID, req.Amount, func(ctx context.Context, tx repository.LedgerTx) error {
		return tx.CreateWalletTransaction(ctx, wtx)
	})
	if err != nil {
		if errors.Is(err, apperr.ErrInsufficientFunds) {
			l.logger.Info("withdrawal rejected", "user_id", userID, "amount", req.Amount.String())
		}
		return nil, err
	}

	l.logger.Info("wallet withdrawal", "user_id", userID, "amount", req.Amount.String(), "method", details.Method)
	return &BalanceResponse{Balance: balance, Transaction: wtx}, nil
}

func paymentDetails(req *FundsRequest) (model.PaymentDetails, error) {
	if !req.Amount.IsPositive() {
		return model.PaymentDetails{}, apperr.InvalidInput("invalid amount")
	}

	method := req.Method
	if method == "" {
		method = model.PaymentMethodBank
	}

	switch method {
	case model.PaymentMethodBank:
		return model.PaymentDetails{
			Method:        method,
			BankName:      &req.BankName,
			AccountName:   &req.AccountName,
			AccountNumber: &req.AccountNumber,
		}, nil
	case model.PaymentMethodCard:
		details := model.PaymentDetails{Method: method}
		if last4 := CardLast4(req.CardNumber); last4 != "" {
			details.CardLast4 = &last4
		}
		return details, nil
	default:
		return model.PaymentDetails{}, apperr.InvalidInput("invalid method")
	}
}

// CardLast4 returns the last four characters of a card number after
// stripping whitespace
func CardLast4(cardNumber string) string {
	compact := strings.Map(func(r rune) rune {
		if unicode.IsSpace(r) {
			return -1
		}
		return r
	}, cardNumber)

	if len(compact) <= 4 {
		return compact
	}
	return compact[len(compact)-4:]
}
