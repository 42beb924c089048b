package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// WalletTxType represents the direction of a wallet movement
type WalletTxType string

const (
	WalletTxDeposit  WalletTxType = "DEPOSIT"
	WalletTxWithdraw WalletTxType = "WITHDRAW"
)

// WalletTxStatus represents the processing state of a wallet movement
type WalletTxStatus string

const (
	WalletTxStatusSuccess WalletTxStatus = "SUCCESS"
)

// PaymentMethod is the funding rail of a wallet movement
type PaymentMethod string

const (
	PaymentMethodBank PaymentMethod = "BANK"
	PaymentMethodCard PaymentMethod = "CARD"
)

// PaymentDetails carries method-specific metadata. Only the last four card
// digits are ever kept.
type PaymentDetails struct {
	Method        PaymentMethod `json:"method" db:"method"`
	BankName      *string       `json:"bankName,omitempty" db:"bank_name"`
	AccountName   *string       `json:"accountName,omitempty" db:"account_name"`
	AccountNumber *string       `json:"accountNumber,omitempty" db:"account_number"`
	CardLast4     *string       `json:"cardLast4,omitempty" db:"card_last4"`
}

// WalletTransaction is an append-only ledger record
type WalletTransaction struct {
	ID        uuid.UUID       `json:"id" db:"id"`
	UserID    uuid.UUID       `json:"userId" db:"user_id"`
	Type      WalletTxType    `json:"type" db:"type"`
	Amount    decimal.Decimal `json:"amount" db:"amount"`
	Status    WalletTxStatus  `json:"status" db:"status"`
	Note      string          `json:"note" db:"note"`
	PaymentDetails
	CreatedAt time.Time `json:"createdAt" db:"created_at"`
}

// NewWalletTransaction creates a successful ledger record
func NewWalletTransaction(userID uuid.UUID, txType WalletTxType, amount decimal.Decimal, note string, details PaymentDetails) *WalletTransaction {
	return &WalletTransaction{
		ID:             uuid.New(),
		UserID:         userID,
		Type:           txType,
		Amount:         amount,
		Status:         WalletTxStatusSuccess,
		Note:           note,
		PaymentDetails: details,
		CreatedAt:      time.Now(),
	}
}
