package memory

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/sungminna/options-sandbox/internal/domain/apperr"
	"github.com/sungminna/options-sandbox/internal/domain/model"
	"github.com/sungminna/options-sandbox/internal/domain/repository"
)

func seedUser(t *testing.T, s *Store, balance int64) *model.User {
	t.Helper()
	u := model.NewUser(uuid.NewString()+"@example.com", "hash", model.RoleUser, decimal.NewFromInt(balance))
	require.NoError(t, s.Users().Create(context.Background(), u))
	return u
}

func TestUserRepository(t *testing.T) {
	ctx := context.Background()
	s := NewStore()
	u := seedUser(t, s, 100)

	got, err := s.Users().GetByEmail(ctx, u.Email)
	require.NoError(t, err)
	assert.Equal(t, u.ID, got.ID)

	_, err = s.Users().GetByID(ctx, uuid.New())
	assert.ErrorIs(t, err, apperr.ErrNotFound)

	dup := model.NewUser(u.Email, "x", model.RoleUser, decimal.Zero)
	assert.ErrorIs(t, s.Users().Create(ctx, dup), apperr.ErrConflict)
}

func TestInstrumentRepository_ShiftPriceClamps(t *testing.T) {
	ctx := context.Background()
	s := NewStore()
	require.NoError(t, s.Instruments().Ensure(ctx, model.NewInstrument("BTC/USD", "Bitcoin", 1010)))

	in, err := s.Instruments().ShiftPrice(ctx, "BTC/USD", -60, 1000, 10_000_000)
	require.NoError(t, err)
	assert.Equal(t, 1000.0, in.LastPrice)

	in, err = s.Instruments().ShiftPrice(ctx, "BTC/USD", 25, 1000, 10_000_000)
	require.NoError(t, err)
	assert.Equal(t, 1025.0, in.LastPrice)

	_, err = s.Instruments().ShiftPrice(ctx, "XRP/USD", 1, 0, 1)
	assert.ErrorIs(t, err, apperr.ErrNotFound)
}

func TestInstrumentRepository_EnsureKeepsIDAndPrice(t *testing.T) {
	ctx := context.Background()
	s := NewStore()
	first := model.NewInstrument("ETH/USD", "Ethereum", 2200)
	require.NoError(t, s.Instruments().Ensure(ctx, first))

	_, err := s.Instruments().ShiftPrice(ctx, "ETH/USD", 150, 1000, 10_000_000)
	require.NoError(t, err)

	second := model.NewInstrument("ETH/USD", "Ether", 2300)
	require.NoError(t, s.Instruments().Ensure(ctx, second))
	assert.Equal(t, first.ID, second.ID)
	assert.Equal(t, 2350.0, second.LastPrice)

	list, err := s.Instruments().List(ctx)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, "Ether", list[0].Name)
	assert.Equal(t, 2350.0, list[0].LastPrice)
}

func TestWithinTx_RollbackDiscardsWrites(t *testing.T) {
	ctx := context.Background()
	s := NewStore()
	u := seedUser(t, s, 500)
	boom := errors.New("boom")

	err := s.WithinTx(ctx, func(ctx context.Context, tx repository.LedgerTx) error {
		if _, err := tx.AddBalance(ctx, u.ID, decimal.NewFromInt(-100)); err != nil {
			return err
		}
		wtx := model.NewWalletTransaction(u.ID, model.WalletTxWithdraw, decimal.NewFromInt(100), "Withdraw", model.PaymentDetails{Method: model.PaymentMethodBank})
		if err := tx.CreateWalletTransaction(ctx, wtx); err != nil {
			return err
		}
		return boom
	})
	assert.ErrorIs(t, err, boom)

	got, err := s.Users().GetByID(ctx, u.ID)
	require.NoError(t, err)
	assert.True(t, got.Balance.Equal(decimal.NewFromInt(500)))

	txs, err := s.Wallet().ListByUser(ctx, u.ID, 10)
	require.NoError(t, err)
	assert.Empty(t, txs)
}

func TestWithinTx_LockUserSeesStagedBalance(t *testing.T) {
	ctx := context.Background()
	s := NewStore()
	u := seedUser(t, s, 500)

	err := s.WithinTx(ctx, func(ctx context.Context, tx repository.LedgerTx) error {
		balance, err := tx.AddBalance(ctx, u.ID, decimal.NewFromInt(-100))
		require.NoError(t, err)
		assert.True(t, balance.Equal(decimal.NewFromInt(400)))

		locked, err := tx.LockUser(ctx, u.ID)
		require.NoError(t, err)
		assert.True(t, locked.Balance.Equal(decimal.NewFromInt(400)))

		// not visible outside the unit yet
		outside, err := s.Users().GetByID(ctx, u.ID)
		require.NoError(t, err)
		assert.True(t, outside.Balance.Equal(decimal.NewFromInt(500)))
		return nil
	})
	require.NoError(t, err)

	got, err := s.Users().GetByID(ctx, u.ID)
	require.NoError(t, err)
	assert.True(t, got.Balance.Equal(decimal.NewFromInt(400)))
}

func TestSettleTrade_OnlyOnce(t *testing.T) {
	ctx := context.Background()
	s := NewStore()
	u := seedUser(t, s, 500)
	btc := model.NewInstrument("BTC/USD", "Bitcoin", 42000)
	trade := model.NewTrade(u.ID, btc, model.DirectionUp, decimal.NewFromInt(100), time.Minute)

	require.NoError(t, s.WithinTx(ctx, func(ctx context.Context, tx repository.LedgerTx) error {
		return tx.CreateTrade(ctx, trade)
	}))

	settle := func() error {
		return s.WithinTx(ctx, func(ctx context.Context, tx repository.LedgerTx) error {
			return tx.SettleTrade(ctx, trade.ID, 42100, decimal.NewFromInt(80), time.Now())
		})
	}
	require.NoError(t, settle())
	assert.ErrorIs(t, settle(), repository.ErrTradeNotOpen)

	trades, err := s.Trades().ListByUser(ctx, u.ID, 50)
	require.NoError(t, err)
	require.Len(t, trades, 1)
	assert.Equal(t, model.TradeStatusSettled, trades[0].Status)
	require.NotNil(t, trades[0].EndPrice)
	assert.Equal(t, 42100.0, *trades[0].EndPrice)
	require.NotNil(t, trades[0].PnL)
	assert.True(t, trades[0].PnL.Equal(decimal.NewFromInt(80)))
}

func TestTradeRepository_ListExpiredOpen(t *testing.T) {
	ctx := context.Background()
	s := NewStore()
	alice := seedUser(t, s, 0)
	bob := seedUser(t, s, 0)
	btc := model.NewInstrument("BTC/USD", "Bitcoin", 42000)

	expired := model.NewTrade(alice.ID, btc, model.DirectionUp, decimal.NewFromInt(10), time.Minute)
	expired.EndAt = time.Now().Add(-time.Second)
	running := model.NewTrade(alice.ID, btc, model.DirectionUp, decimal.NewFromInt(10), time.Minute)
	other := model.NewTrade(bob.ID, btc, model.DirectionDown, decimal.NewFromInt(10), time.Minute)
	other.EndAt = time.Now().Add(-time.Second)

	require.NoError(t, s.WithinTx(ctx, func(ctx context.Context, tx repository.LedgerTx) error {
		for _, tr := range []*model.Trade{expired, running, other} {
			if err := tx.CreateTrade(ctx, tr); err != nil {
				return err
			}
		}
		return nil
	}))

	mine, err := s.Trades().ListExpiredOpen(ctx, alice.ID, time.Now())
	require.NoError(t, err)
	require.Len(t, mine, 1)
	assert.Equal(t, expired.ID, mine[0].ID)

	all, err := s.Trades().ListExpiredOpen(ctx, uuid.Nil, time.Now())
	require.NoError(t, err)
	assert.Len(t, all, 2)
}

func TestWalletRepository_NewestFirstWithLimit(t *testing.T) {
	ctx := context.Background()
	s := NewStore()
	u := seedUser(t, s, 0)

	for i := 1; i <= 3; i++ {
		wtx := model.NewWalletTransaction(u.ID, model.WalletTxDeposit, decimal.NewFromInt(int64(i)), "Top up", model.PaymentDetails{Method: model.PaymentMethodBank})
		require.NoError(t, s.WithinTx(ctx, func(ctx context.Context, tx repository.LedgerTx) error {
			return tx.CreateWalletTransaction(ctx, wtx)
		}))
	}

	txs, err := s.Wallet().ListRecent(ctx, 2)
	require.NoError(t, err)
	require.Len(t, txs, 2)
	assert.True(t, txs[0].Amount.Equal(decimal.NewFromInt(3)))
	assert.True(t, txs[1].Amount.Equal(decimal.NewFromInt(2)))
}
