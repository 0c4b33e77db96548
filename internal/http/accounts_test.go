package http

import (
	"bytes"
	"context"
	"errors"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"corebank-go/internal/models"
	"corebank-go/internal/store"
)

// stubStore backs handler tests with a single account and an append-only
// transaction slice.
type stubStore struct {
	account *models.Account
	txns    []models.Transaction
}

func (s *stubStore) Accounts() store.AccountStore       { return (*stubAccounts)(s) }
func (s *stubStore) Transactions() store.TransactionLog { return (*stubTxns)(s) }
func (s *stubStore) Loans() store.LoanStore             { return nil }
func (s *stubStore) Users() store.UserStore             { return nil }

func (s *stubStore) InTx(ctx context.Context, fn func(store.Store) error) error {
	return fn(s)
}

type stubAccounts stubStore

func (a *stubAccounts) Create(ctx context.Context, account *models.Account) error { return nil }

func (a *stubAccounts) FindSettlementAccount(ctx context.Context, userID uint) (*models.Account, error) {
	return a.account, nil
}

func (a *stubAccounts) FindByNumber(ctx context.Context, number string) (*models.Account, error) {
	if a.account == nil || a.account.Number != number {
		return nil, models.ErrNotFound
	}
	cp := *a.account
	return &cp, nil
}

func (a *stubAccounts) FindByNumberForUpdate(ctx context.Context, number string) (*models.Account, error) {
	return a.FindByNumber(ctx, number)
}

func (a *stubAccounts) FindAllByUser(ctx context.Context, userID uint) ([]models.Account, error) {
	return []models.Account{*a.account}, nil
}

func (a *stubAccounts) Credit(ctx context.Context, accountID uint, amount float64) (float64, error) {
	a.account.Balance += amount
	return a.account.Balance, nil
}

func (a *stubAccounts) DebitIfSufficient(ctx context.Context, accountID uint, amount float64) (float64, error) {
	if a.account.Balance < amount {
		return 0, models.ErrInsufficientBalance
	}
	a.account.Balance -= amount
	return a.account.Balance, nil
}

type stubTxns stubStore

func (t *stubTxns) Append(ctx context.Context, userID uint, direction string, amount float64, category, description string, balanceAfter float64) (*models.Transaction, error) {
	txn := models.Transaction{
		UserID:       userID,
		Direction:    direction,
		Amount:       amount,
		Category:     category,
		Description:  description,
		BalanceAfter: balanceAfter,
	}
	t.txns = append(t.txns, txn)
	return &txn, nil
}

func (t *stubTxns) ListByUser(ctx context.Context, userID uint, direction, category string) ([]models.Transaction, error) {
	return t.txns, nil
}

// downCache errors on every operation, like an unreachable redis.
type downCache struct{}

func (downCache) Get(ctx context.Context, key string) ([]byte, bool, error) {
	return nil, false, errors.New("cache down")
}

func (downCache) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	return errors.New("cache down")
}

func (downCache) Delete(ctx context.Context, keys ...string) error {
	return errors.New("cache down")
}

func newAccountContext(t *testing.T) (*gin.Context, *httptest.ResponseRecorder) {
	t.Helper()
	gin.SetMode(gin.TestMode)
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Set("userID", uint(1))
	return c, w
}

func TestDepositSucceedsWhenCacheIsDown(t *testing.T) {
	st := &stubStore{account: &models.Account{ID: 1, UserID: 1, Number: "AC1", Type: models.AccountTypeSavings, Balance: 50}}
	s := &Server{store: st, cache: downCache{}}

	c, w := newAccountContext(t)
	c.Request = httptest.NewRequest("POST", "/v1/accounts/AC1/deposit", bytes.NewBufferString(`{"amount":100}`))
	c.Request.Header.Set("Content-Type", "application/json")
	c.Params = gin.Params{{Key: "number", Value: "AC1"}}

	s.deposit(c)

	require.Equal(t, 200, w.Code)
	assert.Equal(t, 150.0, st.account.Balance)
	require.Len(t, st.txns, 1)
	assert.Equal(t, models.CategoryDeposit, st.txns[0].Category)
}

func TestListTransactionsSucceedsWhenCacheIsDown(t *testing.T) {
	st := &stubStore{
		account: &models.Account{ID: 1, UserID: 1, Number: "AC1", Type: models.AccountTypeSavings},
		txns:    []models.Transaction{{UserID: 1, Direction: models.DirectionCredit, Amount: 10}},
	}
	s := &Server{store: st, cache: downCache{}}

	c, w := newAccountContext(t)
	c.Request = httptest.NewRequest("GET", "/v1/transactions", nil)

	s.listTransactions(c)

	require.Equal(t, 200, w.Code)
	assert.Contains(t, w.Body.String(), `"amount":10`)
}
