package transfer

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"corebank-go/internal/cache"
	"corebank-go/internal/models"
	"corebank-go/internal/notify"
	"corebank-go/internal/store"
)

// memStore is an in-memory Store. InTx serializes callers with a mutex, the
// stand-in for the database transaction scope, so concurrent transfers
// exercise the same one-at-a-time balance guard the SQL store enforces.
// When fn errors the pre-tx state is restored, the stand-in for a rollback.
type memStore struct {
	mu         sync.Mutex
	accounts   map[uint]*models.Account
	users      map[uint]*models.User
	txns       []models.Transaction
	nextID     uint
	failAppend bool
}

func newMemStore() *memStore {
	return &memStore{
		accounts: make(map[uint]*models.Account),
		users:    make(map[uint]*models.User),
		nextID:   1,
	}
}

func (m *memStore) Accounts() store.AccountStore       { return (*memAccounts)(m) }
func (m *memStore) Transactions() store.TransactionLog { return (*memTxns)(m) }
func (m *memStore) Loans() store.LoanStore             { return nil }
func (m *memStore) Users() store.UserStore             { return (*memUsers)(m) }

func (m *memStore) InTx(ctx context.Context, fn func(store.Store) error) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	snap := m.snapshot()
	if err := fn(m); err != nil {
		m.restore(snap)
		return err
	}
	return nil
}

type memSnapshot struct {
	accounts map[uint]*models.Account
	txns     []models.Transaction
	nextID   uint
}

func (m *memStore) snapshot() memSnapshot {
	s := memSnapshot{
		accounts: make(map[uint]*models.Account, len(m.accounts)),
		txns:     append([]models.Transaction(nil), m.txns...),
		nextID:   m.nextID,
	}
	for id, acc := range m.accounts {
		cp := *acc
		s.accounts[id] = &cp
	}
	return s
}

func (m *memStore) restore(s memSnapshot) {
	m.accounts = s.accounts
	m.txns = s.txns
	m.nextID = s.nextID
}

func (m *memStore) allocID() uint {
	id := m.nextID
	m.nextID++
	return id
}

type memAccounts memStore

func (a *memAccounts) Create(ctx context.Context, account *models.Account) error {
	account.ID = (*memStore)(a).allocID()
	a.accounts[account.ID] = account
	return nil
}

func (a *memAccounts) FindSettlementAccount(ctx context.Context, userID uint) (*models.Account, error) {
	for _, acc := range a.accounts {
		if acc.UserID == userID && acc.Type == models.AccountTypeSavings {
			cp := *acc
			return &cp, nil
		}
	}
	return nil, models.ErrAccountNotFound
}

func (a *memAccounts) FindByNumber(ctx context.Context, number string) (*models.Account, error) {
	for _, acc := range a.accounts {
		if acc.Number == number {
			cp := *acc
			return &cp, nil
		}
	}
	return nil, models.ErrNotFound
}

func (a *memAccounts) FindByNumberForUpdate(ctx context.Context, number string) (*models.Account, error) {
	return a.FindByNumber(ctx, number)
}

func (a *memAccounts) FindAllByUser(ctx context.Context, userID uint) ([]models.Account, error) {
	var out []models.Account
	for _, acc := range a.accounts {
		if acc.UserID == userID {
			out = append(out, *acc)
		}
	}
	return out, nil
}

func (a *memAccounts) Credit(ctx context.Context, accountID uint, amount float64) (float64, error) {
	acc, ok := a.accounts[accountID]
	if !ok {
		return 0, models.ErrAccountNotFound
	}
	acc.Balance += amount
	return acc.Balance, nil
}

func (a *memAccounts) DebitIfSufficient(ctx context.Context, accountID uint, amount float64) (float64, error) {
	acc, ok := a.accounts[accountID]
	if !ok {
		return 0, models.ErrAccountNotFound
	}
	if acc.Balance < amount {
		return 0, models.ErrInsufficientBalance
	}
	acc.Balance -= amount
	return acc.Balance, nil
}

type memTxns memStore

func (t *memTxns) Append(ctx context.Context, userID uint, direction string, amount float64, category, description string, balanceAfter float64) (*models.Transaction, error) {
	if t.failAppend {
		return nil, errors.New("transaction log unavailable")
	}
	txn := models.Transaction{
		ID:           (*memStore)(t).allocID(),
		UserID:       userID,
		Direction:    direction,
		Amount:       amount,
		Category:     category,
		Description:  description,
		BalanceAfter: balanceAfter,
		CreatedAt:    time.Now(),
	}
	t.txns = append(t.txns, txn)
	return &txn, nil
}

func (t *memTxns) ListByUser(ctx context.Context, userID uint, direction, category string) ([]models.Transaction, error) {
	var out []models.Transaction
	for _, txn := range t.txns {
		if txn.UserID == userID {
			out = append(out, txn)
		}
	}
	return out, nil
}

type memUsers memStore

func (u *memUsers) FindByID(ctx context.Context, id uint) (*models.User, error) {
	user, ok := u.users[id]
	if !ok {
		return nil, models.ErrNotFound
	}
	cp := *user
	return &cp, nil
}

type fakeCache struct {
	mu      sync.Mutex
	deleted []string
}

func (c *fakeCache) Get(ctx context.Context, key string) ([]byte, bool, error) {
	return nil, false, nil
}

func (c *fakeCache) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	return nil
}

func (c *fakeCache) Delete(ctx context.Context, keys ...string) error {
	c.mu.Lock()
	c.deleted = append(c.deleted, keys...)
	c.mu.Unlock()
	return nil
}

type fakeNotifier struct {
	mu     sync.Mutex
	events []notify.Event
}

func (n *fakeNotifier) Publish(event notify.Event) {
	n.mu.Lock()
	n.events = append(n.events, event)
	n.mu.Unlock()
}

const testPIN = "4321"

func seedUser(t *testing.T, st *memStore, id uint) *models.User {
	t.Helper()
	hash, err := bcrypt.GenerateFromPassword([]byte(testPIN), bcrypt.MinCost)
	require.NoError(t, err)
	user := &models.User{ID: id, UUID: "u", PinHash: string(hash)}
	st.users[id] = user
	return user
}

func seedAccount(st *memStore, userID uint, number string, balance float64) *models.Account {
	acc := &models.Account{
		ID:      st.allocID(),
		UserID:  userID,
		Number:  number,
		Type:    models.AccountTypeSavings,
		Balance: balance,
	}
	st.accounts[acc.ID] = acc
	return acc
}

func newTestService(t *testing.T) (*Service, *memStore, *fakeCache, *fakeNotifier) {
	t.Helper()
	st := newMemStore()
	c := &fakeCache{}
	n := &fakeNotifier{}
	return NewService(st, c, n), st, c, n
}

func TestTransferSuccess(t *testing.T) {
	svc, st, c, n := newTestService(t)
	seedUser(t, st, 1)
	seedUser(t, st, 2)
	sender := seedAccount(st, 1, "AC100", 1000)
	receiver := seedAccount(st, 2, "AC200", 200)

	res, err := svc.Transfer(context.Background(), 1, Input{
		FromAccount: "AC100",
		ToAccount:   "AC200",
		Amount:      500,
		PIN:         testPIN,
		Note:        "rent",
	})
	require.NoError(t, err)

	assert.Equal(t, 500.0, res.Balance)
	assert.Equal(t, 500.0, st.accounts[sender.ID].Balance)
	assert.Equal(t, 700.0, st.accounts[receiver.ID].Balance)

	require.Len(t, st.txns, 2)
	debit, credit := st.txns[0], st.txns[1]
	assert.Equal(t, models.DirectionDebit, debit.Direction)
	assert.Equal(t, uint(1), debit.UserID)
	assert.Equal(t, 500.0, debit.BalanceAfter)
	assert.Equal(t, models.DirectionCredit, credit.Direction)
	assert.Equal(t, uint(2), credit.UserID)
	assert.Equal(t, 700.0, credit.BalanceAfter)
	assert.Equal(t, "rent", debit.Description)

	assert.ElementsMatch(t, []string{cache.StatementKey(1), cache.StatementKey(2)}, c.deleted)

	require.Len(t, n.events, 1)
	payload := n.events[0].Payload.(EventPayload)
	assert.Equal(t, uint(1), payload.FromUserID)
	assert.Equal(t, uint(2), payload.ToUserID)
	assert.Equal(t, 500.0, payload.FromBalance)
	assert.Equal(t, 700.0, payload.ToBalance)
}

func TestTransferValidation(t *testing.T) {
	svc, st, _, _ := newTestService(t)
	seedUser(t, st, 1)
	seedAccount(st, 1, "AC100", 1000)

	cases := []Input{
		{ToAccount: "AC200", Amount: 10, PIN: testPIN},
		{FromAccount: "AC100", Amount: 10, PIN: testPIN},
		{FromAccount: "AC100", ToAccount: "AC200", PIN: testPIN},
		{FromAccount: "AC100", ToAccount: "AC200", Amount: -5, PIN: testPIN},
		{FromAccount: "AC100", ToAccount: "AC200", Amount: 10},
	}
	for _, in := range cases {
		_, err := svc.Transfer(context.Background(), 1, in)
		assert.ErrorIs(t, err, models.ErrInvalidInput)
	}
}

func TestTransferSameAccountNeverMutates(t *testing.T) {
	svc, st, _, _ := newTestService(t)
	seedUser(t, st, 1)
	acc := seedAccount(st, 1, "AC100", 1000)

	_, err := svc.Transfer(context.Background(), 1, Input{
		FromAccount: "AC100",
		ToAccount:   "AC100",
		Amount:      100,
		PIN:         testPIN,
	})
	assert.ErrorIs(t, err, models.ErrInvalidInput)
	assert.Equal(t, 1000.0, st.accounts[acc.ID].Balance)
	assert.Empty(t, st.txns)
}

func TestTransferWrongPIN(t *testing.T) {
	svc, st, _, _ := newTestService(t)
	seedUser(t, st, 1)
	seedAccount(st, 1, "AC100", 1000)
	seedAccount(st, 2, "AC200", 0)

	_, err := svc.Transfer(context.Background(), 1, Input{
		FromAccount: "AC100",
		ToAccount:   "AC200",
		Amount:      100,
		PIN:         "0000",
	})
	assert.ErrorIs(t, err, models.ErrUnauthorized)
	assert.Empty(t, st.txns)
}

func TestTransferUnknownAccount(t *testing.T) {
	svc, st, _, _ := newTestService(t)
	seedUser(t, st, 1)
	seedAccount(st, 1, "AC100", 1000)

	_, err := svc.Transfer(context.Background(), 1, Input{
		FromAccount: "AC100",
		ToAccount:   "AC999",
		Amount:      100,
		PIN:         testPIN,
	})
	assert.ErrorIs(t, err, models.ErrNotFound)
}

func TestTransferForeignSenderAccount(t *testing.T) {
	svc, st, _, _ := newTestService(t)
	seedUser(t, st, 1)
	seedAccount(st, 2, "AC200", 1000)
	seedAccount(st, 3, "AC300", 0)

	_, err := svc.Transfer(context.Background(), 1, Input{
		FromAccount: "AC200",
		ToAccount:   "AC300",
		Amount:      100,
		PIN:         testPIN,
	})
	assert.ErrorIs(t, err, models.ErrNotFound)
	assert.Empty(t, st.txns)
}

func TestTransferInsufficientBalance(t *testing.T) {
	svc, st, _, _ := newTestService(t)
	seedUser(t, st, 1)
	sender := seedAccount(st, 1, "AC100", 50)
	receiver := seedAccount(st, 2, "AC200", 0)

	_, err := svc.Transfer(context.Background(), 1, Input{
		FromAccount: "AC100",
		ToAccount:   "AC200",
		Amount:      100,
		PIN:         testPIN,
	})
	assert.ErrorIs(t, err, models.ErrInsufficientBalance)
	assert.Equal(t, 50.0, st.accounts[sender.ID].Balance)
	assert.Equal(t, 0.0, st.accounts[receiver.ID].Balance)
	assert.Empty(t, st.txns)
}

func TestTransferRollsBackWhenAppendFails(t *testing.T) {
	svc, st, c, n := newTestService(t)
	seedUser(t, st, 1)
	seedUser(t, st, 2)
	sender := seedAccount(st, 1, "AC100", 1000)
	receiver := seedAccount(st, 2, "AC200", 200)

	st.failAppend = true
	_, err := svc.Transfer(context.Background(), 1, Input{
		FromAccount: "AC100",
		ToAccount:   "AC200",
		Amount:      500,
		PIN:         testPIN,
	})
	require.Error(t, err)

	// The debit and credit roll back with the failed ledger append; neither
	// side effect fires.
	assert.Equal(t, 1000.0, st.accounts[sender.ID].Balance)
	assert.Equal(t, 200.0, st.accounts[receiver.ID].Balance)
	assert.Empty(t, st.txns)
	assert.Empty(t, c.deleted)
	assert.Empty(t, n.events)
}

func TestConcurrentTransfersNeverOverdraw(t *testing.T) {
	svc, st, _, _ := newTestService(t)
	seedUser(t, st, 1)
	sender := seedAccount(st, 1, "AC100", 1000)
	receiver := seedAccount(st, 2, "AC200", 0)

	const (
		workers = 8
		amount  = 300.0
	)

	var wg sync.WaitGroup
	errs := make([]error, workers)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = svc.Transfer(context.Background(), 1, Input{
				FromAccount: "AC100",
				ToAccount:   "AC200",
				Amount:      amount,
				PIN:         testPIN,
			})
		}(i)
	}
	wg.Wait()

	succeeded, insufficient := 0, 0
	for _, err := range errs {
		switch {
		case err == nil:
			succeeded++
		case errors.Is(err, models.ErrInsufficientBalance):
			insufficient++
		default:
			t.Fatalf("unexpected error: %v", err)
		}
	}

	// floor(1000/300) transfers can succeed; the balance never goes negative.
	assert.Equal(t, 3, succeeded)
	assert.Equal(t, workers-3, insufficient)
	assert.Equal(t, 100.0, st.accounts[sender.ID].Balance)
	assert.Equal(t, 900.0, st.accounts[receiver.ID].Balance)
	assert.Len(t, st.txns, 6)
}
