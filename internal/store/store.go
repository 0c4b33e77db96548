package store

import (
	"context"

	"corebank-go/internal/models"
)

// AccountStore mutates balances. Debit and Credit are single conditional
// statements in the SQL implementation, so two concurrent debits against the
// same account can never both pass their balance check.
type AccountStore interface {
	Create(ctx context.Context, account *models.Account) error
	FindSettlementAccount(ctx context.Context, userID uint) (*models.Account, error)
	FindByNumber(ctx context.Context, number string) (*models.Account, error)
	FindByNumberForUpdate(ctx context.Context, number string) (*models.Account, error)
	FindAllByUser(ctx context.Context, userID uint) ([]models.Account, error)
	Credit(ctx context.Context, accountID uint, amount float64) (newBalance float64, err error)
	// DebitIfSufficient fails with models.ErrInsufficientBalance without
	// mutating anything when the balance is below the amount.
	DebitIfSufficient(ctx context.Context, accountID uint, amount float64) (newBalance float64, err error)
}

// TransactionLog appends immutable ledger entries.
type TransactionLog interface {
	Append(ctx context.Context, userID uint, direction string, amount float64, category, description string, balanceAfter float64) (*models.Transaction, error)
	ListByUser(ctx context.Context, userID uint, direction, category string) ([]models.Transaction, error)
}

type LoanStore interface {
	Create(ctx context.Context, loan *models.Loan) error
	FindByID(ctx context.Context, loanID, userID uint) (*models.Loan, error)
	// FindByIDForUpdate locks the loan row for the rest of the enclosing
	// transaction. Required before any read-modify-write of the loan.
	FindByIDForUpdate(ctx context.Context, loanID, userID uint) (*models.Loan, error)
	FindAllByUser(ctx context.Context, userID uint) ([]models.Loan, error)
	Save(ctx context.Context, loan *models.Loan) error
}

type UserStore interface {
	FindByID(ctx context.Context, id uint) (*models.User, error)
}

// Store groups the persistence collaborators. InTx runs fn against a Store
// bound to one database transaction: every write inside fn commits together
// or not at all.
type Store interface {
	Accounts() AccountStore
	Transactions() TransactionLog
	Loans() LoanStore
	Users() UserStore
	InTx(ctx context.Context, fn func(Store) error) error
}
