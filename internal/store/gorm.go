package store

import (
	"context"
	"errors"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"corebank-go/internal/models"
)

// GormStore implements Store on a gorm connection. InTx yields a GormStore
// bound to the transaction handle, so the same code paths work inside and
// outside a transaction.
type GormStore struct {
	db *gorm.DB
}

func NewGormStore(db *gorm.DB) *GormStore {
	return &GormStore{db: db}
}

func (s *GormStore) Accounts() AccountStore       { return &gormAccounts{db: s.db} }
func (s *GormStore) Transactions() TransactionLog { return &gormTransactions{db: s.db} }
func (s *GormStore) Loans() LoanStore             { return &gormLoans{db: s.db} }
func (s *GormStore) Users() UserStore             { return &gormUsers{db: s.db} }

func (s *GormStore) InTx(ctx context.Context, fn func(Store) error) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(&GormStore{db: tx})
	})
}

type gormAccounts struct {
	db *gorm.DB
}

func (a *gormAccounts) Create(ctx context.Context, account *models.Account) error {
	return a.db.WithContext(ctx).Create(account).Error
}

func (a *gormAccounts) FindSettlementAccount(ctx context.Context, userID uint) (*models.Account, error) {
	var acc models.Account
	err := a.db.WithContext(ctx).
		Where("user_id = ? AND LOWER(type) = ?", userID, strings.ToLower(models.AccountTypeSavings)).
		First(&acc).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, models.ErrAccountNotFound
	}
	if err != nil {
		return nil, err
	}
	return &acc, nil
}

func (a *gormAccounts) FindByNumber(ctx context.Context, number string) (*models.Account, error) {
	var acc models.Account
	err := a.db.WithContext(ctx).Where("number = ?", number).First(&acc).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, models.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &acc, nil
}

// FindByNumberForUpdate locks the account row for the rest of the enclosing
// transaction. Callers locking two accounts must do so in number order.
func (a *gormAccounts) FindByNumberForUpdate(ctx context.Context, number string) (*models.Account, error) {
	var acc models.Account
	err := a.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("number = ?", number).
		First(&acc).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, models.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &acc, nil
}

func (a *gormAccounts) FindAllByUser(ctx context.Context, userID uint) ([]models.Account, error) {
	var accounts []models.Account
	err := a.db.WithContext(ctx).Where("user_id = ?", userID).Order("created_at asc").Find(&accounts).Error
	return accounts, err
}

func (a *gormAccounts) Credit(ctx context.Context, accountID uint, amount float64) (float64, error) {
	res := a.db.WithContext(ctx).Model(&models.Account{}).
		Where("id = ?", accountID).
		UpdateColumn("balance", gorm.Expr("balance + ?", amount))
	if res.Error != nil {
		return 0, res.Error
	}
	if res.RowsAffected == 0 {
		return 0, models.ErrAccountNotFound
	}
	return a.balanceOf(ctx, accountID)
}

func (a *gormAccounts) DebitIfSufficient(ctx context.Context, accountID uint, amount float64) (float64, error) {
	res := a.db.WithContext(ctx).Model(&models.Account{}).
		Where("id = ? AND balance >= ?", accountID, amount).
		UpdateColumn("balance", gorm.Expr("balance - ?", amount))
	if res.Error != nil {
		return 0, res.Error
	}
	if res.RowsAffected == 0 {
		// Distinguish a missing account from a failed balance guard.
		var count int64
		if err := a.db.WithContext(ctx).Model(&models.Account{}).Where("id = ?", accountID).Count(&count).Error; err != nil {
			return 0, err
		}
		if count == 0 {
			return 0, models.ErrAccountNotFound
		}
		return 0, models.ErrInsufficientBalance
	}
	return a.balanceOf(ctx, accountID)
}

func (a *gormAccounts) balanceOf(ctx context.Context, accountID uint) (float64, error) {
	var acc models.Account
	if err := a.db.WithContext(ctx).Select("balance").First(&acc, accountID).Error; err != nil {
		return 0, err
	}
	return acc.Balance, nil
}

type gormTransactions struct {
	db *gorm.DB
}

func (t *gormTransactions) Append(ctx context.Context, userID uint, direction string, amount float64, category, description string, balanceAfter float64) (*models.Transaction, error) {
	txn := &models.Transaction{
		Reference:    uuid.NewString(),
		UserID:       userID,
		Direction:    direction,
		Amount:       amount,
		Category:     category,
		Description:  description,
		BalanceAfter: balanceAfter,
	}
	if err := t.db.WithContext(ctx).Create(txn).Error; err != nil {
		return nil, err
	}
	return txn, nil
}

func (t *gormTransactions) ListByUser(ctx context.Context, userID uint, direction, category string) ([]models.Transaction, error) {
	query := t.db.WithContext(ctx).Where("user_id = ?", userID).Order("created_at desc")
	if direction != "" {
		query = query.Where("direction = ?", direction)
	}
	if category != "" {
		query = query.Where("LOWER(category) = LOWER(?)", category)
	}
	var txns []models.Transaction
	err := query.Find(&txns).Error
	return txns, err
}

type gormLoans struct {
	db *gorm.DB
}

func (l *gormLoans) Create(ctx context.Context, loan *models.Loan) error {
	return l.db.WithContext(ctx).Create(loan).Error
}

func (l *gormLoans) FindByID(ctx context.Context, loanID, userID uint) (*models.Loan, error) {
	var loan models.Loan
	err := l.db.WithContext(ctx).Where("id = ? AND user_id = ?", loanID, userID).First(&loan).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, models.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &loan, nil
}

func (l *gormLoans) FindByIDForUpdate(ctx context.Context, loanID, userID uint) (*models.Loan, error) {
	var loan models.Loan
	err := l.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("id = ? AND user_id = ?", loanID, userID).
		First(&loan).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, models.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &loan, nil
}

func (l *gormLoans) FindAllByUser(ctx context.Context, userID uint) ([]models.Loan, error) {
	var loans []models.Loan
	err := l.db.WithContext(ctx).Where("user_id = ?", userID).Order("created_at desc").Find(&loans).Error
	return loans, err
}

func (l *gormLoans) Save(ctx context.Context, loan *models.Loan) error {
	return l.db.WithContext(ctx).Save(loan).Error
}

type gormUsers struct {
	db *gorm.DB
}

func (u *gormUsers) FindByID(ctx context.Context, id uint) (*models.User, error) {
	var user models.User
	err := u.db.WithContext(ctx).First(&user, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, models.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &user, nil
}
