// Package loans orchestrates the loan lifecycle: application, listing, EMI
// payment and pre-closure, against the account balance, transaction log,
// cache and notifier collaborators.
package loans

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"corebank-go/internal/cache"
	"corebank-go/internal/emi"
	"corebank-go/internal/logger"
	"corebank-go/internal/models"
	"corebank-go/internal/notify"
	"corebank-go/internal/store"
)

// Cache is the loan-list snapshot store. Every method may fail without
// aborting the caller.
type Cache interface {
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Delete(ctx context.Context, keys ...string) error
}

type Notifier interface {
	Publish(event notify.Event)
}

type Service struct {
	store    store.Store
	cache    Cache
	notifier Notifier
}

func NewService(st store.Store, c Cache, n Notifier) *Service {
	return &Service{store: st, cache: c, notifier: n}
}

type ApplyInput struct {
	Type         string
	Principal    float64
	InterestRate float64
	TenureMonths int
	Collateral   string
}

// Apply originates a loan: EMI terms are fixed, the principal is credited to
// the user's settlement account, and a disbursement transaction is written,
// all in one transaction. Cache invalidation and the LOAN_CREATED event are
// best-effort side effects after commit.
func (s *Service) Apply(ctx context.Context, userID uint, in ApplyInput) (*models.Loan, error) {
	if in.Principal <= 0 || in.TenureMonths < 1 || in.InterestRate < 0 || !models.ValidLoanType(in.Type) {
		return nil, fmt.Errorf("%w: loan type, principal, tenure and rate must be valid", models.ErrInvalidInput)
	}

	terms, err := emi.Calculate(in.Principal, in.InterestRate, in.TenureMonths)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", models.ErrInvalidInput, err)
	}

	var loan *models.Loan
	err = s.store.InTx(ctx, func(tx store.Store) error {
		acc, err := tx.Accounts().FindSettlementAccount(ctx, userID)
		if err != nil {
			return err
		}

		loan = &models.Loan{
			UserID:                   userID,
			Type:                     in.Type,
			Principal:                in.Principal,
			InterestRate:             in.InterestRate,
			TenureMonths:             in.TenureMonths,
			Collateral:               in.Collateral,
			EMIAmount:                emi.Round2(terms.EMI),
			TotalInterest:            emi.Round2(terms.TotalInterest),
			TotalPayable:             emi.Round2(terms.TotalPayable),
			RemainingPrincipal:       in.Principal,
			Status:                   models.LoanStatusActive,
			Repayments:               models.RepaymentHistory{},
			PreclosurePenaltyPercent: models.DefaultPreclosurePenaltyPercent,
		}
		if err := tx.Loans().Create(ctx, loan); err != nil {
			return err
		}

		newBalance, err := tx.Accounts().Credit(ctx, acc.ID, in.Principal)
		if err != nil {
			return err
		}

		desc := fmt.Sprintf("%s loan disbursed", in.Type)
		_, err = tx.Transactions().Append(ctx, userID, models.DirectionCredit, in.Principal, models.CategoryLoanDisbursed, desc, newBalance)
		return err
	})
	if err != nil {
		return nil, err
	}

	s.invalidate(ctx, userID)
	s.notifier.Publish(notify.Event{Type: notify.EventLoanCreated, Payload: loan})
	return loan, nil
}

// List serves the user's loans newest-first, from the cache when a fresh
// snapshot exists. Cache read and write failures are logged and swallowed;
// the loan store stays authoritative.
func (s *Service) List(ctx context.Context, userID uint) ([]models.Loan, error) {
	key := cache.LoanListKey(userID)

	data, ok, err := s.cache.Get(ctx, key)
	if err != nil {
		logger.CtxWarn(ctx, "loan cache read failed", slog.Any("error", err))
	} else if ok {
		var loans []models.Loan
		if err := json.Unmarshal(data, &loans); err == nil {
			return loans, nil
		}
		logger.CtxWarn(ctx, "loan cache entry malformed, serving from store", slog.String("key", key))
	}

	loans, err := s.store.Loans().FindAllByUser(ctx, userID)
	if err != nil {
		return nil, err
	}

	if data, err := json.Marshal(loans); err == nil {
		if err := s.cache.Set(ctx, key, data, cache.LoanListTTL); err != nil {
			logger.CtxWarn(ctx, "loan cache write failed", slog.Any("error", err))
		}
	}
	return loans, nil
}

func (s *Service) Get(ctx context.Context, userID, loanID uint) (*models.Loan, error) {
	return s.store.Loans().FindByID(ctx, loanID, userID)
}

// EmiPaidPayload is carried on EMI_PAID events.
type EmiPaidPayload struct {
	LoanID             uint    `json:"loan_id"`
	UserID             uint    `json:"user_id"`
	Amount             float64 `json:"amount"`
	Status             string  `json:"status"`
	RemainingPrincipal float64 `json:"remaining_principal"`
	PaidEmiCount       int     `json:"paid_emi_count"`
}

// PayEMI applies one installment: the ledger transition, the settlement
// account debit and the repayment transaction commit together. The loan row
// is locked for the transaction so two concurrent payments cannot both read
// the same state and overwrite each other's repayment record.
func (s *Service) PayEMI(ctx context.Context, userID, loanID uint) (*models.Loan, error) {
	var loan *models.Loan
	err := s.store.InTx(ctx, func(tx store.Store) error {
		var err error
		loan, err = tx.Loans().FindByIDForUpdate(ctx, loanID, userID)
		if err != nil {
			return err
		}
		if loan.Status != models.LoanStatusActive {
			return models.ErrLoanClosed
		}

		acc, err := tx.Accounts().FindSettlementAccount(ctx, userID)
		if err != nil {
			return err
		}

		newBalance, err := tx.Accounts().DebitIfSufficient(ctx, acc.ID, loan.EMIAmount)
		if err != nil {
			return err
		}

		rec, err := loan.ApplyPayment(time.Now())
		if err != nil {
			return err
		}
		if err := tx.Loans().Save(ctx, loan); err != nil {
			return err
		}

		desc := fmt.Sprintf("EMI %d for %s loan", loan.PaidEmiCount, loan.Type)
		_, err = tx.Transactions().Append(ctx, userID, models.DirectionDebit, rec.Amount, models.CategoryLoanRepayment, desc, newBalance)
		return err
	})
	if err != nil {
		return nil, err
	}

	s.invalidate(ctx, userID)
	s.notifier.Publish(notify.Event{Type: notify.EventEmiPaid, Payload: EmiPaidPayload{
		LoanID:             loan.ID,
		UserID:             userID,
		Amount:             loan.EMIAmount,
		Status:             loan.Status,
		RemainingPrincipal: loan.RemainingPrincipal,
		PaidEmiCount:       loan.PaidEmiCount,
	}})
	return loan, nil
}

// PreclosedPayload is carried on LOAN_PRECLOSED events.
type PreclosedPayload struct {
	LoanID       uint    `json:"loan_id"`
	UserID       uint    `json:"user_id"`
	TotalPayable float64 `json:"total_payable"`
	Penalty      float64 `json:"penalty"`
}

// PreClose settles a loan early for the remaining principal plus penalty.
func (s *Service) PreClose(ctx context.Context, userID, loanID uint) (*models.Loan, float64, float64, error) {
	var (
		loan         *models.Loan
		totalPayable float64
		penalty      float64
	)
	err := s.store.InTx(ctx, func(tx store.Store) error {
		var err error
		loan, err = tx.Loans().FindByIDForUpdate(ctx, loanID, userID)
		if err != nil {
			return err
		}
		if loan.Status != models.LoanStatusActive {
			return models.ErrLoanClosed
		}

		acc, err := tx.Accounts().FindSettlementAccount(ctx, userID)
		if err != nil {
			return err
		}

		totalPayable, penalty, err = loan.PreClose()
		if err != nil {
			return err
		}

		newBalance, err := tx.Accounts().DebitIfSufficient(ctx, acc.ID, totalPayable)
		if err != nil {
			return err
		}
		if err := tx.Loans().Save(ctx, loan); err != nil {
			return err
		}

		desc := fmt.Sprintf("%s loan pre-closed (penalty %.2f)", loan.Type, penalty)
		_, err = tx.Transactions().Append(ctx, userID, models.DirectionDebit, totalPayable, models.CategoryLoanPreclosure, desc, newBalance)
		return err
	})
	if err != nil {
		return nil, 0, 0, err
	}

	s.invalidate(ctx, userID)
	s.notifier.Publish(notify.Event{Type: notify.EventLoanPreclosed, Payload: PreclosedPayload{
		LoanID:       loan.ID,
		UserID:       userID,
		TotalPayable: totalPayable,
		Penalty:      penalty,
	}})
	return loan, totalPayable, penalty, nil
}

func (s *Service) invalidate(ctx context.Context, userID uint) {
	if err := s.cache.Delete(ctx, cache.LoanListKey(userID)); err != nil {
		logger.CtxWarn(ctx, "loan cache invalidation failed", slog.Any("error", err))
	}
}
