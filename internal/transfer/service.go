// Package transfer moves money between two accounts under PIN authorization.
// The debit, credit and both ledger entries commit atomically; concurrent
// transfers from one account cannot overdraw it.
package transfer

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/crypto/bcrypt"

	"corebank-go/internal/cache"
	"corebank-go/internal/logger"
	"corebank-go/internal/models"
	"corebank-go/internal/notify"
	"corebank-go/internal/store"
)

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

type Input struct {
	FromAccount string
	ToAccount   string
	Amount      float64
	PIN         string
	Note        string
}

type Result struct {
	Balance  float64             `json:"balance"` // Sender's balance after the transfer
	Debit    *models.Transaction `json:"debit"`
	Credit   *models.Transaction `json:"credit"`
	ToUserID uint                `json:"to_user_id"`
}

// EventPayload is carried on TRANSFER events.
type EventPayload struct {
	FromUserID  uint                `json:"from_user_id"`
	ToUserID    uint                `json:"to_user_id"`
	Amount      float64             `json:"amount"`
	Debit       *models.Transaction `json:"debit"`
	Credit      *models.Transaction `json:"credit"`
	FromBalance float64             `json:"from_balance"`
	ToBalance   float64             `json:"to_balance"`
}

// Transfer debits the sender, credits the receiver and writes one ledger
// entry per side. Both account rows are locked for the duration of the
// mutation, in account-number order so two opposing transfers cannot
// deadlock, and the debit itself is guarded so the balance never goes
// negative.
func (s *Service) Transfer(ctx context.Context, userID uint, in Input) (*Result, error) {
	if in.FromAccount == "" || in.ToAccount == "" || in.PIN == "" || in.Amount <= 0 {
		return nil, fmt.Errorf("%w: from, to, amount and pin are required", models.ErrInvalidInput)
	}
	if in.FromAccount == in.ToAccount {
		return nil, fmt.Errorf("%w: cannot transfer to the same account", models.ErrInvalidInput)
	}

	user, err := s.store.Users().FindByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PinHash), []byte(in.PIN)); err != nil {
		return nil, fmt.Errorf("%w: pin mismatch", models.ErrUnauthorized)
	}

	var (
		res       Result
		toBalance float64
	)
	err = s.store.InTx(ctx, func(tx store.Store) error {
		first, second := in.FromAccount, in.ToAccount
		if second < first {
			first, second = second, first
		}
		locked := make(map[string]*models.Account, 2)
		for _, number := range []string{first, second} {
			acc, err := tx.Accounts().FindByNumberForUpdate(ctx, number)
			if err != nil {
				return err
			}
			locked[number] = acc
		}
		from, to := locked[in.FromAccount], locked[in.ToAccount]

		if from.UserID != userID {
			return fmt.Errorf("%w: sender account", models.ErrNotFound)
		}

		fromBalance, err := tx.Accounts().DebitIfSufficient(ctx, from.ID, in.Amount)
		if err != nil {
			return err
		}
		toBalance, err = tx.Accounts().Credit(ctx, to.ID, in.Amount)
		if err != nil {
			return err
		}

		note := in.Note
		if note == "" {
			note = fmt.Sprintf("transfer to %s", in.ToAccount)
		}
		debit, err := tx.Transactions().Append(ctx, from.UserID, models.DirectionDebit, in.Amount, models.CategoryTransfer, note, fromBalance)
		if err != nil {
			return err
		}
		credit, err := tx.Transactions().Append(ctx, to.UserID, models.DirectionCredit, in.Amount, models.CategoryTransfer, note, toBalance)
		if err != nil {
			return err
		}

		res = Result{Balance: fromBalance, Debit: debit, Credit: credit, ToUserID: to.UserID}
		return nil
	})
	if err != nil {
		return nil, err
	}

	if err := s.cache.Delete(ctx, cache.StatementKey(userID), cache.StatementKey(res.ToUserID)); err != nil {
		logger.CtxWarn(ctx, "statement cache invalidation failed", slog.Any("error", err))
	}
	s.notifier.Publish(notify.Event{Type: notify.EventTransfer, Payload: EventPayload{
		FromUserID:  userID,
		ToUserID:    res.ToUserID,
		Amount:      in.Amount,
		Debit:       res.Debit,
		Credit:      res.Credit,
		FromBalance: res.Balance,
		ToBalance:   toBalance,
	}})
	return &res, nil
}
