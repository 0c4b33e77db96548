package http

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"

	"github.com/gin-gonic/gin"

	"corebank-go/internal/cache"
	"corebank-go/internal/logger"
	"corebank-go/internal/models"
	"corebank-go/internal/store"
)

func generateAccountNumber() string {
	return "AC" + strings.ToUpper(generateUUID()[:10])
}

// POST /v1/accounts
func (s *Server) createAccount(c *gin.Context) {
	userID := c.MustGet("userID").(uint)

	var input struct {
		Type   string `json:"type" binding:"required"`
		Name   string `json:"name"`
		Branch string `json:"branch"`
	}
	if err := c.BindJSON(&input); err != nil {
		c.JSON(400, gin.H{"error": err.Error()})
		return
	}

	accountType := strings.ToUpper(input.Type)
	switch accountType {
	case models.AccountTypeSavings, models.AccountTypeCurrent, models.AccountTypeWallet:
	default:
		c.JSON(400, gin.H{"error": "invalid_request", "message": "type must be SAVINGS, CURRENT or WALLET"})
		return
	}

	account := &models.Account{
		UserID: userID,
		Number: generateAccountNumber(),
		Type:   accountType,
		Name:   input.Name,
		Branch: input.Branch,
	}
	if err := s.store.Accounts().Create(c.Request.Context(), account); err != nil {
		c.JSON(500, gin.H{"error": "db_error"})
		return
	}

	c.JSON(201, account)
}

// GET /v1/accounts
func (s *Server) listAccounts(c *gin.Context) {
	userID := c.MustGet("userID").(uint)

	accounts, err := s.store.Accounts().FindAllByUser(c.Request.Context(), userID)
	if err != nil {
		c.JSON(500, gin.H{"error": "db_error"})
		return
	}
	c.JSON(200, accounts)
}

// POST /v1/accounts/:number/deposit
func (s *Server) deposit(c *gin.Context) {
	userID := c.MustGet("userID").(uint)
	number := c.Param("number")

	var input struct {
		Amount float64 `json:"amount" binding:"required,gt=0"`
		Note   string  `json:"note"`
	}
	if err := c.BindJSON(&input); err != nil {
		c.JSON(400, gin.H{"error": err.Error()})
		return
	}

	ctx := c.Request.Context()
	var balance float64
	err := s.store.InTx(ctx, func(tx store.Store) error {
		acc, err := tx.Accounts().FindByNumber(ctx, number)
		if err != nil {
			return err
		}
		if acc.UserID != userID {
			return models.ErrNotFound
		}
		balance, err = tx.Accounts().Credit(ctx, acc.ID, input.Amount)
		if err != nil {
			return err
		}
		note := input.Note
		if note == "" {
			note = fmt.Sprintf("deposit to %s", number)
		}
		_, err = tx.Transactions().Append(ctx, userID, models.DirectionCredit, input.Amount, models.CategoryDeposit, note, balance)
		return err
	})
	if err != nil {
		abortWithDomainError(c, err)
		return
	}

	if err := s.cache.Delete(ctx, cache.StatementKey(userID)); err != nil {
		logger.CtxWarn(ctx, "statement cache invalidation failed", slog.Any("error", err))
	}
	c.JSON(200, gin.H{"balance": balance})
}

// GET /v1/transactions
func (s *Server) listTransactions(c *gin.Context) {
	userID := c.MustGet("userID").(uint)
	ctx := c.Request.Context()

	direction := c.Query("direction")
	category := c.Query("category")
	unfiltered := direction == "" && category == ""

	// Only the unfiltered statement is cached; filtered reads always hit the log.
	if unfiltered {
		data, ok, err := s.cache.Get(ctx, cache.StatementKey(userID))
		if err != nil {
			logger.CtxWarn(ctx, "statement cache read failed", slog.Any("error", err))
		} else if ok {
			var txns []models.Transaction
			if err := json.Unmarshal(data, &txns); err == nil {
				c.JSON(200, txns)
				return
			}
		}
	}

	txns, err := s.store.Transactions().ListByUser(ctx, userID, direction, category)
	if err != nil {
		c.JSON(500, gin.H{"error": "db_error"})
		return
	}

	if unfiltered {
		if data, err := json.Marshal(txns); err == nil {
			if err := s.cache.Set(ctx, cache.StatementKey(userID), data, cache.StatementTTL); err != nil {
				logger.CtxWarn(ctx, "statement cache write failed", slog.Any("error", err))
			}
		}
	}
	c.JSON(200, txns)
}
