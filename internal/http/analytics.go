package http

import (
	"sort"
	"time"

	"github.com/gin-gonic/gin"

	"corebank-go/internal/database"
	"corebank-go/internal/models"
)

type AccountBalance struct {
	Number  string  `json:"number"`
	Type    string  `json:"type"`
	Balance float64 `json:"balance"`
}

type CategoryBreakdown struct {
	Category string  `json:"category"`
	Amount   float64 `json:"amount"`
	Count    int     `json:"count"`
}

type LoanSummary struct {
	ActiveCount      int     `json:"active_count"`
	TotalMonthlyEMI  float64 `json:"total_monthly_emi"`
	TotalOutstanding float64 `json:"total_outstanding"`
}

type SummaryResponse struct {
	TotalBalance      float64             `json:"total_balance"`
	Accounts          []AccountBalance    `json:"accounts"`
	MonthCredit       float64             `json:"month_credit"`
	MonthDebit        float64             `json:"month_debit"`
	CategoryBreakdown []CategoryBreakdown `json:"category_breakdown"`
	Loans             LoanSummary         `json:"loans"`
}

// GET /v1/analytics/summary
func (s *Server) getSummary(c *gin.Context) {
	userID := c.MustGet("userID").(uint)
	now := time.Now()
	monthStart := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, now.Location())

	var accounts []models.Account
	database.DB.Where("user_id = ?", userID).Find(&accounts)

	var txns []models.Transaction
	database.DB.Where("user_id = ? AND created_at >= ?", userID, monthStart).Find(&txns)

	var loanRows []models.Loan
	database.DB.Where("user_id = ? AND status = ?", userID, models.LoanStatusActive).Find(&loanRows)

	res := SummaryResponse{
		Accounts:          []AccountBalance{},
		CategoryBreakdown: []CategoryBreakdown{},
	}

	for _, acc := range accounts {
		res.TotalBalance += acc.Balance
		res.Accounts = append(res.Accounts, AccountBalance{
			Number:  acc.Number,
			Type:    acc.Type,
			Balance: acc.Balance,
		})
	}

	categoryTotals := make(map[string]*CategoryBreakdown)
	for _, t := range txns {
		if t.Direction == models.DirectionCredit {
			res.MonthCredit += t.Amount
		} else {
			res.MonthDebit += t.Amount
			if _, ok := categoryTotals[t.Category]; !ok {
				categoryTotals[t.Category] = &CategoryBreakdown{Category: t.Category}
			}
			categoryTotals[t.Category].Amount += t.Amount
			categoryTotals[t.Category].Count++
		}
	}
	for _, b := range categoryTotals {
		res.CategoryBreakdown = append(res.CategoryBreakdown, *b)
	}
	sort.Slice(res.CategoryBreakdown, func(i, j int) bool {
		return res.CategoryBreakdown[i].Amount > res.CategoryBreakdown[j].Amount
	})

	for _, l := range loanRows {
		res.Loans.ActiveCount++
		res.Loans.TotalMonthlyEMI += l.EMIAmount
		res.Loans.TotalOutstanding += l.RemainingPrincipal
	}

	c.JSON(200, res)
}
