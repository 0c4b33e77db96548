package models

import (
	"time"
)

const (
	DirectionCredit = "credit"
	DirectionDebit  = "debit"
)

// Transaction categories written by the services.
const (
	CategoryDeposit        = "deposit"
	CategoryTransfer       = "transfer"
	CategoryLoanDisbursed  = "loan_disbursement"
	CategoryLoanRepayment  = "loan_repayment"
	CategoryLoanPreclosure = "loan_preclosure"
)

// Transaction is an immutable, append-only ledger entry. Rows are never
// updated or deleted once written.
type Transaction struct {
	ID           uint      `gorm:"primaryKey" json:"id"`
	Reference    string    `gorm:"uniqueIndex" json:"reference"`
	UserID       uint      `gorm:"index" json:"user_id"`
	Direction    string    `json:"direction"` // credit, debit
	Amount       float64   `json:"amount"`
	Category     string    `json:"category"`
	Description  string    `json:"description"`
	BalanceAfter float64   `json:"balance_after"` // Account balance snapshot after this entry
	CreatedAt    time.Time `json:"created_at"`
}
