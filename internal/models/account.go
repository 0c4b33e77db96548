package models

import (
	"time"
)

const (
	AccountTypeSavings = "SAVINGS"
	AccountTypeCurrent = "CURRENT"
	AccountTypeWallet  = "WALLET"
)

type Account struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	UserID    uint      `gorm:"index" json:"user_id"`
	Number    string    `gorm:"uniqueIndex" json:"number"` // External account number used for transfers
	Type      string    `json:"type"`                      // SAVINGS, CURRENT, WALLET
	Name      string    `json:"name"`
	Branch    string    `json:"branch"`
	Balance   float64   `json:"balance"` // Never negative after a committed operation
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}
