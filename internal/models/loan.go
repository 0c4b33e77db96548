package models

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"

	"corebank-go/internal/emi"
)

const (
	LoanStatusActive = "ACTIVE"
	LoanStatusClosed = "CLOSED"
	// LoanStatusOverdue is reserved; no operation currently transitions into it.
	LoanStatusOverdue = "OVERDUE"
)

const (
	LoanTypeHome      = "HOME"
	LoanTypeGold      = "GOLD"
	LoanTypeProperty  = "PROPERTY"
	LoanTypePersonal  = "PERSONAL"
	LoanTypeVehicle   = "VEHICLE"
	LoanTypeEducation = "EDUCATION"
)

// DefaultPreclosurePenaltyPercent applies to every loan at origination.
const DefaultPreclosurePenaltyPercent = 2.0

// closeThreshold is the rounding tolerance under which a remaining principal
// is snapped to zero and the loan closed.
const closeThreshold = 1.0

// Repayment is one append-only entry in a loan's repayment history.
type Repayment struct {
	PaidOn             time.Time `json:"paid_on"`
	Amount             float64   `json:"amount"`
	Principal          float64   `json:"principal"`
	Interest           float64   `json:"interest"`
	RemainingPrincipal float64   `json:"remaining_principal"`
}

type RepaymentHistory []Repayment

func (h RepaymentHistory) Value() (driver.Value, error) {
	if len(h) == 0 {
		return []byte("[]"), nil
	}
	return json.Marshal(h)
}

func (h *RepaymentHistory) Scan(value interface{}) error {
	if value == nil {
		*h = nil
		return nil
	}
	var data []byte
	switch v := value.(type) {
	case []byte:
		data = v
	case string:
		data = []byte(v)
	default:
		return fmt.Errorf("unsupported type for RepaymentHistory: %T", value)
	}
	if len(data) == 0 {
		*h = nil
		return nil
	}
	return json.Unmarshal(data, h)
}

type Loan struct {
	ID           uint    `gorm:"primaryKey" json:"id"`
	UserID       uint    `gorm:"index" json:"user_id"`
	Type         string  `json:"type"` // HOME, GOLD, PROPERTY, PERSONAL, VEHICLE, EDUCATION
	Principal    float64 `json:"principal"`
	InterestRate float64 `json:"interest_rate"` // Annual, percent
	TenureMonths int     `json:"tenure_months"`
	Collateral   string  `json:"collateral"`

	// Fixed at origination.
	EMIAmount     float64 `json:"emi_amount"`
	TotalInterest float64 `json:"total_interest"`
	TotalPayable  float64 `json:"total_payable"`

	// Mutated over the lifecycle.
	RemainingPrincipal       float64          `json:"remaining_principal"`
	PaidEmiCount             int              `json:"paid_emi_count"`
	Status                   string           `json:"status"`
	Repayments               RepaymentHistory `gorm:"type:jsonb" json:"repayments"`
	PreclosurePenaltyPercent float64          `json:"preclosure_penalty_percent"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func ValidLoanType(t string) bool {
	switch t {
	case LoanTypeHome, LoanTypeGold, LoanTypeProperty, LoanTypePersonal, LoanTypeVehicle, LoanTypeEducation:
		return true
	}
	return false
}

// MonthlyRate converts the annual percent rate to a monthly fraction.
func (l *Loan) MonthlyRate() float64 {
	return l.InterestRate / (12 * 100)
}

// ApplyPayment applies one EMI against the live remaining principal and
// appends a repayment record. Interest is always computed on the current
// remaining principal, not a fixed schedule, so irregular payment patterns
// are tolerated and the final EMI count may diverge from the tenure.
// Once the remaining principal falls within the rounding tolerance the loan
// closes; the transition is terminal.
func (l *Loan) ApplyPayment(now time.Time) (Repayment, error) {
	if l.Status != LoanStatusActive {
		return Repayment{}, ErrLoanClosed
	}

	interest := l.RemainingPrincipal * l.MonthlyRate()
	principal := l.EMIAmount - interest

	remaining := l.RemainingPrincipal - principal
	if remaining < 0 {
		remaining = 0
	}
	if remaining <= closeThreshold {
		remaining = 0
		l.Status = LoanStatusClosed
	}
	l.RemainingPrincipal = emi.Round2(remaining)
	l.PaidEmiCount++

	rec := Repayment{
		PaidOn:             now,
		Amount:             l.EMIAmount,
		Principal:          emi.Round2(principal),
		Interest:           emi.Round2(interest),
		RemainingPrincipal: l.RemainingPrincipal,
	}
	l.Repayments = append(l.Repayments, rec)
	return rec, nil
}

// PreClose settles the loan early. The payoff is the remaining principal plus
// the pre-closure penalty; no repayment record is appended, the payoff is
// represented only by the transaction the caller writes. Terminal.
func (l *Loan) PreClose() (totalPayable, penalty float64, err error) {
	if l.Status != LoanStatusActive {
		return 0, 0, ErrLoanClosed
	}

	penalty = emi.Round2(l.RemainingPrincipal * l.PreclosurePenaltyPercent / 100)
	totalPayable = emi.Round2(l.RemainingPrincipal + penalty)

	l.RemainingPrincipal = 0
	l.Status = LoanStatusClosed
	return totalPayable, penalty, nil
}
